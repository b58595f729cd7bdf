// Package sim provides the Simulation Driver: a small orchestrator that
// owns cycles_completed and exposes run/continue/reset semantics to any
// front end over a parsed Devices/Network/Monitors triple.
package sim

import (
	"fmt"

	"github.com/suton5/logicsim/internal/devices"
	"github.com/suton5/logicsim/internal/monitors"
	"github.com/suton5/logicsim/internal/names"
	"github.com/suton5/logicsim/internal/network"
)

// Driver owns the simulation clock over a circuit built by the parser.
type Driver struct {
	names *names.Table
	cat   *devices.Catalogue
	net   *network.Network
	mon   *monitors.Monitors

	cyclesCompleted int
}

// New wraps the collaborators populated by a Parser into a Driver.
func New(tbl *names.Table, cat *devices.Catalogue, net *network.Network, mon *monitors.Monitors) *Driver {
	return &Driver{names: tbl, cat: cat, net: net, mon: mon}
}

// CyclesCompleted returns the number of cycles executed since the last
// Reset.
func (d *Driver) CyclesCompleted() int { return d.cyclesCompleted }

// Run resets all monitor histories, re-seeds every stateful device (cold
// startup), then advances the network n cycles, recording signals after
// each. On success cycles_completed is set to n. On oscillation, the
// cycle at which it occurred is reported and cycles_completed is left at
// the count of cycles that did complete.
func (d *Driver) Run(n int) (oscillatedAtCycle int, ok bool) {
	d.mon.ResetMonitors()
	d.cat.ColdStartup()
	d.cyclesCompleted = 0
	return d.advance(n)
}

// Continue advances n more cycles from the current state, appending to
// existing histories. It refuses to run if no prior Run has completed any
// cycle.
func (d *Driver) Continue(n int) (oscillatedAtCycle int, ok bool) {
	if d.cyclesCompleted == 0 {
		return 0, false
	}
	return d.advance(n)
}

func (d *Driver) advance(n int) (oscillatedAtCycle int, ok bool) {
	for i := 0; i < n; i++ {
		if !d.net.ExecuteNetwork() {
			return d.cyclesCompleted + 1, false
		}
		d.cyclesCompleted++
		d.mon.RecordSignals()
	}
	return 0, true
}

// SetSwitch updates a switch's level, effective starting from the next
// advance.
func (d *Driver) SetSwitch(name names.ID, level devices.Level) error {
	return d.cat.SetSwitch(name, level)
}

// AddMonitor starts monitoring device/port (port may be devices.NoPort
// for a single-output device), aligning the new history with BLANKs up to
// cycles_completed.
func (d *Driver) AddMonitor(device, port names.ID) monitors.Error {
	return d.mon.MakeMonitor(device, port, d.cyclesCompleted)
}

// RemoveMonitor stops monitoring device/port.
func (d *Driver) RemoveMonitor(device, port names.ID) bool {
	return d.mon.RemoveMonitor(device, port)
}

// Reset clears monitor histories and sets cycles_completed back to 0.
func (d *Driver) Reset() {
	d.mon.ResetMonitors()
	d.cyclesCompleted = 0
}

// Monitors and Devices expose the underlying collaborators for a front
// end that needs to inspect display names or signal histories directly.
func (d *Driver) Monitors() *monitors.Monitors { return d.mon }
func (d *Driver) Devices() *devices.Catalogue { return d.cat }
func (d *Driver) Names() *names.Table { return d.names }

// DescribeOscillation formats a human-readable message for a failed
// Run/Continue, naming the cycle at which oscillation was detected.
func DescribeOscillation(cycle int) string {
	return fmt.Sprintf("network oscillating: failed to converge at cycle %d", cycle)
}
