// Package monitors records the per-cycle signal history of chosen output
// ports and renders them as a text trace.
package monitors

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/suton5/logicsim/internal/devices"
	"github.com/suton5/logicsim/internal/names"
)

// Error is returned by MakeMonitor.
type Error int

const (
	NoError Error = iota
	NotOutput
	MonitorPresent
	DeviceAbsent
)

func (e Error) String() string {
	switch e {
	case NoError:
		return "no error"
	case NotOutput:
		return "named port is not an output"
	case MonitorPresent:
		return "signal is already monitored"
	case DeviceAbsent:
		return "device is not defined"
	default:
		return "?"
	}
}

type signal struct {
	device names.ID
	port   names.ID
}

// Monitors tracks the recorded history of every monitored output signal.
type Monitors struct {
	cat *devices.Catalogue

	order   []signal
	history map[signal][]devices.Level

	// ErrBase is the first of Monitors' 4 reserved error codes
	// (NoError..DeviceAbsent, in that order).
	ErrBase int
}

// New returns an empty Monitors set over cat, reserving 4 error codes from
// tbl.
func New(tbl *names.Table, cat *devices.Catalogue) *Monitors {
	base, _ := tbl.ReserveErrorCodes(4)
	return &Monitors{
		cat:     cat,
		history: make(map[signal][]devices.Level),
		ErrBase: base,
	}
}

// Code maps a local Error to its globally unique reserved code.
func (m *Monitors) Code(e Error) int { return m.ErrBase + int(e) }

// MakeMonitor starts recording device's port (or its sole output, if port
// is devices.NoPort and the device has exactly one). The history is
// pre-filled with cyclesCompleted BLANKs so every monitor's history aligns
// to the same absolute cycle index regardless of when it was created.
func (m *Monitors) MakeMonitor(device names.ID, port names.ID, cyclesCompleted int) Error {
	d, ok := m.cat.Get(device)
	if !ok {
		return DeviceAbsent
	}

	resolved := port
	if port == devices.NoPort {
		if len(d.Outputs) != 1 {
			return NotOutput
		}
		for p := range d.Outputs {
			resolved = p
		}
	} else if _, ok := d.Outputs[port]; !ok {
		return NotOutput
	}

	sig := signal{device: device, port: resolved}
	if _, exists := m.history[sig]; exists {
		return MonitorPresent
	}

	hist := make([]devices.Level, cyclesCompleted)
	for i := range hist {
		hist[i] = devices.BLANK
	}
	m.history[sig] = hist
	m.order = append(m.order, sig)
	return NoError
}

// RemoveMonitor stops recording device's port (or its sole output).
// Reports whether a monitor was found and removed.
func (m *Monitors) RemoveMonitor(device names.ID, port names.ID) bool {
	d, ok := m.cat.Get(device)
	if !ok {
		return false
	}
	resolved := port
	if port == devices.NoPort {
		if len(d.Outputs) != 1 {
			return false
		}
		for p := range d.Outputs {
			resolved = p
		}
	}
	sig := signal{device: device, port: resolved}
	if _, exists := m.history[sig]; !exists {
		return false
	}
	delete(m.history, sig)
	for i, s := range m.order {
		if s == sig {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true
}

// RecordSignals appends the current level of every monitored signal to its
// history. Called once per completed cycle.
func (m *Monitors) RecordSignals() {
	for _, sig := range m.order {
		d, ok := m.cat.Get(sig.device)
		lvl := devices.BLANK
		if ok {
			if l, ok := d.Outputs[sig.port]; ok {
				lvl = l
			}
		}
		m.history[sig] = append(m.history[sig], lvl)
	}
}

// ResetMonitors clears every monitor's history back to empty (used when
// the simulation driver resets cycles_completed to 0).
func (m *Monitors) ResetMonitors() {
	for _, sig := range m.order {
		m.history[sig] = m.history[sig][:0]
	}
}

// History returns the recorded levels of a monitored device/port (port
// may be devices.NoPort for a single-output device), or nil if it is not
// monitored.
func (m *Monitors) History(device names.ID, port names.ID) []devices.Level {
	resolved := port
	if port == devices.NoPort {
		if d, ok := m.cat.Get(device); ok && len(d.Outputs) == 1 {
			for p := range d.Outputs {
				resolved = p
			}
		}
	}
	return m.history[signal{device: device, port: resolved}]
}

// monitoredNames returns the "dev" or "dev.PORT" display name of every
// monitored signal, in creation order.
func (m *Monitors) monitoredNames() []string {
	out := make([]string, 0, len(m.order))
	for _, sig := range m.order {
		name, err := m.cat.GetSignalName(sig.device, sig.port)
		if err != nil {
			continue
		}
		out = append(out, name)
	}
	return out
}

// GetSignalNames returns the display names of every monitored signal,
// plus every device's own unmonitored output signal (for single-output
// devices; D_TYPE's Q/QBAR are listed individually if not monitored).
func (m *Monitors) GetSignalNames() (monitored, unmonitored []string) {
	monitored = m.monitoredNames()

	isMonitored := make(map[signal]bool, len(m.order))
	for _, sig := range m.order {
		isMonitored[sig] = true
	}
	for _, devID := range m.cat.FindDevices(nil) {
		d, _ := m.cat.Get(devID)
		var ports []string
		for port := range d.Outputs {
			sig := signal{device: devID, port: port}
			if isMonitored[sig] {
				continue
			}
			name, err := m.cat.GetSignalName(devID, port)
			if err != nil {
				continue
			}
			ports = append(ports, name)
		}
		sort.Strings(ports) // map iteration order is not stable across runs
		unmonitored = append(unmonitored, ports...)
	}
	return monitored, unmonitored
}

func glyph(lvl devices.Level) rune {
	switch lvl {
	case devices.HIGH:
		return '‾'
	case devices.LOW:
		return '_'
	default:
		return ' '
	}
}

// DisplaySignals writes one line per monitored signal: its display name,
// a colon, then one glyph per recorded cycle ('‾' for HIGH, '_' for LOW,
// a space for BLANK).
func (m *Monitors) DisplaySignals(w io.Writer) error {
	labels := m.monitoredNames()
	width := 0
	for _, l := range labels {
		if len(l) > width {
			width = len(l)
		}
	}
	for i, sig := range m.order {
		var sb strings.Builder
		for _, lvl := range m.history[sig] {
			sb.WriteRune(glyph(lvl))
		}
		if _, err := fmt.Fprintf(w, "%-*s : %s\n", width, labels[i], sb.String()); err != nil {
			return err
		}
	}
	return nil
}
