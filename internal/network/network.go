// Package network builds the connection graph between device ports and
// runs the combinational fixed-point evaluator that computes one
// simulation cycle.
package network

import (
	"github.com/suton5/logicsim/internal/devices"
	"github.com/suton5/logicsim/internal/names"
)

// Error is returned by MakeConnection.
type Error int

const (
	NoError Error = iota
	InputToInput
	OutputToOutput
	InputConnected
	PortAbsent
	DeviceAbsent
	Incomplete // not every input in the network has a driver
)

func (e Error) String() string {
	switch e {
	case NoError:
		return "no error"
	case InputToInput:
		return "cannot connect an input to an input"
	case OutputToOutput:
		return "cannot connect an output to an output"
	case InputConnected:
		return "input already has a driver"
	case PortAbsent:
		return "port is not defined on this device"
	case DeviceAbsent:
		return "device is not defined"
	case Incomplete:
		return "not all inputs are connected"
	default:
		return "?"
	}
}

type endpoint struct {
	device names.ID
	port   names.ID
}

// connection is a directed edge from a source output port to a sink input
// port.
type connection struct {
	src endpoint
	dst endpoint
}

// Network owns the connection graph over a devices.Catalogue and evaluates
// it one cycle at a time.
type Network struct {
	cat   *devices.Catalogue
	conns []connection

	// ErrBase is the first of Network's 7 reserved error codes
	// (NoError..Incomplete, in that order).
	ErrBase int
}

// New returns an empty Network over cat, reserving 7 error codes from tbl.
func New(tbl *names.Table, cat *devices.Catalogue) *Network {
	base, _ := tbl.ReserveErrorCodes(7)
	return &Network{cat: cat, ErrBase: base}
}

// Code maps a local Error to its globally unique reserved code.
func (n *Network) Code(e Error) int { return n.ErrBase + int(e) }

func isOutputPort(d *devices.Device, port names.ID) bool {
	_, ok := d.Outputs[port]
	return ok
}

func isInputPort(d *devices.Device, port names.ID) bool {
	_, ok := d.Inputs[port]
	return ok
}

// singleOutputPort returns the sole output port of d if it has exactly
// one, else devices.NoPort and false.
func singleOutputPort(d *devices.Device) (names.ID, bool) {
	if len(d.Outputs) != 1 {
		return devices.NoPort, false
	}
	for port := range d.Outputs {
		return port, true
	}
	return devices.NoPort, false
}

// MakeConnection wires srcDev's output (srcPort, or its sole output if
// srcPort is devices.NoPort and it has exactly one) to dstDev's dstIn
// input. Each input may be connected at most once; outputs fan out freely.
func (n *Network) MakeConnection(srcDev names.ID, srcPort names.ID, dstDev names.ID, dstIn names.ID) Error {
	src, ok := n.cat.Get(srcDev)
	if !ok {
		return DeviceAbsent
	}
	dst, ok := n.cat.Get(dstDev)
	if !ok {
		return DeviceAbsent
	}

	resolvedSrcPort := srcPort
	if srcPort == devices.NoPort {
		port, unique := singleOutputPort(src)
		if !unique {
			return PortAbsent
		}
		resolvedSrcPort = port
	} else if isInputPort(src, srcPort) {
		return InputToInput // the caller named an input port as the source
	} else if !isOutputPort(src, srcPort) {
		return PortAbsent
	}

	if isOutputPort(dst, dstIn) {
		return OutputToOutput // the caller named an output port as the sink
	}
	if !isInputPort(dst, dstIn) {
		return PortAbsent
	}
	if dst.Inputs[dstIn].Connected {
		return InputConnected
	}

	dst.Inputs[dstIn].Connected = true
	n.conns = append(n.conns, connection{
		src: endpoint{device: srcDev, port: resolvedSrcPort},
		dst: endpoint{device: dstDev, port: dstIn},
	})
	return NoError
}

// CheckNetwork reports whether every input of every device has a driver.
func (n *Network) CheckNetwork() bool {
	for _, name := range n.cat.FindDevices(nil) {
		d, _ := n.cat.Get(name)
		for _, in := range d.Inputs {
			if !in.Connected {
				return false
			}
		}
	}
	return true
}

// sweepBound returns the number of combinational sweeps allowed before a
// network is declared oscillating: large enough for any acyclic graph.
func (n *Network) sweepBound() int {
	return 20*len(n.cat.FindDevices(nil)) + 10
}

// propagate copies each driver's current output level into every input it
// feeds; a driver whose source port is missing propagates BLANK. Inputs
// with no connection are not touched and keep their zero-value level
// (LOW); unreachable once CheckNetwork has passed.
func (n *Network) propagate() {
	for _, c := range n.conns {
		src, ok := n.cat.Get(c.src.device)
		if !ok {
			continue
		}
		dst, ok := n.cat.Get(c.dst.device)
		if !ok {
			continue
		}
		lvl, ok := src.Outputs[c.src.port]
		if !ok {
			lvl = devices.BLANK
		}
		dst.Inputs[c.dst.port].Level = lvl
	}
}

// ExecuteNetwork performs one simulation cycle: propagate driver levels,
// settle the combinational fixed point, then advance clocked/stateful
// devices. It returns false if the combinational pass fails to converge
// within the sweep bound (the network is oscillating).
func (n *Network) ExecuteNetwork() bool {
	n.propagate()

	if !n.settleCombinational() {
		return false
	}

	n.advanceClocked()
	n.propagate() // re-propagate clocked outputs for same-cycle observers

	return true
}

// settleCombinational repeats a full sweep over every gate until no output
// changes, or reports oscillation if the sweep bound is exceeded.
func (n *Network) settleCombinational() bool {
	gates := make([]*devices.Device, 0)
	for _, name := range n.cat.FindDevices(nil) {
		d, _ := n.cat.Get(name)
		if d.Kind.IsGate() {
			gates = append(gates, d)
		}
	}

	bound := n.sweepBound()
	for sweep := 0; sweep < bound; sweep++ {
		changed := false
		for _, d := range gates {
			newVal := devices.Evaluate(d)
			if d.Outputs[devices.NoPort] != newVal {
				d.Outputs[devices.NoPort] = newVal
				changed = true
			}
		}
		if changed {
			n.propagate()
		} else {
			return true
		}
	}
	return false
}

// advanceClocked steps every CLOCK, DTYPE and SIGGEN device by one cycle.
// Their inputs already reflect this cycle's propagated levels.
func (n *Network) advanceClocked() {
	for _, name := range n.cat.FindDevices(nil) {
		d, _ := n.cat.Get(name)
		switch d.Kind {
		case devices.CLOCK:
			d.AdvanceClock()
		case devices.SIGGEN:
			d.AdvanceSiggen()
		case devices.DTYPE:
			data := d.Inputs[d.DataID()].Level
			clk := d.Inputs[d.ClkID()].Level
			set := d.Inputs[d.SetID()].Level
			clear := d.Inputs[d.ClearID()].Level
			d.LatchDType(data, clk, set, clear)
		}
	}
}
