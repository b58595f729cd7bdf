// Package devices catalogues device kinds and holds the per-instance state
// (inputs, outputs, qualifiers) for every device in a network.
package devices

import (
	"fmt"
	"math/rand"

	"github.com/suton5/logicsim/internal/names"
)

// Level is a signal level. BLANK marks a monitor point that exists
// logically but has not yet been sampled; RISING/FALLING are transient
// edge markers returned by AdvanceClock and are never stored as the level
// of a port (DTYPE edge detection compares its remembered CLK level).
type Level int

const (
	LOW Level = iota
	HIGH
	RISING
	FALLING
	BLANK
)

func (l Level) String() string {
	switch l {
	case LOW:
		return "LOW"
	case HIGH:
		return "HIGH"
	case RISING:
		return "RISING"
	case FALLING:
		return "FALLING"
	default:
		return "BLANK"
	}
}

// Kind tags a device's behavior.
type Kind int

const (
	CLOCK Kind = iota
	SWITCH
	AND
	NAND
	OR
	NOR
	XOR
	DTYPE
	SIGGEN
)

func (k Kind) String() string {
	switch k {
	case CLOCK:
		return "CLOCK"
	case SWITCH:
		return "SWITCH"
	case AND:
		return "AND"
	case NAND:
		return "NAND"
	case OR:
		return "OR"
	case NOR:
		return "NOR"
	case XOR:
		return "XOR"
	case DTYPE:
		return "DTYPE"
	case SIGGEN:
		return "SIGGEN"
	default:
		return "?"
	}
}

// IsGate reports whether k is a combinational logic gate (AND/NAND/OR/NOR/XOR).
func (k Kind) IsGate() bool {
	switch k {
	case AND, NAND, OR, NOR, XOR:
		return true
	default:
		return false
	}
}

// NoPort is the sentinel output-port key for devices with a single,
// unnamed output (SWITCH, CLOCK, SIGGEN and the AND/NAND/OR/NOR/XOR
// gates). It is never a valid names.ID.
const NoPort names.ID = -1

// Qualifier carries the value following "," param "=" in a device
// declaration. Number is used for ip/init/cycles; Literal carries the raw
// digit text (leading zeros preserved) and is the only field SIGGEN's
// "sig" qualifier uses.
type Qualifier struct {
	Number  int
	Literal string
}

// InputPort is one input of a device instance.
type InputPort struct {
	Connected bool
	Level     Level
}

// Device is one instance of a device kind with its port state.
type Device struct {
	Name names.ID
	Kind Kind

	NumInputs int // AND/NAND/OR/NOR: ip; XOR: fixed 2

	InitLevel Level // SWITCH only

	CyclesHalfPeriod int // CLOCK only
	clockCounter     int

	Q       Level // DTYPE only
	prevClk Level
	qID     names.ID
	qBarID  names.ID
	dataID  names.ID
	clkID   names.ID
	setID   names.ID
	clearID names.ID

	Waveform string // SIGGEN only
	cursor   int

	Inputs  map[names.ID]*InputPort
	Outputs map[names.ID]Level
}

// Error is returned by MakeDevice.
type Error int

const (
	NoError Error = iota
	InvalidQualifier
	NoQualifier
	QualifierPresent
	BadDevice
	DevicePresent
	InvalidSiggen
)

func (e Error) String() string {
	switch e {
	case NoError:
		return "no error"
	case InvalidQualifier:
		return "invalid qualifier"
	case NoQualifier:
		return "missing required qualifier"
	case QualifierPresent:
		return "qualifier not allowed for this device kind"
	case BadDevice:
		return "unknown device kind"
	case DevicePresent:
		return "device name already used"
	case InvalidSiggen:
		return "invalid SIGGEN waveform"
	default:
		return "?"
	}
}

// Catalogue owns every device instance in a network.
type Catalogue struct {
	names *names.Table
	devs  map[names.ID]*Device
	order []names.ID // creation order, for deterministic FindDevices/cold startup

	// ErrBase is the first of Catalogue's 7 reserved error codes
	// (NoError..InvalidSiggen, in that order).
	ErrBase int

	rng *rand.Rand
}

// New returns an empty Catalogue, reserving 7 error codes from tbl.
func New(tbl *names.Table) *Catalogue {
	base, _ := tbl.ReserveErrorCodes(7)
	return &Catalogue{
		names:   tbl,
		devs:    make(map[names.ID]*Device),
		ErrBase: base,
		rng:     rand.New(rand.NewSource(1)),
	}
}

// Code maps a local Error to its globally unique reserved code.
func (c *Catalogue) Code(e Error) int { return c.ErrBase + int(e) }

func gateInputPorts(tbl *names.Table, n int) map[names.ID]*InputPort {
	m := make(map[names.ID]*InputPort, n)
	for i := 1; i <= n; i++ {
		id := tbl.Intern(fmt.Sprintf("I%d", i))
		m[id] = &InputPort{}
	}
	return m
}

// MakeDevice creates a device of the given kind and qualifier (nil if the
// grammar supplied none), wiring its port maps.
func (c *Catalogue) MakeDevice(name names.ID, kind Kind, q *Qualifier) Error {
	if _, exists := c.devs[name]; exists {
		return DevicePresent
	}

	d := &Device{Name: name, Kind: kind, Outputs: make(map[names.ID]Level)}

	switch kind {
	case AND, NAND, OR, NOR:
		if q == nil {
			return NoQualifier
		}
		if q.Number < 1 || q.Number > 16 {
			return InvalidQualifier
		}
		d.NumInputs = q.Number
		d.Inputs = gateInputPorts(c.names, q.Number)
		d.Outputs[NoPort] = LOW

	case XOR:
		if q != nil {
			return QualifierPresent
		}
		d.NumInputs = 2
		d.Inputs = gateInputPorts(c.names, 2)
		d.Outputs[NoPort] = LOW

	case SWITCH:
		if q == nil {
			return NoQualifier
		}
		if q.Number != 0 && q.Number != 1 {
			return InvalidQualifier
		}
		lvl := LOW
		if q.Number == 1 {
			lvl = HIGH
		}
		d.InitLevel = lvl
		d.Outputs[NoPort] = lvl

	case CLOCK:
		if q == nil {
			return NoQualifier
		}
		if q.Number < 1 {
			return InvalidQualifier
		}
		d.CyclesHalfPeriod = q.Number
		d.Outputs[NoPort] = LOW

	case DTYPE:
		if q != nil {
			return QualifierPresent
		}
		d.dataID = c.names.Intern("DATA")
		d.clkID = c.names.Intern("CLK")
		d.setID = c.names.Intern("SET")
		d.clearID = c.names.Intern("CLEAR")
		d.Inputs = map[names.ID]*InputPort{
			d.dataID:  {},
			d.clkID:   {},
			d.setID:   {},
			d.clearID: {},
		}
		d.qID = c.names.Intern("Q")
		d.qBarID = c.names.Intern("QBAR")
		d.Outputs[d.qID] = LOW
		d.Outputs[d.qBarID] = HIGH
		d.Q = LOW
		d.prevClk = LOW

	case SIGGEN:
		if q == nil {
			return NoQualifier
		}
		if len(q.Literal) == 0 {
			return InvalidSiggen
		}
		for _, ch := range q.Literal {
			if ch != '0' && ch != '1' {
				return InvalidSiggen
			}
		}
		d.Waveform = q.Literal
		bit := LOW
		if q.Literal[0] == '1' {
			bit = HIGH
		}
		d.Outputs[NoPort] = bit

	default:
		return BadDevice
	}

	c.devs[name] = d
	c.order = append(c.order, name)
	return NoError
}

// Get returns the device named name, or (nil, false) if it is absent.
func (c *Catalogue) Get(name names.ID) (*Device, bool) {
	d, ok := c.devs[name]
	return d, ok
}

// SetSwitch updates a switch's current output level. Takes effect
// starting from the next call to execute_network.
func (c *Catalogue) SetSwitch(name names.ID, level Level) error {
	d, ok := c.devs[name]
	if !ok || d.Kind != SWITCH {
		return fmt.Errorf("devices: %v is not a switch", name)
	}
	d.Outputs[NoPort] = level
	return nil
}

// ColdStartup re-seeds every stateful device: switches to their init
// level, clocks to a pseudo-random phase within their half-period,
// D-type Q to LOW, and SIGGEN cursors to 0.
func (c *Catalogue) ColdStartup() {
	for _, name := range c.order {
		d := c.devs[name]
		switch d.Kind {
		case SWITCH:
			d.Outputs[NoPort] = d.InitLevel
		case CLOCK:
			d.clockCounter = c.rng.Intn(d.CyclesHalfPeriod)
			d.Outputs[NoPort] = LOW
		case DTYPE:
			d.Q = LOW
			d.prevClk = LOW
			d.Outputs[d.qID] = LOW
			d.Outputs[d.qBarID] = HIGH
		case SIGGEN:
			d.cursor = 0
			bit := LOW
			if d.Waveform[0] == '1' {
				bit = HIGH
			}
			d.Outputs[NoPort] = bit
		}
	}
}

// FindDevices returns every device name, or only those of the given kind
// if k is non-nil, in creation order.
func (c *Catalogue) FindDevices(k *Kind) []names.ID {
	var out []names.ID
	for _, name := range c.order {
		if k == nil || c.devs[name].Kind == *k {
			out = append(out, name)
		}
	}
	return out
}

// GetSignalName returns "dev" for an unnamed (NoPort) output, or
// "dev.PORT" otherwise.
func (c *Catalogue) GetSignalName(device names.ID, port names.ID) (string, error) {
	devStr, ok := c.names.Get(device)
	if !ok {
		return "", fmt.Errorf("devices: unknown device id %v", device)
	}
	if port == NoPort {
		return devStr, nil
	}
	portStr, ok := c.names.Get(port)
	if !ok {
		return "", fmt.Errorf("devices: unknown port id %v", port)
	}
	return devStr + "." + portStr, nil
}

// GetSignalIDs parses "dev" or "dev.PORT" into a device ID and an optional
// port ID (NoPort if none was given).
func (c *Catalogue) GetSignalIDs(signal string) (device names.ID, port names.ID, err error) {
	devPart, portPart, hasPort := splitSignal(signal)
	id, ok := c.names.Query(devPart)
	if !ok {
		return 0, NoPort, fmt.Errorf("devices: unknown device %q", devPart)
	}
	if !hasPort {
		return id, NoPort, nil
	}
	portID, ok := c.names.Query(portPart)
	if !ok {
		return 0, NoPort, fmt.Errorf("devices: unknown port %q", portPart)
	}
	return id, portID, nil
}

func splitSignal(signal string) (dev string, port string, hasPort bool) {
	for i, ch := range signal {
		if ch == '.' {
			return signal[:i], signal[i+1:], true
		}
	}
	return signal, "", false
}

// Evaluate recomputes a gate's output from the current levels of its
// inputs, using its kind's truth table. Only valid for gate kinds.
func Evaluate(d *Device) Level {
	highs := 0
	total := 0
	for _, in := range d.Inputs {
		total++
		if in.Level == HIGH {
			highs++
		}
	}
	switch d.Kind {
	case AND:
		if highs == total {
			return HIGH
		}
		return LOW
	case NAND:
		if highs == total {
			return LOW
		}
		return HIGH
	case OR:
		if highs > 0 {
			return HIGH
		}
		return LOW
	case NOR:
		if highs > 0 {
			return LOW
		}
		return HIGH
	case XOR:
		if highs%2 == 1 {
			return HIGH
		}
		return LOW
	default:
		return LOW
	}
}

// AdvanceClock increments a CLOCK device's half-period counter. When the
// counter reaches CyclesHalfPeriod it resets to 0 and the output flips,
// reported as RISING or FALLING; otherwise the output is unchanged and the
// prior steady level is returned. The new output takes effect starting
// from the next cycle's propagation.
func (d *Device) AdvanceClock() Level {
	d.clockCounter++
	if d.clockCounter < d.CyclesHalfPeriod {
		return d.Outputs[NoPort]
	}
	d.clockCounter = 0
	if d.Outputs[NoPort] == LOW {
		d.Outputs[NoPort] = HIGH
		return RISING
	}
	d.Outputs[NoPort] = LOW
	return FALLING
}

// AdvanceSiggen steps the cursor modulo the waveform length and drives
// the output to the bit it lands on, so after k completed cycles the
// output is the waveform's bit k mod len. Cold startup leaves the cursor
// at bit 0, which the output already shows before the first cycle.
func (d *Device) AdvanceSiggen() {
	d.cursor = (d.cursor + 1) % len(d.Waveform)
	bit := LOW
	if d.Waveform[d.cursor] == '1' {
		bit = HIGH
	}
	d.Outputs[NoPort] = bit
}

// LatchDType applies CLEAR/SET/rising-edge-of-CLK semantics given this
// cycle's propagated input levels, and records clkLevel as the level to
// compare against on the next cycle. CLEAR dominates SET.
func (d *Device) LatchDType(dataLevel, clkLevel, setLevel, clearLevel Level) {
	risingEdge := d.prevClk == LOW && clkLevel == HIGH
	switch {
	case clearLevel == HIGH:
		d.Q = LOW
	case setLevel == HIGH:
		d.Q = HIGH
	case risingEdge:
		d.Q = dataLevel
	}
	d.prevClk = clkLevel
	d.Outputs[d.qID] = d.Q
	if d.Q == HIGH {
		d.Outputs[d.qBarID] = LOW
	} else {
		d.Outputs[d.qBarID] = HIGH
	}
}

// QBarID and QID expose the interned port IDs for DTYPE's outputs, so a
// caller can address Q and QBAR without a names.Table lookup.
func (d *Device) QID() names.ID { return d.qID }
func (d *Device) QBarID() names.ID { return d.qBarID }

// DataID, ClkID, SetID and ClearID expose the interned port IDs for
// DTYPE's four inputs, needed by Network to drive LatchDType without
// re-deriving port names from a names.Table.
func (d *Device) DataID() names.ID { return d.dataID }
func (d *Device) ClkID() names.ID { return d.clkID }
func (d *Device) SetID() names.ID { return d.setID }
func (d *Device) ClearID() names.ID { return d.clearID }
