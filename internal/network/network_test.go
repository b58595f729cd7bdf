package network

import (
	"testing"

	"github.com/suton5/logicsim/internal/devices"
	"github.com/suton5/logicsim/internal/names"
)

func build(t *testing.T) (*names.Table, *devices.Catalogue, *Network) {
	t.Helper()
	tbl := names.New()
	cat := devices.New(tbl)
	return tbl, cat, New(tbl, cat)
}

func TestMakeConnectionSingleOutputInference(t *testing.T) {
	tbl, cat, net := build(t)
	sw := tbl.Intern("SW1")
	and := tbl.Intern("G1")
	cat.MakeDevice(sw, devices.SWITCH, &devices.Qualifier{Number: 1})
	cat.MakeDevice(and, devices.AND, &devices.Qualifier{Number: 1})

	i1, _ := tbl.Query("I1")
	if e := net.MakeConnection(sw, devices.NoPort, and, i1); e != NoError {
		t.Fatalf("MakeConnection: %v", e)
	}
}

func TestMakeConnectionRejectsInputAsSource(t *testing.T) {
	tbl, cat, net := build(t)
	a := tbl.Intern("G1")
	b := tbl.Intern("G2")
	cat.MakeDevice(a, devices.AND, &devices.Qualifier{Number: 1})
	cat.MakeDevice(b, devices.AND, &devices.Qualifier{Number: 1})
	i1, _ := tbl.Query("I1")

	if e := net.MakeConnection(a, i1, b, i1); e != InputToInput {
		t.Fatalf("got %v, want InputToInput", e)
	}
}

func TestMakeConnectionRejectsOutputAsSink(t *testing.T) {
	tbl, cat, net := build(t)
	a := tbl.Intern("G1")
	b := tbl.Intern("G2")
	cat.MakeDevice(a, devices.AND, &devices.Qualifier{Number: 1})
	cat.MakeDevice(b, devices.AND, &devices.Qualifier{Number: 1})

	if e := net.MakeConnection(a, devices.NoPort, b, devices.NoPort); e != OutputToOutput {
		t.Fatalf("got %v, want OutputToOutput", e)
	}
}

func TestMakeConnectionRejectsDoubleDrive(t *testing.T) {
	tbl, cat, net := build(t)
	sw1 := tbl.Intern("SW1")
	sw2 := tbl.Intern("SW2")
	and := tbl.Intern("G1")
	cat.MakeDevice(sw1, devices.SWITCH, &devices.Qualifier{Number: 1})
	cat.MakeDevice(sw2, devices.SWITCH, &devices.Qualifier{Number: 0})
	cat.MakeDevice(and, devices.AND, &devices.Qualifier{Number: 1})
	i1, _ := tbl.Query("I1")

	if e := net.MakeConnection(sw1, devices.NoPort, and, i1); e != NoError {
		t.Fatalf("first connection: %v", e)
	}
	if e := net.MakeConnection(sw2, devices.NoPort, and, i1); e != InputConnected {
		t.Fatalf("got %v, want InputConnected", e)
	}
}

func TestMakeConnectionDeviceAbsent(t *testing.T) {
	tbl, cat, net := build(t)
	sw := tbl.Intern("SW1")
	cat.MakeDevice(sw, devices.SWITCH, &devices.Qualifier{Number: 1})
	ghost := tbl.Intern("GHOST")
	if e := net.MakeConnection(ghost, devices.NoPort, sw, devices.NoPort); e != DeviceAbsent {
		t.Fatalf("got %v, want DeviceAbsent", e)
	}
}

func TestCheckNetworkDetectsUnconnectedInput(t *testing.T) {
	tbl, cat, net := build(t)
	and := tbl.Intern("G1")
	cat.MakeDevice(and, devices.AND, &devices.Qualifier{Number: 2})
	if net.CheckNetwork() {
		t.Fatalf("expected CheckNetwork to fail with an unconnected input")
	}

	sw1 := tbl.Intern("SW1")
	sw2 := tbl.Intern("SW2")
	cat.MakeDevice(sw1, devices.SWITCH, &devices.Qualifier{Number: 0})
	cat.MakeDevice(sw2, devices.SWITCH, &devices.Qualifier{Number: 0})
	i1, _ := tbl.Query("I1")
	i2, _ := tbl.Query("I2")
	net.MakeConnection(sw1, devices.NoPort, and, i1)
	net.MakeConnection(sw2, devices.NoPort, and, i2)
	if !net.CheckNetwork() {
		t.Fatalf("expected CheckNetwork to pass once every input is driven")
	}
}

// TestExecuteNetworkSwitchAndClock gates a clock through an AND with a
// closed switch: SW=SWITCH init=1, CK=CLOCK cycles=1, G=AND ip=2,
// SW->G.I1, CK->G.I2. With cycles=1 every ColdStartup phase is forced to
// 0 (rand.Intn(1) is always 0), so CK deterministically starts LOW.
func TestExecuteNetworkSwitchAndClock(t *testing.T) {
	tbl, cat, net := build(t)
	sw := tbl.Intern("SW")
	ck := tbl.Intern("CK")
	and := tbl.Intern("G")
	cat.MakeDevice(sw, devices.SWITCH, &devices.Qualifier{Number: 1})
	cat.MakeDevice(ck, devices.CLOCK, &devices.Qualifier{Number: 1})
	cat.MakeDevice(and, devices.AND, &devices.Qualifier{Number: 2})
	i1, _ := tbl.Query("I1")
	i2, _ := tbl.Query("I2")
	net.MakeConnection(sw, devices.NoPort, and, i1)
	net.MakeConnection(ck, devices.NoPort, and, i2)
	cat.ColdStartup()

	want := []devices.Level{
		devices.LOW, devices.HIGH, devices.LOW,
		devices.HIGH, devices.LOW, devices.HIGH,
	}
	d, _ := cat.Get(and)
	for cycle, exp := range want {
		if !net.ExecuteNetwork() {
			t.Fatalf("cycle %d: expected convergence", cycle)
		}
		if got := d.Outputs[devices.NoPort]; got != exp {
			t.Fatalf("cycle %d: G output = %v, want %v", cycle, got, exp)
		}
	}
}

// TestExecuteNetworkSiggenThroughNor inverts a signal generator through a
// one-input NOR: SG=SIGGEN sig=01100, B=NOR ip=1, SG->B.I1, run 7 cycles
// so the waveform wraps.
func TestExecuteNetworkSiggenThroughNor(t *testing.T) {
	tbl, cat, net := build(t)
	sg := tbl.Intern("SG")
	nor := tbl.Intern("B")
	cat.MakeDevice(sg, devices.SIGGEN, &devices.Qualifier{Literal: "01100"})
	cat.MakeDevice(nor, devices.NOR, &devices.Qualifier{Number: 1})
	i1, _ := tbl.Query("I1")
	net.MakeConnection(sg, devices.NoPort, nor, i1)

	want := []devices.Level{
		devices.HIGH, devices.LOW, devices.LOW,
		devices.HIGH, devices.HIGH, devices.HIGH, devices.LOW,
	}
	d, _ := cat.Get(nor)
	for cycle, exp := range want {
		if !net.ExecuteNetwork() {
			t.Fatalf("cycle %d: expected convergence", cycle)
		}
		if got := d.Outputs[devices.NoPort]; got != exp {
			t.Fatalf("cycle %d: NOR output = %v, want %v", cycle, got, exp)
		}
	}
}

// TestExecuteNetworkDTypeOneCycleDelay latches a constant-HIGH DATA on
// the first rising clock edge: SW=SWITCH init=1, CK=CLOCK cycles=1,
// DF=DTYPE, SW0=SWITCH init=0, SW->DF.DATA, CK->DF.CLK, SW0->DF.SET,
// SW0->DF.CLEAR. Q is observed across 6 cycles.
func TestExecuteNetworkDTypeOneCycleDelay(t *testing.T) {
	tbl, cat, net := build(t)
	dtype := tbl.Intern("DF")
	sw := tbl.Intern("SW")
	ck := tbl.Intern("CK")
	sw0 := tbl.Intern("SW0")
	cat.MakeDevice(dtype, devices.DTYPE, nil)
	cat.MakeDevice(sw, devices.SWITCH, &devices.Qualifier{Number: 1})
	cat.MakeDevice(ck, devices.CLOCK, &devices.Qualifier{Number: 1})
	cat.MakeDevice(sw0, devices.SWITCH, &devices.Qualifier{Number: 0})

	d, _ := cat.Get(dtype)
	net.MakeConnection(sw, devices.NoPort, dtype, d.DataID())
	net.MakeConnection(ck, devices.NoPort, dtype, d.ClkID())
	net.MakeConnection(sw0, devices.NoPort, dtype, d.SetID())
	net.MakeConnection(sw0, devices.NoPort, dtype, d.ClearID())
	cat.ColdStartup() // cycles=1 forces CK's phase deterministically to LOW

	want := []devices.Level{
		devices.LOW, devices.HIGH, devices.HIGH,
		devices.HIGH, devices.HIGH, devices.HIGH,
	}
	for cycle, exp := range want {
		if !net.ExecuteNetwork() {
			t.Fatalf("cycle %d: expected convergence", cycle)
		}
		if got := d.Outputs[d.QID()]; got != exp {
			t.Fatalf("cycle %d: Q = %v, want %v", cycle, got, exp)
		}
	}
}

func TestExecuteNetworkDetectsOscillation(t *testing.T) {
	tbl, cat, net := build(t)
	nand := tbl.Intern("N1")
	cat.MakeDevice(nand, devices.NAND, &devices.Qualifier{Number: 1})
	i1, _ := tbl.Query("I1")
	// Feed the gate's own output back into its single input: NAND(x) flips
	// every sweep and never settles.
	net.MakeConnection(nand, devices.NoPort, nand, i1)

	if net.ExecuteNetwork() {
		t.Fatalf("expected oscillation to be detected")
	}
}
