package parse

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/suton5/logicsim/internal/devices"
	"github.com/suton5/logicsim/internal/monitors"
)

func writeCircuit(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "circuit.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

const exampleCircuit = `
START DEVICES;
  SW1 = SWITCH, init = 0;
  CK  = CLOCK, cycles = 2;
  G1  = AND, ip = 2;
  DF  = DTYPE;
  SG  = SIGGEN, sig = 0101;
END DEVICES;
START CONNECTIONS;
  SW1 -> G1.I1;
  CK  -> G1.I2, DF.CLK;
  G1  -> DF.DATA;
  SW1 -> DF.SET, DF.CLEAR;
END CONNECTIONS;
START MONITORS;
  DF.Q;
  G1;
END MONITORS;
`

func TestParseNetworkWellFormedFile(t *testing.T) {
	path := writeCircuit(t, exampleCircuit)
	p := New(path)
	defer p.Close()

	ok, err := p.ParseNetwork()
	if err != nil {
		t.Fatalf("ParseNetwork: %v", err)
	}
	if !ok {
		t.Fatalf("syntax errors: %v, semantic errors: %v", p.SyntaxErrors(), p.SemanticErrors())
	}
	if !p.Network().CheckNetwork() {
		t.Fatalf("expected every input connected")
	}
	if len(p.Devices().FindDevices(nil)) != 5 {
		t.Fatalf("got %d devices, want 5", len(p.Devices().FindDevices(nil)))
	}
}

// TestParseNetworkDeviceTypeErrorHaltsSemantics: an unknown device kind
// yields exactly one devicetype syntax diagnostic, and no devices after
// it are created because semantic calls stop once any diagnostic exists.
func TestParseNetworkDeviceTypeErrorHaltsSemantics(t *testing.T) {
	path := writeCircuit(t, `
START DEVICES;
  SW = WIDGET;
  CK = CLOCK, cycles = 2;
END DEVICES;
START CONNECTIONS;
END CONNECTIONS;
START MONITORS;
END MONITORS;
`)
	p := New(path)
	defer p.Close()

	ok, err := p.ParseNetwork()
	if err != nil {
		t.Fatalf("ParseNetwork: %v", err)
	}
	if ok {
		t.Fatalf("expected parse failure")
	}
	syn := p.SyntaxErrors()
	if len(syn) != 1 || syn[0].Code != "devicetype" {
		t.Fatalf("got syntax errors %+v, want exactly one devicetype", syn)
	}
	if len(p.SemanticErrors()) != 0 {
		t.Fatalf("expected no semantic errors, got %+v", p.SemanticErrors())
	}
	ckID, interned := p.Names().Query("CK")
	if interned {
		if _, ok := p.Devices().Get(ckID); ok {
			t.Fatalf("CK should not have been created after an earlier syntax error")
		}
	}
}

// TestParseNetworkDuplicateMonitor: monitoring the same device twice
// yields exactly one MonitorPresent semantic diagnostic and the first
// monitor stands.
func TestParseNetworkDuplicateMonitor(t *testing.T) {
	path := writeCircuit(t, `
START DEVICES;
  G1 = SWITCH, init = 1;
END DEVICES;
START CONNECTIONS;
END CONNECTIONS;
START MONITORS;
  G1;
  G1;
END MONITORS;
`)
	p := New(path)
	defer p.Close()

	ok, err := p.ParseNetwork()
	if err != nil {
		t.Fatalf("ParseNetwork: %v", err)
	}
	if ok {
		t.Fatalf("expected parse failure (duplicate monitor)")
	}
	var monitorPresentCount int
	want := p.Monitors().Code(monitors.MonitorPresent)
	for _, e := range p.SemanticErrors() {
		if e.Issuer == "monitors" && e.Code == want {
			monitorPresentCount++
		}
	}
	if monitorPresentCount != 1 {
		t.Fatalf("got %d MONITOR_PRESENT diagnostics, want 1: %+v", monitorPresentCount, p.SemanticErrors())
	}
}

func TestParseNetworkRejectsUnconnectedInput(t *testing.T) {
	path := writeCircuit(t, `
START DEVICES;
  G1 = AND, ip = 2;
END DEVICES;
START CONNECTIONS;
END CONNECTIONS;
START MONITORS;
END MONITORS;
`)
	p := New(path)
	defer p.Close()

	ok, err := p.ParseNetwork()
	if err != nil {
		t.Fatalf("ParseNetwork: %v", err)
	}
	if ok {
		t.Fatalf("expected parse failure: input I1/I2 never connected")
	}
	found := false
	for _, e := range p.SemanticErrors() {
		if e.Issuer == "network" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a network semantic diagnostic, got %+v", p.SemanticErrors())
	}
}

func TestParseNetworkTerminatesOnUnterminatedComment(t *testing.T) {
	path := writeCircuit(t, "START DEVICES; SW = SWITCH, init = 0; /* oops")
	p := New(path)
	defer p.Close()

	ok, err := p.ParseNetwork()
	if ok {
		t.Fatalf("expected parse failure")
	}
	_ = err // an unterminated comment surfaces as a scan error on NextSymbol
}

func TestParseNetworkGateKeepsQualifierDomain(t *testing.T) {
	path := writeCircuit(t, `
START DEVICES;
  G1 = AND, ip = 17;
END DEVICES;
START CONNECTIONS;
END CONNECTIONS;
START MONITORS;
END MONITORS;
`)
	p := New(path)
	defer p.Close()

	ok, _ := p.ParseNetwork()
	if ok {
		t.Fatalf("expected failure: ip=17 is out of domain")
	}
	if len(p.SyntaxErrors()) != 0 {
		t.Fatalf("expected no syntax errors, got %+v", p.SyntaxErrors())
	}
	found := false
	for _, e := range p.SemanticErrors() {
		if e.Issuer == "devices" && e.Code == p.Devices().Code(devices.InvalidQualifier) {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an InvalidQualifier devices diagnostic, got %+v", p.SemanticErrors())
	}
}
