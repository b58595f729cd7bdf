// Command logicsim parses a circuit definition file and runs it for a
// fixed number of cycles, printing the recorded monitor traces.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/suton5/logicsim/internal/monitors"
	"github.com/suton5/logicsim/internal/parse"
	"github.com/suton5/logicsim/internal/sim"
)

// stringList collects the value of a repeatable flag, the idiom used here
// for -monitor since flag has no repeatable-string primitive.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run implements main's logic over injected argv/stdout/stderr so it can be
// exercised without exec'ing a subprocess.
func run(argv []string, stdout, stderr *os.File) int {
	fs := flag.NewFlagSet("logicsim", flag.ContinueOnError)
	fs.SetOutput(stderr)

	cycles := fs.Int("cycles", 10, "number of cycles to run")
	list := fs.Bool("list", false, "print monitored and available signal names, then exit")
	var monitorFlags stringList
	fs.Var(&monitorFlags, "monitor", "signal to monitor, as NAME or NAME.PORT (repeatable)")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s [options] <circuit-file>\n\n", fs.Name())
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(argv); err != nil {
		return 1
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return 1
	}
	path := fs.Arg(0)

	p := parse.New(path)
	defer p.Close()

	ok, err := p.ParseNetwork()
	if err != nil {
		fmt.Fprintf(stderr, "logicsim: %v\n", err)
		return 1
	}
	if !ok {
		reportErrors(p, stderr)
		return 1
	}

	for _, m := range monitorFlags {
		device, port, err := p.Devices().GetSignalIDs(m)
		if err != nil {
			fmt.Fprintf(stderr, "logicsim: -monitor %s: %v\n", m, err)
			return 1
		}
		if e := p.Monitors().MakeMonitor(device, port, 0); e != monitors.NoError {
			fmt.Fprintf(stderr, "logicsim: -monitor %s: %v\n", m, e)
			return 1
		}
	}

	if *list {
		printSignalList(p.Monitors(), stdout)
		return 0
	}

	driver := sim.New(p.Names(), p.Devices(), p.Network(), p.Monitors())
	cycle, ok := driver.Run(*cycles)
	if !ok {
		fmt.Fprintln(stderr, sim.DescribeOscillation(cycle))
		p.Monitors().DisplaySignals(stdout)
		return 2
	}

	p.Monitors().DisplaySignals(stdout)
	return 0
}

func printSignalList(mon *monitors.Monitors, w *os.File) {
	monitored, unmonitored := mon.GetSignalNames()
	fmt.Fprintln(w, "monitored:")
	for _, n := range monitored {
		fmt.Fprintf(w, "  %s\n", n)
	}
	fmt.Fprintln(w, "available:")
	for _, n := range unmonitored {
		fmt.Fprintf(w, "  %s\n", n)
	}
}

// reportErrors prints every accumulated syntax and semantic diagnostic with
// its source line and caret(s), via the same scanner that produced it.
func reportErrors(p *parse.Parser, w *os.File) {
	sc := p.Scanner()
	for _, e := range p.SyntaxErrors() {
		fmt.Fprintf(w, "line %d: syntax error (%s):\n", e.Primary.Line, e.Code)
		sc.PrintError(w, e.Primary, e.Primary, e.Secondary)
	}
	for _, e := range p.SemanticErrors() {
		fmt.Fprintf(w, "line %d: semantic error [%s %d]: %s\n", e.Primary.Line, e.Issuer, e.Code, e.Message)
		sc.PrintError(w, e.Primary, e.Primary, e.Secondary)
	}
}
