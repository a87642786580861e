// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// ndgraph inspects graph files, reports the backend selection and runs the micro benchmarks.
//
// Usage:
//
//	ndgraph [flags] inspect <file>
//	ndgraph [flags] backend
//	ndgraph [flags] bench
//	ndgraph [flags] demo <file>
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"k8s.io/klog/v2"

	_ "github.com/gomlx/ndgraph/backends/default"
)

var (
	flagNoColor    = flag.Bool("no_color", false, "Disable colors and styles in the output.")
	flagIterations = flag.Int("iterations", 1000, "Number of measured iterations of each benchmark.")
	flagWarmup     = flag.Int("warmup", 100, "Number of warm-up iterations of each benchmark, not measured.")
	flagThreads    = flag.Int("threads", 1, "Number of threads running each benchmark iteration concurrently.")
	flagSize       = flag.Int("size", 1024, "Number of elements of the arrays bound to the benchmarked ops.")
	flagVersion    = flag.Uint("version", 0, "Schema version used by 'demo' to write the graph. 0 for the current version.")
)

func usage() {
	out := flag.CommandLine.Output()
	_, _ = fmt.Fprintf(out, "Usage: %s [flags] <command> [args]\n\nCommands:\n", os.Args[0])
	_, _ = fmt.Fprintln(out, "  inspect <file>  Prints the contents of a graph file.")
	_, _ = fmt.Fprintln(out, "  backend         Selects the backend and prints the probe of every candidate.")
	_, _ = fmt.Fprintln(out, "  bench           Runs the op model and codec micro benchmarks.")
	_, _ = fmt.Fprintln(out, "  demo <file>     Writes an example graph file.")
	_, _ = fmt.Fprintln(out, "\nFlags:")
	flag.PrintDefaults()
}

func main() {
	klog.InitFlags(nil)
	flag.Usage = usage
	flag.Parse()
	if *flagNoColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	args := flag.Args()
	if len(args) == 0 {
		klog.Errorf("Missing command. See 'ndgraph -help'.")
		os.Exit(1)
	}
	command, args := args[0], args[1:]
	wantArgs := map[string]int{"inspect": 1, "backend": 0, "bench": 0, "demo": 1}
	n, found := wantArgs[command]
	if !found {
		klog.Errorf("Unknown command %q. See 'ndgraph -help'.", command)
		os.Exit(1)
	}
	if len(args) != n {
		klog.Errorf("Command %q takes %d argument(s), got %d. See 'ndgraph -help'.", command, n, len(args))
		os.Exit(1)
	}

	switch command {
	case "inspect":
		if err := inspect(args[0]); err != nil {
			klog.Errorf("%+v", err)
			os.Exit(1)
		}
	case "backend":
		backend()
	case "bench":
		bench()
	case "demo":
		demo(args[0])
	}
}
