// Command orchestrator-log inspects .sselog diagnostic log files
// produced by the orchestrator: viewing, filtering, exporting, and
// summarizing captured wire frames and scheduler events.
//
// Usage:
//
//	orchestrator-log <command> [arguments]
//
// Commands:
//
//	view     Display events from a log file
//	export   Export events to JSONL or CSV
//	filter   Extract a subset of events into a new log file
//	stats    Show summary statistics for a log file
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/homestead/orchestrator/cmd/orchestrator-log/commands"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "view":
		err = runView(args)
	case "export":
		err = runExport(args)
	case "filter":
		err = runFilter(args)
	case "stats":
		err = runStats(args)
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "orchestrator-log %s: %v\n", cmd, err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `orchestrator-log inspects .sselog diagnostic log files.

Usage:
  orchestrator-log <command> [arguments]

Commands:
  view     Display events from a log file
  export   Export events to JSONL or CSV
  filter   Extract a subset of events into a new log file
  stats    Show summary statistics for a log file

Run 'orchestrator-log <command> -h' for command-specific flags.`)
}

func runView(args []string) error {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	layer := fs.String("layer", "", "Filter by layer: wire, scheduler")
	direction := fs.String("direction", "", "Filter by direction: in, out")
	category := fs.String("category", "", "Filter by category: frame, scheduler_event, error")
	endpoint := fs.String("endpoint", "", "Filter by serial endpoint path")
	deviceID := fs.String("device", "", "Filter by device id")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: orchestrator-log view [flags] <path>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := requirePath(fs)
	if err != nil {
		return err
	}

	filter, err := buildViewFilter(*layer, *direction, *category, *endpoint, *deviceID)
	if err != nil {
		return err
	}

	return commands.RunView(path, filter, os.Stdout)
}

func buildViewFilter(layer, direction, category, endpoint, deviceID string) (commands.ViewFilter, error) {
	filter := commands.ViewFilter{Endpoint: endpoint, DeviceID: deviceID}

	if layer != "" {
		l, err := commands.ParseLayerFlag(layer)
		if err != nil {
			return filter, err
		}
		filter.Layer = &l
	}
	if direction != "" {
		d, err := commands.ParseDirectionFlag(direction)
		if err != nil {
			return filter, err
		}
		filter.Direction = &d
	}
	if category != "" {
		c, err := commands.ParseCategoryFlag(category)
		if err != nil {
			return filter, err
		}
		filter.Category = &c
	}
	return filter, nil
}

func runExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	format := fs.String("format", "jsonl", "Export format: jsonl, csv")
	output := fs.String("output", "", "Output file (defaults to stdout)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: orchestrator-log export [flags] <path>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := requirePath(fs)
	if err != nil {
		return err
	}

	out := os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		return commands.RunExport(path, *format, f)
	}
	return commands.RunExport(path, *format, out)
}

func runFilter(args []string) error {
	fs := flag.NewFlagSet("filter", flag.ExitOnError)
	opts := commands.FilterOptions{}
	fs.StringVar(&opts.Output, "output", "", "Output log file (required)")
	fs.StringVar(&opts.Endpoint, "endpoint", "", "Filter by serial endpoint path")
	fs.StringVar(&opts.DeviceID, "device", "", "Filter by device id")
	fs.StringVar(&opts.TimeStart, "start", "", "Filter events at or after this RFC3339 time")
	fs.StringVar(&opts.TimeEnd, "end", "", "Filter events before this RFC3339 time")
	fs.StringVar(&opts.Layer, "layer", "", "Filter by layer: wire, scheduler")
	fs.StringVar(&opts.Direction, "direction", "", "Filter by direction: in, out")
	fs.StringVar(&opts.Category, "category", "", "Filter by category: frame, scheduler_event, error")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: orchestrator-log filter [flags] <path>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := requirePath(fs)
	if err != nil {
		return err
	}
	if opts.Output == "" {
		return fmt.Errorf("-output is required")
	}

	return commands.RunFilter(path, opts)
}

func runStats(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: orchestrator-log stats <path>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := requirePath(fs)
	if err != nil {
		return err
	}

	return commands.RunStats(path, os.Stdout)
}

func requirePath(fs *flag.FlagSet) (string, error) {
	if fs.NArg() < 1 {
		fs.Usage()
		return "", fmt.Errorf("log file path required")
	}
	return fs.Arg(0), nil
}
