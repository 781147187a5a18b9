// Command wgtunnel-log views and analyzes wgtunnel event log files.
//
// Event logs are written by wgtunnel when its event_log setting (or the
// -event-log flag) names a file.
//
// Usage:
//
//	wgtunnel-log <command> [flags] <file.wglog>
//
// Commands:
//
//	view     View log file in human-readable format
//	export   Export log file to JSON or CSV format
//	filter   Filter log file and write to new file
//	stats    Show statistics about the log file
//
// Examples:
//
//	# Only tunnel state transitions
//	wgtunnel-log view -layer tunnel -category state events.wglog
//
//	# Export to CSV
//	wgtunnel-log export -format csv -o events.csv events.wglog
//
//	# Settings changes made over REST
//	wgtunnel-log view -source rest events.wglog
//
//	# Keep a single session
//	wgtunnel-log filter -session 3f2a9c1e-... -o session.wglog events.wglog
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/bvweerd/wgtunnel/cmd/wgtunnel-log/commands"
)

const usage = `wgtunnel-log - WireGuard tunnel event log analyzer

Usage:
  wgtunnel-log <command> [flags] <file.wglog>

Commands:
  view     View log file in human-readable format
  export   Export log file to JSON or CSV format
  filter   Filter log file and write to new file
  stats    Show statistics about the log file

Use "wgtunnel-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "filter":
		runFilter(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

// addFilterFlags registers the flags shared by view and filter.
func addFilterFlags(fs *flag.FlagSet) *commands.FilterOptions {
	opts := &commands.FilterOptions{}
	fs.StringVar(&opts.SessionID, "session", "", "Filter by session ID")
	fs.StringVar(&opts.TimeStart, "time-start", "", "Filter by start time (RFC3339)")
	fs.StringVar(&opts.TimeEnd, "time-end", "", "Filter by end time (RFC3339)")
	fs.StringVar(&opts.Layer, "layer", "", "Filter by layer (engine, tunnel, config)")
	fs.StringVar(&opts.Category, "category", "", "Filter by category (state, error, config, handshake)")
	fs.StringVar(&opts.Interface, "interface", "", "Filter by tunnel interface")
	fs.StringVar(&opts.Entity, "entity", "", "Keep state changes of one entity (tunnel, peer, route)")
	fs.StringVar(&opts.Source, "source", "", "Keep config changes from one source (rest, console)")
	fs.StringVar(&opts.Operation, "op", "", "Keep errors of one operation (init, connect, disconnect)")
	return opts
}

// pathArg parses args and returns the single log file argument.
func pathArg(fs *flag.FlagSet, args []string) string {
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func runView(args []string) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `wgtunnel-log view - View log file in human-readable format

Usage:
  wgtunnel-log view [flags] <file.wglog>

Flags:
`)
		fs.PrintDefaults()
	}
	opts := addFilterFlags(fs)
	path := pathArg(fs, args)

	filter, err := opts.Build()
	if err != nil {
		fail(err)
	}
	if err := commands.RunView(path, filter, os.Stdout); err != nil {
		fail(err)
	}
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `wgtunnel-log export - Export log file to JSON or CSV format

Usage:
  wgtunnel-log export [flags] <file.wglog>

Flags:
`)
		fs.PrintDefaults()
	}

	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")
	path := pathArg(fs, args)

	if err := commands.RunExport(path, *format, *output); err != nil {
		fail(err)
	}
}

func runFilter(args []string) {
	fs := flag.NewFlagSet("filter", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `wgtunnel-log filter - Filter log file and write to new file

Usage:
  wgtunnel-log filter [flags] <file.wglog>

Flags:
`)
		fs.PrintDefaults()
	}

	output := fs.String("o", "", "Output file (required)")
	opts := addFilterFlags(fs)
	path := pathArg(fs, args)

	if *output == "" {
		fmt.Fprintln(os.Stderr, "Error: output file (-o) required")
		fs.Usage()
		os.Exit(1)
	}

	n, err := commands.RunFilter(path, *output, *opts)
	if err != nil {
		fail(err)
	}
	fmt.Fprintf(os.Stderr, "Wrote %d events to %s\n", n, *output)
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `wgtunnel-log stats - Show statistics about the log file

Usage:
  wgtunnel-log stats <file.wglog>

`)
	}
	path := pathArg(fs, args)

	if err := commands.RunStats(path, os.Stdout); err != nil {
		fail(err)
	}
}
