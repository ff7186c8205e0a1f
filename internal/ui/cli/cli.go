package cli

import (
	"flag"
	"io"
	"strings"
)

const versionString = "1.0.0"

type cliOptions struct {
	configPath string
	clock      string
	mergeEdges bool
	lenient    bool
	strictIDs  bool
	maxCycles  int
	sample     string
	format     string
	hex        bool
	include    string
	exclude    string
	outPath    string
	watch      bool
	ui         bool
	verbose    bool
	version    bool
	args       []string

	// set records which flags appeared on the command line.
	set map[string]bool
}

func parseOptions(args []string, stderr io.Writer) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("vcdscan", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.configPath, "config", "", "Path to config file (default ./vcdscan.toml when present)")
	fs.StringVar(&opts.clock, "clock", "", "Reference clock by hierarchical path or identifier code")
	fs.BoolVar(&opts.mergeEdges, "merge-edges", false, "Include falling-edge cycles in per-signal output")
	fs.BoolVar(&opts.lenient, "lenient", false, "Skip malformed value-change records instead of failing")
	fs.BoolVar(&opts.strictIDs, "strict-ids", false, "Reject identifier codes shared between scopes")
	fs.IntVar(&opts.maxCycles, "max-cycles", 0, "Stop after this many cycles (0 = unlimited)")
	fs.StringVar(&opts.sample, "sample", "", "Snapshot timing: settled or immediate")
	fs.StringVar(&opts.format, "format", "", "Report format: text, tsv, or json")
	fs.BoolVar(&opts.hex, "hex", false, "Render bit vectors in hexadecimal")
	fs.StringVar(&opts.include, "include", "", "Comma-separated signal path globs to keep")
	fs.StringVar(&opts.exclude, "exclude", "", "Comma-separated signal path globs to drop")
	fs.StringVar(&opts.outPath, "out", "", "Write the report to this file instead of stdout")
	fs.BoolVar(&opts.watch, "watch", false, "Reload and re-report whenever the dump changes")
	fs.BoolVar(&opts.ui, "ui", false, "Open the interactive cycle inspector")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}

	opts.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })
	opts.args = fs.Args()
	return opts, nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
