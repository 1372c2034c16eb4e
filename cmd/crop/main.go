// Command crop evaluates a crop script and removes every entity on the
// discarded side of its boundary.
//
// Usage:
//
//	crop [-config file] [-keep inside|outside] [-kernel sdfx|winding] [-dry-run] [-json] script.lisp
//
// The side comes from -keep when given, then from the script's (keep ...)
// form, then from the config file.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/chazu/cropper/pkg/config"
	"github.com/chazu/cropper/pkg/crop"
)

// Version indicates the current build version.
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// options holds the parsed command line.
type options struct {
	configPath string
	keep       string
	kernel     string
	dryRun     bool
	json       bool
	script     string
	set        map[string]bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("crop", flag.ContinueOnError)
	fs.SetOutput(stderr)
	o := &options{set: make(map[string]bool)}
	fs.StringVar(&o.configPath, "config", "", "YAML config file")
	fs.StringVar(&o.keep, "keep", "", "Side to keep: inside or outside")
	fs.StringVar(&o.kernel, "kernel", "", "Region kernel: sdfx or winding")
	fs.BoolVar(&o.dryRun, "dry-run", false, "Report decisions without deleting")
	fs.BoolVar(&o.json, "json", false, "Print the report as JSON")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "crop %s\n\nUsage: crop [flags] script.lisp\n\n", Version)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return nil, errors.New("expected exactly one script")
	}
	o.script = fs.Arg(0)
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })
	return o, nil
}

// loadConfig reads the config file, if any, and applies flag overrides.
func loadConfig(o *options) (config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return cfg, err
		}
	}
	if o.set["kernel"] {
		cfg.Kernel = o.kernel
	}
	if o.set["keep"] {
		side, err := crop.ParseSide(o.keep)
		if err != nil {
			return cfg, err
		}
		cfg.Keep = side
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, "crop:", err)
		return 2
	}

	cfg, err := loadConfig(o)
	if err != nil {
		fmt.Fprintln(stderr, "crop:", err)
		return 2
	}
	level, _ := config.ParseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	source, err := os.ReadFile(o.script)
	if err != nil {
		logger.Error("read script", "path", o.script, "error", err)
		return 1
	}

	scene, evalErrs, err := cfg.NewEngine().Evaluate(string(source))
	if err != nil {
		logger.Error("evaluate script", "path", o.script, "error", err)
		return 1
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			fmt.Fprintf(stderr, "%s: %s\n", o.script, e.Error())
		}
		return 1
	}
	if scene.Boundary == nil {
		logger.Error("script defines no boundary", "path", o.script)
		return 1
	}

	side := cfg.Keep
	if scene.SideSet && !o.set["keep"] {
		side = scene.Side
	}

	k, err := cfg.NewKernel()
	if err != nil {
		logger.Error("build kernel", "error", err)
		return 2
	}
	cropper := crop.New(k,
		crop.WithLogger(logger),
		crop.WithClassifier(cfg.NewClassifier()),
	)

	d := scene.Drawing
	var report *crop.Report
	if o.dryRun {
		report, err = cropper.Plan(ctx, scene.Boundary, side, d.Entities())
	} else {
		tx, txErr := d.Begin()
		if txErr != nil {
			logger.Error("begin transaction", "error", txErr)
			return 1
		}
		report, err = cropper.CropAll(ctx, scene.Boundary, side, tx, d.Entities())
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Warn("rollback", "tx", tx.ID(), "error", rbErr)
			}
		} else {
			n, cErr := tx.Commit()
			if cErr != nil {
				logger.Error("commit", "tx", tx.ID(), "error", cErr)
				return 1
			}
			logger.Debug("committed", "tx", tx.ID(), "deleted", n, "remaining", d.Len())
		}
	}
	if err != nil {
		logger.Error("crop", "path", o.script, "error", err)
		return 1
	}

	if o.json {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			logger.Error("encode report", "error", err)
			return 1
		}
	} else {
		printReport(stdout, report)
	}
	if report.Failed() > 0 {
		return 3
	}
	return 0
}

// printReport writes one line per entity followed by a summary.
func printReport(w io.Writer, r *crop.Report) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, o := range r.Outcomes {
		if o.Failed() {
			fmt.Fprintf(tw, "%s\t%s\t%s\terror: %s\n", o.Handle, o.Kind, o.State, o.Error)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", o.Handle, o.Kind, *o.Anchor, o.Containment, o.Action)
	}
	tw.Flush()

	mode := ""
	if r.DryRun {
		mode = " (dry run)"
	}
	fmt.Fprintf(w, "keep %s via %s%s: %d kept, %d discarded, %d failed\n",
		r.Side, r.Kernel, mode, r.Kept(), r.Discarded(), r.Failed())
}
