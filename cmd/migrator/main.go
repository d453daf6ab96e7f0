// Package main provides the block migration command-line tool.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"

	"blockmigrate/internal/config"
	"blockmigrate/internal/logger"
	"blockmigrate/internal/migration"
	"blockmigrate/internal/normalizer"
	"blockmigrate/internal/report"
	"blockmigrate/internal/storage"
)

const defaultConfigPath = "configs/migrate.yaml"

var errUsage = errors.New("usage error")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)

	stop()
	os.Exit(code)
}

type options struct {
	configFile  string
	targetPath  string
	target      string
	shape       string
	onError     string
	logLevel    string
	concurrency int
	write       bool
	check       bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options

	fs := flag.NewFlagSet("migrator", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.configFile, "config", "", "Path to YAML configuration file")
	fs.StringVar(&opts.targetPath, "path", "", "File or glob to migrate (default: configured targets)")
	fs.StringVar(&opts.target, "target", "", "Migrate only the configured target with this name")
	fs.StringVar(&opts.shape, "shape", "auto", "Document shape for -path: auto, step or template")
	fs.BoolVar(&opts.write, "write", false, "Write changes to file (default: false, dry-run)")
	fs.BoolVar(&opts.check, "check", false, "Validate migrated documents before writing")
	fs.StringVar(&opts.onError, "on-error", "", "Block error policy: skip or abort (overrides config)")
	fs.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides config)")
	fs.IntVar(&opts.concurrency, "concurrency", 4, "Number of files migrated in parallel")

	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: ./bin/migrator [OPTIONS]")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Options:")
		fs.PrintDefaults()
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Examples:")
		fmt.Fprintln(stderr, "  ./bin/migrator")
		fmt.Fprintln(stderr, "  ./bin/migrator -path 'public/templates/blocks/*.json' -check")
		fmt.Fprintln(stderr, "  ./bin/migrator -path public/templates/quiz21-complete.json -shape template -write")
		fmt.Fprintln(stderr, "  ./bin/migrator -target steps -check")
	}

	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	if fs.NArg() > 0 {
		fs.Usage()
		return opts, fmt.Errorf("%w: unexpected arguments %v", errUsage, fs.Args())
	}

	if opts.targetPath != "" && opts.target != "" {
		fmt.Fprintln(stderr, "❌ -path and -target cannot be combined")
		return opts, fmt.Errorf("%w: -path and -target cannot be combined", errUsage)
	}

	return opts, nil
}

func loadConfig(path string, stdout io.Writer) (*config.Config, error) {
	explicit := path != ""

	if !explicit {
		if _, err := os.Stat(defaultConfigPath); err != nil {
			return config.Default(), nil
		}

		path = defaultConfigPath
	}

	fmt.Fprintf(stdout, "⚙️  Loading configuration from: %s\n", path)

	cfg, err := config.LoadConfig(path)
	if err != nil {
		if explicit {
			return nil, err
		}

		fmt.Fprintf(stdout, "⚠️  Failed to load config: %v (proceeding with defaults)\n", err)

		return config.Default(), nil
	}

	return cfg, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}

	if err != nil {
		return 2
	}

	cfg, err := loadConfig(opts.configFile, stdout)
	if err != nil {
		fmt.Fprintf(stderr, "❌ Failed to load config: %v\n", err)
		return 1
	}

	if opts.onError != "" {
		cfg.Migration.OnBlockError = opts.onError
	}

	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}

	policy, err := normalizer.ParseErrorPolicy(cfg.Migration.OnBlockError)
	if err != nil {
		fmt.Fprintf(stderr, "❌ %v\n", err)
		return 2
	}

	log := logger.NewLoggerWithWriter(cfg.Logging.Level, stderr)

	jobs, err := planJobs(opts, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "❌ %v\n", err)
		return 2
	}

	switch {
	case opts.targetPath != "":
		fmt.Fprintf(stdout, "📂 Scanning path: %s\n", opts.targetPath)
	case opts.target != "":
		fmt.Fprintf(stdout, "📂 Scanning target: %s\n", opts.target)
	default:
		fmt.Fprintf(stdout, "📂 Scanning %d configured target(s)\n", len(cfg.Migration.Targets))

		for _, glob := range cfg.GetGlobs() {
			fmt.Fprintf(stdout, "   • %s\n", glob)
		}
	}

	if opts.write {
		fmt.Fprintln(stdout, "✍️  Write mode ENABLED (files will be modified)")
	} else {
		fmt.Fprintln(stdout, "👀 Dry-run mode (no changes will be written)")
	}

	fmt.Fprintln(stdout)

	if len(jobs) == 0 {
		fmt.Fprintln(stdout, "🤷 No files matched.")
		return 0
	}

	store := storage.NewStore(storage.Options{
		Indent:       cfg.Output.Indent,
		BackupSuffix: cfg.Output.BackupSuffix,
		SkipBackup:   cfg.Output.SkipBackup,
	}, log)

	processor := normalizer.NewProcessor(normalizer.WithErrorPolicy(policy))
	runner := migration.NewRunner(store, processor, log, migration.Options{
		Concurrency: opts.concurrency,
		Write:       opts.write,
		Check:       opts.check,
	})

	results := runner.Run(ctx, jobs)

	table := report.NewTable("", "File", "Shape", "Blocks", "Block errors", "Skipped steps")
	for _, res := range results {
		table.AddRow(
			statusIcon(res, opts.write),
			res.Path,
			string(res.Shape),
			strconv.Itoa(res.Blocks),
			strconv.Itoa(res.BlockErrors),
			strconv.Itoa(res.Skipped),
		)
	}

	if err := table.Render(stdout); err != nil {
		fmt.Fprintf(stderr, "❌ Failed to write report: %v\n", err)
		return 1
	}

	for _, res := range results {
		if res.Err == nil {
			continue
		}

		fmt.Fprintf(stdout, "\n❌ %s: %v\n", res.Path, res.Err)

		if res.Validation != nil {
			res.Validation.PrintErrors(stdout)
			res.Validation.PrintWarnings(stdout)
		}
	}

	summary := migration.Summarize(results)

	fmt.Fprintln(stdout, "\n----------------------------------------------------------------")
	fmt.Fprintf(stdout, "📈 Summary:\n")
	fmt.Fprintf(stdout, "  Scanned: %d files\n", summary.Files)
	fmt.Fprintf(stdout, "  Changed: %d files\n", summary.Changed)
	fmt.Fprintf(stdout, "  Written: %d files\n", summary.Written)
	fmt.Fprintf(stdout, "  Blocks:  %d (%d with errors)\n", summary.Blocks, summary.BlockErrors)
	fmt.Fprintf(stdout, "  Errors:  %d\n", summary.Failed)

	if summary.Failed > 0 {
		return 1
	}

	if summary.Changed > 0 && !opts.write {
		fmt.Fprintln(stdout, "\n💡 Run with -write to apply changes.")
		return 1
	}

	return 0
}

func planJobs(opts options, cfg *config.Config) ([]migration.Job, error) {
	switch {
	case opts.targetPath != "":
		return migration.Plan([]config.TargetConfig{
			{Name: "cli", Glob: opts.targetPath, Shape: opts.shape},
		})
	case opts.target != "":
		target, ok := cfg.GetTarget(opts.target)
		if !ok {
			return nil, fmt.Errorf("%w: no configured target named %q", errUsage, opts.target)
		}

		return migration.Plan([]config.TargetConfig{target})
	default:
		return migration.Plan(cfg.Migration.Targets)
	}
}

func statusIcon(res migration.FileResult, write bool) string {
	switch {
	case res.Err != nil:
		return "❌"
	case res.Written:
		return "✅"
	case res.Changed && !write:
		return "📝"
	default:
		return "➖"
	}
}
