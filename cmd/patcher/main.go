// Package main provides the source selector patching command-line tool.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"blockmigrate/internal/config"
	"blockmigrate/internal/patcher"
	"blockmigrate/internal/report"
	"blockmigrate/internal/storage"
)

const defaultConfigPath = "configs/migrate.yaml"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("patcher", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configFile := fs.String("config", "", "Path to YAML configuration file")
	targetPath := fs.String("path", "", "File or glob to patch (default: configured patch targets)")
	write := fs.Bool("write", false, "Write changes to file (default: false, dry-run)")

	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: ./bin/patcher [OPTIONS]")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Options:")
		fs.PrintDefaults()
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Examples:")
		fmt.Fprintln(stderr, "  ./bin/patcher")
		fmt.Fprintln(stderr, "  ./bin/patcher -path 'tests/e2e/**/*.spec.ts' -write")
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}

		return 2
	}

	cfg := config.Default()

	configPath := *configFile
	if configPath == "" {
		if _, statErr := os.Stat(defaultConfigPath); statErr == nil {
			configPath = defaultConfigPath
		}
	}

	if configPath != "" {
		fmt.Fprintf(stdout, "⚙️  Loading configuration from: %s\n", configPath)

		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			fmt.Fprintf(stderr, "❌ Failed to load config: %v\n", err)
			return 1
		}

		cfg = loaded
	}

	p, err := patcher.New(rulesFromConfig(cfg.Patch.Rules))
	if err != nil {
		fmt.Fprintf(stderr, "❌ Invalid patch rules: %v\n", err)
		return 2
	}

	patterns := cfg.Patch.Targets
	if *targetPath != "" {
		patterns = []string{*targetPath}
	}

	files, err := storage.Discover(patterns)
	if err != nil {
		fmt.Fprintf(stderr, "❌ %v\n", err)
		return 2
	}

	fmt.Fprintf(stdout, "📂 Scanning %d file(s) with %d rule(s)\n", len(files), len(p.Rules()))

	if *write {
		fmt.Fprintln(stdout, "✍️  Write mode ENABLED (files will be modified)")
	} else {
		fmt.Fprintln(stdout, "👀 Dry-run mode (no changes will be written)")
	}

	fmt.Fprintln(stdout)

	changed := 0
	failed := 0
	table := report.NewTable("File", "Rule", "Matches")

	for _, file := range files {
		result, err := p.PatchFile(file, *write)
		if err != nil {
			fmt.Fprintf(stdout, "❌ Failed to process %s: %v\n", file, err)

			failed++

			continue
		}

		if !result.Changed {
			continue
		}

		changed++

		if result.Written {
			fmt.Fprintf(stdout, "✅ Patched: %s\n", file)
		} else {
			fmt.Fprintf(stdout, "📝 Would patch: %s\n", file)
		}

		for _, hit := range result.Hits {
			table.AddRow(file, hit.Rule, strconv.Itoa(hit.Count))
		}
	}

	if table.Len() > 0 {
		fmt.Fprintln(stdout)

		if err := table.Render(stdout); err != nil {
			fmt.Fprintf(stderr, "❌ Failed to write report: %v\n", err)
			return 1
		}
	}

	fmt.Fprintln(stdout, "\n----------------------------------------------------------------")
	fmt.Fprintf(stdout, "📈 Summary:\n")
	fmt.Fprintf(stdout, "  Scanned: %d files\n", len(files))
	fmt.Fprintf(stdout, "  Changed: %d files\n", changed)
	fmt.Fprintf(stdout, "  Errors:  %d\n", failed)

	if failed > 0 {
		return 1
	}

	if changed > 0 && !*write {
		fmt.Fprintln(stdout, "\n💡 Run with -write to apply changes.")
		return 1
	}

	return 0
}

// rulesFromConfig converts configured rules. An empty list selects the
// built-in editor selector rules.
func rulesFromConfig(cfgRules []config.PatchRuleConfig) []patcher.Rule {
	if len(cfgRules) == 0 {
		return patcher.DefaultRules()
	}

	rules := make([]patcher.Rule, 0, len(cfgRules))
	for _, r := range cfgRules {
		rules = append(rules, patcher.Rule{
			Name:    r.Name,
			Kind:    patcher.Kind(r.Kind),
			Find:    r.Find,
			Replace: r.Replace,
		})
	}

	return rules
}
