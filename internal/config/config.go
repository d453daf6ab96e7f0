// Package config provides configuration management for the migration tools.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// Configuration validation errors.
var (
	ErrNoTargets           = errors.New("at least one migration target is required")
	ErrTargetMissingGlob   = errors.New("target glob is required")
	ErrInvalidShape        = errors.New("target shape must be one of: auto, step, template")
	ErrInvalidErrorPolicy  = errors.New("migration.on_block_error must be 'skip' or 'abort'")
	ErrInvalidIndent       = errors.New("output.indent must contain only spaces or tabs")
	ErrMissingBackupSuffix = errors.New("output.backup_suffix is required")
	ErrRuleMissingName     = errors.New("patch rule name is required")
	ErrRuleMissingFind     = errors.New("patch rule find is required")
	ErrInvalidRuleKind     = errors.New("patch rule kind must be 'literal' or 'regex'")
	ErrInvalidLogLevel     = errors.New("logging.level must be one of: debug, info, warn, error")
)

// Config represents the complete migration configuration.
type Config struct {
	Migration MigrationConfig `yaml:"migration"`
	Output    OutputConfig    `yaml:"output"`
	Logging   LoggingConfig   `yaml:"logging"`
	Patch     PatchConfig     `yaml:"patch"`
}

// MigrationConfig lists the template files to migrate.
type MigrationConfig struct {
	OnBlockError string         `yaml:"on_block_error"`
	Targets      []TargetConfig `yaml:"targets"`
}

// TargetConfig is a set of files sharing one document shape.
type TargetConfig struct {
	Name  string `yaml:"name"`
	Glob  string `yaml:"glob"`
	Shape string `yaml:"shape"`
}

// OutputConfig defines how migrated documents are written.
type OutputConfig struct {
	Indent       string `yaml:"indent"`
	BackupSuffix string `yaml:"backup_suffix"`
	SkipBackup   bool   `yaml:"skip_backup"`
}

// PatchConfig defines the source patching run.
type PatchConfig struct {
	Targets []string          `yaml:"targets"`
	Rules   []PatchRuleConfig `yaml:"rules"`
}

// PatchRuleConfig is a single find/replace rule. An empty rule list selects
// the built-in editor selector rules.
type PatchRuleConfig struct {
	Name    string `yaml:"name"`
	Kind    string `yaml:"kind"`
	Find    string `yaml:"find"`
	Replace string `yaml:"replace"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Migration: MigrationConfig{
			OnBlockError: "skip",
			Targets: []TargetConfig{
				{Name: "steps", Glob: "public/templates/blocks/step-*.json", Shape: "step"},
				{Name: "template", Glob: "public/templates/quiz21-complete.json", Shape: "template"},
			},
		},
		Output: OutputConfig{
			Indent:       "  ",
			BackupSuffix: ".bak",
		},
		Patch: PatchConfig{
			Targets: []string{
				"tests/e2e/**/*.spec.ts",
				"src/components/editor/quiz/QuizFunnelEditorWYSIWYG.tsx",
			},
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// LoadConfig loads configuration from YAML file. Fields the file leaves
// empty are filled from Default.
func LoadConfig(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := mergo.Merge(&cfg, Default()); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// SaveConfig saves configuration to YAML file.
func (c *Config) SaveConfig(filepath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if len(c.Migration.Targets) == 0 {
		return ErrNoTargets
	}

	for i, target := range c.Migration.Targets {
		if target.Glob == "" {
			return fmt.Errorf("%w: targets[%d]", ErrTargetMissingGlob, i)
		}

		switch target.Shape {
		case "", "auto", "step", "template":
		default:
			return fmt.Errorf("%w: targets[%d] has %q", ErrInvalidShape, i, target.Shape)
		}
	}

	switch c.Migration.OnBlockError {
	case "", "skip", "abort":
	default:
		return ErrInvalidErrorPolicy
	}

	for _, r := range c.Output.Indent {
		if r != ' ' && r != '\t' {
			return ErrInvalidIndent
		}
	}

	if !c.Output.SkipBackup && c.Output.BackupSuffix == "" {
		return ErrMissingBackupSuffix
	}

	for i, rule := range c.Patch.Rules {
		if rule.Name == "" {
			return fmt.Errorf("%w: rules[%d]", ErrRuleMissingName, i)
		}

		if rule.Find == "" {
			return fmt.Errorf("%w: rules[%d] %s", ErrRuleMissingFind, i, rule.Name)
		}

		switch rule.Kind {
		case "", "literal":
		case "regex":
			if _, err := regexp.Compile(rule.Find); err != nil {
				return fmt.Errorf("patch.rules[%d] %s is invalid regex: %w", i, rule.Name, err)
			}
		default:
			return fmt.Errorf("%w: rules[%d] %s", ErrInvalidRuleKind, i, rule.Name)
		}
	}

	// Validate logging config
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	return nil
}

// GetTarget returns the target with the given name.
func (c *Config) GetTarget(name string) (TargetConfig, bool) {
	for _, target := range c.Migration.Targets {
		if target.Name == name {
			return target, true
		}
	}

	return TargetConfig{}, false
}

// GetGlobs returns the glob of every migration target.
func (c *Config) GetGlobs() []string {
	globs := make([]string, 0, len(c.Migration.Targets))
	for _, target := range c.Migration.Targets {
		globs = append(globs, target.Glob)
	}

	return globs
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Targets: %d, OnBlockError: %s, PatchRules: %d}",
		len(c.Migration.Targets),
		c.Migration.OnBlockError,
		len(c.Patch.Rules),
	)
}
