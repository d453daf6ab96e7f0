// Package patcher rewrites source files with ordered find/replace rules.
package patcher

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Kind selects how a rule matches.
type Kind string

// Supported rule kinds.
const (
	KindLiteral Kind = "literal"
	KindRegex   Kind = "regex"
)

// Patcher errors.
var (
	ErrEmptyFind   = errors.New("rule find pattern is empty")
	ErrUnknownKind = errors.New("unknown rule kind")
)

// Rule is a single rewrite. Regex replacements use regexp.Expand syntax, so
// a literal dollar sign is written as $$.
type Rule struct {
	Name    string
	Kind    Kind
	Find    string
	Replace string
}

// Hit records how many times a rule matched.
type Hit struct {
	Rule  string
	Count int
}

type compiledRule struct {
	re *regexp.Regexp
	Rule
}

// Patcher applies rules in declaration order. Each rule sees the output of
// the previous one.
type Patcher struct {
	rules []compiledRule
}

// New compiles rules. An empty Kind is treated as literal.
func New(rules []Rule) (*Patcher, error) {
	compiled := make([]compiledRule, 0, len(rules))

	for _, rule := range rules {
		if rule.Find == "" {
			return nil, fmt.Errorf("%w: %s", ErrEmptyFind, rule.Name)
		}

		cr := compiledRule{Rule: rule}

		switch rule.Kind {
		case "", KindLiteral:
			cr.Kind = KindLiteral
		case KindRegex:
			re, err := regexp.Compile(rule.Find)
			if err != nil {
				return nil, fmt.Errorf("rule %s: %w", rule.Name, err)
			}

			cr.re = re
		default:
			return nil, fmt.Errorf("%w %q: %s", ErrUnknownKind, rule.Kind, rule.Name)
		}

		compiled = append(compiled, cr)
	}

	return &Patcher{rules: compiled}, nil
}

// Rules returns the rules in application order.
func (p *Patcher) Rules() []Rule {
	rules := make([]Rule, len(p.rules))
	for i, cr := range p.rules {
		rules[i] = cr.Rule
	}

	return rules
}

// Apply runs every rule over src and returns the rewritten text with one Hit
// per rule that matched.
func (p *Patcher) Apply(src string) (string, []Hit) {
	var hits []Hit

	for _, rule := range p.rules {
		var count int

		if rule.re != nil {
			count = len(rule.re.FindAllStringIndex(src, -1))
			if count > 0 {
				src = rule.re.ReplaceAllString(src, rule.Replace)
			}
		} else {
			count = strings.Count(src, rule.Find)
			if count > 0 {
				src = strings.ReplaceAll(src, rule.Find, rule.Replace)
			}
		}

		if count > 0 {
			hits = append(hits, Hit{Rule: rule.Name, Count: count})
		}
	}

	return src, hits
}

// FileResult describes the outcome of patching one file.
type FileResult struct {
	Path    string
	Hits    []Hit
	Changed bool
	Written bool
}

// Matches returns the total number of rule matches in the file.
func (r FileResult) Matches() int {
	total := 0
	for _, hit := range r.Hits {
		total += hit.Count
	}

	return total
}

// PatchFile applies the rules to the file at path. The file is only
// rewritten when write is set and the content changed. The original file
// mode is preserved.
func (p *Patcher) PatchFile(path string, write bool) (FileResult, error) {
	result := FileResult{Path: path}

	info, err := os.Stat(path)
	if err != nil {
		return result, fmt.Errorf("failed to stat file: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return result, fmt.Errorf("failed to read file: %w", err)
	}

	original := string(data)

	patched, hits := p.Apply(original)
	result.Hits = hits
	result.Changed = patched != original

	if !result.Changed || !write {
		return result, nil
	}

	if err := os.WriteFile(path, []byte(patched), info.Mode().Perm()); err != nil {
		return result, fmt.Errorf("failed to write file: %w", err)
	}

	result.Written = true

	return result, nil
}
