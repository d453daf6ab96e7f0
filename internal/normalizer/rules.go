package normalizer

import (
	"sort"
	"strings"
)

// Default is a property value applied when a block leaves the key unset.
// FromContent names a content field whose value replaces Value when that
// field is present and non-null.
type Default struct {
	Value       any
	Key         string
	FromContent string
}

// Rule describes the backfill applied to one family of block types.
type Rule struct {
	Name             string
	Defaults         []Default
	CoerceDimensions bool
	AliasImageURL    bool
	EnsureOptions    bool
}

type prefixRule struct {
	prefix string
	rule   Rule
}

// RuleSet maps block type tags to backfill rules. Exact tags are checked
// first, then prefixes (longest first), then the fallback.
type RuleSet struct {
	exact    map[string]Rule
	fallback Rule
	prefixes []prefixRule
}

// NewRuleSet creates an empty rule set that resolves every type to fallback.
func NewRuleSet(fallback Rule) *RuleSet {
	return &RuleSet{
		exact:    map[string]Rule{},
		fallback: fallback,
	}
}

// Exact registers rule for blocks whose type equals tag.
func (rs *RuleSet) Exact(tag string, rule Rule) *RuleSet {
	rs.exact[tag] = rule
	return rs
}

// Prefix registers rule for blocks whose type starts with prefix.
func (rs *RuleSet) Prefix(prefix string, rule Rule) *RuleSet {
	rs.prefixes = append(rs.prefixes, prefixRule{prefix: prefix, rule: rule})
	sort.SliceStable(rs.prefixes, func(i, j int) bool {
		return len(rs.prefixes[i].prefix) > len(rs.prefixes[j].prefix)
	})

	return rs
}

// Lookup resolves the rule for blockType. It never fails.
func (rs *RuleSet) Lookup(blockType string) Rule {
	if rule, ok := rs.exact[blockType]; ok {
		return rule
	}

	for _, p := range rs.prefixes {
		if strings.HasPrefix(blockType, p.prefix) {
			return p.rule
		}
	}

	return rs.fallback
}

// Matches reports whether blockType resolves to a rule other than the fallback.
func (rs *RuleSet) Matches(blockType string) bool {
	if _, ok := rs.exact[blockType]; ok {
		return true
	}

	for _, p := range rs.prefixes {
		if strings.HasPrefix(blockType, p.prefix) {
			return true
		}
	}

	return false
}

var introAnimation = []Default{
	{Key: "padding", Value: 16},
	{Key: "animationType", Value: "fade"},
	{Key: "animationDuration", Value: 300},
}

func withDefaults(base []Default, extra ...Default) []Default {
	out := make([]Default, 0, len(base)+len(extra))
	out = append(out, base...)

	return append(out, extra...)
}

// DefaultRules returns the rule set for the quiz editor block library.
func DefaultRules() *RuleSet {
	return NewRuleSet(Rule{Name: "default"}).
		Exact("intro-logo", Rule{
			Name:             "intro-logo",
			CoerceDimensions: true,
			AliasImageURL:    true,
			Defaults:         withDefaults(introAnimation),
		}).
		Exact("intro-title", Rule{
			Name: "intro-title",
			Defaults: withDefaults(introAnimation,
				Default{Key: "textAlign", Value: "center"},
				Default{Key: "fontSize", Value: "28px"},
				Default{Key: "fontWeight", Value: "700"},
			),
		}).
		Exact("intro-image", Rule{
			Name:             "intro-image",
			CoerceDimensions: true,
			AliasImageURL:    true,
			Defaults: []Default{
				{Key: "objectFit", Value: "contain"},
				{Key: "maxWidth", Value: 300, FromContent: "width"},
				{Key: "borderRadius", Value: "8px"},
			},
		}).
		Exact("intro-description", Rule{
			Name:     "intro-description",
			Defaults: withDefaults(introAnimation, Default{Key: "textAlign", Value: "center"}),
		}).
		Exact("intro-form", Rule{
			Name:     "intro-form",
			Defaults: withDefaults(introAnimation),
		}).
		Exact("options-grid", Rule{
			Name:          "options-grid",
			EnsureOptions: true,
			Defaults: []Default{
				{Key: "columns", Value: 2},
				{Key: "gap", Value: 16},
			},
		}).
		Prefix("question-", Rule{
			Name:     "question",
			Defaults: []Default{{Key: "padding", Value: 16}},
		}).
		Prefix("transition-", Rule{Name: "transition", CoerceDimensions: true}).
		Prefix("result-", Rule{Name: "result", CoerceDimensions: true}).
		Prefix("offer-", Rule{Name: "offer", CoerceDimensions: true})
}
