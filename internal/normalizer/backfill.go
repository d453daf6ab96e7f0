package normalizer

import (
	"github.com/mohae/deepcopy"

	"blockmigrate/internal/models"
)

// Backfiller applies per-type coercion and defaulting to normalized blocks.
type Backfiller struct {
	rules *RuleSet
}

// NewBackfiller creates a backfiller. A nil rule set selects DefaultRules.
func NewBackfiller(rules *RuleSet) *Backfiller {
	if rules == nil {
		rules = DefaultRules()
	}

	return &Backfiller{rules: rules}
}

// Rules returns the rule set used for dispatch.
func (b *Backfiller) Rules() *RuleSet {
	return b.rules
}

// Backfill returns a copy of block with the rule for its type applied.
// Values are only written where the block leaves them unset, so the result
// of backfilling an already backfilled block is unchanged. On error the
// input block is returned as is.
func (b *Backfiller) Backfill(block models.Block) (models.Block, error) {
	rule := b.rules.Lookup(block.Type)

	out := block
	out.Content = cloneMap(block.Content)
	out.Properties = cloneMap(block.Properties)

	if block.Extra != nil {
		out.Extra = cloneMap(block.Extra)
	}

	if rule.CoerceDimensions {
		if err := coerceDimensions(block.ID, out.Content); err != nil {
			return block, err
		}
	}

	if rule.AliasImageURL {
		if src, ok := out.Content["src"]; ok && !hasKey(out, "imageUrl") {
			out.Content["imageUrl"] = deepcopy.Copy(src)
		}
	}

	if rule.EnsureOptions && !hasKey(out, "options") {
		out.Content["options"] = []any{}
	}

	for _, d := range rule.Defaults {
		if _, inContent := out.Content[d.Key]; inContent {
			continue
		}

		if !isUnset(out.Properties[d.Key]) {
			continue
		}

		value := d.Value

		if d.FromContent != "" {
			if v, ok := out.Content[d.FromContent]; ok && v != nil {
				value = deepcopy.Copy(v)
			}
		}

		out.Properties[d.Key] = value
	}

	return out, nil
}

// hasKey reports whether key is present in either mapping of block.
func hasKey(block models.Block, key string) bool {
	if _, ok := block.Content[key]; ok {
		return true
	}

	_, ok := block.Properties[key]

	return ok
}
