package normalizer

import (
	"blockmigrate/internal/models"
)

// Classifier splits legacy block fields into content and properties.
type Classifier struct {
	schema *Schema
}

// NewClassifier creates a classifier backed by schema. A nil schema selects
// DefaultSchema.
func NewClassifier(schema *Schema) *Classifier {
	if schema == nil {
		schema = DefaultSchema()
	}

	return &Classifier{schema: schema}
}

// Schema returns the schema the classifier was built with.
func (c *Classifier) Schema() *Schema {
	return c.schema
}

// Classify converts a legacy record into a normalized block at position.
//
// Fields are merged from stray top-level keys, a leftover content mapping,
// properties and config, each source overriding the previous one. Fields in
// the type's content allow-list become content; everything else becomes a
// property. The input record is not modified.
func (c *Classifier) Classify(raw models.RawBlock, position int) models.Block {
	block := models.NewBlockFor(raw, position)
	blockType := block.Type

	all := mergeFields(raw)

	for _, field := range c.schema.ContentFields(blockType) {
		if value, ok := all[field]; ok {
			block.Content[field] = value
		}
	}

	for key, value := range all {
		if _, isContent := block.Content[key]; isContent {
			continue
		}

		block.Properties[key] = value
	}

	return block
}

// mergeFields flattens every data-carrying part of a legacy record into one
// table. Later sources win: stray < content < properties < config.
func mergeFields(raw models.RawBlock) map[string]any {
	all := map[string]any{}

	for key, value := range raw {
		switch key {
		case models.KeyID, models.KeyType, models.KeyOrder,
			models.KeyConfig, models.KeyProperties, models.KeyContent:
			continue
		}

		all[key] = value
	}

	for _, source := range []string{models.KeyContent, models.KeyProperties, models.KeyConfig} {
		value, exists := raw[source]
		if !exists || value == nil {
			continue
		}

		fields, ok := value.(map[string]any)
		if !ok {
			// Keep a non-object value under its own key rather than drop it.
			all[source] = value
			continue
		}

		for key, value := range fields {
			all[key] = value
		}
	}

	return cloneMap(all)
}

// CatchAll returns the property keys of block that are not in the property
// allow-list, in no particular order.
func (c *Classifier) CatchAll(block models.Block) []string {
	var keys []string

	for key := range block.Properties {
		if !c.schema.IsPropertyField(key) {
			keys = append(keys, key)
		}
	}

	return keys
}

// IsMigrated reports whether every block in a non-empty sequence already
// carries a content object.
func IsMigrated(blocks []any) bool {
	if len(blocks) == 0 {
		return false
	}

	for _, item := range blocks {
		raw, ok := item.(map[string]any)
		if !ok {
			return false
		}

		if _, ok := raw[models.KeyContent].(map[string]any); !ok {
			return false
		}
	}

	return true
}
