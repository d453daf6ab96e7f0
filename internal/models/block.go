// Package models defines the block and document shapes handled by the migration tools.
package models

import (
	"encoding/json"
	"fmt"
	"math"
)

// Block record keys.
const (
	KeyID         = "id"
	KeyType       = "type"
	KeyOrder      = "order"
	KeyContent    = "content"
	KeyProperties = "properties"
	KeyConfig     = "config"
	KeyBlocks     = "blocks"
	KeySteps      = "steps"
)

// RawBlock is a block record exactly as it was decoded from a template file.
type RawBlock = map[string]any

// Block is a normalized block record. Extra holds top-level keys of an
// already-normalized record that are not part of the normalized shape; they
// round-trip untouched.
//
// ID and Type are string views used for dispatch and reporting. A block read
// from a record also remembers the decoded id and type values, and ToRaw
// writes those back unchanged, so a numeric id stays numeric.
type Block struct {
	Content    map[string]any `json:"content"`
	Properties map[string]any `json:"properties"`
	Extra      map[string]any `json:"-"`
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Order      int            `json:"order"`
	source     map[string]any
}

// NewBlock creates a block with empty content and properties.
func NewBlock(id, blockType string, order int) Block {
	return Block{
		ID:         id,
		Type:       blockType,
		Order:      order,
		Content:    map[string]any{},
		Properties: map[string]any{},
	}
}

// NewBlockFor creates an empty block carrying the id and type of raw at
// position. The decoded id and type values are kept verbatim for ToRaw.
func NewBlockFor(raw RawBlock, position int) Block {
	b := NewBlock(StringValue(raw[KeyID]), StringValue(raw[KeyType]), position)

	for _, key := range []string{KeyID, KeyType} {
		value, ok := raw[key]
		if !ok {
			continue
		}

		if b.source == nil {
			b.source = map[string]any{}
		}

		b.source[key] = value
	}

	return b
}

// BlockFromRaw reads an already-normalized record. Missing content or
// properties become empty mappings; a missing or non-numeric order falls
// back to position. A content or properties value that is not an object is
// kept as a property under its own key.
func BlockFromRaw(raw RawBlock, position int) Block {
	b := NewBlockFor(raw, position)

	if order, ok := IntValue(raw[KeyOrder]); ok {
		b.Order = order
	}

	if content, ok := raw[KeyContent].(map[string]any); ok {
		b.Content = content
	}

	if props, ok := raw[KeyProperties].(map[string]any); ok {
		b.Properties = props
	}

	for _, key := range []string{KeyContent, KeyProperties} {
		value := raw[key]
		if _, isMap := value.(map[string]any); value == nil || isMap {
			continue
		}

		if _, taken := b.Properties[key]; !taken {
			b.Properties[key] = value
		}
	}

	for key, value := range raw {
		switch key {
		case KeyID, KeyType, KeyOrder, KeyContent, KeyProperties:
			continue
		}

		if b.Extra == nil {
			b.Extra = map[string]any{}
		}

		b.Extra[key] = value
	}

	return b
}

// ToRaw converts the block back into a generic record for serialization.
func (b Block) ToRaw() RawBlock {
	raw := make(RawBlock, len(b.Extra)+5)
	for key, value := range b.Extra {
		raw[key] = value
	}

	content := b.Content
	if content == nil {
		content = map[string]any{}
	}

	props := b.Properties
	if props == nil {
		props = map[string]any{}
	}

	raw[KeyID] = b.ID
	raw[KeyType] = b.Type
	raw[KeyOrder] = b.Order
	raw[KeyContent] = content
	raw[KeyProperties] = props

	for key, value := range b.source {
		raw[key] = value
	}

	return raw
}

// StringValue returns v as a string. Nil becomes the empty string and other
// scalars are formatted with their default representation.
func StringValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// IntValue reports v as an int when it holds an integral JSON number.
func IntValue(v any) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		if val != math.Trunc(val) {
			return 0, false
		}

		return int(val), true
	case json.Number:
		n, err := val.Int64()
		if err != nil {
			return 0, false
		}

		return int(n), true
	default:
		return 0, false
	}
}
