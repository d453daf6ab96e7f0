package models

import "sort"

// Shape identifies which of the supported document layouts a file uses.
type Shape string

// Supported document shapes.
const (
	ShapeUnknown  Shape = ""
	ShapeStep     Shape = "step"
	ShapeTemplate Shape = "template"
)

// Document is a decoded template or step file.
type Document = map[string]any

// DetectShape reports ShapeTemplate when doc carries a steps field and
// ShapeStep otherwise.
func DetectShape(doc Document) Shape {
	if _, ok := doc[KeySteps]; ok {
		return ShapeTemplate
	}

	return ShapeStep
}

// ParseShape converts a configuration value into a Shape. "auto" and the
// empty string map to ShapeUnknown.
func ParseShape(s string) (Shape, bool) {
	switch s {
	case "", "auto":
		return ShapeUnknown, true
	case string(ShapeStep):
		return ShapeStep, true
	case string(ShapeTemplate):
		return ShapeTemplate, true
	default:
		return ShapeUnknown, false
	}
}

// StepKeys returns the step keys of a template in sorted order.
func StepKeys(steps map[string]any) []string {
	keys := make([]string, 0, len(steps))
	for key := range steps {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

// BlockSequence returns the blocks array of a step. The second result is
// false when the field is missing or is not an array.
func BlockSequence(step map[string]any) ([]any, bool) {
	raw, ok := step[KeyBlocks]
	if !ok {
		return nil, false
	}

	blocks, ok := raw.([]any)

	return blocks, ok
}
