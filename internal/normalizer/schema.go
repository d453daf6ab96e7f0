// Package normalizer migrates legacy quiz-funnel blocks into the content +
// properties shape and backfills the per-type defaults the editor expects.
package normalizer

// Schema decides which fields of a block are semantic content and which are
// presentational properties.
type Schema struct {
	content     map[string][]string
	propertySet map[string]struct{}
}

// defaultContentFields lists the semantic fields of every known block type.
var defaultContentFields = map[string][]string{
	"question-progress":     {"currentQuestion", "totalQuestions", "questionNumber", "progressPercent"},
	"question-title":        {"text", "questionText", "questionNumber"},
	"question-text":         {"text", "questionText"},
	"question-number":       {"questionNumber", "currentQuestion", "totalQuestions"},
	"question-instructions": {"text", "instructionText"},
	"options-grid":          {"options", "minSelections", "maxSelections"},
	"question-navigation":   {"backButtonText", "nextButtonText", "showBackButton", "showNextButton"},
	"transition-hero":       {"title", "subtitle", "text"},
	"transition-title":      {"title", "text"},
	"transition-text":       {"text"},
	"CTAButton":             {"text", "buttonText", "label"},
	"cta-inline":            {"text", "buttonText", "label", "url"},
}

// defaultPropertyFields lists the visual and behavioural keys shared by all types.
var defaultPropertyFields = []string{
	"padding", "margin", "animationType", "animationDuration",
	"textAlign", "fontSize", "fontWeight", "color", "backgroundColor",
	"borderRadius", "showProgress", "progressColor", "layout",
	"multiSelect", "required", "autoAdvance", "gridColumns",
	"imageSize", "showImages", "showShadows",
}

// NewSchema builds a schema from a content table and a property allow-list.
// The inputs are copied.
func NewSchema(content map[string][]string, properties []string) *Schema {
	s := &Schema{
		content:     make(map[string][]string, len(content)),
		propertySet: make(map[string]struct{}, len(properties)),
	}

	for blockType, fields := range content {
		s.content[blockType] = append([]string(nil), fields...)
	}

	for _, field := range properties {
		s.propertySet[field] = struct{}{}
	}

	return s
}

// DefaultSchema returns the schema used by the quiz editor.
func DefaultSchema() *Schema {
	return NewSchema(defaultContentFields, defaultPropertyFields)
}

// ContentFields returns the ordered content fields for blockType. Unknown
// types have none.
func (s *Schema) ContentFields(blockType string) []string {
	return s.content[blockType]
}

// IsContentField reports whether field is semantic for blockType.
func (s *Schema) IsContentField(blockType, field string) bool {
	for _, f := range s.content[blockType] {
		if f == field {
			return true
		}
	}

	return false
}

// IsPropertyField reports whether field is a known property.
func (s *Schema) IsPropertyField(field string) bool {
	_, ok := s.propertySet[field]
	return ok
}

// Knows reports whether the schema has a content table for blockType.
func (s *Schema) Knows(blockType string) bool {
	_, ok := s.content[blockType]
	return ok
}
