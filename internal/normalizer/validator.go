package normalizer

import (
	"blockmigrate/internal/models"
)

// Validator checks that a decoded document can be walked by the processor.
type Validator struct{}

// NewValidator creates a new validator instance.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks the top-level shape of data. Missing blocks arrays are not
// validation errors; the processor reports them per step.
func (v *Validator) Validate(data any) error {
	doc, ok := data.(map[string]any)
	if !ok || doc == nil {
		return ErrInvalidDocument
	}

	if models.DetectShape(doc) == models.ShapeTemplate {
		if _, ok := doc[models.KeySteps].(map[string]any); !ok {
			return ErrMissingStepsField
		}
	}

	return nil
}
