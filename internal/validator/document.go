// Package validator checks migrated documents against the normalized block shape.
package validator

import (
	"fmt"
	"io"
	"sort"

	"blockmigrate/internal/models"
)

// ValidationError represents a validation error with context.
type ValidationError struct {
	Step    string
	BlockID string
	Field   string
	Message string
	Index   int
}

// ValidationResult contains validation results.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []string
	Stats    ValidationStats
	IsValid  bool
}

// ValidationStats contains validation statistics.
type ValidationStats struct {
	Sequences     int
	TotalBlocks   int
	ValidBlocks   int
	InvalidBlocks int
	UnknownTypes  int
}

// TypeChecker reports whether a block type is known to the editor.
type TypeChecker interface {
	Knows(blockType string) bool
}

// FieldChecker reports which content fields a known block type declares.
type FieldChecker interface {
	Knows(blockType string) bool
	IsContentField(blockType, field string) bool
}

// DocumentValidator validates normalized documents.
type DocumentValidator struct {
	types  TypeChecker
	fields FieldChecker
}

// NewDocumentValidator creates a validator. types may be nil, in which case
// unknown block types are not reported.
func NewDocumentValidator(types TypeChecker) *DocumentValidator {
	return &DocumentValidator{types: types}
}

// WithFields enables a warning for every content field that a type known to
// fields does not declare.
func (v *DocumentValidator) WithFields(fields FieldChecker) *DocumentValidator {
	v.fields = fields
	return v
}

// Validate checks every block sequence of doc.
func (v *DocumentValidator) Validate(doc models.Document) *ValidationResult {
	result := &ValidationResult{
		IsValid:  true,
		Errors:   []ValidationError{},
		Warnings: []string{},
	}

	if models.DetectShape(doc) == models.ShapeStep {
		v.validateStep(result, "", doc)
		return result
	}

	steps, ok := doc[models.KeySteps].(map[string]any)
	if !ok {
		result.fail(ValidationError{Field: models.KeySteps, Message: "steps is not an object"})
		return result
	}

	for _, key := range models.StepKeys(steps) {
		step, ok := steps[key].(map[string]any)
		if !ok {
			result.Warnings = append(result.Warnings, fmt.Sprintf("step %s is not an object", key))
			continue
		}

		v.validateStep(result, key, step)
	}

	return result
}

func (v *DocumentValidator) validateStep(result *ValidationResult, key string, step map[string]any) {
	blocks, ok := models.BlockSequence(step)
	if !ok {
		result.Warnings = append(result.Warnings, fmt.Sprintf("%s has no blocks array", stepLabel(key)))
		return
	}

	result.Stats.Sequences++

	seen := map[string]int{}

	for i, item := range blocks {
		result.Stats.TotalBlocks++

		errs, unknown := v.validateBlock(key, i, item, seen)
		if unknown {
			result.Stats.UnknownTypes++
		}

		result.Warnings = append(result.Warnings, v.undeclaredContent(key, i, item)...)

		if len(errs) > 0 {
			result.Stats.InvalidBlocks++
			for _, e := range errs {
				result.fail(e)
			}

			continue
		}

		result.Stats.ValidBlocks++
	}
}

// validateBlock returns the errors found in one block and whether its type
// is unknown to the configured TypeChecker.
func (v *DocumentValidator) validateBlock(step string, index int, item any, seen map[string]int) ([]ValidationError, bool) {
	raw, ok := item.(map[string]any)
	if !ok {
		return []ValidationError{{Step: step, Index: index, Message: "block is not an object"}}, false
	}

	id := models.StringValue(raw[models.KeyID])
	newErr := func(field, format string, args ...any) ValidationError {
		return ValidationError{Step: step, Index: index, BlockID: id, Field: field, Message: fmt.Sprintf(format, args...)}
	}

	var errs []ValidationError

	if id == "" {
		errs = append(errs, newErr(models.KeyID, "id is missing"))
	} else if prev, dup := seen[id]; dup {
		errs = append(errs, newErr(models.KeyID, "duplicate id %q (also at index %d)", id, prev))
	} else {
		seen[id] = index
	}

	if _, ok := raw[models.KeyType].(string); !ok {
		errs = append(errs, newErr(models.KeyType, "type is missing or not a string"))
	}

	if order, ok := models.IntValue(raw[models.KeyOrder]); !ok {
		errs = append(errs, newErr(models.KeyOrder, "order is missing or not an integer"))
	} else if order != index {
		errs = append(errs, newErr(models.KeyOrder, "order %d does not match position %d", order, index))
	}

	content, contentOK := raw[models.KeyContent].(map[string]any)
	if !contentOK {
		errs = append(errs, newErr(models.KeyContent, "content is missing or not an object"))
	}

	props, propsOK := raw[models.KeyProperties].(map[string]any)
	if !propsOK {
		errs = append(errs, newErr(models.KeyProperties, "properties is missing or not an object"))
	}

	if contentOK && propsOK {
		for _, key := range overlap(content, props) {
			errs = append(errs, newErr(key, "field %q appears in both content and properties", key))
		}
	}

	if _, legacy := raw[models.KeyConfig]; legacy {
		errs = append(errs, newErr(models.KeyConfig, "legacy config field is still present"))
	}

	unknown := false

	if v.types != nil {
		blockType, _ := raw[models.KeyType].(string)
		unknown = !v.types.Knows(blockType)
	}

	return errs, unknown
}

// undeclaredContent lists content fields outside the allow-list of the
// block's type. Types the FieldChecker does not know are not checked.
func (v *DocumentValidator) undeclaredContent(step string, index int, item any) []string {
	raw, ok := item.(map[string]any)
	if !ok || v.fields == nil {
		return nil
	}

	blockType, _ := raw[models.KeyType].(string)
	content, _ := raw[models.KeyContent].(map[string]any)

	if !v.fields.Knows(blockType) || len(content) == 0 {
		return nil
	}

	keys := make([]string, 0, len(content))
	for key := range content {
		if !v.fields.IsContentField(blockType, key) {
			keys = append(keys, key)
		}
	}

	sort.Strings(keys)

	warnings := make([]string, 0, len(keys))
	for _, key := range keys {
		warnings = append(warnings, fmt.Sprintf("%s block[%d] %q: content field %q is not declared for %s",
			stepLabel(step), index, models.StringValue(raw[models.KeyID]), key, blockType))
	}

	return warnings
}

func overlap(a, b map[string]any) []string {
	var keys []string

	for key := range a {
		if _, ok := b[key]; ok {
			keys = append(keys, key)
		}
	}

	sort.Strings(keys)

	return keys
}

func (r *ValidationResult) fail(e ValidationError) {
	r.IsValid = false
	r.Errors = append(r.Errors, e)
}

func stepLabel(key string) string {
	if key == "" {
		return "document"
	}

	return "step " + key
}

// String returns string representation of validation result.
func (r *ValidationResult) String() string {
	status := "✅ VALID"
	if !r.IsValid {
		status = "❌ INVALID"
	}

	return fmt.Sprintf(
		"%s | Blocks: %d | Valid: %d | Invalid: %d | Warnings: %d",
		status,
		r.Stats.TotalBlocks,
		r.Stats.ValidBlocks,
		r.Stats.InvalidBlocks,
		len(r.Warnings),
	)
}

// PrintErrors prints validation errors in readable format.
func (r *ValidationResult) PrintErrors(w io.Writer) {
	if len(r.Errors) == 0 {
		return
	}

	fmt.Fprintln(w, "❌ Validation Errors:")

	for _, err := range r.Errors {
		if err.Step != "" {
			fmt.Fprintf(w, "  [%s] ", err.Step)
		} else {
			fmt.Fprint(w, "  ")
		}

		fmt.Fprintf(w, "block[%d]", err.Index)

		if err.BlockID != "" {
			fmt.Fprintf(w, " %q", err.BlockID)
		}

		if err.Field != "" {
			fmt.Fprintf(w, " (%s)", err.Field)
		}

		fmt.Fprintf(w, ": %s\n", err.Message)
	}
}

// PrintWarnings prints validation warnings.
func (r *ValidationResult) PrintWarnings(w io.Writer) {
	if len(r.Warnings) == 0 {
		return
	}

	fmt.Fprintln(w, "⚠️  Validation Warnings:")

	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "  %s\n", warn)
	}
}
