package normalizer

import (
	"errors"
	"fmt"
	"sort"

	"github.com/mohae/deepcopy"

	"blockmigrate/internal/models"
)

// ErrorPolicy decides what happens when a single block fails to backfill.
type ErrorPolicy string

// Supported error policies.
const (
	// PolicySkip keeps the block as classified and records the error.
	PolicySkip ErrorPolicy = "skip"
	// PolicyAbort stops processing the document.
	PolicyAbort ErrorPolicy = "abort"
)

// ErrInvalidErrorPolicy is returned by ParseErrorPolicy for unknown values.
var ErrInvalidErrorPolicy = errors.New("error policy must be 'skip' or 'abort'")

// ParseErrorPolicy converts a configuration value into an ErrorPolicy.
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch ErrorPolicy(s) {
	case PolicySkip, "":
		return PolicySkip, nil
	case PolicyAbort:
		return PolicyAbort, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidErrorPolicy, s)
	}
}

// Status describes what happened to one block sequence.
type Status string

// Sequence statuses.
const (
	StatusMigrated   Status = "migrated"
	StatusBackfilled Status = "backfilled"
	StatusSkipped    Status = "skipped"
)

// BlockError records a block that could not be fully processed.
type BlockError struct {
	Err     error
	BlockID string
	Index   int
}

func (e BlockError) Error() string {
	return fmt.Sprintf("block[%d] %q: %v", e.Index, e.BlockID, e.Err)
}

// Unwrap returns the underlying error.
func (e BlockError) Unwrap() error {
	return e.Err
}

// SequenceReport summarizes the processing of one blocks array.
type SequenceReport struct {
	Err      error
	Key      string
	Status   Status
	CatchAll []string
	Errors   []BlockError
	Blocks   int
}

// Result is the outcome of processing a document.
type Result struct {
	Document  models.Document
	Shape     models.Shape
	Sequences []SequenceReport
}

// BlockCount returns the number of blocks processed across all sequences.
func (r *Result) BlockCount() int {
	total := 0
	for _, seq := range r.Sequences {
		total += seq.Blocks
	}

	return total
}

// ErrorCount returns the number of block errors across all sequences.
func (r *Result) ErrorCount() int {
	total := 0
	for _, seq := range r.Sequences {
		total += len(seq.Errors)
	}

	return total
}

// SkippedCount returns the number of sequences that could not be processed.
func (r *Result) SkippedCount() int {
	total := 0

	for _, seq := range r.Sequences {
		if seq.Status == StatusSkipped {
			total++
		}
	}

	return total
}

// Processor runs classification and backfill over whole documents.
type Processor struct {
	validator  *Validator
	classifier *Classifier
	backfiller *Backfiller
	policy     ErrorPolicy
}

// Option configures a Processor.
type Option func(*Processor)

// WithSchema replaces the classification schema.
func WithSchema(schema *Schema) Option {
	return func(p *Processor) {
		p.classifier = NewClassifier(schema)
	}
}

// WithRules replaces the backfill rule set.
func WithRules(rules *RuleSet) Option {
	return func(p *Processor) {
		p.backfiller = NewBackfiller(rules)
	}
}

// WithErrorPolicy sets how block errors are handled.
func WithErrorPolicy(policy ErrorPolicy) Option {
	return func(p *Processor) {
		p.policy = policy
	}
}

// NewProcessor creates a new processor instance.
func NewProcessor(opts ...Option) *Processor {
	p := &Processor{
		validator:  NewValidator(),
		classifier: NewClassifier(nil),
		backfiller: NewBackfiller(nil),
		policy:     PolicySkip,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Schema returns the classification schema.
func (p *Processor) Schema() *Schema {
	return p.classifier.Schema()
}

// Knows reports whether blockType is covered by the classification schema or
// by a non-fallback backfill rule.
func (p *Processor) Knows(blockType string) bool {
	return p.classifier.Schema().Knows(blockType) || p.backfiller.Rules().Matches(blockType)
}

// ProcessDocument normalizes every block sequence of a step or template
// document and returns a new document. The input is not modified.
func (p *Processor) ProcessDocument(data any) (*Result, error) {
	// 1. Validate the input data
	if err := p.validator.Validate(data); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	doc := cloneMap(data.(map[string]any))
	result := &Result{Document: doc, Shape: models.DetectShape(doc)}

	// 2. Transform each sequence
	if result.Shape == models.ShapeStep {
		report, err := p.processStep(models.KeyBlocks, doc)
		if err != nil {
			return nil, err
		}

		result.Sequences = append(result.Sequences, report)

		return result, nil
	}

	steps := doc[models.KeySteps].(map[string]any)
	for _, key := range models.StepKeys(steps) {
		step, ok := steps[key].(map[string]any)
		if !ok {
			result.Sequences = append(result.Sequences, skipped(key))
			continue
		}

		report, err := p.processStep(key, step)
		if err != nil {
			return nil, fmt.Errorf("step %s: %w", key, err)
		}

		result.Sequences = append(result.Sequences, report)
	}

	return result, nil
}

func (p *Processor) processStep(key string, step map[string]any) (SequenceReport, error) {
	blocks, ok := models.BlockSequence(step)
	if !ok {
		return skipped(key), nil
	}

	out, report, err := p.ProcessSequence(blocks)
	report.Key = key

	if err != nil {
		return report, err
	}

	step[models.KeyBlocks] = out

	return report, nil
}

func skipped(key string) SequenceReport {
	return SequenceReport{Key: key, Status: StatusSkipped, Err: ErrMissingBlocksField}
}

// ProcessSequence normalizes one blocks array. Legacy sequences are
// classified first; sequences that are already migrated only get backfilled.
// Block order is always reassigned from position.
func (p *Processor) ProcessSequence(blocks []any) ([]any, SequenceReport, error) {
	migrated := IsMigrated(blocks)

	report := SequenceReport{Status: StatusMigrated, Blocks: len(blocks)}
	if migrated {
		report.Status = StatusBackfilled
	}

	catchAll := map[string]struct{}{}
	out := make([]any, len(blocks))

	for i, item := range blocks {
		raw, ok := item.(map[string]any)
		if !ok {
			out[i] = deepcopy.Copy(item)
			report.Errors = append(report.Errors, BlockError{Index: i, Err: ErrInvalidBlock})

			continue
		}

		var block models.Block
		if migrated {
			block = models.BlockFromRaw(cloneMap(raw), i)
			block.Order = i
		} else {
			block = p.classifier.Classify(raw, i)
			for _, key := range p.classifier.CatchAll(block) {
				catchAll[key] = struct{}{}
			}
		}

		filled, err := p.backfiller.Backfill(block)
		if err != nil {
			blockErr := BlockError{Index: i, BlockID: block.ID, Err: err}
			if p.policy == PolicyAbort {
				return nil, report, blockErr
			}

			report.Errors = append(report.Errors, blockErr)
			out[i] = block.ToRaw()

			continue
		}

		out[i] = filled.ToRaw()
	}

	for key := range catchAll {
		report.CatchAll = append(report.CatchAll, key)
	}

	sort.Strings(report.CatchAll)

	return out, report, nil
}
