// Package migration runs the block migration over template files on disk.
package migration

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"blockmigrate/internal/config"
	"blockmigrate/internal/logger"
	"blockmigrate/internal/models"
	"blockmigrate/internal/normalizer"
	"blockmigrate/internal/storage"
	"blockmigrate/internal/validator"
)

const defaultConcurrency = 4

// Migration errors.
var (
	ErrShapeMismatch = errors.New("document shape does not match target")
	ErrInvalidOutput = errors.New("migrated document failed validation")
)

// Job is one file to migrate.
type Job struct {
	Path   string
	Target string
	Shape  models.Shape
}

// FileResult is the outcome of migrating one file.
type FileResult struct {
	Err           error
	Validation    *validator.ValidationResult
	Path          string
	Target        string
	Shape         models.Shape
	Sequences     []normalizer.SequenceReport
	Blocks        int
	BlockErrors   int
	Skipped       int
	Changed       bool
	Written       bool
	BackupCreated bool
}

// Options controls a run.
type Options struct {
	Concurrency int
	Write       bool
	Check       bool
}

// Runner migrates files with bounded concurrency.
type Runner struct {
	store     *storage.Store
	processor *normalizer.Processor
	validator *validator.DocumentValidator
	logger    *logger.Logger
	opts      Options
}

// NewRunner creates a runner. Validation of migrated output uses the
// processor's schema and rules to recognise block types.
func NewRunner(store *storage.Store, processor *normalizer.Processor, log *logger.Logger, opts Options) *Runner {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}

	return &Runner{
		store:     store,
		processor: processor,
		validator: validator.NewDocumentValidator(processor).WithFields(processor.Schema()),
		logger:    log,
		opts:      opts,
	}
}

// Plan expands the configured targets into jobs. A file matched by more
// than one target belongs to the first.
func Plan(targets []config.TargetConfig) ([]Job, error) {
	seen := map[string]struct{}{}

	var jobs []Job

	for _, target := range targets {
		shape, ok := models.ParseShape(target.Shape)
		if !ok {
			return nil, fmt.Errorf("%w: %q", config.ErrInvalidShape, target.Shape)
		}

		files, err := storage.Discover([]string{target.Glob})
		if err != nil {
			return nil, fmt.Errorf("target %s: %w", target.Name, err)
		}

		for _, file := range files {
			if _, dup := seen[file]; dup {
				continue
			}

			seen[file] = struct{}{}
			jobs = append(jobs, Job{Path: file, Target: target.Name, Shape: shape})
		}
	}

	return jobs, nil
}

// Run migrates every job and returns results in job order. Jobs not yet
// started when ctx is cancelled fail with the context error.
func (r *Runner) Run(ctx context.Context, jobs []Job) []FileResult {
	results := make([]FileResult, len(jobs))

	var (
		wg  sync.WaitGroup
		sem = make(chan struct{}, r.opts.Concurrency)
	)

	for i, job := range jobs {
		wg.Add(1)
		go func(idx int, job Job) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := ctx.Err(); err != nil {
				results[idx] = FileResult{Path: job.Path, Target: job.Target, Shape: job.Shape, Err: err}
				return
			}

			results[idx] = r.MigrateFile(job)
		}(i, job)
	}
	wg.Wait()

	return results
}

// MigrateFile loads, migrates, optionally validates, and optionally writes
// one file.
func (r *Runner) MigrateFile(job Job) FileResult {
	log := r.logger.WithFile(job.Path)
	result := FileResult{Path: job.Path, Target: job.Target, Shape: job.Shape}

	fail := func(err error) FileResult {
		log.Error("migration failed", "error", err)
		result.Err = err

		return result
	}

	raw, err := r.store.Read(job.Path)
	if err != nil {
		return fail(err)
	}

	// A mismatched shape is rejected before the document is decoded.
	detected := storage.DetectShape(raw)
	if job.Shape != models.ShapeUnknown && detected != models.ShapeUnknown && job.Shape != detected {
		return fail(fmt.Errorf("%w: expected %s, found %s", ErrShapeMismatch, job.Shape, detected))
	}

	doc, err := storage.Decode(raw)
	if err != nil {
		return fail(err)
	}

	result.Shape = detected

	processed, err := r.processor.ProcessDocument(doc)
	if err != nil {
		return fail(err)
	}

	result.Sequences = processed.Sequences
	result.Blocks = processed.BlockCount()
	result.BlockErrors = processed.ErrorCount()
	result.Skipped = processed.SkippedCount()

	for _, seq := range processed.Sequences {
		stepLog := log.WithStep(seq.Key)

		if seq.Status == normalizer.StatusSkipped {
			stepLog.Warn("sequence skipped", "reason", seq.Err)
			continue
		}

		for _, blockErr := range seq.Errors {
			stepLog.Warn("block left as classified", "index", blockErr.Index, "id", blockErr.BlockID, "error", blockErr.Err)
		}

		if len(seq.CatchAll) > 0 {
			stepLog.Debug("unrecognised properties kept", "keys", seq.CatchAll)
		}

		stepLog.Debug("sequence processed", "status", seq.Status, "blocks", seq.Blocks)
	}

	if r.opts.Check {
		result.Validation = r.validator.Validate(processed.Document)
		if !result.Validation.IsValid {
			return fail(fmt.Errorf("%w: %s", ErrInvalidOutput, result.Validation))
		}
	}

	result.Changed, err = r.store.Changed(raw, processed.Document)
	if err != nil {
		return fail(err)
	}

	if !result.Changed || !r.opts.Write {
		return result
	}

	saved, err := r.store.Save(job.Path, processed.Document)
	if err != nil {
		return fail(err)
	}

	result.Written = saved.Written
	result.BackupCreated = saved.BackupCreated

	log.Info("document written", "digest", saved.Digest, "backup", saved.BackupCreated)

	return result
}

// Summary aggregates file results.
type Summary struct {
	Files       int
	Changed     int
	Written     int
	Failed      int
	Blocks      int
	BlockErrors int
	Skipped     int
}

// Summarize totals results.
func Summarize(results []FileResult) Summary {
	s := Summary{Files: len(results)}

	for _, res := range results {
		if res.Err != nil {
			s.Failed++
			continue
		}

		if res.Changed {
			s.Changed++
		}

		if res.Written {
			s.Written++
		}

		s.Blocks += res.Blocks
		s.BlockErrors += res.BlockErrors
		s.Skipped += res.Skipped
	}

	return s
}
