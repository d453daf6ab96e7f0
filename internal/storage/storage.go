// Package storage loads and persists template documents.
package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/otiai10/copy"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"blockmigrate/internal/logger"
	"blockmigrate/internal/models"
	"blockmigrate/pkg/digest"
)

// Storage errors.
var (
	ErrInvalidJSON = errors.New("file is not valid JSON")
	ErrNotObject   = errors.New("document root is not a JSON object")
)

const defaultIndent = "  "

// Options controls how documents are written.
type Options struct {
	Indent       string
	BackupSuffix string
	SkipBackup   bool
}

// Store reads and writes template documents on the local filesystem.
type Store struct {
	logger *logger.Logger
	opts   Options
}

// NewStore creates a store. An empty indent selects two spaces and an empty
// backup suffix selects ".bak".
func NewStore(opts Options, log *logger.Logger) *Store {
	if opts.Indent == "" {
		opts.Indent = defaultIndent
	}

	if opts.BackupSuffix == "" {
		opts.BackupSuffix = ".bak"
	}

	return &Store{logger: log, opts: opts}
}

// Read returns the raw bytes of the document at path.
func (s *Store) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return data, nil
}

// Decode parses a JSON document whose root must be an object. Numbers are
// kept as json.Number so integers round-trip exactly.
func Decode(data []byte) (models.Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var root any
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after document", ErrInvalidJSON)
	}

	doc, ok := root.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}

	return doc, nil
}

// Encode serializes doc with sorted keys and the configured indentation.
// HTML characters and non-ASCII text are written verbatim.
func (s *Store) Encode(doc models.Document) ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}

	return pretty.PrettyOptions(buf.Bytes(), &pretty.Options{
		Indent:   s.opts.Indent,
		SortKeys: true,
	}), nil
}

// BackupPath returns the backup location for path.
func (s *Store) BackupPath(path string) string {
	return path + s.opts.BackupSuffix
}

// Backup copies path to its backup location unless a backup already
// exists. It reports whether a new backup was created.
func (s *Store) Backup(path string) (bool, error) {
	if s.opts.SkipBackup {
		return false, nil
	}

	backupPath := s.BackupPath(path)
	if _, err := os.Stat(backupPath); err == nil {
		s.logger.Debug("backup already exists", "path", backupPath)
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("failed to stat backup: %w", err)
	}

	if err := copy.Copy(path, backupPath, copy.Options{PreserveTimes: true}); err != nil {
		return false, fmt.Errorf("failed to create backup: %w", err)
	}

	s.logger.Info("backup created", "path", backupPath)

	return true, nil
}

// SaveResult describes what Save did.
type SaveResult struct {
	Path          string
	Digest        string
	Written       bool
	BackupCreated bool
}

// Save writes doc to path. The write, and the backup that precedes it, are
// skipped when the encoded document is identical to the file on disk.
func (s *Store) Save(path string, doc models.Document) (*SaveResult, error) {
	data, err := s.Encode(doc)
	if err != nil {
		return nil, err
	}

	result := &SaveResult{Path: path, Digest: digest.Sum(data)}

	current, err := digest.File(path)
	if err != nil {
		return nil, fmt.Errorf("failed to hash current file: %w", err)
	}

	if current == result.Digest {
		s.logger.Debug("document unchanged", "path", path)
		return result, nil
	}

	if current != "" {
		result.BackupCreated, err = s.Backup(path)
		if err != nil {
			return nil, err
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	written, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read back file: %w", err)
	}

	if err := digest.Verify(written, result.Digest); err != nil {
		return nil, fmt.Errorf("written file differs from encoded document: %w", err)
	}

	result.Written = true

	return result, nil
}

// Changed reports whether saving doc would modify the file contents raw.
func (s *Store) Changed(raw []byte, doc models.Document) (bool, error) {
	data, err := s.Encode(doc)
	if err != nil {
		return false, err
	}

	return digest.Sum(raw) != digest.Sum(data), nil
}

// DetectShape inspects raw JSON without decoding it fully. Input whose root
// is not an object, including most malformed input, reports ShapeUnknown.
func DetectShape(data []byte) models.Shape {
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return models.ShapeUnknown
	}

	if root.Get(models.KeySteps).Exists() {
		return models.ShapeTemplate
	}

	return models.ShapeStep
}

// Discover expands doublestar patterns into a sorted, de-duplicated list of
// files. A pattern without glob characters that names an existing file is
// returned as is.
func Discover(patterns []string) ([]string, error) {
	seen := map[string]struct{}{}

	var files []string

	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}

		for _, match := range matches {
			if _, ok := seen[match]; ok {
				continue
			}

			seen[match] = struct{}{}
			files = append(files, match)
		}
	}

	sort.Strings(files)

	return files, nil
}
