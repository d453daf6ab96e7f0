package migration

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"blockmigrate/internal/config"
	"blockmigrate/internal/logger"
	"blockmigrate/internal/models"
	"blockmigrate/internal/normalizer"
	"blockmigrate/internal/storage"
)

const legacyStep = `{
  "blocks": [
    {"id": "q1-progress", "type": "question-progress", "config": {"currentQuestion": 1, "totalQuestions": 10}},
    {"id": "q1-options", "type": "options-grid", "config": {"options": [{"id": "a"}], "gridColumns": 3}}
  ]
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	return path
}

func newRunner(opts Options, procOpts ...normalizer.Option) *Runner {
	log := logger.NewLoggerWithWriter("error", io.Discard)
	store := storage.NewStore(storage.Options{}, log)

	return NewRunner(store, normalizer.NewProcessor(procOpts...), log, opts)
}

func readDoc(t *testing.T, path string) map[string]any {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("invalid JSON in %s: %v", path, err)
	}

	return doc
}

func TestMigrateFile_DryRun(t *testing.T) {
	path := writeFile(t, t.TempDir(), "step-01.json", legacyStep)

	result := newRunner(Options{}).MigrateFile(Job{Path: path, Shape: models.ShapeStep})

	if result.Err != nil {
		t.Fatalf("MigrateFile() error = %v", result.Err)
	}

	if !result.Changed || result.Written {
		t.Errorf("result = %+v, want changed and not written", result)
	}

	if result.Blocks != 2 {
		t.Errorf("Blocks = %d, want 2", result.Blocks)
	}

	data, _ := os.ReadFile(path)
	if string(data) != legacyStep {
		t.Error("dry run must not modify the file")
	}

	if _, err := os.Stat(path + ".bak"); !os.IsNotExist(err) {
		t.Error("dry run must not create a backup")
	}
}

func TestMigrateFile_Write(t *testing.T) {
	path := writeFile(t, t.TempDir(), "step-01.json", legacyStep)
	runner := newRunner(Options{Write: true, Check: true})

	result := runner.MigrateFile(Job{Path: path})
	if result.Err != nil {
		t.Fatalf("MigrateFile() error = %v", result.Err)
	}

	if !result.Written || !result.BackupCreated {
		t.Errorf("result = %+v, want written with backup", result)
	}

	if result.Validation == nil || !result.Validation.IsValid {
		t.Errorf("Validation = %v, want valid", result.Validation)
	}

	backup, err := os.ReadFile(path + ".bak")
	if err != nil {
		t.Fatalf("backup missing: %v", err)
	}

	if string(backup) != legacyStep {
		t.Error("backup must hold the pre-migration content")
	}

	doc := readDoc(t, path)
	blocks := doc["blocks"].([]any)
	grid := blocks[1].(map[string]any)

	if grid["order"] != float64(1) {
		t.Errorf("order = %v, want 1", grid["order"])
	}

	wantProps := map[string]any{"gridColumns": float64(3), "columns": float64(2), "gap": float64(16)}
	if !reflect.DeepEqual(grid["properties"], wantProps) {
		t.Errorf("properties = %v, want %v", grid["properties"], wantProps)
	}

	if _, ok := grid["config"]; ok {
		t.Error("legacy config must be removed")
	}

	migrated, _ := os.ReadFile(path)

	again := runner.MigrateFile(Job{Path: path})
	if again.Err != nil {
		t.Fatalf("second MigrateFile() error = %v", again.Err)
	}

	if again.Changed || again.Written || again.BackupCreated {
		t.Errorf("second run = %+v, want no changes", again)
	}

	after, _ := os.ReadFile(path)
	if string(after) != string(migrated) {
		t.Error("second run modified the file")
	}
}

func TestMigrateFile_Template(t *testing.T) {
	template := `{
  "templateVersion": "3.0",
  "steps": {
    "step-02": {"blocks": [{"id": "t", "type": "question-title", "config": {"text": "Q?"}}]},
    "step-01": {"blocks": [{"id": "logo", "type": "intro-logo", "order": 0, "content": {"src": "/logo.png", "width": "96"}, "properties": {}}]},
    "step-03": {"title": "result"}
  }
}`
	path := writeFile(t, t.TempDir(), "quiz.json", template)

	result := newRunner(Options{Write: true}).MigrateFile(Job{Path: path, Shape: models.ShapeTemplate})
	if result.Err != nil {
		t.Fatalf("MigrateFile() error = %v", result.Err)
	}

	if result.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", result.Skipped)
	}

	if len(result.Sequences) != 3 || result.Sequences[0].Key != "step-01" {
		t.Errorf("Sequences = %+v, want three sorted steps", result.Sequences)
	}

	doc := readDoc(t, path)
	if doc["templateVersion"] != "3.0" {
		t.Error("top-level fields must be preserved")
	}

	step := doc["steps"].(map[string]any)["step-01"].(map[string]any)
	logo := step["blocks"].([]any)[0].(map[string]any)
	content := logo["content"].(map[string]any)

	if content["width"] != float64(96) || content["imageUrl"] != "/logo.png" {
		t.Errorf("content = %v, want width 96 and imageUrl alias", content)
	}
}

func TestMigrateFile_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		job  Job
		want error
	}{
		{
			name: "shape mismatch",
			job:  Job{Path: writeFile(t, dir, "a.json", legacyStep), Shape: models.ShapeTemplate},
			want: ErrShapeMismatch,
		},
		{
			name: "shape mismatch before decoding",
			job:  Job{Path: writeFile(t, dir, "e.json", `{"steps": {"step-01": {}}, "tail": [1,}`), Shape: models.ShapeStep},
			want: ErrShapeMismatch,
		},
		{
			name: "invalid json",
			job:  Job{Path: writeFile(t, dir, "b.json", "{nope")},
			want: storage.ErrInvalidJSON,
		},
		{
			name: "not an object",
			job:  Job{Path: writeFile(t, dir, "c.json", "[]")},
			want: storage.ErrNotObject,
		},
		{
			name: "steps not an object",
			job:  Job{Path: writeFile(t, dir, "d.json", `{"steps": []}`)},
			want: normalizer.ErrMissingStepsField,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := newRunner(Options{Write: true}).MigrateFile(tt.job)
			if !errors.Is(result.Err, tt.want) {
				t.Errorf("Err = %v, want %v", result.Err, tt.want)
			}

			if result.Written {
				t.Error("failed migrations must not write")
			}
		})
	}
}

func TestMigrateFile_AbortPolicy(t *testing.T) {
	src := `{"blocks": [{"id": "img", "type": "intro-image", "order": 0, "content": {"width": "wide"}, "properties": {}}]}`
	path := writeFile(t, t.TempDir(), "step.json", src)

	skip := newRunner(Options{}).MigrateFile(Job{Path: path})
	if skip.Err != nil || skip.BlockErrors != 1 {
		t.Errorf("skip policy result = %+v, want one block error and no failure", skip)
	}

	abort := newRunner(Options{}, normalizer.WithErrorPolicy(normalizer.PolicyAbort)).MigrateFile(Job{Path: path})
	if !errors.Is(abort.Err, normalizer.ErrMalformedDimension) {
		t.Errorf("abort policy Err = %v, want ErrMalformedDimension", abort.Err)
	}
}

func TestMigrateFile_CheckRejectsInvalidOutput(t *testing.T) {
	path := writeFile(t, t.TempDir(), "step.json", `{"blocks": ["oops"]}`)

	result := newRunner(Options{Check: true, Write: true}).MigrateFile(Job{Path: path})
	if !errors.Is(result.Err, ErrInvalidOutput) {
		t.Fatalf("Err = %v, want ErrInvalidOutput", result.Err)
	}

	if result.Validation == nil || result.Validation.IsValid {
		t.Error("expected validation result to be attached")
	}
}

func TestMigrateFile_CheckWarnsOnUndeclaredContent(t *testing.T) {
	src := `{"blocks": [{"id": "t", "type": "question-title", "order": 0, "content": {"text": "Q?", "width": 300}, "properties": {}}]}`
	path := writeFile(t, t.TempDir(), "step.json", src)

	result := newRunner(Options{Check: true}).MigrateFile(Job{Path: path})
	if result.Err != nil {
		t.Fatalf("MigrateFile() error = %v", result.Err)
	}

	want := []string{`document block[0] "t": content field "width" is not declared for question-title`}
	if result.Validation == nil || !reflect.DeepEqual(result.Validation.Warnings, want) {
		t.Errorf("Validation = %+v, want warnings %v", result.Validation, want)
	}
}

func TestPlan(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "blocks/step-01.json", legacyStep)
	writeFile(t, dir, "blocks/step-02.json", legacyStep)
	writeFile(t, dir, "quiz.json", `{"steps": {}}`)

	jobs, err := Plan([]config.TargetConfig{
		{Name: "steps", Glob: filepath.Join(dir, "blocks", "step-*.json"), Shape: "step"},
		{Name: "all", Glob: filepath.Join(dir, "**", "*.json")},
	})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	if len(jobs) != 3 {
		t.Fatalf("jobs = %v, want 3", jobs)
	}

	if jobs[0].Target != "steps" || jobs[0].Shape != models.ShapeStep {
		t.Errorf("jobs[0] = %+v, want steps target", jobs[0])
	}

	if jobs[2].Target != "all" || jobs[2].Shape != models.ShapeUnknown {
		t.Errorf("jobs[2] = %+v, want auto-shaped catch-all target", jobs[2])
	}

	if _, err := Plan([]config.TargetConfig{{Name: "x", Glob: "*.json", Shape: "flat"}}); !errors.Is(err, config.ErrInvalidShape) {
		t.Errorf("expected ErrInvalidShape, got %v", err)
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()

	var jobs []Job
	for _, name := range []string{"a.json", "b.json", "c.json", "d.json", "e.json"} {
		jobs = append(jobs, Job{Path: writeFile(t, dir, name, legacyStep)})
	}

	jobs = append(jobs, Job{Path: filepath.Join(dir, "missing.json")})

	results := newRunner(Options{Concurrency: 2, Write: true}).Run(context.Background(), jobs)

	if len(results) != len(jobs) {
		t.Fatalf("results = %d, want %d", len(results), len(jobs))
	}

	for i, res := range results {
		if res.Path != jobs[i].Path {
			t.Errorf("results[%d].Path = %s, want %s", i, res.Path, jobs[i].Path)
		}
	}

	summary := Summarize(results)
	want := Summary{Files: 6, Changed: 5, Written: 5, Failed: 1, Blocks: 10}

	if summary != want {
		t.Errorf("Summarize() = %+v, want %+v", summary, want)
	}
}

func TestRun_Cancelled(t *testing.T) {
	path := writeFile(t, t.TempDir(), "a.json", legacyStep)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := newRunner(Options{Write: true}).Run(ctx, []Job{{Path: path}})

	if !errors.Is(results[0].Err, context.Canceled) {
		t.Errorf("Err = %v, want context.Canceled", results[0].Err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != legacyStep {
		t.Error("cancelled run must not modify files")
	}
}
