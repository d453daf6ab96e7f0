package storage

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"blockmigrate/internal/logger"
	"blockmigrate/internal/models"
	"blockmigrate/pkg/digest"
)

func newTestStore(opts Options) *Store {
	return NewStore(opts, logger.NewLoggerWithWriter("error", io.Discard))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestDecode(t *testing.T) {
	doc, err := Decode([]byte(`{"blocks":[{"id":"a","config":{"width":300}}]}`))
	if err != nil {
		t.Fatalf("Decode returned unexpected error: %v", err)
	}

	block := doc["blocks"].([]any)[0].(map[string]any)
	if block["config"].(map[string]any)["width"] != json.Number("300") {
		t.Errorf("width = %#v, want json.Number(300)", block["config"].(map[string]any)["width"])
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		want error
		name string
		in   string
	}{
		{name: "invalid", in: `{"blocks":`, want: ErrInvalidJSON},
		{name: "array root", in: `[1,2]`, want: ErrNotObject},
		{name: "string root", in: `"x"`, want: ErrNotObject},
		{name: "trailing data", in: `{"blocks":[]} {}`, want: ErrInvalidJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode([]byte(tt.in)); !errors.Is(err, tt.want) {
				t.Errorf("Decode error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestStore_Encode(t *testing.T) {
	s := newTestStore(Options{})

	doc := models.Document{
		"title":  "Estilo <Elegante> & único",
		"blocks": []any{map[string]any{"type": "t", "id": "a"}},
	}

	data, err := s.Encode(doc)
	if err != nil {
		t.Fatalf("Encode returned unexpected error: %v", err)
	}

	want := `{
  "blocks": [
    {
      "id": "a",
      "type": "t"
    }
  ],
  "title": "Estilo <Elegante> & único"
}
`
	if string(data) != want {
		t.Errorf("Encode =\n%s\nwant\n%s", data, want)
	}
}

func TestStore_Encode_Indent(t *testing.T) {
	s := newTestStore(Options{Indent: "\t"})

	data, err := s.Encode(models.Document{"a": map[string]any{"b": 1}})
	if err != nil {
		t.Fatalf("Encode returned unexpected error: %v", err)
	}

	if !strings.Contains(string(data), "\n\t\"a\": {\n\t\t\"b\": 1") {
		t.Errorf("Encode did not use tab indentation:\n%s", data)
	}
}

func TestStore_ReadSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "step-02.json")
	writeFile(t, path, `{"blocks": [{"id": "a", "type": "question-text", "config": {"text": "Hi", "width": 300}}]}`)

	s := newTestStore(Options{})

	raw, err := s.Read(path)
	if err != nil {
		t.Fatalf("Read returned unexpected error: %v", err)
	}

	doc, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode returned unexpected error: %v", err)
	}

	res, err := s.Save(path, doc)
	if err != nil {
		t.Fatalf("Save returned unexpected error: %v", err)
	}

	if !res.Written || !res.BackupCreated {
		t.Errorf("Save = %+v, want written with backup", res)
	}

	if onDisk, err := digest.File(path); err != nil || onDisk != res.Digest {
		t.Errorf("file digest = %s, %v, want %s", onDisk, err, res.Digest)
	}

	backup, err := os.ReadFile(path + ".bak")
	if err != nil {
		t.Fatalf("backup missing: %v", err)
	}

	if string(backup) != string(raw) {
		t.Error("backup does not match the original file")
	}

	data, err := s.Read(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}

	reloaded, err := Decode(data)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}

	if !reflect.DeepEqual(reloaded, doc) {
		t.Errorf("reloaded = %v, want %v", reloaded, doc)
	}

	again, err := s.Save(path, reloaded)
	if err != nil {
		t.Fatalf("second Save: %v", err)
	}

	if again.Written || again.BackupCreated {
		t.Errorf("second Save = %+v, want no write", again)
	}
}

func TestStore_Backup_OnlyOnce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "quiz.json")
	writeFile(t, path, `{"steps":{}}`)

	s := newTestStore(Options{BackupSuffix: ".orig"})

	created, err := s.Backup(path)
	if err != nil || !created {
		t.Fatalf("first Backup = %v, %v, want created", created, err)
	}

	writeFile(t, path, `{"steps":{"changed":{}}}`)

	created, err = s.Backup(path)
	if err != nil || created {
		t.Fatalf("second Backup = %v, %v, want skipped", created, err)
	}

	backup, err := os.ReadFile(path + ".orig")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	if string(backup) != `{"steps":{}}` {
		t.Errorf("backup = %s, want the first version", backup)
	}
}

func TestStore_Backup_Skip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "quiz.json")
	writeFile(t, path, `{}`)

	s := newTestStore(Options{SkipBackup: true})

	created, err := s.Backup(path)
	if err != nil || created {
		t.Fatalf("Backup = %v, %v, want skipped", created, err)
	}

	if _, err := os.Stat(path + ".bak"); !errors.Is(err, os.ErrNotExist) {
		t.Error("backup written although SkipBackup is set")
	}
}

func TestStore_Changed(t *testing.T) {
	s := newTestStore(Options{})
	doc := models.Document{"blocks": []any{}}

	encoded, err := s.Encode(doc)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	changed, err := s.Changed(encoded, doc)
	if err != nil || changed {
		t.Errorf("Changed(encoded) = %v, %v, want false", changed, err)
	}

	changed, err = s.Changed([]byte(`{"blocks":[]}`), doc)
	if err != nil || !changed {
		t.Errorf("Changed(compact) = %v, %v, want true", changed, err)
	}
}

func TestDetectShape(t *testing.T) {
	tests := []struct {
		in   string
		want models.Shape
	}{
		{`{"steps":{"step-01":{"blocks":[]}}}`, models.ShapeTemplate},
		{`{"blocks":[]}`, models.ShapeStep},
		{`{"id":"x"}`, models.ShapeStep},
		{`[]`, models.ShapeUnknown},
		{`"steps"`, models.ShapeUnknown},
	}

	for _, tt := range tests {
		if got := DetectShape([]byte(tt.in)); got != tt.want {
			t.Errorf("DetectShape(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"step-03.json", "step-02.json", "step-02.json.bak", "nested/step-10.json", "other.txt"} {
		writeFile(t, filepath.Join(dir, name), "{}")
	}

	files, err := Discover([]string{
		filepath.Join(dir, "step-*.json"),
		filepath.Join(dir, "**", "step-*.json"),
	})
	if err != nil {
		t.Fatalf("Discover returned unexpected error: %v", err)
	}

	want := []string{
		filepath.Join(dir, "nested", "step-10.json"),
		filepath.Join(dir, "step-02.json"),
		filepath.Join(dir, "step-03.json"),
	}

	if !reflect.DeepEqual(files, want) {
		t.Errorf("Discover = %v, want %v", files, want)
	}
}

func TestDiscover_InvalidPattern(t *testing.T) {
	if _, err := Discover([]string{"[unterminated"}); err == nil {
		t.Error("Discover expected error for invalid pattern")
	}
}
