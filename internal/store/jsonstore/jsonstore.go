package jsonstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/idilsaglam/todolist/internal/model"
)

// JSON-backed storage. Single file, human-readable, portable.
// No cross-process locking; one writer per file.

// DefaultFileName is used when no path is configured.
const DefaultFileName = "todos.json"

// Document is the on-disk shape. NextID survives removals so ids are never
// reused.
type Document struct {
	NextID uint64       `json:"nextId"`
	Items  []model.Item `json:"items"`
}

// DefaultPath returns todos.json in the working directory.
func DefaultPath() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getwd: %w", err)
	}
	return filepath.Join(wd, DefaultFileName), nil
}

// Load reads the document at path. found is false when the file does not
// exist yet.
func Load(path string) (doc Document, found bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Document{}, false, nil
		}
		return Document{}, false, fmt.Errorf("read file: %w", err)
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return Document{}, false, fmt.Errorf("json unmarshal: %w", err)
	}
	return doc, true, nil
}

// Save writes doc to a sibling temp file and renames it over path.
func Save(path string, doc Document) error {
	if doc.Items == nil {
		doc.Items = []model.Item{}
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
