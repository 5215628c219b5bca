package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/m3rciful/quizbot/quiz"
)

// DefaultFile is the flat store used when no path is configured.
const DefaultFile = "storage.json"

// FileBackend keeps the collection as one JSON array on disk.
type FileBackend struct {
	Path string
}

// NewFileBackend returns a backend for path, falling back to DefaultFile.
func NewFileBackend(path string) *FileBackend {
	if path == "" {
		path = DefaultFile
	}
	return &FileBackend{Path: path}
}

// Name implements Backend.
func (b *FileBackend) Name() string { return "file" }

// Load implements Backend. A missing file is an empty collection.
func (b *FileBackend) Load(_ context.Context) ([]quiz.Question, error) {
	data, err := os.ReadFile(b.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", b.Path, err)
	}
	var questions []quiz.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("decode %s: %w", b.Path, err)
	}
	return questions, nil
}

// Save implements Backend. The file is replaced through a rename so a
// crash mid-write leaves the previous content in place.
func (b *FileBackend) Save(_ context.Context, questions []quiz.Question) error {
	if questions == nil {
		questions = []quiz.Question{}
	}
	data, err := json.MarshalIndent(questions, "", "  ")
	if err != nil {
		return fmt.Errorf("encode questions: %w", err)
	}
	dir := filepath.Dir(b.Path)
	tmp, err := os.CreateTemp(dir, ".questions-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, b.Path); err != nil {
		return fmt.Errorf("replace %s: %w", b.Path, err)
	}
	return nil
}
