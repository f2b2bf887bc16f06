package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"TickerPulse/internal/domain/models"
	drepo "TickerPulse/internal/domain/repository"
	"TickerPulse/internal/services/classifier"
)

// FileIgnoreStore keeps the ignore list in a JSON file of the form
// {"DEFAULT_IGNORE_LIST": [...]}.
type FileIgnoreStore struct {
	path string
	mu   sync.Mutex
}

func NewFileIgnoreStore(path string) *FileIgnoreStore {
	return &FileIgnoreStore{path: path}
}

// Load returns the stored entries. A missing file is an empty list.
func (s *FileIgnoreStore) Load(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return []string{}, nil
	}
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read ignore list: %v", models.ErrConfiguration, err)
	}
	set, err := classifier.ParseIgnoreList(b)
	if err != nil {
		return nil, err
	}
	return set.Items(), nil
}

// Save writes items sorted and deduplicated. The file is replaced atomically.
func (s *FileIgnoreStore) Save(_ context.Context, items []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return nil
	}
	b, err := classifier.NewIgnoreSet(items...).MarshalIgnoreList()
	if err != nil {
		return fmt.Errorf("encode ignore list: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".ignore-*.json")
	if err != nil {
		return fmt.Errorf("save ignore list: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("save ignore list: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save ignore list: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("save ignore list: %w", err)
	}
	return nil
}

var _ drepo.IgnoreStore = (*FileIgnoreStore)(nil)
