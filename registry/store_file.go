package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore keeps the registry in a single JSON file.
type FileStore struct {
	Path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

func (s *FileStore) Load(ctx context.Context) (map[string]map[string]json.RawMessage, error) {
	raw, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]map[string]json.RawMessage), nil
	}
	if err != nil {
		return nil, err
	}
	var realms map[string]map[string]json.RawMessage
	if err := json.Unmarshal(raw, &realms); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.Path, err)
	}
	return realms, nil
}

func (s *FileStore) Save(ctx context.Context, realms map[string]map[string]json.RawMessage) error {
	raw, err := json.MarshalIndent(realms, "", "  ")
	if err != nil {
		return err
	}
	// the default path lives under a data/ directory which may not exist yet
	if err := os.MkdirAll(filepath.Dir(s.Path), 0775); err != nil {
		return err
	}
	return os.WriteFile(s.Path, raw, 0664)
}
