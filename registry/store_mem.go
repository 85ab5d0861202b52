package registry

import (
	"context"
	"encoding/json"
)

// MemStore holds the persisted document in memory. Used in tests and
// fixtures.
type MemStore struct {
	Realms map[string]map[string]json.RawMessage
	Saves  int
}

func NewMemStore() *MemStore {
	return &MemStore{}
}

func (s *MemStore) Load(ctx context.Context) (map[string]map[string]json.RawMessage, error) {
	return s.Realms, nil
}

func (s *MemStore) Save(ctx context.Context, realms map[string]map[string]json.RawMessage) error {
	s.Realms = realms
	s.Saves++
	return nil
}
