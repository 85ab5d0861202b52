package engine

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/spaolacci/murmur3"
)

// History is a bounded, ordered set of identifiers with FIFO eviction:
// insertion appends, and once the bound is exceeded the oldest entry is
// evicted. Length never exceeds the bound.
type History struct {
	cache *lru.Cache[string, struct{}]
}

func NewHistory(bound int) (*History, error) {
	cache, err := lru.New[string, struct{}](bound)
	if err != nil {
		return nil, fmt.Errorf("creating history: %w", err)
	}
	return &History{cache: cache}, nil
}

func (h *History) Push(id string) {
	h.cache.Add(id, struct{}{})
}

// Contains does not refresh the entry's position, so eviction order stays
// insertion order.
func (h *History) Contains(id string) bool {
	return h.cache.Contains(id)
}

func (h *History) Len() int {
	return h.cache.Len()
}

// Entries returns the identifiers oldest-first, for persistence.
func (h *History) Entries() []string {
	return h.cache.Keys()
}

// returns a fast, compact hash of a string; keeps persisted reply history
// entries small
func hashOfString(s string) string {
	val := murmur3.Sum64([]byte(s))
	return fmt.Sprintf("%016x", val)
}
