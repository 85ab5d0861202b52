// Package registry is the persistent realm-scoped key/value store. One
// instance per process: load on start, mutate in memory, save on shutdown.
// Safe for concurrent use; the reference list caches refresh in parallel and
// persist through the same instance.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Store persists the registry as one structured document, realm → key →
// value. A missing document loads as an empty store.
type Store interface {
	Load(ctx context.Context) (map[string]map[string]json.RawMessage, error)
	Save(ctx context.Context, realms map[string]map[string]json.RawMessage) error
}

type Registry struct {
	logger   *slog.Logger
	store    Store
	simulate bool

	mu     sync.Mutex
	realms map[string]map[string]json.RawMessage
	dirty  bool
}

func Load(ctx context.Context, logger *slog.Logger, store Store, simulate bool) (*Registry, error) {
	realms, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading registry: %w", err)
	}
	if realms == nil {
		realms = make(map[string]map[string]json.RawMessage)
	}
	return &Registry{
		logger:   logger.With("system", "registry"),
		store:    store,
		realms:   realms,
		simulate: simulate,
	}, nil
}

// Get unmarshals the stored value into out and reports whether the key was
// present. An unknown realm or key leaves out untouched, so the caller's
// default survives. Additive keys default gracefully this way; there is no
// schema versioning.
func (r *Registry) Get(realm, key string, out any) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	props, ok := r.realms[realm]
	if !ok {
		return false, nil
	}
	raw, ok := props[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decoding registry value %s/%s: %w", realm, key, err)
	}
	return true, nil
}

// Set stores a serializable value and marks the registry dirty.
func (r *Registry) Set(realm, key string, val any) error {
	raw, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("encoding registry value %s/%s: %w", realm, key, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	props, ok := r.realms[realm]
	if !ok {
		props = make(map[string]json.RawMessage)
		r.realms[realm] = props
	}
	props[key] = raw
	r.dirty = true
	return nil
}

func (r *Registry) Dirty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dirty
}

// SaveAll persists the store. No-op unless dirty. In simulate mode the
// would-be document is logged and nothing is written.
func (r *Registry) SaveAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.dirty {
		return nil
	}
	if r.simulate {
		blob, err := json.Marshal(r.realms)
		if err != nil {
			return err
		}
		r.logger.Info("would save registry", "state", string(blob))
		return nil
	}
	if err := r.store.Save(ctx, r.realms); err != nil {
		return fmt.Errorf("saving registry: %w", err)
	}
	r.dirty = false
	return nil
}
