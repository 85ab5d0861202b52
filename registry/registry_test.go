package registry

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestGetDefaultSurvives(t *testing.T) {
	assert := assert.New(t)
	reg, err := Load(context.Background(), slog.Default(), NewMemStore(), false)
	require.NoError(t, err)

	val := 42
	found, err := reg.Get("realm", "missing", &val)
	require.NoError(t, err)
	assert.False(found)
	assert.Equal(42, val)
}

func TestSetGetRoundtrip(t *testing.T) {
	assert := assert.New(t)
	reg, err := Load(context.Background(), slog.Default(), NewMemStore(), false)
	require.NoError(t, err)

	require.NoError(t, reg.Set("realm", "list", []string{"a", "b"}))
	var got []string
	found, err := reg.Get("realm", "list", &got)
	require.NoError(t, err)
	assert.True(found)
	assert.Equal([]string{"a", "b"}, got)
}

func TestSaveAllOnlyWhenDirty(t *testing.T) {
	assert := assert.New(t)
	store := NewMemStore()
	reg, err := Load(context.Background(), slog.Default(), store, false)
	require.NoError(t, err)

	// clean registry: no write
	require.NoError(t, reg.SaveAll(context.Background()))
	assert.Equal(0, store.Saves)

	require.NoError(t, reg.Set("realm", "key", "value"))
	assert.True(reg.Dirty())
	require.NoError(t, reg.SaveAll(context.Background()))
	assert.Equal(1, store.Saves)
	assert.False(reg.Dirty())

	// saving again without changes is a no-op
	require.NoError(t, reg.SaveAll(context.Background()))
	assert.Equal(1, store.Saves)
}

func TestSimulateSkipsWrite(t *testing.T) {
	store := NewMemStore()
	reg, err := Load(context.Background(), slog.Default(), store, true)
	require.NoError(t, err)

	require.NoError(t, reg.Set("realm", "key", "value"))
	require.NoError(t, reg.SaveAll(context.Background()))
	assert.Equal(t, 0, store.Saves)
}

// The reference list caches refresh in parallel and write through the same
// registry; run with -race.
func TestConcurrentSetAndSave(t *testing.T) {
	assert := assert.New(t)
	store := NewMemStore()
	reg, err := Load(context.Background(), slog.Default(), store, false)
	require.NoError(t, err)

	var g errgroup.Group
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			key := fmt.Sprintf("list-%d", i)
			if err := reg.Set("reflists", key, []string{"alice", "bob"}); err != nil {
				return err
			}
			var got []string
			if _, err := reg.Get("reflists", key, &got); err != nil {
				return err
			}
			return reg.SaveAll(context.Background())
		})
	}
	require.NoError(t, g.Wait())

	for i := 0; i < 16; i++ {
		var got []string
		found, err := reg.Get("reflists", fmt.Sprintf("list-%d", i), &got)
		require.NoError(t, err)
		assert.True(found)
		assert.Equal([]string{"alice", "bob"}, got)
	}
}

func TestFileStoreMissingFile(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "does-not-exist.json"))
	realms, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, realms)
}

func TestFileStoreCreatesParentDirectories(t *testing.T) {
	assert := assert.New(t)
	// mirrors the default registry path on a fresh deployment
	path := filepath.Join(t.TempDir(), "data", "watchdog", "registry.json")
	store := NewFileStore(path)

	reg, err := Load(context.Background(), slog.Default(), store, false)
	require.NoError(t, err)
	require.NoError(t, reg.Set("engine", "monitoredPosts", []string{"@alice/post"}))
	require.NoError(t, reg.SaveAll(context.Background()))

	reloaded, err := NewFileStore(path).Load(context.Background())
	require.NoError(t, err)
	assert.Contains(reloaded, "engine")
}

func TestFileStoreRoundtrip(t *testing.T) {
	assert := assert.New(t)
	path := filepath.Join(t.TempDir(), "registry.json")
	store := NewFileStore(path)

	reg, err := Load(context.Background(), slog.Default(), store, false)
	require.NoError(t, err)
	require.NoError(t, reg.Set("engine", "monitoredPosts", []string{"@alice/post"}))
	require.NoError(t, reg.SaveAll(context.Background()))

	reloaded, err := Load(context.Background(), slog.Default(), NewFileStore(path), false)
	require.NoError(t, err)
	var got []string
	found, err := reloaded.Get("engine", "monitoredPosts", &got)
	require.NoError(t, err)
	assert.True(found)
	assert.Equal([]string{"@alice/post"}, got)
}
