package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_GetOrCreate(t *testing.T) {
	t.Run("mints once and is idempotent", func(t *testing.T) {
		m := NewManager(NewMemoryStore())

		first := m.GetOrCreate()
		assert.NotEmpty(t, first)

		second := m.GetOrCreate()
		assert.Equal(t, first, second)
	})

	t.Run("returns already-persisted token", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Set("existing-token"))

		m := NewManager(store)
		assert.Equal(t, "existing-token", m.GetOrCreate())
	})
}

func TestManager_Reset(t *testing.T) {
	m := NewManager(NewMemoryStore())

	first := m.GetOrCreate()
	m.Reset()
	second := m.GetOrCreate()

	assert.NotEmpty(t, second)
	assert.NotEqual(t, first, second, "reset must rotate the token")
}

func TestFileStore(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, ok := store.Get()
	assert.False(t, ok)

	require.NoError(t, store.Set("abc-123"))
	token, ok := store.Get()
	assert.True(t, ok)
	assert.Equal(t, "abc-123", token)

	require.NoError(t, store.Clear())
	_, ok = store.Get()
	assert.False(t, ok)

	// Clearing an already-empty store is not an error.
	require.NoError(t, store.Clear())
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set("persisted"))

	reopened, err := NewFileStore(dir)
	require.NoError(t, err)
	token, ok := reopened.Get()
	assert.True(t, ok)
	assert.Equal(t, "persisted", token)
}
