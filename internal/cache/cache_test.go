package cache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patchforge/patchforge/internal/analyzer"
	"github.com/patchforge/patchforge/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "symbols.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPutGetRoundtrip(t *testing.T) {
	store := openTestStore(t)

	entry := &analyzer.CachedAnalysis{
		Symbols: []models.Symbol{
			{Name: "Normalize", Kind: models.SymbolFunction, Role: models.RoleDefinition, Side: models.SideNew, Line: 3},
		},
		Imports: []string{"strings"},
	}
	require.NoError(t, store.Put("abc123", "go", entry))

	got, ok := store.Get("abc123", "go")
	require.True(t, ok)
	assert.Equal(t, entry.Symbols, got.Symbols)
	assert.Equal(t, entry.Imports, got.Imports)
}

func TestGetMiss(t *testing.T) {
	store := openTestStore(t)

	_, ok := store.Get("missing", "go")
	assert.False(t, ok)
}

func TestLanguageKeysAreDistinct(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.Put("d1", "go", &analyzer.CachedAnalysis{Imports: []string{"fmt"}}))

	_, ok := store.Get("d1", "python")
	assert.False(t, ok, "same digest under another language is a separate entry")

	got, ok := store.Get("d1", "go")
	require.True(t, ok)
	assert.Equal(t, []string{"fmt"}, got.Imports)
}

func TestOpenCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "symbols.db")
	store, err := Open(path)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Put("d", "go", &analyzer.CachedAnalysis{}))
}
