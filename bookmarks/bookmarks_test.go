package bookmarks_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diffeo-labs/atomic-data-go/bookmarks"
)

func TestLoadMissingFileIsEmpty(t *testing.T) {
	got, err := bookmarks.Load(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookmarks")
	want := map[string]string{
		"class":        "https://atomicdata.dev/classes/Class",
		"weird name\t": "https://localhost/weird",
	}
	require.NoError(t, bookmarks.Save(path, want))

	got, err := bookmarks.Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSaveIsDeterministic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookmarks")
	m := map[string]string{"b": "https://localhost/b", "a": "https://localhost/a"}
	require.NoError(t, bookmarks.Save(path, m))

	first, err := bookmarks.Load(path)
	require.NoError(t, err)
	require.NoError(t, bookmarks.Save(path, first))
	second, err := bookmarks.Load(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
