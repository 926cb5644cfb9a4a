package file

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) (*ConfigStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	return store, dir
}

func TestNewConfigStore_Success(t *testing.T) {
	store, dir := setupTestStore(t)

	assert.Equal(t, filepath.Join(dir, "config.toml"), store.Path())
}

func TestNewConfigStore_WithNestedDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")

	store, err := NewConfigStore(dir)

	require.NoError(t, err)
	assert.DirExists(t, dir)
	assert.Equal(t, filepath.Join(dir, "config.toml"), store.Path())
}

func TestNewConfigStore_LoadCorruptedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("not = [valid"), 0600))

	_, err := NewConfigStore(dir)

	assert.Error(t, err)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store, _ := setupTestStore(t)

	require.NoError(t, store.Set("extract.language", "eng+fra"))
	require.NoError(t, store.Set("extract.dpi", 300))
	require.NoError(t, store.Set("embedding.requests_per_second", 2.5))
	require.NoError(t, store.Set("embedding.compress", true))
	require.NoError(t, store.Set("names", []any{"a", 3, "b"}))

	assert.Equal(t, "eng+fra", store.GetString("extract.language"))
	assert.Equal(t, "", store.GetString("extract.dpi"))
	assert.Equal(t, 300, store.GetInt("extract.dpi"))
	assert.Equal(t, 0, store.GetInt("extract.language"))
	assert.Equal(t, 2.5, store.GetFloat("embedding.requests_per_second"))
	assert.Equal(t, 300.0, store.GetFloat("extract.dpi"))
	assert.Equal(t, 0.0, store.GetFloat("extract.language"))
	assert.True(t, store.GetBool("embedding.compress"))
	assert.False(t, store.GetBool("missing"))
	assert.Equal(t, []string{"a", "b"}, store.GetStringSlice("names"))
	assert.Nil(t, store.GetStringSlice("missing"))
}

func TestConfigStore_Get_NotFound(t *testing.T) {
	store, _ := setupTestStore(t)

	val, ok := store.Get("nonexistent")

	assert.False(t, ok)
	assert.Nil(t, val)
}

func TestConfigStore_SaveReload_PreservesData(t *testing.T) {
	store, dir := setupTestStore(t)

	require.NoError(t, store.Set("general.concurrency", 4))
	require.NoError(t, store.Set("chunk.width", 200))
	require.NoError(t, store.Set("embedding.model", "nomic-embed-text"))
	require.NoError(t, store.Set("embedding.requests_per_second", 1.5))
	require.NoError(t, store.Set("embedding.compress", true))

	reloaded, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, 4, reloaded.GetInt("general.concurrency"))
	assert.Equal(t, 200, reloaded.GetInt("chunk.width"))
	assert.Equal(t, "nomic-embed-text", reloaded.GetString("embedding.model"))
	assert.Equal(t, 1.5, reloaded.GetFloat("embedding.requests_per_second"))
	assert.True(t, reloaded.GetBool("embedding.compress"))
}

func TestConfigStore_WritesTables(t *testing.T) {
	store, _ := setupTestStore(t)

	require.NoError(t, store.Set("chunk.width", 200))
	require.NoError(t, store.Set("extract.dpi", 150))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "[chunk]")
	assert.Contains(t, string(data), "[extract]")
	assert.NotContains(t, string(data), "'chunk.width'")
}

func TestConfigStore_ReadsHandWrittenFile(t *testing.T) {
	dir := t.TempDir()
	content := `
[general]
concurrency = 2

[extract]
input_dir = "scans"
dpi = 200
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, 2, store.GetInt("general.concurrency"))
	assert.Equal(t, "scans", store.GetString("extract.input_dir"))
	assert.Equal(t, 200, store.GetInt("extract.dpi"))
}

func TestConfigStore_Load_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), nil, 0600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	_, ok := store.Get("anything")
	assert.False(t, ok)
}

func TestConfigStore_FilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes are not enforced on windows")
	}
	store, _ := setupTestStore(t)
	require.NoError(t, store.Set("embedding.api_key", "sk-test"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store, _ := setupTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = store.Set("general.concurrency", n)
			_ = store.GetInt("general.concurrency")
		}(i)
	}
	wg.Wait()

	_, ok := store.Get("general.concurrency")
	assert.True(t, ok)
}

func TestNestMap(t *testing.T) {
	tests := []struct {
		name string
		flat map[string]any
		want map[string]any
	}{
		{
			name: "empty",
			flat: map[string]any{},
			want: map[string]any{},
		},
		{
			name: "top level",
			flat: map[string]any{"a": 1},
			want: map[string]any{"a": 1},
		},
		{
			name: "tables",
			flat: map[string]any{"a.b": 1, "a.c": "x", "d.e.f": true},
			want: map[string]any{
				"a": map[string]any{"b": 1, "c": "x"},
				"d": map[string]any{"e": map[string]any{"f": true}},
			},
		},
		{
			name: "value shadows table",
			flat: map[string]any{"a": 1, "a.b": 2},
			want: map[string]any{"a": 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nestMap(tt.flat))
		})
	}
}

func TestFlattenMap_InvertsNestMap(t *testing.T) {
	flat := map[string]any{"extract.dpi": 300, "chunk.width": 500, "general.debug": false}

	assert.Equal(t, flat, flattenMap(nestMap(flat), ""))
}
