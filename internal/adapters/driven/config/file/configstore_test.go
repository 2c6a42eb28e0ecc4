package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
}

func TestConfigStore_SetAndGet(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	err = store.Set("test_key", "test_value")
	require.NoError(t, err)

	val, ok := store.Get("test_key")
	assert.True(t, ok)
	assert.Equal(t, "test_value", val)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("backend.url", "https://api.example.com"))
	require.NoError(t, store.Set("backend.timeout_seconds", 30))
	require.NoError(t, store.Set("sync.push_enabled", true))

	assert.Equal(t, "https://api.example.com", store.GetString("backend.url"))
	assert.Equal(t, 30, store.GetInt("backend.timeout_seconds"))
	assert.True(t, store.GetBool("sync.push_enabled"))

	// Missing or mistyped keys fall back to zero values.
	assert.Equal(t, "", store.GetString("missing"))
	assert.Equal(t, 0, store.GetInt("backend.url"))
	assert.False(t, store.GetBool("backend.url"))
}

func TestConfigStore_PersistsAcrossInstances(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	require.NoError(t, store.Set("backend.url", "https://api.example.com"))
	require.NoError(t, store.Set("backend.timeout_seconds", 30))

	reopened, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", reopened.GetString("backend.url"))
	assert.Equal(t, 30, reopened.GetInt("backend.timeout_seconds"))
}

func TestConfigStore_LoadFlattensNestedTables(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	content := `
[backend]
url = "https://api.example.com"

[sync]
push_enabled = true
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0600))

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", store.GetString("backend.url"))
	assert.True(t, store.GetBool("sync.push_enabled"))
}

func TestConfigStore_WatchReloadsExternalEdits(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	require.NoError(t, store.Set("backend.url", "https://old.example.com"))

	require.NoError(t, store.Watch())
	defer store.Close()

	// Simulate an external edit.
	content := `
[backend]
url = "https://new.example.com"
`
	require.NoError(t, os.WriteFile(store.Path(), []byte(content), 0600))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if store.GetString("backend.url") == "https://new.example.com" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("config not reloaded, still %q", store.GetString("backend.url"))
}

func TestConfigStore_CloseWithoutWatch(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, store.Close())
}
