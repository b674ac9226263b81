package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/harvester/internal/adapters/driven/config/file"
	"github.com/custodia-labs/harvester/internal/adapters/driven/storage/memory"
)

func setupConfigEditor(t *testing.T) *memory.ConfigStore {
	t.Helper()
	setupTestServices(t)
	store := memory.NewConfigStore(nil)
	configEditor = file.NewEditor(store, func(string) string { return "" })
	return store
}

func TestConfigCmd_SetAndGet(t *testing.T) {
	store := setupConfigEditor(t)

	out, err := executeCommand(t, "config", "set", "harvest.user_cap", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "Set harvest.user_cap in :memory:")

	val, ok := store.Get("harvest.user_cap")
	require.True(t, ok)
	assert.Equal(t, int64(10), val)

	out, err = executeCommand(t, "config", "get", "harvest.user_cap")
	require.NoError(t, err)
	assert.Equal(t, "10\n", out)
}

func TestConfigCmd_GetUnset(t *testing.T) {
	setupConfigEditor(t)

	out, err := executeCommand(t, "config", "get", "schedule.interval")

	require.NoError(t, err)
	assert.Contains(t, out, "not set, default applies")
}

func TestConfigCmd_SetInvalid(t *testing.T) {
	store := setupConfigEditor(t)

	_, err := executeCommand(t, "config", "set", "harvest.graph_page_size", "1000")

	require.ErrorIs(t, err, file.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "failed to set harvest.graph_page_size")
	_, ok := store.Get("harvest.graph_page_size")
	assert.False(t, ok)
}

func TestConfigCmd_Path(t *testing.T) {
	setupConfigEditor(t)

	out, err := executeCommand(t, "config", "path")

	require.NoError(t, err)
	assert.Equal(t, ":memory:\n", out)
}

func TestConfigCmd_NotConfigured(t *testing.T) {
	setupTestServices(t)

	_, err := executeCommand(t, "config", "path")

	assert.EqualError(t, err, "config service not configured")
}
