package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	t.Setenv("OBSIDION_LOG_DIR", t.TempDir())

	// Test with missing vars
	t.Setenv("OBSIDION_BOT_TOKEN", "")
	_, err := NewConfig()
	require.Error(t, err)

	// Test with valid vars
	t.Setenv("OBSIDION_BOT_TOKEN", "test_token")
	t.Setenv("OBSIDION_CLIENT_ID", "1234")
	t.Setenv("OBSIDION_REDIS_ENABLED", "true")
	t.Setenv("OBSIDION_REDIS_PORT", "6380")
	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "test_token", cfg.GetBotToken())
	assert.Equal(t, "1234", cfg.GetClientID())
	assert.True(t, cfg.GetRedisEnabled())
	assert.Equal(t, "localhost:6380", cfg.GetRedisAddr())
	assert.Equal(t, DriverSQLite, cfg.GetDatabaseDriver())
}

func TestNewConfigRejectsUnknownDriver(t *testing.T) {
	t.Setenv("OBSIDION_LOG_DIR", t.TempDir())
	t.Setenv("OBSIDION_BOT_TOKEN", "test_token")
	t.Setenv("OBSIDION_DATABASE_DRIVER", "mysql")

	_, err := NewConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.driver")
}

func TestMockConfigDefaults(t *testing.T) {
	cfg := NewMockConfig(map[string]interface{}{
		"botlist.dbl_token": "abc",
	})

	assert.Equal(t, "abc", cfg.GetBotListToken("dbl"))
	assert.Equal(t, "", cfg.GetBotListToken("discordlabs"))
	assert.Equal(t, 30*time.Minute, cfg.GetBotListInterval())
	assert.Equal(t, 10*time.Second, cfg.GetFetchTimeout())
	assert.Equal(t, 2, cfg.GetFetchMaxRetries())
	assert.Equal(t, 5*time.Second, cfg.GetCommandCooldown())
	assert.Equal(t, "localhost:6379", cfg.GetRedisAddr())
}

func TestPruneOldLogFiles(t *testing.T) {
	dir := t.TempDir()
	oldFile := filepath.Join(dir, "obsidion_old.log")
	newFile := filepath.Join(dir, "obsidion_new.log")
	require.NoError(t, os.WriteFile(oldFile, []byte("old"), 0o644))
	require.NoError(t, os.WriteFile(newFile, []byte("new"), 0o644))

	past := time.Now().Add(-8 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(oldFile, past, past))

	cfg := NewMockConfig(map[string]interface{}{"log_dir": dir})
	require.NoError(t, cfg.PruneOldLogFiles())

	_, err := os.Stat(oldFile)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(newFile)
	assert.NoError(t, err)
}
