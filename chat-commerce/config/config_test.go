package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CHAT_CONFIG_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "localhost:7233", cfg.TemporalHost)
	assert.Equal(t, "chat-commerce-task-queue", cfg.TaskQueue)
	assert.Equal(t, "INR", cfg.Currency)
	assert.Equal(t, "chat", cfg.CheckoutSource)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
task_queue: from-file
redis_db: 3
services:
  payment: http://payments.internal
  stylist: http://stylist.internal
`), 0o600))

	t.Setenv("CHAT_CONFIG_FILE", path)
	t.Setenv("STYLIST_SERVICE_URL", "http://stylist.override")
	t.Setenv("RATE_LIMIT_BURST", "4")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.TaskQueue)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, "http://payments.internal", cfg.Services.Payment)
	assert.Equal(t, "http://stylist.override", cfg.Services.Stylist)
	assert.Equal(t, 4, cfg.RateLimitBurst)
}

func TestLoad_InvalidNumber(t *testing.T) {
	t.Setenv("CHAT_CONFIG_FILE", "")
	t.Setenv("REDIS_DB", "not-a-number")

	_, err := Load()
	assert.Error(t, err)
}
