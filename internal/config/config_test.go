package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "forge.db", cfg.DatabasePath)
	assert.Equal(t, "google/gemini-2.5-flash", cfg.DefaultModel)
	assert.Equal(t, 50, cfg.StreamChunkSize)
	assert.Equal(t, 30, cfg.StreamDelayMS)
	assert.Equal(t, 2, cfg.JobWorkers)
	assert.False(t, cfg.SessionsEnabled())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9090")
	t.Setenv("SESSION_SECRET", "hunter2")
	t.Setenv("STREAM_CHUNK_SIZE", "10")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, 10, cfg.StreamChunkSize)
	assert.True(t, cfg.SessionsEnabled())
}

func TestLoad_RejectsNonPositiveChunkSize(t *testing.T) {
	t.Setenv("STREAM_CHUNK_SIZE", "0")

	_, err := Load()
	assert.Error(t, err)
}
