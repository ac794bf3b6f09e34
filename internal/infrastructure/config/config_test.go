package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "abhipi04/custom-chrome-novnc", cfg.Docker.Image)
	assert.Equal(t, int64(2048), cfg.Docker.ShmSizeMB)
	assert.Equal(t, 80*time.Second, cfg.Agent.Timeout)
	assert.Equal(t, "12345678", cfg.VNC.Password)
	assert.True(t, cfg.RateLimit.Enabled)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("CHROME_IMAGE", "example/chrome:dev")
	t.Setenv("SESSION_TIMEOUT", "2m")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("AGENT_ARGS", "-u,run_agent.py")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Server.Port)
	assert.Equal(t, "example/chrome:dev", cfg.Docker.Image)
	assert.Equal(t, 2*time.Minute, cfg.Agent.Timeout)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, []string{"-u", "run_agent.py"}, cfg.Agent.Args)
}

func TestLoadFileOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := []byte(`
server:
  port: "7777"
vnc:
  password: overlay-secret
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	t.Setenv("PORT", "9999")
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	// File values win over the environment.
	assert.Equal(t, "7777", cfg.Server.Port)
	assert.Equal(t, "overlay-secret", cfg.VNC.Password)
	// Untouched sections keep env/default values.
	assert.Equal(t, "python3", cfg.Agent.Command)
}

func TestLoadFileMissing(t *testing.T) {
	t.Setenv("CONFIG_FILE", "/nonexistent/config.yaml")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadOrDefaultFallsBack(t *testing.T) {
	t.Setenv("CONFIG_FILE", "/nonexistent/config.yaml")

	cfg := LoadOrDefault()
	assert.Equal(t, "8080", cfg.Server.Port)
}
