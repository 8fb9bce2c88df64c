package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFile_Defaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 54*time.Second, cfg.PingPeriod)
	assert.Equal(t, 3*time.Second, cfg.EvictionGrace)
	assert.Equal(t, 50*time.Millisecond, cfg.JoinAnnounceDelay)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Empty(t, cfg.ICEServers)
}

func TestLoadFile_FileValues(t *testing.T) {
	path := writeConfig(t, `
mode: debug
port: 9000
eviction_grace: 10s
store:
  driver: sqlite
  path: /tmp/sr.db
  pool_size: 2
ice_servers:
  - urls: ["stun:stun.example.org:3478"]
  - urls: ["turn:turn.example.org:3478"]
    username: u
    credential: p
`)
	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Mode)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.EvictionGrace)
	assert.Equal(t, StoreConfig{Driver: "sqlite", Path: "/tmp/sr.db", PoolSize: 2}, cfg.Store)
	require.Len(t, cfg.ICEServers, 2)
	assert.Equal(t, "u", cfg.ICEServers[1].Username)
}

func TestLoadFile_EnvOverrides(t *testing.T) {
	t.Setenv("SOUNDROOM_PORT", "7070")
	t.Setenv("SOUNDROOM_STORE_DRIVER", "sqlite")

	cfg, err := LoadFile(writeConfig(t, "port: 9000\n"))
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
}

func TestLoadFile_RejectsUnknownDriver(t *testing.T) {
	_, err := LoadFile(writeConfig(t, "store:\n  driver: postgres\n"))
	assert.ErrorContains(t, err, "postgres")
}
