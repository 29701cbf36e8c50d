package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadCoordinatorAppliesDefaults(t *testing.T) {
	cfg, err := LoadCoordinator("")
	require.NoError(t, err)
	require.Equal(t, DefaultCoordinator(), cfg)
}

func TestLoadCoordinatorOverridesFromFile(t *testing.T) {
	path := writeTemp(t, "coordinator.json", `{"port": 9090, "admin_key": "secret"}`)
	cfg, err := LoadCoordinator(path)
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Port)
	require.Equal(t, "secret", cfg.AdminKey)
	require.Equal(t, DefaultCoordinator().RedisURL, cfg.RedisURL)
}

func TestLoadWorkerDirectHTTPMode(t *testing.T) {
	path := writeTemp(t, "worker.json", `{"host": "http://coordinator:8080", "key": "abc", "tasks": 4}`)
	cfg, err := LoadWorker(path)
	require.NoError(t, err)
	require.Empty(t, cfg.Drivers)
	require.Equal(t, 4, cfg.TaskCount())
}

func TestLoadWorkerDriverMode(t *testing.T) {
	path := writeTemp(t, "worker.json", `{"host": "http://coordinator:8080", "key": "abc", "drivers": ["ws://one", "ws://two"]}`)
	cfg, err := LoadWorker(path)
	require.NoError(t, err)
	require.Equal(t, 2, cfg.TaskCount())
}

func TestLoadWorkerZeroTasksDefaultsToOne(t *testing.T) {
	path := writeTemp(t, "worker.json", `{"host": "http://coordinator:8080", "key": "abc"}`)
	cfg, err := LoadWorker(path)
	require.NoError(t, err)
	require.Equal(t, 1, cfg.TaskCount())
}
