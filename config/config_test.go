package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jwalitptl/clinicstore/pkg/stable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  read_timeout: 3s
storage:
  path: /var/lib/clinic/space.mem
  bucket_size: 4096
  durability: async
validation:
  strict_patient_contact: true
redis:
  url: redis://localhost:6379/0
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, "/var/lib/clinic/space.mem", cfg.Storage.Path)
	assert.True(t, cfg.Validation.StrictPatientContact)
	assert.Equal(t, "clinic.records", cfg.Redis.Channel)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.ToBrokerConfig().URL)

	opts, err := cfg.Storage.StableOptions()
	require.NoError(t, err)
	assert.Equal(t, int64(4096), opts.BucketSize)
	assert.Equal(t, stable.DurabilityAsync, opts.Durability)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")
	t.Setenv("CLINIC_SERVER_PORT", "7070")
	t.Setenv("CLINIC_STORAGE_DURABILITY", "async")
	t.Setenv("CLINIC_LOG_LEVEL", "debug")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "async", cfg.Storage.Durability)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfigDefaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, int64(stable.DefaultBucketSize), cfg.Storage.BucketSize)
	assert.Equal(t, "sync", cfg.Storage.Durability)
	assert.Equal(t, "/metrics", cfg.Monitoring.MetricsPath)
	assert.Equal(t, time.Second, cfg.Storage.FlushInterval)
	assert.False(t, cfg.Validation.StrictPatientContact)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	for name, body := range map[string]string{
		"durability":  "storage:\n  durability: eventually\n",
		"bucket size": "storage:\n  bucket_size: 0\n",
		"port":        "server:\n  port: 70000\n",
		"rate limit":  "rate_limit:\n  burst: 0\n",
		"flush":       "storage:\n  durability: async\n  flush_interval: 0s\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, body))
			assert.Error(t, err)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
