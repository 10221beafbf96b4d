package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, ":8001", cfg.Address)
	assert.Equal(t, "http://localhost:8001", cfg.APIBaseURL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.EqualValues(t, 25<<20, cfg.MaxFileSize)
	assert.Equal(t, 2, cfg.WorkerConcurrency)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	assert.False(t, cfg.ArchiveEnabled())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("INTAKE_API_URL", "http://intake.local:9000/")
	t.Setenv("INTAKE_MAX_FILE_BYTES", "1024")
	t.Setenv("INTAKE_WORKERS", "-3")
	t.Setenv("INTAKE_S3_ENDPOINT", "minio:9000")
	t.Setenv("INTAKE_REDIS_ADDR", "redis:6379")
	t.Setenv("INTAKE_DATABASE_URL", "postgres://intake@db/intake")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "http://intake.local:9000", cfg.APIBaseURL)
	assert.EqualValues(t, 1024, cfg.MaxFileSize)
	assert.Equal(t, 2, cfg.WorkerConcurrency)
	assert.True(t, cfg.ArchiveEnabled())
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("INTAKE_API_URL", "http://from-env:1")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("api", "http://localhost:8001", "")
	require.NoError(t, flags.Parse([]string{"--api", "http://from-flag:2"}))

	cfg, err := Load(flags)
	require.NoError(t, err)
	assert.Equal(t, "http://from-flag:2", cfg.APIBaseURL)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "relative api url", key: "INTAKE_API_URL", val: "/api"},
		{name: "unknown log level", key: "INTAKE_LOG_LEVEL", val: "verbose"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load(nil)
			require.Error(t, err)
		})
	}
}
