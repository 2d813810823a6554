package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadServer_Defaults(t *testing.T) {
	for _, k := range []string{"ADDR", "STAGING_ROOT", "SPLEETER_BIN", "SPLEETER_TIMEOUT", "MAX_UPLOAD_BYTES", "NATS_URL", "NATS_SUBJECT", "DEV_LOGGING"} {
		t.Setenv(k, "")
	}

	cfg, err := LoadServer()
	require.NoError(t, err)
	require.Equal(t, ":5000", cfg.Addr)
	require.Equal(t, ".", cfg.StagingRoot)
	require.Equal(t, "spleeter", cfg.SpleeterBin)
	require.Equal(t, 10*time.Minute, cfg.SpleeterTimeout)
	require.Equal(t, int64(100<<20), cfg.MaxUploadBytes)
	require.Empty(t, cfg.NatsURL)
	require.Equal(t, "separations.completed", cfg.NatsSubject)
	require.False(t, cfg.DevLogging)
}

func TestLoadServer_Overrides(t *testing.T) {
	t.Setenv("ADDR", "127.0.0.1:9000")
	t.Setenv("STAGING_ROOT", "/srv/stems")
	t.Setenv("SPLEETER_TIMEOUT", "90s")
	t.Setenv("MAX_UPLOAD_BYTES", "1024")
	t.Setenv("NATS_URL", "nats://localhost:4222")
	t.Setenv("DEV_LOGGING", "true")

	cfg, err := LoadServer()
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9000", cfg.Addr)
	require.Equal(t, "/srv/stems", cfg.StagingRoot)
	require.Equal(t, 90*time.Second, cfg.SpleeterTimeout)
	require.Equal(t, int64(1024), cfg.MaxUploadBytes)
	require.Equal(t, "nats://localhost:4222", cfg.NatsURL)
	require.True(t, cfg.DevLogging)
}

func TestLoadServer_Invalid(t *testing.T) {
	t.Setenv("SPLEETER_TIMEOUT", "soon")
	_, err := LoadServer()
	require.ErrorContains(t, err, "SPLEETER_TIMEOUT")

	t.Setenv("SPLEETER_TIMEOUT", "")
	t.Setenv("MAX_UPLOAD_BYTES", "-5")
	_, err = LoadServer()
	require.ErrorContains(t, err, "MAX_UPLOAD_BYTES")

	t.Setenv("MAX_UPLOAD_BYTES", "")
	t.Setenv("DEV_LOGGING", "maybe")
	_, err = LoadServer()
	require.ErrorContains(t, err, "DEV_LOGGING")
}

func TestLoadFeatures(t *testing.T) {
	t.Setenv("AUDIOFEAT_EXTRACTOR", "python3 /opt/tools/extract.py")
	t.Setenv("AUDIOFEAT_TIMEOUT", "")
	t.Setenv("AUDIOFEAT_KEY_METHOD", "")
	t.Setenv("AUDIOFEAT_LOG_LEVEL", "")

	cfg, err := LoadFeatures()
	require.NoError(t, err)
	require.Equal(t, []string{"python3", "/opt/tools/extract.py"}, cfg.Extractor)
	require.Equal(t, 60*time.Second, cfg.Timeout)
	require.Equal(t, "parity", cfg.KeyMethod)
	require.Equal(t, "warn", cfg.LogLevel)

	t.Setenv("AUDIOFEAT_TIMEOUT", "0s")
	_, err = LoadFeatures()
	require.Error(t, err)
}

func TestLoadWorker_Defaults(t *testing.T) {
	for _, k := range []string{"NATS_URL", "NATS_SUBJECT", "WORKER_QUEUE_GROUP", "WORKER_CONCURRENCY", "WORKER_QUEUE_SIZE", "WORKER_MAX_RETRIES", "WORKER_JOB_TIMEOUT", "DEV_LOGGING"} {
		t.Setenv(k, "")
	}

	cfg, err := LoadWorker()
	require.NoError(t, err)
	require.Equal(t, "nats://127.0.0.1:4222", cfg.NatsURL)
	require.Equal(t, "separations.completed", cfg.NatsSubject)
	require.Equal(t, "stem-analyzers", cfg.QueueGroup)
	require.Equal(t, 2, cfg.Concurrency)
	require.Equal(t, 64, cfg.QueueSize)
	require.Equal(t, 3, cfg.MaxRetries)
	require.Equal(t, 5*time.Minute, cfg.JobTimeout)
}

func TestLoadWorker_Invalid(t *testing.T) {
	t.Setenv("WORKER_CONCURRENCY", "0")
	_, err := LoadWorker()
	require.ErrorContains(t, err, "WORKER_CONCURRENCY must be positive")

	t.Setenv("WORKER_CONCURRENCY", "four")
	_, err = LoadWorker()
	require.ErrorContains(t, err, "invalid WORKER_CONCURRENCY")
}
