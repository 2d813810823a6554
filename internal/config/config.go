package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// Server configures the separation service.
type Server struct {
	Addr            string        // listen address, e.g. ":5000"
	StagingRoot     string        // parent of input/ and output/
	SpleeterBin     string        // separator executable
	SpleeterTimeout time.Duration // per-request separation budget
	MaxUploadBytes  int64         // multipart memory/size limit
	NatsURL         string        // optional; empty disables events
	NatsSubject     string
	DevLogging      bool
}

// Features configures the feature-extraction CLI.
type Features struct {
	Extractor []string // command + leading args; the audio path is appended
	Timeout   time.Duration
	KeyMethod string // "parity" or "profile"
	LogLevel  string
}

// Worker configures the stem analysis worker.
type Worker struct {
	NatsURL     string
	NatsSubject string
	QueueGroup  string
	Concurrency int
	QueueSize   int
	MaxRetries  int
	JobTimeout  time.Duration
	DevLogging  bool
}

// LoadServer reads the service configuration from the environment.
func LoadServer() (Server, error) {
	cfg := Server{
		Addr:            getenv("ADDR", ":5000"),
		StagingRoot:     getenv("STAGING_ROOT", "."),
		SpleeterBin:     getenv("SPLEETER_BIN", "spleeter"),
		SpleeterTimeout: 10 * time.Minute,
		MaxUploadBytes:  100 << 20,
		NatsURL:         os.Getenv("NATS_URL"),
		NatsSubject:     getenv("NATS_SUBJECT", "separations.completed"),
	}

	var err error
	if cfg.SpleeterTimeout, err = durationEnv("SPLEETER_TIMEOUT", cfg.SpleeterTimeout); err != nil {
		return Server{}, err
	}
	if cfg.MaxUploadBytes, err = int64Env("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes); err != nil {
		return Server{}, err
	}
	if cfg.DevLogging, err = boolEnv("DEV_LOGGING", false); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// LoadFeatures reads the CLI configuration from the environment.
func LoadFeatures() (Features, error) {
	cfg := Features{
		Extractor: strings.Fields(getenv("AUDIOFEAT_EXTRACTOR", "audiofeat-extract")),
		Timeout:   60 * time.Second,
		KeyMethod: getenv("AUDIOFEAT_KEY_METHOD", "parity"),
		LogLevel:  getenv("AUDIOFEAT_LOG_LEVEL", "warn"),
	}
	var err error
	if cfg.Timeout, err = durationEnv("AUDIOFEAT_TIMEOUT", cfg.Timeout); err != nil {
		return Features{}, err
	}
	return cfg, nil
}

// LoadWorker reads the worker configuration from the environment. Unlike the
// service, the worker needs a broker, so NATS_URL falls back to a local one.
func LoadWorker() (Worker, error) {
	cfg := Worker{
		NatsURL:     getenv("NATS_URL", "nats://127.0.0.1:4222"),
		NatsSubject: getenv("NATS_SUBJECT", "separations.completed"),
		QueueGroup:  getenv("WORKER_QUEUE_GROUP", "stem-analyzers"),
		Concurrency: 2,
		QueueSize:   64,
		MaxRetries:  3,
		JobTimeout:  5 * time.Minute,
	}
	var err error
	if cfg.Concurrency, err = intEnv("WORKER_CONCURRENCY", cfg.Concurrency); err != nil {
		return Worker{}, err
	}
	if cfg.QueueSize, err = intEnv("WORKER_QUEUE_SIZE", cfg.QueueSize); err != nil {
		return Worker{}, err
	}
	if cfg.MaxRetries, err = intEnv("WORKER_MAX_RETRIES", cfg.MaxRetries); err != nil {
		return Worker{}, err
	}
	if cfg.JobTimeout, err = durationEnv("WORKER_JOB_TIMEOUT", cfg.JobTimeout); err != nil {
		return Worker{}, err
	}
	if cfg.DevLogging, err = boolEnv("DEV_LOGGING", false); err != nil {
		return Worker{}, err
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s", key)
	}
	if d <= 0 {
		return 0, errors.Newf("%s must be positive, got %s", key, v)
	}
	return d, nil
}

func int64Env(key string, fallback int64) (int64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s", key)
	}
	if n <= 0 {
		return 0, errors.Newf("%s must be positive, got %d", key, n)
	}
	return n, nil
}

func intEnv(key string, fallback int) (int, error) {
	n, err := int64Env(key, int64(fallback))
	return int(n), err
}

func boolEnv(key string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.Wrapf(err, "invalid %s", key)
	}
	return b, nil
}
