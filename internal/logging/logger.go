package logging

import (
	"io"
	"strings"

	"github.com/rs/zerolog"
	"go.uber.org/zap"
)

// Logger is the service-wide logger. It is a no-op until Init runs.
var Logger = zap.NewNop()

// Init initializes the global logger. dev=true uses development config.
func Init(dev bool) error {
	var cfg zap.Config
	if dev {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.MessageKey = "msg"

	l, err := cfg.Build()
	if err != nil {
		return err
	}
	Logger = l
	return nil
}

// NewCLILogger returns a console logger for command-line tools. Their stdout
// is reserved for machine-readable output, so w is normally os.Stderr.
// Unknown levels fall back to warn.
func NewCLILogger(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.WarnLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: true}).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}
