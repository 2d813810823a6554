package separation

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/Bahadou-Badr/PhantomChain-Audio-Toolkit-Go/internal/executor"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Separator splits an audio file into stems written beneath outputRoot.
type Separator interface {
	Separate(ctx context.Context, inputPath, outputRoot string, count StemCount) error
}

// Spleeter drives the spleeter CLI. Output lands in
// <outputRoot>/<input basename without extension>/<stem>.wav.
type Spleeter struct {
	runner  executor.Executor
	binPath string
	timeout time.Duration
	workDir string
	log     *zap.Logger
}

var _ Separator = (*Spleeter)(nil)

func NewSpleeter(runner executor.Executor, binPath string, timeout time.Duration, log *zap.Logger) *Spleeter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Spleeter{runner: runner, binPath: binPath, timeout: timeout, log: log}
}

// WithWorkDir runs spleeter from dir, where it caches its pretrained_models.
// Input and output paths are made absolute so they still resolve.
func (s *Spleeter) WithWorkDir(dir string) *Spleeter {
	s.workDir = dir
	return s
}

func (s *Spleeter) Separate(ctx context.Context, inputPath, outputRoot string, count StemCount) error {
	model := count.Model()
	if model == "" {
		return errors.Wrapf(ErrInvalidStemCount, "%d", int(count))
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	// separation is slow; don't start if the caller already left
	if ctx.Err() != nil {
		return errors.Wrap(ctx.Err(), "context cancelled before separation")
	}

	if s.workDir != "" {
		var err error
		if inputPath, err = filepath.Abs(inputPath); err != nil {
			return errors.Wrap(err, "resolve input path")
		}
		if outputRoot, err = filepath.Abs(outputRoot); err != nil {
			return errors.Wrap(err, "resolve output root")
		}
	}

	args := []string{"separate", "-p", model, "-o", outputRoot, inputPath}
	logger := s.log.With(
		zap.String("input", inputPath),
		zap.String("output", outputRoot),
		zap.String("model", model),
	)
	logger.Info("running spleeter")

	start := time.Now()
	cmd := s.runner.Command(ctx, s.binPath, args...)
	if s.workDir != "" {
		cmd.SetDir(s.workDir)
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return errors.Wrapf(ctx.Err(), "spleeter did not finish within %s", s.timeout)
		}
		logger.Error("spleeter failed", zap.Error(err), zap.ByteString("output", out))
		return errors.Wrapf(err, "spleeter failed: %s", strings.TrimSpace(string(out)))
	}

	logger.Debug("spleeter output", zap.ByteString("output", out))
	logger.Info("spleeter finished", zap.Duration("elapsed", time.Since(start)))
	return nil
}

// OutputDir is where spleeter writes the stems of inputName under outputRoot.
func OutputDir(outputRoot, inputName string) string {
	return filepath.Join(outputRoot, Basename(inputName))
}

// Basename strips the directory and final extension from name. A leading-dot
// name such as ".hidden" is kept whole.
func Basename(name string) string {
	name = filepath.Base(name)
	ext := filepath.Ext(name)
	if ext == name {
		return name
	}
	return strings.TrimSuffix(name, ext)
}
