package analysis

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"time"

	"github.com/Bahadou-Badr/PhantomChain-Audio-Toolkit-Go/internal/executor"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// Analyzer runs the external feature extractor on a file and shapes its
// output into an AnalysisResult.
type Analyzer struct {
	runner    executor.Executor
	command   []string
	timeout   time.Duration
	estimator KeyEstimator
	log       zerolog.Logger
}

// NewAnalyzer builds an Analyzer. command is the extractor executable plus any
// leading arguments; the audio path is appended on each run.
func NewAnalyzer(runner executor.Executor, command []string, timeout time.Duration, estimator KeyEstimator, log zerolog.Logger) (*Analyzer, error) {
	if len(command) == 0 {
		return nil, errors.New("extractor command is empty")
	}
	if estimator == nil {
		estimator = ParityEstimator{}
	}
	return &Analyzer{
		runner:    runner,
		command:   command,
		timeout:   timeout,
		estimator: estimator,
		log:       log,
	}, nil
}

// Analyze extracts features from the audio file at path.
func (a *Analyzer) Analyze(ctx context.Context, path string) (*AnalysisResult, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read audio file %s", path)
	}
	if !st.Mode().IsRegular() {
		return nil, errors.Newf("not a regular file: %s", path)
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	features, err := a.extract(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := features.Validate(); err != nil {
		return nil, err
	}

	res := BuildResult(features, a.estimator)
	a.log.Debug().
		Str("path", path).
		Float64("tempo", res.Tempo).
		Str("key", res.Key).
		Int("beats", len(res.Beats)).
		Msg("analysis complete")
	return res, nil
}

func (a *Analyzer) extract(ctx context.Context, path string) (*Features, error) {
	args := append(append([]string{}, a.command[1:]...), path)
	a.log.Debug().Str("extractor", a.command[0]).Strs("args", args).Msg("running extractor")

	start := time.Now()
	out, err := a.runner.Command(ctx, a.command[0], args...).Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrapf(ctx.Err(), "feature extraction timed out after %s", time.Since(start).Round(time.Millisecond))
		}
		var detail string
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			detail = string(exitErr.Stderr)
		}
		// the extractor may still have printed an {"error": ...} body
		var f Features
		if jerr := json.Unmarshal(out, &f); jerr == nil && f.Error != "" {
			return nil, errors.Newf("extractor reported: %s", f.Error)
		}
		return nil, errors.Wrapf(err, "feature extractor failed: %s", detail)
	}

	var f Features
	if err := json.Unmarshal(out, &f); err != nil {
		return nil, errors.Wrapf(err, "invalid json from extractor: %.200s", string(out))
	}
	a.log.Debug().Dur("elapsed", time.Since(start)).Int("sample_rate", f.SampleRate).Msg("extractor finished")
	return &f, nil
}
