package worker

import (
	"context"
	"sort"

	"github.com/Bahadou-Badr/PhantomChain-Audio-Toolkit-Go/internal/analysis"
	"github.com/Bahadou-Badr/PhantomChain-Audio-Toolkit-Go/internal/logging"
	"github.com/Bahadou-Badr/PhantomChain-Audio-Toolkit-Go/internal/queue"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// StemAnalyzer is satisfied by *analysis.Analyzer.
type StemAnalyzer interface {
	Analyze(ctx context.Context, path string) (*analysis.AnalysisResult, error)
}

// StemReport is the per-stem outcome handed to a report sink.
type StemReport struct {
	EventID string
	Stem    string
	Path    string
	Result  *analysis.AnalysisResult
}

// NewStemAnalysisHandler runs the feature extractor over every stem of a
// separation, in stem-name order. report may be nil; results are always logged.
// The first failing stem fails the whole event so the pool retries it.
func NewStemAnalysisHandler(a StemAnalyzer, report func(StemReport)) Handler {
	return func(ctx context.Context, evt queue.SeparationEvent) error {
		stems := make([]string, 0, len(evt.OutputPaths))
		for name := range evt.OutputPaths {
			stems = append(stems, name)
		}
		sort.Strings(stems)

		for _, stem := range stems {
			path := evt.OutputPaths[stem]
			res, err := a.Analyze(ctx, path)
			if err != nil {
				return errors.Wrapf(err, "analyze stem %s of %s", stem, evt.Filename)
			}
			logging.Logger.Info("stem analyzed",
				zap.String("event", evt.ID),
				zap.String("stem", stem),
				zap.String("path", path),
				zap.Float64("tempo", res.Tempo),
				zap.String("key", res.Key),
				zap.Float64("rms", res.RMS),
			)
			if report != nil {
				report(StemReport{EventID: evt.ID, Stem: stem, Path: path, Result: res})
			}
		}
		return nil
	}
}
