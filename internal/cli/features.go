package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/Bahadou-Badr/PhantomChain-Audio-Toolkit-Go/internal/analysis"
	"github.com/rs/zerolog"
)

const errNoAudioFile = "No audio file provided"

// FeatureAnalyzer is satisfied by *analysis.Analyzer.
type FeatureAnalyzer interface {
	Analyze(ctx context.Context, path string) (*analysis.AnalysisResult, error)
}

// RunFeatures implements the features command. Exactly one JSON object is
// written to stdout, a result or {"error": ...}; failures are never reported
// through the return value so callers always exit 0. newAnalyzer is only
// called once an audio path is present.
func RunFeatures(ctx context.Context, args []string, stdout io.Writer, log zerolog.Logger, newAnalyzer func() (FeatureAnalyzer, error)) {
	if len(args) == 0 {
		writeError(stdout, errNoAudioFile)
		return
	}
	path := args[0]

	a, err := newAnalyzer()
	if err != nil {
		log.Error().Err(err).Msg("analyzer setup failed")
		writeError(stdout, err.Error())
		return
	}

	res, err := a.Analyze(ctx, path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("analysis failed")
		writeError(stdout, err.Error())
		return
	}

	b, err := json.Marshal(res)
	if err != nil {
		writeError(stdout, err.Error())
		return
	}
	_, _ = fmt.Fprintln(stdout, string(b))
}

// writeError prints {"error": "<msg>"} with the spacing the downstream
// consumers already match on.
func writeError(w io.Writer, msg string) {
	quoted, err := json.Marshal(msg)
	if err != nil {
		quoted = []byte(`"unknown error"`)
	}
	_, _ = fmt.Fprintf(w, "{\"error\": %s}\n", quoted)
}
