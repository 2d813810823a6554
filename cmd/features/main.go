package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Bahadou-Badr/PhantomChain-Audio-Toolkit-Go/internal/analysis"
	"github.com/Bahadou-Badr/PhantomChain-Audio-Toolkit-Go/internal/cli"
	"github.com/Bahadou-Badr/PhantomChain-Audio-Toolkit-Go/internal/config"
	"github.com/Bahadou-Badr/PhantomChain-Audio-Toolkit-Go/internal/executor"
	"github.com/Bahadou-Badr/PhantomChain-Audio-Toolkit-Go/internal/logging"
)

// features <audio_file_path>
//
// Prints a JSON feature summary on stdout. Errors are reported in the JSON
// body; the exit status is always 0.
func main() {
	log := logging.NewCLILogger(os.Stderr, os.Getenv("AUDIOFEAT_LOG_LEVEL"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.RunFeatures(ctx, os.Args[1:], os.Stdout, log, func() (cli.FeatureAnalyzer, error) {
		cfg, err := config.LoadFeatures()
		if err != nil {
			return nil, err
		}
		estimator, err := analysis.EstimatorFor(cfg.KeyMethod)
		if err != nil {
			return nil, err
		}
		return analysis.NewAnalyzer(executor.OSExecutor{}, cfg.Extractor, cfg.Timeout, estimator, log)
	})
}
