package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Bahadou-Badr/PhantomChain-Audio-Toolkit-Go/internal/analysis"
	"github.com/Bahadou-Badr/PhantomChain-Audio-Toolkit-Go/internal/config"
	"github.com/Bahadou-Badr/PhantomChain-Audio-Toolkit-Go/internal/executor"
	"github.com/Bahadou-Badr/PhantomChain-Audio-Toolkit-Go/internal/logging"
	"github.com/Bahadou-Badr/PhantomChain-Audio-Toolkit-Go/internal/worker"

	"github.com/rs/zerolog/log"
)

// worker consumes separation events and runs the feature extractor over
// every stem that was produced.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wcfg, err := config.LoadWorker()
	if err != nil {
		log.Fatal().Err(err).Msg("worker config")
	}
	fcfg, err := config.LoadFeatures()
	if err != nil {
		log.Fatal().Err(err).Msg("extractor config")
	}
	estimator, err := analysis.EstimatorFor(fcfg.KeyMethod)
	if err != nil {
		log.Fatal().Err(err).Msg("key estimator")
	}

	analyzer, err := analysis.NewAnalyzer(executor.OSExecutor{}, fcfg.Extractor, fcfg.Timeout, estimator,
		logging.NewCLILogger(os.Stderr, fcfg.LogLevel))
	if err != nil {
		log.Fatal().Err(err).Msg("analyzer setup failed")
	}

	pool, err := worker.RunWorker(ctx, wcfg, worker.NewStemAnalysisHandler(analyzer, nil))
	if err != nil {
		log.Fatal().Err(err).Msg("worker start failed")
	}
	log.Info().Str("nats", wcfg.NatsURL).Str("subject", wcfg.NatsSubject).Msg("worker running")

	<-ctx.Done()
	log.Info().Msg("shutdown requested")
	pool.Stop() // waits for in-flight jobs
	log.Info().Msg("worker stopped")
}
