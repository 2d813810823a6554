package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Bahadou-Badr/PhantomChain-Audio-Toolkit-Go/internal/config"
	"github.com/Bahadou-Badr/PhantomChain-Audio-Toolkit-Go/internal/server"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.LoadServer()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	// listen for SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.RunAPIServer(ctx, server.APIServerConfig{Server: cfg})
	if err != nil {
		log.Fatal().Err(err).Msg("api server failed to start")
	}

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")
	srv.Wait()
	log.Info().Msg("server stopped")
}
