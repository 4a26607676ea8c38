package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"

	"outfitlens/internal/app"
	"outfitlens/internal/infra"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build api")
	}
	defer srv.Close()

	var workers sync.WaitGroup
	if cfg.GenerationInline {
		workers.Add(1)
		go func() {
			defer workers.Done()
			if err := srv.Worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("worker: stopped with error")
			}
		}()
	} else {
		logger.Info().Msg("generation worker disabled, run cmd/worker separately")
	}

	server := infra.NewHTTPServer(cfg, srv.Handler)
	go func() {
		if addr, ok := <-server.Ready(); ok {
			logger.Info().Str("addr", addr.String()).Msg("api listening")
		}
	}()
	if err := server.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("http server failed")
		stop()
	}

	workers.Wait()
	logger.Info().Msg("server stopped")
}
