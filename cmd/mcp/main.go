// Command mcp serves the get_reviews and get_place_info tools over stdio.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"placereviews/internal/adapters/mcpserver"
	"placereviews/internal/adapters/observability"
	"placereviews/internal/bootstrap"
	"placereviews/internal/shared"
)

func main() {
	cfg := shared.Load()

	// stdout is the protocol stream; logs go to stderr
	log.Logger = observability.NewStderrLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	observability.Serve(cfg.MetricsAddr)

	browser, err := bootstrap.Browser(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("browser start failed")
	}
	defer func() {
		if err := browser.Close(); err != nil {
			log.Warn().Err(err).Msg("browser close failed")
		}
	}()

	svc, err := bootstrap.ReviewService(cfg, browser)
	if err != nil {
		log.Fatal().Err(err).Msg("review service init failed")
	}
	if cache := bootstrap.Cache(ctx, cfg); cache != nil {
		defer cache.Close()
		svc.WithCache(cache, cfg.CacheTTL)
	}

	log.Info().Msg("mcp server running on stdio")
	if err := mcpserver.Serve(ctx, mcpserver.New(svc), os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("mcp server failed")
	}
	log.Info().Msg("mcp server stopped")
}
