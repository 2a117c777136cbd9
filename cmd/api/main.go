package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	server "placereviews/internal/adapters/http_server"
	"placereviews/internal/adapters/observability"
	"placereviews/internal/app"
	"placereviews/internal/bootstrap"
	"placereviews/internal/shared"
	mysqlrepo "placereviews/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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
	cache := bootstrap.Cache(ctx, cfg)
	if cache != nil {
		defer cache.Close()
		svc.WithCache(cache, cfg.CacheTTL)
	}

	h := &server.Handlers{S: svc}
	if cfg.MySQLDSN != "" {
		db, err := bootstrap.MySQL(ctx, cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("database init failed")
		}
		defer db.Close()
		log.Info().Msg("database connection ok")
		h.Archive = app.NewQueryService(mysqlrepo.New(db), bootstrap.AsCache(cache), cfg.CacheTTL)
	}

	// http; the request deadline has to cover navigation plus scrolling
	srv := server.New(cfg.NavTimeout + 2*time.Minute)
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(h)

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(sctx)
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}
