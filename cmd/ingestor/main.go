package main

import (
	"bufio"
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"placereviews/internal/adapters/observability"
	"placereviews/internal/app"
	"placereviews/internal/bootstrap"
	"placereviews/internal/shared"
	mysqlrepo "placereviews/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	observability.Serve(cfg.MetricsAddr)

	urls, err := ingestURLs(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.IngestURLsFile).Msg("read url list failed")
	}
	if len(urls) == 0 {
		log.Fatal().Msg("nothing to ingest; set INGEST_URLS or INGEST_URLS_FILE")
	}

	runID := uuid.NewString()
	log.Info().
		Str("run_id", runID).
		Int("places", len(urls)).
		Int("workers", cfg.Workers).
		Int("reviews", cfg.ReviewCount).
		Msg("ingestor starting")

	db, err := bootstrap.MySQL(ctx, cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("database init failed")
	}
	defer db.Close()
	log.Info().Msg("db ping ok")

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
	}

	ing := app.NewIngestionService(svc, mysqlrepo.New(db), bootstrap.AsCache(cache))
	failed := ing.Run(ctx, runID, urls, cfg.Workers, cfg.ReviewCount)

	ev := log.Info()
	if failed > 0 {
		ev = log.Warn()
	}
	ev.Str("run_id", runID).
		Int("places", len(urls)).
		Int("failed", failed).
		Msg("ingestion completed")
}

// ingestURLs merges INGEST_URLS with the non-blank, non-comment lines of
// INGEST_URLS_FILE.
func ingestURLs(cfg shared.Config) ([]string, error) {
	urls := append([]string(nil), cfg.IngestURLs...)
	if cfg.IngestURLsFile == "" {
		return urls, nil
	}
	f, err := os.Open(cfg.IngestURLsFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, sc.Err()
}
