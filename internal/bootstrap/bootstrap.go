// Package bootstrap builds the runtime pieces shared by the binaries from a
// shared.Config.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"placereviews/internal/adapters/chrome"
	"placereviews/internal/adapters/observability"
	"placereviews/internal/adapters/pwbrowser"
	redisad "placereviews/internal/adapters/redis"
	"placereviews/internal/app"
	"placereviews/internal/domain"
	"placereviews/internal/extract"
	"placereviews/internal/shared"
)

const (
	viewportWidth  = 390
	viewportHeight = 844
)

// Browser starts the configured driver.
func Browser(cfg shared.Config) (domain.Browser, error) {
	switch cfg.BrowserDriver {
	case shared.DriverPlaywright:
		return pwbrowser.Launch(pwbrowser.Options{
			Headless:   cfg.Headless,
			UserAgent:  cfg.UserAgent,
			Width:      viewportWidth,
			Height:     viewportHeight,
			NavTimeout: cfg.NavTimeout,
		})
	default:
		return chrome.New(chrome.Options{
			Headless:  cfg.Headless,
			UserAgent: cfg.UserAgent,
			Width:     viewportWidth,
			Height:    viewportHeight,
		}), nil
	}
}

// ReviewService wires patterns, the segment source and metrics around b.
func ReviewService(cfg shared.Config, b domain.Browser) (*app.ReviewService, error) {
	p, err := extract.LoadPatterns(cfg.PatternsFile)
	if err != nil {
		return nil, err
	}
	src, err := extract.NewSource(extract.Mode(cfg.ExtractMode), p)
	if err != nil {
		return nil, err
	}
	svc := app.NewReviewService(b, p, src, app.Options{
		NavTimeout:     cfg.NavTimeout,
		NavRPS:         cfg.NavRPS,
		MaxPages:       cfg.MaxPages,
		LoaderMaxIters: cfg.LoaderMaxIters,
		LoaderStalls:   cfg.LoaderStalls,
	}).WithMetrics(observability.Scrape{})

	log.Info().
		Str("driver", cfg.BrowserDriver).
		Str("mode", string(src.Mode())).
		Str("patterns", p.Version).
		Int("max_pages", cfg.MaxPages).
		Msg("review service ready")
	return svc, nil
}

// Cache returns the Redis cache, or nil when caching is off or Redis does
// not answer.
func Cache(ctx context.Context, cfg shared.Config) *redisad.Cache {
	if !cfg.CacheEnabled() {
		return nil
	}
	c := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := c.Ping(pctx); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable, caching disabled")
		_ = c.Close()
		return nil
	}
	log.Info().Str("addr", cfg.RedisAddr).Dur("ttl", cfg.CacheTTL).Msg("redis cache enabled")
	return c
}

// AsCache keeps a nil *redisad.Cache from becoming a non-nil interface.
func AsCache(c *redisad.Cache) domain.Cache {
	if c == nil {
		return nil
	}
	return c
}

// MySQL opens and pings the archive database.
func MySQL(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("MYSQL_DSN is not set")
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db.Ping: %w", err)
	}
	return db, nil
}
