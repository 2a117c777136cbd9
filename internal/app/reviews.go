package app

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"placereviews/internal/domain"
	"placereviews/internal/extract"
)

const DefaultReviewCount = 10

// Metrics receives service-level observations. observability.Scrape
// implements it.
type Metrics interface {
	ObserveScrape(op string, err error, dur time.Duration)
	ObserveLoad(reason string, iterations int)
	ObserveExtracted(mode string, n int)
}

type Options struct {
	NavTimeout     time.Duration
	NavRPS         float64 // <= 0 disables throttling
	MaxPages       int
	LoaderMaxIters int
	LoaderStalls   int
}

// ReviewService runs the page workflows behind get_reviews and
// get_place_info on a shared browser session.
type ReviewService struct {
	browser  domain.Browser
	patterns *extract.Patterns
	source   extract.SegmentSource
	loader   *extract.Loader
	norm     *extract.Normalizer
	dialogs  *extract.DismissalPolicy

	limiter    *rate.Limiter
	pages      *semaphore.Weighted
	navTimeout time.Duration

	cache    domain.Cache
	cacheTTL time.Duration
	metrics  Metrics
}

func NewReviewService(b domain.Browser, p *extract.Patterns, src extract.SegmentSource, opts Options) *ReviewService {
	if opts.NavTimeout <= 0 {
		opts.NavTimeout = 60 * time.Second
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 1
	}
	lim := rate.NewLimiter(rate.Inf, 1)
	if opts.NavRPS > 0 {
		lim = rate.NewLimiter(rate.Limit(opts.NavRPS), 1)
	}
	ld := extract.NewLoader(p)
	if opts.LoaderMaxIters > 0 {
		ld.MaxIterations = opts.LoaderMaxIters
	}
	if opts.LoaderStalls > 0 {
		ld.StallLimit = opts.LoaderStalls
	}
	return &ReviewService{
		browser:    b,
		patterns:   p,
		source:     src,
		loader:     ld,
		norm:       extract.NewNormalizer(p),
		dialogs:    extract.NewDismissalPolicy(p),
		limiter:    lim,
		pages:      semaphore.NewWeighted(int64(opts.MaxPages)),
		navTimeout: opts.NavTimeout,
	}
}

// WithCache turns on result caching. A nil cache or non-positive ttl leaves
// it off.
func (s *ReviewService) WithCache(c domain.Cache, ttl time.Duration) *ReviewService {
	if c != nil && ttl > 0 {
		s.cache, s.cacheTTL = c, ttl
	}
	return s
}

func (s *ReviewService) WithMetrics(m Metrics) *ReviewService {
	s.metrics = m
	return s
}

// Loader exposes the scroll loader so callers can tune its pacing.
func (s *ReviewService) Loader() *extract.Loader { return s.loader }

// GetReviews returns up to count reviews in rendered order. Zero matches is
// an empty slice, not an error.
func (s *ReviewService) GetReviews(ctx context.Context, url string, count int) (out []domain.Review, err error) {
	if count < 0 {
		count = 0
	}
	key := reviewsKey(url, count)
	if s.cache != nil {
		var cached []domain.Review
		if ok, _ := s.cache.Get(ctx, key, &cached); ok {
			return cached, nil
		}
	}

	start := time.Now()
	defer func() { s.observe("get_reviews", err, start) }()

	err = s.withPage(ctx, url, func(ctx context.Context, surf domain.Surface) error {
		if _, err := s.dialogs.Run(ctx, surf); err != nil {
			return err
		}
		if err := surf.Wait(ctx, ms(s.patterns.Timing.AfterDialogsMS)); err != nil {
			return err
		}

		res := s.loader.Load(ctx, surf, s.source, count)
		if s.metrics != nil {
			s.metrics.ObserveLoad(res.Reason, res.Iterations)
		}
		if err := surf.Wait(ctx, ms(s.patterns.Timing.AfterLoadMS)); err != nil {
			return err
		}

		segs, err := s.source.Segments(ctx, surf)
		if err != nil {
			return fmt.Errorf("extract reviews: %w", err)
		}
		out = extract.Dedupe(s.norm.Records(segs))
		if len(out) > count {
			out = out[:count]
		}
		log.Info().
			Str("url", url).
			Int("count", len(out)).
			Int("requested", count).
			Int("segments", len(segs)).
			Str("reason", res.Reason).
			Msg("reviews extracted")
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ObserveExtracted(string(s.source.Mode()), len(out))
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, out, int(s.cacheTTL.Seconds()))
	}
	return out, nil
}

// GetPlaceInfo reads the place header. Fields the page doesn't show stay zero.
func (s *ReviewService) GetPlaceInfo(ctx context.Context, url string) (info domain.PlaceInfo, err error) {
	key := placeKey(url)
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &info); ok {
			return info, nil
		}
	}

	start := time.Now()
	defer func() { s.observe("get_place_info", err, start) }()

	err = s.withPage(ctx, url, func(ctx context.Context, surf domain.Surface) error {
		if _, err := s.dialogs.Run(ctx, surf); err != nil {
			return err
		}
		title, err := surf.Title(ctx)
		if err != nil {
			return fmt.Errorf("read title: %w", err)
		}
		body, err := surf.Text(ctx)
		if err != nil {
			return fmt.Errorf("read text: %w", err)
		}
		info = s.patterns.PlaceSummary(title, body)
		return nil
	})
	if err != nil {
		return domain.PlaceInfo{}, err
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, info, int(s.cacheTTL.Seconds()))
	}
	return info, nil
}

// withPage opens a page, navigates to url and hands the settled page to fn.
// The page is closed on every path.
func (s *ReviewService) withPage(ctx context.Context, url string, fn func(context.Context, domain.Surface) error) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrPage, url, err)
	}
	if err := s.pages.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrPage, url, err)
	}
	defer s.pages.Release(1)

	surf, err := s.browser.NewSurface(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrPage) {
			return fmt.Errorf("%s: %w", url, err)
		}
		return fmt.Errorf("%w: %s: %v", domain.ErrPage, url, err)
	}
	defer func() {
		if cerr := surf.Close(); cerr != nil {
			log.Warn().Err(cerr).Str("url", url).Msg("close page failed")
		}
	}()

	navCtx, cancel := context.WithTimeout(ctx, s.navTimeout)
	err = surf.Navigate(navCtx, url)
	cancel()
	if err != nil {
		if errors.Is(err, domain.ErrNavigation) {
			return err
		}
		return fmt.Errorf("%w: %s: %v", domain.ErrNavigation, url, err)
	}
	if err := surf.Wait(ctx, ms(s.patterns.Timing.AfterNavigateMS)); err != nil {
		return err
	}
	return fn(ctx, surf)
}

func (s *ReviewService) observe(op string, err error, start time.Time) {
	if err != nil {
		log.Warn().Err(err).Str("op", op).Msg("scrape failed")
	}
	if s.metrics != nil {
		s.metrics.ObserveScrape(op, err, time.Since(start))
	}
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func urlHash(url string) string {
	sum := sha1.Sum([]byte(url))
	return hex.EncodeToString(sum[:])
}

func reviewsKey(url string, count int) string {
	return "reviews:" + urlHash(url) + ":" + strconv.Itoa(count)
}

func placeKey(url string) string { return "place:" + urlHash(url) }
