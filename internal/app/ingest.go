package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"placereviews/internal/domain"
)

// Scraper is the read side the ingestor archives from.
type Scraper interface {
	GetReviews(ctx context.Context, url string, count int) ([]domain.Review, error)
	GetPlaceInfo(ctx context.Context, url string) (domain.PlaceInfo, error)
}

type IngestionService struct {
	scraper Scraper
	repo    domain.SnapshotRepository
	cache   domain.Cache
}

func NewIngestionService(s Scraper, r domain.SnapshotRepository, cache domain.Cache) *IngestionService {
	return &IngestionService{scraper: s, repo: r, cache: cache}
}

// IngestPlace archives one place under runID. Page-level failures are
// recorded as misses and don't fail the call; storage errors do.
func (s *IngestionService) IngestPlace(ctx context.Context, runID, url string, reviewCount int) error {
	// Drop cached results so the run archives what the page shows now.
	if s.cache != nil {
		s.invalidate(ctx, url, reviewCount)
	}

	info, err := s.scraper.GetPlaceInfo(ctx, url)
	if err != nil {
		if isPageMiss(err) {
			s.logMiss(ctx, runID, url, "place: "+err.Error())
			return nil
		}
		return err
	}
	if err := s.repo.SavePlace(ctx, domain.PlaceSnapshot{RunID: runID, URL: url, Info: info}); err != nil {
		return fmt.Errorf("save place %s: %w", url, err)
	}

	revs, err := s.scraper.GetReviews(ctx, url, reviewCount)
	if err != nil {
		if isPageMiss(err) {
			s.logMiss(ctx, runID, url, "reviews: "+err.Error())
			return nil
		}
		return err
	}
	if len(revs) == 0 {
		s.logMiss(ctx, runID, url, "reviews: none rendered")
		return nil
	}
	if err := s.repo.SaveReviews(ctx, runID, url, revs); err != nil {
		// do not swallow; a partial archive is worse than a failed place
		return fmt.Errorf("save reviews for %s: %w", url, err)
	}
	return nil
}

// Run ingests urls with at most workers places in flight and returns how
// many failed.
func (s *IngestionService) Run(ctx context.Context, runID string, urls []string, workers, reviewCount int) int {
	if workers < 1 {
		workers = 1
	}
	sem := semaphore.NewWeighted(int64(workers))
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
	)

	for _, url := range urls {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Warn().Err(err).Msg("ingest interrupted")
			break
		}

		wg.Add(1)
		go func(url string) {
			defer wg.Done()
			defer sem.Release(1)

			if err := s.IngestPlace(ctx, runID, url, reviewCount); err != nil {
				log.Warn().Str("url", url).Err(err).Msg("ingest failed")
				mu.Lock()
				failed++
				mu.Unlock()
				return
			}
			log.Info().Str("url", url).Msg("ingest ok")
		}(url)
	}

	wg.Wait()
	return failed
}

// logMiss records a page-level miss. A failed write is logged, not returned;
// the place itself is still done.
func (s *IngestionService) logMiss(ctx context.Context, runID, url, reason string) {
	if err := s.repo.LogMiss(ctx, runID, url, reason); err != nil {
		log.Warn().Err(err).Str("run_id", runID).Str("url", url).Str("reason", reason).Msg("record miss failed")
	}
}

func (s *IngestionService) invalidate(ctx context.Context, url string, reviewCount int) {
	_ = s.cache.Del(ctx, placeKey(url))
	_ = s.cache.Del(ctx, reviewsKey(url, reviewCount))
	if reviewCount != DefaultReviewCount {
		_ = s.cache.Del(ctx, reviewsKey(url, DefaultReviewCount))
	}
}

func isPageMiss(err error) bool {
	return errors.Is(err, domain.ErrNavigation) || errors.Is(err, domain.ErrPage)
}
