package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"placereviews/internal/domain"
)

// QueryService serves archived ingest results.
type QueryService struct {
	repo     domain.SnapshotRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(r domain.SnapshotRepository, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{repo: r, cache: c, cacheTTL: ttl}
}

func (s *QueryService) LatestReviews(ctx context.Context, url string, limit int) (domain.ReviewsPage, error) {
	key := fmt.Sprintf("archive:%s:%d", urlHash(url), limit)
	var out domain.ReviewsPage
	if s.cache != nil && s.cacheTTL > 0 {
		if ok, _ := s.cache.Get(ctx, key, &out); ok {
			return out, nil
		}
	}

	rp, err := s.repo.LatestReviews(ctx, url, limit)
	if err != nil {
		return domain.ReviewsPage{}, err
	}

	// copy slice to avoid aliasing the repo's backing array
	cp := deepCopyReviewsPage(rp)

	if s.cache != nil && s.cacheTTL > 0 {
		// optional size guard
		if b, _ := json.Marshal(cp); len(b) < 1_000_000 {
			_ = s.cache.Set(ctx, key, cp, int(s.cacheTTL.Seconds()))
		}
	}
	return cp, nil
}

func deepCopyReviewsPage(in domain.ReviewsPage) domain.ReviewsPage {
	out := domain.ReviewsPage{RunID: in.RunID, URL: in.URL, Items: []domain.Review{}}
	if n := len(in.Items); n > 0 {
		out.Items = make([]domain.Review, n)
		copy(out.Items, in.Items)
	}
	return out
}
