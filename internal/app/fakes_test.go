package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"placereviews/internal/domain"
)

// ---- fakes ----

type fakeSurface struct {
	title  string
	text   string
	html   string
	navErr error

	navigated []string
	closed    bool
}

func (f *fakeSurface) Navigate(ctx context.Context, url string) error {
	f.navigated = append(f.navigated, url)
	return f.navErr
}
func (f *fakeSurface) Title(ctx context.Context) (string, error) { return f.title, nil }
func (f *fakeSurface) Text(ctx context.Context) (string, error)  { return f.text, nil }
func (f *fakeSurface) HTML(ctx context.Context) (string, error)  { return f.html, nil }
func (f *fakeSurface) Count(ctx context.Context, selector string) (int, error) {
	return 0, nil
}
func (f *fakeSurface) Scroll(ctx context.Context, selector string, dy int) error { return nil }
func (f *fakeSurface) PressEnd(ctx context.Context) error                        { return nil }
func (f *fakeSurface) ClickButton(ctx context.Context, label string, timeout time.Duration) error {
	return domain.ErrElementNotFound
}
func (f *fakeSurface) Wait(ctx context.Context, d time.Duration) error { return ctx.Err() }
func (f *fakeSurface) Close() error                                    { f.closed = true; return nil }

type fakeBrowser struct {
	mu      sync.Mutex
	page    func() *fakeSurface
	openErr error
	opened  []*fakeSurface
}

func (b *fakeBrowser) NewSurface(ctx context.Context) (domain.Surface, error) {
	if b.openErr != nil {
		return nil, b.openErr
	}
	s := b.page()
	b.mu.Lock()
	b.opened = append(b.opened, s)
	b.mu.Unlock()
	return s, nil
}
func (b *fakeBrowser) Close() error { return nil }

// fakeCache round-trips through JSON like the Redis adapter does.
type fakeCache struct {
	store map[string][]byte
	dels  []string
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}
func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	c.store[key] = b
	return err
}
func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.dels = append(c.dels, key)
	delete(c.store, key)
	return nil
}

type fakeRepo struct {
	mu      sync.Mutex
	places  []domain.PlaceSnapshot
	reviews map[string][]domain.Review
	misses  []string
	saveErr error
	missErr error
	page    domain.ReviewsPage
}

func (r *fakeRepo) SavePlace(ctx context.Context, s domain.PlaceSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.places = append(r.places, s)
	return nil
}
func (r *fakeRepo) SaveReviews(ctx context.Context, runID, url string, rs []domain.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	if r.reviews == nil {
		r.reviews = map[string][]domain.Review{}
	}
	r.reviews[url] = rs
	return nil
}
func (r *fakeRepo) LogMiss(ctx context.Context, runID, url, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.missErr != nil {
		return r.missErr
	}
	r.misses = append(r.misses, url+" "+reason)
	return nil
}
func (r *fakeRepo) LatestReviews(ctx context.Context, url string, limit int) (domain.ReviewsPage, error) {
	if r.page.URL != url {
		return domain.ReviewsPage{}, domain.ErrNotFound
	}
	return r.page, nil
}

type fakeScraper struct {
	info       domain.PlaceInfo
	reviews    []domain.Review
	placeErr   error
	reviewsErr error
}

func (f *fakeScraper) GetReviews(ctx context.Context, url string, count int) ([]domain.Review, error) {
	return f.reviews, f.reviewsErr
}
func (f *fakeScraper) GetPlaceInfo(ctx context.Context, url string) (domain.PlaceInfo, error) {
	return f.info, f.placeErr
}

var errBoom = errors.New("boom")
