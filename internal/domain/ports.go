package domain

import (
	"context"
	"time"
)

// Surface is one live, rendered page.
type Surface interface {
	Navigate(ctx context.Context, url string) error
	Title(ctx context.Context) (string, error)
	// Text returns the visible text of the document body.
	Text(ctx context.Context) (string, error)
	// HTML returns a serialized snapshot of the current DOM.
	HTML(ctx context.Context) (string, error)
	Count(ctx context.Context, selector string) (int, error)
	Scroll(ctx context.Context, selector string, dy int) error
	PressEnd(ctx context.Context) error
	// ClickButton clicks the first button whose text is label. It returns
	// ErrElementNotFound when no such button shows up within timeout.
	ClickButton(ctx context.Context, label string, timeout time.Duration) error
	Wait(ctx context.Context, d time.Duration) error
	Close() error
}

// Browser owns the shared browser/context pair. Pages opened from it share
// cookies and consent state.
type Browser interface {
	NewSurface(ctx context.Context) (Surface, error)
	Close() error
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// SnapshotRepository archives ingest runs.
type SnapshotRepository interface {
	// Write paths
	SavePlace(ctx context.Context, s PlaceSnapshot) error
	SaveReviews(ctx context.Context, runID, url string, rs []Review) error
	LogMiss(ctx context.Context, runID, url, reason string) error

	// Read paths
	LatestReviews(ctx context.Context, url string, limit int) (ReviewsPage, error)
}

type PlaceSnapshot struct {
	RunID string
	URL   string
	Info  PlaceInfo
}

type ReviewsPage struct {
	RunID string   `json:"runId"`
	URL   string   `json:"url"`
	Items []Review `json:"items"`
}
