package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"placereviews/internal/app"
	"placereviews/internal/domain"
	"placereviews/internal/extract"
)

const threeReviews = "Alice Smith 2 weeks ago Great service and tasty food! " +
	"Bob Lee 1 month ago Slow but friendly staff here. " +
	"Carl Mayer 3 days ago Best tacos in the whole town. "

func newService(t *testing.T, b domain.Browser) *app.ReviewService {
	t.Helper()
	p := extract.DefaultPatterns()
	src, err := extract.NewSource(extract.ModeAuto, p)
	if err != nil {
		t.Fatalf("NewSource: %v", err)
	}
	return app.NewReviewService(b, p, src, app.Options{MaxPages: 2, NavTimeout: time.Second})
}

func TestGetReviews_CapsToCount(t *testing.T) {
	b := &fakeBrowser{page: func() *fakeSurface { return &fakeSurface{text: threeReviews} }}
	svc := newService(t, b)

	got, err := svc.GetReviews(context.Background(), "https://maps.example/place/1", 2)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	want := []domain.Review{
		{Name: "Alice Smith", Rating: 0, Text: "Great service and tasty food!", Date: "2 weeks ago"},
		{Name: "Bob Lee", Rating: 0, Text: "Slow but friendly staff here.", Date: "1 month ago"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d reviews: %+v", len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("review %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if len(b.opened) != 1 || !b.opened[0].closed {
		t.Fatalf("expected exactly one page, closed")
	}
}

func TestGetReviews_ZeroCountIsEmpty(t *testing.T) {
	b := &fakeBrowser{page: func() *fakeSurface { return &fakeSurface{text: threeReviews} }}
	got, err := newService(t, b).GetReviews(context.Background(), "https://maps.example/place/1", 0)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
	if len(b.opened) != 1 || len(b.opened[0].navigated) != 1 {
		t.Fatalf("expected one page load")
	}
}

func TestGetReviews_DedupesRepeatedEntries(t *testing.T) {
	text := "Alice Smith 2 weeks ago Great service and tasty food! " +
		"Alice Smith 2 weeks ago Great service and tasty food! "
	b := &fakeBrowser{page: func() *fakeSurface { return &fakeSurface{text: text} }}
	got, err := newService(t, b).GetReviews(context.Background(), "u", 10)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 review after dedupe, got %+v", got)
	}
}

func TestGetReviews_NavigationFailure(t *testing.T) {
	b := &fakeBrowser{page: func() *fakeSurface { return &fakeSurface{navErr: errBoom} }}
	_, err := newService(t, b).GetReviews(context.Background(), "https://bad.example", 5)
	if !errors.Is(err, domain.ErrNavigation) {
		t.Fatalf("expected ErrNavigation, got %v", err)
	}
	if !b.opened[0].closed {
		t.Fatalf("page must be closed on failure")
	}
}

func TestGetReviews_OpenFailure(t *testing.T) {
	b := &fakeBrowser{openErr: errBoom}
	_, err := newService(t, b).GetReviews(context.Background(), "u", 5)
	if !errors.Is(err, domain.ErrPage) {
		t.Fatalf("expected ErrPage, got %v", err)
	}
}

func TestGetReviews_CacheHit(t *testing.T) {
	b := &fakeBrowser{page: func() *fakeSurface { return &fakeSurface{text: threeReviews} }}
	cache := &fakeCache{}
	svc := newService(t, b).WithCache(cache, time.Minute)

	first, err := svc.GetReviews(context.Background(), "u", 3)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	second, err := svc.GetReviews(context.Background(), "u", 3)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(b.opened) != 1 {
		t.Fatalf("second call should be served from cache, opened %d pages", len(b.opened))
	}
	if len(first) != 3 || len(second) != 3 || first[2] != second[2] {
		t.Fatalf("cached result differs: %+v vs %+v", first, second)
	}
}

func TestGetReviews_CanceledContext(t *testing.T) {
	b := &fakeBrowser{page: func() *fakeSurface { return &fakeSurface{text: threeReviews} }}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newService(t, b).GetReviews(ctx, "u", 3); err == nil {
		t.Fatalf("expected error on canceled context")
	}
	for _, s := range b.opened {
		if !s.closed {
			t.Fatalf("page left open")
		}
	}
}

func TestGetPlaceInfo(t *testing.T) {
	b := &fakeBrowser{page: func() *fakeSurface {
		return &fakeSurface{
			title: "Perry G. Gruman - 127 reviews - Google Maps",
			text:  "Perry G. Gruman\n4.9(127)\nLawyer\n1234 W Kennedy Blvd Tampa, FL 33609",
		}
	}}
	info, err := newService(t, b).GetPlaceInfo(context.Background(), "u")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	want := domain.PlaceInfo{Name: "Perry G. Gruman", Address: "1234 W Kennedy Blvd Tampa, FL 33609", Rating: 4.9, ReviewCount: 127}
	if info != want {
		t.Fatalf("got %+v, want %+v", info, want)
	}
	if !b.opened[0].closed {
		t.Fatalf("page must be closed")
	}
}

func TestGetPlaceInfo_NavigationFailure(t *testing.T) {
	b := &fakeBrowser{page: func() *fakeSurface { return &fakeSurface{navErr: errBoom} }}
	info, err := newService(t, b).GetPlaceInfo(context.Background(), "u")
	if !errors.Is(err, domain.ErrNavigation) || info != (domain.PlaceInfo{}) {
		t.Fatalf("info=%+v err=%v", info, err)
	}
}
