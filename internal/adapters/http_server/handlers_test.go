package httpserver_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	httpserver "placereviews/internal/adapters/http_server"
	"placereviews/internal/domain"
)

// ---- fakes ----

type fakeScraper struct {
	reviews   []domain.Review
	info      domain.PlaceInfo
	err       error
	lastCount int
}

func (f *fakeScraper) GetReviews(ctx context.Context, url string, count int) ([]domain.Review, error) {
	f.lastCount = count
	return f.reviews, f.err
}
func (f *fakeScraper) GetPlaceInfo(ctx context.Context, url string) (domain.PlaceInfo, error) {
	return f.info, f.err
}

type fakeArchive struct{ page domain.ReviewsPage }

func (a *fakeArchive) LatestReviews(ctx context.Context, url string, limit int) (domain.ReviewsPage, error) {
	if url != a.page.URL {
		return domain.ReviewsPage{}, domain.ErrNotFound
	}
	return a.page, nil
}

func newServer(s *fakeScraper, a httpserver.ArchiveReader) http.Handler {
	srv := httpserver.New(5 * time.Second)
	srv.MountHandlers(&httpserver.Handlers{S: s, Archive: a})
	return srv.Mux()
}

func get(t *testing.T, h http.Handler, target string, hdr ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// ---- tests ----

func TestGetReviews_OK(t *testing.T) {
	s := &fakeScraper{reviews: []domain.Review{{Name: "Ann Lee", Rating: 5, Text: "Lovely staff", Date: "1 week ago"}}}
	h := newServer(s, nil)

	rr := get(t, h, "/v1/reviews?url=https%3A%2F%2Fmaps.example%2Fp&count=3")
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
	}
	if s.lastCount != 3 {
		t.Fatalf("count not forwarded: %d", s.lastCount)
	}
	var out []domain.Review
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 || out[0].Name != "Ann Lee" {
		t.Fatalf("unexpected body: %+v", out)
	}

	// Same ETag -> 304
	etag := rr.Header().Get("ETag")
	if rr2 := get(t, h, "/v1/reviews?url=https%3A%2F%2Fmaps.example%2Fp&count=3", "If-None-Match", etag); rr2.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", rr2.Code)
	}
}

func TestGetReviews_DefaultCount(t *testing.T) {
	s := &fakeScraper{reviews: []domain.Review{}}
	rr := get(t, newServer(s, nil), "/v1/reviews?url=u")
	if rr.Code != http.StatusOK || s.lastCount != 10 {
		t.Fatalf("status %d count %d", rr.Code, s.lastCount)
	}
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Fatalf("empty result should be [], got %q", rr.Body.String())
	}
}

func TestGetReviews_BadInput(t *testing.T) {
	h := newServer(&fakeScraper{}, nil)
	for _, target := range []string{
		"/v1/reviews",
		"/v1/reviews?url=u&count=abc",
		"/v1/reviews?url=u&count=-1",
		"/v1/reviews?url=u&count=100000",
		"/v1/place",
	} {
		rr := get(t, h, target)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: status %d", target, rr.Code)
		}
		if ct := rr.Header().Get("Content-Type"); ct != "application/problem+json" {
			t.Fatalf("%s: content-type %q", target, ct)
		}
	}
}

func TestScrapeFailureIs502(t *testing.T) {
	s := &fakeScraper{err: fmt.Errorf("%w: u: net::ERR_NAME_NOT_RESOLVED", domain.ErrNavigation)}
	h := newServer(s, nil)
	for _, target := range []string{"/v1/reviews?url=u", "/v1/place?url=u"} {
		rr := get(t, h, target)
		if rr.Code != http.StatusBadGateway {
			t.Fatalf("%s: status %d", target, rr.Code)
		}
		var p struct {
			Title  string `json:"title"`
			Status int    `json:"status"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &p); err != nil || p.Status != 502 {
			t.Fatalf("bad problem body %q (%v)", rr.Body.String(), err)
		}
	}
}

func TestGetPlace_OK(t *testing.T) {
	s := &fakeScraper{info: domain.PlaceInfo{Name: "Joe's Pizza", Rating: 4.5, ReviewCount: 1234}}
	rr := get(t, newServer(s, nil), "/v1/place?url=u")
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var info domain.PlaceInfo
	if err := json.Unmarshal(rr.Body.Bytes(), &info); err != nil || info != s.info {
		t.Fatalf("got %+v (%v)", info, err)
	}
	if !strings.Contains(rr.Body.String(), `"reviewCount":1234`) {
		t.Fatalf("expected camelCase reviewCount: %s", rr.Body.String())
	}
}

func TestArchiveRoute(t *testing.T) {
	if rr := get(t, newServer(&fakeScraper{}, nil), "/v1/archive/reviews?url=u"); rr.Code != http.StatusNotFound && rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("archive route should not be mounted without a reader, got %d", rr.Code)
	}

	a := &fakeArchive{page: domain.ReviewsPage{RunID: "run-1", URL: "u", Items: []domain.Review{{Name: "Ann Lee"}}}}
	h := newServer(&fakeScraper{}, a)
	rr := get(t, h, "/v1/archive/reviews?url=u&limit=5")
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var page domain.ReviewsPage
	if err := json.Unmarshal(rr.Body.Bytes(), &page); err != nil || page.RunID != "run-1" || len(page.Items) != 1 {
		t.Fatalf("got %+v (%v)", page, err)
	}
	if rr := get(t, h, "/v1/archive/reviews?url=other"); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown url: status %d", rr.Code)
	}
}

func TestHealthz(t *testing.T) {
	if rr := get(t, newServer(&fakeScraper{}, nil), "/healthz"); rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rr.Code, rr.Body.String())
	}
}
