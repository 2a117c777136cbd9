package extract_test

import (
	"context"
	"time"

	"placereviews/internal/domain"
)

// ---- fake surface ----

type fakeSurface struct {
	title   string
	text    string
	html    string
	counts  []int // successive Count results; the last one repeats
	buttons map[string]bool

	countCalls int
	scrolls    int
	ends       int
	clicks     []string
	closed     bool
}

func (f *fakeSurface) Navigate(ctx context.Context, url string) error { return nil }
func (f *fakeSurface) Title(ctx context.Context) (string, error)      { return f.title, nil }
func (f *fakeSurface) Text(ctx context.Context) (string, error)       { return f.text, nil }
func (f *fakeSurface) HTML(ctx context.Context) (string, error)       { return f.html, nil }

func (f *fakeSurface) Count(ctx context.Context, selector string) (int, error) {
	i := f.countCalls
	f.countCalls++
	if len(f.counts) == 0 {
		return 0, nil
	}
	if i >= len(f.counts) {
		i = len(f.counts) - 1
	}
	return f.counts[i], nil
}

func (f *fakeSurface) Scroll(ctx context.Context, selector string, dy int) error {
	f.scrolls++
	return nil
}

func (f *fakeSurface) PressEnd(ctx context.Context) error { f.ends++; return nil }

func (f *fakeSurface) ClickButton(ctx context.Context, label string, timeout time.Duration) error {
	if f.buttons[label] {
		f.clicks = append(f.clicks, label)
		return nil
	}
	return domain.ErrElementNotFound
}

func (f *fakeSurface) Wait(ctx context.Context, d time.Duration) error { return nil }
func (f *fakeSurface) Close() error                                    { f.closed = true; return nil }

// counterFunc adapts a plain function to extract.Counter.
type counterFunc func() int

func (c counterFunc) Count(ctx context.Context, s domain.Surface) (int, error) { return c(), nil }
