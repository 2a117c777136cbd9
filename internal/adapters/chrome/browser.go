// Package chrome drives a local Chrome through the DevTools protocol.
package chrome

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/rs/zerolog/log"

	"placereviews/internal/domain"
)

type Options struct {
	Headless  bool
	UserAgent string
	Width     int64
	Height    int64
}

// Browser is one Chrome process. Tabs opened from it share cookies, so a
// consent banner dismissed once stays dismissed.
type Browser struct {
	opts Options

	allocCtx     context.Context
	browserCtx   context.Context
	cancelAlloc  context.CancelFunc
	cancelBrowse context.CancelFunc

	startOnce sync.Once
	started   chan struct{}
	startErr  error

	closeOnce sync.Once
}

// New prepares the allocator. Chrome itself starts with the first surface.
func New(opts Options) *Browser {
	if opts.Width == 0 || opts.Height == 0 {
		opts.Width, opts.Height = 390, 844
	}
	flags := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(int(opts.Width), int(opts.Height)),
	)
	if opts.UserAgent != "" {
		flags = append(flags, chromedp.UserAgent(opts.UserAgent))
	}

	b := &Browser{opts: opts, started: make(chan struct{})}
	b.allocCtx, b.cancelAlloc = chromedp.NewExecAllocator(context.Background(), flags...)
	b.browserCtx, b.cancelBrowse = chromedp.NewContext(b.allocCtx,
		chromedp.WithLogf(func(f string, a ...any) { log.Debug().Msgf(f, a...) }),
	)
	return b
}

func (b *Browser) NewSurface(ctx context.Context) (domain.Surface, error) {
	if err := b.browserCtx.Err(); err != nil {
		return nil, fmt.Errorf("%w: browser closed", domain.ErrPage)
	}
	if err := b.start(ctx); err != nil {
		return nil, fmt.Errorf("%w: start browser: %v", domain.ErrPage, err)
	}
	tab, cancel := chromedp.NewContext(b.browserCtx)

	// The first Run on a tab context creates the target; it must not run under
	// a derived context or the tab dies with it.
	errc := make(chan error, 1)
	go func() {
		errc <- chromedp.Run(tab, chromedp.EmulateViewport(b.opts.Width, b.opts.Height,
			chromedp.EmulateMobile, chromedp.EmulateTouch))
	}()
	select {
	case err := <-errc:
		if err != nil {
			cancel()
			return nil, fmt.Errorf("%w: open tab: %v", domain.ErrPage, err)
		}
	case <-ctx.Done():
		cancel()
		return nil, fmt.Errorf("%w: open tab: %v", domain.ErrPage, ctx.Err())
	}
	return &Surface{tab: tab, cancel: cancel}, nil
}

// start launches Chrome on the browser context itself, once. Tabs created
// afterwards attach to that process instead of allocating their own.
func (b *Browser) start(ctx context.Context) error {
	b.startOnce.Do(func() {
		go func() {
			b.startErr = chromedp.Run(b.browserCtx)
			close(b.started)
		}()
	})
	select {
	case <-b.started:
		return b.startErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Browser) Close() error {
	b.closeOnce.Do(func() {
		b.cancelBrowse()
		b.cancelAlloc()
	})
	return nil
}

// Surface is one Chrome tab.
type Surface struct {
	tab    context.Context
	cancel context.CancelFunc
}

// run executes actions on the tab under the caller's deadline and
// cancellation.
func (s *Surface) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.tab)
	defer cancel()
	if dl, ok := ctx.Deadline(); ok {
		var cancelDL context.CancelFunc
		runCtx, cancelDL = context.WithDeadline(runCtx, dl)
		defer cancelDL()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (s *Surface) Navigate(ctx context.Context, url string) error {
	if err := s.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrNavigation, url, err)
	}
	return nil
}

func (s *Surface) Title(ctx context.Context) (string, error) {
	var t string
	err := s.run(ctx, chromedp.Title(&t))
	return t, err
}

func (s *Surface) Text(ctx context.Context) (string, error) {
	var t string
	err := s.run(ctx, chromedp.Evaluate(`document.body ? document.body.innerText : ""`, &t))
	return t, err
}

func (s *Surface) HTML(ctx context.Context) (string, error) {
	var h string
	err := s.run(ctx, chromedp.OuterHTML("html", &h, chromedp.ByQuery))
	return h, err
}

func (s *Surface) Count(ctx context.Context, selector string) (int, error) {
	sel, _ := json.Marshal(selector)
	var n int
	err := s.run(ctx, chromedp.Evaluate(fmt.Sprintf(`document.querySelectorAll(%s).length`, sel), &n))
	return n, err
}

// Scroll moves both the window and, when present, the element matching
// selector; the reviews list lives in its own scroll container.
func (s *Surface) Scroll(ctx context.Context, selector string, dy int) error {
	sel, _ := json.Marshal(selector)
	script := fmt.Sprintf(`(() => {
		window.scrollBy(0, %d);
		const pane = %s ? document.querySelector(%s) : null;
		if (pane) pane.scrollTop += %d;
		return true;
	})()`, dy, sel, sel, dy)
	var ok bool
	return s.run(ctx, chromedp.Evaluate(script, &ok))
}

func (s *Surface) PressEnd(ctx context.Context) error {
	return s.run(ctx, chromedp.KeyEvent(kb.End))
}

const clickByTextScript = `((label) => {
	for (const b of document.querySelectorAll('button, [role="button"]')) {
		if ((b.innerText || b.textContent || '').trim() === label) { b.click(); return true; }
	}
	return false;
})(%s)`

// ClickButton polls for a button labelled label until timeout.
func (s *Surface) ClickButton(ctx context.Context, label string, timeout time.Duration) error {
	arg, _ := json.Marshal(label)
	script := fmt.Sprintf(clickByTextScript, arg)
	deadline := time.Now().Add(timeout)
	for {
		var clicked bool
		if err := s.run(ctx, chromedp.Evaluate(script, &clicked)); err != nil {
			return err
		}
		if clicked {
			return nil
		}
		if time.Now().After(deadline) {
			return domain.ErrElementNotFound
		}
		if err := s.Wait(ctx, 250*time.Millisecond); err != nil {
			return err
		}
	}
}

func (s *Surface) Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.tab.Done():
		return fmt.Errorf("%w: tab closed", domain.ErrPage)
	}
}

func (s *Surface) Close() error {
	s.cancel()
	return nil
}
