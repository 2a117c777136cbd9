// Package pwbrowser is the Playwright-backed alternative to the chrome
// adapter. It needs the Playwright driver installed (playwright install).
package pwbrowser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog/log"

	"placereviews/internal/domain"
)

type Options struct {
	Headless   bool
	UserAgent  string
	Width      int
	Height     int
	NavTimeout time.Duration
}

// Browser holds one Playwright driver, one Chromium and one shared browser
// context.
type Browser struct {
	opts Options

	pw      *playwright.Playwright
	browser playwright.Browser
	bctx    playwright.BrowserContext

	closeOnce sync.Once
}

// Launch starts the driver and the browser. It prefers the installed Chrome
// channel and falls back to the bundled Chromium.
func Launch(opts Options) (*Browser, error) {
	if opts.Width == 0 || opts.Height == 0 {
		opts.Width, opts.Height = 390, 844
	}
	if opts.NavTimeout == 0 {
		opts.NavTimeout = 60 * time.Second
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("%w: playwright run: %v", domain.ErrPage, err)
	}
	launch := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Channel:  playwright.String("chrome"),
		Args:     []string{"--no-sandbox", "--disable-dev-shm-usage", "--disable-blink-features=AutomationControlled"},
	}
	browser, err := pw.Chromium.Launch(launch)
	if err != nil {
		log.Warn().Err(err).Msg("chrome channel unavailable, using bundled chromium")
		launch.Channel = nil
		browser, err = pw.Chromium.Launch(launch)
	}
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("%w: launch: %v", domain.ErrPage, err)
	}

	cOpts := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: opts.Width, Height: opts.Height},
		IsMobile: playwright.Bool(true),
		HasTouch: playwright.Bool(true),
	}
	if opts.UserAgent != "" {
		cOpts.UserAgent = playwright.String(opts.UserAgent)
	}
	bctx, err := browser.NewContext(cOpts)
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("%w: new context: %v", domain.ErrPage, err)
	}
	return &Browser{opts: opts, pw: pw, browser: browser, bctx: bctx}, nil
}

func (b *Browser) NewSurface(ctx context.Context) (domain.Surface, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPage, err)
	}
	page, err := b.bctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("%w: new page: %v", domain.ErrPage, err)
	}
	return &Surface{page: page, navTimeout: b.opts.NavTimeout}, nil
}

func (b *Browser) Close() error {
	var err error
	b.closeOnce.Do(func() {
		err = errors.Join(b.bctx.Close(), b.browser.Close(), b.pw.Stop())
	})
	return err
}

// Surface is one Playwright page. Playwright calls take timeouts rather than
// contexts, so the remaining context deadline is passed as the call timeout.
type Surface struct {
	page       playwright.Page
	navTimeout time.Duration
}

func timeoutMS(ctx context.Context, def time.Duration) *float64 {
	d := def
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < d || d == 0 {
			d = left
		}
	}
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return playwright.Float(float64(d.Milliseconds()))
}

func (s *Surface) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrNavigation, url, err)
	}
	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   timeoutMS(ctx, s.navTimeout),
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrNavigation, url, err)
	}
	return nil
}

func (s *Surface) Title(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.page.Title()
}

func (s *Surface) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	v, err := s.page.Evaluate(`() => document.body ? document.body.innerText : ""`)
	if err != nil {
		return "", err
	}
	t, _ := v.(string)
	return t, nil
}

func (s *Surface) HTML(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.page.Content()
}

func (s *Surface) Count(ctx context.Context, selector string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return s.page.Locator(selector).Count()
}

func (s *Surface) Scroll(ctx context.Context, selector string, dy int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.page.Mouse().Wheel(0, float64(dy)); err != nil {
		return err
	}
	if selector == "" {
		return nil
	}
	_, err := s.page.Evaluate(`([sel, dy]) => {
		const pane = document.querySelector(sel);
		if (pane) pane.scrollTop += dy;
	}`, []any{selector, dy})
	return err
}

func (s *Surface) PressEnd(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.page.Keyboard().Press("End")
}

func (s *Surface) ClickButton(ctx context.Context, label string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	btn := s.page.Locator(fmt.Sprintf(`button:has-text(%q)`, label)).First()
	err := btn.Click(playwright.LocatorClickOptions{Timeout: timeoutMS(ctx, timeout)})
	if errors.Is(err, playwright.ErrTimeout) {
		return domain.ErrElementNotFound
	}
	return err
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
	}
}

func (s *Surface) Close() error {
	return s.page.Close()
}
