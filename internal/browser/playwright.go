package browser

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/playwright-community/playwright-go"
)

const EnginePlaywright = "playwright"

func init() {
	RegisterEngine(EnginePlaywright, func(kind Kind) (Engine, error) {
		return NewPlaywrightEngine(kind), nil
	})
}

// PlaywrightEngine drives Chromium or Firefox through one shared Playwright
// driver process. Each Launch starts a separate browser process.
type PlaywrightEngine struct {
	kind Kind

	mu      sync.Mutex
	pw      *playwright.Playwright
	started bool
}

// NewPlaywrightEngine creates an engine for kind. Start must be called first.
func NewPlaywrightEngine(kind Kind) *PlaywrightEngine {
	return &PlaywrightEngine{kind: kind}
}

func (e *PlaywrightEngine) Name() string { return EnginePlaywright }

func (e *PlaywrightEngine) Kind() Kind { return e.kind }

func (e *PlaywrightEngine) browserName() string {
	if e.kind == Firefox {
		return "firefox"
	}
	return "chromium"
}

// Start installs the driver and the selected browser if needed, then runs
// the driver.
func (e *PlaywrightEngine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	opts := &playwright.RunOptions{
		Browsers: []string{e.browserName()},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}
	if err := playwright.Install(opts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	e.pw = pw
	e.started = true
	return nil
}

// Launch starts a new browser with one context and one page.
func (e *PlaywrightEngine) Launch(ctx context.Context, opts LaunchOptions) (Session, error) {
	e.mu.Lock()
	pw := e.pw
	e.mu.Unlock()
	if pw == nil {
		return nil, fmt.Errorf("playwright engine not started")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts = opts.withDefaults()

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	}
	browserType := pw.Chromium
	if e.kind == Firefox {
		browserType = pw.Firefox
	} else {
		launchOpts.Args = []string{"--no-sandbox", "--disable-dev-shm-usage", "--disable-gpu"}
	}

	b, err := browserType.Launch(launchOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to launch %s: %w", e.kind, err)
	}

	bctx, err := b.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: opts.Width, Height: opts.Height},
	})
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		_ = b.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	timeoutMs := float64(opts.ElementTimeout.Milliseconds())
	page.SetDefaultTimeout(timeoutMs)

	return &playwrightSession{
		browser:   b,
		context:   bctx,
		page:      page,
		timeoutMs: timeoutMs,
	}, nil
}

// Stop stops the driver process.
func (e *PlaywrightEngine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.started || e.pw == nil {
		return nil
	}
	e.started = false
	pw := e.pw
	e.pw = nil
	if err := pw.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	return nil
}

type playwrightSession struct {
	browser   playwright.Browser
	context   playwright.BrowserContext
	page      playwright.Page
	timeoutMs float64

	closeOnce sync.Once
	closeErr  error
}

func (s *playwrightSession) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.page.Goto(url); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

func (s *playwrightSession) Fill(ctx context.Context, selector, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	el, err := s.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(s.timeoutMs),
	})
	if err != nil {
		return fmt.Errorf("input element %q not found: %w", selector, err)
	}
	if err := el.Fill(text); err != nil {
		return fmt.Errorf("fill failed: %w", err)
	}
	return nil
}

func (s *playwrightSession) Click(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.page.Click(selector, playwright.PageClickOptions{
		Timeout: playwright.Float(s.timeoutMs),
	}); err != nil {
		return fmt.Errorf("click %q failed: %w", selector, err)
	}
	return nil
}

func (s *playwrightSession) PressEnter(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.page.Press(selector, "Enter", playwright.PagePressOptions{
		Timeout: playwright.Float(s.timeoutMs),
	}); err != nil {
		return fmt.Errorf("press enter on %q failed: %w", selector, err)
	}
	return nil
}

func (s *playwrightSession) Dimensions(ctx context.Context) (int, int, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	v, err := s.page.Evaluate(`() => [document.body.scrollHeight, window.innerHeight]`)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read page height: %w", err)
	}
	pair, ok := v.([]interface{})
	if !ok || len(pair) != 2 {
		return 0, 0, fmt.Errorf("unexpected page height result %v", v)
	}
	content, err := toInt(pair[0])
	if err != nil {
		return 0, 0, err
	}
	viewport, err := toInt(pair[1])
	if err != nil {
		return 0, 0, err
	}
	return content, viewport, nil
}

func (s *playwrightSession) Resize(ctx context.Context, width, height int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.page.SetViewportSize(width, height); err != nil {
		return fmt.Errorf("resize failed: %w", err)
	}
	return nil
}

func (s *playwrightSession) Screenshot(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.page.Screenshot(playwright.PageScreenshotOptions{
		Path: playwright.String(path),
	}); err != nil {
		return fmt.Errorf("screenshot failed: %w", err)
	}
	return nil
}

func (s *playwrightSession) Close() error {
	s.closeOnce.Do(func() {
		_ = s.page.Close()
		_ = s.context.Close()
		s.closeErr = s.browser.Close()
	})
	return s.closeErr
}
