package browser

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

const EngineChromedp = "chromedp"

func init() {
	RegisterEngine(EngineChromedp, func(kind Kind) (Engine, error) {
		return NewChromedpEngine(kind)
	})
}

// ChromedpEngine drives a locally installed Chrome over the DevTools
// protocol. It only supports Chrome.
type ChromedpEngine struct {
	// ExecPath overrides Chrome discovery when set.
	ExecPath string
}

// NewChromedpEngine creates a chromedp engine. Firefox is rejected.
func NewChromedpEngine(kind Kind) (*ChromedpEngine, error) {
	if kind != Chrome {
		return nil, fmt.Errorf("%w: engine %s only drives chrome, got %s", ErrUnsupportedBrowser, EngineChromedp, kind)
	}
	return &ChromedpEngine{ExecPath: os.Getenv("CHROME_PATH")}, nil
}

func (e *ChromedpEngine) Name() string { return EngineChromedp }

func (e *ChromedpEngine) Kind() Kind { return Chrome }

func (e *ChromedpEngine) Start(ctx context.Context) error { return ctx.Err() }

func (e *ChromedpEngine) Stop() error { return nil }

// Launch allocates a new Chrome process. The browser lives until Close, not
// until ctx is done, so sessions can be kept open after a run.
func (e *ChromedpEngine) Launch(ctx context.Context, opts LaunchOptions) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.WindowSize(opts.Width, opts.Height),
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if !opts.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}
	if e.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(e.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	// The first Run starts the browser.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("failed to launch chrome: %w", err)
	}

	return &chromedpSession{
		ctx:           browserCtx,
		cancelBrowser: cancelBrowser,
		cancelAlloc:   cancelAlloc,
		timeout:       opts.ElementTimeout,
	}, nil
}

type chromedpSession struct {
	ctx           context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
	timeout       time.Duration

	closeOnce sync.Once
}

// run executes actions on the browser context, bounded by d and by the
// caller's ctx.
func (s *chromedpSession) run(ctx context.Context, d time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := withTimeout(s.ctx, d)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func (s *chromedpSession) Navigate(ctx context.Context, url string) error {
	if err := s.run(ctx, 0, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

func (s *chromedpSession) Fill(ctx context.Context, selector, text string) error {
	if err := s.run(ctx, s.timeout, chromedp.WaitReady(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("input element %q not found: %w", selector, err)
	}
	if err := s.run(ctx, s.timeout,
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, text, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("fill failed: %w", err)
	}
	return nil
}

func (s *chromedpSession) Click(ctx context.Context, selector string) error {
	if err := s.run(ctx, s.timeout,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.WaitEnabled(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("click %q failed: %w", selector, err)
	}
	return nil
}

func (s *chromedpSession) PressEnter(ctx context.Context, selector string) error {
	if err := s.run(ctx, s.timeout, chromedp.SendKeys(selector, kb.Enter, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("press enter on %q failed: %w", selector, err)
	}
	return nil
}

func (s *chromedpSession) Dimensions(ctx context.Context) (int, int, error) {
	var content, viewport int
	if err := s.run(ctx, s.timeout,
		chromedp.Evaluate(`document.body.scrollHeight`, &content),
		chromedp.Evaluate(`window.innerHeight`, &viewport),
	); err != nil {
		return 0, 0, fmt.Errorf("failed to read page height: %w", err)
	}
	return content, viewport, nil
}

func (s *chromedpSession) Resize(ctx context.Context, width, height int) error {
	if err := s.run(ctx, s.timeout, chromedp.EmulateViewport(int64(width), int64(height))); err != nil {
		return fmt.Errorf("resize failed: %w", err)
	}
	return nil
}

func (s *chromedpSession) Screenshot(ctx context.Context, path string) error {
	var buf []byte
	if err := s.run(ctx, s.timeout, chromedp.CaptureScreenshot(&buf)); err != nil {
		return fmt.Errorf("screenshot failed: %w", err)
	}
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return fmt.Errorf("failed to write screenshot %s: %w", path, err)
	}
	return nil
}

func (s *chromedpSession) Close() error {
	s.closeOnce.Do(func() {
		s.cancelBrowser()
		s.cancelAlloc()
	})
	return nil
}
