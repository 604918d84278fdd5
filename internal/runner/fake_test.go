package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/zinc-sig/asksnap/internal/browser"
)

// fakeEngine hands out fakeSessions and records how many are open at once.
type fakeEngine struct {
	mu        sync.Mutex
	sessions  []*fakeSession
	launchErr error
	configure func(s *fakeSession)

	active    atomic.Int32
	maxActive atomic.Int32
	started   atomic.Int32
	stopped   atomic.Int32
}

func (e *fakeEngine) Name() string       { return "fake" }
func (e *fakeEngine) Kind() browser.Kind { return browser.Chrome }

func (e *fakeEngine) Start(ctx context.Context) error {
	e.started.Add(1)
	return ctx.Err()
}

func (e *fakeEngine) Stop() error {
	e.stopped.Add(1)
	return nil
}

func (e *fakeEngine) Launch(ctx context.Context, opts browser.LaunchOptions) (browser.Session, error) {
	if e.launchErr != nil {
		return nil, e.launchErr
	}
	s := &fakeSession{engine: e, contentHeight: 800, viewportHeight: 1080}
	if e.configure != nil {
		e.configure(s)
	}

	n := e.active.Add(1)
	for {
		peak := e.maxActive.Load()
		if n <= peak || e.maxActive.CompareAndSwap(peak, n) {
			break
		}
	}

	e.mu.Lock()
	e.sessions = append(e.sessions, s)
	e.mu.Unlock()
	return s, nil
}

func (e *fakeEngine) all() []*fakeSession {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*fakeSession(nil), e.sessions...)
}

type fakeSession struct {
	engine *fakeEngine

	mu     sync.Mutex
	calls  []string
	closed bool

	navigateErr    error
	fillErr        error
	panicOnFill    bool
	contentHeight  int
	viewportHeight int
	typed          string
	resizedTo      [2]int
}

func (s *fakeSession) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

func (s *fakeSession) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *fakeSession) Navigate(ctx context.Context, url string) error {
	s.record("navigate " + url)
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.navigateErr
}

func (s *fakeSession) Fill(ctx context.Context, selector, text string) error {
	s.record("fill " + selector)
	if s.panicOnFill {
		panic("driver crashed")
	}
	if s.fillErr != nil {
		return s.fillErr
	}
	s.typed = text
	return nil
}

func (s *fakeSession) Click(ctx context.Context, selector string) error {
	s.record("click " + selector)
	return nil
}

func (s *fakeSession) PressEnter(ctx context.Context, selector string) error {
	s.record("enter " + selector)
	return nil
}

func (s *fakeSession) Dimensions(ctx context.Context) (int, int, error) {
	s.record("dimensions")
	return s.contentHeight, s.viewportHeight, nil
}

func (s *fakeSession) Resize(ctx context.Context, width, height int) error {
	s.record(fmt.Sprintf("resize %dx%d", width, height))
	s.resizedTo = [2]int{width, height}
	return nil
}

func (s *fakeSession) Screenshot(ctx context.Context, path string) error {
	s.record("screenshot")
	return os.WriteFile(path, []byte("png"), 0644)
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("already closed")
	}
	s.closed = true
	s.calls = append(s.calls, "close")
	s.engine.active.Add(-1)
	return nil
}

func (s *fakeSession) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
