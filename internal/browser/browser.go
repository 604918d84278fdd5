// Package browser launches isolated browser sessions for the question runner.
//
// An Engine owns whatever driver process a backend needs; every Launch
// returns a brand new browser with a single page. Sessions are not pooled.
package browser

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Kind is the browser family to launch.
type Kind string

const (
	Chrome  Kind = "chrome"
	Firefox Kind = "firefox"
)

const (
	DefaultWindowWidth    = 1920
	DefaultWindowHeight   = 1080
	DefaultElementTimeout = 10 * time.Second
)

// ErrUnsupportedBrowser is returned for browser kinds an engine cannot drive.
var ErrUnsupportedBrowser = errors.New("unsupported browser")

// ParseKind parses a browser name case-insensitively.
func ParseKind(name string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(name))); k {
	case Chrome, Firefox:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedBrowser, name)
	}
}

// LaunchOptions configure a single browser launch.
type LaunchOptions struct {
	Headless       bool
	Width          int
	Height         int
	ElementTimeout time.Duration
}

func (o LaunchOptions) withDefaults() LaunchOptions {
	if o.Width <= 0 {
		o.Width = DefaultWindowWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultWindowHeight
	}
	if o.ElementTimeout <= 0 {
		o.ElementTimeout = DefaultElementTimeout
	}
	return o
}

// Engine starts browsers of one Kind.
type Engine interface {
	Name() string
	Kind() Kind
	// Start prepares the backend. It is called once before any Launch.
	Start(ctx context.Context) error
	Launch(ctx context.Context, opts LaunchOptions) (Session, error)
	// Stop releases the backend. Sessions still open may be terminated.
	Stop() error
}

// Session is one browser with one page, owned by a single task.
type Session interface {
	Navigate(ctx context.Context, url string) error
	// Fill waits for selector to be present, clears it and types text.
	Fill(ctx context.Context, selector, text string) error
	// Click waits for selector to be clickable and clicks it.
	Click(ctx context.Context, selector string) error
	// PressEnter sends a Return key press to selector.
	PressEnter(ctx context.Context, selector string) error
	// Dimensions returns the document scroll height and the viewport height.
	Dimensions(ctx context.Context) (contentHeight, viewportHeight int, err error)
	Resize(ctx context.Context, width, height int) error
	Screenshot(ctx context.Context, path string) error
	Close() error
}

// EngineFactory creates an engine for kind.
type EngineFactory func(kind Kind) (Engine, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]EngineFactory)
)

// RegisterEngine registers a browser engine under name
func RegisterEngine(name string, factory EngineFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// HasEngine reports whether name is registered.
func HasEngine(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}

// Engines lists registered engine names.
func Engines() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewEngine creates the engine registered under name for browser.
func NewEngine(name, browser string) (Engine, error) {
	kind, err := ParseKind(browser)
	if err != nil {
		return nil, err
	}

	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown browser engine: %s", name)
	}
	return factory(kind)
}

// withTimeout bounds an element wait while still honoring the caller's ctx.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("unexpected numeric value %v (%T)", v, v)
	}
}
