package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zinc-sig/asksnap/internal/browser"
	"github.com/zinc-sig/asksnap/internal/question"
)

const (
	DefaultWorkers     = 3
	DefaultTaskDelay   = 2 * time.Second
	DefaultSettleDelay = 1 * time.Second
)

type Config struct {
	WebsiteURL     string
	InputSelector  string
	SubmitSelector string // empty means press Enter in the input
	Wait           time.Duration
	OutputDir      string
	KeepOpen       bool
	Launch         browser.LaunchOptions

	// TaskDelay separates sequential tasks.
	TaskDelay time.Duration
	// SettleDelay follows a viewport resize before the screenshot.
	SettleDelay time.Duration
}

// Runner submits questions to a page and screenshots the reply.
type Runner struct {
	config  Config
	engine  browser.Engine
	logger  *zap.Logger
	tracker *Tracker

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func New(config Config, engine browser.Engine, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		config:  config,
		engine:  engine,
		logger:  logger,
		tracker: NewTracker(),
		now:     time.Now,
		sleep:   sleepContext,
	}
}

// Tracker exposes the sessions still open after a run.
func (r *Runner) Tracker() *Tracker {
	return r.tracker
}

// Process runs one question end to end in a fresh browser. It never returns
// an error: every failure, including a panic, becomes a failed Result.
func (r *Runner) Process(ctx context.Context, q question.Question) (result Result) {
	start := r.now()
	logger := r.logger.With(zap.Int("ordinal", q.Ordinal))
	result = Result{Ordinal: q.Ordinal, Question: q.Text}

	defer func() {
		if p := recover(); p != nil {
			result.fail(fmt.Errorf("panic: %v", p))
		}
		result.Duration = r.now().Sub(start)
		if !result.Succeeded() {
			logger.Error("question failed", zap.String("error", result.Error))
		}
	}()

	path, err := r.capture(ctx, q, logger)
	if err != nil {
		result.fail(err)
		return result
	}

	result.Status = StatusSuccess
	result.ScreenshotPath = path
	return result
}

func (r *Runner) capture(ctx context.Context, q question.Question, logger *zap.Logger) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	session, err := r.engine.Launch(ctx, r.config.Launch)
	if err != nil {
		return "", err
	}
	r.tracker.Add(session)
	if !r.config.KeepOpen {
		defer func() {
			if err := r.tracker.Release(session); err != nil {
				logger.Warn("failed to close browser", zap.Error(err))
			}
		}()
	}

	logger.Info("processing question", zap.String("question", q.Preview(50)))

	if err := session.Navigate(ctx, r.config.WebsiteURL); err != nil {
		return "", err
	}
	if err := session.Fill(ctx, r.config.InputSelector, q.Text); err != nil {
		return "", err
	}

	if r.config.SubmitSelector != "" {
		err = session.Click(ctx, r.config.SubmitSelector)
	} else {
		err = session.PressEnter(ctx, r.config.InputSelector)
	}
	if err != nil {
		return "", err
	}

	logger.Info("waiting for reply", zap.Duration("wait", r.config.Wait))
	if err := r.sleep(ctx, r.config.Wait); err != nil {
		return "", err
	}

	path := filepath.Join(r.config.OutputDir, question.ScreenshotName(q.Ordinal, r.now()))

	contentHeight, viewportHeight, err := session.Dimensions(ctx)
	if err != nil {
		return "", err
	}
	if contentHeight > viewportHeight {
		width := r.config.Launch.Width
		if width <= 0 {
			width = browser.DefaultWindowWidth
		}
		logger.Debug("enlarging viewport for long page",
			zap.Int("content_height", contentHeight),
			zap.Int("viewport_height", viewportHeight))
		if err := session.Resize(ctx, width, contentHeight); err != nil {
			return "", err
		}
		if err := r.sleep(ctx, r.config.SettleDelay); err != nil {
			return "", err
		}
	}

	if err := session.Screenshot(ctx, path); err != nil {
		return "", err
	}
	logger.Info("screenshot saved", zap.String("path", path))

	return path, nil
}

// RunSequential processes questions one at a time with TaskDelay between them.
func (r *Runner) RunSequential(ctx context.Context, questions []question.Question) []Result {
	results := make([]Result, 0, len(questions))
	for i, q := range questions {
		results = append(results, r.Process(ctx, q))
		if i < len(questions)-1 {
			_ = r.sleep(ctx, r.config.TaskDelay)
		}
	}
	return results
}

// RunParallel processes questions on at most workers goroutines. Results are
// in completion order.
func (r *Runner) RunParallel(ctx context.Context, questions []question.Question, workers int) []Result {
	if workers < 1 {
		workers = 1
	}

	var (
		mu      sync.Mutex
		results = make([]Result, 0, len(questions))
		g       errgroup.Group
	)
	g.SetLimit(workers)

	for _, q := range questions {
		q := q
		g.Go(func() error {
			res := r.Process(ctx, q)
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Run loads the question file and processes it. An empty file yields no
// results and no error; an unreadable file is an error.
func (r *Runner) Run(ctx context.Context, questionsFile string, parallel bool, workers int) ([]Result, error) {
	if err := r.ensureOutputDir(); err != nil {
		return nil, err
	}

	questions, err := question.Load(questionsFile)
	if err != nil {
		r.logger.Error("failed to read question file", zap.String("path", questionsFile), zap.Error(err))
		return nil, err
	}
	if len(questions) == 0 {
		r.logger.Error("question file is empty", zap.String("path", questionsFile))
		return nil, nil
	}
	r.logger.Info("loaded questions", zap.Int("count", len(questions)))

	if err := r.engine.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start %s engine: %w", r.engine.Name(), err)
	}

	defer func() {
		if r.config.KeepOpen {
			return
		}
		if err := r.tracker.CloseAll(); err != nil {
			r.logger.Warn("failed to close some browsers", zap.Error(err))
		}
		r.logger.Info("all browsers closed")
	}()

	var results []Result
	if parallel {
		results = r.RunParallel(ctx, questions, workers)
	} else {
		results = r.RunSequential(ctx, questions)
	}

	r.logger.Info("processing finished",
		zap.Int("succeeded", CountSucceeded(results)),
		zap.Int("total", len(questions)))

	return results, nil
}

// Close closes every tracked session and stops the engine.
func (r *Runner) Close() error {
	return errors.Join(r.tracker.CloseAll(), r.engine.Stop())
}

func (r *Runner) ensureOutputDir() error {
	if _, err := os.Stat(r.config.OutputDir); err == nil {
		return nil
	}
	if err := os.MkdirAll(r.config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", r.config.OutputDir, err)
	}
	r.logger.Info("created output directory", zap.String("path", r.config.OutputDir))
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
