package runner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/zinc-sig/asksnap/internal/question"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var fixedNow = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestRunner(t *testing.T, engine *fakeEngine, mutate func(c *Config)) *Runner {
	t.Helper()
	config := Config{
		WebsiteURL:    "https://chat.example.com",
		InputSelector: "textarea",
		OutputDir:     t.TempDir(),
	}
	if mutate != nil {
		mutate(&config)
	}
	r := New(config, engine, nil)
	r.now = func() time.Time { return fixedNow }
	return r
}

func createQuestionFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "questions.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func questionsN(n int) []question.Question {
	qs := make([]question.Question, n)
	for i := range qs {
		qs[i] = question.Question{Ordinal: i + 1, Text: "question"}
	}
	return qs
}

func ordinals(results []Result) []int {
	out := make([]int, len(results))
	for i, r := range results {
		out[i] = r.Ordinal
	}
	sort.Ints(out)
	return out
}

func TestProcess_PressEnterWhenNoSubmitSelector(t *testing.T) {
	engine := &fakeEngine{}
	r := newTestRunner(t, engine, nil)

	res := r.Process(context.Background(), question.Question{Ordinal: 1, Text: "What is 2+2?"})

	require.True(t, res.Succeeded(), res.Error)
	assert.Equal(t, 1, res.Ordinal)
	assert.Equal(t, "What is 2+2?", res.Question)
	assert.Equal(t, filepath.Join(r.config.OutputDir, "question_1_20240101_000000.png"), res.ScreenshotPath)
	assert.FileExists(t, res.ScreenshotPath)

	sessions := engine.all()
	require.Len(t, sessions, 1)
	assert.Equal(t, []string{
		"navigate https://chat.example.com",
		"fill textarea",
		"enter textarea",
		"dimensions",
		"screenshot",
		"close",
	}, sessions[0].Calls())
	assert.Equal(t, "What is 2+2?", sessions[0].typed)
	assert.Equal(t, 0, r.Tracker().Len())
}

func TestProcess_ClicksSubmitSelector(t *testing.T) {
	engine := &fakeEngine{}
	r := newTestRunner(t, engine, func(c *Config) { c.SubmitSelector = "button.send" })

	res := r.Process(context.Background(), question.Question{Ordinal: 3, Text: "q"})
	require.True(t, res.Succeeded(), res.Error)

	calls := engine.all()[0].Calls()
	assert.Contains(t, calls, "click button.send")
	assert.NotContains(t, calls, "enter textarea")
}

func TestProcess_ResizesLongPage(t *testing.T) {
	engine := &fakeEngine{configure: func(s *fakeSession) {
		s.contentHeight = 3200
		s.viewportHeight = 1080
	}}
	r := newTestRunner(t, engine, nil)

	res := r.Process(context.Background(), question.Question{Ordinal: 1, Text: "q"})
	require.True(t, res.Succeeded(), res.Error)

	s := engine.all()[0]
	assert.Equal(t, [2]int{1920, 3200}, s.resizedTo)
	assert.Contains(t, s.Calls(), "resize 1920x3200")
}

func TestProcess_Failures(t *testing.T) {
	tests := []struct {
		name          string
		engine        *fakeEngine
		errorContains string
		wantClosed    bool
	}{
		{
			name:          "launch fails",
			engine:        &fakeEngine{launchErr: errors.New("chrome not found")},
			errorContains: "chrome not found",
		},
		{
			name: "navigation fails",
			engine: &fakeEngine{configure: func(s *fakeSession) {
				s.navigateErr = errors.New("net::ERR_NAME_NOT_RESOLVED")
			}},
			errorContains: "ERR_NAME_NOT_RESOLVED",
			wantClosed:    true,
		},
		{
			name: "input element missing",
			engine: &fakeEngine{configure: func(s *fakeSession) {
				s.fillErr = errors.New(`input element "textarea" not found`)
			}},
			errorContains: "not found",
			wantClosed:    true,
		},
		{
			name: "driver panics",
			engine: &fakeEngine{configure: func(s *fakeSession) {
				s.panicOnFill = true
			}},
			errorContains: "panic: driver crashed",
			wantClosed:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRunner(t, tt.engine, nil)

			res := r.Process(context.Background(), question.Question{Ordinal: 2, Text: "q"})

			assert.Equal(t, StatusFailed, res.Status)
			assert.Equal(t, 2, res.Ordinal)
			assert.Empty(t, res.ScreenshotPath)
			assert.Contains(t, res.Error, tt.errorContains)
			if tt.wantClosed {
				require.Len(t, tt.engine.all(), 1)
				assert.True(t, tt.engine.all()[0].isClosed())
			}
			assert.Equal(t, 0, r.Tracker().Len())
		})
	}
}

func TestProcess_KeepOpen(t *testing.T) {
	engine := &fakeEngine{}
	r := newTestRunner(t, engine, func(c *Config) { c.KeepOpen = true })

	res := r.Process(context.Background(), question.Question{Ordinal: 1, Text: "q"})
	require.True(t, res.Succeeded(), res.Error)

	assert.False(t, engine.all()[0].isClosed())
	assert.Equal(t, 1, r.Tracker().Len())

	require.NoError(t, r.Close())
	assert.True(t, engine.all()[0].isClosed())
	assert.Equal(t, int32(1), engine.stopped.Load())
}

func TestSequentialAndParallelYieldOneResultPerQuestion(t *testing.T) {
	questions := questionsN(7)
	want := []int{1, 2, 3, 4, 5, 6, 7}

	t.Run("sequential", func(t *testing.T) {
		r := newTestRunner(t, &fakeEngine{}, nil)
		results := r.RunSequential(context.Background(), questions)
		require.Len(t, results, len(questions))
		for i, res := range results {
			assert.Equal(t, i+1, res.Ordinal, "sequential results keep submission order")
			assert.True(t, res.Succeeded(), res.Error)
		}
	})

	t.Run("parallel", func(t *testing.T) {
		r := newTestRunner(t, &fakeEngine{}, nil)
		results := r.RunParallel(context.Background(), questions, 3)
		require.Len(t, results, len(questions))
		assert.Equal(t, want, ordinals(results))
		for _, res := range results {
			assert.True(t, res.Succeeded(), res.Error)
			assert.True(t, question.MatchesOrdinal(filepath.Base(res.ScreenshotPath), res.Ordinal))
		}
	})
}

func TestRunParallel_BoundedByWorkers(t *testing.T) {
	engine := &fakeEngine{}
	r := newTestRunner(t, engine, func(c *Config) { c.Wait = 20 * time.Millisecond })

	results := r.RunParallel(context.Background(), questionsN(8), 2)

	require.Len(t, results, 8)
	assert.LessOrEqual(t, engine.maxActive.Load(), int32(2))
	assert.Equal(t, int32(0), engine.active.Load())
}

func TestRunParallel_ZeroWorkersRunsOneAtATime(t *testing.T) {
	engine := &fakeEngine{}
	r := newTestRunner(t, engine, nil)

	results := r.RunParallel(context.Background(), questionsN(3), 0)

	require.Len(t, results, 3)
	assert.Equal(t, int32(1), engine.maxActive.Load())
}

func TestRun(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		parallel    bool
		wantOrdinal []int
	}{
		{
			name:        "sequential with blank lines",
			content:     "What is 2+2?\n\nDefine latency.\n",
			wantOrdinal: []int{1, 2},
		},
		{
			name:        "parallel",
			content:     "a\nb\nc\n",
			parallel:    true,
			wantOrdinal: []int{1, 2, 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &fakeEngine{}
			outputDir := filepath.Join(t.TempDir(), "nested", "shots")
			r := newTestRunner(t, engine, func(c *Config) { c.OutputDir = outputDir })

			results, err := r.Run(context.Background(), createQuestionFile(t, tt.content), tt.parallel, 2)
			require.NoError(t, err)

			assert.Equal(t, tt.wantOrdinal, ordinals(results))
			assert.DirExists(t, outputDir)
			assert.Equal(t, int32(1), engine.started.Load())
			assert.Equal(t, 0, r.Tracker().Len())
		})
	}
}

func TestRun_EmptyQuestionFile(t *testing.T) {
	engine := &fakeEngine{}
	r := newTestRunner(t, engine, nil)

	results, err := r.Run(context.Background(), createQuestionFile(t, "\n  \n\n"), true, 3)

	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Empty(t, engine.all())
	assert.Equal(t, int32(0), engine.started.Load())
}

func TestRun_MissingQuestionFile(t *testing.T) {
	r := newTestRunner(t, &fakeEngine{}, nil)

	_, err := r.Run(context.Background(), filepath.Join(t.TempDir(), "missing.txt"), false, 1)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open question file")
}

func TestRun_KeepOpenLeavesSessions(t *testing.T) {
	engine := &fakeEngine{}
	r := newTestRunner(t, engine, func(c *Config) { c.KeepOpen = true })

	results, err := r.Run(context.Background(), createQuestionFile(t, "a\nb\n"), true, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, 2, r.Tracker().Len())
	require.NoError(t, r.Close())
	assert.Equal(t, 0, r.Tracker().Len())
}

func TestRun_CancelledContextFailsQueuedQuestions(t *testing.T) {
	engine := &fakeEngine{}
	r := newTestRunner(t, engine, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := r.RunSequential(ctx, questionsN(3))
	require.Len(t, results, 3)
	for _, res := range results {
		assert.Equal(t, StatusFailed, res.Status)
		assert.Contains(t, res.Error, context.Canceled.Error())
	}
	assert.Empty(t, engine.all())
}

func TestPrintSummary(t *testing.T) {
	results := []Result{
		{Ordinal: 2, Status: StatusFailed, Error: "timeout waiting for textarea"},
		{Ordinal: 1, Status: StatusSuccess, ScreenshotPath: "screenshots/question_1_20240101_000000.png", RemotePath: "run/question_1_20240101_000000.png"},
		{Ordinal: 3, Status: StatusSuccess, ScreenshotPath: "screenshots/question_3_20240101_000000.png"},
	}

	var buf bytes.Buffer
	PrintSummary(&buf, results)
	out := buf.String()

	assert.Contains(t, out, "Question 2: ✗ failed\n  Error: timeout waiting for textarea")
	assert.Contains(t, out, "Question 1: ✓ success\n  Screenshot: screenshots/question_1_20240101_000000.png")
	assert.Contains(t, out, "Uploaded:   run/question_1_20240101_000000.png")
	assert.Contains(t, out, "Succeeded: 2/3 (66.67%)")
	assert.Less(t, strings.Index(out, "Question 2"), strings.Index(out, "Question 1"))
}

func TestPrintPlan(t *testing.T) {
	var buf bytes.Buffer
	PrintPlan(&buf, Plan{
		WebsiteURL:    "https://chat.example.com",
		InputSelector: "textarea",
		Browser:       "chrome",
		Engine:        "playwright",
		Parallel:      true,
		Workers:       4,
		OutputDir:     "screenshots",
		Questions:     questionsN(2),
	})
	out := buf.String()

	assert.Contains(t, out, "DRY RUN")
	assert.Contains(t, out, "(press Enter)")
	assert.Contains(t, out, "parallel (4 workers)")
	assert.Contains(t, out, "Question 2: question")
}

func TestSuccessRate(t *testing.T) {
	assert.Equal(t, "66.67", SuccessRate(2, 3).StringFixed(2))
	assert.Equal(t, "100.00", SuccessRate(5, 5).StringFixed(2))
	assert.Equal(t, "0.00", SuccessRate(0, 0).StringFixed(2))
}
