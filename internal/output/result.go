package output

import (
	"encoding/json"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zinc-sig/asksnap/internal/runner"
)

type Mode string

const (
	ModeSequential Mode = "sequential"
	ModeParallel   Mode = "parallel"
)

// QuestionResult is one question's outcome as reported to users and webhooks.
type QuestionResult struct {
	Ordinal      int    `json:"ordinal"`
	Question     string `json:"question"`
	Status       string `json:"status"`
	Screenshot   string `json:"screenshot,omitempty"`
	Error        string `json:"error,omitempty"`
	DurationMS   int64  `json:"duration_ms"`
	UploadedPath string `json:"uploaded_path,omitempty"`
}

// Summary describes one run.
type Summary struct {
	RunID       string           `json:"run_id"`
	StartedAt   time.Time        `json:"started_at"`
	FinishedAt  time.Time        `json:"finished_at"`
	Mode        Mode             `json:"mode"`
	Workers     int              `json:"workers,omitempty"`
	Total       int              `json:"total"`
	Succeeded   int              `json:"succeeded"`
	Failed      int              `json:"failed"`
	SuccessRate decimal.Decimal  `json:"success_rate"`
	Results     []QuestionResult `json:"results"`

	UploadError string `json:"upload_error,omitempty"`

	// Webhook status (only in local output, not sent to webhook)
	WebhookSent  bool   `json:"webhook_sent,omitempty"`
	WebhookError string `json:"webhook_error,omitempty"`
}

// NewRunID returns a fresh identifier used for the summary and upload prefix.
func NewRunID() string {
	return uuid.NewString()
}

// NewSummary builds a Summary from runner results.
func NewSummary(runID string, mode Mode, workers int, started, finished time.Time, results []runner.Result) *Summary {
	succeeded := runner.CountSucceeded(results)
	s := &Summary{
		RunID:       runID,
		StartedAt:   started,
		FinishedAt:  finished,
		Mode:        mode,
		Total:       len(results),
		Succeeded:   succeeded,
		Failed:      len(results) - succeeded,
		SuccessRate: runner.SuccessRate(succeeded, len(results)),
		Results:     make([]QuestionResult, 0, len(results)),
	}
	if mode == ModeParallel {
		s.Workers = workers
	}
	for _, r := range results {
		s.Results = append(s.Results, QuestionResult{
			Ordinal:      r.Ordinal,
			Question:     r.Question,
			Status:       string(r.Status),
			Screenshot:   r.ScreenshotPath,
			Error:        r.Error,
			DurationMS:   r.Duration.Milliseconds(),
			UploadedPath: r.RemotePath,
		})
	}
	return s
}

// Payload returns a copy without local-only webhook fields.
func (s *Summary) Payload() *Summary {
	p := *s
	p.WebhookSent = false
	p.WebhookError = ""
	return &p
}

// WriteJSON writes s as indented JSON.
func WriteJSON(w io.Writer, s any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(s)
}
