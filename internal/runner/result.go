package runner

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Result is the outcome of one question.
type Result struct {
	Ordinal        int
	Question       string
	Status         Status
	ScreenshotPath string // set on success
	Error          string // raw error text on failure
	Duration       time.Duration
	RemotePath     string // set when the screenshot was uploaded
}

func (r *Result) Succeeded() bool {
	return r.Status == StatusSuccess
}

func (r *Result) fail(err error) {
	r.Status = StatusFailed
	r.ScreenshotPath = ""
	r.Error = err.Error()
}

// CountSucceeded returns the number of successful results.
func CountSucceeded(results []Result) int {
	n := 0
	for i := range results {
		if results[i].Succeeded() {
			n++
		}
	}
	return n
}

// SuccessRate returns succeeded/total as a percentage rounded to two places.
func SuccessRate(succeeded, total int) decimal.Decimal {
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(succeeded)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(total))).
		Round(2)
}
