package runner

import (
	"fmt"
	"io"

	"github.com/zinc-sig/asksnap/internal/question"
)

const (
	heavyRule = "=================================================="
	lightRule = "--------------------------------------------------"
)

// Plan describes a run for dry-run printing.
type Plan struct {
	WebsiteURL     string
	InputSelector  string
	SubmitSelector string
	Browser        string
	Engine         string
	Headless       bool
	Parallel       bool
	Workers        int
	OutputDir      string
	Questions      []question.Question
}

// PrintPlan prints what a run would do without launching a browser.
func PrintPlan(w io.Writer, plan Plan) {
	submit := plan.SubmitSelector
	if submit == "" {
		submit = "(press Enter)"
	}
	mode := "sequential"
	if plan.Parallel {
		mode = fmt.Sprintf("parallel (%d workers)", plan.Workers)
	}

	fmt.Fprintln(w, heavyRule)
	fmt.Fprintln(w, "Run Plan (DRY RUN)")
	fmt.Fprintln(w, heavyRule)
	fmt.Fprintf(w, "Website:   %s\n", plan.WebsiteURL)
	fmt.Fprintf(w, "Input:     %s\n", plan.InputSelector)
	fmt.Fprintf(w, "Submit:    %s\n", submit)
	fmt.Fprintf(w, "Browser:   %s via %s (headless: %t)\n", plan.Browser, plan.Engine, plan.Headless)
	fmt.Fprintf(w, "Mode:      %s\n", mode)
	fmt.Fprintf(w, "Output:    %s\n", plan.OutputDir)
	fmt.Fprintln(w, lightRule)
	for _, q := range plan.Questions {
		fmt.Fprintf(w, "Question %d: %s\n", q.Ordinal, q.Preview(60))
	}
	fmt.Fprintln(w, heavyRule)
}

// PrintSummary prints one block per result in the order given, then totals.
func PrintSummary(w io.Writer, results []Result) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, heavyRule)
	fmt.Fprintln(w, "Results")
	fmt.Fprintln(w, heavyRule)
	for _, r := range results {
		if r.Succeeded() {
			fmt.Fprintf(w, "Question %d: ✓ success\n", r.Ordinal)
			fmt.Fprintf(w, "  Screenshot: %s\n", r.ScreenshotPath)
			if r.RemotePath != "" {
				fmt.Fprintf(w, "  Uploaded:   %s\n", r.RemotePath)
			}
		} else {
			fmt.Fprintf(w, "Question %d: ✗ failed\n", r.Ordinal)
			fmt.Fprintf(w, "  Error: %s\n", r.Error)
		}
	}
	fmt.Fprintln(w, lightRule)

	succeeded := CountSucceeded(results)
	fmt.Fprintf(w, "Succeeded: %d/%d (%s%%)\n", succeeded, len(results),
		SuccessRate(succeeded, len(results)).StringFixed(2))
	fmt.Fprintln(w, heavyRule)
}
