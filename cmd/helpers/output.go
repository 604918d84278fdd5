package helpers

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/zinc-sig/asksnap/internal/output"
)

// Webhook event names.
const (
	EventRunCompleted    = "run.completed"
	EventReportCompleted = "report.completed"
)

// OutputJSON writes v to w as indented JSON
func OutputJSON(w io.Writer, v any) error {
	if err := output.WriteJSON(w, v); err != nil {
		return fmt.Errorf("failed to marshal JSON output: %w", err)
	}
	return nil
}

// DeliverSummary sends the summary to the webhook, when one is configured,
// and records the outcome on the summary.
func DeliverSummary(ctx context.Context, hook *Webhook, summary *output.Summary, logger *zap.Logger) {
	if hook == nil {
		return
	}
	if err := hook.Send(ctx, EventRunCompleted, summary.Payload(), logger); err != nil {
		summary.WebhookSent = false
		summary.WebhookError = err.Error()
		return
	}
	summary.WebhookSent = true
}
