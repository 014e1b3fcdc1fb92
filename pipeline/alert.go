package pipeline

import (
	"context"
	"log/slog"

	"github.com/thanhtoan105/accounting-erp-rag/core"
)

// Alerter is notified when a completed batch failed more documents than the
// configured threshold allows. It never changes the batch's status.
type Alerter interface {
	FailureRateExceeded(ctx context.Context, batch *core.Batch, threshold float64)
}

// AlerterFunc adapts a function to Alerter.
type AlerterFunc func(ctx context.Context, batch *core.Batch, threshold float64)

func (f AlerterFunc) FailureRateExceeded(ctx context.Context, batch *core.Batch, threshold float64) {
	f(ctx, batch, threshold)
}

// LogAlerter raises alerts as error-level log records.
type LogAlerter struct {
	Logger *slog.Logger
}

func (a LogAlerter) FailureRateExceeded(ctx context.Context, batch *core.Batch, threshold float64) {
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.ErrorContext(ctx, "batch failure rate above threshold",
		"batch_id", batch.Id,
		"tenant_id", batch.TenantId,
		"failed", batch.FailedDocuments,
		"total", batch.TotalDocuments,
		"failure_rate", batch.FailureRate(),
		"threshold", threshold)
}
