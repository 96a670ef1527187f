// Package observability reports conditions the registration engine recovered
// from without surfacing them to the operator.
package observability

import (
	"context"
	"log/slog"

	"vetdesk/internal/platform/logger"
	"vetdesk/pkg/requestcontext"
)

// LogReporter writes degraded operations to a structured logger.
type LogReporter struct {
	logger *slog.Logger
}

func NewLogReporter(log *slog.Logger) *LogReporter {
	if log == nil {
		log = logger.Discard()
	}
	return &LogReporter{logger: log}
}

// ReportDegraded logs a recovered failure at warn level, enriched with the
// request id when one is in ctx.
func (r *LogReporter) ReportDegraded(ctx context.Context, operation string, err error, attrs ...any) {
	args := make([]any, 0, len(attrs)+8)
	args = append(args, attrs...)
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		args = append(args, "request_id", requestID)
	}
	args = append(args,
		"operation", operation,
		"error", err,
		"log_type", "degraded",
	)
	r.logger.WarnContext(ctx, "registration degraded to fail-open", args...)
}
