package logger

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// FromCtx возвращает логгер с trace_id/span_id активного спана, если он есть.
func FromCtx(ctx context.Context) *slog.Logger {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return L()
	}

	return L().With(
		slog.String("trace_id", sc.TraceID().String()),
		slog.String("span_id", sc.SpanID().String()),
	)
}
