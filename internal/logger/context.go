package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// Field keys for the trace correlation WarnCtx/ErrorCtx inject.
const (
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking
)

// traceFields prepends the trace_id/span_id of ctx's active OpenTelemetry
// span (internal/telemetry.StartStorageSpan and friends) to args, so a
// *Ctx log line can be correlated with the span covering the same Store
// call. A context with no active span, or no context at all, leaves args
// untouched.
func traceFields(ctx context.Context, args []any) []any {
	if ctx == nil {
		return args
	}

	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return args
	}

	fields := make([]any, 0, 4+len(args))
	fields = append(fields, KeyTraceID, sc.TraceID().String(), KeySpanID, sc.SpanID().String())
	fields = append(fields, args...)
	return fields
}
