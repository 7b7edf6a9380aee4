package context

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"stockledger/internal/core/id"
)

// Trace correlates log lines of one operation (a CLI run, a service call).
type Trace struct {
	TraceID     string
	OperationID string
}

type traceKey struct{}

// WithTrace adds t to ctx.
func WithTrace(ctx context.Context, t Trace) context.Context {
	return context.WithValue(ctx, traceKey{}, t)
}

// NewTrace creates a Trace with fresh ids.
func NewTrace() Trace {
	return Trace{
		TraceID:     id.New().String(),
		OperationID: id.New().String(),
	}
}

// GetTrace returns the Trace of ctx. The trace id of an active
// OpenTelemetry span takes precedence over the stored one.
func GetTrace(ctx context.Context) (Trace, bool) {
	t, ok := ctx.Value(traceKey{}).(Trace)

	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		t.TraceID = sc.TraceID().String()
		ok = true
	}
	return t, ok
}
