package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"

	"stockledger/internal/core/id"
)

func TestScope(t *testing.T) {
	ctx := context.Background()
	assert.True(t, id.IsNil(BusinessID(ctx)))
	assert.Empty(t, UserID(ctx))

	businessID := id.New()
	ctx = WithScope(ctx, Scope{BusinessID: businessID, UserID: "alice"})
	assert.Equal(t, businessID, BusinessID(ctx))
	assert.Equal(t, "alice", UserID(ctx))
}

func TestGetTrace(t *testing.T) {
	_, ok := GetTrace(context.Background())
	assert.False(t, ok)

	stored := NewTrace()
	ctx := WithTrace(context.Background(), stored)
	got, ok := GetTrace(ctx)
	assert.True(t, ok)
	assert.Equal(t, stored, got)

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{0x01, 0x02},
		SpanID:  trace.SpanID{0x03},
	})
	ctx = trace.ContextWithSpanContext(ctx, sc)
	got, ok = GetTrace(ctx)
	assert.True(t, ok)
	assert.Equal(t, sc.TraceID().String(), got.TraceID)
	assert.Equal(t, stored.OperationID, got.OperationID)
}
