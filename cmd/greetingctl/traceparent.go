package main

import (
	"context"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/iota-uz/greeting-store/pkg/pgtrace"
)

// contextWithTraceparent makes value the remote parent of spans started from the
// returned context.
func contextWithTraceparent(ctx context.Context, value string) (context.Context, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	carrier := propagation.MapCarrier{"traceparent": value}
	out := propagation.TraceContext{}.Extract(ctx, carrier)
	if !trace.SpanContextFromContext(out).IsValid() {
		return nil, errors.Wrapf(pgtrace.ErrInvalidTraceContext, "invalid --traceparent %q", value)
	}
	return out, nil
}
