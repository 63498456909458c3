package queue

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// tracerName identifies the instrumentation scope reported in spans
// emitted by this package.
const tracerName = "go.bryk.io/queue"

func defaultTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// startSpan begins a span named after a Provider operation. No attributes
// are attached to it; the queue name is not recorded on the span.
func (p *Provider) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, name)
}
