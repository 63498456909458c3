package queue

import (
	"time"

	"go.bryk.io/queue/log"
	"go.opentelemetry.io/otel/trace"
)

// Option values adjust a Provider's configuration at construction time.
type Option func(*Provider) error

// WithLogger attaches a log.Logger instance the Provider and its gateways
// will use for diagnostic output. Defaults to a discard logger.
func WithLogger(logger log.Logger) Option {
	return func(p *Provider) error {
		if logger != nil {
			p.log = logger
		}
		return nil
	}
}

// WithCodec overrides the Codec used to (de)serialize messages and
// overflow blob contents. Defaults to JSONCodec.
func WithCodec(codec Codec) Option {
	return func(p *Provider) error {
		if codec != nil {
			p.codec = codec
		}
		return nil
	}
}

// WithMaxMessageSize sets the threshold, in bytes of serialized payload,
// at or above which a message is routed through the overflow blob store instead
// of being placed on the queue directly.
func WithMaxMessageSize(bytes int) Option {
	return func(p *Provider) error {
		if bytes > 0 {
			p.maxMessageSize = bytes
		}
		return nil
	}
}

// WithTemporaryContainer sets the blob container name used to hold
// overflowed message payloads.
func WithTemporaryContainer(name string) Option {
	return func(p *Provider) error {
		if name != "" {
			p.tempContainer = name
		}
		return nil
	}
}

// WithRetryPolicy overrides the bounded retry behavior used when a queue or
// the overflow container has to be lazily created.
func WithRetryPolicy(maxAttempts uint, initialWait time.Duration) Option {
	return func(p *Provider) error {
		p.retryMaxAttempts = maxAttempts
		p.retryInitialWait = initialWait
		return nil
	}
}

// WithMetrics attaches Prometheus instrumentation. Without this option, the
// Provider records to unregistered, inert counters.
func WithMetrics(m *Metrics) Option {
	return func(p *Provider) error {
		if m != nil {
			p.metrics = m
		}
		return nil
	}
}

// WithTracerProvider overrides the OpenTelemetry TracerProvider used to
// emit spans for Provider operations. Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(p *Provider) error {
		if tp != nil {
			p.tracer = tp.Tracer(tracerName)
		}
		return nil
	}
}
