package queue

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"
	"go.bryk.io/queue/errors"
	"go.bryk.io/queue/log"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultMaxMessageSize     = 48 * 1024 // conservative margin under the 64KiB queue message ceiling
	defaultTemporaryContainer = "queue-overflow"
	defaultOverflowRetention  = 7 * 24 * time.Hour
)

// Provider is the orchestrator described in the component design: it owns
// the Serializer, the Queue Gateway, the Overflow Store Gateway and the
// In-Flight Registry, and exposes the operations applications call. A
// Provider is safe for concurrent use.
type Provider struct {
	queues *queueGateway
	blobs  *overflowStore
	reg    *registry

	codec          Codec
	maxMessageSize int
	tempContainer  string

	retryMaxAttempts uint
	retryInitialWait time.Duration

	log     log.Logger
	metrics *Metrics
	tracer  trace.Tracer
}

// NewProvider builds a Provider backed by the given QueueService and
// BlobService implementations. See queue/azure for an Azure Storage backed
// pair of implementations.
func NewProvider(qs QueueService, bs BlobService, opts ...Option) (*Provider, error) {
	if qs == nil {
		return nil, errors.New("queue: a QueueService implementation is required")
	}
	if bs == nil {
		return nil, errors.New("queue: a BlobService implementation is required")
	}

	p := &Provider{
		reg:            newRegistry(),
		codec:          JSONCodec(),
		maxMessageSize: defaultMaxMessageSize,
		tempContainer:  defaultTemporaryContainer,
		log:            log.Discard(),
		metrics:        newMetrics(),
		tracer:         defaultTracer(),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, errors.Wrap(err, "queue: apply option")
		}
	}

	retry := newRetryPolicy(p.retryMaxAttempts, p.retryInitialWait, p.log, p.metrics.retries)
	p.queues = &queueGateway{svc: qs, retry: retry, log: p.log}
	p.blobs = &overflowStore{blobs: bs, retry: retry, log: p.log, container: p.tempContainer}
	return p, nil
}

// List returns a lazy sequence of queue names beginning with prefix.
// Iteration stops as soon as the consumer stops ranging over it or an
// error is yielded.
func (p *Provider) List(ctx context.Context, prefix string) iter.Seq2[string, error] {
	return p.queues.list(ctx, prefix)
}

// Clear removes every message currently on queueName. It does not mutate
// the in-flight registry, which is shared across every queue a Provider
// tracks: any now-stale entries for queueName are left in place and cleaned
// up lazily the next time Delete is called for them, when the Ack against
// the already-cleared queue fails and the entry is dropped.
func (p *Provider) Clear(ctx context.Context, queueName string) error {
	return p.queues.clear(ctx, queueName)
}

// DeleteQueue removes queueName entirely, reporting whether it existed. Like
// Clear, it does not mutate the in-flight registry; see Clear for why.
func (p *Provider) DeleteQueue(ctx context.Context, queueName string) (bool, error) {
	return p.queues.deleteQueue(ctx, queueName)
}

// GetApproximateCount reports the backend's best-effort message count for
// queueName, or 0 if it does not exist.
func (p *Provider) GetApproximateCount(ctx context.Context, queueName string) (int64, error) {
	return p.queues.approximateCount(ctx, queueName)
}

func overflowBlobName(queueName string) string {
	expiration := time.Now().UTC().Add(defaultOverflowRetention).Format("2006-01-02")
	return fmt.Sprintf("%s/%s/%s", expiration, queueName, uuid.NewString())
}

// Put serializes msg and enqueues it on queueName, transparently routing
// it through the overflow blob store when the serialized form reaches or
// exceeds the Provider's configured size threshold.
func Put[T any](ctx context.Context, p *Provider, queueName string, msg T) error {
	ctx, span := p.startSpan(ctx, "queue.Put")
	defer span.End()

	body, err := p.codec.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "put: serialize message")
	}

	var payload []byte
	if len(body) >= p.maxMessageSize {
		name := overflowBlobName(queueName)
		if uerr := p.blobs.put(ctx, name, body); uerr != nil {
			span.RecordError(uerr)
			return errors.Wrap(uerr, "put: store overflow payload")
		}
		w := wrapper{ContainerName: p.tempContainer, BlobName: name}
		wp, werr := marshalWrapperPayload(p.codec, w)
		if werr != nil {
			return werr
		}
		payload = wp
		p.metrics.overflowPuts.Inc()
	} else {
		payload = marshalQueuePayload(body)
	}

	if eerr := p.queues.enqueue(ctx, queueName, payload); eerr != nil {
		span.RecordError(eerr)
		return errors.Wrap(eerr, "put: enqueue")
	}
	p.metrics.puts.Inc()
	return nil
}

// PutRange enqueues every value in msgs on queueName, stopping at the
// first failure and reporting how many were successfully enqueued.
func PutRange[T any](ctx context.Context, p *Provider, queueName string, msgs []T) (int, error) {
	for i, msg := range msgs {
		if err := Put(ctx, p, queueName, msg); err != nil {
			return i, err
		}
	}
	return len(msgs), nil
}

// decodedMessage is the intermediate result of resolving one raw delivery:
// either a ready-to-return value, or a wrapper still pending blob lookup.
type decodedMessage[T any] struct {
	handle    MessageHandle
	raw       []byte
	isWrapper bool
	value     T
	w         wrapper
}

// Get receives up to count messages from queueName, resolving any overflow
// wrappers transparently and registering every delivery's handle in the
// in-flight registry so a later Delete call can acknowledge it.
func Get[T any](ctx context.Context, p *Provider, queueName string, count int32) ([]T, error) {
	ctx, span := p.startSpan(ctx, "queue.Get")
	defer span.End()

	raw, err := p.queues.receive(ctx, queueName, count)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}

	decoded := make([]decodedMessage[T], 0, len(raw))
	for _, m := range raw {
		value, w, isWrapper, derr := unmarshalQueuePayload[T](p.codec, m.Body)
		if derr != nil {
			p.log.WithField("queue", queueName).WithField("error", derr.Error()).
				Warning("skipping message that failed to deserialize")
			continue
		}
		decoded = append(decoded, decodedMessage[T]{
			handle:    m.Handle,
			raw:       m.Body,
			isWrapper: isWrapper,
			value:     value,
			w:         w,
		})
	}

	// Direct messages register immediately: the registry key is derived
	// from the value's plain serialized bytes (the wire payload minus its
	// discriminator), which is exactly what Delete recomputes from the
	// caller's value, so a duplicate enqueued twice maps to the same key
	// independently of whether either copy overflowed.
	for _, d := range decoded {
		if !d.isWrapper {
			p.reg.insertOrAppend(keyFor(d.raw[1:]), d.handle, d.raw, false)
		}
	}

	result := make([]T, 0, len(decoded))
	for _, d := range decoded {
		if !d.isWrapper {
			result = append(result, d.value)
			p.metrics.gets.Inc()
			continue
		}

		body, found, berr := p.blobs.get(ctx, d.w.ContainerName, d.w.BlobName)
		if berr != nil {
			p.log.WithField("queue", queueName).WithField("error", berr.Error()).
				Warning("failed to fetch overflow payload, leaving message in flight")
			continue
		}
		if !found {
			// Orphaned wrapper: the blob expired or was removed out of
			// band. The message can never be resolved, so acknowledge and
			// drop it instead of redelivering it forever. There is no
			// registry key to clean up since a wrapper is only ever
			// registered once its value is known, below.
			if aerr := p.queues.ack(ctx, queueName, d.handle); aerr != nil {
				p.log.WithField("queue", queueName).WithField("error", aerr.Error()).
					Warning("failed to ack orphaned overflow wrapper")
			}
			p.metrics.overflowOrphaned.Inc()
			continue
		}

		var value T
		if uerr := p.codec.Unmarshal(body, &value); uerr != nil {
			p.log.WithField("queue", queueName).WithField("error", uerr.Error()).
				Warning("skipping overflow payload that failed to deserialize")
			continue
		}
		// Only now, with the overflowed value resolved from blob storage,
		// is its identity key known; the blob's contents are always the
		// same plain serialization Delete will recompute from the value.
		p.reg.insertOrAppend(keyFor(body), d.handle, d.raw, true)
		result = append(result, value)
		p.metrics.gets.Inc()
	}
	return result, nil
}

// Delete acknowledges and removes the oldest still-outstanding delivery
// whose serialized form matches msg, including deleting its overflow blob
// if it was routed there. It reports whether a matching delivery was
// found.
func Delete[T any](ctx context.Context, p *Provider, queueName string, msg T) (bool, error) {
	ctx, span := p.startSpan(ctx, "queue.Delete")
	defer span.End()

	body, err := p.codec.Marshal(msg)
	if err != nil {
		return false, errors.Wrap(err, "delete: serialize message")
	}
	key := keyFor(body)

	entry, overflowing, found := p.reg.lookupFront(key)
	if !found {
		return false, nil
	}

	if overflowing {
		_, w, isWrapper, derr := unmarshalQueuePayload[T](p.codec, entry.raw)
		if derr == nil && isWrapper {
			if berr := p.blobs.delete(ctx, w.ContainerName, w.BlobName); berr != nil {
				p.log.WithField("queue", queueName).WithField("error", berr.Error()).
					Warning("failed to delete overflow payload")
			}
		}
	}

	if aerr := p.queues.ack(ctx, queueName, entry.handle); aerr != nil {
		// The handle may have expired or the queue may be gone; either way
		// the registry record can never be acknowledged, so it is dropped
		// rather than retried indefinitely.
		p.reg.popFront(key)
		span.RecordError(aerr)
		return false, aerr
	}

	p.reg.popFront(key)
	p.metrics.deletes.Inc()
	return true, nil
}

// DeleteRange calls Delete for every value in msgs, reporting how many were
// found and acknowledged. It does not stop at the first miss or error;
// every value is attempted, and the last error encountered (if any) is
// returned alongside the success count.
func DeleteRange[T any](ctx context.Context, p *Provider, queueName string, msgs []T) (int, error) {
	var (
		n      int
		lastEr error
	)
	for _, msg := range msgs {
		ok, err := Delete(ctx, p, queueName, msg)
		if err != nil {
			lastEr = err
			continue
		}
		if ok {
			n++
		}
	}
	return n, lastEr
}
