package queue

import (
	"context"
	"iter"

	"go.bryk.io/queue/errors"
	"go.bryk.io/queue/log"
)

// queueGateway is the Queue Gateway component. It sits between the
// Provider and a raw QueueService, translating "queue does not exist yet"
// into a bounded create-then-retry cycle and collapsing not-found results
// from read-only operations into empty results instead of errors.
type queueGateway struct {
	svc   QueueService
	retry *retryPolicy
	log   log.Logger
}

func (g *queueGateway) list(ctx context.Context, prefix string) iter.Seq2[string, error] {
	return g.svc.ListQueues(ctx, prefix)
}

func (g *queueGateway) enqueue(ctx context.Context, name string, body []byte) error {
	err := g.svc.Enqueue(ctx, name, body)
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return errors.Wrap(err, "gateway: enqueue")
	}

	if cerr := g.retry.do(ctx, "create-queue:"+name, func() error {
		return g.svc.CreateQueue(ctx, name)
	}); cerr != nil {
		return errors.Wrap(cerr, "gateway: create queue")
	}
	// The queue was just created; the backend can take a moment before it
	// is consistently visible for writes, so the first enqueue attempts
	// against it are retried rather than run once.
	if eerr := g.retry.do(ctx, "enqueue-after-create:"+name, func() error {
		return g.svc.Enqueue(ctx, name, body)
	}); eerr != nil {
		return errors.Wrap(eerr, "gateway: enqueue after queue creation")
	}
	return nil
}

func (g *queueGateway) receive(ctx context.Context, name string, maxCount int32) ([]RawMessage, error) {
	msgs, err := g.svc.Receive(ctx, name, maxCount)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "gateway: receive")
	}
	return msgs, nil
}

func (g *queueGateway) ack(ctx context.Context, name string, handle MessageHandle) error {
	return errors.Wrap(g.svc.Ack(ctx, name, handle), "gateway: ack")
}

func (g *queueGateway) clear(ctx context.Context, name string) error {
	if err := g.svc.Clear(ctx, name); err != nil && !isNotFound(err) {
		return errors.Wrap(err, "gateway: clear")
	}
	return nil
}

func (g *queueGateway) deleteQueue(ctx context.Context, name string) (bool, error) {
	err := g.svc.DeleteQueue(ctx, name)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, errors.Wrap(err, "gateway: delete queue")
	}
	return true, nil
}

func (g *queueGateway) approximateCount(ctx context.Context, name string) (int64, error) {
	n, err := g.svc.ApproximateCount(ctx, name)
	if err != nil {
		if isNotFound(err) {
			return 0, nil
		}
		return 0, errors.Wrap(err, "gateway: approximate count")
	}
	return n, nil
}
