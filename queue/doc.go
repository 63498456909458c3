/*
Package queue provides a typed, overflow-aware client for cloud message
queues, built on top of a small boundary (QueueService, BlobService) that
lets the same orchestration logic run against any cloud queue and blob
storage pair.

Messages are transported as opaque, serialized values. A message whose
serialized form reaches or exceeds the Provider's configured size threshold is
transparently routed through a companion blob container instead of being
placed on the queue directly; the queue only ever carries a small pointer
in that case. This lets application code Put and Get values of arbitrary
size without having to reason about the backend's message size limits.

Basic usage

	provider, err := queue.NewProvider(queueService, blobService,
		queue.WithLogger(logger),
		queue.WithMetrics(queue.NewMetrics(prometheus.DefaultRegisterer)),
	)
	if err != nil {
		panic(err)
	}

	type orderPlaced struct {
		OrderID string
	}

	if err := queue.Put(ctx, provider, "orders", orderPlaced{OrderID: "abc"}); err != nil {
		panic(err)
	}

	events, err := queue.Get[orderPlaced](ctx, provider, "orders", 10)
	if err != nil {
		panic(err)
	}
	for _, ev := range events {
		// ... process ev ...
		if _, err := queue.Delete(ctx, provider, "orders", ev); err != nil {
			panic(err)
		}
	}

In-flight tracking

Every message returned by Get is registered, under a key derived from its
serialized bytes, in an in-flight registry. Delete looks up that registry
to find the handle needed to acknowledge the delivery with the backend,
which is what allows Delete to accept a plain value instead of requiring
callers to carry an opaque handle alongside it. Duplicate values received
concurrently are tracked as separate entries under the same key and
acknowledged in delivery order.

Lazy creation

Queues and the overflow container are created lazily: Put attempts the
enqueue (and, for overflowing messages, the blob upload) directly first,
and only falls back to creating the missing resource (then retrying, a
bounded number of times) when the backend reports it does not exist yet.
This avoids a create-before-every-call round trip on the common path where
the resource already exists. Get never creates anything: receiving from a
missing queue returns an empty result.
*/
package queue
