package queue

import (
	"context"
	"iter"
)

// RawMessage is a single delivery read back from the underlying queue
// service, before any deserialization or overflow resolution takes place.
type RawMessage struct {
	Handle MessageHandle
	Body   []byte
}

// QueueService abstracts the raw cloud queue boundary the Queue Gateway
// talks to. Implementations translate these calls into requests against a
// specific backend (Azure Storage Queues, for instance, in queue/azure) and
// report missing queues by returning an error that satisfies ErrNotFound.
type QueueService interface {
	// ListQueues returns a lazily paginated sequence of queue names
	// beginning with prefix. Iteration stops early if the consumer stops
	// ranging, and any pagination error is surfaced as the sequence's
	// second value.
	ListQueues(ctx context.Context, prefix string) iter.Seq2[string, error]

	// CreateQueue creates the named queue. Implementations should treat an
	// already-exists condition as success.
	CreateQueue(ctx context.Context, name string) error

	// Enqueue appends body as a new message on the named queue.
	Enqueue(ctx context.Context, name string, body []byte) error

	// Receive dequeues up to maxCount messages, making them invisible to
	// other consumers for the backend's configured visibility timeout.
	Receive(ctx context.Context, name string, maxCount int32) ([]RawMessage, error)

	// Ack permanently removes the message identified by handle.
	Ack(ctx context.Context, name string, handle MessageHandle) error

	// Clear removes every message currently on the named queue.
	Clear(ctx context.Context, name string) error

	// DeleteQueue removes the named queue entirely.
	DeleteQueue(ctx context.Context, name string) error

	// ApproximateCount reports the backend's best-effort message count
	// estimate for the named queue.
	ApproximateCount(ctx context.Context, name string) (int64, error)
}

// BlobService abstracts the raw cloud blob boundary the Overflow Store
// Gateway talks to.
type BlobService interface {
	// CreateContainer creates the named container. Implementations should
	// treat an already-exists condition as success.
	CreateContainer(ctx context.Context, container string) error

	// Upload stores body under name within container, overwriting any
	// previous contents.
	Upload(ctx context.Context, container, name string, body []byte) error

	// Download retrieves the blob contents. found is false (with a nil
	// error) when the blob does not exist.
	Download(ctx context.Context, container, name string) (body []byte, found bool, err error)

	// Delete removes the named blob. Implementations should treat a
	// not-found condition as success.
	Delete(ctx context.Context, container, name string) error
}
