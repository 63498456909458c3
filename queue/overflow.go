package queue

import (
	"context"

	"go.bryk.io/queue/errors"
	"go.bryk.io/queue/log"
)

// overflowStore is the Overflow Store Gateway component. It sits between
// the Provider and a raw BlobService, applying the same bounded
// create-then-retry cycle as the Queue Gateway whenever the temporary
// container does not exist yet.
type overflowStore struct {
	blobs     BlobService
	retry     *retryPolicy
	log       log.Logger
	container string
}

func (o *overflowStore) put(ctx context.Context, name string, body []byte) error {
	err := o.blobs.Upload(ctx, o.container, name, body)
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return errors.Wrap(err, "overflow: upload")
	}

	if cerr := o.retry.do(ctx, "create-container:"+o.container, func() error {
		return o.blobs.CreateContainer(ctx, o.container)
	}); cerr != nil {
		return errors.Wrap(cerr, "overflow: create container")
	}
	// Same "slow instantiation" window as the queue gateway: the container
	// was just created, so the first uploads against it are retried rather
	// than run once.
	if uerr := o.retry.do(ctx, "upload-after-create:"+o.container, func() error {
		return o.blobs.Upload(ctx, o.container, name, body)
	}); uerr != nil {
		return errors.Wrap(uerr, "overflow: upload after container creation")
	}
	return nil
}

// get retrieves the blob contents for an overflowed message. found is
// false (no error) when the blob is missing, the orphaned-wrapper case the
// Provider handles by acknowledging and dropping the message.
func (o *overflowStore) get(ctx context.Context, container, name string) (body []byte, found bool, err error) {
	body, found, err = o.blobs.Download(ctx, container, name)
	if err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(err, "overflow: download")
	}
	return body, found, nil
}

func (o *overflowStore) delete(ctx context.Context, container, name string) error {
	if err := o.blobs.Delete(ctx, container, name); err != nil && !isNotFound(err) {
		return errors.Wrap(err, "overflow: delete")
	}
	return nil
}
