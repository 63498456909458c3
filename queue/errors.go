package queue

import "go.bryk.io/queue/errors"

// ErrNotFound is returned (or wrapped) whenever a queue, a queued message or
// the overflow container referenced by an operation does not exist on the
// backing cloud service. A missing overflow blob is not reported this way:
// BlobService.Download signals it with found set to false.
// Gateways normalize the various "not found" conditions reported by the
// underlying SDKs into this sentinel so the core package never depends on
// provider-specific error types.
var ErrNotFound = errors.New("resource not found")

// isNotFound reports whether err ultimately wraps ErrNotFound.
func isNotFound(err error) bool {
	return err != nil && errors.Is(err, ErrNotFound)
}
