// Package svcstate implements the management facade storage contract: a
// minimal blob-backed toggle store recording whether each of a fixed set
// of named services is currently Started or Stopped. It has no knowledge
// of queue semantics and does not decide policy on the caller's behalf —
// it only persists and reports the flag.
package svcstate

import (
	"context"

	"go.bryk.io/queue"
	"go.bryk.io/queue/errors"
)

// Status is the toggle value recorded for a service.
type Status string

const (
	// Started indicates the service has been marked as running.
	Started Status = "started"
	// Stopped indicates the service has been marked as stopped, or was
	// never started.
	Stopped Status = "stopped"
)

const defaultContainer = "service-state"

// Store persists per-service Started/Stopped flags as individual blobs.
// The set of services it manages is fixed at construction time; Start,
// Stop and Status all reject names outside that set, leaving the decision
// of what counts as a "system service" entirely up to the caller.
type Store struct {
	blobs     queue.BlobService
	container string
	known     map[string]struct{}
}

// New builds a Store backed by blobs, managing exactly the services named
// in services. Passing an empty list is valid; it simply means no service
// name will ever be accepted.
func New(blobs queue.BlobService, services []string, opts ...Option) *Store {
	s := &Store{
		blobs:     blobs,
		container: defaultContainer,
		known:     make(map[string]struct{}, len(services)),
	}
	for _, name := range services {
		s.known[name] = struct{}{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Option adjusts a Store's configuration at construction time.
type Option func(*Store)

// WithContainer overrides the blob container used to hold service flags.
func WithContainer(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.container = name
		}
	}
}

func (s *Store) checkKnown(service string) error {
	if _, ok := s.known[service]; !ok {
		return errors.Errorf("svcstate: unknown service %q", service)
	}
	return nil
}

// Start marks service as Started.
func (s *Store) Start(ctx context.Context, service string) error {
	return s.set(ctx, service, Started)
}

// Stop marks service as Stopped.
func (s *Store) Stop(ctx context.Context, service string) error {
	return s.set(ctx, service, Stopped)
}

func (s *Store) set(ctx context.Context, service string, status Status) error {
	if err := s.checkKnown(service); err != nil {
		return err
	}

	err := s.blobs.Upload(ctx, s.container, service, []byte(status))
	if err == nil {
		return nil
	}
	if !errors.Is(err, queue.ErrNotFound) {
		return errors.Wrap(err, "svcstate: write service flag")
	}
	if cerr := s.blobs.CreateContainer(ctx, s.container); cerr != nil {
		return errors.Wrap(cerr, "svcstate: create container")
	}
	if err := s.blobs.Upload(ctx, s.container, service, []byte(status)); err != nil {
		return errors.Wrap(err, "svcstate: write service flag")
	}
	return nil
}

// Status reports the current flag for service. A service that has never
// been started or stopped reports Stopped.
func (s *Store) Status(ctx context.Context, service string) (Status, error) {
	if err := s.checkKnown(service); err != nil {
		return "", err
	}

	body, found, err := s.blobs.Download(ctx, s.container, service)
	if err != nil {
		return "", errors.Wrap(err, "svcstate: read service flag")
	}
	if !found {
		return Stopped, nil
	}
	return Status(body), nil
}

// List reports the current flag for every known service, in no particular
// order.
func (s *Store) List(ctx context.Context) (map[string]Status, error) {
	out := make(map[string]Status, len(s.known))
	for name := range s.known {
		status, err := s.Status(ctx, name)
		if err != nil {
			return nil, err
		}
		out[name] = status
	}
	return out, nil
}

// Delete removes any recorded flag for service, after which Status reports
// Stopped for it again.
func (s *Store) Delete(ctx context.Context, service string) error {
	if err := s.checkKnown(service); err != nil {
		return err
	}
	return errors.Wrap(s.blobs.Delete(ctx, s.container, service), "svcstate: delete service flag")
}
