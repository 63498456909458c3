package queue

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"sync"
	"time"
)

// callInterval is a recorded [start, end) window during which a fake
// backend method was executing, used by TestRegistryMutexNotHeldDuringBackendCalls
// to check it never overlaps a registry-held interval.
type callInterval struct {
	start, end time.Time
}

// callRecorder collects callIntervals from multiple goroutines.
type callRecorder struct {
	mu        sync.Mutex
	intervals []callInterval
}

func (c *callRecorder) record(start, end time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.intervals = append(c.intervals, callInterval{start: start, end: end})
}

func (c *callRecorder) snapshot() []callInterval {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]callInterval(nil), c.intervals...)
}

// fakeQueueService is an in-memory QueueService used to exercise the
// Provider and its gateways without a live Azure Storage account.
type fakeQueueService struct {
	mu          sync.Mutex
	queues      map[string][]RawMessage // name -> pending + in-flight messages, FIFO
	leased      map[string]map[string]RawMessage
	missingOnce map[string]bool // if true, the next Enqueue/Receive reports not-found once
	seq         int
}

func newFakeQueueService() *fakeQueueService {
	return &fakeQueueService{
		queues:      make(map[string][]RawMessage),
		leased:      make(map[string]map[string]RawMessage),
		missingOnce: make(map[string]bool),
	}
}

func (f *fakeQueueService) ListQueues(_ context.Context, prefix string) iter.Seq2[string, error] {
	f.mu.Lock()
	var names []string
	for name := range f.queues {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	f.mu.Unlock()

	return func(yield func(string, error) bool) {
		for _, name := range names {
			if !yield(name, nil) {
				return
			}
		}
	}
}

func (f *fakeQueueService) CreateQueue(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.queues[name]; !ok {
		f.queues[name] = nil
		f.leased[name] = make(map[string]RawMessage)
	}
	return nil
}

func (f *fakeQueueService) Enqueue(_ context.Context, name string, body []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.missingOnce[name] {
		delete(f.missingOnce, name)
		return ErrNotFound
	}
	if _, ok := f.queues[name]; !ok {
		return ErrNotFound
	}
	f.seq++
	id := fmt.Sprintf("msg-%d", f.seq)
	f.queues[name] = append(f.queues[name], RawMessage{
		Handle: MessageHandle{MessageID: id, PopReceipt: "pr-" + id},
		Body:   body,
	})
	return nil
}

func (f *fakeQueueService) Receive(_ context.Context, name string, maxCount int32) ([]RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.missingOnce[name] {
		delete(f.missingOnce, name)
		return nil, ErrNotFound
	}
	pending, ok := f.queues[name]
	if !ok {
		return nil, ErrNotFound
	}

	n := int(maxCount)
	if n > len(pending) {
		n = len(pending)
	}
	out := append([]RawMessage(nil), pending[:n]...)
	f.queues[name] = pending[n:]
	for _, m := range out {
		f.leased[name][m.Handle.MessageID] = m
	}
	return out, nil
}

func (f *fakeQueueService) Ack(_ context.Context, name string, handle MessageHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	leased, ok := f.leased[name]
	if !ok {
		return ErrNotFound
	}
	if _, ok := leased[handle.MessageID]; !ok {
		return ErrNotFound
	}
	delete(leased, handle.MessageID)
	return nil
}

func (f *fakeQueueService) Clear(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.queues[name]; !ok {
		return ErrNotFound
	}
	f.queues[name] = nil
	f.leased[name] = make(map[string]RawMessage)
	return nil
}

func (f *fakeQueueService) DeleteQueue(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.queues[name]; !ok {
		return ErrNotFound
	}
	delete(f.queues, name)
	delete(f.leased, name)
	return nil
}

func (f *fakeQueueService) ApproximateCount(_ context.Context, name string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pending, ok := f.queues[name]
	if !ok {
		return 0, ErrNotFound
	}
	return int64(len(pending)), nil
}

// breakNextCall makes the next Enqueue or Receive call against name report
// ErrNotFound, simulating a queue that has to be lazily created.
func (f *fakeQueueService) breakNextCall(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.missingOnce[name] = true
}

// fakeBlobService is an in-memory BlobService used by the same tests.
type fakeBlobService struct {
	mu         sync.Mutex
	containers map[string]map[string][]byte
	missing    map[string]bool

	// downloadDelay, when set, makes Download simulate network latency and
	// report its [start, end) window to recorder.
	downloadDelay time.Duration
	recorder      *callRecorder
}

func newFakeBlobService() *fakeBlobService {
	return &fakeBlobService{containers: make(map[string]map[string][]byte), missing: make(map[string]bool)}
}

func (f *fakeBlobService) CreateContainer(_ context.Context, container string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.containers[container]; !ok {
		f.containers[container] = make(map[string][]byte)
	}
	return nil
}

func (f *fakeBlobService) Upload(_ context.Context, container, name string, body []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	blobs, ok := f.containers[container]
	if !ok {
		return ErrNotFound
	}
	blobs[name] = body
	return nil
}

func (f *fakeBlobService) Download(_ context.Context, container, name string) ([]byte, bool, error) {
	start := time.Now()
	if f.downloadDelay > 0 {
		time.Sleep(f.downloadDelay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recorder != nil {
		defer f.recorder.record(start, time.Now())
	}
	if f.missing[container+"/"+name] {
		return nil, false, nil
	}
	blobs, ok := f.containers[container]
	if !ok {
		return nil, false, nil
	}
	body, ok := blobs[name]
	if !ok {
		return nil, false, nil
	}
	return body, true, nil
}

func (f *fakeBlobService) Delete(_ context.Context, container, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if blobs, ok := f.containers[container]; ok {
		delete(blobs, name)
	}
	return nil
}

// forgetBlob makes the blob appear missing on the next Download, without
// removing it from the underlying map, simulating out-of-band expiration.
func (f *fakeBlobService) forgetBlob(container, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.missing[container+"/"+name] = true
}
