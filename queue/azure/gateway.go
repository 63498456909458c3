// Package azure provides QueueService and BlobService implementations
// backed by Azure Storage Queues and Azure Blob Storage, wiring the
// go.bryk.io/queue core package to a concrete cloud backend.
package azure

import (
	"context"
	"iter"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue/queueerror"
	"go.bryk.io/queue"
	"go.bryk.io/queue/errors"
)

// QueueService adapts an Azure Storage account's queue service to the
// go.bryk.io/queue.QueueService interface.
type QueueService struct {
	account *azqueue.ServiceClient
}

// NewQueueService builds a QueueService against the given queue service
// endpoint (e.g. "https://<account>.queue.core.windows.net") using a
// shared key credential.
func NewQueueService(serviceURL string, cred *azqueue.SharedKeyCredential) (*QueueService, error) {
	client, err := azqueue.NewServiceClientWithSharedKeyCredential(serviceURL, cred, nil)
	if err != nil {
		return nil, errors.Wrap(err, "azure: create queue service client")
	}
	return &QueueService{account: client}, nil
}

// NewQueueServiceWithTokenCredential builds a QueueService using an Azure
// Active Directory credential instead of a shared account key, for
// deployments relying on managed identities or workload identity.
func NewQueueServiceWithTokenCredential(serviceURL string, cred azcore.TokenCredential) (*QueueService, error) {
	client, err := azqueue.NewServiceClient(serviceURL, cred, nil)
	if err != nil {
		return nil, errors.Wrap(err, "azure: create queue service client")
	}
	return &QueueService{account: client}, nil
}

var _ queue.QueueService = (*QueueService)(nil)

func (s *QueueService) client(name string) *azqueue.QueueClient {
	return s.account.NewQueueClient(name)
}

func (s *QueueService) ListQueues(ctx context.Context, prefix string) iter.Seq2[string, error] {
	pager := s.account.NewListQueuesPager(&azqueue.ListQueuesOptions{Prefix: &prefix})
	return func(yield func(string, error) bool) {
		for pager.More() {
			page, err := pager.NextPage(ctx)
			if err != nil {
				yield("", errors.Wrap(err, "azure: list queues"))
				return
			}
			for _, q := range page.Queues {
				if q.Name == nil {
					continue
				}
				if !yield(*q.Name, nil) {
					return
				}
			}
		}
	}
}

func (s *QueueService) CreateQueue(ctx context.Context, name string) error {
	_, err := s.client(name).Create(ctx, nil)
	if err != nil && !queueerror.HasCode(err, queueerror.QueueAlreadyExists) {
		return errors.Wrap(err, "azure: create queue")
	}
	return nil
}

func (s *QueueService) Enqueue(ctx context.Context, name string, body []byte) error {
	_, err := s.client(name).EnqueueMessage(ctx, string(body), nil)
	if err != nil {
		if queueerror.HasCode(err, queueerror.QueueNotFound) {
			return errors.Wrap(queue.ErrNotFound, "azure: queue not found")
		}
		return errors.Wrap(err, "azure: enqueue message")
	}
	return nil
}

func (s *QueueService) Receive(ctx context.Context, name string, maxCount int32) ([]queue.RawMessage, error) {
	resp, err := s.client(name).DequeueMessages(ctx, &azqueue.DequeueMessagesOptions{
		NumberOfMessages: &maxCount,
	})
	if err != nil {
		if queueerror.HasCode(err, queueerror.QueueNotFound) {
			return nil, errors.Wrap(queue.ErrNotFound, "azure: queue not found")
		}
		return nil, errors.Wrap(err, "azure: dequeue messages")
	}

	out := make([]queue.RawMessage, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		if m.MessageID == nil || m.PopReceipt == nil || m.MessageText == nil {
			continue
		}
		out = append(out, queue.RawMessage{
			Handle: queue.MessageHandle{MessageID: *m.MessageID, PopReceipt: *m.PopReceipt},
			Body:   []byte(*m.MessageText),
		})
	}
	return out, nil
}

func (s *QueueService) Ack(ctx context.Context, name string, handle queue.MessageHandle) error {
	_, err := s.client(name).DeleteMessage(ctx, handle.MessageID, handle.PopReceipt, nil)
	if err != nil {
		if queueerror.HasCode(err, queueerror.QueueNotFound) || queueerror.HasCode(err, queueerror.MessageNotFound) {
			return errors.Wrap(queue.ErrNotFound, "azure: message not found")
		}
		return errors.Wrap(err, "azure: delete message")
	}
	return nil
}

func (s *QueueService) Clear(ctx context.Context, name string) error {
	_, err := s.client(name).ClearMessages(ctx, nil)
	if err != nil {
		if queueerror.HasCode(err, queueerror.QueueNotFound) {
			return errors.Wrap(queue.ErrNotFound, "azure: queue not found")
		}
		return errors.Wrap(err, "azure: clear messages")
	}
	return nil
}

func (s *QueueService) DeleteQueue(ctx context.Context, name string) error {
	_, err := s.client(name).Delete(ctx, nil)
	if err != nil {
		if queueerror.HasCode(err, queueerror.QueueNotFound) {
			return errors.Wrap(queue.ErrNotFound, "azure: queue not found")
		}
		return errors.Wrap(err, "azure: delete queue")
	}
	return nil
}

func (s *QueueService) ApproximateCount(ctx context.Context, name string) (int64, error) {
	props, err := s.client(name).GetProperties(ctx, nil)
	if err != nil {
		if queueerror.HasCode(err, queueerror.QueueNotFound) {
			return 0, errors.Wrap(queue.ErrNotFound, "azure: queue not found")
		}
		return 0, errors.Wrap(err, "azure: get queue properties")
	}
	if props.ApproximateMessagesCount == nil {
		return 0, nil
	}
	return int64(*props.ApproximateMessagesCount), nil
}
