package azure

import (
	"bytes"
	"context"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/service"
	"go.bryk.io/queue"
	"go.bryk.io/queue/errors"
)

// BlobService adapts an Azure Storage account's blob service to the
// go.bryk.io/queue.BlobService interface, used to back the overflow store
// for messages too large to fit directly on a queue.
type BlobService struct {
	client *azblob.Client
}

// NewBlobService builds a BlobService against the given blob service
// endpoint (e.g. "https://<account>.blob.core.windows.net") using a
// shared key credential.
func NewBlobService(serviceURL string, cred *service.SharedKeyCredential) (*BlobService, error) {
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	if err != nil {
		return nil, errors.Wrap(err, "azure: create blob service client")
	}
	return &BlobService{client: client}, nil
}

// NewBlobServiceWithTokenCredential builds a BlobService using an Azure
// Active Directory credential instead of a shared account key.
func NewBlobServiceWithTokenCredential(serviceURL string, cred azcore.TokenCredential) (*BlobService, error) {
	client, err := azblob.NewClient(serviceURL, cred, nil)
	if err != nil {
		return nil, errors.Wrap(err, "azure: create blob service client")
	}
	return &BlobService{client: client}, nil
}

var _ queue.BlobService = (*BlobService)(nil)

func (s *BlobService) CreateContainer(ctx context.Context, container string) error {
	_, err := s.client.CreateContainer(ctx, container, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return errors.Wrap(err, "azure: create container")
	}
	return nil
}

func (s *BlobService) Upload(ctx context.Context, container, name string, body []byte) error {
	_, err := s.client.UploadBuffer(ctx, container, name, body, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.ContainerNotFound) {
			return errors.Wrap(queue.ErrNotFound, "azure: container not found")
		}
		return errors.Wrap(err, "azure: upload blob")
	}
	return nil
}

func (s *BlobService) Download(ctx context.Context, container, name string) ([]byte, bool, error) {
	resp, err := s.client.DownloadStream(ctx, container, name, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) || bloberror.HasCode(err, bloberror.ContainerNotFound) {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(err, "azure: download blob")
	}
	defer func() { _ = resp.Body.Close() }()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return nil, false, errors.Wrap(err, "azure: read blob body")
	}
	return buf.Bytes(), true, nil
}

func (s *BlobService) Delete(ctx context.Context, container, name string) error {
	_, err := s.client.DeleteBlob(ctx, container, name, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.BlobNotFound) && !bloberror.HasCode(err, bloberror.ContainerNotFound) {
		return errors.Wrap(err, "azure: delete blob")
	}
	return nil
}
