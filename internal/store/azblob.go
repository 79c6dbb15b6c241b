package store

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/OldStager01/forecast-autoscaler/internal/logger"
	"github.com/OldStager01/forecast-autoscaler/pkg/apperrors"
)

type AzureBlobConfig struct {
	AccountName string
	AccountKey  string
	Container   string
	// ServiceURL overrides https://{account}.blob.core.windows.net/, e.g. for Azurite.
	ServiceURL string
}

// AzureBlobStore reads artifacts from one Azure Storage container using the
// account's shared key. Retries are disabled.
type AzureBlobStore struct {
	config AzureBlobConfig
}

func NewAzureBlobStore(cfg AzureBlobConfig) (*AzureBlobStore, error) {
	const op = "store.NewAzureBlobStore"

	if cfg.AccountName == "" || cfg.AccountKey == "" {
		return nil, apperrors.Configuration(op, "storage account name and key are required", nil)
	}
	if cfg.Container == "" {
		return nil, apperrors.Configuration(op, "container is required", nil)
	}
	if cfg.ServiceURL == "" {
		cfg.ServiceURL = fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.AccountName)
	}
	return &AzureBlobStore{config: cfg}, nil
}

func (s *AzureBlobStore) Authenticate(ctx context.Context) (Session, error) {
	const op = "store.Authenticate"

	cred, err := azblob.NewSharedKeyCredential(s.config.AccountName, s.config.AccountKey)
	if err != nil {
		return nil, apperrors.Authentication(op, "invalid storage account key", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(s.config.ServiceURL, cred, &azblob.ClientOptions{
		ClientOptions: policy.ClientOptions{
			Retry: policy.RetryOptions{MaxRetries: -1},
		},
	})
	if err != nil {
		return nil, apperrors.Authentication(op, "create blob client", err)
	}

	// Shared-key signing is local; read the container properties to validate the key
	_, err = client.ServiceClient().NewContainerClient(s.config.Container).GetProperties(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.ContainerNotFound) {
			return nil, apperrors.DataUnavailable(op, fmt.Sprintf("container %s not found", s.config.Container), err)
		}
		return nil, apperrors.Authentication(op, fmt.Sprintf("access to container %s failed", s.config.Container), err)
	}

	logger.FromContext(ctx).Debugf("Authenticated to storage account %s", s.config.AccountName)
	return &blobSession{client: client, container: s.config.Container}, nil
}

type blobSession struct {
	client    *azblob.Client
	container string
}

func (b *blobSession) Get(ctx context.Context, key string) ([]byte, error) {
	const op = "store.Get"

	resp, err := b.client.DownloadStream(ctx, b.container, key, nil)
	if err != nil {
		return nil, classifyBlobError(op, key, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.DataUnavailable(op, fmt.Sprintf("failed to read blob %s", key), err)
	}
	return data, nil
}

func (b *blobSession) Put(ctx context.Context, key string, data []byte) error {
	if _, err := b.client.UploadBuffer(ctx, b.container, key, data, nil); err != nil {
		return classifyBlobError("store.Put", key, err)
	}
	return nil
}

func classifyBlobError(op, key string, err error) error {
	switch {
	case bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound):
		return apperrors.DataUnavailable(op, fmt.Sprintf("blob %s not found", key), err)
	case bloberror.HasCode(err, bloberror.AuthenticationFailed, bloberror.AuthorizationFailure):
		return apperrors.Authentication(op, fmt.Sprintf("access to blob %s denied", key), err)
	default:
		return apperrors.DataUnavailable(op, fmt.Sprintf("blob %s", key), err)
	}
}
