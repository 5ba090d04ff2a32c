package azure

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/marmos91/bucketfs/pkg/store"
)

// AzureObjectStore implements store.ObjectStore on an Azure Blob Storage
// container.
//
// Blob names map one to one onto object keys. There is no Copy method:
// Azure's server-side copy is asynchronous and needs a SAS-authorised source
// URL, so copies go through store.CopyObject's read and write fallback.
type AzureObjectStore struct {
	client    *azblob.Client
	container string
}

// AzureObjectStoreConfig selects the account, credentials and container.
//
// Credential precedence: ConnectionString, then AccountName+AccountKey
// (shared key), then DefaultAzureCredential (environment, workload
// identity, managed identity, Azure CLI).
type AzureObjectStoreConfig struct {
	// ServiceURL is the blob endpoint, e.g. https://<account>.blob.core.windows.net/.
	// Derived from AccountName when empty.
	ServiceURL string

	AccountName      string
	AccountKey       string
	ConnectionString string

	// Container holding the namespace (required).
	Container string

	// CreateContainer creates the container at startup if it is missing.
	CreateContainer bool
}

func newClient(cfg AzureObjectStoreConfig) (*azblob.Client, error) {
	if cfg.ConnectionString != "" {
		return azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	}

	serviceURL := cfg.ServiceURL
	if serviceURL == "" {
		if cfg.AccountName == "" {
			return nil, fmt.Errorf("either service_url, account_name or connection_string is required")
		}
		serviceURL = fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.AccountName)
	}

	if cfg.AccountName != "" && cfg.AccountKey != "" {
		cred, err := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
		if err != nil {
			return nil, fmt.Errorf("invalid shared key credential: %w", err)
		}
		return azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create default Azure credential: %w", err)
	}
	return azblob.NewClient(serviceURL, cred, nil)
}

// NewAzureObjectStore creates an Azure Blob Storage object store.
func NewAzureObjectStore(ctx context.Context, cfg AzureObjectStoreConfig) (*AzureObjectStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.Container == "" {
		return nil, fmt.Errorf("container name is required")
	}

	client, err := newClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure blob client: %w", err)
	}

	if cfg.CreateContainer {
		_, err := client.CreateContainer(ctx, cfg.Container, nil)
		if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
			return nil, fmt.Errorf("failed to create container %q: %w", cfg.Container, err)
		}
	}

	return &AzureObjectStore{client: client, container: cfg.Container}, nil
}

func translate(key string, err error) error {
	if bloberror.HasCode(err, bloberror.BlobNotFound) {
		return fmt.Errorf("object %q: %w", key, store.ErrNotFound)
	}
	return err
}

func etag(tag *azcore.ETag) string {
	if tag == nil {
		return ""
	}
	return strings.Trim(string(*tag), `"`)
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func derefInt64(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

// ============================================================================
// Reads
// ============================================================================

func (s *AzureObjectStore) List(ctx context.Context, prefix string) ([]store.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := &azblob.ListBlobsFlatOptions{}
	if prefix != "" {
		opts.Prefix = to.Ptr(prefix)
	}

	var result []store.ObjectInfo
	pager := s.client.NewListBlobsFlatPager(s.container, opts)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list blobs under %q: %w", prefix, err)
		}

		for _, item := range page.Segment.BlobItems {
			if item == nil || item.Name == nil {
				continue
			}
			info := store.ObjectInfo{Key: *item.Name}
			if p := item.Properties; p != nil {
				info.Size = derefInt64(p.ContentLength)
				info.Hash = etag(p.ETag)
				info.LastModified = derefTime(p.LastModified)
			}
			result = append(result, info)
		}
	}
	return result, nil
}

func (s *AzureObjectStore) HasPrefix(ctx context.Context, prefix string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	pager := s.client.NewListBlobsFlatPager(s.container, &azblob.ListBlobsFlatOptions{
		Prefix:     to.Ptr(prefix),
		MaxResults: to.Ptr(int32(1)),
	})
	if !pager.More() {
		return false, nil
	}
	page, err := pager.NextPage(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to probe prefix %q: %w", prefix, err)
	}
	return len(page.Segment.BlobItems) > 0, nil
}

func (s *AzureObjectStore) Stat(ctx context.Context, key string) (store.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return store.ObjectInfo{}, err
	}

	blobClient := s.client.ServiceClient().NewContainerClient(s.container).NewBlobClient(key)
	props, err := blobClient.GetProperties(ctx, nil)
	if err != nil {
		return store.ObjectInfo{}, translate(key, err)
	}

	return store.ObjectInfo{
		Key:          key,
		Size:         derefInt64(props.ContentLength),
		Hash:         etag(props.ETag),
		LastModified: derefTime(props.LastModified),
	}, nil
}

func (s *AzureObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := s.client.DownloadStream(ctx, s.container, key, nil)
	if err != nil {
		return nil, translate(key, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %q: %w", key, err)
	}
	return data, nil
}

// ============================================================================
// Writes
// ============================================================================

func (s *AzureObjectStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return store.ErrInvalidKey
	}

	if data == nil {
		data = []byte{}
	}
	if _, err := s.client.UploadBuffer(ctx, s.container, key, data, nil); err != nil {
		return fmt.Errorf("failed to upload blob %q: %w", key, err)
	}
	return nil
}

func (s *AzureObjectStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.client.DeleteBlob(ctx, s.container, key, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.BlobNotFound) {
		return fmt.Errorf("failed to delete blob %q: %w", key, err)
	}
	return nil
}

func (s *AzureObjectStore) Close() error {
	return nil
}
