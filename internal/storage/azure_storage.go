package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// AzureBlobStore reads frames from and writes exports to Azure Blob Storage.
type AzureBlobStore struct {
	client    *azblob.Client
	container string
	maxBytes  int64
}

// NewAzureBlobStore connects with a shared key. container is where exports
// are written; frames may be read from any container of the account.
func NewAzureBlobStore(accountName, accountKey, container string) (*AzureBlobStore, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("invalid azure credentials: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create azure client: %w", err)
	}

	return &AzureBlobStore{client: client, container: container, maxBytes: 10 * 1024 * 1024}, nil
}

// FetchFrame downloads a blob addressed as
// https://<account>.blob.core.windows.net/<container>/<blob>.
func (s *AzureBlobStore) FetchFrame(ctx context.Context, blobURL string) ([]byte, error) {
	containerName, blobName, err := SplitBlobURL(blobURL)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.DownloadStream(ctx, containerName, blobName, nil)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	body := resp.Body
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, ErrFrameTooLarge
	}
	return data, nil
}

// Put uploads data as blob name in the export container.
func (s *AzureBlobStore) Put(ctx context.Context, name string, data []byte) error {
	if _, err := s.client.UploadBuffer(ctx, s.container, name, data, nil); err != nil {
		return fmt.Errorf("upload of %s failed: %w", name, err)
	}
	return nil
}

func (s *AzureBlobStore) Name() string {
	return "azure"
}

// SplitBlobURL extracts the container and blob name from a blob URL.
func SplitBlobURL(blobURL string) (container, blob string, err error) {
	parsed, err := url.Parse(blobURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid blob URL: %w", err)
	}

	container, blob, _ = strings.Cut(strings.TrimPrefix(parsed.Path, "/"), "/")
	if container == "" || blob == "" {
		return "", "", fmt.Errorf("invalid blob URL %q: expected /<container>/<blob>", blobURL)
	}
	return container, blob, nil
}

// IsBlobURL reports whether rawURL points at Azure Blob Storage.
func IsBlobURL(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.HasSuffix(parsed.Hostname(), ".blob.core.windows.net")
}
