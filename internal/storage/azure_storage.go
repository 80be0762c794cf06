package storage

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

type azureSource struct {
	client    *azblob.Client
	container string
	prefix    string
}

// NewAzureSource reads artifacts from an Azure Blob Storage container.
func NewAzureSource(accountName, accountKey, container, prefix string) (ArtifactSource, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("azure credential: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("azure client: %w", err)
	}

	return &azureSource{client: client, container: container, prefix: prefix}, nil
}

func (s *azureSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	blobName := objectKey(s.prefix, name)

	resp, err := s.client.DownloadStream(ctx, s.container, blobName, nil)
	if err != nil {
		return nil, fmt.Errorf("download %s/%s: %w", s.container, blobName, err)
	}
	body := resp.Body
	defer body.Close()

	return readLimited(body)
}

func (s *azureSource) Describe() string {
	return "azure:" + objectKey(s.container, s.prefix)
}
