package store

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

const htmlContentType = "text/html; charset=utf-8"

// AzureBlob keeps the document as a block blob. The version token is the
// blob ETag and writes are conditional on If-Match.
type AzureBlob struct {
	client    *azblob.Client
	container string
	logger    *slog.Logger
}

// NewAzureBlob creates the client from a connection string and makes sure
// the container exists.
func NewAzureBlob(ctx context.Context, connectionString, container string, logger *slog.Logger) (*AzureBlob, error) {
	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return newAzureBlob(ctx, client, container, logger)
}

// NewAzureBlobFromAccount authenticates against accountURL with the default
// Azure credential chain.
func NewAzureBlobFromAccount(ctx context.Context, accountURL, container string, logger *slog.Logger) (*AzureBlob, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("create azure credential: %w", err)
	}
	client, err := azblob.NewClient(accountURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return newAzureBlob(ctx, client, container, logger)
}

func newAzureBlob(ctx context.Context, client *azblob.Client, container string, logger *slog.Logger) (*AzureBlob, error) {
	if logger == nil {
		logger = slog.Default()
	}

	a := &AzureBlob{
		client:    client,
		container: container,
		logger:    logger.With("system", "store", "driver", "azblob"),
	}

	if _, err := client.CreateContainer(ctx, container, nil); err != nil {
		if !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
			return nil, mapAzureError(fmt.Sprintf("create container %s", container), err)
		}
	}
	a.logger.Info("storage container ready", "container", container)

	return a, nil
}

func (a *AzureBlob) Read(ctx context.Context, id string) (*Document, error) {
	resp, err := a.client.DownloadStream(ctx, a.container, id, nil)
	if err != nil {
		return nil, mapAzureError("download blob "+id, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", id, err)
	}

	version := ""
	if resp.ETag != nil {
		version = string(*resp.ETag)
	}
	return &Document{Content: string(data), Version: version}, nil
}

func (a *AzureBlob) Write(ctx context.Context, id, content, expectedVersion, message string) error {
	etag := azcore.ETag(expectedVersion)
	return a.upload(ctx, id, content, message, &blob.ModifiedAccessConditions{IfMatch: &etag})
}

func (a *AzureBlob) Create(ctx context.Context, id, content, message string) error {
	anyTag := azcore.ETagAny
	return a.upload(ctx, id, content, message, &blob.ModifiedAccessConditions{IfNoneMatch: &anyTag})
}

func (a *AzureBlob) upload(ctx context.Context, id, content, message string, cond *blob.ModifiedAccessConditions) error {
	contentType := htmlContentType
	opts := &azblob.UploadStreamOptions{
		HTTPHeaders: &blob.HTTPHeaders{
			BlobContentType: &contentType,
		},
		AccessConditions: &blob.AccessConditions{
			ModifiedAccessConditions: cond,
		},
	}
	if message != "" {
		// Blob metadata values must be ASCII.
		m := asciiOnly(message)
		opts.Metadata = map[string]*string{"message": &m}
	}

	if _, err := a.client.UploadStream(ctx, a.container, id, strings.NewReader(content), opts); err != nil {
		return mapAzureError("upload blob "+id, err)
	}
	return nil
}

// mapAzureError converts service error codes to the store sentinels.
func mapAzureError(op string, err error) error {
	switch {
	case bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case bloberror.HasCode(err, bloberror.ConditionNotMet, bloberror.BlobAlreadyExists):
		return fmt.Errorf("%s: %w", op, ErrConflict)
	case bloberror.HasCode(err, bloberror.AuthenticationFailed, bloberror.AuthorizationFailure,
		bloberror.AuthorizationPermissionMismatch, bloberror.InsufficientAccountPermissions):
		return fmt.Errorf("%s: %w", op, ErrUnauthorized)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func asciiOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= 0x20 && r < 0x7f {
			b.WriteRune(r)
		} else {
			b.WriteByte('?')
		}
	}
	return b.String()
}
