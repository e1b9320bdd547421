package gcp

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"cloud.google.com/go/storage"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
)

// NewStorageClient creates a Cloud Storage client.
func NewStorageClient(ctx context.Context) (*storage.Client, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "gcp: create storage client")
	}
	return client, nil
}

// SaveToGCSAtomically writes content to a GCS object only if it doesn't already exist.
// An existing object is not an error: re-archiving the same upload is a no-op.
func SaveToGCSAtomically(ctx context.Context, bucket *storage.BucketHandle, objectName, contentType string, content []byte) error {
	writer := bucket.Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = contentType

	if _, err := io.Copy(writer, bytes.NewReader(content)); err != nil {
		_ = writer.Close()
		if isPreconditionFailed(err) {
			zap.L().Info("gcs object already exists, skipping", zap.String("object", objectName))
			return nil
		}
		return eris.Wrapf(err, "gcp: write gs object %s", objectName)
	}

	if err := writer.Close(); err != nil {
		if isPreconditionFailed(err) {
			zap.L().Info("gcs object already exists, skipping", zap.String("object", objectName))
			return nil
		}
		return eris.Wrapf(err, "gcp: finalize gs object %s", objectName)
	}
	return nil
}

// ReadObject downloads a whole object.
func ReadObject(ctx context.Context, bucket *storage.BucketHandle, objectName string) ([]byte, error) {
	rc, err := bucket.Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, eris.Wrapf(err, "gcp: open gs object %s", objectName)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, eris.Wrapf(err, "gcp: read gs object %s", objectName)
	}
	return data, nil
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}
