package gcp

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/rotisserie/eris"
)

// NewFirestoreClient creates a Firestore client for the given project ID.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, eris.New("gcp: projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, eris.Wrap(err, "gcp: create firestore client")
	}

	return client, nil
}
