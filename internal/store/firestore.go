package store

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Lllllllleong/mwmap/internal/models"
)

// FirestoreStore keeps the shared document at collection/document in Firestore.
type FirestoreStore struct {
	ref *firestore.DocumentRef
}

// NewFirestoreStore binds the store to one document.
func NewFirestoreStore(client *firestore.Client, collection, document string) *FirestoreStore {
	return &FirestoreStore{ref: client.Collection(collection).Doc(document)}
}

// Get reads the document.
func (s *FirestoreStore) Get(ctx context.Context) (*models.UserDocument, bool, error) {
	snap, err := s.ref.Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrapf(err, "store: get %s", s.ref.Path)
	}
	var doc models.UserDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, false, eris.Wrapf(err, "store: decode %s", s.ref.Path)
	}
	return &doc, true, nil
}

// Create overwrites the document with the given top-level fields.
func (s *FirestoreStore) Create(ctx context.Context, fields []Update) error {
	data := make(map[string]interface{}, len(fields)+1)
	for _, f := range fields {
		if len(f.Path) != 1 {
			return eris.Errorf("store: create needs top-level fields, got %s", f)
		}
		if f.Delete {
			continue
		}
		data[f.Path[0]] = f.Value
	}
	data[models.FieldLastUpdated] = firestore.ServerTimestamp

	if _, err := s.ref.Set(ctx, data); err != nil {
		return eris.Wrapf(err, "store: set %s", s.ref.Path)
	}
	return nil
}

// Update patches field paths; the document must exist.
func (s *FirestoreStore) Update(ctx context.Context, updates []Update) error {
	ups := make([]firestore.Update, 0, len(updates)+1)
	for _, u := range updates {
		var v interface{} = u.Value
		if u.Delete {
			v = firestore.Delete
		}
		ups = append(ups, firestore.Update{FieldPath: firestore.FieldPath(u.Path), Value: v})
	}
	ups = append(ups, firestore.Update{Path: models.FieldLastUpdated, Value: firestore.ServerTimestamp})

	if _, err := s.ref.Update(ctx, ups); err != nil {
		return eris.Wrapf(err, "store: update %s", s.ref.Path)
	}
	return nil
}

// Watch streams document snapshots until ctx ends or the listener fails.
func (s *FirestoreStore) Watch(ctx context.Context, fn func(Snapshot)) error {
	it := s.ref.Snapshots(ctx)
	defer it.Stop()

	for {
		snap, err := it.Next()
		if err != nil {
			if ctx.Err() != nil || status.Code(err) == codes.Canceled {
				return nil
			}
			return eris.Wrapf(err, "store: watch %s", s.ref.Path)
		}

		out := Snapshot{Exists: snap.Exists()}
		if out.Exists {
			if err := snap.DataTo(&out.Document); err != nil {
				zap.L().Warn("store: undecodable snapshot", zap.String("path", s.ref.Path), zap.Error(err))
				continue
			}
		}
		fn(out)
	}
}
