// Package store persists the shared user document. Writes are read-merge-write with
// last writer wins; nothing here detects concurrent edits.
package store

import (
	"context"
	"strings"

	"github.com/Lllllllleong/mwmap/internal/models"
)

// Update is one field-path write against the shared document.
type Update struct {
	Path   []string
	Value  interface{}
	Delete bool
}

// Set writes value at the dotted-free path segments.
func Set(value interface{}, path ...string) Update {
	return Update{Path: path, Value: value}
}

// Remove deletes the field at path.
func Remove(path ...string) Update {
	return Update{Path: path, Delete: true}
}

func (u Update) String() string {
	return strings.Join(u.Path, ".")
}

// Snapshot is one observed state of the shared document.
type Snapshot struct {
	Exists   bool
	Document models.UserDocument
}

// DocumentStore reads, writes and watches the single shared document. Every write
// stamps lastUpdated with the store's own clock.
type DocumentStore interface {
	// Get reads the document. exists is false when it has never been written.
	Get(ctx context.Context) (doc *models.UserDocument, exists bool, err error)
	// Create writes the document from scratch using top-level field updates.
	Create(ctx context.Context, fields []Update) error
	// Update patches field paths of an existing document.
	Update(ctx context.Context, updates []Update) error
	// Watch calls fn with the current state and again after every change. It blocks
	// until ctx is cancelled (returning nil) or the listener fails.
	Watch(ctx context.Context, fn func(Snapshot)) error
}
