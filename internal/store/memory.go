package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/Lllllllleong/mwmap/internal/models"
)

// MemoryStore is an in-process DocumentStore for local runs and tests. Values are
// held in their JSON form so callers never share memory with the stored document.
type MemoryStore struct {
	mu     sync.Mutex
	data   map[string]interface{}
	subs   map[int]chan Snapshot
	nextID int
	now    func() time.Time
}

// NewMemoryStore creates an empty store; the document does not exist yet.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{subs: make(map[int]chan Snapshot), now: time.Now}
}

// Get reads the document.
func (m *MemoryStore) Get(_ context.Context) (*models.UserDocument, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, false, nil
	}
	doc, err := decode(m.data)
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

// Create replaces the document with the given top-level fields.
func (m *MemoryStore) Create(_ context.Context, fields []Update) error {
	data := make(map[string]interface{})
	for _, f := range fields {
		if len(f.Path) != 1 {
			return eris.Errorf("store: create needs top-level fields, got %s", f)
		}
		if f.Delete {
			continue
		}
		v, err := normalize(f.Value)
		if err != nil {
			return err
		}
		data[f.Path[0]] = v
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	data[models.FieldLastUpdated] = m.now().UTC().Format(time.RFC3339Nano)
	m.data = data
	m.publishLocked()
	return nil
}

// Update patches field paths of the existing document.
func (m *MemoryStore) Update(_ context.Context, updates []Update) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return eris.New("store: update of missing document")
	}

	next, err := clone(m.data)
	if err != nil {
		return err
	}
	for _, u := range updates {
		if len(u.Path) == 0 {
			return eris.New("store: empty update path")
		}
		parent := next
		for _, seg := range u.Path[:len(u.Path)-1] {
			child, ok := parent[seg].(map[string]interface{})
			if !ok {
				child = make(map[string]interface{})
				parent[seg] = child
			}
			parent = child
		}
		leaf := u.Path[len(u.Path)-1]
		if u.Delete {
			delete(parent, leaf)
			continue
		}
		v, err := normalize(u.Value)
		if err != nil {
			return err
		}
		parent[leaf] = v
	}
	next[models.FieldLastUpdated] = m.now().UTC().Format(time.RFC3339Nano)

	m.data = next
	m.publishLocked()
	return nil
}

// Watch delivers the current state, then every later state. Slow consumers only see
// the latest state.
func (m *MemoryStore) Watch(ctx context.Context, fn func(Snapshot)) error {
	ch := make(chan Snapshot, 1)

	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = ch
	first, err := m.snapshotLocked()
	if err == nil {
		ch <- first
	}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case snap := <-ch:
			fn(snap)
		}
	}
}

func (m *MemoryStore) publishLocked() {
	snap, err := m.snapshotLocked()
	if err != nil {
		return
	}
	for _, ch := range m.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

func (m *MemoryStore) snapshotLocked() (Snapshot, error) {
	if m.data == nil {
		return Snapshot{}, nil
	}
	doc, err := decode(m.data)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Exists: true, Document: *doc}, nil
}

func normalize(v interface{}) (interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, eris.Wrap(err, "store: encode value")
	}
	var out interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, eris.Wrap(err, "store: normalize value")
	}
	return out, nil
}

func clone(data map[string]interface{}) (map[string]interface{}, error) {
	v, err := normalize(data)
	if err != nil {
		return nil, err
	}
	out, _ := v.(map[string]interface{})
	return out, nil
}

func decode(data map[string]interface{}) (*models.UserDocument, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, eris.Wrap(err, "store: encode document")
	}
	var doc models.UserDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, eris.Wrap(err, "store: decode document")
	}
	return &doc, nil
}
