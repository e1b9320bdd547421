package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Lllllllleong/mwmap/internal/kml"
	"github.com/Lllllllleong/mwmap/internal/mapview"
	"github.com/Lllllllleong/mwmap/internal/models"
	"github.com/Lllllllleong/mwmap/internal/overlay"
	"github.com/Lllllllleong/mwmap/internal/ui"
)

// Session is the UI state of one connected client: its viewport, overlays, panels,
// modals, sync badge and the last site list it rendered.
type Session struct {
	ID string

	Popup          overlay.Popup
	SearchMarkers  *overlay.Set[overlay.Marker]
	LocationMarker *overlay.Set[overlay.Marker]
	StoredMarkers  *overlay.Set[overlay.Marker]
	StoredLines    *overlay.Set[overlay.Polyline]
	StoredPolygons *overlay.Set[overlay.Polygon]
	Panels         *ui.Panels
	Modals         *ui.Modals
	Badge          *ui.Badge

	mu             sync.Mutex
	view           mapview.Viewport
	layer          *kml.Layer
	sites          []models.Site
	pendingLocal   bool
	synced         bool
	locating       bool
	editingSiteID  string
	pendingPayload *models.KMLPayload
	lastSeen       time.Time

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
	subsMu    sync.Mutex
	subs      map[int]chan struct{}
	nextSub   int
}

// NewSession creates a session showing view with every panel and modal closed.
func NewSession(id string, view mapview.Viewport, badgeFor time.Duration) *Session {
	s := &Session{
		ID:             id,
		SearchMarkers:  overlay.NewSet[overlay.Marker](),
		LocationMarker: overlay.NewSet[overlay.Marker](),
		StoredMarkers:  overlay.NewSet[overlay.Marker](),
		StoredLines:    overlay.NewSet[overlay.Polyline](),
		StoredPolygons: overlay.NewSet[overlay.Polygon](),
		Panels:         ui.NewPanels(),
		Modals:         ui.NewModals(),
		view:           view,
		lastSeen:       time.Now(),
		done:           make(chan struct{}),
		subs:           make(map[int]chan struct{}),
	}
	s.Badge = ui.NewBadge(badgeFor, func(ui.BadgeState) { s.Notify() })
	return s
}

// Viewport returns a copy of the current view.
func (s *Session) Viewport() mapview.Viewport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// UpdateViewport applies fn to the view under the session lock.
func (s *Session) UpdateViewport(fn func(v *mapview.Viewport)) mapview.Viewport {
	s.mu.Lock()
	fn(&s.view)
	v := s.view
	s.mu.Unlock()
	s.Notify()
	return v
}

// Sites returns the site list of the last rendered snapshot.
func (s *Session) Sites() []models.Site {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Site(nil), s.sites...)
}

func (s *Session) setSites(sites []models.Site) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sites = append([]models.Site(nil), sites...)
}

// Layer returns the ad-hoc import layer, or nil.
func (s *Session) Layer() *kml.Layer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.layer
}

func (s *Session) setLayer(l *kml.Layer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layer = l
}

// markPending records that this session just wrote the shared document. A nil session
// is a headless caller with nothing to flag.
func (s *Session) markPending() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingLocal = true
}

func (s *Session) clearPending() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingLocal = false
}

// observeSnapshot marks the session synced. It reports whether this was the first
// snapshot and whether a local write was pending, clearing the pending flag.
func (s *Session) observeSnapshot() (first, pending bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	first = !s.synced
	pending = s.pendingLocal
	s.synced = true
	s.pendingLocal = false
	return first, pending
}

// Synced reports whether a snapshot has been received.
func (s *Session) Synced() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.synced
}

// PendingLocalChange reports whether a local write awaits its snapshot.
func (s *Session) PendingLocalChange() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingLocal
}

func (s *Session) beginLocate() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locating {
		return false
	}
	s.locating = true
	return true
}

func (s *Session) endLocate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locating = false
}

// EditingSiteID is the site open in the edit modal.
func (s *Session) EditingSiteID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editingSiteID
}

func (s *Session) setEditing(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editingSiteID = id
}

// PendingPayload is the prepared KML payload awaiting a destination site.
func (s *Session) PendingPayload() *models.KMLPayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingPayload
}

func (s *Session) setPendingPayload(p *models.KMLPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingPayload = p
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = now
}

// Touch records client activity, keeping the session from being swept.
func (s *Session) Touch() {
	s.touch(time.Now())
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Changes returns a channel signalled after every state change, and a func releasing it.
// Signals coalesce: a slow reader sees one pending signal.
func (s *Session) Changes() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subsMu.Unlock()
	return ch, func() {
		s.subsMu.Lock()
		delete(s.subs, id)
		s.subsMu.Unlock()
	}
}

// Listening reports whether a change listener is attached.
func (s *Session) Listening() bool {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	return len(s.subs) > 0
}

// Done is closed when the session ends.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Notify signals every change listener.
func (s *Session) Notify() {
	if s == nil {
		return
	}
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		s.Badge.Stop()
		close(s.done)
	})
}

// SessionManager creates and looks up sessions by id.
type SessionManager struct {
	surface  *mapview.Surface
	badgeFor time.Duration
	start    func(ctx context.Context, s *Session)

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessionManager creates a manager. start, if set, runs in its own goroutine for each
// new session with a context cancelled when the session closes.
func NewSessionManager(surface *mapview.Surface, badgeFor time.Duration, start func(ctx context.Context, s *Session)) *SessionManager {
	return &SessionManager{
		surface:  surface,
		badgeFor: badgeFor,
		start:    start,
		sessions: make(map[string]*Session),
	}
}

// Get returns a live session.
func (m *SessionManager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if ok {
		s.touch(time.Now())
	}
	return s, ok
}

// Resolve returns the session for id, creating it when id is unknown. An id that is
// not a UUID is replaced by a fresh one.
func (m *SessionManager) Resolve(id string) *Session {
	if s, ok := m.Get(id); ok {
		return s
	}
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}

	m.mu.Lock()
	if s, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		return s
	}
	view := m.surface.NewInitialViewport()
	m.surface.SettleInitial(&view)
	s := NewSession(id, view, m.badgeFor)
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	m.sessions[id] = s
	m.mu.Unlock()

	zap.L().Info("session created", zap.String("session_id", id))
	if m.start != nil {
		go m.start(ctx, s)
	}
	return s
}

// Close ends a session and its subscription.
func (m *SessionManager) Close(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.close()
	}
}

// Sweep closes sessions idle for longer than maxIdle and returns how many it closed.
// Sessions with an attached change listener count as active.
func (m *SessionManager) Sweep(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	m.mu.Lock()
	var stale []*Session
	for id, s := range m.sessions {
		if !s.Listening() && s.idleSince().Before(cutoff) {
			stale = append(stale, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		s.close()
	}
	if len(stale) > 0 {
		zap.L().Info("idle sessions closed", zap.Int("count", len(stale)))
	}
	return len(stale)
}

// CloseAll ends every session.
func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range all {
		s.close()
	}
}

// Len reports the number of live sessions.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
