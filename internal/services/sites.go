package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Lllllllleong/mwmap/internal/apperr"
	"github.com/Lllllllleong/mwmap/internal/models"
	"github.com/Lllllllleong/mwmap/internal/store"
	"github.com/Lllllllleong/mwmap/internal/ui"
)

// User-facing messages of the sites registry.
const (
	msgStoreNotReady = "Firebase 연결이 되지 않았습니다. 잠시 후 다시 시도해 주세요."
	msgCreateFailed  = "저장에 실패했습니다. 네트워크를 확인한 뒤 다시 시도해 주세요."
	msgRenameFailed  = "수정에 실패했습니다. 네트워크를 확인한 뒤 다시 시도해 주세요."
	msgDeleteFailed  = "삭제에 실패했습니다. 네트워크를 확인한 뒤 다시 시도해 주세요."
	msgConfirmDelete = "이 현장을 삭제하시겠습니까?"
	msgSiteNotFound  = "현장을 찾을 수 없습니다."
)

const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// SitesConfig configures the sites registry.
type SitesConfig struct {
	InitialSyncTimeout time.Duration
}

// Sites is the registry of named sites kept in the shared document. Every write is a
// read-merge-write of the whole list; the last writer wins.
type Sites struct {
	store    store.DocumentStore
	renderer *KMLImport
	config   SitesConfig
	now      func() time.Time
}

// NewSites creates the registry. renderer redraws stored KML on every snapshot and may be nil.
func NewSites(st store.DocumentStore, renderer *KMLImport, cfg SitesConfig) *Sites {
	return &Sites{store: st, renderer: renderer, config: cfg, now: time.Now}
}

// Subscribe follows the shared document for sess until ctx ends. Each snapshot replaces
// the session's site list and stored overlays. The first snapshot, and the first one
// after a local write, show the success badge. If no snapshot arrives within the
// initial timeout, or the listener fails, the error badge is shown.
func (s *Sites) Subscribe(ctx context.Context, sess *Session) {
	log := zap.L().With(zap.String("session_id", sess.ID))
	if s.store == nil {
		log.Warn("no document store, sites subscription not started")
		sess.Badge.ShowError()
		return
	}

	var timeout *time.Timer
	if s.config.InitialSyncTimeout > 0 {
		timeout = time.AfterFunc(s.config.InitialSyncTimeout, func() {
			if !sess.Synced() {
				log.Warn("no snapshot within initial sync timeout", zap.Duration("timeout", s.config.InitialSyncTimeout))
				sess.Badge.ShowError()
			}
		})
		defer timeout.Stop()
	}

	err := s.store.Watch(ctx, func(snap store.Snapshot) {
		var sites []models.Site
		var kmlBySite map[string]models.KMLPayload
		if snap.Exists {
			sites = snap.Document.Sites
			kmlBySite = snap.Document.KMLBySite
		}
		sess.setSites(sites)
		if s.renderer != nil {
			s.renderer.RenderStored(sess, kmlBySite)
		}

		first, pending := sess.observeSnapshot()
		if first || pending {
			sess.Badge.ShowSuccess()
		}
		log.Debug("snapshot applied", zap.Int("sites", len(sites)), zap.Bool("first", first))
		sess.Notify()
	})
	if err != nil {
		log.Error("sites subscription failed", zap.Error(err))
		sess.Badge.ShowError()
	}
}

// Create adds a site titled title at the head of the list. A blank title is a no-op
// and returns nil.
func (s *Sites) Create(ctx context.Context, sess *Session, title string) (*models.Site, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, nil
	}
	if s.store == nil {
		return nil, apperr.New(apperr.ErrNotReady, msgStoreNotReady)
	}

	log := zap.L().With(zap.String("title", title))
	sess.markPending()

	doc, exists, err := s.store.Get(ctx)
	if err != nil {
		sess.clearPending()
		log.Error("read document for create failed", zap.Error(err))
		return nil, apperr.Wrap(apperr.ErrExternal, err, msgCreateFailed)
	}
	if doc == nil {
		doc = &models.UserDocument{}
	}

	now := s.now()
	site := models.Site{
		ID:        s.newID(doc, now),
		Title:     title,
		Timestamp: now.UTC().Format(isoMillis),
		Type:      models.SiteType,
	}
	sites := append([]models.Site{site}, doc.Sites...)

	write := s.store.Update
	if !exists {
		write = s.store.Create
	}
	if err := write(ctx, []store.Update{store.Set(sites, models.FieldSites)}); err != nil {
		sess.clearPending()
		log.Error("write site failed", zap.Error(err))
		return nil, apperr.Wrap(apperr.ErrExternal, err, msgCreateFailed)
	}

	log.Info("site created", zap.String("site_id", site.ID))
	if sess != nil {
		sess.Modals.Close(ui.ModalAddSite)
		sess.Badge.ShowSuccess()
		sess.Notify()
	}
	return &site, nil
}

// newID derives a site id from the creation time, stepping forward a millisecond until
// it is unused.
func (s *Sites) newID(doc *models.UserDocument, now time.Time) string {
	ms := now.UnixMilli()
	for {
		id := fmt.Sprintf("site_%d", ms)
		if doc.FindSite(id) < 0 {
			return id
		}
		ms++
	}
}

// OpenEditor opens the edit modal for a site of the session's list.
func (s *Sites) OpenEditor(sess *Session, id string) (*SiteView, error) {
	for _, v := range siteViews(sess.Sites()) {
		if v.ID != id {
			continue
		}
		sess.setEditing(id)
		if err := sess.Modals.Open(ui.ModalEditSite, v); err != nil {
			return nil, err
		}
		sess.Notify()
		return &v, nil
	}
	return nil, apperr.New(apperr.ErrNotFound, msgSiteNotFound)
}

// CloseEditor closes the edit modal and forgets the selected site.
func (s *Sites) CloseEditor(sess *Session) {
	sess.setEditing("")
	sess.Modals.Close(ui.ModalEditSite)
	sess.Notify()
}

// Rename replaces a site's title, leaving its other fields untouched. A blank title
// or a missing document is a no-op.
func (s *Sites) Rename(ctx context.Context, sess *Session, id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil
	}
	if s.store == nil {
		return apperr.New(apperr.ErrNotReady, msgStoreNotReady)
	}

	log := zap.L().With(zap.String("site_id", id))
	sess.markPending()

	doc, exists, err := s.store.Get(ctx)
	if err != nil {
		sess.clearPending()
		log.Error("read document for rename failed", zap.Error(err))
		return apperr.Wrap(apperr.ErrExternal, err, msgRenameFailed)
	}
	if !exists {
		sess.clearPending()
		return nil
	}
	i := doc.FindSite(id)
	if i < 0 {
		sess.clearPending()
		return apperr.New(apperr.ErrNotFound, msgSiteNotFound)
	}

	sites := append([]models.Site(nil), doc.Sites...)
	sites[i].Title = title
	if err := s.store.Update(ctx, []store.Update{store.Set(sites, models.FieldSites)}); err != nil {
		sess.clearPending()
		log.Error("rename site failed", zap.Error(err))
		return apperr.Wrap(apperr.ErrExternal, err, msgRenameFailed)
	}

	log.Info("site renamed")
	if sess != nil {
		s.CloseEditor(sess)
		sess.Badge.ShowSuccess()
	}
	return nil
}

// Delete removes a site and its KML payload in one write. It refuses to run unless
// confirmed; entries of other sites are untouched.
func (s *Sites) Delete(ctx context.Context, sess *Session, id string, confirmed bool) error {
	if !confirmed {
		return apperr.New(apperr.ErrNotConfirmed, msgConfirmDelete)
	}
	if s.store == nil {
		return apperr.New(apperr.ErrNotReady, msgStoreNotReady)
	}

	log := zap.L().With(zap.String("site_id", id))
	sess.markPending()

	doc, exists, err := s.store.Get(ctx)
	if err != nil {
		sess.clearPending()
		log.Error("read document for delete failed", zap.Error(err))
		return apperr.Wrap(apperr.ErrExternal, err, msgDeleteFailed)
	}
	if !exists || doc.FindSite(id) < 0 {
		sess.clearPending()
		return apperr.New(apperr.ErrNotFound, msgSiteNotFound)
	}

	sites := make([]models.Site, 0, len(doc.Sites))
	for _, site := range doc.Sites {
		if site.ID != id {
			sites = append(sites, site)
		}
	}
	updates := []store.Update{
		store.Set(sites, models.FieldSites),
		store.Remove(models.FieldKMLBySite, id),
	}
	if err := s.store.Update(ctx, updates); err != nil {
		sess.clearPending()
		log.Error("delete site failed", zap.Error(err))
		return apperr.Wrap(apperr.ErrExternal, err, msgDeleteFailed)
	}

	log.Info("site deleted")
	if sess != nil {
		s.CloseEditor(sess)
		sess.Badge.ShowSuccess()
	}
	return nil
}
