package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Lllllllleong/mwmap/internal/apperr"
	"github.com/Lllllllleong/mwmap/internal/models"
	"github.com/Lllllllleong/mwmap/internal/search"
	"github.com/Lllllllleong/mwmap/internal/ui"
)

func (h *Handler) zoomIn(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	h.app.Map.ZoomIn(sess)
	h.writeState(w, sess)
}

func (h *Handler) zoomOut(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	h.app.Map.ZoomOut(sess)
	h.writeState(w, sess)
}

func (h *Handler) setMapType(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	var req models.MapTypeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if _, err := h.app.Map.SetMapType(sess, req.ID); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeState(w, sess)
}

func (h *Handler) openMapTypeModal(w http.ResponseWriter, r *http.Request) {
	opts, err := h.app.Map.OpenMapTypeModal(sessionFrom(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, opts)
}

func (h *Handler) openAddSite(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	if err := h.app.Map.OpenAddSite(sess); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeState(w, sess)
}

func (h *Handler) closeModal(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	id := ui.ModalID(chi.URLParam(r, "modal"))
	switch id {
	case ui.ModalKMLSite:
		// Dismissing the site picker discards the prepared file.
		h.app.KML.CancelPending(sess)
	case ui.ModalEditSite:
		h.app.Sites.CloseEditor(sess)
	case ui.ModalAddSite, ui.ModalMapType:
		h.app.Map.CloseModal(sess, id)
	default:
		h.writeError(w, r, apperr.New(apperr.ErrNotFound, "알 수 없는 창입니다."))
		return
	}
	h.writeState(w, sess)
}

func (h *Handler) panel(id ui.PanelID, open bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)
		var err error
		if open {
			err = h.app.Map.OpenPanel(sess, id)
		} else {
			err = h.app.Map.ClosePanel(sess, id)
		}
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		h.writeState(w, sess)
	}
}

func (h *Handler) dismissBadge(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	h.app.Map.DismissBadge(sess)
	h.writeState(w, sess)
}

func (h *Handler) idle(w http.ResponseWriter, r *http.Request) {
	var req models.IdleRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	removed := h.app.Map.Idle(sessionFrom(r), req.Center, req.Zoom)
	h.writeJSON(w, http.StatusOK, models.IdleResponse{Removed: removed})
}

func (h *Handler) click(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	h.app.Map.Click(sess)
	h.writeState(w, sess)
}

func (h *Handler) clickMarker(w http.ResponseWriter, r *http.Request) {
	var req models.MarkerClickRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	popup, err := h.app.Map.ClickMarker(sessionFrom(r), req.Layer, req.Index)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, popup)
}

func (h *Handler) clickFeature(w http.ResponseWriter, r *http.Request) {
	var req models.FeatureClickRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	popup, err := h.app.Map.ClickFeature(sessionFrom(r), req.Index, req.Position)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, popup)
}

type searchResponse struct {
	Query   string          `json:"query"`
	Results []search.Result `json:"results"`
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		h.writeError(w, r, apperr.New(apperr.ErrValidation, "검색어를 입력해 주세요."))
		return
	}
	results, err := h.app.Search.Search(r.Context(), sessionFrom(r), q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if results == nil {
		results = []search.Result{}
	}
	h.writeJSON(w, http.StatusOK, searchResponse{Query: q, Results: results})
}

func (h *Handler) locate(w http.ResponseWriter, r *http.Request) {
	fix, err := h.app.Location.Locate(r.Context(), sessionFrom(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if fix == nil {
		// A lookup is already running for this session.
		w.WriteHeader(http.StatusAccepted)
		return
	}
	h.writeJSON(w, http.StatusOK, fix)
}
