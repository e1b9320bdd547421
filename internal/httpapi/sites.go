package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Lllllllleong/mwmap/internal/apperr"
	"github.com/Lllllllleong/mwmap/internal/models"
)

func (h *Handler) listSites(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.state(sessionFrom(r)).Sites)
}

func (h *Handler) overlays(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.state(sessionFrom(r)).Stored)
}

func (h *Handler) createSite(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSiteRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	site, err := h.app.Sites.Create(r.Context(), sessionFrom(r), req.Title)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if site == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.writeJSON(w, http.StatusCreated, site)
}

func (h *Handler) openEditor(w http.ResponseWriter, r *http.Request) {
	view, err := h.app.Sites.OpenEditor(sessionFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

func (h *Handler) renameSite(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	var req models.RenameSiteRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.app.Sites.Rename(r.Context(), sess, chi.URLParam(r, "id"), req.Title); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeState(w, sess)
}

func (h *Handler) deleteSite(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	if err := h.app.Sites.Delete(r.Context(), sess, chi.URLParam(r, "id"), confirmed); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeState(w, sess)
}

func (h *Handler) importKML(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, r, apperr.Wrap(apperr.ErrValidation, err, "파일이 너무 큽니다."))
			return
		}
		h.writeError(w, r, apperr.Wrap(apperr.ErrValidation, err, "파일을 선택해 주세요."))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.writeError(w, r, apperr.Wrap(apperr.ErrValidation, err, "파일을 읽지 못했습니다."))
		return
	}
	res, err := h.app.KML.Prepare(r.Context(), sessionFrom(r), header.Filename, data)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

func (h *Handler) cancelKML(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	h.app.KML.CancelPending(sess)
	h.app.KML.ClearLayer(sess)
	h.writeState(w, sess)
}

// saveKML stores the session's prepared file under the site in the path.
func (h *Handler) saveKML(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	if err := h.app.KML.SaveForSite(r.Context(), sess, chi.URLParam(r, "id"), nil); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeState(w, sess)
}
