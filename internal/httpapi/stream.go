package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Lllllllleong/mwmap/internal/apperr"
	"github.com/Lllllllleong/mwmap/internal/services"
)

// stream pushes the session state as server-sent events: once on connect, then after
// every change. Comment lines keep idle connections open through proxies and mark the
// session as active. The stream ends with the request or the session.
func (h *Handler) stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(w, r, apperr.New(apperr.ErrNotReady, "실시간 연결을 지원하지 않습니다."))
		return
	}
	sess := sessionFrom(r)
	changes, release := sess.Changes()
	defer release()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := h.sendState(w, sess); err != nil {
		return
	}
	flusher.Flush()

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-sess.Done():
			return
		case <-changes:
			if err := h.sendState(w, sess); err != nil {
				zap.L().Debug("state stream closed", zap.String("session_id", sess.ID), zap.Error(err))
				return
			}
		case <-keepalive.C:
			sess.Touch()
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
		}
		flusher.Flush()
	}
}

func (h *Handler) sendState(w http.ResponseWriter, sess *services.Session) error {
	b, err := json.Marshal(h.state(sess))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: state\ndata: %s\n\n", b)
	return err
}
