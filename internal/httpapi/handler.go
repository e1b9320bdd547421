// Package httpapi exposes the map sessions over HTTP. Each UI region of the client is
// bound to its endpoints through a ui.Registry, and state changes are pushed back over
// a server-sent event stream.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/Lllllllleong/mwmap/internal/apperr"
	"github.com/Lllllllleong/mwmap/internal/models"
	"github.com/Lllllllleong/mwmap/internal/services"
	"github.com/Lllllllleong/mwmap/internal/ui"
)

// SessionHeader carries the session id in both directions. Clients that cannot set
// headers (EventSource) pass it as the `session` query parameter instead.
const SessionHeader = "X-Session-ID"

type sessionKey struct{}

// Handler serves the map API for one app.
type Handler struct {
	app       *services.App
	registry  *ui.Registry
	maxUpload int64
	keepalive time.Duration
}

// New binds every UI region to its endpoints and seals the registry. Regions left
// unbound are reported by /api/config.
func New(app *services.App) (*Handler, error) {
	h := &Handler{
		app:       app,
		registry:  ui.NewRegistry(ui.DefaultRegions...),
		maxUpload: 32 << 20,
		keepalive: 25 * time.Second,
	}
	if mb := app.Config.Server.MaxUploadMB; mb > 0 {
		h.maxUpload = int64(mb) << 20
	}
	if s := app.Config.Server.KeepaliveSecs; s > 0 {
		h.keepalive = time.Duration(s) * time.Second
	}

	for _, b := range h.bindings() {
		if err := h.registry.Bind(b); err != nil {
			return nil, err
		}
	}
	h.registry.Seal()
	return h, nil
}

// Registry returns the sealed region registry.
func (h *Handler) Registry() *ui.Registry {
	return h.registry
}

// Router builds the chi router.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.app.Config.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", SessionHeader},
		ExposedHeaders: []string{SessionHeader},
		MaxAge:         300,
	}))

	r.Get("/health", h.health)
	r.Handle("/tiles/*", h.app.Tiles)

	r.Route("/api", func(r chi.Router) {
		r.Get("/config", h.config)

		r.Group(func(r chi.Router) {
			r.Use(h.withSession)
			r.Get("/session", h.session)
			r.Get("/sites", h.listSites)
			r.Get("/overlays", h.overlays)
			r.Delete("/modals/{modal}", h.closeModal)
			for _, b := range h.registry.Bindings() {
				r.Method(b.Method, strings.TrimPrefix(b.Path, "/api"), b.Handler)
			}
		})
	})
	return r
}

// withSession resolves the caller's session, creating one when needed, and echoes its
// id back in the response header.
func (h *Handler) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(SessionHeader)
		if id == "" {
			id = r.URL.Query().Get("session")
		}
		sess := h.app.Sessions.Resolve(id)
		w.Header().Set(SessionHeader, sess.ID)
		ctx := context.WithValue(r.Context(), sessionKey{}, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFrom(r *http.Request) *services.Session {
	sess, _ := r.Context().Value(sessionKey{}).(*services.Session)
	return sess
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (h *Handler) state(sess *services.Session) services.SessionState {
	return sess.State(h.app.Surface.Types())
}

func (h *Handler) writeState(w http.ResponseWriter, sess *services.Session) {
	h.writeJSON(w, http.StatusOK, h.state(sess))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("write response failed", zap.Error(err))
	}
}

// writeError sends the single user-facing message of err with its mapped status.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.Status(err)
	log := zap.L().With(
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.Error(err),
	)
	if status >= http.StatusInternalServerError {
		log.Error("request failed")
	} else {
		log.Info("request rejected")
	}
	h.writeJSON(w, status, models.ErrorResponse{Error: apperr.Message(err)})
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Wrap(apperr.ErrValidation, err, "요청 형식이 올바르지 않습니다.")
	}
	return nil
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type configResponse struct {
	Map      mapConfig    `json:"map"`
	Bindings []ui.Binding `json:"bindings"`
	Missing  []string     `json:"missing"`
}

type mapConfig struct {
	ZoomMin  int                      `json:"zoomMin"`
	ZoomMax  int                      `json:"zoomMax"`
	MapTypes []services.MapTypeOption `json:"mapTypes"`
}

func (h *Handler) config(w http.ResponseWriter, r *http.Request) {
	cfg := h.app.Surface.Config()
	resp := configResponse{
		Map:      mapConfig{ZoomMin: cfg.ZoomMin, ZoomMax: cfg.ZoomMax},
		Bindings: h.registry.Bindings(),
		Missing:  h.registry.Missing(),
	}
	for _, t := range h.app.Surface.Types().List() {
		resp.Map.MapTypes = append(resp.Map.MapTypes, services.MapTypeOption{ID: t.ID, Label: t.Label})
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) {
	h.writeState(w, sessionFrom(r))
}
