package httpapi

import (
	"net/http"

	"github.com/Lllllllleong/mwmap/internal/ui"
)

// bindings lists the endpoints of every UI region. Paths are absolute; the router
// mounts them under /api.
func (h *Handler) bindings() []ui.Binding {
	return []ui.Binding{
		{Region: "zoom-in-btn", Method: http.MethodPost, Path: "/api/map/zoom-in", Handler: h.zoomIn},
		{Region: "zoom-out-btn", Method: http.MethodPost, Path: "/api/map/zoom-out", Handler: h.zoomOut},
		{Region: "location-btn", Method: http.MethodPost, Path: "/api/location", Handler: h.locate},
		{Region: "address-input", Method: http.MethodGet, Path: "/api/search", Handler: h.search},

		{Region: "map", Method: http.MethodPost, Path: "/api/map/idle", Handler: h.idle},
		{Region: "map", Method: http.MethodPost, Path: "/api/map/click", Handler: h.click},
		{Region: "map", Method: http.MethodPost, Path: "/api/map/markers/click", Handler: h.clickMarker},
		{Region: "map", Method: http.MethodPost, Path: "/api/map/features/click", Handler: h.clickFeature},

		{Region: "project-btn", Method: http.MethodPost, Path: "/api/panels/project/open", Handler: h.panel(ui.PanelProject, true)},
		{Region: "project-panel-overlay", Method: http.MethodPost, Path: "/api/panels/project/close", Handler: h.panel(ui.PanelProject, false)},
		{Region: "map-type-btn", Method: http.MethodPost, Path: "/api/panels/map-type/open", Handler: h.panel(ui.PanelMapType, true)},
		{Region: "map-type-panel-overlay", Method: http.MethodPost, Path: "/api/panels/map-type/close", Handler: h.panel(ui.PanelMapType, false)},
		{Region: "map-type-option", Method: http.MethodPost, Path: "/api/modals/map-type", Handler: h.openMapTypeModal},
		{Region: "map-type-option", Method: http.MethodPost, Path: "/api/map/type", Handler: h.setMapType},

		{Region: "kml-import-btn", Method: http.MethodPost, Path: "/api/kml/import", Handler: h.importKML},
		{Region: "kml-import-btn", Method: http.MethodDelete, Path: "/api/kml/pending", Handler: h.cancelKML},
		{Region: "kml-site-list", Method: http.MethodPut, Path: "/api/sites/{id}/kml", Handler: h.saveKML},

		{Region: "add-site-submit", Method: http.MethodPost, Path: "/api/modals/add-site", Handler: h.openAddSite},
		{Region: "add-site-submit", Method: http.MethodPost, Path: "/api/sites", Handler: h.createSite},
		{Region: "edit-site-save", Method: http.MethodPost, Path: "/api/sites/{id}/edit", Handler: h.openEditor},
		{Region: "edit-site-save", Method: http.MethodPatch, Path: "/api/sites/{id}", Handler: h.renameSite},
		{Region: "edit-site-delete", Method: http.MethodDelete, Path: "/api/sites/{id}", Handler: h.deleteSite},

		{Region: "sync-badge", Method: http.MethodGet, Path: "/api/sites/stream", Handler: h.stream},
		{Region: "sync-badge", Method: http.MethodPost, Path: "/api/badge/dismiss", Handler: h.dismissBadge},
	}
}
