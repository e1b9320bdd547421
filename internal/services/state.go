package services

import (
	"github.com/Lllllllleong/mwmap/internal/kml"
	"github.com/Lllllllleong/mwmap/internal/mapview"
	"github.com/Lllllllleong/mwmap/internal/models"
	"github.com/Lllllllleong/mwmap/internal/overlay"
	"github.com/Lllllllleong/mwmap/internal/ui"
)

// StoredOverlays is everything drawn from the saved per-site KML payloads.
type StoredOverlays struct {
	Markers  []overlay.Marker   `json:"markers"`
	Lines    []overlay.Polyline `json:"lines"`
	Polygons []overlay.Polygon  `json:"polygons"`
}

// SessionState is a point-in-time view of a session, as sent to its client.
type SessionState struct {
	ID             string                       `json:"id"`
	Viewport       mapview.Viewport             `json:"viewport"`
	MapTypeLabel   string                       `json:"mapTypeLabel"`
	Popup          overlay.PopupState           `json:"popup"`
	SearchMarkers  []overlay.Marker             `json:"searchMarkers"`
	LocationMarker *overlay.Marker              `json:"locationMarker,omitempty"`
	Stored         StoredOverlays               `json:"stored"`
	Layer          *kml.Layer                   `json:"layer,omitempty"`
	Panels         map[ui.PanelID]ui.PanelState `json:"panels"`
	Modals         map[ui.ModalID]ui.ModalState `json:"modals"`
	Badge          ui.BadgeState                `json:"badge"`
	Sites          []SiteView                   `json:"sites"`
	EditingSiteID  string                       `json:"editingSiteId,omitempty"`
	Synced         bool                         `json:"synced"`
}

// SiteView is a site as listed in the sites panel.
type SiteView struct {
	models.Site
	DisplayTitle string `json:"displayTitle"`
}

// UntitledSite is shown for sites without a title.
const UntitledSite = "(이름 없음)"

func siteViews(sites []models.Site) []SiteView {
	out := make([]SiteView, len(sites))
	for i, s := range sites {
		title := s.Title
		if title == "" {
			title = UntitledSite
		}
		out[i] = SiteView{Site: s, DisplayTitle: title}
	}
	return out
}

// MapTypeButtonLabel is the map-type panel button text for a map type label.
func MapTypeButtonLabel(label string) string {
	return "MAP · " + label
}

// State snapshots the session. types resolves the map-type label.
func (s *Session) State(types *mapview.Registry) SessionState {
	view := s.Viewport()
	st := SessionState{
		ID:            s.ID,
		Viewport:      view,
		MapTypeLabel:  MapTypeButtonLabel(types.Label(view.MapType)),
		Popup:         s.Popup.State(),
		SearchMarkers: s.SearchMarkers.Items(),
		Stored: StoredOverlays{
			Markers:  s.StoredMarkers.Items(),
			Lines:    s.StoredLines.Items(),
			Polygons: s.StoredPolygons.Items(),
		},
		Layer:         s.Layer(),
		Panels:        s.Panels.State(),
		Modals:        s.Modals.State(),
		Badge:         s.Badge.State(),
		Sites:         siteViews(s.Sites()),
		EditingSiteID: s.EditingSiteID(),
		Synced:        s.Synced(),
	}
	if loc := s.LocationMarker.Items(); len(loc) > 0 {
		st.LocationMarker = &loc[0]
	}
	return st
}
