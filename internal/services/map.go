package services

import (
	"github.com/rotisserie/eris"

	"github.com/Lllllllleong/mwmap/internal/apperr"
	"github.com/Lllllllleong/mwmap/internal/mapview"
	"github.com/Lllllllleong/mwmap/internal/models"
	"github.com/Lllllllleong/mwmap/internal/overlay"
	"github.com/Lllllllleong/mwmap/internal/ui"
)

// Marker layers a client can click.
const (
	LayerStored = "stored"
	LayerSearch = "search"
)

// MapControl applies direct map interactions: zoom buttons, map type, panning, clicks,
// panels and modals.
type MapControl struct {
	surface *mapview.Surface
}

// NewMapControl creates the map controls.
func NewMapControl(surface *mapview.Surface) *MapControl {
	return &MapControl{surface: surface}
}

// Surface returns the map surface.
func (m *MapControl) Surface() *mapview.Surface {
	return m.surface
}

// ZoomIn raises the zoom one step.
func (m *MapControl) ZoomIn(sess *Session) mapview.Viewport {
	return sess.UpdateViewport(func(v *mapview.Viewport) { v.ZoomIn() })
}

// ZoomOut lowers the zoom one step.
func (m *MapControl) ZoomOut(sess *Session) mapview.Viewport {
	return sess.UpdateViewport(func(v *mapview.Viewport) { v.ZoomOut() })
}

// SetMapType switches the base map and closes the map-type modal.
func (m *MapControl) SetMapType(sess *Session, id string) (mapview.Viewport, error) {
	var err error
	v := sess.UpdateViewport(func(v *mapview.Viewport) { err = m.surface.SetMapType(v, id) })
	if err != nil {
		return v, apperr.Wrap(apperr.ErrValidation, err, "지원하지 않는 지도 유형입니다.")
	}
	sess.Modals.Close(ui.ModalMapType)
	sess.Notify()
	return v, nil
}

// MapTypeOption is one entry of the map-type modal.
type MapTypeOption struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

// OpenMapTypeModal lists the registered map types with the current one selected.
func (m *MapControl) OpenMapTypeModal(sess *Session) ([]MapTypeOption, error) {
	current := sess.Viewport().MapType
	var opts []MapTypeOption
	for _, t := range m.surface.Types().List() {
		opts = append(opts, MapTypeOption{ID: t.ID, Label: t.Label, Selected: t.ID == current})
	}
	if err := sess.Modals.Open(ui.ModalMapType, opts); err != nil {
		return nil, err
	}
	sess.Notify()
	return opts, nil
}

// CloseModal closes any modal.
func (m *MapControl) CloseModal(sess *Session, id ui.ModalID) {
	sess.Modals.Close(id)
	sess.Notify()
}

// OpenAddSite opens the add-site modal.
func (m *MapControl) OpenAddSite(sess *Session) error {
	if err := sess.Modals.Open(ui.ModalAddSite, nil); err != nil {
		return err
	}
	sess.Notify()
	return nil
}

// OpenPanel opens a side panel, closing the other one.
func (m *MapControl) OpenPanel(sess *Session, id ui.PanelID) error {
	if err := sess.Panels.Open(id); err != nil {
		return apperr.Wrap(apperr.ErrNotFound, err, "알 수 없는 패널입니다.")
	}
	sess.Notify()
	return nil
}

// ClosePanel closes a side panel.
func (m *MapControl) ClosePanel(sess *Session, id ui.PanelID) error {
	if err := sess.Panels.Close(id); err != nil {
		return apperr.Wrap(apperr.ErrNotFound, err, "알 수 없는 패널입니다.")
	}
	sess.Notify()
	return nil
}

// DismissBadge hides an error badge.
func (m *MapControl) DismissBadge(sess *Session) {
	sess.Badge.Dismiss()
}

// Idle records where the client's map settled and drops search markers now out of view.
func (m *MapControl) Idle(sess *Session, center models.LatLng, zoom int) int {
	v := sess.UpdateViewport(func(v *mapview.Viewport) {
		v.PanTo(center)
		v.SetZoom(zoom)
	})
	visible := v.VisibleBounds()
	removed := sess.SearchMarkers.Retain(func(mk overlay.Marker) bool {
		return visible.Contains(mk.Position)
	})
	if removed > 0 {
		sess.Notify()
	}
	return removed
}

// Click handles a click on empty map: the popup closes and the location marker goes.
func (m *MapControl) Click(sess *Session) {
	sess.Popup.Close()
	sess.LocationMarker.Clear()
	sess.Notify()
}

// ClickMarker opens the popup for a marker of a layer. Stored text points also pan to
// the point and zoom in.
func (m *MapControl) ClickMarker(sess *Session, layer string, index int) (overlay.PopupState, error) {
	var items []overlay.Marker
	switch layer {
	case LayerStored:
		items = sess.StoredMarkers.Items()
	case LayerSearch:
		items = sess.SearchMarkers.Items()
	default:
		return overlay.PopupState{}, apperr.Wrap(apperr.ErrValidation, eris.Errorf("unknown layer %q", layer), "알 수 없는 레이어입니다.")
	}
	if index < 0 || index >= len(items) {
		return overlay.PopupState{}, apperr.New(apperr.ErrNotFound, "표시 중인 마커가 아닙니다.")
	}
	mk := items[index]
	if !mk.Clickable {
		return sess.Popup.State(), nil
	}

	sess.Popup.Open(overlay.PopupContent{Title: mk.Title, Body: mk.Subtitle}, mk.Position)
	if layer == LayerStored {
		sess.UpdateViewport(func(v *mapview.Viewport) {
			v.PanTo(mk.Position)
			v.RaiseZoom(TextPointFocusZoom)
		})
	}
	sess.Notify()
	return sess.Popup.State(), nil
}

// ClickFeature opens the popup for a feature of the ad-hoc layer at the clicked position.
func (m *MapControl) ClickFeature(sess *Session, index int, at models.LatLng) (overlay.PopupState, error) {
	layer := sess.Layer()
	if layer == nil || index < 0 || index >= len(layer.Features) {
		return overlay.PopupState{}, apperr.New(apperr.ErrNotFound, "표시 중인 객체가 아닙니다.")
	}
	f := layer.Features[index]
	sess.Popup.Open(overlay.PopupContent{Title: f.Name, Body: f.Description}, at)
	sess.Notify()
	return sess.Popup.State(), nil
}
