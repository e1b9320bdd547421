// Package mapview owns the map viewport: its centre, zoom, base map type and style.
// Other components read a Viewport but only the map surface itself and explicit user
// zoom or geolocation actions change it.
package mapview

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/Lllllllleong/mwmap/internal/config"
)

// Viewport is the live map view of one session.
type Viewport struct {
	Center  LatLng             `json:"center"`
	Zoom    int                `json:"zoom"`
	MapType string             `json:"mapType"`
	Styles  []config.StyleRule `json:"styles"`
	Width   int                `json:"width"`
	Height  int                `json:"height"`
	MinZoom int                `json:"minZoom"`
	MaxZoom int                `json:"maxZoom"`
}

// Surface builds and mutates viewports according to the map configuration.
type Surface struct {
	cfg   config.MapConfig
	types *Registry
}

// NewSurface creates the map surface.
func NewSurface(cfg config.MapConfig, types *Registry) *Surface {
	if types == nil {
		types = DefaultRegistry()
	}
	return &Surface{cfg: cfg, types: types}
}

// Types returns the map type registry.
func (s *Surface) Types() *Registry {
	return s.types
}

// Config returns the map configuration.
func (s *Surface) Config() config.MapConfig {
	return s.cfg
}

// NewInitialViewport centres the view on the configured box and fits it. The extra
// zoom step is applied separately by SettleInitial once the fit has settled.
func (s *Surface) NewInitialViewport() Viewport {
	b := BoundsFromConfig(s.cfg.Bounds)
	v := Viewport{
		Center:  b.Center(),
		Zoom:    s.cfg.InitialZoom,
		MapType: MapTypeRoadmap,
		Styles:  append([]config.StyleRule(nil), s.cfg.Style...),
		Width:   s.cfg.ViewportWidth,
		Height:  s.cfg.ViewportHeight,
		MinZoom: s.cfg.ZoomMin,
		MaxZoom: s.cfg.ZoomMax,
	}
	v.FitBounds(b, 0)
	return v
}

// SettleInitial applies the one extra zoom step taken after the initial fit.
func (s *Surface) SettleInitial(v *Viewport) {
	v.SetZoom(v.Zoom + 1)
}

// SetMapType switches the base map. The road-only style applies to the roadmap; every
// other type is drawn unstyled.
func (s *Surface) SetMapType(v *Viewport, id string) error {
	t, ok := s.types.Get(id)
	if !ok {
		return eris.Errorf("mapview: unknown map type %q", id)
	}
	v.MapType = t.ID
	if t.ID == MapTypeRoadmap {
		v.Styles = append([]config.StyleRule(nil), s.cfg.Style...)
	} else {
		v.Styles = nil
	}
	return nil
}

// SetZoom sets the zoom clamped to [MinZoom, MaxZoom].
func (v *Viewport) SetZoom(z int) {
	if z > v.MaxZoom {
		z = v.MaxZoom
	}
	if z < v.MinZoom {
		z = v.MinZoom
	}
	v.Zoom = z
}

// ZoomIn raises the zoom by one step, up to MaxZoom.
func (v *Viewport) ZoomIn() {
	v.SetZoom(v.Zoom + 1)
}

// ZoomOut lowers the zoom by one step, down to MinZoom.
func (v *Viewport) ZoomOut() {
	v.SetZoom(v.Zoom - 1)
}

// PanTo recentres the view without changing zoom.
func (v *Viewport) PanTo(p LatLng) {
	v.Center = p
}

// RaiseZoom zooms in to at least z; it never zooms out.
func (v *Viewport) RaiseZoom(z int) {
	if v.Zoom < z {
		v.SetZoom(z)
	}
}

// FitBounds centres on b at the largest zoom that shows all of it. A positive ceiling
// caps the zoom so tiny shapes are not over-zoomed.
func (v *Viewport) FitBounds(b Bounds, ceiling int) {
	z := FitZoom(b, v.Width, v.Height)
	if ceiling > 0 && z > ceiling {
		z = ceiling
	}
	v.Center = b.Center()
	v.SetZoom(z)
}

// VisibleBounds is the lat/lng rectangle currently on screen.
func (v Viewport) VisibleBounds() Bounds {
	world := tileSize * math.Exp2(float64(v.Zoom))
	cx := mercatorX(v.Center.Lng) * world
	cy := mercatorY(v.Center.Lat) * world
	halfW := float64(v.Width) / 2
	halfH := float64(v.Height) / 2

	clamp := func(f float64) float64 { return math.Min(math.Max(f, 0), 1) }
	return Bounds{
		South: inverseMercatorY(clamp((cy + halfH) / world)),
		North: inverseMercatorY(clamp((cy - halfH) / world)),
		West:  math.Max(inverseMercatorX((cx-halfW)/world), -180),
		East:  math.Min(inverseMercatorX((cx+halfW)/world), 180),
	}
}
