package mapview

import (
	"math"

	"github.com/twpayne/go-geom"

	"github.com/Lllllllleong/mwmap/internal/config"
	"github.com/Lllllllleong/mwmap/internal/models"
)

// LatLng is a WGS84 coordinate.
type LatLng = models.LatLng

// Bounds is a lat/lng rectangle. It does not cross the antimeridian.
type Bounds struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// BoundsFromConfig converts the configured box.
func BoundsFromConfig(c config.BoundsConfig) Bounds {
	return Bounds{South: c.South, West: c.West, North: c.North, East: c.East}
}

// BoundsFromGeom converts go-geom XY bounds (x = lng, y = lat). Empty bounds yield
// the zero value and false.
func BoundsFromGeom(b *geom.Bounds) (Bounds, bool) {
	if b == nil || b.IsEmpty() {
		return Bounds{}, false
	}
	return Bounds{South: b.Min(1), West: b.Min(0), North: b.Max(1), East: b.Max(0)}, true
}

// Geom returns the bounds as go-geom XY bounds.
func (b Bounds) Geom() *geom.Bounds {
	return geom.NewBounds(geom.XY).Set(b.West, b.South, b.East, b.North)
}

// Contains reports whether p lies inside the rectangle, edges included.
func (b Bounds) Contains(p LatLng) bool {
	return p.Lat >= b.South && p.Lat <= b.North && p.Lng >= b.West && p.Lng <= b.East
}

// Center is the midpoint of the rectangle.
func (b Bounds) Center() LatLng {
	return LatLng{Lat: (b.South + b.North) / 2, Lng: (b.West + b.East) / 2}
}

// BoundsOf returns the smallest rectangle holding every point, or false for no points.
func BoundsOf(points []LatLng) (Bounds, bool) {
	if len(points) == 0 {
		return Bounds{}, false
	}
	gb := geom.NewBounds(geom.XY)
	for _, p := range points {
		gb.Extend(geom.NewPointFlat(geom.XY, []float64{p.Lng, p.Lat}))
	}
	return BoundsFromGeom(gb)
}

// Web Mercator helpers. Coordinates are fractions of the world square in [0, 1].

const tileSize = 256.0

func mercatorX(lng float64) float64 {
	return (lng + 180) / 360
}

func mercatorY(lat float64) float64 {
	s := math.Sin(lat * math.Pi / 180)
	s = math.Min(math.Max(s, -0.9999), 0.9999)
	return 0.5 - math.Log((1+s)/(1-s))/(4*math.Pi)
}

func inverseMercatorX(x float64) float64 {
	return x*360 - 180
}

func inverseMercatorY(y float64) float64 {
	n := math.Pi - 2*math.Pi*y
	return math.Atan(math.Sinh(n)) * 180 / math.Pi
}

// FitZoom returns the largest integer zoom at which b fits inside a width×height pixel
// viewport. A degenerate (single point) box returns math.MaxInt so callers cap it.
func FitZoom(b Bounds, width, height int) int {
	lngFraction := (b.East - b.West) / 360
	if lngFraction < 0 {
		lngFraction += 1
	}
	latFraction := mercatorY(b.South) - mercatorY(b.North)

	zoom := math.Inf(1)
	if lngFraction > 0 {
		zoom = math.Min(zoom, math.Log2(float64(width)/tileSize/lngFraction))
	}
	if latFraction > 0 {
		zoom = math.Min(zoom, math.Log2(float64(height)/tileSize/latFraction))
	}
	if math.IsInf(zoom, 1) {
		return math.MaxInt
	}
	return int(math.Floor(zoom))
}
