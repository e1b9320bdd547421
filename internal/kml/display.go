package kml

import (
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/Lllllllleong/mwmap/internal/mapview"
)

// DisplayZoomCeiling caps the zoom when fitting the view to a freshly imported file.
const DisplayZoomCeiling = 18

// Fallbacks for features that carry no style of their own.
const (
	DefaultStroke        = "#FF0000"
	DefaultStrokeOpacity = 0.8
	DefaultStrokeWeight  = 2.0
	DefaultFill          = "#FF6B6B"
	DefaultFillOpacity   = 0.3
)

// Style is the drawing style of one feature on the ad-hoc import layer.
type Style struct {
	StrokeColor   string  `json:"strokeColor"`
	StrokeOpacity float64 `json:"strokeOpacity"`
	StrokeWeight  float64 `json:"strokeWeight"`
	FillColor     string  `json:"fillColor"`
	FillOpacity   float64 `json:"fillOpacity"`
	Clickable     bool    `json:"clickable"`
}

// DisplayStyle derives a feature's style from its properties. Missing, empty or zero
// values fall back to the defaults.
func DisplayStyle(props map[string]interface{}) Style {
	return Style{
		StrokeColor:   firstString(props, DefaultStroke, PropStroke, "strokeColor"),
		StrokeOpacity: number(props, PropStrokeOpacity, DefaultStrokeOpacity),
		StrokeWeight:  number(props, PropStrokeWidth, DefaultStrokeWeight),
		FillColor:     firstString(props, DefaultFill, PropFill, "fillColor"),
		FillOpacity:   number(props, PropFillOpacity, DefaultFillOpacity),
		Clickable:     true,
	}
}

func firstString(props map[string]interface{}, fallback string, keys ...string) string {
	for _, k := range keys {
		if s, ok := props[k].(string); ok && s != "" {
			return s
		}
	}
	return fallback
}

func number(props map[string]interface{}, key string, fallback float64) float64 {
	var f float64
	switch v := props[key].(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fallback
		}
		f = parsed
	}
	if f == 0 {
		return fallback
	}
	return f
}

// DisplayFeature is one feature of the ad-hoc import layer, ready to draw.
type DisplayFeature struct {
	Geometry    *geojson.Geometry `json:"geometry"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Style       Style             `json:"style"`
}

// Layer is the ad-hoc geometry layer showing a file that has not been saved yet.
type Layer struct {
	FileName string           `json:"fileName"`
	Features []DisplayFeature `json:"features"`
	Bounds   *mapview.Bounds  `json:"bounds,omitempty"`
}

// BuildLayer styles every feature of fc for display.
func BuildLayer(fileName string, fc *geojson.FeatureCollection) (*Layer, error) {
	layer := &Layer{FileName: fileName}
	for _, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		g, err := geojson.Encode(f.Geometry)
		if err != nil {
			return nil, eris.Wrap(err, "kml: encode geometry")
		}
		name, _ := f.Properties[PropName].(string)
		if name == "" {
			name = "이름 없음"
		}
		desc, _ := f.Properties[PropDescription].(string)
		layer.Features = append(layer.Features, DisplayFeature{
			Geometry:    g,
			Name:        name,
			Description: desc,
			Style:       DisplayStyle(f.Properties),
		})
	}
	if b, ok := FeatureBounds(fc); ok {
		layer.Bounds = &b
	}
	return layer, nil
}

// FeatureBounds is the bounding box of every coordinate in fc, or false if fc has none.
func FeatureBounds(fc *geojson.FeatureCollection) (mapview.Bounds, bool) {
	gb := geom.NewBounds(geom.XY)
	for _, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		extendBounds(gb, f.Geometry)
	}
	return mapview.BoundsFromGeom(gb)
}

func extendBounds(gb *geom.Bounds, g geom.T) {
	if gc, ok := g.(*geom.GeometryCollection); ok {
		for _, child := range gc.Geoms() {
			extendBounds(gb, child)
		}
		return
	}
	gb.Extend(g)
}
