package kml

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/Lllllllleong/mwmap/internal/apperr"
)

// GeoJSON property keys written on converted features.
const (
	PropName          = "name"
	PropDescription   = "description"
	PropStyleURL      = "styleUrl"
	PropStroke        = "stroke"
	PropStrokeOpacity = "stroke-opacity"
	PropStrokeWidth   = "stroke-width"
	PropFill          = "fill"
	PropFillOpacity   = "fill-opacity"
)

// ToGeoJSON converts KML text into a feature collection. Placemarks are collected from
// every Document and Folder; Point, LineString, Polygon and MultiGeometry are supported.
// Unparseable XML and documents without a single usable placemark are malformed input.
func ToGeoJSON(text string) (*geojson.FeatureCollection, error) {
	root, err := parseDocument(text)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrMalformedInput, eris.Wrap(err, "kml: parse xml"), "KML 파일 파싱 실패: 유효하지 않은 XML 형식")
	}

	styles := make(map[string]*style)
	maps := make(map[string]*styleMap)
	root.collectStyles(styles, maps)

	fc := &geojson.FeatureCollection{}
	root.walk(func(pm *placemark) {
		g, err := placemarkGeometry(pm)
		if err != nil || g == nil {
			return
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry:   g,
			Properties: placemarkProperties(pm, styles, maps),
		})
	})

	if len(fc.Features) == 0 {
		return nil, apperr.New(apperr.ErrMalformedInput, "KML 파일에 유효한 데이터가 없습니다.")
	}
	return fc, nil
}

func placemarkGeometry(pm *placemark) (geom.T, error) {
	var geoms []geom.T
	if pm.Point != nil {
		if p := pointGeom(*pm.Point); p != nil {
			geoms = append(geoms, p)
		}
	}
	if pm.LineString != nil {
		if l := lineGeom(*pm.LineString); l != nil {
			geoms = append(geoms, l)
		}
	}
	if pm.Polygon != nil {
		if p := polygonGeom(*pm.Polygon); p != nil {
			geoms = append(geoms, p)
		}
	}
	if pm.MultiGeom != nil {
		if m, err := multiGeometry(*pm.MultiGeom); err != nil {
			return nil, err
		} else if m != nil {
			geoms = append(geoms, m)
		}
	}
	return collect(geoms)
}

// collect returns the single geometry, a collection of several, or nil for none.
func collect(geoms []geom.T) (geom.T, error) {
	switch len(geoms) {
	case 0:
		return nil, nil
	case 1:
		return geoms[0], nil
	}
	gc := geom.NewGeometryCollection()
	if err := gc.Push(geoms...); err != nil {
		return nil, eris.Wrap(err, "kml: build geometry collection")
	}
	return gc, nil
}

func multiGeometry(m multiGeom) (geom.T, error) {
	var geoms []geom.T
	for _, c := range m.Points {
		if p := pointGeom(c); p != nil {
			geoms = append(geoms, p)
		}
	}
	for _, c := range m.LineStrings {
		if l := lineGeom(c); l != nil {
			geoms = append(geoms, l)
		}
	}
	for _, p := range m.Polygons {
		if pg := polygonGeom(p); pg != nil {
			geoms = append(geoms, pg)
		}
	}
	for _, inner := range m.Multi {
		g, err := multiGeometry(inner)
		if err != nil {
			return nil, err
		}
		if g != nil {
			geoms = append(geoms, g)
		}
	}
	return collect(geoms)
}

func pointGeom(c coordinates) *geom.Point {
	flat := parseCoordinates(c.Coordinates)
	if len(flat) < 2 {
		return nil
	}
	return geom.NewPointFlat(geom.XY, flat[:2])
}

func lineGeom(c coordinates) *geom.LineString {
	flat := parseCoordinates(c.Coordinates)
	if len(flat) == 0 {
		return nil
	}
	return geom.NewLineStringFlat(geom.XY, flat)
}

func polygonGeom(p polygon) *geom.Polygon {
	flat := parseCoordinates(p.Outer.Coordinates)
	if len(flat) == 0 {
		return nil
	}
	ends := []int{len(flat)}
	for _, inner := range p.Inner {
		ring := parseCoordinates(inner.Coordinates)
		if len(ring) == 0 {
			continue
		}
		flat = append(flat, ring...)
		ends = append(ends, len(flat))
	}
	return geom.NewPolygonFlat(geom.XY, flat, ends)
}

// parseCoordinates reads whitespace separated "lng,lat[,alt]" tuples into flat XY
// coordinates. Tuples that do not parse are skipped.
func parseCoordinates(s string) []float64 {
	fields := strings.Fields(s)
	flat := make([]float64, 0, 2*len(fields))
	for _, tuple := range fields {
		parts := strings.Split(tuple, ",")
		if len(parts) < 2 {
			continue
		}
		lng, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			continue
		}
		lat, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			continue
		}
		flat = append(flat, lng, lat)
	}
	return flat
}

func placemarkProperties(pm *placemark, styles map[string]*style, maps map[string]*styleMap) map[string]interface{} {
	props := make(map[string]interface{})
	if pm.ExtendedData != nil {
		for _, d := range pm.ExtendedData.Data {
			if d.Name != "" {
				props[d.Name] = strings.TrimSpace(d.Value)
			}
		}
		for _, d := range pm.ExtendedData.SimpleData {
			if d.Name != "" {
				props[d.Name] = strings.TrimSpace(d.Value)
			}
		}
	}
	if name := strings.TrimSpace(pm.Name); name != "" {
		props[PropName] = name
	}
	if desc := strings.TrimSpace(pm.Description); desc != "" {
		props[PropDescription] = desc
	}
	if pm.StyleURL != "" {
		props[PropStyleURL] = pm.StyleURL
	}

	if st := resolveStyle(pm, styles, maps); st != nil {
		applyStyle(props, st)
	}
	return props
}

// resolveStyle prefers an inline Style, then a shared Style, then the "normal" pair of
// a StyleMap.
func resolveStyle(pm *placemark, styles map[string]*style, maps map[string]*styleMap) *style {
	if pm.Style != nil {
		return pm.Style
	}
	id := styleID(pm.StyleURL)
	if id == "" {
		return nil
	}
	if st, ok := styles[id]; ok {
		return st
	}
	if sm, ok := maps[id]; ok {
		for _, pair := range sm.Pairs {
			if pair.Key == "normal" {
				return styles[styleID(pair.StyleURL)]
			}
		}
	}
	return nil
}

func styleID(url string) string {
	if i := strings.LastIndexByte(url, '#'); i >= 0 {
		return url[i+1:]
	}
	return url
}

func applyStyle(props map[string]interface{}, st *style) {
	if ls := st.LineStyle; ls != nil {
		if hex, opacity, ok := ParseColor(ls.Color); ok {
			props[PropStroke] = hex
			props[PropStrokeOpacity] = opacity
		}
		if ls.Width != nil {
			props[PropStrokeWidth] = *ls.Width
		}
	}
	if ps := st.PolyStyle; ps != nil {
		if hex, opacity, ok := ParseColor(ps.Color); ok {
			props[PropFill] = hex
			props[PropFillOpacity] = opacity
		}
		if ps.Fill != nil && *ps.Fill == 0 {
			props[PropFillOpacity] = 0.0
		}
		if ps.Outline != nil && *ps.Outline == 0 {
			props[PropStrokeOpacity] = 0.0
		}
	}
}

// ParseColor converts a KML aabbggrr colour into a #rrggbb hex string and an opacity
// in [0, 1]. Six digit values are taken as already being rrggbb.
func ParseColor(kmlColor string) (hex string, opacity float64, ok bool) {
	c := strings.TrimPrefix(strings.TrimSpace(kmlColor), "#")
	if _, err := strconv.ParseUint(c, 16, 32); err != nil {
		return "", 0, false
	}
	switch len(c) {
	case 8:
		a, _ := strconv.ParseUint(c[0:2], 16, 8)
		return "#" + strings.ToLower(c[6:8]+c[4:6]+c[2:4]), float64(a) / 255, true
	case 6:
		return "#" + strings.ToLower(c), 1, true
	}
	return "", 0, false
}
