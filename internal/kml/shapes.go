package kml

import (
	"time"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/Lllllllleong/mwmap/internal/models"
)

// DefaultLineColor is stored for lines and polygons without a stroke colour.
const DefaultLineColor = "#3b82f6"

// Minimum vertex counts for a shape to be stored.
const (
	MinLineVertices = 2
	MinRingVertices = 4
)

// BuildShapes summarizes fc into points, lines and polygons, keeping only coordinates,
// name, description and stroke colour. Geometry collections are not summarized.
func BuildShapes(fc *geojson.FeatureCollection) models.Shapes {
	shapes := models.Shapes{
		Points:   []models.PointShape{},
		Lines:    []models.LineShape{},
		Polygons: []models.PolygonShape{},
	}
	if fc == nil {
		return shapes
	}

	for _, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		name, _ := f.Properties[PropName].(string)
		desc, _ := f.Properties[PropDescription].(string)
		color, _ := f.Properties[PropStroke].(string)
		if color == "" {
			color = DefaultLineColor
		}

		switch g := f.Geometry.(type) {
		case *geom.Point:
			pointType := models.PointTypePlain
			if name != "" || desc != "" {
				pointType = models.PointTypeText
			}
			shapes.Points = append(shapes.Points, models.PointShape{
				Lat:         g.Y(),
				Lng:         g.X(),
				Type:        pointType,
				Title:       name,
				Description: desc,
			})
		case *geom.LineString:
			if g.NumCoords() < MinLineVertices {
				continue
			}
			shapes.Lines = append(shapes.Lines, models.LineShape{
				Path:        vertexPath(g.Coords()),
				Name:        name,
				Description: desc,
				Color:       color,
			})
		case *geom.Polygon:
			if g.NumLinearRings() == 0 {
				continue
			}
			ring := g.LinearRing(0)
			if ring.NumCoords() < MinRingVertices {
				continue
			}
			shapes.Polygons = append(shapes.Polygons, models.PolygonShape{
				Path:        vertexPath(ring.Coords()),
				Type:        "block",
				Name:        name,
				Description: desc,
				Color:       color,
			})
		}
	}
	return shapes
}

func vertexPath(coords []geom.Coord) []models.LatLng {
	out := make([]models.LatLng, len(coords))
	for i, c := range coords {
		out[i] = models.LatLng{Lat: c.Y(), Lng: c.X()}
	}
	return out
}

// NewPayload wraps shapes in the stored per-site payload, stamped with now in
// ISO-8601 UTC.
func NewPayload(fileName string, shapes models.Shapes, now time.Time) models.KMLPayload {
	return models.KMLPayload{
		FileName:     fileName,
		UploadedAt:   now.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		FeatureCount: shapes.Total(),
		PointCount:   len(shapes.Points),
		LineCount:    len(shapes.Lines),
		PolygonCount: len(shapes.Polygons),
		Shapes:       shapes,
	}
}
