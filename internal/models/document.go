package models

import "time"

// Field names of the shared user document. They double as Firestore update paths.
const (
	FieldSites       = "customSchedules"
	FieldKMLBySite   = "kmlBySite"
	FieldLastUpdated = "lastUpdated"
)

// SiteType is the type tag written on every site created from the sites panel.
const SiteType = "custom_schedule"

// UserDocument is the single shared record holding every site and its KML payload.
// It is read in full and rewritten in full (or patched by field path) on every mutation.
type UserDocument struct {
	Sites       []Site                `firestore:"customSchedules" json:"customSchedules"`
	KMLBySite   map[string]KMLPayload `firestore:"kmlBySite,omitempty" json:"kmlBySite,omitempty"`
	LastUpdated time.Time             `firestore:"lastUpdated,omitempty" json:"lastUpdated,omitempty"`
}

// Site is a user-defined named location record. IDs are unique within the list and the
// list is kept newest first.
type Site struct {
	ID        string `firestore:"id" json:"id"`
	Title     string `firestore:"title" json:"title"`
	Timestamp string `firestore:"timestamp" json:"timestamp"`
	Type      string `firestore:"type" json:"type"`
}

// KMLPayload is the compact summary of one imported KML/KMZ file, stored per site id.
type KMLPayload struct {
	FileName     string `firestore:"fileName" json:"fileName"`
	UploadedAt   string `firestore:"uploadedAt" json:"uploadedAt"`
	FeatureCount int    `firestore:"featureCount" json:"featureCount"`
	PointCount   int    `firestore:"pointCount" json:"pointCount"`
	LineCount    int    `firestore:"lineCount" json:"lineCount"`
	PolygonCount int    `firestore:"polygonCount" json:"polygonCount"`
	Shapes       Shapes `firestore:"shapes" json:"shapes"`
}

// Shapes buckets the summarized geometry of a KML file by kind.
type Shapes struct {
	Points   []PointShape   `firestore:"points" json:"points"`
	Lines    []LineShape    `firestore:"lines" json:"lines"`
	Polygons []PolygonShape `firestore:"polygons" json:"polygons"`
}

// Total is the number of shapes across all buckets.
func (s Shapes) Total() int {
	return len(s.Points) + len(s.Lines) + len(s.Polygons)
}

// LatLng is a WGS84 coordinate.
type LatLng struct {
	Lat float64 `firestore:"lat" json:"lat"`
	Lng float64 `firestore:"lng" json:"lng"`
}

// Point shape types.
const (
	PointTypeText  = "text"
	PointTypePlain = "point"
)

// PointShape is a placemark point. Points carrying a name or description are "text" points.
type PointShape struct {
	Lat         float64 `firestore:"lat" json:"lat"`
	Lng         float64 `firestore:"lng" json:"lng"`
	Type        string  `firestore:"type" json:"type"`
	Title       string  `firestore:"title" json:"title"`
	Description string  `firestore:"description" json:"description"`
}

// LineShape is a polyline with at least two vertices.
type LineShape struct {
	Path        []LatLng `firestore:"path" json:"path"`
	Name        string   `firestore:"name" json:"name"`
	Description string   `firestore:"description" json:"description"`
	Color       string   `firestore:"color" json:"color"`
}

// PolygonShape is the outer ring of a polygon (closed, at least four entries).
type PolygonShape struct {
	Path        []LatLng `firestore:"path" json:"path"`
	Type        string   `firestore:"type" json:"type"`
	Name        string   `firestore:"name" json:"name"`
	Description string   `firestore:"description" json:"description"`
	Color       string   `firestore:"color" json:"color"`
}

// FindSite returns the index of the site with the given id, or -1.
func (d *UserDocument) FindSite(id string) int {
	for i, s := range d.Sites {
		if s.ID == id {
			return i
		}
	}
	return -1
}
