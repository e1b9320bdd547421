package models

// These structs define the JSON payloads exchanged with the map client and with the
// import functions.

// CreateSiteRequest is the body of a site creation.
type CreateSiteRequest struct {
	Title string `json:"title"`
}

// RenameSiteRequest is the body of a site rename.
type RenameSiteRequest struct {
	Title string `json:"title"`
}

// SaveKMLRequest picks the destination site for the session's prepared KML payload.
type SaveKMLRequest struct {
	SiteID string `json:"siteId"`
}

// MapTypeRequest switches the base map.
type MapTypeRequest struct {
	ID string `json:"id"`
}

// IdleRequest reports where the client's map came to rest.
type IdleRequest struct {
	Center LatLng `json:"center"`
	Zoom   int    `json:"zoom"`
}

// IdleResponse reports how many search markers left the view.
type IdleResponse struct {
	Removed int `json:"removed"`
}

// MarkerClickRequest identifies a clicked marker by layer and index.
type MarkerClickRequest struct {
	Layer string `json:"layer"`
	Index int    `json:"index"`
}

// FeatureClickRequest identifies a clicked feature of the ad-hoc import layer.
type FeatureClickRequest struct {
	Index    int    `json:"index"`
	Position LatLng `json:"position"`
}

// KMLImportRequest is the input of the kml-import function. The file comes either
// inline (Content, base64 in JSON) or from Cloud Storage (GCSUri).
type KMLImportRequest struct {
	SiteID   string `json:"siteId"`
	FileName string `json:"fileName"`
	Content  []byte `json:"content,omitempty"`
	GCSUri   string `json:"gcsUri,omitempty"`
}

// KMLImportResponse is the output of the kml-import function.
type KMLImportResponse struct {
	Status       string `json:"status"`
	SiteID       string `json:"siteId"`
	FileName     string `json:"fileName"`
	FeatureCount int    `json:"featureCount"`
	PointCount   int    `json:"pointCount"`
	LineCount    int    `json:"lineCount"`
	PolygonCount int    `json:"polygonCount"`
}

// ErrorResponse carries the single user-facing message of a failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}
