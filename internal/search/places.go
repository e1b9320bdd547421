package search

import (
	"context"
	"fmt"
	"math"
	"net/url"

	"github.com/rotisserie/eris"

	"github.com/Lllllllleong/mwmap/internal/mapview"
	"github.com/Lllllllleong/mwmap/internal/models"
)

const defaultPlacesURL = "https://maps.googleapis.com/maps/api/place/textsearch/json"

// maxBiasRadius is the largest location bias radius Text Search accepts, in meters.
const maxBiasRadius = 50000

type placesResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		PlaceID          string `json:"place_id"`
		Name             string `json:"name"`
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location apiLocation `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// PlacesClient queries Google Places Text Search.
type PlacesClient struct {
	apiClient
}

// NewPlacesClient creates a places text search client.
func NewPlacesClient(apiKey string, opts ...Option) *PlacesClient {
	return &PlacesClient{apiClient: newAPIClient(apiKey, defaultPlacesURL, opts)}
}

// Source names the backend.
func (c *PlacesClient) Source() string {
	return SourcePlaces
}

// Lookup runs a text search biased to the circle around req.Bounds.
func (c *PlacesClient) Lookup(ctx context.Context, req Request) ([]Result, error) {
	params := url.Values{"query": {req.Query}}
	if req.Bounds != nil {
		center, radius := biasCircle(*req.Bounds)
		params.Set("location", fmt.Sprintf("%f,%f", center.Lat, center.Lng))
		params.Set("radius", fmt.Sprintf("%d", radius))
	}
	if req.Region != "" {
		params.Set("region", req.Region)
	}
	if req.Language != "" {
		params.Set("language", req.Language)
	}

	var resp placesResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, eris.Wrap(err, "search: places")
	}
	switch resp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, nil
	default:
		return nil, eris.Errorf("search: places status %s: %s", resp.Status, resp.ErrorMessage)
	}

	out := make([]Result, 0, len(resp.Results))
	for _, r := range resp.Results {
		addr := r.FormattedAddress
		if addr == "" {
			addr = r.Name
		}
		out = append(out, Result{
			PlaceID:  r.PlaceID,
			Name:     r.Name,
			Address:  addr,
			Location: toLatLng(r.Geometry.Location),
			Source:   SourcePlaces,
		})
	}
	return out, nil
}

// biasCircle approximates a rectangle by its centre and half diagonal.
func biasCircle(b mapview.Bounds) (models.LatLng, int) {
	c := b.Center()
	r := haversine(c, models.LatLng{Lat: b.North, Lng: b.East})
	return c, int(math.Min(math.Ceil(r), maxBiasRadius))
}

func haversine(a, b models.LatLng) float64 {
	const earthRadius = 6371000.0
	rad := math.Pi / 180
	dLat := (b.Lat - a.Lat) * rad
	dLng := (b.Lng - a.Lng) * rad
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*rad)*math.Cos(b.Lat*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadius * math.Asin(math.Sqrt(h))
}

func toLatLng(l apiLocation) models.LatLng {
	return models.LatLng{Lat: l.Lat, Lng: l.Lng}
}
