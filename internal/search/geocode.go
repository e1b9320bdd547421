package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

// Option configures a Google API client.
type Option func(*apiClient)

// WithBaseURL overrides the endpoint URL.
func WithBaseURL(u string) Option {
	return func(c *apiClient) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *apiClient) {
		c.http = hc
	}
}

// WithRateLimit caps requests per second. Zero or less disables limiting.
func WithRateLimit(perSec float64) Option {
	return func(c *apiClient) {
		if perSec > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSec), 1)
		} else {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
		}
	}
}

type apiClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

func newAPIClient(apiKey, baseURL string, opts []Option) apiClient {
	c := apiClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(10), 1),
	}
	for _, o := range opts {
		o(&c)
	}
	return c
}

// get issues a rate limited GET and decodes the JSON body into out.
func (c *apiClient) get(ctx context.Context, params url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "rate limit")
	}

	params.Set("key", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return eris.Wrap(err, "build request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response")
	}
	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "parse response")
	}
	return nil
}

type apiLocation struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type geocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		PlaceID          string `json:"place_id"`
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location apiLocation `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// GeocodeClient queries the Google Geocoding API.
type GeocodeClient struct {
	apiClient
}

// NewGeocodeClient creates a geocoding client.
func NewGeocodeClient(apiKey string, opts ...Option) *GeocodeClient {
	return &GeocodeClient{apiClient: newAPIClient(apiKey, defaultGeocodeURL, opts)}
}

// Source names the backend.
func (c *GeocodeClient) Source() string {
	return SourceGeocoding
}

// Lookup geocodes req.Query, biased to req.Bounds. The formatted address doubles as
// the result name.
func (c *GeocodeClient) Lookup(ctx context.Context, req Request) ([]Result, error) {
	params := url.Values{"address": {req.Query}}
	if req.Bounds != nil {
		b := req.Bounds
		params.Set("bounds", fmt.Sprintf("%f,%f|%f,%f", b.South, b.West, b.North, b.East))
	}
	if req.Region != "" {
		params.Set("region", req.Region)
	}
	if req.Language != "" {
		params.Set("language", req.Language)
	}

	var resp geocodeResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, eris.Wrap(err, "search: geocode")
	}
	switch resp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, nil
	default:
		return nil, eris.Errorf("search: geocode status %s: %s", resp.Status, resp.ErrorMessage)
	}

	out := make([]Result, 0, len(resp.Results))
	for _, r := range resp.Results {
		out = append(out, Result{
			PlaceID:  r.PlaceID,
			Name:     r.FormattedAddress,
			Address:  r.FormattedAddress,
			Location: toLatLng(r.Geometry.Location),
			Source:   SourceGeocoding,
		})
	}
	return out, nil
}
