// Package location performs one-shot position lookups.
package location

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/Lllllllleong/mwmap/internal/models"
)

const (
	defaultGeolocateURL = "https://www.googleapis.com/geolocation/v1/geolocate"
	// DefaultTimeout bounds a single lookup.
	DefaultTimeout = 10 * time.Second
)

// Fix is a located position with its accuracy radius in meters.
type Fix struct {
	Position models.LatLng `json:"position"`
	Accuracy float64       `json:"accuracy"`
}

// Locator resolves the caller's current position. Every call performs a fresh
// lookup; earlier fixes are never reused.
type Locator interface {
	Locate(ctx context.Context) (Fix, error)
}

// Option configures the geolocation client.
type Option func(*GeolocationClient)

// WithBaseURL overrides the endpoint URL.
func WithBaseURL(u string) Option {
	return func(c *GeolocationClient) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *GeolocationClient) {
		c.http = hc
	}
}

// WithTimeout overrides the lookup timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *GeolocationClient) {
		c.timeout = d
	}
}

// GeolocationClient locates the server's network position through the Google
// Geolocation API.
type GeolocationClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	timeout time.Duration
	limiter *rate.Limiter
}

// NewGeolocationClient creates a geolocation client.
func NewGeolocationClient(apiKey string, opts ...Option) *GeolocationClient {
	c := &GeolocationClient{
		apiKey:  apiKey,
		baseURL: defaultGeolocateURL,
		http:    &http.Client{},
		timeout: DefaultTimeout,
		limiter: rate.NewLimiter(rate.Every(time.Second), 5),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type geolocateRequest struct {
	ConsiderIP bool `json:"considerIp"`
}

type geolocateResponse struct {
	Location struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"location"`
	Accuracy float64 `json:"accuracy"`
	Error    *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Locate asks the API for the current position.
func (c *GeolocationClient) Locate(ctx context.Context) (Fix, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return Fix{}, eris.Wrap(err, "location: rate limit")
	}

	body, err := json.Marshal(geolocateRequest{ConsiderIP: true})
	if err != nil {
		return Fix{}, eris.Wrap(err, "location: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"?key="+c.apiKey, bytes.NewReader(body))
	if err != nil {
		return Fix{}, eris.Wrap(err, "location: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Fix{}, eris.Wrap(err, "location: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Fix{}, eris.Wrap(err, "location: read response")
	}

	var out geolocateResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return Fix{}, eris.Wrapf(err, "location: parse response (status %d)", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		msg := string(respBody)
		if out.Error != nil {
			msg = out.Error.Message
		}
		return Fix{}, eris.Errorf("location: unexpected status %d: %s", resp.StatusCode, msg)
	}

	return Fix{
		Position: models.LatLng{Lat: out.Location.Lat, Lng: out.Location.Lng},
		Accuracy: out.Accuracy,
	}, nil
}

// Static always reports the same position. It serves deployments without a
// geolocation key and tests.
type Static Fix

// Locate returns the fixed position.
func (s Static) Locate(ctx context.Context) (Fix, error) {
	if err := ctx.Err(); err != nil {
		return Fix{}, eris.Wrap(err, "location: static")
	}
	return Fix(s), nil
}
