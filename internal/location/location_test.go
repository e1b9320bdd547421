package location

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/mwmap/internal/models"
)

func TestGeolocationClient(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, true, body["considerIp"])

		_, _ = io.WriteString(w, `{"location": {"lat": 37.5665, "lng": 126.978}, "accuracy": 42.5}`)
	}))
	defer srv.Close()

	c := NewGeolocationClient("test-key", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	fix, err := c.Locate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.LatLng{Lat: 37.5665, Lng: 126.978}, fix.Position)
	assert.InDelta(t, 42.5, fix.Accuracy, 1e-9)

	// No cached fix: a second call hits the API again.
	_, err = c.Locate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestGeolocationClientAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error": {"code": 404, "message": "Not Found"}}`)
	}))
	defer srv.Close()

	_, err := NewGeolocationClient("k", WithBaseURL(srv.URL)).Locate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Not Found")
}

func TestGeolocationClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	c := NewGeolocationClient("k", WithBaseURL(srv.URL), WithTimeout(50*time.Millisecond))
	start := time.Now()
	_, err := c.Locate(context.Background())
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 900*time.Millisecond)
}

func TestStatic(t *testing.T) {
	s := Static{Position: models.LatLng{Lat: 1, Lng: 2}, Accuracy: 3}
	fix, err := s.Locate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Fix(s), fix)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Locate(ctx)
	assert.Error(t, err)
}
