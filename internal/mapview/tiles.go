package mapview

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// TileProxy serves registered custom tile layers from their upstream tile servers.
type TileProxy struct {
	types  *Registry
	client *http.Client
}

// NewTileProxy creates a tile proxy over the registry's custom types.
func NewTileProxy(types *Registry, client *http.Client) *TileProxy {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &TileProxy{types: types, client: client}
}

// Fetch retrieves one tile of a custom layer.
func (p *TileProxy) Fetch(ctx context.Context, layer string, z, x, y int) ([]byte, string, error) {
	t, ok := p.types.Get(layer)
	if !ok || !t.Custom() {
		return nil, "", eris.Errorf("mapview: %q is not a tile layer", layer)
	}
	if t.MaxZoom > 0 && z > t.MaxZoom {
		return nil, "", eris.Errorf("mapview: zoom %d beyond layer max %d", z, t.MaxZoom)
	}

	url := t.TileURLFor(z, x, y)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", eris.Wrap(err, "mapview: create tile request")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, "", eris.Wrap(err, "mapview: fetch tile")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", eris.Errorf("mapview: tile upstream returned %d for %s", resp.StatusCode, url)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", eris.Wrap(err, "mapview: read tile body")
	}

	ct := t.ContentType
	if ct == "" {
		ct = resp.Header.Get("Content-Type")
	}
	zap.L().Debug("mapview: fetched tile", zap.String("layer", layer), zap.String("url", url), zap.Int("bytes", len(data)))
	return data, ct, nil
}

// ServeHTTP handles /tiles/{layer}/{z}/{x}/{y}, with an optional extension on y.
func (p *TileProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/tiles/")
	parts := strings.Split(path, "/")
	if len(parts) != 4 {
		http.Error(w, "invalid tile path", http.StatusBadRequest)
		return
	}

	var z, x, y int
	yPart := parts[3]
	if i := strings.IndexByte(yPart, '.'); i >= 0 {
		yPart = yPart[:i]
	}
	if _, err := fmt.Sscanf(parts[1]+" "+parts[2]+" "+yPart, "%d %d %d", &z, &x, &y); err != nil {
		http.Error(w, "invalid tile coordinates", http.StatusBadRequest)
		return
	}

	data, ct, err := p.Fetch(r.Context(), parts[0], z, x, y)
	if err != nil {
		zap.L().Error("tile fetch failed", zap.String("layer", parts[0]), zap.Error(err))
		http.Error(w, "upstream fetch failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", ct)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(data)
}
