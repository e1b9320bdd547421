package mapview

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
)

// Built-in and registered map type ids.
const (
	MapTypeRoadmap         = "roadmap"
	MapTypeSatellite       = "satellite"
	MapTypeVWorldBase      = "vworld-base"
	MapTypeVWorldSatellite = "vworld-satellite"
)

// MapType describes a base map. Custom types carry a tile URL template with {z}, {x}
// and {y} placeholders.
type MapType struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	TileURL     string `json:"tileUrl,omitempty"`
	TileSize    int    `json:"tileSize,omitempty"`
	MaxZoom     int    `json:"maxZoom,omitempty"`
	ContentType string `json:"-"`
	// Styled map types accept style rules; the rest are drawn unstyled.
	Styled bool `json:"styled"`
}

// Custom reports whether the type is served from a tile URL template.
func (t MapType) Custom() bool {
	return t.TileURL != ""
}

// TileURLFor expands the URL template for one tile.
func (t MapType) TileURLFor(z, x, y int) string {
	return strings.NewReplacer(
		"{z}", strconv.Itoa(z),
		"{x}", strconv.Itoa(x),
		"{y}", strconv.Itoa(y),
	).Replace(t.TileURL)
}

// Registry holds the map types a viewport can switch between.
type Registry struct {
	mu    sync.RWMutex
	types map[string]MapType
}

// NewRegistry returns a registry holding the two built-in types.
func NewRegistry() *Registry {
	r := &Registry{types: make(map[string]MapType)}
	r.types[MapTypeRoadmap] = MapType{ID: MapTypeRoadmap, Label: "구글(도로)", Styled: true}
	r.types[MapTypeSatellite] = MapType{ID: MapTypeSatellite, Label: "구글(위성)"}
	return r
}

// DefaultRegistry returns the built-in types plus the VWorld base and satellite layers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	_ = r.Register(MapType{
		ID:          MapTypeVWorldBase,
		Label:       "브이월드(도로)",
		TileURL:     "https://xdworld.vworld.kr/2d/Base/service/{z}/{x}/{y}.png",
		TileSize:    256,
		MaxZoom:     19,
		ContentType: "image/png",
	})
	_ = r.Register(MapType{
		ID:          MapTypeVWorldSatellite,
		Label:       "브이월드(위성)",
		TileURL:     "https://xdworld.vworld.kr/2d/Satellite/service/{z}/{x}/{y}.jpeg",
		TileSize:    256,
		MaxZoom:     19,
		ContentType: "image/jpeg",
	})
	return r
}

// Register adds a custom tile layer type.
func (r *Registry) Register(t MapType) error {
	if t.ID == "" {
		return eris.New("mapview: map type id is required")
	}
	if !t.Custom() {
		return eris.Errorf("mapview: custom map type %q needs a tile url", t.ID)
	}
	if t.TileSize == 0 {
		t.TileSize = 256
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[t.ID] = t
	return nil
}

// Get looks up a map type.
func (r *Registry) Get(id string) (MapType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[id]
	return t, ok
}

// Label returns the display label for id, falling back to the id itself and then to
// the roadmap label.
func (r *Registry) Label(id string) string {
	if t, ok := r.Get(id); ok {
		return t.Label
	}
	if id != "" {
		return id
	}
	t, _ := r.Get(MapTypeRoadmap)
	return t.Label
}

// List returns every registered type ordered by id.
func (r *Registry) List() []MapType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]MapType, 0, len(r.types))
	for _, t := range r.types {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
