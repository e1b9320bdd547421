package ui

import (
	"net/http"
	"sort"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Regions every complete front end exposes.
var DefaultRegions = []string{
	"zoom-in-btn",
	"zoom-out-btn",
	"location-btn",
	"address-input",
	"map",
	"project-btn",
	"project-panel-overlay",
	"map-type-btn",
	"map-type-panel-overlay",
	"map-type-option",
	"kml-import-btn",
	"kml-site-list",
	"add-site-submit",
	"edit-site-save",
	"edit-site-delete",
	"sync-badge",
}

// Binding attaches a handler to a UI region.
type Binding struct {
	Region  string           `json:"region"`
	Method  string           `json:"method"`
	Path    string           `json:"path"`
	Handler http.HandlerFunc `json:"-"`
}

// Registry maps UI regions to handler bindings. It is filled once at startup and then
// sealed; regions left without a binding are recorded as missing.
type Registry struct {
	mu       sync.RWMutex
	regions  map[string]bool
	bindings map[string][]Binding
	missing  []string
	sealed   bool
}

// NewRegistry declares the regions expected to be bound.
func NewRegistry(regions ...string) *Registry {
	r := &Registry{regions: make(map[string]bool), bindings: make(map[string][]Binding)}
	for _, id := range regions {
		r.regions[id] = true
	}
	return r
}

// Bind attaches b to its region. Binding an undeclared region or binding after Seal
// is an error.
func (r *Registry) Bind(b Binding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return eris.Errorf("ui: registry sealed, cannot bind %q", b.Region)
	}
	if !r.regions[b.Region] {
		return eris.Errorf("ui: unknown region %q", b.Region)
	}
	if b.Handler == nil {
		return eris.Errorf("ui: region %q bound without a handler", b.Region)
	}
	r.bindings[b.Region] = append(r.bindings[b.Region], b)
	return nil
}

// Seal freezes the registry, records and logs regions left unbound, and returns them.
func (r *Registry) Seal() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.sealed {
		r.sealed = true
		for id := range r.regions {
			if len(r.bindings[id]) == 0 {
				r.missing = append(r.missing, id)
			}
		}
		sort.Strings(r.missing)
		for _, id := range r.missing {
			zap.L().Warn("ui region has no binding, feature disabled", zap.String("region", id))
		}
	}
	return append([]string(nil), r.missing...)
}

// Missing lists the regions found unbound at Seal.
func (r *Registry) Missing() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.missing...)
}

// Bindings lists every binding ordered by region, then by insertion.
func (r *Registry) Bindings() []Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.bindings))
	for id := range r.bindings {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var out []Binding
	for _, id := range ids {
		out = append(out, r.bindings[id]...)
	}
	return out
}

// Enabled reports whether a region has at least one binding.
func (r *Registry) Enabled(region string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bindings[region]) > 0
}
