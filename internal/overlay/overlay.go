// Package overlay tracks drawn map objects so their owner can clear them as a unit.
package overlay

import (
	"sync"

	"github.com/Lllllllleong/mwmap/internal/models"
)

// Set is an owned collection of overlays of one kind. Owners clear the previous set
// before drawing a new one.
type Set[T any] struct {
	mu    sync.Mutex
	items []T
}

// NewSet creates an empty set.
func NewSet[T any]() *Set[T] {
	return &Set[T]{}
}

// Add tracks newly drawn overlays.
func (s *Set[T]) Add(items ...T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, items...)
}

// Replace clears the set and tracks items in their place.
func (s *Set[T]) Replace(items []T) (removed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed = len(s.items)
	s.items = append([]T(nil), items...)
	return removed
}

// Items returns a copy of the tracked overlays.
func (s *Set[T]) Items() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]T(nil), s.items...)
}

// Len reports how many overlays are tracked.
func (s *Set[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Retain keeps the overlays for which keep returns true and drops the rest.
func (s *Set[T]) Retain(keep func(T) bool) (removed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.items[:0]
	for _, it := range s.items {
		if keep(it) {
			kept = append(kept, it)
		}
	}
	removed = len(s.items) - len(kept)
	var zero T
	for i := len(kept); i < len(s.items); i++ {
		s.items[i] = zero
	}
	s.items = kept
	return removed
}

// Clear drops every tracked overlay.
func (s *Set[T]) Clear() (removed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed = len(s.items)
	s.items = nil
	return removed
}

// Marker is a point overlay.
type Marker struct {
	Position  models.LatLng `json:"position"`
	Title     string        `json:"title,omitempty"`
	Subtitle  string        `json:"subtitle,omitempty"`
	Color     string        `json:"color,omitempty"`
	Clickable bool          `json:"clickable"`
	SiteID    string        `json:"siteId,omitempty"`
}

// Polyline is a stroked path overlay.
type Polyline struct {
	Path          []models.LatLng `json:"path"`
	StrokeColor   string          `json:"strokeColor"`
	StrokeOpacity float64         `json:"strokeOpacity"`
	StrokeWeight  int             `json:"strokeWeight"`
	SiteID        string          `json:"siteId,omitempty"`
}

// Polygon is a filled ring overlay.
type Polygon struct {
	Path          []models.LatLng `json:"path"`
	StrokeColor   string          `json:"strokeColor"`
	StrokeOpacity float64         `json:"strokeOpacity"`
	StrokeWeight  int             `json:"strokeWeight"`
	FillColor     string          `json:"fillColor"`
	FillOpacity   float64         `json:"fillOpacity"`
	SiteID        string          `json:"siteId,omitempty"`
}
