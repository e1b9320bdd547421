// Package search resolves a free-text query to map locations by combining address
// geocoding with place text search.
package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/Lllllllleong/mwmap/internal/mapview"
	"github.com/Lllllllleong/mwmap/internal/models"
)

// Result sources.
const (
	SourceGeocoding = "geocoding"
	SourcePlaces    = "places_text"
)

// Result is one candidate location.
type Result struct {
	PlaceID  string        `json:"placeId,omitempty"`
	Name     string        `json:"name"`
	Address  string        `json:"address"`
	Location models.LatLng `json:"location"`
	Source   string        `json:"source"`
}

// DisplayName is the name shown for the result, falling back to its address.
func (r Result) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Address
}

// Request scopes a lookup to a viewport, country and language.
type Request struct {
	Query    string
	Bounds   *mapview.Bounds
	Region   string
	Language string
}

// Lookup is one external search backend.
type Lookup interface {
	Lookup(ctx context.Context, req Request) ([]Result, error)
	Source() string
}

// DedupeKey identifies a result: its place id, else its coordinate rounded to five
// decimal places.
func DedupeKey(r Result) string {
	if r.PlaceID != "" {
		return r.PlaceID
	}
	return fmt.Sprintf("%.5f,%.5f", r.Location.Lat, r.Location.Lng)
}

// Dedupe keeps the first result for each key, preserving order.
func Dedupe(results []Result) []Result {
	seen := make(map[string]struct{}, len(results))
	out := make([]Result, 0, len(results))
	for _, r := range results {
		k := DedupeKey(r)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}

// FilterInBounds keeps results whose location lies inside b.
func FilterInBounds(results []Result, b mapview.Bounds) []Result {
	out := make([]Result, 0, len(results))
	for _, r := range results {
		if b.Contains(r.Location) {
			out = append(out, r)
		}
	}
	return out
}

// Match scores.
const (
	ScoreExact     = 100
	ScorePrefix    = 80
	ScoreSubstring = 50
	ScoreNone      = 0
)

// Score rates how well name matches query, case-insensitively.
func Score(name, query string) int {
	n := fold(name)
	q := fold(query)
	switch {
	case n == q:
		return ScoreExact
	case strings.HasPrefix(n, q):
		return ScorePrefix
	case strings.Contains(n, q):
		return ScoreSubstring
	default:
		return ScoreNone
	}
}

// fold NFC-normalizes s so composed and decomposed Hangul compare equal.
func fold(s string) string {
	return strings.ToLower(norm.NFC.String(s))
}

// Rank orders results by descending score. Equal scores keep their input order.
func Rank(results []Result, query string) []Result {
	type scored struct {
		score int
		r     Result
	}
	list := make([]scored, len(results))
	for i, r := range results {
		list[i] = scored{score: Score(r.DisplayName(), query), r: r}
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].score > list[j].score })

	out := make([]Result, len(list))
	for i, s := range list {
		out[i] = s.r
	}
	return out
}
