package services

import (
	"context"

	"github.com/Lllllllleong/mwmap/internal/apperr"
	"github.com/Lllllllleong/mwmap/internal/mapview"
	"github.com/Lllllllleong/mwmap/internal/overlay"
	"github.com/Lllllllleong/mwmap/internal/search"
)

// SingleResultZoom is the minimum zoom when a search finds exactly one place.
const SingleResultZoom = 14

// Searcher resolves a query within a view.
type Searcher interface {
	Search(ctx context.Context, query string, view mapview.Bounds) ([]search.Result, error)
}

// SearchFlow runs a search for a session and draws the results.
type SearchFlow struct {
	searcher Searcher
}

// NewSearchFlow creates the search flow.
func NewSearchFlow(searcher Searcher) *SearchFlow {
	return &SearchFlow{searcher: searcher}
}

// Search clears the previous result markers, looks query up within the session's
// visible bounds, and marks every result. One result is centred at zoom 14 or closer;
// several are fitted into view.
func (f *SearchFlow) Search(ctx context.Context, sess *Session, query string) ([]search.Result, error) {
	if sess.SearchMarkers.Clear() > 0 {
		sess.Notify()
	}
	if f.searcher == nil {
		return nil, apperr.New(apperr.ErrNotReady, msgMapNotReady)
	}

	results, err := f.searcher.Search(ctx, query, sess.Viewport().VisibleBounds())
	if err != nil {
		return nil, err
	}

	markers := make([]overlay.Marker, len(results))
	points := make([]mapview.LatLng, len(results))
	for i, r := range results {
		markers[i] = overlay.Marker{
			Position:  r.Location,
			Title:     r.DisplayName(),
			Subtitle:  r.Address,
			Clickable: true,
		}
		points[i] = r.Location
	}
	sess.SearchMarkers.Replace(markers)

	sess.UpdateViewport(func(v *mapview.Viewport) {
		if len(results) == 1 {
			v.PanTo(results[0].Location)
			v.RaiseZoom(SingleResultZoom)
			return
		}
		if b, ok := mapview.BoundsOf(points); ok {
			v.FitBounds(b, 0)
		}
	})
	return results, nil
}
