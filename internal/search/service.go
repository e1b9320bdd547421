package search

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/mwmap/internal/apperr"
	"github.com/Lllllllleong/mwmap/internal/mapview"
)

// ErrNoResultsInView means every result fell outside the viewport.
var ErrNoResultsInView = eris.New("no results in view")

// Service runs both lookups for a query and merges their results.
type Service struct {
	geocoder Lookup
	places   Lookup
	region   string
	language string
}

// NewService creates a search service. places may be nil, in which case only the
// geocoder is consulted.
func NewService(geocoder, places Lookup, region, language string) *Service {
	return &Service{geocoder: geocoder, places: places, region: region, language: language}
}

// Search resolves query to results inside view, best match first. Both lookups run
// concurrently and both are awaited; a failed lookup contributes no results.
func (s *Service) Search(ctx context.Context, query string, view mapview.Bounds) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.New(apperr.ErrValidation, "검색어를 입력하세요.")
	}
	if s == nil || s.geocoder == nil {
		return nil, apperr.New(apperr.ErrNotReady, "지도가 아직 준비되지 않았습니다.")
	}

	log := zap.L().With(zap.String("query", query))
	req := Request{Query: query, Bounds: &view, Region: s.region, Language: s.language}

	lookups := []Lookup{s.geocoder}
	if s.places != nil {
		lookups = append(lookups, s.places)
	}
	batches := make([][]Result, len(lookups))

	// Plain group: one lookup failing must not cancel the other.
	var g errgroup.Group
	for i, l := range lookups {
		g.Go(func() error {
			results, err := l.Lookup(ctx, req)
			if err != nil {
				log.Warn("search lookup failed", zap.String("source", l.Source()), zap.Error(err))
				return nil
			}
			batches[i] = results
			return nil
		})
	}
	_ = g.Wait()

	var merged []Result
	for _, b := range batches {
		merged = append(merged, b...)
	}

	unique := Dedupe(merged)
	inView := FilterInBounds(unique, view)
	log.Info("search completed",
		zap.Int("merged", len(merged)),
		zap.Int("unique", len(unique)),
		zap.Int("in_view", len(inView)),
	)
	if len(inView) == 0 {
		return nil, apperr.Wrap(apperr.ErrNotFound, ErrNoResultsInView,
			"현재 화면 범위 내에서 검색 결과가 없습니다. 지도를 이동·확대 후 다시 시도하세요.")
	}
	return Rank(inView, query), nil
}
