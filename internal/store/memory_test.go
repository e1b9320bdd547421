package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/mwmap/internal/models"
)

func samplePayload() models.KMLPayload {
	return models.KMLPayload{
		FileName:     "site.kml",
		UploadedAt:   "2024-05-01T00:30:00.000Z",
		FeatureCount: 2,
		PointCount:   1,
		LineCount:    1,
		PolygonCount: 0,
		Shapes: models.Shapes{
			Points:   []models.PointShape{{Lat: 37.5665, Lng: 126.978, Type: models.PointTypeText, Title: "정문"}},
			Lines:    []models.LineShape{{Path: []models.LatLng{{Lat: 37.1, Lng: 127.1}, {Lat: 37.2, Lng: 127.2}}, Color: "#3b82f6"}},
			Polygons: []models.PolygonShape{},
		},
	}
}

func TestMemoryStoreGetMissing(t *testing.T) {
	s := NewMemoryStore()
	doc, exists, err := s.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Nil(t, doc)

	assert.Error(t, s.Update(context.Background(), []Update{Set("x", "a")}))
}

func TestMemoryStoreCreateAndPatch(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	fixed := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	sites := []models.Site{{ID: "site_1", Title: "A", Timestamp: "t", Type: models.SiteType}}
	require.NoError(t, s.Create(ctx, []Update{Set(sites, models.FieldSites)}))

	payload := samplePayload()
	require.NoError(t, s.Update(ctx, []Update{Set(payload, models.FieldKMLBySite, "site_1")}))

	doc, exists, err := s.Get(ctx)
	require.NoError(t, err)
	require.True(t, exists)
	assert.Equal(t, sites, doc.Sites)
	assert.Equal(t, payload, doc.KMLBySite["site_1"])
	assert.True(t, doc.LastUpdated.Equal(fixed))

	require.NoError(t, s.Update(ctx, []Update{Remove(models.FieldKMLBySite, "site_1")}))
	doc, _, err = s.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, doc.KMLBySite)
	assert.Equal(t, sites, doc.Sites)
}

func TestMemoryStoreCreateRejectsNestedPaths(t *testing.T) {
	s := NewMemoryStore()
	assert.Error(t, s.Create(context.Background(), []Update{Set(1, "a", "b")}))
}

func TestMemoryStoreIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	sites := []models.Site{{ID: "site_1", Title: "A"}}
	require.NoError(t, s.Create(ctx, []Update{Set(sites, models.FieldSites)}))
	sites[0].Title = "changed"

	doc, _, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "A", doc.Sites[0].Title)
}

func TestMemoryStoreWatch(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())

	var mu sync.Mutex
	var seen []Snapshot
	done := make(chan error, 1)
	go func() {
		done <- s.Watch(ctx, func(snap Snapshot) {
			mu.Lock()
			seen = append(seen, snap)
			mu.Unlock()
		})
	}()

	count := func() int {
		mu.Lock()
		defer mu.Unlock()
		return len(seen)
	}
	require.Eventually(t, func() bool { return count() >= 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Create(ctx, []Update{Set([]models.Site{{ID: "site_1", Title: "A"}}, models.FieldSites)}))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		last := seen[len(seen)-1]
		return last.Exists && len(last.Document.Sites) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	assert.False(t, seen[0].Exists)
	mu.Unlock()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watch did not stop")
	}
}
