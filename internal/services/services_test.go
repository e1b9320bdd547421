package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/mwmap/internal/apperr"
	"github.com/Lllllllleong/mwmap/internal/config"
	"github.com/Lllllllleong/mwmap/internal/location"
	"github.com/Lllllllleong/mwmap/internal/mapview"
	"github.com/Lllllllleong/mwmap/internal/models"
	"github.com/Lllllllleong/mwmap/internal/search"
	"github.com/Lllllllleong/mwmap/internal/store"
	"github.com/Lllllllleong/mwmap/internal/ui"
)

const siteKML = `<?xml version="1.0" encoding="UTF-8"?>
<kml xmlns="http://www.opengis.net/kml/2.2">
  <Document>
    <Style id="red"><LineStyle><color>ff0000ff</color><width>3</width></LineStyle></Style>
    <Placemark>
      <name>정문</name>
      <Point><coordinates>127.0,37.5,0</coordinates></Point>
    </Placemark>
    <Placemark>
      <Point><coordinates>127.001,37.501</coordinates></Point>
    </Placemark>
    <Placemark>
      <name>진입로</name>
      <styleUrl>#red</styleUrl>
      <LineString><coordinates>127.0,37.5 127.002,37.502</coordinates></LineString>
    </Placemark>
    <Placemark>
      <name>블록</name>
      <Polygon><outerBoundaryIs><LinearRing>
        <coordinates>127.0,37.5 127.001,37.5 127.001,37.501 127.0,37.5</coordinates>
      </LinearRing></outerBoundaryIs></Polygon>
    </Placemark>
  </Document>
</kml>`

const collectionOnlyKML = `<?xml version="1.0" encoding="UTF-8"?>
<kml xmlns="http://www.opengis.net/kml/2.2">
  <Document>
    <Placemark>
      <name>묶음</name>
      <MultiGeometry>
        <Point><coordinates>127.0,37.5</coordinates></Point>
        <Point><coordinates>127.1,37.6</coordinates></Point>
      </MultiGeometry>
    </Placemark>
  </Document>
</kml>`

func testConfig() *config.Config {
	return &config.Config{
		Map: config.MapConfig{
			Bounds:         config.BoundsConfig{South: 33.0, West: 124.5, North: 38.8, East: 131.0},
			ZoomMin:        1,
			ZoomMax:        20,
			InitialZoom:    7,
			ViewportWidth:  1280,
			ViewportHeight: 800,
			Style:          config.RoadOnlyStyle,
		},
		Store: config.StoreConfig{Driver: "memory"},
		Sync:  config.SyncConfig{InitialTimeoutSecs: 7},
		Badge: config.BadgeConfig{SuccessMillis: 2500},
	}
}

type fakeSearcher struct {
	results []search.Result
	err     error
	view    mapview.Bounds
}

func (f *fakeSearcher) Search(_ context.Context, _ string, view mapview.Bounds) ([]search.Result, error) {
	f.view = view
	return f.results, f.err
}

type silentStore struct {
	*store.MemoryStore
}

func (silentStore) Watch(ctx context.Context, _ func(store.Snapshot)) error {
	<-ctx.Done()
	return nil
}

type brokenWatchStore struct {
	*store.MemoryStore
}

func (brokenWatchStore) Watch(context.Context, func(store.Snapshot)) error {
	return errors.New("permission denied")
}

func newTestApp(t *testing.T, deps Deps) *App {
	t.Helper()
	if deps.Store == nil {
		deps.Store = store.NewMemoryStore()
	}
	app := Assemble(testConfig(), deps)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

// newDetachedSession creates a session without a running subscription.
func newDetachedSession(app *App) *Session {
	v := app.Surface.NewInitialViewport()
	app.Surface.SettleInitial(&v)
	s := NewSession("test-session", v, time.Hour)
	return s
}

func getDoc(t *testing.T, st store.DocumentStore) *models.UserDocument {
	t.Helper()
	doc, exists, err := st.Get(context.Background())
	require.NoError(t, err)
	require.True(t, exists)
	return doc
}

func TestSitesCreateRenameDelete(t *testing.T) {
	app := newTestApp(t, Deps{})
	sess := newDetachedSession(app)
	ctx := context.Background()

	first, err := app.Sites.Create(ctx, sess, "  1공구  ")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "1공구", first.Title)
	assert.Equal(t, models.SiteType, first.Type)
	assert.Regexp(t, `^site_\d+$`, first.ID)

	second, err := app.Sites.Create(ctx, sess, "2공구")
	require.NoError(t, err)

	doc := getDoc(t, app.Store)
	require.Len(t, doc.Sites, 2)
	assert.Equal(t, second.ID, doc.Sites[0].ID, "newest site first")
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, ui.BadgeSuccess, sess.Badge.State().Variant)

	require.NoError(t, app.Sites.Rename(ctx, sess, first.ID, "1공구 (북측)"))
	doc = getDoc(t, app.Store)
	i := doc.FindSite(first.ID)
	require.GreaterOrEqual(t, i, 0)
	assert.Equal(t, "1공구 (북측)", doc.Sites[i].Title)
	assert.Equal(t, first.Timestamp, doc.Sites[i].Timestamp)

	require.NoError(t, app.Sites.Delete(ctx, sess, first.ID, true))
	doc = getDoc(t, app.Store)
	require.Len(t, doc.Sites, 1)
	assert.Equal(t, second.ID, doc.Sites[0].ID)
}

func TestSitesCreateBlankTitleIsNoop(t *testing.T) {
	app := newTestApp(t, Deps{})
	site, err := app.Sites.Create(context.Background(), nil, "   ")
	assert.NoError(t, err)
	assert.Nil(t, site)

	_, exists, err := app.Store.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSitesCreateSameMillisecond(t *testing.T) {
	app := newTestApp(t, Deps{})
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	app.Sites.now = func() time.Time { return fixed }

	a, err := app.Sites.Create(context.Background(), nil, "A")
	require.NoError(t, err)
	b, err := app.Sites.Create(context.Background(), nil, "B")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, "2026-03-01T09:00:00.000Z", a.Timestamp)
}

func TestSitesDeleteCascadesOnlyTarget(t *testing.T) {
	app := newTestApp(t, Deps{})
	ctx := context.Background()

	a, err := app.Sites.Create(ctx, nil, "A")
	require.NoError(t, err)
	app.Sites.now = func() time.Time { return time.Now().Add(time.Second) }
	b, err := app.Sites.Create(ctx, nil, "B")
	require.NoError(t, err)

	_, err = app.KML.ImportForSite(ctx, a.ID, "a.kml", []byte(siteKML))
	require.NoError(t, err)
	_, err = app.KML.ImportForSite(ctx, b.ID, "b.kml", []byte(siteKML))
	require.NoError(t, err)
	before := getDoc(t, app.Store).KMLBySite[b.ID]

	require.NoError(t, app.Sites.Delete(ctx, nil, a.ID, true))

	doc := getDoc(t, app.Store)
	assert.Equal(t, -1, doc.FindSite(a.ID))
	assert.NotContains(t, doc.KMLBySite, a.ID)
	assert.Equal(t, before, doc.KMLBySite[b.ID])
}

func TestSitesDeleteNeedsConfirmation(t *testing.T) {
	app := newTestApp(t, Deps{})
	ctx := context.Background()
	site, err := app.Sites.Create(ctx, nil, "A")
	require.NoError(t, err)

	err = app.Sites.Delete(ctx, nil, site.ID, false)
	assert.ErrorIs(t, err, apperr.ErrNotConfirmed)
	assert.Len(t, getDoc(t, app.Store).Sites, 1)

	err = app.Sites.Delete(ctx, nil, "site_0", true)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSitesRenameMissingDocumentIsNoop(t *testing.T) {
	app := newTestApp(t, Deps{})
	assert.NoError(t, app.Sites.Rename(context.Background(), nil, "site_1", "x"))
}

func TestSitesEditor(t *testing.T) {
	app := newTestApp(t, Deps{})
	sess := newDetachedSession(app)
	sess.setSites([]models.Site{{ID: "site_1"}, {ID: "site_2", Title: "B"}})

	v, err := app.Sites.OpenEditor(sess, "site_1")
	require.NoError(t, err)
	assert.Equal(t, UntitledSite, v.DisplayTitle)
	assert.Equal(t, "site_1", sess.EditingSiteID())
	assert.True(t, sess.Modals.IsOpen(ui.ModalEditSite))

	_, err = app.Sites.OpenEditor(sess, "site_9")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	app.Sites.CloseEditor(sess)
	assert.Empty(t, sess.EditingSiteID())
	assert.False(t, sess.Modals.IsOpen(ui.ModalEditSite))
}

func TestSubscribeAppliesSnapshots(t *testing.T) {
	app := newTestApp(t, Deps{})
	sess := app.Sessions.Resolve("")

	assert.Eventually(t, func() bool { return sess.Badge.State().Visible }, time.Second, 5*time.Millisecond)
	assert.True(t, sess.Synced())
	assert.Equal(t, ui.BadgeState{Visible: true, Message: ui.MessageSynced, Variant: ui.BadgeSuccess}, sess.Badge.State())

	site, err := app.Sites.Create(context.Background(), sess, "현장")
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		sites := sess.Sites()
		return len(sites) == 1 && sites[0].ID == site.ID && !sess.PendingLocalChange()
	}, time.Second, 5*time.Millisecond)

	_, err = app.KML.ImportForSite(context.Background(), site.ID, "site.kml", []byte(siteKML))
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		return sess.StoredMarkers.Len() == 2 && sess.StoredLines.Len() == 1 && sess.StoredPolygons.Len() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestSubscribeTimeoutShowsError(t *testing.T) {
	sites := NewSites(silentStore{store.NewMemoryStore()}, nil, SitesConfig{InitialSyncTimeout: 20 * time.Millisecond})
	sess := NewSession("s", mapview.Viewport{}, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go sites.Subscribe(ctx, sess)
	assert.Eventually(t, func() bool {
		return sess.Badge.State().Variant == ui.BadgeError
	}, time.Second, 5*time.Millisecond)
	assert.True(t, sess.Badge.State().Visible)
}

func TestSubscribeListenerErrorShowsError(t *testing.T) {
	sites := NewSites(brokenWatchStore{store.NewMemoryStore()}, nil, SitesConfig{})
	sess := NewSession("s", mapview.Viewport{}, time.Hour)

	sites.Subscribe(context.Background(), sess)
	assert.Equal(t, ui.MessageSyncFailed, sess.Badge.State().Message)
}

func TestKMLPrepareAndSave(t *testing.T) {
	app := newTestApp(t, Deps{})
	ctx := context.Background()
	site, err := app.Sites.Create(ctx, nil, "A")
	require.NoError(t, err)

	sess := newDetachedSession(app)
	sess.setSites([]models.Site{*site})
	require.NoError(t, sess.Panels.Open(ui.PanelMapType))

	res, err := app.KML.Prepare(ctx, sess, "site.kml", []byte(siteKML))
	require.NoError(t, err)
	assert.Len(t, res.Layer.Features, 4)
	assert.Equal(t, 4, res.Payload.FeatureCount)
	assert.Equal(t, 2, res.Choice.PointCount)
	require.Len(t, res.Choice.Sites, 1)
	assert.True(t, sess.Modals.IsOpen(ui.ModalKMLSite))
	assert.NotNil(t, sess.Layer())
	assert.LessOrEqual(t, sess.Viewport().Zoom, 18)
	assert.Greater(t, sess.Viewport().Zoom, 10)

	require.NoError(t, app.KML.SaveForSite(ctx, sess, site.ID, nil))
	doc := getDoc(t, app.Store)
	require.Contains(t, doc.KMLBySite, site.ID)
	require.Equal(t, res.Payload, doc.KMLBySite[site.ID])
	assert.Equal(t, "site.kml", doc.KMLBySite[site.ID].FileName)
	assert.Equal(t, 1, doc.KMLBySite[site.ID].LineCount)

	assert.Nil(t, sess.Layer())
	assert.Nil(t, sess.PendingPayload())
	assert.False(t, sess.Modals.IsOpen(ui.ModalKMLSite))
	assert.False(t, sess.Panels.IsOpen(ui.PanelMapType))
	assert.Equal(t, ui.BadgeSuccess, sess.Badge.State().Variant)
}

func TestKMLPrepareWithoutSites(t *testing.T) {
	app := newTestApp(t, Deps{})
	sess := newDetachedSession(app)

	_, err := app.KML.Prepare(context.Background(), sess, "site.kml", []byte(siteKML))
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, msgAddSiteFirst, apperr.Message(err))
	assert.NotNil(t, sess.Layer(), "the file stays displayed")
	assert.Nil(t, sess.PendingPayload())
}

func TestKMLPrepareErrors(t *testing.T) {
	app := newTestApp(t, Deps{})
	sess := newDetachedSession(app)
	ctx := context.Background()

	_, err := app.KML.Prepare(ctx, sess, "broken.kml", []byte("<kml><Document>"))
	assert.ErrorIs(t, err, apperr.ErrMalformedInput)
	assert.Contains(t, apperr.Message(err), msgProcessFailed)

	_, err = app.KML.Prepare(ctx, sess, "bundle.kml", []byte(collectionOnlyKML))
	assert.ErrorIs(t, err, apperr.ErrMalformedInput)
	assert.Equal(t, msgNothingToShow, apperr.Message(err))

	_, err = app.KML.Prepare(ctx, sess, "notes.txt", []byte("hello"))
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = Assemble(testConfig(), Deps{}).KML.Prepare(ctx, sess, "site.kml", []byte(siteKML))
	assert.ErrorIs(t, err, apperr.ErrNotReady)
}

func TestKMLSaveCreatesDocument(t *testing.T) {
	app := newTestApp(t, Deps{})
	_, payload, err := app.KML.Convert("site.kml", []byte(siteKML))
	require.NoError(t, err)

	require.NoError(t, app.KML.SaveForSite(context.Background(), nil, "site_1", &payload))
	doc := getDoc(t, app.Store)
	assert.Empty(t, doc.Sites)
	assert.Contains(t, doc.KMLBySite, "site_1")

	err = app.KML.SaveForSite(context.Background(), nil, "site_1", nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestImportForSiteUnknownSite(t *testing.T) {
	app := newTestApp(t, Deps{})
	_, err := app.KML.ImportForSite(context.Background(), "site_404", "a.kml", []byte(siteKML))
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

type recordingArchive struct {
	names []string
}

func (r *recordingArchive) Save(_ context.Context, name, _ string, _ []byte) error {
	r.names = append(r.names, name)
	return nil
}

func TestKMLPrepareArchivesUpload(t *testing.T) {
	archive := &recordingArchive{}
	app := newTestApp(t, Deps{Archive: archive})
	sess := newDetachedSession(app)
	sess.setSites([]models.Site{{ID: "site_1", Title: "A"}})

	_, err := app.KML.Prepare(context.Background(), sess, "dir/site.kml", []byte(siteKML))
	require.NoError(t, err)
	require.Len(t, archive.names, 1)
	assert.Regexp(t, `^archive/\d+_site\.kml$`, archive.names[0])
}

func TestKMLPrepareRejectedUploadIsNotArchived(t *testing.T) {
	archive := &recordingArchive{}
	app := newTestApp(t, Deps{Archive: archive})
	sess := newDetachedSession(app)
	ctx := context.Background()

	_, err := app.KML.Prepare(ctx, sess, "site.kml", []byte(siteKML))
	assert.ErrorIs(t, err, apperr.ErrValidation)

	sess.setSites([]models.Site{{ID: "site_1", Title: "A"}})
	_, err = app.KML.Prepare(ctx, sess, "bundle.kml", []byte(collectionOnlyKML))
	assert.ErrorIs(t, err, apperr.ErrMalformedInput)

	assert.Empty(t, archive.names)
}

func TestRenderStored(t *testing.T) {
	app := newTestApp(t, Deps{})
	sess := newDetachedSession(app)
	short := []models.LatLng{{Lat: 37.5, Lng: 127}}

	app.KML.RenderStored(sess, map[string]models.KMLPayload{
		"site_1": {Shapes: models.Shapes{
			Points: []models.PointShape{
				{Lat: 37.5, Lng: 127, Type: models.PointTypeText},
				{Lat: 37.6, Lng: 127.1, Type: models.PointTypePlain},
			},
			Lines: []models.LineShape{
				{Path: short},
				{Path: []models.LatLng{{Lat: 37.5, Lng: 127}, {Lat: 37.6, Lng: 127.1}}},
			},
			Polygons: []models.PolygonShape{
				{Path: append(short, short...)},
				{Path: []models.LatLng{{Lat: 37.5, Lng: 127}, {Lat: 37.6, Lng: 127}, {Lat: 37.6, Lng: 127.1}, {Lat: 37.5, Lng: 127}}, Color: "#00ff00"},
			},
		}},
	})

	markers := sess.StoredMarkers.Items()
	require.Len(t, markers, 2)
	assert.Equal(t, TextPointColor, markers[0].Color)
	assert.Equal(t, TextPointDefaultTitle, markers[0].Title)
	assert.True(t, markers[0].Clickable)
	assert.Equal(t, PlainPointColor, markers[1].Color)
	assert.False(t, markers[1].Clickable)

	lines := sess.StoredLines.Items()
	require.Len(t, lines, 1)
	assert.Equal(t, StoredLineColor, lines[0].StrokeColor)
	assert.Equal(t, StoredStrokeOpacity, lines[0].StrokeOpacity)

	polygons := sess.StoredPolygons.Items()
	require.Len(t, polygons, 1)
	assert.Equal(t, "#00ff00", polygons[0].FillColor)
	assert.Equal(t, StoredFillOpacity, polygons[0].FillOpacity)

	app.KML.RenderStored(sess, nil)
	assert.Zero(t, sess.StoredMarkers.Len()+sess.StoredLines.Len()+sess.StoredPolygons.Len())
}

func TestClickStoredTextPoint(t *testing.T) {
	app := newTestApp(t, Deps{})
	sess := newDetachedSession(app)
	app.KML.RenderStored(sess, map[string]models.KMLPayload{
		"site_1": {Shapes: models.Shapes{Points: []models.PointShape{
			{Lat: 37.5, Lng: 127, Type: models.PointTypeText, Title: "정문", Description: "출입 통제"},
		}}},
	})

	popup, err := app.Map.ClickMarker(sess, LayerStored, 0)
	require.NoError(t, err)
	assert.True(t, popup.Open)
	assert.Equal(t, "정문", popup.Content.Title)
	assert.Equal(t, "출입 통제", popup.Content.Body)
	assert.Equal(t, TextPointFocusZoom, sess.Viewport().Zoom)
	assert.Equal(t, models.LatLng{Lat: 37.5, Lng: 127}, sess.Viewport().Center)

	_, err = app.Map.ClickMarker(sess, LayerStored, 3)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	app.Map.Click(sess)
	assert.False(t, sess.Popup.IsOpen())
}

func TestSearchFlow(t *testing.T) {
	searcher := &fakeSearcher{results: []search.Result{
		{Name: "서울시청", Address: "서울 중구", Location: models.LatLng{Lat: 37.5663, Lng: 126.9779}},
		{Name: "덕수궁", Address: "서울 중구", Location: models.LatLng{Lat: 37.5658, Lng: 126.9751}},
	}}
	app := newTestApp(t, Deps{Searcher: searcher})
	sess := newDetachedSession(app)

	results, err := app.Search.Search(context.Background(), sess, "시청")
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, 2, sess.SearchMarkers.Len())
	v := sess.Viewport()
	assert.True(t, v.VisibleBounds().Contains(results[0].Location))
	assert.True(t, v.VisibleBounds().Contains(results[1].Location))

	searcher.results = searcher.results[:1]
	sess.UpdateViewport(func(v *mapview.Viewport) { v.SetZoom(8) })
	_, err = app.Search.Search(context.Background(), sess, "시청")
	require.NoError(t, err)
	assert.Equal(t, SingleResultZoom, sess.Viewport().Zoom)
	assert.Equal(t, searcher.results[0].Location, sess.Viewport().Center)

	searcher.err = apperr.New(apperr.ErrNotFound, "없음")
	_, err = app.Search.Search(context.Background(), sess, "시청")
	assert.Error(t, err)
	assert.Zero(t, sess.SearchMarkers.Len(), "previous markers cleared before lookup")
}

func TestSearchFlowWithoutSearcher(t *testing.T) {
	app := newTestApp(t, Deps{})
	_, err := app.Search.Search(context.Background(), newDetachedSession(app), "시청")
	assert.ErrorIs(t, err, apperr.ErrNotReady)
}

func TestIdlePrunesMarkersOutOfView(t *testing.T) {
	searcher := &fakeSearcher{results: []search.Result{
		{Name: "서울", Location: models.LatLng{Lat: 37.5663, Lng: 126.9779}},
		{Name: "부산", Location: models.LatLng{Lat: 35.1796, Lng: 129.0756}},
	}}
	app := newTestApp(t, Deps{Searcher: searcher})
	sess := newDetachedSession(app)
	_, err := app.Search.Search(context.Background(), sess, "시청")
	require.NoError(t, err)

	removed := app.Map.Idle(sess, models.LatLng{Lat: 37.5663, Lng: 126.9779}, 12)
	assert.Equal(t, 1, removed)
	markers := sess.SearchMarkers.Items()
	require.Len(t, markers, 1)
	assert.Equal(t, "서울", markers[0].Title)
}

func TestLocate(t *testing.T) {
	app := newTestApp(t, Deps{Locator: location.Static{Position: models.LatLng{Lat: 37.5, Lng: 127}, Accuracy: 42.4}})
	sess := newDetachedSession(app)

	fix, err := app.Location.Locate(context.Background(), sess)
	require.NoError(t, err)
	require.NotNil(t, fix)
	markers := sess.LocationMarker.Items()
	require.Len(t, markers, 1)
	assert.Equal(t, "현재 위치 (정확도: 42 m)", markers[0].Title)
	assert.Equal(t, LocationZoom, sess.Viewport().Zoom)

	_, err = app.Location.Locate(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, 1, sess.LocationMarker.Len(), "previous marker replaced")

	app.Map.Click(sess)
	assert.Zero(t, sess.LocationMarker.Len())
}

type failingLocator struct{}

func (failingLocator) Locate(context.Context) (location.Fix, error) {
	return location.Fix{}, errors.New("denied")
}

func TestLocateFailure(t *testing.T) {
	app := newTestApp(t, Deps{Locator: failingLocator{}})
	_, err := app.Location.Locate(context.Background(), newDetachedSession(app))
	assert.ErrorIs(t, err, apperr.ErrExternal)
	assert.Equal(t, msgLocateFailed, apperr.Message(err))
}

func TestLocationTitle(t *testing.T) {
	assert.Equal(t, "현재 위치 (정확도: 13 m)", LocationTitle(12.6))
	assert.Equal(t, "현재 위치 (정확도: ? m)", LocationTitle(0))
}

func TestMapControls(t *testing.T) {
	app := newTestApp(t, Deps{})
	sess := newDetachedSession(app)
	start := sess.Viewport().Zoom

	assert.Equal(t, start+1, app.Map.ZoomIn(sess).Zoom)
	assert.Equal(t, start, app.Map.ZoomOut(sess).Zoom)

	opts, err := app.Map.OpenMapTypeModal(sess)
	require.NoError(t, err)
	assert.Len(t, opts, 4)
	assert.True(t, sess.Modals.IsOpen(ui.ModalMapType))

	v, err := app.Map.SetMapType(sess, mapview.MapTypeSatellite)
	require.NoError(t, err)
	assert.Nil(t, v.Styles)
	assert.False(t, sess.Modals.IsOpen(ui.ModalMapType))
	assert.Equal(t, "MAP · 구글(위성)", sess.State(app.Surface.Types()).MapTypeLabel)

	_, err = app.Map.SetMapType(sess, "unknown")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	require.NoError(t, app.Map.OpenPanel(sess, ui.PanelProject))
	require.NoError(t, app.Map.OpenPanel(sess, ui.PanelMapType))
	assert.False(t, sess.Panels.IsOpen(ui.PanelProject))
	assert.ErrorIs(t, app.Map.OpenPanel(sess, "layers"), apperr.ErrNotFound)
}

func TestSessionManager(t *testing.T) {
	app := newTestApp(t, Deps{Store: silentStore{store.NewMemoryStore()}})

	a := app.Sessions.Resolve("not-a-uuid")
	assert.NotEqual(t, "not-a-uuid", a.ID)
	assert.Same(t, a, app.Sessions.Resolve(a.ID))

	id := "3f1c2a9e-5b7d-4c1e-9f2a-8d6b4e0c1a27"
	b := app.Sessions.Resolve(id)
	assert.Equal(t, id, b.ID)
	assert.Equal(t, 2, app.Sessions.Len())
	assert.Equal(t, app.Config.Map.InitialZoom+1, b.Viewport().Zoom)

	app.Sessions.Close(a.ID)
	_, ok := app.Sessions.Get(a.ID)
	assert.False(t, ok)

	assert.Equal(t, 1, app.Sessions.Sweep(-time.Second))
	assert.Zero(t, app.Sessions.Len())
}

func TestSessionChanges(t *testing.T) {
	sess := NewSession("s", mapview.Viewport{}, time.Hour)
	ch, release := sess.Changes()
	defer release()

	sess.Notify()
	sess.Notify()
	select {
	case <-ch:
	default:
		t.Fatal("expected a change signal")
	}
	select {
	case <-ch:
		t.Fatal("signals should coalesce")
	default:
	}
}

func TestSweepKeepsListeningSessions(t *testing.T) {
	app := newTestApp(t, Deps{Store: silentStore{store.NewMemoryStore()}})
	sess := app.Sessions.Resolve("")
	_, release := sess.Changes()
	assert.True(t, sess.Listening())

	assert.Zero(t, app.Sessions.Sweep(-time.Second))
	_, ok := app.Sessions.Get(sess.ID)
	assert.True(t, ok)

	release()
	assert.False(t, sess.Listening())
	assert.Equal(t, 1, app.Sessions.Sweep(-time.Second))
	select {
	case <-sess.Done():
	default:
		t.Fatal("swept session should be closed")
	}
}

func TestParseIngestObject(t *testing.T) {
	site, file, ok := ParseIngestObject("site_1700000000000/plans/v2.KMZ")
	assert.True(t, ok)
	assert.Equal(t, "site_1700000000000", site)
	assert.Equal(t, "v2.KMZ", file)

	for _, name := range []string{"archive/1_a.kml", "site_1/readme.txt", "loose.kml", "/a.kml"} {
		_, _, ok := ParseIngestObject(name)
		assert.False(t, ok, name)
	}
}

func TestParseGCSUri(t *testing.T) {
	bucket, object, err := ParseGCSUri("gs://uploads/site_1/a.kml")
	require.NoError(t, err)
	assert.Equal(t, "uploads", bucket)
	assert.Equal(t, "site_1/a.kml", object)

	for _, uri := range []string{"https://x/y", "gs://bucket", "gs:///obj"} {
		_, _, err := ParseGCSUri(uri)
		assert.Error(t, err, uri)
	}
}
