package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/Lllllllleong/mwmap/internal/apperr"
	"github.com/Lllllllleong/mwmap/internal/gcp"
	"github.com/Lllllllleong/mwmap/internal/kml"
	"github.com/Lllllllleong/mwmap/internal/mapview"
	"github.com/Lllllllleong/mwmap/internal/models"
	"github.com/Lllllllleong/mwmap/internal/overlay"
	"github.com/Lllllllleong/mwmap/internal/store"
	"github.com/Lllllllleong/mwmap/internal/ui"
)

// User-facing messages of the import flow.
const (
	msgMapNotReady     = "지도가 아직 준비되지 않았습니다."
	msgNothingToShow   = "표시할 수 있는 객체가 없습니다."
	msgAddSiteFirst    = "먼저 현장을 추가한 뒤 KML을 저장해 주세요."
	msgProcessFailed   = "KML/KMZ 파일을 처리하는 데 실패했습니다: "
	msgSaveKMLFailed   = "KML 데이터를 저장하는 데 실패했습니다. 네트워크를 확인한 뒤 다시 시도해 주세요."
	msgNoPendingKML    = "저장할 KML 데이터가 없습니다."
	msgSiteNotSelected = "현장을 선택해 주세요."
	msgUnsupportedFile = "KML 또는 KMZ 파일만 가져올 수 있습니다."
)

// Colours and strokes of stored overlays.
const (
	TextPointColor        = "#8b5cf6"
	PlainPointColor       = "#facc15"
	StoredLineColor       = kml.DefaultLineColor
	StoredPolygonColor    = "#2563eb"
	StoredStrokeOpacity   = 0.9
	StoredStrokeWeight    = 2
	StoredFillOpacity     = 0.15
	TextPointDefaultTitle = "텍스트"
	TextPointFocusZoom    = 20
)

// ArchivePrefix is where raw uploads are archived in the upload bucket.
const ArchivePrefix = "archive/"

// Archive keeps raw uploaded files.
type Archive interface {
	Save(ctx context.Context, name, contentType string, data []byte) error
}

// GCSArchive archives uploads to a Cloud Storage bucket. Existing objects are kept.
type GCSArchive struct {
	bucket *storage.BucketHandle
}

// NewGCSArchive archives into bucket.
func NewGCSArchive(bucket *storage.BucketHandle) *GCSArchive {
	return &GCSArchive{bucket: bucket}
}

// Save writes data unless the object already exists.
func (a *GCSArchive) Save(ctx context.Context, name, contentType string, data []byte) error {
	return gcp.SaveToGCSAtomically(ctx, a.bucket, name, contentType, data)
}

// KMLSiteChoice is what the site-select modal shows for a prepared file.
type KMLSiteChoice struct {
	FileName     string     `json:"fileName"`
	FeatureCount int        `json:"featureCount"`
	PointCount   int        `json:"pointCount"`
	LineCount    int        `json:"lineCount"`
	PolygonCount int        `json:"polygonCount"`
	Sites        []SiteView `json:"sites"`
}

// PrepareResult is a file converted, displayed and waiting for a destination site.
type PrepareResult struct {
	Layer   *kml.Layer        `json:"layer"`
	Payload models.KMLPayload `json:"payload"`
	Choice  KMLSiteChoice     `json:"choice"`
}

// KMLImport turns KML/KMZ uploads into displayed layers and stored per-site payloads.
type KMLImport struct {
	store   store.DocumentStore
	surface *mapview.Surface
	archive Archive
	now     func() time.Time
}

// NewKMLImport creates the import flow. archive may be nil.
func NewKMLImport(st store.DocumentStore, surface *mapview.Surface, archive Archive) *KMLImport {
	return &KMLImport{store: st, surface: surface, archive: archive, now: time.Now}
}

// Convert runs the file pipeline: unpack, parse, summarize. It fails if the file yields
// nothing storable.
func (k *KMLImport) Convert(fileName string, data []byte) (*geojson.FeatureCollection, models.KMLPayload, error) {
	if fileName != "" && !kml.Accepts(fileName) {
		return nil, models.KMLPayload{}, apperr.New(apperr.ErrValidation, msgUnsupportedFile)
	}
	fc, err := kml.Parse(fileName, data)
	if err != nil {
		return nil, models.KMLPayload{}, processError(err)
	}
	shapes := kml.BuildShapes(fc)
	if shapes.Total() == 0 {
		return fc, models.KMLPayload{}, apperr.New(apperr.ErrMalformedInput, msgNothingToShow)
	}
	return fc, kml.NewPayload(fileName, shapes, k.now()), nil
}

// Prepare converts an uploaded file, shows it on the session's ad-hoc layer and opens
// the site-select modal with the session's current site list.
func (k *KMLImport) Prepare(ctx context.Context, sess *Session, fileName string, data []byte) (*PrepareResult, error) {
	if k.surface == nil {
		return nil, apperr.New(apperr.ErrNotReady, msgMapNotReady)
	}
	if k.store == nil {
		return nil, apperr.New(apperr.ErrNotReady, msgStoreNotReady)
	}
	if fileName != "" && !kml.Accepts(fileName) {
		return nil, apperr.New(apperr.ErrValidation, msgUnsupportedFile)
	}
	log := zap.L().With(zap.String("session_id", sess.ID), zap.String("file", fileName))

	fc, err := kml.Parse(fileName, data)
	if err != nil {
		log.Warn("kml parse failed", zap.Error(err))
		return nil, processError(err)
	}

	layer, err := kml.BuildLayer(fileName, fc)
	if err != nil {
		log.Error("kml layer build failed", zap.Error(err))
		return nil, processError(err)
	}
	k.showLayer(sess, layer)

	shapes := kml.BuildShapes(fc)
	if shapes.Total() == 0 {
		return nil, apperr.New(apperr.ErrMalformedInput, msgNothingToShow)
	}
	payload := kml.NewPayload(fileName, shapes, k.now())

	sites := sess.Sites()
	if len(sites) == 0 {
		return nil, apperr.New(apperr.ErrValidation, msgAddSiteFirst)
	}
	k.archiveUpload(ctx, fileName, data)

	choice := KMLSiteChoice{
		FileName:     fileName,
		FeatureCount: payload.FeatureCount,
		PointCount:   payload.PointCount,
		LineCount:    payload.LineCount,
		PolygonCount: payload.PolygonCount,
		Sites:        siteViews(sites),
	}
	sess.setPendingPayload(&payload)
	if err := sess.Modals.Open(ui.ModalKMLSite, choice); err != nil {
		return nil, err
	}
	sess.Notify()

	log.Info("kml prepared",
		zap.Int("features", len(layer.Features)),
		zap.Int("points", payload.PointCount),
		zap.Int("lines", payload.LineCount),
		zap.Int("polygons", payload.PolygonCount),
	)
	return &PrepareResult{Layer: layer, Payload: payload, Choice: choice}, nil
}

// processError reports a failed conversion. Missing input stays a validation error;
// everything else is shown prefixed with the processing failure message.
func processError(err error) error {
	if errors.Is(err, apperr.ErrValidation) {
		return err
	}
	return apperr.Wrap(apperr.ErrMalformedInput, err, msgProcessFailed+apperr.Message(err))
}

// showLayer replaces the session's ad-hoc layer and fits the view to it.
func (k *KMLImport) showLayer(sess *Session, layer *kml.Layer) {
	sess.Popup.Close()
	sess.setLayer(layer)
	sess.UpdateViewport(func(v *mapview.Viewport) {
		if layer.Bounds != nil {
			v.FitBounds(*layer.Bounds, kml.DisplayZoomCeiling)
		}
	})
}

// ClearLayer removes the ad-hoc layer.
func (k *KMLImport) ClearLayer(sess *Session) {
	sess.setLayer(nil)
	sess.Notify()
}

// CancelPending drops a prepared payload and closes the site-select modal.
func (k *KMLImport) CancelPending(sess *Session) {
	sess.setPendingPayload(nil)
	sess.Modals.Close(ui.ModalKMLSite)
	sess.Notify()
}

func (k *KMLImport) archiveUpload(ctx context.Context, fileName string, data []byte) {
	if k.archive == nil {
		return
	}
	name := fmt.Sprintf("%s%d_%s", ArchivePrefix, k.now().UnixMilli(), path.Base(fileName))
	contentType := "application/vnd.google-earth.kml+xml"
	if kml.IsKMZ(fileName) {
		contentType = "application/vnd.google-earth.kmz"
	}
	if err := k.archive.Save(ctx, name, contentType, data); err != nil {
		zap.L().Warn("upload archive failed", zap.String("object", name), zap.Error(err))
	}
}

// ImportForSite converts a file and stores it under an existing site without any
// session. Unknown sites are rejected.
func (k *KMLImport) ImportForSite(ctx context.Context, siteID, fileName string, data []byte) (*models.KMLPayload, error) {
	if k.store == nil {
		return nil, apperr.New(apperr.ErrNotReady, msgStoreNotReady)
	}
	doc, exists, err := k.store.Get(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrExternal, err, msgSaveKMLFailed)
	}
	if !exists || doc.FindSite(siteID) < 0 {
		return nil, apperr.New(apperr.ErrNotFound, msgSiteNotFound)
	}

	_, payload, err := k.Convert(fileName, data)
	if err != nil {
		return nil, err
	}
	if err := k.SaveForSite(ctx, nil, siteID, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// SaveForSite stores payload under siteID, creating the document when it does not
// exist. A nil payload saves the session's prepared payload. sess may be nil for
// headless imports.
func (k *KMLImport) SaveForSite(ctx context.Context, sess *Session, siteID string, payload *models.KMLPayload) error {
	if k.store == nil {
		return apperr.New(apperr.ErrNotReady, msgStoreNotReady)
	}
	siteID = strings.TrimSpace(siteID)
	if siteID == "" {
		return apperr.New(apperr.ErrValidation, msgSiteNotSelected)
	}
	if payload == nil && sess != nil {
		payload = sess.PendingPayload()
	}
	if payload == nil {
		return apperr.New(apperr.ErrValidation, msgNoPendingKML)
	}

	log := zap.L().With(zap.String("site_id", siteID), zap.String("file", payload.FileName))
	sess.markPending()

	_, exists, err := k.store.Get(ctx)
	if err == nil {
		if exists {
			err = k.store.Update(ctx, []store.Update{store.Set(payload, models.FieldKMLBySite, siteID)})
		} else {
			err = k.store.Create(ctx, []store.Update{
				store.Set([]models.Site{}, models.FieldSites),
				store.Set(map[string]models.KMLPayload{siteID: *payload}, models.FieldKMLBySite),
			})
		}
	}
	if err != nil {
		sess.clearPending()
		log.Error("save kml payload failed", zap.Error(err))
		return apperr.Wrap(apperr.ErrExternal, err, msgSaveKMLFailed)
	}

	log.Info("kml payload saved", zap.Int("features", payload.FeatureCount))
	if sess != nil {
		sess.setPendingPayload(nil)
		sess.Modals.Close(ui.ModalKMLSite)
		sess.Badge.ShowSuccess()
		sess.setLayer(nil)
		_ = sess.Panels.Close(ui.PanelMapType)
		sess.Notify()
	}
	return nil
}

// RenderStored redraws every saved payload on the session, replacing what the previous
// render drew. Sites are drawn in id order.
func (k *KMLImport) RenderStored(sess *Session, kmlBySite map[string]models.KMLPayload) {
	ids := make([]string, 0, len(kmlBySite))
	for id := range kmlBySite {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var markers []overlay.Marker
	var lines []overlay.Polyline
	var polygons []overlay.Polygon
	for _, id := range ids {
		shapes := kmlBySite[id].Shapes
		for _, p := range shapes.Points {
			markers = append(markers, storedMarker(id, p))
		}
		for _, l := range shapes.Lines {
			if len(l.Path) < kml.MinLineVertices {
				continue
			}
			lines = append(lines, overlay.Polyline{
				Path:          l.Path,
				StrokeColor:   colorOr(l.Color, StoredLineColor),
				StrokeOpacity: StoredStrokeOpacity,
				StrokeWeight:  StoredStrokeWeight,
				SiteID:        id,
			})
		}
		for _, pg := range shapes.Polygons {
			if len(pg.Path) < 3 {
				continue
			}
			color := colorOr(pg.Color, StoredPolygonColor)
			polygons = append(polygons, overlay.Polygon{
				Path:          pg.Path,
				StrokeColor:   color,
				StrokeOpacity: StoredStrokeOpacity,
				StrokeWeight:  StoredStrokeWeight,
				FillColor:     color,
				FillOpacity:   StoredFillOpacity,
				SiteID:        id,
			})
		}
	}

	sess.StoredMarkers.Replace(markers)
	sess.StoredLines.Replace(lines)
	sess.StoredPolygons.Replace(polygons)
}

func storedMarker(siteID string, p models.PointShape) overlay.Marker {
	pos := models.LatLng{Lat: p.Lat, Lng: p.Lng}
	if p.Type == models.PointTypeText {
		title := p.Title
		if title == "" {
			title = TextPointDefaultTitle
		}
		return overlay.Marker{
			Position:  pos,
			Title:     title,
			Subtitle:  p.Description,
			Color:     TextPointColor,
			Clickable: true,
			SiteID:    siteID,
		}
	}
	return overlay.Marker{Position: pos, Color: PlainPointColor, SiteID: siteID}
}

func colorOr(c, fallback string) string {
	if c == "" {
		return fallback
	}
	return c
}
