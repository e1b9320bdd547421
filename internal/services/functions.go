package services

import (
	"context"
	"errors"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Lllllllleong/mwmap/internal/apperr"
	"github.com/Lllllllleong/mwmap/internal/config"
	"github.com/Lllllllleong/mwmap/internal/gcp"
	"github.com/Lllllllleong/mwmap/internal/kml"
	"github.com/Lllllllleong/mwmap/internal/models"
)

// GCSEvent is the payload of a GCS object event.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// functionRuntime is what both import functions need: the app for the shared
// document and a storage client for reading uploads from any bucket.
type functionRuntime struct {
	app           *App
	storageClient *storage.Client
}

func newFunctionRuntime(ctx context.Context) (*functionRuntime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, eris.Wrap(err, "failed to load configuration")
	}
	if err := config.InitLogger(cfg.Log); err != nil {
		return nil, err
	}
	app, err := NewApp(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "failed to assemble app")
	}
	storageClient, err := gcp.NewStorageClient(ctx)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.closers = append(app.closers, storageClient.Close)
	return &functionRuntime{app: app, storageClient: storageClient}, nil
}

// KMLIngestFunction imports KML/KMZ files dropped into a bucket under `<siteId>/<file>`.
type KMLIngestFunction struct {
	rt *functionRuntime
}

// NewKMLIngest creates the ingest function. Called by main.go.
func NewKMLIngest(ctx context.Context) (*KMLIngestFunction, error) {
	rt, err := newFunctionRuntime(ctx)
	if err != nil {
		return nil, err
	}
	zap.L().Info("kml ingest initialized", zap.String("store", rt.app.Config.Store.Driver))
	return &KMLIngestFunction{rt: rt}, nil
}

// Process imports one finalized object. Objects that can never import (archive copies,
// other file types, unknown sites, broken files) are logged and acknowledged so they
// are not redelivered; store failures are returned for retry.
func (f *KMLIngestFunction) Process(ctx context.Context, e GCSEvent) error {
	log := zap.L().With(zap.String("bucket", e.Bucket), zap.String("object", e.Name))

	siteID, fileName, ok := ParseIngestObject(e.Name)
	if !ok {
		log.Info("object is not a site upload, skipping")
		return nil
	}

	data, err := gcp.ReadObject(ctx, f.rt.storageClient.Bucket(e.Bucket), e.Name)
	if err != nil {
		return err
	}

	payload, err := f.rt.app.KML.ImportForSite(ctx, siteID, fileName, data)
	switch {
	case err == nil:
		log.Info("kml ingested", zap.String("site_id", siteID), zap.Int("features", payload.FeatureCount))
		return nil
	case errors.Is(err, apperr.ErrExternal), errors.Is(err, apperr.ErrNotReady):
		log.Error("kml ingest failed", zap.Error(err))
		return err
	default:
		log.Warn("kml ingest rejected", zap.String("site_id", siteID), zap.String("reason", apperr.Message(err)), zap.Error(err))
		return nil
	}
}

// ParseIngestObject splits an uploaded object name into site id and file name.
func ParseIngestObject(name string) (siteID, fileName string, ok bool) {
	if strings.HasPrefix(name, ArchivePrefix) || !kml.Accepts(name) {
		return "", "", false
	}
	siteID, rest, found := strings.Cut(name, "/")
	if !found || siteID == "" || rest == "" {
		return "", "", false
	}
	return siteID, path.Base(rest), true
}

// KMLImportFunction imports a KML/KMZ file for a site over HTTP.
type KMLImportFunction struct {
	rt *functionRuntime
}

// NewKMLImportFunction creates the HTTP import function. Called by main.go.
func NewKMLImportFunction(ctx context.Context) (*KMLImportFunction, error) {
	rt, err := newFunctionRuntime(ctx)
	if err != nil {
		return nil, err
	}
	return &KMLImportFunction{rt: rt}, nil
}

// Process imports the file of req into its site.
func (f *KMLImportFunction) Process(ctx context.Context, req *models.KMLImportRequest) (*models.KMLImportResponse, error) {
	log := zap.L().With(zap.String("site_id", req.SiteID), zap.String("file", req.FileName))

	data := req.Content
	fileName := req.FileName
	if req.GCSUri != "" {
		bucket, object, err := ParseGCSUri(req.GCSUri)
		if err != nil {
			return nil, apperr.Wrap(apperr.ErrValidation, err, "잘못된 gs:// 경로입니다.")
		}
		data, err = gcp.ReadObject(ctx, f.rt.storageClient.Bucket(bucket), object)
		if err != nil {
			log.Error("read upload failed", zap.Error(err))
			return nil, apperr.Wrap(apperr.ErrExternal, err, "파일을 읽지 못했습니다.")
		}
		if fileName == "" {
			fileName = path.Base(object)
		}
	}
	if len(data) == 0 {
		return nil, apperr.New(apperr.ErrValidation, "파일 내용이 없습니다.")
	}

	payload, err := f.rt.app.KML.ImportForSite(ctx, req.SiteID, fileName, data)
	if err != nil {
		log.Warn("kml import failed", zap.Error(err))
		return nil, err
	}
	log.Info("kml imported", zap.Int("features", payload.FeatureCount))
	return &models.KMLImportResponse{
		Status:       "success",
		SiteID:       req.SiteID,
		FileName:     fileName,
		FeatureCount: payload.FeatureCount,
		PointCount:   payload.PointCount,
		LineCount:    payload.LineCount,
		PolygonCount: payload.PolygonCount,
	}, nil
}

// ParseGCSUri splits gs://bucket/object.
func ParseGCSUri(uri string) (bucket, object string, err error) {
	rest, ok := strings.CutPrefix(uri, "gs://")
	if !ok {
		return "", "", eris.Errorf("not a gs:// uri: %q", uri)
	}
	bucket, object, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", eris.Errorf("gs uri needs bucket and object: %q", uri)
	}
	return bucket, object, nil
}
