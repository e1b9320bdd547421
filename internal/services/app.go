package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/Lllllllleong/mwmap/internal/config"
	"github.com/Lllllllleong/mwmap/internal/gcp"
	"github.com/Lllllllleong/mwmap/internal/location"
	"github.com/Lllllllleong/mwmap/internal/mapview"
	"github.com/Lllllllleong/mwmap/internal/search"
	"github.com/Lllllllleong/mwmap/internal/store"
)

// Deps are the external collaborators of the app. Nil members disable the features
// that need them.
type Deps struct {
	Store      store.DocumentStore
	Archive    Archive
	Searcher   Searcher
	Locator    location.Locator
	HTTPClient *http.Client
}

// App wires every flow of the map service.
type App struct {
	Config   *config.Config
	Surface  *mapview.Surface
	Tiles    *mapview.TileProxy
	Store    store.DocumentStore
	Bucket   *storage.BucketHandle
	Sessions *SessionManager
	Sites    *Sites
	KML      *KMLImport
	Map      *MapControl
	Search   *SearchFlow
	Location *LocationFlow

	closers []func() error
}

// NewApp connects to the configured backends and assembles the app.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	var deps Deps
	var closers []func() error
	fail := func(err error) (*App, error) {
		for _, c := range closers {
			_ = c()
		}
		return nil, err
	}

	switch cfg.Store.Driver {
	case "memory":
		deps.Store = store.NewMemoryStore()
	default:
		client, err := gcp.NewFirestoreClient(ctx, cfg.Firestore.ProjectID)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, client.Close)
		deps.Store = store.NewFirestoreStore(client, cfg.Firestore.Collection, cfg.Firestore.Document)
	}

	var bucket *storage.BucketHandle
	if cfg.Storage.UploadBucket != "" {
		client, err := gcp.NewStorageClient(ctx)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, client.Close)
		bucket = client.Bucket(cfg.Storage.UploadBucket)
		deps.Archive = NewGCSArchive(bucket)
	}

	if cfg.Google.APIKey != "" {
		var geocoder search.Lookup = search.NewGeocodeClient(cfg.Google.APIKey,
			search.WithBaseURL(cfg.Google.GeocodeURL),
			search.WithRateLimit(cfg.Google.RatePerSec),
		)
		var places search.Lookup = search.NewPlacesClient(cfg.Google.APIKey,
			search.WithBaseURL(cfg.Google.PlacesURL),
			search.WithRateLimit(cfg.Google.RatePerSec),
		)
		if rdb := search.OpenRedis(cfg.Redis.Addr, cfg.Redis.Password); rdb != nil {
			closers = append(closers, rdb.Close)
			cache := search.NewRedisCache(rdb, time.Duration(cfg.Redis.TTLMinutes)*time.Minute)
			geocoder = search.Cached(geocoder, cache)
			places = search.Cached(places, cache)
		}
		deps.Searcher = search.NewService(geocoder, places, cfg.Google.Region, cfg.Google.Language)
		deps.Locator = location.NewGeolocationClient(cfg.Google.APIKey, location.WithBaseURL(cfg.Google.GeolocateURL))
	} else {
		zap.L().Warn("google.api_key not set, search and geolocation disabled")
	}

	app := Assemble(cfg, deps)
	app.Bucket = bucket
	app.closers = closers
	return app, nil
}

// Assemble builds the app around already constructed dependencies.
func Assemble(cfg *config.Config, deps Deps) *App {
	surface := mapview.NewSurface(cfg.Map, mapview.DefaultRegistry())
	kmlImport := NewKMLImport(deps.Store, surface, deps.Archive)
	sites := NewSites(deps.Store, kmlImport, SitesConfig{
		InitialSyncTimeout: time.Duration(cfg.Sync.InitialTimeoutSecs) * time.Second,
	})
	badgeFor := time.Duration(cfg.Badge.SuccessMillis) * time.Millisecond

	return &App{
		Config:   cfg,
		Surface:  surface,
		Tiles:    mapview.NewTileProxy(surface.Types(), deps.HTTPClient),
		Store:    deps.Store,
		Sessions: NewSessionManager(surface, badgeFor, sites.Subscribe),
		Sites:    sites,
		KML:      kmlImport,
		Map:      NewMapControl(surface),
		Search:   NewSearchFlow(deps.Searcher),
		Location: NewLocationFlow(deps.Locator),
	}
}

// Close ends every session and releases backend clients.
func (a *App) Close() error {
	a.Sessions.CloseAll()
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
