package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Map       MapConfig       `yaml:"map" mapstructure:"map"`
	Google    GoogleConfig    `yaml:"google" mapstructure:"google"`
	Firestore FirestoreConfig `yaml:"firestore" mapstructure:"firestore"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Storage   StorageConfig   `yaml:"storage" mapstructure:"storage"`
	Redis     RedisConfig     `yaml:"redis" mapstructure:"redis"`
	Sync      SyncConfig      `yaml:"sync" mapstructure:"sync"`
	Badge     BadgeConfig     `yaml:"badge" mapstructure:"badge"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// BoundsConfig is a geographic bounding box.
type BoundsConfig struct {
	South float64 `yaml:"south" mapstructure:"south"`
	West  float64 `yaml:"west" mapstructure:"west"`
	North float64 `yaml:"north" mapstructure:"north"`
	East  float64 `yaml:"east" mapstructure:"east"`
}

// StyleRule is one map style directive (feature/element visibility or simplification).
type StyleRule struct {
	FeatureType string `yaml:"feature_type" mapstructure:"feature_type" json:"featureType"`
	ElementType string `yaml:"element_type" mapstructure:"element_type" json:"elementType"`
	Visibility  string `yaml:"visibility" mapstructure:"visibility" json:"visibility"`
}

// MapConfig configures the map surface.
type MapConfig struct {
	Bounds         BoundsConfig `yaml:"bounds" mapstructure:"bounds"`
	ZoomMin        int          `yaml:"zoom_min" mapstructure:"zoom_min"`
	ZoomMax        int          `yaml:"zoom_max" mapstructure:"zoom_max"`
	InitialZoom    int          `yaml:"initial_zoom" mapstructure:"initial_zoom"`
	ViewportWidth  int          `yaml:"viewport_width" mapstructure:"viewport_width"`
	ViewportHeight int          `yaml:"viewport_height" mapstructure:"viewport_height"`
	Style          []StyleRule  `yaml:"style" mapstructure:"style"`
}

// GoogleConfig holds Google Maps Platform settings.
type GoogleConfig struct {
	APIKey       string  `yaml:"api_key" mapstructure:"api_key"`
	GeocodeURL   string  `yaml:"geocode_url" mapstructure:"geocode_url"`
	PlacesURL    string  `yaml:"places_url" mapstructure:"places_url"`
	GeolocateURL string  `yaml:"geolocate_url" mapstructure:"geolocate_url"`
	Region       string  `yaml:"region" mapstructure:"region"`
	Language     string  `yaml:"language" mapstructure:"language"`
	RatePerSec   float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// FirestoreConfig locates the shared user document.
type FirestoreConfig struct {
	ProjectID  string `yaml:"project_id" mapstructure:"project_id"`
	Collection string `yaml:"collection" mapstructure:"collection"`
	Document   string `yaml:"document" mapstructure:"document"`
}

// StoreConfig selects the document store backend.
type StoreConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"`
}

// StorageConfig configures the raw upload archive.
type StorageConfig struct {
	UploadBucket string `yaml:"upload_bucket" mapstructure:"upload_bucket"`
}

// RedisConfig configures the optional search cache.
type RedisConfig struct {
	Addr       string `yaml:"addr" mapstructure:"addr"`
	Password   string `yaml:"password" mapstructure:"password"`
	TTLMinutes int    `yaml:"ttl_minutes" mapstructure:"ttl_minutes"`
}

// SyncConfig configures the live subscription.
type SyncConfig struct {
	InitialTimeoutSecs int `yaml:"initial_timeout_secs" mapstructure:"initial_timeout_secs"`
}

// BadgeConfig configures the sync badge.
type BadgeConfig struct {
	SuccessMillis int `yaml:"success_ms" mapstructure:"success_ms"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port               int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins     []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	SessionIdleMinutes int      `yaml:"session_idle_minutes" mapstructure:"session_idle_minutes"`
	MaxUploadMB        int      `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
	KeepaliveSecs      int      `yaml:"keepalive_secs" mapstructure:"keepalive_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// RoadOnlyStyle hides POIs, transit, administrative areas and every label, keeping a
// simplified road geometry.
var RoadOnlyStyle = []StyleRule{
	{FeatureType: "poi", ElementType: "geometry", Visibility: "off"},
	{FeatureType: "poi", ElementType: "labels", Visibility: "off"},
	{FeatureType: "transit", ElementType: "geometry", Visibility: "off"},
	{FeatureType: "transit", ElementType: "labels", Visibility: "off"},
	{FeatureType: "administrative", ElementType: "all", Visibility: "off"},
	{FeatureType: "all", ElementType: "labels", Visibility: "off"},
	{FeatureType: "all", ElementType: "labels.text", Visibility: "off"},
	{FeatureType: "all", ElementType: "labels.icon", Visibility: "off"},
	{FeatureType: "road", ElementType: "geometry", Visibility: "simplified"},
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("MWMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Southern Korean peninsula.
	v.SetDefault("map.bounds.south", 33.0)
	v.SetDefault("map.bounds.west", 124.5)
	v.SetDefault("map.bounds.north", 38.8)
	v.SetDefault("map.bounds.east", 131.0)
	v.SetDefault("map.zoom_min", 1)
	v.SetDefault("map.zoom_max", 20)
	v.SetDefault("map.initial_zoom", 7)
	v.SetDefault("map.viewport_width", 1280)
	v.SetDefault("map.viewport_height", 800)
	// Keys without a meaningful default are still registered so env overrides unmarshal.
	v.SetDefault("google.api_key", "")
	v.SetDefault("firestore.project_id", "")
	v.SetDefault("storage.upload_bucket", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("google.geocode_url", "https://maps.googleapis.com/maps/api/geocode/json")
	v.SetDefault("google.places_url", "https://maps.googleapis.com/maps/api/place/textsearch/json")
	v.SetDefault("google.geolocate_url", "https://www.googleapis.com/geolocation/v1/geolocate")
	v.SetDefault("google.region", "kr")
	v.SetDefault("google.language", "ko")
	v.SetDefault("google.rate_per_sec", 10)
	v.SetDefault("firestore.collection", "users")
	v.SetDefault("firestore.document", "currentUser")
	v.SetDefault("store.driver", "firestore")
	v.SetDefault("redis.ttl_minutes", 30)
	v.SetDefault("sync.initial_timeout_secs", 7)
	v.SetDefault("badge.success_ms", 2500)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.session_idle_minutes", 30)
	v.SetDefault("server.max_upload_mb", 32)
	v.SetDefault("server.keepalive_secs", 25)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	if len(cfg.Map.Style) == 0 {
		cfg.Map.Style = append([]StyleRule(nil), RoadOnlyStyle...)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the map surface cannot work with.
func (c *Config) Validate() error {
	b := c.Map.Bounds
	if b.South >= b.North || b.West >= b.East {
		return eris.Errorf("config: invalid map bounds %+v", b)
	}
	if c.Map.ZoomMin > c.Map.ZoomMax {
		return eris.Errorf("config: zoom_min %d exceeds zoom_max %d", c.Map.ZoomMin, c.Map.ZoomMax)
	}
	if c.Map.ViewportWidth <= 0 || c.Map.ViewportHeight <= 0 {
		return eris.New("config: viewport size must be positive")
	}
	switch c.Store.Driver {
	case "firestore", "memory":
	default:
		return eris.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
