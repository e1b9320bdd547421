package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.InDelta(t, 33.0, cfg.Map.Bounds.South, 0.0001)
	assert.InDelta(t, 124.5, cfg.Map.Bounds.West, 0.0001)
	assert.InDelta(t, 38.8, cfg.Map.Bounds.North, 0.0001)
	assert.InDelta(t, 131.0, cfg.Map.Bounds.East, 0.0001)
	assert.Equal(t, 1, cfg.Map.ZoomMin)
	assert.Equal(t, 20, cfg.Map.ZoomMax)
	assert.Equal(t, RoadOnlyStyle, cfg.Map.Style)
	assert.Equal(t, "kr", cfg.Google.Region)
	assert.Equal(t, "ko", cfg.Google.Language)
	assert.Equal(t, "users", cfg.Firestore.Collection)
	assert.Equal(t, "currentUser", cfg.Firestore.Document)
	assert.Equal(t, "firestore", cfg.Store.Driver)
	assert.Equal(t, 7, cfg.Sync.InitialTimeoutSecs)
	assert.Equal(t, 2500, cfg.Badge.SuccessMillis)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
map:
  zoom_max: 18
  bounds:
    south: 37.4
    west: 126.8
    north: 37.7
    east: 127.2
store:
  driver: memory
log:
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 18, cfg.Map.ZoomMax)
	assert.InDelta(t, 37.4, cfg.Map.Bounds.South, 0.0001)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "console", cfg.Log.Format)
	// Defaults still apply for unset values
	assert.Equal(t, 1, cfg.Map.ZoomMin)
}

func TestLoadEnvOverrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv("MWMAP_GOOGLE_API_KEY", "env-key")
	t.Setenv("MWMAP_STORE_DRIVER", "memory")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.Google.APIKey)
	assert.Equal(t, "memory", cfg.Store.Driver)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Map: MapConfig{
				Bounds:         BoundsConfig{South: 33, West: 124.5, North: 38.8, East: 131},
				ZoomMin:        1,
				ZoomMax:        20,
				ViewportWidth:  100,
				ViewportHeight: 100,
			},
			Store: StoreConfig{Driver: "memory"},
		}
	}

	require.NoError(t, base().Validate())

	inverted := base()
	inverted.Map.Bounds.South = 40
	assert.Error(t, inverted.Validate())

	zoom := base()
	zoom.Map.ZoomMin = 21
	assert.Error(t, zoom.Validate())

	driver := base()
	driver.Store.Driver = "postgres"
	assert.Error(t, driver.Validate())
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())

	assert.Error(t, InitLogger(LogConfig{Level: "loud"}))
}
