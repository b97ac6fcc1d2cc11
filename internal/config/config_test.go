package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// inTempDir changes to an empty temp dir so no config.yaml is found.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	inTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Empty(t, cfg.Store.DatabaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "https://cloud.gmapsextractor.com/api/v2", cfg.Provider.BaseURL)
	assert.Equal(t, 60, cfg.Provider.TimeoutSecs)
	assert.Equal(t, "40.6970194,-74.3093048", cfg.Search.Coordinates)
	assert.Equal(t, 11, cfg.Search.ZoomLevel)
	assert.Equal(t, "en", cfg.Search.Lang)
	assert.Equal(t, "us", cfg.Search.Region)
	assert.Equal(t, "newest", cfg.Search.ReviewsSort)
	assert.Equal(t, "rollback_query", cfg.Ingest.FailurePolicy)
}

func TestLoadFromYAML(t *testing.T) {
	dir := inTempDir(t)

	yaml := `
store:
  driver: sqlite
  database_url: places.db
log:
  level: debug
  format: console
server:
  port: 9090
search:
  zoom_level: 14
ingest:
  failure_policy: skip_place
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "places.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 14, cfg.Search.ZoomLevel)
	assert.Equal(t, "skip_place", cfg.Ingest.FailurePolicy)
	// Defaults still apply for unset values
	assert.Equal(t, "en", cfg.Search.Lang)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := inTempDir(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("PLACES_STORE_DRIVER", "postgres")
	t.Setenv("PLACES_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	inTempDir(t)

	t.Setenv("PLACES_SERVER_PORT", "3000")
	t.Setenv("PLACES_PROVIDER_API_KEY", "key-123")
	t.Setenv("PLACES_INGEST_FAILURE_POLICY", "skip_place")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "key-123", cfg.Provider.APIKey)
	assert.Equal(t, "skip_place", cfg.Ingest.FailurePolicy)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := inTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "postgres"
	cfg.Store.DatabaseURL = "postgres://localhost/places"
	cfg.Server.Port = 8080
	cfg.Provider.TimeoutSecs = 60
	cfg.Search.ZoomLevel = 11
	cfg.Ingest.FailurePolicy = "rollback_query"
	return cfg
}

func TestValidateServe_Valid(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidatePostgresRequiresURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.DatabaseURL = ""

	err := cfg.Validate("migrate")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")
}

func TestValidateSQLite(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "places.db"

	assert.NoError(t, cfg.Validate("migrate"))
}

func TestValidateUnknownDriver(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), `store.driver "mysql"`)
}

func TestValidateFailurePolicy(t *testing.T) {
	cfg := validDefaults()
	cfg.Ingest.FailurePolicy = "skip_place"
	assert.NoError(t, cfg.Validate("serve"))

	cfg.Ingest.FailurePolicy = ""
	assert.NoError(t, cfg.Validate("serve"))

	cfg.Ingest.FailurePolicy = "retry"
	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ingest.failure_policy")
}

func TestValidateZoomLevel(t *testing.T) {
	cfg := validDefaults()
	cfg.Search.ZoomLevel = 0
	assert.NoError(t, cfg.Validate("serve"))

	cfg.Search.ZoomLevel = 22
	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "search.zoom_level")
}

func TestValidatePoolBounds(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.MaxConns = 2
	cfg.Store.MinConns = 5

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.min_conns must be <= store.max_conns")
}

func TestValidateSearch_RequiresAPIKey(t *testing.T) {
	cfg := validDefaults()

	err := cfg.Validate("search")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "provider.api_key is required")

	cfg.Provider.APIKey = "key"
	assert.NoError(t, cfg.Validate("search"))
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.DatabaseURL = ""
	cfg.Server.Port = -1

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")
	assert.Contains(t, err.Error(), "server.port")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
