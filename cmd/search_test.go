package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/places-ingest/internal/config"
	"github.com/sells-group/places-ingest/internal/ingest"
)

func TestBuildSearchRequest_FlagsOnly(t *testing.T) {
	req, err := buildSearchRequest([]string{"cafes", "bars"}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"cafes", "bars"}, req.Queries)
	assert.Nil(t, req.ZoomLevel)
}

func TestBuildSearchRequest_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queries.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
queries:
  - coffee shops in portland
  - bakeries in portland
coordinates: "45.52,-122.68"
zoom_level: 13
max_results: 5
`), 0644))

	req, err := buildSearchRequest([]string{"tea"}, path)
	require.NoError(t, err)
	assert.Equal(t, []string{"coffee shops in portland", "bakeries in portland", "tea"}, req.Queries)
	assert.Equal(t, "45.52,-122.68", req.Coordinates)
	require.NotNil(t, req.ZoomLevel)
	assert.Equal(t, 13, *req.ZoomLevel)
	require.NotNil(t, req.MaxResults)
	assert.Equal(t, 5, *req.MaxResults)
}

func TestBuildSearchRequest_MissingFile(t *testing.T) {
	_, err := buildSearchRequest(nil, filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read query file")
}

func TestBuildSearchRequest_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queries.yaml")
	require.NoError(t, os.WriteFile(path, []byte("queries: [unclosed"), 0644))

	_, err := buildSearchRequest(nil, path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse query file")
}

func testConfig(t *testing.T, providerURL string) *config.Config {
	t.Helper()
	return &config.Config{
		Store:    config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "places.db")},
		Server:   config.ServerConfig{Port: 8080},
		Log:      config.LogConfig{Level: "info", Format: "json"},
		Provider: config.ProviderConfig{BaseURL: providerURL, APIKey: "test-key", TimeoutSecs: 5},
		Search: config.SearchConfig{
			Coordinates: "40.6970194,-74.3093048",
			ZoomLevel:   11,
			Lang:        "en",
			Region:      "us",
			ReviewsSort: "newest",
		},
		Ingest: config.IngestConfig{FailurePolicy: "rollback_query"},
	}
}

func TestSearchCmd_EndToEnd(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"total": 1, "data": [{
			"place_id": "ChIJcoffee",
			"name": "Daily Grind",
			"categories": "Cafe, Coffee shop",
			"opening_hours": "Mon: [9:00-17:00], Tue: [closed]",
			"full_address": "12 Bean St, Portland, OR, 97201, US"
		}]}`))
	}))
	defer provider.Close()

	cfg = testConfig(t, provider.URL)
	searchQueries = []string{"coffee shops in portland"}
	t.Cleanup(func() {
		cfg = nil
		searchQueries = nil
	})

	var out bytes.Buffer
	searchCmd.SetOut(&out)
	searchCmd.SetContext(context.Background())
	t.Cleanup(func() {
		searchCmd.SetOut(nil)
		searchCmd.SetContext(nil)
	})

	require.NoError(t, searchCmd.RunE(searchCmd, nil))

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "coffee shops in portland", gotBody["q"])
	assert.Equal(t, "@40.6970194,-74.3093048,11z", gotBody["ll"])

	var resp ingest.SearchResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, ingest.StatusCompleted, resp.Results[0].Status)
	require.NotNil(t, resp.Results[0].PlacesStored)
	assert.Equal(t, 1, *resp.Results[0].PlacesStored)
}

func TestSearchCmd_NoQueries(t *testing.T) {
	cfg = testConfig(t, "http://127.0.0.1:1")
	t.Cleanup(func() { cfg = nil })

	searchCmd.SetContext(context.Background())
	t.Cleanup(func() { searchCmd.SetContext(nil) })

	err := searchCmd.RunE(searchCmd, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ingest.ErrInvalidRequest)
}

func TestSearchCmd_RequiresAPIKey(t *testing.T) {
	cfg = testConfig(t, "http://127.0.0.1:1")
	cfg.Provider.APIKey = ""
	t.Cleanup(func() { cfg = nil })

	err := searchCmd.RunE(searchCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider.api_key is required")
}

func TestMigrateCmd_SQLite(t *testing.T) {
	cfg = testConfig(t, "")
	t.Cleanup(func() { cfg = nil })

	migrateCmd.SetContext(context.Background())
	t.Cleanup(func() { migrateCmd.SetContext(nil) })

	require.NoError(t, migrateCmd.RunE(migrateCmd, nil))
	// Second run finds nothing to apply.
	require.NoError(t, migrateCmd.RunE(migrateCmd, nil))
	_, err := os.Stat(cfg.Store.DatabaseURL)
	assert.NoError(t, err)
}
