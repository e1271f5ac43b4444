package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/relation-cli/internal/config"
)

const overpassBody = `{
  "version": 0.6,
  "generator": "Overpass API",
  "osm3s": {"timestamp_osm_base": "2026-10-14T08:00:00Z", "copyright": "ODbL"},
  "elements": [
    {"type": "relation", "id": 7382983, "members": [], "tags": {"name": "Siemensbahn"}},
    {"type": "way", "id": 101, "geometry": [{"lat": 52.53, "lon": 13.30}, {"lat": 52.54, "lon": 13.31}], "tags": {"name": "Siemensbahn"}},
    {"type": "way", "id": 102, "geometry": [{"lat": 52.54, "lon": 13.31}, {"lat": 52.55, "lon": 13.33}]},
    {"type": "node", "id": 1, "lat": 52.53, "lon": 13.30}
  ]
}`

func testRunConfig(dir string, endpoints ...string) *config.Config {
	return &config.Config{
		Overpass: config.OverpassConfig{
			Endpoints:          endpoints,
			RelationID:         7382983,
			QueryTimeoutSecs:   60,
			RequestTimeoutSecs: 5,
		},
		Projection: config.ProjectionConfig{Target: "EPSG:25833"},
		Output: config.OutputConfig{
			Dir:              dir,
			Basename:         "siemensbahn",
			GeographicSuffix: "wgs84",
			PlanarSuffix:     "utm33",
			GeoPackage:       true,
			Manifest:         true,
		},
		Map: config.MapConfig{Zoom: 13, LayerName: "Siemensbahn", Color: "#0066cc", Weight: 4, Opacity: 0.8},
	}
}

func newTestCmd(out *bytes.Buffer) *cobra.Command {
	cmd := &cobra.Command{}
	addRunFlags(cmd)
	cmd.SetOut(out)
	cmd.SetContext(context.Background())
	return cmd
}

func resetRunFlags() {
	runRelationID, runTarget, runOutDir, runSaveRaw = 0, "", "", false
}

func TestRunPipeline_FallsBackToSecondEndpoint(t *testing.T) {
	t.Cleanup(resetRunFlags)

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGatewayTimeout)
	}))
	defer bad.Close()

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Contains(t, r.PostForm.Get("data"), "relation(7382983);")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(overpassBody))
	}))
	defer good.Close()

	dir := filepath.Join(t.TempDir(), "data")
	cfg = testRunConfig(dir, bad.URL, good.URL)

	var out bytes.Buffer
	require.NoError(t, runPipeline(newTestCmd(&out), nil))

	text := out.String()
	assert.Contains(t, text, "Trying "+bad.URL+"...")
	assert.Contains(t, text, "Failed: ")
	assert.Contains(t, text, "Success!")
	assert.Contains(t, text, "Found 2 way segments in the relation")
	assert.Contains(t, text, "  Features: 2")

	for _, name := range []string{
		"siemensbahn_wgs84.geojson",
		"siemensbahn_utm33.geojson",
		"siemensbahn_utm33.shp",
		"siemensbahn_utm33.gpkg",
		"siemensbahn_map.html",
		"siemensbahn_manifest.yaml",
	} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
}

func TestRunPipeline_AllEndpointsFail(t *testing.T) {
	t.Cleanup(resetRunFlags)

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer bad.Close()

	dir := filepath.Join(t.TempDir(), "data")
	cfg = testRunConfig(dir, bad.URL, bad.URL+"/again")

	var out bytes.Buffer
	err := runPipeline(newTestCmd(&out), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 candidates failed")

	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunPipeline_InvalidConfig(t *testing.T) {
	t.Cleanup(resetRunFlags)

	cfg = testRunConfig(t.TempDir())
	err := runPipeline(newTestCmd(&bytes.Buffer{}), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overpass.endpoints must not be empty")
}

func TestApplyRunFlags(t *testing.T) {
	t.Cleanup(resetRunFlags)

	cmd := newTestCmd(&bytes.Buffer{})
	require.NoError(t, cmd.Flags().Parse([]string{"--relation", "42", "--target", "EPSG:32633", "--out", "/tmp/x", "--save-raw"}))

	c := testRunConfig("data", "http://a")
	applyRunFlags(cmd, c)

	assert.Equal(t, int64(42), c.Overpass.RelationID)
	assert.Equal(t, "EPSG:32633", c.Projection.Target)
	assert.Equal(t, "/tmp/x", c.Output.Dir)
	assert.True(t, c.Output.SaveRaw)
}

func TestApplyRunFlags_KeepsConfigWhenUnset(t *testing.T) {
	t.Cleanup(resetRunFlags)

	c := testRunConfig("data", "http://a")
	c.Output.SaveRaw = true
	applyRunFlags(newTestCmd(&bytes.Buffer{}), c)

	assert.Equal(t, int64(7382983), c.Overpass.RelationID)
	assert.Equal(t, "EPSG:25833", c.Projection.Target)
	assert.Equal(t, "data", c.Output.Dir)
	assert.True(t, c.Output.SaveRaw)
}

func TestNewProber(t *testing.T) {
	c := testRunConfig("data", "http://a", "http://b")
	p := newProber(c, nil)
	assert.Equal(t, []string{"http://a", "http://b"}, p.Endpoints())
}
