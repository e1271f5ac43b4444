package webmap

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/relation-cli/internal/feature"
)

func sample() *feature.Collection {
	return &feature.Collection{
		SRID: feature.SRIDWGS84,
		Features: []feature.Feature{
			{OSMID: 1, Name: "A <b>", Geometry: geom.NewLineStringFlat(geom.XY, []float64{13.30, 52.53, 13.31, 52.54})},
			{OSMID: 2, Geometry: geom.NewLineStringFlat(geom.XY, []float64{13.31, 52.54, 13.34, 52.55})},
		},
	}
}

func TestBuild_CenterIsExtentMidpoint(t *testing.T) {
	coll := sample()
	m, err := Build(coll, DefaultOptions())
	require.NoError(t, err)

	ext, err := coll.Extent()
	require.NoError(t, err)
	assert.InDelta(t, (ext[0]+ext[2])/2, m.Center.Lon, 1e-12)
	assert.InDelta(t, (ext[1]+ext[3])/2, m.Center.Lat, 1e-12)
	assert.InDelta(t, 13.32, m.Center.Lon, 1e-12)
	assert.InDelta(t, 52.54, m.Center.Lat, 1e-12)
}

func TestBuild_Errors(t *testing.T) {
	_, err := Build(&feature.Collection{SRID: feature.SRIDWGS84}, DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty extent")

	_, err = Build(&feature.Collection{SRID: 25833, Features: sample().Features}, DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want EPSG:4326")
}

func TestBuild_TitleDefaultsToLayerName(t *testing.T) {
	opts := DefaultOptions()
	opts.Title = ""
	opts.LayerName = "Line X"

	m, err := Build(sample(), opts)
	require.NoError(t, err)
	assert.Equal(t, "Line X", m.Title)
}

func TestRender(t *testing.T) {
	m, err := Build(sample(), DefaultOptions())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, m.Render(&buf))
	html := buf.String()

	assert.Contains(t, html, "leaflet@1.9")
	// html/template pads numbers in script context with spaces.
	assert.Regexp(t, `setView\(\[\s*52\.54\s*,\s*13\.32\s*\]\s*,\s*13\s*\)`, html)
	assert.Contains(t, html, "tile.openstreetmap.org")
	assert.Contains(t, html, `"#0066cc"`)
	assert.Contains(t, html, "0.8")
	assert.Contains(t, html, "'Name: '")
	assert.Contains(t, html, "'OSM ID: '")
	assert.Contains(t, html, "L.control.layers")
	assert.Contains(t, html, `"Siemensbahn"`)
	assert.Contains(t, html, `"FeatureCollection"`)
	assert.NotContains(t, html, "A <b>")
}

func TestWriteFile(t *testing.T) {
	m, err := Build(sample(), DefaultOptions())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "map.html")
	require.NoError(t, m.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<!DOCTYPE html>")

	assert.Error(t, m.WriteFile(filepath.Join(t.TempDir(), "missing", "map.html")))
}
