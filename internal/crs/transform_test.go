package crs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/relation-cli/internal/feature"
)

func TestProject_KnownPoints(t *testing.T) {
	etrs33, err := Parse("EPSG:25833")
	require.NoError(t, err)

	tests := []struct {
		name     string
		lon, lat float64
		x, y     float64
	}{
		{"Berlin Mitte", 13.405, 52.52, 391779.2593, 5820072.1591},
		{"Siemensstadt", 13.2846, 52.5405, 383664.9237, 5822539.4850},
		{"central meridian on equator", 15, 0, 500000, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := Project(etrs33, tt.lon, tt.lat)
			assert.InDelta(t, tt.x, x, 0.01)
			assert.InDelta(t, tt.y, y, 0.01)
		})
	}
}

func TestProject_SouthernHemisphere(t *testing.T) {
	c, err := Parse("EPSG:32733")
	require.NoError(t, err)
	x, y := Project(c, 15, 0)
	assert.InDelta(t, 500000, x, 1e-3)
	assert.InDelta(t, 10000000, y, 1e-3)

	_, ySouth := Project(c, 15, -10)
	assert.Less(t, ySouth, 10000000.0)
}

func TestProject_ETRS89MatchesWGS84Zone(t *testing.T) {
	etrs, err := Parse("EPSG:25833")
	require.NoError(t, err)
	wgs, err := Parse("EPSG:32633")
	require.NoError(t, err)

	xe, ye := Project(etrs, 13.2846, 52.5405)
	xw, yw := Project(wgs, 13.2846, 52.5405)
	assert.InDelta(t, xe, xw, 0.01)
	assert.InDelta(t, ye, yw, 0.01)
}

func TestProject_Geographic(t *testing.T) {
	x, y := Project(WGS84, 13.4, 52.5)
	assert.Equal(t, 13.4, x)
	assert.Equal(t, 52.5, y)
}

func sampleCollection() *feature.Collection {
	return &feature.Collection{SRID: feature.SRIDWGS84, Features: []feature.Feature{
		{OSMID: 1, Name: "a", Geometry: geom.NewLineStringFlat(geom.XY, []float64{13.30, 52.53, 13.29, 52.54})},
		{OSMID: 2, Name: "b", Geometry: geom.NewLineStringFlat(geom.XY, []float64{13.29, 52.54, 13.27, 52.55, 13.25, 52.56})},
		{OSMID: 3, Name: "", Geometry: geom.NewLineStringFlat(geom.XY, nil)},
	}}
}

func TestReproject(t *testing.T) {
	target, err := Parse("EPSG:25833")
	require.NoError(t, err)

	src := sampleCollection()
	out, err := Reproject(src, target)
	require.NoError(t, err)

	assert.Equal(t, 25833, out.SRID)
	require.Equal(t, src.Len(), out.Len())
	for i := range src.Features {
		assert.Equal(t, src.Features[i].OSMID, out.Features[i].OSMID)
		assert.Equal(t, src.Features[i].Name, out.Features[i].Name)
		assert.Equal(t, src.Features[i].Geometry.NumCoords(), out.Features[i].Geometry.NumCoords())
		assert.Equal(t, 25833, out.Features[i].Geometry.SRID())
	}

	x, y := Project(target, 13.30, 52.53)
	assert.Equal(t, []float64{x, y}, out.Features[0].Geometry.FlatCoords()[:2])
}

func TestReproject_IsPure(t *testing.T) {
	target, err := Parse("EPSG:25833")
	require.NoError(t, err)

	src := sampleCollection()
	before := append([]float64(nil), src.Features[1].Geometry.FlatCoords()...)

	first, err := Reproject(src, target)
	require.NoError(t, err)
	second, err := Reproject(src, target)
	require.NoError(t, err)

	assert.Equal(t, before, src.Features[1].Geometry.FlatCoords(), "input must not be mutated")
	assert.Equal(t, feature.SRIDWGS84, src.SRID)
	for i := range first.Features {
		assert.Equal(t, first.Features[i].Geometry.FlatCoords(), second.Features[i].Geometry.FlatCoords())
	}
}

func TestReproject_ToGeographicCopies(t *testing.T) {
	src := sampleCollection()
	out, err := Reproject(src, WGS84)
	require.NoError(t, err)
	assert.Equal(t, src.Features[0].Geometry.FlatCoords(), out.Features[0].Geometry.FlatCoords())

	out.Features[0].Geometry.FlatCoords()[0] = 0
	assert.Equal(t, 13.30, src.Features[0].Geometry.FlatCoords()[0])
}

func TestReproject_RejectsNonGeographicSource(t *testing.T) {
	target, err := Parse("EPSG:25833")
	require.NoError(t, err)

	_, err = Reproject(&feature.Collection{SRID: 25833}, target)
	assert.Error(t, err)

	_, err = Reproject(nil, target)
	assert.Error(t, err)
}
