package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func line(flat ...float64) *geom.LineString {
	return geom.NewLineStringFlat(geom.XY, flat)
}

func TestCenter_IsMidpointOfExtent(t *testing.T) {
	coll := &Collection{SRID: SRIDWGS84, Features: []Feature{
		{OSMID: 1, Geometry: line(13.30, 52.53, 13.28, 52.54)},
		{OSMID: 2, Geometry: line(13.28, 52.54, 13.25, 52.56, 13.26, 52.52)},
	}}

	extent, err := coll.Extent()
	require.NoError(t, err)
	assert.Equal(t, [4]float64{13.25, 52.52, 13.30, 52.56}, extent)

	c, err := coll.Center()
	require.NoError(t, err)
	assert.InDelta(t, (13.25+13.30)/2, c.Lon, 1e-12)
	assert.InDelta(t, (52.52+52.56)/2, c.Lat, 1e-12)
}

func TestCenter_SkipsEmptyGeometries(t *testing.T) {
	coll := &Collection{Features: []Feature{
		{OSMID: 1, Geometry: line()},
		{OSMID: 2, Geometry: line(10, 20, 12, 24)},
	}}

	c, err := coll.Center()
	require.NoError(t, err)
	assert.Equal(t, Center{Lat: 22, Lon: 11}, c)
}

func TestCenter_EmptyCollection(t *testing.T) {
	_, err := (&Collection{}).Center()
	assert.ErrorIs(t, err, ErrEmptyExtent)

	_, err = (&Collection{Features: []Feature{{Geometry: line()}}}).Extent()
	assert.ErrorIs(t, err, ErrEmptyExtent)
}
