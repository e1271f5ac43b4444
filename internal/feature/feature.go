// Package feature holds the line features extracted from an Overpass response
// and the collections they are grouped into.
package feature

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// SRIDWGS84 is the EPSG code of the geographic CRS features are extracted in.
const SRIDWGS84 = 4326

// ErrEmptyExtent is returned when a collection has no coordinates to bound.
var ErrEmptyExtent = eris.New("feature: collection has an empty extent")

// Feature is one OSM way as a line with its identifier and name.
type Feature struct {
	OSMID    int64
	Name     string
	Geometry *geom.LineString
}

// Properties returns the attribute record written alongside the geometry.
func (f Feature) Properties() map[string]any {
	return map[string]any{
		"osm_id": f.OSMID,
		"name":   f.Name,
	}
}

// Collection is an ordered set of features sharing one CRS.
type Collection struct {
	SRID     int
	Features []Feature
}

// Len returns the number of features.
func (c *Collection) Len() int {
	return len(c.Features)
}

// Bounds returns the bounding extent of every feature geometry. The result is
// empty when no feature has coordinates.
func (c *Collection) Bounds() *geom.Bounds {
	b := geom.NewBounds(geom.XY)
	for _, f := range c.Features {
		if f.Geometry == nil || f.Geometry.NumCoords() == 0 {
			continue
		}
		b.Extend(f.Geometry)
	}
	return b
}

// Center is a map focal point.
type Center struct {
	Lat float64
	Lon float64
}

// Center returns the midpoint of the collection's bounding extent.
func (c *Collection) Center() (Center, error) {
	b := c.Bounds()
	if b.IsEmpty() {
		return Center{}, ErrEmptyExtent
	}
	return Center{
		Lon: (b.Min(0) + b.Max(0)) / 2,
		Lat: (b.Min(1) + b.Max(1)) / 2,
	}, nil
}

// Extent returns [minX, minY, maxX, maxY] of the collection, matching the
// order GIS tools print total bounds in.
func (c *Collection) Extent() ([4]float64, error) {
	b := c.Bounds()
	if b.IsEmpty() {
		return [4]float64{}, ErrEmptyExtent
	}
	return [4]float64{b.Min(0), b.Min(1), b.Max(0), b.Max(1)}, nil
}
