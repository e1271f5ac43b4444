package feature

import (
	"github.com/twpayne/go-geom"

	"github.com/sells-group/relation-cli/internal/overpass"
)

// Extract keeps every way element carrying inline geometry and turns it into
// a line feature in EPSG:4326. Input order is preserved. Geometry is passed
// through as-is: single-point or self-intersecting lines are not rejected.
func Extract(resp *overpass.Response) *Collection {
	coll := &Collection{SRID: SRIDWGS84}
	if resp == nil {
		return coll
	}

	for _, el := range resp.Elements {
		if el.Type != overpass.TypeWay || !el.HasGeometry() {
			continue
		}
		coll.Features = append(coll.Features, Feature{
			OSMID:    el.ID,
			Name:     el.Tag("name"),
			Geometry: lineFromPoints(el.Geometry),
		})
	}

	return coll
}

// lineFromPoints builds an XY line string with (lon, lat) ordinates.
func lineFromPoints(points []overpass.Point) *geom.LineString {
	flat := make([]float64, 0, len(points)*2)
	for _, p := range points {
		flat = append(flat, p.Lon, p.Lat)
	}
	return geom.NewLineStringFlat(geom.XY, flat).SetSRID(SRIDWGS84)
}
