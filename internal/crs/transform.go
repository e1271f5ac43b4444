package crs

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/wroge/wgs84"

	"github.com/sells-group/relation-cli/internal/feature"
)

// Project converts a single geographic (lon, lat) position into target.
func Project(target CRS, lon, lat float64) (x, y float64) {
	if target.IsGeographic() {
		return lon, lat
	}
	x, y, _ = forward(target)(lon, lat, 0)
	return x, y
}

// forward returns the EPSG:4326 to target transformation.
func forward(target CRS) wgs84.Func {
	epsg := wgs84.EPSG()
	return wgs84.Transform(epsg.Code(feature.SRIDWGS84), epsg.Code(target.EPSG))
}

// Reproject returns a new collection with every geometry transformed from
// EPSG:4326 into target. The input collection is left untouched, so calling
// Reproject twice with the same arguments yields identical coordinates.
func Reproject(src *feature.Collection, target CRS) (*feature.Collection, error) {
	if src == nil {
		return nil, eris.New("crs: reproject nil collection")
	}
	if src.SRID != feature.SRIDWGS84 {
		return nil, eris.Errorf("crs: reproject from EPSG:%d is not supported, source must be EPSG:4326", src.SRID)
	}

	var fn wgs84.Func
	if !target.IsGeographic() {
		fn = forward(target)
	}

	out := &feature.Collection{
		SRID:     target.EPSG,
		Features: make([]feature.Feature, 0, len(src.Features)),
	}

	for _, f := range src.Features {
		var flat []float64
		stride := 2
		if f.Geometry != nil {
			stride = f.Geometry.Stride()
			flat = append(flat, f.Geometry.FlatCoords()...)
		}

		if fn != nil {
			for i := 0; i+1 < len(flat); i += stride {
				flat[i], flat[i+1], _ = fn(flat[i], flat[i+1], 0)
			}
		}

		layout := geom.XY
		if f.Geometry != nil {
			layout = f.Geometry.Layout()
		}

		out.Features = append(out.Features, feature.Feature{
			OSMID:    f.OSMID,
			Name:     f.Name,
			Geometry: geom.NewLineStringFlat(layout, flat).SetSRID(target.EPSG),
		})
	}

	return out, nil
}
