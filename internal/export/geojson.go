package export

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/relation-cli/internal/crs"
	"github.com/sells-group/relation-cli/internal/feature"
)

// namedCRS is the legacy GeoJSON 2008 "crs" member. RFC 7946 dropped it, but
// desktop GIS still relies on it to place non-WGS 84 files.
type namedCRS struct {
	Type       string `json:"type"`
	Properties struct {
		Name string `json:"name"`
	} `json:"properties"`
}

type featureCollection struct {
	Type     string             `json:"type"`
	Name     string             `json:"name,omitempty"`
	CRS      *namedCRS          `json:"crs,omitempty"`
	Features []*geojson.Feature `json:"features"`
}

// EncodeGeoJSON renders coll as a FeatureCollection. A "crs" member is only
// emitted for non-geographic systems.
func EncodeGeoJSON(coll *feature.Collection, c crs.CRS, name string) ([]byte, error) {
	fc := featureCollection{
		Type:     "FeatureCollection",
		Name:     name,
		Features: make([]*geojson.Feature, 0, coll.Len()),
	}
	if !c.IsGeographic() {
		fc.CRS = &namedCRS{Type: "name"}
		fc.CRS.Properties.Name = c.URN()
	}

	for _, f := range coll.Features {
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry:   f.Geometry,
			Properties: f.Properties(),
		})
	}

	data, err := json.Marshal(fc)
	if err != nil {
		return nil, eris.Wrap(err, "export: encode geojson")
	}
	return data, nil
}

// WriteGeoJSON encodes coll and writes it to path.
func WriteGeoJSON(path string, coll *feature.Collection, c crs.CRS, name string) error {
	data, err := EncodeGeoJSON(coll, c, name)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "export: write geojson %s", path)
	}
	return nil
}

// ReadGeoJSON loads a FeatureCollection written by WriteGeoJSON.
func ReadGeoJSON(path string) (*feature.Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "export: read geojson %s", path)
	}

	var fc featureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrapf(err, "export: decode geojson %s", path)
	}

	coll := &feature.Collection{SRID: feature.SRIDWGS84}
	if fc.CRS != nil {
		srid, err := sridFromURN(fc.CRS.Properties.Name)
		if err != nil {
			return nil, err
		}
		coll.SRID = srid
	}

	for i, gf := range fc.Features {
		ls, ok := gf.Geometry.(*geom.LineString)
		if !ok {
			return nil, eris.Errorf("export: feature %d in %s is %T, want LineString", i, path, gf.Geometry)
		}
		f := feature.Feature{Geometry: ls.SetSRID(coll.SRID)}
		if v, ok := gf.Properties["osm_id"].(float64); ok {
			f.OSMID = int64(v)
		}
		if v, ok := gf.Properties["name"].(string); ok {
			f.Name = v
		}
		coll.Features = append(coll.Features, f)
	}

	return coll, nil
}

func sridFromURN(urn string) (int, error) {
	i := strings.LastIndex(urn, ":")
	if i < 0 {
		return 0, eris.Errorf("export: unrecognised crs name %q", urn)
	}
	srid, err := strconv.Atoi(urn[i+1:])
	if err != nil {
		return 0, eris.Wrapf(err, "export: parse crs name %q", urn)
	}
	return srid, nil
}
