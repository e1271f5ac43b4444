// Package webmap renders a geographic feature collection as a standalone
// Leaflet HTML page.
package webmap

import (
	"bytes"
	"html/template"
	"io"
	"os"

	"github.com/rotisserie/eris"

	"github.com/sells-group/relation-cli/internal/crs"
	"github.com/sells-group/relation-cli/internal/export"
	"github.com/sells-group/relation-cli/internal/feature"
)

// Options controls the map view and line style.
type Options struct {
	Title       string
	Zoom        int
	TileURL     string
	Attribution string
	LayerName   string
	Color       string
	Weight      float64
	Opacity     float64
}

// DefaultOptions returns the stock Siemensbahn map settings.
func DefaultOptions() Options {
	return Options{
		Title:       "Siemensbahn",
		Zoom:        13,
		TileURL:     "https://tile.openstreetmap.org/{z}/{x}/{y}.png",
		Attribution: `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors`,
		LayerName:   "Siemensbahn",
		Color:       "#0066cc",
		Weight:      4,
		Opacity:     0.8,
	}
}

// Map is a rendered-ready view of one collection.
type Map struct {
	Options
	Center  feature.Center
	GeoJSON template.JS
}

// Build centres the map on the midpoint of the collection's extent and embeds
// the collection as GeoJSON. The collection must be in EPSG:4326.
func Build(coll *feature.Collection, opts Options) (*Map, error) {
	if coll.SRID != feature.SRIDWGS84 {
		return nil, eris.Errorf("webmap: collection is EPSG:%d, want EPSG:4326", coll.SRID)
	}

	center, err := coll.Center()
	if err != nil {
		return nil, eris.Wrap(err, "webmap: compute center")
	}

	data, err := export.EncodeGeoJSON(coll, crs.WGS84, opts.LayerName)
	if err != nil {
		return nil, eris.Wrap(err, "webmap: encode features")
	}

	if opts.Title == "" {
		opts.Title = opts.LayerName
	}

	// EncodeGeoJSON output is JSON from encoding/json, which escapes <, > and &.
	return &Map{Options: opts, Center: center, GeoJSON: template.JS(data)}, nil //nolint:gosec
}

// Render writes the HTML document to w.
func (m *Map) Render(w io.Writer) error {
	if err := mapTmpl.Execute(w, m); err != nil {
		return eris.Wrap(err, "webmap: render")
	}
	return nil
}

// WriteFile renders the map to path.
func (m *Map) WriteFile(path string) error {
	var buf bytes.Buffer
	if err := m.Render(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return eris.Wrapf(err, "webmap: write %s", path)
	}
	return nil
}

var mapTmpl = template.Must(template.New("webmap").Parse(mapTmplStr))

const mapTmplStr = `<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8">
	<meta name="viewport" content="width=device-width, initial-scale=1">
	<title>{{.Title}}</title>
	<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css" crossorigin="">
	<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js" crossorigin=""></script>
	<style>
		html, body, #map { height: 100%; margin: 0; }
	</style>
</head>
<body>
	<div id="map"></div>
	<script>
		var map = L.map('map').setView([{{.Center.Lat}}, {{.Center.Lon}}], {{.Zoom}});

		var tiles = L.tileLayer({{.TileURL}}, {
			maxZoom: 19,
			attribution: {{.Attribution}}
		}).addTo(map);

		var lines = L.geoJSON({{.GeoJSON}}, {
			style: {
				color: {{.Color}},
				weight: {{.Weight}},
				opacity: {{.Opacity}}
			},
			onEachFeature: function (feature, layer) {
				var p = feature.properties || {};
				var box = document.createElement('div');
				box.appendChild(document.createTextNode('Name: ' + (p.name || '')));
				box.appendChild(document.createElement('br'));
				box.appendChild(document.createTextNode('OSM ID: ' + p.osm_id));
				layer.bindTooltip(box, { sticky: true });
			}
		}).addTo(map);

		var overlays = {};
		overlays[{{.LayerName}}] = lines;
		L.control.layers({ "OpenStreetMap": tiles }, overlays, { collapsed: false }).addTo(map);
	</script>
</body>
</html>
`
