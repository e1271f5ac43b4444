// Package export writes feature collections to vector files on disk.
package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// Layout names every output file of a run.
type Layout struct {
	Dir              string
	Basename         string
	GeographicSuffix string
	PlanarSuffix     string
}

func (l Layout) path(suffix, ext string) string {
	name := l.Basename
	if suffix != "" {
		name = fmt.Sprintf("%s_%s", name, suffix)
	}
	return filepath.Join(l.Dir, name+ext)
}

// GeographicGeoJSON is the EPSG:4326 GeoJSON file.
func (l Layout) GeographicGeoJSON() string { return l.path(l.GeographicSuffix, ".geojson") }

// PlanarGeoJSON is the projected GeoJSON file.
func (l Layout) PlanarGeoJSON() string { return l.path(l.PlanarSuffix, ".geojson") }

// Shapefile is the projected .shp file; sidecars share its stem.
func (l Layout) Shapefile() string { return l.path(l.PlanarSuffix, ".shp") }

// GeoPackage is the projected .gpkg file.
func (l Layout) GeoPackage() string { return l.path(l.PlanarSuffix, ".gpkg") }

// Raw is the unmodified Overpass response body.
func (l Layout) Raw() string { return l.path(l.GeographicSuffix+"_raw", ".json") }

// Map is the HTML map document.
func (l Layout) Map() string { return l.path("map", ".html") }

// Manifest is the YAML run summary.
func (l Layout) Manifest() string { return l.path("manifest", ".yaml") }

// EnsureDir creates the output directory if needed.
func (l Layout) EnsureDir() error {
	if err := os.MkdirAll(l.Dir, 0o755); err != nil {
		return eris.Wrapf(err, "export: create output dir %s", l.Dir)
	}
	return nil
}

// WriteRaw stores the raw response body as-is.
func WriteRaw(path string, body []byte) error {
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return eris.Wrapf(err, "export: write raw response %s", path)
	}
	return nil
}
