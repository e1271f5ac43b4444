package export

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/relation-cli/internal/crs"
	"github.com/sells-group/relation-cli/internal/feature"
)

const (
	osmIDFieldLen = 18
	nameFieldLen  = 254
)

var shapefileFields = []shp.Field{
	shp.NumberField("osm_id", osmIDFieldLen),
	shp.StringField("name", nameFieldLen),
}

// WriteShapefile writes coll as a POLYLINE shapefile with .shx, .dbf, .prj
// and .cpg sidecars next to path.
func WriteShapefile(path string, coll *feature.Collection, c crs.CRS) error {
	if err := writeShapes(path, coll); err != nil {
		return err
	}

	stem := strings.TrimSuffix(path, filepath.Ext(path))
	if err := fixDBFName(stem); err != nil {
		return err
	}
	if err := patchHeaderBBox(coll, stem+".shp", stem+".shx"); err != nil {
		return err
	}

	if err := writeSidecar(path, ".prj", c.ESRIWKT()); err != nil {
		return err
	}
	return writeSidecar(path, ".cpg", "UTF-8")
}

func writeShapes(path string, coll *feature.Collection) error {
	w, err := shp.Create(path, shp.POLYLINE)
	if err != nil {
		return eris.Wrapf(err, "export: create shapefile %s", path)
	}
	defer w.Close()

	if err := w.SetFields(shapefileFields); err != nil {
		return eris.Wrapf(err, "export: set shapefile fields %s", path)
	}

	for _, f := range coll.Features {
		row := int(w.Write(toPolyLine(f.Geometry)))
		if err := w.WriteAttribute(row, 0, int(f.OSMID)); err != nil {
			return eris.Wrapf(err, "export: write osm_id for way %d", f.OSMID)
		}
		if err := w.WriteAttribute(row, 1, truncateUTF8(f.Name, nameFieldLen)); err != nil {
			return eris.Wrapf(err, "export: write name for way %d", f.OSMID)
		}
	}
	return nil
}

// fixDBFName moves the attribute table go-shp creates as "<stem>dbf" to
// "<stem>.dbf". It is a no-op once the writer names the file correctly.
func fixDBFName(stem string) error {
	err := os.Rename(stem+"dbf", stem+".dbf")
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return eris.Wrapf(err, "export: rename attribute table for %s", stem)
	}
	return nil
}

// headerBBoxOffset is where Xmin, Ymin, Xmax, Ymax start in .shp/.shx headers.
const headerBBoxOffset = 36

// patchHeaderBBox overwrites the file-level bounding box with the extent of
// the non-empty geometries. go-shp grows the header box with the {0,0,0,0}
// box of empty parts, which would pull the origin into the layer extent.
func patchHeaderBBox(coll *feature.Collection, paths ...string) error {
	ext, err := coll.Extent()
	if errors.Is(err, feature.ErrEmptyExtent) {
		return nil
	}
	if err != nil {
		return eris.Wrap(err, "export: shapefile extent")
	}

	buf := make([]byte, 32)
	for i, v := range ext {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}

	for _, p := range paths {
		f, err := os.OpenFile(p, os.O_WRONLY, 0)
		if err != nil {
			return eris.Wrapf(err, "export: open %s", p)
		}
		_, werr := f.WriteAt(buf, headerBBoxOffset)
		cerr := f.Close()
		if werr != nil {
			return eris.Wrapf(werr, "export: patch bbox %s", p)
		}
		if cerr != nil {
			return eris.Wrapf(cerr, "export: close %s", p)
		}
	}
	return nil
}

func toPolyLine(ls *geom.LineString) *shp.PolyLine {
	points := make([]shp.Point, 0, ls.NumCoords())
	for i := 0; i < ls.NumCoords(); i++ {
		c := ls.Coord(i)
		points = append(points, shp.Point{X: c.X(), Y: c.Y()})
	}
	return shp.NewPolyLine([][]shp.Point{points})
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func writeSidecar(shpPath, ext, content string) error {
	p := strings.TrimSuffix(shpPath, filepath.Ext(shpPath)) + ext
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		return eris.Wrapf(err, "export: write %s", p)
	}
	return nil
}

// ReadShapefile loads a shapefile written by WriteShapefile. The SRID is taken
// from the .prj sidecar and is 0 when it is missing or unrecognised.
func ReadShapefile(path string) (*feature.Collection, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "export: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	idIdx, nameIdx := -1, -1
	for i, f := range reader.Fields() {
		switch strings.ToLower(strings.TrimRight(f.String(), "\x00")) {
		case "osm_id":
			idIdx = i
		case "name":
			nameIdx = i
		}
	}
	if idIdx < 0 || nameIdx < 0 {
		return nil, eris.Errorf("export: shapefile %s lacks osm_id or name field", path)
	}

	coll := &feature.Collection{SRID: readPRJ(path)}
	for reader.Next() {
		_, shape := reader.Shape()
		pl, ok := shape.(*shp.PolyLine)
		if !ok {
			return nil, eris.Errorf("export: shapefile %s holds %T, want PolyLine", path, shape)
		}

		flat := make([]float64, 0, 2*len(pl.Points))
		for _, p := range pl.Points {
			flat = append(flat, p.X, p.Y)
		}

		f := feature.Feature{
			Name:     strings.TrimSpace(strings.TrimRight(reader.Attribute(nameIdx), "\x00")),
			Geometry: geom.NewLineStringFlat(geom.XY, flat).SetSRID(coll.SRID),
		}
		if raw := strings.TrimSpace(strings.TrimRight(reader.Attribute(idIdx), "\x00")); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return nil, eris.Wrapf(err, "export: parse osm_id %q", raw)
			}
			f.OSMID = id
		}
		coll.Features = append(coll.Features, f)
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrapf(err, "export: read shapefile %s", path)
	}

	return coll, nil
}

var prjUTM = regexp.MustCompile(`^PROJCS\["(ETRS_1989|WGS_1984)_UTM_Zone_(\d+)([NS])"`)

func readPRJ(shpPath string) int {
	data, err := os.ReadFile(strings.TrimSuffix(shpPath, filepath.Ext(shpPath)) + ".prj")
	if err != nil {
		return 0
	}
	text := strings.TrimSpace(string(data))
	if text == crs.WGS84.ESRIWKT() {
		return feature.SRIDWGS84
	}

	m := prjUTM.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	zone, _ := strconv.Atoi(m[2])
	switch {
	case m[1] == "ETRS_1989" && m[3] == "N":
		return 25800 + zone
	case m[3] == "N":
		return 32600 + zone
	default:
		return 32700 + zone
	}
}
