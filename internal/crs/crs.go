// Package crs resolves the coordinate reference systems relation-cli can
// write and reprojects feature collections between them.
package crs

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrUnsupported is returned for EPSG codes outside the supported set.
var ErrUnsupported = eris.New("crs: unsupported EPSG code")

// Ellipsoid is a reference ellipsoid given by its semi-major axis and inverse flattening.
type Ellipsoid struct {
	Name    string
	ESRI    string
	A       float64
	InvFlat float64
}

var (
	// WGS84Ellipsoid is used by EPSG:4326 and EPSG:326xx/327xx.
	WGS84Ellipsoid = Ellipsoid{Name: "WGS 84", ESRI: "WGS_1984", A: 6378137, InvFlat: 298.257223563}
	// GRS80Ellipsoid is used by ETRS89 (EPSG:258xx).
	GRS80Ellipsoid = Ellipsoid{Name: "GRS 1980", ESRI: "GRS_1980", A: 6378137, InvFlat: 298.257222101}
)

type datum struct {
	name      string // OGC name
	esri      string // ESRI datum name, D_ prefixed
	geogName  string // OGC geographic CRS name
	geogESRI  string // ESRI GEOGCS name
	geogEPSG  int
	datumEPSG int
	ellipsoid Ellipsoid
	ellipEPSG int
}

var (
	wgs84Datum = datum{
		name: "WGS_1984", esri: "D_WGS_1984", geogName: "WGS 84", geogESRI: "GCS_WGS_1984",
		geogEPSG: 4326, datumEPSG: 6326, ellipsoid: WGS84Ellipsoid, ellipEPSG: 7030,
	}
	etrs89Datum = datum{
		name: "European_Terrestrial_Reference_System_1989", esri: "D_ETRS_1989", geogName: "ETRS89", geogESRI: "GCS_ETRS_1989",
		geogEPSG: 4258, datumEPSG: 6258, ellipsoid: GRS80Ellipsoid, ellipEPSG: 7019,
	}
)

// CRS is either the geographic WGS 84 system or one UTM zone.
type CRS struct {
	EPSG  int
	Name  string
	Zone  int
	South bool

	datum datum
}

// WGS84 is geographic EPSG:4326 with (lon, lat) axis order.
var WGS84 = CRS{EPSG: 4326, Name: "WGS 84", datum: wgs84Datum}

// Parse resolves "EPSG:25833", "epsg:25833" or "25833".
func Parse(s string) (CRS, error) {
	code := strings.TrimSpace(s)
	if i := strings.IndexByte(code, ':'); i >= 0 {
		if !strings.EqualFold(code[:i], "EPSG") {
			return CRS{}, eris.Errorf("crs: unknown authority in %q", s)
		}
		code = code[i+1:]
	}
	n, err := strconv.Atoi(code)
	if err != nil {
		return CRS{}, eris.Wrapf(err, "crs: parse %q", s)
	}
	return FromEPSG(n)
}

// FromEPSG resolves a numeric EPSG code.
func FromEPSG(code int) (CRS, error) {
	switch {
	case code == 4326:
		return WGS84, nil
	case code >= 25828 && code <= 25838:
		zone := code - 25800
		return CRS{EPSG: code, Name: fmt.Sprintf("ETRS89 / UTM zone %dN", zone), Zone: zone, datum: etrs89Datum}, nil
	case code >= 32601 && code <= 32660:
		zone := code - 32600
		return CRS{EPSG: code, Name: fmt.Sprintf("WGS 84 / UTM zone %dN", zone), Zone: zone, datum: wgs84Datum}, nil
	case code >= 32701 && code <= 32760:
		zone := code - 32700
		return CRS{EPSG: code, Name: fmt.Sprintf("WGS 84 / UTM zone %dS", zone), Zone: zone, South: true, datum: wgs84Datum}, nil
	}
	return CRS{}, eris.Wrapf(ErrUnsupported, "crs: EPSG:%d", code)
}

// IsGeographic reports whether coordinates are (lon, lat) degrees.
func (c CRS) IsGeographic() bool {
	return c.Zone == 0
}

// Ellipsoid returns the reference ellipsoid of the CRS datum.
func (c CRS) Ellipsoid() Ellipsoid {
	return c.datum.ellipsoid
}

// Suffix is the short file-name tag for the CRS: "wgs84", "utm33" or, for
// southern zones, "utm33s".
func (c CRS) Suffix() string {
	switch {
	case c.IsGeographic():
		return "wgs84"
	case c.South:
		return fmt.Sprintf("utm%ds", c.Zone)
	default:
		return fmt.Sprintf("utm%d", c.Zone)
	}
}

// String returns the "EPSG:<code>" form.
func (c CRS) String() string {
	return fmt.Sprintf("EPSG:%d", c.EPSG)
}

// URN returns the OGC URN used by the GeoJSON "crs" member.
func (c CRS) URN() string {
	return fmt.Sprintf("urn:ogc:def:crs:EPSG::%d", c.EPSG)
}

// CentralMeridian returns the central meridian of a UTM zone in degrees.
func (c CRS) CentralMeridian() float64 {
	return float64(c.Zone-1)*6 - 180 + 3
}

// FalseNorthing returns 10,000 km for southern zones, 0 otherwise.
func (c CRS) FalseNorthing() float64 {
	if c.South {
		return 10000000
	}
	return 0
}

func (c CRS) esriName() string {
	hemi := "N"
	if c.South {
		hemi = "S"
	}
	prefix := "WGS_1984"
	if c.datum.geogEPSG == etrs89Datum.geogEPSG {
		prefix = "ETRS_1989"
	}
	return fmt.Sprintf("%s_UTM_Zone_%d%s", prefix, c.Zone, hemi)
}

// ESRIWKT returns the ESRI flavoured WKT written to shapefile .prj sidecars.
func (c CRS) ESRIWKT() string {
	e := c.datum.ellipsoid
	geogcs := fmt.Sprintf(`GEOGCS["%s",DATUM["%s",SPHEROID["%s",%s,%s]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`,
		c.datum.geogESRI, c.datum.esri, e.ESRI, wktFloat(e.A), wktFloat(e.InvFlat))
	if c.IsGeographic() {
		return geogcs
	}
	return fmt.Sprintf(`PROJCS["%s",%s,PROJECTION["Transverse_Mercator"],PARAMETER["False_Easting",500000.0],PARAMETER["False_Northing",%s],PARAMETER["Central_Meridian",%s],PARAMETER["Scale_Factor",0.9996],PARAMETER["Latitude_Of_Origin",0.0],UNIT["Meter",1.0]]`,
		c.esriName(), geogcs, wktFloat(c.FalseNorthing()), wktFloat(c.CentralMeridian()))
}

// OGCWKT returns the OGC WKT1 definition stored in gpkg_spatial_ref_sys.
func (c CRS) OGCWKT() string {
	e := c.datum.ellipsoid
	geogcs := fmt.Sprintf(`GEOGCS["%s",DATUM["%s",SPHEROID["%s",%s,%s,AUTHORITY["EPSG","%d"]],AUTHORITY["EPSG","%d"]],PRIMEM["Greenwich",0,AUTHORITY["EPSG","8901"]],UNIT["degree",0.0174532925199433,AUTHORITY["EPSG","9122"]],AUTHORITY["EPSG","%d"]]`,
		c.datum.geogName, c.datum.name, e.Name, wktFloat(e.A), wktFloat(e.InvFlat), c.datum.ellipEPSG, c.datum.datumEPSG, c.datum.geogEPSG)
	if c.IsGeographic() {
		return geogcs
	}
	return fmt.Sprintf(`PROJCS["%s",%s,PROJECTION["Transverse_Mercator"],PARAMETER["latitude_of_origin",0],PARAMETER["central_meridian",%s],PARAMETER["scale_factor",0.9996],PARAMETER["false_easting",500000],PARAMETER["false_northing",%s],UNIT["metre",1,AUTHORITY["EPSG","9001"]],AXIS["Easting",EAST],AXIS["Northing",NORTH],AUTHORITY["EPSG","%d"]]`,
		c.Name, geogcs, wktFloat(c.CentralMeridian()), wktFloat(c.FalseNorthing()), c.EPSG)
}

func wktFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
