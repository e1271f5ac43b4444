package export

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
	_ "modernc.org/sqlite"

	"github.com/sells-group/relation-cli/internal/crs"
	"github.com/sells-group/relation-cli/internal/feature"
)

const (
	gpkgApplicationID = 0x47504B47 // "GPKG"
	gpkgUserVersion   = 10300

	gpFlagLittleEndian = 0x01
	gpFlagEnvelopeXY   = 0x02
	gpFlagEmpty        = 0x10
)

const gpkgSchema = `
CREATE TABLE gpkg_spatial_ref_sys (
	srs_name                 TEXT NOT NULL,
	srs_id                   INTEGER PRIMARY KEY,
	organization             TEXT NOT NULL,
	organization_coordsys_id INTEGER NOT NULL,
	definition               TEXT NOT NULL,
	description              TEXT
);

CREATE TABLE gpkg_contents (
	table_name  TEXT NOT NULL PRIMARY KEY,
	data_type   TEXT NOT NULL,
	identifier  TEXT UNIQUE,
	description TEXT DEFAULT '',
	last_change DATETIME NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
	min_x       DOUBLE,
	min_y       DOUBLE,
	max_x       DOUBLE,
	max_y       DOUBLE,
	srs_id      INTEGER,
	CONSTRAINT fk_gc_r_srs_id FOREIGN KEY (srs_id) REFERENCES gpkg_spatial_ref_sys(srs_id)
);

CREATE TABLE gpkg_geometry_columns (
	table_name         TEXT NOT NULL,
	column_name        TEXT NOT NULL,
	geometry_type_name TEXT NOT NULL,
	srs_id             INTEGER NOT NULL,
	z                  TINYINT NOT NULL,
	m                  TINYINT NOT NULL,
	CONSTRAINT pk_geom_cols PRIMARY KEY (table_name, column_name),
	CONSTRAINT fk_gc_tn FOREIGN KEY (table_name) REFERENCES gpkg_contents(table_name),
	CONSTRAINT fk_gc_srs FOREIGN KEY (srs_id) REFERENCES gpkg_spatial_ref_sys(srs_id)
);
`

var tableNameSanitizer = regexp.MustCompile(`[^a-z0-9_]+`)

// TableName turns a basename into a safe GeoPackage feature table name.
func TableName(basename string) string {
	name := tableNameSanitizer.ReplaceAllString(strings.ToLower(basename), "_")
	name = strings.Trim(name, "_")
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		name = "features_" + name
	}
	return name
}

// WriteGeoPackage writes coll into a new GeoPackage at path, replacing any
// existing file. Features go into a LINESTRING table with osm_id and name.
func WriteGeoPackage(ctx context.Context, path, table string, coll *feature.Collection, c crs.CRS) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return eris.Wrapf(err, "export: remove old geopackage %s", path)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return eris.Wrapf(err, "export: open geopackage %s", path)
	}
	defer db.Close() //nolint:errcheck

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "export: begin geopackage tx")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, stmt := range []string{
		fmt.Sprintf("PRAGMA application_id=%d", gpkgApplicationID),
		fmt.Sprintf("PRAGMA user_version=%d", gpkgUserVersion),
		gpkgSchema,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return eris.Wrap(err, "export: create geopackage schema")
		}
	}

	if err := insertSpatialRefs(ctx, tx, c); err != nil {
		return err
	}

	quoted := quoteIdent(table)
	createTable := fmt.Sprintf(`CREATE TABLE %s (
	fid    INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL,
	geom   LINESTRING,
	osm_id INTEGER,
	name   TEXT
)`, quoted)
	if _, err := tx.ExecContext(ctx, createTable); err != nil {
		return eris.Wrapf(err, "export: create table %s", table)
	}

	var minX, minY, maxX, maxY any
	if ext, err := coll.Extent(); err == nil {
		minX, minY, maxX, maxY = ext[0], ext[1], ext[2], ext[3]
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO gpkg_contents (table_name, data_type, identifier, last_change, min_x, min_y, max_x, max_y, srs_id)
		 VALUES (?, 'features', ?, ?, ?, ?, ?, ?, ?)`,
		table, table, time.Now().UTC().Format("2006-01-02T15:04:05.000Z"), minX, minY, maxX, maxY, c.EPSG,
	); err != nil {
		return eris.Wrap(err, "export: insert gpkg_contents")
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO gpkg_geometry_columns (table_name, column_name, geometry_type_name, srs_id, z, m)
		 VALUES (?, 'geom', 'LINESTRING', ?, 0, 0)`,
		table, c.EPSG,
	); err != nil {
		return eris.Wrap(err, "export: insert gpkg_geometry_columns")
	}

	insert, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %s (geom, osm_id, name) VALUES (?, ?, ?)`, quoted))
	if err != nil {
		return eris.Wrap(err, "export: prepare feature insert")
	}
	defer insert.Close() //nolint:errcheck

	for _, f := range coll.Features {
		blob, err := encodeGPKGGeometry(f.Geometry, int32(c.EPSG))
		if err != nil {
			return eris.Wrapf(err, "export: encode way %d", f.OSMID)
		}
		if _, err := insert.ExecContext(ctx, blob, f.OSMID, f.Name); err != nil {
			return eris.Wrapf(err, "export: insert way %d", f.OSMID)
		}
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "export: commit geopackage")
	}
	return nil
}

func insertSpatialRefs(ctx context.Context, tx *sql.Tx, target crs.CRS) error {
	type srs struct {
		name, org  string
		id, orgID  int
		definition string
		desc       string
	}
	rows := []srs{
		{"Undefined cartesian SRS", "NONE", -1, -1, "undefined", "undefined cartesian coordinate reference system"},
		{"Undefined geographic SRS", "NONE", 0, 0, "undefined", "undefined geographic coordinate reference system"},
		{"WGS 84 geodetic", "EPSG", 4326, 4326, crs.WGS84.OGCWKT(), "longitude/latitude coordinates in decimal degrees on the WGS 84 spheroid"},
	}
	if target.EPSG != crs.WGS84.EPSG {
		rows = append(rows, srs{target.Name, "EPSG", target.EPSG, target.EPSG, target.OGCWKT(), target.Name})
	}

	for _, r := range rows {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO gpkg_spatial_ref_sys (srs_name, srs_id, organization, organization_coordsys_id, definition, description)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			r.name, r.id, r.org, r.orgID, r.definition, r.desc,
		); err != nil {
			return eris.Wrapf(err, "export: insert srs %d", r.id)
		}
	}
	return nil
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// encodeGPKGGeometry builds a GeoPackage binary blob: the "GP" header with an
// XY envelope followed by little-endian WKB.
func encodeGPKGGeometry(ls *geom.LineString, srsID int32) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("GP")
	buf.WriteByte(0)

	empty := ls.NumCoords() == 0
	flags := byte(gpFlagLittleEndian)
	if empty {
		flags |= gpFlagEmpty
	} else {
		flags |= gpFlagEnvelopeXY
	}
	buf.WriteByte(flags)

	_ = binary.Write(&buf, binary.LittleEndian, srsID)
	if !empty {
		b := ls.Bounds()
		_ = binary.Write(&buf, binary.LittleEndian, [4]float64{b.Min(0), b.Max(0), b.Min(1), b.Max(1)})
	}

	data, err := wkb.Marshal(ls, wkb.NDR)
	if err != nil {
		return nil, err
	}
	buf.Write(data)
	return buf.Bytes(), nil
}

// decodeGPKGGeometry parses a GeoPackage binary blob into a line string.
func decodeGPKGGeometry(blob []byte) (*geom.LineString, int32, error) {
	if len(blob) < 8 || blob[0] != 'G' || blob[1] != 'P' {
		return nil, 0, eris.New("export: not a geopackage geometry")
	}
	flags := blob[3]
	var order binary.ByteOrder = binary.BigEndian
	if flags&gpFlagLittleEndian != 0 {
		order = binary.LittleEndian
	}
	srsID := int32(order.Uint32(blob[4:8]))

	var envelope int
	switch (flags >> 1) & 0x07 {
	case 0:
	case 1:
		envelope = 32
	case 2, 3:
		envelope = 48
	case 4:
		envelope = 64
	default:
		return nil, 0, eris.Errorf("export: invalid envelope flags %#x", flags)
	}
	if len(blob) < 8+envelope {
		return nil, 0, eris.New("export: truncated geopackage geometry")
	}

	g, err := wkb.Unmarshal(blob[8+envelope:])
	if err != nil {
		return nil, 0, eris.Wrap(err, "export: decode wkb")
	}
	ls, ok := g.(*geom.LineString)
	if !ok {
		return nil, 0, eris.Errorf("export: geometry is %T, want LineString", g)
	}
	return ls, srsID, nil
}

// ReadGeoPackage loads the feature table written by WriteGeoPackage.
func ReadGeoPackage(ctx context.Context, path, table string) (*feature.Collection, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, eris.Wrapf(err, "export: stat geopackage %s", path)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrapf(err, "export: open geopackage %s", path)
	}
	defer db.Close() //nolint:errcheck

	coll := &feature.Collection{}
	if err := db.QueryRowContext(ctx,
		`SELECT srs_id FROM gpkg_geometry_columns WHERE table_name = ?`, table,
	).Scan(&coll.SRID); err != nil {
		return nil, eris.Wrapf(err, "export: lookup srs for %s", table)
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf(`SELECT geom, osm_id, name FROM %s ORDER BY fid`, quoteIdent(table)))
	if err != nil {
		return nil, eris.Wrapf(err, "export: query %s", table)
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		var (
			blob []byte
			id   int64
			name sql.NullString
		)
		if err := rows.Scan(&blob, &id, &name); err != nil {
			return nil, eris.Wrap(err, "export: scan feature")
		}
		ls, _, err := decodeGPKGGeometry(blob)
		if err != nil {
			return nil, err
		}
		coll.Features = append(coll.Features, feature.Feature{
			OSMID:    id,
			Name:     name.String,
			Geometry: ls.SetSRID(coll.SRID),
		})
	}
	return coll, eris.Wrap(rows.Err(), "export: iterate features")
}
