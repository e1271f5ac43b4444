// Package pipeline runs one fetch, extract, reproject, write and render pass
// for a single OSM relation.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/relation-cli/internal/config"
	"github.com/sells-group/relation-cli/internal/crs"
	"github.com/sells-group/relation-cli/internal/export"
	"github.com/sells-group/relation-cli/internal/feature"
	"github.com/sells-group/relation-cli/internal/overpass"
	"github.com/sells-group/relation-cli/internal/webmap"
)

// ErrNoFeatures is returned when the relation yields no way geometries.
var ErrNoFeatures = eris.New("pipeline: relation has no way geometries")

// Querier sends an Overpass QL query and returns the first valid answer.
type Querier interface {
	Query(ctx context.Context, query string) (*overpass.Result, error)
}

// Result summarises a completed run.
type Result struct {
	RunID      string
	Endpoint   string
	Target     crs.CRS
	Geographic *feature.Collection
	Planar     *feature.Collection
	Files      []string
}

// Pipeline holds the dependencies of a run.
type Pipeline struct {
	cfg     *config.Config
	querier Querier
	out     io.Writer
	now     func() time.Time
}

// New creates a Pipeline. Progress lines go to out, which may be nil.
func New(cfg *config.Config, q Querier, out io.Writer) *Pipeline {
	return &Pipeline{cfg: cfg, querier: q, out: out, now: time.Now}
}

// Run executes the pass once. Nothing is written to disk until the relation
// has been fetched and at least one feature with coordinates was extracted.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	relationID := p.cfg.Overpass.RelationID
	runID := uuid.NewString()
	log := zap.L().With(zap.String("run_id", runID), zap.Int64("relation_id", relationID))

	target, err := crs.Parse(p.cfg.Projection.Target)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: resolve target crs")
	}

	planarSuffix := p.cfg.Output.PlanarSuffix
	if planarSuffix == "" {
		planarSuffix = target.Suffix()
	}

	layout := export.Layout{
		Dir:              p.cfg.Output.Dir,
		Basename:         p.cfg.Output.Basename,
		GeographicSuffix: p.cfg.Output.GeographicSuffix,
		PlanarSuffix:     planarSuffix,
	}

	p.printf("Fetching %s (OSM relation %d)...\n", p.cfg.Map.LayerName, relationID)
	log.Info("pipeline: fetching relation")

	res, err := p.querier.Query(ctx, overpass.RelationQuery(relationID, p.cfg.Overpass.QueryTimeoutSecs))
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: fetch relation")
	}

	p.printf("Found %d way segments in the relation\n", countWays(res.Response))

	geographic := feature.Extract(res.Response)
	if geographic.Len() == 0 {
		return nil, ErrNoFeatures
	}
	geoExtent, err := geographic.Extent()
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: bound features")
	}

	planar, err := crs.Reproject(geographic, target)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: reproject")
	}
	planarExtent, err := planar.Extent()
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: bound projected features")
	}

	if err := layout.EnsureDir(); err != nil {
		return nil, err
	}

	result := &Result{
		RunID:      runID,
		Endpoint:   res.Endpoint,
		Target:     target,
		Geographic: geographic,
		Planar:     planar,
	}
	written := func(paths ...string) {
		for _, path := range paths {
			result.Files = append(result.Files, filepath.Base(path))
		}
	}

	if p.cfg.Output.SaveRaw {
		path := layout.Raw()
		if err := export.WriteRaw(path, res.Body); err != nil {
			return nil, err
		}
		written(path)
		p.printf("Saved raw response to %s\n", path)
	}

	path := layout.GeographicGeoJSON()
	if err := export.WriteGeoJSON(path, geographic, crs.WGS84, layout.Basename); err != nil {
		return nil, err
	}
	written(path)
	p.printf("Saved GeoJSON (%s): %s\n", crs.WGS84, path)

	path = layout.PlanarGeoJSON()
	if err := export.WriteGeoJSON(path, planar, target, layout.Basename); err != nil {
		return nil, err
	}
	written(path)
	p.printf("Saved GeoJSON (%s): %s\n", target, path)

	path = layout.Shapefile()
	if err := export.WriteShapefile(path, planar, target); err != nil {
		return nil, err
	}
	stem := strings.TrimSuffix(path, filepath.Ext(path))
	written(path, stem+".shx", stem+".dbf", stem+".prj", stem+".cpg")
	p.printf("Saved Shapefile (%s): %s\n", target, path)

	if p.cfg.Output.GeoPackage {
		path = layout.GeoPackage()
		if err := export.WriteGeoPackage(ctx, path, export.TableName(layout.Basename), planar, target); err != nil {
			return nil, err
		}
		written(path)
		p.printf("Saved GeoPackage (%s): %s\n", target, path)
	}

	p.printf("\nDataset info:\n")
	p.printf("  Features: %d\n", geographic.Len())
	p.printf("  Bounds (%s): %s\n", boundsLabel(p.cfg.Output.GeographicSuffix, crs.WGS84), formatExtent(geoExtent))
	p.printf("  Bounds (%s): %s\n", boundsLabel(planarSuffix, target), formatExtent(planarExtent))

	p.printf("\nCreating interactive HTML map...\n")
	m, err := webmap.Build(geographic, p.mapOptions())
	if err != nil {
		return nil, err
	}
	path = layout.Map()
	if err := m.WriteFile(path); err != nil {
		return nil, err
	}
	written(path)
	p.printf("Saved HTML map: %s\n", path)

	if p.cfg.Output.Manifest {
		path = layout.Manifest()
		manifest := &export.Manifest{
			RunID:        runID,
			RelationID:   relationID,
			Endpoint:     res.Endpoint,
			OSMBase:      res.Response.OSM3S.TimestampOSMBase,
			GeneratedAt:  p.now().UTC(),
			FeatureCount: geographic.Len(),
			Layers: []export.LayerRecord{
				{CRS: crs.WGS84.String(), Bounds: geoExtent[:]},
				{CRS: target.String(), Bounds: planarExtent[:]},
			},
			Files: append([]string(nil), result.Files...),
		}
		if err := export.WriteManifest(path, manifest); err != nil {
			return nil, err
		}
		written(path)
		p.printf("Saved manifest: %s\n", path)
	}

	log.Info("pipeline: complete",
		zap.String("endpoint", res.Endpoint),
		zap.Int("features", geographic.Len()),
		zap.Int("files", len(result.Files)),
	)

	return result, nil
}

func (p *Pipeline) mapOptions() webmap.Options {
	mc := p.cfg.Map
	return webmap.Options{
		Title:       mc.LayerName,
		Zoom:        mc.Zoom,
		TileURL:     mc.TileURL,
		Attribution: mc.Attribution,
		LayerName:   mc.LayerName,
		Color:       mc.Color,
		Weight:      mc.Weight,
		Opacity:     mc.Opacity,
	}
}

func (p *Pipeline) printf(format string, args ...any) {
	if p.out != nil {
		fmt.Fprintf(p.out, format, args...)
	}
}

func countWays(resp *overpass.Response) int {
	if resp == nil {
		return 0
	}
	n := 0
	for _, el := range resp.Elements {
		if el.Type == overpass.TypeWay {
			n++
		}
	}
	return n
}

// boundsLabel prefers the configured file suffix ("wgs84" prints as WGS84).
func boundsLabel(suffix string, c crs.CRS) string {
	if suffix != "" {
		return strings.ToUpper(suffix)
	}
	return c.String()
}

func formatExtent(ext [4]float64) string {
	return fmt.Sprintf("[%.6f %.6f %.6f %.6f]", ext[0], ext[1], ext[2], ext[3])
}
