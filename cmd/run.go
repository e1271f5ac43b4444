package main

import (
	"context"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/relation-cli/internal/config"
	"github.com/sells-group/relation-cli/internal/overpass"
	"github.com/sells-group/relation-cli/internal/pipeline"
)

var (
	runRelationID int64
	runTarget     string
	runOutDir     string
	runSaveRaw    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch the relation and write every output file (default command)",
	RunE:  runPipeline,
}

func init() {
	addRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&runRelationID, "relation", 0, "OSM relation id (default from config)")
	cmd.Flags().StringVar(&runTarget, "target", "", "planar target CRS, e.g. EPSG:25833 (default from config)")
	cmd.Flags().StringVar(&runOutDir, "out", "", "output directory (default from config)")
	cmd.Flags().BoolVar(&runSaveRaw, "save-raw", false, "also store the raw Overpass response")
}

// applyRunFlags copies explicitly set flags over the loaded config.
func applyRunFlags(cmd *cobra.Command, c *config.Config) {
	if runRelationID > 0 {
		c.Overpass.RelationID = runRelationID
	}
	if runTarget != "" {
		c.Projection.Target = runTarget
	}
	if runOutDir != "" {
		c.Output.Dir = runOutDir
	}
	if cmd.Flags().Changed("save-raw") {
		c.Output.SaveRaw = runSaveRaw
	}
}

func newProber(c *config.Config, progress io.Writer) *overpass.Prober {
	return overpass.NewProber(overpass.ProberOptions{
		Endpoints: c.Overpass.Endpoints,
		UserAgent: c.Overpass.UserAgent,
		Timeout:   time.Duration(c.Overpass.RequestTimeoutSecs) * time.Second,
		Pause:     time.Duration(c.Overpass.PauseMs) * time.Millisecond,
		Progress:  progress,
	})
}

func runPipeline(cmd *cobra.Command, args []string) error {
	applyRunFlags(cmd, cfg)
	if err := cfg.Validate("run"); err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	p := pipeline.New(cfg, newProber(cfg, out), out)

	res, err := p.Run(ctx)
	if err != nil {
		zap.L().Error("run failed", zap.Int64("relation_id", cfg.Overpass.RelationID), zap.Error(err))
		return err
	}

	zap.L().Info("run complete",
		zap.String("run_id", res.RunID),
		zap.String("endpoint", res.Endpoint),
		zap.Int("features", res.Geographic.Len()),
		zap.Strings("files", res.Files),
	)
	return nil
}
