package main

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/relation-cli/internal/export"
	"github.com/sells-group/relation-cli/internal/preview"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the output directory and map over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		if servePort > 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		layout := export.Layout{
			Dir:              cfg.Output.Dir,
			Basename:         cfg.Output.Basename,
			GeographicSuffix: cfg.Output.GeographicSuffix,
			PlanarSuffix:     cfg.Output.PlanarSuffix,
		}
		h := preview.NewRouter(layout.Dir, filepath.Base(layout.Map()))

		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		zap.L().Info("starting preview server", zap.String("addr", addr), zap.String("dir", layout.Dir))
		return preview.ListenAndServe(ctx, addr, h)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
