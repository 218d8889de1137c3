package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/KaramelBytes/lfbdash-cli/internal/dashboard"
	"github.com/KaramelBytes/lfbdash-cli/internal/dataset"
	"github.com/KaramelBytes/lfbdash-cli/internal/server"
	"github.com/spf13/cobra"
)

var (
	srvAddr string
	srvPath string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard over HTTP with per-session filters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := srvAddr
		if addr == "" && cfg != nil {
			addr = cfg.ServeAddr
		}
		if addr == "" {
			addr = "127.0.0.1:8501"
		}
		dir, patterns := dataDirAndPatterns()
		var initial []dataset.Source
		if srvPath != "" {
			initial = append(initial, dataset.PathSource(srvPath))
		}
		srv := server.New(server.Config{
			Address:  addr,
			Loader:   dataset.NewLoader(logger),
			Settings: dashboard.SettingsFromConfig(cfg),
			DataDir:  dir,
			Patterns: patterns,
			Initial:  initial,
			Logger:   logger,
		})

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Serving dashboard on http://%s (Ctrl+C to stop)\n", addr)
		return srv.Start(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&srvAddr, "addr", "", "listen address (default: serve_addr)")
	serveCmd.Flags().StringVar(&srvPath, "path", "", "dataset loaded for every new session")
}
