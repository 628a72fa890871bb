package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jolyonbrown/ronclanker/internal/config"
	"github.com/jolyonbrown/ronclanker/internal/httpapi"
)

func newMonitorCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Start the monitor HTTP server",
		Long:  "Serves /healthz, /metrics and /decision/latest for system monitoring.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if host != "" {
				cfg.HTTP.Host = host
			}
			if port != 0 {
				cfg.HTTP.Port = port
			}

			deps, cleanup, err := buildDependencies(cfg, log.Logger)
			if err != nil {
				return err
			}
			defer cleanup()

			serverCfg := httpapi.DefaultServerConfig()
			serverCfg.Host = cfg.HTTP.Host
			serverCfg.Port = cfg.HTTP.Port

			server := httpapi.NewServer(serverCfg, deps.Decisions, deps.Gateway, deps.Metrics, log.Logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- server.ListenAndServe() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Listen host (overrides config)")
	cmd.Flags().IntVar(&port, "port", 0, "Listen port (overrides config)")
	return cmd
}
