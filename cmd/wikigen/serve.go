package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/wiki-generator/internal/llm"
	"github.com/jonathan/wiki-generator/internal/observability"
	"github.com/jonathan/wiki-generator/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		Long:  `Start an HTTP server that exposes REST endpoints for managing projects and running generation and upload batches.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("port") {
				port = a.cfg.Port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ledger, closeLedger, err := a.openLedger(ctx)
			if err != nil {
				return err
			}
			defer closeLedger()

			srv, err := server.New(server.Config{
				Port:    port,
				Store:   a.store,
				Ledger:  ledger,
				Metrics: observability.NewMetrics(),
				Logger:  a.logger,
				NewClient: func(ctx context.Context) (llm.Client, error) {
					return a.newClient(ctx, &a.cfg)
				},
				NewAdapter:  a.newAdapter,
				UploadDelay: time.Duration(a.cfg.UploadDelay),
			})
			if err != nil {
				return fmt.Errorf("failed to create server: %w", err)
			}
			return srv.Run(ctx)
		},
	}
	cmd.Flags().IntVar(&port, "port", 8080, "Port to listen on")
	return cmd
}
