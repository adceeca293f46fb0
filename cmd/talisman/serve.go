package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/aretw0/talisman/internal/cli"
	talismanhttp "github.com/aretw0/talisman/pkg/adapters/http"
	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Starts the conversation API over HTTP, with Server-Sent Events for live turns
and Prometheus metrics on /metrics when enabled.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if addr, _ := cmd.Flags().GetString("addr"); cmd.Flags().Changed("addr") {
			cfg.HTTP.Addr = addr
		}

		app, closeApp, err := openApp()
		if err != nil {
			return err
		}
		defer closeApp()

		router := chi.NewRouter()
		if app.Metrics != nil {
			router.Handle("/metrics", app.Metrics.Handler())
		}
		router.Mount("/", talismanhttp.NewHandler(app.Engine, app.Sessions, talismanhttp.WithLogger(logger)))

		srv := &http.Server{
			Addr:    cfg.HTTP.Addr,
			Handler: router,
		}

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		g, ctx := errgroup.WithContext(sigCtx)
		g.Go(func() error {
			logger.Info("Starting Talisman Server", "addr", srv.Addr, "offline", cfg.Offline)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			logger.Info("Start shutdown...", "signal", sigCtx.Signal())

			// Give outstanding requests a deadline for completion.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("Graceful shutdown did not complete", "timeout", cfg.HTTP.ShutdownTimeout, "err", err)
				return srv.Close()
			}
			logger.Info("Talisman Server stopped gracefully")
			return nil
		})
		return g.Wait()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", ":8080", "Address to listen on (overrides http.addr)")
}
