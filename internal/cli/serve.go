package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/petrijr/wizflow/internal/httpapi"
	"github.com/petrijr/wizflow/pkg/worker"
)

func newServeCmd(a *app) *cobra.Command {
	var loadFrom string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the admin and renderer HTTP API",
		Long: `Serve starts the HTTP API on http.addr. With --worker step submissions
are queued and applied by background workers; otherwise they run inline.

Examples:
  wizflow serve --load ./wizards
  WIZFLOW_STORE_DRIVER=sqlite WIZFLOW_STORE_DSN=file:wizflow.db wizflow serve --worker --workers 4`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if loadFrom != "" {
				n, err := loadDir(cmd, a, loadFrom)
				if err != nil {
					return err
				}
				a.logger.Info("definitions loaded", "dir", loadFrom, "count", n)
			}

			var w *worker.Worker
			if a.cfg.Worker.Enabled {
				w = a.backend.Worker
			}
			return serve(ctx, a, httpapi.NewServer(a.engine(), w, a.logger))
		},
	}
	cmd.Flags().StringVar(&loadFrom, "load", "", "directory of definitions to save before serving")
	return cmd
}

// serve runs the HTTP server, and the workers when enabled, until ctx ends.
func serve(ctx context.Context, a *app, srv *httpapi.Server) error {
	server := &http.Server{
		Addr:         a.cfg.HTTP.Addr,
		Handler:      srv.Echo(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer func() {
		cancelWorkers()
		wg.Wait()
	}()
	if srv.Worker != nil {
		for i := 0; i < a.cfg.Worker.Concurrency; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = srv.Worker.Run(workerCtx)
			}()
		}
	}

	serverErrors := make(chan error, 1)
	go func() {
		a.logger.Info("server starting",
			"addr", a.cfg.HTTP.Addr,
			"store", a.cfg.Store.Driver,
			"workers", a.cfg.Worker.Enabled,
		)
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("server shutdown failed", "error", err)
			return server.Close()
		}

		m := a.metrics.Snapshot()
		a.logger.Info("server stopped",
			"steps_submitted", m.StepsSubmitted,
			"wizards_completed", m.WizardsCompleted,
			"actions_failed", m.ActionsFailed,
		)
		return nil
	}
}
