package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gubevu/invoicing/internal/app"
	documentshttp "github.com/gubevu/invoicing/internal/documents/http"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(rt *runtime) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.InTestMode() {
				rt.opts.Logger.Info("test mode detected, skipping server startup")
				return nil
			}
			ctx := cmd.Context()
			services, err := rt.connect(ctx)
			if err != nil {
				return err
			}
			cfg := rt.opts.Config
			if addr != "" {
				cfg.AppAddr = addr
			}
			handler := documentshttp.NewHandler(rt.opts.Logger, services.Documents, services.Users, services.Drafts)
			handler.ExportLimit = cfg.ExportPerMinute

			server := &http.Server{
				Addr: cfg.AppAddr,
				Handler: app.NewRouter(app.RouterParams{
					Logger:           rt.opts.Logger,
					Config:           cfg,
					DocumentsHandler: handler,
					Metrics:          rt.metrics,
				}),
				ReadTimeout:  cfg.AppReadTimeout,
				WriteTimeout: cfg.AppWriteTimeout,
			}
			return serve(ctx, server, rt.opts.Logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides APP_ADDR)")
	return cmd
}

// serve runs server until ctx is cancelled, then shuts it down gracefully.
func serve(ctx context.Context, server *http.Server, logger *slog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
