// Package cli implements the gubevu command tree.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/gubevu/invoicing/internal/app"
	"github.com/gubevu/invoicing/internal/observability"
)

var version = "dev"

// BackendOpener connects the storage backend for a command run.
type BackendOpener func(ctx context.Context, cfg *app.Config, logger *slog.Logger) (*app.Backend, error)

// Options customises the command tree. Zero values select production defaults.
type Options struct {
	Config      *app.Config
	Logger      *slog.Logger
	OpenBackend BackendOpener
}

type runtime struct {
	opts     Options
	jsonOut  bool
	backend  *app.Backend
	services *app.Services
	metrics  *observability.Metrics
}

// Execute runs the command tree with args and closes any backend it opened,
// including when the command fails. cobra skips post-run hooks after an error.
func Execute(ctx context.Context, opts Options, args []string, out, errOut io.Writer) error {
	root, rt := newRootCommand(opts)
	defer rt.close()
	root.SetArgs(args)
	if out != nil {
		root.SetOut(out)
	}
	if errOut != nil {
		root.SetErr(errOut)
	}
	return root.ExecuteContext(ctx)
}

// newRootCommand builds the gubevu command tree and the runtime that owns its
// backend.
func newRootCommand(opts Options) (*cobra.Command, *runtime) {
	if opts.OpenBackend == nil {
		opts.OpenBackend = app.OpenBackend
	}
	rt := &runtime{opts: opts}

	root := &cobra.Command{
		Use:           "gubevu",
		Short:         "Invoice and quote management",
		Long:          "gubevu stores invoices and quotes, computes VAT totals and serves a JSON API.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return rt.init()
		},
	}
	root.PersistentFlags().BoolVar(&rt.jsonOut, "json", false, "print machine-readable JSON")

	root.AddCommand(
		newServeCommand(rt),
		newListCommand(rt),
		newShowCommand(rt),
		newStatusCommand(rt),
		newDeleteCommand(rt),
		newConvertCommand(rt),
		newStatsCommand(rt),
		newExportCommand(rt),
		newUserCommand(rt),
	)
	return root, rt
}

func (rt *runtime) init() error {
	if rt.opts.Config == nil {
		cfg, err := app.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		rt.opts.Config = cfg
	}
	if rt.opts.Logger == nil {
		rt.opts.Logger = app.NewLogger(rt.opts.Config)
	}
	return nil
}

// connect opens the backend on first use.
func (rt *runtime) connect(ctx context.Context) (*app.Services, error) {
	if rt.services != nil {
		return rt.services, nil
	}
	backend, err := rt.opts.OpenBackend(ctx, rt.opts.Config, rt.opts.Logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	rt.backend = backend
	rt.metrics = observability.NewMetrics()
	rt.services = app.NewServices(backend, rt.opts.Config, rt.opts.Logger, rt.metrics)
	return rt.services, nil
}

func (rt *runtime) close() {
	if rt.backend != nil {
		rt.backend.Close()
		rt.backend = nil
		rt.services = nil
	}
}

func (rt *runtime) printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
