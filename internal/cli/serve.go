package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/assetaudit/internal/api"
	"github.com/roach88/assetaudit/internal/scan"
)

// Serve timing.
const (
	shutdownTimeout = 10 * time.Second
	overdueInterval = time.Hour
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Listen string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the audit API over HTTP",
		Long: `Serve the audit task API over HTTP.

Bulk scans started through the API run in the background and are cancelled
on shutdown. Open tasks past their due date are marked Overdue at startup
and then hourly.

Example:
  assetaudit serve --db ./audits.db
  assetaudit serve --listen 127.0.0.1:9090 --config ./assetaudit.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "listen address (overrides config)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	a, err := openApp(opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	defer a.Close()

	addr := a.cfg.Listen
	if opts.Listen != "" {
		addr = opts.Listen
	}

	provider := &scan.SimulatedProvider{Tick: a.cfg.BulkTick, Step: a.cfg.BulkStep, Clock: a.clock}
	runner := scan.NewBulkRunner(provider, a.svc, a.logger)
	defer runner.Close()

	ctx, stop := signalContext(cmd.Context(), a.logger)
	defer stop()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return outputError(formatter, ErrCodeGeneric, err)
	}
	srv := &http.Server{
		Handler:           api.NewServer(a.svc, runner, a.engine, a.logger).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	overdueDone := make(chan struct{})
	go func() {
		defer close(overdueDone)
		a.refreshOverdueLoop(ctx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	a.logger.Info("http server listening", "addr", ln.Addr().String(), "db", a.cfg.Database)
	fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", ln.Addr())
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitFailure, "http server error", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown", "error", err)
	}
	stop()
	<-overdueDone

	a.logger.Info("http server stopped gracefully")
	return nil
}

func (a *app) refreshOverdueLoop(ctx context.Context) {
	ticker := time.NewTicker(overdueInterval)
	defer ticker.Stop()
	for {
		if n, err := a.svc.RefreshOverdue(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			a.logger.Warn("overdue refresh failed", "error", err)
		} else if n > 0 {
			a.logger.Info("tasks marked overdue", "count", n)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
