package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/assetaudit/internal/audit"
	"github.com/roach88/assetaudit/internal/report"
	"github.com/roach88/assetaudit/internal/scan"
)

// ScanBulkOptions holds flags for the scan bulk command.
type ScanBulkOptions struct {
	*RootOptions
	Sweep string // file of observed codes; empty means the simulated scan
}

// ScanQROptions holds flags for the scan qr command.
type ScanQROptions struct {
	*RootOptions
	Input string // file of decoded codes; empty or "-" means stdin
}

// LiveScanSummary is the JSON payload of scan qr.
type LiveScanSummary struct {
	Task  audit.AuditTask      `json:"task"`
	Scans []audit.ScannedAsset `json:"scans"`
}

// NewScanCommand creates the scan command group.
func NewScanCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run bulk scans and record QR scans",
	}
	cmd.AddCommand(newScanBulkCommand(rootOpts))
	cmd.AddCommand(newScanQRCommand(rootOpts))
	cmd.AddCommand(newScanRecordCommand(rootOpts))
	cmd.AddCommand(newScanFlagDamagedCommand(rootOpts))
	return cmd
}

func newScanBulkCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScanBulkOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "bulk <task-id>",
		Short: "Run a bulk scan and record missing assets",
		Long: `Run a bulk scan for a task and record its summary and missing assets.

Without --sweep the scan is simulated: progress advances by bulk_step percent
every bulk_tick and the run reports a fixed summary. With --sweep, the file
lists the codes a physical sweep observed (one per line) and every catalog
asset not in it is reported missing.

Progress is written to stderr. Ctrl-C cancels the run; nothing is recorded.

Example:
  assetaudit scan bulk AUD-001
  assetaudit scan bulk AUD-001 --sweep ./rfid-gate.txt --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBulkScan(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Sweep, "sweep", "", "file of observed codes, one per line")

	return cmd
}

func runBulkScan(opts *ScanBulkOptions, taskID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	a, err := openApp(opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	defer a.Close()

	// Fail before the run rather than after it.
	if _, err := a.svc.Get(cmd.Context(), taskID); err != nil {
		return outputError(formatter, ErrCodeStorage, err)
	}

	var provider scan.Provider = &scan.SimulatedProvider{
		Tick:  a.cfg.BulkTick,
		Step:  a.cfg.BulkStep,
		Clock: a.clock,
	}
	if opts.Sweep != "" {
		provider = &scan.CatalogProvider{
			Catalog: a.catalog,
			Sweep:   sweepFile(opts.Sweep),
			Clock:   a.clock,
		}
	}

	ctx, stop := signalContext(cmd.Context(), a.logger)
	defer stop()

	runner := scan.NewBulkRunner(provider, a.svc, a.logger)
	defer runner.Close()

	run, err := runner.Start(ctx, taskID, a.catalog.Codes())
	if err != nil {
		return outputError(formatter, ErrCodeGeneric, err)
	}

	progressOut := formatter.GetErrWriter()
	for pct := range run.Progress() {
		if opts.Format != "json" {
			fmt.Fprintf(progressOut, "\rBulk scan: %3d%%", pct)
		}
	}
	if opts.Format != "json" {
		fmt.Fprintln(progressOut)
	}

	task, err := run.Wait()
	if err != nil {
		if ctx.Err() != nil {
			_ = formatter.Error(ErrCodeGeneric, "bulk scan cancelled", nil)
			return reported(WrapExitError(ExitFailure, "bulk scan cancelled", err))
		}
		return outputError(formatter, ErrCodeGeneric, err)
	}
	return printTask(opts.RootOptions, cmd, formatter, task)
}

// sweepFile reads observed codes from path, one per line. Blank lines and
// lines starting with # are skipped.
func sweepFile(path string) scan.SweepFunc {
	return func(ctx context.Context) ([]string, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return readCodes(ctx, f)
	}
}

func readCodes(ctx context.Context, r io.Reader) ([]string, error) {
	var codes []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		codes = append(codes, line)
	}
	return codes, sc.Err()
}

func newScanQRCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScanQROptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "qr <task-id>",
		Short: "Record live QR scans read one per line",
		Long: `Start a live scan session for a task. Each input line is one decoded
QR code (a USB wedge scanner typing into the terminal works). Codes are
classified against the catalog; the same code again within the debounce
window is ignored.

The session ends at end of input or on Ctrl-C.

Example:
  assetaudit scan qr AUD-001
  assetaudit scan qr AUD-001 --input codes.txt --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLiveScan(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Input, "input", "", "file of decoded codes (default stdin)")

	return cmd
}

func runLiveScan(opts *ScanQROptions, taskID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	a, err := openApp(opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.svc.Get(cmd.Context(), taskID); err != nil {
		return outputError(formatter, ErrCodeStorage, err)
	}

	input := cmd.InOrStdin()
	if opts.Input != "" && opts.Input != "-" {
		f, err := os.Open(opts.Input)
		if err != nil {
			return outputError(formatter, ErrCodeGeneric, err)
		}
		defer f.Close()
		input = f
	}

	sessionOpts := []scan.SessionOption{
		scan.WithDebouncer(scan.NewDebouncer(a.cfg.Debounce, a.clock)),
		scan.WithSessionLogger(a.logger),
	}
	if opts.Format != "json" {
		out := cmd.OutOrStdout()
		sessionOpts = append(sessionOpts, scan.WithOnScan(func(s audit.ScannedAsset) {
			report.ScanLine(out, s)
		}))
	}
	session := scan.NewLiveSession(scan.ReaderCamera{R: input}, a.engine, a.svc, taskID, sessionOpts...)

	ctx, stop := signalContext(cmd.Context(), a.logger)
	defer stop()

	if err := session.Start(ctx); err != nil {
		return outputError(formatter, ErrCodeGeneric, err)
	}
	select {
	case <-session.CameraFinished():
	case <-ctx.Done():
	}
	session.Close()

	if err := session.Err(); err != nil && ctx.Err() == nil {
		return outputError(formatter, ErrCodeGeneric, err)
	}

	task, err := a.svc.Get(context.WithoutCancel(ctx), taskID)
	if err != nil {
		return outputError(formatter, ErrCodeStorage, err)
	}
	history := session.History()
	if opts.Format == "json" {
		return formatter.Success(LiveScanSummary{Task: task, Scans: history})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d scan(s) recorded; task %s is %s with %d missing asset(s)\n",
		len(history), task.ID, task.Status, len(task.MissingAssets))
	return nil
}

func newScanRecordCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "record <task-id> <code>",
		Short:         "Record one decoded code without debouncing",
		Example:       `  assetaudit scan record AUD-001 ASSET-003`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTask(rootOpts, cmd, func(a *app) (audit.AuditTask, error) {
				if strings.TrimSpace(args[1]) == "" {
					return audit.AuditTask{}, audit.NewValidationError(map[string]string{"code": "Code is required"})
				}
				return a.svc.RecordScanEvent(cmd.Context(), args[0], a.engine.Classify(args[1]))
			})
		},
	}
}

func newScanFlagDamagedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "flag-damaged <task-id> <scan-id>",
		Short:         "Mark a verified scan as damaged",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTask(rootOpts, cmd, func(a *app) (audit.AuditTask, error) {
				return a.svc.FlagDamaged(cmd.Context(), args[0], args[1])
			})
		},
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM, reporting
// the signal through logger. Uses the parent context if available (for
// testing), otherwise Background.
func signalContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan) // Prevent signal handler leak
		cancel()
	}
}
