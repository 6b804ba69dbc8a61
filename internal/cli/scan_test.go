package cli

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/assetaudit/internal/audit"
)

func TestScanBulk_Simulated(t *testing.T) {
	env := newTestEnv(t)
	id := env.createTask("Server Room A", "2025-01-15")

	out, errOut, err := env.run(NewScanCommand, "", "bulk", id)
	require.NoError(t, err, out)
	assert.Contains(t, errOut, "Bulk scan: 100%")
	assert.Contains(t, out, "Status: In Progress")
	assert.Contains(t, out, "Last bulk scan: 182/185 scanned, 3 missing, 1800s, completed")
	assert.Contains(t, out, "Missing assets: 3")
}

func TestScanBulk_SweepFile(t *testing.T) {
	env := newTestEnv(t).json()
	id := env.createTask("Server Room A", "2025-01-15")

	sweep := filepath.Join(env.dir, "gate.txt")
	require.NoError(t, os.WriteFile(sweep, []byte(
		"# north gate\nASSET-001\n ASSET-002\n\nASSET-003\nASSET-004\nASSET-005\nASSET-006\nASSET-007\n"), 0644))

	out, errOut, err := env.run(NewScanCommand, "", "bulk", id, "--sweep", sweep)
	require.NoError(t, err, out)
	assert.Empty(t, errOut, "JSON mode writes no progress")

	var task audit.AuditTask
	decodeData(t, out, &task)
	require.NotNil(t, task.ScanResults)
	assert.Equal(t, 8, task.ScanResults.TotalAssets)
	assert.Equal(t, 7, task.ScanResults.ScannedCount)
	require.Len(t, task.MissingAssets, 1)
	assert.Equal(t, "ASSET-008", task.MissingAssets[0].AssetCode)
	assert.Equal(t, "Conference Room A", task.MissingAssets[0].ExpectedLocation)
	assert.Equal(t, audit.PriorityLow, task.MissingAssets[0].Criticality)
}

func TestScanBulk_UnknownTask(t *testing.T) {
	env := newTestEnv(t)

	out, _, err := env.run(NewScanCommand, "", "bulk", "AUD-404")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [NOT_FOUND]")
}

func TestScanBulk_Cancelled(t *testing.T) {
	env := newTestEnv(t, "bulk_tick: 1h")
	id := env.createTask("Server Room A", "2025-01-15")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := NewScanCommand(env.opts)
	var out syncBuffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"bulk", id})

	errCh := make(chan error, 1)
	go func() { errCh <- cmd.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Bulk scan:   0%")
	}, 5*time.Second, 10*time.Millisecond)
	cancel()

	var err error
	select {
	case err = <-errCh:
	case <-time.After(5 * time.Second):
		t.Fatal("bulk scan did not stop after cancel")
	}
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out.String(), "bulk scan cancelled")

	// Nothing was recorded.
	shown, _, err := env.run(NewTaskCommand, "", "show", id)
	require.NoError(t, err)
	assert.Contains(t, shown, "Last bulk scan: none")
	assert.Contains(t, shown, "Status: Pending")
}

func TestScanQR_DebouncesAndClassifies(t *testing.T) {
	env := newTestEnv(t)
	id := env.createTask("Server Room A", "2025-01-15")

	out, _, err := env.run(NewScanCommand, "ASSET-001\nASSET-001\n\nXYZ-999\n", "qr", id)
	require.NoError(t, err, out)
	assert.Contains(t, out, "verified ASSET-001: Dell Laptop XPS 13 (IT Department - Room 205)")
	assert.Contains(t, out, "unexpected XYZ-999: Unknown Asset (XYZ-999) (Unknown Location)")
	assert.Contains(t, out, "2 scan(s) recorded; task AUD-001 is In Progress with 0 missing asset(s)")
}

func TestScanQR_InputFileJSON(t *testing.T) {
	env := newTestEnv(t).json()
	id := env.createTask("Server Room A", "2025-01-15")

	_, _, err := env.run(NewScanCommand, "", "bulk", id)
	require.NoError(t, err)

	input := filepath.Join(env.dir, "codes.txt")
	require.NoError(t, os.WriteFile(input, []byte("ASSET-006\n"), 0644))

	out, _, err := env.run(NewScanCommand, "", "qr", id, "--input", input)
	require.NoError(t, err, out)

	var summary LiveScanSummary
	decodeData(t, out, &summary)
	require.Len(t, summary.Scans, 1)
	assert.Equal(t, "ASSET-006", summary.Scans[0].QRCode)
	assert.Equal(t, audit.ScanVerified, summary.Scans[0].Status)

	// The scanned asset is no longer missing.
	require.Len(t, summary.Task.MissingAssets, 2)
	for _, m := range summary.Task.MissingAssets {
		assert.NotEqual(t, "ASSET-006", m.AssetCode)
	}
}

func TestScanQR_MissingInputFile(t *testing.T) {
	env := newTestEnv(t)
	id := env.createTask("Server Room A", "2025-01-15")

	_, _, err := env.run(NewScanCommand, "", "qr", id, "--input", filepath.Join(env.dir, "absent.txt"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestScanRecordAndFlagDamaged(t *testing.T) {
	env := newTestEnv(t).json()
	id := env.createTask("Server Room A", "2025-01-15")

	out, _, err := env.run(NewScanCommand, "", "record", id, " ASSET-003 ")
	require.NoError(t, err, out)
	var task audit.AuditTask
	decodeData(t, out, &task)
	require.Len(t, task.ScannedAssets, 1)
	verified := task.ScannedAssets[0]
	assert.Equal(t, " ASSET-003 ", verified.QRCode, "the code is stored as read")
	assert.Equal(t, audit.ScanVerified, verified.Status)
	assert.Equal(t, audit.StatusInProgress, task.Status)

	out, _, err = env.run(NewScanCommand, "", "record", id, "GARBAGE")
	require.NoError(t, err, out)
	decodeData(t, out, &task)
	require.Len(t, task.ScannedAssets, 2)
	unexpected := task.ScannedAssets[0]
	assert.Equal(t, audit.ScanUnexpected, unexpected.Status)

	out, _, err = env.run(NewScanCommand, "", "flag-damaged", id, verified.ID)
	require.NoError(t, err, out)
	decodeData(t, out, &task)
	for _, s := range task.ScannedAssets {
		if s.ID == verified.ID {
			assert.Equal(t, audit.ScanDamaged, s.Status)
		}
	}

	out, _, err = env.run(NewScanCommand, "", "flag-damaged", id, unexpected.ID)
	require.Error(t, err)
	resp := decodeResponse(t, out)
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(audit.ErrCodeInvalidTransition), resp.Error.Code)
}

func TestScanRecord_BlankCode(t *testing.T) {
	env := newTestEnv(t)
	id := env.createTask("Server Room A", "2025-01-15")

	out, _, err := env.run(NewScanCommand, "", "record", id, "  ")
	require.Error(t, err)
	assert.Contains(t, out, "code: Code is required")
}

func TestCatalogShow_Default(t *testing.T) {
	env := newTestEnv(t)

	out, _, err := env.run(NewCatalogCommand, "", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "ASSET-003  Cisco Router ISR4331 (Network Equipment) at Server Room A [Critical]")
	assert.Contains(t, out, "8 asset(s)")
}

func TestCatalogShow_FromFile(t *testing.T) {
	env := newTestEnv(t).json()
	path := filepath.Join(env.dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`assets:
  RACK-01:
    name: Core Switch
    type: Network Equipment
    location: Server Room A
    criticality: Critical
  RACK-02:
    name: Patch Panel
    type: Cabling
    location: Server Room A
`), 0644))
	env.opts.Catalog = path

	out, _, err := env.run(NewCatalogCommand, "", "show")
	require.NoError(t, err, out)
	var rows []CatalogRow
	decodeData(t, out, &rows)
	require.Len(t, rows, 2)
	assert.Equal(t, "RACK-01", rows[0].Code)
	assert.Equal(t, "Core Switch", rows[0].Name)
	assert.Empty(t, rows[1].Criticality)
}

func TestCatalogShow_InvalidFile(t *testing.T) {
	env := newTestEnv(t).json()
	path := filepath.Join(env.dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("assets:\n  RACK-01:\n    type: Cabling\n"), 0644))
	env.opts.Catalog = path

	out, _, err := env.run(NewCatalogCommand, "", "show")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	resp := decodeResponse(t, out)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeCatalog, resp.Error.Code)
}

func TestSignalContext_LogsThroughGivenLogger(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("SIGTERM cannot be sent to self on windows")
	}
	var logs syncBuffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	ctx, stop := signalContext(context.Background(), logger)
	defer stop()

	self, err := os.FindProcess(os.Getpid())
	require.NoError(t, err)
	require.NoError(t, self.Signal(syscall.SIGTERM))

	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("context not cancelled by SIGTERM")
	}
	require.Eventually(t, func() bool {
		return strings.Contains(logs.String(), "received signal, shutting down")
	}, time.Second, 10*time.Millisecond)
	assert.Contains(t, logs.String(), "signal=terminated")
}

func TestSignalContext_FollowsParent(t *testing.T) {
	var logs syncBuffer
	parent, cancel := context.WithCancel(context.Background())
	ctx, stop := signalContext(parent, slog.New(slog.NewTextHandler(&logs, nil)))
	defer stop()

	cancel()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled with its parent")
	}
	assert.Empty(t, logs.String())
}
