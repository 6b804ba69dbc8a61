package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/assetaudit/internal/audit"
	"github.com/roach88/assetaudit/internal/catalog"
	"github.com/roach88/assetaudit/internal/reconcile"
	"github.com/roach88/assetaudit/internal/scan"
	"github.com/roach88/assetaudit/internal/store"
	"github.com/roach88/assetaudit/internal/tasks"
	"github.com/roach88/assetaudit/internal/testutil"
)

// Harness is the scenario execution engine.
// It runs scenarios with a fake clock and counter ids.
type Harness struct {
	store      *store.Store
	svc        *tasks.Service
	engine     *reconcile.Engine
	provider   *scan.SimulatedProvider
	clock      *testutil.FakeClock
	cooldown   time.Duration
	debouncers map[string]*scan.Debouncer
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation. The clock
// starts at testutil.Epoch and only moves on advance_clock, so scan times,
// debounce windows and overdue checks are reproducible. An error return
// means the scenario could not be executed; step and assertion failures are
// reported in the Result.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	cooldown := scan.DefaultCooldown
	if scenario.Settings.Debounce != "" {
		cooldown, err = time.ParseDuration(scenario.Settings.Debounce)
		if err != nil {
			return nil, fmt.Errorf("settings.debounce: %w", err)
		}
	}
	reconcileMissing := true
	if scenario.Settings.ReconcileMissing != nil {
		reconcileMissing = *scenario.Settings.ReconcileMissing
	}

	clock := testutil.NewFakeClock(time.Time{})
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &Harness{
		store: st,
		svc: tasks.New(st,
			tasks.WithClock(clock),
			tasks.WithLogger(quiet),
			tasks.WithRequireChecklist(scenario.Settings.RequireChecklist),
			tasks.WithReconciliation(reconcileMissing),
		),
		engine: reconcile.New(catalog.Default(), testutil.NewCounterGenerator("scan"), clock),
		provider: &scan.SimulatedProvider{
			Tick:  time.Millisecond,
			Step:  100,
			IDs:   testutil.NewCounterGenerator("m"),
			Clock: clock,
		},
		clock:      clock,
		cooldown:   cooldown,
		debouncers: make(map[string]*scan.Debouncer),
	}

	result := NewResult()
	for i, step := range scenario.Flow {
		if err := h.execute(ctx, i+1, step, result); err != nil {
			return nil, fmt.Errorf("flow step %d (%s): %w", i+1, step.Action, err)
		}
	}

	result.Tasks, err = st.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read final state: %w", err)
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// execute runs one step, appends its trace event and checks its
// expectation. Only failures outside the audit error taxonomy abort the run.
func (h *Harness) execute(ctx context.Context, n int, step Step, result *Result) error {
	ev := TraceEvent{Step: n, Action: step.Action, Task: step.Task}
	var (
		task audit.AuditTask
		err  error
	)

	switch step.Action {
	case ActionCreateTask:
		task, err = h.svc.CreateTask(ctx, *step.Form)
		ev.Task = task.ID

	case ActionAddChecklist:
		task, err = h.svc.AddChecklistItem(ctx, step.Task, step.Description, step.Required)

	case ActionToggleChecklist:
		task, err = h.svc.ToggleChecklistItem(ctx, step.Task, step.Item)

	case ActionDecode:
		key := catalog.NormalizeCode(step.Code)
		if key == "" || !h.debouncer(step.Task).Allow(key) {
			ev.Suppressed = true
			task, err = h.svc.Get(ctx, step.Task)
			break
		}
		task, err = h.recordScan(ctx, step.Task, step.Code, &ev)

	case ActionRecordScan:
		task, err = h.recordScan(ctx, step.Task, step.Code, &ev)

	case ActionBulkScan:
		res, missing, runErr := h.provider.RunBulkScan(ctx, h.engine.Catalog().Codes(), nil)
		if runErr != nil {
			return runErr
		}
		task, err = h.svc.RecordBulkScanResult(ctx, step.Task, res, missing)
		if err == nil {
			ev.Scan = res.ID
		}

	case ActionFlagDamaged:
		task, err = h.svc.FlagDamaged(ctx, step.Task, step.Scan)
		ev.Scan = step.Scan
		for _, s := range task.ScannedAssets {
			if s.ID == step.Scan {
				ev.ScanStatus = s.Status
			}
		}

	case ActionMarkComplete:
		task, err = h.svc.MarkComplete(ctx, step.Task)

	case ActionAdvanceClock:
		d, parseErr := time.ParseDuration(step.Duration)
		if parseErr != nil {
			return parseErr
		}
		h.clock.Advance(d)

	case ActionRefreshOverdue:
		var changed int
		changed, err = h.svc.RefreshOverdue(ctx)
		ev.Updated = &changed

	default:
		return fmt.Errorf("unknown action %q", step.Action)
	}

	if err != nil {
		var ae *audit.Error
		if !errors.As(err, &ae) {
			return err
		}
		ev.Error = ae.Code
		ev.Scan, ev.ScanStatus = "", ""
	} else if task.ID != "" {
		ev.Status = task.Status
		switch step.Action {
		case ActionDecode, ActionRecordScan, ActionBulkScan:
			missing := len(task.MissingAssets)
			ev.Missing = &missing
		}
	}

	result.Trace = append(result.Trace, ev)
	checkExpect(step, ev, err, result)
	return nil
}

func (h *Harness) recordScan(ctx context.Context, taskID, code string, ev *TraceEvent) (audit.AuditTask, error) {
	scanned := h.engine.Classify(code)
	ev.Scan = scanned.ID
	ev.ScanStatus = scanned.Status
	return h.svc.RecordScanEvent(ctx, taskID, scanned)
}

// debouncer returns the live-session debouncer of one task. Each task gets
// its own, as each live session does.
func (h *Harness) debouncer(taskID string) *scan.Debouncer {
	d, ok := h.debouncers[taskID]
	if !ok {
		d = scan.NewDebouncer(h.cooldown, h.clock)
		h.debouncers[taskID] = d
	}
	return d
}

func checkExpect(step Step, ev TraceEvent, err error, result *Result) {
	prefix := fmt.Sprintf("step %d (%s)", ev.Step, ev.Action)
	exp := step.Expect
	if exp == nil {
		exp = &Expect{}
	}

	switch {
	case exp.Error == "" && ev.Error != "":
		result.AddError(fmt.Sprintf("%s: unexpected error: %v", prefix, err))
	case exp.Error != "" && ev.Error != exp.Error:
		got := "success"
		if ev.Error != "" {
			got = string(ev.Error)
		}
		result.AddError(fmt.Sprintf("%s: expected error %s, got %s", prefix, exp.Error, got))
	}

	if exp.Status != "" && ev.Status != exp.Status {
		result.AddError(fmt.Sprintf("%s: expected status %q, got %q", prefix, exp.Status, ev.Status))
	}
	if exp.Suppressed != nil && ev.Suppressed != *exp.Suppressed {
		result.AddError(fmt.Sprintf("%s: expected suppressed=%t, got %t", prefix, *exp.Suppressed, ev.Suppressed))
	}
}
