package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/assetaudit/internal/catalog"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, ev := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %s", ev.Step, ev.Action, ev.Task)
		if ev.Error != "" {
			fmt.Fprintf(&buf, " error=%s", ev.Error)
		} else if ev.Status != "" {
			fmt.Fprintf(&buf, " status=%q", ev.Status)
		}
		buf.WriteString("\n")
	}
	return buf.String()
}

// EvaluateAssertions runs every assertion against the final state and
// returns one message per failure.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for _, a := range assertions {
		if err := evaluate(result, a); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion) error {
	fail := func(expected, actual string) error {
		return &AssertionError{Type: a.Type, Expected: expected, Actual: actual, Trace: result.Trace}
	}

	if a.Type == AssertTaskCount {
		if len(result.Tasks) != *a.Count {
			return fail(fmt.Sprintf("%d tasks", *a.Count), fmt.Sprintf("%d tasks", len(result.Tasks)))
		}
		return nil
	}

	task, ok := result.task(a.Task)
	if !ok {
		return fail(fmt.Sprintf("task %s exists", a.Task), "not found")
	}

	switch a.Type {
	case AssertTaskStatus:
		if string(task.Status) != a.Status {
			return fail(fmt.Sprintf("%s status %q", a.Task, a.Status), fmt.Sprintf("%q", task.Status))
		}

	case AssertScannedCount:
		if len(task.ScannedAssets) != *a.Count {
			return fail(fmt.Sprintf("%s has %d scans", a.Task, *a.Count), fmt.Sprintf("%d scans", len(task.ScannedAssets)))
		}

	case AssertMissingCount:
		if len(task.MissingAssets) != *a.Count {
			return fail(fmt.Sprintf("%s has %d missing assets", a.Task, *a.Count), fmt.Sprintf("%d missing", len(task.MissingAssets)))
		}

	case AssertMissingContains:
		for _, m := range task.MissingAssets {
			if m.AssetCode == a.Code {
				return nil
			}
		}
		return fail(fmt.Sprintf("%s lists %s as missing", a.Task, a.Code), "not listed")

	case AssertScanStatus:
		// ScannedAssets is newest first. QRCode is stored as decoded.
		for _, s := range task.ScannedAssets {
			if catalog.NormalizeCode(s.QRCode) != catalog.NormalizeCode(a.Code) {
				continue
			}
			if string(s.Status) != a.Status {
				return fail(fmt.Sprintf("newest scan of %s is %s", a.Code, a.Status), string(s.Status))
			}
			return nil
		}
		return fail(fmt.Sprintf("%s has a scan of %s", a.Task, a.Code), "no such scan")

	case AssertChecklistDone:
		done, total := task.ChecklistProgress()
		if done != *a.Count {
			return fail(fmt.Sprintf("%d completed checklist items", *a.Count), fmt.Sprintf("%d of %d", done, total))
		}

	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
