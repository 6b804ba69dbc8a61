package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/assetaudit/internal/audit"
)

// Scenario is a scripted audit session: a flow of service operations and
// decoded codes, followed by assertions on the resulting tasks.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario demonstrates.
	Description string `yaml:"description"`

	// Settings adjust the service policy for this scenario.
	Settings Settings `yaml:"settings,omitempty"`

	// Flow runs in order against one fresh service.
	Flow []Step `yaml:"flow"`

	// Assertions validate final task state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Settings mirror the config file policy keys.
type Settings struct {
	RequireChecklist bool `yaml:"require_checklist,omitempty"`

	// ReconcileMissing defaults to true when omitted.
	ReconcileMissing *bool `yaml:"reconcile_missing,omitempty"`

	// Debounce is a Go duration string; empty means the 2s default.
	Debounce string `yaml:"debounce,omitempty"`
}

// Step is one flow entry. Which fields are read depends on Action.
type Step struct {
	Action string `yaml:"action"`

	Task        string                `yaml:"task,omitempty"`
	Form        *audit.CreateTaskForm `yaml:"form,omitempty"`
	Item        string                `yaml:"item,omitempty"`
	Description string                `yaml:"description,omitempty"`
	Required    bool                  `yaml:"required,omitempty"`
	Code        string                `yaml:"code,omitempty"`
	Scan        string                `yaml:"scan,omitempty"`
	Duration    string                `yaml:"duration,omitempty"`

	// Expect, if nil, requires the step to succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect describes the outcome of one step.
type Expect struct {
	// Error is the audit.ErrorCode the step must fail with.
	Error audit.ErrorCode `yaml:"error,omitempty"`

	// Status is the task status after the step.
	Status audit.Status `yaml:"status,omitempty"`

	// Suppressed applies to decode: the debouncer must drop the code.
	Suppressed *bool `yaml:"suppressed,omitempty"`
}

// Step actions.
const (
	ActionCreateTask      = "create_task"
	ActionAddChecklist    = "add_checklist_item"
	ActionToggleChecklist = "toggle_checklist_item"
	ActionDecode          = "decode"
	ActionRecordScan      = "record_scan"
	ActionBulkScan        = "bulk_scan"
	ActionFlagDamaged     = "flag_damaged"
	ActionMarkComplete    = "mark_complete"
	ActionAdvanceClock    = "advance_clock"
	ActionRefreshOverdue  = "refresh_overdue"
)

// Assertion checks one property of the final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "task_status": Task has Status
	// - "task_count": Count tasks exist
	// - "scanned_count": Task has Count scans
	// - "missing_count": Task has Count missing assets
	// - "missing_contains": Task still lists Code as missing
	// - "scan_status": the newest scan of Code on Task has Status
	// - "checklist_done": Task has Count completed checklist items
	Type string `yaml:"type"`

	Task   string `yaml:"task,omitempty"`
	Code   string `yaml:"code,omitempty"`
	Status string `yaml:"status,omitempty"`
	Count  *int   `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertTaskStatus      = "task_status"
	AssertTaskCount       = "task_count"
	AssertScannedCount    = "scanned_count"
	AssertMissingCount    = "missing_count"
	AssertMissingContains = "missing_contains"
	AssertScanStatus      = "scan_status"
	AssertChecklistDone   = "checklist_done"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if s.Settings.Debounce != "" {
		if _, err := time.ParseDuration(s.Settings.Debounce); err != nil {
			return fmt.Errorf("settings.debounce: %w", err)
		}
	}

	for i, step := range s.Flow {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(step Step) error {
	need := func(field, value string) error {
		if value == "" {
			return fmt.Errorf("%s requires %s", step.Action, field)
		}
		return nil
	}

	switch step.Action {
	case ActionCreateTask:
		if step.Form == nil {
			return fmt.Errorf("%s requires form", step.Action)
		}
		return nil
	case ActionRefreshOverdue:
		return nil
	case ActionAdvanceClock:
		if err := need("duration", step.Duration); err != nil {
			return err
		}
		if _, err := time.ParseDuration(step.Duration); err != nil {
			return fmt.Errorf("duration: %w", err)
		}
		return nil
	case ActionAddChecklist:
		return firstErr(need("task", step.Task), need("description", step.Description))
	case ActionToggleChecklist:
		return firstErr(need("task", step.Task), need("item", step.Item))
	case ActionDecode, ActionRecordScan:
		return need("task", step.Task)
	case ActionFlagDamaged:
		return firstErr(need("task", step.Task), need("scan", step.Scan))
	case ActionBulkScan, ActionMarkComplete:
		return need("task", step.Task)
	case "":
		return fmt.Errorf("action is required")
	default:
		return fmt.Errorf("unknown action %q", step.Action)
	}
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertTaskCount:
		if a.Count == nil {
			return fmt.Errorf("%s requires count", a.Type)
		}
	case AssertTaskStatus:
		if a.Task == "" || a.Status == "" {
			return fmt.Errorf("%s requires task and status", a.Type)
		}
	case AssertScannedCount, AssertMissingCount, AssertChecklistDone:
		if a.Task == "" || a.Count == nil {
			return fmt.Errorf("%s requires task and count", a.Type)
		}
	case AssertMissingContains:
		if a.Task == "" || a.Code == "" {
			return fmt.Errorf("%s requires task and code", a.Type)
		}
	case AssertScanStatus:
		if a.Task == "" || a.Code == "" || a.Status == "" {
			return fmt.Errorf("%s requires task, code and status", a.Type)
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
