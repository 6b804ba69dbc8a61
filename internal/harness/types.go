package harness

import "github.com/roach88/assetaudit/internal/audit"

// TraceEvent records the outcome of one flow step.
type TraceEvent struct {
	Step       int              `json:"step"`
	Action     string           `json:"action"`
	Task       string           `json:"task,omitempty"`
	Status     audit.Status     `json:"status,omitempty"`
	Scan       string           `json:"scan,omitempty"`
	ScanStatus audit.ScanStatus `json:"scan_status,omitempty"`
	Missing    *int             `json:"missing,omitempty"`
	Updated    *int             `json:"updated,omitempty"`
	Suppressed bool             `json:"suppressed,omitempty"`
	Error      audit.ErrorCode  `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every step matched its expectation and every
	// assertion held.
	Pass bool `json:"pass"`

	// Trace has one event per flow step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains step and assertion failures.
	Errors []string `json:"errors,omitempty"`

	// Tasks is the final state in creation order.
	Tasks []audit.AuditTask `json:"tasks,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// task returns the final state of one task.
func (r *Result) task(id string) (audit.AuditTask, bool) {
	for _, t := range r.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return audit.AuditTask{}, false
}
