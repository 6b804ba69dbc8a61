package audit

import "time"

// Status is the lifecycle state of an audit task.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
	StatusOverdue    Status = "Overdue"
)

// Statuses lists every task status in display order.
var Statuses = []Status{StatusPending, StatusInProgress, StatusCompleted, StatusOverdue}

// TaskType classifies what an audit covers.
type TaskType string

const (
	TypeCompliance TaskType = "Compliance"
	TypeSecurity   TaskType = "Security"
	TypeFinancial  TaskType = "Financial"
	TypeITAssets   TaskType = "IT Assets"
	TypeInventory  TaskType = "Inventory"
)

// Priority is shared by tasks and missing-asset criticality.
type Priority string

const (
	PriorityCritical Priority = "Critical"
	PriorityHigh     Priority = "High"
	PriorityMedium   Priority = "Medium"
	PriorityLow      Priority = "Low"
)

// ScanStatus classifies a single observed asset.
type ScanStatus string

const (
	ScanVerified   ScanStatus = "verified"
	ScanUnexpected ScanStatus = "unexpected"
	ScanDamaged    ScanStatus = "damaged"
)

// ResultStatus is the state of a bulk scan run.
type ResultStatus string

const (
	ResultCompleted  ResultStatus = "completed"
	ResultInProgress ResultStatus = "in-progress"
	ResultFailed     ResultStatus = "failed"
)

// DateLayout is the layout of AuditTask.DueDate.
const DateLayout = "2006-01-02"

// AuditTask is one audit assignment.
//
// Checklist keeps creation order. ScannedAssets is newest first.
type AuditTask struct {
	ID            string          `json:"id" yaml:"id"`
	AssetName     string          `json:"assetName" yaml:"assetName"`
	Type          TaskType        `json:"type" yaml:"type"`
	Status        Status          `json:"status" yaml:"status"`
	Priority      Priority        `json:"priority" yaml:"priority"`
	AssignedTo    string          `json:"assignedTo" yaml:"assignedTo"`
	DueDate       string          `json:"dueDate" yaml:"dueDate"`
	CreatedAt     time.Time       `json:"createdAt" yaml:"createdAt"`
	Notes         string          `json:"notes,omitempty" yaml:"notes,omitempty"`
	Checklist     []ChecklistItem `json:"checklist" yaml:"checklist"`
	MissingAssets []MissingAsset  `json:"missingAssets" yaml:"missingAssets"`
	ScannedAssets []ScannedAsset  `json:"scannedAssets" yaml:"scannedAssets"`
	ScanResults   *ScanResult     `json:"scanResults,omitempty" yaml:"scanResults,omitempty"`
}

// ChecklistItem is one step of an audit. Required is informational unless
// the service is configured to enforce it on completion.
type ChecklistItem struct {
	ID          string `json:"id" yaml:"id"`
	Description string `json:"description" yaml:"description"`
	Completed   bool   `json:"completed" yaml:"completed"`
	Required    bool   `json:"required" yaml:"required"`
}

// ScannedAsset is the immutable record of one decoded code.
type ScannedAsset struct {
	ID        string     `json:"id" yaml:"id"`
	QRCode    string     `json:"qrCode" yaml:"qrCode"`
	Name      string     `json:"name" yaml:"name"`
	Type      string     `json:"type" yaml:"type"`
	Location  string     `json:"location" yaml:"location"`
	ScannedAt time.Time  `json:"scannedAt" yaml:"scannedAt"`
	Status    ScanStatus `json:"status" yaml:"status"`
}

// MissingAsset is an expected asset a bulk scan did not find.
// AssetCode is the catalog key when the provider knows it.
type MissingAsset struct {
	ID               string   `json:"id" yaml:"id"`
	AssetCode        string   `json:"assetCode,omitempty" yaml:"assetCode,omitempty"`
	Name             string   `json:"name" yaml:"name"`
	Type             string   `json:"type" yaml:"type"`
	ExpectedLocation string   `json:"expectedLocation" yaml:"expectedLocation"`
	LastSeen         string   `json:"lastSeen,omitempty" yaml:"lastSeen,omitempty"`
	Criticality      Priority `json:"criticality" yaml:"criticality"`
}

// ScanResult summarizes the last bulk scan. Duration is in seconds.
type ScanResult struct {
	ID           string       `json:"id" yaml:"id"`
	Timestamp    time.Time    `json:"timestamp" yaml:"timestamp"`
	TotalAssets  int          `json:"totalAssets" yaml:"totalAssets"`
	ScannedCount int          `json:"scannedAssets" yaml:"scannedAssets"`
	MissingCount int          `json:"missingCount" yaml:"missingCount"`
	Status       ResultStatus `json:"status" yaml:"status"`
	Duration     int          `json:"duration" yaml:"duration"`
}

// ChecklistProgress returns completed and total checklist counts.
func (t *AuditTask) ChecklistProgress() (completed, total int) {
	for _, item := range t.Checklist {
		if item.Completed {
			completed++
		}
	}
	return completed, len(t.Checklist)
}

// CompletionPercent is the share of completed checklist items, 0 for an
// empty checklist.
func (t *AuditTask) CompletionPercent() float64 {
	done, total := t.ChecklistProgress()
	if total == 0 {
		return 0
	}
	return float64(done) / float64(total) * 100
}

// Clone returns a deep copy so callers never alias repository state.
func (t AuditTask) Clone() AuditTask {
	out := t
	out.Checklist = append([]ChecklistItem{}, t.Checklist...)
	out.MissingAssets = append([]MissingAsset{}, t.MissingAssets...)
	out.ScannedAssets = append([]ScannedAsset{}, t.ScannedAssets...)
	if t.ScanResults != nil {
		r := *t.ScanResults
		out.ScanResults = &r
	}
	return out
}
