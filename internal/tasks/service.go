package tasks

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/cases"

	"github.com/roach88/assetaudit/internal/audit"
	"github.com/roach88/assetaudit/internal/reconcile"
)

// maxCreateAttempts bounds retries when another writer takes the id
// between seeding and insert.
const maxCreateAttempts = 8

// Service is the audit-task state machine.
//
// Every mutation is a read-modify-write through the repository, serialized
// by a single mutex so that concurrent producers (a bulk scan finishing while
// live scans arrive) never lose each other's writes.
//
// Thread-safety: all methods are safe for concurrent use.
type Service struct {
	mu     sync.Mutex
	repo   audit.TaskRepository
	clock  audit.Clock
	taskID audit.IDGenerator
	logger *slog.Logger

	requireChecklist bool
	reconcile        bool
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock used for createdAt and overdue checks.
func WithClock(c audit.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithTaskIDs sets the task id generator. Default: AUD-001, AUD-002, ...
func WithTaskIDs(g audit.IDGenerator) Option {
	return func(s *Service) { s.taskID = g }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithRequireChecklist makes MarkComplete refuse tasks with open required
// checklist items.
func WithRequireChecklist(require bool) Option {
	return func(s *Service) { s.requireChecklist = require }
}

// WithReconciliation controls whether a verified live scan removes the
// matching missing-asset entry. Default: enabled.
func WithReconciliation(enabled bool) Option {
	return func(s *Service) { s.reconcile = enabled }
}

// New creates a Service over repo.
func New(repo audit.TaskRepository, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		clock:     audit.SystemClock{},
		taskID:    audit.NewSequenceGenerator("AUD", 0),
		logger:    slog.Default(),
		reconcile: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateTask validates the form and stores a new Pending task with empty
// collections (or a template checklist when the form asks for one).
func (s *Service) CreateTask(ctx context.Context, form audit.CreateTaskForm) (audit.AuditTask, error) {
	form = form.Normalize()
	if err := form.Validate(); err != nil {
		return audit.AuditTask{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	task := audit.AuditTask{
		AssetName:     form.AssetName,
		Type:          form.Type,
		Status:        audit.StatusPending,
		Priority:      form.Priority,
		AssignedTo:    form.AssignedTo,
		DueDate:       form.DueDate,
		CreatedAt:     s.clock.Now(),
		Notes:         form.Notes,
		Checklist:     []audit.ChecklistItem{},
		MissingAssets: []audit.MissingAsset{},
		ScannedAssets: []audit.ScannedAsset{},
	}
	if form.WithChecklist {
		task.Checklist = audit.ChecklistTemplate(form.Type)
	}

	if err := s.insert(ctx, &task); err != nil {
		return audit.AuditTask{}, fmt.Errorf("create task: %w", err)
	}
	s.logger.Info("audit task created", "task_id", task.ID, "type", task.Type, "assigned_to", task.AssignedTo)
	return task, nil
}

// insert assigns task a fresh id and stores it without overwriting. A
// sequence generator is first moved past the highest id already stored,
// since other processes may share the repository.
func (s *Service) insert(ctx context.Context, task *audit.AuditTask) error {
	seeder, seeded := s.taskID.(audit.SequenceSeeder)
	for i := 0; i < maxCreateAttempts; i++ {
		if seeded {
			last, err := s.repo.LastSequence(ctx, seeder.Prefix())
			if err != nil {
				return err
			}
			seeder.Seed(last)
		}
		task.ID = s.taskID.Generate()
		err := s.repo.Create(ctx, *task)
		if err == nil {
			return nil
		}
		if !errors.Is(err, audit.ErrTaskExists) {
			return err
		}
		s.logger.Debug("task id taken, retrying", "task_id", task.ID)
	}
	return fmt.Errorf("no unused id after %d attempts", maxCreateAttempts)
}

// Get returns one task.
func (s *Service) Get(ctx context.Context, taskID string) (audit.AuditTask, error) {
	return s.repo.Get(ctx, taskID)
}

// Filter narrows ListTasks. Empty fields match everything.
type Filter struct {
	Status   audit.Status
	Priority audit.Priority

	// Search matches assetName or assignedTo, case-insensitively.
	Search string
}

// ListTasks returns matching tasks, newest first.
func (s *Service) ListTasks(ctx context.Context, f Filter) ([]audit.AuditTask, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(f.Search))

	out := make([]audit.AuditTask, 0, len(all))
	for _, t := range all {
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.Priority != "" && t.Priority != f.Priority {
			continue
		}
		if needle != "" &&
			!strings.Contains(fold.String(t.AssetName), needle) &&
			!strings.Contains(fold.String(t.AssignedTo), needle) {
			continue
		}
		out = append(out, t)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return compareTaskIDs(out[i].ID, out[j].ID) > 0
	})
	return out, nil
}

// compareTaskIDs orders ids sharing a prefix by their numeric suffix, so
// AUD-1000 sorts after AUD-999. Other ids compare as strings.
func compareTaskIDs(a, b string) int {
	i, j := strings.LastIndexByte(a, '-'), strings.LastIndexByte(b, '-')
	if i >= 0 && j >= 0 && a[:i] == b[:j] {
		na, okA := audit.ParseSequence(a[:i], a)
		nb, okB := audit.ParseSequence(b[:j], b)
		if okA && okB && na != nb {
			return cmp.Compare(na, nb)
		}
	}
	return strings.Compare(a, b)
}

// Stats counts tasks per status.
type Stats struct {
	Total    int                  `json:"total"`
	ByStatus map[audit.Status]int `json:"byStatus"`
}

// Stats summarizes every task.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("task stats: %w", err)
	}
	st := Stats{Total: len(all), ByStatus: make(map[audit.Status]int, len(audit.Statuses))}
	for _, status := range audit.Statuses {
		st.ByStatus[status] = 0
	}
	for _, t := range all {
		st.ByStatus[t.Status]++
	}
	return st, nil
}

// update loads a task, applies fn and saves the result. fn errors abort
// without saving.
func (s *Service) update(ctx context.Context, taskID string, fn func(*audit.AuditTask) error) (audit.AuditTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, err := s.repo.Get(ctx, taskID)
	if err != nil {
		return audit.AuditTask{}, err
	}
	if err := fn(&task); err != nil {
		return audit.AuditTask{}, err
	}
	if err := s.repo.Save(ctx, task); err != nil {
		return audit.AuditTask{}, fmt.Errorf("save task %s: %w", taskID, err)
	}
	return task, nil
}

// ToggleChecklistItem flips one item's completed flag. Task status is not
// affected.
func (s *Service) ToggleChecklistItem(ctx context.Context, taskID, itemID string) (audit.AuditTask, error) {
	return s.update(ctx, taskID, func(t *audit.AuditTask) error {
		for i := range t.Checklist {
			if t.Checklist[i].ID == itemID {
				t.Checklist[i].Completed = !t.Checklist[i].Completed
				s.logger.Debug("checklist item toggled", "task_id", t.ID, "item_id", itemID, "completed", t.Checklist[i].Completed)
				return nil
			}
		}
		return audit.NewItemNotFound(taskID, "checklist item", itemID)
	})
}

// AddChecklistItem appends an open item to the checklist.
func (s *Service) AddChecklistItem(ctx context.Context, taskID, description string, required bool) (audit.AuditTask, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return audit.AuditTask{}, audit.NewValidationError(map[string]string{"description": "Description is required"})
	}
	return s.update(ctx, taskID, func(t *audit.AuditTask) error {
		t.Checklist = append(t.Checklist, audit.ChecklistItem{
			ID:          audit.NextChecklistID(t.Checklist),
			Description: description,
			Required:    required,
		})
		return nil
	})
}

// MarkComplete sets status Completed. Completing a completed task is a no-op.
func (s *Service) MarkComplete(ctx context.Context, taskID string) (audit.AuditTask, error) {
	return s.update(ctx, taskID, func(t *audit.AuditTask) error {
		if t.Status == audit.StatusCompleted {
			return nil
		}
		if s.requireChecklist {
			var open []string
			for _, item := range t.Checklist {
				if item.Required && !item.Completed {
					open = append(open, item.ID)
				}
			}
			if len(open) > 0 {
				return audit.NewChecklistIncompleteError(t.ID, open)
			}
		}
		s.transition(t, audit.StatusCompleted)
		return nil
	})
}

// RecordBulkScanResult appends the run's missing assets to the task's list,
// replaces the last scan summary and starts a pending task.
func (s *Service) RecordBulkScanResult(ctx context.Context, taskID string, result audit.ScanResult, missing []audit.MissingAsset) (audit.AuditTask, error) {
	return s.update(ctx, taskID, func(t *audit.AuditTask) error {
		t.MissingAssets = append(t.MissingAssets, missing...)
		r := result
		t.ScanResults = &r
		s.logger.Info("bulk scan recorded", "task_id", t.ID, "scan_id", r.ID, "missing", len(missing), "total_missing", len(t.MissingAssets))
		s.start(t)
		return nil
	})
}

// RecordScanEvent prepends a classified scan and starts a pending task.
// A verified scan also clears the matching missing-asset entries unless
// reconciliation is disabled.
func (s *Service) RecordScanEvent(ctx context.Context, taskID string, scanned audit.ScannedAsset) (audit.AuditTask, error) {
	return s.update(ctx, taskID, func(t *audit.AuditTask) error {
		t.ScannedAssets = append([]audit.ScannedAsset{scanned}, t.ScannedAssets...)
		if s.reconcile {
			kept, removed := reconcile.PruneMissing(t.MissingAssets, scanned)
			t.MissingAssets = kept
			for _, m := range removed {
				s.logger.Info("missing asset found", "task_id", t.ID, "asset_code", m.AssetCode, "missing_id", m.ID)
			}
		}
		s.logger.Debug("scan recorded", "task_id", t.ID, "code", scanned.QRCode, "status", scanned.Status)
		s.start(t)
		return nil
	})
}

// FlagDamaged marks a verified scan as damaged after operator inspection.
// Flagging an already damaged scan is a no-op; unexpected scans cannot be
// flagged.
func (s *Service) FlagDamaged(ctx context.Context, taskID, scanID string) (audit.AuditTask, error) {
	return s.update(ctx, taskID, func(t *audit.AuditTask) error {
		for i := range t.ScannedAssets {
			if t.ScannedAssets[i].ID != scanID {
				continue
			}
			switch t.ScannedAssets[i].Status {
			case audit.ScanDamaged:
				return nil
			case audit.ScanVerified:
				t.ScannedAssets[i].Status = audit.ScanDamaged
				s.logger.Info("scan flagged damaged", "task_id", t.ID, "scan_id", scanID, "code", t.ScannedAssets[i].QRCode)
				return nil
			default:
				return audit.NewInvalidTransition(t.ID, fmt.Sprintf("scan %q is %s; only verified scans can be flagged damaged", scanID, t.ScannedAssets[i].Status))
			}
		}
		return audit.NewItemNotFound(taskID, "scan", scanID)
	})
}

// RefreshOverdue marks Pending and In Progress tasks whose due date has
// passed as Overdue and returns how many changed.
func (s *Service) RefreshOverdue(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.repo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("refresh overdue: %w", err)
	}
	today := s.clock.Now().Format(audit.DateLayout)
	changed := 0
	for _, t := range all {
		if t.Status != audit.StatusPending && t.Status != audit.StatusInProgress {
			continue
		}
		// ISO dates order lexically.
		if t.DueDate == "" || t.DueDate >= today {
			continue
		}
		s.transition(&t, audit.StatusOverdue)
		if err := s.repo.Save(ctx, t); err != nil {
			return changed, fmt.Errorf("refresh overdue: %w", err)
		}
		changed++
	}
	return changed, nil
}

// start applies the Pending -> In Progress transition; any other status is
// left alone.
func (s *Service) start(t *audit.AuditTask) {
	if t.Status == audit.StatusPending {
		s.transition(t, audit.StatusInProgress)
	}
}

func (s *Service) transition(t *audit.AuditTask, to audit.Status) {
	from := t.Status
	t.Status = to
	s.logger.Info("audit task status changed", "task_id", t.ID, "from", from, "to", to)
}
