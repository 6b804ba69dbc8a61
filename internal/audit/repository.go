package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrTaskExists is wrapped by Create when the task id is already stored.
var ErrTaskExists = errors.New("task id already exists")

// TaskRepository is the single source of truth for audit tasks.
//
// Get returns an Error with ErrCodeNotFound for unknown ids. Implementations
// must hand out copies; mutating a returned task never changes stored state.
//
// Create inserts a new task and never overwrites: an id that is already
// stored yields an error wrapping ErrTaskExists. Save upserts and is used
// for updates. LastSequence reports the highest n among stored ids of the
// form "<prefix>-<n>", or 0 when there are none.
type TaskRepository interface {
	Get(ctx context.Context, id string) (AuditTask, error)
	List(ctx context.Context) ([]AuditTask, error)
	Create(ctx context.Context, task AuditTask) error
	Save(ctx context.Context, task AuditTask) error
	LastSequence(ctx context.Context, prefix string) (int, error)
}

// MemoryRepository is a process-local TaskRepository.
//
// Thread-safety: all methods are safe for concurrent use.
type MemoryRepository struct {
	mu    sync.RWMutex
	tasks map[string]AuditTask
	order []string
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{tasks: make(map[string]AuditTask)}
}

func (r *MemoryRepository) Get(_ context.Context, id string) (AuditTask, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[id]
	if !ok {
		return AuditTask{}, NewTaskNotFound(id)
	}
	return t.Clone(), nil
}

// List returns tasks in insertion order.
func (r *MemoryRepository) List(_ context.Context) ([]AuditTask, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]AuditTask, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.tasks[id].Clone())
	}
	return out, nil
}

func (r *MemoryRepository) Create(_ context.Context, task AuditTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[task.ID]; ok {
		return fmt.Errorf("create %s: %w", task.ID, ErrTaskExists)
	}
	r.order = append(r.order, task.ID)
	r.tasks[task.ID] = task.Clone()
	return nil
}

func (r *MemoryRepository) LastSequence(_ context.Context, prefix string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	last := 0
	for id := range r.tasks {
		if n, ok := ParseSequence(prefix, id); ok && n > last {
			last = n
		}
	}
	return last, nil
}

func (r *MemoryRepository) Save(_ context.Context, task AuditTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[task.ID]; !ok {
		r.order = append(r.order, task.ID)
	}
	r.tasks[task.ID] = task.Clone()
	return nil
}
