package store

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/roach88/assetaudit/internal/audit"
)

const insertTask = `
		INSERT INTO tasks
		(id, seq, asset_name, type, status, priority, assigned_to, due_date, created_at,
		 notes, checklist, missing_assets, scanned_assets, scan_results)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM tasks), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// Create inserts a new task. It never touches an existing row: a taken id
// yields an error wrapping audit.ErrTaskExists.
func (s *Store) Create(ctx context.Context, task audit.AuditTask) error {
	args, err := taskArgs(task)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	res, err := s.db.ExecContext(ctx, insertTask+`
		ON CONFLICT(id) DO NOTHING
	`, args...)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("create task %s: %w", task.ID, audit.ErrTaskExists)
	}
	return nil
}

// Save inserts or replaces a task. A new task takes the next seq; an
// existing task keeps its seq so listing order is stable across updates.
func (s *Store) Save(ctx context.Context, task audit.AuditTask) error {
	args, err := taskArgs(task)
	if err != nil {
		return fmt.Errorf("save task: %w", err)
	}
	_, err = s.db.ExecContext(ctx, insertTask+`
		ON CONFLICT(id) DO UPDATE SET
			asset_name     = excluded.asset_name,
			type           = excluded.type,
			status         = excluded.status,
			priority       = excluded.priority,
			assigned_to    = excluded.assigned_to,
			due_date       = excluded.due_date,
			created_at     = excluded.created_at,
			notes          = excluded.notes,
			checklist      = excluded.checklist,
			missing_assets = excluded.missing_assets,
			scanned_assets = excluded.scanned_assets,
			scan_results   = excluded.scan_results
	`, args...)
	if err != nil {
		return fmt.Errorf("save task: %w", err)
	}
	return nil
}

// LastSequence returns the highest n among ids "<prefix>-<n>", or 0.
func (s *Store) LastSequence(ctx context.Context, prefix string) (int, error) {
	p := prefix + "-"
	n := utf8.RuneCountInString(p)

	var last int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(CAST(SUBSTR(id, ?) AS INTEGER)), 0)
		FROM tasks
		WHERE SUBSTR(id, 1, ?) = ?
		  AND LENGTH(id) > ?
		  AND SUBSTR(id, ?) NOT GLOB '*[^0-9]*'
	`, n+1, n, p, n, n+1).Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("last task sequence: %w", err)
	}
	return last, nil
}

// taskArgs encodes task in insertTask column order.
func taskArgs(task audit.AuditTask) ([]any, error) {
	checklist, err := marshalJSON(nonNil(task.Checklist))
	if err != nil {
		return nil, fmt.Errorf("marshal checklist: %w", err)
	}
	missing, err := marshalJSON(nonNil(task.MissingAssets))
	if err != nil {
		return nil, fmt.Errorf("marshal missing assets: %w", err)
	}
	scanned, err := marshalJSON(nonNil(task.ScannedAssets))
	if err != nil {
		return nil, fmt.Errorf("marshal scanned assets: %w", err)
	}
	results, err := marshalScanResult(task.ScanResults)
	if err != nil {
		return nil, err
	}
	return []any{
		task.ID,
		task.AssetName,
		string(task.Type),
		string(task.Status),
		string(task.Priority),
		task.AssignedTo,
		task.DueDate,
		task.CreatedAt.UTC().Format(time.RFC3339Nano),
		task.Notes,
		checklist,
		missing,
		scanned,
		results,
	}, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
