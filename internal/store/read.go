package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/assetaudit/internal/audit"
)

const taskColumns = `id, asset_name, type, status, priority, assigned_to, due_date, created_at,
	notes, checklist, missing_assets, scanned_assets, scan_results`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// Get returns the task with the given id, or a NOT_FOUND error.
func (s *Store) Get(ctx context.Context, id string) (audit.AuditTask, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return audit.AuditTask{}, audit.NewTaskNotFound(id)
	}
	if err != nil {
		return audit.AuditTask{}, fmt.Errorf("get task %s: %w", id, err)
	}
	return task, nil
}

// List returns all tasks in insertion order.
// Returns an empty slice (not nil) when the store is empty.
func (s *Store) List(ctx context.Context) ([]audit.AuditTask, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []audit.AuditTask{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, nil
}

func scanTask(row rowScanner) (audit.AuditTask, error) {
	var (
		task                        audit.AuditTask
		typ, status, priority       string
		createdAt                   string
		checklist, missing, scanned string
		results                     sql.NullString
	)
	err := row.Scan(
		&task.ID,
		&task.AssetName,
		&typ,
		&status,
		&priority,
		&task.AssignedTo,
		&task.DueDate,
		&createdAt,
		&task.Notes,
		&checklist,
		&missing,
		&scanned,
		&results,
	)
	if err != nil {
		return audit.AuditTask{}, err
	}

	task.Type = audit.TaskType(typ)
	task.Status = audit.Status(status)
	task.Priority = audit.Priority(priority)

	task.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return audit.AuditTask{}, fmt.Errorf("parse created_at: %w", err)
	}
	if task.Checklist, err = unmarshalList[audit.ChecklistItem](checklist, "checklist"); err != nil {
		return audit.AuditTask{}, err
	}
	if task.MissingAssets, err = unmarshalList[audit.MissingAsset](missing, "missing_assets"); err != nil {
		return audit.AuditTask{}, err
	}
	if task.ScannedAssets, err = unmarshalList[audit.ScannedAsset](scanned, "scanned_assets"); err != nil {
		return audit.AuditTask{}, err
	}
	if task.ScanResults, err = unmarshalScanResult(results); err != nil {
		return audit.AuditTask{}, err
	}
	return task, nil
}
