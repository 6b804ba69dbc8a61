// Package audit defines the audit-task data model shared by the state
// machine, the reconciliation engine, the scan producers and storage.
//
// An AuditTask moves Pending -> In Progress when its first scan (bulk or
// live) is recorded, and to Completed only through an explicit completion.
// Overdue is derived from the due date at read time.
//
// The package also holds the TaskRepository contract with an in-memory
// implementation, the structured Error type, task-form validation and the
// per-type checklist templates.
package audit
