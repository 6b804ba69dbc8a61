// Package store provides SQLite-backed durable storage for audit tasks.
//
// Store implements audit.TaskRepository. Each task is one row: scalar fields
// are columns, the checklist and the scanned/missing collections are JSON
// TEXT, and the last bulk scan summary is nullable JSON TEXT.
//
// # Ordering
//
//   - seq INTEGER records insertion order and is never rewritten on update
//   - List orders by seq ASC, id ASC COLLATE BINARY
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Schema changes are applied as PRAGMA user_version migrations on Open.
package store
