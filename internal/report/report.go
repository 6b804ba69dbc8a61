// Package report renders audit tasks as plain text for the CLI.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/roach88/assetaudit/internal/audit"
	"github.com/roach88/assetaudit/internal/tasks"
)

// TaskDetail writes the full view of one task.
func TaskDetail(w io.Writer, t audit.AuditTask) {
	fmt.Fprintf(w, "Task %s: %s\n", t.ID, t.AssetName)
	fmt.Fprintf(w, "  Type: %s\n", t.Type)
	fmt.Fprintf(w, "  Status: %s\n", t.Status)
	fmt.Fprintf(w, "  Priority: %s\n", t.Priority)
	fmt.Fprintf(w, "  Assigned to: %s\n", t.AssignedTo)
	fmt.Fprintf(w, "  Due: %s\n", t.DueDate)
	fmt.Fprintf(w, "  Created: %s\n", t.CreatedAt.UTC().Format(time.RFC3339))
	if t.Notes != "" {
		fmt.Fprintf(w, "  Notes: %s\n", t.Notes)
	}

	if len(t.Checklist) == 0 {
		fmt.Fprintln(w, "Checklist: none")
	} else {
		done, total := t.ChecklistProgress()
		fmt.Fprintf(w, "Checklist: %d/%d (%.0f%%)\n", done, total, t.CompletionPercent())
		for _, item := range t.Checklist {
			mark := " "
			if item.Completed {
				mark = "x"
			}
			req := ""
			if item.Required {
				req = " (required)"
			}
			fmt.Fprintf(w, "  [%s] %s. %s%s\n", mark, item.ID, item.Description, req)
		}
	}

	if r := t.ScanResults; r == nil {
		fmt.Fprintln(w, "Last bulk scan: none")
	} else {
		fmt.Fprintf(w, "Last bulk scan: %d/%d scanned, %d missing, %ds, %s\n",
			r.ScannedCount, r.TotalAssets, r.MissingCount, r.Duration, r.Status)
	}

	fmt.Fprintf(w, "Missing assets: %d\n", len(t.MissingAssets))
	for _, m := range t.MissingAssets {
		fmt.Fprintf(w, "  - [%s] %s (%s) at %s", m.Criticality, m.Name, m.Type, m.ExpectedLocation)
		if m.LastSeen != "" {
			fmt.Fprintf(w, ", last seen %s", m.LastSeen)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Scanned assets: %d\n", len(t.ScannedAssets))
	for _, s := range t.ScannedAssets {
		fmt.Fprintf(w, "  - %s %s: %s at %s, %s\n",
			s.Status, s.QRCode, s.Name, s.Location, s.ScannedAt.UTC().Format(time.RFC3339))
	}
}

// TaskList writes one line per task.
func TaskList(w io.Writer, list []audit.AuditTask) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No audit tasks.")
		return
	}
	for _, t := range list {
		done, total := t.ChecklistProgress()
		fmt.Fprintf(w, "%s [%s] %s - %s (%s, due %s, checklist %d/%d)\n",
			t.ID, t.Status, t.Priority, t.AssetName, t.AssignedTo, t.DueDate, done, total)
	}
}

// Stats writes per-status counts in lifecycle order.
func Stats(w io.Writer, st tasks.Stats) {
	fmt.Fprintf(w, "Total: %d\n", st.Total)
	for _, status := range audit.Statuses {
		fmt.Fprintf(w, "  %s: %d\n", status, st.ByStatus[status])
	}
}

// ScanLine writes the one-line form of a recorded scan, used while a live
// session is running.
func ScanLine(w io.Writer, s audit.ScannedAsset) {
	fmt.Fprintf(w, "%s %s: %s (%s)\n", s.Status, s.QRCode, s.Name, s.Location)
}
