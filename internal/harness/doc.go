// Package harness runs scripted audit scenarios against a fresh task
// service and checks the outcome.
//
// A scenario drives the same components the CLI and HTTP server do: task
// lifecycle operations, the live-scan debouncer, catalog classification and
// the simulated bulk scan. Time is a fake clock that only moves on
// advance_clock, and ids come from counters, so a run is byte-for-byte
// reproducible and its trace can be compared against a golden file.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario demonstrates"
//	settings:
//	  require_checklist: true
//	  reconcile_missing: true
//	  debounce: 2s
//	flow:
//	  - action: create_task
//	    form: { assetName: Server Room A, assignedTo: J. Doe, dueDate: "2025-01-15" }
//	    expect: { status: Pending }
//	  - action: bulk_scan
//	    task: AUD-001
//	  - action: decode
//	    task: AUD-001
//	    code: ASSET-006
//	  - action: decode
//	    task: AUD-001
//	    code: ASSET-006
//	    expect: { suppressed: true }
//	  - action: advance_clock
//	    duration: 2s
//	  - action: mark_complete
//	    task: AUD-001
//	    expect: { error: CHECKLIST_INCOMPLETE }
//	assertions:
//	  - type: missing_count
//	    task: AUD-001
//	    count: 2
//	  - type: scan_status
//	    task: AUD-001
//	    code: ASSET-006
//	    status: verified
//
// Actions: create_task, add_checklist_item, toggle_checklist_item, decode,
// record_scan, bulk_scan, flag_damaged, mark_complete, advance_clock,
// refresh_overdue. decode goes through the per-task debouncer the way a
// camera session does; record_scan bypasses it the way the HTTP endpoint
// does.
//
// Assertions: task_status, task_count, scanned_count, missing_count,
// missing_contains, scan_status, checklist_done.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/bulk_then_live.yaml")
//	result, err := harness.Run(ctx, scenario)
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        fmt.Println(msg)
//	    }
//	}
package harness
