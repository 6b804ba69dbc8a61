package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/assetaudit/internal/audit"
	"github.com/roach88/assetaudit/internal/tasks"
)

func TestTaskCreate_Text(t *testing.T) {
	env := newTestEnv(t)

	out, _, err := env.run(NewTaskCommand, "",
		"create", "--name", "Server Room A", "--assignee", "J. Doe", "--due", "2025-01-15", "--notes", "Quarterly")
	require.NoError(t, err)
	assert.Contains(t, out, "Task AUD-001: Server Room A")
	assert.Contains(t, out, "Type: IT Assets")
	assert.Contains(t, out, "Status: Pending")
	assert.Contains(t, out, "Priority: Medium")
	assert.Contains(t, out, "Notes: Quarterly")
	assert.Contains(t, out, "Checklist: none")
	assert.Contains(t, out, "Last bulk scan: none")
}

func TestTaskCreate_ValidationError(t *testing.T) {
	env := newTestEnv(t)

	out, _, err := env.run(NewTaskCommand, "", "create", "--due", "15/01/2025")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [VALIDATION_FAILED]")
	assert.Contains(t, out, "assetName: Asset name is required")
	assert.Contains(t, out, "assignedTo: Assignee is required")
	assert.Contains(t, out, "dueDate: Due date must be formatted as YYYY-MM-DD")

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.True(t, exitErr.Reported)
}

func TestTaskCreate_ValidationErrorJSON(t *testing.T) {
	env := newTestEnv(t).json()

	out, _, err := env.run(NewTaskCommand, "", "create", "--name", "  ", "--assignee", "Ann", "--due", "2025-01-15")
	require.Error(t, err)

	resp := decodeResponse(t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(audit.ErrCodeValidation), resp.Error.Code)
	assert.Equal(t, map[string]interface{}{"assetName": "Asset name is required"}, resp.Error.Details)
}

func TestTaskShow_NotFound(t *testing.T) {
	env := newTestEnv(t).json()

	out, _, err := env.run(NewTaskCommand, "", "show", "AUD-404")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, out)
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(audit.ErrCodeNotFound), resp.Error.Code)
	assert.Equal(t, map[string]interface{}{"taskId": "AUD-404"}, resp.Error.Details)
}

func TestTaskList_NewestFirstAndFilters(t *testing.T) {
	env := newTestEnv(t)
	first := env.createTask("Server Room A", "2025-01-15")
	env.clock.Advance(time.Minute)
	second := env.createTask("Warehouse 7", "2025-02-01", "--priority", "High", "--type", "Inventory")

	env.json()
	out, _, err := env.run(NewTaskCommand, "", "list")
	require.NoError(t, err)
	var list []audit.AuditTask
	decodeData(t, out, &list)
	require.Len(t, list, 2)
	assert.Equal(t, second, list[0].ID)
	assert.Equal(t, first, list[1].ID)

	out, _, err = env.run(NewTaskCommand, "", "list", "--priority", "High")
	require.NoError(t, err)
	decodeData(t, out, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "Warehouse 7", list[0].AssetName)

	out, _, err = env.run(NewTaskCommand, "", "list", "--search", "server ROOM")
	require.NoError(t, err)
	decodeData(t, out, &list)
	require.Len(t, list, 1)
	assert.Equal(t, first, list[0].ID)
}

func TestTaskList_EmptyText(t *testing.T) {
	env := newTestEnv(t)

	out, _, err := env.run(NewTaskCommand, "", "list")
	require.NoError(t, err)
	assert.Equal(t, "No audit tasks.\n", out)
}

func TestTaskComplete_RequireChecklist(t *testing.T) {
	env := newTestEnv(t, "require_checklist: true")
	id := env.createTask("Server Room A", "2025-01-15", "--checklist")

	env.json()
	out, _, err := env.run(NewTaskCommand, "", "complete", id)
	require.Error(t, err)
	resp := decodeResponse(t, out)
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(audit.ErrCodeChecklistIncomplete), resp.Error.Code)

	out, _, err = env.run(NewTaskCommand, "", "show", id)
	require.NoError(t, err)
	var task audit.AuditTask
	decodeData(t, out, &task)
	for _, item := range task.Checklist {
		if !item.Required {
			continue
		}
		_, _, err := env.run(NewChecklistCommand, "", "toggle", id, item.ID)
		require.NoError(t, err, item.ID)
	}

	out, _, err = env.run(NewTaskCommand, "", "complete", id)
	require.NoError(t, err, out)
	decodeData(t, out, &task)
	assert.Equal(t, audit.StatusCompleted, task.Status)
}

func TestTaskComplete_WithoutPolicy(t *testing.T) {
	env := newTestEnv(t)
	id := env.createTask("Server Room A", "2025-01-15", "--checklist")

	out, _, err := env.run(NewTaskCommand, "", "complete", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Status: Completed")
}

func TestTaskRefreshOverdueAndStats(t *testing.T) {
	env := newTestEnv(t)
	env.createTask("Warehouse 7", "2024-12-31")
	env.createTask("Loading Dock", "2025-03-01")

	out, _, err := env.run(NewTaskCommand, "", "refresh-overdue")
	require.NoError(t, err)
	assert.Equal(t, "1 task(s) marked Overdue\n", out)

	// Already Overdue tasks are not counted again.
	out, _, err = env.run(NewTaskCommand, "", "refresh-overdue")
	require.NoError(t, err)
	assert.Equal(t, "0 task(s) marked Overdue\n", out)

	out, _, err = env.run(NewTaskCommand, "", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Total: 2")
	assert.Contains(t, out, "Overdue: 1")
	assert.Contains(t, out, "Pending: 1")

	env.json()
	out, _, err = env.run(NewTaskCommand, "", "stats")
	require.NoError(t, err)
	var st tasks.Stats
	decodeData(t, out, &st)
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, 1, st.ByStatus[audit.StatusOverdue])
}

func TestChecklist_AddAndToggle(t *testing.T) {
	env := newTestEnv(t)
	id := env.createTask("Server Room A", "2025-01-15")

	out, _, err := env.run(NewChecklistCommand, "", "add", id, "Verify rack labels", "--required")
	require.NoError(t, err)
	assert.Contains(t, out, "Checklist: 0/1 (0%)")
	assert.Contains(t, out, "Verify rack labels (required)")

	env.json()
	out, _, err = env.run(NewChecklistCommand, "", "toggle", id, "1")
	require.NoError(t, err)
	var task audit.AuditTask
	decodeData(t, out, &task)
	require.Len(t, task.Checklist, 1)
	assert.True(t, task.Checklist[0].Completed)

	out, _, err = env.run(NewChecklistCommand, "", "toggle", id, "99")
	require.Error(t, err)
	resp := decodeResponse(t, out)
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(audit.ErrCodeNotFound), resp.Error.Code)
}

func TestChecklist_AddBlankDescription(t *testing.T) {
	env := newTestEnv(t)
	id := env.createTask("Server Room A", "2025-01-15")

	out, _, err := env.run(NewChecklistCommand, "", "add", id, "   ")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [VALIDATION_FAILED]")
}
