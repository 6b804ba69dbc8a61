package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/assetaudit/internal/audit"
	"github.com/roach88/assetaudit/internal/catalog"
	"github.com/roach88/assetaudit/internal/reconcile"
	"github.com/roach88/assetaudit/internal/scan"
	"github.com/roach88/assetaudit/internal/tasks"
	"github.com/roach88/assetaudit/internal/testutil"
)

type harness struct {
	t      *testing.T
	srv    *httptest.Server
	svc    *tasks.Service
	runner *scan.BulkRunner
}

func newHarness(t *testing.T, opts ...tasks.Option) *harness {
	t.Helper()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := testutil.NewFakeClock(time.Time{})

	svc := tasks.New(audit.NewMemoryRepository(),
		append([]tasks.Option{tasks.WithClock(clock), tasks.WithLogger(quiet)}, opts...)...)
	engine := reconcile.New(catalog.Default(), testutil.NewCounterGenerator("scan"), clock)
	provider := &scan.SimulatedProvider{Tick: time.Millisecond, Step: 25, Clock: clock}
	runner := scan.NewBulkRunner(provider, svc, quiet)

	srv := httptest.NewServer(NewServer(svc, runner, engine, quiet).Routes())
	t.Cleanup(func() {
		srv.Close()
		runner.Close()
	})
	return &harness{t: t, srv: srv, svc: svc, runner: runner}
}

func (h *harness) do(method, path string, body any) (*http.Response, []byte) {
	h.t.Helper()
	var rd io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			rd = bytes.NewBufferString(b)
		default:
			data, err := json.Marshal(b)
			require.NoError(h.t, err)
			rd = bytes.NewReader(data)
		}
	}
	req, err := http.NewRequest(method, h.srv.URL+path, rd)
	require.NoError(h.t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(h.t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)
	return resp, data
}

func (h *harness) create(name string) audit.AuditTask {
	h.t.Helper()
	resp, body := h.do(http.MethodPost, "/tasks", map[string]any{
		"assetName":  name,
		"assignedTo": "J. Doe",
		"dueDate":    "2025-01-01",
	})
	require.Equal(h.t, http.StatusCreated, resp.StatusCode, string(body))
	var task audit.AuditTask
	require.NoError(h.t, json.Unmarshal(body, &task))
	return task
}

func decodeError(t *testing.T, body []byte) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	require.NoError(t, json.Unmarshal(body, &e))
	return e
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	resp, body := h.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestCreateAndGetTask(t *testing.T) {
	h := newHarness(t)
	task := h.create("Server Room A")

	assert.Equal(t, "AUD-001", task.ID)
	assert.Equal(t, audit.StatusPending, task.Status)
	assert.Equal(t, audit.TypeITAssets, task.Type)

	resp, body := h.do(http.MethodGet, "/tasks/AUD-001", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got audit.AuditTask
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "Server Room A", got.AssetName)
	assert.NotNil(t, got.Checklist)
}

func TestCreateTask_ValidationError(t *testing.T) {
	h := newHarness(t)
	resp, body := h.do(http.MethodPost, "/tasks", map[string]any{"assetName": "  "})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	e := decodeError(t, body)
	assert.Equal(t, "VALIDATION_FAILED", e.Code)
	assert.Contains(t, e.Fields, "assetName")
	assert.Contains(t, e.Fields, "assignedTo")
	assert.Contains(t, e.Fields, "dueDate")
	assert.NotEmpty(t, e.RequestID)
}

func TestCreateTask_BadJSON(t *testing.T) {
	h := newHarness(t)
	resp, body := h.do(http.MethodPost, "/tasks", `{"assetName": `)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "BAD_JSON", decodeError(t, body).Code)

	resp, _ = h.do(http.MethodPost, "/tasks", `{"bogus": 1}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetTask_NotFound(t *testing.T) {
	h := newHarness(t)
	resp, body := h.do(http.MethodGet, "/tasks/AUD-404", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", decodeError(t, body).Code)
}

func TestListTasks_Filter(t *testing.T) {
	h := newHarness(t)
	h.create("Server Room A")
	h.create("Warehouse 7")

	resp, body := h.do(http.MethodGet, "/tasks?q=server", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []audit.AuditTask
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Server Room A", list[0].AssetName)

	_, body = h.do(http.MethodGet, "/tasks?status=Completed", nil)
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Empty(t, list)
}

func TestChecklistAndComplete(t *testing.T) {
	h := newHarness(t, tasks.WithRequireChecklist(true))
	task := h.create("Server Room A")

	resp, body := h.do(http.MethodPost, "/tasks/"+task.ID+"/checklist",
		AddChecklistItemRequest{Description: "Check seals", Required: true})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var updated audit.AuditTask
	require.NoError(t, json.Unmarshal(body, &updated))
	require.Len(t, updated.Checklist, 1)
	itemID := updated.Checklist[0].ID

	resp, body = h.do(http.MethodPost, "/tasks/"+task.ID+"/complete", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "CHECKLIST_INCOMPLETE", decodeError(t, body).Code)

	resp, _ = h.do(http.MethodPost, "/tasks/"+task.ID+"/checklist/"+itemID+"/toggle", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = h.do(http.MethodPost, "/tasks/"+task.ID+"/complete", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, audit.StatusCompleted, updated.Status)

	resp, _ = h.do(http.MethodPost, "/tasks/"+task.ID+"/checklist/99/toggle", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRecordScanAndFlagDamaged(t *testing.T) {
	h := newHarness(t)
	task := h.create("Server Room A")

	resp, body := h.do(http.MethodPost, "/tasks/"+task.ID+"/scans", RecordScanRequest{Code: "ASSET-001"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var updated audit.AuditTask
	require.NoError(t, json.Unmarshal(body, &updated))
	require.Len(t, updated.ScannedAssets, 1)
	assert.Equal(t, audit.ScanVerified, updated.ScannedAssets[0].Status)
	assert.Equal(t, audit.StatusInProgress, updated.Status)
	scanID := updated.ScannedAssets[0].ID

	resp, body = h.do(http.MethodPost, "/tasks/"+task.ID+"/scans", RecordScanRequest{Code: "XYZ"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, "Unknown Asset (XYZ)", updated.ScannedAssets[0].Name)
	unexpectedID := updated.ScannedAssets[0].ID

	resp, body = h.do(http.MethodPost, "/tasks/"+task.ID+"/scans/"+scanID+"/damaged", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, audit.ScanDamaged, updated.ScannedAssets[1].Status)

	resp, body = h.do(http.MethodPost, "/tasks/"+task.ID+"/scans/"+unexpectedID+"/damaged", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INVALID_TRANSITION", decodeError(t, body).Code)

	resp, body = h.do(http.MethodPost, "/tasks/"+task.ID+"/scans", RecordScanRequest{Code: "  "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decodeError(t, body).Fields, "code")
}

func TestBulkScan(t *testing.T) {
	h := newHarness(t)
	task := h.create("Server Room A")

	resp, body := h.do(http.MethodPost, "/tasks/"+task.ID+"/bulk-scan", nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(body))

	assert.Eventually(t, func() bool { return !h.runner.Running(task.ID) }, 2*time.Second, 5*time.Millisecond)

	got, err := h.svc.Get(context.Background(), task.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ScanResults)
	assert.Equal(t, 185, got.ScanResults.TotalAssets)
	assert.Len(t, got.MissingAssets, 3)

	resp, body = h.do(http.MethodGet, "/tasks/"+task.ID+"/bulk-scan", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"taskId":"AUD-001","running":false}`, string(body))
}

func TestBulkScan_UnknownTask(t *testing.T) {
	h := newHarness(t)
	resp, _ := h.do(http.MethodPost, "/tasks/AUD-404/bulk-scan", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStatsAndCatalog(t *testing.T) {
	h := newHarness(t)
	h.create("Server Room A")

	resp, body := h.do(http.MethodGet, "/tasks/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var st tasks.Stats
	require.NoError(t, json.Unmarshal(body, &st))
	assert.Equal(t, 1, st.Total)
	assert.Equal(t, 1, st.ByStatus[audit.StatusPending])

	resp, body = h.do(http.MethodGet, "/catalog", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var entries []CatalogEntry
	require.NoError(t, json.Unmarshal(body, &entries))
	require.Len(t, entries, 8)
	assert.Equal(t, "ASSET-001", entries[0].Code)
	assert.Equal(t, "Dell Laptop XPS 13", entries[0].Name)
}

func TestRefreshOverdue(t *testing.T) {
	h := newHarness(t)
	h.create("Server Room A") // due 2025-01-01, clock is 2025-01-01

	resp, body := h.do(http.MethodPost, "/tasks/refresh-overdue", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"updated":0}`, string(body))
}
