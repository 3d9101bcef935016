package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/rota-engine/rota"
	"github.com/warp/rota-engine/store/sqlite"
)

// =============================================================================
// TEST HARNESS - Full HTTP stack over a real SQLite store
// =============================================================================

func testServer(t *testing.T) (*httptest.Server, *sqlite.Store) {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "rota.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)

	orch := &rota.Orchestrator{
		Contracts:    store,
		Templates:    store,
		Holidays:     store,
		Leaves:       store,
		Records:      store,
		Audit:        store,
		TZ:           rota.NewTimeZoneAdjuster(rota.StaticTimeZoneSource{}, time.UTC),
		Log:          log,
		PersistDelay: time.Millisecond,
	}

	h := NewHandler(store, orch, log, rota.WeekStartMonday, time.Millisecond)
	srv := httptest.NewServer(NewRouter(h))
	t.Cleanup(srv.Close)
	return srv, store
}

func postJSON(t *testing.T, srv *httptest.Server, path string, body any) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+path, "application/json", bytes.NewReader(buf))
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func seedStaff(t *testing.T, srv *httptest.Server, contractID, staffID string) {
	t.Helper()

	resp := postJSON(t, srv, "/api/contracts", ContractRequest{
		ID: contractID, TemplateName: "Standard", ContractedHours: "37.5",
		StaffID: staffID, ManagerID: "mgr-1", GroupID: "grp-1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	row := TemplateRowRequest{ID: "row-" + contractID, ContractID: contractID, Week: 1, Shift: 1, LunchMinutes: 60}
	for day := 0; day < 5; day++ {
		row.Days[day] = DayTimeDTO{Start: "09:00", End: "17:00"}
	}
	resp = postJSON(t, srv, "/api/templates", row)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
}

func fillRequest(staffID string) FillRequest {
	return FillRequest{
		Date: "2025-09-01", StaffID: staffID, StaffName: staffID,
		ManagerID: "mgr-1", GroupID: "grp-1",
	}
}

// =============================================================================
// FILL FLOW
// =============================================================================

func TestFillFlow_EndToEnd(t *testing.T) {
	srv, _ := testServer(t)
	seedStaff(t, srv, "c1", "staff-1")

	// Check: empty month, no dialog needed.
	check := decode[CheckResponse](t, postJSON(t, srv, "/api/fill/check", fillRequest("staff-1")))
	assert.False(t, check.RequiresDialog)
	assert.True(t, check.CanProceed)
	assert.Equal(t, "c1", check.ContractID)

	// Fill: 22 weekdays in September 2025.
	fill := decode[FillResponse](t, postJSON(t, srv, "/api/fill", fillRequest("staff-1")))
	assert.True(t, fill.Success)
	assert.Equal(t, "done", fill.State)
	assert.Equal(t, 22, fill.CreatedCount)

	// Records are listed back for the month.
	resp, err := http.Get(srv.URL + "/api/staff/staff-1/records?manager=mgr-1&group=grp-1&month=2025-09-01")
	require.NoError(t, err)
	records := decode[[]sqlite.RecordRow](t, resp)
	assert.Len(t, records, 22)

	// A second fill without confirmation halts at the dialog.
	again := decode[FillResponse](t, postJSON(t, srv, "/api/fill", fillRequest("staff-1")))
	assert.False(t, again.Success)
	assert.Equal(t, "awaiting_confirmation", again.State)
	assert.True(t, again.RequiresDialog)
	assert.Equal(t, "replace", again.Outcome)

	// Confirming the replace regenerates the month.
	confirm := fillRequest("staff-1")
	confirm.ReplaceExisting = true
	redo := decode[FillResponse](t, postJSON(t, srv, "/api/fill", confirm))
	assert.True(t, redo.Success)
	assert.Equal(t, 22, redo.DeletedCount)
	assert.Equal(t, 22, redo.CreatedCount)
}

func TestFill_ProcessedRecordsConflict(t *testing.T) {
	srv, store := testServer(t)
	seedStaff(t, srv, "c1", "staff-1")

	fill := decode[FillResponse](t, postJSON(t, srv, "/api/fill", fillRequest("staff-1")))
	require.True(t, fill.Success)

	// Mark one record exported, then retry with replace confirmed.
	records, err := store.ListRecords(context.Background(), "staff-1", "mgr-1", "grp-1", rota.NewDate(2025, time.September, 1))
	require.NoError(t, err)
	require.NotEmpty(t, records)
	require.NoError(t, store.SetRecordProcessed(context.Background(), records[0].ID, 1, "batch-1"))

	confirm := fillRequest("staff-1")
	confirm.ReplaceExisting = true
	resp := postJSON(t, srv, "/api/fill", confirm)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestFill_ErrorStatusCodes(t *testing.T) {
	srv, _ := testServer(t)

	t.Run("validation error is 400", func(t *testing.T) {
		bad := fillRequest("staff-1")
		bad.GroupID = ""
		resp := postJSON(t, srv, "/api/fill", bad)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("no contract is 422", func(t *testing.T) {
		resp := postJSON(t, srv, "/api/fill", fillRequest("nobody"))
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})
}

func TestAutoFill_SkipsBlockedStaff(t *testing.T) {
	srv, store := testServer(t)
	seedStaff(t, srv, "c1", "staff-1")

	fill := decode[FillResponse](t, postJSON(t, srv, "/api/fill", fillRequest("staff-1")))
	require.True(t, fill.Success)
	records, err := store.ListRecords(context.Background(), "staff-1", "mgr-1", "grp-1", rota.NewDate(2025, time.September, 1))
	require.NoError(t, err)
	require.NoError(t, store.SetRecordProcessed(context.Background(), records[0].ID, 1, ""))

	res := decode[AutoFillResponse](t, postJSON(t, srv, "/api/fill/auto", fillRequest("staff-1")))
	assert.False(t, res.Success)
	assert.True(t, res.Skipped)
	assert.NotEmpty(t, res.SkipReason)
}

func TestBatchFill(t *testing.T) {
	srv, _ := testServer(t)
	seedStaff(t, srv, "c1", "staff-1")
	seedStaff(t, srv, "c2", "staff-2")

	a := fillRequest("staff-1")
	a.AutoSchedule = true
	b := fillRequest("staff-2")
	b.AutoSchedule = true
	optedOut := fillRequest("staff-3")

	res := decode[BatchFillResponse](t, postJSON(t, srv, "/api/fill/batch", BatchFillRequest{
		Staff:   []FillRequest{a, b, optedOut},
		PauseMs: 1,
	}))
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 2, res.SuccessCount)
	assert.Zero(t, res.ErrorCount)
	assert.False(t, res.Cancelled)
}

func TestEligibilityEndpoint(t *testing.T) {
	srv, _ := testServer(t)
	seedStaff(t, srv, "c1", "staff-1")

	resp, err := http.Get(srv.URL + "/api/staff/staff-1/eligibility?manager=mgr-1&group=grp-1&date=2025-09-01")
	require.NoError(t, err)
	res := decode[EligibilityResponse](t, resp)
	assert.True(t, res.Eligible)
	assert.Equal(t, "c1", res.ContractID)

	resp, err = http.Get(srv.URL + "/api/staff/ghost/eligibility?manager=mgr-1&group=grp-1&date=2025-09-01")
	require.NoError(t, err)
	ghost := decode[EligibilityResponse](t, resp)
	assert.False(t, ghost.Eligible)
	assert.NotEmpty(t, ghost.Reason)
}

func TestListLogs(t *testing.T) {
	srv, _ := testServer(t)
	seedStaff(t, srv, "c1", "staff-1")

	fill := decode[FillResponse](t, postJSON(t, srv, "/api/fill", fillRequest("staff-1")))
	require.True(t, fill.Success)

	resp, err := http.Get(srv.URL + "/api/staff/staff-1/logs")
	require.NoError(t, err)
	logs := decode[[]sqlite.LogRow](t, resp)
	require.Len(t, logs, 1)
	assert.Equal(t, int(rota.ResultSuccess), logs[0].Result)
}

func TestCancelFill_WritesRefusalLog(t *testing.T) {
	srv, store := testServer(t)
	seedStaff(t, srv, "c1", "staff-1")

	fill := decode[FillResponse](t, postJSON(t, srv, "/api/fill", fillRequest("staff-1")))
	require.True(t, fill.Success)

	resp := postJSON(t, srv, "/api/fill/cancel", fillRequest("staff-1"))
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	logs, err := store.ListLogs(context.Background(), "staff-1", 10)
	require.NoError(t, err)
	require.Len(t, logs, 2) // fill success + refusal
	assert.Equal(t, int(rota.ResultInfo), logs[0].Result)
}
