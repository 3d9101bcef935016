/*
handlers.go - HTTP API handlers for the rota fill engine

PURPOSE:
  Exposes the fill engine via REST. Handlers parse and validate wire
  data, delegate to the engine, and serialize responses; domain logic
  stays in the rota package.

ENDPOINTS:
  Fill:
    POST   /api/fill/check        Pre-fill conflict inspection
    POST   /api/fill              Manual fill (replace after confirmation)
    POST   /api/fill/cancel       Record a declined replace confirmation
    POST   /api/fill/auto         Non-interactive single-staff auto-fill
    POST   /api/fill/batch        Sequential batch auto-fill

  Staff:
    GET    /api/staff/{id}/eligibility  Fill eligibility check
    GET    /api/staff/{id}/records      Month's schedule records
    GET    /api/staff/{id}/logs         Fill logs (superseding refresh)

  Seed data:
    POST   /api/contracts
    POST   /api/templates
    POST   /api/holidays
    POST   /api/leaves

ERROR HANDLING:
  Errors map to status codes by taxonomy: validation 400, business
  dead-ends 422, blocking conflicts 409, platform failures 500.

SEE ALSO:
  - dto.go: Request/response shapes
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/warp/rota-engine/rota"
	"github.com/warp/rota-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      *sqlite.Store
	Orch       *rota.Orchestrator
	Log        *logrus.Logger
	WeekStart  rota.WeekStartDay
	BatchPause time.Duration

	logRefresh *rota.RefreshGuard
}

// NewHandler creates a handler with the given store and orchestrator.
func NewHandler(store *sqlite.Store, orch *rota.Orchestrator, log *logrus.Logger, weekStart rota.WeekStartDay, batchPause time.Duration) *Handler {
	return &Handler{
		Store:      store,
		Orch:       orch,
		Log:        log,
		WeekStart:  weekStart,
		BatchPause: batchPause,
		logRefresh: rota.NewRefreshGuard(),
	}
}

// =============================================================================
// FILL ENDPOINTS
// =============================================================================

func (h *Handler) CheckFill(w http.ResponseWriter, r *http.Request) {
	var req FillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	params, err := req.Params(h.WeekStart)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := h.Orch.CheckForFill(r.Context(), params)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CheckResponse{
		RequiresDialog: res.RequiresDialog,
		Outcome:        res.Outcome.Kind.String(),
		Count:          res.Outcome.Count,
		ProcessedCount: res.Outcome.ProcessedCount,
		TotalCount:     res.Outcome.TotalCount,
		CanProceed:     res.CanProceed,
		ContractID:     res.ContractID,
	})
}

func (h *Handler) PerformFill(w http.ResponseWriter, r *http.Request) {
	var req FillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	params, err := req.Params(h.WeekStart)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := h.Orch.PerformFill(r.Context(), params, req.ContractID, req.ReplaceExisting)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	resp := FillResponse{
		Success:      res.Success,
		State:        res.State.String(),
		CreatedCount: res.CreatedCount,
		DeletedCount: res.DeletedCount,
		Message:      res.Message,
	}
	if res.Outcome != nil {
		resp.RequiresDialog = true
		resp.Outcome = res.Outcome.Kind.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) CancelFill(w http.ResponseWriter, r *http.Request) {
	var req FillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	params, err := req.Params(h.WeekStart)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	// Re-classify so the refusal log carries accurate counts.
	check, err := h.Orch.CheckForFill(r.Context(), params)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.Orch.RecordRefusal(r.Context(), params, check.ContractID, check.Outcome)
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": true})
}

func (h *Handler) AutoFill(w http.ResponseWriter, r *http.Request) {
	var req FillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	params, err := req.Params(h.WeekStart)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := h.Orch.PerformAutoFill(r.Context(), params)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AutoFillResponse{
		Success:      res.Success,
		CreatedCount: res.CreatedCount,
		Skipped:      res.Skipped,
		SkipReason:   res.SkipReason,
	})
}

func (h *Handler) BatchFill(w http.ResponseWriter, r *http.Request) {
	var req BatchFillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	staff := make([]rota.FillParams, 0, len(req.Staff))
	for _, s := range req.Staff {
		params, err := s.Params(h.WeekStart)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		staff = append(staff, params)
	}

	pause := h.BatchPause
	if req.PauseMs > 0 {
		pause = time.Duration(req.PauseMs) * time.Millisecond
	}

	runner := &rota.BatchRunner{Orch: h.Orch, Pause: pause, Log: h.Log}
	run := runner.Start(r.Context(), staff)

	// Drain progress into the log; the HTTP response carries the summary.
	go func() {
		for snap := range run.Progress() {
			entry := h.Log.WithFields(logrus.Fields{
				"completed": snap.Completed,
				"total":     snap.Total,
				"staff":     snap.CurrentStaff,
				"state":     snap.State.String(),
			})
			if snap.IsPaused {
				entry.WithField("remaining", snap.RemainingPause.String()).Debug("batch pause")
			} else {
				entry.Debug("batch progress")
			}
		}
	}()

	result := run.Wait()
	writeJSON(w, http.StatusOK, BatchFillResponse{
		Total:        result.Total,
		Completed:    result.Completed,
		SuccessCount: result.SuccessCount,
		SkippedCount: result.SkippedCount,
		ErrorCount:   result.ErrorCount,
		Cancelled:    result.Cancelled,
	})
}

// =============================================================================
// STAFF ENDPOINTS
// =============================================================================

func (h *Handler) Eligibility(w http.ResponseWriter, r *http.Request) {
	params := rota.FillParams{
		StaffID:   chi.URLParam(r, "id"),
		ManagerID: r.URL.Query().Get("manager"),
		GroupID:   r.URL.Query().Get("group"),
		WeekStart: h.WeekStart,
	}
	date, err := rota.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	params.Date = date

	res, err := h.Orch.CheckEligibility(r.Context(), params)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, EligibilityResponse{
		Eligible:   res.Eligible,
		Reason:     res.Reason,
		ContractID: res.ContractID,
	})
}

func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	month, err := rota.ParseDate(r.URL.Query().Get("month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	records, err := h.Store.ListRecords(r.Context(),
		chi.URLParam(r, "id"), r.URL.Query().Get("manager"), r.URL.Query().Get("group"), month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// ListLogs serves a staff member's fill logs. Rapid repeat requests for
// the same staff supersede each other: the newer request cancels the
// older one's context, last request wins.
func (h *Handler) ListLogs(w http.ResponseWriter, r *http.Request) {
	staffID := chi.URLParam(r, "id")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	ctx, done := h.logRefresh.Begin(r.Context(), staffID)
	defer done()

	logs, err := h.Store.ListLogs(ctx, staffID, limit)
	if err != nil {
		if ctx.Err() != nil {
			// Superseded by a newer refresh for the same staff.
			writeError(w, http.StatusConflict, ctx.Err())
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// =============================================================================
// SEED ENDPOINTS
// =============================================================================

func (h *Handler) CreateContract(w http.ResponseWriter, r *http.Request) {
	var req ContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	hours, err := decimal.NewFromString(req.ContractedHours)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	contract := rota.Contract{
		ID:              req.ID,
		TemplateName:    req.TemplateName,
		ContractedHours: hours,
		StaffID:         req.StaffID,
		ManagerID:       req.ManagerID,
		GroupID:         req.GroupID,
		AutoSchedule:    req.AutoSchedule,
	}
	if contract.Start, err = optionalDate(req.Start); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if contract.Finish, err = optionalDate(req.Finish); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.Store.SaveContract(r.Context(), contract); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, contract)
}

func (h *Handler) CreateTemplateRow(w http.ResponseWriter, r *http.Request) {
	var req TemplateRowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	row := rota.WeeklyTemplateRow{
		ID:           req.ID,
		ContractID:   req.ContractID,
		Week:         req.Week,
		Shift:        req.Shift,
		LunchMinutes: req.LunchMinutes,
	}
	for i, d := range req.Days {
		row.Days[i] = rota.DayTimes{Start: d.Start, End: d.End}
	}
	if err := h.Store.SaveTemplateRow(r.Context(), row); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req HolidayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	date, err := rota.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.Store.SaveHoliday(r.Context(), rota.Holiday{Date: date, Title: req.Title}); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func (h *Handler) CreateLeave(w http.ResponseWriter, r *http.Request) {
	var req LeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	start, err := rota.ParseDate(req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	lp := rota.LeavePeriod{
		ID:          req.ID,
		Start:       start,
		TypeOfLeave: req.TypeOfLeave,
		Title:       req.Title,
	}
	if lp.Finish, err = optionalDate(req.Finish); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.Store.SaveLeave(r.Context(), req.StaffID, req.ManagerID, req.GroupID, lp); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case rota.IsClientError(err):
		writeError(w, http.StatusBadRequest, err)
	case rota.IsBlocked(err):
		writeError(w, http.StatusConflict, err)
	case rota.IsBusinessHalt(err):
		writeError(w, http.StatusUnprocessableEntity, err)
	default:
		h.Log.WithError(err).Error("fill request failed")
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func optionalDate(s *string) (*rota.DateOnly, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	d, err := rota.ParseDate(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
