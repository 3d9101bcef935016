/*
dto.go - Request/response data structures

PURPOSE:
  JSON shapes for the REST API. Parsing into engine types happens here
  so handlers stay thin and the engine never sees wire data.
*/
package api

import (
	"fmt"

	"github.com/warp/rota-engine/rota"
)

// =============================================================================
// REQUESTS
// =============================================================================

// FillRequest identifies one staff member's fill run.
type FillRequest struct {
	Date            string `json:"date"` // any date in the target month, "2006-01-02"
	StaffID         string `json:"staffId"`
	StaffName       string `json:"staffName"`
	ManagerID       string `json:"managerId"`
	GroupID         string `json:"groupId"`
	AutoSchedule    bool   `json:"autoSchedule"`
	WeekStartDay    int    `json:"weekStartDay,omitempty"` // 0 = server default
	ContractID      string `json:"contractId,omitempty"`
	ReplaceExisting bool   `json:"replaceExisting,omitempty"`
}

// Params converts the request into engine parameters, applying the server
// default week start when the request leaves it unset.
func (r FillRequest) Params(defaultWeekStart rota.WeekStartDay) (rota.FillParams, error) {
	date, err := rota.ParseDate(r.Date)
	if err != nil {
		return rota.FillParams{}, fmt.Errorf("date: %w", err)
	}
	weekStart := defaultWeekStart
	if r.WeekStartDay != 0 {
		weekStart = rota.WeekStartDay(r.WeekStartDay)
	}
	return rota.FillParams{
		Date:         date,
		StaffID:      r.StaffID,
		StaffName:    r.StaffName,
		AutoSchedule: r.AutoSchedule,
		ManagerID:    r.ManagerID,
		GroupID:      r.GroupID,
		WeekStart:    weekStart,
	}, nil
}

// BatchFillRequest runs auto-fill over a staff list.
type BatchFillRequest struct {
	Staff   []FillRequest `json:"staff"`
	PauseMs int           `json:"pauseMs,omitempty"` // 0 = server default
}

// ContractRequest seeds one contract.
type ContractRequest struct {
	ID              string  `json:"id"`
	TemplateName    string  `json:"templateName"`
	ContractedHours string  `json:"contractedHours"`
	Start           *string `json:"start,omitempty"`
	Finish          *string `json:"finish,omitempty"`
	StaffID         string  `json:"staffId"`
	ManagerID       string  `json:"managerId"`
	GroupID         string  `json:"groupId"`
	AutoSchedule    bool    `json:"autoSchedule,omitempty"`
}

// TemplateRowRequest seeds one weekly template row. Days holds seven
// start/end pairs, Monday first; empty or "00:00"/"00:00" pairs mark
// non-working days.
type TemplateRowRequest struct {
	ID           string        `json:"id,omitempty"`
	ContractID   string        `json:"contractId"`
	Week         int           `json:"week"`
	Shift        int           `json:"shift"`
	LunchMinutes int           `json:"lunchMinutes"`
	Days         [7]DayTimeDTO `json:"days"`
}

type DayTimeDTO struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// HolidayRequest seeds one holiday.
type HolidayRequest struct {
	Date  string `json:"date"`
	Title string `json:"title"`
}

// LeaveRequest seeds one leave period.
type LeaveRequest struct {
	ID          string  `json:"id,omitempty"`
	Start       string  `json:"start"`
	Finish      *string `json:"finish,omitempty"` // nil = open-ended
	TypeOfLeave string  `json:"typeOfLeave"`
	Title       string  `json:"title"`
	StaffID     string  `json:"staffId"`
	ManagerID   string  `json:"managerId"`
	GroupID     string  `json:"groupId"`
}

// =============================================================================
// RESPONSES
// =============================================================================

type EligibilityResponse struct {
	Eligible   bool   `json:"eligible"`
	Reason     string `json:"reason,omitempty"`
	ContractID string `json:"contractId,omitempty"`
}

type CheckResponse struct {
	RequiresDialog bool   `json:"requiresDialog"`
	Outcome        string `json:"outcome"`
	Count          int    `json:"count,omitempty"`
	ProcessedCount int    `json:"processedCount,omitempty"`
	TotalCount     int    `json:"totalCount,omitempty"`
	CanProceed     bool   `json:"canProceed"`
	ContractID     string `json:"contractId"`
}

type FillResponse struct {
	Success        bool   `json:"success"`
	State          string `json:"state"`
	CreatedCount   int    `json:"createdCount"`
	DeletedCount   int    `json:"deletedCount"`
	Message        string `json:"message,omitempty"`
	RequiresDialog bool   `json:"requiresDialog,omitempty"`
	Outcome        string `json:"outcome,omitempty"`
}

type AutoFillResponse struct {
	Success      bool   `json:"success"`
	CreatedCount int    `json:"createdCount"`
	Skipped      bool   `json:"skipped"`
	SkipReason   string `json:"skipReason,omitempty"`
}

type BatchFillResponse struct {
	Total        int  `json:"total"`
	Completed    int  `json:"completed"`
	SuccessCount int  `json:"successCount"`
	SkippedCount int  `json:"skippedCount"`
	ErrorCount   int  `json:"errorCount"`
	Cancelled    bool `json:"cancelled"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
