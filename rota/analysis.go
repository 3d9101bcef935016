package rota

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ANALYSIS - Per-run statistics for audit reporting
// =============================================================================

// Analysis accumulates one fill run's statistics. Not safe for concurrent
// use; each run owns its own recorder.
type Analysis struct {
	DaysGenerated  int
	DaysSkipped    int
	HolidayCount   int
	LeaveCount     int
	DeletedRecords int
	SavedCount     int
	FailedCount    int
	PlannedHours   decimal.Decimal
}

func NewAnalysis() *Analysis {
	return &Analysis{PlannedHours: decimal.Zero}
}

// RecordGenerated notes one emitted record and its overlays.
func (a *Analysis) RecordGenerated(tmpl ScheduleTemplate, isHoliday, onLeave bool) {
	a.DaysGenerated++
	if isHoliday {
		a.HolidayCount++
	}
	if onLeave {
		a.LeaveCount++
	}
	a.PlannedHours = a.PlannedHours.Add(
		decimal.NewFromInt(int64(tmpl.WorkedMinutes())).Div(decimal.NewFromInt(60)))
}

// RecordSkipped notes a date with no applicable template.
func (a *Analysis) RecordSkipped() { a.DaysSkipped++ }

// RecordDeleted notes replaced records removed before generation.
func (a *Analysis) RecordDeleted(n int) { a.DeletedRecords += n }

// RecordPersist notes one persistence attempt.
func (a *Analysis) RecordPersist(ok bool) {
	if ok {
		a.SavedCount++
	} else {
		a.FailedCount++
	}
}

// Summary renders the audit-log message for this run.
func (a *Analysis) Summary() string {
	return fmt.Sprintf(
		"saved %d of %d generated (%d skipped, %d holidays, %d on leave, %d replaced, %s planned hours)",
		a.SavedCount, a.DaysGenerated, a.DaysSkipped, a.HolidayCount,
		a.LeaveCount, a.DeletedRecords, a.PlannedHours.StringFixed(2))
}
