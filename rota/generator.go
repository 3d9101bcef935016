/*
generator.go - Day-by-day record generation

PURPOSE:
  Walks every date of the generation period, resolves the applicable
  template via the week chain, converts template times through the
  timezone adjuster, overlays holidays and leave, and emits candidate
  records in ascending date order.

POLICY BOUNDARY:
  Holiday and leave are annotations on the emitted record, never
  generation blockers. A date may be both a holiday and on leave and
  still produce a record. Any policy that suppresses such days belongs
  to the orchestrator, not here.
*/
package rota

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// RecordGenerator emits candidate records for one fill run.
type RecordGenerator struct {
	TZ *TimeZoneAdjuster
}

// Generate iterates [period.First, period.Last] inclusive. Dates with no
// template for their (templateWeek, dayNumber) slot are skipped and counted
// in the analysis; they never produce zero-hour records.
func (g *RecordGenerator) Generate(
	ctx context.Context,
	params FillParams,
	contract Contract,
	period Period,
	templates *TemplateIndex,
	calendar *HolidayLeaveIndex,
	analysis *Analysis,
) ([]GeneratedRecord, error) {
	monthStart := StartOfMonth(period.First)
	weekCount := templates.WeekCount()

	var out []GeneratedRecord
	for date := period.First; date.BeforeOrEqual(period.Last); date = date.AddDays(1) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pos := WeekAndDay(date, monthStart, params.WeekStart, weekCount)
		tmpl, ok := templates.Lookup(pos.TemplateWeek, pos.DayNumber)
		if !ok {
			analysis.RecordSkipped()
			continue
		}

		start, err := g.TZ.Adjust(ctx, tmpl.Start, date)
		if err != nil {
			return nil, err
		}
		end, err := g.TZ.Adjust(ctx, tmpl.End, date)
		if err != nil {
			return nil, err
		}

		shiftStart := date.At(start.Hour, start.Minute)
		shiftEnd := date.At(end.Hour, end.Minute)
		if !shiftEnd.After(shiftStart) {
			// Shift crosses midnight after adjustment.
			shiftEnd = shiftEnd.AddDate(0, 0, 1)
		}

		isHoliday := calendar.IsHoliday(date)
		leaveType := ""
		if lp := calendar.LeaveFor(date); lp != nil {
			leaveType = lp.TypeOfLeave
		}

		out = append(out, GeneratedRecord{
			ID:           uuid.NewString(),
			Date:         date,
			ShiftStart:   shiftStart,
			ShiftEnd:     shiftEnd,
			LunchMinutes: tmpl.LunchMinutes,
			ContractID:   contract.ID,
			StaffID:      params.StaffID,
			ManagerID:    params.ManagerID,
			GroupID:      params.GroupID,
			IsHoliday:    isHoliday,
			LeaveType:    leaveType,
			Title:        recordTitle(contract, tmpl),
		})
		analysis.RecordGenerated(tmpl, isHoliday, leaveType != "")
	}
	return out, nil
}

// recordTitle encodes the record's provenance: contract, template week
// and shift number.
func recordTitle(contract Contract, tmpl ScheduleTemplate) string {
	name := contract.TemplateName
	if name == "" {
		name = contract.ID
	}
	return fmt.Sprintf("%s w%d s%d", name, tmpl.Week, tmpl.Shift)
}
