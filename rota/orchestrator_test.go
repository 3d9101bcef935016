package rota_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/rota-engine/rota"
	"github.com/warp/rota-engine/rota/store"
)

// =============================================================================
// TEST FIXTURE
//
// One staff member, one contract, a two-week alternating Monday-to-Friday
// pattern over September 2025 (which opens on a Monday), a Sunday week
// start, a holiday on the third Monday, and leave covering the 10th-12th.
// =============================================================================

const (
	testStaff    = "staff-1"
	testManager  = "mgr-1"
	testGroup    = "grp-1"
	testContract = "contract-1"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testParams() rota.FillParams {
	return rota.FillParams{
		Date:      rota.NewDate(2025, time.September, 1),
		StaffID:   testStaff,
		StaffName: "Pat",
		ManagerID: testManager,
		GroupID:   testGroup,
		WeekStart: rota.WeekStartSunday,
	}
}

func weekdayRow(week int, start, end string) rota.WeeklyTemplateRow {
	row := rota.WeeklyTemplateRow{
		ID:           "row-" + start,
		ContractID:   testContract,
		Week:         week,
		Shift:        1,
		LunchMinutes: 60,
	}
	for day := 0; day < 5; day++ {
		row.Days[day] = rota.DayTimes{Start: start, End: end}
	}
	return row
}

func seedFixture(mem *store.Memory) {
	mem.AddContract(rota.Contract{
		ID:           testContract,
		TemplateName: "Standard",
		StaffID:      testStaff,
		ManagerID:    testManager,
		GroupID:      testGroup,
	})
	mem.AddTemplateRow(weekdayRow(1, "09:00", "17:00"))
	mem.AddTemplateRow(weekdayRow(2, "10:00", "18:00"))
	mem.AddHoliday(rota.Holiday{Date: rota.NewDate(2025, time.September, 15), Title: "Bank Holiday"})
	leaveEnd := rota.NewDate(2025, time.September, 12)
	mem.AddLeave(rota.LeavePeriod{
		ID:          "leave-1",
		Start:       rota.NewDate(2025, time.September, 10),
		Finish:      &leaveEnd,
		TypeOfLeave: "annual",
	})
}

func newOrchestrator(mem *store.Memory) *rota.Orchestrator {
	return &rota.Orchestrator{
		Contracts:    mem,
		Templates:    mem,
		Holidays:     mem,
		Leaves:       mem,
		Records:      mem,
		Audit:        mem,
		TZ:           rota.NewTimeZoneAdjuster(rota.StaticTimeZoneSource{}, time.UTC),
		Log:          quietLogger(),
		PersistDelay: time.Millisecond,
	}
}

func existing(id string, day int) rota.ExistingRecord {
	return rota.ExistingRecord{
		ID:         id,
		Date:       rota.NewDate(2025, time.September, day),
		ContractID: testContract,
	}
}

// =============================================================================
// ELIGIBILITY AND CHECK
// =============================================================================

func TestCheckEligibility(t *testing.T) {
	t.Run("eligible", func(t *testing.T) {
		mem := store.NewMemory()
		seedFixture(mem)

		res, err := newOrchestrator(mem).CheckEligibility(context.Background(), testParams())
		require.NoError(t, err)
		assert.True(t, res.Eligible)
		assert.Equal(t, testContract, res.ContractID)
	})

	t.Run("invalid params", func(t *testing.T) {
		mem := store.NewMemory()
		params := testParams()
		params.StaffID = "0"

		res, err := newOrchestrator(mem).CheckEligibility(context.Background(), params)
		require.NoError(t, err)
		assert.False(t, res.Eligible)
		assert.Contains(t, res.Reason, "staffId")
	})

	t.Run("no contract", func(t *testing.T) {
		mem := store.NewMemory()

		res, err := newOrchestrator(mem).CheckEligibility(context.Background(), testParams())
		require.NoError(t, err)
		assert.False(t, res.Eligible)
		assert.Contains(t, res.Reason, "contract")
	})

	t.Run("no templates", func(t *testing.T) {
		mem := store.NewMemory()
		mem.AddContract(rota.Contract{
			ID: testContract, StaffID: testStaff, ManagerID: testManager, GroupID: testGroup,
		})

		res, err := newOrchestrator(mem).CheckEligibility(context.Background(), testParams())
		require.NoError(t, err)
		assert.False(t, res.Eligible)
		assert.Contains(t, res.Reason, "templates")
	})
}

func TestCheckForFill(t *testing.T) {
	t.Run("empty schedule needs no dialog", func(t *testing.T) {
		mem := store.NewMemory()
		seedFixture(mem)

		res, err := newOrchestrator(mem).CheckForFill(context.Background(), testParams())
		require.NoError(t, err)
		assert.False(t, res.RequiresDialog)
		assert.True(t, res.CanProceed)
	})

	t.Run("unprocessed records ask for confirmation", func(t *testing.T) {
		mem := store.NewMemory()
		seedFixture(mem)
		mem.AddRecord(existing("r1", 3))

		res, err := newOrchestrator(mem).CheckForFill(context.Background(), testParams())
		require.NoError(t, err)
		assert.True(t, res.RequiresDialog)
		assert.True(t, res.CanProceed)
		assert.Equal(t, rota.UnprocessedRecordsReplace, res.Outcome.Kind)
		assert.Equal(t, 1, res.Outcome.Count)
	})

	t.Run("processed records cannot proceed", func(t *testing.T) {
		mem := store.NewMemory()
		seedFixture(mem)
		rec := existing("r1", 3)
		rec.Checked = 1
		mem.AddRecord(rec)

		res, err := newOrchestrator(mem).CheckForFill(context.Background(), testParams())
		require.NoError(t, err)
		assert.True(t, res.RequiresDialog)
		assert.False(t, res.CanProceed)
		assert.Equal(t, rota.ProcessedRecordsBlock, res.Outcome.Kind)
	})
}

// =============================================================================
// PERFORM FILL
// =============================================================================

func TestPerformFill_EmptySchedule(t *testing.T) {
	// GIVEN: the standard fixture with no existing records
	mem := store.NewMemory()
	seedFixture(mem)
	orch := newOrchestrator(mem)

	// WHEN: filling September 2025
	res, err := orch.PerformFill(context.Background(), testParams(), "", false)
	require.NoError(t, err)

	// THEN: all 22 weekdays are generated and persisted
	require.True(t, res.Success)
	assert.Equal(t, rota.StateDone, res.State)
	assert.Equal(t, 22, res.CreatedCount)
	assert.Equal(t, 0, res.DeletedCount)

	created := mem.CreatedRecords()
	require.Len(t, created, 22)

	byDate := map[string]rota.GeneratedRecord{}
	for i, r := range created {
		byDate[r.Date.String()] = r
		if i > 0 {
			assert.True(t, r.Date.After(created[i-1].Date), "persistence order not ascending at %s", r.Date)
		}
	}

	// Week alternation under the Sunday week start: the month opens in
	// calendar week 1 (template week 1); Sunday the 7th starts week 2.
	assert.Equal(t, 9, byDate["2025-09-01"].ShiftStart.Hour(), "week 1 uses the 09:00 pattern")
	assert.Equal(t, 10, byDate["2025-09-08"].ShiftStart.Hour(), "week 2 uses the 10:00 pattern")
	assert.Equal(t, 9, byDate["2025-09-15"].ShiftStart.Hour(), "week 3 chains back to the 09:00 pattern")
	assert.Equal(t, 10, byDate["2025-09-22"].ShiftStart.Hour(), "week 4 alternates again")

	// Overlays: the third Monday is a holiday, the 10th-12th are on leave.
	assert.True(t, byDate["2025-09-15"].IsHoliday)
	for _, date := range []string{"2025-09-10", "2025-09-11", "2025-09-12"} {
		assert.Equal(t, "annual", byDate[date].LeaveType, date)
	}

	// Audit trail: one success entry for the run.
	logs := mem.Logs()
	require.Len(t, logs, 1)
	assert.Equal(t, rota.ResultSuccess, logs[0].Entry.Result)
	assert.Equal(t, "schedule fill 2025-09", logs[0].Entry.Title)
}

func TestPerformFill_StopsForConfirmation(t *testing.T) {
	// GIVEN: two unprocessed records in the target month
	mem := store.NewMemory()
	seedFixture(mem)
	mem.AddRecord(existing("r1", 3))
	mem.AddRecord(existing("r2", 4))

	// WHEN: filling without replace confirmation
	res, err := newOrchestrator(mem).PerformFill(context.Background(), testParams(), "", false)
	require.NoError(t, err)

	// THEN: the run halts at the dialog and nothing is written
	assert.False(t, res.Success)
	assert.Equal(t, rota.StateAwaitingConfirmation, res.State)
	require.NotNil(t, res.Outcome)
	assert.Equal(t, 2, res.Outcome.Count)
	assert.Empty(t, mem.CreatedRecords())
}

func TestPerformFill_ReplaceDeletesThenGenerates(t *testing.T) {
	mem := store.NewMemory()
	seedFixture(mem)
	mem.AddRecord(existing("r1", 3))
	mem.AddRecord(existing("r2", 4))

	res, err := newOrchestrator(mem).PerformFill(context.Background(), testParams(), "", true)
	require.NoError(t, err)

	require.True(t, res.Success)
	assert.Equal(t, 2, res.DeletedCount)
	assert.Equal(t, 22, res.CreatedCount)

	for _, id := range []string{"r1", "r2"} {
		rec, ok := mem.Record(id)
		require.True(t, ok)
		assert.True(t, rec.Deleted, "record %s not soft-deleted", id)
	}
}

func TestPerformFill_ProcessedRecordsBlock(t *testing.T) {
	// GIVEN: one processed record among the existing ones
	mem := store.NewMemory()
	seedFixture(mem)
	rec := existing("r1", 3)
	rec.ExportResult = "batch-12"
	mem.AddRecord(rec)
	mem.AddRecord(existing("r2", 4))

	// WHEN: filling, even with replace confirmed
	_, err := newOrchestrator(mem).PerformFill(context.Background(), testParams(), "", true)

	// THEN: the run is blocked and nothing is written or deleted
	require.Error(t, err)
	assert.True(t, rota.IsBlocked(err))

	var blocked *rota.ProcessedRecordsError
	require.True(t, errors.As(err, &blocked))
	assert.Equal(t, 1, blocked.ProcessedCount)
	assert.Equal(t, 2, blocked.TotalCount)

	assert.Empty(t, mem.CreatedRecords())
	r2, _ := mem.Record("r2")
	assert.False(t, r2.Deleted)

	logs := mem.Logs()
	require.Len(t, logs, 1)
	assert.Equal(t, rota.ResultError, logs[0].Entry.Result)
}

func TestPerformFill_BusinessDeadEnds(t *testing.T) {
	t.Run("no active contract", func(t *testing.T) {
		mem := store.NewMemory()

		_, err := newOrchestrator(mem).PerformFill(context.Background(), testParams(), "", false)
		assert.ErrorIs(t, err, rota.ErrNoActiveContract)
	})

	t.Run("no templates", func(t *testing.T) {
		mem := store.NewMemory()
		mem.AddContract(rota.Contract{
			ID: testContract, StaffID: testStaff, ManagerID: testManager, GroupID: testGroup,
		})

		_, err := newOrchestrator(mem).PerformFill(context.Background(), testParams(), "", false)
		assert.ErrorIs(t, err, rota.ErrNoTemplates)
	})

	t.Run("invalid params", func(t *testing.T) {
		mem := store.NewMemory()
		params := testParams()
		params.GroupID = ""

		_, err := newOrchestrator(mem).PerformFill(context.Background(), params, "", false)
		assert.True(t, rota.IsClientError(err))
	})
}

func TestPerformFill_PartialPersistence(t *testing.T) {
	// GIVEN: the store refuses one specific date
	mem := store.NewMemory()
	seedFixture(mem)
	mem.FailCreateDates["2025-09-02"] = true

	// WHEN: filling the month
	res, err := newOrchestrator(mem).PerformFill(context.Background(), testParams(), "", false)
	require.NoError(t, err)

	// THEN: the failed write is skipped, the run still succeeds
	assert.True(t, res.Success)
	assert.Equal(t, 21, res.CreatedCount)
	assert.Len(t, mem.CreatedRecords(), 21)

	logs := mem.Logs()
	require.Len(t, logs, 1)
	assert.Equal(t, rota.ResultSuccess, logs[0].Entry.Result)
	assert.Contains(t, logs[0].Entry.Message, "saved 21 of 22")
}

func TestPerformFill_NothingSavedIsAnError(t *testing.T) {
	// GIVEN: a Monday-only template and a contract clamped to Tue-Thu,
	// so no day of the generation window matches a template slot
	mem := store.NewMemory()
	start := rota.NewDate(2025, time.September, 2)
	finish := rota.NewDate(2025, time.September, 4)
	mem.AddContract(rota.Contract{
		ID:        testContract,
		StaffID:   testStaff,
		ManagerID: testManager,
		GroupID:   testGroup,
		Start:     &start,
		Finish:    &finish,
	})
	row := rota.WeeklyTemplateRow{ID: "row-mon", ContractID: testContract, Week: 1, Shift: 1}
	row.Days[0] = rota.DayTimes{Start: "09:00", End: "17:00"}
	mem.AddTemplateRow(row)

	// WHEN: filling the month
	res, err := newOrchestrator(mem).PerformFill(context.Background(), testParams(), "", false)
	require.NoError(t, err)

	// THEN: zero saved records is an error outcome, not a quiet success
	assert.False(t, res.Success)
	assert.Equal(t, rota.StateFailed, res.State)
	assert.Zero(t, res.CreatedCount)

	logs := mem.Logs()
	require.Len(t, logs, 1)
	assert.Equal(t, rota.ResultError, logs[0].Entry.Result)
}

func TestRecordRefusal(t *testing.T) {
	mem := store.NewMemory()
	seedFixture(mem)

	newOrchestrator(mem).RecordRefusal(context.Background(), testParams(), testContract,
		rota.DialogOutcome{Kind: rota.UnprocessedRecordsReplace, Count: 3})

	logs := mem.Logs()
	require.Len(t, logs, 1)
	assert.Equal(t, rota.ResultInfo, logs[0].Entry.Result)
	assert.Contains(t, logs[0].Entry.Message, "cancelled")
}

// =============================================================================
// AUTO FILL
// =============================================================================

func TestPerformAutoFill_ReplacesWithoutDialog(t *testing.T) {
	// GIVEN: an unprocessed record that would normally require confirmation
	mem := store.NewMemory()
	seedFixture(mem)
	mem.AddRecord(existing("r1", 3))

	res, err := newOrchestrator(mem).PerformAutoFill(context.Background(), testParams())
	require.NoError(t, err)

	// THEN: replace is auto-confirmed
	assert.True(t, res.Success)
	assert.False(t, res.Skipped)
	assert.Equal(t, 22, res.CreatedCount)
	r1, _ := mem.Record("r1")
	assert.True(t, r1.Deleted)
}

func TestPerformAutoFill_SkipsBlockedAsWarning(t *testing.T) {
	// GIVEN: a processed record in the month
	mem := store.NewMemory()
	seedFixture(mem)
	rec := existing("r1", 3)
	rec.Checked = 1
	mem.AddRecord(rec)

	res, err := newOrchestrator(mem).PerformAutoFill(context.Background(), testParams())

	// THEN: the block is a skip, not an error, and logs as informational
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Contains(t, res.SkipReason, "processed")
	assert.Empty(t, mem.CreatedRecords())

	logs := mem.Logs()
	require.Len(t, logs, 1)
	assert.Equal(t, rota.ResultInfo, logs[0].Entry.Result)
}
