package rota_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/rota-engine/rota"
	"github.com/warp/rota-engine/rota/store"
)

func batchFixture(t *testing.T) (*store.Memory, *rota.BatchRunner) {
	t.Helper()

	mem := store.NewMemory()
	for _, s := range []struct{ staff, contract string }{
		{"staff-a", "contract-a"},
		{"staff-b", "contract-b"},
	} {
		mem.AddContract(rota.Contract{
			ID: s.contract, StaffID: s.staff, ManagerID: testManager, GroupID: testGroup,
		})
		row := weekdayRow(1, "09:00", "17:00")
		row.ID = "row-" + s.contract
		row.ContractID = s.contract
		mem.AddTemplateRow(row)
	}

	return mem, &rota.BatchRunner{
		Orch:  newOrchestrator(mem),
		Pause: 5 * time.Millisecond,
		Log:   quietLogger(),
	}
}

func batchParams(staff string) rota.FillParams {
	return rota.FillParams{
		Date:         rota.NewDate(2025, time.September, 1),
		StaffID:      staff,
		StaffName:    staff,
		AutoSchedule: true,
		ManagerID:    testManager,
		GroupID:      testGroup,
		WeekStart:    rota.WeekStartMonday,
	}
}

func TestBatchRun_SequentialSuccess(t *testing.T) {
	// GIVEN: two auto-schedule staff and one opted out
	mem, runner := batchFixture(t)
	optedOut := batchParams("staff-c")
	optedOut.AutoSchedule = false
	staff := []rota.FillParams{batchParams("staff-a"), optedOut, batchParams("staff-b")}

	// WHEN: running the batch and draining progress
	run := runner.Start(context.Background(), staff)
	var snapshots []rota.ProgressSnapshot
	for s := range run.Progress() {
		snapshots = append(snapshots, s)
	}
	result := run.Wait()

	// THEN: only the eligible members are counted, and both succeed
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 2, result.Completed)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Zero(t, result.ErrorCount)
	assert.Zero(t, result.SkippedCount)
	assert.False(t, result.Cancelled)

	// 22 weekdays per member were persisted.
	assert.Len(t, mem.CreatedRecords(), 44)

	// Progress reported both members' state transitions and the pause.
	require.NotEmpty(t, snapshots)
	seenStaff := map[string]bool{}
	seenPause := false
	for _, s := range snapshots {
		if s.CurrentStaff != "" {
			seenStaff[s.CurrentStaff] = true
		}
		if s.IsPaused {
			seenPause = true
			assert.Positive(t, s.RemainingPause)
		}
	}
	assert.True(t, seenStaff["staff-a"])
	assert.True(t, seenStaff["staff-b"])
	assert.True(t, seenPause, "no pause countdown snapshot observed")
}

func TestBatchRun_MemberFailureDoesNotAbort(t *testing.T) {
	// GIVEN: staff-a is blocked by a processed record
	mem, runner := batchFixture(t)
	mem.AddRecord(rota.ExistingRecord{
		ID:         "blocked",
		Date:       rota.NewDate(2025, time.September, 3),
		Checked:    1,
		ContractID: "contract-a",
	})

	run := runner.Start(context.Background(), []rota.FillParams{
		batchParams("staff-a"), batchParams("staff-b"),
	})
	for range run.Progress() {
	}
	result := run.Wait()

	// THEN: the blocked member is skipped and the batch continues
	assert.Equal(t, 2, result.Completed)
	assert.Equal(t, 1, result.SkippedCount)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Zero(t, result.ErrorCount)
	assert.Len(t, mem.CreatedRecords(), 22)
}

func TestBatchRun_CancelledBeforeStart(t *testing.T) {
	_, runner := batchFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run := runner.Start(ctx, []rota.FillParams{batchParams("staff-a")})
	for range run.Progress() {
	}
	result := run.Wait()

	assert.True(t, result.Cancelled)
	assert.Zero(t, result.Completed)
}
