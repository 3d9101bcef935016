/*
batch.go - Sequential batch auto-fill with progress snapshots

PURPOSE:
  Runs auto-fill for a list of staff members, strictly one at a time,
  with a configurable pause between members. The loop must stay
  sequential to hold the request rate under the backing store's limits.

PROGRESS:
  The run yields ProgressSnapshot values on a channel: one after every
  state transition of the current member's fill, and one per second
  during the inter-member pause countdown. Snapshot ordering is
  monotonic per staff member.

CANCELLATION:
  Cooperative, via the context passed to Start. The countdown and every
  repository call are suspension points; cancellation takes effect at
  the next one.
*/
package rota

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// =============================================================================
// PROGRESS SNAPSHOTS
// =============================================================================

// ProgressSnapshot is one observation of a batch run.
type ProgressSnapshot struct {
	Completed      int
	Total          int
	SuccessCount   int
	SkippedCount   int
	ErrorCount     int
	CurrentStaff   string
	State          FillState
	IsPaused       bool
	RemainingPause time.Duration
}

// BatchResult summarizes a finished batch run.
type BatchResult struct {
	Total        int
	Completed    int
	SuccessCount int
	SkippedCount int
	ErrorCount   int
	Cancelled    bool
}

// =============================================================================
// BATCH RUNNER
// =============================================================================

// BatchRunner drives sequential auto-fill over a staff list.
type BatchRunner struct {
	Orch  *Orchestrator
	Pause time.Duration // pause between successive staff members
	Log   *logrus.Logger
}

// BatchRun is one in-flight batch. Progress() yields snapshots until the
// run finishes; Wait() blocks for the final result.
type BatchRun struct {
	progress chan ProgressSnapshot
	done     chan BatchResult
	cancel   context.CancelFunc
}

func (r *BatchRun) Progress() <-chan ProgressSnapshot { return r.progress }

func (r *BatchRun) Wait() BatchResult { return <-r.done }

// Cancel requests cooperative cancellation of the run.
func (r *BatchRun) Cancel() { r.cancel() }

// Start launches the batch. Staff without the auto-schedule flag are
// dropped before counting; the returned run's Total reflects only
// eligible members. One member's failure never aborts the batch.
func (b *BatchRunner) Start(ctx context.Context, staff []FillParams) *BatchRun {
	ctx, cancel := context.WithCancel(ctx)
	run := &BatchRun{
		progress: make(chan ProgressSnapshot, 16),
		done:     make(chan BatchResult, 1),
		cancel:   cancel,
	}

	eligible := make([]FillParams, 0, len(staff))
	for _, p := range staff {
		if p.AutoSchedule {
			eligible = append(eligible, p)
		}
	}

	go b.loop(ctx, eligible, run)
	return run
}

func (b *BatchRunner) loop(ctx context.Context, staff []FillParams, run *BatchRun) {
	defer close(run.progress)
	defer run.cancel()

	result := BatchResult{Total: len(staff)}
	emit := func(s ProgressSnapshot) {
		select {
		case run.progress <- s:
		case <-ctx.Done():
		}
	}

	for i, params := range staff {
		if ctx.Err() != nil {
			result.Cancelled = true
			break
		}

		snapshot := ProgressSnapshot{
			Completed:    result.Completed,
			Total:        result.Total,
			SuccessCount: result.SuccessCount,
			SkippedCount: result.SkippedCount,
			ErrorCount:   result.ErrorCount,
			CurrentStaff: params.StaffName,
		}

		res, err := b.Orch.performAutoFill(ctx, params, func(state FillState) {
			snapshot.State = state
			emit(snapshot)
		})

		result.Completed++
		switch {
		case err != nil:
			result.ErrorCount++
			b.log().WithField("staff", params.StaffID).WithError(err).Error("batch auto-fill member failed")
		case res.Skipped:
			result.SkippedCount++
			b.log().WithFields(logrus.Fields{
				"staff":  params.StaffID,
				"reason": res.SkipReason,
			}).Warn("batch auto-fill member skipped")
		default:
			result.SuccessCount++
		}

		if i < len(staff)-1 && b.Pause > 0 {
			if cancelled := b.pause(ctx, result, emit); cancelled {
				result.Cancelled = true
				break
			}
		}
	}

	run.done <- result
}

// pause counts down the inter-member pause, emitting one snapshot per
// second with the remaining time. Returns true when cancelled.
func (b *BatchRunner) pause(ctx context.Context, result BatchResult, emit func(ProgressSnapshot)) bool {
	remaining := b.Pause
	tick := time.Second
	for remaining > 0 {
		emit(ProgressSnapshot{
			Completed:      result.Completed,
			Total:          result.Total,
			SuccessCount:   result.SuccessCount,
			SkippedCount:   result.SkippedCount,
			ErrorCount:     result.ErrorCount,
			IsPaused:       true,
			RemainingPause: remaining,
		})

		step := tick
		if remaining < step {
			step = remaining
		}
		select {
		case <-time.After(step):
			remaining -= step
		case <-ctx.Done():
			return true
		}
	}
	return false
}

func (b *BatchRunner) log() *logrus.Logger {
	if b.Log != nil {
		return b.Log
	}
	return logrus.StandardLogger()
}
