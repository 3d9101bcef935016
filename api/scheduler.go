/*
scheduler.go - Cron-driven batch auto-fill

PURPOSE:
  Runs the batch auto-fill for every auto-schedule staff member on a
  cron schedule, typically once a month right after the new month
  opens. The manual batch endpoint and this scheduler share the same
  BatchRunner; the scheduler only decides when and for whom.

DESIGN:
  - robfig/cron drives the schedule; Start/Stop manage the lifecycle
  - Staff are discovered from the contracts table (distinct staff with
    a contract active in the target month and the auto-schedule flag
    set on at least one of those contracts)
  - Runs never overlap: a new trigger is skipped while one is active

USAGE:
  sched := NewAutoFillScheduler(store, orch, log, "0 2 1 * *", pause, weekStart)
  sched.Start()
  // ... later
  sched.Stop()

SEE ALSO:
  - rota/batch.go: BatchRunner and progress snapshots
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/warp/rota-engine/rota"
	"github.com/warp/rota-engine/store/sqlite"
)

// AutoFillScheduler triggers batch auto-fill on a cron spec.
type AutoFillScheduler struct {
	Store     *sqlite.Store
	Orch      *rota.Orchestrator
	Log       *logrus.Logger
	CronSpec  string
	Pause     time.Duration
	WeekStart rota.WeekStartDay

	cronEngine *cron.Cron
	mu         sync.Mutex
	running    bool
}

// NewAutoFillScheduler creates a scheduler. An empty cron spec disables it.
func NewAutoFillScheduler(store *sqlite.Store, orch *rota.Orchestrator, log *logrus.Logger, cronSpec string, pause time.Duration, weekStart rota.WeekStartDay) *AutoFillScheduler {
	return &AutoFillScheduler{
		Store:      store,
		Orch:       orch,
		Log:        log,
		CronSpec:   cronSpec,
		Pause:      pause,
		WeekStart:  weekStart,
		cronEngine: cron.New(cron.WithLocation(time.Local)),
	}
}

// Start registers the cron job and begins the schedule.
func (s *AutoFillScheduler) Start() error {
	if s.CronSpec == "" {
		s.Log.Info("auto-fill scheduler disabled: no cron spec")
		return nil
	}
	if _, err := s.cronEngine.AddFunc(s.CronSpec, s.runOnce); err != nil {
		return err
	}
	s.cronEngine.Start()
	s.Log.WithField("spec", s.CronSpec).Info("auto-fill scheduler started")
	return nil
}

// Stop halts the schedule and waits for a running job to finish.
func (s *AutoFillScheduler) Stop() {
	ctx := s.cronEngine.Stop()
	<-ctx.Done()
	s.Log.Info("auto-fill scheduler stopped")
}

// RunNow triggers an immediate batch run (for testing/admin).
func (s *AutoFillScheduler) RunNow() { s.runOnce() }

func (s *AutoFillScheduler) runOnce() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.Log.Warn("auto-fill trigger skipped: previous batch still running")
		return
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	ctx := context.Background()
	month := rota.Today()

	staff, err := s.discoverStaff(ctx, month)
	if err != nil {
		s.Log.WithError(err).Error("auto-fill staff discovery failed")
		return
	}
	if len(staff) == 0 {
		s.Log.Info("auto-fill: no auto-schedule staff with active contracts this month")
		return
	}

	runner := &rota.BatchRunner{Orch: s.Orch, Pause: s.Pause, Log: s.Log}
	run := runner.Start(ctx, staff)

	for snap := range run.Progress() {
		if !snap.IsPaused {
			s.Log.WithFields(logrus.Fields{
				"completed": snap.Completed,
				"total":     snap.Total,
				"staff":     snap.CurrentStaff,
				"state":     snap.State.String(),
			}).Debug("scheduled batch progress")
		}
	}

	result := run.Wait()
	s.Log.WithFields(logrus.Fields{
		"total":   result.Total,
		"success": result.SuccessCount,
		"skipped": result.SkippedCount,
		"errors":  result.ErrorCount,
	}).Info("scheduled batch auto-fill completed")
}

// discoverStaff lists distinct staff members with a contract active this
// month. The auto-schedule opt-in is carried from their contracts: only
// staff with the flag set enter the batch.
func (s *AutoFillScheduler) discoverStaff(ctx context.Context, month rota.DateOnly) ([]rota.FillParams, error) {
	rows, err := s.Store.ListActiveStaff(ctx, month)
	if err != nil {
		return nil, err
	}
	out := make([]rota.FillParams, 0, len(rows))
	for _, r := range rows {
		if !r.AutoSchedule {
			continue
		}
		out = append(out, rota.FillParams{
			Date:         month,
			StaffID:      r.StaffID,
			StaffName:    r.StaffID,
			AutoSchedule: true,
			ManagerID:    r.ManagerID,
			GroupID:      r.GroupID,
			WeekStart:    s.WeekStart,
		})
	}
	return out, nil
}
