/*
orchestrator.go - End-to-end fill workflow

PURPOSE:
  Drives one staff member's fill run through its states:

    Idle -> ValidatingParams -> AnalyzingContracts -> ResolvingTemplates
         -> ClassifyingConflicts -> {AwaitingConfirmation | Generating}
         -> Persisting -> Done | Failed

  Exposes the caller surface: CheckEligibility, CheckForFill, PerformFill
  and PerformAutoFill. Batch processing sits on top in batch.go.

DEPENDENCIES:
  All repositories and the timezone adjuster are injected at construction.
  There is no global registry; two orchestrators never share mutable state
  beyond the timezone descriptor cache.

PERSISTENCE PACING:
  Records are persisted sequentially in ascending date order with a short
  fixed pause between writes, to stay under the backing store's rate
  limits. A single failed write is counted and logged, never aborts the
  batch; the run still reports success if anything was saved.

SEE ALSO:
  - batch.go:    Sequential batch auto-fill with progress snapshots
  - conflict.go: Dialog outcome classification
*/
package rota

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// =============================================================================
// FILL STATES
// =============================================================================

type FillState int

const (
	StateIdle FillState = iota
	StateValidatingParams
	StateAnalyzingContracts
	StateResolvingTemplates
	StateClassifyingConflicts
	StateAwaitingConfirmation
	StateGenerating
	StatePersisting
	StateDone
	StateFailed
)

func (s FillState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidatingParams:
		return "validating_params"
	case StateAnalyzingContracts:
		return "analyzing_contracts"
	case StateResolvingTemplates:
		return "resolving_templates"
	case StateClassifyingConflicts:
		return "classifying_conflicts"
	case StateAwaitingConfirmation:
		return "awaiting_confirmation"
	case StateGenerating:
		return "generating"
	case StatePersisting:
		return "persisting"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// StateObserver is notified after every state transition of one run.
type StateObserver func(FillState)

// =============================================================================
// RESULTS
// =============================================================================

// EligibilityResult answers "could a fill run for these params proceed".
type EligibilityResult struct {
	Eligible   bool
	Reason     string
	ContractID string
}

// CheckResult is the pre-fill conflict inspection returned to the caller.
type CheckResult struct {
	RequiresDialog bool
	Outcome        DialogOutcome
	CanProceed     bool
	ContractID     string
}

// FillResult summarizes one manual fill run.
type FillResult struct {
	Success      bool
	State        FillState
	CreatedCount int
	DeletedCount int
	Message      string
	Outcome      *DialogOutcome // set when State == StateAwaitingConfirmation
}

// AutoFillResult summarizes one non-interactive run.
type AutoFillResult struct {
	Success      bool
	CreatedCount int
	Skipped      bool
	SkipReason   string
}

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// Orchestrator runs the fill workflow. Construct once with all
// dependencies and share across runs; per-run state lives on the stack.
type Orchestrator struct {
	Contracts ContractRepository
	Templates TemplateRepository
	Holidays  HolidayRepository
	Leaves    LeaveRepository
	Records   RecordRepository
	Audit     AuditSink
	TZ        *TimeZoneAdjuster
	Log       *logrus.Logger

	// PersistDelay is the pause between consecutive record writes.
	PersistDelay time.Duration
}

const defaultPersistDelay = 50 * time.Millisecond

func (o *Orchestrator) persistDelay() time.Duration {
	if o.PersistDelay > 0 {
		return o.PersistDelay
	}
	return defaultPersistDelay
}

func (o *Orchestrator) log() *logrus.Logger {
	if o.Log != nil {
		return o.Log
	}
	return logrus.StandardLogger()
}

// CheckEligibility reports whether a fill run could proceed for the given
// parameters: valid ids, an active contract, and non-empty templates.
func (o *Orchestrator) CheckEligibility(ctx context.Context, params FillParams) (EligibilityResult, error) {
	if err := params.Validate(); err != nil {
		return EligibilityResult{Reason: err.Error()}, nil
	}

	contract, err := o.selectContract(ctx, params, "")
	if err != nil {
		if IsBusinessHalt(err) {
			return EligibilityResult{Reason: "no active contract for month"}, nil
		}
		return EligibilityResult{}, err
	}

	idx, err := LoadTemplateIndex(ctx, o.Templates, contract.ID, params.WeekStart)
	if err != nil {
		return EligibilityResult{}, err
	}
	if idx.Empty() {
		return EligibilityResult{Reason: "contract has no weekly templates", ContractID: contract.ID}, nil
	}

	return EligibilityResult{Eligible: true, ContractID: contract.ID}, nil
}

// CheckForFill runs the pre-fill analysis and conflict classification,
// returning the dialog payload without persisting anything.
func (o *Orchestrator) CheckForFill(ctx context.Context, params FillParams) (CheckResult, error) {
	if err := params.Validate(); err != nil {
		return CheckResult{}, err
	}

	contract, err := o.selectContract(ctx, params, "")
	if err != nil {
		return CheckResult{}, err
	}

	idx, err := LoadTemplateIndex(ctx, o.Templates, contract.ID, params.WeekStart)
	if err != nil {
		return CheckResult{}, err
	}
	if idx.Empty() {
		return CheckResult{}, ErrNoTemplates
	}

	period, err := MonthPeriod(params.Date, contract.Start, contract.Finish)
	if err != nil {
		return CheckResult{}, err
	}

	outcome, _, err := o.classify(ctx, params, contract, period)
	if err != nil {
		return CheckResult{}, err
	}

	return CheckResult{
		RequiresDialog: outcome.Kind != EmptySchedule,
		Outcome:        outcome,
		CanProceed:     outcome.Kind != ProcessedRecordsBlock,
		ContractID:     contract.ID,
	}, nil
}

// PerformFill executes the interactive fill flow. With replaceExisting
// false and unprocessed records present, it stops at AwaitingConfirmation
// and returns the dialog payload; the caller re-invokes with
// replaceExisting=true after the user confirms.
func (o *Orchestrator) PerformFill(ctx context.Context, params FillParams, contractID string, replaceExisting bool) (FillResult, error) {
	return o.performFill(ctx, params, contractID, replaceExisting, nil)
}

func (o *Orchestrator) performFill(ctx context.Context, params FillParams, contractID string, replaceExisting bool, observe StateObserver) (FillResult, error) {
	return o.run(ctx, params, contractID, replaceExisting, false, observe)
}

func (o *Orchestrator) run(ctx context.Context, params FillParams, contractID string, replaceExisting, auto bool, observe StateObserver) (FillResult, error) {
	run := newFillRun(o, params, observe)
	run.auto = auto

	run.transition(StateValidatingParams)
	if err := params.Validate(); err != nil {
		return run.fail(ctx, "", err)
	}

	run.transition(StateAnalyzingContracts)
	contract, err := o.selectContract(ctx, params, contractID)
	if err != nil {
		return run.fail(ctx, "", err)
	}

	run.transition(StateResolvingTemplates)
	idx, err := LoadTemplateIndex(ctx, o.Templates, contract.ID, params.WeekStart)
	if err != nil {
		return run.fail(ctx, contract.ID, err)
	}
	if idx.Empty() {
		return run.fail(ctx, contract.ID, ErrNoTemplates)
	}

	period, err := MonthPeriod(params.Date, contract.Start, contract.Finish)
	if err != nil {
		return run.fail(ctx, contract.ID, err)
	}

	run.transition(StateClassifyingConflicts)
	outcome, existing, err := o.classify(ctx, params, contract, period)
	if err != nil {
		return run.fail(ctx, contract.ID, err)
	}

	switch outcome.Kind {
	case ProcessedRecordsBlock:
		// Replace confirmation never overrides processed records.
		return run.fail(ctx, contract.ID, &ProcessedRecordsError{
			ProcessedCount: outcome.ProcessedCount,
			TotalCount:     outcome.TotalCount,
		})
	case UnprocessedRecordsReplace:
		if !replaceExisting {
			run.transition(StateAwaitingConfirmation)
			return FillResult{
				State:   StateAwaitingConfirmation,
				Outcome: &outcome,
				Message: fmt.Sprintf("%d unprocessed records require replace confirmation", outcome.Count),
			}, nil
		}
		if err := o.deleteRecords(ctx, existing, run.analysis); err != nil {
			return run.fail(ctx, contract.ID, err)
		}
	}

	run.transition(StateGenerating)
	records, err := o.generate(ctx, params, contract, period, idx, run.analysis)
	if err != nil {
		return run.fail(ctx, contract.ID, err)
	}

	run.transition(StatePersisting)
	o.persist(ctx, records, run.analysis)

	return run.finish(ctx, contract.ID)
}

// PerformAutoFill executes the non-interactive flow: replace is confirmed
// automatically, and a processed-records conflict is a hard skip reported
// as a warning, not an error.
func (o *Orchestrator) PerformAutoFill(ctx context.Context, params FillParams) (AutoFillResult, error) {
	return o.performAutoFill(ctx, params, nil)
}

func (o *Orchestrator) performAutoFill(ctx context.Context, params FillParams, observe StateObserver) (AutoFillResult, error) {
	res, err := o.run(ctx, params, "", true, true, observe)
	if err != nil {
		if IsBlocked(err) {
			return AutoFillResult{Skipped: true, SkipReason: err.Error()}, nil
		}
		return AutoFillResult{}, err
	}
	return AutoFillResult{Success: res.Success, CreatedCount: res.CreatedCount}, nil
}

// RecordRefusal logs a user-declined replace confirmation. A refusal is an
// informational outcome, never an error.
func (o *Orchestrator) RecordRefusal(ctx context.Context, params FillParams, contractID string, outcome DialogOutcome) {
	run := newFillRun(o, params, nil)
	run.writeLog(ctx, contractID, ResultInfo,
		fmt.Sprintf("fill cancelled by user (%d unprocessed records kept)", outcome.Count))
}

// =============================================================================
// RUN STEPS
// =============================================================================

// selectContract returns the requested contract, or the first contract
// active in the target month when no id is given.
func (o *Orchestrator) selectContract(ctx context.Context, params FillParams, contractID string) (Contract, error) {
	contracts, err := o.Contracts.ActiveContracts(ctx, params.StaffID, params.ManagerID, params.GroupID, params.Date)
	if err != nil {
		return Contract{}, &PlatformError{Op: "load contracts", Err: err}
	}

	first := StartOfMonth(params.Date)
	last := EndOfMonth(params.Date)
	for _, c := range contracts {
		if !c.ActiveIn(first, last) {
			continue
		}
		if contractID == "" || c.ID == contractID {
			return c, nil
		}
	}
	return Contract{}, ErrNoActiveContract
}

func (o *Orchestrator) classify(ctx context.Context, params FillParams, contract Contract, period Period) (DialogOutcome, []ExistingRecord, error) {
	records, err := o.Records.ExistingRecords(ctx, params.StaffID, params.ManagerID, params.GroupID, period.First, period.Last)
	if err != nil {
		return DialogOutcome{}, nil, &PlatformError{Op: "load existing records", Err: err}
	}
	filtered := FilterForContract(records, contract.ID)
	return Classify(filtered), filtered, nil
}

func (o *Orchestrator) deleteRecords(ctx context.Context, records []ExistingRecord, analysis *Analysis) error {
	for _, r := range records {
		if err := o.Records.MarkDeleted(ctx, r.ID); err != nil {
			return &PlatformError{Op: "delete record " + r.ID, Err: err}
		}
		analysis.RecordDeleted(1)
	}
	return nil
}

func (o *Orchestrator) generate(ctx context.Context, params FillParams, contract Contract, period Period, idx *TemplateIndex, analysis *Analysis) ([]GeneratedRecord, error) {
	holidays, err := o.Holidays.HolidaysForMonth(ctx, params.Date)
	if err != nil {
		return nil, &PlatformError{Op: "load holidays", Err: err}
	}
	leaves, err := o.Leaves.LeavesForMonth(ctx, params.Date, params.StaffID, params.ManagerID, params.GroupID)
	if err != nil {
		return nil, &PlatformError{Op: "load leave periods", Err: err}
	}

	gen := &RecordGenerator{TZ: o.TZ}
	return gen.Generate(ctx, params, contract, period, idx, NewHolidayLeaveIndex(holidays, leaves), analysis)
}

// persist writes records sequentially in ascending date order, pausing
// between writes. Individual failures are counted, logged, and skipped.
func (o *Orchestrator) persist(ctx context.Context, records []GeneratedRecord, analysis *Analysis) {
	for i, rec := range records {
		if err := o.Records.Create(ctx, rec); err != nil {
			analysis.RecordPersist(false)
			o.log().WithFields(logrus.Fields{
				"date":  rec.Date.String(),
				"staff": rec.StaffID,
			}).WithError(err).Warn("record persist failed, continuing")
		} else {
			analysis.RecordPersist(true)
		}

		if i == len(records)-1 {
			break
		}
		select {
		case <-time.After(o.persistDelay()):
		case <-ctx.Done():
			return
		}
	}
}

// =============================================================================
// FILL RUN - Per-run state tracking and audit logging
// =============================================================================

type fillRun struct {
	orch     *Orchestrator
	params   FillParams
	observe  StateObserver
	state    FillState
	auto     bool
	analysis *Analysis
}

func newFillRun(o *Orchestrator, params FillParams, observe StateObserver) *fillRun {
	return &fillRun{orch: o, params: params, observe: observe, state: StateIdle, analysis: NewAnalysis()}
}

func (r *fillRun) transition(next FillState) {
	r.state = next
	r.orch.log().WithFields(logrus.Fields{
		"staff": r.params.StaffID,
		"state": next.String(),
	}).Debug("fill state transition")
	if r.observe != nil {
		r.observe(next)
	}
}

// fail terminates the run, writes the audit line and returns the error.
// Manual fills log every dead-end as an error; auto-fill logs a blocking
// conflict as a warning/skip, since it is expected and not retried.
func (r *fillRun) fail(ctx context.Context, contractID string, err error) (FillResult, error) {
	r.transition(StateFailed)
	code := ResultError
	if r.auto && IsBlocked(err) {
		code = ResultInfo
	}
	r.writeLog(ctx, contractID, code, err.Error())
	return FillResult{State: StateFailed, Message: err.Error()}, err
}

// finish closes out a run that reached persistence. Partial persistence
// failures still report success when anything was saved; a run that saved
// nothing reports an error, including one where no day matched a template.
func (r *fillRun) finish(ctx context.Context, contractID string) (FillResult, error) {
	a := r.analysis
	success := a.SavedCount > 0

	code := ResultError
	if success {
		code = ResultSuccess
		r.transition(StateDone)
	} else {
		r.transition(StateFailed)
	}
	r.writeLog(ctx, contractID, code, a.Summary())

	return FillResult{
		Success:      success,
		State:        r.state,
		CreatedCount: a.SavedCount,
		DeletedCount: a.DeletedRecords,
		Message:      a.Summary(),
	}, nil
}

func (r *fillRun) writeLog(ctx context.Context, contractID string, code ResultCode, message string) {
	if r.orch.Audit == nil {
		return
	}
	_, err := r.orch.Audit.WriteLog(ctx, LogEntry{
		Title:      "schedule fill " + r.params.Date.String()[:7],
		Result:     code,
		Message:    message,
		Date:       Today(),
		StaffID:    r.params.StaffID,
		ManagerID:  r.params.ManagerID,
		GroupID:    r.params.GroupID,
		ContractID: contractID,
	})
	if err != nil {
		r.orch.log().WithError(err).Warn("audit log write failed")
	}
}
