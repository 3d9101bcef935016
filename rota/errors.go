/*
errors.go - Centralized error types for the fill engine

PURPOSE:
  All engine error types in one place. The taxonomy separates input
  problems, business-rule dead-ends, blocking conflicts, and platform
  failures, because callers treat each class differently:

  1. Validation errors  - bad input, abort before any I/O
  2. Business dead-ends - no active contract / no templates; fatal for
                          this run but not a bug
  3. Blocking conflicts - processed records present; never overridden,
                          not retried
  4. Persistence errors - per-record; counted and skipped, never abort
                          the batch
  5. Platform errors    - backing-store failure; aborts the current
                          staff member's run only

USAGE:
  Callers branch with errors.Is / errors.As:

    if errors.Is(err, rota.ErrProcessedRecords) {
        // skip, result code warning
    }
*/
package rota

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned for missing or sentinel input parameters.
	ErrValidation = errors.New("invalid fill parameters")

	// ErrNoActiveContract is returned when no contract intersects the
	// target month. A business dead-end, not a platform failure.
	ErrNoActiveContract = errors.New("no active contract for period")

	// ErrNoTemplates is returned when the contract has no non-deleted
	// weekly templates. Generation must hard-stop; there is no default
	// template to fall back to.
	ErrNoTemplates = errors.New("no weekly templates for contract")

	// ErrProcessedRecords is returned when processed records exist in the
	// period. Never overridden, even with replace confirmed.
	ErrProcessedRecords = errors.New("processed records present")

	// ErrInvalidPeriod is returned when clamping produces an empty window
	// (contract ends before the month starts, or vice versa).
	ErrInvalidPeriod = errors.New("invalid period: contract does not overlap month")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports which input parameter failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid parameter %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ProcessedRecordsError carries the counts behind a blocking conflict.
type ProcessedRecordsError struct {
	ProcessedCount int
	TotalCount     int
}

func (e *ProcessedRecordsError) Error() string {
	return fmt.Sprintf("%d of %d existing records already processed", e.ProcessedCount, e.TotalCount)
}

func (e *ProcessedRecordsError) Unwrap() error { return ErrProcessedRecords }

// PlatformError wraps a backing-store failure with the operation that hit it.
// The original message is preserved for the audit log.
type PlatformError struct {
	Op  string
	Err error
}

func (e *PlatformError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *PlatformError) Unwrap() error { return e.Err }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsBusinessHalt reports whether the error is a business-rule dead-end
// rather than a platform failure: expected, logged, not a bug.
func IsBusinessHalt(err error) bool {
	return errors.Is(err, ErrNoActiveContract) ||
		errors.Is(err, ErrNoTemplates) ||
		errors.Is(err, ErrInvalidPeriod)
}

// IsBlocked reports whether the error is the processed-records conflict.
func IsBlocked(err error) bool {
	return errors.Is(err, ErrProcessedRecords)
}

// IsClientError reports whether the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation)
}
