/*
repository.go - Persistence interfaces consumed by the engine

PURPOSE:
  Defines the boundary between the fill engine and its backing store.
  Concrete I/O, authentication and wire formats live behind these
  interfaces; the engine only sees the typed entities of types.go.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: production SQLite store
  - rota/store/memory.go:   in-memory store for tests and dev

PARSING BOUNDARY:
  Implementations convert raw store rows into typed entities before
  returning them. Untyped row data never crosses this boundary.
*/
package rota

import "context"

// =============================================================================
// REPOSITORIES
// =============================================================================

// ContractRepository loads contracts scoped to a staff member.
type ContractRepository interface {
	// ActiveContracts returns the contracts selectable for the month
	// containing the given date: not deleted, validity intersecting the
	// month, scoped to staff/manager/group. Order is load order; the
	// orchestrator picks the first.
	ActiveContracts(ctx context.Context, staffID, managerID, groupID string, month DateOnly) ([]Contract, error)
}

// TemplateRepository loads raw weekly-table rows for one contract.
type TemplateRepository interface {
	TemplatesForContract(ctx context.Context, contractID string, weekStart WeekStartDay) ([]WeeklyTemplateRow, error)
}

// HolidayRepository loads the holiday table for one month.
type HolidayRepository interface {
	HolidaysForMonth(ctx context.Context, month DateOnly) ([]Holiday, error)
}

// LeaveRepository loads leave periods intersecting one month.
type LeaveRepository interface {
	LeavesForMonth(ctx context.Context, month DateOnly, staffID, managerID, groupID string) ([]LeavePeriod, error)
}

// RecordRepository reads and writes schedule records.
type RecordRepository interface {
	// ExistingRecords returns records in [first, last] for the staff
	// member, including deleted ones; classification filters those out.
	ExistingRecords(ctx context.Context, staffID, managerID, groupID string, first, last DateOnly) ([]ExistingRecord, error)

	// Create persists one generated record.
	Create(ctx context.Context, rec GeneratedRecord) error

	// MarkDeleted soft-deletes one record by id.
	MarkDeleted(ctx context.Context, id string) error
}

// =============================================================================
// AUDIT SINK
// =============================================================================

// ResultCode classifies an audit-log entry.
type ResultCode int

const (
	ResultError   ResultCode = 1
	ResultSuccess ResultCode = 2
	ResultInfo    ResultCode = 3 // warnings, skips, user refusals
)

func (c ResultCode) String() string {
	switch c {
	case ResultError:
		return "error"
	case ResultSuccess:
		return "success"
	case ResultInfo:
		return "info"
	default:
		return "unknown"
	}
}

// LogEntry is one audit-log line for a fill run.
type LogEntry struct {
	Title      string
	Result     ResultCode
	Message    string
	Date       DateOnly
	StaffID    string
	ManagerID  string
	GroupID    string
	ContractID string
}

// AuditSink records fill-run outcomes. WriteLog returns the created log id.
type AuditSink interface {
	WriteLog(ctx context.Context, entry LogEntry) (string, error)
}
