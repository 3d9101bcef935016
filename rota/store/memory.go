// Package store provides repository implementations backed by memory.
package store

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/warp/rota-engine/rota"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements every repository interface of the rota package with
// maps behind a RWMutex. Seed data with the Add* methods.
type Memory struct {
	mu        sync.RWMutex
	contracts []rota.Contract
	templates []rota.WeeklyTemplateRow
	holidays  []rota.Holiday
	leaves    []rota.LeavePeriod
	records   map[string]rota.ExistingRecord
	created   []rota.GeneratedRecord
	logs      []StoredLog
	nextLogID int

	// FailCreateDates makes Create fail for specific dates, so tests can
	// exercise partial persistence.
	FailCreateDates map[string]bool
}

// StoredLog is one captured audit-log entry.
type StoredLog struct {
	ID    string
	Entry rota.LogEntry
}

func NewMemory() *Memory {
	return &Memory{
		records:         make(map[string]rota.ExistingRecord),
		FailCreateDates: make(map[string]bool),
	}
}

// -----------------------------------------------------------------------------
// Seeding
// -----------------------------------------------------------------------------

func (m *Memory) AddContract(c rota.Contract) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contracts = append(m.contracts, c)
}

func (m *Memory) AddTemplateRow(row rota.WeeklyTemplateRow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates = append(m.templates, row)
}

func (m *Memory) AddHoliday(h rota.Holiday) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holidays = append(m.holidays, h)
}

func (m *Memory) AddLeave(lp rota.LeavePeriod) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leaves = append(m.leaves, lp)
}

func (m *Memory) AddRecord(r rota.ExistingRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[r.ID] = r
}

// -----------------------------------------------------------------------------
// rota.ContractRepository
// -----------------------------------------------------------------------------

func (m *Memory) ActiveContracts(_ context.Context, staffID, managerID, groupID string, month rota.DateOnly) ([]rota.Contract, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	first := rota.StartOfMonth(month)
	last := rota.EndOfMonth(month)

	var out []rota.Contract
	for _, c := range m.contracts {
		if c.StaffID != staffID || c.ManagerID != managerID || c.GroupID != groupID {
			continue
		}
		if !c.ActiveIn(first, last) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// -----------------------------------------------------------------------------
// rota.TemplateRepository
// -----------------------------------------------------------------------------

func (m *Memory) TemplatesForContract(_ context.Context, contractID string, _ rota.WeekStartDay) ([]rota.WeeklyTemplateRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []rota.WeeklyTemplateRow
	for _, row := range m.templates {
		if row.ContractID == contractID {
			out = append(out, row)
		}
	}
	return out, nil
}

// -----------------------------------------------------------------------------
// rota.HolidayRepository
// -----------------------------------------------------------------------------

func (m *Memory) HolidaysForMonth(_ context.Context, month rota.DateOnly) ([]rota.Holiday, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	first := rota.StartOfMonth(month)
	last := rota.EndOfMonth(month)

	var out []rota.Holiday
	for _, h := range m.holidays {
		if h.Date.AfterOrEqual(first) && h.Date.BeforeOrEqual(last) {
			out = append(out, h)
		}
	}
	return out, nil
}

// -----------------------------------------------------------------------------
// rota.LeaveRepository
// -----------------------------------------------------------------------------

func (m *Memory) LeavesForMonth(_ context.Context, month rota.DateOnly, _, _, _ string) ([]rota.LeavePeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	first := rota.StartOfMonth(month)
	last := rota.EndOfMonth(month)

	var out []rota.LeavePeriod
	for _, lp := range m.leaves {
		if lp.Start.After(last) {
			continue
		}
		if lp.Finish != nil && lp.Finish.Before(first) {
			continue
		}
		out = append(out, lp)
	}
	return out, nil
}

// -----------------------------------------------------------------------------
// rota.RecordRepository
// -----------------------------------------------------------------------------

func (m *Memory) ExistingRecords(_ context.Context, _, _, _ string, first, last rota.DateOnly) ([]rota.ExistingRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []rota.ExistingRecord
	for _, r := range m.records {
		if r.Date.AfterOrEqual(first) && r.Date.BeforeOrEqual(last) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *Memory) Create(_ context.Context, rec rota.GeneratedRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailCreateDates[rec.Date.String()] {
		return &rota.PlatformError{Op: "create record", Err: context.DeadlineExceeded}
	}
	m.created = append(m.created, rec)
	m.records[rec.ID] = rota.ExistingRecord{
		ID:         rec.ID,
		Date:       rec.Date,
		ContractID: rec.ContractID,
	}
	return nil
}

func (m *Memory) MarkDeleted(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.records[id]
	if !ok {
		return &rota.PlatformError{Op: "mark deleted", Err: errNotFound(id)}
	}
	r.Deleted = true
	m.records[id] = r
	return nil
}

type errNotFound string

func (e errNotFound) Error() string { return "record not found: " + string(e) }

// -----------------------------------------------------------------------------
// rota.AuditSink
// -----------------------------------------------------------------------------

func (m *Memory) WriteLog(_ context.Context, entry rota.LogEntry) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextLogID++
	id := "log-" + strconv.Itoa(m.nextLogID)
	m.logs = append(m.logs, StoredLog{ID: id, Entry: entry})
	return id, nil
}

// -----------------------------------------------------------------------------
// Inspection helpers for tests
// -----------------------------------------------------------------------------

// CreatedRecords returns all records persisted via Create, in write order.
func (m *Memory) CreatedRecords() []rota.GeneratedRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]rota.GeneratedRecord, len(m.created))
	copy(out, m.created)
	return out
}

// Logs returns all audit entries written so far.
func (m *Memory) Logs() []StoredLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]StoredLog, len(m.logs))
	copy(out, m.logs)
	return out
}

// Record returns a stored record by id.
func (m *Memory) Record(id string) (rota.ExistingRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[id]
	return r, ok
}
