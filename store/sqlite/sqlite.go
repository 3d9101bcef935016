/*
Package sqlite provides a SQLite-backed implementation of the repository
interfaces.

PURPOSE:
  Implements every persistence interface the fill engine consumes
  (contracts, weekly templates, holidays, leave periods, schedule
  records, audit log) using SQLite. In production the same patterns
  apply to PostgreSQL - only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  rota.ContractRepository
  rota.TemplateRepository
  rota.HolidayRepository
  rota.LeaveRepository
  rota.RecordRepository
  rota.AuditSink

PARSING BOUNDARY:
  Rows are converted to the typed entities of the rota package inside
  this file; untyped row data never leaves it.

SOFT DELETES:
  Contracts, templates, leave periods and schedule records carry a
  deleted flag rather than being removed. The engine's filtering rules
  depend on seeing the flag on records, so ExistingRecords returns
  flagged rows and classification filters them.

KEY TABLES:
  contracts:         Employment terms and validity windows
  weekly_templates:  One row per contract per week per shift (7 day pairs)
  holidays:          Date-keyed holiday table
  leave_periods:     Inclusive date ranges of absence
  schedule_records:  Persisted per-day schedule records
  fill_logs:         Audit trail of fill runs

WAL MODE:
  SQLite is opened with WAL for better concurrency: readers don't block,
  single writer at a time, better crash recovery.

USAGE:
  st, err := sqlite.New("./data/rota.db")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()

SEE ALSO:
  - rota/repository.go: Interface definitions
  - rota/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/rota-engine/rota"
)

// Store implements all repository interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS contracts (
		id TEXT PRIMARY KEY,
		template_name TEXT NOT NULL,
		contracted_hours TEXT NOT NULL,
		start_date TEXT,
		finish_date TEXT,
		deleted INTEGER NOT NULL DEFAULT 0,
		staff_id TEXT NOT NULL,
		manager_id TEXT NOT NULL,
		group_id TEXT NOT NULL,
		auto_schedule INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_contracts_staff
		ON contracts(staff_id, manager_id, group_id);

	CREATE TABLE IF NOT EXISTS weekly_templates (
		id TEXT PRIMARY KEY,
		contract_id TEXT NOT NULL,
		week INTEGER NOT NULL,
		shift INTEGER NOT NULL,
		lunch_minutes INTEGER NOT NULL DEFAULT 0,
		deleted INTEGER NOT NULL DEFAULT 0,
		day1_start TEXT, day1_end TEXT,
		day2_start TEXT, day2_end TEXT,
		day3_start TEXT, day3_end TEXT,
		day4_start TEXT, day4_end TEXT,
		day5_start TEXT, day5_end TEXT,
		day6_start TEXT, day6_end TEXT,
		day7_start TEXT, day7_end TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_weekly_templates_contract
		ON weekly_templates(contract_id, week, shift);

	CREATE TABLE IF NOT EXISTS holidays (
		date TEXT PRIMARY KEY,
		title TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS leave_periods (
		id TEXT PRIMARY KEY,
		start_date TEXT NOT NULL,
		finish_date TEXT,
		type_of_leave TEXT NOT NULL,
		title TEXT,
		deleted INTEGER NOT NULL DEFAULT 0,
		staff_id TEXT NOT NULL,
		manager_id TEXT NOT NULL,
		group_id TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_leave_periods_staff
		ON leave_periods(staff_id, start_date);

	CREATE TABLE IF NOT EXISTS schedule_records (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		shift_start TEXT NOT NULL,
		shift_end TEXT NOT NULL,
		lunch_minutes INTEGER NOT NULL DEFAULT 0,
		contract_id TEXT,
		staff_id TEXT NOT NULL,
		manager_id TEXT NOT NULL,
		group_id TEXT NOT NULL,
		is_holiday INTEGER NOT NULL DEFAULT 0,
		leave_type TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		deleted INTEGER NOT NULL DEFAULT 0,
		checked INTEGER NOT NULL DEFAULT 0,
		export_result TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	-- Hot path: existing-record lookups per staff and period
	CREATE INDEX IF NOT EXISTS idx_schedule_records_staff_date
		ON schedule_records(staff_id, manager_id, group_id, date);

	CREATE TABLE IF NOT EXISTS fill_logs (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		result INTEGER NOT NULL,
		message TEXT NOT NULL,
		log_date TEXT NOT NULL,
		staff_id TEXT NOT NULL,
		manager_id TEXT NOT NULL,
		group_id TEXT NOT NULL,
		contract_id TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_fill_logs_staff
		ON fill_logs(staff_id, created_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// CONTRACTS
// =============================================================================

// SaveContract inserts or replaces a contract.
func (s *Store) SaveContract(ctx context.Context, c rota.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO contracts
		(id, template_name, contracted_hours, start_date, finish_date, deleted, staff_id, manager_id, group_id, auto_schedule)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.TemplateName, c.ContractedHours.String(),
		nullableDate(c.Start), nullableDate(c.Finish),
		boolInt(c.Deleted), c.StaffID, c.ManagerID, c.GroupID, boolInt(c.AutoSchedule))
	return err
}

func (s *Store) ActiveContracts(ctx context.Context, staffID, managerID, groupID string, month rota.DateOnly) ([]rota.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	first := rota.StartOfMonth(month)
	last := rota.EndOfMonth(month)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, template_name, contracted_hours, start_date, finish_date, deleted, staff_id, manager_id, group_id, auto_schedule
		FROM contracts
		WHERE staff_id = ? AND manager_id = ? AND group_id = ? AND deleted = 0
		  AND (start_date IS NULL OR start_date <= ?)
		  AND (finish_date IS NULL OR finish_date >= ?)
		ORDER BY start_date`,
		staffID, managerID, groupID, last.String(), first.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []rota.Contract
	for rows.Next() {
		var (
			c                  rota.Contract
			hours              string
			start, finish      sql.NullString
			deleted, autoSched int
		)
		if err := rows.Scan(&c.ID, &c.TemplateName, &hours, &start, &finish, &deleted, &c.StaffID, &c.ManagerID, &c.GroupID, &autoSched); err != nil {
			return nil, err
		}
		if c.ContractedHours, err = decimal.NewFromString(hours); err != nil {
			return nil, fmt.Errorf("contract %s: bad contracted_hours %q: %w", c.ID, hours, err)
		}
		if c.Start, err = scanDate(start); err != nil {
			return nil, err
		}
		if c.Finish, err = scanDate(finish); err != nil {
			return nil, err
		}
		c.Deleted = deleted != 0
		c.AutoSchedule = autoSched != 0
		out = append(out, c)
	}
	return out, rows.Err()
}

// StaffRef identifies one staff member's repository scope and their
// auto-schedule opt-in.
type StaffRef struct {
	StaffID      string
	ManagerID    string
	GroupID      string
	AutoSchedule bool
}

// ListActiveStaff returns the distinct staff members holding a contract
// active in the given month. A staff member is opted into auto-scheduling
// when any of their active contracts carries the flag. Used by the
// auto-fill scheduler.
func (s *Store) ListActiveStaff(ctx context.Context, month rota.DateOnly) ([]StaffRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	first := rota.StartOfMonth(month)
	last := rota.EndOfMonth(month)

	rows, err := s.db.QueryContext(ctx, `
		SELECT staff_id, manager_id, group_id, MAX(auto_schedule)
		FROM contracts
		WHERE deleted = 0
		  AND (start_date IS NULL OR start_date <= ?)
		  AND (finish_date IS NULL OR finish_date >= ?)
		GROUP BY staff_id, manager_id, group_id
		ORDER BY staff_id`,
		last.String(), first.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StaffRef
	for rows.Next() {
		var (
			r         StaffRef
			autoSched int
		)
		if err := rows.Scan(&r.StaffID, &r.ManagerID, &r.GroupID, &autoSched); err != nil {
			return nil, err
		}
		r.AutoSchedule = autoSched != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// =============================================================================
// WEEKLY TEMPLATES
// =============================================================================

// SaveTemplateRow inserts or replaces a weekly template row.
func (s *Store) SaveTemplateRow(ctx context.Context, row rota.WeeklyTemplateRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO weekly_templates
		(id, contract_id, week, shift, lunch_minutes, deleted,
		 day1_start, day1_end, day2_start, day2_end, day3_start, day3_end,
		 day4_start, day4_end, day5_start, day5_end, day6_start, day6_end,
		 day7_start, day7_end)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.ID, row.ContractID, row.Week, row.Shift, row.LunchMinutes, boolInt(row.Deleted),
		row.Days[0].Start, row.Days[0].End, row.Days[1].Start, row.Days[1].End,
		row.Days[2].Start, row.Days[2].End, row.Days[3].Start, row.Days[3].End,
		row.Days[4].Start, row.Days[4].End, row.Days[5].Start, row.Days[5].End,
		row.Days[6].Start, row.Days[6].End)
	return err
}

func (s *Store) TemplatesForContract(ctx context.Context, contractID string, _ rota.WeekStartDay) ([]rota.WeeklyTemplateRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, contract_id, week, shift, lunch_minutes, deleted,
		       day1_start, day1_end, day2_start, day2_end, day3_start, day3_end,
		       day4_start, day4_end, day5_start, day5_end, day6_start, day6_end,
		       day7_start, day7_end
		FROM weekly_templates
		WHERE contract_id = ?
		ORDER BY week, shift`, contractID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []rota.WeeklyTemplateRow
	for rows.Next() {
		var (
			row     rota.WeeklyTemplateRow
			deleted int
			cells   [14]sql.NullString
		)
		dest := []any{&row.ID, &row.ContractID, &row.Week, &row.Shift, &row.LunchMinutes, &deleted}
		for i := range cells {
			dest = append(dest, &cells[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		row.Deleted = deleted != 0
		for d := 0; d < 7; d++ {
			row.Days[d] = rota.DayTimes{Start: cells[d*2].String, End: cells[d*2+1].String}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func (s *Store) SaveHoliday(ctx context.Context, h rota.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO holidays (date, title) VALUES (?, ?)`,
		h.Date.String(), h.Title)
	return err
}

func (s *Store) HolidaysForMonth(ctx context.Context, month rota.DateOnly) ([]rota.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	first := rota.StartOfMonth(month)
	last := rota.EndOfMonth(month)

	rows, err := s.db.QueryContext(ctx,
		`SELECT date, title FROM holidays WHERE date >= ? AND date <= ? ORDER BY date`,
		first.String(), last.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []rota.Holiday
	for rows.Next() {
		var dateStr string
		var h rota.Holiday
		if err := rows.Scan(&dateStr, &h.Title); err != nil {
			return nil, err
		}
		if h.Date, err = rota.ParseDate(dateStr); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// =============================================================================
// LEAVE PERIODS
// =============================================================================

func (s *Store) SaveLeave(ctx context.Context, staffID, managerID, groupID string, lp rota.LeavePeriod) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if lp.ID == "" {
		lp.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO leave_periods
		(id, start_date, finish_date, type_of_leave, title, deleted, staff_id, manager_id, group_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		lp.ID, lp.Start.String(), nullableDate(lp.Finish), lp.TypeOfLeave, lp.Title,
		boolInt(lp.Deleted), staffID, managerID, groupID)
	return err
}

func (s *Store) LeavesForMonth(ctx context.Context, month rota.DateOnly, staffID, managerID, groupID string) ([]rota.LeavePeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	first := rota.StartOfMonth(month)
	last := rota.EndOfMonth(month)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, start_date, finish_date, type_of_leave, title, deleted
		FROM leave_periods
		WHERE staff_id = ? AND manager_id = ? AND group_id = ?
		  AND start_date <= ?
		  AND (finish_date IS NULL OR finish_date >= ?)
		ORDER BY start_date`,
		staffID, managerID, groupID, last.String(), first.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []rota.LeavePeriod
	for rows.Next() {
		var (
			lp       rota.LeavePeriod
			startStr string
			finish   sql.NullString
			deleted  int
		)
		if err := rows.Scan(&lp.ID, &startStr, &finish, &lp.TypeOfLeave, &lp.Title, &deleted); err != nil {
			return nil, err
		}
		if lp.Start, err = rota.ParseDate(startStr); err != nil {
			return nil, err
		}
		if lp.Finish, err = scanDate(finish); err != nil {
			return nil, err
		}
		lp.Deleted = deleted != 0
		out = append(out, lp)
	}
	return out, rows.Err()
}

// =============================================================================
// SCHEDULE RECORDS
// =============================================================================

func (s *Store) ExistingRecords(ctx context.Context, staffID, managerID, groupID string, first, last rota.DateOnly) ([]rota.ExistingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, deleted, checked, export_result, COALESCE(contract_id, '')
		FROM schedule_records
		WHERE staff_id = ? AND manager_id = ? AND group_id = ?
		  AND date >= ? AND date <= ?
		ORDER BY date`,
		staffID, managerID, groupID, first.String(), last.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []rota.ExistingRecord
	for rows.Next() {
		var (
			r       rota.ExistingRecord
			dateStr string
			deleted int
		)
		if err := rows.Scan(&r.ID, &dateStr, &deleted, &r.Checked, &r.ExportResult, &r.ContractID); err != nil {
			return nil, err
		}
		if r.Date, err = rota.ParseDate(dateStr); err != nil {
			return nil, err
		}
		r.Deleted = deleted != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) Create(ctx context.Context, rec rota.GeneratedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO schedule_records
		(id, date, shift_start, shift_end, lunch_minutes, contract_id, staff_id, manager_id, group_id,
		 is_holiday, leave_type, title, deleted, checked, export_result, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0, '', ?)`,
		rec.ID, rec.Date.String(),
		rec.ShiftStart.Format(time.RFC3339), rec.ShiftEnd.Format(time.RFC3339),
		rec.LunchMinutes, rec.ContractID, rec.StaffID, rec.ManagerID, rec.GroupID,
		boolInt(rec.IsHoliday), rec.LeaveType, rec.Title,
		time.Now().UTC().Format(time.RFC3339))
	return err
}

func (s *Store) MarkDeleted(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE schedule_records SET deleted = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("record not found: %s", id)
	}
	return nil
}

// SetRecordProcessed marks a record reviewed/exported, which blocks later
// replace runs over its period. Exists for the dashboard layer and tests.
func (s *Store) SetRecordProcessed(ctx context.Context, id string, checked int, exportResult string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`UPDATE schedule_records SET checked = ?, export_result = ? WHERE id = ?`,
		checked, exportResult, id)
	return err
}

// RecordRow is a schedule record as listed for the dashboard layer.
type RecordRow struct {
	ID           string
	Date         string
	ShiftStart   string
	ShiftEnd     string
	LunchMinutes int
	ContractID   string
	IsHoliday    bool
	LeaveType    string
	Title        string
	Checked      int
	ExportResult string
}

// ListRecords returns all non-deleted records for a staff member in a month.
func (s *Store) ListRecords(ctx context.Context, staffID, managerID, groupID string, month rota.DateOnly) ([]RecordRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	first := rota.StartOfMonth(month)
	last := rota.EndOfMonth(month)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, shift_start, shift_end, lunch_minutes, COALESCE(contract_id, ''),
		       is_holiday, leave_type, title, checked, export_result
		FROM schedule_records
		WHERE staff_id = ? AND manager_id = ? AND group_id = ?
		  AND date >= ? AND date <= ? AND deleted = 0
		ORDER BY date`,
		staffID, managerID, groupID, first.String(), last.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RecordRow
	for rows.Next() {
		var (
			r         RecordRow
			isHoliday int
		)
		if err := rows.Scan(&r.ID, &r.Date, &r.ShiftStart, &r.ShiftEnd, &r.LunchMinutes,
			&r.ContractID, &isHoliday, &r.LeaveType, &r.Title, &r.Checked, &r.ExportResult); err != nil {
			return nil, err
		}
		r.IsHoliday = isHoliday != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// =============================================================================
// AUDIT LOG
// =============================================================================

func (s *Store) WriteLog(ctx context.Context, entry rota.LogEntry) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fill_logs
		(id, title, result, message, log_date, staff_id, manager_id, group_id, contract_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, entry.Title, int(entry.Result), entry.Message, entry.Date.String(),
		entry.StaffID, entry.ManagerID, entry.GroupID, entry.ContractID,
		time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return "", err
	}
	return id, nil
}

// LogRow is one audit-log line as listed for the dashboard layer.
type LogRow struct {
	ID        string
	Title     string
	Result    int
	Message   string
	Date      string
	StaffID   string
	CreatedAt string
}

// ListLogs returns a staff member's fill logs, newest first.
func (s *Store) ListLogs(ctx context.Context, staffID string, limit int) ([]LogRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, result, message, log_date, staff_id, created_at
		FROM fill_logs
		WHERE staff_id = ?
		ORDER BY created_at DESC
		LIMIT ?`, staffID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LogRow
	for rows.Next() {
		var r LogRow
		if err := rows.Scan(&r.ID, &r.Title, &r.Result, &r.Message, &r.Date, &r.StaffID, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableDate(d *rota.DateOnly) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func scanDate(v sql.NullString) (*rota.DateOnly, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	d, err := rota.ParseDate(v.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
