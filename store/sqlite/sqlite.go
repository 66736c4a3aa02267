/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements leave.Store (request ledger + balance store) plus the
  supporting tables the API needs: employees, leave types, holidays,
  notifications. In production the same patterns apply to PostgreSQL -
  only minor SQL dialect differences.

KEY TABLES:
  requests:      The request ledger. Charge is frozen at insert; only
                 status and updated_at ever change.
  balances:      (employee_id, bucket) -> available/used. The single
                 source of truth for entitlements - there is
                 deliberately no duplicate per-employee balance column
                 anywhere else.
  employees:     Identity, role, approver routing.
  leave_types:   Catalog, seeded at migration.
  holidays:      Calendar entries excluded from working-day counts.
  notifications: Per-employee transition messages with read tracking.

CONCURRENCY:
  The database is opened with WAL, a busy timeout, and immediate
  transactions. WithTx takes the write lock up front, so a lifecycle
  transition holds exclusive write access to the request and balance
  rows for its whole duration; a concurrent transition blocks until
  commit/rollback and then re-reads fresh state. A lock wait that
  exceeds the busy timeout surfaces as leave.ErrTimeout.

  A sync.Mutex additionally serializes in-process writers, the same
  belt-and-braces approach as running against a single connection.

USAGE:
  store, err := sqlite.New("./data/leavedesk.db", logger)
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - leave/store.go: interface contracts this package implements
  - store/memory:   in-memory implementation used by unit tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/crewpoint/leavedesk/leave"
)

// Store implements leave.Store and the supporting admin operations.
type Store struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger
}

// New opens (or creates) the database and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the schema and seeds the leave-type catalog.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		role TEXT NOT NULL DEFAULT 'employee',
		manager_id TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_employees_manager
		ON employees(manager_id);

	CREATE TABLE IF NOT EXISTS leave_types (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	);

	-- The request ledger. The charge column is written once at insert
	-- and never updated afterwards.
	CREATE TABLE IF NOT EXISTS requests (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		approver_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		leave_type_id TEXT,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		charge TEXT NOT NULL,
		description TEXT,
		receipt BLOB,
		status TEXT NOT NULL DEFAULT 'PENDING',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_requests_employee
		ON requests(employee_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_requests_approver_status
		ON requests(approver_id, status);

	-- Single source of truth for balances.
	CREATE TABLE IF NOT EXISTS balances (
		employee_id TEXT NOT NULL,
		bucket TEXT NOT NULL,
		available TEXT NOT NULL,
		used TEXT NOT NULL DEFAULT '0',
		updated_at TEXT NOT NULL,
		PRIMARY KEY (employee_id, bucket)
	);

	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE(date, name)
	);

	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		message TEXT NOT NULL,
		request_id TEXT,
		read INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_notifications_employee
		ON notifications(employee_id, read);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// Fixed leave-type taxonomy.
	seed := `
	INSERT OR IGNORE INTO leave_types (id, name) VALUES
		('lt-earned', 'Earned Leave'),
		('lt-sick', 'Sick Leave'),
		('lt-personal', 'Personal Leave'),
		('lt-vacation', 'Vacation Leave');
	`
	_, err := s.db.Exec(seed)
	return err
}

// =============================================================================
// REQUEST LEDGER (leave.Store interface)
// =============================================================================

// CreateRequest persists a new request. No balance effect.
func (s *Store) CreateRequest(ctx context.Context, r *leave.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO requests
		(id, employee_id, approver_id, kind, leave_type_id, start_date, end_date,
		 charge, description, receipt, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.EmployeeID, r.ApproverID, r.Kind,
		nullString(r.LeaveTypeID),
		r.StartDate.Format(time.RFC3339), r.EndDate.Format(time.RFC3339),
		r.Charge.String(), r.Description, r.Receipt, r.Status,
		r.CreatedAt.Format(time.RFC3339), r.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert request: %w", err)
	}
	return nil
}

// GetRequest returns the full record, receipt included.
func (s *Store) GetRequest(ctx context.Context, id string) (*leave.Request, error) {
	return getRequest(ctx, s.db, id)
}

func getRequest(ctx context.Context, q queryer, id string) (*leave.Request, error) {
	query := `
		SELECT id, employee_id, approver_id, kind, leave_type_id, start_date, end_date,
		       charge, description, receipt, status, created_at, updated_at
		FROM requests WHERE id = ?
	`

	var (
		r           leave.Request
		leaveTypeID sql.NullString
		description sql.NullString
		charge      string
		startDate   string
		endDate     string
		createdAt   string
		updatedAt   string
	)

	err := q.QueryRowContext(ctx, query, id).Scan(
		&r.ID, &r.EmployeeID, &r.ApproverID, &r.Kind, &leaveTypeID,
		&startDate, &endDate, &charge, &description, &r.Receipt,
		&r.Status, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, leave.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan request: %w", err)
	}

	r.LeaveTypeID = leaveTypeID.String
	r.Description = description.String
	if r.Charge, err = parseDecimal("charge", charge); err != nil {
		return nil, err
	}
	if r.StartDate, err = parseTime("start_date", startDate); err != nil {
		return nil, err
	}
	if r.EndDate, err = parseTime("end_date", endDate); err != nil {
		return nil, err
	}
	if r.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return nil, err
	}
	if r.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// ListByEmployee returns an employee's requests, most recent first.
// Receipt blobs are omitted from listings; fetch them via GetRequest.
func (s *Store) ListByEmployee(ctx context.Context, employeeID string, kind leave.RequestKind) ([]leave.Request, error) {
	query := `
		SELECT id, employee_id, approver_id, kind, leave_type_id, start_date, end_date,
		       charge, description, (receipt IS NOT NULL), status, created_at, updated_at
		FROM requests
		WHERE employee_id = ?
	`
	args := []any{employeeID}
	if kind != "" {
		query += " AND kind = ?"
		args = append(args, kind)
	}
	query += " ORDER BY created_at DESC"

	return s.queryRequests(ctx, query, args...)
}

// ListByApprover returns requests routed to an approver. The pending
// inbox is oldest-first so nothing starves; everything else is newest-
// first history.
func (s *Store) ListByApprover(ctx context.Context, approverID string, statuses ...leave.Status) ([]leave.Request, error) {
	query := `
		SELECT id, employee_id, approver_id, kind, leave_type_id, start_date, end_date,
		       charge, description, (receipt IS NOT NULL), status, created_at, updated_at
		FROM requests
		WHERE approver_id = ?
	`
	args := []any{approverID}

	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, st := range statuses {
			placeholders[i] = "?"
			args = append(args, st)
		}
		query += " AND status IN (" + strings.Join(placeholders, ", ") + ")"
	}

	if len(statuses) == 1 && statuses[0] == leave.StatusPending {
		query += " ORDER BY created_at ASC"
	} else {
		query += " ORDER BY updated_at DESC"
	}

	return s.queryRequests(ctx, query, args...)
}

func (s *Store) queryRequests(ctx context.Context, query string, args ...any) ([]leave.Request, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	var requests []leave.Request
	for rows.Next() {
		var (
			r           leave.Request
			leaveTypeID sql.NullString
			description sql.NullString
			charge      string
			startDate   string
			endDate     string
			hasReceipt  bool
			createdAt   string
			updatedAt   string
		)
		if err := rows.Scan(
			&r.ID, &r.EmployeeID, &r.ApproverID, &r.Kind, &leaveTypeID,
			&startDate, &endDate, &charge, &description, &hasReceipt,
			&r.Status, &createdAt, &updatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}

		r.LeaveTypeID = leaveTypeID.String
		r.Description = description.String
		if r.Charge, err = parseDecimal("charge", charge); err != nil {
			return nil, err
		}
		if r.StartDate, err = parseTime("start_date", startDate); err != nil {
			return nil, err
		}
		if r.EndDate, err = parseTime("end_date", endDate); err != nil {
			return nil, err
		}
		if r.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
			return nil, err
		}
		if r.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
			return nil, err
		}
		if hasReceipt {
			// Presence marker only.
			r.Receipt = []byte{1}
		}

		requests = append(requests, r)
	}
	return requests, rows.Err()
}

// =============================================================================
// BALANCE STORE (read side)
// =============================================================================

// Balances returns every bucket row for an employee, in bucket order.
func (s *Store) Balances(ctx context.Context, employeeID string) ([]leave.BalanceRecord, error) {
	query := `
		SELECT employee_id, bucket, available, used, updated_at
		FROM balances
		WHERE employee_id = ?
		ORDER BY bucket ASC
	`

	rows, err := s.db.QueryContext(ctx, query, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query balances: %w", err)
	}
	defer rows.Close()

	var records []leave.BalanceRecord
	for rows.Next() {
		var (
			rec       leave.BalanceRecord
			available string
			used      string
			updatedAt string
		)
		if err := rows.Scan(&rec.EmployeeID, &rec.Bucket, &available, &used, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		if rec.Available, err = parseDecimal("available", available); err != nil {
			return nil, err
		}
		if rec.Used, err = parseDecimal("used", used); err != nil {
			return nil, err
		}
		if rec.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// InitBalances seeds an employee's bucket rows at onboarding. Existing
// rows are left untouched; after onboarding only lifecycle transitions
// write balances.
func (s *Store) InitBalances(ctx context.Context, employeeID string, defaults map[leave.Bucket]decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO balances (employee_id, bucket, available, used, updated_at)
		VALUES (?, ?, ?, '0', ?)
		ON CONFLICT(employee_id, bucket) DO NOTHING
	`

	now := time.Now().UTC().Format(time.RFC3339)
	for _, bucket := range leave.Buckets() {
		available := decimal.Zero
		if v, ok := defaults[bucket]; ok {
			available = v
		}
		if _, err := s.db.ExecContext(ctx, query, employeeID, bucket, available.String(), now); err != nil {
			return fmt.Errorf("failed to seed balance %s/%s: %w", employeeID, bucket, err)
		}
	}
	return nil
}

// =============================================================================
// TRANSACTIONAL STORE (leave.Store WithTx)
// =============================================================================

// WithTx executes fn inside a single immediate transaction. Everything
// fn does through the Tx commits together or rolls back together.
func (s *Store) WithTx(ctx context.Context, fn func(tx leave.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		if isBusyError(err) {
			return leave.ErrTimeout
		}
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		if isBusyError(err) {
			return leave.ErrTimeout
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		if isBusyError(err) {
			return leave.ErrTimeout
		}
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) GetRequest(ctx context.Context, id string) (*leave.Request, error) {
	return getRequest(ctx, ts.tx, id)
}

func (ts *txStore) GetLeaveType(ctx context.Context, id string) (*leave.LeaveType, error) {
	var lt leave.LeaveType
	err := ts.tx.QueryRowContext(ctx,
		"SELECT id, name FROM leave_types WHERE id = ?", id,
	).Scan(&lt.ID, &lt.Name)
	if err == sql.ErrNoRows {
		return nil, leave.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load leave type: %w", err)
	}
	return &lt, nil
}

func (ts *txStore) SetStatus(ctx context.Context, id string, status leave.Status, at time.Time) error {
	res, err := ts.tx.ExecContext(ctx,
		"UPDATE requests SET status = ?, updated_at = ? WHERE id = ?",
		status, at.Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return leave.ErrNotFound
	}
	return nil
}

func (ts *txStore) DeleteRequest(ctx context.Context, id string) error {
	res, err := ts.tx.ExecContext(ctx, "DELETE FROM requests WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete request: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return leave.ErrNotFound
	}
	return nil
}

// Debit decreases available and increases used, failing when the
// bucket would go negative. Decimal arithmetic happens in Go; the row
// is protected by the transaction's write lock.
func (ts *txStore) Debit(ctx context.Context, employeeID string, bucket leave.Bucket, amount decimal.Decimal) error {
	available, used, err := ts.balance(ctx, employeeID, bucket)
	if err != nil {
		return err
	}

	if available.LessThan(amount) {
		return &leave.InsufficientBalanceError{
			EmployeeID: employeeID,
			Bucket:     bucket,
			Requested:  amount,
			Available:  available,
		}
	}

	return ts.writeBalance(ctx, employeeID, bucket,
		available.Sub(amount), used.Add(amount))
}

// Credit is unconditional: a refund must always succeed even if used
// bookkeeping had drifted. Used is floored at zero.
func (ts *txStore) Credit(ctx context.Context, employeeID string, bucket leave.Bucket, amount decimal.Decimal) error {
	available, used, err := ts.balance(ctx, employeeID, bucket)
	if err != nil {
		return err
	}

	newUsed := used.Sub(amount)
	if newUsed.IsNegative() {
		newUsed = decimal.Zero
	}

	return ts.writeBalance(ctx, employeeID, bucket, available.Add(amount), newUsed)
}

func (ts *txStore) balance(ctx context.Context, employeeID string, bucket leave.Bucket) (available, used decimal.Decimal, err error) {
	var availableStr, usedStr string
	err = ts.tx.QueryRowContext(ctx,
		"SELECT available, used FROM balances WHERE employee_id = ? AND bucket = ?",
		employeeID, bucket,
	).Scan(&availableStr, &usedStr)
	if err == sql.ErrNoRows {
		return decimal.Zero, decimal.Zero, leave.ErrNotFound
	}
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("failed to read balance: %w", err)
	}
	if available, err = parseDecimal("available", availableStr); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	if used, err = parseDecimal("used", usedStr); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return available, used, nil
}

func (ts *txStore) writeBalance(ctx context.Context, employeeID string, bucket leave.Bucket, available, used decimal.Decimal) error {
	_, err := ts.tx.ExecContext(ctx,
		"UPDATE balances SET available = ?, used = ?, updated_at = ? WHERE employee_id = ? AND bucket = ?",
		available.String(), used.String(), time.Now().UTC().Format(time.RFC3339),
		employeeID, bucket,
	)
	if err != nil {
		return fmt.Errorf("failed to write balance: %w", err)
	}
	return nil
}

// =============================================================================
// LEAVE TYPES
// =============================================================================

// GetLeaveTypeByName resolves a catalog entry, case-insensitively.
func (s *Store) GetLeaveTypeByName(ctx context.Context, name string) (*leave.LeaveType, error) {
	var lt leave.LeaveType
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name FROM leave_types WHERE name = ? COLLATE NOCASE", name,
	).Scan(&lt.ID, &lt.Name)
	if err == sql.ErrNoRows {
		return nil, leave.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load leave type: %w", err)
	}
	return &lt, nil
}

// ListLeaveTypes returns the catalog, alphabetically.
func (s *Store) ListLeaveTypes(ctx context.Context) ([]leave.LeaveType, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name FROM leave_types ORDER BY name ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query leave types: %w", err)
	}
	defer rows.Close()

	var types []leave.LeaveType
	for rows.Next() {
		var lt leave.LeaveType
		if err := rows.Scan(&lt.ID, &lt.Name); err != nil {
			return nil, err
		}
		types = append(types, lt)
	}
	return types, rows.Err()
}

// =============================================================================
// EMPLOYEES
// =============================================================================

// SaveEmployee upserts an employee record.
func (s *Store) SaveEmployee(ctx context.Context, emp leave.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO employees (id, name, email, role, manager_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			role = excluded.role,
			manager_id = excluded.manager_id
	`

	_, err := s.db.ExecContext(ctx, query,
		emp.ID, emp.Name, emp.Email, emp.Role, nullString(emp.ManagerID),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetEmployee retrieves an employee or leave.ErrNotFound.
func (s *Store) GetEmployee(ctx context.Context, id string) (*leave.Employee, error) {
	var (
		emp       leave.Employee
		managerID sql.NullString
		email     sql.NullString
		createdAt string
	)

	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, email, role, manager_id, created_at FROM employees WHERE id = ?", id,
	).Scan(&emp.ID, &emp.Name, &email, &emp.Role, &managerID, &createdAt)
	if err == sql.ErrNoRows {
		return nil, leave.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load employee: %w", err)
	}

	emp.Email = email.String
	emp.ManagerID = managerID.String
	if emp.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return nil, err
	}
	return &emp, nil
}

// ListEmployees returns all employees, by name.
func (s *Store) ListEmployees(ctx context.Context) ([]leave.Employee, error) {
	return s.queryEmployees(ctx,
		"SELECT id, name, email, role, manager_id, created_at FROM employees ORDER BY name ASC")
}

// ListTeam returns the employees reporting to a manager.
func (s *Store) ListTeam(ctx context.Context, managerID string) ([]leave.Employee, error) {
	return s.queryEmployees(ctx,
		"SELECT id, name, email, role, manager_id, created_at FROM employees WHERE manager_id = ? ORDER BY name ASC",
		managerID)
}

func (s *Store) queryEmployees(ctx context.Context, query string, args ...any) ([]leave.Employee, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var employees []leave.Employee
	for rows.Next() {
		var (
			emp       leave.Employee
			email     sql.NullString
			managerID sql.NullString
			createdAt string
		)
		if err := rows.Scan(&emp.ID, &emp.Name, &email, &emp.Role, &managerID, &createdAt); err != nil {
			return nil, err
		}
		emp.Email = email.String
		emp.ManagerID = managerID.String
		if emp.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
			return nil, err
		}
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

// =============================================================================
// HOLIDAYS
// =============================================================================

// Holiday is a calendar entry excluded from working-day counts.
type Holiday struct {
	ID        string
	Date      time.Time
	Name      string
	CreatedAt time.Time
}

// SaveHoliday inserts a holiday; duplicates on (date, name) are ignored.
func (s *Store) SaveHoliday(ctx context.Context, h Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO holidays (id, date, name, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(date, name) DO NOTHING
	`

	_, err := s.db.ExecContext(ctx, query,
		h.ID, h.Date.Format("2006-01-02"), h.Name,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// DeleteHoliday removes a holiday by ID.
func (s *Store) DeleteHoliday(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM holidays WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return leave.ErrNotFound
	}
	return nil
}

// ListHolidays returns all holidays, chronologically.
func (s *Store) ListHolidays(ctx context.Context) ([]Holiday, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, date, name, created_at FROM holidays ORDER BY date ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query holidays: %w", err)
	}
	defer rows.Close()

	var holidays []Holiday
	for rows.Next() {
		var (
			h         Holiday
			date      string
			createdAt string
		)
		if err := rows.Scan(&h.ID, &date, &h.Name, &createdAt); err != nil {
			return nil, err
		}
		if h.Date, err = time.Parse("2006-01-02", date); err != nil {
			return nil, fmt.Errorf("corrupt date value %q: %w", date, err)
		}
		if h.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
			return nil, err
		}
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

// HolidayDates returns just the dates, for the working-day calendar.
func (s *Store) HolidayDates(ctx context.Context) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT date FROM holidays")
	if err != nil {
		return nil, fmt.Errorf("failed to query holiday dates: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var date string
		if err := rows.Scan(&date); err != nil {
			return nil, err
		}
		d, err := time.Parse("2006-01-02", date)
		if err != nil {
			return nil, fmt.Errorf("corrupt date value %q: %w", date, err)
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

// SaveNotification persists a transition notification.
func (s *Store) SaveNotification(ctx context.Context, n leave.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO notifications (id, employee_id, message, request_id, read, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		n.ID, n.EmployeeID, n.Message, nullString(n.RequestID),
		n.Read, n.CreatedAt.Format(time.RFC3339),
	)
	return err
}

// ListNotifications returns an employee's notifications, newest first.
func (s *Store) ListNotifications(ctx context.Context, employeeID string) ([]leave.Notification, error) {
	query := `
		SELECT id, employee_id, message, request_id, read, created_at
		FROM notifications
		WHERE employee_id = ?
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []leave.Notification
	for rows.Next() {
		var (
			n         leave.Notification
			requestID sql.NullString
			createdAt string
		)
		if err := rows.Scan(&n.ID, &n.EmployeeID, &n.Message, &requestID, &n.Read, &createdAt); err != nil {
			return nil, err
		}
		n.RequestID = requestID.String
		if n.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkNotificationRead marks one notification as read, scoped to its owner.
func (s *Store) MarkNotificationRead(ctx context.Context, id, employeeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET read = 1 WHERE id = ? AND employee_id = ?",
		id, employeeID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return leave.ErrNotFound
	}
	return nil
}

// MarkAllNotificationsRead marks all of an employee's notifications read.
func (s *Store) MarkAllNotificationsRead(ctx context.Context, employeeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET read = 1 WHERE employee_id = ?", employeeID)
	return err
}

// UnreadNotificationCount returns the number of unread notifications.
func (s *Store) UnreadNotificationCount(ctx context.Context, employeeID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM notifications WHERE employee_id = ? AND read = 0",
		employeeID,
	).Scan(&count)
	return count, err
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"requests", "balances", "notifications", "holidays", "employees"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// parseDecimal rejects corrupt stored values instead of degrading to
// zero: a charge that cannot be parsed must never read back as 0.
func parseDecimal(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("corrupt %s value %q: %w", field, s, err)
	}
	return d, nil
}

func parseTime(field, s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("corrupt %s value %q: %w", field, s, err)
	}
	return t, nil
}

func isBusyError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "database is locked") ||
		strings.Contains(err.Error(), "database table is locked"))
}
