/*
Package memory provides an in-memory implementation of the storage
interfaces.

PURPOSE:
  Backs unit tests with the same transactional contract as the SQLite
  store, without touching disk. A single mutex serializes transactions;
  transaction writes are staged and applied only on commit, so a failed
  transition leaves nothing behind.

NOT FOR PRODUCTION:
  Data is lost on restart. Use store/sqlite for anything durable.

SEE ALSO:
  - leave/store.go: interface contracts this package implements
*/
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/crewpoint/leavedesk/leave"
)

// Store implements leave.Store in memory.
type Store struct {
	mu         sync.Mutex
	requests   map[string]leave.Request
	balances   map[balanceKey]leave.BalanceRecord
	leaveTypes []leave.LeaveType
	employees  map[string]leave.Employee
	holidays   []time.Time
}

type balanceKey struct {
	employeeID string
	bucket     leave.Bucket
}

// New creates an empty store seeded with the standard leave-type
// catalog.
func New() *Store {
	return &Store{
		requests:  make(map[string]leave.Request),
		balances:  make(map[balanceKey]leave.BalanceRecord),
		employees: make(map[string]leave.Employee),
		leaveTypes: []leave.LeaveType{
			{ID: "lt-earned", Name: "Earned Leave"},
			{ID: "lt-sick", Name: "Sick Leave"},
			{ID: "lt-personal", Name: "Personal Leave"},
			{ID: "lt-vacation", Name: "Vacation Leave"},
		},
	}
}

// =============================================================================
// TEST SEEDING HELPERS
// =============================================================================

// SetBalance installs a balance row directly.
func (s *Store) SetBalance(employeeID string, bucket leave.Bucket, available, used decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[balanceKey{employeeID, bucket}] = leave.BalanceRecord{
		EmployeeID: employeeID,
		Bucket:     bucket,
		Available:  available,
		Used:       used,
		UpdatedAt:  time.Now().UTC(),
	}
}

// AddHoliday adds a date to the holiday calendar.
func (s *Store) AddHoliday(date time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.holidays = append(s.holidays, date)
}

// SaveEmployee upserts an employee.
func (s *Store) SaveEmployee(ctx context.Context, emp leave.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.employees[emp.ID] = emp
	return nil
}

// GetEmployee retrieves an employee or leave.ErrNotFound.
func (s *Store) GetEmployee(ctx context.Context, id string) (*leave.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	emp, ok := s.employees[id]
	if !ok {
		return nil, leave.ErrNotFound
	}
	return &emp, nil
}

// =============================================================================
// leave.Store
// =============================================================================

func (s *Store) CreateRequest(ctx context.Context, r *leave.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[r.ID] = *r
	return nil
}

func (s *Store) GetRequest(ctx context.Context, id string) (*leave.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, leave.ErrNotFound
	}
	return &r, nil
}

func (s *Store) ListByEmployee(ctx context.Context, employeeID string, kind leave.RequestKind) ([]leave.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []leave.Request
	for _, r := range s.requests {
		if r.EmployeeID != employeeID {
			continue
		}
		if kind != "" && r.Kind != kind {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) ListByApprover(ctx context.Context, approverID string, statuses ...leave.Status) ([]leave.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := make(map[leave.Status]bool, len(statuses))
	for _, st := range statuses {
		wanted[st] = true
	}

	var out []leave.Request
	for _, r := range s.requests {
		if r.ApproverID != approverID {
			continue
		}
		if len(wanted) > 0 && !wanted[r.Status] {
			continue
		}
		out = append(out, r)
	}

	if len(statuses) == 1 && statuses[0] == leave.StatusPending {
		sort.Slice(out, func(i, j int) bool {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		})
	} else {
		sort.Slice(out, func(i, j int) bool {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		})
	}
	return out, nil
}

func (s *Store) Balances(ctx context.Context, employeeID string) ([]leave.BalanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []leave.BalanceRecord
	for key, rec := range s.balances {
		if key.employeeID == employeeID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Bucket < out[j].Bucket
	})
	return out, nil
}

func (s *Store) GetLeaveTypeByName(ctx context.Context, name string) (*leave.LeaveType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, lt := range s.leaveTypes {
		if strings.EqualFold(lt.Name, name) {
			found := lt
			return &found, nil
		}
	}
	return nil, leave.ErrNotFound
}

func (s *Store) ListLeaveTypes(ctx context.Context) ([]leave.LeaveType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]leave.LeaveType, len(s.leaveTypes))
	copy(out, s.leaveTypes)
	return out, nil
}

func (s *Store) HolidayDates(ctx context.Context) ([]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Time, len(s.holidays))
	copy(out, s.holidays)
	return out, nil
}

// WithTx serializes on the store mutex. Writes made through the Tx are
// staged and applied only if fn returns nil, matching the commit/
// rollback behavior of the SQLite store.
func (s *Store) WithTx(ctx context.Context, fn func(tx leave.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		store:    s,
		requests: make(map[string]leave.Request),
		deletes:  make(map[string]bool),
		balances: make(map[balanceKey]leave.BalanceRecord),
	}

	if err := fn(tx); err != nil {
		return err
	}

	// Commit.
	for id, r := range tx.requests {
		s.requests[id] = r
	}
	for id := range tx.deletes {
		delete(s.requests, id)
	}
	for key, rec := range tx.balances {
		s.balances[key] = rec
	}
	return nil
}

// =============================================================================
// TRANSACTION VIEW
// =============================================================================

type memTx struct {
	store    *Store
	requests map[string]leave.Request
	deletes  map[string]bool
	balances map[balanceKey]leave.BalanceRecord
}

func (tx *memTx) GetRequest(ctx context.Context, id string) (*leave.Request, error) {
	if tx.deletes[id] {
		return nil, leave.ErrNotFound
	}
	if r, ok := tx.requests[id]; ok {
		return &r, nil
	}
	r, ok := tx.store.requests[id]
	if !ok {
		return nil, leave.ErrNotFound
	}
	return &r, nil
}

func (tx *memTx) GetLeaveType(ctx context.Context, id string) (*leave.LeaveType, error) {
	for _, lt := range tx.store.leaveTypes {
		if lt.ID == id {
			found := lt
			return &found, nil
		}
	}
	return nil, leave.ErrNotFound
}

func (tx *memTx) SetStatus(ctx context.Context, id string, status leave.Status, at time.Time) error {
	r, err := tx.GetRequest(ctx, id)
	if err != nil {
		return err
	}
	r.Status = status
	r.UpdatedAt = at
	tx.requests[id] = *r
	return nil
}

func (tx *memTx) DeleteRequest(ctx context.Context, id string) error {
	if _, err := tx.GetRequest(ctx, id); err != nil {
		return err
	}
	delete(tx.requests, id)
	tx.deletes[id] = true
	return nil
}

func (tx *memTx) Debit(ctx context.Context, employeeID string, bucket leave.Bucket, amount decimal.Decimal) error {
	rec, err := tx.balance(employeeID, bucket)
	if err != nil {
		return err
	}

	if rec.Available.LessThan(amount) {
		return &leave.InsufficientBalanceError{
			EmployeeID: employeeID,
			Bucket:     bucket,
			Requested:  amount,
			Available:  rec.Available,
		}
	}

	rec.Available = rec.Available.Sub(amount)
	rec.Used = rec.Used.Add(amount)
	rec.UpdatedAt = time.Now().UTC()
	tx.balances[balanceKey{employeeID, bucket}] = rec
	return nil
}

func (tx *memTx) Credit(ctx context.Context, employeeID string, bucket leave.Bucket, amount decimal.Decimal) error {
	rec, err := tx.balance(employeeID, bucket)
	if err != nil {
		return err
	}

	rec.Available = rec.Available.Add(amount)
	rec.Used = rec.Used.Sub(amount)
	if rec.Used.IsNegative() {
		rec.Used = decimal.Zero
	}
	rec.UpdatedAt = time.Now().UTC()
	tx.balances[balanceKey{employeeID, bucket}] = rec
	return nil
}

func (tx *memTx) balance(employeeID string, bucket leave.Bucket) (leave.BalanceRecord, error) {
	key := balanceKey{employeeID, bucket}
	if rec, ok := tx.balances[key]; ok {
		return rec, nil
	}
	rec, ok := tx.store.balances[key]
	if !ok {
		return leave.BalanceRecord{}, leave.ErrNotFound
	}
	return rec, nil
}
