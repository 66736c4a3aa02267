/*
Package leave contains the request lifecycle and balance-ledger engine.

PURPOSE:
  This package owns the only state in the system with real invariants:
  the status of a request and the per-employee balance buckets it debits
  and credits. Everything else (HTTP, notifications, receipts) is glue
  around this package.

KEY CONCEPTS IN THIS FILE (types.go):
  - Request:       The central entity: kind, frozen charge, mutable status
  - Bucket:        A named balance category (earned, sick, ..., wfh)
  - BalanceRecord: (employee, bucket) -> available/used counters
  - Employee:      Identity, role, and approver routing

DESIGN PRINCIPLES:
  1. Frozen charge: computed once at submission, never recomputed
  2. Precision: decimal.Decimal for every balance figure
  3. One source of truth: a single balances table, no parallel columns
  4. Status drives money: the balance effect of a request has happened
     if and only if the request is currently APPROVED

SEE ALSO:
  - engine.go:  the state machine applying balance effects
  - buckets.go: leave-type name -> bucket resolution
  - errors.go:  error taxonomy
*/
package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// EMPLOYEE
// =============================================================================

type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
)

// Employee is created at onboarding. Balance buckets are seeded then and
// afterwards mutated only inside lifecycle transitions.
type Employee struct {
	ID        string
	Name      string
	Email     string
	Role      Role
	ManagerID string
	CreatedAt time.Time
}

// =============================================================================
// BUCKETS AND LEAVE TYPES
// =============================================================================

// Bucket identifies a balance category for an employee.
type Bucket string

const (
	BucketEarned   Bucket = "earned"
	BucketSick     Bucket = "sick"
	BucketPersonal Bucket = "personal"
	BucketVacation Bucket = "vacation"
	BucketWFH      Bucket = "wfh"
)

// Buckets lists every known bucket, in display order.
func Buckets() []Bucket {
	return []Bucket{BucketEarned, BucketSick, BucketPersonal, BucketVacation, BucketWFH}
}

// LeaveType is immutable reference data. The name is what requesters
// pick; the bucket it charges comes from the configured BucketMap.
type LeaveType struct {
	ID   string
	Name string
}

// =============================================================================
// REQUEST - The central entity
// =============================================================================

type RequestKind string

const (
	KindLeave   RequestKind = "LEAVE"
	KindWFH     RequestKind = "WFH"
	KindExpense RequestKind = "EXPENSE"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusCancelled Status = "CANCELLED"
)

// Decision is the verdict a manager passes to Decide.
type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionReject  Decision = "REJECT"
)

// Request is a leave, WFH, or expense request.
//
// Charge is frozen at submission: working days for LEAVE/WFH, the
// currency amount for EXPENSE. Every balance adjustment for this
// request uses this value, even if the holiday calendar changes later.
type Request struct {
	ID          string
	EmployeeID  string
	ApproverID  string
	Kind        RequestKind
	LeaveTypeID string // empty unless Kind == KindLeave

	StartDate time.Time
	EndDate   time.Time // equals StartDate for EXPENSE

	Charge      decimal.Decimal
	Description string
	Receipt     []byte // EXPENSE only

	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasReceipt reports whether a receipt document is attached.
func (r *Request) HasReceipt() bool { return len(r.Receipt) > 0 }

// =============================================================================
// BALANCE RECORD
// =============================================================================

// BalanceRecord tracks one (employee, bucket) pair.
//
// INVARIANTS:
//   - Available never goes negative: debits require Available >= amount
//   - Used is floored at zero on credit
//   - A credit exactly reverses the debit it corresponds to, using the
//     request's frozen charge, so Available+Used is conserved across
//     the debit/credit pair of a single request
type BalanceRecord struct {
	EmployeeID string
	Bucket     Bucket
	Available  decimal.Decimal
	Used       decimal.Decimal
	UpdatedAt  time.Time
}

// =============================================================================
// NOTIFICATION
// =============================================================================

// Notification informs an employee of a lifecycle transition. Delivery
// is best-effort and always happens after the transition committed.
type Notification struct {
	ID         string
	EmployeeID string
	Message    string
	RequestID  string
	Read       bool
	CreatedAt  time.Time
}

// Notifier receives committed-transition notifications. Implementations
// must never fail the transition: errors are logged and dropped.
type Notifier interface {
	Notify(n Notification)
}

// NopNotifier discards notifications. Useful in tests.
type NopNotifier struct{}

func (NopNotifier) Notify(Notification) {}
