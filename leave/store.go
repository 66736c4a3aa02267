/*
store.go - Persistence interfaces for the lifecycle engine

PURPOSE:
  The engine's only contact with storage. Concurrency correctness rests
  entirely on the transactional semantics promised here, not on any
  in-memory locking in the engine itself.

TRANSACTION CONTRACT:
  WithTx runs fn inside a single storage transaction holding the write
  lock. Everything fn does through Tx commits together or not at all.
  Two concurrent WithTx calls on the same request serialize: the second
  observes the first's committed state (and typically fails its status
  precondition with ErrStaleState). A lock that cannot be acquired
  within the store's bounded wait surfaces as ErrTimeout.

BALANCE CONTRACT:
  Debit fails with InsufficientBalanceError when available < amount;
  otherwise available -= amount, used += amount. Credit never fails for
  lack of used: available += amount, used = max(0, used-amount). A
  refund must always succeed even if used bookkeeping had drifted.
  Balance rows are written exclusively through Tx - request creation
  never touches balances.

SEE ALSO:
  - store/sqlite: durable implementation (SQLite, WAL, immediate tx)
  - store/memory: in-memory implementation for unit tests
*/
package leave

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STORE - Read side plus transaction entry point
// =============================================================================

// Store is what the lifecycle engine needs from persistence.
type Store interface {
	// CreateRequest persists a new request with status PENDING and the
	// frozen charge. No balance effect.
	CreateRequest(ctx context.Context, r *Request) error

	// GetRequest returns the full record or ErrNotFound.
	GetRequest(ctx context.Context, id string) (*Request, error)

	// ListByEmployee returns an employee's requests, most recent first.
	// kind == "" means all kinds.
	ListByEmployee(ctx context.Context, employeeID string, kind RequestKind) ([]Request, error)

	// ListByApprover returns requests routed to an approver, filtered by
	// status. Pending inbox is oldest-first; anything else most recent
	// first. No statuses means all.
	ListByApprover(ctx context.Context, approverID string, statuses ...Status) ([]Request, error)

	// Balances returns every bucket row for an employee.
	Balances(ctx context.Context, employeeID string) ([]BalanceRecord, error)

	// GetLeaveTypeByName resolves catalog entries at submission time.
	GetLeaveTypeByName(ctx context.Context, name string) (*LeaveType, error)

	// ListLeaveTypes returns the catalog, for startup mapping validation.
	ListLeaveTypes(ctx context.Context) ([]LeaveType, error)

	// HolidayDates returns the holiday calendar. Callers treat a failure
	// as an empty calendar - holidays must never block submission.
	HolidayDates(ctx context.Context) ([]time.Time, error)

	// WithTx executes fn inside a single storage transaction.
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// =============================================================================
// TX - Operations available inside a transition
// =============================================================================

// Tx is the transactional view a lifecycle transition works through.
type Tx interface {
	// GetRequest re-reads current state under the transaction's lock.
	GetRequest(ctx context.Context, id string) (*Request, error)

	// GetLeaveType resolves the leave-type name for bucket mapping.
	GetLeaveType(ctx context.Context, id string) (*LeaveType, error)

	// SetStatus writes the new status and updated timestamp.
	SetStatus(ctx context.Context, id string, status Status, at time.Time) error

	// DeleteRequest removes the row. Status rules are enforced by the
	// engine before calling.
	DeleteRequest(ctx context.Context, id string) error

	// Debit applies available -= amount, used += amount, failing with
	// InsufficientBalanceError when available < amount.
	Debit(ctx context.Context, employeeID string, bucket Bucket, amount decimal.Decimal) error

	// Credit applies available += amount, used = max(0, used-amount).
	Credit(ctx context.Context, employeeID string, bucket Bucket, amount decimal.Decimal) error
}
