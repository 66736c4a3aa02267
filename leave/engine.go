/*
engine.go - The request lifecycle state machine

PURPOSE:
  Transitions a request between statuses and applies the matching
  balance adjustment in the same storage transaction. This is the only
  code path that ever writes balances.

STATE MACHINE:

  PENDING ──▶ APPROVED ──▶ CANCELLED
     │            (credit)
     └─────▶ REJECTED

  APPROVE debits, CANCEL credits, everything else leaves balances
  untouched. PENDING and REJECTED requests may be deleted; APPROVED
  and CANCELLED history is immutable.

TRANSITION PROTOCOL (every transition):
  1. Open the store's write transaction (bounded lock wait)
  2. Re-read status; precondition mismatch -> ErrStaleState
  3. Resolve the balance bucket (mapping table, or fixed wfh bucket)
  4. Apply the balance effect; InsufficientBalance aborts everything
  5. Write the new status and timestamp
  6. Commit - or roll the whole thing back
  7. After commit: best-effort notification, outside the transaction

  Step 2 under the lock of step 1 is what guarantees at-most-once
  debit/credit under concurrent decisions: the loser of a race sees the
  winner's committed status and fails cleanly instead of double-
  applying.

SEE ALSO:
  - store.go: the transaction and balance contracts
  - workday:  charge computation at submission
*/
package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/crewpoint/leavedesk/workday"
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine runs the request lifecycle. All dependencies are injected;
// the engine itself holds no mutable state.
type Engine struct {
	Store    Store
	Buckets  BucketMap
	Notifier Notifier
	Logger   *zap.Logger
}

// NewEngine wires an engine. A nil notifier drops notifications; a nil
// logger is replaced with a no-op one.
func NewEngine(store Store, buckets BucketMap, notifier Notifier, logger *zap.Logger) *Engine {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{Store: store, Buckets: buckets, Notifier: notifier, Logger: logger}
}

// =============================================================================
// SUBMIT - Create a PENDING request with a frozen charge
// =============================================================================

// SubmitInput carries everything needed to create a request.
type SubmitInput struct {
	EmployeeID    string
	ApproverID    string
	Kind          RequestKind
	LeaveTypeName string // LEAVE only
	StartDate     time.Time
	EndDate       time.Time // ignored for EXPENSE
	Amount        decimal.Decimal
	Description   string
	Receipt       []byte
}

// Submit validates the input, freezes the charge, and persists the
// request as PENDING. Balances are not touched.
func (e *Engine) Submit(ctx context.Context, in SubmitInput) (*Request, error) {
	if err := e.validate(&in); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	r := &Request{
		ID:          uuid.NewString(),
		EmployeeID:  in.EmployeeID,
		ApproverID:  in.ApproverID,
		Kind:        in.Kind,
		StartDate:   day(in.StartDate),
		EndDate:     day(in.EndDate),
		Description: in.Description,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	switch in.Kind {
	case KindExpense:
		r.EndDate = r.StartDate
		r.Charge = in.Amount
		r.Receipt = in.Receipt
	default:
		if in.Kind == KindLeave {
			lt, err := e.Store.GetLeaveTypeByName(ctx, in.LeaveTypeName)
			if err != nil {
				if IsNotFound(err) {
					return nil, &ValidationError{Field: "leave_type", Reason: "unknown leave type " + in.LeaveTypeName}
				}
				return nil, fmt.Errorf("failed to resolve leave type: %w", err)
			}
			r.LeaveTypeID = lt.ID
		}

		charge, err := e.chargeDays(ctx, r.StartDate, r.EndDate)
		if err != nil {
			return nil, err
		}
		r.Charge = decimal.NewFromInt(int64(charge))
	}

	if err := e.Store.CreateRequest(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to persist request: %w", err)
	}

	e.Logger.Info("request submitted",
		zap.String("request_id", r.ID),
		zap.String("employee_id", r.EmployeeID),
		zap.String("kind", string(r.Kind)),
		zap.String("charge", r.Charge.String()))

	return r, nil
}

// chargeDays counts the chargeable days, degrading to an empty holiday
// calendar if the store cannot supply one.
func (e *Engine) chargeDays(ctx context.Context, start, end time.Time) (int, error) {
	dates, err := e.Store.HolidayDates(ctx)
	if err != nil {
		e.Logger.Warn("holiday calendar unavailable, charging all weekdays", zap.Error(err))
		dates = nil
	}

	days, err := workday.Count(start, end, workday.NewCalendar(dates))
	if err != nil {
		return 0, &ValidationError{Field: "date_range", Reason: "end date is before start date"}
	}
	return days, nil
}

func (e *Engine) validate(in *SubmitInput) error {
	if in.EmployeeID == "" {
		return &ValidationError{Field: "employee_id", Reason: "required"}
	}
	if in.ApproverID == "" {
		return &ValidationError{Field: "approver_id", Reason: "required"}
	}
	switch in.Kind {
	case KindLeave:
		if in.LeaveTypeName == "" {
			return &ValidationError{Field: "leave_type", Reason: "required"}
		}
		fallthrough
	case KindWFH:
		if in.StartDate.IsZero() || in.EndDate.IsZero() {
			return &ValidationError{Field: "date_range", Reason: "start and end dates are required"}
		}
	case KindExpense:
		if in.StartDate.IsZero() {
			return &ValidationError{Field: "date", Reason: "required"}
		}
		if in.Amount.IsNegative() {
			return &ValidationError{Field: "amount", Reason: "must not be negative"}
		}
	default:
		return &ValidationError{Field: "kind", Reason: "unknown request kind " + string(in.Kind)}
	}
	return nil
}

// =============================================================================
// DECIDE - PENDING -> APPROVED (debit) or REJECTED
// =============================================================================

// Decide applies a manager's verdict to a pending request. Exactly one
// of two concurrent decisions wins; the other observes ErrStaleState.
func (e *Engine) Decide(ctx context.Context, requestID, actorID string, decision Decision) (*Request, error) {
	if decision != DecisionApprove && decision != DecisionReject {
		return nil, &ValidationError{Field: "decision", Reason: "must be APPROVE or REJECT"}
	}

	var decided *Request
	err := e.Store.WithTx(ctx, func(tx Tx) error {
		r, err := tx.GetRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if r.ApproverID != actorID {
			return ErrNotFound
		}
		if r.Status != StatusPending {
			return ErrStaleState
		}

		next := StatusRejected
		if decision == DecisionApprove {
			next = StatusApproved
			if err := e.applyDebit(ctx, tx, r); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		if err := tx.SetStatus(ctx, r.ID, next, now); err != nil {
			return fmt.Errorf("failed to update status: %w", err)
		}
		r.Status = next
		r.UpdatedAt = now
		decided = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.Logger.Info("request decided",
		zap.String("request_id", decided.ID),
		zap.String("status", string(decided.Status)),
		zap.String("actor_id", actorID))

	e.notifyTransition(decided, actorID)
	return decided, nil
}

// =============================================================================
// CANCEL - APPROVED -> CANCELLED (credit)
// =============================================================================

// Cancel reverses an approved request, crediting back exactly the
// frozen charge that its approval debited. Only the approver or the
// requester may cancel.
func (e *Engine) Cancel(ctx context.Context, requestID, actorID string) (*Request, error) {
	var cancelled *Request
	err := e.Store.WithTx(ctx, func(tx Tx) error {
		r, err := tx.GetRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if r.ApproverID != actorID && r.EmployeeID != actorID {
			return ErrNotFound
		}
		if r.Status != StatusApproved {
			return ErrStaleState
		}

		if err := e.applyCredit(ctx, tx, r); err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := tx.SetStatus(ctx, r.ID, StatusCancelled, now); err != nil {
			return fmt.Errorf("failed to update status: %w", err)
		}
		r.Status = StatusCancelled
		r.UpdatedAt = now
		cancelled = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.Logger.Info("request cancelled",
		zap.String("request_id", cancelled.ID),
		zap.String("actor_id", actorID))

	e.notifyTransition(cancelled, actorID)
	return cancelled, nil
}

// =============================================================================
// DELETE - Remove a request that never affected balances
// =============================================================================

// Delete removes a PENDING or REJECTED request. Approved history (and
// its cancellation record) is auditable and cannot be deleted: that
// would silently lose the record of an applied debit.
func (e *Engine) Delete(ctx context.Context, requestID, actorID string) error {
	err := e.Store.WithTx(ctx, func(tx Tx) error {
		r, err := tx.GetRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if r.EmployeeID != actorID {
			return ErrNotFound
		}
		if r.Status != StatusPending && r.Status != StatusRejected {
			return ErrInvalidState
		}
		return tx.DeleteRequest(ctx, r.ID)
	})
	if err != nil {
		return err
	}

	e.Logger.Info("request deleted",
		zap.String("request_id", requestID),
		zap.String("actor_id", actorID))
	return nil
}

// =============================================================================
// BALANCE EFFECTS
// =============================================================================

func (e *Engine) applyDebit(ctx context.Context, tx Tx, r *Request) error {
	bucket, ok, err := e.resolveBucket(ctx, tx, r)
	if err != nil || !ok {
		return err
	}
	if err := tx.Debit(ctx, r.EmployeeID, bucket, r.Charge); err != nil {
		return err
	}
	return nil
}

func (e *Engine) applyCredit(ctx context.Context, tx Tx, r *Request) error {
	bucket, ok, err := e.resolveBucket(ctx, tx, r)
	if err != nil || !ok {
		return err
	}
	return tx.Credit(ctx, r.EmployeeID, bucket, r.Charge)
}

func (e *Engine) resolveBucket(ctx context.Context, tx Tx, r *Request) (Bucket, bool, error) {
	var typeName string
	if r.Kind == KindLeave {
		lt, err := tx.GetLeaveType(ctx, r.LeaveTypeID)
		if err != nil {
			return "", false, fmt.Errorf("failed to load leave type %s: %w", r.LeaveTypeID, err)
		}
		typeName = lt.Name
	}

	bucket, ok, err := e.Buckets.BucketFor(r, typeName)
	if err != nil {
		// Configuration-data defect: a leave type exists that the bucket
		// map does not cover. Abort rather than skip the balance effect.
		e.Logger.Error("unmapped leave type, aborting transition",
			zap.String("request_id", r.ID),
			zap.String("leave_type", typeName),
			zap.Error(err))
		return "", false, err
	}
	return bucket, ok, nil
}

// =============================================================================
// READ SIDE
// =============================================================================

// Balances returns every bucket row for an employee.
func (e *Engine) Balances(ctx context.Context, employeeID string) ([]BalanceRecord, error) {
	return e.Store.Balances(ctx, employeeID)
}

// History returns an employee's own requests, most recent first.
func (e *Engine) History(ctx context.Context, employeeID string, kind RequestKind) ([]Request, error) {
	return e.Store.ListByEmployee(ctx, employeeID, kind)
}

// Inbox returns an approver's pending requests, oldest first.
func (e *Engine) Inbox(ctx context.Context, approverID string) ([]Request, error) {
	return e.Store.ListByApprover(ctx, approverID, StatusPending)
}

// DecidedHistory returns an approver's handled requests, newest first.
func (e *Engine) DecidedHistory(ctx context.Context, approverID string) ([]Request, error) {
	return e.Store.ListByApprover(ctx, approverID, StatusApproved, StatusRejected, StatusCancelled)
}

// =============================================================================
// NOTIFICATION
// =============================================================================

// notifyTransition tells the counterparty what happened. This runs
// after commit: a notification failure never affects the transition.
func (e *Engine) notifyTransition(r *Request, actorID string) {
	recipient := r.EmployeeID
	if actorID == r.EmployeeID {
		recipient = r.ApproverID
	}

	var msg string
	switch r.Status {
	case StatusApproved:
		msg = fmt.Sprintf("Your %s request has been approved.", kindLabel(r.Kind))
	case StatusRejected:
		msg = fmt.Sprintf("Your %s request has been rejected.", kindLabel(r.Kind))
	case StatusCancelled:
		msg = fmt.Sprintf("The approved %s request has been cancelled.", kindLabel(r.Kind))
	default:
		return
	}

	e.Notifier.Notify(Notification{
		ID:         uuid.NewString(),
		EmployeeID: recipient,
		Message:    msg,
		RequestID:  r.ID,
		CreatedAt:  time.Now().UTC(),
	})
}

func kindLabel(k RequestKind) string {
	switch k {
	case KindWFH:
		return "work-from-home"
	case KindExpense:
		return "expense"
	default:
		return "leave"
	}
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
