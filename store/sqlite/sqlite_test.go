package sqlite_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewpoint/leavedesk/leave"
	"github.com/crewpoint/leavedesk/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func pendingRequest(id, employeeID string, charge int64) *leave.Request {
	now := time.Now().UTC()
	return &leave.Request{
		ID:          id,
		EmployeeID:  employeeID,
		ApproverID:  "mgr-1",
		Kind:        leave.KindLeave,
		LeaveTypeID: "lt-earned",
		StartDate:   time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC),
		Charge:      decimal.NewFromInt(charge),
		Status:      leave.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// =============================================================================
// CATALOG
// =============================================================================

func TestMigrate_SeedsLeaveTypeCatalog(t *testing.T) {
	store := newTestStore(t)

	types, err := store.ListLeaveTypes(context.Background())
	require.NoError(t, err)
	require.Len(t, types, 4)

	lt, err := store.GetLeaveTypeByName(context.Background(), "sick leave")
	require.NoError(t, err)
	assert.Equal(t, "Sick Leave", lt.Name)
}

// =============================================================================
// REQUEST ROUND TRIP
// =============================================================================

func TestRequest_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	r := pendingRequest("req-1", "emp-1", 3)
	r.Receipt = []byte("receipt")
	require.NoError(t, store.CreateRequest(ctx, r))

	got, err := store.GetRequest(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, r.EmployeeID, got.EmployeeID)
	assert.Equal(t, leave.StatusPending, got.Status)
	assert.True(t, got.Charge.Equal(decimal.NewFromInt(3)))
	assert.Equal(t, []byte("receipt"), got.Receipt)
}

func TestGetRequest_Unknown_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetRequest(context.Background(), "req-missing")
	assert.ErrorIs(t, err, leave.ErrNotFound)
}

func TestGetRequest_CorruptChargeColumn_Errors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leavedesk.db")
	store, err := sqlite.New(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()

	require.NoError(t, store.CreateRequest(ctx, pendingRequest("req-1", "emp-1", 3)))

	// Damage the stored charge behind the store's back. A value that no
	// longer parses must surface as an error, never read back as zero.
	raw, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer raw.Close()
	_, err = raw.Exec("UPDATE requests SET charge = 'not-a-number' WHERE id = ?", "req-1")
	require.NoError(t, err)

	_, err = store.GetRequest(ctx, "req-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "charge")
}

func TestListByApprover_PendingOldestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	older := pendingRequest("req-old", "emp-1", 1)
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	newer := pendingRequest("req-new", "emp-2", 1)

	require.NoError(t, store.CreateRequest(ctx, newer))
	require.NoError(t, store.CreateRequest(ctx, older))

	inbox, err := store.ListByApprover(ctx, "mgr-1", leave.StatusPending)
	require.NoError(t, err)
	require.Len(t, inbox, 2)
	assert.Equal(t, "req-old", inbox[0].ID)
	assert.Equal(t, "req-new", inbox[1].ID)
}

func TestListByEmployee_OmitsReceiptBlob(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	r := pendingRequest("req-1", "emp-1", 0)
	r.Kind = leave.KindExpense
	r.Receipt = []byte("a large receipt document")
	require.NoError(t, store.CreateRequest(ctx, r))

	listed, err := store.ListByEmployee(ctx, "emp-1", leave.KindExpense)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.True(t, listed[0].HasReceipt())
	assert.NotEqual(t, r.Receipt, listed[0].Receipt)
}

// =============================================================================
// TRANSACTIONS AND BALANCES
// =============================================================================

func TestWithTx_FailedFn_RollsBackEverything(t *testing.T) {
	// GIVEN: A pending request and a seeded balance
	// WHEN: A transaction writes a status then fails
	// THEN: Neither the status nor any balance write survives

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateRequest(ctx, pendingRequest("req-1", "emp-1", 3)))
	require.NoError(t, store.InitBalances(ctx, "emp-1", map[leave.Bucket]decimal.Decimal{
		leave.BucketEarned: decimal.NewFromInt(10),
	}))

	boom := assert.AnError
	err := store.WithTx(ctx, func(tx leave.Tx) error {
		if err := tx.SetStatus(ctx, "req-1", leave.StatusApproved, time.Now().UTC()); err != nil {
			return err
		}
		if err := tx.Debit(ctx, "emp-1", leave.BucketEarned, decimal.NewFromInt(3)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := store.GetRequest(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, leave.StatusPending, got.Status)

	records, err := store.Balances(ctx, "emp-1")
	require.NoError(t, err)
	for _, rec := range records {
		if rec.Bucket == leave.BucketEarned {
			assert.True(t, rec.Available.Equal(decimal.NewFromInt(10)))
			assert.True(t, rec.Used.IsZero())
		}
	}
}

func TestDebit_Insufficient_ReturnsTypedError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InitBalances(ctx, "emp-1", map[leave.Bucket]decimal.Decimal{
		leave.BucketSick: decimal.NewFromInt(2),
	}))

	err := store.WithTx(ctx, func(tx leave.Tx) error {
		return tx.Debit(ctx, "emp-1", leave.BucketSick, decimal.NewFromInt(3))
	})
	require.ErrorIs(t, err, leave.ErrInsufficientBalance)

	var ibe *leave.InsufficientBalanceError
	require.ErrorAs(t, err, &ibe)
	assert.True(t, ibe.Available.Equal(decimal.NewFromInt(2)))
	assert.True(t, ibe.Requested.Equal(decimal.NewFromInt(3)))
}

func TestDebit_MissingBalanceRow_NotFound(t *testing.T) {
	store := newTestStore(t)

	err := store.WithTx(context.Background(), func(tx leave.Tx) error {
		return tx.Debit(context.Background(), "emp-ghost", leave.BucketSick, decimal.NewFromInt(1))
	})
	assert.ErrorIs(t, err, leave.ErrNotFound)
}

func TestCredit_FloorsUsedAtZero(t *testing.T) {
	// GIVEN: used=1 after drift
	// WHEN: Crediting 3
	// THEN: available grows by 3, used floors at 0

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InitBalances(ctx, "emp-1", map[leave.Bucket]decimal.Decimal{
		leave.BucketEarned: decimal.NewFromInt(10),
	}))
	require.NoError(t, store.WithTx(ctx, func(tx leave.Tx) error {
		return tx.Debit(ctx, "emp-1", leave.BucketEarned, decimal.NewFromInt(1))
	}))

	require.NoError(t, store.WithTx(ctx, func(tx leave.Tx) error {
		return tx.Credit(ctx, "emp-1", leave.BucketEarned, decimal.NewFromInt(3))
	}))

	records, err := store.Balances(ctx, "emp-1")
	require.NoError(t, err)
	for _, rec := range records {
		if rec.Bucket == leave.BucketEarned {
			assert.True(t, rec.Available.Equal(decimal.NewFromInt(12)))
			assert.True(t, rec.Used.IsZero())
		}
	}
}

func TestInitBalances_ExistingRowsUntouched(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InitBalances(ctx, "emp-1", map[leave.Bucket]decimal.Decimal{
		leave.BucketEarned: decimal.NewFromInt(10),
	}))
	require.NoError(t, store.WithTx(ctx, func(tx leave.Tx) error {
		return tx.Debit(ctx, "emp-1", leave.BucketEarned, decimal.NewFromInt(4))
	}))

	// Re-onboarding must not reset anything.
	require.NoError(t, store.InitBalances(ctx, "emp-1", map[leave.Bucket]decimal.Decimal{
		leave.BucketEarned: decimal.NewFromInt(10),
	}))

	records, err := store.Balances(ctx, "emp-1")
	require.NoError(t, err)
	for _, rec := range records {
		if rec.Bucket == leave.BucketEarned {
			assert.True(t, rec.Available.Equal(decimal.NewFromInt(6)))
			assert.True(t, rec.Used.Equal(decimal.NewFromInt(4)))
		}
	}
}

// =============================================================================
// EMPLOYEES, HOLIDAYS, NOTIFICATIONS
// =============================================================================

func TestEmployee_RoundTripAndTeam(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveEmployee(ctx, leave.Employee{ID: "mgr-1", Name: "Dana", Role: leave.RoleManager}))
	require.NoError(t, store.SaveEmployee(ctx, leave.Employee{ID: "emp-1", Name: "Arjun", Role: leave.RoleEmployee, ManagerID: "mgr-1"}))

	emp, err := store.GetEmployee(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, "mgr-1", emp.ManagerID)

	team, err := store.ListTeam(ctx, "mgr-1")
	require.NoError(t, err)
	require.Len(t, team, 1)
	assert.Equal(t, "emp-1", team[0].ID)
}

func TestHolidays_SaveListDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	h := sqlite.Holiday{ID: "hol-1", Date: time.Date(2025, time.December, 25, 0, 0, 0, 0, time.UTC), Name: "Christmas Day"}
	require.NoError(t, store.SaveHoliday(ctx, h))

	dates, err := store.HolidayDates(ctx)
	require.NoError(t, err)
	require.Len(t, dates, 1)
	assert.Equal(t, h.Date, dates[0])

	require.NoError(t, store.DeleteHoliday(ctx, "hol-1"))
	assert.ErrorIs(t, store.DeleteHoliday(ctx, "hol-1"), leave.ErrNotFound)
}

func TestNotifications_ReadTracking(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveNotification(ctx, leave.Notification{
		ID: "n-1", EmployeeID: "emp-1", Message: "approved", CreatedAt: time.Now().UTC(),
	}))
	require.NoError(t, store.SaveNotification(ctx, leave.Notification{
		ID: "n-2", EmployeeID: "emp-1", Message: "rejected", CreatedAt: time.Now().UTC(),
	}))

	count, err := store.UnreadNotificationCount(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, store.MarkNotificationRead(ctx, "n-1", "emp-1"))

	// Scoped to the owner.
	assert.ErrorIs(t, store.MarkNotificationRead(ctx, "n-2", "emp-other"), leave.ErrNotFound)

	count, err = store.UnreadNotificationCount(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, store.MarkAllNotificationsRead(ctx, "emp-1"))
	count, err = store.UnreadNotificationCount(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
