/*
seed.go - Demo data loader

PURPOSE:
  Populates a fresh database with a small org: one manager, two
  reports, a couple of holidays, and a few requests in various
  lifecycle states. Requests are driven through the engine so every
  balance figure is the product of real transitions, never hand-set.

USAGE:
  POST /api/admin/seed (idempotent on employees; repeated calls add
  more requests).
*/
package api

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/crewpoint/leavedesk/leave"
	"github.com/crewpoint/leavedesk/store/sqlite"
)

func (h *Handler) seedDemoData(ctx context.Context) error {
	employees := []leave.Employee{
		{ID: "mgr-dana", Name: "Dana Whitfield", Email: "dana@example.com", Role: leave.RoleManager},
		{ID: "emp-arjun", Name: "Arjun Mehta", Email: "arjun@example.com", Role: leave.RoleEmployee, ManagerID: "mgr-dana"},
		{ID: "emp-lucia", Name: "Lucia Ferreira", Email: "lucia@example.com", Role: leave.RoleEmployee, ManagerID: "mgr-dana"},
	}
	for _, emp := range employees {
		if err := h.Store.SaveEmployee(ctx, emp); err != nil {
			return fmt.Errorf("failed to seed employee %s: %w", emp.ID, err)
		}
		if err := h.Store.InitBalances(ctx, emp.ID, h.Allocations); err != nil {
			return fmt.Errorf("failed to seed balances for %s: %w", emp.ID, err)
		}
	}

	year := time.Now().Year()
	holidays := []sqlite.Holiday{
		{ID: uuid.NewString(), Date: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), Name: "New Year's Day"},
		{ID: uuid.NewString(), Date: time.Date(year, time.December, 25, 0, 0, 0, 0, time.UTC), Name: "Christmas Day"},
	}
	for _, hd := range holidays {
		if err := h.Store.SaveHoliday(ctx, hd); err != nil {
			return fmt.Errorf("failed to seed holiday %s: %w", hd.Name, err)
		}
	}

	// A pending leave request.
	nextMonday := nextWeekday(time.Now().UTC(), time.Monday)
	if _, err := h.Engine.Submit(ctx, leave.SubmitInput{
		EmployeeID:    "emp-arjun",
		ApproverID:    "mgr-dana",
		Kind:          leave.KindLeave,
		LeaveTypeName: "Earned Leave",
		StartDate:     nextMonday,
		EndDate:       nextMonday.AddDate(0, 0, 2),
		Description:   "Family visit",
	}); err != nil {
		return fmt.Errorf("failed to seed leave request: %w", err)
	}

	// An approved WFH request: submit, then decide.
	wfh, err := h.Engine.Submit(ctx, leave.SubmitInput{
		EmployeeID:  "emp-lucia",
		ApproverID:  "mgr-dana",
		Kind:        leave.KindWFH,
		StartDate:   nextMonday,
		EndDate:     nextMonday,
		Description: "Plumber appointment",
	})
	if err != nil {
		return fmt.Errorf("failed to seed wfh request: %w", err)
	}
	if _, err := h.Engine.Decide(ctx, wfh.ID, "mgr-dana", leave.DecisionApprove); err != nil {
		return fmt.Errorf("failed to approve seeded wfh request: %w", err)
	}

	// A pending expense claim.
	if _, err := h.Engine.Submit(ctx, leave.SubmitInput{
		EmployeeID:  "emp-lucia",
		ApproverID:  "mgr-dana",
		Kind:        leave.KindExpense,
		StartDate:   time.Now().UTC(),
		Amount:      decimal.NewFromFloat(84.50),
		Description: "Client lunch",
		Receipt:     []byte("demo receipt"),
	}); err != nil {
		return fmt.Errorf("failed to seed expense request: %w", err)
	}

	return nil
}

// nextWeekday returns the next occurrence of weekday strictly after t.
func nextWeekday(t time.Time, weekday time.Weekday) time.Time {
	days := (int(weekday) - int(t.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return t.AddDate(0, 0, days)
}
