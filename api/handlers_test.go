/*
handlers_test.go - End-to-end tests over the HTTP surface

Runs the real router against an in-memory SQLite store, so every
request exercises the full stack: JSON handling, identity headers,
the lifecycle engine, transactional storage, and the error-to-status
mapping.
*/
package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewpoint/leavedesk/api"
	"github.com/crewpoint/leavedesk/leave"
	"github.com/crewpoint/leavedesk/notify"
	"github.com/crewpoint/leavedesk/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) (*httptest.Server, *sqlite.Store) {
	t.Helper()

	store, err := sqlite.New(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	allocations := map[leave.Bucket]decimal.Decimal{
		leave.BucketEarned:   decimal.NewFromInt(15),
		leave.BucketSick:     decimal.NewFromInt(10),
		leave.BucketPersonal: decimal.NewFromInt(5),
		leave.BucketVacation: decimal.NewFromInt(10),
		leave.BucketWFH:      decimal.NewFromInt(52),
	}

	dispatcher := notify.NewDispatcher(store, nil)
	engine := leave.NewEngine(store, leave.DefaultBucketMap(), dispatcher, nil)
	handler := api.NewHandler(store, engine, allocations, nil)

	server := httptest.NewServer(api.NewRouter(handler, []string{"*"}))
	t.Cleanup(server.Close)
	return server, store
}

func do(t *testing.T, server *httptest.Server, method, path, actor string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if actor != "" {
		req.Header.Set("X-Actor-ID", actor)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// onboard creates a manager and a report through the API.
func onboard(t *testing.T, server *httptest.Server) {
	t.Helper()

	resp := do(t, server, http.MethodPost, "/api/employees", "", map[string]string{
		"id": "mgr-1", "name": "Dana", "role": "manager",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = do(t, server, http.MethodPost, "/api/employees", "", map[string]string{
		"id": "emp-1", "name": "Arjun", "role": "employee", "manager_id": "mgr-1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func submitLeave(t *testing.T, server *httptest.Server) api.RequestDTO {
	t.Helper()
	resp := do(t, server, http.MethodPost, "/api/requests", "emp-1", map[string]string{
		"kind":       "LEAVE",
		"leave_type": "Earned Leave",
		"start_date": "2025-03-03", // Monday
		"end_date":   "2025-03-05",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[api.RequestDTO](t, resp)
}

// =============================================================================
// LIFECYCLE FLOW
// =============================================================================

func TestFlow_SubmitApproveCancel_BalancesRoundTrip(t *testing.T) {
	// GIVEN: An onboarded employee with 15 earned days
	// WHEN: A 3-day leave is submitted, approved, then cancelled
	// THEN: Balance goes 15 -> 12 -> 15 and each state is visible over HTTP

	server, _ := newTestServer(t)
	onboard(t, server)

	created := submitLeave(t, server)
	assert.Equal(t, "PENDING", created.Status)
	assert.Equal(t, "3", created.Charge)

	// Approve as the manager.
	resp := do(t, server, http.MethodPost, "/api/requests/"+created.ID+"/decision", "mgr-1",
		map[string]string{"decision": "APPROVE"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "APPROVED", decode[api.RequestDTO](t, resp).Status)

	resp = do(t, server, http.MethodGet, "/api/employees/emp-1/balances", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	balances := decode[[]api.BalanceDTO](t, resp)
	for _, b := range balances {
		if b.Bucket == "earned" {
			assert.Equal(t, "12", b.Available)
			assert.Equal(t, "3", b.Used)
		}
	}

	// Cancel as the employee.
	resp = do(t, server, http.MethodPost, "/api/requests/"+created.ID+"/cancel", "emp-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, server, http.MethodGet, "/api/employees/emp-1/balances", "", nil)
	balances = decode[[]api.BalanceDTO](t, resp)
	for _, b := range balances {
		if b.Bucket == "earned" {
			assert.Equal(t, "15", b.Available)
			assert.Equal(t, "0", b.Used)
		}
	}
}

func TestFlow_DecisionCreatesNotification(t *testing.T) {
	server, _ := newTestServer(t)
	onboard(t, server)

	created := submitLeave(t, server)
	resp := do(t, server, http.MethodPost, "/api/requests/"+created.ID+"/decision", "mgr-1",
		map[string]string{"decision": "REJECT"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, server, http.MethodGet, "/api/notifications", "emp-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	notifications := decode[[]api.NotificationDTO](t, resp)
	require.Len(t, notifications, 1)
	assert.Equal(t, created.ID, notifications[0].RequestID)
	assert.False(t, notifications[0].Read)

	resp = do(t, server, http.MethodGet, "/api/notifications/unread", "emp-1", nil)
	counts := decode[map[string]int](t, resp)
	assert.Equal(t, 1, counts["unread"])
}

func TestFlow_ExpenseReceipt_RoundTrip(t *testing.T) {
	server, _ := newTestServer(t)
	onboard(t, server)

	resp := do(t, server, http.MethodPost, "/api/requests", "emp-1", map[string]string{
		"kind":           "EXPENSE",
		"start_date":     "2025-03-03",
		"amount":         "84.50",
		"description":    "Client lunch",
		"receipt_base64": "cmVjZWlwdC1ieXRlcw==", // "receipt-bytes"
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[api.RequestDTO](t, resp)
	assert.True(t, created.HasReceipt)
	assert.Equal(t, "84.5", created.Charge)

	// Approver can fetch the receipt.
	resp = do(t, server, http.MethodGet, "/api/requests/"+created.ID+"/receipt", "mgr-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// A third party cannot.
	resp = do(t, server, http.MethodGet, "/api/requests/"+created.ID+"/receipt", "emp-ghost", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFlow_ApprovalsInbox(t *testing.T) {
	server, _ := newTestServer(t)
	onboard(t, server)
	created := submitLeave(t, server)

	resp := do(t, server, http.MethodGet, "/api/approvals/pending", "mgr-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	inbox := decode[[]api.RequestDTO](t, resp)
	require.Len(t, inbox, 1)
	assert.Equal(t, created.ID, inbox[0].ID)

	resp = do(t, server, http.MethodPost, "/api/requests/"+created.ID+"/decision", "mgr-1",
		map[string]string{"decision": "APPROVE"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, server, http.MethodGet, "/api/approvals/pending", "mgr-1", nil)
	assert.Empty(t, decode[[]api.RequestDTO](t, resp))

	resp = do(t, server, http.MethodGet, "/api/approvals/history", "mgr-1", nil)
	history := decode[[]api.RequestDTO](t, resp)
	require.Len(t, history, 1)
	assert.Equal(t, "APPROVED", history[0].Status)
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

func TestErrors_MissingActorHeader_400(t *testing.T) {
	server, _ := newTestServer(t)

	resp := do(t, server, http.MethodPost, "/api/requests", "", map[string]string{"kind": "WFH"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestErrors_DoubleDecision_409(t *testing.T) {
	server, _ := newTestServer(t)
	onboard(t, server)
	created := submitLeave(t, server)

	resp := do(t, server, http.MethodPost, "/api/requests/"+created.ID+"/decision", "mgr-1",
		map[string]string{"decision": "APPROVE"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, server, http.MethodPost, "/api/requests/"+created.ID+"/decision", "mgr-1",
		map[string]string{"decision": "REJECT"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestErrors_InsufficientBalance_422(t *testing.T) {
	server, _ := newTestServer(t)
	onboard(t, server)

	// 16 working days requested against 15 available.
	resp := do(t, server, http.MethodPost, "/api/requests", "emp-1", map[string]string{
		"kind":       "LEAVE",
		"leave_type": "Earned Leave",
		"start_date": "2025-03-03",
		"end_date":   "2025-03-24",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[api.RequestDTO](t, resp)
	require.Equal(t, "16", created.Charge)

	resp = do(t, server, http.MethodPost, "/api/requests/"+created.ID+"/decision", "mgr-1",
		map[string]string{"decision": "APPROVE"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	// Still pending and decidable.
	resp = do(t, server, http.MethodGet, "/api/requests/"+created.ID, "emp-1", nil)
	assert.Equal(t, "PENDING", decode[api.RequestDTO](t, resp).Status)
}

func TestErrors_ForeignDecision_404(t *testing.T) {
	server, _ := newTestServer(t)
	onboard(t, server)
	created := submitLeave(t, server)

	resp := do(t, server, http.MethodPost, "/api/requests/"+created.ID+"/decision", "emp-ghost",
		map[string]string{"decision": "APPROVE"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestErrors_DeleteApproved_409(t *testing.T) {
	server, _ := newTestServer(t)
	onboard(t, server)
	created := submitLeave(t, server)

	resp := do(t, server, http.MethodPost, "/api/requests/"+created.ID+"/decision", "mgr-1",
		map[string]string{"decision": "APPROVE"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, server, http.MethodDelete, "/api/requests/"+created.ID, "emp-1", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestErrors_SubmitWithoutManager_400(t *testing.T) {
	server, _ := newTestServer(t)

	resp := do(t, server, http.MethodPost, "/api/employees", "", map[string]string{
		"id": "emp-solo", "name": "Solo",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = do(t, server, http.MethodPost, "/api/requests", "emp-solo", map[string]string{
		"kind":       "WFH",
		"start_date": "2025-03-03",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// TEAM AND ADMIN
// =============================================================================

func TestTeamBalances_ManagerView(t *testing.T) {
	server, _ := newTestServer(t)
	onboard(t, server)

	resp := do(t, server, http.MethodGet, "/api/team/balances", "mgr-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	team := decode[[]api.TeamBalanceDTO](t, resp)
	require.Len(t, team, 1)
	assert.Equal(t, "emp-1", team[0].Employee.ID)
	assert.Len(t, team[0].Balances, len(leave.Buckets()))
}

func TestSeedDemo_ProducesWorkingData(t *testing.T) {
	server, _ := newTestServer(t)

	resp := do(t, server, http.MethodPost, "/api/admin/seed", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, server, http.MethodGet, "/api/employees", "", nil)
	employees := decode[[]api.EmployeeDTO](t, resp)
	assert.Len(t, employees, 3)

	// The seeded WFH approval debited the wfh bucket.
	resp = do(t, server, http.MethodGet, "/api/employees/emp-lucia/balances", "", nil)
	balances := decode[[]api.BalanceDTO](t, resp)
	for _, b := range balances {
		if b.Bucket == "wfh" {
			assert.Equal(t, "51", b.Available)
		}
	}
}
