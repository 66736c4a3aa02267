/*
handlers.go - HTTP API handlers for the leave management system

PURPOSE:
  Exposes the request lifecycle engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates every lifecycle
  decision to the engine. Handlers never touch balances directly.

ENDPOINTS:
  Employees:
    GET    /api/employees                 List all employees
    POST   /api/employees                 Onboard employee (seeds balances)
    GET    /api/employees/{id}            Get employee details
    GET    /api/employees/{id}/balances   Balance buckets

  Requests (actor = X-Actor-ID header):
    POST   /api/requests                  Submit leave/WFH/expense request
    GET    /api/requests                  Actor's own requests (?kind=)
    GET    /api/requests/{id}             Single request
    GET    /api/requests/{id}/receipt     Receipt document (EXPENSE)
    POST   /api/requests/{id}/decision    Approve or reject (approver only)
    POST   /api/requests/{id}/cancel      Cancel an approved request
    DELETE /api/requests/{id}             Delete own pending/rejected request

  Approvals:
    GET    /api/approvals/pending         Approver's inbox (oldest first)
    GET    /api/approvals/history         Decided requests

  Team (manager views):
    GET    /api/team                      Direct reports
    GET    /api/team/balances             Reports with balance buckets

  Catalog and calendar:
    GET    /api/leave-types               Leave-type catalog with buckets
    GET    /api/holidays                  Holiday calendar
    POST   /api/holidays                  Add holiday
    DELETE /api/holidays/{id}             Remove holiday

  Notifications:
    GET    /api/notifications             Actor's notifications
    GET    /api/notifications/unread      Unread count
    POST   /api/notifications/{id}/read   Mark one read
    POST   /api/notifications/read-all    Mark all read

  Admin (dev/demo):
    POST   /api/admin/seed                Load demo data
    POST   /api/admin/reset               Wipe the database

IDENTITY:
  The acting employee is taken from the X-Actor-ID header. There is no
  authentication; this mirrors a deployment behind a trusted gateway
  that injects identity. Authorization (owner vs approver) is enforced
  by the engine.

ERROR HANDLING:
  Engine errors map onto HTTP status via the error taxonomy:
  - 400: validation errors, malformed input
  - 404: unknown request/employee (or not yours to see)
  - 409: stale or invalid lifecycle state
  - 422: insufficient balance
  - 503: storage lock timeout
  - 500: everything else

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - leave/engine.go: The state machine behind every mutation
*/
package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/crewpoint/leavedesk/leave"
	"github.com/crewpoint/leavedesk/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store       *sqlite.Store
	Engine      *leave.Engine
	Allocations map[leave.Bucket]decimal.Decimal
	Logger      *zap.Logger
}

// NewHandler creates a handler around the store and engine.
func NewHandler(store *sqlite.Store, engine *leave.Engine, allocations map[leave.Bucket]decimal.Decimal, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Store:       store,
		Engine:      engine,
		Allocations: allocations,
		Logger:      logger,
	}
}

// actorID extracts the acting employee from the request headers.
func actorID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-Actor-ID"))
}

// requireActor writes a 400 and returns "" when no actor is present.
func requireActor(w http.ResponseWriter, r *http.Request) string {
	id := actorID(r)
	if id == "" {
		writeError(w, http.StatusBadRequest, "Missing X-Actor-ID header", nil)
	}
	return id
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTOs(employees))
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Store.GetEmployee(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Failed to get employee", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(emp))
}

// CreateEmployee onboards an employee and seeds their balance buckets
// from the configured allocations.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Employee name is required", nil)
		return
	}

	role := leave.RoleEmployee
	if strings.EqualFold(req.Role, string(leave.RoleManager)) {
		role = leave.RoleManager
	}

	emp := leave.Employee{
		ID:        req.ID,
		Name:      req.Name,
		Email:     req.Email,
		Role:      role,
		ManagerID: req.ManagerID,
	}
	if emp.ID == "" {
		emp.ID = uuid.NewString()
	}

	ctx := r.Context()
	if err := h.Store.SaveEmployee(ctx, emp); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create employee", err)
		return
	}
	if err := h.Store.InitBalances(ctx, emp.ID, h.Allocations); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to seed balances", err)
		return
	}

	h.Logger.Info("employee onboarded",
		zap.String("employee_id", emp.ID),
		zap.String("role", string(emp.Role)))

	writeJSON(w, http.StatusCreated, toEmployeeDTO(&emp))
}

// GetBalances returns an employee's balance buckets.
func (h *Handler) GetBalances(w http.ResponseWriter, r *http.Request) {
	records, err := h.Engine.Balances(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Failed to get balances", err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTOs(records))
}

// =============================================================================
// REQUEST HANDLERS
// =============================================================================

// SubmitRequest creates a new PENDING request for the acting employee.
func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	actor := requireActor(w, r)
	if actor == "" {
		return
	}

	var req SubmitRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in, err := h.submitInput(r, actor, req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}

	created, err := h.Engine.Submit(r.Context(), in)
	if err != nil {
		h.writeDomainError(w, "Failed to submit request", err)
		return
	}

	writeJSON(w, http.StatusCreated, toRequestDTO(created))
}

// submitInput translates the DTO into engine input. The approver is
// the employee's manager; submission fails when none is assigned.
func (h *Handler) submitInput(r *http.Request, actor string, req SubmitRequestDTO) (leave.SubmitInput, error) {
	emp, err := h.Store.GetEmployee(r.Context(), actor)
	if err != nil {
		return leave.SubmitInput{}, errors.New("unknown employee " + actor)
	}
	if emp.ManagerID == "" {
		return leave.SubmitInput{}, errors.New("employee has no manager assigned")
	}

	kind := leave.RequestKind(strings.ToUpper(strings.TrimSpace(req.Kind)))

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return leave.SubmitInput{}, errors.New("invalid start_date (use YYYY-MM-DD)")
	}
	endDate := startDate
	if req.EndDate != "" {
		endDate, err = time.Parse("2006-01-02", req.EndDate)
		if err != nil {
			return leave.SubmitInput{}, errors.New("invalid end_date (use YYYY-MM-DD)")
		}
	}

	amount := decimal.Zero
	if req.Amount != "" {
		amount, err = decimal.NewFromString(req.Amount)
		if err != nil {
			return leave.SubmitInput{}, errors.New("invalid amount")
		}
	}

	var receipt []byte
	if req.ReceiptBase64 != "" {
		receipt, err = base64.StdEncoding.DecodeString(req.ReceiptBase64)
		if err != nil {
			return leave.SubmitInput{}, errors.New("receipt_base64 is not valid base64")
		}
	}

	return leave.SubmitInput{
		EmployeeID:    actor,
		ApproverID:    emp.ManagerID,
		Kind:          kind,
		LeaveTypeName: req.LeaveTypeName,
		StartDate:     startDate,
		EndDate:       endDate,
		Amount:        amount,
		Description:   req.Description,
		Receipt:       receipt,
	}, nil
}

// ListRequests returns the acting employee's own requests.
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	actor := requireActor(w, r)
	if actor == "" {
		return
	}

	kind := leave.RequestKind(strings.ToUpper(r.URL.Query().Get("kind")))
	requests, err := h.Engine.History(r.Context(), actor, kind)
	if err != nil {
		h.writeDomainError(w, "Failed to list requests", err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTOs(requests))
}

// GetRequest returns one request, visible to its owner and approver.
func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	actor := requireActor(w, r)
	if actor == "" {
		return
	}

	req, err := h.Store.GetRequest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Failed to get request", err)
		return
	}
	if req.EmployeeID != actor && req.ApproverID != actor {
		writeError(w, http.StatusNotFound, "Request not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(req))
}

// GetReceipt streams the receipt document of an expense request.
func (h *Handler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	actor := requireActor(w, r)
	if actor == "" {
		return
	}

	req, err := h.Store.GetRequest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Failed to get request", err)
		return
	}
	if req.EmployeeID != actor && req.ApproverID != actor {
		writeError(w, http.StatusNotFound, "Request not found", nil)
		return
	}
	if !req.HasReceipt() {
		writeError(w, http.StatusNotFound, "Request has no receipt", nil)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	w.Write(req.Receipt)
}

// DecideRequest approves or rejects a pending request. Only the
// routed approver may decide; approval debits the balance atomically
// with the status change.
func (h *Handler) DecideRequest(w http.ResponseWriter, r *http.Request) {
	actor := requireActor(w, r)
	if actor == "" {
		return
	}

	var req DecideRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var decision leave.Decision
	switch strings.ToUpper(strings.TrimSpace(req.Decision)) {
	case string(leave.DecisionApprove):
		decision = leave.DecisionApprove
	case string(leave.DecisionReject):
		decision = leave.DecisionReject
	default:
		writeError(w, http.StatusBadRequest, "Decision must be APPROVE or REJECT", nil)
		return
	}

	updated, err := h.Engine.Decide(r.Context(), chi.URLParam(r, "id"), actor, decision)
	if err != nil {
		h.writeDomainError(w, "Failed to decide request", err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(updated))
}

// CancelRequest cancels an approved request, refunding its charge.
func (h *Handler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	actor := requireActor(w, r)
	if actor == "" {
		return
	}

	updated, err := h.Engine.Cancel(r.Context(), chi.URLParam(r, "id"), actor)
	if err != nil {
		h.writeDomainError(w, "Failed to cancel request", err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(updated))
}

// DeleteRequest removes the actor's own pending or rejected request.
func (h *Handler) DeleteRequest(w http.ResponseWriter, r *http.Request) {
	actor := requireActor(w, r)
	if actor == "" {
		return
	}

	if err := h.Engine.Delete(r.Context(), chi.URLParam(r, "id"), actor); err != nil {
		h.writeDomainError(w, "Failed to delete request", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// APPROVAL HANDLERS
// =============================================================================

// PendingApprovals returns the actor's approval inbox, oldest first.
func (h *Handler) PendingApprovals(w http.ResponseWriter, r *http.Request) {
	actor := requireActor(w, r)
	if actor == "" {
		return
	}

	requests, err := h.Engine.Inbox(r.Context(), actor)
	if err != nil {
		h.writeDomainError(w, "Failed to list pending approvals", err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTOs(requests))
}

// ApprovalHistory returns the actor's decided requests, newest first.
func (h *Handler) ApprovalHistory(w http.ResponseWriter, r *http.Request) {
	actor := requireActor(w, r)
	if actor == "" {
		return
	}

	requests, err := h.Engine.DecidedHistory(r.Context(), actor)
	if err != nil {
		h.writeDomainError(w, "Failed to list approval history", err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTOs(requests))
}

// =============================================================================
// TEAM HANDLERS
// =============================================================================

// ListTeam returns the actor's direct reports.
func (h *Handler) ListTeam(w http.ResponseWriter, r *http.Request) {
	actor := requireActor(w, r)
	if actor == "" {
		return
	}

	team, err := h.Store.ListTeam(r.Context(), actor)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list team", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTOs(team))
}

// TeamBalances returns each direct report with their balance buckets.
func (h *Handler) TeamBalances(w http.ResponseWriter, r *http.Request) {
	actor := requireActor(w, r)
	if actor == "" {
		return
	}

	ctx := r.Context()
	team, err := h.Store.ListTeam(ctx, actor)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list team", err)
		return
	}

	out := make([]TeamBalanceDTO, 0, len(team))
	for i := range team {
		records, err := h.Store.Balances(ctx, team[i].ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load team balances", err)
			return
		}
		out = append(out, TeamBalanceDTO{
			Employee: toEmployeeDTO(&team[i]),
			Balances: toBalanceDTOs(records),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// =============================================================================
// CATALOG AND HOLIDAY HANDLERS
// =============================================================================

// ListLeaveTypes returns the catalog with the bucket each type charges.
func (h *Handler) ListLeaveTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.Store.ListLeaveTypes(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list leave types", err)
		return
	}

	dtos := make([]LeaveTypeDTO, len(types))
	for i, lt := range types {
		dto := LeaveTypeDTO{ID: lt.ID, Name: lt.Name}
		if bucket, err := h.Engine.Buckets.Resolve(lt.Name); err == nil {
			dto.Bucket = string(bucket)
		}
		dtos[i] = dto
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListHolidays returns the holiday calendar.
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	holidays, err := h.Store.ListHolidays(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list holidays", err)
		return
	}

	dtos := make([]HolidayDTO, len(holidays))
	for i, hd := range holidays {
		dtos[i] = HolidayDTO{
			ID:   hd.ID,
			Date: hd.Date.Format("2006-01-02"),
			Name: hd.Name,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateHoliday adds a holiday. Existing requests keep their frozen
// charge; only future submissions see the new calendar.
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req CreateHolidayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Holiday name is required", nil)
		return
	}

	holiday := sqlite.Holiday{ID: uuid.NewString(), Date: date, Name: req.Name}
	if err := h.Store.SaveHoliday(r.Context(), holiday); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create holiday", err)
		return
	}

	writeJSON(w, http.StatusCreated, HolidayDTO{
		ID:   holiday.ID,
		Date: holiday.Date.Format("2006-01-02"),
		Name: holiday.Name,
	})
}

// DeleteHoliday removes a holiday by ID.
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteHoliday(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, "Failed to delete holiday", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// NOTIFICATION HANDLERS
// =============================================================================

// ListNotifications returns the actor's notifications, newest first.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	actor := requireActor(w, r)
	if actor == "" {
		return
	}

	notifications, err := h.Store.ListNotifications(r.Context(), actor)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list notifications", err)
		return
	}
	writeJSON(w, http.StatusOK, toNotificationDTOs(notifications))
}

// UnreadCount returns the actor's unread notification count.
func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	actor := requireActor(w, r)
	if actor == "" {
		return
	}

	count, err := h.Store.UnreadNotificationCount(r.Context(), actor)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count notifications", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unread": count})
}

// MarkNotificationRead marks one of the actor's notifications read.
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	actor := requireActor(w, r)
	if actor == "" {
		return
	}

	if err := h.Store.MarkNotificationRead(r.Context(), chi.URLParam(r, "id"), actor); err != nil {
		h.writeDomainError(w, "Failed to mark notification read", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkAllRead marks all of the actor's notifications read.
func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	actor := requireActor(w, r)
	if actor == "" {
		return
	}

	if err := h.Store.MarkAllNotificationsRead(r.Context(), actor); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to mark notifications read", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// SeedDemo loads the demo data set.
func (h *Handler) SeedDemo(w http.ResponseWriter, r *http.Request) {
	if err := h.seedDemoData(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to seed demo data", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "seeded"})
}

// ResetDatabase wipes all data. Dev only.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// HELPERS
// =============================================================================

func toEmployeeDTO(e *leave.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:        e.ID,
		Name:      e.Name,
		Email:     e.Email,
		Role:      string(e.Role),
		ManagerID: e.ManagerID,
		CreatedAt: e.CreatedAt.Format(time.RFC3339),
	}
}

func toEmployeeDTOs(employees []leave.Employee) []EmployeeDTO {
	dtos := make([]EmployeeDTO, len(employees))
	for i := range employees {
		dtos[i] = toEmployeeDTO(&employees[i])
	}
	return dtos
}

// writeDomainError maps the error taxonomy onto HTTP status codes.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, leave.ErrValidation):
		writeError(w, http.StatusBadRequest, message, err)
	case errors.Is(err, leave.ErrNotFound):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, leave.ErrStaleState), errors.Is(err, leave.ErrInvalidState):
		writeError(w, http.StatusConflict, message, err)
	case errors.Is(err, leave.ErrInsufficientBalance):
		writeError(w, http.StatusUnprocessableEntity, message, err)
	case errors.Is(err, leave.ErrTimeout):
		writeError(w, http.StatusServiceUnavailable, message, err)
	default:
		h.Logger.Error("internal error", zap.String("message", message), zap.Error(err))
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
