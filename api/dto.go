/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers and the lifecycle engine, not in DTOs.
  DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - leave/types.go: The domain model these project
*/
package api

import (
	"time"

	"github.com/crewpoint/leavedesk/leave"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role"`
	ManagerID string `json:"manager_id,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// CreateEmployeeRequest is the request to onboard an employee.
type CreateEmployeeRequest struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	ManagerID string `json:"manager_id"`
}

// =============================================================================
// REQUESTS
// =============================================================================

// SubmitRequestDTO is the request body for submitting a leave, WFH, or
// expense request. Dates use YYYY-MM-DD. For EXPENSE, amount carries
// the claimed sum and receipt_base64 the optional receipt document.
type SubmitRequestDTO struct {
	Kind          string `json:"kind"`
	LeaveTypeName string `json:"leave_type,omitempty"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date,omitempty"`
	Amount        string `json:"amount,omitempty"`
	Description   string `json:"description,omitempty"`
	ReceiptBase64 string `json:"receipt_base64,omitempty"`
}

// DecideRequestDTO carries a manager's verdict.
type DecideRequestDTO struct {
	Decision string `json:"decision"` // APPROVE or REJECT
}

// RequestDTO represents a request in API responses.
type RequestDTO struct {
	ID          string `json:"id"`
	EmployeeID  string `json:"employee_id"`
	ApproverID  string `json:"approver_id"`
	Kind        string `json:"kind"`
	LeaveTypeID string `json:"leave_type_id,omitempty"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Charge      string `json:"charge"`
	Description string `json:"description,omitempty"`
	HasReceipt  bool   `json:"has_receipt"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func toRequestDTO(r *leave.Request) RequestDTO {
	return RequestDTO{
		ID:          r.ID,
		EmployeeID:  r.EmployeeID,
		ApproverID:  r.ApproverID,
		Kind:        string(r.Kind),
		LeaveTypeID: r.LeaveTypeID,
		StartDate:   r.StartDate.Format("2006-01-02"),
		EndDate:     r.EndDate.Format("2006-01-02"),
		Charge:      r.Charge.String(),
		Description: r.Description,
		HasReceipt:  r.HasReceipt(),
		Status:      string(r.Status),
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   r.UpdatedAt.Format(time.RFC3339),
	}
}

func toRequestDTOs(requests []leave.Request) []RequestDTO {
	dtos := make([]RequestDTO, len(requests))
	for i := range requests {
		dtos[i] = toRequestDTO(&requests[i])
	}
	return dtos
}

// =============================================================================
// BALANCES
// =============================================================================

// BalanceDTO represents one bucket of an employee's balance.
type BalanceDTO struct {
	Bucket    string `json:"bucket"`
	Available string `json:"available"`
	Used      string `json:"used"`
	UpdatedAt string `json:"updated_at"`
}

func toBalanceDTOs(records []leave.BalanceRecord) []BalanceDTO {
	dtos := make([]BalanceDTO, len(records))
	for i, rec := range records {
		dtos[i] = BalanceDTO{
			Bucket:    string(rec.Bucket),
			Available: rec.Available.String(),
			Used:      rec.Used.String(),
			UpdatedAt: rec.UpdatedAt.Format(time.RFC3339),
		}
	}
	return dtos
}

// TeamBalanceDTO pairs an employee with their balance rows, for the
// manager's team view.
type TeamBalanceDTO struct {
	Employee EmployeeDTO  `json:"employee"`
	Balances []BalanceDTO `json:"balances"`
}

// =============================================================================
// LEAVE TYPES AND HOLIDAYS
// =============================================================================

// LeaveTypeDTO represents a leave-type catalog entry.
type LeaveTypeDTO struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Bucket string `json:"bucket,omitempty"`
}

// HolidayDTO represents a holiday calendar entry.
type HolidayDTO struct {
	ID   string `json:"id"`
	Date string `json:"date"`
	Name string `json:"name"`
}

// CreateHolidayRequest adds a holiday to the calendar.
type CreateHolidayRequest struct {
	Date string `json:"date"` // YYYY-MM-DD
	Name string `json:"name"`
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

// NotificationDTO represents an in-app notification.
type NotificationDTO struct {
	ID        string `json:"id"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
	Read      bool   `json:"read"`
	CreatedAt string `json:"created_at"`
}

func toNotificationDTOs(notifications []leave.Notification) []NotificationDTO {
	dtos := make([]NotificationDTO, len(notifications))
	for i, n := range notifications {
		dtos[i] = NotificationDTO{
			ID:        n.ID,
			Message:   n.Message,
			RequestID: n.RequestID,
			Read:      n.Read,
			CreatedAt: n.CreatedAt.Format(time.RFC3339),
		}
	}
	return dtos
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
