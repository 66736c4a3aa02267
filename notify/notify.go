/*
Package notify delivers lifecycle-transition notifications.

PURPOSE:
  Implements leave.Notifier on top of the notification store. Delivery
  is strictly best-effort: a notification failure is logged and dropped,
  never propagated into the transition that produced it. By the time
  Notify runs, the status change and balance adjustment have already
  committed.
*/
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crewpoint/leavedesk/leave"
)

// Store is the persistence the dispatcher needs.
type Store interface {
	SaveNotification(ctx context.Context, n leave.Notification) error
}

// Dispatcher persists notifications for in-app delivery.
type Dispatcher struct {
	store   Store
	logger  *zap.Logger
	timeout time.Duration
}

// NewDispatcher creates a dispatcher writing to store.
func NewDispatcher(store Store, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		store:   store,
		logger:  logger,
		timeout: 5 * time.Second,
	}
}

// Notify persists the notification. Errors are logged, never returned.
func (d *Dispatcher) Notify(n leave.Notification) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.store.SaveNotification(ctx, n); err != nil {
		d.logger.Warn("failed to deliver notification",
			zap.String("employee_id", n.EmployeeID),
			zap.String("request_id", n.RequestID),
			zap.Error(err))
	}
}
