package queue

import (
	"context"

	"github.com/aq2208/gstore-api/internal/logging"
	"github.com/aq2208/gstore-api/internal/usecase"
)

// NotificationHandler hands queued notifications to the real transport (SMTP).
type NotificationHandler struct {
	Sender usecase.Notifier
}

func NewNotificationHandler(sender usecase.Notifier) *NotificationHandler {
	return &NotificationHandler{Sender: sender}
}

// HandleNotification is intended to be used with JSONHandler[usecase.Notification].
func (h *NotificationHandler) HandleNotification(ctx context.Context, n usecase.Notification) error {
	if n.To == "" {
		logging.FromCtx(ctx).Warn("notification without recipient dropped", "order_id", n.OrderID)
		return nil
	}
	return h.Sender.Notify(ctx, n)
}
