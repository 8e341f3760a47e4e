// Package metrics holds the store's domain counters. HTTP request metrics live
// in the http middleware.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/aq2208/gstore-api/internal/usecase"
)

var (
	CartItemsAdded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "store_cart_items_added_total",
		Help: "Products added to shopping carts",
	})

	Confirmations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_order_confirmations_total",
			Help: "Cart confirmations by outcome (placed, replay)",
		},
		[]string{"result"},
	)

	StatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_order_status_transitions_total",
			Help: "Order status transitions by new status",
		},
		[]string{"status"},
	)

	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_notifications_total",
			Help: "Status notifications by stage (queued, delivered) and result",
		},
		[]string{"stage", "result"},
	)

	StockEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_stock_events_total",
			Help: "Warehouse stock events consumed from Kafka by result",
		},
		[]string{"result"},
	)
)

// CountingNotifier counts every notification passing through next.
type CountingNotifier struct {
	next  usecase.Notifier
	stage string
}

func NewCountingNotifier(next usecase.Notifier, stage string) *CountingNotifier {
	return &CountingNotifier{next: next, stage: stage}
}

func (n *CountingNotifier) Notify(ctx context.Context, msg usecase.Notification) error {
	err := n.next.Notify(ctx, msg)
	result := "ok"
	if err != nil {
		result = "failed"
	}
	Notifications.WithLabelValues(n.stage, result).Inc()
	return err
}

var _ usecase.Notifier = (*CountingNotifier)(nil)
