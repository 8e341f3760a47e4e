package usecase

import (
	"context"
	"strconv"
	"time"

	"github.com/aq2208/gstore-api/internal/entity"
	"github.com/aq2208/gstore-api/internal/logging"
)

// Fulfillment moves placed orders through in_progress -> en_route -> delivered.
type Fulfillment struct {
	orders    OrderRepo
	users     UserRepo
	notifier  Notifier
	cache     OrderCache // optional
	storeName string
	timeout   time.Duration
	dispatch  func(func())
}

type FulfillmentOption func(*Fulfillment)

func WithStatusCache(c OrderCache) FulfillmentOption { return func(f *Fulfillment) { f.cache = c } }
func WithStoreName(name string) FulfillmentOption    { return func(f *Fulfillment) { f.storeName = name } }
func WithNotifyTimeout(d time.Duration) FulfillmentOption {
	return func(f *Fulfillment) { f.timeout = d }
}

// WithDispatcher replaces the goroutine used for notifications (tests run them inline).
func WithDispatcher(run func(func())) FulfillmentOption {
	return func(f *Fulfillment) { f.dispatch = run }
}

func NewFulfillment(orders OrderRepo, users UserRepo, notifier Notifier, opts ...FulfillmentOption) *Fulfillment {
	f := &Fulfillment{
		orders:    orders,
		users:     users,
		notifier:  notifier,
		storeName: "Store",
		timeout:   10 * time.Second,
		dispatch:  func(fn func()) { go fn() },
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// AdvanceStatus moves the order one step and notifies its owner without waiting on delivery.
func (uc *Fulfillment) AdvanceStatus(ctx context.Context, orderID int64) (*entity.Order, error) {
	o, err := uc.orders.GetPlaced(ctx, orderID)
	if err != nil {
		return nil, err
	}
	prev, err := o.Advance()
	if err != nil {
		return nil, err
	}

	ok, err := uc.orders.UpdateStatusIf(ctx, o.ID, prev, o.Status)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, entity.ErrStatusChanged
	}

	log := logging.FromCtx(ctx).With("order_id", o.ID, "status", o.Status)
	log.Info("order status advanced", "from", prev)

	// Cache best-effort
	if uc.cache != nil {
		if err := uc.cache.SetStatus(ctx, strconv.FormatInt(o.ID, 10), string(o.Status)); err != nil {
			log.Warn("cache order status", "err", err)
		}
	}

	uc.notifyOwner(ctx, o)
	return o, nil
}

func (uc *Fulfillment) notifyOwner(ctx context.Context, o *entity.Order) {
	log := logging.FromCtx(ctx).With("order_id", o.ID)
	owner, err := uc.users.GetByID(ctx, o.UserID)
	if err != nil {
		log.Error("resolve order owner for notification", "user_id", o.UserID, "err", err)
		return
	}
	n := StatusChangedNotification(uc.storeName, o, *owner)

	// outlives the request; a slow mail path must not hold the caller
	detached := context.WithoutCancel(ctx)
	uc.dispatch(func() {
		ctx, cancel := context.WithTimeout(detached, uc.timeout)
		defer cancel()
		if err := uc.notifier.Notify(ctx, n); err != nil {
			log.Error("status notification failed", "to", n.To, "err", err)
			return
		}
		log.Debug("status notification queued", "to", n.To)
	})
}
