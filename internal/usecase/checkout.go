package usecase

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/aq2208/gstore-api/internal/entity"
	"github.com/aq2208/gstore-api/internal/logging"
)

type ConfirmInput struct {
	UserID         int64
	Address        string
	PaymentMethod  entity.PaymentMethod
	IdempotencyKey string
}

type ConfirmResult struct {
	OrderID int64  `json:"orderId"`
	Status  string `json:"status,omitempty"`
	Replay  bool   `json:"-"`
}

// Checkout turns an open cart into a placed order.
type Checkout struct {
	orders   OrderRepo
	products ProductRepo
	tx       TxManager
	locks    Locker
	idem     IdempotencyStore // optional
	now      func() time.Time
}

func NewCheckout(orders OrderRepo, products ProductRepo, tx TxManager, locks Locker, idem IdempotencyStore) *Checkout {
	return &Checkout{orders: orders, products: products, tx: tx, locks: locks, idem: idem, now: time.Now}
}

func (uc *Checkout) Confirm(ctx context.Context, in ConfirmInput) (_ ConfirmResult, err error) {
	scope := "confirm:" + strconv.FormatInt(in.UserID, 10)
	if uc.idem != nil && in.IdempotencyKey != "" {
		if res, ok := uc.replay(ctx, scope, in.IdempotencyKey); ok {
			return res, nil
		}
		ok, lerr := uc.idem.TryLock(ctx, scope, in.IdempotencyKey)
		if lerr != nil {
			return ConfirmResult{}, lerr
		}
		if !ok {
			return ConfirmResult{}, fmt.Errorf("%w: confirmation already in flight", entity.ErrConflict)
		}
		defer func() {
			if err == nil {
				return
			}
			// a failed attempt must not hold the key until the ttl expires
			if rerr := uc.idem.Release(context.WithoutCancel(ctx), scope, in.IdempotencyKey); rerr != nil {
				logging.FromCtx(ctx).Warn("release idempotency key", "scope", scope, "err", rerr)
			}
		}()
	}

	unlock, err := uc.locks.Lock(ctx, cartLockKey(in.UserID))
	if err != nil {
		return ConfirmResult{}, fmt.Errorf("lock cart: %w", err)
	}
	defer unlock()

	var order *entity.Order
	err = uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		cart, err := uc.orders.FindCart(ctx, in.UserID)
		if err != nil {
			return err
		}
		// Confirm checks the address and payment method only once the cart is known
		if err := cart.Confirm(in.Address, in.PaymentMethod, uc.now()); err != nil {
			return err
		}
		if err := uc.reserveStock(ctx, cart.Lines); err != nil {
			return err
		}
		if err := uc.orders.Save(ctx, cart); err != nil {
			return err
		}
		order = cart
		return nil
	})
	if err != nil {
		return ConfirmResult{}, err
	}

	if uc.idem != nil && in.IdempotencyKey != "" {
		_ = uc.idem.Remember(ctx, scope, in.IdempotencyKey, strconv.FormatInt(order.ID, 10))
	}
	return ConfirmResult{OrderID: order.ID, Status: string(order.Status)}, nil
}

// replay answers a repeated key with the order it placed, at its current status.
func (uc *Checkout) replay(ctx context.Context, scope, key string) (ConfirmResult, bool) {
	id, ok, _ := uc.idem.Recall(ctx, scope, key)
	if !ok {
		return ConfirmResult{}, false
	}
	orderID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return ConfirmResult{}, false
	}
	res := ConfirmResult{OrderID: orderID, Replay: true}
	if o, err := uc.orders.GetPlaced(ctx, orderID); err == nil {
		res.Status = string(o.Status)
	} else {
		logging.FromCtx(ctx).Warn("load replayed order", "order_id", orderID, "err", err)
	}
	return res, true
}

// reserveStock locks every product row, checks all of them, and only then decrements.
func (uc *Checkout) reserveStock(ctx context.Context, lines []entity.OrderLine) error {
	sorted := make([]entity.OrderLine, len(lines))
	copy(sorted, lines)
	// fixed lock order so two checkouts sharing products cannot deadlock
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProductID < sorted[j].ProductID })

	for _, l := range sorted {
		p, err := uc.products.GetByIDForUpdate(ctx, l.ProductID)
		if err != nil {
			return err
		}
		if p.Stock < l.Quantity {
			return fmt.Errorf("%w: product %d has %d left, %d ordered", entity.ErrInsufficientStock, p.ID, p.Stock, l.Quantity)
		}
	}
	for _, l := range sorted {
		if err := uc.products.AdjustStock(ctx, l.ProductID, -l.Quantity); err != nil {
			return err
		}
	}
	return nil
}
