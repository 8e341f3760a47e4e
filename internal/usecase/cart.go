package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aq2208/gstore-api/internal/entity"
)

// Cart owns the shopping-cart side of the order lifecycle.
type Cart struct {
	orders   OrderRepo
	products ProductRepo
	tx       TxManager
	locks    Locker
	now      func() time.Time
}

func NewCart(orders OrderRepo, products ProductRepo, tx TxManager, locks Locker) *Cart {
	return &Cart{orders: orders, products: products, tx: tx, locks: locks, now: time.Now}
}

func cartLockKey(userID int64) string { return "cart:" + strconv.FormatInt(userID, 10) }

// AddItem puts quantity units of a product into the user's open cart, opening one if needed.
func (uc *Cart) AddItem(ctx context.Context, userID, productID int64, quantity int) (CartView, error) {
	if quantity <= 0 {
		return CartView{}, entity.ErrInvalidQuantity
	}
	if _, err := uc.products.GetByID(ctx, productID); err != nil {
		return CartView{}, err
	}

	unlock, err := uc.locks.Lock(ctx, cartLockKey(userID))
	if err != nil {
		return CartView{}, fmt.Errorf("lock cart: %w", err)
	}
	defer unlock()

	err = uc.addItem(ctx, userID, productID, quantity)
	if errors.Is(err, entity.ErrConflict) {
		// another instance opened the cart between our lookup and insert
		err = uc.addItem(ctx, userID, productID, quantity)
	}
	if err != nil {
		return CartView{}, err
	}
	return uc.Get(ctx, userID)
}

func (uc *Cart) addItem(ctx context.Context, userID, productID int64, quantity int) error {
	return uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := uc.products.GetByID(ctx, productID)
		if err != nil {
			return err
		}
		cart, err := uc.orders.FindCart(ctx, userID)
		switch {
		case errors.Is(err, entity.ErrNoActiveCart):
			cart = entity.NewCart(userID, uc.now())
		case err != nil:
			return err
		}
		if err := cart.AddLine(*p, quantity); err != nil {
			return err
		}
		return uc.orders.Save(ctx, cart)
	})
}

// RemoveItem drops one product line from the user's open cart.
func (uc *Cart) RemoveItem(ctx context.Context, userID, productID int64) error {
	unlock, err := uc.locks.Lock(ctx, cartLockKey(userID))
	if err != nil {
		return fmt.Errorf("lock cart: %w", err)
	}
	defer unlock()

	return uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		cart, err := uc.orders.FindCart(ctx, userID)
		if err != nil {
			return err
		}
		if _, ok := cart.Line(productID); !ok {
			return entity.ErrLineNotFound
		}
		// credited at today's catalog price, not the price paid when added
		p, err := uc.products.GetByID(ctx, productID)
		if err != nil {
			return err
		}
		if _, err := cart.RemoveLine(*p); err != nil {
			return err
		}
		return uc.orders.Save(ctx, cart)
	})
}

// Cancel deletes the user's open cart and all of its lines.
func (uc *Cart) Cancel(ctx context.Context, userID int64) error {
	unlock, err := uc.locks.Lock(ctx, cartLockKey(userID))
	if err != nil {
		return fmt.Errorf("lock cart: %w", err)
	}
	defer unlock()

	cart, err := uc.orders.FindCart(ctx, userID)
	if err != nil {
		return err
	}
	return uc.orders.Delete(ctx, cart.ID)
}

// Get returns the open cart with live product data for each line.
func (uc *Cart) Get(ctx context.Context, userID int64) (CartView, error) {
	cart, err := uc.orders.FindCart(ctx, userID)
	if err != nil {
		return CartView{}, err
	}
	return NewCartView(cart), nil
}
