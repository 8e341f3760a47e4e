package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aq2208/gstore-api/internal/entity"
)

type cartFixture struct {
	store *memStore
	cart  *Cart
	user  entity.User
}

func newCartFixture(t *testing.T) cartFixture {
	t.Helper()
	s := newMemStore()
	c := NewCart(memOrders{s}, memProducts{s}, memTx{s}, noLock{})
	c.now = func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) }
	return cartFixture{store: s, cart: c, user: s.addUser("ana", "ana@example.com")}
}

func TestAddItem_OpensExactlyOneCart(t *testing.T) {
	f := newCartFixture(t)
	p := f.store.addProduct("ssd", "10", 5, entity.CategoryStorage)

	view, err := f.cart.AddItem(context.Background(), f.user.ID, p.ID, 2)
	require.NoError(t, err)

	carts := f.store.countOrders(func(o entity.Order) bool { return o.UserID == f.user.ID && o.IsShoppingCart })
	assert.Equal(t, 1, carts)
	require.Len(t, view.Products, 1)
	assert.Equal(t, p.ID, view.Products[0].ID)
	assert.Equal(t, 2, view.Products[0].Quantity)
	assert.True(t, view.Total.Equal(decimal.NewFromInt(20)))
}

func TestAddItem_SameProductMergesLine(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	p := f.store.addProduct("mouse", "12.5", 10, entity.CategoryAccessories)

	_, err := f.cart.AddItem(ctx, f.user.ID, p.ID, 1)
	require.NoError(t, err)
	view, err := f.cart.AddItem(ctx, f.user.ID, p.ID, 3)
	require.NoError(t, err)

	require.Len(t, view.Products, 1)
	assert.Equal(t, 4, view.Products[0].Quantity)
	assert.Equal(t, "50", view.Total.String())
	assert.Equal(t, 1, f.store.countOrders(func(o entity.Order) bool { return o.IsShoppingCart }))
}

func TestAddItem_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		stock   int
		prior   int
		qty     int
		product int64 // 0 means the seeded product
		want    error
	}{
		{name: "zero quantity", stock: 5, qty: 0, want: entity.ErrInvalidQuantity},
		{name: "unknown product", stock: 5, qty: 1, product: 999, want: entity.ErrProductNotFound},
		{name: "over line cap", stock: 50, prior: 8, qty: 3, want: entity.ErrQuantityLimit},
		{name: "merged over stock", stock: 4, prior: 3, qty: 2, want: entity.ErrInsufficientStock},
		{name: "over stock", stock: 1, qty: 2, want: entity.ErrInsufficientStock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCartFixture(t)
			ctx := context.Background()
			p := f.store.addProduct("cable", "3", tt.stock, entity.CategoryAccessories)
			if tt.prior > 0 {
				_, err := f.cart.AddItem(ctx, f.user.ID, p.ID, tt.prior)
				require.NoError(t, err)
			}
			pid := p.ID
			if tt.product != 0 {
				pid = tt.product
			}

			_, err := f.cart.AddItem(ctx, f.user.ID, pid, tt.qty)
			assert.ErrorIs(t, err, tt.want)

			// a rejected add leaves the cart as it was
			if tt.prior > 0 {
				view, err := f.cart.Get(ctx, f.user.ID)
				require.NoError(t, err)
				assert.Equal(t, tt.prior, view.Products[0].Quantity)
			} else {
				_, err := f.cart.Get(ctx, f.user.ID)
				assert.ErrorIs(t, err, entity.ErrNoActiveCart)
			}
		})
	}
}

func TestAddItem_RetriesOnceWhenCartOpenedConcurrently(t *testing.T) {
	f := newCartFixture(t)
	p := f.store.addProduct("ram", "40", 5, entity.CategoryHardware)
	f.store.failSaveOnce = fmt.Errorf("%w: duplicate cart_owner", entity.ErrConflict)

	view, err := f.cart.AddItem(context.Background(), f.user.ID, p.ID, 1)
	require.NoError(t, err)
	assert.Len(t, view.Products, 1)
}

func TestAddItem_LockFailure(t *testing.T) {
	f := newCartFixture(t)
	f.cart.locks = failingLock{err: errors.New("redis down")}
	p := f.store.addProduct("ram", "40", 5, entity.CategoryHardware)

	_, err := f.cart.AddItem(context.Background(), f.user.ID, p.ID, 1)
	assert.ErrorContains(t, err, "lock cart")
}

func TestRemoveItem(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	a := f.store.addProduct("a", "10", 5, entity.CategoryHardware)
	b := f.store.addProduct("b", "5", 5, entity.CategoryHardware)
	_, err := f.cart.AddItem(ctx, f.user.ID, a.ID, 2)
	require.NoError(t, err)
	_, err = f.cart.AddItem(ctx, f.user.ID, b.ID, 1)
	require.NoError(t, err)

	require.NoError(t, f.cart.RemoveItem(ctx, f.user.ID, a.ID))

	view, err := f.cart.Get(ctx, f.user.ID)
	require.NoError(t, err)
	require.Len(t, view.Products, 1)
	assert.Equal(t, b.ID, view.Products[0].ID)
	assert.Equal(t, "5", view.Total.String())
}

func TestRemoveItem_MissingLineIsNotFound(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	a := f.store.addProduct("a", "10", 5, entity.CategoryHardware)
	b := f.store.addProduct("b", "5", 5, entity.CategoryHardware)

	err := f.cart.RemoveItem(ctx, f.user.ID, a.ID)
	assert.ErrorIs(t, err, entity.ErrNoActiveCart)

	_, err = f.cart.AddItem(ctx, f.user.ID, a.ID, 1)
	require.NoError(t, err)
	err = f.cart.RemoveItem(ctx, f.user.ID, b.ID)
	assert.ErrorIs(t, err, entity.ErrLineNotFound)
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestRemoveItem_CreditsCurrentPrice(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	a := f.store.addProduct("a", "10", 5, entity.CategoryHardware)
	b := f.store.addProduct("b", "5", 5, entity.CategoryHardware)
	_, err := f.cart.AddItem(ctx, f.user.ID, a.ID, 2)
	require.NoError(t, err)
	_, err = f.cart.AddItem(ctx, f.user.ID, b.ID, 1)
	require.NoError(t, err)

	a.Price = decimal.NewFromInt(8)
	require.NoError(t, memProducts{f.store}.Update(ctx, &a))
	require.NoError(t, f.cart.RemoveItem(ctx, f.user.ID, a.ID))

	view, err := f.cart.Get(ctx, f.user.ID)
	require.NoError(t, err)
	// 25 charged, 16 credited back
	assert.Equal(t, "9", view.Total.String())
}

func TestCancel_ThenGetReportsNoActiveCart(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	p := f.store.addProduct("a", "10", 5, entity.CategoryHardware)
	_, err := f.cart.AddItem(ctx, f.user.ID, p.ID, 1)
	require.NoError(t, err)

	require.NoError(t, f.cart.Cancel(ctx, f.user.ID))

	_, err = f.cart.Get(ctx, f.user.ID)
	assert.ErrorIs(t, err, entity.ErrNoActiveCart)
	assert.Zero(t, f.store.countOrders(func(entity.Order) bool { return true }))
	assert.Equal(t, 5, f.store.product(p.ID).Stock)

	assert.ErrorIs(t, f.cart.Cancel(ctx, f.user.ID), entity.ErrNoActiveCart)
}

func TestGet_IsStable(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	b := f.store.addProduct("b", "5", 5, entity.CategoryHardware)
	a := f.store.addProduct("a", "10", 5, entity.CategoryHardware)
	_, err := f.cart.AddItem(ctx, f.user.ID, a.ID, 1)
	require.NoError(t, err)
	_, err = f.cart.AddItem(ctx, f.user.ID, b.ID, 2)
	require.NoError(t, err)

	first, err := f.cart.Get(ctx, f.user.ID)
	require.NoError(t, err)
	second, err := f.cart.Get(ctx, f.user.ID)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, b.ID, first.Products[0].ID, "lines are ordered by product id")
}

func TestCartTotal_MatchesRecompute(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	a := f.store.addProduct("a", "19.99", 10, entity.CategoryHardware)
	b := f.store.addProduct("b", "0.35", 10, entity.CategoryAccessories)
	for _, step := range []struct {
		id  int64
		qty int
	}{{a.ID, 2}, {b.ID, 3}, {a.ID, 1}, {b.ID, 4}} {
		_, err := f.cart.AddItem(ctx, f.user.ID, step.id, step.qty)
		require.NoError(t, err)
	}

	cart, err := memOrders{f.store}.FindCart(ctx, f.user.ID)
	require.NoError(t, err)
	assert.True(t, cart.Total.Equal(cart.RecomputeTotal()), "incremental %s, recomputed %s", cart.Total, cart.RecomputeTotal())
}
