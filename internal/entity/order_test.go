package entity

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func product(id int64, price string, stock int) Product {
	return Product{ID: id, Name: "p", Category: CategoryHardware, Price: decimal.RequireFromString(price), Stock: stock}
}

func TestOrder_AddLineMergesQuantity(t *testing.T) {
	cart := NewCart(7, time.Now())
	p := product(1, "10.50", 20)

	require.NoError(t, cart.AddLine(p, 2))
	require.NoError(t, cart.AddLine(p, 3))

	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 5, cart.Lines[0].Quantity)
	assert.True(t, decimal.RequireFromString("52.50").Equal(cart.Total), "total=%s", cart.Total)
}

func TestOrder_AddLineRules(t *testing.T) {
	tests := []struct {
		name    string
		first   int
		second  int
		stock   int
		wantErr error
	}{
		{"zero quantity", 0, 0, 10, ErrInvalidRequest},
		{"negative quantity", -1, 0, 10, ErrInvalidRequest},
		{"cap reached by merge", 6, 5, 50, ErrQuantityLimit},
		{"exactly the cap", 6, 4, 50, nil},
		{"stock short on merge", 3, 3, 5, ErrInsufficientStock},
		{"stock short on first add", 6, 0, 5, ErrInsufficientStock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cart := NewCart(1, time.Now())
			p := product(1, "1", tt.stock)
			err := cart.AddLine(p, tt.first)
			if err == nil && tt.second != 0 {
				err = cart.AddLine(p, tt.second)
			}
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestOrder_AddLineFailureLeavesCartUntouched(t *testing.T) {
	cart := NewCart(1, time.Now())
	p := product(1, "3", 100)
	require.NoError(t, cart.AddLine(p, 8))

	err := cart.AddLine(p, 3)

	assert.ErrorIs(t, err, ErrQuantityLimit)
	assert.Equal(t, 8, cart.Lines[0].Quantity)
	assert.True(t, decimal.NewFromInt(24).Equal(cart.Total))
}

func TestOrder_RemoveLine(t *testing.T) {
	cart := NewCart(1, time.Now())
	a := product(1, "10", 10)
	b := product(2, "5", 10)
	require.NoError(t, cart.AddLine(a, 2))
	require.NoError(t, cart.AddLine(b, 1))

	removed, err := cart.RemoveLine(a)
	require.NoError(t, err)
	assert.Equal(t, 2, removed.Quantity)
	assert.True(t, decimal.NewFromInt(5).Equal(cart.Total))

	_, err = cart.RemoveLine(a)
	assert.ErrorIs(t, err, ErrLineNotFound)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOrder_Confirm(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	cart := NewCart(1, now.Add(-time.Hour))
	require.NoError(t, cart.AddLine(product(1, "10", 10), 2))
	require.NoError(t, cart.AddLine(product(2, "5", 10), 1))

	require.NoError(t, cart.Confirm("221B Baker Street", PaymentCredit, now))

	assert.False(t, cart.IsShoppingCart)
	assert.Equal(t, StatusInProgress, cart.Status)
	assert.Equal(t, PaymentCredit, cart.PaymentMethod)
	assert.Equal(t, now, cart.Date)
	assert.True(t, decimal.NewFromInt(25).Equal(cart.Total))

	assert.ErrorIs(t, cart.Confirm("x", PaymentCash, now), ErrNoActiveCart)
}

func TestOrder_ConfirmValidation(t *testing.T) {
	full := func() *Order {
		c := NewCart(1, time.Now())
		_ = c.AddLine(product(1, "1", 1), 1)
		return c
	}
	assert.ErrorIs(t, full().Confirm(" ", PaymentCash, time.Now()), ErrInvalidRequest)
	assert.ErrorIs(t, full().Confirm("addr", "bitcoin", time.Now()), ErrInvalidPayment)
	assert.ErrorIs(t, NewCart(1, time.Now()).Confirm("addr", PaymentCash, time.Now()), ErrEmptyCart)
}

func TestStatus_AdvanceSequence(t *testing.T) {
	o := &Order{Status: StatusInProgress}

	_, err := o.Advance()
	require.NoError(t, err)
	assert.Equal(t, StatusEnRoute, o.Status)

	prev, err := o.Advance()
	require.NoError(t, err)
	assert.Equal(t, StatusEnRoute, prev)
	assert.Equal(t, StatusDelivered, o.Status)

	_, err = o.Advance()
	assert.True(t, errors.Is(err, ErrAlreadyDelivered))
	assert.Equal(t, StatusDelivered, o.Status)
}

func TestOrder_RecomputeTotalMatchesIncremental(t *testing.T) {
	cart := NewCart(1, time.Now())
	a := product(1, "19.99", 10)
	b := product(2, "0.01", 10)
	require.NoError(t, cart.AddLine(a, 3))
	require.NoError(t, cart.AddLine(b, 4))
	require.NoError(t, cart.AddLine(a, 1))
	cart.Lines[0].Product = &a
	cart.Lines[1].Product = &b

	assert.True(t, cart.RecomputeTotal().Equal(cart.Total), "recomputed=%s incremental=%s", cart.RecomputeTotal(), cart.Total)
}

func TestErrorClasses(t *testing.T) {
	assert.ErrorIs(t, ErrQuantityLimit, ErrInvalidRequest)
	assert.ErrorIs(t, ErrProductNotFound, ErrNotFound)
	assert.ErrorIs(t, ErrStatusChanged, ErrConflict)
	assert.False(t, errors.Is(ErrNoActiveCart, ErrNotFound))
}
