package entity

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MaxLineQuantity caps a single product's quantity within one order.
const MaxLineQuantity = 10

type Status string

const (
	StatusNone       Status = "" // open carts carry no status
	StatusInProgress Status = "in_progress"
	StatusEnRoute    Status = "en_route"
	StatusDelivered  Status = "delivered"
)

// Next returns the status that follows s. Delivered is terminal.
func (s Status) Next() (Status, error) {
	switch s {
	case StatusDelivered:
		return s, ErrAlreadyDelivered
	case StatusInProgress:
		return StatusEnRoute, nil
	default:
		return StatusDelivered, nil
	}
}

type PaymentMethod string

const (
	PaymentDebit  PaymentMethod = "debit"
	PaymentCredit PaymentMethod = "credit"
	PaymentCash   PaymentMethod = "cash"
)

var PaymentMethods = []PaymentMethod{PaymentDebit, PaymentCredit, PaymentCash}

func (m PaymentMethod) Valid() bool {
	for _, v := range PaymentMethods {
		if m == v {
			return true
		}
	}
	return false
}

func PaymentMethodNames() string {
	names := make([]string, len(PaymentMethods))
	for i, m := range PaymentMethods {
		names[i] = string(m)
	}
	return strings.Join(names, " ")
}

type OrderLine struct {
	ProductID int64
	Quantity  int
	Product   *Product // live catalog snapshot, only set when loaded for display
}

// UserInfo is the owner projection attached to orders in admin listings.
type UserInfo struct {
	ID       int64
	Username string
	Email    string
}

type Order struct {
	ID             int64
	UserID         int64
	IsShoppingCart bool
	Address        string
	PaymentMethod  PaymentMethod
	Status         Status
	Total          decimal.Decimal
	Date           time.Time
	Lines          []OrderLine
	Owner          *UserInfo
}

// NewCart opens an empty shopping cart for userID.
func NewCart(userID int64, now time.Time) *Order {
	return &Order{
		UserID:         userID,
		IsShoppingCart: true,
		Total:          decimal.Zero,
		Date:           now,
	}
}

// Line returns the line for productID, if any.
func (o *Order) Line(productID int64) (*OrderLine, bool) {
	for i := range o.Lines {
		if o.Lines[i].ProductID == productID {
			return &o.Lines[i], true
		}
	}
	return nil, false
}

// AddLine merges qty units of p into the cart and charges them at p's current price.
func (o *Order) AddLine(p Product, qty int) error {
	if !o.IsShoppingCart {
		return ErrNoActiveCart
	}
	if qty <= 0 {
		return ErrInvalidQuantity
	}

	merged := qty
	line, exists := o.Line(p.ID)
	if exists {
		merged += line.Quantity
	}
	if merged > MaxLineQuantity {
		return ErrQuantityLimit
	}
	if p.Stock < merged {
		return fmt.Errorf("%w: %d requested, %d available", ErrInsufficientStock, merged, p.Stock)
	}

	if exists {
		line.Quantity = merged
	} else {
		o.Lines = append(o.Lines, OrderLine{ProductID: p.ID, Quantity: qty})
	}
	o.Total = o.Total.Add(p.LineAmount(qty))
	return nil
}

// RemoveLine drops p's line and credits its quantity back at p's current price.
func (o *Order) RemoveLine(p Product) (OrderLine, error) {
	if !o.IsShoppingCart {
		return OrderLine{}, ErrNoActiveCart
	}
	for i, l := range o.Lines {
		if l.ProductID != p.ID {
			continue
		}
		o.Total = o.Total.Sub(p.LineAmount(l.Quantity))
		o.Lines = append(o.Lines[:i], o.Lines[i+1:]...)
		return l, nil
	}
	return OrderLine{}, ErrLineNotFound
}

// Confirm turns the cart into a placed order. Stock is handled by the caller.
func (o *Order) Confirm(address string, method PaymentMethod, now time.Time) error {
	if !o.IsShoppingCart {
		return ErrNoActiveCart
	}
	if strings.TrimSpace(address) == "" {
		return fmt.Errorf("%w: address is required", ErrInvalidRequest)
	}
	if !method.Valid() {
		return ErrInvalidPayment
	}
	if len(o.Lines) == 0 {
		return ErrEmptyCart
	}
	o.Address = address
	o.PaymentMethod = method
	o.IsShoppingCart = false
	o.Status = StatusInProgress
	o.Date = now
	return nil
}

// Advance moves a placed order one step forward and returns the previous status.
func (o *Order) Advance() (Status, error) {
	if o.IsShoppingCart {
		return o.Status, ErrOrderNotFound
	}
	prev := o.Status
	next, err := prev.Next()
	if err != nil {
		return prev, err
	}
	o.Status = next
	return prev, nil
}

// SortLines orders lines by product id.
func (o *Order) SortLines() {
	sort.Slice(o.Lines, func(i, j int) bool { return o.Lines[i].ProductID < o.Lines[j].ProductID })
}

// RecomputeTotal sums the lines at the prices in their product snapshots.
// Lines without a snapshot are skipped.
func (o *Order) RecomputeTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range o.Lines {
		if l.Product == nil {
			continue
		}
		sum = sum.Add(l.Product.LineAmount(l.Quantity))
	}
	return sum
}
