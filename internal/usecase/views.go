package usecase

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/aq2208/gstore-api/internal/entity"
)

// ProductView is the public shape of a catalog product.
type ProductView struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image,omitempty"`
	Stock       int             `json:"stock"`
}

// LineView is a product snapshot plus the quantity held in an order.
type LineView struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image,omitempty"`
	Quantity    int             `json:"quantity"`
}

type CartView struct {
	ID       int64           `json:"id"`
	Total    decimal.Decimal `json:"total"`
	Products []LineView      `json:"products"`
}

type OwnerView struct {
	ID       int64  `json:"id"`
	Username string `json:"userName"`
	Email    string `json:"email"`
}

type OrderView struct {
	ID            int64           `json:"id"`
	User          *OwnerView      `json:"user,omitempty"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod string          `json:"paymentMethod"`
	Status        string          `json:"status"`
	Date          time.Time       `json:"date"`
	Address       string          `json:"address"`
	Products      []LineView      `json:"products"`
}

func NewProductView(p *entity.Product) ProductView {
	return ProductView{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    string(p.Category),
		Price:       p.Price,
		Image:       p.Image,
		Stock:       p.Stock,
	}
}

func NewProductViews(list []*entity.Product) []ProductView {
	out := make([]ProductView, 0, len(list))
	for _, p := range list {
		out = append(out, NewProductView(p))
	}
	return out
}

func newLineViews(o *entity.Order) []LineView {
	o.SortLines()
	out := make([]LineView, 0, len(o.Lines))
	for _, l := range o.Lines {
		v := LineView{ID: l.ProductID, Quantity: l.Quantity}
		if p := l.Product; p != nil {
			v.Name = p.Name
			v.Description = p.Description
			v.Category = string(p.Category)
			v.Price = p.Price
			v.Image = p.Image
		}
		out = append(out, v)
	}
	return out
}

func NewCartView(o *entity.Order) CartView {
	return CartView{ID: o.ID, Total: o.Total, Products: newLineViews(o)}
}

func NewOrderView(o *entity.Order) OrderView {
	v := OrderView{
		ID:            o.ID,
		Total:         o.Total,
		PaymentMethod: string(o.PaymentMethod),
		Status:        string(o.Status),
		Date:          o.Date,
		Address:       o.Address,
		Products:      newLineViews(o),
	}
	if o.Owner != nil {
		v.User = &OwnerView{ID: o.Owner.ID, Username: o.Owner.Username, Email: o.Owner.Email}
	}
	return v
}

func NewOrderViews(list []*entity.Order) []OrderView {
	out := make([]OrderView, 0, len(list))
	for _, o := range list {
		out = append(out, NewOrderView(o))
	}
	return out
}
