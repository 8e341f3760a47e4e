package entity

import (
	"strings"

	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryComputers   Category = "computers"
	CategoryHardware    Category = "hardware"
	CategoryAccessories Category = "accessories"
	CategoryStorage     Category = "storage"
)

var Categories = []Category{CategoryComputers, CategoryHardware, CategoryAccessories, CategoryStorage}

func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

// CategoryNames is the space-separated list used by "oneof" validation tags.
func CategoryNames() string {
	names := make([]string, len(Categories))
	for i, c := range Categories {
		names[i] = string(c)
	}
	return strings.Join(names, " ")
}

type Product struct {
	ID          int64
	Name        string
	Description string
	Category    Category
	Price       decimal.Decimal
	Image       string
	Stock       int
}

// LineAmount is the price of qty units at the product's current price.
func (p Product) LineAmount(qty int) decimal.Decimal {
	return p.Price.Mul(decimal.NewFromInt(int64(qty)))
}
