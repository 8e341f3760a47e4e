package http

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/aq2208/gstore-api/internal/entity"
	"github.com/aq2208/gstore-api/internal/usecase"
)

var validate = validator.New()

var (
	categoryTag = "oneof=" + entity.CategoryNames()
	paymentTag  = "required,oneof=" + entity.PaymentMethodNames()
)

// rule checks one field value against a validator tag. The message is reported
// as-is when the check fails.
type rule struct {
	field string
	value any
	tag   string
	msg   string
}

// check runs every rule and collects the failures, at most one per field.
func check(rules ...rule) error {
	var fields []FieldError
	failed := map[string]bool{}
	for _, r := range rules {
		if failed[r.field] {
			continue
		}
		if err := validate.Var(r.value, r.tag); err != nil {
			failed[r.field] = true
			fields = append(fields, FieldError{Field: r.field, Message: r.msg})
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

func invalidField(field, msg string) error {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: msg}}}
}

func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, invalidField(name, "must be a positive integer")
	}
	return id, nil
}

// bind decodes JSON or form bodies according to Content-Type.
func bind(c *gin.Context, dst any) error {
	if err := c.ShouldBind(dst); err != nil {
		return invalidField("body", "malformed request body")
	}
	return nil
}

// priceValue parses a decimal for range rules; unparsable input is left to the
// "numeric" rule of the same field.
func priceValue(s string) float64 {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}

type addItemReq struct {
	ProductID int64 `json:"productId" form:"productId"`
	Quantity  int   `json:"quantity" form:"quantity"`
}

func (r addItemReq) validate() error {
	return check(
		rule{"productId", r.ProductID, "gt=0", "product id is required"},
		rule{"quantity", r.Quantity, "min=1,max=" + strconv.Itoa(entity.MaxLineQuantity),
			"quantity must be between 1 and " + strconv.Itoa(entity.MaxLineQuantity)},
	)
}

type confirmReq struct {
	Address       string `json:"address" form:"address"`
	PaymentMethod string `json:"paymentMethod" form:"paymentMethod"`
}

func (r confirmReq) validate() error {
	return check(
		rule{"address", strings.TrimSpace(r.Address), "required", "address is required"},
		rule{"address", r.Address, "max=256", "address is too long"},
		rule{"paymentMethod", r.PaymentMethod, paymentTag,
			"payment method must be one of: " + entity.PaymentMethodNames()},
	)
}

type productReq struct {
	Name        string `json:"name" form:"name"`
	Description string `json:"description" form:"description"`
	Category    string `json:"category" form:"category"`
	Price       string `json:"price" form:"price"`
	Stock       int    `json:"stock" form:"stock"`
}

func (r productReq) validate() error {
	return check(
		rule{"name", strings.TrimSpace(r.Name), "required", "name is required"},
		rule{"name", r.Name, "max=256", "name must be at most 256 characters"},
		rule{"category", r.Category, "required," + categoryTag,
			"category must be one of: " + entity.CategoryNames()},
		rule{"price", strings.TrimSpace(r.Price), "required,numeric", "price must be a number"},
		rule{"price", priceValue(r.Price), "gte=0", "price cannot be negative"},
		rule{"stock", r.Stock, "gte=0", "stock cannot be negative"},
	)
}

func (r productReq) input() (usecase.ProductInput, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(r.Price))
	if err != nil {
		return usecase.ProductInput{}, invalidField("price", "price must be a number")
	}
	return usecase.ProductInput{
		Name:        strings.TrimSpace(r.Name),
		Description: r.Description,
		Category:    entity.Category(r.Category),
		Price:       price,
		Stock:       r.Stock,
	}, nil
}

type stockReq struct {
	Stock int `json:"stock" form:"stock"`
}

func (r stockReq) validate() error {
	return check(rule{"stock", r.Stock, "ne=0", "stock delta must not be zero"})
}

type patchProductReq struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Category    *string          `json:"category"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
}

func (r patchProductReq) validate() error {
	if r.Name == nil && r.Description == nil && r.Category == nil && r.Price == nil && r.Stock == nil {
		return invalidField("body", "nothing to update")
	}
	var rules []rule
	if r.Name != nil {
		rules = append(rules,
			rule{"name", strings.TrimSpace(*r.Name), "required", "name cannot be empty"},
			rule{"name", *r.Name, "max=256", "name must be at most 256 characters"})
	}
	if r.Category != nil {
		rules = append(rules, rule{"category", *r.Category, "required," + categoryTag,
			"category must be one of: " + entity.CategoryNames()})
	}
	if r.Price != nil {
		rules = append(rules, rule{"price", r.Price.InexactFloat64(), "gte=0", "price cannot be negative"})
	}
	if r.Stock != nil {
		rules = append(rules, rule{"stock", *r.Stock, "gte=0", "stock cannot be negative"})
	}
	return check(rules...)
}

type searchReq struct {
	Name     string `form:"name"`
	Category string `form:"category"`
}

func (r searchReq) validate() error {
	return check(rule{"category", r.Category, "omitempty," + categoryTag,
		"category must be one of: " + entity.CategoryNames()})
}

type registerReq struct {
	UserName string `json:"userName" form:"userName"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (r registerReq) validate() error {
	return check(
		rule{"userName", r.UserName, "required,max=64", "user name is required (at most 64 characters)"},
		rule{"userName", strings.ContainsAny(r.UserName, " \t\n"), "eq=false", "user name cannot contain spaces"},
		rule{"email", r.Email, "required,email", "a valid email is required"},
		rule{"password", r.Password, "required,min=6,max=72", "password must be 6 to 72 characters"},
	)
}

type loginReq struct {
	UserName string `json:"userName" form:"userName"`
	Password string `json:"password" form:"password"`
}

func (r loginReq) validate() error {
	return check(
		rule{"userName", r.UserName, "required", "user name is required"},
		rule{"password", r.Password, "required", "password is required"},
	)
}

type roleReq struct {
	UserName string `json:"userName" form:"userName"`
}

func (r roleReq) validate() error {
	return check(rule{"userName", r.UserName, "required", "user name is required"})
}
