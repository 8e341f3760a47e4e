package repo

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/aq2208/gstore-api/internal/entity"
)

type userModel struct {
	ID           int64           `gorm:"primaryKey;autoIncrement"`
	Username     string          `gorm:"size:64;uniqueIndex;not null"`
	Email        string          `gorm:"size:256;not null"`
	PasswordHash string          `gorm:"size:100;not null"`
	Roles        []userRoleModel `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time
}

func (userModel) TableName() string { return "users" }

type userRoleModel struct {
	UserID int64  `gorm:"primaryKey"`
	Role   string `gorm:"primaryKey;size:32"`
}

func (userRoleModel) TableName() string { return "user_roles" }

type productModel struct {
	ID          int64           `gorm:"primaryKey;autoIncrement"`
	Name        string          `gorm:"size:256;not null;index"`
	Description string          `gorm:"type:text"`
	Category    string          `gorm:"size:32;index"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Image       string          `gorm:"size:512"`
	Stock       int             `gorm:"not null;default:0"`
	UpdatedAt   time.Time
}

func (productModel) TableName() string { return "products" }

type orderModel struct {
	ID             int64 `gorm:"primaryKey;autoIncrement"`
	UserID         int64 `gorm:"not null;index"`
	IsShoppingCart bool  `gorm:"not null;index"`
	// CartOwner mirrors UserID while the order is an open cart and is NULL
	// afterwards; the unique index allows one open cart per user.
	CartOwner     *int64           `gorm:"uniqueIndex"`
	Address       string           `gorm:"size:512"`
	PaymentMethod string           `gorm:"size:16"`
	Status        string           `gorm:"size:16;index"`
	Total         decimal.Decimal  `gorm:"type:decimal(12,2);not null"`
	Date          time.Time        `gorm:"not null"`
	Lines         []orderLineModel `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	User          *userModel       `gorm:"foreignKey:UserID"`
	UpdatedAt     time.Time
}

func (orderModel) TableName() string { return "orders" }

type orderLineModel struct {
	OrderID   int64         `gorm:"primaryKey"`
	ProductID int64         `gorm:"primaryKey"`
	Quantity  int           `gorm:"not null"`
	Product   *productModel `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT"`
}

func (orderLineModel) TableName() string { return "order_lines" }

func (m *productModel) toEntity() *entity.Product {
	return &entity.Product{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Category:    entity.Category(m.Category),
		Price:       m.Price,
		Image:       m.Image,
		Stock:       m.Stock,
	}
}

func productFromEntity(p *entity.Product) *productModel {
	return &productModel{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    string(p.Category),
		Price:       p.Price,
		Image:       p.Image,
		Stock:       p.Stock,
	}
}

func (m *orderModel) toEntity() *entity.Order {
	o := &entity.Order{
		ID:             m.ID,
		UserID:         m.UserID,
		IsShoppingCart: m.IsShoppingCart,
		Address:        m.Address,
		PaymentMethod:  entity.PaymentMethod(m.PaymentMethod),
		Status:         entity.Status(m.Status),
		Total:          m.Total,
		Date:           m.Date,
		Lines:          make([]entity.OrderLine, 0, len(m.Lines)),
	}
	for _, l := range m.Lines {
		line := entity.OrderLine{ProductID: l.ProductID, Quantity: l.Quantity}
		if l.Product != nil {
			line.Product = l.Product.toEntity()
		}
		o.Lines = append(o.Lines, line)
	}
	if m.User != nil {
		o.Owner = &entity.UserInfo{ID: m.User.ID, Username: m.User.Username, Email: m.User.Email}
	}
	return o
}

func orderFromEntity(o *entity.Order) *orderModel {
	m := &orderModel{
		ID:             o.ID,
		UserID:         o.UserID,
		IsShoppingCart: o.IsShoppingCart,
		Address:        o.Address,
		PaymentMethod:  string(o.PaymentMethod),
		Status:         string(o.Status),
		Total:          o.Total,
		Date:           o.Date,
	}
	if o.IsShoppingCart {
		owner := o.UserID
		m.CartOwner = &owner
	}
	return m
}

func (m *userModel) toEntity() *entity.User {
	u := &entity.User{
		ID:           m.ID,
		Username:     m.Username,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Roles:        make([]string, 0, len(m.Roles)),
	}
	for _, r := range m.Roles {
		u.Roles = append(u.Roles, r.Role)
	}
	return u
}
