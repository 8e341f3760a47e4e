package usecase

import (
	"context"
	"time"

	"github.com/aq2208/gstore-api/internal/entity"
)

type ProductFilter struct {
	Name     string
	Category entity.Category
}

type ProductRepo interface {
	GetByID(ctx context.Context, id int64) (*entity.Product, error)
	// GetByIDForUpdate locks the row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id int64) (*entity.Product, error)
	List(ctx context.Context, f ProductFilter) ([]*entity.Product, error)
	Create(ctx context.Context, p *entity.Product) error
	Update(ctx context.Context, p *entity.Product) error
	// AdjustStock adds delta to the stock, refusing to go below zero.
	AdjustStock(ctx context.Context, id int64, delta int) error
	Delete(ctx context.Context, id int64) error
	TopCategoryForUser(ctx context.Context, userID int64) (entity.Category, bool, error)
}

type OrderRepo interface {
	// FindCart returns the open cart with lines and product snapshots, or entity.ErrNoActiveCart.
	FindCart(ctx context.Context, userID int64) (*entity.Order, error)
	// GetPlaced returns a confirmed order, or entity.ErrOrderNotFound.
	GetPlaced(ctx context.Context, id int64) (*entity.Order, error)
	ListPlaced(ctx context.Context) ([]*entity.Order, error)
	ListPlacedByUser(ctx context.Context, userID int64) ([]*entity.Order, error)
	// Save inserts or updates the order and replaces its lines. A second open cart
	// for the same user yields entity.ErrConflict.
	Save(ctx context.Context, o *entity.Order) error
	Delete(ctx context.Context, id int64) error
	UpdateStatusIf(ctx context.Context, id int64, from, to entity.Status) (bool, error)
}

type UserRepo interface {
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	GetByUsername(ctx context.Context, username string) (*entity.User, error)
	Create(ctx context.Context, u *entity.User) error
	AddRole(ctx context.Context, userID int64, role string) error
	RemoveRole(ctx context.Context, userID int64, role string) error
}

// TxManager runs fn in one transaction. Repositories called with the ctx handed
// to fn join that transaction.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Locker serializes work on a key across requests and instances.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

type OrderCache interface {
	SetStatus(ctx context.Context, orderID string, status string) error
	GetStatus(ctx context.Context, orderID string) (string, bool, error)
}

type IdempotencyStore interface {
	TryLock(ctx context.Context, scope, key string) (bool, error)
	Remember(ctx context.Context, scope, key, value string) error
	Recall(ctx context.Context, scope, key string) (string, bool, error)
	Release(ctx context.Context, scope, key string) error
}

type FileStorage interface {
	Save(ctx context.Context, data []byte, contentType, ext, container, name string) (string, error)
	Delete(ctx context.Context, ref, container string) error
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Compare(hash, plain string) error
}

type Token struct {
	Value     string    `json:"token"`
	ExpiresAt time.Time `json:"expiration"`
}

type TokenIssuer interface {
	Issue(username string, roles []string) (Token, error)
}
