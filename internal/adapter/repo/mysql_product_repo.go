package repo

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aq2208/gstore-api/internal/entity"
	"github.com/aq2208/gstore-api/internal/usecase"
)

type MySQLProductRepo struct{ db *gorm.DB }

func NewMySQLProductRepo(db *gorm.DB) *MySQLProductRepo { return &MySQLProductRepo{db: db} }

func (r *MySQLProductRepo) GetByID(ctx context.Context, id int64) (*entity.Product, error) {
	var m productModel
	if err := conn(ctx, r.db).First(&m, id).Error; err != nil {
		return nil, mapErr(err, entity.ErrProductNotFound)
	}
	return m.toEntity(), nil
}

// GetByIDForUpdate must run inside WithinTx; the row stays locked until commit.
func (r *MySQLProductRepo) GetByIDForUpdate(ctx context.Context, id int64) (*entity.Product, error) {
	var m productModel
	if err := conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).First(&m, id).Error; err != nil {
		return nil, mapErr(err, entity.ErrProductNotFound)
	}
	return m.toEntity(), nil
}

func (r *MySQLProductRepo) List(ctx context.Context, f usecase.ProductFilter) ([]*entity.Product, error) {
	q := conn(ctx, r.db)
	if f.Name != "" {
		q = q.Where("name LIKE ?", "%"+f.Name+"%")
	}
	if f.Category != "" {
		q = q.Where("category = ?", string(f.Category))
	}
	var rows []productModel
	if err := q.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*entity.Product, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toEntity())
	}
	return out, nil
}

func (r *MySQLProductRepo) Create(ctx context.Context, p *entity.Product) error {
	m := productFromEntity(p)
	if err := conn(ctx, r.db).Create(m).Error; err != nil {
		return mapErr(err, entity.ErrProductNotFound)
	}
	p.ID = m.ID
	return nil
}

// Update writes the descriptive columns and stock.
func (r *MySQLProductRepo) Update(ctx context.Context, p *entity.Product) error {
	res := conn(ctx, r.db).Model(&productModel{ID: p.ID}).
		Select("name", "description", "category", "price", "image", "stock").
		Updates(productFromEntity(p))
	if res.Error != nil {
		return mapErr(res.Error, entity.ErrProductNotFound)
	}
	if res.RowsAffected == 0 {
		return r.exists(ctx, p.ID)
	}
	return nil
}

// AdjustStock applies delta in a single statement guarded against going negative.
func (r *MySQLProductRepo) AdjustStock(ctx context.Context, id int64, delta int) error {
	res := conn(ctx, r.db).Model(&productModel{}).
		Where("id = ? AND stock + ? >= 0", id, delta).
		Update("stock", gorm.Expr("stock + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}
	if err := r.exists(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("%w: product %d cannot take a change of %d", entity.ErrInsufficientStock, id, delta)
}

func (r *MySQLProductRepo) Delete(ctx context.Context, id int64) error {
	res := conn(ctx, r.db).Delete(&productModel{}, id)
	if res.Error != nil {
		return mapErr(res.Error, entity.ErrProductNotFound)
	}
	if res.RowsAffected == 0 {
		return entity.ErrProductNotFound
	}
	return nil
}

// TopCategoryForUser finds the category with the most units across the user's orders.
func (r *MySQLProductRepo) TopCategoryForUser(ctx context.Context, userID int64) (entity.Category, bool, error) {
	var row struct {
		Category string
		Units    int
	}
	err := conn(ctx, r.db).Table("order_lines AS l").
		Select("p.category AS category, SUM(l.quantity) AS units").
		Joins("JOIN orders o ON o.id = l.order_id").
		Joins("JOIN products p ON p.id = l.product_id").
		Where("o.user_id = ?", userID).
		Group("p.category").
		Order("units DESC").
		Limit(1).
		Scan(&row).Error
	if err != nil {
		return "", false, err
	}
	if row.Category == "" {
		return "", false, nil
	}
	return entity.Category(row.Category), true, nil
}

// exists tells a missing row apart from an UPDATE that matched but changed nothing.
func (r *MySQLProductRepo) exists(ctx context.Context, id int64) error {
	var n int64
	if err := conn(ctx, r.db).Model(&productModel{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return entity.ErrProductNotFound
	}
	return nil
}

var _ usecase.ProductRepo = (*MySQLProductRepo)(nil)
