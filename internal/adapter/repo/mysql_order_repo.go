package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aq2208/gstore-api/internal/entity"
	"github.com/aq2208/gstore-api/internal/usecase"
)

type MySQLOrderRepo struct{ db *gorm.DB }

func NewMySQLOrderRepo(db *gorm.DB) *MySQLOrderRepo { return &MySQLOrderRepo{db: db} }

func (r *MySQLOrderRepo) FindCart(ctx context.Context, userID int64) (*entity.Order, error) {
	var m orderModel
	err := conn(ctx, r.db).
		Preload("Lines.Product").
		Where("user_id = ? AND is_shopping_cart = ?", userID, true).
		First(&m).Error
	if err != nil {
		return nil, mapErr(err, entity.ErrNoActiveCart)
	}
	return m.toEntity(), nil
}

func (r *MySQLOrderRepo) GetPlaced(ctx context.Context, id int64) (*entity.Order, error) {
	var m orderModel
	err := conn(ctx, r.db).
		Preload("Lines.Product").
		Preload("User").
		Where("is_shopping_cart = ?", false).
		First(&m, id).Error
	if err != nil {
		return nil, mapErr(err, entity.ErrOrderNotFound)
	}
	return m.toEntity(), nil
}

func (r *MySQLOrderRepo) ListPlaced(ctx context.Context) ([]*entity.Order, error) {
	return r.listPlaced(conn(ctx, r.db))
}

func (r *MySQLOrderRepo) ListPlacedByUser(ctx context.Context, userID int64) ([]*entity.Order, error) {
	return r.listPlaced(conn(ctx, r.db).Where("user_id = ?", userID))
}

func (r *MySQLOrderRepo) listPlaced(q *gorm.DB) ([]*entity.Order, error) {
	var rows []orderModel
	err := q.Preload("Lines.Product").
		Preload("User").
		Where("is_shopping_cart = ?", false).
		Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]*entity.Order, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toEntity())
	}
	return out, nil
}

// Save upserts the order row and rewrites its lines.
func (r *MySQLOrderRepo) Save(ctx context.Context, o *entity.Order) error {
	m := orderFromEntity(o)
	err := conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(m).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", m.ID).Delete(&orderLineModel{}).Error; err != nil {
			return err
		}
		if len(o.Lines) == 0 {
			return nil
		}
		lines := make([]orderLineModel, 0, len(o.Lines))
		for _, l := range o.Lines {
			lines = append(lines, orderLineModel{OrderID: m.ID, ProductID: l.ProductID, Quantity: l.Quantity})
		}
		return tx.Omit(clause.Associations).Create(&lines).Error
	})
	if err != nil {
		return mapErr(err, entity.ErrOrderNotFound)
	}
	o.ID = m.ID
	return nil
}

func (r *MySQLOrderRepo) Delete(ctx context.Context, id int64) error {
	return conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&orderLineModel{}).Error; err != nil {
			return err
		}
		return tx.Delete(&orderModel{}, id).Error
	})
}

// UpdateStatusIf changes the status only if it still equals from.
func (r *MySQLOrderRepo) UpdateStatusIf(ctx context.Context, id int64, from, to entity.Status) (bool, error) {
	res := conn(ctx, r.db).Model(&orderModel{}).
		Where("id = ? AND is_shopping_cart = ? AND status = ?", id, false, string(from)).
		Update("status", string(to))
	if res.Error != nil {
		return false, res.Error
	}
	// 0 rows: not found, still a cart, or someone else moved it first
	return res.RowsAffected > 0, nil
}

var _ usecase.OrderRepo = (*MySQLOrderRepo)(nil)
