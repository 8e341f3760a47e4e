package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aq2208/gstore-api/internal/entity"
	"github.com/aq2208/gstore-api/internal/usecase"
)

type MySQLUserRepo struct{ db *gorm.DB }

func NewMySQLUserRepo(db *gorm.DB) *MySQLUserRepo { return &MySQLUserRepo{db: db} }

func (r *MySQLUserRepo) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	var m userModel
	if err := conn(ctx, r.db).Preload("Roles").First(&m, id).Error; err != nil {
		return nil, mapErr(err, entity.ErrUserNotFound)
	}
	return m.toEntity(), nil
}

func (r *MySQLUserRepo) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	var m userModel
	if err := conn(ctx, r.db).Preload("Roles").Where("username = ?", username).First(&m).Error; err != nil {
		return nil, mapErr(err, entity.ErrUserNotFound)
	}
	return m.toEntity(), nil
}

func (r *MySQLUserRepo) Create(ctx context.Context, u *entity.User) error {
	m := &userModel{Username: u.Username, Email: u.Email, PasswordHash: u.PasswordHash}
	for _, role := range u.Roles {
		m.Roles = append(m.Roles, userRoleModel{Role: role})
	}
	if err := conn(ctx, r.db).Create(m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return entity.ErrDuplicateUsername
		}
		return err
	}
	u.ID = m.ID
	return nil
}

// AddRole is a no-op when the user already holds the role.
func (r *MySQLUserRepo) AddRole(ctx context.Context, userID int64, role string) error {
	return conn(ctx, r.db).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&userRoleModel{UserID: userID, Role: role}).Error
}

func (r *MySQLUserRepo) RemoveRole(ctx context.Context, userID int64, role string) error {
	return conn(ctx, r.db).Where("user_id = ? AND role = ?", userID, role).Delete(&userRoleModel{}).Error
}

var _ usecase.UserRepo = (*MySQLUserRepo)(nil)
