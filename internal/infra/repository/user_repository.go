package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tkachev-artem/cryptocraze-sub002/internal/domain"
)

type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) (*GormUserRepository, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	return &GormUserRepository{db: db}, nil
}

func (r *GormUserRepository) GetUser(ctx context.Context, id int64) (domain.User, error) {
	var model UserModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	return model.toDomain(), nil
}

// EnsureUser creates the row if missing; an existing user is left untouched
// so balance and counters are never reset by re-registration.
func (r *GormUserRepository) EnsureUser(ctx context.Context, user domain.User) error {
	model := toUserModel(user)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).
		Create(&model).Error
}

func (r *GormUserRepository) ListUserIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := r.db.WithContext(ctx).Model(&UserModel{}).
		Order("id ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
