package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tkachev-artem/cryptocraze-sub002/internal/domain"
)

type GormStatsRepository struct {
	db *gorm.DB
}

func NewGormStatsRepository(db *gorm.DB) (*GormStatsRepository, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	return &GormStatsRepository{db: db}, nil
}

func (r *GormStatsRepository) GetStats(ctx context.Context, userID int64) (domain.UserStats, error) {
	var model UserStatsModel
	err := r.db.WithContext(ctx).First(&model, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.UserStats{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.UserStats{}, err
	}
	return model.toDomain(), nil
}

func (r *GormStatsRepository) UpsertStats(ctx context.Context, stats domain.UserStats) error {
	model := toUserStatsModel(stats)

	assignments := clause.Assignments(map[string]interface{}{
		"total_trades":      gorm.Expr("EXCLUDED.total_trades"),
		"profitable_trades": gorm.Expr("EXCLUDED.profitable_trades"),
		"total_pnl":         gorm.Expr("EXCLUDED.total_pnl"),
		"total_volume":      gorm.Expr("EXCLUDED.total_volume"),
		"max_profit":        gorm.Expr("EXCLUDED.max_profit"),
		"max_loss":          gorm.Expr("EXCLUDED.max_loss"),
		"avg_amount":        gorm.Expr("EXCLUDED.avg_amount"),
		"win_rate":          gorm.Expr("EXCLUDED.win_rate"),
		"score":             gorm.Expr("EXCLUDED.score"),
		"rank":              gorm.Expr("EXCLUDED.rank"),
		"updated_at":        gorm.Expr("EXCLUDED.updated_at"),
	})

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: assignments,
		}).
		Create(&model).Error
}

func (r *GormStatsRepository) CountScoreGreaterThan(ctx context.Context, score int) (int, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&UserStatsModel{}).
		Where("score > ?", score).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *GormStatsRepository) ListTop(ctx context.Context, limit int) ([]domain.UserStats, error) {
	var models []UserStatsModel
	if err := r.db.WithContext(ctx).
		Order("score DESC, user_id ASC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}

	stats := make([]domain.UserStats, len(models))
	for i, model := range models {
		stats[i] = model.toDomain()
	}
	return stats, nil
}
