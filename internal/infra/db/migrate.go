package db

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/tkachev-artem/cryptocraze-sub002/internal/infra/repository"
)

func ApplyMigrations(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(
		&repository.UserModel{},
		&repository.DealModel{},
		&repository.UserStatsModel{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
