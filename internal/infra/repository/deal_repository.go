package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tkachev-artem/cryptocraze-sub002/internal/domain"
)

type GormDealRepository struct {
	db *gorm.DB
}

func NewGormDealRepository(db *gorm.DB) (*GormDealRepository, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	return &GormDealRepository{db: db}, nil
}

func (r *GormDealRepository) CreateDeal(ctx context.Context, deal *domain.Deal) error {
	model := toDealModel(*deal)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return err
	}
	*deal = model.toDomain()
	return nil
}

func (r *GormDealRepository) GetDeal(ctx context.Context, id int64) (domain.Deal, error) {
	var model DealModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Deal{}, domain.ErrDealNotFound
	}
	if err != nil {
		return domain.Deal{}, err
	}
	return model.toDomain(), nil
}

func (r *GormDealRepository) GetDealForUser(ctx context.Context, id, userID int64) (domain.Deal, error) {
	var model DealModel
	err := r.db.WithContext(ctx).First(&model, "id = ? AND user_id = ?", id, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Deal{}, domain.ErrDealNotFound
	}
	if err != nil {
		return domain.Deal{}, err
	}
	return model.toDomain(), nil
}

func (r *GormDealRepository) ListOpenBySymbol(ctx context.Context, symbol string) ([]domain.Deal, error) {
	var models []DealModel
	if err := r.db.WithContext(ctx).
		Where("symbol = ? AND status = ?", symbol, domain.DealStatusOpen).
		Order("opened_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	return toDeals(models), nil
}

func (r *GormDealRepository) ListOpenOpenedBefore(ctx context.Context, cutoff time.Time) ([]domain.Deal, error) {
	var models []DealModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND opened_at <= ?", domain.DealStatusOpen, cutoff).
		Order("opened_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	return toDeals(models), nil
}

func (r *GormDealRepository) ListByUser(ctx context.Context, userID int64, status domain.DealStatus, limit int) ([]domain.Deal, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var models []DealModel
	if err := query.Order("opened_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	return toDeals(models), nil
}

func (r *GormDealRepository) OpenSymbols(ctx context.Context) ([]string, error) {
	var symbols []string
	if err := r.db.WithContext(ctx).Model(&DealModel{}).
		Where("status = ?", domain.DealStatusOpen).
		Distinct().
		Pluck("symbol", &symbols).Error; err != nil {
		return nil, err
	}
	return symbols, nil
}

// ApplyClose performs the open -> closed transition as a conditional update
// ("close WHERE status = open"): of any number of concurrent close attempts
// only the first mutates the row, and the balance credit plus trade counter
// increment commit in the same transaction. Losing attempts observe the
// winner's persisted record.
func (r *GormDealRepository) ApplyClose(ctx context.Context, id int64, req domain.CloseRequest) (domain.Deal, bool, error) {
	applied := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&DealModel{}).
			Where("id = ? AND status = ?", id, domain.DealStatusOpen).
			Updates(map[string]interface{}{
				"status":       domain.DealStatusClosed,
				"close_price":  req.ClosePrice,
				"closed_at":    req.ClosedAt,
				"profit":       req.Profit,
				"commission":   req.Commission,
				"close_reason": string(req.Reason),
				"updated_at":   gorm.Expr("CURRENT_TIMESTAMP"),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Already closed or missing; resolved after the transaction.
			return nil
		}
		applied = true

		ures := tx.Model(&UserModel{}).
			Where("id = ?", req.UserID).
			Updates(map[string]interface{}{
				"balance":     gorm.Expr("balance + ?", req.Profit),
				"trade_count": gorm.Expr("trade_count + 1"),
				"updated_at":  gorm.Expr("CURRENT_TIMESTAMP"),
			})
		if ures.Error != nil {
			return ures.Error
		}
		if ures.RowsAffected == 0 {
			return fmt.Errorf("settle deal %d: %w", id, domain.ErrUserNotFound)
		}
		return nil
	})
	if err != nil {
		return domain.Deal{}, false, err
	}

	var model DealModel
	err = r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Deal{}, false, domain.ErrDealNotFound
	}
	if err != nil {
		return domain.Deal{}, false, err
	}
	return model.toDomain(), applied, nil
}

func (r *GormDealRepository) UpdateRiskParams(ctx context.Context, id, userID int64, takeProfit, stopLoss *float64) (domain.Deal, error) {
	res := r.db.WithContext(ctx).Model(&DealModel{}).
		Where("id = ? AND user_id = ? AND status = ?", id, userID, domain.DealStatusOpen).
		Updates(map[string]interface{}{
			"take_profit": takeProfit,
			"stop_loss":   stopLoss,
			"updated_at":  gorm.Expr("CURRENT_TIMESTAMP"),
		})
	if res.Error != nil {
		return domain.Deal{}, res.Error
	}
	if res.RowsAffected == 0 {
		deal, err := r.GetDealForUser(ctx, id, userID)
		if err != nil {
			return domain.Deal{}, err
		}
		if !deal.IsOpen() {
			return domain.Deal{}, domain.ErrDealAlreadyClosed
		}
		// Open and owned but not updated: retryable.
		return domain.Deal{}, fmt.Errorf("update risk params for deal %d: no rows affected", id)
	}

	return r.GetDealForUser(ctx, id, userID)
}

func toDeals(models []DealModel) []domain.Deal {
	deals := make([]domain.Deal, len(models))
	for i, model := range models {
		deals[i] = model.toDomain()
	}
	return deals
}
