package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tkachev-artem/cryptocraze-sub002/internal/domain"
)

// Settler performs the open -> closed transition exactly once per deal. The
// automatic evaluator, the sweep and manual close requests all funnel into it.
type Settler interface {
	Settle(ctx context.Context, dealID, userID int64, closePrice float64, reason domain.CloseReason) (domain.SettlementResult, error)
}

type SettlementService struct {
	deals    domain.DealRepository
	rating   *RatingService
	notifier domain.Notifier
	logger   zerolog.Logger
}

func NewSettlementService(deals domain.DealRepository, rating *RatingService, notifier domain.Notifier, logger zerolog.Logger) (*SettlementService, error) {
	if deals == nil {
		return nil, errors.New("deal repository required")
	}
	if rating == nil {
		return nil, errors.New("rating service required")
	}
	return &SettlementService{
		deals:    deals,
		rating:   rating,
		notifier: notifier,
		logger:   logger.With().Str("component", "settlement").Logger(),
	}, nil
}

// Settle closes the deal at closePrice. A userID of zero means the call is
// not owner-scoped (automatic paths); a non-zero userID must match the deal's
// owner or the call fails with ErrDealNotFound. Settling an already closed
// deal is not an error: the previously persisted result is returned, which is
// how racing automatic and manual closes converge without a double credit.
func (s *SettlementService) Settle(ctx context.Context, dealID, userID int64, closePrice float64, reason domain.CloseReason) (domain.SettlementResult, error) {
	if closePrice <= 0 {
		return domain.SettlementResult{}, fmt.Errorf("close price must be positive, got %f", closePrice)
	}

	deal, err := s.deals.GetDeal(ctx, dealID)
	if err != nil {
		return domain.SettlementResult{}, err
	}
	if userID != 0 && deal.UserID != userID {
		return domain.SettlementResult{}, domain.ErrDealNotFound
	}
	if !deal.IsOpen() {
		return deal.Settlement(), nil
	}

	req := domain.CloseRequest{
		UserID:     deal.UserID,
		ClosePrice: closePrice,
		ClosedAt:   time.Now().UTC(),
		Profit:     NetProfit(deal, closePrice),
		Commission: Commission(deal),
		Reason:     reason,
	}

	closed, applied, err := s.deals.ApplyClose(ctx, deal.ID, req)
	if err != nil {
		return domain.SettlementResult{}, err
	}

	result := closed.Settlement()
	if !applied {
		// Lost the race to another close attempt; its result stands.
		s.logger.Debug().Int64("deal_id", dealID).Msg("deal already closed, returning winning result")
		return result, nil
	}

	s.logger.Info().
		Int64("deal_id", closed.ID).
		Int64("user_id", closed.UserID).
		Str("symbol", closed.Symbol).
		Str("reason", string(reason)).
		Float64("close_price", result.ClosePrice).
		Float64("profit", result.Profit).
		Float64("commission", result.Commission).
		Msg("deal settled")

	if _, err := s.rating.RecomputeStats(ctx, closed.UserID); err != nil {
		// The periodic reconciliation job repairs stale stats.
		s.logger.Error().Err(err).Int64("user_id", closed.UserID).Msg("recompute stats after settlement")
	}

	s.notifyClosed(closed, result)

	return result, nil
}

func (s *SettlementService) notifyClosed(deal domain.Deal, result domain.SettlementResult) {
	if s.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.notifier.DealClosed(ctx, deal, result); err != nil {
			s.logger.Warn().Err(err).Int64("deal_id", deal.ID).Msg("close notification failed")
		}
	}()
}
