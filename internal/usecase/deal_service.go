package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tkachev-artem/cryptocraze-sub002/internal/domain"
)

// DealService is the caller-facing surface: opening deals, manual close, risk
// parameter edits and listings. Manual closes contend with the automatic
// paths for the same deal and resolve through the same idempotent Settler.
// Deals can only be opened on symbols the tick subscription watches;
// anything else would never have its take-profit or stop-loss evaluated.
type DealService struct {
	deals   domain.DealRepository
	users   domain.UserRepository
	feed    domain.PriceFeed
	settler Settler
	symbols map[string]struct{}
	logger  zerolog.Logger
}

type OpenDealRequest struct {
	UserID     int64
	Symbol     string
	Direction  domain.DealDirection
	Amount     float64
	Multiplier int
	TakeProfit *float64
	StopLoss   *float64
}

func NewDealService(deals domain.DealRepository, users domain.UserRepository, feed domain.PriceFeed, settler Settler, symbols []string, logger zerolog.Logger) (*DealService, error) {
	if deals == nil {
		return nil, errors.New("deal repository required")
	}
	if users == nil {
		return nil, errors.New("user repository required")
	}
	if feed == nil {
		return nil, errors.New("price feed required")
	}
	if settler == nil {
		return nil, errors.New("settler required")
	}
	if len(symbols) == 0 {
		return nil, errors.New("watched symbols required")
	}

	watched := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		watched[strings.ToUpper(s)] = struct{}{}
	}

	return &DealService{
		deals:   deals,
		users:   users,
		feed:    feed,
		settler: settler,
		symbols: watched,
		logger:  logger.With().Str("component", "deals").Logger(),
	}, nil
}

// OpenDeal creates a deal at the current market price. Amount, multiplier,
// open price and open time are fixed for the deal's lifetime.
func (s *DealService) OpenDeal(ctx context.Context, req OpenDealRequest) (domain.Deal, error) {
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		return domain.Deal{}, fmt.Errorf("%w: symbol required", domain.ErrInvalidDealParams)
	}
	if _, watched := s.symbols[symbol]; !watched {
		return domain.Deal{}, fmt.Errorf("%w: symbol %s is not watched by the price feed", domain.ErrInvalidDealParams, symbol)
	}
	if req.Direction != domain.DirectionLong && req.Direction != domain.DirectionShort {
		return domain.Deal{}, fmt.Errorf("%w: unknown direction %q", domain.ErrInvalidDealParams, req.Direction)
	}
	if req.Amount <= 0 {
		return domain.Deal{}, fmt.Errorf("%w: amount must be positive", domain.ErrInvalidDealParams)
	}
	if req.Multiplier < 1 {
		return domain.Deal{}, fmt.Errorf("%w: multiplier must be a positive integer", domain.ErrInvalidDealParams)
	}

	if _, err := s.users.GetUser(ctx, req.UserID); err != nil {
		return domain.Deal{}, err
	}

	tick, err := s.feed.CurrentPrice(ctx, symbol)
	if err != nil {
		return domain.Deal{}, fmt.Errorf("%w: %s", domain.ErrPriceUnavailable, symbol)
	}

	if err := ValidateRiskParams(req.Direction, tick.Price, req.TakeProfit, req.StopLoss); err != nil {
		return domain.Deal{}, err
	}

	deal := domain.Deal{
		UserID:     req.UserID,
		Symbol:     symbol,
		Direction:  req.Direction,
		Amount:     roundMoney(req.Amount),
		Multiplier: req.Multiplier,
		OpenPrice:  tick.Price,
		OpenedAt:   time.Now().UTC(),
		TakeProfit: req.TakeProfit,
		StopLoss:   req.StopLoss,
		Status:     domain.DealStatusOpen,
	}

	if err := s.deals.CreateDeal(ctx, &deal); err != nil {
		return domain.Deal{}, err
	}

	s.logger.Info().
		Int64("deal_id", deal.ID).
		Int64("user_id", deal.UserID).
		Str("symbol", deal.Symbol).
		Str("direction", string(deal.Direction)).
		Float64("open_price", deal.OpenPrice).
		Msg("deal opened")

	return deal, nil
}

// CloseDeal settles the deal at the current market price on the owner's
// request. Closing an already closed deal returns the persisted result.
func (s *DealService) CloseDeal(ctx context.Context, userID, dealID int64) (domain.SettlementResult, error) {
	deal, err := s.deals.GetDealForUser(ctx, dealID, userID)
	if err != nil {
		return domain.SettlementResult{}, err
	}
	if !deal.IsOpen() {
		return deal.Settlement(), nil
	}

	tick, err := s.feed.CurrentPrice(ctx, deal.Symbol)
	if err != nil {
		return domain.SettlementResult{}, fmt.Errorf("%w: %s", domain.ErrPriceUnavailable, deal.Symbol)
	}

	return s.settler.Settle(ctx, dealID, userID, tick.Price, domain.CloseReasonManual)
}

// UpdateRiskParams validates and replaces the trigger prices of an open deal.
func (s *DealService) UpdateRiskParams(ctx context.Context, userID, dealID int64, takeProfit, stopLoss *float64) (domain.Deal, error) {
	deal, err := s.deals.GetDealForUser(ctx, dealID, userID)
	if err != nil {
		return domain.Deal{}, err
	}
	if !deal.IsOpen() {
		return domain.Deal{}, domain.ErrDealAlreadyClosed
	}

	if err := ValidateRiskParams(deal.Direction, deal.OpenPrice, takeProfit, stopLoss); err != nil {
		return domain.Deal{}, err
	}

	return s.deals.UpdateRiskParams(ctx, dealID, userID, takeProfit, stopLoss)
}

func (s *DealService) ListDeals(ctx context.Context, userID int64, status domain.DealStatus, limit int) ([]domain.Deal, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.deals.ListByUser(ctx, userID, status, limit)
}
