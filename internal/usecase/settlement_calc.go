package usecase

import (
	"fmt"
	"math"
	"time"

	"github.com/tkachev-artem/cryptocraze-sub002/internal/domain"
)

const (
	// CommissionRate is charged once, at close, on the notional.
	CommissionRate = 0.0005

	// DefaultMaxDealAge is how long a deal may stay open before the sweep
	// closes it at the current market price.
	DefaultMaxDealAge = 48 * time.Hour
)

// roundMoney rounds to the instrument's money precision (2 decimal places).
func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// UnrealizedPnl returns the signed profit of a deal at the given price. The
// formula is ratio based: a price move of p% yields p% * multiplier of the
// staked amount. There is no liquidation floor, so a loss can exceed the
// staked amount when price gaps past the stop-loss.
func UnrealizedPnl(deal domain.Deal, price float64) float64 {
	var move float64
	if deal.Direction == domain.DirectionLong {
		move = (price - deal.OpenPrice) / deal.OpenPrice
	} else {
		move = (deal.OpenPrice - price) / deal.OpenPrice
	}
	return move * deal.Notional()
}

// Commission is a fixed fraction of the notional, rounded to money precision.
func Commission(deal domain.Deal) float64 {
	return roundMoney(deal.Notional() * CommissionRate)
}

// NetProfit is the value persisted on close and credited to the owner's
// balance. It may be negative.
func NetProfit(deal domain.Deal, price float64) float64 {
	return roundMoney(UnrealizedPnl(deal, price) - Commission(deal))
}

// CloseCheck is the outcome of evaluating a deal against a price tick.
type CloseCheck struct {
	Close  bool
	Reason domain.CloseReason
}

// ShouldAutoClose decides whether a tick at the given price must close the
// deal. Take-profit is evaluated before stop-loss, so with contradictory
// parameters take-profit wins.
func ShouldAutoClose(deal domain.Deal, price float64) CloseCheck {
	long := deal.Direction == domain.DirectionLong

	if tp := deal.TakeProfit; tp != nil {
		if (long && price >= *tp) || (!long && price <= *tp) {
			return CloseCheck{Close: true, Reason: domain.CloseReasonTakeProfit}
		}
	}
	if sl := deal.StopLoss; sl != nil {
		if (long && price <= *sl) || (!long && price >= *sl) {
			return CloseCheck{Close: true, Reason: domain.CloseReasonStopLoss}
		}
	}
	return CloseCheck{}
}

// IsExpired reports whether the deal has reached its maximum age.
func IsExpired(deal domain.Deal, now time.Time, maxAge time.Duration) bool {
	return now.Sub(deal.OpenedAt) >= maxAge
}

// ValidateRiskParams checks that new trigger prices sit on the side of the
// entry price consistent with the deal's direction: for a long, take-profit
// above and stop-loss below; mirrored for a short.
func ValidateRiskParams(direction domain.DealDirection, openPrice float64, takeProfit, stopLoss *float64) error {
	long := direction == domain.DirectionLong

	if tp := takeProfit; tp != nil {
		if *tp <= 0 {
			return fmt.Errorf("%w: take profit must be positive", domain.ErrInvalidRiskParams)
		}
		if (long && *tp <= openPrice) || (!long && *tp >= openPrice) {
			return fmt.Errorf("%w: take profit %.8f on wrong side of entry %.8f for %s", domain.ErrInvalidRiskParams, *tp, openPrice, direction)
		}
	}
	if sl := stopLoss; sl != nil {
		if *sl <= 0 {
			return fmt.Errorf("%w: stop loss must be positive", domain.ErrInvalidRiskParams)
		}
		if (long && *sl >= openPrice) || (!long && *sl <= openPrice) {
			return fmt.Errorf("%w: stop loss %.8f on wrong side of entry %.8f for %s", domain.ErrInvalidRiskParams, *sl, openPrice, direction)
		}
	}
	return nil
}
