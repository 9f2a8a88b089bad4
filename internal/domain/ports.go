package domain

import (
	"context"
	"time"
)

// DealRepository is the single source of truth for deal state. ApplyClose and
// UpdateRiskParams are the only writers to an existing row, both scoped to a
// single deal id.
type DealRepository interface {
	CreateDeal(ctx context.Context, deal *Deal) error
	GetDeal(ctx context.Context, id int64) (Deal, error)
	GetDealForUser(ctx context.Context, id, userID int64) (Deal, error)
	ListOpenBySymbol(ctx context.Context, symbol string) ([]Deal, error)
	ListOpenOpenedBefore(ctx context.Context, cutoff time.Time) ([]Deal, error)
	ListByUser(ctx context.Context, userID int64, status DealStatus, limit int) ([]Deal, error)
	OpenSymbols(ctx context.Context) ([]string, error)

	// ApplyClose transitions the deal to closed with a conditional update
	// guarded on the open status, crediting the owner's balance and trade
	// counter in the same transaction. The returned flag reports whether
	// this call performed the transition; when false the returned deal
	// carries the result persisted by the winning close.
	ApplyClose(ctx context.Context, id int64, req CloseRequest) (Deal, bool, error)

	// UpdateRiskParams replaces both trigger prices while the deal is
	// still open. A nil value clears the trigger.
	UpdateRiskParams(ctx context.Context, id, userID int64, takeProfit, stopLoss *float64) (Deal, error)
}

type UserRepository interface {
	GetUser(ctx context.Context, id int64) (User, error)
	EnsureUser(ctx context.Context, user User) error
	ListUserIDs(ctx context.Context) ([]int64, error)
}

type StatsRepository interface {
	GetStats(ctx context.Context, userID int64) (UserStats, error)
	UpsertStats(ctx context.Context, stats UserStats) error
	CountScoreGreaterThan(ctx context.Context, score int) (int, error)
	ListTop(ctx context.Context, limit int) ([]UserStats, error)
}

// PriceFeed supplies current prices, by push and by pull. Subscribe blocks
// until ctx is cancelled, invoking handler for every tick it receives.
type PriceFeed interface {
	Subscribe(ctx context.Context, symbols []string, handler func(PriceTick)) error
	CurrentPrice(ctx context.Context, symbol string) (PriceTick, error)
}

// PriceCache keeps the latest observed tick per symbol so pull paths can fall
// back to it when the feed is transiently unavailable.
type PriceCache interface {
	SetPrice(ctx context.Context, tick PriceTick) error
	GetPrice(ctx context.Context, symbol string) (PriceTick, error)
}

// LeaderboardIndex is an ordered structure keyed by score, maintained
// incrementally so rank lookups avoid a full table scan.
type LeaderboardIndex interface {
	SetScore(ctx context.Context, userID int64, score int) error
	RankOf(ctx context.Context, score int) (int, error)
}

// Notifier informs the user-facing layer about settlements. Delivery is best
// effort; failures must never affect settlement correctness.
type Notifier interface {
	DealClosed(ctx context.Context, deal Deal, result SettlementResult) error
}
