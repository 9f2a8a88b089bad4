package domain

import "time"

type User struct {
	ID         int64
	Name       string
	Balance    float64
	TradeCount int
	Metadata   []byte
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// UserStats is the derived trading aggregate behind the leaderboard. Every
// field is recomputable from the user's closed deals; the stored row is a
// cache that RecomputeStats keeps in sync after each settlement.
type UserStats struct {
	UserID           int64     `json:"user_id"`
	TotalTrades      int       `json:"total_trades"`
	ProfitableTrades int       `json:"profitable_trades"`
	TotalPnl         float64   `json:"total_pnl"`
	TotalVolume      float64   `json:"total_volume"`
	MaxProfit        float64   `json:"max_profit"`
	MaxLoss          float64   `json:"max_loss"`
	AvgAmount        float64   `json:"avg_amount"`
	WinRate          float64   `json:"win_rate"`
	Score            int       `json:"score"`
	Rank             int       `json:"rank"`
	UpdatedAt        time.Time `json:"updated_at"`
}
