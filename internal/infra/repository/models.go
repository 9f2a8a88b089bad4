package repository

import (
	"time"

	"gorm.io/datatypes"

	"github.com/tkachev-artem/cryptocraze-sub002/internal/domain"
)

type DealModel struct {
	ID          int64      `gorm:"column:id;primaryKey;autoIncrement"`
	UserID      int64      `gorm:"column:user_id;not null;index"`
	Symbol      string     `gorm:"column:symbol;not null;index:idx_deals_symbol_status"`
	Direction   string     `gorm:"column:direction;not null"`
	Amount      float64    `gorm:"column:amount;not null"`
	Multiplier  int        `gorm:"column:multiplier;not null"`
	OpenPrice   float64    `gorm:"column:open_price;not null"`
	OpenedAt    time.Time  `gorm:"column:opened_at;not null;index:idx_deals_status_opened,priority:2"`
	TakeProfit  *float64   `gorm:"column:take_profit"`
	StopLoss    *float64   `gorm:"column:stop_loss"`
	Status      string     `gorm:"column:status;not null;index:idx_deals_symbol_status;index:idx_deals_status_opened,priority:1"`
	ClosePrice  *float64   `gorm:"column:close_price"`
	ClosedAt    *time.Time `gorm:"column:closed_at"`
	Profit      *float64   `gorm:"column:profit"`
	Commission  *float64   `gorm:"column:commission"`
	CloseReason *string    `gorm:"column:close_reason"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at"`
}

func (DealModel) TableName() string {
	return "deals"
}

func toDealModel(deal domain.Deal) DealModel {
	return DealModel{
		ID:          deal.ID,
		UserID:      deal.UserID,
		Symbol:      deal.Symbol,
		Direction:   string(deal.Direction),
		Amount:      deal.Amount,
		Multiplier:  deal.Multiplier,
		OpenPrice:   deal.OpenPrice,
		OpenedAt:    deal.OpenedAt,
		TakeProfit:  copyFloatPointer(deal.TakeProfit),
		StopLoss:    copyFloatPointer(deal.StopLoss),
		Status:      string(deal.Status),
		ClosePrice:  floatPointerOrNil(deal.ClosePrice, deal.Status),
		ClosedAt:    timePointerOrNil(deal.ClosedAt, deal.Status),
		Profit:      floatPointerOrNil(deal.Profit, deal.Status),
		Commission:  floatPointerOrNil(deal.Commission, deal.Status),
		CloseReason: stringPointerOrNil(string(deal.CloseReason)),
	}
}

func (m DealModel) toDomain() domain.Deal {
	return domain.Deal{
		ID:          m.ID,
		UserID:      m.UserID,
		Symbol:      m.Symbol,
		Direction:   domain.DealDirection(m.Direction),
		Amount:      m.Amount,
		Multiplier:  m.Multiplier,
		OpenPrice:   m.OpenPrice,
		OpenedAt:    m.OpenedAt,
		TakeProfit:  copyFloatPointer(m.TakeProfit),
		StopLoss:    copyFloatPointer(m.StopLoss),
		Status:      domain.DealStatus(m.Status),
		ClosePrice:  floatValueOrZero(m.ClosePrice),
		ClosedAt:    timeValueOrZero(m.ClosedAt),
		Profit:      floatValueOrZero(m.Profit),
		Commission:  floatValueOrZero(m.Commission),
		CloseReason: domain.CloseReason(stringValueOrEmpty(m.CloseReason)),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

type UserModel struct {
	ID         int64          `gorm:"column:id;primaryKey"`
	Name       *string        `gorm:"column:name"`
	Balance    float64        `gorm:"column:balance;not null;default:0"`
	TradeCount int            `gorm:"column:trade_count;not null;default:0"`
	Metadata   datatypes.JSON `gorm:"column:metadata"`
	CreatedAt  time.Time      `gorm:"column:created_at"`
	UpdatedAt  time.Time      `gorm:"column:updated_at"`
}

func (UserModel) TableName() string {
	return "users"
}

func toUserModel(user domain.User) UserModel {
	return UserModel{
		ID:         user.ID,
		Name:       stringPointerOrNil(user.Name),
		Balance:    user.Balance,
		TradeCount: user.TradeCount,
		Metadata:   jsonOrEmpty(user.Metadata),
	}
}

func (m UserModel) toDomain() domain.User {
	return domain.User{
		ID:         m.ID,
		Name:       stringValueOrEmpty(m.Name),
		Balance:    m.Balance,
		TradeCount: m.TradeCount,
		Metadata:   copyJSON(m.Metadata),
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

type UserStatsModel struct {
	UserID           int64     `gorm:"column:user_id;primaryKey"`
	TotalTrades      int       `gorm:"column:total_trades;not null;default:0"`
	ProfitableTrades int       `gorm:"column:profitable_trades;not null;default:0"`
	TotalPnl         float64   `gorm:"column:total_pnl;not null;default:0"`
	TotalVolume      float64   `gorm:"column:total_volume;not null;default:0"`
	MaxProfit        float64   `gorm:"column:max_profit;not null;default:0"`
	MaxLoss          float64   `gorm:"column:max_loss;not null;default:0"`
	AvgAmount        float64   `gorm:"column:avg_amount;not null;default:0"`
	WinRate          float64   `gorm:"column:win_rate;not null;default:0"`
	Score            int       `gorm:"column:score;not null;default:0;index"`
	Rank             int       `gorm:"column:rank;not null;default:0"`
	UpdatedAt        time.Time `gorm:"column:updated_at"`
}

func (UserStatsModel) TableName() string {
	return "user_stats"
}

func toUserStatsModel(stats domain.UserStats) UserStatsModel {
	return UserStatsModel{
		UserID:           stats.UserID,
		TotalTrades:      stats.TotalTrades,
		ProfitableTrades: stats.ProfitableTrades,
		TotalPnl:         stats.TotalPnl,
		TotalVolume:      stats.TotalVolume,
		MaxProfit:        stats.MaxProfit,
		MaxLoss:          stats.MaxLoss,
		AvgAmount:        stats.AvgAmount,
		WinRate:          stats.WinRate,
		Score:            stats.Score,
		Rank:             stats.Rank,
		UpdatedAt:        stats.UpdatedAt,
	}
}

func (m UserStatsModel) toDomain() domain.UserStats {
	return domain.UserStats{
		UserID:           m.UserID,
		TotalTrades:      m.TotalTrades,
		ProfitableTrades: m.ProfitableTrades,
		TotalPnl:         m.TotalPnl,
		TotalVolume:      m.TotalVolume,
		MaxProfit:        m.MaxProfit,
		MaxLoss:          m.MaxLoss,
		AvgAmount:        m.AvgAmount,
		WinRate:          m.WinRate,
		Score:            m.Score,
		Rank:             m.Rank,
		UpdatedAt:        m.UpdatedAt,
	}
}

func stringPointerOrNil(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func stringValueOrEmpty(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func copyFloatPointer(value *float64) *float64 {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}

// Exit fields are persisted only once the deal is closed.
func floatPointerOrNil(value float64, status domain.DealStatus) *float64 {
	if status != domain.DealStatusClosed {
		return nil
	}
	return &value
}

func timePointerOrNil(value time.Time, status domain.DealStatus) *time.Time {
	if status != domain.DealStatusClosed || value.IsZero() {
		return nil
	}
	return &value
}

func floatValueOrZero(value *float64) float64 {
	if value == nil {
		return 0
	}
	return *value
}

func timeValueOrZero(value *time.Time) time.Time {
	if value == nil {
		return time.Time{}
	}
	return *value
}

func jsonOrEmpty(data []byte) datatypes.JSON {
	if len(data) == 0 {
		return datatypes.JSON([]byte("{}"))
	}
	return datatypes.JSON(append([]byte(nil), data...))
}

func copyJSON(data datatypes.JSON) []byte {
	if len(data) == 0 {
		return nil
	}
	cpy := make([]byte, len(data))
	copy(cpy, data)
	return cpy
}
