package domain

import "time"

type DealStatus string

const (
	DealStatusOpen   DealStatus = "open"
	DealStatusClosed DealStatus = "closed"
)

type DealDirection string

const (
	DirectionLong  DealDirection = "long"
	DirectionShort DealDirection = "short"
)

// CloseReason records why a deal left the open state.
type CloseReason string

const (
	CloseReasonTakeProfit CloseReason = "take_profit"
	CloseReasonStopLoss   CloseReason = "stop_loss"
	CloseReasonExpired    CloseReason = "expired"
	CloseReasonManual     CloseReason = "manual"
)

// Deal is a single leveraged virtual trade on one symbol. Exit fields
// (ClosePrice, ClosedAt, Profit, Commission, CloseReason) are only
// meaningful once Status is closed; they are written together in a single
// update and never change afterwards.
type Deal struct {
	ID          int64
	UserID      int64
	Symbol      string
	Direction   DealDirection
	Amount      float64
	Multiplier  int
	OpenPrice   float64
	OpenedAt    time.Time
	TakeProfit  *float64
	StopLoss    *float64
	Status      DealStatus
	ClosePrice  float64
	ClosedAt    time.Time
	Profit      float64
	Commission  float64
	CloseReason CloseReason
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Notional is the effective size used for commission: amount * multiplier.
func (d Deal) Notional() float64 {
	return d.Amount * float64(d.Multiplier)
}

func (d Deal) IsOpen() bool {
	return d.Status == DealStatusOpen
}

// Settlement projects the exit fields of a closed deal into a result. Calling
// it on an open deal yields zero values.
func (d Deal) Settlement() SettlementResult {
	return SettlementResult{
		DealID:     d.ID,
		ClosePrice: d.ClosePrice,
		Profit:     d.Profit,
		Commission: d.Commission,
		Reason:     d.CloseReason,
		ClosedAt:   d.ClosedAt,
	}
}

// SettlementResult is what every close attempt, automatic or manual,
// eventually observes for a given deal.
type SettlementResult struct {
	DealID     int64       `json:"deal_id"`
	ClosePrice float64     `json:"close_price"`
	Profit     float64     `json:"profit"`
	Commission float64     `json:"commission"`
	Reason     CloseReason `json:"reason"`
	ClosedAt   time.Time   `json:"closed_at"`
}

// CloseRequest carries the values ApplyClose writes atomically together with
// the owner's balance credit and trade counter increment.
type CloseRequest struct {
	UserID     int64
	ClosePrice float64
	ClosedAt   time.Time
	Profit     float64
	Commission float64
	Reason     CloseReason
}

// PriceTick is ephemeral feed input; it is consumed, never stored.
type PriceTick struct {
	Symbol string
	Price  float64
	Time   time.Time
}
