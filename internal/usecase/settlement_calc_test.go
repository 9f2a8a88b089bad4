package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkachev-artem/cryptocraze-sub002/internal/domain"
)

func floatPtr(v float64) *float64 { return &v }

func TestUnrealizedPnl(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		deal  domain.Deal
		price float64
		want  float64
	}{
		{
			name:  "long gains on rising price",
			deal:  domain.Deal{Direction: domain.DirectionLong, Amount: 1000, Multiplier: 5, OpenPrice: 100},
			price: 110,
			want:  500,
		},
		{
			name:  "long loses on falling price",
			deal:  domain.Deal{Direction: domain.DirectionLong, Amount: 1000, Multiplier: 5, OpenPrice: 100},
			price: 90,
			want:  -500,
		},
		{
			name:  "short gains on falling price",
			deal:  domain.Deal{Direction: domain.DirectionShort, Amount: 1000, Multiplier: 5, OpenPrice: 100},
			price: 90,
			want:  500,
		},
		{
			name:  "short loses on rising price",
			deal:  domain.Deal{Direction: domain.DirectionShort, Amount: 1000, Multiplier: 5, OpenPrice: 100},
			price: 110,
			want:  -500,
		},
		{
			name:  "flat price yields zero",
			deal:  domain.Deal{Direction: domain.DirectionLong, Amount: 250, Multiplier: 10, OpenPrice: 42},
			price: 42,
			want:  0,
		},
		{
			name:  "loss can exceed the staked amount",
			deal:  domain.Deal{Direction: domain.DirectionLong, Amount: 100, Multiplier: 10, OpenPrice: 100},
			price: 80,
			want:  -200,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, UnrealizedPnl(tt.deal, tt.price), 1e-9)
		})
	}
}

func TestCommission(t *testing.T) {
	t.Parallel()

	// 0.05% of notional, rounded to cents.
	deal := domain.Deal{Amount: 1000, Multiplier: 5}
	assert.Equal(t, 2.5, Commission(deal))

	small := domain.Deal{Amount: 1, Multiplier: 1}
	assert.Equal(t, 0.0, Commission(small))
}

func TestNetProfit(t *testing.T) {
	t.Parallel()

	deal := domain.Deal{Direction: domain.DirectionLong, Amount: 1000, Multiplier: 5, OpenPrice: 100}
	assert.Equal(t, 497.5, NetProfit(deal, 110))
	assert.Equal(t, -502.5, NetProfit(deal, 90))
}

func TestShouldAutoClose(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		deal       domain.Deal
		price      float64
		wantClose  bool
		wantReason domain.CloseReason
	}{
		{
			name:       "long take profit reached exactly",
			deal:       domain.Deal{Direction: domain.DirectionLong, OpenPrice: 100, TakeProfit: floatPtr(110)},
			price:      110,
			wantClose:  true,
			wantReason: domain.CloseReasonTakeProfit,
		},
		{
			name:      "long take profit not reached",
			deal:      domain.Deal{Direction: domain.DirectionLong, OpenPrice: 100, TakeProfit: floatPtr(110)},
			price:     109.99,
			wantClose: false,
		},
		{
			name:       "long stop loss crossed on gap",
			deal:       domain.Deal{Direction: domain.DirectionLong, OpenPrice: 100, StopLoss: floatPtr(95)},
			price:      80,
			wantClose:  true,
			wantReason: domain.CloseReasonStopLoss,
		},
		{
			name:       "short take profit below entry",
			deal:       domain.Deal{Direction: domain.DirectionShort, OpenPrice: 100, TakeProfit: floatPtr(90)},
			price:      89,
			wantClose:  true,
			wantReason: domain.CloseReasonTakeProfit,
		},
		{
			name:       "short stop loss above entry",
			deal:       domain.Deal{Direction: domain.DirectionShort, OpenPrice: 100, StopLoss: floatPtr(105)},
			price:      105,
			wantClose:  true,
			wantReason: domain.CloseReasonStopLoss,
		},
		{
			name: "take profit wins when both triggers match",
			deal: domain.Deal{
				Direction:  domain.DirectionLong,
				OpenPrice:  100,
				TakeProfit: floatPtr(90),
				StopLoss:   floatPtr(95),
			},
			price:      90,
			wantClose:  true,
			wantReason: domain.CloseReasonTakeProfit,
		},
		{
			name:      "no triggers set never closes",
			deal:      domain.Deal{Direction: domain.DirectionLong, OpenPrice: 100},
			price:     1,
			wantClose: false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			check := ShouldAutoClose(tt.deal, tt.price)
			require.Equal(t, tt.wantClose, check.Close)
			assert.Equal(t, tt.wantReason, check.Reason)
		})
	}
}

func TestIsExpired(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	maxAge := 48 * time.Hour

	assert.False(t, IsExpired(domain.Deal{OpenedAt: now.Add(-47 * time.Hour)}, now, maxAge))
	assert.True(t, IsExpired(domain.Deal{OpenedAt: now.Add(-48 * time.Hour)}, now, maxAge), "boundary counts as expired")
	assert.True(t, IsExpired(domain.Deal{OpenedAt: now.Add(-49 * time.Hour)}, now, maxAge))
}

func TestValidateRiskParams(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		direction  domain.DealDirection
		openPrice  float64
		takeProfit *float64
		stopLoss   *float64
		wantErr    bool
	}{
		{name: "long valid", direction: domain.DirectionLong, openPrice: 100, takeProfit: floatPtr(110), stopLoss: floatPtr(95)},
		{name: "long tp below entry", direction: domain.DirectionLong, openPrice: 100, takeProfit: floatPtr(99), wantErr: true},
		{name: "long tp at entry", direction: domain.DirectionLong, openPrice: 100, takeProfit: floatPtr(100), wantErr: true},
		{name: "long sl above entry", direction: domain.DirectionLong, openPrice: 100, stopLoss: floatPtr(101), wantErr: true},
		{name: "short valid", direction: domain.DirectionShort, openPrice: 100, takeProfit: floatPtr(90), stopLoss: floatPtr(105)},
		{name: "short tp above entry", direction: domain.DirectionShort, openPrice: 100, takeProfit: floatPtr(101), wantErr: true},
		{name: "short sl below entry", direction: domain.DirectionShort, openPrice: 100, stopLoss: floatPtr(99), wantErr: true},
		{name: "negative trigger", direction: domain.DirectionLong, openPrice: 100, takeProfit: floatPtr(-1), wantErr: true},
		{name: "both nil clears triggers", direction: domain.DirectionLong, openPrice: 100},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateRiskParams(tt.direction, tt.openPrice, tt.takeProfit, tt.stopLoss)
			if tt.wantErr {
				require.ErrorIs(t, err, domain.ErrInvalidRiskParams)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestRoundMoney(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 2.5, roundMoney(2.5004))
	assert.Equal(t, 2.51, roundMoney(2.506))
	assert.Equal(t, -1.23, roundMoney(-1.234))
}
