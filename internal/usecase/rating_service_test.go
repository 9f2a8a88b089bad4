package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkachev-artem/cryptocraze-sub002/internal/domain"
)

func closedDeal(userID int64, amount float64, multiplier int, profit float64) domain.Deal {
	return domain.Deal{
		UserID:     userID,
		Symbol:     "BTCUSDT",
		Direction:  domain.DirectionLong,
		Amount:     amount,
		Multiplier: multiplier,
		OpenPrice:  100,
		OpenedAt:   time.Now().UTC().Add(-2 * time.Hour),
		Status:     domain.DealStatusClosed,
		ClosePrice: 100,
		ClosedAt:   time.Now().UTC().Add(-time.Hour),
		Profit:     profit,
		Commission: 0.5,
	}
}

func TestComputeStats(t *testing.T) {
	t.Parallel()

	deals := []domain.Deal{
		closedDeal(7, 1000, 5, 200),
		closedDeal(7, 500, 2, -80),
		closedDeal(7, 300, 10, 150),
		closedDeal(7, 200, 1, -30),
	}

	stats := computeStats(7, deals)

	assert.Equal(t, 4, stats.TotalTrades)
	assert.Equal(t, 2, stats.ProfitableTrades)
	assert.Equal(t, 240.0, stats.TotalPnl)
	assert.Equal(t, 9200.0, stats.TotalVolume, "volume is the sum of notionals")
	assert.Equal(t, 200.0, stats.MaxProfit)
	assert.Equal(t, -80.0, stats.MaxLoss)
	assert.Equal(t, 50.0, stats.WinRate)
	assert.Equal(t, 500.0, stats.AvgAmount)
}

func TestComputeStatsEmpty(t *testing.T) {
	t.Parallel()

	stats := computeStats(7, nil)
	assert.Equal(t, 0, stats.TotalTrades)
	assert.Equal(t, 0.0, stats.WinRate)
	assert.Equal(t, 0.0, stats.MaxProfit)
	assert.Equal(t, 0.0, stats.MaxLoss)
}

func TestComputeStatsAllLosses(t *testing.T) {
	t.Parallel()

	deals := []domain.Deal{
		closedDeal(7, 100, 1, -10),
		closedDeal(7, 100, 1, -25),
	}

	stats := computeStats(7, deals)
	assert.Equal(t, 0, stats.ProfitableTrades)
	assert.Equal(t, 0.0, stats.WinRate)
	assert.Equal(t, -10.0, stats.MaxProfit, "max profit is the least bad loss when no trade won")
	assert.Equal(t, -25.0, stats.MaxLoss)
}

func TestScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		stats domain.UserStats
		want  int
	}{
		{name: "zero stats", stats: domain.UserStats{}, want: 0},
		{
			name: "negative pnl contributes nothing",
			stats: domain.UserStats{
				TotalPnl:    -5000,
				WinRate:     40,
				TotalVolume: 1000,
				TotalTrades: 5,
			},
			// 0*0.4 + 40*0.3 + 1*0.2 + 10*0.1 = 13.2
			want: 13,
		},
		{
			name: "trade count capped at 100",
			stats: domain.UserStats{
				TotalTrades: 500,
			},
			// min(1000, 100)*0.1 = 10
			want: 10,
		},
		{
			name: "composite rounds to nearest",
			stats: domain.UserStats{
				TotalPnl:    1000,
				WinRate:     60,
				TotalVolume: 10000,
				TotalTrades: 10,
			},
			// 10*0.4 + 60*0.3 + 10*0.2 + 20*0.1 = 26
			want: 26,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Score(tt.stats))
		})
	}
}

func TestRecomputeStatsPersistsAndRanks(t *testing.T) {
	t.Parallel()

	deals := newFakeDealRepo(
		closedWithID(1, 7, 500),
		closedWithID(2, 8, 100),
	)
	users := newFakeUserRepo(7, 8)
	stats := newFakeStatsRepo()
	svc, err := NewRatingService(deals, users, stats, nil, zerolog.Nop())
	require.NoError(t, err)

	low, err := svc.RecomputeStats(context.Background(), 8)
	require.NoError(t, err)
	high, err := svc.RecomputeStats(context.Background(), 7)
	require.NoError(t, err)

	assert.Greater(t, high.Score, low.Score)
	assert.Equal(t, 1, high.Rank)

	rank, err := svc.Rank(context.Background(), 8)
	require.NoError(t, err)
	assert.Equal(t, 2, rank)
}

func TestRecomputeStatsIgnoresOwnStaleScore(t *testing.T) {
	t.Parallel()

	// User 7 holds a stored score of 50, but their closed deals now only
	// support a score of 1. User 8 sits at 30. The fresh rank must count
	// only user 8, not user 7's own stale row.
	deals := newFakeDealRepo(closedWithID(1, 7, -100))
	users := newFakeUserRepo(7, 8)
	statsRepo := newFakeStatsRepo()
	require.NoError(t, statsRepo.UpsertStats(context.Background(), domain.UserStats{UserID: 7, Score: 50}))
	require.NoError(t, statsRepo.UpsertStats(context.Background(), domain.UserStats{UserID: 8, Score: 30}))

	svc, err := NewRatingService(deals, users, statsRepo, nil, zerolog.Nop())
	require.NoError(t, err)

	stats, err := svc.RecomputeStats(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Score)
	assert.Equal(t, 2, stats.Rank)

	stored, err := statsRepo.GetStats(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Rank)
}

func TestRankTiesShareANumber(t *testing.T) {
	t.Parallel()

	deals := newFakeDealRepo()
	users := newFakeUserRepo(1, 2, 3)
	stats := newFakeStatsRepo()
	require.NoError(t, stats.UpsertStats(context.Background(), domain.UserStats{UserID: 1, Score: 50}))
	require.NoError(t, stats.UpsertStats(context.Background(), domain.UserStats{UserID: 2, Score: 50}))
	require.NoError(t, stats.UpsertStats(context.Background(), domain.UserStats{UserID: 3, Score: 80}))

	svc, err := NewRatingService(deals, users, stats, nil, zerolog.Nop())
	require.NoError(t, err)

	rank1, err := svc.Rank(context.Background(), 1)
	require.NoError(t, err)
	rank2, err := svc.Rank(context.Background(), 2)
	require.NoError(t, err)

	assert.Equal(t, 2, rank1)
	assert.Equal(t, rank1, rank2)
}

func TestStatsLazyComputation(t *testing.T) {
	t.Parallel()

	deals := newFakeDealRepo(closedWithID(1, 7, 100))
	users := newFakeUserRepo(7)
	statsRepo := newFakeStatsRepo()
	svc, err := NewRatingService(deals, users, statsRepo, nil, zerolog.Nop())
	require.NoError(t, err)

	stats, err := svc.Stats(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalTrades)

	_, err = svc.Stats(context.Background(), 404)
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestReconcileRanksCoversAllUsers(t *testing.T) {
	t.Parallel()

	deals := newFakeDealRepo(
		closedWithID(1, 7, 500),
		closedWithID(2, 8, 100),
	)
	users := newFakeUserRepo(7, 8)
	statsRepo := newFakeStatsRepo()
	svc, err := NewRatingService(deals, users, statsRepo, nil, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, svc.ReconcileRanks(context.Background()))

	for _, id := range []int64{7, 8} {
		stats, err := statsRepo.GetStats(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.TotalTrades, "user %d", id)
	}
}

func closedWithID(id, userID int64, profit float64) domain.Deal {
	deal := closedDeal(userID, 1000, 5, profit)
	deal.ID = id
	return deal
}
