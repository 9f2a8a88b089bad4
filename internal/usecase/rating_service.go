package usecase

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/tkachev-artem/cryptocraze-sub002/internal/domain"
)

// Score weights are fixed design constants: realized PnL contributes 0.4,
// win rate 0.3, volume 0.2 and capped trade count 0.1.
const (
	scoreWeightPnl    = 0.4
	scoreWeightWin    = 0.3
	scoreWeightVolume = 0.2
	scoreWeightTrades = 0.1
)

// RatingService recomputes a user's aggregate trading statistics and global
// rank after each settlement. Stats are always derived by a full scan of the
// user's closed deals, so running it twice on unchanged data is a no-op.
type RatingService struct {
	deals  domain.DealRepository
	users  domain.UserRepository
	stats  domain.StatsRepository
	board  domain.LeaderboardIndex
	logger zerolog.Logger
}

func NewRatingService(deals domain.DealRepository, users domain.UserRepository, stats domain.StatsRepository, board domain.LeaderboardIndex, logger zerolog.Logger) (*RatingService, error) {
	if deals == nil {
		return nil, errors.New("deal repository required")
	}
	if users == nil {
		return nil, errors.New("user repository required")
	}
	if stats == nil {
		return nil, errors.New("stats repository required")
	}
	return &RatingService{
		deals:  deals,
		users:  users,
		stats:  stats,
		board:  board,
		logger: logger.With().Str("component", "rating").Logger(),
	}, nil
}

// RecomputeStats rebuilds the user's aggregate from their closed deals,
// persists it and updates the leaderboard index.
func (s *RatingService) RecomputeStats(ctx context.Context, userID int64) (domain.UserStats, error) {
	closed, err := s.deals.ListByUser(ctx, userID, domain.DealStatusClosed, 0)
	if err != nil {
		return domain.UserStats{}, err
	}

	stats := computeStats(userID, closed)
	stats.Score = Score(stats)
	stats.UpdatedAt = time.Now().UTC()

	// Persist the new score before ranking: the rank counts strictly
	// greater scores of other users, so the count must not see this
	// user's own stale row.
	if err := s.stats.UpsertStats(ctx, stats); err != nil {
		return domain.UserStats{}, err
	}

	if s.board != nil {
		if err := s.board.SetScore(ctx, userID, stats.Score); err != nil {
			// Index is a cache; the store remains authoritative.
			s.logger.Warn().Err(err).Int64("user_id", userID).Msg("update leaderboard index")
		}
	}

	rank, err := s.rankForScore(ctx, stats.Score)
	if err != nil {
		return domain.UserStats{}, err
	}
	stats.Rank = rank

	if err := s.stats.UpsertStats(ctx, stats); err != nil {
		return domain.UserStats{}, err
	}

	return stats, nil
}

// Stats returns the stored aggregate, computing it on first access.
func (s *RatingService) Stats(ctx context.Context, userID int64) (domain.UserStats, error) {
	stats, err := s.stats.GetStats(ctx, userID)
	if err == nil {
		return stats, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return domain.UserStats{}, err
	}
	if _, uerr := s.users.GetUser(ctx, userID); uerr != nil {
		return domain.UserStats{}, uerr
	}
	return s.RecomputeStats(ctx, userID)
}

// Rank answers with a live rank: 1 plus the number of users with a strictly
// greater score. Ties share a rank number.
func (s *RatingService) Rank(ctx context.Context, userID int64) (int, error) {
	stats, err := s.Stats(ctx, userID)
	if err != nil {
		return 0, err
	}
	return s.rankForScore(ctx, stats.Score)
}

func (s *RatingService) Leaderboard(ctx context.Context, limit int) ([]domain.UserStats, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.stats.ListTop(ctx, limit)
}

// ReconcileRanks recomputes every user's stats and rank from the store. It is
// the full-sweep fallback behind the incrementally maintained index; per-user
// failures are logged and do not abort the pass.
func (s *RatingService) ReconcileRanks(ctx context.Context) error {
	ids, err := s.users.ListUserIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := s.RecomputeStats(ctx, id); err != nil {
			s.logger.Error().Err(err).Int64("user_id", id).Msg("reconcile user rank")
		}
	}
	s.logger.Info().Int("users", len(ids)).Msg("rank reconciliation completed")
	return nil
}

func (s *RatingService) rankForScore(ctx context.Context, score int) (int, error) {
	if s.board != nil {
		if rank, err := s.board.RankOf(ctx, score); err == nil {
			return rank, nil
		} else {
			s.logger.Debug().Err(err).Msg("leaderboard index unavailable, falling back to store")
		}
	}
	greater, err := s.stats.CountScoreGreaterThan(ctx, score)
	if err != nil {
		return 0, err
	}
	return greater + 1, nil
}

func computeStats(userID int64, closed []domain.Deal) domain.UserStats {
	stats := domain.UserStats{UserID: userID}
	if len(closed) == 0 {
		return stats
	}

	var sumAmount float64
	for i, deal := range closed {
		profit := deal.Profit
		stats.TotalTrades++
		stats.TotalPnl += profit
		stats.TotalVolume += deal.Notional()
		sumAmount += deal.Amount

		if profit > 0 {
			stats.ProfitableTrades++
		}
		if i == 0 || profit > stats.MaxProfit {
			stats.MaxProfit = profit
		}
		if i == 0 || profit < stats.MaxLoss {
			stats.MaxLoss = profit
		}
	}

	stats.TotalPnl = roundMoney(stats.TotalPnl)
	stats.WinRate = float64(stats.ProfitableTrades) / float64(stats.TotalTrades) * 100
	stats.AvgAmount = roundMoney(sumAmount / float64(stats.TotalTrades))
	return stats
}

// Score folds the aggregate into a single leaderboard number, floored at 0.
func Score(stats domain.UserStats) int {
	composite := math.Max(0, stats.TotalPnl/100)*scoreWeightPnl +
		stats.WinRate*scoreWeightWin +
		stats.TotalVolume/1000*scoreWeightVolume +
		math.Min(float64(stats.TotalTrades*2), 100)*scoreWeightTrades

	score := int(math.Round(composite))
	if score < 0 {
		return 0
	}
	return score
}
