package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tkachev-artem/cryptocraze-sub002/internal/domain"
)

const (
	defaultSettleTimeout = 15 * time.Second
	sweepConcurrency     = 4
)

// AutoCloseService reacts to price ticks and periodic sweeps, deciding which
// open deals must close now and routing them through the Settler. One deal's
// slow or failing settlement never delays the others: each is dispatched
// independently and failures are retried on the next tick or sweep.
type AutoCloseService struct {
	deals         domain.DealRepository
	settler       Settler
	feed          domain.PriceFeed
	prices        domain.PriceCache
	logger        zerolog.Logger
	maxAge        time.Duration
	settleTimeout time.Duration

	mu      sync.Mutex
	pending map[int64]struct{}
}

func NewAutoCloseService(deals domain.DealRepository, settler Settler, feed domain.PriceFeed, prices domain.PriceCache, maxAge time.Duration, logger zerolog.Logger) (*AutoCloseService, error) {
	if deals == nil {
		return nil, errors.New("deal repository required")
	}
	if settler == nil {
		return nil, errors.New("settler required")
	}
	if feed == nil {
		return nil, errors.New("price feed required")
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxDealAge
	}
	return &AutoCloseService{
		deals:         deals,
		settler:       settler,
		feed:          feed,
		prices:        prices,
		logger:        logger.With().Str("component", "autoclose").Logger(),
		maxAge:        maxAge,
		settleTimeout: defaultSettleTimeout,
		pending:       make(map[int64]struct{}),
	}, nil
}

// Run subscribes to the feed for the given symbols and evaluates every tick
// until ctx is cancelled.
func (s *AutoCloseService) Run(ctx context.Context, symbols []string) error {
	if len(symbols) == 0 {
		return errors.New("no symbols to subscribe")
	}
	s.logger.Info().Strs("symbols", symbols).Msg("subscribing to price feed")
	return s.feed.Subscribe(ctx, symbols, func(tick domain.PriceTick) {
		s.HandleTick(ctx, tick)
	})
}

// HandleTick matches a tick against all open deals for its symbol. Matched
// deals are settled in their own goroutines so slow settlements do not block
// feed delivery; a per-deal pending marker prevents double submission while a
// settlement is in flight.
func (s *AutoCloseService) HandleTick(ctx context.Context, tick domain.PriceTick) {
	if s.prices != nil {
		if err := s.prices.SetPrice(ctx, tick); err != nil {
			s.logger.Debug().Err(err).Str("symbol", tick.Symbol).Msg("cache tick")
		}
	}

	deals, err := s.deals.ListOpenBySymbol(ctx, tick.Symbol)
	if err != nil {
		s.logger.Error().Err(err).Str("symbol", tick.Symbol).Msg("list open deals for tick")
		return
	}

	for _, deal := range deals {
		check := ShouldAutoClose(deal, tick.Price)
		if !check.Close {
			continue
		}
		if !s.markPending(deal.ID) {
			continue
		}
		go s.settleAsync(deal, tick.Price, check.Reason)
	}
}

func (s *AutoCloseService) settleAsync(deal domain.Deal, price float64, reason domain.CloseReason) {
	defer s.clearPending(deal.ID)

	ctx, cancel := context.WithTimeout(context.Background(), s.settleTimeout)
	defer cancel()

	if _, err := s.settler.Settle(ctx, deal.ID, 0, price, reason); err != nil {
		s.logger.Error().Err(err).
			Int64("deal_id", deal.ID).
			Str("reason", string(reason)).
			Msg("auto close failed, will retry on next tick")
	}
}

// SweepExpired closes every deal older than the maximum age at its current
// market price, re-fetched per symbol rather than taken from the stale entry.
// Deals are settled with bounded concurrency and a per-deal timeout so one
// stuck settlement cannot stall the sweep cycle; stuck or failing items are
// skipped and retried next cycle.
func (s *AutoCloseService) SweepExpired(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-s.maxAge)
	deals, err := s.deals.ListOpenOpenedBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if len(deals) == 0 {
		return nil
	}
	s.logger.Info().Int("count", len(deals)).Msg("sweeping expired deals")

	var g errgroup.Group
	g.SetLimit(sweepConcurrency)

	for _, deal := range deals {
		deal := deal
		if !s.markPending(deal.ID) {
			continue
		}
		g.Go(func() error {
			defer s.clearPending(deal.ID)

			sctx, cancel := context.WithTimeout(ctx, s.settleTimeout)
			defer cancel()

			tick, err := s.currentPrice(sctx, deal.Symbol)
			if err != nil {
				s.logger.Warn().Err(err).Int64("deal_id", deal.ID).Str("symbol", deal.Symbol).Msg("skip expired deal, price unavailable")
				return nil
			}
			if _, err := s.settler.Settle(sctx, deal.ID, 0, tick.Price, domain.CloseReasonExpired); err != nil {
				s.logger.Error().Err(err).Int64("deal_id", deal.ID).Msg("expiry close failed, will retry next sweep")
			}
			return nil
		})
	}

	return g.Wait()
}

// currentPrice pulls from the feed, falling back to the last cached tick when
// the pull fails. The sweep stays a safety net even while the feed is down.
func (s *AutoCloseService) currentPrice(ctx context.Context, symbol string) (domain.PriceTick, error) {
	tick, err := s.feed.CurrentPrice(ctx, symbol)
	if err == nil {
		return tick, nil
	}
	if s.prices != nil {
		if cached, cerr := s.prices.GetPrice(ctx, symbol); cerr == nil {
			return cached, nil
		}
	}
	return domain.PriceTick{}, err
}

func (s *AutoCloseService) markPending(dealID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, inFlight := s.pending[dealID]; inFlight {
		return false
	}
	s.pending[dealID] = struct{}{}
	return true
}

func (s *AutoCloseService) clearPending(dealID int64) {
	s.mu.Lock()
	delete(s.pending, dealID)
	s.mu.Unlock()
}
