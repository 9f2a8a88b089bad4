package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tkachev-artem/cryptocraze-sub002/internal/domain"
)

// In-memory doubles for the repository and feed ports. They reproduce the
// contracts the services rely on, in particular the conditional close in
// ApplyClose.

type fakeDealRepo struct {
	mu             sync.Mutex
	deals          map[int64]domain.Deal
	nextID         int64
	applyCalls     int
	applySuccesses int
}

func newFakeDealRepo(deals ...domain.Deal) *fakeDealRepo {
	r := &fakeDealRepo{deals: make(map[int64]domain.Deal), nextID: 1}
	for _, d := range deals {
		if d.ID >= r.nextID {
			r.nextID = d.ID + 1
		}
		r.deals[d.ID] = d
	}
	return r
}

func (r *fakeDealRepo) CreateDeal(_ context.Context, deal *domain.Deal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	deal.ID = r.nextID
	r.nextID++
	r.deals[deal.ID] = *deal
	return nil
}

func (r *fakeDealRepo) GetDeal(_ context.Context, id int64) (domain.Deal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	deal, ok := r.deals[id]
	if !ok {
		return domain.Deal{}, domain.ErrDealNotFound
	}
	return deal, nil
}

func (r *fakeDealRepo) GetDealForUser(ctx context.Context, id, userID int64) (domain.Deal, error) {
	deal, err := r.GetDeal(ctx, id)
	if err != nil {
		return domain.Deal{}, err
	}
	if deal.UserID != userID {
		return domain.Deal{}, domain.ErrDealNotFound
	}
	return deal, nil
}

func (r *fakeDealRepo) ListOpenBySymbol(_ context.Context, symbol string) ([]domain.Deal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Deal
	for _, d := range r.deals {
		if d.Symbol == symbol && d.Status == domain.DealStatusOpen {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *fakeDealRepo) ListOpenOpenedBefore(_ context.Context, cutoff time.Time) ([]domain.Deal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Deal
	for _, d := range r.deals {
		if d.Status == domain.DealStatusOpen && d.OpenedAt.Before(cutoff) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *fakeDealRepo) ListByUser(_ context.Context, userID int64, status domain.DealStatus, limit int) ([]domain.Deal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Deal
	for _, d := range r.deals {
		if d.UserID != userID {
			continue
		}
		if status != "" && d.Status != status {
			continue
		}
		out = append(out, d)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeDealRepo) OpenSymbols(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]struct{})
	var out []string
	for _, d := range r.deals {
		if d.Status != domain.DealStatusOpen {
			continue
		}
		if _, ok := seen[d.Symbol]; ok {
			continue
		}
		seen[d.Symbol] = struct{}{}
		out = append(out, d.Symbol)
	}
	return out, nil
}

func (r *fakeDealRepo) ApplyClose(_ context.Context, id int64, req domain.CloseRequest) (domain.Deal, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applyCalls++
	deal, ok := r.deals[id]
	if !ok {
		return domain.Deal{}, false, domain.ErrDealNotFound
	}
	if deal.Status != domain.DealStatusOpen {
		return deal, false, nil
	}
	deal.Status = domain.DealStatusClosed
	deal.ClosePrice = req.ClosePrice
	deal.ClosedAt = req.ClosedAt
	deal.Profit = req.Profit
	deal.Commission = req.Commission
	deal.CloseReason = req.Reason
	r.deals[id] = deal
	r.applySuccesses++
	return deal, true, nil
}

func (r *fakeDealRepo) successCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.applySuccesses
}

func (r *fakeDealRepo) UpdateRiskParams(_ context.Context, id, userID int64, takeProfit, stopLoss *float64) (domain.Deal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	deal, ok := r.deals[id]
	if !ok || deal.UserID != userID {
		return domain.Deal{}, domain.ErrDealNotFound
	}
	if deal.Status != domain.DealStatusOpen {
		return domain.Deal{}, domain.ErrDealAlreadyClosed
	}
	deal.TakeProfit = takeProfit
	deal.StopLoss = stopLoss
	r.deals[id] = deal
	return deal, nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[int64]domain.User
}

func newFakeUserRepo(ids ...int64) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[int64]domain.User)}
	for _, id := range ids {
		r.users[id] = domain.User{ID: id}
	}
	return r
}

func (r *fakeUserRepo) GetUser(_ context.Context, id int64) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) EnsureUser(_ context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		r.users[user.ID] = user
	}
	return nil
}

func (r *fakeUserRepo) ListUserIDs(_ context.Context) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int64, 0, len(r.users))
	for id := range r.users {
		out = append(out, id)
	}
	return out, nil
}

type fakeStatsRepo struct {
	mu    sync.Mutex
	stats map[int64]domain.UserStats
}

func newFakeStatsRepo() *fakeStatsRepo {
	return &fakeStatsRepo{stats: make(map[int64]domain.UserStats)}
}

func (r *fakeStatsRepo) GetStats(_ context.Context, userID int64) (domain.UserStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats, ok := r.stats[userID]
	if !ok {
		return domain.UserStats{}, domain.ErrUserNotFound
	}
	return stats, nil
}

func (r *fakeStatsRepo) UpsertStats(_ context.Context, stats domain.UserStats) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats[stats.UserID] = stats
	return nil
}

func (r *fakeStatsRepo) CountScoreGreaterThan(_ context.Context, score int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, s := range r.stats {
		if s.Score > score {
			count++
		}
	}
	return count, nil
}

func (r *fakeStatsRepo) ListTop(_ context.Context, limit int) ([]domain.UserStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.UserStats
	for _, s := range r.stats {
		out = append(out, s)
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].Score > out[i].Score {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeFeed struct {
	mu     sync.Mutex
	prices map[string]float64
	err    error
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{prices: make(map[string]float64)}
}

func (f *fakeFeed) setPrice(symbol string, price float64) {
	f.mu.Lock()
	f.prices[symbol] = price
	f.mu.Unlock()
}

func (f *fakeFeed) Subscribe(ctx context.Context, _ []string, _ func(domain.PriceTick)) error {
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeFeed) CurrentPrice(_ context.Context, symbol string) (domain.PriceTick, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.PriceTick{}, f.err
	}
	price, ok := f.prices[symbol]
	if !ok {
		return domain.PriceTick{}, domain.ErrPriceUnavailable
	}
	return domain.PriceTick{Symbol: symbol, Price: price, Time: time.Now().UTC()}, nil
}

type settleCall struct {
	dealID int64
	userID int64
	price  float64
	reason domain.CloseReason
}

// fakeSettler records calls and signals each one on a channel so tests can
// wait for asynchronous dispatch without sleeping.
type fakeSettler struct {
	mu     sync.Mutex
	calls  []settleCall
	err    error
	done   chan settleCall
	result domain.SettlementResult
}

func newFakeSettler() *fakeSettler {
	return &fakeSettler{done: make(chan settleCall, 16)}
}

func (f *fakeSettler) Settle(_ context.Context, dealID, userID int64, closePrice float64, reason domain.CloseReason) (domain.SettlementResult, error) {
	call := settleCall{dealID: dealID, userID: userID, price: closePrice, reason: reason}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	err := f.err
	result := f.result
	f.mu.Unlock()
	f.done <- call
	if err != nil {
		return domain.SettlementResult{}, err
	}
	result.DealID = dealID
	return result, nil
}

func (f *fakeSettler) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

var errFakeNotify = errors.New("notify failed")

type fakeNotifier struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeNotifier) DealClosed(context.Context, domain.Deal, domain.SettlementResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}
