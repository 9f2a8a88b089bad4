package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tkachev-artem/cryptocraze-sub002/internal/domain"
)

// Price entries expire so the sweep never settles against a badly stale tick.
const priceTTL = 10 * time.Minute

// PriceCache stores the latest tick per symbol as a hash at "price:{SYMBOL}"
// with fields "price" and "ts" (Unix nanoseconds).
type PriceCache struct {
	rdb *redis.Client
}

func NewPriceCache(c *Client) *PriceCache {
	return &PriceCache{rdb: c.rdb}
}

func priceKey(symbol string) string {
	return "price:" + symbol
}

func (pc *PriceCache) SetPrice(ctx context.Context, tick domain.PriceTick) error {
	key := priceKey(tick.Symbol)
	fields := map[string]interface{}{
		"price": strconv.FormatFloat(tick.Price, 'f', -1, 64),
		"ts":    strconv.FormatInt(tick.Time.UnixNano(), 10),
	}
	pipe := pc.rdb.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, priceTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set price %s: %w", tick.Symbol, err)
	}
	return nil
}

func (pc *PriceCache) GetPrice(ctx context.Context, symbol string) (domain.PriceTick, error) {
	vals, err := pc.rdb.HGetAll(ctx, priceKey(symbol)).Result()
	if err != nil {
		return domain.PriceTick{}, fmt.Errorf("redis: get price %s: %w", symbol, err)
	}
	if len(vals) == 0 {
		return domain.PriceTick{}, domain.ErrPriceUnavailable
	}

	price, err := strconv.ParseFloat(vals["price"], 64)
	if err != nil {
		return domain.PriceTick{}, fmt.Errorf("redis: parse price %s: %w", symbol, err)
	}
	tsNano, err := strconv.ParseInt(vals["ts"], 10, 64)
	if err != nil {
		return domain.PriceTick{}, fmt.Errorf("redis: parse ts %s: %w", symbol, err)
	}

	return domain.PriceTick{
		Symbol: symbol,
		Price:  price,
		Time:   time.Unix(0, tsNano).UTC(),
	}, nil
}
