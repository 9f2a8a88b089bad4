// Package pricefeed implements the domain PriceFeed against Binance: a
// combined aggTrade websocket stream for push delivery and the public REST
// ticker endpoint for on-demand pulls.
package pricefeed

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/tkachev-artem/cryptocraze-sub002/internal/domain"
)

const reconnectDelay = 5 * time.Second

type BinanceFeed struct {
	client  *resty.Client
	baseURL string
	logger  zerolog.Logger
}

type tickerPayload struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

func NewBinanceFeed(baseURL string, logger zerolog.Logger, opts ...func(*resty.Client)) (*BinanceFeed, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("baseURL is required")
	}

	client := resty.New().
		SetHeader("Accept", "application/json").
		SetTimeout(15 * time.Second)

	for _, opt := range opts {
		opt(client)
	}

	return &BinanceFeed{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.With().Str("component", "pricefeed").Logger(),
	}, nil
}

// CurrentPrice pulls the latest ticker price for a symbol.
func (f *BinanceFeed) CurrentPrice(ctx context.Context, symbol string) (domain.PriceTick, error) {
	var payload tickerPayload

	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParam("symbol", strings.ToUpper(symbol)).
		SetResult(&payload).
		Get(f.baseURL + "/api/v3/ticker/price")
	if err != nil {
		return domain.PriceTick{}, fmt.Errorf("%w: %s: %v", domain.ErrPriceUnavailable, symbol, err)
	}
	if resp.StatusCode() >= 400 {
		return domain.PriceTick{}, fmt.Errorf("%w: %s: ticker responded with status %d", domain.ErrPriceUnavailable, symbol, resp.StatusCode())
	}

	price, err := strconv.ParseFloat(payload.Price, 64)
	if err != nil || price <= 0 {
		return domain.PriceTick{}, fmt.Errorf("%w: %s: bad price %q", domain.ErrPriceUnavailable, symbol, payload.Price)
	}

	return domain.PriceTick{
		Symbol: strings.ToUpper(symbol),
		Price:  price,
		Time:   time.Now().UTC(),
	}, nil
}

// Subscribe streams trades for the given symbols until ctx is cancelled,
// reconnecting with a fixed delay when the stream drops. Tick delivery for
// one symbol is independent of the handler's speed for another only insofar
// as the handler itself does not block; the evaluator dispatches settlements
// asynchronously for that reason.
func (f *BinanceFeed) Subscribe(ctx context.Context, symbols []string, handler func(domain.PriceTick)) error {
	upper := make([]string, len(symbols))
	for i, s := range symbols {
		upper[i] = strings.ToUpper(s)
	}

	wsHandler := func(event *binance.WsAggTradeEvent) {
		price, err := strconv.ParseFloat(event.Price, 64)
		if err != nil || price <= 0 {
			return
		}
		handler(domain.PriceTick{
			Symbol: event.Symbol,
			Price:  price,
			Time:   time.UnixMilli(event.TradeTime).UTC(),
		})
	}
	errHandler := func(err error) {
		f.logger.Warn().Err(err).Msg("websocket stream error")
	}

	for {
		doneC, stopC, err := binance.WsCombinedAggTradeServe(upper, wsHandler, errHandler)
		if err != nil {
			f.logger.Error().Err(err).Msg("websocket connect failed")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(reconnectDelay):
				continue
			}
		}

		select {
		case <-ctx.Done():
			close(stopC)
			return ctx.Err()
		case <-doneC:
			f.logger.Warn().Msg("websocket stream closed, reconnecting")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(reconnectDelay):
			}
		}
	}
}
