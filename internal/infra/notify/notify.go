// Package notify delivers settlement notifications to the user-facing layer.
// Delivery is best effort: a failing sender is logged and never affects the
// settlement that triggered it.
package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tkachev-artem/cryptocraze-sub002/internal/domain"
)

// Sender is one delivery channel.
type Sender interface {
	Send(ctx context.Context, title, message string) error
	Name() string
}

// Service fans a settlement notification out to all configured senders.
type Service struct {
	senders []Sender
	logger  zerolog.Logger
}

func NewService(logger zerolog.Logger, senders ...Sender) *Service {
	return &Service{
		senders: senders,
		logger:  logger.With().Str("component", "notify").Logger(),
	}
}

func (s *Service) DealClosed(ctx context.Context, deal domain.Deal, result domain.SettlementResult) error {
	title := fmt.Sprintf("Deal #%d closed (%s)", deal.ID, result.Reason)
	message := fmt.Sprintf(
		"%s %s x%d: close price %.8g, profit %.2f, commission %.2f",
		deal.Symbol, deal.Direction, deal.Multiplier,
		result.ClosePrice, result.Profit, result.Commission,
	)

	var failed int
	for _, sender := range s.senders {
		if err := sender.Send(ctx, title, message); err != nil {
			failed++
			s.logger.Warn().Err(err).Str("sender", sender.Name()).Int64("deal_id", deal.ID).Msg("notification delivery failed")
		}
	}
	if failed > 0 {
		return fmt.Errorf("notify: %d of %d sender(s) failed", failed, len(s.senders))
	}
	return nil
}
