package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

type TelegramSender struct {
	client *resty.Client
	token  string
	chatID string
}

func NewTelegramSender(token, chatID string) (*TelegramSender, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("telegram token required")
	}
	if strings.TrimSpace(chatID) == "" {
		return nil, fmt.Errorf("telegram chat id required")
	}

	client := resty.New().
		SetBaseURL("https://api.telegram.org/bot" + token).
		SetTimeout(10 * time.Second)

	return &TelegramSender{
		client: client,
		token:  token,
		chatID: chatID,
	}, nil
}

func (t *TelegramSender) Name() string {
	return "telegram"
}

func (t *TelegramSender) Send(ctx context.Context, title, message string) error {
	resp, err := t.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"chat_id": t.chatID,
			"text":    title + "\n" + message,
		}).
		Post("/sendMessage")
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	if resp.StatusCode() >= 400 {
		return fmt.Errorf("telegram responded with status %d", resp.StatusCode())
	}
	return nil
}
