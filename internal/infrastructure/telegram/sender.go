package telegram

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"SecFeed/internal/config"
)

// MessageSender delivers one message to one chat.
type MessageSender interface {
	SendHTML(ctx context.Context, chatID int64, text string) error
	SendText(ctx context.Context, chatID int64, text string) error
}

// APISender sends through the Bot API client.
type APISender struct {
	api *tgbotapi.BotAPI
}

var _ MessageSender = (*APISender)(nil)

// NewBotAPIs authenticates the bot token and returns two clients: one for
// long polling and one for sends. The send client's timeout is cfg.Timeout
// so a stalled sendMessage cannot outlive the notification deadline.
func NewBotAPIs(cfg config.TelegramConfig) (poller, sender *tgbotapi.BotAPI, err error) {
	return newBotAPIs(cfg, tgbotapi.APIEndpoint)
}

func newBotAPIs(cfg config.TelegramConfig, endpoint string) (*tgbotapi.BotAPI, *tgbotapi.BotAPI, error) {
	if cfg.BotToken == "" {
		return nil, nil, fmt.Errorf("telegram bot token is not configured")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	// Long polling holds the request for pollTimeout seconds.
	poller, err := tgbotapi.NewBotAPIWithClient(cfg.BotToken, endpoint,
		&http.Client{Timeout: timeout + pollTimeout*time.Second})
	if err != nil {
		return nil, nil, fmt.Errorf("telegram auth: %w", err)
	}
	sender, err := tgbotapi.NewBotAPIWithClient(cfg.BotToken, endpoint,
		&http.Client{Timeout: timeout})
	if err != nil {
		return nil, nil, fmt.Errorf("telegram auth: %w", err)
	}
	return poller, sender, nil
}

func NewAPISender(api *tgbotapi.BotAPI) *APISender {
	return &APISender{api: api}
}

func (s *APISender) SendHTML(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	return s.send(ctx, msg)
}

func (s *APISender) SendText(ctx context.Context, chatID int64, text string) error {
	return s.send(ctx, tgbotapi.NewMessage(chatID, text))
}

func (s *APISender) send(ctx context.Context, msg tgbotapi.MessageConfig) error {
	if s == nil || s.api == nil {
		return fmt.Errorf("telegram sender misconfigured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.api.Send(msg); err != nil {
		return fmt.Errorf("send to chat %d: %w", msg.ChatID, err)
	}
	return nil
}
