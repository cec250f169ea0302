package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// pollTimeout is the long-polling window in seconds.
const pollTimeout = 30

// UpdateSource is the polling half of the Bot API client.
type UpdateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// UserChecker confirms that a user id exists before it is linked to a chat.
type UserChecker interface {
	UserExists(ctx context.Context, id int64) (bool, error)
}

// Bot handles /start registrations.
type Bot struct {
	updates  UpdateSource
	sender   MessageSender
	registry *Registry
	users    UserChecker
	logger   *slog.Logger
}

func NewBot(updates UpdateSource, sender MessageSender, registry *Registry, users UserChecker, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		updates:  updates,
		sender:   sender,
		registry: registry,
		users:    users,
		logger:   logger.With("component", "telegram_bot"),
	}
}

// Run polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	if b.updates == nil {
		return fmt.Errorf("telegram bot has no update source")
	}

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = pollTimeout
	updates := b.updates.GetUpdatesChan(cfg)
	b.logger.Info("bot polling started", "recipients", len(b.registry.Recipients()))

	for {
		select {
		case <-ctx.Done():
			b.updates.StopReceivingUpdates()
			b.logger.Info("bot polling stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message != nil {
				b.HandleMessage(ctx, update.Message)
			}
		}
	}
}

// HandleMessage answers commands; everything else is ignored.
func (b *Bot) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg == nil || msg.Chat == nil || !msg.IsCommand() {
		return
	}

	switch msg.Command() {
	case "start":
		b.handleStart(ctx, msg.Chat.ID, strings.TrimSpace(msg.CommandArguments()))
	default:
		b.reply(ctx, msg.Chat.ID, "Unknown command. Use /start YOUR_USER_ID to register.")
	}
}

func (b *Bot) handleStart(ctx context.Context, chatID int64, arg string) {
	if arg == "" {
		b.reply(ctx, chatID, fmt.Sprintf("Hello! To register for notifications, use:\n/start YOUR_USER_ID\n\nYour Telegram ID is: %d", chatID))
		return
	}

	userID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || userID <= 0 {
		b.reply(ctx, chatID, "Error: Invalid user ID provided.")
		return
	}

	exists, err := b.users.UserExists(ctx, userID)
	if err != nil {
		b.logger.Error("user lookup failed", "user_id", userID, "error", err)
		b.reply(ctx, chatID, "Error: registration is temporarily unavailable.")
		return
	}
	if !exists {
		b.reply(ctx, chatID, fmt.Sprintf("Error: user %d not found.", userID))
		return
	}

	if err := b.registry.Register(ctx, userID, chatID); err != nil {
		b.logger.Error("registration failed", "user_id", userID, "chat_id", chatID, "error", err)
		b.reply(ctx, chatID, "Error: registration is temporarily unavailable.")
		return
	}

	b.logger.Info("chat registered", "user_id", userID, "chat_id", chatID)
	b.reply(ctx, chatID, fmt.Sprintf("✓ Registered!\nInternal userId: %d\nTelegram userId: %d\n\nYou'll now receive notifications for new articles!", userID, chatID))
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if err := b.sender.SendText(ctx, chatID, text); err != nil {
		b.logger.Warn("reply failed", "chat_id", chatID, "error", err)
	}
}
