package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"SecFeed/internal/ports"
)

// Notifier fans a new-article alert out to every registered chat.
type Notifier struct {
	sender   MessageSender
	registry *Registry
	timeout  time.Duration
	logger   *slog.Logger
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier wires the sender with the recipient registry.
func NewNotifier(sender MessageSender, registry *Registry, timeout time.Duration, logger *slog.Logger) *Notifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		sender:   sender,
		registry: registry,
		timeout:  timeout,
		logger:   logger.With("component", "telegram_notifier"),
	}
}

// NotifyArticle sends the alert to each recipient. A failed chat does not
// stop delivery to the others; the joined failures are returned.
func (n *Notifier) NotifyArticle(ctx context.Context, link, title, summary string) error {
	if n.sender == nil || n.registry == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	recipients := n.registry.Recipients()
	if len(recipients) == 0 {
		n.logger.Debug("no recipients registered")
		return nil
	}

	message := FormatArticle(link, title, summary)
	var errs []error
	for _, rec := range recipients {
		sendCtx, cancel := context.WithTimeout(ctx, n.timeout)
		err := n.sender.SendHTML(sendCtx, rec.ChatID, message)
		cancel()
		if err != nil {
			n.logger.Warn("notification failed", "user_id", rec.UserID, "chat_id", rec.ChatID, "error", err)
			errs = append(errs, fmt.Errorf("user %d: %w", rec.UserID, err))
		}
	}

	n.logger.Info("notifications sent", "link", link, "delivered", len(recipients)-len(errs), "recipients", len(recipients))
	return errors.Join(errs...)
}

// FormatArticle renders the HTML alert.
func FormatArticle(link, title, summary string) string {
	var b strings.Builder
	b.WriteString("🆕 <b>New Article Alert!</b>\n\n<b>")
	b.WriteString(html.EscapeString(title))
	b.WriteString("</b>\n\n")
	if summary != "" {
		b.WriteString(html.EscapeString(summary))
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "🔗 <a href=\"%s\">Read more</a>", html.EscapeString(link))
	return b.String()
}
