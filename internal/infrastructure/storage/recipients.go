package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"SecFeed/internal/domain"
	"SecFeed/internal/ports"
)

var _ ports.RecipientStore = (*Store)(nil)

// ListRecipients returns every registered Telegram chat.
func (s *Store) ListRecipients(ctx context.Context) ([]domain.Recipient, error) {
	query, args, err := s.sq.Select("user_id", "chat_id").From("telegram_recipients").OrderBy("user_id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list recipients: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recipients: %w", err)
	}

	var out []domain.Recipient
	for rows.Next() {
		var r domain.Recipient
		if err := rows.Scan(&r.UserID, &r.ChatID); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		out = append(out, r)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("recipient rows: %w", rowsErr)
	}
	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close recipient rows: %w", closeErr)
	}
	return out, nil
}

// SaveRecipient maps a user to a chat. A chat that belonged to another user
// moves to this one; a user re-registering from a new chat replaces the old one.
func (s *Store) SaveRecipient(ctx context.Context, r domain.Recipient) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		query, args, err := s.sq.Delete("telegram_recipients").
			Where(sq.And{sq.Eq{"chat_id": r.ChatID}, sq.NotEq{"user_id": r.UserID}}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build release chat: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("release chat %d: %w", r.ChatID, err)
		}

		query, args, err = s.sq.Insert("telegram_recipients").
			Columns("user_id", "chat_id").
			Values(r.UserID, r.ChatID).
			Suffix("ON CONFLICT (user_id) DO UPDATE SET chat_id = excluded.chat_id").
			ToSql()
		if err != nil {
			return fmt.Errorf("build save recipient: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("save recipient %d: %w", r.UserID, err)
		}
		return nil
	})
}
