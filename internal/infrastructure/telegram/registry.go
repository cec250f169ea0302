package telegram

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"SecFeed/internal/domain"
	"SecFeed/internal/ports"
)

// Registry is the in-memory view of user-to-chat mappings. It is loaded once
// from the store and written through on every registration.
type Registry struct {
	store ports.RecipientStore

	mu    sync.RWMutex
	chats map[int64]int64
}

func NewRegistry(store ports.RecipientStore) *Registry {
	return &Registry{store: store, chats: make(map[int64]int64)}
}

// Load replaces the in-memory mappings with the stored ones.
func (r *Registry) Load(ctx context.Context) error {
	recipients, err := r.store.ListRecipients(ctx)
	if err != nil {
		return fmt.Errorf("load recipients: %w", err)
	}

	chats := make(map[int64]int64, len(recipients))
	for _, rec := range recipients {
		chats[rec.UserID] = rec.ChatID
	}

	r.mu.Lock()
	r.chats = chats
	r.mu.Unlock()
	return nil
}

// Register persists the mapping, then applies it in memory. A chat belongs to
// at most one user.
func (r *Registry) Register(ctx context.Context, userID, chatID int64) error {
	if err := r.store.SaveRecipient(ctx, domain.Recipient{UserID: userID, ChatID: chatID}); err != nil {
		return fmt.Errorf("save recipient: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for user, chat := range r.chats {
		if chat == chatID && user != userID {
			delete(r.chats, user)
		}
	}
	r.chats[userID] = chatID
	return nil
}

// Recipients returns a snapshot ordered by user id.
func (r *Registry) Recipients() []domain.Recipient {
	r.mu.RLock()
	out := make([]domain.Recipient, 0, len(r.chats))
	for user, chat := range r.chats {
		out = append(out, domain.Recipient{UserID: user, ChatID: chat})
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}
