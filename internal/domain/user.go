package domain

import (
	"errors"
	"sort"
	"time"
)

// ErrNotFound is returned (wrapped) when a user or article does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError describes bad client input. It never reaches the store.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Interest is a scoring dimension. Id order defines the scorer's positional mapping.
type Interest struct {
	ID   int64
	Name string
}

// User owns a job and an unordered interest set.
type User struct {
	ID        int64
	Job       Job
	CreatedAt time.Time
	Interests []Interest
}

// UserPatch carries optional updates; nil means unchanged.
type UserPatch struct {
	Job         *Job
	InterestIDs []int64
	// SetInterests distinguishes "replace with empty set" from "leave as is".
	SetInterests bool
}

// Recipient maps a registered user to a Telegram chat.
type Recipient struct {
	UserID int64
	ChatID int64
}

// UniqueIDs collapses duplicates and returns the ids sorted ascending.
func UniqueIDs(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
