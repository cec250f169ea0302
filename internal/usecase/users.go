package usecase

import (
	"context"
	"errors"
	"fmt"

	"SecFeed/internal/domain"
	"SecFeed/internal/ports"
)

// Users validates profile requests before they reach the store.
type Users struct {
	store ports.UserStore
}

func NewUsers(store ports.UserStore) *Users {
	return &Users{store: store}
}

// Create validates the job and stores a new user. Unknown interest ids are
// dropped by the store rather than rejected.
func (u *Users) Create(ctx context.Context, rawJob string, interestIDs []int64) (int64, error) {
	job, err := domain.ParseJob(rawJob)
	if err != nil {
		return 0, err
	}

	id, err := u.store.CreateUser(ctx, job, domain.UniqueIDs(interestIDs))
	if err != nil {
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

func (u *Users) Get(ctx context.Context, id int64) (domain.User, error) {
	return u.store.GetUser(ctx, id)
}

func (u *Users) Exists(ctx context.Context, id int64) (bool, error) {
	exists, err := u.store.UserExists(ctx, id)
	if err != nil {
		return false, fmt.Errorf("check user: %w", err)
	}
	return exists, nil
}

// Update applies a partial profile change. Existence is checked before the
// patch is validated so an unknown user is always reported as not found.
func (u *Users) Update(ctx context.Context, id int64, rawJob *string, interestIDs []int64, setInterests bool) error {
	exists, err := u.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
	}

	if rawJob == nil && !setInterests {
		return nil
	}

	patch := domain.UserPatch{SetInterests: setInterests}
	if setInterests {
		patch.InterestIDs = domain.UniqueIDs(interestIDs)
	}
	if rawJob != nil {
		job, err := domain.ParseJob(*rawJob)
		if err != nil {
			return err
		}
		patch.Job = &job
	}

	if err := u.store.UpdateUser(ctx, id, patch); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// Interests lists the catalogue users can pick from.
func (u *Users) Interests(ctx context.Context) ([]domain.Interest, error) {
	interests, err := u.store.ListInterests(ctx)
	if err != nil {
		return nil, fmt.Errorf("list interests: %w", err)
	}
	if interests == nil {
		interests = []domain.Interest{}
	}
	return interests, nil
}
