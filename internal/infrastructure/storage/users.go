package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"SecFeed/internal/domain"
	"SecFeed/internal/ports"
)

var _ ports.UserStore = (*Store)(nil)

// GetUser loads a user and its interests ordered by id.
func (s *Store) GetUser(ctx context.Context, id int64) (domain.User, error) {
	query, args, err := s.sq.Select("id", "job", "created_at").From("users").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return domain.User{}, fmt.Errorf("build get user: %w", err)
	}

	var (
		user    domain.User
		job     string
		created any
	)
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&user.ID, &job, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("query user %d: %w", id, err)
	}
	user.Job = domain.Job(job)
	user.CreatedAt = parseTimestamp(created)

	query, args, err = s.sq.Select("i.id", "i.name").
		From("user_interests ui").
		Join("interests i ON i.id = ui.interest_id").
		Where(sq.Eq{"ui.user_id": id}).
		OrderBy("i.id").
		ToSql()
	if err != nil {
		return domain.User{}, fmt.Errorf("build user interests: %w", err)
	}

	user.Interests, err = s.queryInterests(ctx, s.db, query, args)
	if err != nil {
		return domain.User{}, fmt.Errorf("user %d interests: %w", id, err)
	}
	return user, nil
}

// UserExists reports whether a user row exists.
func (s *Store) UserExists(ctx context.Context, id int64) (bool, error) {
	return s.userExists(ctx, s.db, id)
}

// CreateUser inserts the user and its interests atomically. Unknown interest
// ids are dropped and duplicates collapsed.
func (s *Store) CreateUser(ctx context.Context, job domain.Job, interestIDs []int64) (int64, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		query, args, err := s.sq.Insert("users").Columns("job").Values(string(job)).Suffix("RETURNING id").ToSql()
		if err != nil {
			return fmt.Errorf("build insert user: %w", err)
		}
		if err := tx.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		return s.addUserInterests(ctx, tx, id, interestIDs)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateUser applies a partial update. Interests are replaced, not merged, when
// the patch sets them.
func (s *Store) UpdateUser(ctx context.Context, id int64, patch domain.UserPatch) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		exists, err := s.userExists(ctx, tx, id)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
		}

		if patch.Job != nil {
			query, args, err := s.sq.Update("users").Set("job", string(*patch.Job)).Where(sq.Eq{"id": id}).ToSql()
			if err != nil {
				return fmt.Errorf("build update job: %w", err)
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("update job: %w", err)
			}
		}

		if !patch.SetInterests {
			return nil
		}

		query, args, err := s.sq.Delete("user_interests").Where(sq.Eq{"user_id": id}).ToSql()
		if err != nil {
			return fmt.Errorf("build clear interests: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("clear interests: %w", err)
		}
		return s.addUserInterests(ctx, tx, id, patch.InterestIDs)
	})
}

func (s *Store) userExists(ctx context.Context, r runner, id int64) (bool, error) {
	query, args, err := s.sq.Select("1").From("users").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return false, fmt.Errorf("build user exists: %w", err)
	}

	var one int
	err = r.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query user exists: %w", err)
	}
	return true, nil
}

// addUserInterests links only ids present in the interests table.
func (s *Store) addUserInterests(ctx context.Context, r runner, userID int64, interestIDs []int64) error {
	ids := domain.UniqueIDs(interestIDs)
	if len(ids) == 0 {
		return nil
	}

	// The nested select keeps "?" so the outer builder numbers every placeholder.
	known := sq.Select().
		Column(sq.Expr("CAST(? AS BIGINT)", userID)).
		Column("id").
		From("interests").
		Where(sq.Eq{"id": ids})

	query, args, err := s.sq.Insert("user_interests").
		Columns("user_id", "interest_id").
		Select(known).
		Suffix("ON CONFLICT DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build user interests: %w", err)
	}
	if _, err := r.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert user interests: %w", err)
	}
	return nil
}
