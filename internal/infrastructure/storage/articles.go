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

var _ ports.ArticleStore = (*Store)(nil)

// Exists reports whether an article with this link is already stored.
func (s *Store) Exists(ctx context.Context, link string) (bool, error) {
	query, args, err := s.sq.Select("1").From("articles").Where(sq.Eq{"link": link}).Limit(1).ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists: %w", err)
	}

	var one int
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query article exists: %w", err)
	}
	return true, nil
}

// InsertArticle stores the article unless its link is known. The id of the
// existing row is returned with inserted=false on conflict.
func (s *Store) InsertArticle(ctx context.Context, article domain.Article) (int64, bool, error) {
	return s.insertArticle(ctx, s.db, article)
}

// UpsertJobScore writes one (article, job) score, clamped to the valid range.
func (s *Store) UpsertJobScore(ctx context.Context, articleID int64, job domain.Job, score float64) error {
	return s.upsertJobScore(ctx, s.db, articleID, job, score)
}

// UpsertInterestScore writes one (article, interest) score, clamped to the valid range.
func (s *Store) UpsertInterestScore(ctx context.Context, articleID, interestID int64, score float64) error {
	return s.upsertInterestScore(ctx, s.db, articleID, interestID, score)
}

// SaveScoredArticle inserts the article and, only if it is new, all of its
// score rows in a single transaction.
func (s *Store) SaveScoredArticle(ctx context.Context, article domain.Article, scores domain.ArticleScores) (int64, bool, error) {
	var (
		id       int64
		inserted bool
	)

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, inserted, err = s.insertArticle(ctx, tx, article)
		if err != nil || !inserted {
			return err
		}

		for _, job := range domain.AllJobs() {
			score, ok := scores.Jobs[job]
			if !ok {
				continue
			}
			if err := s.upsertJobScore(ctx, tx, id, job, score); err != nil {
				return err
			}
		}

		for interestID, score := range scores.Interests {
			if err := s.upsertInterestScore(ctx, tx, id, interestID, score); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, false, err
	}
	return id, inserted, nil
}

// ListInterests returns the interest catalogue ordered by id.
func (s *Store) ListInterests(ctx context.Context) ([]domain.Interest, error) {
	query, args, err := s.sq.Select("id", "name").From("interests").OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list interests: %w", err)
	}
	return s.queryInterests(ctx, s.db, query, args)
}

func (s *Store) insertArticle(ctx context.Context, r runner, article domain.Article) (int64, bool, error) {
	if article.Link == "" {
		return 0, false, errors.New("insert article: empty link")
	}

	query, args, err := s.sq.Insert("articles").
		Columns("link", "title", "full_text", "summary", "category", "subcategory", "is_article", "published_on", "image_url").
		Values(
			article.Link,
			article.Title,
			article.FullText,
			article.Summary,
			nullString(article.Category),
			nullString(article.Subcategory),
			article.IsArticle,
			nullString(article.PublishedOn),
			nullString(article.ImageURL),
		).
		Suffix("ON CONFLICT (link) DO NOTHING RETURNING id").
		ToSql()
	if err != nil {
		return 0, false, fmt.Errorf("build insert article: %w", err)
	}

	var id int64
	err = r.QueryRowContext(ctx, query, args...).Scan(&id)
	if err == nil {
		return id, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, fmt.Errorf("insert article: %w", err)
	}

	query, args, err = s.sq.Select("id").From("articles").Where(sq.Eq{"link": article.Link}).ToSql()
	if err != nil {
		return 0, false, fmt.Errorf("build article id: %w", err)
	}
	if err := r.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, false, fmt.Errorf("lookup existing article: %w", err)
	}
	return id, false, nil
}

func (s *Store) upsertJobScore(ctx context.Context, r runner, articleID int64, job domain.Job, score float64) error {
	query, args, err := s.sq.Insert("article_job_scores").
		Columns("article_id", "job", "score").
		Values(articleID, string(job), domain.ClampScore(score)).
		Suffix("ON CONFLICT (article_id, job) DO UPDATE SET score = excluded.score").
		ToSql()
	if err != nil {
		return fmt.Errorf("build job score: %w", err)
	}
	if _, err := r.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert job score %q: %w", job, err)
	}
	return nil
}

func (s *Store) upsertInterestScore(ctx context.Context, r runner, articleID, interestID int64, score float64) error {
	query, args, err := s.sq.Insert("article_interest_scores").
		Columns("article_id", "interest_id", "score").
		Values(articleID, interestID, domain.ClampScore(score)).
		Suffix("ON CONFLICT (article_id, interest_id) DO UPDATE SET score = excluded.score").
		ToSql()
	if err != nil {
		return fmt.Errorf("build interest score: %w", err)
	}
	if _, err := r.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert interest score %d: %w", interestID, err)
	}
	return nil
}

func (s *Store) queryInterests(ctx context.Context, r runner, query string, args []any) ([]domain.Interest, error) {
	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query interests: %w", err)
	}

	var out []domain.Interest
	for rows.Next() {
		var interest domain.Interest
		if err := rows.Scan(&interest.ID, &interest.Name); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan interest: %w", err)
		}
		out = append(out, interest)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("interest rows: %w", rowsErr)
	}
	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close interest rows: %w", closeErr)
	}
	return out, nil
}
