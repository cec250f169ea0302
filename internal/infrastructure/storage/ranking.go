package storage

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"SecFeed/internal/domain"
	"SecFeed/internal/ports"
)

var _ ports.RankingStore = (*Store)(nil)

// RankArticles scores every article that has a job score for q.Job. The
// interest filter lives in the join condition so articles without overlapping
// interest rows still rank with an average of zero.
func (s *Store) RankArticles(ctx context.Context, q ports.RankQuery) ([]domain.ScoredArticle, error) {
	if q.Limit <= 0 {
		return nil, nil
	}

	ids := domain.UniqueIDs(q.InterestIDs)
	avg := "0.0"
	if len(ids) > 0 {
		avg = "COALESCE(AVG(ais.score), 0)"
	}
	relevance := fmt.Sprintf("(ajs.score * %s + %s * %s)", formatWeight(q.JobWeight), avg, formatWeight(q.InterestWeight))

	sel := s.sq.Select(
		"a.id", "a.link", "a.title", "a.summary", "a.category", "a.subcategory",
		"a.is_article", "a.published_on", "a.image_url", "a.created_at",
		"ajs.score AS job_score",
		avg+" AS avg_interest_score",
		relevance+" AS relevance_score",
	).
		From("articles a").
		Join("article_job_scores ajs ON ajs.article_id = a.id")

	if len(ids) > 0 {
		args := make([]any, len(ids))
		for i, id := range ids {
			args[i] = id
		}
		sel = sel.LeftJoin(
			"article_interest_scores ais ON ais.article_id = a.id AND ais.interest_id IN ("+sq.Placeholders(len(ids))+")",
			args...,
		)
	}

	query, args, err := sel.
		Where(sq.Eq{"ajs.job": string(q.Job)}).
		GroupBy("a.id", "ajs.score").
		OrderBy("relevance_score DESC", "a.id DESC").
		Limit(uint64(q.Limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build ranking: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ranking: %w", err)
	}

	var out []domain.ScoredArticle
	for rows.Next() {
		var (
			item                             domain.ScoredArticle
			category, subcategory, published sql.NullString
			image                            sql.NullString
			created                          any
		)
		if err := rows.Scan(
			&item.Article.ID, &item.Article.Link, &item.Article.Title, &item.Article.Summary,
			&category, &subcategory, &item.Article.IsArticle, &published, &image, &created,
			&item.JobScore, &item.AvgInterestScore, &item.Relevance,
		); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan ranked article: %w", err)
		}
		item.Article.Category = category.String
		item.Article.Subcategory = subcategory.String
		item.Article.PublishedOn = published.String
		item.Article.ImageURL = image.String
		item.Article.CreatedAt = parseTimestamp(created)
		item.JobScore = round2(item.JobScore)
		item.AvgInterestScore = round2(item.AvgInterestScore)
		item.Relevance = round2(item.Relevance)
		out = append(out, item)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("ranking rows: %w", rowsErr)
	}
	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close ranking rows: %w", closeErr)
	}
	return out, nil
}

func formatWeight(w float64) string {
	s := strconv.FormatFloat(w, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
