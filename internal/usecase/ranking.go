package usecase

import (
	"context"
	"errors"
	"fmt"

	"SecFeed/internal/domain"
	"SecFeed/internal/ports"
)

const (
	DefaultJobWeight      = 0.4
	DefaultInterestWeight = 0.6

	DefaultRankLimit = 10
	MaxRankLimit     = 100
)

// RankerOptions override the relevance weights and result limits.
type RankerOptions struct {
	JobWeight      float64
	InterestWeight float64
	DefaultLimit   int
	MaxLimit       int
}

// Ranker computes personalized feeds.
type Ranker struct {
	store ports.RankingStore
	users ports.UserStore
	opts  RankerOptions
}

// NewRanker fills zero options with the defaults.
func NewRanker(store ports.RankingStore, users ports.UserStore, opts RankerOptions) *Ranker {
	if opts.JobWeight == 0 && opts.InterestWeight == 0 {
		opts.JobWeight = DefaultJobWeight
		opts.InterestWeight = DefaultInterestWeight
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = DefaultRankLimit
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = MaxRankLimit
	}
	return &Ranker{store: store, users: users, opts: opts}
}

// Rank returns the top articles for a job and interest set.
func (r *Ranker) Rank(ctx context.Context, job domain.Job, interestIDs []int64, limit int) ([]domain.ScoredArticle, error) {
	if r == nil || r.store == nil {
		return nil, errors.New("ranker has no store")
	}
	if !job.Valid() {
		return nil, &domain.ValidationError{Field: "job", Message: fmt.Sprintf("unknown job %q", job)}
	}

	out, err := r.store.RankArticles(ctx, ports.RankQuery{
		Job:            job,
		InterestIDs:    domain.UniqueIDs(interestIDs),
		Limit:          r.Limit(limit),
		JobWeight:      r.opts.JobWeight,
		InterestWeight: r.opts.InterestWeight,
	})
	if err != nil {
		return nil, fmt.Errorf("rank articles: %w", err)
	}
	if out == nil {
		out = []domain.ScoredArticle{}
	}
	return out, nil
}

// RankForUser loads the user's job and interests and ranks for them.
func (r *Ranker) RankForUser(ctx context.Context, userID int64, limit int) ([]domain.ScoredArticle, error) {
	if r == nil || r.users == nil {
		return nil, errors.New("ranker has no user store")
	}

	user, err := r.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(user.Interests))
	for i, interest := range user.Interests {
		ids[i] = interest.ID
	}
	return r.Rank(ctx, user.Job, ids, limit)
}

// Limit normalizes a requested result count.
func (r *Ranker) Limit(limit int) int {
	if limit <= 0 {
		return r.opts.DefaultLimit
	}
	if limit > r.opts.MaxLimit {
		return r.opts.MaxLimit
	}
	return limit
}
