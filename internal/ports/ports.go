package ports

import (
	"context"
	"time"

	"SecFeed/internal/domain"
)

// IndexPage is one listing page of the news site.
type IndexPage struct {
	Links []string
	// Next is the older-posts page, empty on the last page.
	Next string
}

// ArticleSource discovers links and extracts article text from the news site.
type ArticleSource interface {
	Discover(ctx context.Context, pageURL string) (IndexPage, error)
	Extract(ctx context.Context, link string) (domain.Candidate, error)
}

// ArticleStore persists articles and their scores.
type ArticleStore interface {
	Exists(ctx context.Context, link string) (bool, error)
	InsertArticle(ctx context.Context, article domain.Article) (int64, bool, error)
	UpsertJobScore(ctx context.Context, articleID int64, job domain.Job, score float64) error
	UpsertInterestScore(ctx context.Context, articleID, interestID int64, score float64) error
	// SaveScoredArticle writes the article and its score rows as one unit.
	SaveScoredArticle(ctx context.Context, article domain.Article, scores domain.ArticleScores) (int64, bool, error)
	ListInterests(ctx context.Context) ([]domain.Interest, error)
}

// UserStore keeps users and their interest sets.
type UserStore interface {
	GetUser(ctx context.Context, id int64) (domain.User, error)
	UserExists(ctx context.Context, id int64) (bool, error)
	CreateUser(ctx context.Context, job domain.Job, interestIDs []int64) (int64, error)
	UpdateUser(ctx context.Context, id int64, patch domain.UserPatch) error
	ListInterests(ctx context.Context) ([]domain.Interest, error)
}

// RankQuery parameterizes the ranking aggregation.
type RankQuery struct {
	Job            domain.Job
	InterestIDs    []int64
	Limit          int
	JobWeight      float64
	InterestWeight float64
}

// RankingStore runs the weighted aggregation over persisted scores.
type RankingStore interface {
	RankArticles(ctx context.Context, q RankQuery) ([]domain.ScoredArticle, error)
}

// RecipientStore persists Telegram chat registrations.
type RecipientStore interface {
	ListRecipients(ctx context.Context) ([]domain.Recipient, error)
	SaveRecipient(ctx context.Context, r domain.Recipient) error
}

// Scorer rates article text against jobs and interests. It never fails:
// problems are reported as degraded results.
type Scorer interface {
	Score(ctx context.Context, text string, jobs []domain.Job, interests []domain.Interest) domain.ScoreResult
	Summarize(ctx context.Context, text string) domain.SummaryResult
}

// CompletionRequest is a single-prompt call to a language model.
type CompletionRequest struct {
	Prompt      string
	Temperature float64
}

// Completer is the language-model backend (Ollama, OpenAI-compatible, ...).
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Notifier announces a freshly persisted article to every recipient.
type Notifier interface {
	NotifyArticle(ctx context.Context, link, title, summary string) error
}

// Recorder observes pipeline transitions for metrics.
type Recorder interface {
	ObserveIngest(state domain.IngestState)
	ObserveDegraded(dimension string)
	ObserveNotification(err error)
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
