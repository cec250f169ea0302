package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"SecFeed/internal/domain"
	"SecFeed/internal/ports"
	"SecFeed/internal/scoring"
)

// DefaultKnownLinks bounds the in-process cache of links already in the store.
const DefaultKnownLinks = 4096

// PipelineDeps wires the driven adapters into the ingestion pipeline.
type PipelineDeps struct {
	Source   ports.ArticleSource
	Store    ports.ArticleStore
	Scorer   ports.Scorer
	Notifier ports.Notifier
	Recorder ports.Recorder
	Logger   *slog.Logger
	// KnownLinks sizes the dedup cache; zero uses DefaultKnownLinks.
	KnownLinks int
}

// Pipeline implements the article-ingestion workflow.
type Pipeline struct {
	source   ports.ArticleSource
	store    ports.ArticleStore
	scorer   ports.Scorer
	notifier ports.Notifier
	recorder ports.Recorder
	logger   *slog.Logger
	known    *lru.Cache[string, struct{}]
}

// Outcome is the terminal state of one candidate.
type Outcome struct {
	Link      string
	State     domain.IngestState
	ArticleID int64
	Inserted  bool
	Degraded  bool
	Err       error
}

// RunOptions control a crawl over the listing pages.
type RunOptions struct {
	StartURL string
	// MaxPages stops after this many index pages; zero means no limit.
	MaxPages int
	// UntilSaved stops the run at the first link already in the store.
	UntilSaved bool
}

// RunReport counts candidates by terminal state.
type RunReport struct {
	Pages  int
	States map[domain.IngestState]int
}

// Inserted is the number of new articles persisted during the run.
func (r RunReport) Inserted() int {
	return r.States[domain.StatePersisted]
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) (*Pipeline, error) {
	if deps.Source == nil || deps.Store == nil || deps.Scorer == nil {
		return nil, errors.New("pipeline requires source, store and scorer")
	}

	size := deps.KnownLinks
	if size <= 0 {
		size = DefaultKnownLinks
	}
	known, err := lru.New[string, struct{}](size)
	if err != nil {
		return nil, fmt.Errorf("known links cache: %w", err)
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Pipeline{
		source:   deps.Source,
		store:    deps.Store,
		scorer:   deps.Scorer,
		notifier: deps.Notifier,
		recorder: deps.Recorder,
		logger:   logger.With("component", "pipeline"),
		known:    known,
	}, nil
}

// Run walks index pages from opts.StartURL following the older-posts link
// and ingests every discovered link. A failed candidate never stops the run;
// a failed index page does.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (RunReport, error) {
	report := RunReport{States: make(map[domain.IngestState]int)}

	pageURL := opts.StartURL
	for pageURL != "" {
		if opts.MaxPages > 0 && report.Pages >= opts.MaxPages {
			p.logger.Info("page limit reached", "max_pages", opts.MaxPages)
			break
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}

		page, err := p.source.Discover(ctx, pageURL)
		if err != nil {
			return report, fmt.Errorf("discover %s: %w", pageURL, err)
		}
		report.Pages++
		p.logger.Info("index page loaded", "page", report.Pages, "url", pageURL, "links", len(page.Links))

		for _, link := range page.Links {
			if err := ctx.Err(); err != nil {
				return report, err
			}

			outcome := p.Ingest(ctx, link)
			report.States[outcome.State]++

			if outcome.State == domain.StateDuplicate && opts.UntilSaved {
				p.logger.Info("reached saved article, stopping", "link", link)
				return report, nil
			}
		}

		pageURL = page.Next
	}

	p.logger.Info("run finished",
		"pages", report.Pages,
		"persisted", report.States[domain.StatePersisted],
		"duplicates", report.States[domain.StateDuplicate],
		"failed", report.States[domain.StateFailed])
	return report, nil
}

// Ingest moves a single link through dedup, extraction, scoring and
// persistence. Errors are carried in the outcome, never returned.
func (p *Pipeline) Ingest(ctx context.Context, link string) Outcome {
	log := p.logger.With("link", link)
	p.observe(domain.StateDiscovered)

	duplicate, err := p.isKnown(ctx, link)
	if err != nil {
		return p.fail(log, link, fmt.Errorf("dedup: %w", err))
	}
	if duplicate {
		log.Debug("skipping known link", "state", domain.StateDuplicate)
		return p.finish(Outcome{Link: link, State: domain.StateDuplicate})
	}

	candidate, err := p.source.Extract(ctx, link)
	if err != nil {
		return p.fail(log, link, fmt.Errorf("extract: %w", err))
	}
	if candidate.Link == "" {
		candidate.Link = link
	}
	p.observe(domain.StateExtracted)

	article, scores, state, degraded, err := p.score(ctx, log, candidate)
	if err != nil {
		return p.fail(log, link, err)
	}
	p.observe(state)

	id, inserted, err := p.store.SaveScoredArticle(ctx, article, scores)
	if err != nil {
		return p.fail(log, link, fmt.Errorf("persist: %w", err))
	}
	p.known.Add(link, struct{}{})

	if !inserted {
		// Another writer stored it between the dedup check and our insert.
		log.Debug("article already stored", "state", domain.StateDuplicate, "article_id", id)
		return p.finish(Outcome{Link: link, State: domain.StateDuplicate, ArticleID: id})
	}

	log.Info("article persisted", "state", domain.StatePersisted, "article_id", id, "degraded", degraded)
	p.notify(ctx, log, article)

	return p.finish(Outcome{
		Link:      link,
		State:     domain.StatePersisted,
		ArticleID: id,
		Inserted:  true,
		Degraded:  degraded,
	})
}

func (p *Pipeline) score(ctx context.Context, log *slog.Logger, candidate domain.Candidate) (domain.Article, domain.ArticleScores, domain.IngestState, bool, error) {
	text := candidate.ScoringText()
	if !scoring.Scorable(text) {
		log.Warn("insufficient text for scoring", "state", domain.StateScoringSkipped)
		return domain.NewArticle(candidate, ""), domain.ArticleScores{}, domain.StateScoringSkipped, false, nil
	}

	interests, err := p.store.ListInterests(ctx)
	if err != nil {
		return domain.Article{}, domain.ArticleScores{}, "", false, fmt.Errorf("list interests: %w", err)
	}

	summary := p.scorer.Summarize(ctx, text)
	if summary.Degraded {
		p.observeDegraded("summary")
		log.Warn("summary degraded", "error", summary.Cause)
	}

	result := p.scorer.Score(ctx, text, domain.AllJobs(), interests)
	if result.JobsDegraded {
		p.observeDegraded("jobs")
	}
	if result.InterestsDegraded {
		p.observeDegraded("interests")
	}
	if result.Degraded() {
		log.Warn("scores degraded", "jobs", result.JobsDegraded, "interests", result.InterestsDegraded, "error", result.Cause)
	}

	degraded := summary.Degraded || result.Degraded()
	return domain.NewArticle(candidate, summary.Text), domain.ScoresFor(result, interests), domain.StateScored, degraded, nil
}

func (p *Pipeline) isKnown(ctx context.Context, link string) (bool, error) {
	if p.known.Contains(link) {
		return true, nil
	}
	exists, err := p.store.Exists(ctx, link)
	if err != nil {
		return false, err
	}
	if exists {
		p.known.Add(link, struct{}{})
	}
	return exists, nil
}

func (p *Pipeline) notify(ctx context.Context, log *slog.Logger, article domain.Article) {
	if p.notifier == nil {
		return
	}
	err := p.notifier.NotifyArticle(ctx, article.Link, article.Title, article.Summary)
	if p.recorder != nil {
		p.recorder.ObserveNotification(err)
	}
	if err != nil {
		log.Warn("notification failed", "error", err)
	}
}

func (p *Pipeline) fail(log *slog.Logger, link string, err error) Outcome {
	log.Error("candidate failed", "state", domain.StateFailed, "error", err)
	return p.finish(Outcome{Link: link, State: domain.StateFailed, Err: err})
}

func (p *Pipeline) finish(o Outcome) Outcome {
	p.observe(o.State)
	return o
}

func (p *Pipeline) observe(state domain.IngestState) {
	if p.recorder != nil {
		p.recorder.ObserveIngest(state)
	}
}

func (p *Pipeline) observeDegraded(dimension string) {
	if p.recorder != nil {
		p.recorder.ObserveDegraded(dimension)
	}
}
