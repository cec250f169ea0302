package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"SecFeed/internal/config"
	"SecFeed/internal/domain"
	"SecFeed/internal/httpapi"
	"SecFeed/internal/infrastructure/llm"
	"SecFeed/internal/infrastructure/metrics"
	"SecFeed/internal/infrastructure/parser"
	"SecFeed/internal/infrastructure/scheduler"
	"SecFeed/internal/infrastructure/storage"
	"SecFeed/internal/infrastructure/telegram"
	"SecFeed/internal/logging"
	"SecFeed/internal/ports"
	"SecFeed/internal/scanner"
	"SecFeed/internal/scoring"
	"SecFeed/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	store    *storage.Store
	metrics  *metrics.Recorder
	pipeline *usecase.Pipeline
	users    *usecase.Users
	ranker   *usecase.Ranker

	// Telegram is optional; all three stay nil without a bot token.
	botAPI   *tgbotapi.BotAPI
	registry *telegram.Registry
	bot      *telegram.Bot
}

// New opens the store and builds every component. Close releases them.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	store, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	a := &Application{
		cfg:     cfg,
		logger:  baseLogger,
		store:   store,
		metrics: metrics.New(),
		users:   usecase.NewUsers(store),
		ranker: usecase.NewRanker(store, store, usecase.RankerOptions{
			JobWeight:      cfg.Ranking.JobWeight,
			InterestWeight: cfg.Ranking.InterestWeight,
			DefaultLimit:   cfg.Ranking.DefaultLimit,
			MaxLimit:       cfg.Ranking.MaxLimit,
		}),
	}

	if err := a.build(); err != nil {
		_ = store.Close()
		return nil, err
	}
	return a, nil
}

func (a *Application) build() error {
	registry := scanner.NewRegistry()
	thn, err := parser.NewTheHackerNewsScanner(a.cfg.Source, nil)
	if err != nil {
		return fmt.Errorf("build scanner: %w", err)
	}
	if err := registry.Register(thn); err != nil {
		return err
	}

	source, err := parser.NewStrategySource(registry, a.cfg.Source.Scanner, a.logger.With("component", "source"))
	if err != nil {
		return err
	}

	completer, err := llm.NewCompleter(a.cfg.LLM)
	if err != nil {
		return fmt.Errorf("build completer: %w", err)
	}
	scorer := scoring.New(completer, scoring.Options{
		ScoringBudget:    a.cfg.LLM.ScoringBudget,
		SummaryBudget:    a.cfg.LLM.SummaryBudget,
		SummarySentences: a.cfg.LLM.SummarySentences,
		ScoringTimeout:   a.cfg.LLM.ScoringTimeout,
		SummaryTimeout:   a.cfg.LLM.SummaryTimeout,
	}, a.logger.With("component", "scorer"))

	var notifier ports.Notifier
	if a.cfg.Notifications.Telegram.BotToken != "" {
		if notifier, err = a.buildTelegram(); err != nil {
			return err
		}
	} else {
		a.logger.Warn("telegram bot token not set, notifications disabled")
	}

	a.pipeline, err = usecase.NewPipeline(usecase.PipelineDeps{
		Source:   source,
		Store:    a.store,
		Scorer:   scorer,
		Notifier: notifier,
		Recorder: a.metrics,
		Logger:   a.logger,
	})
	return err
}

func (a *Application) buildTelegram() (*telegram.Notifier, error) {
	api, sendAPI, err := telegram.NewBotAPIs(a.cfg.Notifications.Telegram)
	if err != nil {
		return nil, fmt.Errorf("connect telegram: %w", err)
	}
	sender := telegram.NewAPISender(sendAPI)

	a.botAPI = api
	a.registry = telegram.NewRegistry(a.store)
	a.bot = telegram.NewBot(api, sender, a.registry, a.store, a.logger)
	return telegram.NewNotifier(sender, a.registry, a.cfg.Notifications.Telegram.Timeout, a.logger), nil
}

// Migrate creates the schema and seeds the interest catalogue.
func (a *Application) Migrate(ctx context.Context) error {
	if err := a.store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Scrape performs a single ingestion run. Unset options fall back to the
// source config.
func (a *Application) Scrape(ctx context.Context, opts usecase.RunOptions) (usecase.RunReport, error) {
	if err := a.prepare(ctx); err != nil {
		return usecase.RunReport{}, err
	}
	if opts.StartURL == "" {
		opts.StartURL = a.cfg.Source.StartURL
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = a.cfg.Source.MaxPages
	}
	opts.UntilSaved = opts.UntilSaved || a.cfg.Source.UntilSaved

	report, err := a.pipeline.Run(ctx, opts)
	a.logger.Info("scrape finished",
		"pages", report.Pages,
		"persisted", report.Inserted(),
		"duplicates", report.States[domain.StateDuplicate],
		"failed", report.States[domain.StateFailed])
	return report, err
}

// Router exposes the HTTP API handler.
func (a *Application) Router() http.Handler {
	return httpapi.NewRouter(httpapi.Deps{
		Users:          a.users,
		Ranker:         a.ranker,
		Health:         a.store,
		Metrics:        a.metrics,
		Logger:         a.logger,
		AllowedOrigins: a.cfg.HTTP.AllowedOrigins,
	})
}

// Serve runs the API, the Telegram poller and scheduled ingestion until ctx
// is cancelled or one of them fails.
func (a *Application) Serve(ctx context.Context) error {
	if err := a.prepare(ctx); err != nil {
		return err
	}

	driver, err := scheduler.NewCronScheduler(a.cfg.Scheduler.CronExpression, a.cfg.Scheduler.Location(), a.cfg.Scheduler.RunOnStart)
	if err != nil {
		return err
	}
	jobs := usecase.NewScheduler(driver, a.pipeline, a.scheduledRunOptions(), a.logger)

	server := httpapi.NewServer(a.cfg.HTTP, a.Router(), a.logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(ctx)
	})
	if a.bot != nil {
		g.Go(func() error {
			return a.bot.Run(ctx)
		})
	}
	g.Go(func() error {
		if err := jobs.Start(ctx); err != nil {
			return err
		}
		a.logger.Info("ingestion scheduled", "cron", a.cfg.Scheduler.CronExpression, "next", driver.Next())
		<-ctx.Done()
		return jobs.Stop(context.Background())
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// scheduledRunOptions keeps recurring runs incremental: they stop at the
// first stored article unless a full crawl is configured.
func (a *Application) scheduledRunOptions() usecase.RunOptions {
	maxPages := a.cfg.Scheduler.MaxPages
	if maxPages <= 0 {
		maxPages = a.cfg.Source.MaxPages
	}
	return usecase.RunOptions{
		StartURL:   a.cfg.Source.StartURL,
		MaxPages:   maxPages,
		UntilSaved: !a.cfg.Scheduler.FullCrawl,
	}
}

// Close releases the database pool.
func (a *Application) Close() error {
	if a == nil {
		return nil
	}
	return a.store.Close()
}

func (a *Application) prepare(ctx context.Context) error {
	if err := a.Migrate(ctx); err != nil {
		return err
	}
	if a.registry != nil {
		if err := a.registry.Load(ctx); err != nil {
			return fmt.Errorf("load telegram recipients: %w", err)
		}
		a.logger.Info("telegram bot authorized", "username", a.botAPI.Self.UserName, "recipients", len(a.registry.Recipients()))
	}
	return nil
}
