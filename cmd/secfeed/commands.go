package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"SecFeed/internal/app"
	"SecFeed/internal/config"
	"SecFeed/internal/logging"
	"SecFeed/internal/usecase"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "secfeed",
		Short: "Personalized security news feed",
		Long: `secfeed scrapes security news, scores every article per job role and
interest with a language model, and serves ranked feeds over HTTP.

Example usage:
  secfeed migrate              # Create tables and seed interests
  secfeed scrape --until-saved # Ingest new articles once
  secfeed serve                # API, Telegram bot and hourly ingestion`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file (default $"+config.ConfigPathEnv+")")

	root.AddCommand(newServeCmd(opts), newScrapeCmd(opts), newMigrateCmd(opts))
	return root
}

func (o *rootOptions) load() (config.Config, *slog.Logger) {
	var cfg config.Config
	if o.configPath != "" {
		cfg = config.LoadFile(o.configPath)
	} else {
		cfg = config.Load()
	}
	return cfg, logging.New(cfg.Logging.Level, cfg.Logging.Format)
}

// withApp builds the application for one command and closes it afterwards.
func (o *rootOptions) withApp(ctx context.Context, fn func(*app.Application, *slog.Logger) error) error {
	cfg, logger := o.load()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := application.Close(); cerr != nil {
			logger.Warn("close application", "error", cerr)
		}
	}()

	return fn(application, logger)
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API, the Telegram bot and scheduled ingestion",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(a *app.Application, logger *slog.Logger) error {
				if err := a.Serve(cmd.Context()); err != nil {
					logger.Error("application stopped", "error", err)
					return err
				}
				logger.Info("application stopped")
				return nil
			})
		},
	}
}

type scrapeOptions struct {
	untilSaved bool
	maxPages   int
	startURL   string
}

func newScrapeCmd(opts *rootOptions) *cobra.Command {
	so := &scrapeOptions{}

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Run one ingestion pass over the news site",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(a *app.Application, _ *slog.Logger) error {
				_, err := a.Scrape(cmd.Context(), so.runOptions())
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&so.untilSaved, "until-saved", false, "stop at the first article already stored")
	cmd.Flags().IntVar(&so.maxPages, "max-pages", 0, "stop after this many index pages (0 = no limit)")
	cmd.Flags().StringVar(&so.startURL, "start-url", "", "first index page (default from config)")
	return cmd
}

func (s *scrapeOptions) runOptions() usecase.RunOptions {
	return usecase.RunOptions{
		StartURL:   s.startURL,
		MaxPages:   s.maxPages,
		UntilSaved: s.untilSaved,
	}
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the schema and seed the interest catalogue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(a *app.Application, logger *slog.Logger) error {
				if err := a.Migrate(cmd.Context()); err != nil {
					return err
				}
				logger.Info("schema ready")
				return nil
			})
		},
	}
}
