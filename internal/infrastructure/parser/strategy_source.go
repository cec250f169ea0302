package parser

import (
	"context"
	"fmt"
	"log/slog"

	"SecFeed/internal/domain"
	"SecFeed/internal/ports"
	"SecFeed/internal/scanner"
)

// StrategySource implements ArticleSource via a registered scanner strategy.
type StrategySource struct {
	strategy scanner.Scanner
	logger   *slog.Logger
}

var _ ports.ArticleSource = (*StrategySource)(nil)

// NewStrategySource resolves the configured scanner from the registry.
func NewStrategySource(reg *scanner.Registry, name string, log *slog.Logger) (*StrategySource, error) {
	if reg == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}
	strategy, err := reg.Resolve(name)
	if err != nil {
		return nil, err
	}
	return &StrategySource{strategy: strategy, logger: log}, nil
}

// Discover loads one index page.
func (s *StrategySource) Discover(ctx context.Context, pageURL string) (ports.IndexPage, error) {
	page, err := s.strategy.Discover(ctx, pageURL)
	if err != nil {
		return ports.IndexPage{}, fmt.Errorf("%s discover: %w", s.strategy.Name(), err)
	}
	s.debug("index page parsed", "scanner", s.strategy.Name(), "url", pageURL, "links", len(page.Links), "next", page.Next)
	return ports.IndexPage{Links: page.Links, Next: page.Next}, nil
}

// Extract fetches one article page.
func (s *StrategySource) Extract(ctx context.Context, link string) (domain.Candidate, error) {
	candidate, err := s.strategy.Extract(ctx, link)
	if err != nil {
		return domain.Candidate{}, fmt.Errorf("%s extract: %w", s.strategy.Name(), err)
	}
	s.debug("article extracted", "scanner", s.strategy.Name(), "link", link, "chars", len(candidate.FullText), "is_article", candidate.IsArticle)
	return candidate, nil
}

func (s *StrategySource) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
