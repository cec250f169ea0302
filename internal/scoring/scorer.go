package scoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"SecFeed/internal/domain"
	"SecFeed/internal/ports"
)

const (
	// MinScorableLength is the trimmed character count below which callers skip scoring.
	MinScorableLength = 50

	DefaultScoringBudget    = 3000
	DefaultSummaryBudget    = 4000
	DefaultSummarySentences = 3

	scoringTemperature = 0.3
	summaryTemperature = 0.5
)

// Options tunes prompt budgets and per-call timeouts.
type Options struct {
	ScoringBudget    int
	SummaryBudget    int
	SummarySentences int
	ScoringTimeout   time.Duration
	SummaryTimeout   time.Duration
}

// Scorer turns article text into bounded relevance scores via a Completer.
type Scorer struct {
	completer ports.Completer
	opts      Options
	logger    *slog.Logger
}

var _ ports.Scorer = (*Scorer)(nil)

// New builds a scorer; zero options fall back to defaults.
func New(completer ports.Completer, opts Options, logger *slog.Logger) *Scorer {
	if opts.ScoringBudget <= 0 {
		opts.ScoringBudget = DefaultScoringBudget
	}
	if opts.SummaryBudget <= 0 {
		opts.SummaryBudget = DefaultSummaryBudget
	}
	if opts.SummarySentences <= 0 {
		opts.SummarySentences = DefaultSummarySentences
	}
	if opts.ScoringTimeout <= 0 {
		opts.ScoringTimeout = 120 * time.Second
	}
	if opts.SummaryTimeout <= 0 {
		opts.SummaryTimeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{completer: completer, opts: opts, logger: logger}
}

// Scorable reports whether text is long enough to be worth a model call.
func Scorable(text string) bool {
	return len([]rune(strings.TrimSpace(text))) >= MinScorableLength
}

// Score asks the model for every job and interest score in one call.
func (s *Scorer) Score(ctx context.Context, text string, jobs []domain.Job, interests []domain.Interest) domain.ScoreResult {
	if s == nil || s.completer == nil {
		return domain.ZeroScores(jobs, interests, errors.New("scorer has no completer"))
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.ScoringTimeout)
	defer cancel()

	prompt := buildScoringPrompt(Truncate(text, s.opts.ScoringBudget), jobs, interests)
	response, err := s.completer.Complete(ctx, ports.CompletionRequest{
		Prompt:      prompt,
		Temperature: scoringTemperature,
	})
	if err != nil {
		s.logger.Warn("scoring call failed", "error", err)
		return domain.ZeroScores(jobs, interests, fmt.Errorf("complete scoring prompt: %w", err))
	}

	result := ParseScores(response, jobs, len(interests))
	if result.Degraded() {
		s.logger.Warn("scoring response partially unparsable",
			"jobs_degraded", result.JobsDegraded,
			"interests_degraded", result.InterestsDegraded,
			"error", result.Cause)
	}
	return result
}

// Summarize produces a short fixed-sentence synopsis, or an empty string on failure.
func (s *Scorer) Summarize(ctx context.Context, text string) domain.SummaryResult {
	if s == nil || s.completer == nil {
		return domain.SummaryResult{Degraded: true, Cause: errors.New("scorer has no completer")}
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.SummaryTimeout)
	defer cancel()

	prompt := buildSummaryPrompt(Truncate(text, s.opts.SummaryBudget), s.opts.SummarySentences)
	response, err := s.completer.Complete(ctx, ports.CompletionRequest{
		Prompt:      prompt,
		Temperature: summaryTemperature,
	})
	if err != nil {
		s.logger.Warn("summary call failed", "error", err)
		return domain.SummaryResult{Degraded: true, Cause: fmt.Errorf("complete summary prompt: %w", err)}
	}

	summary := strings.TrimSpace(response)
	if summary == "" {
		return domain.SummaryResult{Degraded: true, Cause: errors.New("empty summary response")}
	}
	return domain.SummaryResult{Text: summary}
}

// Truncate cuts text to at most budget characters.
func Truncate(text string, budget int) string {
	if budget <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= budget {
		return text
	}
	return string(runes[:budget])
}

func buildScoringPrompt(text string, jobs []domain.Job, interests []domain.Interest) string {
	var b strings.Builder
	b.WriteString("You are an expert content analyzer. Rate how relevant this article is for different job roles and interests.\n\n")
	b.WriteString("Article text:\n")
	b.WriteString(text)
	b.WriteString("\n\nPlease rate the relevance of this article for each of the following:\n\nJOB ROLES:\n")
	for i, job := range jobs {
		fmt.Fprintf(&b, "%d. %s\n", i+1, job)
	}
	b.WriteString("\nINTERESTS:\n")
	for i, interest := range interests {
		fmt.Fprintf(&b, "%d. %s\n", i+1, interest.Name)
	}
	b.WriteString(`
Provide a score from 0 to 100 for EACH item, where:
- 0 means completely irrelevant
- 100 means extremely relevant and important

Respond in the following format (ONLY numbers, in the order listed above):
JOB_SCORES: score1,score2,score3,...
INTEREST_SCORES: score1,score2,score3,...`)
	return b.String()
}

func buildSummaryPrompt(text string, sentences int) string {
	return fmt.Sprintf(`Summarize the following article in exactly %d sentences. Be concise and capture the main points.

Article text:
%s

Provide ONLY the summary, nothing else.`, sentences, text)
}
