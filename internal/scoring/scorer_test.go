package scoring

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SecFeed/internal/domain"
	"SecFeed/internal/logging"
	"SecFeed/internal/ports"
)

type fakeCompleter struct {
	response string
	err      error
	prompts  []ports.CompletionRequest
	block    bool
}

func (f *fakeCompleter) Complete(ctx context.Context, req ports.CompletionRequest) (string, error) {
	f.prompts = append(f.prompts, req)
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.response, f.err
}

var testInterests = []domain.Interest{
	{ID: 1, Name: "Vulnerability Research & Exploit Development"},
	{ID: 2, Name: "Application Security & Secure Coding"},
	{ID: 3, Name: "Network Security & Firewalls"},
}

func TestParseScoresWellFormed(t *testing.T) {
	t.Parallel()

	resp := "Sure!\nJOB_SCORES: 85,45,60,30,90,20\nINTEREST_SCORES: 80, 50, 40\n"
	got := ParseScores(resp, domain.AllJobs(), 3)

	require.False(t, got.Degraded())
	require.NoError(t, got.Cause)
	assert.Equal(t, 85.0, got.JobScores[domain.JobSecurityEngineer])
	assert.Equal(t, 20.0, got.JobScores[domain.JobOther])
	assert.Equal(t, []float64{80, 50, 40}, got.InterestScores)
}

func TestParseScoresClampsOutOfRange(t *testing.T) {
	t.Parallel()

	resp := "job_scores: 150,-20,100.5,0,99.9,42\nINTEREST_SCORES: -1,1000,55"
	got := ParseScores(resp, domain.AllJobs(), 3)

	require.False(t, got.Degraded())
	assert.Equal(t, 100.0, got.JobScores[domain.JobSecurityEngineer])
	assert.Equal(t, 0.0, got.JobScores[domain.JobSoftwareDeveloper])
	assert.Equal(t, 100.0, got.JobScores[domain.JobDevOpsSRE])
	assert.Equal(t, 99.9, got.JobScores[domain.JobSecurityAnalyst])
	assert.Equal(t, []float64{0, 100, 55}, got.InterestScores)
}

func TestParseScoresPadsAndTruncates(t *testing.T) {
	t.Parallel()

	resp := "JOB_SCORES: 10,20\nINTEREST_SCORES: 1,2,3,4,5"
	got := ParseScores(resp, domain.AllJobs(), 3)

	require.False(t, got.Degraded())
	assert.Equal(t, 10.0, got.JobScores[domain.JobSecurityEngineer])
	assert.Equal(t, 20.0, got.JobScores[domain.JobSoftwareDeveloper])
	assert.Equal(t, 0.0, got.JobScores[domain.JobOther])
	assert.Len(t, got.JobScores, 6)
	assert.Equal(t, []float64{1, 2, 3}, got.InterestScores)
}

func TestParseScoresDegradesPerDimension(t *testing.T) {
	t.Parallel()

	resp := "JOB_SCORES: 70,70,70,70,70,70\nINTEREST_SCORES: high, low"
	got := ParseScores(resp, domain.AllJobs(), 3)

	assert.False(t, got.JobsDegraded)
	assert.True(t, got.InterestsDegraded)
	assert.Error(t, got.Cause)
	assert.Equal(t, 70.0, got.JobScores[domain.JobOther])
	assert.Equal(t, []float64{0, 0, 0}, got.InterestScores)
}

func TestParseScoresGarbage(t *testing.T) {
	t.Parallel()

	got := ParseScores("I cannot rate this article.", domain.AllJobs(), 3)

	assert.True(t, got.JobsDegraded)
	assert.True(t, got.InterestsDegraded)
	for _, job := range domain.AllJobs() {
		assert.Equal(t, 0.0, got.JobScores[job], job)
	}
	assert.Equal(t, []float64{0, 0, 0}, got.InterestScores)
}

func TestParseScoresMalformedNumber(t *testing.T) {
	t.Parallel()

	got := ParseScores("JOB_SCORES: 1.2.3,4\nINTEREST_SCORES: 5,6,7", domain.AllJobs(), 3)

	assert.True(t, got.JobsDegraded)
	assert.False(t, got.InterestsDegraded)
	assert.Equal(t, 0.0, got.JobScores[domain.JobSecurityEngineer])
	assert.Equal(t, []float64{5, 6, 7}, got.InterestScores)
}

func TestParseScoresWordTokenDegradesDimension(t *testing.T) {
	t.Parallel()

	resp := "JOB_SCORES: 85, 45, sixty, 30, 90, 20\nINTEREST_SCORES: 10, 20, 30"
	got := ParseScores(resp, domain.AllJobs(), 3)

	assert.True(t, got.JobsDegraded)
	assert.False(t, got.InterestsDegraded)
	assert.ErrorContains(t, got.Cause, "sixty")
	for _, job := range domain.AllJobs() {
		assert.Equal(t, 0.0, got.JobScores[job], job)
	}
	assert.Equal(t, []float64{10, 20, 30}, got.InterestScores)
}

func TestParseScoresTrailingWordDegrades(t *testing.T) {
	t.Parallel()

	got := ParseScores("JOB_SCORES: 1,2,3,4,5,6\nINTEREST_SCORES: 7, 8, 9 (approximate)", domain.AllJobs(), 3)

	assert.False(t, got.JobsDegraded)
	assert.True(t, got.InterestsDegraded)
	assert.Equal(t, []float64{0, 0, 0}, got.InterestScores)
}

func TestParseScoresValuesOnNextLine(t *testing.T) {
	t.Parallel()

	resp := "JOB_SCORES:\n60,50,40,30,20,10\r\nINTEREST_SCORES:\n 5,6,7\n"
	got := ParseScores(resp, domain.AllJobs(), 3)

	require.False(t, got.Degraded(), "%v", got.Cause)
	assert.Equal(t, 60.0, got.JobScores[domain.JobSecurityEngineer])
	assert.Equal(t, 10.0, got.JobScores[domain.JobOther])
	assert.Equal(t, []float64{5, 6, 7}, got.InterestScores)
}

func TestParseScoresEmptyLineDegrades(t *testing.T) {
	t.Parallel()

	got := ParseScores("JOB_SCORES: 1,2,3,4,5,6\nINTEREST_SCORES:", domain.AllJobs(), 3)

	assert.False(t, got.JobsDegraded)
	assert.True(t, got.InterestsDegraded)
}

func TestScoreDegradesOnCompleterError(t *testing.T) {
	t.Parallel()

	completer := &fakeCompleter{err: errors.New("connection refused")}
	s := New(completer, Options{}, logging.Discard())

	got := s.Score(context.Background(), strings.Repeat("a", 100), domain.AllJobs(), testInterests)

	assert.True(t, got.JobsDegraded)
	assert.True(t, got.InterestsDegraded)
	assert.ErrorContains(t, got.Cause, "connection refused")
	assert.Len(t, got.JobScores, 6)
	assert.Equal(t, []float64{0, 0, 0}, got.InterestScores)
}

func TestScoreTimeoutIsLocalDegradation(t *testing.T) {
	t.Parallel()

	completer := &fakeCompleter{block: true}
	s := New(completer, Options{ScoringTimeout: 10 * time.Millisecond}, logging.Discard())

	got := s.Score(context.Background(), strings.Repeat("a", 100), domain.AllJobs(), testInterests)

	assert.True(t, got.Degraded())
	assert.ErrorIs(t, got.Cause, context.DeadlineExceeded)
}

func TestScoreTruncatesPromptText(t *testing.T) {
	t.Parallel()

	completer := &fakeCompleter{response: "JOB_SCORES: 1,2,3,4,5,6\nINTEREST_SCORES: 7,8,9"}
	s := New(completer, Options{ScoringBudget: 10}, logging.Discard())

	text := "0123456789ABCDEFGHIJ"
	got := s.Score(context.Background(), text, domain.AllJobs(), testInterests)

	require.False(t, got.Degraded())
	require.Len(t, completer.prompts, 1)
	prompt := completer.prompts[0].Prompt
	assert.Contains(t, prompt, "0123456789")
	assert.NotContains(t, prompt, "ABCDEFGHIJ")
	assert.Contains(t, prompt, "3. Network Security & Firewalls")
	assert.Contains(t, prompt, "3. DevOps/SRE")
	assert.Equal(t, scoringTemperature, completer.prompts[0].Temperature)
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	completer := &fakeCompleter{response: "  One. Two. Three.  "}
	s := New(completer, Options{SummaryBudget: 5}, logging.Discard())

	got := s.Summarize(context.Background(), "абвгдежзий")

	assert.False(t, got.Degraded)
	assert.Equal(t, "One. Two. Three.", got.Text)
	prompt := completer.prompts[0].Prompt
	assert.Contains(t, prompt, "exactly 3 sentences")
	assert.Contains(t, prompt, "абвгд\n")
	assert.NotContains(t, prompt, "е")
}

func TestSummarizeFailureReturnsEmpty(t *testing.T) {
	t.Parallel()

	s := New(&fakeCompleter{err: errors.New("boom")}, Options{}, logging.Discard())
	got := s.Summarize(context.Background(), strings.Repeat("x", 80))

	assert.True(t, got.Degraded)
	assert.Empty(t, got.Text)
}

func TestScorable(t *testing.T) {
	t.Parallel()

	assert.False(t, Scorable("   short text   "))
	assert.False(t, Scorable(strings.Repeat(" ", 60)+strings.Repeat("x", 49)))
	assert.True(t, Scorable(strings.Repeat("x", 50)))
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "hello", Truncate("hello", 10))
	assert.Equal(t, "hel", Truncate("hello", 3))
	assert.Equal(t, "日本", Truncate("日本語", 2))
	assert.Equal(t, "hello", Truncate("hello", 0))
}
