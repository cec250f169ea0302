package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SecFeed/internal/config"
	"SecFeed/internal/domain"
	"SecFeed/internal/ports"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	ctx := context.Background()
	store, err := Open(ctx, config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "secfeed.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(ctx))
	return store
}

func sampleArticle(link string) domain.Article {
	return domain.Article{
		Link:        link,
		Title:       "Critical flaw in VPN appliance",
		FullText:    "Attackers are exploiting a pre-auth RCE.",
		Summary:     "One. Two. Three.",
		Category:    "Vulnerability",
		Subcategory: "Network Security",
		IsArticle:   true,
	}
}

func TestMigrateSeedsInterestsIdempotently(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Migrate(ctx))

	interests, err := store.ListInterests(ctx)
	require.NoError(t, err)
	require.Len(t, interests, 36)
	assert.Equal(t, int64(1), interests[0].ID)
	assert.Equal(t, "Vulnerability Research & Exploit Development", interests[0].Name)
	assert.Equal(t, "Web Technologies & Frameworks", interests[35].Name)
}

func TestInsertArticleIsIdempotent(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	first, inserted, err := store.InsertArticle(ctx, sampleArticle("https://example.com/a"))
	require.NoError(t, err)
	require.True(t, inserted)

	changed := sampleArticle("https://example.com/a")
	changed.Title = "Different title"
	second, inserted, err := store.InsertArticle(ctx, changed)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, first, second)

	exists, err := store.Exists(ctx, "https://example.com/a")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.Exists(ctx, "https://example.com/missing")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSaveScoredArticleWritesScoresOnlyOnce(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	scores := domain.ArticleScores{
		Jobs:      map[domain.Job]float64{domain.JobSecurityEngineer: 150, domain.JobOther: -3},
		Interests: map[int64]float64{1: 60, 2: 100},
	}
	id, inserted, err := store.SaveScoredArticle(ctx, sampleArticle("https://example.com/b"), scores)
	require.NoError(t, err)
	require.True(t, inserted)

	again := domain.ArticleScores{Jobs: map[domain.Job]float64{domain.JobSecurityEngineer: 1}}
	id2, inserted, err := store.SaveScoredArticle(ctx, sampleArticle("https://example.com/b"), again)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, id, id2)

	var score float64
	require.NoError(t, store.db.QueryRowContext(ctx,
		"SELECT score FROM article_job_scores WHERE article_id = ? AND job = ?", id, string(domain.JobSecurityEngineer)).Scan(&score))
	assert.Equal(t, 100.0, score)

	require.NoError(t, store.db.QueryRowContext(ctx,
		"SELECT score FROM article_job_scores WHERE article_id = ? AND job = ?", id, string(domain.JobOther)).Scan(&score))
	assert.Equal(t, 0.0, score)

	var count int
	require.NoError(t, store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM article_interest_scores WHERE article_id = ?", id).Scan(&count))
	assert.Equal(t, 2, count)
}

func TestUpsertScoresReplaceValue(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	id, _, err := store.InsertArticle(ctx, sampleArticle("https://example.com/c"))
	require.NoError(t, err)

	require.NoError(t, store.UpsertJobScore(ctx, id, domain.JobDevOpsSRE, 10))
	require.NoError(t, store.UpsertJobScore(ctx, id, domain.JobDevOpsSRE, 55))
	require.NoError(t, store.UpsertInterestScore(ctx, id, 3, 20))
	require.NoError(t, store.UpsertInterestScore(ctx, id, 3, 999))

	var score float64
	require.NoError(t, store.db.QueryRowContext(ctx,
		"SELECT score FROM article_job_scores WHERE article_id = ?", id).Scan(&score))
	assert.Equal(t, 55.0, score)

	require.NoError(t, store.db.QueryRowContext(ctx,
		"SELECT score FROM article_interest_scores WHERE article_id = ?", id).Scan(&score))
	assert.Equal(t, 100.0, score)
}

func TestUserRoundTripDropsUnknownInterests(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.CreateUser(ctx, domain.JobSecurityEngineer, []int64{3, 2, 3, 999999})
	require.NoError(t, err)

	user, err := store.GetUser(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.JobSecurityEngineer, user.Job)
	assert.False(t, user.CreatedAt.IsZero())
	require.Len(t, user.Interests, 2)
	assert.Equal(t, int64(2), user.Interests[0].ID)
	assert.Equal(t, int64(3), user.Interests[1].ID)
	assert.Equal(t, "Network Security & Firewalls", user.Interests[1].Name)

	exists, err := store.UserExists(ctx, id)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestGetUserNotFound(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	_, err := store.GetUser(context.Background(), 42)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestUpdateUser(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.CreateUser(ctx, domain.JobOther, []int64{1, 2})
	require.NoError(t, err)

	job := domain.JobSecurityAnalyst
	require.NoError(t, store.UpdateUser(ctx, id, domain.UserPatch{Job: &job}))
	user, err := store.GetUser(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.JobSecurityAnalyst, user.Job)
	assert.Len(t, user.Interests, 2)

	require.NoError(t, store.UpdateUser(ctx, id, domain.UserPatch{SetInterests: true, InterestIDs: []int64{25, 26}}))
	user, err = store.GetUser(ctx, id)
	require.NoError(t, err)
	require.Len(t, user.Interests, 2)
	assert.Equal(t, int64(25), user.Interests[0].ID)

	require.NoError(t, store.UpdateUser(ctx, id, domain.UserPatch{SetInterests: true}))
	user, err = store.GetUser(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, user.Interests)

	err = store.UpdateUser(ctx, 9999, domain.UserPatch{Job: &job})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func seedRanked(t *testing.T, store *Store, link string, job domain.Job, jobScore float64, interests map[int64]float64) int64 {
	t.Helper()
	id, inserted, err := store.SaveScoredArticle(context.Background(), sampleArticle(link), domain.ArticleScores{
		Jobs:      map[domain.Job]float64{job: jobScore},
		Interests: interests,
	})
	require.NoError(t, err)
	require.True(t, inserted)
	return id
}

func TestSaveScoredArticleNeverExposesPartialRows(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	jobs := domain.AllJobs()

	scores := domain.ArticleScores{
		Jobs:      make(map[domain.Job]float64, len(jobs)),
		Interests: map[int64]float64{1: 40, 2: 60, 3: 80},
	}
	for i, job := range jobs {
		scores.Jobs[job] = float64(10 * (i + 1))
	}

	const articles = 25
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}

			var partial int
			err := store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles a
WHERE (SELECT COUNT(*) FROM article_job_scores s WHERE s.article_id = a.id) <> ?
   OR (SELECT COUNT(*) FROM article_interest_scores s WHERE s.article_id = a.id) <> 3`, len(jobs)).Scan(&partial)
			if err != nil {
				t.Errorf("count partial articles: %v", err)
				return
			}
			if partial != 0 {
				t.Errorf("%d articles visible without all their score rows", partial)
				return
			}

			ranked, err := store.RankArticles(ctx, ports.RankQuery{
				Job:            domain.JobSecurityEngineer,
				InterestIDs:    []int64{1, 2, 3},
				Limit:          articles,
				JobWeight:      0.4,
				InterestWeight: 0.6,
			})
			if err != nil {
				t.Errorf("rank: %v", err)
				return
			}
			for _, item := range ranked {
				if item.AvgInterestScore != 60 {
					t.Errorf("article %d ranked with avg %v", item.Article.ID, item.AvgInterestScore)
					return
				}
			}
		}
	}()

	for i := 0; i < articles; i++ {
		_, inserted, err := store.SaveScoredArticle(ctx, sampleArticle(fmt.Sprintf("https://example.com/concurrent/%d", i)), scores)
		require.NoError(t, err)
		require.True(t, inserted)
	}
	close(done)
	wg.Wait()

	var total int
	require.NoError(t, store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM articles").Scan(&total))
	assert.Equal(t, articles, total)
}

func TestRankArticlesFormula(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	seedRanked(t, store, "https://example.com/r1", domain.JobSecurityEngineer, 80, map[int64]float64{1: 60, 2: 100, 3: 5})

	got, err := store.RankArticles(ctx, ports.RankQuery{
		Job:            domain.JobSecurityEngineer,
		InterestIDs:    []int64{1, 2},
		Limit:          10,
		JobWeight:      0.4,
		InterestWeight: 0.6,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 80.0, got[0].JobScore)
	assert.Equal(t, 80.0, got[0].AvgInterestScore)
	assert.Equal(t, 80.0, got[0].Relevance)
	assert.Equal(t, "https://example.com/r1", got[0].Article.Link)
	assert.Equal(t, "Vulnerability", got[0].Article.Category)
	assert.True(t, got[0].Article.IsArticle)
}

func TestRankArticlesMissingOverlapAveragesZero(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	seedRanked(t, store, "https://example.com/r2", domain.JobSecurityEngineer, 50, map[int64]float64{1: 90})

	for _, interests := range [][]int64{{3}, nil} {
		got, err := store.RankArticles(ctx, ports.RankQuery{
			Job:            domain.JobSecurityEngineer,
			InterestIDs:    interests,
			Limit:          10,
			JobWeight:      0.4,
			InterestWeight: 0.6,
		})
		require.NoError(t, err)
		require.Len(t, got, 1, "interests %v", interests)
		assert.Equal(t, 0.0, got[0].AvgInterestScore)
		assert.Equal(t, 20.0, got[0].Relevance)
	}
}

func TestRankArticlesJobGatingOrderAndLimit(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	low := seedRanked(t, store, "https://example.com/low", domain.JobDevOpsSRE, 10, map[int64]float64{13: 10})
	high := seedRanked(t, store, "https://example.com/high", domain.JobDevOpsSRE, 90, map[int64]float64{13: 33.333})
	seedRanked(t, store, "https://example.com/other-job", domain.JobSecurityAnalyst, 100, map[int64]float64{13: 100})

	got, err := store.RankArticles(ctx, ports.RankQuery{
		Job:            domain.JobDevOpsSRE,
		InterestIDs:    []int64{13},
		Limit:          10,
		JobWeight:      0.4,
		InterestWeight: 0.6,
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, high, got[0].Article.ID)
	assert.Equal(t, low, got[1].Article.ID)
	assert.Equal(t, 33.33, got[0].AvgInterestScore)
	assert.Equal(t, 56.0, got[0].Relevance)

	got, err = store.RankArticles(ctx, ports.RankQuery{
		Job:            domain.JobDevOpsSRE,
		Limit:          1,
		JobWeight:      0.4,
		InterestWeight: 0.6,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, high, got[0].Article.ID)
}

func TestSaveRecipientReplacesMappings(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	u1, err := store.CreateUser(ctx, domain.JobOther, nil)
	require.NoError(t, err)
	u2, err := store.CreateUser(ctx, domain.JobOther, nil)
	require.NoError(t, err)

	require.NoError(t, store.SaveRecipient(ctx, domain.Recipient{UserID: u1, ChatID: 100}))
	require.NoError(t, store.SaveRecipient(ctx, domain.Recipient{UserID: u1, ChatID: 200}))
	require.NoError(t, store.SaveRecipient(ctx, domain.Recipient{UserID: u2, ChatID: 200}))

	got, err := store.ListRecipients(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Recipient{{UserID: u2, ChatID: 200}}, got)
}

func TestSQLiteDSN(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", sqliteDSN("a.db"))
	assert.Equal(t, "a.db?mode=rwc&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", sqliteDSN("a.db?mode=rwc"))
	assert.Equal(t, "a.db?_pragma=foreign_keys(0)", sqliteDSN("a.db?_pragma=foreign_keys(0)"))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}
