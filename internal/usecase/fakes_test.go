package usecase

import (
	"context"
	"errors"
	"sync"

	"SecFeed/internal/domain"
	"SecFeed/internal/ports"
)

type fakeSource struct {
	pages      map[string]ports.IndexPage
	candidates map[string]domain.Candidate
	extractErr map[string]error
	extracted  []string
}

func (f *fakeSource) Discover(_ context.Context, pageURL string) (ports.IndexPage, error) {
	page, ok := f.pages[pageURL]
	if !ok {
		return ports.IndexPage{}, errors.New("no such page")
	}
	return page, nil
}

func (f *fakeSource) Extract(_ context.Context, link string) (domain.Candidate, error) {
	f.extracted = append(f.extracted, link)
	if err := f.extractErr[link]; err != nil {
		return domain.Candidate{}, err
	}
	c, ok := f.candidates[link]
	if !ok {
		return domain.Candidate{}, errors.New("not found")
	}
	return c, nil
}

type storedArticle struct {
	article domain.Article
	scores  domain.ArticleScores
}

type fakeStore struct {
	mu          sync.Mutex
	nextID      int64
	byLink      map[string]int64
	articles    map[int64]storedArticle
	interests   []domain.Interest
	existsCalls int
	saveErr     map[string]error
}

func newFakeStore(interests ...domain.Interest) *fakeStore {
	return &fakeStore{
		byLink:    make(map[string]int64),
		articles:  make(map[int64]storedArticle),
		interests: interests,
		saveErr:   make(map[string]error),
	}
}

func (f *fakeStore) Exists(_ context.Context, link string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.existsCalls++
	_, ok := f.byLink[link]
	return ok, nil
}

func (f *fakeStore) InsertArticle(ctx context.Context, article domain.Article) (int64, bool, error) {
	return f.SaveScoredArticle(ctx, article, domain.ArticleScores{})
}

func (f *fakeStore) UpsertJobScore(context.Context, int64, domain.Job, float64) error {
	return nil
}

func (f *fakeStore) UpsertInterestScore(context.Context, int64, int64, float64) error {
	return nil
}

func (f *fakeStore) SaveScoredArticle(_ context.Context, article domain.Article, scores domain.ArticleScores) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.saveErr[article.Link]; err != nil {
		return 0, false, err
	}
	if id, ok := f.byLink[article.Link]; ok {
		return id, false, nil
	}
	f.nextID++
	f.byLink[article.Link] = f.nextID
	f.articles[f.nextID] = storedArticle{article: article, scores: scores}
	return f.nextID, true, nil
}

func (f *fakeStore) ListInterests(context.Context) ([]domain.Interest, error) {
	return f.interests, nil
}

func (f *fakeStore) byURL(link string) (storedArticle, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byLink[link]
	if !ok {
		return storedArticle{}, false
	}
	return f.articles[id], true
}

type fakeScorer struct {
	result  domain.ScoreResult
	summary domain.SummaryResult
	scored  []string
}

func (f *fakeScorer) Score(_ context.Context, text string, _ []domain.Job, _ []domain.Interest) domain.ScoreResult {
	f.scored = append(f.scored, text)
	return f.result
}

func (f *fakeScorer) Summarize(context.Context, string) domain.SummaryResult {
	return f.summary
}

type notification struct {
	link, title, summary string
}

type fakeNotifier struct {
	err  error
	sent []notification
}

func (f *fakeNotifier) NotifyArticle(_ context.Context, link, title, summary string) error {
	f.sent = append(f.sent, notification{link: link, title: title, summary: summary})
	return f.err
}

type fakeRecorder struct {
	states        map[domain.IngestState]int
	degraded      map[string]int
	notifications int
	notifyErrors  int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{states: map[domain.IngestState]int{}, degraded: map[string]int{}}
}

func (f *fakeRecorder) ObserveIngest(state domain.IngestState) { f.states[state]++ }

func (f *fakeRecorder) ObserveDegraded(dimension string) { f.degraded[dimension]++ }

func (f *fakeRecorder) ObserveNotification(err error) {
	f.notifications++
	if err != nil {
		f.notifyErrors++
	}
}

type fakeUserStore struct {
	users   map[int64]domain.User
	nextID  int64
	created [][]int64
	patches []domain.UserPatch
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[int64]domain.User)}
}

func (f *fakeUserStore) GetUser(_ context.Context, id int64) (domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserStore) UserExists(_ context.Context, id int64) (bool, error) {
	_, ok := f.users[id]
	return ok, nil
}

func (f *fakeUserStore) CreateUser(_ context.Context, job domain.Job, ids []int64) (int64, error) {
	f.nextID++
	f.created = append(f.created, ids)
	interests := make([]domain.Interest, len(ids))
	for i, id := range ids {
		interests[i] = domain.Interest{ID: id}
	}
	f.users[f.nextID] = domain.User{ID: f.nextID, Job: job, Interests: interests}
	return f.nextID, nil
}

func (f *fakeUserStore) UpdateUser(_ context.Context, id int64, patch domain.UserPatch) error {
	f.patches = append(f.patches, patch)
	return nil
}

func (f *fakeUserStore) ListInterests(context.Context) ([]domain.Interest, error) {
	return nil, nil
}

type fakeRankingStore struct {
	queries []ports.RankQuery
	result  []domain.ScoredArticle
	err     error
}

func (f *fakeRankingStore) RankArticles(_ context.Context, q ports.RankQuery) ([]domain.ScoredArticle, error) {
	f.queries = append(f.queries, q)
	return f.result, f.err
}
