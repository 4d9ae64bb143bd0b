package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seoaudit/internal/fetcher"
	"seoaudit/internal/models"
	"seoaudit/internal/store"
)

type stubFetcher struct {
	responses map[string]*fetcher.Result
}

func (s *stubFetcher) Fetch(_ context.Context, rawURL string) (*fetcher.Result, error) {
	if res, ok := s.responses[rawURL]; ok {
		return res, nil
	}
	return nil, &fetcher.FetchError{StatusCode: 0, Err: errors.New("no route to host")}
}

func htmlResult(body string) *fetcher.Result {
	return &fetcher.Result{StatusCode: 200, ContentType: "text/html", Body: body}
}

const articleBody = `<html><head><title>Article</title></head><body>
<h1>Article</h1>
<p>The very same body on two different URLs.</p>
</body></html>`

func auditSite() *stubFetcher {
	return &stubFetcher{responses: map[string]*fetcher.Result{
		"https://site.test/": htmlResult(`<html><head><title>Home</title></head><body>
<h1>Home</h1>
<p>Welcome to the site.</p>
<a href="/p1">One</a>
<a href="/p2">Two</a>
</body></html>`),
		"https://site.test/p1": htmlResult(articleBody),
		"https://site.test/p2": htmlResult(articleBody),
	}}
}

func newTestEngine() (*Engine, *store.MemoryStore) {
	repo := store.NewMemoryStore()
	eng := New(repo, auditSite(), nil, nil)
	eng.SiteChecks = false
	return eng, repo
}

func runCrawl(t *testing.T, eng *Engine) {
	t.Helper()
	opts := models.DefaultCrawlOptions()
	opts.DelayBetweenRequests = 0
	require.True(t, eng.StartCrawl(context.Background(), "s1", "https://site.test/", opts))
}

func TestStartCrawlCreatesSession(t *testing.T) {
	ctx := context.Background()
	eng, repo := newTestEngine()

	runCrawl(t, eng)

	session, err := repo.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, session.Status)
	assert.Equal(t, 3, session.PagesCrawled)
}

func TestAnalyzeLinkGraphStoresReport(t *testing.T) {
	ctx := context.Background()
	eng, repo := newTestEngine()
	runCrawl(t, eng)

	report, err := eng.AnalyzeLinkGraph(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, []string{"https://site.test/"}, report.OrphanPages, "nothing links back to the homepage")
	assert.Empty(t, report.BrokenLinks)

	stored, err := repo.LinkGraphReport(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, report.DistributionScore, stored.DistributionScore)
}

func TestFindDuplicateContentFindsExactPair(t *testing.T) {
	ctx := context.Background()
	eng, repo := newTestEngine()
	runCrawl(t, eng)

	report, err := eng.FindDuplicateContent(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 3, report.PagesAnalyzed)

	require.Len(t, report.Groups, 1)
	g := report.Groups[0]
	assert.Equal(t, models.GroupExact, g.Type)
	assert.Equal(t, 1.0, g.Similarity)

	var urls []string
	for _, m := range g.Members {
		urls = append(urls, m.URL)
	}
	assert.ElementsMatch(t, []string{"https://site.test/p1", "https://site.test/p2"}, urls)

	stored, err := repo.DuplicateReport(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, stored)
}

func TestAggregateIssuesStoresReport(t *testing.T) {
	ctx := context.Background()
	eng, repo := newTestEngine()
	runCrawl(t, eng)

	report, err := eng.AggregateIssues(ctx, "s1")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, report.Score, 0.0)
	assert.LessOrEqual(t, report.Score, 100.0)
	assert.Greater(t, report.ChecksTotal, 0)

	// The thin test pages miss meta descriptions and more, so issues exist.
	assert.NotEmpty(t, report.Issues)

	stored, err := repo.IssueReport(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, report.Score, stored.Score)
}

func TestAnalysisRequiresTerminalSession(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemoryStore()
	eng := New(repo, auditSite(), nil, nil)

	require.NoError(t, repo.CreateSession(ctx, &models.CrawlSession{
		ID:     "s1",
		Status: models.StatusInProgress,
	}))

	_, err := eng.AnalyzeLinkGraph(ctx, "s1")
	assert.Error(t, err, "analysis over a running crawl is misuse")
	_, err = eng.FindDuplicateContent(ctx, "s1")
	assert.Error(t, err)
	_, err = eng.AggregateIssues(ctx, "s1")
	assert.Error(t, err)
}

func TestAnalysisUnknownSession(t *testing.T) {
	eng, _ := newTestEngine()
	_, err := eng.AnalyzeLinkGraph(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}

type brokenSessionRepo struct {
	*store.MemoryStore
	created bool
}

func (r *brokenSessionRepo) GetSession(context.Context, string) (*models.CrawlSession, error) {
	return nil, errors.New("connection reset by peer")
}

func (r *brokenSessionRepo) CreateSession(ctx context.Context, session *models.CrawlSession) error {
	r.created = true
	return r.MemoryStore.CreateSession(ctx, session)
}

func TestStartCrawlRepositoryFailure(t *testing.T) {
	repo := &brokenSessionRepo{MemoryStore: store.NewMemoryStore()}
	eng := New(repo, auditSite(), nil, nil)
	eng.SiteChecks = false

	ok := eng.StartCrawl(context.Background(), "s1", "https://site.test/", models.DefaultCrawlOptions())
	assert.False(t, ok)
	assert.False(t, repo.created, "a lookup failure is not a missing session")
}

func TestStartCrawlInvalidURL(t *testing.T) {
	eng, repo := newTestEngine()

	ok := eng.StartCrawl(context.Background(), "s1", "not a url", models.DefaultCrawlOptions())
	assert.False(t, ok)

	session, err := repo.GetSession(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, session.Status)
}
