package crawler

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seoaudit/internal/fetcher"
	"seoaudit/internal/models"
	"seoaudit/internal/store"
)

// stubFetcher serves a fixed in-memory site. Unknown URLs fail like a dead
// host.
type stubFetcher struct {
	responses map[string]*fetcher.Result
	fetched   []string
}

func (s *stubFetcher) Fetch(_ context.Context, rawURL string) (*fetcher.Result, error) {
	s.fetched = append(s.fetched, rawURL)
	if res, ok := s.responses[rawURL]; ok {
		return res, nil
	}
	return nil, &fetcher.FetchError{StatusCode: 0, Err: errors.New("no route to host")}
}

func htmlResult(body string) *fetcher.Result {
	return &fetcher.Result{StatusCode: 200, ContentType: "text/html; charset=utf-8", Body: body}
}

func smallSite() *stubFetcher {
	return &stubFetcher{responses: map[string]*fetcher.Result{
		"https://site.test/": htmlResult(`<html><body>
<a href="/b">B</a>
<a href="/c">C</a>
<a href="https://ext.test/x">Ext</a>
</body></html>`),
		"https://site.test/b": htmlResult(`<html><body>
<a href="/c">C</a>
<a href="/missing">Missing</a>
</body></html>`),
		"https://site.test/c": htmlResult(`<html><body><p>done</p></body></html>`),
	}}
}

func startSession(t *testing.T, repo *store.MemoryStore, id string) {
	t.Helper()
	require.NoError(t, repo.CreateSession(context.Background(), &models.CrawlSession{
		ID:     id,
		Status: models.StatusPending,
	}))
}

func crawlOpts() models.CrawlOptions {
	opts := models.DefaultCrawlOptions()
	opts.DelayBetweenRequests = 0
	return opts
}

func TestRunCrawlsBreadthFirst(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemoryStore()
	fetch := smallSite()
	startSession(t, repo, "s1")

	opts := crawlOpts()
	opts.MaxPages = 3
	opts.MaxDepth = 1

	require.NoError(t, New(repo, fetch, nil).Run(ctx, "s1", "https://site.test/", opts))

	session, err := repo.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, session.Status)
	assert.Equal(t, 3, session.PagesCrawled)
	assert.Equal(t, "site.test", session.RootDomain)
	assert.False(t, session.EndedAt.IsZero())

	assert.Equal(t, []string{"https://site.test/", "https://site.test/b", "https://site.test/c"}, fetch.fetched,
		"shallow pages must be fetched before deeper ones")

	pages, err := repo.PagesForSession(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, pages, 5, "3 fetched pages plus placeholders for the external and depth-capped targets")

	placeholders := 0
	for _, p := range pages {
		if p.Placeholder() {
			placeholders++
		}
	}
	assert.Equal(t, 2, placeholders)
}

func TestRunRecordsEdges(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemoryStore()
	startSession(t, repo, "s1")

	opts := crawlOpts()
	opts.MaxDepth = 1
	require.NoError(t, New(repo, smallSite(), nil).Run(ctx, "s1", "https://site.test/", opts))

	edges, err := repo.EdgesForSession(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, edges, 5)

	byTarget := make(map[string]*models.Edge)
	for _, e := range edges {
		byTarget[e.SourceURL+" "+e.TargetURL] = e
	}

	ext := byTarget["https://site.test/ https://ext.test/x"]
	require.NotNil(t, ext)
	assert.Equal(t, models.LinkExternal, ext.Type)
	assert.Equal(t, "Ext", ext.AnchorText)

	internal := byTarget["https://site.test/ https://site.test/b"]
	require.NotNil(t, internal)
	assert.Equal(t, models.LinkInternal, internal.Type)
	assert.NotZero(t, internal.SourceID)
	assert.NotZero(t, internal.TargetID)
}

func TestRunStopsAtMaxPages(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemoryStore()
	fetch := smallSite()
	startSession(t, repo, "s1")

	opts := crawlOpts()
	opts.MaxPages = 2

	require.NoError(t, New(repo, fetch, nil).Run(ctx, "s1", "https://site.test/", opts))

	session, _ := repo.GetSession(ctx, "s1")
	assert.Equal(t, models.StatusCompleted, session.Status, "a truncated crawl still completes")
	assert.Equal(t, 2, session.PagesCrawled)
	assert.Len(t, fetch.fetched, 2)
}

func TestRunDepthZeroOnlyFetchesSeed(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemoryStore()
	fetch := smallSite()
	startSession(t, repo, "s1")

	opts := crawlOpts()
	opts.MaxDepth = 0

	require.NoError(t, New(repo, fetch, nil).Run(ctx, "s1", "https://site.test/", opts))

	session, _ := repo.GetSession(ctx, "s1")
	assert.Equal(t, 1, session.PagesCrawled)
	assert.Equal(t, []string{"https://site.test/"}, fetch.fetched)
}

func TestRunFetchFailureIsRecordedNotFatal(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemoryStore()
	fetch := &stubFetcher{responses: map[string]*fetcher.Result{
		"https://site.test/": htmlResult(`<html><body><a href="/dead">Dead</a></body></html>`),
	}}
	startSession(t, repo, "s1")

	require.NoError(t, New(repo, fetch, nil).Run(ctx, "s1", "https://site.test/", crawlOpts()))

	session, _ := repo.GetSession(ctx, "s1")
	assert.Equal(t, models.StatusCompleted, session.Status)
	assert.Equal(t, 2, session.PagesCrawled, "the failed page still counts as crawled")

	pages, _ := repo.PagesForSession(ctx, "s1")
	var dead *models.Page
	for _, p := range pages {
		if p.URL == "https://site.test/dead" {
			dead = p
		}
	}
	require.NotNil(t, dead)
	assert.Equal(t, 0, dead.StatusCode)
	assert.False(t, dead.Placeholder(), "a fetch attempt replaces the placeholder row")
}

func TestRunInvalidStartURLFailsSession(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemoryStore()
	startSession(t, repo, "s1")

	err := New(repo, smallSite(), nil).Run(ctx, "s1", "not a url", crawlOpts())
	require.Error(t, err)

	session, _ := repo.GetSession(ctx, "s1")
	assert.Equal(t, models.StatusFailed, session.Status)
}

func TestRunUnknownSession(t *testing.T) {
	repo := store.NewMemoryStore()
	err := New(repo, smallSite(), nil).Run(context.Background(), "missing", "https://site.test/", crawlOpts())
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}

func TestRunCancellationFailsSession(t *testing.T) {
	repo := store.NewMemoryStore()
	startSession(t, repo, "s1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := crawlOpts()
	opts.DelayBetweenRequests = 10 * time.Millisecond

	err := New(repo, smallSite(), nil).Run(ctx, "s1", "https://site.test/", opts)
	require.Error(t, err)

	session, _ := repo.GetSession(context.Background(), "s1")
	assert.Equal(t, models.StatusFailed, session.Status)
}

func TestRunExternalAbortKeepsPartialState(t *testing.T) {
	ctx := context.Background()
	repo := &abortingRepo{MemoryStore: store.NewMemoryStore()}
	startSession(t, repo.MemoryStore, "s1")

	require.NoError(t, New(repo, smallSite(), nil).Run(ctx, "s1", "https://site.test/", crawlOpts()))

	session, _ := repo.GetSession(ctx, "s1")
	assert.Equal(t, models.StatusFailed, session.Status, "an external abort must not be overwritten")
	assert.Equal(t, 1, session.PagesCrawled)

	pages, _ := repo.PagesForSession(ctx, "s1")
	assert.NotEmpty(t, pages, "partial state survives the abort")
}

// abortingRepo flips the session to failed right after the first page is
// recorded, simulating an external abort between two loop iterations.
type abortingRepo struct {
	*store.MemoryStore
}

func (r *abortingRepo) UpdateSession(ctx context.Context, session *models.CrawlSession) error {
	if err := r.MemoryStore.UpdateSession(ctx, session); err != nil {
		return err
	}
	if session.Status == models.StatusInProgress && session.PagesCrawled == 1 {
		aborted := *session
		aborted.Status = models.StatusFailed
		return r.MemoryStore.UpdateSession(ctx, &aborted)
	}
	return nil
}

func TestClassifyLink(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   models.LinkType
	}{
		{"internal_page", "https://site.test/about", models.LinkInternal},
		{"subdomain", "https://blog.site.test/post", models.LinkInternal},
		{"external", "https://other.test/x", models.LinkExternal},
		{"stylesheet", "https://site.test/app.css", models.LinkResource},
		{"image", "https://site.test/logo.png", models.LinkResource},
		{"sitemap_xml", "https://site.test/sitemap.xml", models.LinkResource},
	}
	root := mustParse(t, "https://site.test/")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyLink(root, mustParse(t, tt.target)))
		})
	}
}

func mustParse(t *testing.T, rawURL string) *url.URL {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	return u
}
