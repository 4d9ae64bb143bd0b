package checks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seoaudit/internal/fetcher"
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

const robotsBody = `# crawl policy
User-agent: *
Disallow: /admin
Disallow:
Sitemap: http://site.test/map.xml # primary
`

const urlSetBody = `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>http://site.test/</loc></url>
  <url><loc>http://site.test/b</loc></url>
</urlset>`

const indexBody = `<?xml version="1.0" encoding="UTF-8"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>http://site.test/map-a.xml</loc></sitemap>
  <sitemap><loc>http://site.test/map-b.xml</loc></sitemap>
  <sitemap><loc>http://site.test/map-c.xml</loc></sitemap>
</sitemapindex>`

func TestRunRobotsAndAnnouncedSitemap(t *testing.T) {
	fetch := &stubFetcher{responses: map[string]*fetcher.Result{
		"http://site.test/robots.txt": {StatusCode: 200, Body: robotsBody},
		"http://site.test/map.xml":    {StatusCode: 200, Body: urlSetBody},
	}}

	result, err := Run(context.Background(), "http://site.test", fetch)
	require.NoError(t, err)

	assert.True(t, result.RobotsTxtFound)
	assert.Equal(t, []string{"/admin"}, result.RobotsDisallows, "empty Disallow lines and comments must be ignored")
	assert.Equal(t, []string{"http://site.test/map.xml"}, result.RobotsSitemaps)
	assert.True(t, result.SitemapFound)
	assert.Equal(t, 2, result.SitemapURLCount)
	assert.False(t, result.HTTPS)
}

func TestRunDefaultSitemapLocation(t *testing.T) {
	fetch := &stubFetcher{responses: map[string]*fetcher.Result{
		"http://site.test/sitemap.xml": {StatusCode: 200, Body: urlSetBody},
	}}

	result, err := Run(context.Background(), "http://site.test", fetch)
	require.NoError(t, err)

	assert.False(t, result.RobotsTxtFound)
	assert.True(t, result.SitemapFound, "without robots.txt the default /sitemap.xml location is tried")
	assert.Equal(t, 2, result.SitemapURLCount)
}

func TestRunSitemapIndex(t *testing.T) {
	fetch := &stubFetcher{responses: map[string]*fetcher.Result{
		"http://site.test/sitemap.xml": {StatusCode: 200, Body: indexBody},
	}}

	result, err := Run(context.Background(), "http://site.test", fetch)
	require.NoError(t, err)

	assert.True(t, result.SitemapFound)
	assert.Equal(t, 3, result.SitemapURLCount)
}

func TestRunNothingFound(t *testing.T) {
	fetch := &stubFetcher{responses: map[string]*fetcher.Result{}}

	result, err := Run(context.Background(), "http://site.test", fetch)
	require.NoError(t, err, "negative findings are results, not errors")

	assert.False(t, result.RobotsTxtFound)
	assert.False(t, result.SitemapFound)
	assert.Empty(t, result.RobotsDisallows)
}

func TestRunRobotsNotFoundStatus(t *testing.T) {
	fetch := &stubFetcher{responses: map[string]*fetcher.Result{
		"http://site.test/robots.txt": {StatusCode: 404, Body: "not found"},
	}}

	result, err := Run(context.Background(), "http://site.test", fetch)
	require.NoError(t, err)
	assert.False(t, result.RobotsTxtFound)
}

func TestRunInvalidBaseURL(t *testing.T) {
	_, err := Run(context.Background(), "not a url", &stubFetcher{})
	assert.Error(t, err)
}
