// Package crawler drives the fetch/parse/frontier loop of a crawl session
// and records the resulting page and edge corpus.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"seoaudit/internal/fetcher"
	"seoaudit/internal/frontier"
	"seoaudit/internal/models"
	"seoaudit/internal/parser"
	"seoaudit/internal/store"
)

// resourceExtensions are link targets recorded as resource edges and never
// enqueued as pages.
var resourceExtensions = map[string]struct{}{
	".css": {}, ".js": {}, ".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {},
	".svg": {}, ".ico": {}, ".pdf": {}, ".zip": {}, ".woff": {}, ".woff2": {},
	".mp4": {}, ".webp": {}, ".xml": {}, ".json": {},
}

// Orchestrator runs crawl sessions. One instance may run many sessions, but
// each Run call owns its frontier and visited set exclusively; the
// repository is the only shared resource.
type Orchestrator struct {
	repo      store.Repository
	fetch     fetcher.Fetcher
	collector *store.VisitedCollector
}

// New creates an Orchestrator. collector may be nil when cross-run URL
// bookkeeping is disabled.
func New(repo store.Repository, fetch fetcher.Fetcher, collector *store.VisitedCollector) *Orchestrator {
	return &Orchestrator{repo: repo, fetch: fetch, collector: collector}
}

// Run executes one crawl session to a terminal status. A single page's
// fetch failure is local and never aborts the crawl; only errors outside
// the per-page scope (session lookup, persistence failures) are fatal and
// mark the session failed. The session may also be aborted externally by
// flipping its status away from in_progress; the loop checks before every
// dequeue and exits promptly, keeping all partial state.
func (o *Orchestrator) Run(ctx context.Context, sessionID, startURL string, opts models.CrawlOptions) error {
	session, err := o.repo.GetSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("session lookup failed: %w", err)
	}

	rootURL, err := url.Parse(startURL)
	if err != nil || rootURL.Hostname() == "" {
		o.markFailed(ctx, session)
		return fmt.Errorf("invalid start URL %q: %w", startURL, err)
	}

	session.RootDomain = rootURL.Hostname()
	session.Status = models.StatusInProgress
	session.StartedAt = time.Now().UTC()
	session.PagesCrawled = 0
	if err := o.repo.UpdateSession(ctx, session); err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}

	front := frontier.New(opts.MaxDepth)
	seed := frontier.Normalize(startURL, opts.IgnoreQueryParams)
	front.Enqueue(seed, 0)

	// Fixed-rate backpressure: one fetch per delay interval, first fetch
	// immediate. Not adaptive.
	var limiter *rate.Limiter
	if opts.DelayBetweenRequests > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.DelayBetweenRequests), 1)
	}

	log.Info().
		Str("session", sessionID).
		Str("seed", seed).
		Int("max_pages", opts.MaxPages).
		Int("max_depth", opts.MaxDepth).
		Msg("Crawl started")

	for session.PagesCrawled < opts.MaxPages {
		current, err := o.repo.GetSession(ctx, sessionID)
		if err != nil {
			o.markFailed(ctx, session)
			return fmt.Errorf("session status check failed: %w", err)
		}
		if current.Status != models.StatusInProgress {
			log.Warn().Str("session", sessionID).Str("status", string(current.Status)).Msg("Crawl aborted externally, keeping partial state")
			return nil
		}

		item, ok := front.Dequeue()
		if !ok {
			break
		}
		if item.Depth > opts.MaxDepth {
			continue
		}

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				o.markFailed(ctx, session)
				return fmt.Errorf("crawl cancelled: %w", err)
			}
		}

		page, facts := o.fetchPage(ctx, session, item)
		if err := o.repo.SavePage(ctx, page); err != nil {
			o.markFailed(ctx, session)
			return fmt.Errorf("failed to persist page: %w", err)
		}
		session.PagesCrawled++
		if err := o.repo.UpdateSession(ctx, session); err != nil {
			o.markFailed(ctx, session)
			return fmt.Errorf("failed to update session: %w", err)
		}
		if o.collector != nil {
			if _, err := o.collector.Add(ctx, page.URL); err != nil {
				log.Warn().Err(err).Str("url", page.URL).Msg("Visited collector rejected URL")
			}
		}

		if page.HTML == "" || !page.IsHTML() {
			continue
		}

		o.recordLinks(ctx, session, rootURL, page, facts.Links, item.Depth, front, opts)
	}

	session.Status = models.StatusCompleted
	session.EndedAt = time.Now().UTC()
	if err := o.repo.UpdateSession(ctx, session); err != nil {
		return fmt.Errorf("failed to complete session: %w", err)
	}

	log.Info().
		Str("session", sessionID).
		Int("pages_crawled", session.PagesCrawled).
		Msg("Crawl completed")
	return nil
}

// fetchPage fetches and parses one URL. Fetch failures are recorded as a
// page with the best-known status code so broken-link detection still sees
// the URL; they never abort the crawl.
func (o *Orchestrator) fetchPage(ctx context.Context, session *models.CrawlSession, item frontier.Item) (*models.Page, models.PageFacts) {
	page := &models.Page{
		SessionID: session.ID,
		URL:       item.URL,
		Depth:     item.Depth,
	}

	result, err := o.fetch.Fetch(ctx, item.URL)
	if err != nil {
		var fetchErr *fetcher.FetchError
		if errors.As(err, &fetchErr) {
			page.StatusCode = fetchErr.StatusCode
		}
		log.Warn().Str("url", item.URL).Int("status", page.StatusCode).Err(err).Msg("Fetch failed, recording page without content")
		return page, models.PageFacts{}
	}

	facts := parser.Parse(item.URL, result.ContentType, result.Body)
	page.StatusCode = result.StatusCode
	page.ContentType = result.ContentType
	page.Title = facts.Title
	page.MetaDescription = facts.MetaDescription
	page.H1 = facts.H1
	page.Canonical = facts.Canonical
	page.Viewport = facts.Viewport
	page.WordCount = facts.WordCount
	page.HTML = result.Body

	log.Debug().
		Str("url", item.URL).
		Int("depth", item.Depth).
		Int("status", page.StatusCode).
		Int("links", len(facts.Links)).
		Msg("Page crawled")
	return page, facts
}

// recordLinks classifies and persists the outbound links of a fetched page,
// enqueueing internal targets at depth+1. Each edge lazily creates a
// placeholder target row so the edge always references valid page ids.
func (o *Orchestrator) recordLinks(ctx context.Context, session *models.CrawlSession, rootURL *url.URL, page *models.Page, links []models.Link, depth int, front *frontier.Frontier, opts models.CrawlOptions) {
	for _, link := range links {
		normalized := frontier.Normalize(link.Href, opts.IgnoreQueryParams)
		if normalized == "" || normalized == page.URL {
			continue
		}

		targetURL, err := url.Parse(normalized)
		if err != nil {
			log.Debug().Str("href", link.Href).Err(err).Msg("Skipping unparseable link")
			continue
		}

		linkType := classifyLink(rootURL, targetURL)

		target, err := o.repo.EnsurePage(ctx, session.ID, normalized)
		if err != nil {
			log.Warn().Err(err).Str("url", normalized).Msg("Failed to ensure target page")
			continue
		}
		edge := &models.Edge{
			SessionID:  session.ID,
			SourceID:   page.ID,
			TargetID:   target.ID,
			SourceURL:  page.URL,
			TargetURL:  normalized,
			AnchorText: link.Text,
			Type:       linkType,
		}
		if err := o.repo.SaveEdge(ctx, edge); err != nil {
			log.Warn().Err(err).Str("url", normalized).Msg("Failed to persist edge")
			continue
		}

		switch linkType {
		case models.LinkInternal:
			front.Enqueue(normalized, depth+1)
		case models.LinkExternal:
			if opts.FollowExternalLinks {
				front.Enqueue(normalized, depth+1)
			}
		}
	}
}

// markFailed transitions a session to failed with an end timestamp. Already
// stored pages and edges are kept; there is no rollback.
func (o *Orchestrator) markFailed(ctx context.Context, session *models.CrawlSession) {
	session.Status = models.StatusFailed
	session.EndedAt = time.Now().UTC()
	if err := o.repo.UpdateSession(ctx, session); err != nil {
		log.Error().Err(err).Str("session", session.ID).Msg("Failed to mark session failed")
	}
}

func classifyLink(rootURL, targetURL *url.URL) models.LinkType {
	if !frontier.SameHost(rootURL, targetURL) {
		return models.LinkExternal
	}
	ext := strings.ToLower(path.Ext(targetURL.Path))
	if _, ok := resourceExtensions[ext]; ok {
		return models.LinkResource
	}
	return models.LinkInternal
}
