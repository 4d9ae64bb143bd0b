// Package engine is the external surface of the audit core: it starts
// crawls and runs the analysis passes over their stored corpus. All
// collaborators (fetcher, repository, semantic oracle) are injected.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"seoaudit/internal/checks"
	"seoaudit/internal/crawler"
	"seoaudit/internal/fetcher"
	"seoaudit/internal/fingerprint"
	"seoaudit/internal/issues"
	"seoaudit/internal/linkgraph"
	"seoaudit/internal/models"
	"seoaudit/internal/store"
)

// Engine wires the crawl orchestrator and the analyzers around one
// repository.
type Engine struct {
	repo      store.Repository
	fetch     fetcher.Fetcher
	oracle    fingerprint.SimilarityFunc
	collector *store.VisitedCollector

	// SiteChecks toggles the robots/sitemap/TLS checks during issue
	// aggregation. They hit the live site, so tests switch them off.
	SiteChecks bool
}

// New creates an Engine. oracle and collector may be nil; the semantic
// clustering pass and the cross-run URL bookkeeping are then disabled.
func New(repo store.Repository, fetch fetcher.Fetcher, oracle fingerprint.SimilarityFunc, collector *store.VisitedCollector) *Engine {
	return &Engine{repo: repo, fetch: fetch, oracle: oracle, collector: collector, SiteChecks: true}
}

// StartCrawl creates the session if needed and runs it to a terminal
// status. The return value reports overall success; all detail lives in
// the stored session, pages and edges.
func (e *Engine) StartCrawl(ctx context.Context, sessionID, startURL string, opts models.CrawlOptions) bool {
	if _, err := e.repo.GetSession(ctx, sessionID); err != nil {
		if !errors.Is(err, store.ErrSessionNotFound) {
			log.Error().Err(err).Str("session", sessionID).Msg("Failed to look up session")
			return false
		}
		session := &models.CrawlSession{
			ID:     sessionID,
			Status: models.StatusPending,
		}
		if err := e.repo.CreateSession(ctx, session); err != nil {
			log.Error().Err(err).Str("session", sessionID).Msg("Failed to create session")
			return false
		}
	}

	orch := crawler.New(e.repo, e.fetch, e.collector)
	if err := orch.Run(ctx, sessionID, startURL, opts); err != nil {
		log.Error().Err(err).Str("session", sessionID).Msg("Crawl failed")
		return false
	}
	return true
}

// AnalyzeLinkGraph computes the link-graph report for a finished session.
// It is idempotent; each run supersedes the stored report.
func (e *Engine) AnalyzeLinkGraph(ctx context.Context, sessionID string) (*models.LinkGraphReport, error) {
	pages, edges, err := e.corpus(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	report := linkgraph.Analyze(sessionID, pages, edges)
	if err := e.repo.SaveLinkGraphReport(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to store link graph report: %w", err)
	}
	return report, nil
}

// FindDuplicateContent fingerprints the session's HTML pages and clusters
// them. Idempotent except for the oracle-judged third pass, which is
// allowed to vary between runs; each run supersedes the stored report.
func (e *Engine) FindDuplicateContent(ctx context.Context, sessionID string) (*models.DuplicateContentReport, error) {
	pages, _, err := e.corpus(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var fps []fingerprint.Fingerprint
	for _, p := range pages {
		if p.Placeholder() || !p.IsHTML() || p.StatusCode != 200 || p.HTML == "" {
			continue
		}
		fps = append(fps, fingerprint.New(p.URL, p.HTML))
	}

	groups := fingerprint.NewEngine(e.oracle).Cluster(ctx, fps)
	report := &models.DuplicateContentReport{
		SessionID:     sessionID,
		Groups:        groups,
		PagesAnalyzed: len(fps),
		GeneratedAt:   time.Now().UTC(),
	}
	if err := e.repo.SaveDuplicateReport(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to store duplicate report: %w", err)
	}
	return report, nil
}

// AggregateIssues merges the rule-based checks with the link-graph
// findings and optional site-level checks into the issue report.
func (e *Engine) AggregateIssues(ctx context.Context, sessionID string) (*models.IssueReport, error) {
	session, err := e.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	pages, edges, err := e.corpus(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	graph := linkgraph.Analyze(sessionID, pages, edges)

	var site *checks.SiteResult
	if e.SiteChecks && session.RootDomain != "" {
		baseURL := "https://" + session.RootDomain
		site, err = checks.Run(ctx, baseURL, e.fetch)
		if err != nil {
			log.Warn().Err(err).Str("session", sessionID).Msg("Site checks skipped")
			site = nil
		}
	}

	report := issues.Aggregate(sessionID, pages, graph, site)
	if err := e.repo.SaveIssueReport(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to store issue report: %w", err)
	}
	return report, nil
}

// corpus loads pages and edges for a terminal session. Analysis on a
// session that has not finished is misuse.
func (e *Engine) corpus(ctx context.Context, sessionID string) ([]*models.Page, []*models.Edge, error) {
	session, err := e.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if !session.Terminal() {
		return nil, nil, fmt.Errorf("session %s has not finished crawling (status %s)", sessionID, session.Status)
	}

	pages, err := e.repo.PagesForSession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	edges, err := e.repo.EdgesForSession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	return pages, edges, nil
}
