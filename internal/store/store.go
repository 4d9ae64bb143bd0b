// Package store abstracts persistence behind a narrow repository interface
// so the engine has zero dependency on any specific database client. The
// in-memory implementation serializes writes per session; a SQL-backed
// implementation would use transactions for the same guarantee.
package store

import (
	"context"
	"errors"

	"seoaudit/internal/models"
)

// ErrSessionNotFound is returned when an operation references an unknown
// crawl session. Calling analysis on a missing session is explicit misuse.
var ErrSessionNotFound = errors.New("store: session not found")

// Repository is the persistence contract for the crawl and analysis engine.
type Repository interface {
	// CreateSession registers a new session in status pending.
	CreateSession(ctx context.Context, session *models.CrawlSession) error
	// GetSession returns the current session row or ErrSessionNotFound.
	GetSession(ctx context.Context, sessionID string) (*models.CrawlSession, error)
	// UpdateSession persists status, counters and timestamps.
	UpdateSession(ctx context.Context, session *models.CrawlSession) error

	// SavePage upserts a page by (session, url) and assigns its id. A fetch
	// result replaces a placeholder row; the depth of a fetched page is
	// never decreased afterwards.
	SavePage(ctx context.Context, page *models.Page) error
	// EnsurePage returns the page row for a URL, creating a placeholder
	// (depth sentinel, status 0) when none exists. Edge recording uses this
	// so edges always reference valid page ids.
	EnsurePage(ctx context.Context, sessionID, url string) (*models.Page, error)
	// SaveEdge stores an edge once per unique (source, target) pair and
	// increments its multiplicity counter on repeats.
	SaveEdge(ctx context.Context, edge *models.Edge) error

	PagesForSession(ctx context.Context, sessionID string) ([]*models.Page, error)
	EdgesForSession(ctx context.Context, sessionID string) ([]*models.Edge, error)

	// Report writers supersede (replace) the previous stored result.
	SaveLinkGraphReport(ctx context.Context, report *models.LinkGraphReport) error
	SaveDuplicateReport(ctx context.Context, report *models.DuplicateContentReport) error
	SaveIssueReport(ctx context.Context, report *models.IssueReport) error

	LinkGraphReport(ctx context.Context, sessionID string) (*models.LinkGraphReport, error)
	DuplicateReport(ctx context.Context, sessionID string) (*models.DuplicateContentReport, error)
	IssueReport(ctx context.Context, sessionID string) (*models.IssueReport, error)
}
