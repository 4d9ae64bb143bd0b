// Package models contains the data structures shared across the audit engine.
package models

import (
	"strings"
	"time"
)

// SessionStatus tracks the lifecycle of a crawl session.
type SessionStatus string

const (
	StatusPending    SessionStatus = "pending"
	StatusInProgress SessionStatus = "in_progress"
	StatusCompleted  SessionStatus = "completed"
	StatusFailed     SessionStatus = "failed"
)

// PlaceholderDepth marks a page that was discovered as a link target but has
// not been fetched yet. Placeholder rows exist so every edge references a
// stable page id before the target is crawled.
const PlaceholderDepth = 999

// CrawlSession identifies one crawl run over a single site.
type CrawlSession struct {
	ID           string        `json:"id"`
	ProjectID    string        `json:"project_id,omitempty"`
	RootDomain   string        `json:"root_domain"`
	Status       SessionStatus `json:"status"`
	PagesCrawled int           `json:"pages_crawled"`
	StartedAt    time.Time     `json:"started_at"`
	EndedAt      time.Time     `json:"ended_at,omitzero"`
}

// Terminal reports whether the session reached a final state.
func (s *CrawlSession) Terminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusFailed
}

// Page is one crawled (or link-discovered) URL within a session.
type Page struct {
	ID              int64     `json:"id"`
	SessionID       string    `json:"session_id"`
	URL             string    `json:"url"`
	Title           string    `json:"title,omitempty"`
	MetaDescription string    `json:"meta_description,omitempty"`
	H1              string    `json:"h1,omitempty"`
	Canonical       string    `json:"canonical,omitempty"`
	Viewport        string    `json:"viewport,omitempty"`
	StatusCode      int       `json:"status_code"`
	ContentType     string    `json:"content_type,omitempty"`
	WordCount       int       `json:"word_count"`
	Depth           int       `json:"depth"`
	HTML            string    `json:"-"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Placeholder reports whether the page was discovered via a link but never
// fetched during the session.
func (p *Page) Placeholder() bool {
	return p.Depth == PlaceholderDepth
}

// IsHTML reports whether the fetched content was an HTML document.
func (p *Page) IsHTML() bool {
	return strings.Contains(p.ContentType, "text/html")
}

// LinkType classifies an edge between two pages.
type LinkType string

const (
	LinkInternal LinkType = "internal"
	LinkExternal LinkType = "external"
	LinkResource LinkType = "resource"
)

// Edge is a directed link relationship between two pages of the same session.
// Edges are stored once per unique (source, target) pair; Count carries the
// multiplicity when the source page repeats the same link.
type Edge struct {
	SessionID  string   `json:"session_id"`
	SourceID   int64    `json:"source_id"`
	TargetID   int64    `json:"target_id"`
	SourceURL  string   `json:"source_url"`
	TargetURL  string   `json:"target_url"`
	AnchorText string   `json:"anchor_text,omitempty"`
	Type       LinkType `json:"type"`
	Count      int      `json:"count"`
}

// Link is a single outbound anchor extracted from a page.
type Link struct {
	Href string `json:"href"`
	Text string `json:"text,omitempty"`
}

// PageFacts holds the structural facts extracted from one HTML document.
type PageFacts struct {
	Title           string   `json:"title"`
	MetaDescription string   `json:"meta_description"`
	H1              string   `json:"h1"`
	Canonical       string   `json:"canonical"`
	Viewport        string   `json:"viewport"`
	WordCount       int      `json:"word_count"`
	JSONLD          []string `json:"json_ld,omitempty"`
	Links           []Link   `json:"links,omitempty"`
}

// CrawlOptions controls a single crawl run.
type CrawlOptions struct {
	MaxPages             int           `json:"max_pages"`
	MaxDepth             int           `json:"max_depth"`
	IgnoreQueryParams    bool          `json:"ignore_query_params"`
	FollowExternalLinks  bool          `json:"follow_external_links"`
	DelayBetweenRequests time.Duration `json:"delay_between_requests"`
	UserAgent            string        `json:"user_agent"`
}

// DefaultCrawlOptions returns the documented defaults for a crawl run.
func DefaultCrawlOptions() CrawlOptions {
	return CrawlOptions{
		MaxPages:             100,
		MaxDepth:             3,
		IgnoreQueryParams:    true,
		FollowExternalLinks:  false,
		DelayBetweenRequests: 500 * time.Millisecond,
		UserAgent:            "seoaudit/1.0",
	}
}

// Severity ranks how urgent a technical issue is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// IssueType is the closed set of technical issue identifiers.
type IssueType string

const (
	IssueMissingTitle        IssueType = "missing_title"
	IssueDuplicateTitle      IssueType = "duplicate_title"
	IssueMissingMeta         IssueType = "missing_meta_description"
	IssueDuplicateMeta       IssueType = "duplicate_meta_description"
	IssueMissingH1           IssueType = "missing_h1"
	IssueDuplicateH1         IssueType = "duplicate_h1"
	IssueLowContent          IssueType = "low_content"
	IssueMissingCanonical    IssueType = "missing_canonical"
	IssueNonSelfCanonical    IssueType = "non_self_canonical"
	IssueMissingViewport     IssueType = "missing_viewport"
	IssueIncorrectViewport   IssueType = "incorrect_viewport"
	IssueOrphanPage          IssueType = "orphan_page"
	IssueBrokenInternalLink  IssueType = "broken_internal_link"
	IssueMissingRobotsTxt    IssueType = "missing_robots_txt"
	IssueMissingSitemap      IssueType = "missing_sitemap"
	IssueNoHTTPS             IssueType = "no_https"
	IssueCertificateExpiring IssueType = "certificate_expiring"
)

// TechnicalIssue is one detected problem, never mutated after creation.
type TechnicalIssue struct {
	ID             int       `json:"id"`
	SessionID      string    `json:"session_id"`
	Type           IssueType `json:"type"`
	Severity       Severity  `json:"severity"`
	URLs           []string  `json:"urls"`
	Description    string    `json:"description"`
	Recommendation string    `json:"recommendation"`
	DetectedAt     time.Time `json:"detected_at"`
}

// PageDegree holds the per-page incoming/outgoing internal link counts.
type PageDegree struct {
	URL      string `json:"url"`
	Incoming int    `json:"incoming_links"`
	Outgoing int    `json:"outgoing_links"`
}

// BrokenLink is an internal edge whose target was never successfully fetched.
type BrokenLink struct {
	SourceURL  string `json:"source_url"`
	TargetURL  string `json:"target_url"`
	AnchorText string `json:"anchor_text,omitempty"`
	StatusCode int    `json:"status_code"`
}

// HubPage is a page with a high number of incoming internal links.
type HubPage struct {
	URL      string `json:"url"`
	Incoming int    `json:"incoming_links"`
	Priority bool   `json:"priority"`
}

// KeyPages groups the structurally important pages of a site.
type KeyPages struct {
	Homepage      []string  `json:"homepage"`
	CategoryPages []string  `json:"category_pages"`
	HubPages      []HubPage `json:"hub_pages"`
}

// LinkGraphReport is the output of the link-graph analysis for one session.
type LinkGraphReport struct {
	SessionID         string       `json:"session_id"`
	Degrees           []PageDegree `json:"degrees"`
	OrphanPages       []string     `json:"orphan_pages"`
	MostLinked        []PageDegree `json:"most_linked"`
	LeastLinked       []PageDegree `json:"least_linked"`
	BrokenLinks       []BrokenLink `json:"broken_links"`
	KeyPages          KeyPages     `json:"key_pages"`
	DistributionScore float64      `json:"distribution_score"`
	GeneratedAt       time.Time    `json:"generated_at"`
}

// GroupType is the classification tier of a duplicate-content group.
type GroupType string

const (
	GroupExact   GroupType = "exact"
	GroupNearDup GroupType = "near_duplicate"
	GroupSimilar GroupType = "similar"
)

// DuplicateMember is one page inside a duplicate group.
type DuplicateMember struct {
	URL        string  `json:"url"`
	Similarity float64 `json:"similarity"`
}

// DuplicateGroup is a cluster of pages with duplicated or similar content.
// Groups are immutable once stored; a later analysis run supersedes them.
type DuplicateGroup struct {
	ID         int               `json:"id"`
	Type       GroupType         `json:"type"`
	Members    []DuplicateMember `json:"members"`
	Similarity float64           `json:"similarity"`
}

// DuplicateContentReport is the output of the fingerprint clustering.
type DuplicateContentReport struct {
	SessionID     string           `json:"session_id"`
	Groups        []DuplicateGroup `json:"groups"`
	PagesAnalyzed int              `json:"pages_analyzed"`
	GeneratedAt   time.Time        `json:"generated_at"`
}

// IssueReport is the aggregated issue list plus the 0-100 site score.
type IssueReport struct {
	SessionID    string           `json:"session_id"`
	Issues       []TechnicalIssue `json:"issues"`
	Score        float64          `json:"score"`
	ChecksPassed int              `json:"checks_passed"`
	ChecksTotal  int              `json:"checks_total"`
	GeneratedAt  time.Time        `json:"generated_at"`
}
