// Package issues combines rule-based technical checks with the link-graph
// findings into a severity-tagged issue list and a 0-100 site score.
package issues

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"seoaudit/internal/checks"
	"seoaudit/internal/models"
)

// lowContentThreshold is the minimum word count before a page is flagged.
const lowContentThreshold = 300

// severityWeights are the per-issue score deductions.
var severityWeights = map[models.Severity]float64{
	models.SeverityCritical: 15,
	models.SeverityHigh:     8,
	models.SeverityMedium:   3,
	models.SeverityLow:      1,
	models.SeverityInfo:     0,
}

var severityByType = map[models.IssueType]models.Severity{
	models.IssueMissingTitle:        models.SeverityHigh,
	models.IssueDuplicateTitle:      models.SeverityMedium,
	models.IssueMissingMeta:         models.SeverityMedium,
	models.IssueDuplicateMeta:       models.SeverityLow,
	models.IssueMissingH1:           models.SeverityHigh,
	models.IssueDuplicateH1:         models.SeverityMedium,
	models.IssueLowContent:          models.SeverityMedium,
	models.IssueMissingCanonical:    models.SeverityLow,
	models.IssueNonSelfCanonical:    models.SeverityLow,
	models.IssueMissingViewport:     models.SeverityMedium,
	models.IssueIncorrectViewport:   models.SeverityLow,
	models.IssueOrphanPage:          models.SeverityMedium,
	models.IssueBrokenInternalLink:  models.SeverityHigh,
	models.IssueMissingRobotsTxt:    models.SeverityLow,
	models.IssueMissingSitemap:      models.SeverityLow,
	models.IssueNoHTTPS:             models.SeverityCritical,
	models.IssueCertificateExpiring: models.SeverityHigh,
}

var recommendations = map[models.IssueType]string{
	models.IssueMissingTitle:        "Add a unique, descriptive <title> of 30-60 characters.",
	models.IssueDuplicateTitle:      "Give each page a distinct title reflecting its content.",
	models.IssueMissingMeta:         "Add a meta description of 120-160 characters.",
	models.IssueDuplicateMeta:       "Write a distinct meta description for each page.",
	models.IssueMissingH1:           "Add exactly one H1 heading describing the page topic.",
	models.IssueDuplicateH1:         "Give each page a distinct H1 heading.",
	models.IssueLowContent:          "Expand the page to at least 300 words of substantive content.",
	models.IssueMissingCanonical:    "Add a <link rel=\"canonical\"> tag pointing at the preferred URL.",
	models.IssueNonSelfCanonical:    "Point the canonical tag at the page's own URL unless the page is an intentional duplicate.",
	models.IssueMissingViewport:     "Add <meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">.",
	models.IssueIncorrectViewport:   "Include width=device-width in the viewport meta tag.",
	models.IssueOrphanPage:          "Link to this page from at least one other page of the site.",
	models.IssueBrokenInternalLink:  "Fix or remove the link, or restore the target page.",
	models.IssueMissingRobotsTxt:    "Serve a robots.txt file at the site root.",
	models.IssueMissingSitemap:      "Publish a sitemap.xml and reference it from robots.txt.",
	models.IssueNoHTTPS:             "Serve the site over HTTPS with a valid certificate.",
	models.IssueCertificateExpiring: "Renew the TLS certificate before it expires.",
}

// aggregation accumulates issues and the pass/fail check tally.
type aggregation struct {
	sessionID string
	now       time.Time
	nextID    int
	issues    []models.TechnicalIssue
	passed    int
	total     int
}

func (a *aggregation) check(ok bool) {
	a.total++
	if ok {
		a.passed++
	}
}

func (a *aggregation) add(issueType models.IssueType, description string, urls ...string) {
	a.issues = append(a.issues, models.TechnicalIssue{
		ID:             a.nextID,
		SessionID:      a.sessionID,
		Type:           issueType,
		Severity:       severityByType[issueType],
		URLs:           urls,
		Description:    description,
		Recommendation: recommendations[issueType],
		DetectedAt:     a.now,
	})
	a.nextID++
}

// Aggregate runs all rule-based checks over the crawled pages, merges the
// link-graph findings and optional site-level results, and computes the
// overall score. Re-running over an unchanged corpus yields the same issues
// and score.
func Aggregate(sessionID string, pages []*models.Page, graph *models.LinkGraphReport, site *checks.SiteResult) *models.IssueReport {
	agg := &aggregation{sessionID: sessionID, now: time.Now().UTC(), nextID: 1}

	htmlPages := auditablePages(pages)
	pageRules(agg, htmlPages)
	duplicateRules(agg, htmlPages)
	graphRules(agg, graph)
	siteRules(agg, site)

	return &models.IssueReport{
		SessionID:    sessionID,
		Issues:       agg.issues,
		Score:        score(agg),
		ChecksPassed: agg.passed,
		ChecksTotal:  agg.total,
		GeneratedAt:  agg.now,
	}
}

// auditablePages filters to successfully fetched HTML pages; placeholders,
// errors and non-HTML resources are not subject to content rules.
func auditablePages(pages []*models.Page) []*models.Page {
	var html []*models.Page
	for _, p := range pages {
		if !p.Placeholder() && p.StatusCode == 200 && p.IsHTML() {
			html = append(html, p)
		}
	}
	return html
}

func pageRules(agg *aggregation, pages []*models.Page) {
	for _, p := range pages {
		agg.check(p.Title != "")
		if p.Title == "" {
			agg.add(models.IssueMissingTitle, fmt.Sprintf("Page %s has no <title> tag.", p.URL), p.URL)
		}

		agg.check(p.MetaDescription != "")
		if p.MetaDescription == "" {
			agg.add(models.IssueMissingMeta, fmt.Sprintf("Page %s has no meta description.", p.URL), p.URL)
		}

		agg.check(p.H1 != "")
		if p.H1 == "" {
			agg.add(models.IssueMissingH1, fmt.Sprintf("Page %s has no H1 heading.", p.URL), p.URL)
		}

		agg.check(p.WordCount >= lowContentThreshold)
		if p.WordCount < lowContentThreshold {
			agg.add(models.IssueLowContent, fmt.Sprintf("Page %s has only %d words of content.", p.URL, p.WordCount), p.URL)
		}

		agg.check(p.Canonical == p.URL)
		if p.Canonical == "" {
			agg.add(models.IssueMissingCanonical, fmt.Sprintf("Page %s has no canonical tag.", p.URL), p.URL)
		} else if p.Canonical != p.URL {
			agg.add(models.IssueNonSelfCanonical, fmt.Sprintf("Page %s declares %s as its canonical URL.", p.URL, p.Canonical), p.URL)
		}

		viewportOK := viewportCorrect(p.Viewport)
		agg.check(viewportOK)
		if p.Viewport == "" {
			agg.add(models.IssueMissingViewport, fmt.Sprintf("Page %s has no viewport meta tag.", p.URL), p.URL)
		} else if !viewportOK {
			agg.add(models.IssueIncorrectViewport, fmt.Sprintf("Page %s has a viewport tag without width=device-width.", p.URL), p.URL)
		}
	}
}

func viewportCorrect(viewport string) bool {
	return viewport != "" && strings.Contains(strings.ToLower(viewport), "width=device-width")
}

// duplicateRules flags titles, meta descriptions and H1s shared by more
// than one page. One issue is raised per duplicated value, listing all
// affected URLs.
func duplicateRules(agg *aggregation, pages []*models.Page) {
	duplicateRule(agg, pages, models.IssueDuplicateTitle, "title", func(p *models.Page) string { return p.Title })
	duplicateRule(agg, pages, models.IssueDuplicateMeta, "meta description", func(p *models.Page) string { return p.MetaDescription })
	duplicateRule(agg, pages, models.IssueDuplicateH1, "H1", func(p *models.Page) string { return p.H1 })
}

func duplicateRule(agg *aggregation, pages []*models.Page, issueType models.IssueType, field string, value func(*models.Page) string) {
	byValue := make(map[string][]string)
	var order []string
	for _, p := range pages {
		v := value(p)
		if v == "" {
			continue
		}
		if _, seen := byValue[v]; !seen {
			order = append(order, v)
		}
		byValue[v] = append(byValue[v], p.URL)
	}

	for _, v := range order {
		urls := byValue[v]
		for range urls {
			agg.check(len(urls) == 1)
		}
		if len(urls) > 1 {
			agg.add(issueType, fmt.Sprintf("%d pages share the same %s %q.", len(urls), field, v), urls...)
		}
	}
}

// graphRules converts the link-graph findings into issues. Each crawled
// page contributes one orphan check; each broken internal link is a failed
// check of its own.
func graphRules(agg *aggregation, graph *models.LinkGraphReport) {
	if graph == nil {
		return
	}

	orphans := make(map[string]struct{}, len(graph.OrphanPages))
	for _, u := range graph.OrphanPages {
		orphans[u] = struct{}{}
	}
	for _, d := range graph.Degrees {
		_, orphan := orphans[d.URL]
		agg.check(!orphan)
		if orphan {
			agg.add(models.IssueOrphanPage, fmt.Sprintf("Page %s has no incoming internal links.", d.URL), d.URL)
		}
	}

	for _, b := range graph.BrokenLinks {
		agg.check(false)
		agg.add(models.IssueBrokenInternalLink,
			fmt.Sprintf("Link from %s to %s points at a page that was never fetched.", b.SourceURL, b.TargetURL),
			b.SourceURL, b.TargetURL)
	}
}

func siteRules(agg *aggregation, site *checks.SiteResult) {
	if site == nil {
		return
	}

	agg.check(site.RobotsTxtFound)
	if !site.RobotsTxtFound {
		agg.add(models.IssueMissingRobotsTxt, "No robots.txt was found at the site root.")
	}

	agg.check(site.SitemapFound)
	if !site.SitemapFound {
		agg.add(models.IssueMissingSitemap, "No sitemap.xml was found.")
	}

	agg.check(site.HTTPS)
	if !site.HTTPS {
		agg.add(models.IssueNoHTTPS, "The site is not served over HTTPS.")
	} else {
		agg.check(!site.CertExpiring)
		if site.CertExpiring {
			agg.add(models.IssueCertificateExpiring,
				fmt.Sprintf("The TLS certificate expires on %s.", site.CertNotAfter.Format("2006-01-02")))
		}
	}
}

// score starts at 100, subtracts the per-severity weight of every issue,
// multiplies by 0.5 + 0.5*passRatio and clamps to [0, 100].
func score(agg *aggregation) float64 {
	total := 100.0
	for _, issue := range agg.issues {
		total -= severityWeights[issue.Severity]
	}

	passRatio := 1.0
	if agg.total > 0 {
		passRatio = float64(agg.passed) / float64(agg.total)
	}
	total *= 0.5 + 0.5*passRatio

	return math.Max(0, math.Min(100, total))
}

// SortBySeverity orders issues critical-first for presentation.
func SortBySeverity(issues []models.TechnicalIssue) {
	rank := map[models.Severity]int{
		models.SeverityCritical: 0,
		models.SeverityHigh:     1,
		models.SeverityMedium:   2,
		models.SeverityLow:      3,
		models.SeverityInfo:     4,
	}
	sort.SliceStable(issues, func(i, j int) bool {
		return rank[issues[i].Severity] < rank[issues[j].Severity]
	})
}
