// Package linkgraph computes degree, orphan, hub and breakage metrics over
// the page/edge corpus of a completed crawl session.
package linkgraph

import (
	"math"
	"net/url"
	"sort"
	"strings"
	"time"

	"seoaudit/internal/models"
)

// topN bounds the most/least linked lists.
const topN = 10

// Hub thresholds on incoming internal links.
const (
	hubThreshold      = 10
	priorityThreshold = 20
)

// Analyze builds the link-graph report for one session's pages and edges.
// It is a pure function of the corpus: re-running it over unchanged input
// yields an identical report (modulo the generation timestamp).
func Analyze(sessionID string, pages []*models.Page, edges []*models.Edge) *models.LinkGraphReport {
	byID := make(map[int64]*models.Page, len(pages))
	for _, p := range pages {
		byID[p.ID] = p
	}

	// Distinct-source incoming and distinct-target outgoing counts over
	// internal edges only. Edges are already unique per (source, target).
	incoming := make(map[int64]int)
	outgoing := make(map[int64]int)
	var broken []models.BrokenLink
	for _, e := range edges {
		if e.Type != models.LinkInternal {
			continue
		}
		incoming[e.TargetID]++
		outgoing[e.SourceID]++

		if target, ok := byID[e.TargetID]; ok && target.Placeholder() {
			broken = append(broken, models.BrokenLink{
				SourceURL:  e.SourceURL,
				TargetURL:  e.TargetURL,
				AnchorText: e.AnchorText,
				StatusCode: 404,
			})
		}
	}

	// Degree rows cover fetched pages only; placeholder targets are link
	// breakage, not part of the site.
	var degrees []models.PageDegree
	var orphans []string
	for _, p := range pages {
		if p.Placeholder() {
			continue
		}
		d := models.PageDegree{
			URL:      p.URL,
			Incoming: incoming[p.ID],
			Outgoing: outgoing[p.ID],
		}
		degrees = append(degrees, d)
		if d.Incoming == 0 {
			orphans = append(orphans, p.URL)
		}
	}
	sort.Slice(degrees, func(i, j int) bool { return degrees[i].URL < degrees[j].URL })
	sort.Strings(orphans)

	report := &models.LinkGraphReport{
		SessionID:   sessionID,
		Degrees:     degrees,
		OrphanPages: orphans,
		MostLinked:  mostLinked(degrees),
		LeastLinked: leastLinked(degrees),
		BrokenLinks: broken,
		KeyPages:    keyPages(degrees),
		GeneratedAt: time.Now().UTC(),
	}
	report.DistributionScore = distributionScore(degrees, len(orphans), len(broken))
	return report
}

func mostLinked(degrees []models.PageDegree) []models.PageDegree {
	sorted := make([]models.PageDegree, len(degrees))
	copy(sorted, degrees)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Incoming > sorted[j].Incoming })
	if len(sorted) > topN {
		sorted = sorted[:topN]
	}
	return sorted
}

// leastLinked returns the bottom-N by incoming links, excluding orphans.
func leastLinked(degrees []models.PageDegree) []models.PageDegree {
	var linked []models.PageDegree
	for _, d := range degrees {
		if d.Incoming > 0 {
			linked = append(linked, d)
		}
	}
	sort.SliceStable(linked, func(i, j int) bool { return linked[i].Incoming < linked[j].Incoming })
	if len(linked) > topN {
		linked = linked[:topN]
	}
	return linked
}

// keyPages identifies the homepage, first-level category pages and hub
// pages of the crawled site.
func keyPages(degrees []models.PageDegree) models.KeyPages {
	var key models.KeyPages
	for _, d := range degrees {
		u, err := url.Parse(d.URL)
		if err != nil {
			continue
		}
		p := u.Path
		if p == "" || p == "/" || p == "/index.html" {
			key.Homepage = append(key.Homepage, d.URL)
		} else if isCategoryPath(p) {
			key.CategoryPages = append(key.CategoryPages, d.URL)
		}
		if d.Incoming > hubThreshold {
			key.HubPages = append(key.HubPages, models.HubPage{
				URL:      d.URL,
				Incoming: d.Incoming,
				Priority: d.Incoming > priorityThreshold,
			})
		}
	}
	return key
}

// isCategoryPath reports whether a path is a single non-file segment, e.g.
// "/blog" or "/products/".
func isCategoryPath(p string) bool {
	trimmed := strings.Trim(p, "/")
	if trimmed == "" || strings.Contains(trimmed, "/") {
		return false
	}
	return !strings.Contains(trimmed, ".")
}

// distributionScore is the 0-100 link-equity metric: 100 minus a Gini
// inequality penalty (up to 25 points), minus tiered penalties for orphan
// percentage and broken-link count.
func distributionScore(degrees []models.PageDegree, orphanCount, brokenCount int) float64 {
	score := 100.0

	counts := make([]float64, len(degrees))
	for i, d := range degrees {
		counts[i] = float64(d.Incoming)
	}
	score -= gini(counts) * 25

	if len(degrees) > 0 {
		orphanPct := float64(orphanCount) / float64(len(degrees)) * 100
		switch {
		case orphanPct > 30:
			score -= 30
		case orphanPct > 20:
			score -= 20
		case orphanPct > 10:
			score -= 10
		case orphanPct > 5:
			score -= 5
		}
	}

	switch {
	case brokenCount > 20:
		score -= 20
	case brokenCount > 10:
		score -= 15
	case brokenCount > 5:
		score -= 10
	case brokenCount > 0:
		score -= 5
	}

	return math.Max(0, math.Min(100, score))
}

// gini computes the Gini coefficient of a value distribution. A uniform
// distribution (including all-zero) yields 0, maximal inequality tends
// towards 1.
func gini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum, weighted float64
	for i, v := range sorted {
		sum += v
		weighted += float64(i+1) * v
	}
	if sum == 0 {
		return 0
	}
	return (2*weighted)/(float64(n)*sum) - float64(n+1)/float64(n)
}
