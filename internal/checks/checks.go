// Package checks performs the site-level technical checks that complement
// the per-page rules: robots.txt, sitemap.xml and TLS certificate health.
// Every check inspects the real site; nothing here is synthesized.
package checks

import (
	"context"
	"crypto/tls"
	"encoding/xml"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"seoaudit/internal/fetcher"
)

// certExpiryWarning is how close to expiry a certificate starts being
// reported as expiring.
const certExpiryWarning = 30 * 24 * time.Hour

// SiteResult holds the outcome of all site-level checks.
type SiteResult struct {
	RobotsTxtFound  bool      `json:"robots_txt_found"`
	RobotsDisallows []string  `json:"robots_disallows,omitempty"`
	RobotsSitemaps  []string  `json:"robots_sitemaps,omitempty"`
	SitemapFound    bool      `json:"sitemap_found"`
	SitemapURLCount int       `json:"sitemap_url_count"`
	HTTPS           bool      `json:"https"`
	CertIssuer      string    `json:"cert_issuer,omitempty"`
	CertNotAfter    time.Time `json:"cert_not_after,omitzero"`
	CertExpiring    bool      `json:"cert_expiring"`
}

// Run executes all site checks against the root of baseURL. Individual
// check failures are recorded as negative findings, never returned as
// errors; only an unusable base URL is an error.
func Run(ctx context.Context, baseURL string, fetch fetcher.Fetcher) (*SiteResult, error) {
	root, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if root.Hostname() == "" {
		return nil, fmt.Errorf("base URL %q has no host", baseURL)
	}

	result := &SiteResult{HTTPS: root.Scheme == "https"}

	checkRobots(ctx, root, fetch, result)
	checkSitemap(ctx, root, fetch, result)
	if result.HTTPS {
		checkCertificate(root.Hostname(), result)
	}
	return result, nil
}

// checkRobots fetches and parses /robots.txt, collecting Disallow rules and
// Sitemap directives.
func checkRobots(ctx context.Context, root *url.URL, fetch fetcher.Fetcher, result *SiteResult) {
	robotsURL := root.Scheme + "://" + root.Host + "/robots.txt"
	res, err := fetch.Fetch(ctx, robotsURL)
	if err != nil || res.StatusCode != 200 {
		log.Debug().Str("url", robotsURL).Err(err).Msg("robots.txt not available")
		return
	}

	result.RobotsTxtFound = true
	for _, line := range strings.Split(res.Body, "\n") {
		line = strings.TrimSpace(line)
		if i := strings.Index(line, "#"); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "disallow":
			if value != "" {
				result.RobotsDisallows = append(result.RobotsDisallows, value)
			}
		case "sitemap":
			result.RobotsSitemaps = append(result.RobotsSitemaps, value)
		}
	}
}

type sitemapURLSet struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

type sitemapIndex struct {
	XMLName  xml.Name `xml:"sitemapindex"`
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

// checkSitemap fetches and parses the sitemap, preferring locations
// announced in robots.txt over the /sitemap.xml default.
func checkSitemap(ctx context.Context, root *url.URL, fetch fetcher.Fetcher, result *SiteResult) {
	locations := result.RobotsSitemaps
	if len(locations) == 0 {
		locations = []string{root.Scheme + "://" + root.Host + "/sitemap.xml"}
	}

	for _, loc := range locations {
		res, err := fetch.Fetch(ctx, loc)
		if err != nil || res.StatusCode != 200 {
			log.Debug().Str("url", loc).Err(err).Msg("sitemap not available")
			continue
		}

		var urlSet sitemapURLSet
		if err := xml.Unmarshal([]byte(res.Body), &urlSet); err == nil && len(urlSet.URLs) > 0 {
			result.SitemapFound = true
			result.SitemapURLCount += len(urlSet.URLs)
			continue
		}

		var index sitemapIndex
		if err := xml.Unmarshal([]byte(res.Body), &index); err == nil && len(index.Sitemaps) > 0 {
			result.SitemapFound = true
			// Child sitemaps are counted, not fetched; the audit only needs
			// to know a sitemap exists and roughly how large it is.
			result.SitemapURLCount += len(index.Sitemaps)
		}
	}
}

// checkCertificate performs a real TLS handshake against port 443 and
// inspects the leaf certificate.
func checkCertificate(hostname string, result *SiteResult) {
	dialer := &net.Dialer{Timeout: fetcher.DefaultTimeout}
	conn, err := tls.DialWithDialer(dialer, "tcp", hostname+":443", &tls.Config{ServerName: hostname})
	if err != nil {
		log.Debug().Str("host", hostname).Err(err).Msg("TLS handshake failed")
		result.HTTPS = false
		return
	}
	defer conn.Close()

	certs := conn.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return
	}
	leaf := certs[0]
	result.CertIssuer = leaf.Issuer.CommonName
	result.CertNotAfter = leaf.NotAfter
	result.CertExpiring = time.Until(leaf.NotAfter) < certExpiryWarning
}
