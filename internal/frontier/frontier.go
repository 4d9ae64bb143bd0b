// Package frontier implements the breadth-first work queue of a crawl and
// the URL normalization applied before any URL enters it.
package frontier

import (
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
)

// Normalize strips the fragment from a URL unconditionally and the query
// string when ignoreQuery is set. Path case is left untouched. Invalid URLs
// pass through unchanged so the caller can still record them.
func Normalize(rawURL string, ignoreQuery bool) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		log.Debug().Str("url", rawURL).Err(err).Msg("Failed to parse URL, passing through")
		return rawURL
	}
	u.Fragment = ""
	u.RawFragment = ""
	if ignoreQuery {
		u.RawQuery = ""
	}
	return u.String()
}

// Resolve resolves an href against a base URL. Empty, javascript:, mailto:
// and pure-fragment hrefs yield nil.
func Resolve(base *url.URL, href string) *url.URL {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") || strings.HasPrefix(href, "#") {
		return nil
	}
	rel, err := url.Parse(href)
	if err != nil {
		log.Debug().Str("href", href).Err(err).Msg("Failed to parse href")
		return nil
	}
	return base.ResolveReference(rel)
}

// SameHost reports whether target is on the same host as base, allowing
// subdomains of the base host.
func SameHost(base, target *url.URL) bool {
	if target == nil {
		return false
	}
	baseHost := base.Hostname()
	targetHost := target.Hostname()
	return targetHost == baseHost || strings.HasSuffix(targetHost, "."+baseHost)
}

// Item is one unit of crawl work: a normalized URL and its BFS depth.
type Item struct {
	URL   string
	Depth int
}

// Frontier is a strict FIFO queue of (url, depth) pairs with a visited set.
// Pages at depth N are all enqueued before any depth N+1 page is dequeued,
// so shallow pages win when a page budget truncates the crawl.
type Frontier struct {
	queue    []Item
	visited  map[string]struct{}
	maxDepth int
}

// New creates an empty frontier bounded by maxDepth.
func New(maxDepth int) *Frontier {
	return &Frontier{
		visited:  make(map[string]struct{}),
		maxDepth: maxDepth,
	}
}

// Enqueue appends a URL at the given depth. It is a no-op when the URL was
// already visited or the depth exceeds the frontier's limit. The URL is
// marked visited at enqueue time, never re-enqueued for the same session.
func (f *Frontier) Enqueue(rawURL string, depth int) bool {
	if depth > f.maxDepth {
		return false
	}
	if _, seen := f.visited[rawURL]; seen {
		return false
	}
	f.visited[rawURL] = struct{}{}
	f.queue = append(f.queue, Item{URL: rawURL, Depth: depth})
	return true
}

// Dequeue pops the oldest item. The second return value is false when the
// frontier is empty.
func (f *Frontier) Dequeue() (Item, bool) {
	if len(f.queue) == 0 {
		return Item{}, false
	}
	item := f.queue[0]
	f.queue = f.queue[1:]
	return item, true
}

// Visited reports whether a URL has ever been enqueued.
func (f *Frontier) Visited(rawURL string) bool {
	_, ok := f.visited[rawURL]
	return ok
}

// Len returns the number of pending items.
func (f *Frontier) Len() int {
	return len(f.queue)
}
