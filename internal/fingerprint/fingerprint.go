// Package fingerprint computes structural content fingerprints of crawled
// pages and clusters them into exact, near-duplicate and semantically
// similar groups.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// excerptLength caps the text excerpt handed to the semantic oracle.
const excerptLength = 1000

// skippedElements are stripped before any text is collected: boilerplate
// chrome must not influence content similarity.
var skippedElements = map[string]struct{}{
	"script": {}, "style": {}, "nav": {}, "header": {}, "footer": {}, "noscript": {},
}

// Fingerprint is the derived structural summary of one page's content. It
// is computed fresh per analysis run and never mutated.
type Fingerprint struct {
	URL        string
	Hash       string
	Headings   []string
	Paragraphs []string
	Excerpt    string
}

// New builds a fingerprint from raw HTML. Malformed HTML degrades to an
// empty fingerprint; equal hashes imply byte-identical heading and
// paragraph sequences.
func New(pageURL, rawHTML string) Fingerprint {
	fp := Fingerprint{URL: pageURL}

	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		fp.Hash = contentHash(nil, nil)
		return fp
	}

	var text strings.Builder
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if _, skip := skippedElements[n.Data]; skip {
				return
			}
			switch n.Data {
			case "h1", "h2", "h3":
				if t := collapse(textContent(n)); t != "" {
					fp.Headings = append(fp.Headings, t)
				}
			case "p":
				if t := collapse(textContent(n)); t != "" {
					fp.Paragraphs = append(fp.Paragraphs, t)
				}
			}
		}
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
			text.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(doc)

	fp.Excerpt = truncate(collapse(text.String()), excerptLength)
	fp.Hash = contentHash(fp.Headings, fp.Paragraphs)
	return fp
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
			b.WriteString(" ")
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate cuts s to at most max bytes without splitting a UTF-8 rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

func contentHash(headings, paragraphs []string) string {
	h := sha256.New()
	h.Write([]byte(strings.Join(headings, "\n")))
	h.Write([]byte("\n\n"))
	h.Write([]byte(strings.Join(paragraphs, "\n")))
	return hex.EncodeToString(h.Sum(nil))
}

// Jaccard computes |A∩B| / |A∪B| over two string sets. Two empty sets are
// identical by convention (1.0); one empty set against a non-empty one is
// fully dissimilar (0.0).
func Jaccard(a, b []string) float64 {
	setA := toSet(a)
	setB := toSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1.0
	}

	intersection := 0
	for v := range setA {
		if _, ok := setB[v]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 1.0
	}
	return float64(intersection) / float64(union)
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
