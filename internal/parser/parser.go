// Package parser extracts structural facts from fetched HTML documents.
// Parsing is a pure function of its inputs: no I/O, no side effects.
package parser

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"seoaudit/internal/frontier"
	"seoaudit/internal/models"
)

// Parse extracts PageFacts from an HTML body. Non-HTML content types yield
// minimal facts with all textual fields empty, so non-HTML resources can
// still be recorded as pages. Malformed HTML degrades to empty facts; it is
// never an error at this layer.
func Parse(pageURL, contentType, body string) models.PageFacts {
	if !strings.Contains(contentType, "text/html") {
		return models.PageFacts{}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		log.Debug().Str("url", pageURL).Err(err).Msg("Failed to parse HTML")
		return models.PageFacts{}
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		log.Debug().Str("url", pageURL).Err(err).Msg("Invalid page URL")
		return models.PageFacts{}
	}

	facts := models.PageFacts{
		Title:           strings.TrimSpace(doc.Find("title").First().Text()),
		MetaDescription: strings.TrimSpace(attrOf(doc, `meta[name="description"]`, "content")),
		H1:              strings.TrimSpace(doc.Find("h1").First().Text()),
		Viewport:        strings.TrimSpace(attrOf(doc, `meta[name="viewport"]`, "content")),
		WordCount:       len(strings.Fields(doc.Find("body").Text())),
	}

	if href := attrOf(doc, `link[rel="canonical"]`, "href"); href != "" {
		if resolved := frontier.Resolve(base, href); resolved != nil {
			facts.Canonical = resolved.String()
		}
	}

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		if block := strings.TrimSpace(s.Text()); block != "" {
			facts.JSONLD = append(facts.JSONLD, block)
		}
	})

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		resolved := frontier.Resolve(base, href)
		if resolved == nil {
			return
		}
		facts.Links = append(facts.Links, models.Link{
			Href: resolved.String(),
			Text: strings.TrimSpace(s.Text()),
		})
	})

	return facts
}

func attrOf(doc *goquery.Document, selector, attr string) string {
	value, _ := doc.Find(selector).First().Attr(attr)
	return value
}
