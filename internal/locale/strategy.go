package locale

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/nao1215/newscrawl/internal/model"
)

// Readiness describes how to tell that an article page has rendered.
// Exactly one of Function or Selectors is set.
type Readiness struct {
	// Function is a JavaScript predicate polled until it returns true.
	Function string

	// Selectors are raced; the first one present wins.
	Selectors []string
}

// Extraction is what a strategy pulls out of one article page.
type Extraction struct {
	// Author is the byline, empty when none was found.
	Author string

	// Text is the canonical plain text used for hashing.
	Text string

	// HTML is the sanitized article markup that gets uploaded.
	HTML string
}

// Strategy bundles the edition-specific parts of crawling: where to land,
// how to read the listing, how to read an article and how to date it.
type Strategy interface {
	// Locale returns the edition this strategy handles.
	Locale() model.Locale

	// LandingURL returns the front page, or the search page for term.
	LandingURL(term string) string

	// ListArticles reads stub records from a listing page. Denylisted links
	// and entries with neither title nor description are dropped.
	ListArticles(doc *goquery.Document, searching bool) []model.ArticleRecord

	// Readiness returns the signal to wait for after opening an article.
	Readiness() Readiness

	// Extract reads author, text and sanitized markup from an article page.
	// doc is modified.
	Extract(doc *goquery.Document) Extraction

	// ReleaseDate derives the publication date from an article link.
	ReleaseDate(link string) (string, error)
}

// For returns the strategy for l. Unknown values fall back to the US edition.
func For(l model.Locale) Strategy {
	switch l {
	case model.LocaleCN:
		return cnStrategy{}
	case model.LocaleES:
		return esStrategy{}
	default:
		return usStrategy{}
	}
}

// appReady is satisfied once the client-side app has rendered text.
const appReady = `() => { const el = document.querySelector("div#app"); return !!el && el.innerText.length > 0 }`

// stub builds a list record when the entry passes the shared filters.
func stub(base, href, title, description string) (model.ArticleRecord, bool) {
	link, ok := resolve(base, href)
	if !ok || Denied(link) {
		return model.ArticleRecord{}, false
	}
	title = cleanText(title)
	description = cleanText(description)
	if title == "" && description == "" {
		return model.ArticleRecord{}, false
	}
	return model.ArticleRecord{Title: title, Description: description, Link: link}, true
}

// resolve turns href into an absolute URL against base and drops the fragment.
func resolve(base, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return "", false
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	u := b.ResolveReference(ref)
	u.Fragment = ""
	return u.String(), true
}

// cleanText collapses runs of whitespace.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// texts returns the trimmed, non-empty text of every match.
func texts(sel *goquery.Selection) []string {
	var out []string
	sel.Each(func(_ int, s *goquery.Selection) {
		if t := cleanText(s.Text()); t != "" {
			out = append(out, t)
		}
	})
	return out
}
