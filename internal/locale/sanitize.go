package locale

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// CharsetPrefix is prepended to every uploaded article so gateways serve it as UTF-8.
const CharsetPrefix = `<meta charset="UTF-8">`

// punctuation maps typographic characters to their ASCII forms.
var punctuation = strings.NewReplacer(
	"’", "'",
	"‘", "'",
	"“", `"`,
	"”", `"`,
	"—", "--",
)

// NormalizePunctuation replaces curly quotes and em dashes with ASCII.
func NormalizePunctuation(s string) string {
	return punctuation.Replace(s)
}

// CanonicalText is the plain-text form that gets hashed: punctuation
// normalized, Unicode NFC, whitespace collapsed.
func CanonicalText(s string) string {
	return cleanText(norm.NFC.String(NormalizePunctuation(s)))
}

// sanitize removes the strip selectors from the first container match and
// renders it with the charset prefix. A missing container yields only the prefix.
func sanitize(container *goquery.Selection, strip []string) string {
	container = container.First()
	if container.Length() == 0 {
		return CharsetPrefix
	}
	for _, sel := range strip {
		container.Find(sel).Remove()
	}

	var buf bytes.Buffer
	for _, n := range container.Nodes {
		if err := html.Render(&buf, n); err != nil {
			return CharsetPrefix
		}
	}
	return CharsetPrefix + NormalizePunctuation(buf.String())
}

// bodyText joins the text of blocks with single spaces. When the edition
// selectors match nothing it falls back to readability's main content.
func bodyText(doc *goquery.Document, blocks *goquery.Selection) string {
	parts := texts(blocks)
	if len(parts) > 0 {
		return CanonicalText(strings.Join(parts, " "))
	}
	return CanonicalText(readableText(doc))
}

func readableText(doc *goquery.Document) string {
	raw, err := doc.Html()
	if err != nil {
		return ""
	}
	pageURL := doc.Url
	if pageURL == nil {
		pageURL, _ = url.Parse(usBase)
	}

	article, err := readability.FromReader(strings.NewReader(raw), pageURL)
	if err != nil || article.Content == "" {
		return ""
	}
	content, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
	if err != nil {
		return ""
	}
	return content.Text()
}

// joinAuthors merges byline fragments, dropping repeats.
func joinAuthors(names []string) string {
	seen := make(map[string]bool, len(names))
	out := names[:0]
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return strings.Join(out, ", ")
}
