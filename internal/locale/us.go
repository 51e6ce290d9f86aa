package locale

import (
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/nao1215/newscrawl/internal/model"
)

const usBase = "https://www.nytimes.com/"

// storyStrip removes ads, promos and toolbars from article#story.
var storyStrip = []string{
	`div[id^="story-ad-"]`,
	`div[data-testid="brand-bar"]`,
	`div#sponsor-wrapper`,
	`div#top-wrapper`,
	`div#bottom-wrapper`,
	`div[role="toolbar"]`,
}

const bylineSelector = `span.last-byline[itemprop="name"]`

type usStrategy struct{}

func (usStrategy) Locale() model.Locale { return model.LocaleUS }

func (usStrategy) LandingURL(term string) string {
	if term == "" {
		return usBase
	}
	return usBase + "search?query=" + url.QueryEscape(term)
}

func (usStrategy) ListArticles(doc *goquery.Document, searching bool) []model.ArticleRecord {
	anchors, titleSel, descSel := "section.story-wrapper a", "h3.indicate-hover", "p.summary-class"
	if searching {
		anchors, titleSel, descSel = "ol li a", "h4", "p"
	}

	var records []model.ArticleRecord
	doc.Find(anchors).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		rec, ok := stub(usBase, href, a.Find(titleSel).Text(), a.Find(descSel).Text())
		if ok {
			records = append(records, rec)
		}
	})
	return records
}

func (usStrategy) Readiness() Readiness {
	return Readiness{Function: appReady}
}

func (usStrategy) Extract(doc *goquery.Document) Extraction {
	return Extraction{
		Author: joinAuthors(texts(doc.Find(bylineSelector))),
		Text:   bodyText(doc, doc.Find("div.StoryBodyCompanionColumn")),
		HTML:   sanitize(doc.Find("article#story"), storyStrip),
	}
}

func (usStrategy) ReleaseDate(link string) (string, error) {
	return ExtractDateFromURL(link)
}
