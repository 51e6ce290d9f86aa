package locale

import (
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/nao1215/newscrawl/internal/model"
)

const (
	esLanding = "https://www.nytimes.com/es/"
	esBase    = "https://nytimes.com"
)

type esStrategy struct{}

func (esStrategy) Locale() model.Locale { return model.LocaleES }

func (esStrategy) LandingURL(term string) string {
	if term == "" {
		return esLanding
	}
	return usBase + "search?query=" + url.QueryEscape(term)
}

// ListArticles reads "ol li" entries. Headline markup varies, so the title
// and link come from "h3 a", then "a h3" (link on the parent anchor), then
// the first paragraph link.
func (esStrategy) ListArticles(doc *goquery.Document, _ bool) []model.ArticleRecord {
	var records []model.ArticleRecord
	doc.Find("ol li").Each(func(_ int, li *goquery.Selection) {
		para := li.Find("p").First()

		var title, description, href string
		if a := li.Find("h3 a").First(); cleanText(a.Text()) != "" {
			title, description = a.Text(), para.Text()
			href, _ = a.Attr("href")
		} else if h3 := li.Find("a h3").First(); cleanText(h3.Text()) != "" {
			title, description = h3.Text(), para.Text()
			href, _ = h3.Closest("a").Attr("href")
		} else {
			title = para.Text()
			href, _ = li.Find("p a").First().Attr("href")
		}

		if rec, ok := stub(esBase, href, title, description); ok {
			records = append(records, rec)
		}
	})
	return records
}

func (esStrategy) Readiness() Readiness {
	return Readiness{Function: appReady}
}

func (esStrategy) Extract(doc *goquery.Document) Extraction {
	return Extraction{
		Author: joinAuthors(texts(doc.Find(bylineSelector))),
		Text:   bodyText(doc, doc.Find("p")),
		HTML:   sanitize(doc.Find("article#story"), storyStrip),
	}
}

func (esStrategy) ReleaseDate(link string) (string, error) {
	return ExtractDateFromURL(link)
}
