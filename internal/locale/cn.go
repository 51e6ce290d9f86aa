package locale

import (
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/nao1215/newscrawl/internal/model"
)

const cnBase = "https://cn.nytimes.com"

type cnStrategy struct{}

func (cnStrategy) Locale() model.Locale { return model.LocaleCN }

func (cnStrategy) LandingURL(term string) string {
	if term == "" {
		return cnBase + "/"
	}
	return cnBase + "/search?query=" + url.QueryEscape(term)
}

// ListArticles reads the lead stories and the regular summary list.
func (cnStrategy) ListArticles(doc *goquery.Document, _ bool) []model.ArticleRecord {
	var records []model.ArticleRecord
	add := func(container *goquery.Selection, anchorSel string) {
		a := container.Find(anchorSel).First()
		href, _ := a.Attr("href")
		if rec, ok := stub(cnBase, href, a.Text(), container.Find("p.summary").First().Text()); ok {
			records = append(records, rec)
		}
	}

	doc.Find("div.leadNewsContainer").Each(func(_ int, s *goquery.Selection) {
		add(s, "h2.leadHeadline a")
	})
	doc.Find("ul.regularSummaryList li").Each(func(_ int, s *goquery.Selection) {
		add(s, "h3.regularSummaryHeadline a")
	})
	return records
}

func (cnStrategy) Readiness() Readiness {
	return Readiness{Selectors: []string{"article.article-content", "div.article-paragraph"}}
}

func (cnStrategy) Extract(doc *goquery.Document) Extraction {
	return Extraction{
		Author: joinAuthors(texts(doc.Find("address"))),
		Text:   bodyText(doc, doc.Find("div.article-paragraph")),
		HTML:   sanitize(doc.Find("article.article-content"), []string{`div[id^="medium-rectangle-ad-"]`}),
	}
}

func (cnStrategy) ReleaseDate(link string) (string, error) {
	return ExtractDateFromURL(link)
}
