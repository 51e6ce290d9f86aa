// Package crawler turns a browser session into enriched article records.
//
// A round works on one WorkingSet: the ListFetcher reads the landing or
// search page and queues article links with their stub records, and the
// ArticleExtractor drains the queue in FIFO order. For every link it loads
// the page, waits for the edition's readiness signal, extracts author, text
// and sanitized markup through the locale strategy, derives the release
// date, hashes the text, uploads the article unit and persists the record.
//
// Failures are per item. A page that does not finish loading is still
// extracted, and a failed upload or date leaves a failed ItemResult while
// the round goes on.
//
// # Usage
//
//	set := crawler.NewWorkingSet()
//	fetcher := crawler.NewListFetcher(manager, strategy, set)
//	if _, err := fetcher.FetchList(ctx); err != nil {
//		logger.Warn("list fetch failed", "error", err)
//	}
//	extractor := crawler.NewArticleExtractor(manager, strategy, set, addresser, db)
//	results, err := extractor.ParseItems(ctx, round)
package crawler
