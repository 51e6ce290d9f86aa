package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/newscrawl/internal/browser"
	"github.com/nao1215/newscrawl/internal/locale"
	"github.com/nao1215/newscrawl/internal/model"
	"github.com/nao1215/newscrawl/internal/storage"
)

// RecordStore persists enriched records. database.CrawlDB implements it.
type RecordStore interface {
	InsertArticle(ctx context.Context, round int, a *model.ArticleRecord) error
}

// Addresser uploads an article unit. storage.Addresser implements it.
type Addresser interface {
	ArticleCID(ctx context.Context, article model.ArticleRecord, html string) (string, error)
}

// ArticleExtractor visits queued links in order and enriches their records.
type ArticleExtractor struct {
	sessions  Sessions
	strategy  locale.Strategy
	set       *WorkingSet
	addresser Addresser
	records   RecordStore
	timeout   time.Duration
	sample    *model.AlterationSample
	logger    *slog.Logger
}

// ExtractorOption configures an ArticleExtractor.
type ExtractorOption func(*ArticleExtractor)

// WithArticleTimeout bounds navigation and readiness waits per article.
func WithArticleTimeout(d time.Duration) ExtractorOption {
	return func(e *ArticleExtractor) {
		e.timeout = d
	}
}

// WithAlterationSample compares computed hashes against sample and flags
// items whose content changed.
func WithAlterationSample(sample *model.AlterationSample) ExtractorOption {
	return func(e *ArticleExtractor) {
		e.sample = sample
	}
}

// WithExtractorLogger sets the logger.
func WithExtractorLogger(logger *slog.Logger) ExtractorOption {
	return func(e *ArticleExtractor) {
		e.logger = logger
	}
}

// NewArticleExtractor creates an ArticleExtractor draining set.
func NewArticleExtractor(
	sessions Sessions,
	strategy locale.Strategy,
	set *WorkingSet,
	addresser Addresser,
	records RecordStore,
	opts ...ExtractorOption,
) *ArticleExtractor {
	e := &ArticleExtractor{
		sessions:  sessions,
		strategy:  strategy,
		set:       set,
		addresser: addresser,
		records:   records,
		timeout:   50 * time.Second,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetAlterationSample replaces the alteration sample used by later calls
// to ParseItems. A nil sample disables the comparison.
func (e *ArticleExtractor) SetAlterationSample(sample *model.AlterationSample) {
	e.sample = sample
}

// ParseItems processes the queue until it is empty or ctx is done. Every
// visited link leaves the queue whatever its outcome. The returned results
// are in processing order; the error is non-nil only when no session was
// available or ctx ended early.
func (e *ArticleExtractor) ParseItems(ctx context.Context, round int) ([]model.ItemResult, error) {
	page, err := ensurePage(ctx, e.sessions)
	if err != nil {
		return nil, err
	}
	if err := page.SetJavaScriptEnabled(ctx, false); err != nil {
		e.logger.Warn("failed to disable JavaScript", "error", err)
	}

	var results []model.ItemResult
	for {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		link, ok := e.set.Next()
		if !ok {
			return results, nil
		}

		res := e.parseItem(ctx, page, round, link)
		e.set.Done(link)
		results = append(results, res)

		e.logger.Debug("article processed", "link", link, "status", res.Status, "reason", res.Reason)
	}
}

func (e *ArticleExtractor) parseItem(ctx context.Context, page browser.Page, round int, link string) model.ItemResult {
	res := model.ItemResult{Link: link, Status: model.ItemOK}

	rec, ok := e.set.Record(link)
	if !ok {
		res.Status = model.ItemSkipped
		res.Reason = "no list record for link"
		return res
	}

	if err := page.Goto(ctx, link, e.timeout); err != nil {
		e.logger.Warn("article navigation failed", "link", link, "error", err)
		res.NavigationFailed = true
	}
	e.waitReady(ctx, page, link)

	html, err := page.Content(ctx)
	if err != nil {
		return failed(res, fmt.Errorf("failed to read article: %w", err))
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return failed(res, fmt.Errorf("failed to parse article: %w", err))
	}
	ex := e.strategy.Extract(doc)

	rec.Author = ex.Author
	if date, err := e.strategy.ReleaseDate(link); err != nil {
		res = failed(res, err)
	} else {
		rec.ReleaseDate = date
	}
	rec.ContentHash = storage.HashText(ex.Text)

	if e.sample != nil {
		if prev, ok := e.sample.HashFor(link); ok && prev != rec.ContentHash {
			res.Altered = true
			e.logger.Warn("article content changed since sampled round",
				"link", link, "sample_round", e.sample.Round)
		}
	}

	cid, err := e.addresser.ArticleCID(ctx, rec, ex.HTML)
	if err != nil {
		res = failed(res, err)
	} else {
		rec.CID = cid
	}

	e.set.Update(link, func(r *model.ArticleRecord) { *r = rec })

	if err := e.records.InsertArticle(ctx, round, &rec); err != nil {
		res = failed(res, fmt.Errorf("failed to persist article: %w", err))
	}
	return res
}

func (e *ArticleExtractor) waitReady(ctx context.Context, page browser.Page, link string) {
	ready := e.strategy.Readiness()
	var err error
	if ready.Function != "" {
		err = page.WaitForFunction(ctx, ready.Function, e.timeout)
	} else if len(ready.Selectors) > 0 {
		_, err = page.WaitForAny(ctx, ready.Selectors, e.timeout)
	}
	if err != nil {
		e.logger.Warn("article not ready, extracting anyway", "link", link, "error", err)
	}
}

// failed marks res failed. The first failure reason is kept.
func failed(res model.ItemResult, err error) model.ItemResult {
	if res.Status != model.ItemFailed {
		res.Status = model.ItemFailed
		res.Reason = err.Error()
	}
	return res
}
