package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/newscrawl/internal/browser"
	"github.com/nao1215/newscrawl/internal/locale"
)

// ErrSessionUnavailable is returned when no browser session could be
// obtained, typically because negotiation is on cooldown.
var ErrSessionUnavailable = errors.New("browser session unavailable")

// Sessions provides the browser page of the current session.
// session.Manager implements it.
type Sessions interface {
	CheckSession(ctx context.Context) (bool, error)
	Page() (browser.Page, error)
}

// ListFetcher reads the landing or search page of the session and queues
// the article links it finds.
type ListFetcher struct {
	sessions  Sessions
	strategy  locale.Strategy
	set       *WorkingSet
	searching bool
	maxPages  int
	logger    *slog.Logger
}

// FetcherOption configures a ListFetcher.
type FetcherOption func(*ListFetcher)

// WithSearch tells the fetcher that the session landed on search results.
func WithSearch(searching bool) FetcherOption {
	return func(f *ListFetcher) {
		f.searching = searching
	}
}

// WithMaxPages caps the number of queued links. Zero means no cap.
func WithMaxPages(maxPages int) FetcherOption {
	return func(f *ListFetcher) {
		f.maxPages = maxPages
	}
}

// WithFetcherLogger sets the logger.
func WithFetcherLogger(logger *slog.Logger) FetcherOption {
	return func(f *ListFetcher) {
		f.logger = logger
	}
}

// NewListFetcher creates a ListFetcher that fills set.
func NewListFetcher(sessions Sessions, strategy locale.Strategy, set *WorkingSet, opts ...FetcherOption) *ListFetcher {
	f := &ListFetcher{
		sessions: sessions,
		strategy: strategy,
		set:      set,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchList snapshots the current page and queues every listed article.
// It returns the number of links queued by this call.
func (f *ListFetcher) FetchList(ctx context.Context) (int, error) {
	page, err := ensurePage(ctx, f.sessions)
	if err != nil {
		return 0, err
	}

	html, err := page.Content(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read listing page: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 0, fmt.Errorf("failed to parse listing page: %w", err)
	}

	records := f.strategy.ListArticles(doc, f.searching)
	queued := 0
	for _, rec := range records {
		if f.maxPages > 0 && f.set.QueueLen() >= f.maxPages {
			f.logger.Info("queue limit reached", "max_pages", f.maxPages, "dropped", len(records)-queued)
			break
		}
		f.set.Enqueue(rec)
		queued++
	}

	f.logger.Info("article list fetched",
		"locale", f.strategy.Locale(),
		"found", len(records),
		"queued", queued,
		"duplicates", f.set.Duplicates(),
	)
	return queued, nil
}

func ensurePage(ctx context.Context, sessions Sessions) (browser.Page, error) {
	ok, err := sessions.CheckSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSessionUnavailable, err)
	}
	if !ok {
		return nil, ErrSessionUnavailable
	}
	page, err := sessions.Page()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSessionUnavailable, err)
	}
	return page, nil
}
