package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nao1215/newscrawl/internal/audit"
	"github.com/nao1215/newscrawl/internal/crawler"
	"github.com/nao1215/newscrawl/internal/model"
)

// Step names.
const (
	StepSession    = "session"
	StepAlteration = "alteration"
	StepList       = "list"
	StepItems      = "items"
	StepClose      = "close"
)

// SessionChecker is the part of session.Manager the session step needs.
type SessionChecker interface {
	CheckSession(ctx context.Context) (bool, error)
	Session() model.Session
}

// SessionStep makes sure a browser session is open before crawling.
type SessionStep struct {
	sessions SessionChecker
}

// NewSessionStep creates a SessionStep.
func NewSessionStep(sessions SessionChecker) *SessionStep {
	return &SessionStep{sessions: sessions}
}

// Name returns the step name.
func (s *SessionStep) Name() string {
	return StepSession
}

// Do checks or negotiates the session and records its state.
func (s *SessionStep) Do(ctx context.Context, report *model.RoundReport) error {
	ok, err := s.sessions.CheckSession(ctx)
	report.Session = s.sessions.Session()
	if err != nil {
		return fmt.Errorf("%w: %w", crawler.ErrSessionUnavailable, err)
	}
	if !ok {
		return crawler.ErrSessionUnavailable
	}
	return nil
}

// Sampler loads an alteration sample. audit.Engine implements it.
type Sampler interface {
	AlterationSample(ctx context.Context, current int) (*model.AlterationSample, error)
}

// SampleSink receives the alteration sample. crawler.ArticleExtractor
// implements it.
type SampleSink interface {
	SetAlterationSample(sample *model.AlterationSample)
}

// AlterationStep attaches a sample of an earlier round to the extractor on
// rounds where the alteration check is due. It never fails the round.
type AlterationStep struct {
	sampler Sampler
	sink    SampleSink
	logger  *slog.Logger
}

// NewAlterationStep creates an AlterationStep.
func NewAlterationStep(sampler Sampler, sink SampleSink, logger *slog.Logger) *AlterationStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &AlterationStep{sampler: sampler, sink: sink, logger: logger}
}

// Name returns the step name.
func (s *AlterationStep) Name() string {
	return StepAlteration
}

// Do loads the sample when due.
func (s *AlterationStep) Do(ctx context.Context, report *model.RoundReport) error {
	if !audit.AlterationCheckDue(report.Round) {
		s.logger.Debug("alteration check not due", "round", report.Round)
		return nil
	}

	sample, err := s.sampler.AlterationSample(ctx, report.Round)
	switch {
	case errors.Is(err, audit.ErrNoPriorRound):
		s.logger.Info("alteration check skipped, no earlier round", "round", report.Round)
		return nil
	case err != nil:
		s.logger.Warn("alteration sample unavailable", "round", report.Round, "error", err)
		return nil
	}

	s.sink.SetAlterationSample(sample)
	report.AlterationSampleRound = sample.Round
	return nil
}

// ListFetcher is the part of crawler.ListFetcher the list step needs.
type ListFetcher interface {
	FetchList(ctx context.Context) (int, error)
}

// ListStep fills the queue from the landing page when it is empty.
type ListStep struct {
	fetcher ListFetcher
	set     *crawler.WorkingSet
	logger  *slog.Logger
}

// NewListStep creates a ListStep.
func NewListStep(fetcher ListFetcher, set *crawler.WorkingSet, logger *slog.Logger) *ListStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ListStep{fetcher: fetcher, set: set, logger: logger}
}

// Name returns the step name.
func (s *ListStep) Name() string {
	return StepList
}

// Do fetches the list unless links are still queued. A failed fetch is
// recorded and the round continues with whatever is queued.
func (s *ListStep) Do(ctx context.Context, report *model.RoundReport) error {
	if s.set.QueueLen() == 0 {
		if _, err := s.fetcher.FetchList(ctx); err != nil {
			s.logger.Warn("article list fetch failed", "error", err)
			report.ListError = err.Error()
		}
	} else {
		s.logger.Info("queue not empty, skipping list fetch", "queued", s.set.QueueLen())
	}

	report.Queued = s.set.QueueLen()
	report.Duplicates = s.set.Duplicates()
	return nil
}

// ItemParser is the part of crawler.ArticleExtractor the items step needs.
type ItemParser interface {
	ParseItems(ctx context.Context, round int) ([]model.ItemResult, error)
}

// ItemsStep drains the queue.
type ItemsStep struct {
	parser ItemParser
}

// NewItemsStep creates an ItemsStep.
func NewItemsStep(parser ItemParser) *ItemsStep {
	return &ItemsStep{parser: parser}
}

// Name returns the step name.
func (s *ItemsStep) Name() string {
	return StepItems
}

// Do parses every queued article and records the per-item outcomes.
func (s *ItemsStep) Do(ctx context.Context, report *model.RoundReport) error {
	results, err := s.parser.ParseItems(ctx, report.Round)
	for _, r := range results {
		report.AddItem(r)
	}
	if err != nil {
		return fmt.Errorf("article parsing stopped: %w", err)
	}
	return nil
}

// RoundCloser is the part of round.Aggregator the close step needs.
type RoundCloser interface {
	CloseRound(ctx context.Context, round int, articles []model.ArticleRecord) (string, error)
}

// CloseStep uploads the round payload.
type CloseStep struct {
	closer RoundCloser
	set    *crawler.WorkingSet
}

// NewCloseStep creates a CloseStep.
func NewCloseStep(closer RoundCloser, set *crawler.WorkingSet) *CloseStep {
	return &CloseStep{closer: closer, set: set}
}

// Name returns the step name.
func (s *CloseStep) Name() string {
	return StepClose
}

// Do uploads every record of the round, enriched or not.
func (s *CloseStep) Do(ctx context.Context, report *model.RoundReport) error {
	report.Articles = s.set.Articles()
	cid, err := s.closer.CloseRound(ctx, report.Round, report.Articles)
	if err != nil {
		return err
	}
	report.ArticleListCID = cid
	return nil
}
