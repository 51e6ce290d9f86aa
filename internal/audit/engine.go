package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nao1215/newscrawl/internal/model"
	"github.com/nao1215/newscrawl/internal/signing"
	"github.com/nao1215/newscrawl/internal/storage"
)

// Rejection reasons.
const (
	ReasonSubmissionUnfetchable = "submission unfetchable"
	ReasonSubmissionMalformed   = "submission malformed"
	ReasonSignatureInvalid      = "signature invalid"
	ReasonValueMismatch         = "signed payload does not match value"
	ReasonListUnfetchable       = "article list unfetchable"
	ReasonListMalformed         = "article list malformed"
	ReasonRecordMismatch        = "resampled record does not match"
)

// History is where verdicts are kept and prior rounds are read from.
// database.CrawlDB implements it.
type History interface {
	Rounds(ctx context.Context) ([]model.Round, error)
	SaveVerdict(ctx context.Context, v model.Verdict) error
}

// Engine audits submissions.
type Engine struct {
	store       storage.Store
	addresser   *storage.Addresser
	history     History
	sampleSize  int
	concurrency int
	logger      *slog.Logger
	now         func() time.Time

	randMu sync.Mutex
	rand   *rand.Rand
}

// Option configures an Engine.
type Option func(*Engine)

// WithSampleSize makes every audit re-fetch up to n random article units
// from the list and compare them with the list entries. Zero disables
// resampling.
func WithSampleSize(n int) Option {
	return func(e *Engine) {
		e.sampleSize = n
	}
}

// WithConcurrency bounds AuditBatch. Values below one are ignored.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithRand sets the random source used for sampling.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) {
		e.rand = r
	}
}

// NewEngine creates an Engine reading content from store.
func NewEngine(store storage.Store, history History, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		addresser:   storage.NewAddresser(store),
		history:     history,
		concurrency: 4,
		logger:      slog.Default(),
		now:         time.Now,
		rand:        rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)), //nolint:gosec // sampling, not crypto
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AuditSubmission fetches and checks the submission at submissionCID and
// returns the vote. It never returns an error; every failure is a reject.
func (e *Engine) AuditSubmission(ctx context.Context, submissionCID string, round int) model.Verdict {
	v := model.Verdict{
		ID:            uuid.NewString(),
		SubmissionCID: submissionCID,
		Round:         round,
	}
	reason, ok := e.check(ctx, submissionCID)
	v.Vote = ok
	v.Reason = reason
	v.AuditedAt = e.now()

	e.logger.Info("submission audited",
		"cid", submissionCID, "round", round, "vote", v.Vote, "reason", v.Reason)
	return v
}

func (e *Engine) check(ctx context.Context, submissionCID string) (string, bool) {
	raw, err := e.store.Get(ctx, submissionCID)
	if err != nil {
		e.logger.Debug("submission fetch failed", "cid", submissionCID, "error", err)
		return ReasonSubmissionUnfetchable, false
	}

	var sub model.Submission
	if err := json.Unmarshal(raw, &sub); err != nil || sub.Value == "" {
		return ReasonSubmissionMalformed, false
	}

	payload, err := signing.Verify(sub.NodeSignature, sub.NodePubKey)
	if err != nil {
		return ReasonSignatureInvalid, false
	}
	if strings.Trim(string(payload), `"`) != sub.Value {
		return ReasonValueMismatch, false
	}

	if sub.Value == model.WarmingUp {
		return "placeholder submission", true
	}

	records, reason, ok := e.fetchList(ctx, sub.Value)
	if !ok {
		return reason, false
	}
	if len(records) == 0 {
		return "empty article list", true
	}

	if reason, ok := e.resample(ctx, records); !ok {
		return reason, false
	}
	return "", true
}

// fetchList downloads and validates an article list.
func (e *Engine) fetchList(ctx context.Context, cid string) ([]model.ArticleRecord, string, bool) {
	raw, err := e.store.Get(ctx, cid)
	if err != nil {
		e.logger.Debug("article list fetch failed", "cid", cid, "error", err)
		return nil, ReasonListUnfetchable, false
	}
	records, err := parseList(raw)
	if err != nil {
		return nil, fmt.Sprintf("%s: %v", ReasonListMalformed, err), false
	}
	return records, "", true
}

var errNullList = errors.New("list is null")

// parseList decodes a round payload. null and records without a link are
// rejected; an empty array is valid.
func parseList(raw []byte) ([]model.ArticleRecord, error) {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, errNullList
	}
	var records []model.ArticleRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, err
	}
	for i, r := range records {
		if r.Link == "" {
			return nil, fmt.Errorf("record %d has no link", i)
		}
	}
	return records, nil
}

// resample re-fetches up to sampleSize article units and compares them with
// their list entries. Records without a cid are unverifiable, not fraud: the
// producer keeps them in the list when an article upload fails.
func (e *Engine) resample(ctx context.Context, records []model.ArticleRecord) (string, bool) {
	candidates := make([]model.ArticleRecord, 0, len(records))
	for _, r := range records {
		if r.CID != "" {
			candidates = append(candidates, r)
		}
	}
	if skipped := len(records) - len(candidates); skipped > 0 {
		e.logger.Debug("records without cid not resampled", "count", skipped)
	}

	n := min(e.sampleSize, len(candidates))
	if n <= 0 {
		return "", true
	}

	e.randMu.Lock()
	picks := e.rand.Perm(len(candidates))[:n]
	e.randMu.Unlock()

	for _, i := range picks {
		want := candidates[i]
		got, err := e.addresser.Record(ctx, want.CID, want.Title)
		if err != nil {
			return fmt.Sprintf("%s: %s unfetchable", ReasonRecordMismatch, want.Link), false
		}
		if got.Link != want.Link || got.ContentHash != want.ContentHash {
			return fmt.Sprintf("%s: %s", ReasonRecordMismatch, want.Link), false
		}
	}
	return "", true
}
