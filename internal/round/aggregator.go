package round

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/nao1215/newscrawl/internal/database"
	"github.com/nao1215/newscrawl/internal/model"
	"github.com/nao1215/newscrawl/internal/signing"
	"github.com/nao1215/newscrawl/internal/storage"
)

// History is the local round and proof log. database.CrawlDB implements it.
type History interface {
	SaveRound(ctx context.Context, r model.Round) error
	LatestRound(ctx context.Context) (*model.Round, error)
	SaveProof(ctx context.Context, p database.Proof) error
}

// ListFileName returns the upload name of a round payload.
func ListFileName(round int) string {
	return fmt.Sprintf("articleList-round%d.json", round)
}

// ProofFileName returns the upload name of a submission.
func ProofFileName(round int) string {
	return fmt.Sprintf("articleList-proof-%d.json", round)
}

// Aggregator bundles round output and signs submissions.
type Aggregator struct {
	store   storage.Store
	history History
	signer  signing.Signer
	session io.Closer
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithSession releases s when a round is closed.
func WithSession(s io.Closer) Option {
	return func(a *Aggregator) {
		a.session = s
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) {
		a.logger = logger
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

// NewAggregator creates an Aggregator.
func NewAggregator(store storage.Store, history History, signer signing.Signer, opts ...Option) *Aggregator {
	a := &Aggregator{
		store:   store,
		history: history,
		signer:  signer,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// CloseRound uploads articles as the round payload, records the resulting
// CID for round and releases the browser session. An empty round uploads
// an empty list.
func (a *Aggregator) CloseRound(ctx context.Context, round int, articles []model.ArticleRecord) (string, error) {
	if articles == nil {
		articles = []model.ArticleRecord{}
	}
	payload, err := json.Marshal(articles)
	if err != nil {
		return "", fmt.Errorf("failed to encode round payload: %w", err)
	}

	cid, err := a.store.Put(ctx, storage.Blob{
		Name:        ListFileName(round),
		ContentType: storage.ContentTypeJSON,
		Data:        payload,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload round %d: %w", round, err)
	}

	if err := a.history.SaveRound(ctx, model.Round{Round: round, ArticleListCID: cid, Timestamp: a.now()}); err != nil {
		return "", fmt.Errorf("failed to record round %d: %w", round, err)
	}

	if a.session != nil {
		if err := a.session.Close(); err != nil {
			a.logger.Warn("failed to release browser session", "error", err)
		}
	}

	a.logger.Info("round closed", "round", round, "articles", len(articles), "cid", cid)
	return cid, nil
}

// Submit signs the latest recorded round CID, or the warming-up
// placeholder, persists the submission and uploads it. It returns the
// CID of the uploaded submission.
func (a *Aggregator) Submit(ctx context.Context, round int) (string, error) {
	sub, err := a.Prepare(ctx)
	if err != nil {
		return "", err
	}

	data, err := json.Marshal(sub)
	if err != nil {
		return "", fmt.Errorf("failed to encode submission: %w", err)
	}
	cid, err := a.store.Put(ctx, storage.Blob{
		Name:        ProofFileName(round),
		ContentType: storage.ContentTypeJSON,
		Data:        data,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload submission: %w", err)
	}

	proof := database.Proof{Round: round, SubmissionCID: cid, Submission: sub, Timestamp: a.now()}
	if err := a.history.SaveProof(ctx, proof); err != nil {
		return "", fmt.Errorf("failed to record submission: %w", err)
	}

	a.logger.Info("submission uploaded", "round", round, "value", sub.Value, "cid", cid)
	return cid, nil
}

// Prepare builds the signed submission without uploading it.
func (a *Aggregator) Prepare(ctx context.Context) (model.Submission, error) {
	latest, err := a.history.LatestRound(ctx)
	if err != nil {
		return model.Submission{}, fmt.Errorf("failed to read round history: %w", err)
	}

	value := model.WarmingUp
	if latest != nil {
		value = latest.ArticleListCID
	} else {
		a.logger.Info("no recorded rounds, submitting placeholder")
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return model.Submission{}, fmt.Errorf("failed to encode value: %w", err)
	}
	sig, err := a.signer.Sign(payload)
	if err != nil {
		return model.Submission{}, fmt.Errorf("failed to sign submission: %w", err)
	}

	return model.Submission{
		Value:         value,
		NodePubKey:    a.signer.PublicKey(),
		NodeSignature: sig,
	}, nil
}
