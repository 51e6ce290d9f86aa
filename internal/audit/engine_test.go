package audit

import (
	"encoding/json"
	"errors"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/newscrawl/internal/database"
	"github.com/nao1215/newscrawl/internal/model"
	"github.com/nao1215/newscrawl/internal/round"
	"github.com/nao1215/newscrawl/internal/signing"
	"github.com/nao1215/newscrawl/internal/storage"
)

type fixture struct {
	t      *testing.T
	db     *database.CrawlDB
	store  *storage.LocalStore
	signer *signing.NaclSigner
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dir := t.TempDir()
	db, err := database.Open(dir, database.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store, err := storage.NewLocalStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	signer, err := signing.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	return &fixture{t: t, db: db, store: store, signer: signer}
}

func (f *fixture) engine(opts ...Option) *Engine {
	opts = append([]Option{WithRand(rand.New(rand.NewPCG(1, 2)))}, opts...)
	return NewEngine(f.store, f.db, opts...)
}

func (f *fixture) put(data string) string {
	f.t.Helper()
	cid, err := f.store.Put(f.t.Context(), storage.Blob{Name: "x.json", Data: []byte(data)})
	if err != nil {
		f.t.Fatal(err)
	}
	return cid
}

// putArticles uploads each article unit, then the list, and returns the list CID.
func (f *fixture) putArticles(articles []model.ArticleRecord) string {
	f.t.Helper()
	a := storage.NewAddresser(f.store)
	for i := range articles {
		cid, err := a.ArticleCID(f.t.Context(), articles[i], "<p>"+articles[i].Title+"</p>")
		if err != nil {
			f.t.Fatal(err)
		}
		articles[i].CID = cid
	}
	raw, _ := json.Marshal(articles)
	return f.put(string(raw))
}

// submit signs signedValue and claims value.
func (f *fixture) submit(value, signedValue string) string {
	f.t.Helper()
	payload, _ := json.Marshal(signedValue)
	sig, err := f.signer.Sign(payload)
	if err != nil {
		f.t.Fatal(err)
	}
	raw, _ := json.Marshal(model.Submission{Value: value, NodePubKey: f.signer.PublicKey(), NodeSignature: sig})
	return f.put(string(raw))
}

func sampleArticles() []model.ArticleRecord {
	return []model.ArticleRecord{
		{Title: "One", Link: "https://www.nytimes.com/2023/05/10/us/one.html", ContentHash: storage.HashText("one")},
		{Title: "Two", Link: "https://www.nytimes.com/2023/05/10/us/two.html", ContentHash: storage.HashText("two")},
		{Title: "Three", Link: "https://www.nytimes.com/2023/05/10/us/three.html", ContentHash: storage.HashText("three")},
	}
}

func TestAuditSubmission(t *testing.T) {
	t.Parallel()

	t.Run("valid signed non-empty list is accepted", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		list := f.putArticles(sampleArticles())
		sub := f.submit(list, list)

		v := f.engine(WithSampleSize(2)).AuditSubmission(t.Context(), sub, 8)
		if !v.Vote {
			t.Fatalf("expected accept, got reject: %s", v.Reason)
		}
		if v.ID == "" || v.SubmissionCID != sub || v.Round != 8 || v.AuditedAt.IsZero() {
			t.Errorf("verdict fields not set: %+v", v)
		}
	})

	t.Run("tampered value is rejected", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		list := f.putArticles(sampleArticles())
		other := f.put(`[]`)
		sub := f.submit(list, other)

		v := f.engine().AuditSubmission(t.Context(), sub, 8)
		if v.Vote || v.Reason != ReasonValueMismatch {
			t.Errorf("expected value mismatch reject, got %+v", v)
		}
	})

	t.Run("unfetchable submission is rejected", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		missing, _ := storage.FileCID([]byte("never uploaded"))

		v := f.engine().AuditSubmission(t.Context(), missing, 8)
		if v.Vote || v.Reason != ReasonSubmissionUnfetchable {
			t.Errorf("expected unfetchable reject, got %+v", v)
		}
	})

	t.Run("unfetchable article list is rejected", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		missing, _ := storage.FileCID([]byte("missing list"))
		sub := f.submit(missing, missing)

		v := f.engine().AuditSubmission(t.Context(), sub, 8)
		if v.Vote || v.Reason != ReasonListUnfetchable {
			t.Errorf("expected list unfetchable reject, got %+v", v)
		}
	})

	t.Run("invalid signature is rejected", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		raw, _ := json.Marshal(model.Submission{Value: "bafyx", NodePubKey: f.signer.PublicKey(), NodeSignature: "notasignature"})
		sub := f.put(string(raw))

		v := f.engine().AuditSubmission(t.Context(), sub, 8)
		if v.Vote || v.Reason != ReasonSignatureInvalid {
			t.Errorf("expected signature reject, got %+v", v)
		}
	})

	t.Run("malformed submission is rejected", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		v := f.engine().AuditSubmission(t.Context(), f.put(`not json`), 8)
		if v.Vote || v.Reason != ReasonSubmissionMalformed {
			t.Errorf("expected malformed reject, got %+v", v)
		}
	})

	t.Run("empty list is accepted", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		list := f.put(`[]`)
		v := f.engine(WithSampleSize(2)).AuditSubmission(t.Context(), f.submit(list, list), 8)
		if !v.Vote {
			t.Errorf("empty list should be accepted: %+v", v)
		}
	})

	t.Run("placeholder is accepted without a list", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		sub := f.submit(model.WarmingUp, model.WarmingUp)
		v := f.engine().AuditSubmission(t.Context(), sub, 1)
		if !v.Vote {
			t.Errorf("placeholder should be accepted: %+v", v)
		}
	})

	t.Run("malformed lists are rejected", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		for _, body := range []string{`null`, `{"title":"x"}`, `[{"title":"no link"}]`} {
			list := f.put(body)
			v := f.engine().AuditSubmission(t.Context(), f.submit(list, list), 8)
			if v.Vote || !strings.HasPrefix(v.Reason, ReasonListMalformed) {
				t.Errorf("%s: expected malformed list reject, got %+v", body, v)
			}
		}
	})

	t.Run("resampled record mismatch is rejected", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		articles := sampleArticles()
		f.putArticles(articles)
		for i := range articles {
			articles[i].ContentHash = storage.HashText("rewritten")
		}
		raw, _ := json.Marshal(articles)
		list := f.put(string(raw))

		v := f.engine(WithSampleSize(1)).AuditSubmission(t.Context(), f.submit(list, list), 8)
		if v.Vote || !strings.HasPrefix(v.Reason, ReasonRecordMismatch) {
			t.Errorf("expected resample reject, got %+v", v)
		}

		v = f.engine().AuditSubmission(t.Context(), f.submit(list, list), 8)
		if !v.Vote {
			t.Errorf("without resampling the list should pass: %+v", v)
		}
	})
}

// TestAuditPartialRound runs a round whose second article failed to upload
// through CloseRound and Submit, then audits it with resampling on.
func TestAuditPartialRound(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()

	articles := sampleArticles()[:2]
	cid, err := storage.NewAddresser(f.store).ArticleCID(ctx, articles[0], "<p>One</p>")
	if err != nil {
		t.Fatal(err)
	}
	articles[0].CID = cid

	aggregator := round.NewAggregator(f.store, f.db, f.signer)
	if _, err := aggregator.CloseRound(ctx, 7, articles); err != nil {
		t.Fatal(err)
	}
	sub, err := aggregator.Submit(ctx, 7)
	if err != nil {
		t.Fatal(err)
	}

	for _, size := range []int{1, 2, 5} {
		v := f.engine(WithSampleSize(size)).AuditSubmission(ctx, sub, 7)
		if !v.Vote {
			t.Errorf("sample size %d: partial round should be accepted: %s", size, v.Reason)
		}
	}

	t.Run("uploaded record is still checked", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		ctx := t.Context()

		articles := sampleArticles()[:2]
		cid, err := storage.NewAddresser(f.store).ArticleCID(ctx, articles[0], "<p>One</p>")
		if err != nil {
			t.Fatal(err)
		}
		articles[0].CID = cid
		articles[0].ContentHash = storage.HashText("rewritten")

		aggregator := round.NewAggregator(f.store, f.db, f.signer)
		if _, err := aggregator.CloseRound(ctx, 7, articles); err != nil {
			t.Fatal(err)
		}
		sub, err := aggregator.Submit(ctx, 7)
		if err != nil {
			t.Fatal(err)
		}

		v := f.engine(WithSampleSize(2)).AuditSubmission(ctx, sub, 7)
		if v.Vote || !strings.HasPrefix(v.Reason, ReasonRecordMismatch) {
			t.Errorf("expected resample reject, got %+v", v)
		}
	})
}

func TestAuditStalledGateway(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	gateway := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer gateway.Close()
	defer close(release)

	store, err := storage.NewHTTPStore(gateway.URL, gateway.URL, "tok",
		storage.WithUploadTimeout(time.Minute),
		storage.WithFetchTimeout(50*time.Millisecond),
	)
	if err != nil {
		t.Fatal(err)
	}
	f := newFixture(t)
	engine := NewEngine(store, f.db)

	done := make(chan model.Verdict, 1)
	go func() { done <- engine.AuditSubmission(t.Context(), "bafystalled", 3) }()

	select {
	case v := <-done:
		if v.Vote || v.Reason != ReasonSubmissionUnfetchable {
			t.Errorf("expected unfetchable reject, got %+v", v)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("audit blocked on a stalled gateway")
	}
}

func TestAuditBatch(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	list := f.putArticles(sampleArticles())
	good := f.submit(list, list)
	bad := f.submit(list, model.WarmingUp)
	missing, _ := storage.FileCID([]byte("gone"))

	cids := []string{good, bad, missing}
	verdicts, err := f.engine(WithConcurrency(2)).AuditBatch(t.Context(), 11, cids)
	if err != nil {
		t.Fatal(err)
	}
	if len(verdicts) != 3 {
		t.Fatalf("expected 3 verdicts, got %d", len(verdicts))
	}
	for i, v := range verdicts {
		if v.SubmissionCID != cids[i] {
			t.Errorf("verdict %d is for %s, want %s", i, v.SubmissionCID, cids[i])
		}
	}
	if !verdicts[0].Vote || verdicts[1].Vote || verdicts[2].Vote {
		t.Errorf("unexpected votes %+v", verdicts)
	}

	stored, err := f.db.Verdicts(t.Context(), 11)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 3 {
		t.Errorf("expected 3 stored verdicts, got %d", len(stored))
	}
}

func TestAlterationCheckDue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		round int
		want  bool
	}{
		{4, true},
		{9, true},
		{14, true},
		{5, false},
		{6, false},
		{0, false},
	}
	for _, tt := range tests {
		if got := AlterationCheckDue(tt.round); got != tt.want {
			t.Errorf("AlterationCheckDue(%d) = %v, want %v", tt.round, got, tt.want)
		}
	}
}

func TestAlterationSample(t *testing.T) {
	t.Parallel()

	t.Run("samples a prior round", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		ctx := t.Context()
		articles := sampleArticles()
		list := f.putArticles(articles)
		if err := f.db.SaveRound(ctx, model.Round{Round: 2, ArticleListCID: list}); err != nil {
			t.Fatal(err)
		}
		if err := f.db.SaveRound(ctx, model.Round{Round: 9, ArticleListCID: f.put(`[]`)}); err != nil {
			t.Fatal(err)
		}

		sample, err := f.engine().AlterationSample(ctx, 9)
		if err != nil {
			t.Fatal(err)
		}
		if sample.Round != 2 {
			t.Errorf("sampled round %d, want 2", sample.Round)
		}
		if sample.Len() != 3 || len(sample.ContentHashes) != 3 || len(sample.Titles) != 3 || len(sample.Descriptions) != 3 {
			t.Errorf("arrays not parallel: %+v", sample)
		}
		if h, ok := sample.HashFor(articles[1].Link); !ok || h != articles[1].ContentHash {
			t.Errorf("HashFor() = %q, %v", h, ok)
		}
	})

	t.Run("no prior round", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		if err := f.db.SaveRound(t.Context(), model.Round{Round: 4, ArticleListCID: f.put(`[]`)}); err != nil {
			t.Fatal(err)
		}
		if _, err := f.engine().AlterationSample(t.Context(), 4); !errors.Is(err, ErrNoPriorRound) {
			t.Errorf("expected ErrNoPriorRound, got %v", err)
		}
	})
}
