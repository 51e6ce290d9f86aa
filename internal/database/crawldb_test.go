package database

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/newscrawl/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *CrawlDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		_, err := Open(filepath.Join(t.TempDir(), "missing"), Options{})
		if err == nil {
			t.Error("expected error for missing database")
		}
	})

	t.Run("reopening keeps data", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		if err := db.SaveRound(t.Context(), model.Round{Round: 1, ArticleListCID: "bafy1"}); err != nil {
			t.Fatal(err)
		}
		_ = db.Close()

		db, err = Open(dir, Options{EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen: %v", err)
		}
		defer db.Close()

		latest, err := db.LatestRound(t.Context())
		if err != nil || latest == nil || latest.ArticleListCID != "bafy1" {
			t.Errorf("unexpected latest round %+v, %v", latest, err)
		}
	})
}

func TestArticles(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := t.Context()

	a := &model.ArticleRecord{Title: "A", Link: "https://www.nytimes.com/2023/05/10/us/a.html"}
	if err := db.InsertArticle(ctx, 3, a); err != nil {
		t.Fatal(err)
	}
	b := &model.ArticleRecord{Title: "B", Link: "https://www.nytimes.com/2023/05/10/us/b.html"}
	if err := db.InsertArticle(ctx, 3, b); err != nil {
		t.Fatal(err)
	}

	a.Author, a.ContentHash, a.CID = "Jane Doe", "hash", "bafyA"
	if err := db.InsertArticle(ctx, 3, a); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if err := db.InsertArticle(ctx, 4, a); err != nil {
		t.Fatal(err)
	}

	got, err := db.ArticlesForRound(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(got))
	}
	if got[0].Link != a.Link || got[0].CID != "bafyA" || got[0].Author != "Jane Doe" {
		t.Errorf("upsert not applied or order wrong: %+v", got[0])
	}
	if got[1].Title != "B" {
		t.Errorf("unexpected second article %+v", got[1])
	}
}

// TestLatestRound checks that the highest round wins regardless of insert order.
func TestLatestRound(t *testing.T) {
	t.Parallel()

	t.Run("empty history returns nil", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		latest, err := db.LatestRound(t.Context())
		if err != nil {
			t.Fatal(err)
		}
		if latest != nil {
			t.Errorf("expected nil, got %+v", latest)
		}
	})

	t.Run("round 5 inserted before round 3 is still latest", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := t.Context()
		if err := db.SaveRound(ctx, model.Round{Round: 5, ArticleListCID: "bafy5"}); err != nil {
			t.Fatal(err)
		}
		if err := db.SaveRound(ctx, model.Round{Round: 3, ArticleListCID: "bafy3"}); err != nil {
			t.Fatal(err)
		}

		latest, err := db.LatestRound(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if latest.Round != 5 || latest.ArticleListCID != "bafy5" {
			t.Errorf("expected round 5, got %+v", latest)
		}

		rounds, err := db.Rounds(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(rounds) != 2 || rounds[0].Round != 5 || rounds[1].Round != 3 {
			t.Errorf("unexpected rounds %+v", rounds)
		}
	})

	t.Run("empty CID rows are ignored", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := t.Context()
		if err := db.SaveRound(ctx, model.Round{Round: 2, ArticleListCID: "bafy2"}); err != nil {
			t.Fatal(err)
		}
		if err := db.SaveRound(ctx, model.Round{Round: 9, ArticleListCID: ""}); err != nil {
			t.Fatal(err)
		}

		latest, err := db.LatestRound(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if latest.Round != 2 {
			t.Errorf("expected round 2, got %+v", latest)
		}
	})
}

func TestProofs(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := t.Context()

	p := Proof{
		Round:         7,
		SubmissionCID: "bafyproof",
		Submission:    model.Submission{Value: "bafylist", NodePubKey: "pub", NodeSignature: "sig"},
		Timestamp:     time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	if err := db.SaveProof(ctx, p); err != nil {
		t.Fatal(err)
	}

	proofs, err := db.Proofs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(proofs) != 1 {
		t.Fatalf("expected 1 proof, got %d", len(proofs))
	}
	if proofs[0].Submission != p.Submission || !proofs[0].Timestamp.Equal(p.Timestamp) {
		t.Errorf("unexpected proof %+v", proofs[0])
	}
}

func TestVerdicts(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := t.Context()

	for i, v := range []model.Verdict{
		{ID: "a", Round: 4, SubmissionCID: "c1", Vote: true},
		{ID: "b", Round: 4, SubmissionCID: "c2", Vote: false, Reason: "signature mismatch"},
		{ID: "c", Round: 5, SubmissionCID: "c3", Vote: true},
	} {
		v.AuditedAt = time.Now().Add(time.Duration(i) * time.Second)
		if err := db.SaveVerdict(ctx, v); err != nil {
			t.Fatal(err)
		}
	}

	round4, err := db.Verdicts(ctx, 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(round4) != 2 {
		t.Fatalf("expected 2 verdicts, got %d", len(round4))
	}
	if round4[0].ID != "b" || round4[0].Vote || round4[0].Reason != "signature mismatch" {
		t.Errorf("unexpected newest verdict %+v", round4[0])
	}

	all, err := db.Verdicts(ctx, -1)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 verdicts, got %d", len(all))
	}
}

func TestRoundReports(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := t.Context()

	report := model.NewRoundReport("run-1", 8, model.LocaleCN)
	report.AddItem(model.ItemResult{Link: "x", Status: model.ItemFailed, Reason: "upload"})
	report.Session.Probe = model.ProbePaywallPresent
	report.ArticleListCID = "bafylist"

	if err := db.SaveRoundReport(ctx, report); err != nil {
		t.Fatal(err)
	}

	got, err := db.RoundReport(ctx, 8)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("expected report")
	}
	if got.Locale != model.LocaleCN || got.ArticleListCID != "bafylist" {
		t.Errorf("unexpected report %+v", got)
	}
	if len(got.Items) != 1 || got.Items[0].Status != model.ItemFailed {
		t.Errorf("items did not round-trip: %+v", got.Items)
	}
	if got.Session.Probe != model.ProbePaywallPresent {
		t.Errorf("probe did not round-trip: %v", got.Session.Probe)
	}

	missing, err := db.RoundReport(ctx, 99)
	if err != nil || missing != nil {
		t.Errorf("expected nil report, got %+v, %v", missing, err)
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		zero  bool
	}{
		{"2024-01-02T03:04:05.123456789Z", false},
		{"2024-01-02 03:04:05", false},
		{"2024-01-02T03:04:05", false},
		{"not a time", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			if got := parseTimestamp(tt.input); got.IsZero() != tt.zero {
				t.Errorf("parseTimestamp(%q) = %v", tt.input, got)
			}
		})
	}
}
