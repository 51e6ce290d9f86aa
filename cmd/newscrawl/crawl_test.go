package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/nao1215/newscrawl/internal/browser"
	"github.com/nao1215/newscrawl/internal/browser/browsertest"
	"github.com/nao1215/newscrawl/internal/config"
	"github.com/nao1215/newscrawl/internal/crawler"
	"github.com/nao1215/newscrawl/internal/database"
	"github.com/nao1215/newscrawl/internal/model"
	"github.com/nao1215/newscrawl/internal/report"
	"github.com/nao1215/newscrawl/internal/signing"
)

const frontURL = "https://www.nytimes.com/"

const frontPage = `<html><body><div id="app">
<section class="story-wrapper">
  <a href="https://www.nytimes.com/2023/05/10/us/politics/budget.html">
    <h3 class="indicate-hover">Budget Talks Stall</h3>
    <p class="summary-class">Lawmakers left without a deal.</p>
  </a>
</section>
<section class="story-wrapper">
  <a href="/2023/05/10/world/europe/summit.html"><h3 class="indicate-hover">Summit Opens</h3></a>
</section>
<section class="story-wrapper">
  <a href="https://www.nytimes.com/2023/05/09/science/comet.html"><h3 class="indicate-hover">Comet Returns</h3></a>
</section>
<section class="story-wrapper">
  <a href="https://theathletic.com/4500000/2023/05/10/game/"><h3 class="indicate-hover">Game Recap</h3></a>
</section>
</div></body></html>`

const budgetURL = "https://www.nytimes.com/2023/05/10/us/politics/budget.html"

func articlePage(author, body string) string {
	return `<html><body><div id="app"><article id="story">` +
		`<div class="StoryBodyCompanionColumn"><p>` + body + `</p></div>` +
		`</article><span class="last-byline" itemprop="name">` + author + `</span></div></body></html>`
}

func newSite() *browsertest.Launcher {
	return browsertest.New().
		Route(frontURL, frontPage).
		Route(budgetURL, articlePage("By Ana", "No deal yet.")).
		Route("https://www.nytimes.com/2023/05/10/world/europe/summit.html", articlePage("By Ben", "Leaders meet.")).
		Route("https://www.nytimes.com/2023/05/09/science/comet.html", articlePage("By Cy", "It is back."))
}

// TestNewCrawlCmd tests the crawl command creation.
func TestNewCrawlCmd(t *testing.T) {
	t.Parallel()

	cmd := NewCrawlCmd()

	if cmd.Use != "crawl" {
		t.Errorf("expected use 'crawl', got %q", cmd.Use)
	}
	if cmd.Long == "" {
		t.Error("expected non-empty long description")
	}

	flags := []struct {
		name      string
		shorthand string
		def       string
	}{
		{"locale", "l", "us"},
		{"search", "s", ""},
		{"round", "r", "0"},
		{"max-pages", "p", "100"},
		{"timeout", "t", "50s"},
		{"session-timeout", "", "15m0s"},
		{"debug", "d", "false"},
		{"submit", "", "false"},
		{"json", "j", "false"},
		{"markdown", "m", "false"},
		{"output", "o", ""},
	}
	for _, f := range flags {
		t.Run(f.name, func(t *testing.T) {
			t.Parallel()
			flag := cmd.Flags().Lookup(f.name)
			if flag == nil {
				t.Fatalf("expected %s flag", f.name)
			}
			if flag.Shorthand != f.shorthand {
				t.Errorf("expected shorthand %q, got %q", f.shorthand, flag.Shorthand)
			}
			if flag.DefValue != f.def {
				t.Errorf("expected default %q, got %q", f.def, flag.DefValue)
			}
		})
	}
}

// TestRunCrawl drives two rounds, a submission and an audit through the
// real components with an in-memory browser and the local store.
func TestRunCrawl(t *testing.T) {
	t.Parallel()

	node := newTestNode(t)
	site := newSite()
	ctx := t.Context()

	// Round 4: alteration check is due but nothing earlier exists.
	cfg := node.config()
	cfg.Round = 4
	var out bytes.Buffer
	first, err := runCrawl(ctx, cfg, crawlOptions{}, site, &out, discardLogger())
	if err != nil {
		t.Fatalf("round 4 failed: %v", err)
	}

	if first.Queued != 3 || len(first.Items) != 3 {
		t.Fatalf("expected 3 queued and processed links, got %d/%d", first.Queued, len(first.Items))
	}
	if s := first.Summary(); s.OK != 3 || s.Altered != 0 {
		t.Errorf("unexpected summary %+v: %+v", s, first.Items)
	}
	if first.AlterationSampleRound != 0 {
		t.Errorf("no sample expected, got round %d", first.AlterationSampleRound)
	}
	if first.ArticleListCID == "" {
		t.Fatal("article list CID not set")
	}
	if !first.Session.ProbeIgnored || first.Session.Probe != model.ProbeNoPaywall {
		t.Errorf("unexpected session %+v", first.Session)
	}
	if !strings.Contains(out.String(), "NEWSCRAWL ROUND REPORT") || !strings.Contains(out.String(), first.ArticleListCID) {
		t.Errorf("report not written:\n%s", out.String())
	}

	// Round 9: budget article changed since round 4.
	site.Route(budgetURL, articlePage("By Ana", "A deal was reached."))
	cfg = node.config()
	cfg.Round = 9
	cfg.JSONReport = true
	out.Reset()
	second, err := runCrawl(ctx, cfg, crawlOptions{submit: true}, site, &out, discardLogger())
	if err != nil {
		t.Fatalf("round 9 failed: %v", err)
	}
	if second.AlterationSampleRound != 4 {
		t.Errorf("expected sample from round 4, got %d", second.AlterationSampleRound)
	}
	for _, item := range second.Items {
		if item.Altered != (item.Link == budgetURL) {
			t.Errorf("%s: altered = %t", item.Link, item.Altered)
		}
	}

	var decoded report.JSONReport
	if err := json.Unmarshal(out.Bytes(), &decoded); err != nil {
		t.Fatalf("JSON report: %v", err)
	}
	if decoded.Summary.Altered != 1 || decoded.Report.Round != 9 {
		t.Errorf("unexpected JSON report summary %+v", decoded.Summary)
	}

	// History and proof.
	db, err := database.Open(node.dir, database.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	latest, err := db.LatestRound(ctx)
	if err != nil || latest == nil || latest.Round != 9 || latest.ArticleListCID != second.ArticleListCID {
		t.Errorf("latest round = %+v, %v", latest, err)
	}
	stored, err := db.RoundReport(ctx, 4)
	if err != nil || stored == nil || stored.ArticleListCID != first.ArticleListCID {
		t.Errorf("round 4 report not stored: %+v, %v", stored, err)
	}
	proofs, err := db.Proofs(ctx)
	_ = db.Close()
	if err != nil || len(proofs) != 1 {
		t.Fatalf("expected one proof, got %d (%v)", len(proofs), err)
	}
	proof := proofs[0]
	if proof.Round != 9 || proof.Submission.Value != second.ArticleListCID {
		t.Errorf("unexpected proof %+v", proof)
	}
	payload, err := signing.Verify(proof.Submission.NodeSignature, proof.Submission.NodePubKey)
	if err != nil || string(payload) != `"`+second.ArticleListCID+`"` {
		t.Errorf("signature does not verify: %q, %v", payload, err)
	}

	// Audit the proof through the CLI.
	output, err := node.run(t, "audit", "--round", "9", "--json", proof.SubmissionCID, "bafkreinotthere")
	if err != nil {
		t.Fatalf("audit failed: %v", err)
	}
	var verdicts report.VerdictsReport
	if err := json.Unmarshal([]byte(output), &verdicts); err != nil {
		t.Fatalf("verdicts JSON: %v\n%s", err, output)
	}
	if verdicts.Accepted != 1 || verdicts.Rejected != 1 || len(verdicts.Verdicts) != 2 {
		t.Fatalf("unexpected verdicts %+v", verdicts)
	}
	if !verdicts.Verdicts[0].Vote || verdicts.Verdicts[1].Vote {
		t.Errorf("verdict order or votes wrong: %+v", verdicts.Verdicts)
	}

	// Verdicts are recorded.
	output, err = node.run(t, "history", "--verdicts", "--round", "9")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(output, "Verdicts (2)") || !strings.Contains(output, "reject") {
		t.Errorf("unexpected history output:\n%s", output)
	}
}

// TestRunCrawlSessionFailure tests that a failed launch aborts the round
// before anything is uploaded, and that the report is still recorded.
func TestRunCrawlSessionFailure(t *testing.T) {
	t.Parallel()

	node := newTestNode(t)
	var launchOpts browser.LaunchOptions
	site := newSite().FailLaunch(func(opts browser.LaunchOptions) error {
		launchOpts = opts
		return errors.New("no browser installed")
	})

	cfg := node.config()
	cfg.Round = 2
	cfg.BrowserPath = "/opt/chrome"
	cfg.MarkdownReport = true

	var out bytes.Buffer
	rep, err := runCrawl(t.Context(), cfg, crawlOptions{submit: true}, site, &out, discardLogger())
	if !errors.Is(err, crawler.ErrSessionUnavailable) {
		t.Fatalf("expected ErrSessionUnavailable, got %v", err)
	}
	if !launchOpts.Headless || launchOpts.ExecutablePath != "/opt/chrome" {
		t.Errorf("unexpected launch options %+v", launchOpts)
	}
	if rep.ArticleListCID != "" || len(rep.Items) != 0 {
		t.Errorf("nothing should be crawled: %+v", rep)
	}
	if !strings.Contains(out.String(), "❌") {
		t.Errorf("expected failure status in markdown report:\n%s", out.String())
	}

	db, err := database.Open(node.dir, database.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	stored, err := db.RoundReport(t.Context(), 2)
	if err != nil || stored == nil || stored.ErrorMessage == "" {
		t.Errorf("failed round not recorded: %+v, %v", stored, err)
	}
	proofs, err := db.Proofs(t.Context())
	if err != nil || len(proofs) != 0 {
		t.Errorf("no proof expected after a failed round, got %d (%v)", len(proofs), err)
	}
}

// TestCrawlCmdValidation tests that configuration errors stop the crawl
// before a browser is launched.
func TestCrawlCmdValidation(t *testing.T) {
	t.Setenv(config.EnvUsername, "")
	t.Setenv(config.EnvPassword, "")

	node := newTestNode(t)

	t.Run("missing credentials", func(t *testing.T) {
		_, err := node.run(t, "crawl", "--round", "1")
		if !errors.Is(err, config.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("unknown locale", func(t *testing.T) {
		_, err := node.run(t, "crawl", "--locale", "fr")
		if err == nil {
			t.Error("expected error for unknown locale")
		}
	})

	t.Run("conflicting formats", func(t *testing.T) {
		t.Setenv(config.EnvUsername, "reader")
		t.Setenv(config.EnvPassword, "secret")
		_, err := node.run(t, "crawl", "--json", "--markdown")
		if !errors.Is(err, config.ErrConflictingReportFormats) {
			t.Errorf("expected ErrConflictingReportFormats, got %v", err)
		}
	})

	t.Run("remote storage without token", func(t *testing.T) {
		t.Setenv(config.EnvUsername, "reader")
		t.Setenv(config.EnvPassword, "secret")
		t.Setenv(config.EnvStorageToken, "")
		_, err := node.run(t, "--storage", "remote", "crawl")
		if !errors.Is(err, config.ErrMissingStorageToken) {
			t.Errorf("expected ErrMissingStorageToken, got %v", err)
		}
	})
}

func TestBrowserCookies(t *testing.T) {
	t.Parallel()

	if got := browserCookies(nil); got != nil {
		t.Errorf("expected nil, got %+v", got)
	}

	got := browserCookies([]config.Cookie{{Name: "nyt-a", Value: "v", Domain: ".nytimes.com", Path: "/", Secure: true, HTTPOnly: true}})
	want := browser.Cookie{Name: "nyt-a", Value: "v", Domain: ".nytimes.com", Path: "/", Secure: true, HTTPOnly: true}
	if len(got) != 1 || got[0] != want {
		t.Errorf("browserCookies() = %+v", got)
	}
}
