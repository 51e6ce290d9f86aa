package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/newscrawl/internal/audit"
	"github.com/nao1215/newscrawl/internal/browser"
	"github.com/nao1215/newscrawl/internal/config"
	"github.com/nao1215/newscrawl/internal/crawler"
	"github.com/nao1215/newscrawl/internal/locale"
	"github.com/nao1215/newscrawl/internal/model"
	"github.com/nao1215/newscrawl/internal/pipeline"
	"github.com/nao1215/newscrawl/internal/round"
	"github.com/nao1215/newscrawl/internal/session"
	"github.com/nao1215/newscrawl/internal/storage"
	"github.com/spf13/cobra"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl one round of an edition",
		Long: `Crawl runs one round for the selected edition:

1. Negotiate a browser session (skipped while a session is still valid)
2. Every fifth round, load a sample of an earlier round to detect altered articles
3. Fetch the article list from the front page or search results when the queue is empty
4. Extract each article, hash its text and upload it as a content-addressed unit
5. Upload the round's article list and record its CID

The round report is saved to the history database and printed.

Examples:
  # Crawl the US front page as round 12
  newscrawl crawl --locale us --round 12

  # Crawl Spanish search results for a term
  newscrawl crawl --locale es --search "elecciones" --round 3

  # Crawl and submit the signed proof right away
  newscrawl crawl --round 12 --submit

  # Use remote storage through a SOCKS5 proxy
  newscrawl crawl --storage remote --proxy 127.0.0.1:1080 --round 12`,
		Args: cobra.NoArgs,
		RunE: runCrawlCmd,
	}

	// Edition flags
	cmd.Flags().StringP("locale", "l", model.LocaleUS.String(),
		"Edition to crawl: us, cn or es")
	cmd.Flags().StringP("search", "s", "",
		"Crawl search results for this term instead of the front page")
	cmd.Flags().IntP("round", "r", 0,
		"Round number supplied by the scheduler")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of articles queued per round (0 means no limit)")
	cmd.Flags().String("cookie-file", "",
		"JSON cookie export applied before landing")

	// Browser flags
	cmd.Flags().BoolP("debug", "d", false,
		"Show the browser window")
	cmd.Flags().String("browser", "",
		"Browser executable (default: located or downloaded automatically)")
	cmd.Flags().Duration("session-timeout", config.DefaultSessionTimeout,
		"Timeout for the landing page and search pagination")
	cmd.Flags().DurationP("timeout", "t", config.DefaultArticleTimeout,
		"Navigation timeout for each article")
	cmd.Flags().Duration("cooldown", config.DefaultSessionCooldown,
		"Minimum time between two session negotiations")

	// Round flags
	cmd.Flags().Bool("submit", false,
		"Submit the signed proof after the round is closed")

	addReportFlags(cmd)

	return cmd
}

// crawlOptions holds crawl settings that are not part of Config.
type crawlOptions struct {
	submit bool
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, _ []string) error {
	var opts crawlOptions
	cfg, err := buildConfig(cmd, func(cfg *config.Config) error {
		return readCrawlFlags(cmd, cfg, &opts)
	})
	if err != nil {
		return err
	}

	// Validate configuration before any browser is launched
	if err := cfg.ValidateCrawl(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd, cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	_, err = runCrawl(ctx, cfg, opts, browser.NewRodLauncher(), cmd.OutOrStdout(), logger)
	return err
}

// readCrawlFlags copies the crawl flags into cfg.
func readCrawlFlags(cmd *cobra.Command, cfg *config.Config, opts *crawlOptions) error {
	flags := cmd.Flags()

	code, err := flags.GetString("locale")
	if err != nil {
		return err
	}
	if cfg.Locale, err = model.ParseLocale(code); err != nil {
		return err
	}

	if cfg.SearchTerm, err = flags.GetString("search"); err != nil {
		return err
	}
	if cfg.Round, err = flags.GetInt("round"); err != nil {
		return err
	}
	if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
		return err
	}
	if cfg.CookieFile, err = flags.GetString("cookie-file"); err != nil {
		return err
	}
	if cfg.Debug, err = flags.GetBool("debug"); err != nil {
		return err
	}
	if cfg.BrowserPath, err = flags.GetString("browser"); err != nil {
		return err
	}
	if cfg.SessionTimeout, err = flags.GetDuration("session-timeout"); err != nil {
		return err
	}
	if cfg.ArticleTimeout, err = flags.GetDuration("timeout"); err != nil {
		return err
	}
	if cfg.SessionCooldown, err = flags.GetDuration("cooldown"); err != nil {
		return err
	}
	if opts.submit, err = flags.GetBool("submit"); err != nil {
		return err
	}
	return readReportFlags(cmd, cfg)
}

// browserCookies converts configured cookies to the browser type.
func browserCookies(cookies []config.Cookie) []browser.Cookie {
	if len(cookies) == 0 {
		return nil
	}
	result := make([]browser.Cookie, len(cookies))
	for i, c := range cookies {
		result[i] = browser.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		}
	}
	return result
}

// runCrawl executes one round and writes its report. The report is returned
// even when the round fails.
func runCrawl(
	ctx context.Context,
	cfg *config.Config,
	opts crawlOptions,
	launcher browser.Launcher,
	stdout io.Writer,
	logger *slog.Logger,
) (*model.RoundReport, error) {
	n, err := openNode(cfg, logger, true)
	if err != nil {
		return nil, err
	}
	defer n.Close()

	strategy := locale.For(cfg.Locale)

	manager := session.NewManager(launcher, strategy,
		session.WithLogger(logger),
		session.WithCooldown(cfg.SessionCooldown),
		session.WithNavigationTimeout(cfg.SessionTimeout),
		session.WithSettleDelay(cfg.SettleDelay),
		session.WithMaxShowMore(cfg.MaxShowMore),
		session.WithCookies(browserCookies(cfg.Cookies)),
		session.WithSearchTerm(cfg.SearchTerm),
		session.WithHeadless(!cfg.Debug),
		session.WithExecutablePath(cfg.BrowserPath),
	)
	defer manager.Close()

	set := crawler.NewWorkingSet()

	fetcher := crawler.NewListFetcher(manager, strategy, set,
		crawler.WithSearch(cfg.SearchTerm != ""),
		crawler.WithMaxPages(cfg.MaxPages),
		crawler.WithFetcherLogger(logger),
	)

	extractor := crawler.NewArticleExtractor(manager, strategy, set,
		storage.NewAddresser(n.store), n.db,
		crawler.WithArticleTimeout(cfg.ArticleTimeout),
		crawler.WithExtractorLogger(logger),
	)

	engine := audit.NewEngine(n.store, n.db,
		audit.WithSampleSize(cfg.AuditSampleSize),
		audit.WithConcurrency(cfg.AuditConcurrency),
		audit.WithLogger(logger),
	)

	aggregator := round.NewAggregator(n.store, n.db, n.signer,
		round.WithSession(manager),
		round.WithLogger(logger),
	)

	p := pipeline.New(pipeline.WithLogger(logger))
	p.AddSteps(
		pipeline.NewSessionStep(manager),
		pipeline.NewAlterationStep(engine, extractor, logger),
		pipeline.NewListStep(fetcher, set, logger),
		pipeline.NewItemsStep(extractor),
		pipeline.NewCloseStep(aggregator, set),
	)
	logger.Debug("round pipeline ready", "round", cfg.Round, "steps", p.StepNames())

	roundReport := model.NewRoundReport(uuid.NewString(), cfg.Round, cfg.Locale)
	roundReport.SearchTerm = cfg.SearchTerm

	logger.Info("starting round",
		"round", cfg.Round,
		"locale", cfg.Locale,
		"search", cfg.SearchTerm,
		"storage", cfg.Storage,
	)
	startTime := time.Now()

	execErr := p.Execute(ctx, roundReport)

	logger.Info("round finished",
		"round", cfg.Round,
		"elapsed", time.Since(startTime).Round(time.Millisecond),
		"steps", roundReport.PerformedSteps,
	)

	// Detached so an interrupted round is still recorded.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := n.db.SaveRoundReport(saveCtx, roundReport); err != nil {
		logger.Error("failed to save round report", "round", cfg.Round, "error", err)
	}

	if execErr == nil && opts.submit {
		cid, err := aggregator.Submit(ctx, cfg.Round)
		if err != nil {
			execErr = fmt.Errorf("submission failed: %w", err)
		} else {
			logger.Info("proof submitted", "round", cfg.Round, "cid", cid)
		}
	}

	if err := writeRoundReport(cfg, stdout, roundReport); err != nil {
		logger.Error("report failed", "round", cfg.Round, "error", err)
	}

	return roundReport, execErr
}

// writeRoundReport outputs the round report in the requested format.
func writeRoundReport(cfg *config.Config, stdout io.Writer, roundReport *model.RoundReport) error {
	output, closeOutput, err := reportOutput(cfg, stdout)
	if err != nil {
		return err
	}
	defer closeOutput()

	_, err = newReportWriter(cfg, output).Write(roundReport)
	return err
}
