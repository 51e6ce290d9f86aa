package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/newscrawl/internal/config"
	"github.com/nao1215/newscrawl/internal/database"
	"github.com/nao1215/newscrawl/internal/model"
	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded rounds, proofs and verdicts",
		Long: `History lists what this node has recorded in its database.

By default it lists every round with the CID of its article list. The newest
round is the one the next proof will sign.

Examples:
  # List recorded rounds
  newscrawl history

  # List submitted proofs
  newscrawl history --proofs

  # List audit verdicts for round 12
  newscrawl history --verdicts --round 12

  # List the articles stored for round 12
  newscrawl history --articles --round 12

  # Show the stored report of round 12
  newscrawl history --report --round 12`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("proofs", "P", false, "List submitted proofs")
	cmd.Flags().BoolP("verdicts", "V", false, "List audit verdicts")
	cmd.Flags().BoolP("articles", "A", false, "List the articles stored for --round")
	cmd.Flags().Bool("report", false, "Show the stored report of --round")
	cmd.Flags().IntP("round", "r", -1, "Limit verdicts to this round, or select the report round")
	addReportFlags(cmd)

	return cmd
}

// historyOptions selects what the history command prints.
type historyOptions struct {
	proofs   bool
	verdicts bool
	articles bool
	report   bool
	round    int
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	var opts historyOptions
	cfg, err := buildConfig(cmd, func(cfg *config.Config) error {
		var err error
		flags := cmd.Flags()
		if opts.proofs, err = flags.GetBool("proofs"); err != nil {
			return err
		}
		if opts.verdicts, err = flags.GetBool("verdicts"); err != nil {
			return err
		}
		if opts.articles, err = flags.GetBool("articles"); err != nil {
			return err
		}
		if opts.report, err = flags.GetBool("report"); err != nil {
			return err
		}
		if opts.round, err = flags.GetInt("round"); err != nil {
			return err
		}
		return readReportFlags(cmd, cfg)
	})
	if err != nil {
		return err
	}
	if cfg.JSONReport && cfg.MarkdownReport {
		return config.ErrConflictingReportFormats
	}
	if opts.report && opts.round < 0 {
		return errors.New("--report requires --round")
	}
	if opts.articles && opts.round < 0 {
		return errors.New("--articles requires --round")
	}

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	return runHistory(cmd.Context(), db, cfg, opts, cmd.OutOrStdout())
}

// runHistory prints the selected history.
func runHistory(ctx context.Context, db *database.CrawlDB, cfg *config.Config, opts historyOptions, out io.Writer) error {
	switch {
	case opts.report:
		return showRoundReport(ctx, db, cfg, opts.round, out)
	case opts.articles:
		return listArticles(ctx, db, opts.round, cfg.JSONReport, out)
	case opts.verdicts:
		return listVerdicts(ctx, db, opts.round, cfg.JSONReport, out)
	case opts.proofs:
		return listProofs(ctx, db, cfg.JSONReport, out)
	default:
		return listRounds(ctx, db, cfg.JSONReport, out)
	}
}

// listRounds lists every recorded round, newest first.
func listRounds(ctx context.Context, db *database.CrawlDB, jsonOutput bool, out io.Writer) error {
	rounds, err := db.Rounds(ctx)
	if err != nil {
		return fmt.Errorf("failed to list rounds: %w", err)
	}
	if jsonOutput {
		return writeJSON(out, rounds)
	}

	if len(rounds) == 0 {
		fmt.Fprintln(out, "No rounds recorded in the database.")
		fmt.Fprintln(out, "\nUse 'newscrawl crawl --round <n>' to crawl a round.")
		return nil
	}

	fmt.Fprintf(out, "Recorded rounds (%d):\n\n", len(rounds))
	fmt.Fprintf(out, "  %-6s  %-20s  %s\n", "Round", "Date", "Article List CID")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 70))
	for _, r := range rounds {
		fmt.Fprintf(out, "  %-6d  %-20s  %s\n", r.Round, r.Timestamp.Format("2006-01-02 15:04:05"), r.ArticleListCID)
	}
	return nil
}

// listProofs lists every submitted proof, newest first.
func listProofs(ctx context.Context, db *database.CrawlDB, jsonOutput bool, out io.Writer) error {
	proofs, err := db.Proofs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list proofs: %w", err)
	}
	if jsonOutput {
		return writeJSON(out, proofs)
	}

	if len(proofs) == 0 {
		fmt.Fprintln(out, "No proofs submitted yet.")
		fmt.Fprintln(out, "\nUse 'newscrawl submit --round <n>' to submit a proof.")
		return nil
	}

	fmt.Fprintf(out, "Submitted proofs (%d):\n\n", len(proofs))
	fmt.Fprintf(out, "  %-6s  %-20s  %-40s  %s\n", "Round", "Date", "Value", "Submission CID")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 100))
	for _, p := range proofs {
		fmt.Fprintf(out, "  %-6d  %-20s  %-40s  %s\n",
			p.Round,
			p.Timestamp.Format("2006-01-02 15:04:05"),
			truncate(p.Submission.Value, 40),
			p.SubmissionCID,
		)
	}
	return nil
}

// listVerdicts lists audit verdicts, newest first. A negative round lists
// every round.
func listVerdicts(ctx context.Context, db *database.CrawlDB, round int, jsonOutput bool, out io.Writer) error {
	verdicts, err := db.Verdicts(ctx, round)
	if err != nil {
		return fmt.Errorf("failed to list verdicts: %w", err)
	}
	if jsonOutput {
		return writeJSON(out, verdicts)
	}

	if len(verdicts) == 0 {
		fmt.Fprintln(out, "No verdicts recorded.")
		fmt.Fprintln(out, "\nUse 'newscrawl audit --round <n> <cid>...' to audit submissions.")
		return nil
	}

	fmt.Fprintf(out, "Verdicts (%d):\n\n", len(verdicts))
	fmt.Fprintf(out, "  %-6s  %-20s  %-6s  %-40s  %s\n", "Round", "Date", "Vote", "Submission CID", "Reason")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 100))
	for _, v := range verdicts {
		vote := "accept"
		if !v.Vote {
			vote = "reject"
		}
		reason := v.Reason
		if reason == "" {
			reason = "-"
		}
		fmt.Fprintf(out, "  %-6d  %-20s  %-6s  %-40s  %s\n",
			v.Round,
			v.AuditedAt.Format("2006-01-02 15:04:05"),
			vote,
			truncate(v.SubmissionCID, 40),
			reason,
		)
	}
	return nil
}

// listArticles lists the article records stored for round.
func listArticles(ctx context.Context, db *database.CrawlDB, round int, jsonOutput bool, out io.Writer) error {
	articles, err := db.ArticlesForRound(ctx, round)
	if err != nil {
		return fmt.Errorf("failed to list articles: %w", err)
	}
	if jsonOutput {
		if articles == nil {
			articles = []model.ArticleRecord{}
		}
		return writeJSON(out, articles)
	}

	if len(articles) == 0 {
		fmt.Fprintf(out, "No articles stored for round %d.\n", round)
		return nil
	}

	fmt.Fprintf(out, "Articles of round %d (%d):\n\n", round, len(articles))
	fmt.Fprintf(out, "  %-12s  %-40s  %s\n", "Date", "CID", "Link")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 100))
	for _, a := range articles {
		date := a.ReleaseDate
		if date == "" {
			date = "-"
		}
		cid := a.CID
		if cid == "" {
			cid = "(not uploaded)"
		}
		fmt.Fprintf(out, "  %-12s  %-40s  %s\n", date, truncate(cid, 40), a.Link)
	}
	return nil
}

// showRoundReport prints the stored report of round.
func showRoundReport(ctx context.Context, db *database.CrawlDB, cfg *config.Config, round int, out io.Writer) error {
	roundReport, err := db.RoundReport(ctx, round)
	if err != nil {
		return err
	}
	if roundReport == nil {
		return fmt.Errorf("no report recorded for round %d", round)
	}
	_, err = newReportWriter(cfg, out).Write(roundReport)
	return err
}

// truncate shortens s to n characters with an ellipsis.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
