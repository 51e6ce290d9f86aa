package main

import (
	"fmt"

	"github.com/nao1215/newscrawl/internal/audit"
	"github.com/nao1215/newscrawl/internal/config"
	"github.com/spf13/cobra"
)

// NewAuditCmd creates the audit command.
func NewAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit <submission-cid>...",
		Short: "Audit proofs submitted by other nodes",
		Long: `Audit fetches each submission, verifies its signature against the embedded
public key and checks the signed value. Unless the node is warming up, the
article list is fetched and a random sample of its article units is fetched
again and compared with the list.

One verdict is recorded per submission. Submissions are audited concurrently.

Examples:
  # Audit two submissions for round 12
  newscrawl audit --round 12 bafy...a bafy...b

  # Re-fetch five article units per submission
  newscrawl audit --round 12 --sample-size 5 bafy...a

  # Output verdicts as JSON
  newscrawl audit --round 12 --json bafy...a`,
		Args: cobra.MinimumNArgs(1),
		RunE: runAuditCmd,
	}

	cmd.Flags().IntP("round", "r", 0, "Round the submissions belong to")
	cmd.Flags().Int("sample-size", config.DefaultAuditSampleSize,
		"Number of article units re-fetched per submission")
	cmd.Flags().IntP("concurrency", "b", config.DefaultAuditConcurrency,
		"Number of submissions audited at once")
	addReportFlags(cmd)

	return cmd
}

// runAuditCmd executes the audit command.
func runAuditCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, func(cfg *config.Config) error {
		var err error
		if cfg.Round, err = cmd.Flags().GetInt("round"); err != nil {
			return err
		}
		if cfg.AuditSampleSize, err = cmd.Flags().GetInt("sample-size"); err != nil {
			return err
		}
		if cfg.AuditConcurrency, err = cmd.Flags().GetInt("concurrency"); err != nil {
			return err
		}
		return readReportFlags(cmd, cfg)
	})
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd, cfg.Verbose)

	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	n, err := openNode(cfg, logger, false)
	if err != nil {
		return err
	}
	defer n.Close()

	engine := audit.NewEngine(n.store, n.db,
		audit.WithSampleSize(cfg.AuditSampleSize),
		audit.WithConcurrency(cfg.AuditConcurrency),
		audit.WithLogger(logger),
	)

	verdicts, auditErr := engine.AuditBatch(ctx, cfg.Round, args)

	output, closeOutput, err := reportOutput(cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer closeOutput()

	if _, err := newReportWriter(cfg, output).WriteVerdicts(cfg.Round, verdicts); err != nil {
		return fmt.Errorf("failed to write verdicts: %w", err)
	}
	return auditErr
}
