package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/nao1215/newscrawl/internal/config"
	"github.com/nao1215/newscrawl/internal/round"
	"github.com/spf13/cobra"
)

// NewSubmitCmd creates the submit command.
func NewSubmitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Sign and upload the proof for a round",
		Long: `Submit signs the CID of the latest recorded article list with the node key
and uploads the proof as articleList-proof-<round>.json.

When no round has been recorded yet, the placeholder value "warming up" is
signed instead.

Examples:
  # Submit the proof for round 12
  newscrawl submit --round 12

  # Print the signed proof without uploading it
  newscrawl submit --round 12 --dry-run`,
		Args: cobra.NoArgs,
		RunE: runSubmitCmd,
	}

	cmd.Flags().IntP("round", "r", 0, "Round number the proof is submitted for")
	cmd.Flags().Bool("dry-run", false, "Print the signed proof without uploading it")

	return cmd
}

// runSubmitCmd executes the submit command.
func runSubmitCmd(cmd *cobra.Command, _ []string) error {
	var dryRun bool
	cfg, err := buildConfig(cmd, func(cfg *config.Config) error {
		var err error
		if cfg.Round, err = cmd.Flags().GetInt("round"); err != nil {
			return err
		}
		if cfg.Round < 0 {
			return config.ErrInvalidRound
		}
		dryRun, err = cmd.Flags().GetBool("dry-run")
		return err
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

	n, err := openNode(cfg, logger, true)
	if err != nil {
		return err
	}
	defer n.Close()

	aggregator := round.NewAggregator(n.store, n.db, n.signer, round.WithLogger(logger))

	if dryRun {
		sub, err := aggregator.Prepare(ctx)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), sub)
	}

	cid, err := aggregator.Submit(ctx, cfg.Round)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Submitted proof for round %d: %s\n", cfg.Round, cid)
	return nil
}

// writeJSON writes v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
