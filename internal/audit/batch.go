package audit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/newscrawl/internal/model"
)

// AuditBatch audits submissions concurrently, bounded by the configured
// concurrency, and persists every verdict. Verdicts are returned in the
// order of cids. Audits that never started because ctx ended are missing
// from the result, and the context error is returned.
func (e *Engine) AuditBatch(ctx context.Context, round int, cids []string) ([]model.Verdict, error) {
	e.logger.Info("starting audit batch",
		"round", round,
		"submissions", len(cids),
		"concurrency", e.concurrency,
	)
	start := time.Now()

	verdicts := make([]*model.Verdict, len(cids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for i, cid := range cids {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			v := e.AuditSubmission(gctx, cid, round)
			// Each goroutine owns its own index.
			verdicts[i] = &v
			return nil
		})
	}
	waitErr := g.Wait()

	out := make([]model.Verdict, 0, len(cids))
	for _, v := range verdicts {
		if v == nil {
			continue
		}
		if err := e.history.SaveVerdict(ctx, *v); err != nil {
			return out, fmt.Errorf("failed to save verdict for %s: %w", v.SubmissionCID, err)
		}
		out = append(out, *v)
	}

	e.logger.Info("audit batch complete",
		"round", round,
		"audited", len(out),
		"elapsed", time.Since(start),
	)
	return out, waitErr
}
