package audit

import (
	"context"
	"errors"
	"fmt"

	"github.com/nao1215/newscrawl/internal/model"
)

// alterationPeriod is the number of rounds between alteration checks.
const alterationPeriod = 5

// ErrNoPriorRound is returned by AlterationSample when there is no earlier
// round to compare against.
var ErrNoPriorRound = errors.New("no prior round to sample")

// AlterationCheckDue reports whether round should re-check a previously
// submitted round for retroactive changes.
func AlterationCheckDue(round int) bool {
	return (round+1)%alterationPeriod == 0
}

// AlterationSample picks a random recorded round before current, fetches its
// article list and returns it as parallel arrays.
func (e *Engine) AlterationSample(ctx context.Context, current int) (*model.AlterationSample, error) {
	rounds, err := e.history.Rounds(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read round history: %w", err)
	}

	var prior []model.Round
	for _, r := range rounds {
		if r.Round < current && r.ArticleListCID != "" {
			prior = append(prior, r)
		}
	}
	if len(prior) == 0 {
		return nil, ErrNoPriorRound
	}

	e.randMu.Lock()
	picked := prior[e.rand.IntN(len(prior))]
	e.randMu.Unlock()

	raw, err := e.store.Get(ctx, picked.ArticleListCID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch round %d list: %w", picked.Round, err)
	}
	records, err := parseList(raw)
	if err != nil {
		return nil, fmt.Errorf("round %d list is malformed: %w", picked.Round, err)
	}

	sample := &model.AlterationSample{Round: picked.Round}
	for _, r := range records {
		sample.Links = append(sample.Links, r.Link)
		sample.ContentHashes = append(sample.ContentHashes, r.ContentHash)
		sample.Titles = append(sample.Titles, r.Title)
		sample.Descriptions = append(sample.Descriptions, r.Description)
	}

	e.logger.Info("alteration sample loaded", "sample_round", picked.Round, "articles", sample.Len())
	return sample, nil
}
