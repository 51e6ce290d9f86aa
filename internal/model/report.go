package model

import "time"

// RoundReport is the result of one crawl round.
// It is filled in step by step by the round pipeline and rendered by the
// report writers.
type RoundReport struct {
	// === Basic Information ===

	// ID uniquely identifies this crawl run.
	ID string `json:"id"`

	// Round is the round number supplied by the scheduler.
	Round int `json:"round"`

	// Locale is the edition that was crawled.
	Locale Locale `json:"locale"`

	// SearchTerm is the search query, empty for front-page crawls.
	SearchTerm string `json:"search_term,omitempty"`

	// StartedAt is when the round began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the last step completed.
	FinishedAt time.Time `json:"finished_at"`

	// === Session ===

	// Session is a snapshot of the browser session after negotiation.
	Session Session `json:"session"`

	// === List Fetch ===

	// Queued is the number of links enqueued by the list fetcher.
	Queued int `json:"queued"`

	// Duplicates is the number of enqueued links that were already queued.
	Duplicates int `json:"duplicates"`

	// ListError is the list fetch failure, if any. The round continues with
	// whatever was queued.
	ListError string `json:"list_error,omitempty"`

	// === Articles ===

	// Items holds one result per processed link, in processing order.
	Items []ItemResult `json:"items,omitempty"`

	// Articles is the round payload in insertion order.
	Articles []ArticleRecord `json:"articles,omitempty"`

	// AlterationSampleRound is the round the alteration sample came from,
	// or zero when no check ran.
	AlterationSampleRound int `json:"alteration_sample_round,omitempty"`

	// ArticleListCID is the CID of the uploaded round payload.
	ArticleListCID string `json:"article_list_cid,omitempty"`

	// === Round State ===

	// PerformedSteps lists the pipeline steps that ran.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// TimedOut is true if the round was cut short by its context.
	TimedOut bool `json:"timed_out"`

	// Error contains the error that aborted the round, if any.
	Error error `json:"-"`

	// ErrorMessage is the string representation of Error for serialization.
	ErrorMessage string `json:"error,omitempty"` //nolint:tagliatelle // error is conventional
}

// NewRoundReport creates an empty report for round.
func NewRoundReport(id string, round int, locale Locale) *RoundReport {
	return &RoundReport{
		ID:        id,
		Round:     round,
		Locale:    locale,
		StartedAt: time.Now(),
		Items:     make([]ItemResult, 0),
		Articles:  make([]ArticleRecord, 0),
	}
}

// AddItem appends a per-article result.
func (r *RoundReport) AddItem(item ItemResult) {
	r.Items = append(r.Items, item)
}

// Summary counts item results by status.
type Summary struct {
	OK      int `json:"ok"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
	Altered int `json:"altered"`
}

// Summary aggregates the per-item results.
func (r *RoundReport) Summary() Summary {
	var s Summary
	for _, item := range r.Items {
		switch item.Status {
		case ItemOK:
			s.OK++
		case ItemSkipped:
			s.Skipped++
		case ItemFailed:
			s.Failed++
		}
		if item.Altered {
			s.Altered++
		}
	}
	return s
}

// ItemsByStatus returns the results with the given status.
func (r *RoundReport) ItemsByStatus(status ItemStatus) []ItemResult {
	var result []ItemResult
	for _, item := range r.Items {
		if item.Status == status {
			result = append(result, item)
		}
	}
	return result
}
