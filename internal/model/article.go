package model

import "fmt"

// ArticleRecord is the metadata collected for one article during a round.
// The JSON field names are the wire shape of the round payload and must not change.
//
// A record starts as a stub (title, description, link) produced by the list
// fetcher and is enriched in place by the article extractor.
type ArticleRecord struct {
	// Title is the headline as shown on the listing page.
	Title string `json:"title"`

	// Description is the teaser text as shown on the listing page.
	Description string `json:"description"`

	// Link is the absolute article URL. It is unique within one round.
	Link string `json:"link"`

	// Author is the byline text, empty when the article has none.
	Author string `json:"author"`

	// ReleaseDate is the publication date derived from the URL (YYYY-MM-DD).
	ReleaseDate string `json:"releaseDate"`

	// ContentHash is the SHA-256 hex digest of the article's plain text.
	ContentHash string `json:"contentHash"`

	// CID is the content identifier of the uploaded article unit.
	CID string `json:"cid"`
}

// Enriched reports whether the extractor has filled in the content fields.
func (a *ArticleRecord) Enriched() bool {
	return a.ContentHash != "" && a.CID != ""
}

// ItemStatus is the outcome of processing a single queued article.
type ItemStatus int

const (
	// ItemOK means the article was extracted, hashed, uploaded and persisted.
	ItemOK ItemStatus = iota

	// ItemSkipped means the article was not processed, for example because
	// no stub record existed for the link.
	ItemSkipped

	// ItemFailed means processing started but a step failed. The record may
	// be partially enriched.
	ItemFailed
)

// String returns a lowercase label for the status.
func (s ItemStatus) String() string {
	switch s {
	case ItemOK:
		return "ok"
	case ItemSkipped:
		return "skipped"
	case ItemFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s ItemStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *ItemStatus) UnmarshalText(text []byte) error {
	for _, v := range []ItemStatus{ItemOK, ItemSkipped, ItemFailed} {
		if v.String() == string(text) {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("unknown item status %q", text)
}

// ItemResult records what happened to one queued link.
type ItemResult struct {
	// Link is the queued article URL.
	Link string `json:"link"`

	// Status is the outcome.
	Status ItemStatus `json:"status"`

	// Reason explains a skipped or failed item. Empty for ItemOK.
	Reason string `json:"reason,omitempty"`

	// NavigationFailed is set when the page did not load within the timeout.
	// Extraction is still attempted on whatever content is present.
	NavigationFailed bool `json:"navigation_failed,omitempty"`

	// Altered is set when an alteration sample listed this link with a
	// different content hash than the one computed now.
	Altered bool `json:"altered,omitempty"`
}
