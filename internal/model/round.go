package model

import "time"

// WarmingUp is the submission value used before any round has produced
// an article list.
const WarmingUp = "warming up"

// Round links a round number to the CID of its uploaded article list.
// When several rows exist, the highest round number is authoritative.
type Round struct {
	Round          int       `json:"round"`
	ArticleListCID string    `json:"articleListCid"`
	Timestamp      time.Time `json:"timestamp"`
}

// Submission is the signed proof a node publishes for a round.
// Field names are the wire shape consumed by auditors.
type Submission struct {
	// Value is the article list CID, or WarmingUp.
	Value string `json:"value"`

	// NodePubKey is the base58 public key of the submitting node.
	NodePubKey string `json:"node_pubkey"`

	// NodeSignature is the base58 signed message over the JSON-encoded value.
	NodeSignature string `json:"node_signature"`
}

// AlterationSample holds parallel arrays extracted from a prior round's
// article list. Index i of every slice refers to the same article.
// Samples are transient and never persisted.
type AlterationSample struct {
	Round         int      `json:"round"`
	Links         []string `json:"links"`
	ContentHashes []string `json:"contentHashes"`
	Titles        []string `json:"titles"`
	Descriptions  []string `json:"descriptions"`
}

// Len returns the number of sampled articles.
func (s *AlterationSample) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Links)
}

// HashFor returns the sampled content hash for link.
func (s *AlterationSample) HashFor(link string) (string, bool) {
	if s == nil {
		return "", false
	}
	for i, l := range s.Links {
		if l == link && i < len(s.ContentHashes) {
			return s.ContentHashes[i], true
		}
	}
	return "", false
}

// Verdict is an auditor's vote on one submission.
type Verdict struct {
	ID            string    `json:"id"`
	SubmissionCID string    `json:"submission_cid"`
	Round         int       `json:"round"`
	Vote          bool      `json:"vote"`
	Reason        string    `json:"reason"`
	AuditedAt     time.Time `json:"audited_at"`
}
