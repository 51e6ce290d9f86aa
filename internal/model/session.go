package model

import (
	"fmt"
	"time"
)

// ProbeStatus is the outcome of looking for the paywall "Continue" control
// after landing on the edition front page.
type ProbeStatus int

const (
	// ProbeNotRun means no probe has happened yet.
	ProbeNotRun ProbeStatus = iota

	// ProbeNoPaywall means the control was not found.
	ProbeNoPaywall

	// ProbePaywallPresent means the control was found.
	ProbePaywallPresent

	// ProbeFailed means the probe itself errored.
	ProbeFailed
)

// String returns a lowercase label for the probe status.
func (p ProbeStatus) String() string {
	switch p {
	case ProbeNotRun:
		return "not_run"
	case ProbeNoPaywall:
		return "no_paywall"
	case ProbePaywallPresent:
		return "paywall_present"
	case ProbeFailed:
		return "probe_failed"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p ProbeStatus) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *ProbeStatus) UnmarshalText(text []byte) error {
	for _, v := range []ProbeStatus{ProbeNotRun, ProbeNoPaywall, ProbePaywallPresent, ProbeFailed} {
		if v.String() == string(text) {
			*p = v
			return nil
		}
	}
	return fmt.Errorf("unknown probe status %q", text)
}

// Session describes the state of the node's browser session.
type Session struct {
	// Valid is true once negotiation has completed.
	Valid bool `json:"valid"`

	// LastCheckedAt is when negotiation was last attempted.
	LastCheckedAt time.Time `json:"last_checked_at"`

	// Locale is the edition the session landed on.
	Locale Locale `json:"locale"`

	// Probe is the paywall probe outcome.
	Probe ProbeStatus `json:"probe"`

	// ProbeIgnored is always true: the probe outcome does not affect Valid.
	ProbeIgnored bool `json:"probe_ignored"`
}
