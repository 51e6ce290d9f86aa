package config

import "errors"

// Configuration validation errors returned by Config.Validate and
// Config.ValidateCrawl. Callers match them with errors.Is.
var (
	// ErrMissingCredentials is returned when the site account is not set.
	ErrMissingCredentials = errors.New("missing credentials: set " + EnvUsername + " and " + EnvPassword)

	// ErrMissingStorageToken is returned when the remote backend is selected
	// without an API token.
	ErrMissingStorageToken = errors.New("missing storage token: set " + EnvStorageToken)

	// ErrMissingStorageURL is returned when the remote backend has no upload
	// or gateway URL.
	ErrMissingStorageURL = errors.New("missing storage API or gateway URL")

	// ErrUnknownStorageBackend is returned for a storage value other than
	// "local" or "remote".
	ErrUnknownStorageBackend = errors.New("unknown storage backend: must be local or remote")

	// ErrInvalidTimeout is returned when a timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidDelay is returned when the cooldown or settle delay is negative.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidRound is returned for a negative round number.
	ErrInvalidRound = errors.New("invalid round: must be non-negative")

	// ErrInvalidMaxPages is returned for a negative page cap.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be non-negative")

	// ErrInvalidConcurrency is returned when the audit concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid audit concurrency: must be positive")

	// ErrInvalidSampleSize is returned for a negative audit sample size.
	ErrInvalidSampleSize = errors.New("invalid audit sample size: must be non-negative")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)
