// Package log provides sanitizing structured logging built on log/slog.
//
// The SecureHandler masks values that must never reach a log file:
//   - Site cookies and login credentials
//   - Storage API tokens
//   - Node private keys and signatures
//
// Content identifiers and SHA-256 digests are long opaque strings but are
// public, so they are passed through unmasked.
//
// # Usage
//
//	logger := log.New(os.Stderr, log.FormatText, verbose)
//	slog.SetDefault(logger)
//	logger.Info("article uploaded", "cid", cid, "cookie", raw) // cookie is masked
package log
