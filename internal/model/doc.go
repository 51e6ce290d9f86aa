// Package model defines the core data structures used throughout newscrawl.
//
// This package contains the following main types:
//   - Locale: The news site edition being crawled
//   - ArticleRecord: Metadata and proof fields for one article
//   - Round, Submission: The round attestation wire shapes
//   - AlterationSample: Parallel arrays drawn from a prior round for re-checking
//   - Session: The browser session state and paywall probe outcome
//   - RoundReport: The per-round result rendered by the report package
//
// Models live in their own package so crawler, round, audit and report can
// share them without import cycles. JSON tags on ArticleRecord and Submission
// are wire formats shared with other nodes.
package model
