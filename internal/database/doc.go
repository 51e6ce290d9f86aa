// Package database provides SQLite-based storage for newscrawl.
//
// CrawlDB holds the node's local history:
//   - Articles enriched in each round
//   - The article list CID recorded when a round closes
//   - Signed submissions (proofs)
//   - Audit verdicts cast on other nodes
//   - Complete round reports
//
// SQLite is accessed through modernc.org/sqlite, which needs no cgo.
// OpenSQLite is shared with the local content store in the storage package.
package database
