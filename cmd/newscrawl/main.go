// Package main provides the entry point for the newscrawl CLI.
//
// newscrawl crawls one edition of a news site per round, stores every
// article as a content-addressed unit, publishes a signed proof of the
// round's article list and audits the proofs of peer nodes.
//
// Usage:
//
//	newscrawl crawl --locale us --round 12
//	newscrawl submit --round 12
//	newscrawl audit --round 12 <submission-cid>...
//
// See --help for all available options.
package main

// main is the entry point for newscrawl.
func main() {
	Execute()
}
