// Package round closes crawl rounds and produces signed submissions.
//
// CloseRound uploads the round's article list as articleList-round<N>.json
// and records the round to CID mapping. Submit signs the CID of the highest
// recorded round, which need not be the round just closed, and uploads the
// submission as articleList-proof-<N>.json. A node with no recorded rounds
// submits the "warming up" placeholder instead.
package round
