// Package storage uploads and fetches content-addressed units.
//
// A unit is one or more named blobs. A single blob is addressed by its own
// CID; several blobs form a directory unit whose files are fetched by name.
//
// Two backends implement Store:
//
//   - HTTPStore talks to a web3.storage-compatible upload API and reads back
//     through an IPFS HTTP gateway, optionally through a SOCKS5 proxy.
//   - LocalStore keeps units in a SQLite file and computes CIDs itself. It is
//     used for development and tests and needs no network access.
//
// Addresser builds the per-article unit (rendered HTML plus its JSON record)
// on top of any Store.
package storage
