// Package signing signs and verifies submission payloads.
//
// Signatures are NaCl "signed messages" (the 64-byte signature followed by
// the payload) encoded with base58, and public keys are base58 as well, so
// a verifier recovers the payload from the signature alone.
package signing
