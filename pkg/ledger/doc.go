// Package ledger implements the encrypted, signed, append-only build
// record store.
//
// Records live in a SQLite database keyed by build identifier. The
// metadata of each record is encrypted with AES-256-GCM under a
// symmetric key held in a separate key file; an authenticity tag binds
// the build identifier to the stored ciphertext so tampering is
// detectable from persisted values alone. Losing the key file makes
// every row permanently unrecoverable.
package ledger
