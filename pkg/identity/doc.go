// Package identity manages the local operator identity: an ed25519
// signing key and a per-install secret, both derived from a random seed
// that is persisted encrypted under a master password.
//
// The fingerprint is a short stable hex tag over the public key. It is
// an attribution label, never a secret. Regenerating the identity
// produces a new fingerprint and deliberately breaks attribution
// continuity with prior ledger rows.
package identity
