package identity

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	hkdfInfoSigning       = "tnc/identity/signing/v1"
	hkdfInfoInstallSecret = "tnc/identity/install-secret/v1"

	// fingerprintLen is the number of hex characters in a fingerprint.
	fingerprintLen = 16
)

// Keys is the unlocked key material of an identity.
type Keys struct {
	SigningPrivateKey ed25519.PrivateKey
	SigningPublicKey  ed25519.PublicKey
	// InstallSecret feeds deterministic password derivation. It never
	// leaves the local install and is never written to the ledger.
	InstallSecret []byte
}

// DeriveKeys expands the identity seed into the signing keypair and the
// install secret. The expansion is versioned through the HKDF info
// strings so a future scheme can coexist with existing seeds.
func DeriveKeys(seed []byte) (*Keys, error) {
	signingSeed, err := hkdfExpand(seed, hkdfInfoSigning, ed25519.SeedSize)
	if err != nil {
		return nil, err
	}
	installSecret, err := hkdfExpand(seed, hkdfInfoInstallSecret, 32)
	if err != nil {
		return nil, err
	}

	priv := ed25519.NewKeyFromSeed(signingSeed)
	pub := priv.Public().(ed25519.PublicKey)

	return &Keys{
		SigningPrivateKey: priv,
		SigningPublicKey:  pub,
		InstallSecret:     installSecret,
	}, nil
}

// FingerprintFromPublicKey computes the stable attribution tag for a
// public key: the first 16 hex characters of its SHA-256 digest.
func FingerprintFromPublicKey(pub ed25519.PublicKey) string {
	sum := sha256.Sum256(pub)
	return hex.EncodeToString(sum[:])[:fingerprintLen]
}

func hkdfExpand(seed []byte, info string, outLen int) ([]byte, error) {
	reader := hkdf.New(sha256.New, seed, nil, []byte(info))
	out := make([]byte, outLen)
	if _, err := io.ReadFull(reader, out); err != nil {
		return nil, err
	}
	return out, nil
}
