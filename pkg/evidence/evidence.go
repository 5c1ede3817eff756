// Package evidence signs exported ledger bundles so a recipient can
// verify who produced an export and that it was not altered in transit.
// Signatures are detached compact JWS (EdDSA over Ed25519): the bundle
// file stays plain JSON and the signature travels alongside it.
package evidence

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"

	"github.com/go-jose/go-jose/v4"
)

// ErrBadSignature is returned when a signature does not verify against
// the payload and public key.
var ErrBadSignature = errors.New("evidence: signature verification failed")

// SignatureFileSuffix is appended to the bundle filename to name its
// detached signature file.
const SignatureFileSuffix = ".jws"

// Sign produces a detached compact JWS over payload.
func Sign(payload []byte, key ed25519.PrivateKey) (string, error) {
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.EdDSA, Key: key}, nil)
	if err != nil {
		return "", fmt.Errorf("create signer: %w", err)
	}
	obj, err := signer.Sign(payload)
	if err != nil {
		return "", fmt.Errorf("sign payload: %w", err)
	}
	compact, err := obj.DetachedCompactSerialize()
	if err != nil {
		return "", fmt.Errorf("serialize signature: %w", err)
	}
	return compact, nil
}

// Verify checks a detached compact JWS against the payload it claims to
// cover.
func Verify(signature string, payload []byte, key ed25519.PublicKey) error {
	obj, err := jose.ParseDetached(signature, payload, []jose.SignatureAlgorithm{jose.EdDSA})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	if _, err := obj.Verify(key); err != nil {
		return ErrBadSignature
	}
	return nil
}

// SignFile signs the file at path and writes the detached signature
// next to it as path + SignatureFileSuffix. It returns the signature
// file path.
func SignFile(path string, key ed25519.PrivateKey) (string, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read bundle: %w", err)
	}
	sig, err := Sign(payload, key)
	if err != nil {
		return "", err
	}
	sigPath := path + SignatureFileSuffix
	if err := os.WriteFile(sigPath, []byte(sig+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("write signature: %w", err)
	}
	return sigPath, nil
}

// VerifyFile checks the detached signature at sigPath against the
// bundle at path.
func VerifyFile(path, sigPath string, key ed25519.PublicKey) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read bundle: %w", err)
	}
	raw, err := os.ReadFile(sigPath)
	if err != nil {
		return fmt.Errorf("read signature: %w", err)
	}
	sig := string(raw)
	for len(sig) > 0 && (sig[len(sig)-1] == '\n' || sig[len(sig)-1] == '\r') {
		sig = sig[:len(sig)-1]
	}
	return Verify(sig, payload, key)
}
