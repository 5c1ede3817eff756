package provenance

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"

	"github.com/mr-tron/base58"
)

const (
	// passwordContext versions the derivation so a future scheme can
	// change the construction without colliding with old passwords.
	passwordContext = "tnc/password/v1"
	// passwordLength keeps the result human-typeable.
	passwordLength = 20
)

// DerivePassword computes the document password for a build as a keyed
// pseudorandom function of the build identifier and classification.
// The same inputs and install secret always yield the same password, in
// any process, so the password never needs to be stored; the output
// reveals nothing about the secret.
func DerivePassword(buildID, classification string, secret []byte) (string, error) {
	if buildID == "" {
		return "", errors.New("build identifier required")
	}
	if classification == "" {
		return "", errors.New("classification required")
	}
	if len(secret) == 0 {
		return "", errors.New("install secret required")
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(passwordContext + "|" + buildID + "|" + classification))
	pw := base58.Encode(mac.Sum(nil))
	if len(pw) > passwordLength {
		pw = pw[:passwordLength]
	}
	return pw, nil
}
