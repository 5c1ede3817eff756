package provenance

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// protectMagic marks a protected container. It deliberately starts with
// '%' so naive PDF sniffers do not mistake the container for a document.
const protectMagic = "%TNC-ENC1\n"

const (
	protectVersion     = 1
	protectSaltSize    = 16
	protectArgonTime   = uint32(2)
	protectArgonMemKB  = uint32(64 * 1024)
	protectArgonThread = uint8(1)
)

// protectEnvelope wraps the exact PDF bytes. Decryption returns the
// byte-identical original, so protection is fully reversible and
// tampering is caught by the AEAD, never passed through silently.
type protectEnvelope struct {
	Version     uint32 `json:"version"`
	KDF         string `json:"kdf"`
	KDFTime     uint32 `json:"kdf_time"`
	KDFMemoryKB uint32 `json:"kdf_memory_kb"`
	KDFThreads  uint8  `json:"kdf_threads"`
	Salt        []byte `json:"salt"`
	Nonce       []byte `json:"nonce"`
	Ciphertext  []byte `json:"ciphertext"`
}

// IsProtected reports whether the bytes are a protected container.
func IsProtected(b []byte) bool {
	return bytes.HasPrefix(b, []byte(protectMagic))
}

// Protect seals a rendered PDF under a password. The input must be a
// plain PDF: protecting twice is refused, as is anything that does not
// carry a PDF header.
func Protect(pdf []byte, password string) ([]byte, error) {
	if IsProtected(pdf) {
		return nil, ErrAlreadyProtected
	}
	if !isPDF(pdf) {
		return nil, fmt.Errorf("%w: missing %%PDF- header", ErrUnsupportedDocument)
	}
	if password == "" {
		return nil, fmt.Errorf("password required")
	}

	salt := make([]byte, protectSaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	key := argon2.IDKey([]byte(password), salt, protectArgonTime, protectArgonMemKB, protectArgonThread, chacha20poly1305.KeySize)
	defer zeroBytes(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	ciphertext := aead.Seal(nil, nonce, pdf, nil)

	raw, err := json.Marshal(protectEnvelope{
		Version:     protectVersion,
		KDF:         "argon2id",
		KDFTime:     protectArgonTime,
		KDFMemoryKB: protectArgonMemKB,
		KDFThreads:  protectArgonThread,
		Salt:        salt,
		Nonce:       nonce,
		Ciphertext:  ciphertext,
	})
	if err != nil {
		return nil, err
	}
	return append([]byte(protectMagic), raw...), nil
}

// Unprotect opens a protected container and returns the original PDF
// bytes exactly as they were sealed.
func Unprotect(blob []byte, password string) ([]byte, error) {
	if !IsProtected(blob) {
		if isPDF(blob) {
			return nil, ErrNotProtected
		}
		return nil, fmt.Errorf("%w: neither a protected container nor a PDF", ErrUnsupportedDocument)
	}

	var env protectEnvelope
	if err := json.Unmarshal(blob[len(protectMagic):], &env); err != nil {
		return nil, fmt.Errorf("%w: malformed protected envelope", ErrUnsupportedDocument)
	}
	if env.Version != protectVersion || env.KDF != "argon2id" {
		return nil, fmt.Errorf("%w: unknown envelope version", ErrUnsupportedDocument)
	}

	key := argon2.IDKey([]byte(password), env.Salt, env.KDFTime, env.KDFMemoryKB, env.KDFThreads, chacha20poly1305.KeySize)
	defer zeroBytes(key)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	pdf, err := aead.Open(nil, env.Nonce, env.Ciphertext, nil)
	if err != nil {
		return nil, ErrWrongPassword
	}
	return pdf, nil
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
