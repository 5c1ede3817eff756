package ledger

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	// nonceSize is the size of the GCM nonce (12 bytes is standard for AES-GCM).
	nonceSize = 12
	// keySize is the raw symmetric key length.
	keySize = 32
)

// loadOrGenerateKey loads the ledger encryption key from keyPath or
// generates and persists a new one. The key file holds the raw key
// hex-encoded; it is created with 0600 permissions in a 0700 directory.
// Returns the key and whether it was freshly generated.
func loadOrGenerateKey(keyPath string) ([]byte, bool, error) {
	data, err := os.ReadFile(keyPath)
	if err == nil {
		key, derr := decodeKey(string(data))
		if derr != nil {
			return nil, false, fmt.Errorf("malformed key file %s: %w", keyPath, derr)
		}
		return key, false, nil
	}
	if !os.IsNotExist(err) {
		return nil, false, fmt.Errorf("failed to read key file %s: %w", keyPath, err)
	}

	key := make([]byte, keySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, false, fmt.Errorf("failed to generate random key: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(keyPath), 0o700); err != nil {
		return nil, false, fmt.Errorf("failed to create key directory: %w", err)
	}
	if err := os.WriteFile(keyPath, []byte(hex.EncodeToString(key)+"\n"), 0o600); err != nil {
		return nil, false, fmt.Errorf("failed to write key file %s: %w", keyPath, err)
	}
	return key, true, nil
}

// loadKey loads an existing key file without generating one.
func loadKey(keyPath string) ([]byte, error) {
	data, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, err
	}
	key, derr := decodeKey(string(data))
	if derr != nil {
		return nil, fmt.Errorf("malformed key file %s: %w", keyPath, derr)
	}
	return key, nil
}

func decodeKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, err
	}
	if len(key) != keySize {
		return nil, fmt.Errorf("expected %d key bytes, got %d", keySize, len(key))
	}
	return key, nil
}

// encrypt seals plaintext with AES-256-GCM. Output layout is
// nonce (12 bytes) || ciphertext.
func encrypt(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// decrypt opens data produced by encrypt. Authentication failure means
// the ciphertext was tampered with or the wrong key is loaded.
func decrypt(key, data []byte) ([]byte, error) {
	if len(data) < nonceSize {
		return nil, errors.New("ciphertext too short")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	plaintext, err := gcm.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return nil, err
	}
	return plaintext, nil
}

// computeTag computes the authenticity tag over the exact values as
// stored: the build identifier concatenated with the base64 ciphertext.
// Verification therefore never depends on anything that is not
// persisted in the row itself.
func computeTag(buildID, ciphertextB64 string) string {
	sum := sha256.Sum256([]byte(buildID + ciphertextB64))
	return hex.EncodeToString(sum[:])
}
