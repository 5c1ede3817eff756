package identity

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tyler-smith/go-bip39"
)

var (
	// ErrNotInitialized indicates no identity has been created yet.
	ErrNotInitialized = errors.New("identity not initialized")
	// ErrAlreadyExists indicates an identity is already present and
	// force-regeneration was not requested.
	ErrAlreadyExists = errors.New("identity already exists")
	// ErrCorruptIdentity indicates the persisted key file is damaged or
	// has an unrecognized format. It is never healed automatically.
	ErrCorruptIdentity = errors.New("identity key file is corrupt")
	// ErrWrongPassword indicates the master password failed to open the
	// seed envelope.
	ErrWrongPassword = errors.New("wrong master password")
	// ErrInvalidMnemonic indicates a recovery phrase that fails the
	// bip39 checksum.
	ErrInvalidMnemonic = errors.New("invalid recovery mnemonic")
)

const (
	keyFilePrefix = "TNCID1\n"

	keyFileName = "identity.json"
	pubFileName = "identity.pub.json"

	seedBits = 256
)

// Identity is the public view of the local identity.
type Identity struct {
	Username    string    `json:"username"`
	Fingerprint string    `json:"fingerprint"`
	PublicKey   []byte    `json:"public_key"`
	CreatedAt   time.Time `json:"created_at"`
}

// keyFile is the on-disk encrypted form.
type keyFile struct {
	Username  string        `json:"username"`
	CreatedAt time.Time     `json:"created_at"`
	Envelope  *SeedEnvelope `json:"envelope"`
}

// Store persists one identity in a directory with owner-only
// permissions. All methods are safe for a single process; the files are
// written once at creation and read-only afterwards.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir. Nothing is touched on disk
// until Create is called.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the directory the store persists into.
func (s *Store) Dir() string { return s.dir }

func (s *Store) keyPath() string { return filepath.Join(s.dir, keyFileName) }
func (s *Store) pubPath() string { return filepath.Join(s.dir, pubFileName) }

// Exists reports whether an identity key file is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.keyPath())
	return err == nil
}

// Create generates a fresh identity. The seed is random; the master
// password only protects it at rest and never contributes entropy.
// An existing identity is refused unless force is set.
func (s *Store) Create(username, masterPassword string, force bool) (*Identity, error) {
	seed, err := bip39.NewEntropy(seedBits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate identity seed: %w", err)
	}
	return s.create(username, masterPassword, seed, force)
}

// CreateFromMnemonic restores an identity from a bip39 recovery phrase.
// The resulting fingerprint and install secret are identical to the
// install that exported the phrase.
func (s *Store) CreateFromMnemonic(username, masterPassword, mnemonic string, force bool) (*Identity, error) {
	seed, err := bip39.EntropyFromMnemonic(strings.TrimSpace(mnemonic))
	if err != nil {
		return nil, ErrInvalidMnemonic
	}
	return s.create(username, masterPassword, seed, force)
}

func (s *Store) create(username, masterPassword string, seed []byte, force bool) (*Identity, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errors.New("username required")
	}
	if masterPassword == "" {
		return nil, errors.New("master password required")
	}
	if s.Exists() && !force {
		return nil, fmt.Errorf("%w at %s", ErrAlreadyExists, s.keyPath())
	}

	env, err := EncryptSeed(seed, []byte(masterPassword))
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt identity seed: %w", err)
	}
	keys, err := DeriveKeys(seed)
	if err != nil {
		return nil, err
	}
	zeroBytes(seed)

	now := time.Now().UTC()
	id := &Identity{
		Username:    username,
		Fingerprint: FingerprintFromPublicKey(keys.SigningPublicKey),
		PublicKey:   append([]byte(nil), keys.SigningPublicKey...),
		CreatedAt:   now,
	}

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create identity directory %s: %w", s.dir, err)
	}

	rawKey, err := json.MarshalIndent(keyFile{Username: username, CreatedAt: now, Envelope: env}, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(s.keyPath(), append([]byte(keyFilePrefix), rawKey...), 0o600); err != nil {
		return nil, fmt.Errorf("failed to write key file %s: %w", s.keyPath(), err)
	}

	rawPub, err := json.MarshalIndent(id, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(s.pubPath(), rawPub, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write public file %s: %w", s.pubPath(), err)
	}
	return id, nil
}

// Info returns the public identity without requiring the master
// password.
func (s *Store) Info() (*Identity, error) {
	raw, err := os.ReadFile(s.pubPath())
	if os.IsNotExist(err) {
		return nil, ErrNotInitialized
	}
	if err != nil {
		return nil, err
	}
	var id Identity
	if err := json.Unmarshal(raw, &id); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCorruptIdentity, s.pubPath())
	}
	if id.Fingerprint == "" || len(id.PublicKey) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrCorruptIdentity, s.pubPath())
	}
	return &id, nil
}

// Fingerprint returns the stable attribution tag of the local identity.
func (s *Store) Fingerprint() (string, error) {
	id, err := s.Info()
	if err != nil {
		return "", err
	}
	return id.Fingerprint, nil
}

// Unlock decrypts the seed with the master password and returns the
// full key material.
func (s *Store) Unlock(masterPassword string) (*Keys, error) {
	raw, err := os.ReadFile(s.keyPath())
	if os.IsNotExist(err) {
		return nil, ErrNotInitialized
	}
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(raw, []byte(keyFilePrefix)) {
		return nil, fmt.Errorf("%w: %s", ErrCorruptIdentity, s.keyPath())
	}
	var kf keyFile
	if err := json.Unmarshal(raw[len(keyFilePrefix):], &kf); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCorruptIdentity, s.keyPath())
	}
	seed, err := DecryptSeed(kf.Envelope, []byte(masterPassword))
	if err != nil {
		if errors.Is(err, ErrCorruptIdentity) {
			return nil, fmt.Errorf("%w: %s", ErrCorruptIdentity, s.keyPath())
		}
		return nil, err
	}
	defer zeroBytes(seed)
	return DeriveKeys(seed)
}

// InstallSecret unlocks the identity and returns only the secret that
// feeds password derivation.
func (s *Store) InstallSecret(masterPassword string) ([]byte, error) {
	keys, err := s.Unlock(masterPassword)
	if err != nil {
		return nil, err
	}
	return keys.InstallSecret, nil
}

// ExportMnemonic returns the 24-word recovery phrase for the seed.
// Anyone holding the phrase can reconstruct the full identity.
func (s *Store) ExportMnemonic(masterPassword string) (string, error) {
	raw, err := os.ReadFile(s.keyPath())
	if os.IsNotExist(err) {
		return "", ErrNotInitialized
	}
	if err != nil {
		return "", err
	}
	if !bytes.HasPrefix(raw, []byte(keyFilePrefix)) {
		return "", fmt.Errorf("%w: %s", ErrCorruptIdentity, s.keyPath())
	}
	var kf keyFile
	if err := json.Unmarshal(raw[len(keyFilePrefix):], &kf); err != nil {
		return "", fmt.Errorf("%w: %s", ErrCorruptIdentity, s.keyPath())
	}
	seed, err := DecryptSeed(kf.Envelope, []byte(masterPassword))
	if err != nil {
		return "", err
	}
	defer zeroBytes(seed)
	return bip39.NewMnemonic(seed)
}

// ValidateMnemonic reports whether a phrase passes the bip39 checksum.
func (s *Store) ValidateMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(strings.TrimSpace(mnemonic))
}

// Reset irreversibly destroys the persisted key material. The caller is
// expected to have confirmed this: prior ledger rows keep the old
// fingerprint and can no longer be attributed to the new identity.
func (s *Store) Reset() error {
	if !s.Exists() {
		return ErrNotInitialized
	}
	if err := os.Remove(s.keyPath()); err != nil {
		return fmt.Errorf("failed to remove key file %s: %w", s.keyPath(), err)
	}
	if err := os.Remove(s.pubPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove public file %s: %w", s.pubPath(), err)
	}
	return nil
}
