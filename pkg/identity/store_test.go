package identity

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), ".tnc", "keys"))
}

func TestCreateAndFingerprint(t *testing.T) {
	s := setupTestStore(t)

	id, err := s.Create("alice", "master-pw", false)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if id.Username != "alice" {
		t.Errorf("expected username 'alice', got %q", id.Username)
	}
	if len(id.Fingerprint) != fingerprintLen {
		t.Errorf("expected %d-char fingerprint, got %q", fingerprintLen, id.Fingerprint)
	}

	// Fingerprint is readable without the master password and stable
	// across store instances.
	again := NewStore(s.Dir())
	fp, err := again.Fingerprint()
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	if fp != id.Fingerprint {
		t.Errorf("fingerprint changed across loads: %q vs %q", fp, id.Fingerprint)
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(filepath.Join(s.Dir(), keyFileName))
		if err != nil {
			t.Fatalf("stat key file: %v", err)
		}
		if info.Mode().Perm() != 0o600 {
			t.Errorf("expected key file mode 0600, got %v", info.Mode().Perm())
		}
	}
}

func TestCreate_RefusesOverwrite(t *testing.T) {
	s := setupTestStore(t)

	first, err := s.Create("alice", "pw", false)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	_, err = s.Create("alice", "pw", false)
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	// Force regeneration produces a new fingerprint.
	second, err := s.Create("alice", "pw", true)
	if err != nil {
		t.Fatalf("forced Create failed: %v", err)
	}
	if second.Fingerprint == first.Fingerprint {
		t.Error("forced regeneration should change the fingerprint")
	}
}

func TestUnlock(t *testing.T) {
	s := setupTestStore(t)
	id, err := s.Create("bob", "correct horse", false)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	t.Run("CorrectPassword", func(t *testing.T) {
		keys, err := s.Unlock("correct horse")
		if err != nil {
			t.Fatalf("Unlock failed: %v", err)
		}
		if got := FingerprintFromPublicKey(keys.SigningPublicKey); got != id.Fingerprint {
			t.Errorf("unlocked key fingerprint %q != created %q", got, id.Fingerprint)
		}
		if len(keys.InstallSecret) != 32 {
			t.Errorf("expected 32-byte install secret, got %d", len(keys.InstallSecret))
		}
	})

	t.Run("WrongPassword", func(t *testing.T) {
		_, err := s.Unlock("battery staple")
		if !errors.Is(err, ErrWrongPassword) {
			t.Fatalf("expected ErrWrongPassword, got %v", err)
		}
	})

	t.Run("DeterministicInstallSecret", func(t *testing.T) {
		a, err := s.Unlock("correct horse")
		if err != nil {
			t.Fatal(err)
		}
		b, err := NewStore(s.Dir()).Unlock("correct horse")
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(a.InstallSecret, b.InstallSecret) {
			t.Error("install secret differs between unlocks")
		}
	})
}

func TestUnlock_NotInitialized(t *testing.T) {
	s := setupTestStore(t)
	if _, err := s.Unlock("pw"); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
	if _, err := s.Fingerprint(); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized from Fingerprint, got %v", err)
	}
}

func TestUnlock_CorruptKeyFile(t *testing.T) {
	s := setupTestStore(t)
	if _, err := s.Create("carol", "pw", false); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	t.Run("BadPrefix", func(t *testing.T) {
		path := filepath.Join(s.Dir(), keyFileName)
		if err := os.WriteFile(path, []byte("GARBAGE\n{}"), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := s.Unlock("pw"); !errors.Is(err, ErrCorruptIdentity) {
			t.Fatalf("expected ErrCorruptIdentity, got %v", err)
		}
	})

	t.Run("BadJSON", func(t *testing.T) {
		path := filepath.Join(s.Dir(), keyFileName)
		if err := os.WriteFile(path, []byte(keyFilePrefix+"not-json"), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := s.Unlock("pw"); !errors.Is(err, ErrCorruptIdentity) {
			t.Fatalf("expected ErrCorruptIdentity, got %v", err)
		}
	})
}

func TestReset(t *testing.T) {
	s := setupTestStore(t)
	if _, err := s.Create("dave", "pw", false); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := s.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if s.Exists() {
		t.Error("identity should not exist after Reset")
	}
	if _, err := s.Fingerprint(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized after Reset, got %v", err)
	}
	if err := s.Reset(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized on double Reset, got %v", err)
	}
}

func TestMnemonicRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	id, err := s.Create("erin", "pw", false)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	orig, err := s.Unlock("pw")
	if err != nil {
		t.Fatal(err)
	}

	mnemonic, err := s.ExportMnemonic("pw")
	if err != nil {
		t.Fatalf("ExportMnemonic failed: %v", err)
	}
	if !s.ValidateMnemonic(mnemonic) {
		t.Fatalf("exported mnemonic failed validation: %q", mnemonic)
	}

	// Restore on a fresh install, different master password.
	restoreStore := NewStore(filepath.Join(t.TempDir(), "keys"))
	restored, err := restoreStore.CreateFromMnemonic("erin", "other-pw", mnemonic, false)
	if err != nil {
		t.Fatalf("CreateFromMnemonic failed: %v", err)
	}
	if restored.Fingerprint != id.Fingerprint {
		t.Errorf("restored fingerprint %q != original %q", restored.Fingerprint, id.Fingerprint)
	}
	keys, err := restoreStore.Unlock("other-pw")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(keys.InstallSecret, orig.InstallSecret) {
		t.Error("restored install secret differs from original")
	}
}

func TestCreateFromMnemonic_Invalid(t *testing.T) {
	s := setupTestStore(t)
	_, err := s.CreateFromMnemonic("erin", "pw", "definitely not a valid phrase", false)
	if !errors.Is(err, ErrInvalidMnemonic) {
		t.Fatalf("expected ErrInvalidMnemonic, got %v", err)
	}
}
