package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	state := filepath.Join(dir, DirName)
	if cfg.Dir() != state {
		t.Errorf("Dir() = %q, want %q", cfg.Dir(), state)
	}
	if got, want := cfg.LedgerFile(), filepath.Join(state, "ledger.db"); got != want {
		t.Errorf("LedgerFile() = %q, want %q", got, want)
	}
	if got, want := cfg.LedgerKeyFile(), filepath.Join(state, "ledger.key"); got != want {
		t.Errorf("LedgerKeyFile() = %q, want %q", got, want)
	}
	if got, want := cfg.IdentityDir(), filepath.Join(state, "keys"); got != want {
		t.Errorf("IdentityDir() = %q, want %q", got, want)
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	state := filepath.Join(dir, DirName)
	if err := os.MkdirAll(state, 0o700); err != nil {
		t.Fatal(err)
	}
	yaml := "ledger_path: archive/provenance.db\nkey_dir: /mnt/usb/tnc-keys\n"
	if err := os.WriteFile(filepath.Join(state, "config.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got, want := cfg.LedgerFile(), filepath.Join(state, "archive/provenance.db"); got != want {
		t.Errorf("LedgerFile() = %q, want %q", got, want)
	}
	if got := cfg.IdentityDir(); got != "/mnt/usb/tnc-keys" {
		t.Errorf("IdentityDir() = %q, want absolute key dir", got)
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	state := filepath.Join(dir, DirName)
	if err := os.MkdirAll(state, 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(state, "config.yaml"), []byte("ledger_path: [broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatal("expected error for malformed config")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	home := filepath.Join(dir, "elsewhere")
	t.Setenv(EnvHome, home)
	t.Setenv(EnvKeyDir, "/mnt/usb/keys")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Dir() != home {
		t.Errorf("Dir() = %q, want %q", cfg.Dir(), home)
	}
	if cfg.IdentityDir() != "/mnt/usb/keys" {
		t.Errorf("IdentityDir() = %q, want env override", cfg.IdentityDir())
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	cfg.LedgerPath = "custom.db"
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	reloaded, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := reloaded.LedgerFile(), filepath.Join(dir, DirName, "custom.db"); got != want {
		t.Errorf("LedgerFile() after reload = %q, want %q", got, want)
	}
}
