// Package config loads the per-project tnc configuration.
//
// A project keeps its provenance state under a .tnc directory next to
// the documents it tracks: the encrypted ledger, the ledger key file,
// and the identity key pair. config.yaml inside that directory can
// relocate any of them; environment variables override the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DirName is the project state directory.
const DirName = ".tnc"

const fileName = "config.yaml"

// Environment overrides. TNC_HOME moves the whole state directory;
// TNC_KEY_DIR moves only the identity keys (e.g. onto removable media).
const (
	EnvHome   = "TNC_HOME"
	EnvKeyDir = "TNC_KEY_DIR"
)

// Config locates the project state. Relative paths are resolved
// against the state directory.
type Config struct {
	LedgerPath    string `yaml:"ledger_path,omitempty"`
	LedgerKeyPath string `yaml:"ledger_key_path,omitempty"`
	KeyDir        string `yaml:"key_dir,omitempty"`

	dir string
}

// Load reads the configuration for the project rooted at projectDir.
// A missing config file yields the defaults; a malformed one is an
// error rather than a silent fallback.
func Load(projectDir string) (*Config, error) {
	dir := filepath.Join(projectDir, DirName)
	if home := os.Getenv(EnvHome); home != "" {
		dir = home
	}

	cfg := &Config{dir: dir}
	data, err := os.ReadFile(filepath.Join(dir, fileName))
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Defaults apply.
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", fileName, err)
		}
	}

	if kd := os.Getenv(EnvKeyDir); kd != "" {
		cfg.KeyDir = kd
	}
	return cfg, nil
}

// Dir returns the project state directory.
func (c *Config) Dir() string {
	return c.dir
}

// LedgerFile returns the ledger database path.
func (c *Config) LedgerFile() string {
	return c.resolve(c.LedgerPath, "ledger.db")
}

// LedgerKeyFile returns the ledger encryption key path.
func (c *Config) LedgerKeyFile() string {
	return c.resolve(c.LedgerKeyPath, "ledger.key")
}

// IdentityDir returns the directory holding the identity key files.
func (c *Config) IdentityDir() string {
	if c.KeyDir == "" {
		return filepath.Join(c.dir, "keys")
	}
	if filepath.IsAbs(c.KeyDir) {
		return c.KeyDir
	}
	return filepath.Join(c.dir, c.KeyDir)
}

// Save writes the configuration file, creating the state directory if
// needed.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.dir, 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.dir, fileName), data, 0o644)
}

func (c *Config) resolve(configured, fallback string) string {
	if configured == "" {
		return filepath.Join(c.dir, fallback)
	}
	if filepath.IsAbs(configured) {
		return configured
	}
	return filepath.Join(c.dir, configured)
}
