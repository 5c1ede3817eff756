package ledger

import (
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound indicates no record exists for the lookup.
	ErrNotFound = errors.New("build record not found")
	// ErrTagMismatch indicates the stored authenticity tag does not
	// match the stored row. The row is reported, never repaired.
	ErrTagMismatch = errors.New("authenticity tag mismatch")
	// ErrDecryptFailed indicates the record ciphertext cannot be opened
	// with the ledger key.
	ErrDecryptFailed = errors.New("record decryption failed")
	// ErrKeyFileMismatch indicates the database carries encrypted data
	// but the key file is missing or belongs to a different ledger.
	ErrKeyFileMismatch = errors.New("ledger key file mismatch")
)

// keyCheckPlaintext is the sentinel encrypted at creation time; opening
// with a foreign key fails to decrypt it and refuses the ledger before
// any row is touched.
const keyCheckPlaintext = "tnc-ledger-key-check-v1"

// storedAtFormat is fixed width, unlike RFC3339Nano which trims
// trailing fractional zeros. ORDER BY on the stored_at text column
// compares lexicographically, so every timestamp must render at the
// same width for that order to be chronological within a second.
const storedAtFormat = "2006-01-02T15:04:05.000000000Z07:00"

// BuildMetadata is the plaintext object inside each record's
// ciphertext. The full derived password is never stored, only a
// truncated hint.
type BuildMetadata struct {
	Classification string    `json:"classification"`
	SourcePath     string    `json:"source_path"`
	PDFPath        string    `json:"pdf_path"`
	PDFSize        int64     `json:"pdf_size"`
	PasswordHint   string    `json:"password_hint,omitempty"`
	RecipientToken string    `json:"recipient_token,omitempty"`
	User           string    `json:"user"`
	CreatedAt      time.Time `json:"created_at"`
	Protected      bool      `json:"protected"`
}

// Summary is the decrypted view of a record returned by lookups.
type Summary struct {
	BuildID          string    `json:"build_id"`
	Classification   string    `json:"classification"`
	SourcePath       string    `json:"source_path"`
	PDFPath          string    `json:"pdf_path"`
	PDFSize          int64     `json:"pdf_size"`
	RecipientToken   string    `json:"recipient_token,omitempty"`
	OwnerFingerprint string    `json:"owner_fingerprint"`
	Protected        bool      `json:"protected"`
	StoredAt         time.Time `json:"stored_at"`
}

// PasswordHint truncates a password for storage. The hint is what gets
// logged; the password itself is reproducible from the build identifier
// and never persisted.
func PasswordHint(password string) string {
	if password == "" {
		return ""
	}
	if len(password) <= 8 {
		return password[:len(password)/2] + "..."
	}
	return password[:8] + "..."
}

// Ledger is an encrypted, signed, append-only record store over SQLite.
// Replace-on-conflict semantics apply per build identifier: a second
// insert for the same identifier supersedes the prior row.
type Ledger struct {
	db      *sql.DB
	key     []byte
	dbPath  string
	keyPath string
	logger  *slog.Logger
}

// Open opens or creates the ledger database and its key file. It is
// idempotent. A database that already carries encrypted data is refused
// with ErrKeyFileMismatch when the key file is missing or foreign,
// since its rows would be permanently undecipherable.
func Open(dbPath, keyPath string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", dbPath, err)
	}

	// WAL mode allows readers to see committed changes immediately
	// without blocking writers, so a fan-out loop can insert while an
	// audit listing runs. The busy timeout absorbs short write
	// contention instead of returning SQLITE_BUSY.
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	l := &Ledger{db: db, dbPath: dbPath, keyPath: keyPath, logger: slog.Default()}
	if err := l.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	if err := l.bindKey(); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

// SetLogger replaces the logger used for per-row warnings.
func (l *Ledger) SetLogger(logger *slog.Logger) {
	if logger != nil {
		l.logger = logger
	}
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// KeyPath returns the path of the ledger's key file.
func (l *Ledger) KeyPath() string { return l.keyPath }

func (l *Ledger) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS ledger_meta (
		k TEXT PRIMARY KEY,
		v TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS builds (
		id TEXT PRIMARY KEY,
		build_id TEXT UNIQUE NOT NULL,
		ciphertext TEXT NOT NULL,
		owner_fingerprint TEXT NOT NULL,
		auth_tag TEXT NOT NULL,
		stored_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_builds_stored_at ON builds(stored_at);
	CREATE INDEX IF NOT EXISTS idx_builds_owner ON builds(owner_fingerprint);
	`
	_, err := l.db.Exec(schema)
	return err
}

// bindKey loads or creates the key file and checks it against the
// sentinel stored at ledger creation.
func (l *Ledger) bindKey() error {
	var checkB64 string
	err := l.db.QueryRow(`SELECT v FROM ledger_meta WHERE k = 'key_check'`).Scan(&checkB64)
	switch {
	case err == sql.ErrNoRows:
		// Fresh schema: create (or adopt) the key and bind it.
		key, created, kerr := loadOrGenerateKey(l.keyPath)
		if kerr != nil {
			return kerr
		}
		l.key = key
		if created {
			l.logger.Info("generated new ledger key", "key_path", l.keyPath)
		}
		ct, eerr := encrypt(l.key, []byte(keyCheckPlaintext))
		if eerr != nil {
			return eerr
		}
		_, err = l.db.Exec(`INSERT INTO ledger_meta (k, v) VALUES ('key_check', ?)`,
			base64.StdEncoding.EncodeToString(ct))
		return err
	case err != nil:
		return err
	}

	// Existing ledger: the key file must be present and must be the one
	// the sentinel was sealed with.
	key, kerr := loadKey(l.keyPath)
	if os.IsNotExist(kerr) {
		return fmt.Errorf("%w: database %s has encrypted data but key file %s is missing",
			ErrKeyFileMismatch, l.dbPath, l.keyPath)
	}
	if kerr != nil {
		return kerr
	}
	ct, derr := base64.StdEncoding.DecodeString(checkB64)
	if derr != nil {
		return fmt.Errorf("%w: corrupt key check value in %s", ErrKeyFileMismatch, l.dbPath)
	}
	plain, derr := decrypt(key, ct)
	if derr != nil || string(plain) != keyCheckPlaintext {
		return fmt.Errorf("%w: key file %s does not open ledger %s",
			ErrKeyFileMismatch, l.keyPath, l.dbPath)
	}
	l.key = key
	return nil
}

// Insert serializes and encrypts the metadata, computes the
// authenticity tag over the stored values, and upserts the row in a
// single transaction. A conflicting build identifier replaces the prior
// row; no partial write is ever observable.
func (l *Ledger) Insert(buildID string, meta *BuildMetadata, ownerFingerprint string) (string, error) {
	if buildID == "" {
		return "", errors.New("build identifier required")
	}
	if ownerFingerprint == "" {
		return "", errors.New("owner fingerprint required")
	}
	if meta == nil {
		return "", errors.New("build metadata required")
	}

	plaintext, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("failed to serialize metadata for build %s: %w", buildID, err)
	}
	ct, err := encrypt(l.key, plaintext)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt metadata for build %s: %w", buildID, err)
	}
	ctB64 := base64.StdEncoding.EncodeToString(ct)
	tag := computeTag(buildID, ctB64)
	recordID := uuid.NewString()
	storedAt := time.Now().UTC().Format(storedAtFormat)

	_, err = l.db.Exec(`
		INSERT INTO builds (id, build_id, ciphertext, owner_fingerprint, auth_tag, stored_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(build_id) DO UPDATE SET
			id = excluded.id,
			ciphertext = excluded.ciphertext,
			owner_fingerprint = excluded.owner_fingerprint,
			auth_tag = excluded.auth_tag,
			stored_at = excluded.stored_at`,
		recordID, buildID, ctB64, ownerFingerprint, tag, storedAt)
	if err != nil {
		return "", fmt.Errorf("failed to insert build %s: %w", buildID, err)
	}

	l.logger.Info("build logged",
		"build_id", buildID,
		"record_id", recordID,
		"owner_fingerprint", ownerFingerprint)
	return recordID, nil
}

// Verify recomputes the authenticity tag from the stored row and
// decrypts the ciphertext. Any mismatch is reported with the build
// identifier involved; nothing is auto-repaired.
func (l *Ledger) Verify(buildID string) (*Summary, error) {
	var ctB64, owner, tag, storedAt string
	err := l.db.QueryRow(`
		SELECT ciphertext, owner_fingerprint, auth_tag, stored_at
		FROM builds WHERE build_id = ?`, buildID).Scan(&ctB64, &owner, &tag, &storedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, buildID)
	}
	if err != nil {
		return nil, err
	}

	if computeTag(buildID, ctB64) != tag {
		return nil, fmt.Errorf("%w for build %s", ErrTagMismatch, buildID)
	}
	meta, err := l.decryptRow(ctB64)
	if err != nil {
		return nil, fmt.Errorf("%w for build %s: %v", ErrDecryptFailed, buildID, err)
	}
	return rowSummary(buildID, owner, storedAt, meta), nil
}

// List returns up to limit record summaries, newest first by storage
// timestamp. Rows whose tag or ciphertext fails to check out are
// skipped and counted, never fatal to the listing.
func (l *Ledger) List(limit int) ([]Summary, int, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := l.db.Query(`
		SELECT build_id, ciphertext, owner_fingerprint, auth_tag, stored_at
		FROM builds ORDER BY stored_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Summary
	skipped := 0
	for rows.Next() {
		var buildID, ctB64, owner, tag, storedAt string
		if err := rows.Scan(&buildID, &ctB64, &owner, &tag, &storedAt); err != nil {
			return nil, skipped, err
		}
		if computeTag(buildID, ctB64) != tag {
			l.logger.Warn("skipping record with tag mismatch", "build_id", buildID)
			skipped++
			continue
		}
		meta, derr := l.decryptRow(ctB64)
		if derr != nil {
			l.logger.Warn("skipping undecryptable record", "build_id", buildID)
			skipped++
			continue
		}
		out = append(out, *rowSummary(buildID, owner, storedAt, meta))
	}
	return out, skipped, rows.Err()
}

// FindByToken returns the most recent record whose metadata carries the
// given recipient token. The scan decrypts row by row, newest first;
// at local-ledger scale no index is warranted.
func (l *Ledger) FindByToken(token string) (*Summary, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrNotFound)
	}
	rows, err := l.db.Query(`
		SELECT build_id, ciphertext, owner_fingerprint, stored_at
		FROM builds ORDER BY stored_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var buildID, ctB64, owner, storedAt string
		if err := rows.Scan(&buildID, &ctB64, &owner, &storedAt); err != nil {
			return nil, err
		}
		meta, derr := l.decryptRow(ctB64)
		if derr != nil {
			l.logger.Warn("skipping undecryptable record", "build_id", buildID)
			continue
		}
		if meta.RecipientToken == token {
			return rowSummary(buildID, owner, storedAt, meta), nil
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: no record with token %q", ErrNotFound, token)
}

// Stats returns the number of builds owned by the given fingerprint and
// the total number of builds.
func (l *Ledger) Stats(fingerprint string) (userBuilds, totalBuilds int, err error) {
	if err = l.db.QueryRow(`SELECT COUNT(*) FROM builds WHERE owner_fingerprint = ?`,
		fingerprint).Scan(&userBuilds); err != nil {
		return 0, 0, err
	}
	if err = l.db.QueryRow(`SELECT COUNT(*) FROM builds`).Scan(&totalBuilds); err != nil {
		return 0, 0, err
	}
	return userBuilds, totalBuilds, nil
}

func (l *Ledger) decryptRow(ctB64 string) (*BuildMetadata, error) {
	ct, err := base64.StdEncoding.DecodeString(ctB64)
	if err != nil {
		return nil, err
	}
	plain, err := decrypt(l.key, ct)
	if err != nil {
		return nil, err
	}
	var meta BuildMetadata
	if err := json.Unmarshal(plain, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func rowSummary(buildID, owner, storedAt string, meta *BuildMetadata) *Summary {
	ts, err := time.Parse(time.RFC3339Nano, storedAt)
	if err != nil {
		ts = time.Time{}
	}
	return &Summary{
		BuildID:          buildID,
		Classification:   meta.Classification,
		SourcePath:       meta.SourcePath,
		PDFPath:          meta.PDFPath,
		PDFSize:          meta.PDFSize,
		RecipientToken:   meta.RecipientToken,
		OwnerFingerprint: owner,
		Protected:        meta.Protected,
		StoredAt:         ts,
	}
}
