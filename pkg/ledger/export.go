package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	bundleFileName   = "builds.json"
	checksumFileName = "builds.json.sha256"
)

// ExportEntry is one decrypted record in the evidence bundle.
type ExportEntry struct {
	BuildID          string `json:"build_id"`
	OwnerFingerprint string `json:"owner_fingerprint"`
	StoredAt         string `json:"stored_at"`
	BuildMetadata
}

// ExportResult describes what ExportAll produced.
type ExportResult struct {
	BundlePath   string `json:"bundle_path"`
	ChecksumPath string `json:"checksum_path"`
	SHA256       string `json:"sha256"`
	Entries      int    `json:"entries"`
	Skipped      int    `json:"skipped"`
}

// ExportAll decrypts every row and writes the evidence bundle: a
// plaintext builds.json (newest first) and a companion checksum file in
// "sha256 <hex-digest>  builds.json" form. This is the one deliberate
// declassification step in the system; after it runs, plaintext
// metadata exists on disk at dir. Corrupted rows are skipped and
// counted. An empty ledger produces a valid empty bundle.
func (l *Ledger) ExportAll(dir string) (*ExportResult, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create export directory %s: %w", dir, err)
	}

	rows, err := l.db.Query(`
		SELECT build_id, ciphertext, owner_fingerprint, auth_tag, stored_at
		FROM builds ORDER BY stored_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []ExportEntry{}
	skipped := 0
	for rows.Next() {
		var buildID, ctB64, owner, tag, storedAt string
		if err := rows.Scan(&buildID, &ctB64, &owner, &tag, &storedAt); err != nil {
			return nil, err
		}
		if computeTag(buildID, ctB64) != tag {
			l.logger.Warn("export skipping record with tag mismatch", "build_id", buildID)
			skipped++
			continue
		}
		meta, derr := l.decryptRow(ctB64)
		if derr != nil {
			l.logger.Warn("export skipping undecryptable record", "build_id", buildID)
			skipped++
			continue
		}
		entries = append(entries, ExportEntry{
			BuildID:          buildID,
			OwnerFingerprint: owner,
			StoredAt:         storedAt,
			BuildMetadata:    *meta,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, err
	}
	raw = append(raw, '\n')

	bundlePath := filepath.Join(dir, bundleFileName)
	if err := os.WriteFile(bundlePath, raw, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write bundle %s: %w", bundlePath, err)
	}

	sum := sha256.Sum256(raw)
	digest := hex.EncodeToString(sum[:])
	checksumPath := filepath.Join(dir, checksumFileName)
	line := fmt.Sprintf("sha256 %s  %s\n", digest, bundleFileName)
	if err := os.WriteFile(checksumPath, []byte(line), 0o600); err != nil {
		return nil, fmt.Errorf("failed to write checksum %s: %w", checksumPath, err)
	}

	l.logger.Info("evidence bundle exported",
		"bundle", bundlePath,
		"entries", len(entries),
		"skipped", skipped)
	return &ExportResult{
		BundlePath:   bundlePath,
		ChecksumPath: checksumPath,
		SHA256:       digest,
		Entries:      len(entries),
		Skipped:      skipped,
	}, nil
}
