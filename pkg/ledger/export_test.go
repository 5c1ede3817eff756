package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"
)

func TestExportAll_EmptyLedger(t *testing.T) {
	l := setupTestLedger(t)
	dir := t.TempDir()

	res, err := l.ExportAll(dir)
	if err != nil {
		t.Fatalf("ExportAll failed on empty ledger: %v", err)
	}
	if res.Entries != 0 || res.Skipped != 0 {
		t.Errorf("expected 0 entries and 0 skipped, got %+v", res)
	}

	raw, err := os.ReadFile(res.BundlePath)
	if err != nil {
		t.Fatalf("bundle not written: %v", err)
	}
	var entries []ExportEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		t.Fatalf("bundle is not valid JSON: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty collection, got %d entries", len(entries))
	}

	sum := sha256.Sum256(raw)
	wantLine := fmt.Sprintf("sha256 %s  builds.json\n", hex.EncodeToString(sum[:]))
	checksum, err := os.ReadFile(res.ChecksumPath)
	if err != nil {
		t.Fatalf("checksum not written: %v", err)
	}
	if string(checksum) != wantLine {
		t.Errorf("checksum file mismatch:\n got %q\nwant %q", checksum, wantLine)
	}
}

func TestExportAll_DecryptsEveryRow(t *testing.T) {
	l := setupTestLedger(t)

	if _, err := l.Insert("e100000000000001", testMeta("SECRET", "alice"), "fp1"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(2 * time.Millisecond)
	if _, err := l.Insert("e200000000000002", testMeta("PUBLIC", ""), "fp1"); err != nil {
		t.Fatal(err)
	}

	res, err := l.ExportAll(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if res.Entries != 2 {
		t.Fatalf("expected 2 entries, got %d", res.Entries)
	}

	raw, _ := os.ReadFile(res.BundlePath)
	var entries []ExportEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		t.Fatal(err)
	}
	if entries[0].BuildID != "e200000000000002" {
		t.Errorf("bundle should be newest first, got %s", entries[0].BuildID)
	}
	if entries[1].RecipientToken != "alice" || entries[1].Classification != "SECRET" {
		t.Errorf("decrypted metadata missing from bundle: %+v", entries[1])
	}
}

func TestExportAll_SkipsCorruptedRows(t *testing.T) {
	l := setupTestLedger(t)

	if _, err := l.Insert("e300000000000001", testMeta("SECRET", ""), "fp1"); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Insert("e300000000000002", testMeta("SECRET", ""), "fp1"); err != nil {
		t.Fatal(err)
	}
	corruptCiphertext(t, l, "e300000000000001")

	res, err := l.ExportAll(t.TempDir())
	if err != nil {
		t.Fatalf("ExportAll should not fail on corrupted rows: %v", err)
	}
	if res.Entries != 1 || res.Skipped != 1 {
		t.Errorf("expected 1 entry and 1 skipped, got %+v", res)
	}
}
