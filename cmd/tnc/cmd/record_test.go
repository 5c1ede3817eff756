package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Fran-cois/TrustNoCorpo/internal/config"
	"github.com/Fran-cois/TrustNoCorpo/pkg/identity"
	"github.com/Fran-cois/TrustNoCorpo/pkg/ledger"
	"github.com/Fran-cois/TrustNoCorpo/pkg/provenance"
)

// setupRecordProject points the package globals at a throwaway project
// with a created identity, restoring them afterwards.
func setupRecordProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.EnvHome, "")
	t.Setenv(config.EnvKeyDir, "")
	t.Setenv(envMasterPassword, "correct horse battery")

	oldCfg := projectCfg
	t.Cleanup(func() { projectCfg = oldCfg })
	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	projectCfg = cfg

	if _, err := identity.NewStore(cfg.IdentityDir()).Create("tester", "correct horse battery", false); err != nil {
		t.Fatalf("failed to create identity: %v", err)
	}
	return dir
}

func composeTestPDF(t *testing.T, path string) []byte {
	t.Helper()
	doc, err := provenance.Compose([]string{"quarterly numbers"}, provenance.ComposeOptions{Title: "Report"})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, doc, 0o600); err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestRecord_StampsFileAndLogsBuild(t *testing.T) {
	dir := setupRecordProject(t)
	pdfPath := filepath.Join(dir, "report.pdf")
	original := composeTestPDF(t, pdfPath)

	if err := recordCmd.Flags().Set("token", "alice@corp"); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { recordCmd.Flags().Set("token", "") })

	if err := runRecord(recordCmd, []string{pdfPath}); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	stamped, err := os.ReadFile(pdfPath)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(stamped, original) {
		t.Fatal("file should have been rewritten with the stamp")
	}
	report, err := provenance.ExtractTokens(stamped)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := report.Tokens["alice@corp"]; !ok {
		t.Error("embedded token missing from the rewritten file")
	}

	l, err := openLedger()
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	sum, err := l.FindByToken("alice@corp")
	if err != nil {
		t.Fatalf("build not found in ledger: %v", err)
	}
	if sum.PDFPath != pdfPath {
		t.Errorf("ledger entry names %s, want %s", sum.PDFPath, pdfPath)
	}
}

// A ledger failure must surface before the input file is touched, so
// the original bytes survive and the build is never sealed unlogged.
func TestRecord_LedgerFailureLeavesInputUntouched(t *testing.T) {
	dir := setupRecordProject(t)

	// Bind the ledger to a key, then lose the key file so the next
	// open fails its key check.
	l, err := ledger.Open(projectCfg.LedgerFile(), projectCfg.LedgerKeyFile())
	if err != nil {
		t.Fatal(err)
	}
	l.Close()
	if err := os.Remove(projectCfg.LedgerKeyFile()); err != nil {
		t.Fatal(err)
	}

	pdfPath := filepath.Join(dir, "report.pdf")
	original := composeTestPDF(t, pdfPath)

	if err := recordCmd.Flags().Set("protect", "true"); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { recordCmd.Flags().Set("protect", "false") })

	err = runRecord(recordCmd, []string{pdfPath})
	if !errors.Is(err, ledger.ErrKeyFileMismatch) {
		t.Fatalf("expected ErrKeyFileMismatch, got %v", err)
	}

	got, err := os.ReadFile(pdfPath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, original) {
		t.Error("a failed record must leave the input file byte-identical")
	}
	if _, err := os.Stat(pdfPath + ".tmp"); !os.IsNotExist(err) {
		t.Error("no temporary file should remain after a failed record")
	}
}
