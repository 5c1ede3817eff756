package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Fran-cois/TrustNoCorpo/internal/buildid"
	"github.com/Fran-cois/TrustNoCorpo/pkg/ledger"
	"github.com/Fran-cois/TrustNoCorpo/pkg/provenance"
)

func init() {
	rootCmd.AddCommand(recordCmd)

	recordCmd.Flags().String("source", "", "Source document the PDF was rendered from (default: the PDF path)")
	recordCmd.Flags().StringP("classification", "c", "CONFIDENTIAL", "Classification label")
	recordCmd.Flags().StringP("token", "t", "", "Recipient token to embed invisibly")
	recordCmd.Flags().String("placement", string(provenance.PlacementBottomLeft), "Token placement: bottom-left, bottom-right, top-left, top-right")
	recordCmd.Flags().Bool("protect", false, "Seal the PDF under the derived password after embedding")
	recordCmd.Flags().String("master-password", "", "Master password (env: "+envMasterPassword+")")
}

var recordCmd = &cobra.Command{
	Use:   "record <file.pdf>",
	Short: "Stamp a rendered PDF and log the build in the ledger",
	Long: `Record a rendered PDF build.

The file is rewritten in place:
1. A build identifier is minted and written into the document info
2. The recipient token, if given, is embedded invisibly on page 1
3. With --protect, the file is sealed under the derived password

An encrypted ledger entry ties the build identifier to the
classification, recipient, and your identity fingerprint. The derived
password is never stored; re-derive it with 'tnc password'.

Examples:
  tnc record out/report.pdf --source report.tex -c SECRET
  tnc record out/report.pdf -t alice@corp --protect
  tnc record out/report.pdf -t bob --placement top-right`,
	Args: cobra.ExactArgs(1),
	RunE: runRecord,
}

func runRecord(cmd *cobra.Command, args []string) error {
	pdfPath := args[0]
	classification, _ := cmd.Flags().GetString("classification")
	token, _ := cmd.Flags().GetString("token")
	protect, _ := cmd.Flags().GetBool("protect")
	source, _ := cmd.Flags().GetString("source")
	if source == "" {
		source = pdfPath
	}
	placement, err := parsePlacement(cmd)
	if err != nil {
		return err
	}

	pw, err := masterPassword(cmd)
	if err != nil {
		return err
	}
	store := identityStore()
	id, err := store.Info()
	if err != nil {
		return err
	}
	secret, err := store.InstallSecret(pw)
	if err != nil {
		return err
	}

	doc, err := os.ReadFile(pdfPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", pdfPath, err)
	}

	now := time.Now().UTC()
	buildID := buildid.New(source, classification, now)
	password, err := provenance.DerivePassword(buildID, classification, secret)
	if err != nil {
		return err
	}

	doc, err = provenance.SetDocumentInfo(doc, provenance.DocumentInfo{
		Subject:  buildID,
		Keywords: classification,
	})
	if err != nil {
		return err
	}
	if token != "" {
		doc, err = provenance.EmbedToken(doc, token, placement)
		if err != nil {
			return err
		}
	}
	if protect {
		doc, err = provenance.Protect(doc, password)
		if err != nil {
			return err
		}
	}

	// The ledger entry lands before the original bytes are replaced,
	// so a ledger failure leaves the input file untouched. The rename
	// keeps the replacement atomic.
	l, err := openLedger()
	if err != nil {
		return err
	}
	defer l.Close()

	meta := &ledger.BuildMetadata{
		Classification: classification,
		SourcePath:     source,
		PDFPath:        pdfPath,
		PDFSize:        int64(len(doc)),
		PasswordHint:   ledger.PasswordHint(password),
		RecipientToken: token,
		User:           id.Username,
		CreatedAt:      now,
		Protected:      protect,
	}
	recordID, err := l.Insert(buildID, meta, id.Fingerprint)
	if err != nil {
		return err
	}

	tmpPath := pdfPath + ".tmp"
	if err := os.WriteFile(tmpPath, doc, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, pdfPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace %s: %w", pdfPath, err)
	}

	if outputFormat != "table" {
		return formatOutput(map[string]any{
			"build_id":      buildID,
			"record_id":     recordID,
			"classification": classification,
			"token":         token,
			"protected":     protect,
			"password_hint": meta.PasswordHint,
			"pdf_size":      meta.PDFSize,
		})
	}

	fmt.Println(okFmt("Build recorded."))
	fmt.Printf("  Build ID:       %s\n", buildID)
	fmt.Printf("  Classification: %s\n", classification)
	if token != "" {
		fmt.Printf("  Token:          %s\n", token)
	}
	if protect {
		fmt.Printf("  Protected:      yes (password hint %s)\n", meta.PasswordHint)
		fmt.Println(dimFmt("  Re-derive the password with 'tnc password " + buildID + " " + classification + "'"))
	}
	return nil
}

func parsePlacement(cmd *cobra.Command) (provenance.Placement, error) {
	raw, _ := cmd.Flags().GetString("placement")
	switch p := provenance.Placement(raw); p {
	case provenance.PlacementBottomLeft, provenance.PlacementBottomRight,
		provenance.PlacementTopLeft, provenance.PlacementTopRight:
		return p, nil
	default:
		return "", fmt.Errorf("invalid placement %q: use bottom-left, bottom-right, top-left, or top-right", raw)
	}
}
