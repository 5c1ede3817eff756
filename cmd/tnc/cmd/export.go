package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Fran-cois/TrustNoCorpo/pkg/evidence"
)

func init() {
	rootCmd.AddCommand(exportLogCmd)

	exportLogCmd.Flags().StringP("dir", "d", "tnc-export", "Directory to write the evidence bundle into")
	exportLogCmd.Flags().Bool("sign", false, "Write a detached JWS signature over the bundle")
	exportLogCmd.Flags().String("master-password", "", "Master password, needed with --sign (env: "+envMasterPassword+")")
}

var exportLogCmd = &cobra.Command{
	Use:   "export-log",
	Short: "Export the decrypted ledger as an evidence bundle",
	Long: `Export every verifiable ledger entry to plaintext JSON.

This is the one deliberate declassification step: builds.json plus a
sha256 checksum file land in the export directory. With --sign, a
detached JWS signature under the identity key is written alongside, so
a recipient can verify both integrity and origin.

Examples:
  tnc export-log --dir audit-2026q3
  tnc export-log --dir audit-2026q3 --sign`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		sign, _ := cmd.Flags().GetBool("sign")

		l, err := openLedger()
		if err != nil {
			return err
		}
		defer l.Close()

		result, err := l.ExportAll(dir)
		if err != nil {
			return err
		}

		sigPath := ""
		if sign {
			pw, err := masterPassword(cmd)
			if err != nil {
				return err
			}
			keys, err := identityStore().Unlock(pw)
			if err != nil {
				return err
			}
			sigPath, err = evidence.SignFile(result.BundlePath, keys.SigningPrivateKey)
			if err != nil {
				return err
			}
		}

		if outputFormat != "table" {
			out := map[string]any{
				"bundle":   result.BundlePath,
				"checksum": result.ChecksumPath,
				"sha256":   result.SHA256,
				"entries":  result.Entries,
				"skipped":  result.Skipped,
			}
			if sigPath != "" {
				out["signature"] = sigPath
			}
			return formatOutput(out)
		}

		fmt.Println(okFmt(fmt.Sprintf("Exported %d entr(ies) to %s", result.Entries, result.BundlePath)))
		fmt.Printf("  Checksum:  %s\n", result.ChecksumPath)
		fmt.Printf("  SHA-256:   %s\n", result.SHA256)
		if sigPath != "" {
			fmt.Printf("  Signature: %s\n", sigPath)
		}
		if result.Skipped > 0 {
			fmt.Println(warnFmt(fmt.Sprintf("%d corrupted record(s) were skipped", result.Skipped)))
		}
		fmt.Println(dimFmt("The bundle contains decrypted metadata. Handle accordingly."))
		return nil
	},
}
