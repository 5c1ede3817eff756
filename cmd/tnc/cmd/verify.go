package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(verifyCmd)
}

var verifyCmd = &cobra.Command{
	Use:   "verify <build-id>",
	Short: "Check one ledger entry's authenticity tag and decrypt it",
	Long: `Verify a ledger entry.

The authenticity tag is recomputed over the stored row and the
ciphertext is decrypted. A mismatch means the row was edited after it
was written; nothing is repaired automatically.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		buildID := args[0]

		l, err := openLedger()
		if err != nil {
			return err
		}
		defer l.Close()

		summary, err := l.Verify(buildID)
		if err != nil {
			return err
		}

		if outputFormat != "table" {
			return formatOutput(summary)
		}

		fmt.Println(okFmt("Entry verified: tag and ciphertext check out."))
		fmt.Printf("  Build ID:       %s\n", summary.BuildID)
		fmt.Printf("  Classification: %s\n", summary.Classification)
		fmt.Printf("  PDF:            %s (%d bytes)\n", summary.PDFPath, summary.PDFSize)
		if summary.RecipientToken != "" {
			fmt.Printf("  Token:          %s\n", summary.RecipientToken)
		}
		fmt.Printf("  Owner:          %s\n", summary.OwnerFingerprint)
		fmt.Printf("  Stored:         %s\n", summary.StoredAt.Format(time.RFC3339))
		return nil
	},
}
