package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(findTokenCmd)
}

var findTokenCmd = &cobra.Command{
	Use:   "find-token <token>",
	Short: "Find the most recent build issued with a recipient token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		token := args[0]

		l, err := openLedger()
		if err != nil {
			return err
		}
		defer l.Close()

		summary, err := l.FindByToken(token)
		if err != nil {
			return err
		}

		if outputFormat != "table" {
			return formatOutput(summary)
		}

		fmt.Printf("Token %s was issued with build %s\n", token, summary.BuildID)
		fmt.Printf("  Classification: %s\n", summary.Classification)
		fmt.Printf("  PDF:            %s\n", summary.PDFPath)
		fmt.Printf("  Owner:          %s\n", summary.OwnerFingerprint)
		fmt.Printf("  Stored:         %s\n", summary.StoredAt.Format(time.RFC3339))
		return nil
	},
}
