package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Fran-cois/TrustNoCorpo/pkg/ledger"
	"github.com/Fran-cois/TrustNoCorpo/pkg/provenance"
)

func init() {
	rootCmd.AddCommand(validateCmd)
}

// tokenAttribution pairs an extracted token with its ledger record, if
// any.
type tokenAttribution struct {
	Token    string          `json:"token"`
	Channels []string        `json:"channels"`
	Record   *ledger.Summary `json:"record,omitempty"`
}

var validateCmd = &cobra.Command{
	Use:   "validate <file.pdf>",
	Short: "Trace a leaked PDF back to the recipient it was issued to",
	Long: `Validate a suspect PDF against the ledger.

Embedded tokens are extracted and each one is looked up in the ledger.
A match names the build, classification, and identity fingerprint the
copy was issued under.

Examples:
  tnc validate leaked-copy.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
		report, err := provenance.ExtractTokens(in)
		if err != nil {
			return err
		}

		l, err := openLedger()
		if err != nil {
			return err
		}
		defer l.Close()

		var results []tokenAttribution
		for _, token := range report.TokenSet() {
			attr := tokenAttribution{Token: token, Channels: report.Tokens[token]}
			summary, err := l.FindByToken(token)
			switch {
			case err == nil:
				attr.Record = summary
			case errors.Is(err, ledger.ErrNotFound):
				// Token present in the file but unknown to this ledger.
			default:
				return err
			}
			results = append(results, attr)
		}

		if outputFormat != "table" {
			if len(results) == 0 {
				fmt.Println("[]")
				return nil
			}
			return formatOutput(results)
		}

		if len(results) == 0 {
			fmt.Println("No embedded tokens found. This copy cannot be attributed.")
			return nil
		}
		for _, r := range results {
			if r.Record == nil {
				fmt.Println(warnFmt(fmt.Sprintf("Token %s found (%s) but no ledger record matches",
					r.Token, strings.Join(r.Channels, ","))))
				continue
			}
			fmt.Println(okFmt(fmt.Sprintf("Token %s attributed (channels: %s)", r.Token, strings.Join(r.Channels, ","))))
			fmt.Printf("  Build ID:       %s\n", r.Record.BuildID)
			fmt.Printf("  Classification: %s\n", r.Record.Classification)
			fmt.Printf("  Issued by:      %s\n", r.Record.OwnerFingerprint)
			fmt.Printf("  Recorded:       %s\n", r.Record.StoredAt.Format(time.RFC3339))
		}
		return nil
	},
}
