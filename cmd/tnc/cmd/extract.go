package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Fran-cois/TrustNoCorpo/pkg/provenance"
)

func init() {
	rootCmd.AddCommand(extractCmd)
}

var extractCmd = &cobra.Command{
	Use:   "extract <file.pdf>",
	Short: "Extract embedded recipient tokens from a PDF",
	Long: `Scan a PDF for embedded recipient tokens.

Both channels are scanned: page content streams (including FlateDecode
compressed ones) and the document information dictionary. The channel
column tells how resilient the hit is; a token surviving only in
metadata suggests the text layer was stripped or rasterized.

Protected containers must be unprotected first.`,
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

		if outputFormat != "table" {
			return formatOutput(report)
		}

		if len(report.Tokens) == 0 {
			fmt.Println("No embedded tokens found.")
		} else {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TOKEN\tCHANNELS")
			for _, token := range report.TokenSet() {
				fmt.Fprintf(w, "%s\t%s\n", token, strings.Join(report.Tokens[token], ","))
			}
			w.Flush()
		}

		if len(report.Info) > 0 {
			fmt.Println()
			fmt.Println("Document info:")
			keys := make([]string, 0, len(report.Info))
			for k := range report.Info {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Printf("  %-12s %s\n", k+":", report.Info[k])
			}
		}
		return nil
	},
}
