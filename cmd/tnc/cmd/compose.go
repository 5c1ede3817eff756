package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Fran-cois/TrustNoCorpo/pkg/provenance"
)

func init() {
	rootCmd.AddCommand(composeCmd)

	composeCmd.Flags().String("out", "", "Output PDF path (required)")
	composeCmd.Flags().String("title", "", "Document title line")
	composeCmd.Flags().String("watermark", "", "Diagonal watermark text")
	composeCmd.Flags().StringP("token", "t", "", "Recipient token to embed invisibly")
	composeCmd.Flags().String("placement", string(provenance.PlacementBottomLeft), "Token placement: bottom-left, bottom-right, top-left, top-right")
	composeCmd.Flags().String("owner", "", "Owner info field")
	composeCmd.Flags().String("purpose", "", "Purpose info field")
	composeCmd.Flags().String("nudge", "", "Handling note info field")
	composeCmd.MarkFlagRequired("out")
}

var composeCmd = &cobra.Command{
	Use:   "compose <text-file>",
	Short: "Render a plain text file into a single-page provenance PDF",
	Long: `Render plain text into a minimal PDF.

Useful for handouts that exist only to be distributed and traced: the
output carries a watermark, the owner/purpose custom info fields, and
optionally an invisible recipient token. Pass '-' to read from stdin.

Examples:
  tnc compose notes.txt --out notes.pdf --title "Q3 Notes"
  tnc compose notes.txt --out notes.pdf --watermark CONFIDENTIAL -t alice@corp
  echo "do not forward" | tnc compose - --out nudge.pdf --owner ops`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outPath, _ := cmd.Flags().GetString("out")
		title, _ := cmd.Flags().GetString("title")
		watermark, _ := cmd.Flags().GetString("watermark")
		token, _ := cmd.Flags().GetString("token")
		owner, _ := cmd.Flags().GetString("owner")
		purpose, _ := cmd.Flags().GetString("purpose")
		nudge, _ := cmd.Flags().GetString("nudge")
		placement, err := parsePlacement(cmd)
		if err != nil {
			return err
		}

		var text []byte
		if args[0] == "-" {
			text, err = io.ReadAll(os.Stdin)
		} else {
			text, err = os.ReadFile(args[0])
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		lines := strings.Split(strings.TrimRight(string(text), "\n"), "\n")

		pdf, err := provenance.Compose(lines, provenance.ComposeOptions{
			Title:     title,
			Watermark: watermark,
			Token:     token,
			Placement: placement,
			Info: provenance.DocumentInfo{
				Owner:   owner,
				Purpose: purpose,
				Nudge:   nudge,
			},
		})
		if err != nil {
			return err
		}
		if err := os.WriteFile(outPath, pdf, 0o600); err != nil {
			return fmt.Errorf("write %s: %w", outPath, err)
		}

		if outputFormat != "table" {
			return formatOutput(map[string]any{
				"path":  outPath,
				"bytes": len(pdf),
				"token": token,
			})
		}
		fmt.Println(okFmt(fmt.Sprintf("Composed %s (%d bytes)", outPath, len(pdf))))
		return nil
	},
}
