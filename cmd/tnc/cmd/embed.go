package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Fran-cois/TrustNoCorpo/pkg/provenance"
)

func init() {
	rootCmd.AddCommand(embedTokenCmd)

	embedTokenCmd.Flags().String("placement", string(provenance.PlacementBottomLeft), "Token placement: bottom-left, bottom-right, top-left, top-right")
	embedTokenCmd.Flags().String("out", "", "Output path (default: rewrite in place)")
}

var embedTokenCmd = &cobra.Command{
	Use:   "embed-token <file.pdf> <token>",
	Short: "Embed an invisible recipient token into a PDF",
	Long: `Embed a recipient token into an existing PDF.

The token lands on two channels: an invisible 1pt white text run on
page 1 and entries in the document information dictionary. The file is
extended with an incremental update; existing bytes are untouched.

Examples:
  tnc embed-token handout.pdf alice@corp
  tnc embed-token handout.pdf bob --placement top-right --out handout-bob.pdf`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, token := args[0], args[1]
		outPath, _ := cmd.Flags().GetString("out")
		if outPath == "" {
			outPath = path
		}
		placement, err := parsePlacement(cmd)
		if err != nil {
			return err
		}

		in, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		out, err := provenance.EmbedToken(in, token, placement)
		if err != nil {
			return err
		}
		if err := os.WriteFile(outPath, out, 0o600); err != nil {
			return fmt.Errorf("write %s: %w", outPath, err)
		}

		if outputFormat != "table" {
			return formatOutput(map[string]any{
				"path":      outPath,
				"token":     token,
				"placement": string(placement),
			})
		}
		fmt.Println(okFmt(fmt.Sprintf("Token %s embedded into %s", token, outPath)))
		return nil
	},
}
