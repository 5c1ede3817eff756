package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().IntP("limit", "n", 10, "Maximum number of entries to show")
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded builds, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		l, err := openLedger()
		if err != nil {
			return err
		}
		defer l.Close()

		entries, skipped, err := l.List(limit)
		if err != nil {
			return err
		}

		if outputFormat != "table" {
			if len(entries) == 0 {
				fmt.Println("[]")
				return nil
			}
			return formatOutput(entries)
		}

		if len(entries) == 0 {
			fmt.Println("No builds recorded. Use 'tnc record' to log one.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "BUILD ID\tCLASS\tPDF\tTOKEN\tPROTECTED\tSTORED")
		for _, e := range entries {
			token := e.RecipientToken
			if token == "" {
				token = "-"
			}
			protected := "no"
			if e.Protected {
				protected = "yes"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				e.BuildID, e.Classification, e.PDFPath, token, protected,
				e.StoredAt.Format(time.RFC3339))
		}
		w.Flush()
		if skipped > 0 {
			fmt.Println(warnFmt(fmt.Sprintf("%d corrupted record(s) skipped; run 'tnc verify' per build for details", skipped)))
		}
		return nil
	},
}
