package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Fran-cois/TrustNoCorpo/pkg/identity"
)

func init() {
	rootCmd.AddCommand(infoCmd)
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show project status: identity, ledger location, build counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := identityStore().Info()
		if err != nil && !errors.Is(err, identity.ErrNotInitialized) {
			return err
		}

		l, lerr := openLedger()
		userBuilds, totalBuilds := 0, 0
		if lerr == nil {
			defer l.Close()
			fingerprint := ""
			if id != nil {
				fingerprint = id.Fingerprint
			}
			if userBuilds, totalBuilds, err = l.Stats(fingerprint); err != nil {
				return err
			}
		}

		if outputFormat != "table" {
			out := map[string]any{
				"state_dir":    projectCfg.Dir(),
				"ledger":       projectCfg.LedgerFile(),
				"total_builds": totalBuilds,
			}
			if id != nil {
				out["username"] = id.Username
				out["fingerprint"] = id.Fingerprint
				out["user_builds"] = userBuilds
			}
			return formatOutput(out)
		}

		fmt.Printf("State dir: %s\n", projectCfg.Dir())
		if id == nil {
			fmt.Println(warnFmt("No identity configured. Run 'tnc init'."))
		} else {
			fmt.Printf("Identity:  %s (%s)\n", id.Username, id.Fingerprint)
		}
		if lerr != nil {
			return lerr
		}
		fmt.Printf("Ledger:    %s\n", projectCfg.LedgerFile())
		fmt.Printf("Builds:    %d total", totalBuilds)
		if id != nil {
			fmt.Printf(", %d by this identity", userBuilds)
		}
		fmt.Println()
		return nil
	},
}
