package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Fran-cois/TrustNoCorpo/pkg/provenance"
)

func init() {
	rootCmd.AddCommand(passwordCmd)
	passwordCmd.Flags().String("master-password", "", "Master password (env: "+envMasterPassword+")")
}

var passwordCmd = &cobra.Command{
	Use:   "password <build-id> <classification>",
	Short: "Re-derive the password for a recorded build",
	Long: `Re-derive a build's password from the install secret.

The password is deterministic: the same build identifier and
classification always produce it, which is why it is never stored in
the ledger. The classification must match the one the build was
recorded under exactly.

Examples:
  tnc password 4f2a91c08be3d657 SECRET`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		buildID, classification := args[0], args[1]

		pw, err := masterPassword(cmd)
		if err != nil {
			return err
		}
		secret, err := identityStore().InstallSecret(pw)
		if err != nil {
			return err
		}
		derived, err := provenance.DerivePassword(buildID, classification, secret)
		if err != nil {
			return err
		}

		if outputFormat != "table" {
			return formatOutput(map[string]string{
				"build_id": buildID,
				"password": derived,
			})
		}
		fmt.Println(derived)
		return nil
	},
}
