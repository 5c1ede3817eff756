package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysInfoCmd)
	keysCmd.AddCommand(keysRegenerateCmd)
	keysCmd.AddCommand(keysResetCmd)
	keysCmd.AddCommand(keysExportMnemonicCmd)
	keysCmd.AddCommand(keysImportMnemonicCmd)

	keysRegenerateCmd.Flags().String("username", "", "Identity username (default: keep current)")
	keysRegenerateCmd.Flags().String("master-password", "", "Master password (env: "+envMasterPassword+")")

	keysResetCmd.Flags().Bool("yes", false, "Skip the confirmation prompt")

	keysExportMnemonicCmd.Flags().String("master-password", "", "Master password (env: "+envMasterPassword+")")

	keysImportMnemonicCmd.Flags().String("username", "", "Identity username (default: current OS user)")
	keysImportMnemonicCmd.Flags().String("master-password", "", "Master password for the restored identity (env: "+envMasterPassword+")")
	keysImportMnemonicCmd.Flags().String("mnemonic", "", "24-word recovery phrase (will prompt if not provided)")
	keysImportMnemonicCmd.Flags().Bool("force", false, "Replace an existing identity")
}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage the local identity key material",
}

var keysInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the public identity",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := identityStore().Info()
		if err != nil {
			return err
		}
		if outputFormat != "table" {
			return formatOutput(id)
		}
		fmt.Printf("Username:    %s\n", id.Username)
		fmt.Printf("Fingerprint: %s\n", id.Fingerprint)
		fmt.Printf("Created:     %s\n", id.CreatedAt.Format("2006-01-02 15:04:05 MST"))
		fmt.Printf("Key dir:     %s\n", identityStore().Dir())
		return nil
	},
}

var keysRegenerateCmd = &cobra.Command{
	Use:   "regenerate",
	Short: "Replace the identity with a freshly generated one",
	Long: `Generate a new identity seed, replacing the current one.

Builds already in the ledger keep the old fingerprint; passwords for
documents recorded under the old identity can no longer be re-derived.
Export the old recovery phrase first if you may still need them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		if username == "" {
			if id, err := identityStore().Info(); err == nil {
				username = id.Username
			}
		}
		if username == "" {
			username = os.Getenv("USER")
		}
		pw, err := masterPassword(cmd)
		if err != nil {
			return err
		}

		id, err := identityStore().Create(username, pw, true)
		if err != nil {
			return err
		}
		if outputFormat != "table" {
			return formatOutput(id)
		}
		fmt.Println(okFmt("Identity regenerated."))
		fmt.Printf("  Fingerprint: %s\n", id.Fingerprint)
		fmt.Println(warnFmt("Passwords derived under the previous identity are gone."))
		return nil
	},
}

var keysResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Irreversibly delete the identity key files",
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			fmt.Print("This deletes the identity key files permanently. Type 'yes' to continue: ")
			reader := bufio.NewReader(os.Stdin)
			answer, err := reader.ReadString('\n')
			if err != nil {
				return err
			}
			if strings.TrimSpace(answer) != "yes" {
				fmt.Println("Aborted.")
				return nil
			}
		}
		if err := identityStore().Reset(); err != nil {
			return err
		}
		fmt.Println(okFmt("Identity deleted."))
		return nil
	},
}

var keysExportMnemonicCmd = &cobra.Command{
	Use:   "export-mnemonic",
	Short: "Print the 24-word recovery phrase for the identity seed",
	Long: `Print the bip39 recovery phrase for the identity seed.

Anyone holding the phrase can rebuild the identity, including the
install secret behind every derived password. Write it down offline;
do not store it next to the protected documents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		pw, err := masterPassword(cmd)
		if err != nil {
			return err
		}
		mnemonic, err := identityStore().ExportMnemonic(pw)
		if err != nil {
			return err
		}
		if outputFormat != "table" {
			return formatOutput(map[string]string{"mnemonic": mnemonic})
		}
		fmt.Println(mnemonic)
		fmt.Fprintln(os.Stderr, dimFmt("Store this phrase offline. It reconstructs the full identity."))
		return nil
	},
}

var keysImportMnemonicCmd = &cobra.Command{
	Use:   "import-mnemonic",
	Short: "Restore the identity from a recovery phrase",
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		if username == "" {
			username = os.Getenv("USER")
		}
		force, _ := cmd.Flags().GetBool("force")
		pw, err := masterPassword(cmd)
		if err != nil {
			return err
		}

		mnemonic, _ := cmd.Flags().GetString("mnemonic")
		if mnemonic == "" {
			fmt.Print("Enter recovery phrase: ")
			reader := bufio.NewReader(os.Stdin)
			line, err := reader.ReadString('\n')
			if err != nil {
				return err
			}
			mnemonic = strings.TrimSpace(line)
		}

		id, err := identityStore().CreateFromMnemonic(username, pw, mnemonic, force)
		if err != nil {
			return err
		}
		if outputFormat != "table" {
			return formatOutput(id)
		}
		fmt.Println(okFmt("Identity restored."))
		fmt.Printf("  Fingerprint: %s\n", id.Fingerprint)
		return nil
	},
}
