package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().String("username", "", "Identity username (default: current OS user)")
	initCmd.Flags().String("master-password", "", "Master password protecting the identity seed (env: "+envMasterPassword+")")
	initCmd.Flags().Bool("force", false, "Replace an existing identity")
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the project: identity, ledger, and key files",
	Long: `Initialize provenance tracking for this project.

This command:
1. Creates the .tnc state directory and config file
2. Generates an ed25519 identity, seed sealed under the master password
3. Creates the encrypted ledger database and its key file

The identity fingerprint tags every ledger entry you create. Keep the
master password: the install secret behind password derivation cannot
be recovered without it (see 'tnc keys export-mnemonic' for a backup).

Examples:
  tnc init --username alice
  TNC_MASTER_PASSWORD=... tnc init
  tnc init --force                  # Replace existing identity`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	username, _ := cmd.Flags().GetString("username")
	if username == "" {
		username = os.Getenv("USER")
	}
	if username == "" {
		return fmt.Errorf("username required: pass --username")
	}
	force, _ := cmd.Flags().GetBool("force")

	pw, err := masterPassword(cmd)
	if err != nil {
		return err
	}

	if err := projectCfg.Save(); err != nil {
		return err
	}

	id, err := identityStore().Create(username, pw, force)
	if err != nil {
		return err
	}

	l, err := openLedger()
	if err != nil {
		return err
	}
	defer l.Close()

	if outputFormat != "table" {
		return formatOutput(map[string]any{
			"username":    id.Username,
			"fingerprint": id.Fingerprint,
			"state_dir":   projectCfg.Dir(),
			"ledger":      projectCfg.LedgerFile(),
		})
	}

	fmt.Println(okFmt("Project initialized."))
	fmt.Printf("  Identity:    %s (%s)\n", id.Username, id.Fingerprint)
	fmt.Printf("  State dir:   %s\n", projectCfg.Dir())
	fmt.Printf("  Ledger:      %s\n", projectCfg.LedgerFile())
	fmt.Printf("  Ledger key:  %s\n", l.KeyPath())
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  Back up your recovery phrase with 'tnc keys export-mnemonic'.")
	fmt.Println("  Record a build with 'tnc record <file.pdf>'.")
	return nil
}
