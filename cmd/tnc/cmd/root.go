// Package cmd implements the tnc CLI commands.
package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Fran-cois/TrustNoCorpo/internal/config"
	"github.com/Fran-cois/TrustNoCorpo/internal/version"
	"github.com/Fran-cois/TrustNoCorpo/pkg/identity"
	"github.com/Fran-cois/TrustNoCorpo/pkg/ledger"
)

// envMasterPassword supplies the master password non-interactively,
// e.g. from a CI secret.
const envMasterPassword = "TNC_MASTER_PASSWORD"

var (
	// Global flags
	outputFormat string
	projectDir   string
	verbose      bool

	// Loaded by PersistentPreRunE for every command except help and
	// completion.
	projectCfg *config.Config
)

// Color formatters
var (
	okFmt   = color.New(color.FgGreen).SprintFunc()
	warnFmt = color.New(color.FgYellow).SprintFunc()
	dimFmt  = color.New(color.Faint).SprintFunc()
)

var rootCmd = &cobra.Command{
	Use:   "tnc",
	Short: "Cryptographic provenance for controlled PDF distribution",
	Long: `tnc tracks who a sensitive PDF was built for and proves it later.

Every build gets a deterministic password, an invisible per-recipient
token, and an encrypted entry in a local tamper-evident ledger. When a
copy leaks, 'tnc validate' reads the token back out of the file and
names the recipient it was issued to.`,
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "completion" || cmd.Name() == "help" {
			return nil
		}
		var err error
		projectCfg, err = config.Load(projectDir)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format: table, json, yaml")
	rootCmd.PersistentFlags().StringVar(&projectDir, "project", ".", "Project directory holding the .tnc state")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging to stderr")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// OutputFormat returns the selected output format for error rendering.
func OutputFormat() string {
	return outputFormat
}

// newLogger builds the structured logger handed to the ledger. Per-row
// warnings always surface; debug detail only with --verbose.
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func identityStore() *identity.Store {
	return identity.NewStore(projectCfg.IdentityDir())
}

func openLedger() (*ledger.Ledger, error) {
	l, err := ledger.Open(projectCfg.LedgerFile(), projectCfg.LedgerKeyFile())
	if err != nil {
		return nil, err
	}
	l.SetLogger(newLogger())
	return l, nil
}

// masterPassword resolves the master password from the command's
// --master-password flag or the environment. It never prompts; callers
// in scripts set the env var.
func masterPassword(cmd *cobra.Command) (string, error) {
	if cmd.Flags().Changed("master-password") {
		pw, _ := cmd.Flags().GetString("master-password")
		if pw != "" {
			return pw, nil
		}
	}
	if pw := os.Getenv(envMasterPassword); pw != "" {
		return pw, nil
	}
	return "", fmt.Errorf("master password required: pass --master-password or set %s", envMasterPassword)
}

// formatOutput handles output formatting based on the --output flag.
func formatOutput(data interface{}) error {
	switch outputFormat {
	case "json":
		return outputJSON(data)
	case "yaml":
		return outputYAML(data)
	default:
		// Table format is handled by each command
		return nil
	}
}

func outputJSON(data interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func outputYAML(data interface{}) error {
	out, err := yaml.Marshal(data)
	if err != nil {
		return err
	}
	fmt.Print(string(out))
	return nil
}
