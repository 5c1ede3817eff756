package main

import (
	"os"

	"github.com/Fran-cois/TrustNoCorpo/cmd/tnc/cmd"
	"github.com/Fran-cois/TrustNoCorpo/pkg/clierror"
)

func main() {
	if err := cmd.Execute(); err != nil {
		cliErr := clierror.FromError(err)
		clierror.PrintError(cliErr, cmd.OutputFormat())
		os.Exit(cliErr.ExitCode)
	}
}
