// Package main is the entry point for the formulary CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/formulary/cli/internal/cmd"
	oerrors "github.com/formulary/cli/internal/errors"
)

func main() {
	rootCmd := cmd.NewRootCmd()

	if err := rootCmd.Execute(); err != nil {
		// Cancellation is not a failure: exit cleanly with no message.
		if errors.Is(err, oerrors.ErrCancelled) {
			os.Exit(oerrors.ExitSuccess)
		}

		var exitErr *oerrors.ExitError
		if errors.As(err, &exitErr) {
			// Only print if the command layer hasn't already printed it
			if !exitErr.Printed {
				fmt.Fprintln(os.Stderr, err)
			}
			os.Exit(exitErr.Code)
		}

		fmt.Fprintln(os.Stderr, err)
		os.Exit(oerrors.ExitCodeFromError(err))
	}
}
