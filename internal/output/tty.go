package output

import (
	"os"

	"golang.org/x/term"
)

// IsTTY reports whether stdout is attached to a terminal.
// Spinners and interactive prompts are disabled when it is not.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// IsInputTTY reports whether stdin is attached to a terminal.
func IsInputTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
