// Package tui provides the interactive prompts: a list picker, a yes/no
// confirmation and a single-line input.
package tui

import (
	"errors"
	"os"

	"caswitch/config/models"
)

// ErrNotTerminal is returned when a prompt is needed but stdin or stdout is
// not a terminal
var ErrNotTerminal = errors.New("interactive input requires a terminal; pass the value as an argument or flag")

// ErrCancelled is returned when the user backs out of a prompt
var ErrCancelled = models.ErrCancelled

// IsInteractive reports whether both stdin and stdout are terminals
func IsInteractive() bool {
	return isTerminal(os.Stdin.Fd()) && isTerminal(os.Stdout.Fd())
}
