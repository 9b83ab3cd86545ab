package cli

import (
	"fmt"
	"io"

	"github.com/gapurov/simple-dotfiles/pkg/errors"
	"github.com/gapurov/simple-dotfiles/pkg/style"
)

// Exit codes
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// ExitCode maps the error returned by the root command to a process exit code
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.IsErrorCode(err, errors.ErrUsage):
		return ExitUsage
	default:
		return ExitFailure
	}
}

// PrintError reports err on w. Item failures were already listed in the
// run summary, so RUN_FAILED prints nothing.
func PrintError(w io.Writer, err error, styled bool) {
	if err == nil || errors.IsErrorCode(err, errors.ErrRunFailed) {
		return
	}

	msg := MsgErrorPrefix + err.Error()
	if styled {
		msg = style.ErrorStyle.Render(msg)
	}
	fmt.Fprintln(w, msg)

	if errors.IsErrorCode(err, errors.ErrUsage) {
		fmt.Fprintln(w, MsgUsageHint)
	}
}
