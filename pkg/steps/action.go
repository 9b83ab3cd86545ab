// Package steps runs shell commands from the repository root.
//
// Every command runs in a fresh shell with errexit, nounset and pipefail
// set, in its own process group so that a timeout or an interrupt can kill
// everything the command started. Init commands additionally hand their
// exported environment back to the calling process.
package steps

// Action is one thing the runner can execute
type Action interface {
	// String describes the action for logs and reports
	String() string
}

// RawCommand is a shell command line, run with "<shell> -c"
type RawCommand struct {
	Command string
}

func (c RawCommand) String() string {
	return c.Command
}
