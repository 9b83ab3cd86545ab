package steps

import "time"

// Outcome is how one action ended
type Outcome int

const (
	Success Outcome = iota
	// Failure carries the exit code in Result.ExitCode
	Failure
	TimedOut
	// Skipped means the action was not run because of a dry run
	Skipped
	// Interrupted means the run was cancelled while the action ran
	Interrupted
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Failure:
		return "failure"
	case TimedOut:
		return "timed out"
	case Skipped:
		return "skipped"
	case Interrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// Result describes one executed action
type Result struct {
	Action  Action
	Outcome Outcome
	// ExitCode is the shell's exit status, -1 when it did not exit normally
	ExitCode int
	Duration time.Duration
	Err      error
}

// OK reports whether the action counts as processed
func (r Result) OK() bool {
	return r.Outcome == Success || r.Outcome == Skipped
}
