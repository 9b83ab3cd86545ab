package linker

import "github.com/gapurov/simple-dotfiles/pkg/types"

// Outcome is how reconciling one link ended
type Outcome int

const (
	// Created means the symlink was made, or would be in a dry run
	Created Outcome = iota
	// AlreadyCorrect means the destination already pointed at the source
	AlreadyCorrect
	// Error means the link was not made; Result.Err says why
	Error
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case AlreadyCorrect:
		return "already correct"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Action is what reconciling decided to do to the destination
type Action int

const (
	ActionNone Action = iota
	ActionCreate
	ActionReplaceSymlink
	ActionReplaceFile
	ActionReplaceDirectory
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionCreate:
		return "create"
	case ActionReplaceSymlink:
		return "replace symlink"
	case ActionReplaceFile:
		return "replace file"
	case ActionReplaceDirectory:
		return "replace directory"
	default:
		return "unknown"
	}
}

// Result describes one reconciled link
type Result struct {
	Spec types.LinkSpec
	// Source and Destination are the resolved absolute paths
	Source      string
	Destination string
	Outcome     Outcome
	Action      Action
	// BackupPath is where the displaced destination went, if anywhere
	BackupPath string
	Err        error
}

// OK reports whether the link counts as processed
func (r Result) OK() bool {
	return r.Outcome == Created || r.Outcome == AlreadyCorrect
}
