package installer

import (
	"fmt"

	"github.com/gapurov/simple-dotfiles/pkg/linker"
	"github.com/gapurov/simple-dotfiles/pkg/steps"
	"github.com/gapurov/simple-dotfiles/pkg/style"
)

// Summary is the tally of one run
type Summary struct {
	DryRun bool

	LinksProcessed int
	StepsProcessed int
	Errors         int

	Init  []steps.Result
	Links []linker.Result
	Steps []steps.Result

	// LinksTotal and StepsTotal count declared items, run or not
	LinksTotal int
	StepsTotal int

	// BackupRoot is set when something was, or would be, backed up
	BackupRoot string
	Warnings   []string
}

// Failures lists one line per failed item, in run order
func (s *Summary) Failures() []string {
	var out []string
	for _, r := range s.Init {
		if !r.OK() {
			out = append(out, fmt.Sprintf("init %q: %v", r.Action, r.Err))
		}
	}
	for _, r := range s.Links {
		if !r.OK() {
			out = append(out, fmt.Sprintf("link %s: %v", r.Spec, r.Err))
		}
	}
	for _, r := range s.Steps {
		if !r.OK() {
			out = append(out, fmt.Sprintf("step %q: %v", r.Action, r.Err))
		}
	}
	return out
}

// View converts the summary for rendering
func (s *Summary) View() style.Summary {
	return style.Summary{
		DryRun:         s.DryRun,
		LinksProcessed: s.LinksProcessed,
		LinksTotal:     s.LinksTotal,
		StepsProcessed: s.StepsProcessed,
		StepsTotal:     s.StepsTotal,
		Errors:         s.Errors,
		Warnings:       s.Warnings,
		BackupRoot:     s.BackupRoot,
		Failures:       s.Failures(),
	}
}

func (s *Summary) addLink(r linker.Result) {
	s.Links = append(s.Links, r)
	if r.OK() {
		s.LinksProcessed++
	} else {
		s.Errors++
	}
}

func (s *Summary) addInit(r steps.Result) {
	s.Init = append(s.Init, r)
	if !r.OK() {
		s.Errors++
	}
}

func (s *Summary) addStep(r steps.Result) {
	s.Steps = append(s.Steps, r)
	if r.OK() {
		s.StepsProcessed++
	} else {
		s.Errors++
	}
}
