package style

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Summary is what the final report shows
type Summary struct {
	DryRun         bool
	LinksProcessed int
	LinksTotal     int
	StepsProcessed int
	StepsTotal     int
	Errors         int
	// Warnings are shown above the counts
	Warnings []string
	// BackupRoot is shown when something was backed up
	BackupRoot string
	// Failures are one line per failed item
	Failures []string
}

// RenderSummary renders s. Unstyled output is plain text with the same lines.
func RenderSummary(s Summary, styled bool) string {
	render := func(st lipgloss.Style, text string) string {
		if !styled {
			return text
		}
		return st.Render(text)
	}

	title := "Summary"
	if s.DryRun {
		title = "Summary (dry run, nothing was changed)"
	}

	lines := []string{render(TitleStyle, title)}
	for _, w := range s.Warnings {
		lines = append(lines, render(WarningStyle, "  ! "+w))
	}
	lines = append(lines,
		fmt.Sprintf("  Links processed: %d/%d", s.LinksProcessed, s.LinksTotal),
		fmt.Sprintf("  Steps processed: %d/%d", s.StepsProcessed, s.StepsTotal),
	)

	if s.BackupRoot != "" {
		label := "  Backups: "
		if s.DryRun {
			label = "  Backups would go to: "
		}
		lines = append(lines, label+render(PathStyle, s.BackupRoot))
	}

	if s.Errors == 0 {
		lines = append(lines, render(SuccessStyle, fmt.Sprintf("  %s No errors", SuccessMark)))
	} else {
		lines = append(lines, render(ErrorStyle, fmt.Sprintf("  %s Errors: %d", ErrorMark, s.Errors)))
		for _, f := range s.Failures {
			lines = append(lines, render(MutedStyle, "    - "+f))
		}
	}

	return strings.Join(lines, "\n") + "\n"
}
