// Package ui prints the user-facing lines of a run.
//
// Log output goes to stderr through pkg/logging; what the user is meant to
// read goes through a Reporter, usually on stdout. On a terminal lines carry
// pterm prefixes; otherwise they are plain text suitable for piping.
package ui

import (
	"fmt"
	"io"
	"sync"

	"github.com/pterm/pterm"
)

// DryRunPrefix starts every line reported during a dry run
const DryRunPrefix = "[DRY RUN] "

// Reporter writes info, success, warning and error lines
type Reporter struct {
	mu     sync.Mutex
	w      io.Writer
	format Format
	dryRun bool

	info    *pterm.PrefixPrinter
	success *pterm.PrefixPrinter
	warning *pterm.PrefixPrinter
	failure *pterm.PrefixPrinter
}

// NewReporter creates a Reporter on w. FormatAuto picks terminal styling
// only when w is a color-capable terminal.
func NewReporter(w io.Writer, format Format, dryRun bool) *Reporter {
	return &Reporter{
		w:       w,
		format:  format.Resolve(w),
		dryRun:  dryRun,
		info:    pterm.Info.WithWriter(w),
		success: pterm.Success.WithWriter(w),
		warning: pterm.Warning.WithWriter(w),
		failure: pterm.Error.WithWriter(w),
	}
}

// Format returns the resolved output format
func (r *Reporter) Format() Format {
	return r.format
}

// Writer returns the underlying writer
func (r *Reporter) Writer() io.Writer {
	return r.w
}

// DryRun reports whether lines carry the dry-run prefix
func (r *Reporter) DryRun() bool {
	return r.dryRun
}

func (r *Reporter) Info(format string, args ...interface{}) {
	r.print(r.info, "", format, args...)
}

func (r *Reporter) Success(format string, args ...interface{}) {
	r.print(r.success, "ok: ", format, args...)
}

func (r *Reporter) Warning(format string, args ...interface{}) {
	r.print(r.warning, "warning: ", format, args...)
}

func (r *Reporter) Error(format string, args ...interface{}) {
	r.print(r.failure, "error: ", format, args...)
}

// Println writes a line with no prefix other than the dry-run marker
func (r *Reporter) Println(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = fmt.Fprintln(r.w, s)
}

func (r *Reporter) print(p *pterm.PrefixPrinter, label, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if r.dryRun {
		msg = DryRunPrefix + msg
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.format == FormatTerminal {
		p.Println(msg)
		return
	}
	_, _ = fmt.Fprintf(r.w, "%s%s\n", label, msg)
}
