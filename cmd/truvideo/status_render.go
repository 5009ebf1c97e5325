package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"truvideo/internal/capture"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 14
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := fmt.Sprintf("[%s]", statusKindLabel(kind))
	if message != "" {
		statusText += " " + message
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// flagsLabel names the state a set of published flags represents.
func flagsLabel(flags capture.Flags) (string, statusKind) {
	switch {
	case flags.Recording:
		return "recording", statusOK
	case flags.CanResume:
		return "paused", statusWarn
	case flags.Processing:
		return "processing", statusInfo
	default:
		return "idle", statusInfo
	}
}

func flagsHint(flags capture.Flags) string {
	var keys []string
	if flags.CanPause {
		keys = append(keys, "p=pause")
	}
	if flags.CanResume {
		keys = append(keys, "r=resume")
	}
	if flags.Recording || flags.CanResume {
		keys = append(keys, "s=stop")
	}
	if len(keys) == 0 {
		return ""
	}
	return "(" + strings.Join(keys, ", ") + ")"
}

// terminalBridge prints flag changes and the session outcome, then hands the
// outcome to the waiting command.
type terminalBridge struct {
	mu       sync.Mutex
	out      io.Writer
	colorize bool
	title    cases.Caser
	last     string
	outcomes chan<- capture.Outcome
}

func newTerminalBridge(out io.Writer, colorize bool, outcomes chan<- capture.Outcome) *terminalBridge {
	return &terminalBridge{
		out:      out,
		colorize: colorize,
		title:    cases.Title(language.Und),
		outcomes: outcomes,
	}
}

func (b *terminalBridge) Publish(flags capture.Flags) {
	label, kind := flagsLabel(flags)
	message := b.title.String(label)
	if hint := flagsHint(flags); hint != "" {
		message += " " + hint
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if message == b.last {
		return
	}
	b.last = message
	fmt.Fprintln(b.out, renderStatusLine("Session", kind, message, b.colorize))
}

func (b *terminalBridge) Notify(_ context.Context, outcome capture.Outcome) {
	b.mu.Lock()
	for _, line := range outcomeLines(outcome, b.colorize) {
		fmt.Fprintln(b.out, line)
	}
	b.mu.Unlock()

	select {
	case b.outcomes <- outcome:
	default:
	}
}

func outcomeLines(outcome capture.Outcome, colorize bool) []string {
	var lines []string
	switch {
	case outcome.Success:
		lines = append(lines, renderStatusLine("Delivered", statusOK, outcome.Path, colorize))
	case outcome.Path != "":
		lines = append(lines, renderStatusLine("Saved", statusWarn, outcome.Path, colorize))
		lines = append(lines, renderStatusLine("Upload", statusError, errorText(outcome.Err), colorize))
		lines = append(lines, renderStatusLine("Retry", statusInfo, "truvideo upload "+outcome.Path, colorize))
	default:
		lines = append(lines, renderStatusLine("Failed", statusError, errorText(outcome.Err), colorize))
	}
	return lines
}

func errorText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
