package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

var (
	warnPrefix  = color.New(color.FgYellow, color.Bold)
	errorPrefix = color.New(color.FgRed, color.Bold)
)

func init() {
	if os.Getenv("NO_COLOR") != "" || !isatty.IsTerminal(os.Stderr.Fd()) {
		color.NoColor = true
	}
}

func useColor(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func warnf(format string, args ...any) {
	logErrf("%s "+format, append([]any{warnPrefix.Sprint("warning:")}, args...)...)
}

func errorf(format string, args ...any) {
	logErrf("%s "+format, append([]any{errorPrefix.Sprint("error:")}, args...)...)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
