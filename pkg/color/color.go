// Package color provides terminal color output for ppecheck.
// It respects the NO_COLOR environment variable (https://no-color.org/).
package color

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/ppecheck/ppecheck/pkg/model"
)

var state struct {
	once       sync.Once
	enabled    atomic.Bool
	overridden atomic.Bool
}

// Init decides once whether to color output, from NO_COLOR, TERM=dumb and
// the --no-color flag. Enable and Disable take precedence afterwards.
func Init(noColorFlag bool) {
	state.once.Do(func() {
		if state.overridden.Load() {
			return
		}
		_, noColor := os.LookupEnv("NO_COLOR")
		dumb := os.Getenv("TERM") == "dumb"
		state.enabled.Store(!noColor && !dumb && !noColorFlag)
	})
}

// Enabled returns true if color output is enabled.
func Enabled() bool {
	Init(false)
	return state.enabled.Load()
}

// Disable turns off color output.
func Disable() {
	state.overridden.Store(true)
	state.enabled.Store(false)
}

// Enable turns on color output.
func Enable() {
	state.overridden.Store(true)
	state.enabled.Store(true)
}

// ANSI codes.
const (
	Reset   = "\033[0m"
	Bold    = "\033[1m"
	DimCode = "\033[2m"
	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Cyan    = "\033[36m"
	Gray    = "\033[90m"
)

func wrap(code, s string) string {
	if !Enabled() {
		return s
	}
	return code + s + Reset
}

// Success formats a success message in green.
func Success(s string) string { return wrap(Green, s) }

// Successf formats a success message with printf-style arguments.
func Successf(format string, args ...any) string { return Success(fmt.Sprintf(format, args...)) }

// Error formats an error message in red.
func Error(s string) string { return wrap(Red, s) }

// Errorf formats an error message with printf-style arguments.
func Errorf(format string, args ...any) string { return Error(fmt.Sprintf(format, args...)) }

// Warning formats a warning message in yellow.
func Warning(s string) string { return wrap(Yellow, s) }

// Warningf formats a warning message with printf-style arguments.
func Warningf(format string, args ...any) string { return Warning(fmt.Sprintf(format, args...)) }

// ID formats a session or record identifier.
func ID(s string) string { return wrap(Cyan, s) }

// Header formats a header in bold.
func Header(s string) string { return wrap(Bold, s) }

// Dim formats secondary information.
func Dim(s string) string { return wrap(DimCode, s) }

// Status renders an item status with a fixed-width marker so columns line
// up with and without color.
func Status(s model.ItemStatus) string {
	switch s {
	case model.StatusPass:
		return wrap(Green, "[pass]")
	case model.StatusFail:
		return wrap(Red, "[FAIL]")
	case model.StatusNotApplicable:
		return wrap(Gray, "[n/a ]")
	}
	return wrap(Yellow, "[ ?  ]")
}

// Outcome renders a record outcome.
func Outcome(o model.Outcome) string {
	if o == model.OutcomeSuccessWithIssues {
		return wrap(Yellow, o.String())
	}
	return wrap(Green, o.String())
}
