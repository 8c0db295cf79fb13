// Package cli implements the ppecheck command line.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppecheck/ppecheck/pkg/color"
	"github.com/ppecheck/ppecheck/pkg/errclass"
	"github.com/ppecheck/ppecheck/pkg/logging"
)

var (
	jsonOutput bool
	noColor    bool
	logLevel   string
	sessionRef string
)

// errSilent signals a failure that has already been reported.
var errSilent = errors.New("")

func newRootCmd() *cobra.Command {
	jsonOutput, noColor, logLevel, sessionRef = false, false, "", ""

	cmd := &cobra.Command{
		Use:   "ppecheck",
		Short: "ppecheck - PPE inspection checklists",
		Long: `ppecheck records periodic inspections of personal protective equipment.

An inspection walks every item of every equipment category in the catalog,
collects pass / fail / not-applicable decisions with notes, photos and an
optional location, and archives an immutable, checksummed record once
every item is decided.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			color.Init(noColor || jsonOutput)
			level := logging.LevelWarn
			if logLevel != "" {
				level = logging.ParseLevel(logLevel)
			}
			logging.Global().SetLevel(level)
		},
	}
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVarP(&sessionRef, "session", "s", "", "session id or prefix (default: current session)")

	cmd.AddCommand(
		newInitCmd(),
		newCatalogCmd(),
		newStartCmd(),
		newSessionsCmd(),
		newUseCmd(),
		newDiscardCmd(),
		newSetCmd(),
		newNoteCmd(),
		newEvidenceCmd(),
		newProductCmd(),
		newLocateCmd(),
		newStatusCmd(),
		newValidateCmd(),
		newSubmitCmd(),
		newRecordsCmd(),
		newVerifyCmd(),
		newGCCmd(),
		newDoctorCmd(),
		newConfigCmd(),
		newMetricsCmd(),
		newCompletionCmd(),
	)
	return cmd
}

// Execute runs the root command and exits non-zero on failure. Submission
// gates the inspector can fix exit with 2.
func Execute() {
	err := newRootCmd().Execute()
	if err == nil {
		return
	}
	if !errors.Is(err, errSilent) {
		fmtErr("%v", err)
	}
	if errclass.Recoverable(err) {
		os.Exit(2)
	}
	os.Exit(1)
}

func fmtErr(format string, args ...any) {
	prefix := "ppecheck: "
	if color.Enabled() {
		prefix = color.Error("ppecheck:") + " "
	}
	fmt.Fprintf(os.Stderr, prefix+format+"\n", args...)
}

// outputJSON writes v as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
