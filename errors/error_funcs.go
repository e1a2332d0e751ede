package errors

import (
	"io"
	"os"

	log "github.com/cloudposse/weave/pkg/logger"
)

// OsExit is a variable for testing, so we can mock os.Exit.
var OsExit = os.Exit

// stderr is where CheckErrorAndPrint writes; tests swap it out.
var stderr io.Writer = os.Stderr

// verbose switches CheckErrorAndPrint to verbose formatting.
var verbose bool

// SetVerbose toggles verbose error output for the CLI.
func SetVerbose(v bool) {
	verbose = v
}

// CheckErrorAndPrint prints a formatted error to stderr.
func CheckErrorAndPrint(err error) {
	if err == nil {
		return
	}

	cfg := DefaultFormatterConfig()
	cfg.Verbose = verbose

	if _, printErr := io.WriteString(stderr, Format(err, cfg)+"\n"); printErr != nil {
		log.Error("failed to print error", "error", printErr)
		log.Error(err.Error())
	}
}

// CheckErrorPrintAndExit prints an error and exits with the error's exit code.
func CheckErrorPrintAndExit(err error) {
	if err == nil {
		return
	}

	CheckErrorAndPrint(err)
	Exit(GetExitCode(err))
}

// Exit exits the program with the specified exit code.
func Exit(exitCode int) {
	OsExit(exitCode)
}
