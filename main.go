package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudposse/weave/cmd"
	errUtils "github.com/cloudposse/weave/errors"
	log "github.com/cloudposse/weave/pkg/logger"
)

func main() {
	// Set up signal handling for graceful shutdown.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		cmd.Cleanup()
		// Exit with the POSIX exit code (128 + signal number).
		if s, ok := sig.(syscall.Signal); ok {
			errUtils.OsExit(128 + int(s))
		}
		errUtils.OsExit(errUtils.ExitCodeInterrupted)
	}()

	log.Default().SetReportTimestamp(false)

	// Use errUtils.OsExit to allow test interception.
	errUtils.OsExit(run())
}

// run executes the CLI and returns an exit code, so deferred cleanup runs before exit.
func run() int {
	defer cmd.Cleanup()

	if err := cmd.Execute(); err != nil {
		errUtils.CheckErrorAndPrint(err)

		exitCode := errUtils.GetExitCode(err)
		log.Debug("Exiting with exit code", "code", exitCode)
		return exitCode
	}

	return errUtils.ExitCodeSuccess
}
