package cmd

import (
	"io"

	"github.com/spf13/cobra"

	errUtils "github.com/cloudposse/weave/errors"
	cfg "github.com/cloudposse/weave/pkg/config"
	log "github.com/cloudposse/weave/pkg/logger"
	"github.com/cloudposse/weave/pkg/schema"
)

var (
	weaveConfig schema.Configuration
	logCloser   io.Closer
)

// RootCmd represents the base command when called without any subcommands.
var RootCmd = &cobra.Command{
	Use:   "weave",
	Short: "Retrieval-augmented conversation assembly for chat requests",
	Long: `weave resolves prompt macros, asks a retrieval model about a conversation and
splices the answer back into the outgoing chat-completion request.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Determine if the command is a help command or if the help flag is set.
		isHelpRequested := cmd.Name() == "help" || cmd.Flags().Changed("help")
		cmd.SilenceUsage = !isHelpRequested
		cmd.SilenceErrors = !isHelpRequested

		return initConfig(cmd)
	},
}

// Execute runs the root command. This is called by main.main().
func Execute() error {
	return RootCmd.Execute()
}

// Cleanup releases resources opened while initializing the CLI.
func Cleanup() {
	if logCloser != nil {
		_ = logCloser.Close()
		logCloser = nil
	}
}

func init() {
	RootCmd.PersistentFlags().String("config", "", "Path to weave.yaml (defaults to ./weave.yaml, then $XDG_CONFIG_HOME/weave/weave.yaml)")
	RootCmd.PersistentFlags().String("logs-level", "", "Logs level. Supported log levels are Trace, Debug, Info, Warning, Off. If the log level is set to Off, weave will not log any messages")
	RootCmd.PersistentFlags().String("logs-file", "", "The file to write logs to. Logs can be written to any file or any standard file descriptor, including '/dev/stdout', '/dev/stderr' and '/dev/null'")
	RootCmd.PersistentFlags().Bool("verbose", false, "Show error context and explanations")
}

// initConfig loads weave.yaml and configures the default logger from it.
func initConfig(cmd *cobra.Command) error {
	flags := cmd.Flags()
	configPath, _ := flags.GetString("config")
	logsLevel, _ := flags.GetString("logs-level")
	logsFile, _ := flags.GetString("logs-file")
	verbose, _ := flags.GetBool("verbose")
	errUtils.SetVerbose(verbose)

	loaded, err := cfg.Load(cfg.LoadOptions{
		ConfigPath: configPath,
		LogsLevel:  logsLevel,
		LogsFile:   logsFile,
	})
	if err != nil {
		return err
	}
	weaveConfig = loaded

	logger, closer, err := log.NewLoggerFromConfig(weaveConfig.Logs.Level, weaveConfig.Logs.File)
	if err != nil {
		return errUtils.Build(errUtils.ErrInvalidConfiguration).
			WithCause(err).
			WithContext("setting", "logs").
			WithExitCode(errUtils.ExitCodeUsage).
			Err()
	}
	Cleanup()
	logCloser = closer
	logger.SetReportTimestamp(false)
	log.SetDefault(logger)

	log.Debug("Loaded configuration", "file", weaveConfig.CliConfigPath)
	return nil
}
