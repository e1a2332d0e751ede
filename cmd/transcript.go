package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	errUtils "github.com/cloudposse/weave/errors"
	"github.com/cloudposse/weave/pkg/ai/macro"
	"github.com/cloudposse/weave/pkg/ai/session"
	"github.com/cloudposse/weave/pkg/ai/types"
	cfg "github.com/cloudposse/weave/pkg/config"
	"github.com/cloudposse/weave/pkg/duration"
	log "github.com/cloudposse/weave/pkg/logger"
)

const timeFormat = "2006-01-02 15:04:05"

var transcriptCmd = &cobra.Command{
	Use:   "transcript",
	Short: "Manage the stored chat transcripts",
	Long: `Manage the SQLite transcript store that 'weave run' restores chat history from
when a request arrives without any.

The store lives at settings.transcript.path.`,
}

var transcriptAppendCmd = &cobra.Command{
	Use:   "append <chat-id>",
	Short: "Append a message to a chat",
	Long: `Append one message to a chat, creating the chat if needed.

Examples:
  weave transcript append 42 --role user --content 'Tell me about the sword.'
  weave transcript append 42 --role assistant --content 'It is cursed.' --name Seraphina`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		roleName, _ := flags.GetString("role")
		content, _ := flags.GetString("content")
		name, _ := flags.GetString("name")

		role, err := types.ParseRole(roleName)
		if err != nil {
			return usage(err, "role")
		}

		storage, err := openTranscripts()
		if err != nil {
			return err
		}
		defer storage.Close()

		entry, err := storage.AppendMessage(cmd.Context(), args[0], weaveConfig.Settings.Character.Name, types.Message{
			Role:    role,
			Content: content,
			Name:    name,
		})
		if err != nil {
			return err
		}

		log.Debug("Appended message", "chat", args[0], "id", entry.ID)
		fmt.Fprintf(cmd.OutOrStdout(), "Appended message %d to chat %s\n", entry.ID, args[0])
		return nil
	},
}

var transcriptShowCmd = &cobra.Command{
	Use:   "show <chat-id>",
	Short: "Print a chat transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		last, _ := cmd.Flags().GetInt("last")

		storage, err := openTranscripts()
		if err != nil {
			return err
		}
		defer storage.Close()

		messages, err := storage.Transcript(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		start := 0
		if last > 0 {
			start = -last
		}
		fmt.Fprintln(cmd.OutOrStdout(), macro.FormatSlice(messages, start, nil))
		return nil
	},
}

var transcriptListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored chats",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		storage, err := openTranscripts()
		if err != nil {
			return err
		}
		defer storage.Close()

		chats, err := storage.ListChats(cmd.Context(), limit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(chats) == 0 {
			fmt.Fprintln(out, "No chats found.")
			return nil
		}
		for _, chat := range chats {
			fmt.Fprintf(out, "%s\t%s\t%d messages\tupdated %s\n",
				chat.ID, chat.CharacterName, chat.MessageCount, chat.UpdatedAt.Format(timeFormat))
		}
		return nil
	},
}

var transcriptDeleteCmd = &cobra.Command{
	Use:   "delete <chat-id>",
	Short: "Delete a chat and its messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		storage, err := openTranscripts()
		if err != nil {
			return err
		}
		defer storage.Close()

		if err := storage.DeleteChat(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted chat %s\n", args[0])
		return nil
	},
}

var transcriptExportCmd = &cobra.Command{
	Use:   "export <chat-id>",
	Short: "Export a chat to a checkpoint file",
	Long: `Export a chat to a JSON or YAML checkpoint file.

Examples:
  weave transcript export 42 --output chat.json
  weave transcript export 42 --output chat.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outputPath, _ := cmd.Flags().GetString("output")

		storage, err := openTranscripts()
		if err != nil {
			return err
		}
		defer storage.Close()

		f, err := os.Create(outputPath)
		if err != nil {
			return errUtils.Build(errUtils.ErrTranscriptFailed).WithCause(err).WithContext("file", outputPath).Err()
		}
		defer f.Close()

		if err := storage.Export(cmd.Context(), args[0], f, session.DetectFormat(outputPath)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported chat %s to %s\n", args[0], outputPath)
		return nil
	},
}

var transcriptImportCmd = &cobra.Command{
	Use:   "import <checkpoint-file>",
	Short: "Import a chat from a checkpoint file",
	Long: `Import a chat from a JSON or YAML checkpoint file created with 'weave transcript export'.

Examples:
  weave transcript import chat.json
  weave transcript import chat.yaml --chat-id restored`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		chatID, _ := cmd.Flags().GetString("chat-id")

		f, err := os.Open(args[0])
		if err != nil {
			return errUtils.Build(errUtils.ErrTranscriptFailed).WithCause(err).WithContext("file", args[0]).Err()
		}
		defer f.Close()

		storage, err := openTranscripts()
		if err != nil {
			return err
		}
		defer storage.Close()

		chat, err := storage.Import(cmd.Context(), f, session.DetectFormat(args[0]), chatID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported chat %s (%d messages)\n", chat.ID, chat.MessageCount)
		return nil
	},
}

var transcriptPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete chats with no recent activity",
	Long: `Delete every chat whose last message is older than the given period.

Examples:
  weave transcript prune --older-than 30d
  weave transcript prune --older-than weekly`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		olderThan, _ := cmd.Flags().GetString("older-than")

		age, err := duration.ParseDuration(olderThan)
		if err != nil {
			return err
		}

		storage, err := openTranscripts()
		if err != nil {
			return err
		}
		defer storage.Close()

		cutoff := time.Now().Add(-age)
		deleted, err := storage.DeleteChatsBefore(cmd.Context(), cutoff)
		if err != nil {
			return err
		}

		log.Debug("Pruned chats", "cutoff", cutoff.Format(timeFormat), "deleted", deleted)
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d chat(s) older than %s\n", deleted, olderThan)
		return nil
	},
}

func openTranscripts() (*session.SQLiteStorage, error) {
	path := cfg.ExpandPath(&weaveConfig, weaveConfig.Settings.Transcript.Path)
	if path == "" {
		return nil, errUtils.Build(errUtils.ErrInvalidConfiguration).
			WithHint("set settings.transcript.path in weave.yaml").
			WithExitCode(errUtils.ExitCodeUsage).
			Err()
	}
	return session.NewSQLiteStorage(path)
}

func init() {
	transcriptAppendCmd.Flags().String("role", string(types.RoleUser), "Message role: system, user or assistant")
	transcriptAppendCmd.Flags().String("content", "", "Message content")
	transcriptAppendCmd.Flags().String("name", "", "Optional speaker name")
	_ = transcriptAppendCmd.MarkFlagRequired("content")

	transcriptShowCmd.Flags().Int("last", 0, "Only show the last N non-system messages")
	transcriptListCmd.Flags().Int("limit", 20, "Maximum number of chats to list")

	transcriptExportCmd.Flags().StringP("output", "o", "", "Output file path; the format follows the extension (.json, .yaml)")
	_ = transcriptExportCmd.MarkFlagRequired("output")

	transcriptImportCmd.Flags().String("chat-id", "", "Id for the imported chat (uses the checkpoint's id if not specified)")

	transcriptPruneCmd.Flags().String("older-than", "30d", "Age of the last activity after which a chat is deleted (e.g. 12h, 30d, monthly)")

	transcriptCmd.AddCommand(
		transcriptAppendCmd,
		transcriptShowCmd,
		transcriptListCmd,
		transcriptDeleteCmd,
		transcriptExportCmd,
		transcriptImportCmd,
		transcriptPruneCmd,
	)
	RootCmd.AddCommand(transcriptCmd)
}
