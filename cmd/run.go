package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"
	"github.com/spf13/cobra"

	"github.com/cloudposse/weave/pkg/ai"
	"github.com/cloudposse/weave/pkg/ai/lore"
	"github.com/cloudposse/weave/pkg/ai/macro"
	"github.com/cloudposse/weave/pkg/ai/pipeline"
	"github.com/cloudposse/weave/pkg/ai/session"
	"github.com/cloudposse/weave/pkg/ai/types"
	cfg "github.com/cloudposse/weave/pkg/config"
	log "github.com/cloudposse/weave/pkg/logger"
	"github.com/cloudposse/weave/pkg/request"
	"github.com/cloudposse/weave/pkg/schema"
	"github.com/cloudposse/weave/pkg/store"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the retrieval pipeline over a chat-completion request",
	Long: `Read an OpenAI-style chat-completion body, ask the configured retrieval target
about the conversation, inject the answer and print the resulting body.

The body is printed unchanged when the pipeline is disabled, filtered out or fails.

Examples:
  weave run --chat request.json
  cat request.json | weave run --strip-identifiers | curl -d @- ...
  weave run --chat request.json --chat-id 42 --dry-run
  weave run --chat request.json --diff`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		chatPath, _ := flags.GetString("chat")
		chatID, _ := flags.GetString("chat-id")
		strip, _ := flags.GetBool("strip-identifiers")
		dryRun, _ := flags.GetBool("dry-run")
		showDiff, _ := flags.GetBool("diff")

		body, req, err := readRequest(cmd, chatPath)
		if err != nil {
			return err
		}
		if chatID != "" {
			req.ChatID = chatID
		}

		settings := &weaveConfig.Settings
		ctx := cmd.Context()
		if settings.Retrieval.TimeoutSeconds > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, time.Duration(settings.Retrieval.TimeoutSeconds)*time.Second)
			defer cancel()
		}

		orchestrator, cleanup, err := newOrchestrator(&weaveConfig, req)
		if err != nil {
			return err
		}
		defer cleanup()

		before := renderTranscript(req.Messages)
		outcome := orchestrator.Run(ctx, req, dryRun)
		log.Info("Pipeline finished", "run", outcome.RunID, "status", outcome.Status, "reason", outcome.Reason)

		if showDiff {
			_, err := fmt.Fprint(cmd.OutOrStdout(), transcriptDiff(before, renderTranscript(req.Messages)))
			return err
		}

		out := body
		if outcome.Status != pipeline.StatusSkipped || strip {
			if out, err = request.ApplyToBody(body, req, strip); err != nil {
				return err
			}
		}
		_, err = cmd.OutOrStdout().Write(append(out, '\n'))
		return err
	},
}

// newOrchestrator wires the pipeline collaborators from the configuration. The returned
// cleanup func closes whatever was opened.
func newOrchestrator(config *schema.Configuration, req *request.Request) (*pipeline.Orchestrator, func(), error) {
	settings := &config.Settings
	cleanup := func() {}

	routerOpts := []ai.RouterOption{ai.WithRetry(settings.Retrieval.Retry)}
	if cache := settings.Retrieval.Cache; cache.Enabled {
		c, err := store.NewCache(&cache)
		if err != nil {
			return nil, cleanup, err
		}
		routerOpts = append(routerOpts, ai.WithCache(c, time.Duration(cache.TTLSeconds)*time.Second))
	}

	opts := pipeline.Options{
		Sender: ai.NewRouter(settings.Providers, routerOpts...),
	}

	if settings.Retrieval.LockFile != "" {
		opts.Lock = pipeline.NewFileLock(cfg.ExpandPath(config, settings.Retrieval.LockFile))
	}

	if settings.Lore.Path != "" {
		book, err := lore.LoadBook(cfg.ExpandPath(config, settings.Lore.Path))
		if err != nil {
			return nil, cleanup, err
		}
		opts.Lookup = lore.NewEngine(book, tokenCounter(settings.Lore.Encoding), settings.Lore.ScanDepth)
	}

	if req.ChatID != "" && settings.Transcript.Path != "" {
		storage, err := session.NewSQLiteStorage(cfg.ExpandPath(config, settings.Transcript.Path))
		if err != nil {
			return nil, cleanup, err
		}
		opts.Transcripts = storage
		cleanup = func() { _ = storage.Close() }
	}

	orchestrator, err := pipeline.New(settings, opts)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	return orchestrator, cleanup, nil
}

// renderTranscript prints one block per message: its index, role and identifier, then
// the indented content.
func renderTranscript(messages []types.Message) string {
	var b strings.Builder
	for i, m := range messages {
		fmt.Fprintf(&b, "[%d] %s", i, m.Role)
		if m.Identifier != "" {
			fmt.Fprintf(&b, " (%s)", m.Identifier)
		}
		b.WriteString("\n")
		for _, line := range strings.Split(macro.Text(m), "\n") {
			b.WriteString("    " + line + "\n")
		}
	}
	return b.String()
}

// transcriptDiff returns a unified diff between two rendered transcripts, or a note
// when nothing changed.
func transcriptDiff(before, after string) string {
	if before == after {
		return "No changes.\n"
	}
	edits := myers.ComputeEdits(span.URIFromPath("before"), before, after)
	return fmt.Sprint(gotextdiff.ToUnified("before", "after", before, edits))
}

// tokenCounter returns a tiktoken counter, or nil (estimated counts) when the encoding
// cannot be loaded.
func tokenCounter(encoding string) lore.Counter {
	if encoding == "" {
		return nil
	}
	counter, err := lore.NewTiktokenCounter(encoding)
	if err != nil {
		log.Warn("Falling back to estimated token counts", "encoding", encoding, "error", err)
		return nil
	}
	return counter
}

func init() {
	runCmd.Flags().String("chat", "-", "Chat-completion body ('-' reads stdin)")
	runCmd.Flags().String("chat-id", "", "Chat id used for filters and history restore (overrides the body's chat_id)")
	runCmd.Flags().Bool("strip-identifiers", false, "Leave the auxiliary message identifiers out of the printed body")
	runCmd.Flags().Bool("dry-run", false, "Mark the run as a dry run for filters; lore sticky state is not advanced")
	runCmd.Flags().Bool("diff", false, "Print a unified diff of the conversation instead of the body")

	RootCmd.AddCommand(runCmd)
}
