// Package pipeline runs retrieval-augmented assembly over an outgoing chat request:
// it asks a retrieval model about the conversation and splices the answer back in.
package pipeline

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/samber/lo"

	errUtils "github.com/cloudposse/weave/errors"
	"github.com/cloudposse/weave/pkg/ai"
	"github.com/cloudposse/weave/pkg/ai/auxiliary"
	"github.com/cloudposse/weave/pkg/ai/injection"
	"github.com/cloudposse/weave/pkg/ai/lore"
	"github.com/cloudposse/weave/pkg/ai/macro"
	"github.com/cloudposse/weave/pkg/ai/session"
	"github.com/cloudposse/weave/pkg/ai/tools"
	"github.com/cloudposse/weave/pkg/ai/types"
	"github.com/cloudposse/weave/pkg/filter"
	log "github.com/cloudposse/weave/pkg/logger"
	"github.com/cloudposse/weave/pkg/request"
	"github.com/cloudposse/weave/pkg/schema"
)

// Extra macro names supplied by the pipeline.
const (
	KeyRetrievedContext = "retrievedContext"
	KeyLoreBefore       = "loreBefore"
	KeyLoreAfter        = "loreAfter"
)

// Options carries the collaborators of an Orchestrator. Only Sender is required.
type Options struct {
	Sender      ai.Sender
	Lookup      lore.Lookup
	Transcripts session.TranscriptSource
	// Lock is shared between orchestrators that must not run concurrently.
	// A new lock is created when nil.
	Lock *Lock
}

// Orchestrator runs the pipeline for one set of settings.
type Orchestrator struct {
	settings    *schema.Settings
	sender      ai.Sender
	lookup      lore.Lookup
	transcripts session.TranscriptSource
	filters     *filter.Set
	lock        *Lock
}

// New creates an orchestrator. Filter expressions are compiled up front.
func New(settings *schema.Settings, opts Options) (*Orchestrator, error) {
	if settings == nil {
		return nil, errUtils.Build(errUtils.ErrInvalidConfiguration).WithExplanation("settings are required").Err()
	}
	if opts.Sender == nil {
		return nil, errUtils.Build(errUtils.ErrInvalidConfiguration).WithExplanation("a retrieval sender is required").Err()
	}

	filters, err := filter.Compile(settings.Retrieval.Filters)
	if err != nil {
		return nil, err
	}

	lock := opts.Lock
	if lock == nil {
		lock = NewLock()
	}

	return &Orchestrator{
		settings:    settings,
		sender:      opts.Sender,
		lookup:      opts.Lookup,
		transcripts: opts.Transcripts,
		filters:     filters,
		lock:        lock,
	}, nil
}

// run is the state of one pipeline run.
type run struct {
	id     string
	req    *request.Request
	dryRun bool
	logger *log.Logger
	target *schema.ProviderConfig
	tool   tools.Descriptor
}

// Run mutates req in place. It never returns an error directly: failures are logged
// and reported in the outcome.
func (o *Orchestrator) Run(ctx context.Context, req *request.Request, dryRun bool) Outcome {
	r := &run{
		id:     uuid.NewString(),
		req:    req,
		dryRun: dryRun,
	}
	r.logger = log.With("run", r.id)

	if !o.settings.Retrieval.Enabled {
		return r.skip(ReasonDisabled)
	}
	if !o.lock.TryAcquire() {
		return r.skip(ReasonBusy)
	}
	defer o.lock.Release()

	if out, stop := o.guard(r); stop {
		return out
	}

	if err := o.repairHistory(ctx, r); err != nil {
		return r.fail("prepare", err)
	}

	base := o.macroContext(r.req.Messages)

	loreBefore, loreAfter, err := o.lore(ctx, r.req.Messages, true)
	if err != nil {
		return r.fail("retrieve", err)
	}
	base = base.WithExtra(map[string]string{KeyLoreBefore: loreBefore, KeyLoreAfter: loreAfter})

	result, err := o.retrieve(ctx, r, base)
	if err != nil {
		return r.fail("retrieve", err)
	}
	if result.IsEmpty() {
		r.logger.Debug("Retrieval returned no content", "stage", "retrieve", "target", o.settings.Retrieval.Target)
		return Outcome{RunID: r.id, Status: StatusEmpty}
	}

	content := macro.Resolve(o.settings.Retrieval.Templates.Injection, base.WithExtra(map[string]string{
		KeyRetrievedContext: result.Content,
	}))
	messages, placement := injection.Apply(r.req.Messages, o.settings.Retrieval.Injection.Spec(), content)
	r.req.Messages = messages
	r.logger.Debug("Injected retrieved context", "stage", "inject", "index", placement.Index, "merge", placement.Merges())

	out := Outcome{RunID: r.id, Status: StatusInjected, Placement: &placement}

	if o.settings.Retrieval.ReconcileAuxiliary {
		before, after, err := o.reconcile(ctx, r)
		if err != nil {
			out.Status = StatusFailed
			out.Err = err
			r.logger.Error("Pipeline failed", "stage", "reconcile", "error", err)
			return out
		}
		out.LoreBefore, out.LoreAfter = before, after
	}

	o.appendSystemPrompt(r)
	o.grantTool(r)

	return out
}

// guard checks everything that decides whether the run goes ahead.
func (o *Orchestrator) guard(r *run) (Outcome, bool) {
	rs := &o.settings.Retrieval

	target, ok := o.settings.TargetProvider()
	if !ok {
		return r.skip(ReasonNoTarget), true
	}
	r.target = target

	if rs.Filter != "" {
		env := filter.NewEnv(r.req.ChatID, o.settings.Character.Name, o.settings.UserName, r.req.Messages, r.dryRun)
		matched, err := o.filters.Match(rs.Filter, env)
		if err != nil {
			return r.fail("guard", err), true
		}
		if !matched {
			return r.skip(ReasonFiltered), true
		}
	}

	tool, err := tools.Build(target.Type, rs)
	switch {
	case errors.Is(err, errUtils.ErrMissingDataSourceID):
		return r.skip(ReasonMissingDataSource), true
	case errors.Is(err, errUtils.ErrMissingToolParameters):
		return r.skip(ReasonMissingParameters), true
	case err != nil:
		return r.fail("guard", err), true
	}
	r.tool = tool

	return Outcome{}, false
}

// repairHistory restores the chat history when the request arrives without any.
func (o *Orchestrator) repairHistory(ctx context.Context, r *run) error {
	if o.transcripts == nil || r.req.ChatID == "" || len(macro.NonSystem(r.req.Messages)) > 0 {
		return nil
	}

	history, err := o.transcripts.Transcript(ctx, r.req.ChatID)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		return nil
	}

	r.req.Messages = append(r.req.Messages, history...)
	r.logger.Debug("Restored chat history", "stage", "prepare", "chat", r.req.ChatID, "messages", len(history))
	return nil
}

func (o *Orchestrator) macroContext(history []types.Message) macro.Context {
	c := o.settings.Character
	return macro.Context{
		CharacterName: c.Name,
		UserName:      o.settings.UserName,
		Description:   c.Description,
		Personality:   c.Personality,
		Scenario:      c.Scenario,
		History:       history,
	}
}

// lore runs a lookup over the conversation minus its auxiliary messages.
// Without a lookup collaborator both blocks are empty.
func (o *Orchestrator) lore(ctx context.Context, messages []types.Message, dryRun bool) (string, string, error) {
	if o.lookup == nil {
		return "", "", nil
	}

	content := lo.Map(auxiliary.Without(macro.NonSystem(messages)), func(m types.Message, _ int) string {
		return macro.Text(m)
	})
	c := o.settings.Character

	result, err := o.lookup.Lookup(ctx, lore.Request{
		Content:        content,
		MaxContextSize: o.settings.Lore.MaxContextSize,
		DryRun:         dryRun,
		ScanFields:     lo.Compact([]string{c.Description, c.Personality, c.Scenario}),
	})
	if err != nil {
		return "", "", errUtils.Build(errUtils.ErrLookupFailed).WithCause(err).WithContext("dry_run", dryRun).Err()
	}
	return result.Before, result.After, nil
}

func (o *Orchestrator) retrieve(ctx context.Context, r *run, base macro.Context) (*types.RetrievalResult, error) {
	rs := &o.settings.Retrieval

	query := []types.Message{
		{Role: types.RoleSystem, Content: macro.Resolve(rs.Templates.System, base)},
		{Role: types.RoleUser, Content: macro.Resolve(rs.Templates.User, base)},
	}
	sel := tools.Selection{Tool: r.tool, Choice: rs.Tool.Choice}

	r.logger.Debug("Retrieving", "stage", "retrieve", "target", rs.Target, "tool", sel.ToolName(), "choice", sel.Choice)

	result, err := o.sender.Send(ctx, rs.Target, query, rs.MaxTokens, sel)
	if err != nil {
		return nil, errUtils.Build(errUtils.ErrRetrievalFailed).
			WithCause(err).
			WithContext("target", rs.Target).
			WithContext("provider", string(r.target.Type)).
			Err()
	}
	return result, nil
}

// reconcile refreshes the tagged lore messages against the conversation as it now stands.
func (o *Orchestrator) reconcile(ctx context.Context, r *run) (string, string, error) {
	if o.lookup == nil {
		r.logger.Debug("No lore lookup configured, skipping reconciliation", "stage", "reconcile")
		return "", "", nil
	}

	// A dry run must not advance sticky entries.
	before, after, err := o.lore(ctx, r.req.Messages, r.dryRun)
	if err != nil {
		return "", "", err
	}
	r.req.Messages = auxiliary.Reconcile(r.req.Messages, before, after)
	return before, after, nil
}

// appendSystemPrompt adds the extra system prompt to the first system message.
func (o *Orchestrator) appendSystemPrompt(r *run) {
	extra := o.settings.Retrieval.ExtraSystemPrompt
	if extra == "" {
		return
	}

	_, i, ok := lo.FindIndexOf(r.req.Messages, func(m types.Message) bool { return m.IsSystem() })
	if !ok {
		r.logger.Debug("No system message to extend", "stage", "finalize")
		return
	}

	m := &r.req.Messages[i]
	switch {
	case m.Parts != nil:
		m.Parts = append(append([]map[string]any{}, m.Parts...), map[string]any{"type": "text", "text": extra})
	case m.Content == "":
		m.Content = extra
	default:
		m.Content += injection.MergeSeparator + extra
	}
}

// grantTool offers the retrieval tool to the main model too.
func (o *Orchestrator) grantTool(r *run) {
	mt := o.settings.Retrieval.MainTool
	if !mt.Enabled {
		return
	}

	tool, err := tools.ToRequestTool(r.tool)
	if err != nil || tool == nil {
		r.logger.Warn("Cannot grant the retrieval tool", "stage", "finalize", "error", err)
		return
	}

	if name := tools.RequestToolName(tool); !r.req.HasTool(name) {
		r.req.Tools = append(r.req.Tools, tool)
	}
	r.req.ToolChoice = string(mt.Choice)
}

func (r *run) skip(reason string) Outcome {
	r.logger.Debug("Pipeline skipped", "reason", reason)
	return Outcome{RunID: r.id, Status: StatusSkipped, Reason: reason}
}

func (r *run) fail(stage string, err error) Outcome {
	r.logger.Error("Pipeline failed", "stage", stage, "error", err)
	return Outcome{RunID: r.id, Status: StatusFailed, Err: err}
}
