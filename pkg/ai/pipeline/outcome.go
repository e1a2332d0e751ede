package pipeline

import (
	"github.com/cloudposse/weave/pkg/ai/injection"
)

// Status is the terminal state of a run.
type Status string

const (
	// StatusSkipped means a guard stopped the run before any mutation.
	StatusSkipped Status = "skipped"
	// StatusEmpty means the retrieval model returned nothing to inject.
	StatusEmpty Status = "empty"
	// StatusInjected means retrieved context was placed into the conversation.
	StatusInjected Status = "injected"
	// StatusFailed means a collaborator or the configuration failed. Mutations made
	// before the failure are kept.
	StatusFailed Status = "failed"
)

// Reasons a run was skipped.
const (
	ReasonDisabled          = "disabled"
	ReasonBusy              = "busy"
	ReasonNoTarget          = "no-target"
	ReasonFiltered          = "filtered"
	ReasonMissingDataSource = "missing-data-source"
	ReasonMissingParameters = "missing-tool-parameters"
)

// Outcome reports what a run did.
type Outcome struct {
	RunID  string
	Status Status
	Reason string
	Err    error
	// Placement is set when Status is StatusInjected.
	Placement *injection.Placement
	// LoreBefore and LoreAfter hold the blocks the reconciler wrote, if it ran.
	LoreBefore string
	LoreAfter  string
}
