// Package filter evaluates the named request conditions that gate a retrieval run.
package filter

import (
	"fmt"
	"sort"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	errUtils "github.com/cloudposse/weave/errors"
	"github.com/cloudposse/weave/pkg/ai/types"
)

// Env is the data a filter expression sees.
type Env struct {
	ChatID        string `expr:"chatId"`
	CharacterName string `expr:"characterName"`
	UserName      string `expr:"userName"`
	MessageCount  int    `expr:"messageCount"`
	LastRole      string `expr:"lastRole"`
	LastMessage   string `expr:"lastMessage"`
	DryRun        bool   `expr:"dryRun"`
}

// NewEnv describes a conversation for filter evaluation.
func NewEnv(chatID, characterName, userName string, messages []types.Message, dryRun bool) Env {
	env := Env{
		ChatID:        chatID,
		CharacterName: characterName,
		UserName:      userName,
		MessageCount:  len(messages),
		DryRun:        dryRun,
	}
	if n := len(messages); n > 0 {
		env.LastRole = string(messages[n-1].Role)
		env.LastMessage = messages[n-1].Content
	}
	return env
}

// Set holds compiled filters by id.
type Set struct {
	programs map[string]*vm.Program
}

// Compile compiles every filter. Expressions must evaluate to a boolean.
func Compile(filters map[string]string) (*Set, error) {
	ids := make([]string, 0, len(filters))
	for id := range filters {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	set := &Set{programs: make(map[string]*vm.Program, len(filters))}
	for _, id := range ids {
		program, err := expr.Compile(filters[id], expr.Env(Env{}), expr.AsBool())
		if err != nil {
			return nil, errUtils.Build(errUtils.ErrInvalidFilterExpression).
				WithCause(err).
				WithContext("filter", id).
				WithHintf("settings.retrieval.filters.%s must be a boolean expression", id).
				WithExitCode(errUtils.ExitCodeUsage).
				Err()
		}
		set.programs[id] = program
	}
	return set, nil
}

// Has reports whether a filter id is defined.
func (s *Set) Has(id string) bool {
	_, ok := s.programs[id]
	return ok
}

// Match evaluates the filter with the given id.
func (s *Set) Match(id string, env Env) (bool, error) {
	program, ok := s.programs[id]
	if !ok {
		return false, fmt.Errorf("%w: %s", errUtils.ErrFilterNotFound, id)
	}

	out, err := expr.Run(program, env)
	if err != nil {
		return false, errUtils.Build(errUtils.ErrFilterEvaluation).WithCause(err).WithContext("filter", id).Err()
	}

	matched, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s returned %T", errUtils.ErrFilterEvaluation, id, out)
	}
	return matched, nil
}
