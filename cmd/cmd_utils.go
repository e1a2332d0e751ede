package cmd

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	errUtils "github.com/cloudposse/weave/errors"
	"github.com/cloudposse/weave/pkg/ai/macro"
	"github.com/cloudposse/weave/pkg/request"
	"github.com/cloudposse/weave/pkg/schema"
)

// readBody reads a chat-completion body from a file, or from stdin when path is "-".
func readBody(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" || path == "-" {
		body, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, errUtils.Build(errUtils.ErrInvalidRequestBody).WithCause(err).WithContext("file", "stdin").Err()
		}
		return body, nil
	}

	body, err := os.ReadFile(path)
	if err != nil {
		return nil, errUtils.Build(errUtils.ErrInvalidRequestBody).
			WithCause(err).
			WithContext("file", path).
			WithExitCode(errUtils.ExitCodeUsage).
			Err()
	}
	return body, nil
}

// readRequest reads and decodes a chat-completion body.
func readRequest(cmd *cobra.Command, path string) ([]byte, *request.Request, error) {
	body, err := readBody(cmd, path)
	if err != nil {
		return nil, nil, err
	}
	req, err := request.FromBody(body)
	if err != nil {
		return nil, nil, err
	}
	return body, req, nil
}

// macroContext builds the template context for a conversation from the configured character.
func macroContext(settings *schema.Settings, req *request.Request) macro.Context {
	c := settings.Character
	ctx := macro.Context{
		CharacterName: c.Name,
		UserName:      settings.UserName,
		Description:   c.Description,
		Personality:   c.Personality,
		Scenario:      c.Scenario,
	}
	if req != nil {
		ctx.History = req.Messages
	}
	return ctx
}
