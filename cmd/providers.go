package cmd

import (
	// Import providers to trigger registration.
	_ "github.com/cloudposse/weave/pkg/ai/agent/anthropic"
	_ "github.com/cloudposse/weave/pkg/ai/agent/bedrock"
	_ "github.com/cloudposse/weave/pkg/ai/agent/gemini"
	_ "github.com/cloudposse/weave/pkg/ai/agent/openai"
)
