package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	errUtils "github.com/cloudposse/weave/errors"
	"github.com/cloudposse/weave/pkg/ai/pipeline"
	"github.com/cloudposse/weave/pkg/ai/types"
)

// newCompletionServer answers chat completions with content and records the last request body.
func newCompletionServer(t *testing.T, content string, body *[]byte) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": 1699999999,
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{
				{
					"index":         0,
					"message":       map[string]any{"role": "assistant", "content": content},
					"finish_reason": "stop",
				},
			},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func retrievalConfig(baseURL string) string {
	return fmt.Sprintf(`
settings:
  character:
    name: Seraphina
  providers:
    lore:
      type: openai
      model: gpt-4o-mini
      api_key_env: WEAVE_CMD_TEST_KEY
      base_url: %s
  retrieval:
    enabled: true
    target: lore
    custom_parameters: '{"type": "object", "properties": {"query": {"type": "string"}}}'
    templates:
      user: "{{messages:-2:-1}}"
      injection: "[Context] {{retrievedContext}}"
    injection:
      role: system
      position: depth
      depth: -1
`, baseURL)
}

func TestRunCmd(t *testing.T) {
	t.Setenv("WEAVE_CMD_TEST_KEY", "sk-test")

	var sent []byte
	server := newCompletionServer(t, "The sword is cursed.", &sent)
	config := writeFile(t, "weave.yaml", retrievalConfig(server.URL))

	out, err := execute(t, testBody, "run", "--config", config)
	require.NoError(t, err)

	assert.Equal(t, int64(5), gjson.Get(out, "messages.#").Int())
	assert.Equal(t, "[Context] The sword is cursed.", gjson.Get(out, "messages.3.content").String())
	assert.Equal(t, "system", gjson.Get(out, "messages.3.role").String())
	assert.Equal(t, "Tell me about the sword.", gjson.Get(out, "messages.4.content").String())

	assert.Equal(t, "gpt-4o-mini", gjson.GetBytes(sent, "model").String())
	assert.Equal(t, "Assistant: hey", gjson.GetBytes(sent, "messages.1.content").String())
	assert.Equal(t, "search", gjson.GetBytes(sent, "tools.0.function.name").String())
}

func TestRunCmd_Disabled(t *testing.T) {
	config := writeFile(t, "weave.yaml", "settings:\n  retrieval:\n    enabled: false\n")

	out, err := execute(t, testBody, "run", "--config", config)
	require.NoError(t, err)

	assert.Equal(t, gjson.Get(testBody, "messages|@ugly").Raw, gjson.Get(out, "messages|@ugly").Raw)
}

const toolCallBody = `{
  "model": "gpt-4o",
  "messages": [
    {"role": "system", "content": "You are Seraphina."},
    {"role": "user", "content": "Roll for me."},
    {"role": "assistant", "content": null, "tool_calls": [{"id": "c1", "type": "function", "function": {"name": "roll_dice", "arguments": "{}"}}]},
    {"role": "tool", "tool_call_id": "c1", "content": "42"},
    {"role": "user", "content": "Tell me about the sword."}
  ]
}`

func TestRunCmd_ToolCallBody(t *testing.T) {
	t.Run("skipped run prints the body as read", func(t *testing.T) {
		config := writeFile(t, "weave.yaml", "settings:\n  retrieval:\n    enabled: false\n")

		out, err := execute(t, toolCallBody, "run", "--config", config)
		require.NoError(t, err)
		assert.Equal(t, toolCallBody+"\n", out)
	})

	t.Run("injection keeps tool fields", func(t *testing.T) {
		t.Setenv("WEAVE_CMD_TEST_KEY", "sk-test")

		var sent []byte
		server := newCompletionServer(t, "The sword is cursed.", &sent)
		config := writeFile(t, "weave.yaml", retrievalConfig(server.URL))

		out, err := execute(t, toolCallBody, "run", "--config", config)
		require.NoError(t, err)

		root := gjson.Parse(out)
		assert.Equal(t, int64(6), root.Get("messages.#").Int())
		assert.Equal(t, "c1", root.Get("messages.2.tool_calls.0.id").String())
		assert.Equal(t, gjson.Null, root.Get("messages.2.content").Type)
		assert.Equal(t, "c1", root.Get("messages.3.tool_call_id").String())
		assert.Equal(t, "[Context] The sword is cursed.", root.Get("messages.4.content").String())
		assert.Equal(t, "Tell me about the sword.", root.Get("messages.5.content").String())
	})
}

func TestRunCmd_RetrievalFailureKeepsBody(t *testing.T) {
	t.Setenv("WEAVE_CMD_TEST_KEY", "sk-test")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "bad key"}}`, http.StatusUnauthorized)
	}))
	t.Cleanup(server.Close)
	config := writeFile(t, "weave.yaml", retrievalConfig(server.URL))

	out, err := execute(t, testBody, "run", "--config", config)
	require.NoError(t, err)
	assert.Equal(t, int64(4), gjson.Get(out, "messages.#").Int())
}

func TestRunCmd_RetriesTransientFailures(t *testing.T) {
	t.Setenv("WEAVE_CMD_TEST_KEY", "sk-test")

	var sent []byte
	answer := newCompletionServer(t, "The sword is cursed.", &sent)
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, `{"error": {"message": "overloaded"}}`, http.StatusServiceUnavailable)
			return
		}
		answer.Config.Handler.ServeHTTP(w, r)
	}))
	t.Cleanup(server.Close)

	config := writeFile(t, "weave.yaml", retrievalConfig(server.URL)+`    retry:
      max_attempts: 2
      backoff_strategy: constant
      initial_delay: 1ms
`)

	out, err := execute(t, testBody, "run", "--config", config)
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
	assert.Equal(t, "[Context] The sword is cursed.", gjson.Get(out, "messages.3.content").String())
}

func TestRunCmd_LockFile(t *testing.T) {
	t.Setenv("WEAVE_CMD_TEST_KEY", "sk-test")

	var sent []byte
	server := newCompletionServer(t, "The sword is cursed.", &sent)
	lockPath := filepath.Join(t.TempDir(), "weave.lock")
	config := writeFile(t, "weave.yaml", retrievalConfig(server.URL)+"    lock_file: "+lockPath+"\n")

	held := pipeline.NewFileLock(lockPath)
	require.True(t, held.TryAcquire())

	out, err := execute(t, testBody, "run", "--config", config)
	require.NoError(t, err)
	assert.Equal(t, int64(4), gjson.Get(out, "messages.#").Int(), "skipped while another process holds the lock")
	assert.Empty(t, sent)

	held.Release()

	out, err = execute(t, testBody, "run", "--config", config)
	require.NoError(t, err)
	assert.Equal(t, int64(5), gjson.Get(out, "messages.#").Int())
}

func TestRunCmd_Diff(t *testing.T) {
	t.Setenv("WEAVE_CMD_TEST_KEY", "sk-test")

	var sent []byte
	server := newCompletionServer(t, "The sword is cursed.", &sent)
	config := writeFile(t, "weave.yaml", retrievalConfig(server.URL))

	out, err := execute(t, testBody, "run", "--diff", "--config", config)
	require.NoError(t, err)

	assert.Contains(t, out, "--- before\n+++ after\n")
	assert.Contains(t, out, "+    [Context] The sword is cursed.\n")
	assert.Contains(t, out, "-[3] user\n")
	assert.NotContains(t, out, `"messages"`)
}

func TestTranscriptDiff_NoChanges(t *testing.T) {
	text := renderTranscript([]types.Message{{Role: types.RoleUser, Content: "hi\nthere", Identifier: types.IdentifierBefore}})

	assert.Equal(t, "[0] user (before-context)\n    hi\n    there\n", text)
	assert.Equal(t, "No changes.\n", transcriptDiff(text, text))
}

func TestRunCmd_InvalidBody(t *testing.T) {
	config := writeFile(t, "weave.yaml", "logs:\n  level: Off\n")

	_, err := execute(t, `{"model": "gpt-4o"}`, "run", "--config", config)
	assert.ErrorIs(t, err, errUtils.ErrMissingMessages)
}
