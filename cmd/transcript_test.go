package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errUtils "github.com/cloudposse/weave/errors"
)

func transcriptConfig(t *testing.T) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "transcript.db")
	return writeFile(t, "weave.yaml", "settings:\n  character:\n    name: Seraphina\n  transcript:\n    path: "+db+"\n")
}

func TestTranscriptCmd(t *testing.T) {
	config := transcriptConfig(t)

	for _, m := range [][]string{
		{"--role", "user", "--content", "hi"},
		{"--role", "assistant", "--content", "hey", "--name", "Seraphina"},
		{"--role", "user", "--content", "Tell me about the sword."},
	} {
		_, err := execute(t, "", append([]string{"transcript", "append", "chat-1", "--config", config}, m...)...)
		require.NoError(t, err)
	}

	out, err := execute(t, "", "transcript", "show", "chat-1", "--config", config)
	require.NoError(t, err)
	assert.Equal(t, "User: hi\n\nAssistant: hey\n\nUser: Tell me about the sword.\n", out)

	out, err = execute(t, "", "transcript", "show", "chat-1", "--last", "1", "--config", config)
	require.NoError(t, err)
	assert.Equal(t, "User: Tell me about the sword.\n", out)

	out, err = execute(t, "", "transcript", "list", "--config", config)
	require.NoError(t, err)
	assert.Contains(t, out, "chat-1\tSeraphina\t3 messages")

	checkpoint := filepath.Join(t.TempDir(), "chat.yaml")
	_, err = execute(t, "", "transcript", "export", "chat-1", "--output", checkpoint, "--config", config)
	require.NoError(t, err)

	out, err = execute(t, "", "transcript", "import", checkpoint, "--chat-id", "chat-2", "--config", config)
	require.NoError(t, err)
	assert.Equal(t, "Imported chat chat-2 (3 messages)\n", out)

	_, err = execute(t, "", "transcript", "delete", "chat-1", "--config", config)
	require.NoError(t, err)

	_, err = execute(t, "", "transcript", "delete", "chat-1", "--config", config)
	assert.ErrorIs(t, err, errUtils.ErrChatNotFound)
}

func TestTranscriptCmd_Prune(t *testing.T) {
	config := transcriptConfig(t)

	_, err := execute(t, "", "transcript", "append", "chat-1", "--content", "hi", "--config", config)
	require.NoError(t, err)

	out, err := execute(t, "", "transcript", "prune", "--older-than", "1h", "--config", config)
	require.NoError(t, err)
	assert.Equal(t, "Deleted 0 chat(s) older than 1h\n", out)

	out, err = execute(t, "", "transcript", "list", "--config", config)
	require.NoError(t, err)
	assert.Contains(t, out, "chat-1")

	_, err = execute(t, "", "transcript", "prune", "--older-than", "soon", "--config", config)
	assert.ErrorIs(t, err, errUtils.ErrInvalidDuration)
}

func TestTranscriptCmd_InvalidRole(t *testing.T) {
	config := transcriptConfig(t)

	_, err := execute(t, "", "transcript", "append", "chat-1", "--role", "narrator", "--content", "x", "--config", config)
	assert.ErrorIs(t, err, errUtils.ErrInvalidRole)
}

func TestRunCmd_RestoresHistoryFromTranscript(t *testing.T) {
	t.Setenv("WEAVE_CMD_TEST_KEY", "sk-test")

	var sent []byte
	server := newCompletionServer(t, "It is cursed.", &sent)
	db := filepath.Join(t.TempDir(), "transcript.db")
	config := writeFile(t, "weave.yaml", retrievalConfig(server.URL)+"  transcript:\n    path: "+db+"\n")

	for _, m := range [][]string{
		{"--role", "user", "--content", "hi"},
		{"--role", "assistant", "--content", "hey"},
		{"--role", "user", "--content", "and the sword?"},
	} {
		_, err := execute(t, "", append([]string{"transcript", "append", "chat-9", "--config", config}, m...)...)
		require.NoError(t, err)
	}

	body := `{"model": "gpt-4o", "messages": [{"role": "system", "content": "You are Seraphina."}]}`
	_, err := execute(t, body, "run", "--chat-id", "chat-9", "--config", config)
	require.NoError(t, err)

	assert.Contains(t, string(sent), "Assistant: hey")
}
