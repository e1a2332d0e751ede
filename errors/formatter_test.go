package errors

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, ExitCodeSuccess},
		{"plain error", errors.New("boom"), ExitCodeFailure},
		{"with exit code", WithExitCode(errors.New("boom"), 3), 3},
		{"built error", Build(ErrReadConfig).WithExitCode(ExitCodeUsage).Err(), ExitCodeUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetExitCode(tt.err))
		})
	}
}

func TestWithExitCode_Nil(t *testing.T) {
	assert.Nil(t, WithExitCode(nil, 2))
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		config      FormatterConfig
		contains    []string
		notContains []string
	}{
		{
			name:     "nil error",
			err:      nil,
			config:   FormatterConfig{Color: "never", MaxLineLength: 80},
			contains: nil,
		},
		{
			name:        "message with hint",
			err:         Build(ErrProviderNotConfigured).WithHint("add the target under settings.providers").Err(),
			config:      FormatterConfig{Color: "never", MaxLineLength: 80},
			contains:    []string{"retrieval target is not configured", "hint: add the target under settings.providers"},
			notContains: []string{"context:"},
		},
		{
			name:        "explanation is shown",
			err:         Build(ErrFilterNotFound).WithExplanation("the filter named by settings.retrieval.filter is missing").Err(),
			config:      FormatterConfig{Color: "never"},
			contains:    []string{"filter not found", "settings.retrieval.filter is missing"},
			notContains: []string{"hint:"},
		},
		{
			name:     "verbose includes context",
			err:      Build(ErrRetrievalFailed).WithContext("target", "vertex").Err(),
			config:   FormatterConfig{Verbose: true, Color: "never", MaxLineLength: 80},
			contains: []string{"retrieval request failed", "context:", "target"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Format(tt.err, tt.config)
			if tt.err == nil {
				assert.Empty(t, out)
				return
			}
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.notContains {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestFormat_ContextOrder(t *testing.T) {
	err := Build(ErrRetrievalFailed).
		WithContext("target", "vertex").
		WithContext("model", "gemini").
		WithContext("target", "bedrock").
		Err()

	out := Format(err, FormatterConfig{Verbose: true, Color: "never"})
	assert.Contains(t, out, "context:\n  target: bedrock\n  model: gemini")
}

func TestWrapText(t *testing.T) {
	assert.Equal(t, "aaa bbb\nccc", wrapText("aaa bbb ccc", 7))
	assert.Equal(t, "single", wrapText("single", 0))
}

func TestCheckErrorPrintAndExit(t *testing.T) {
	var buf bytes.Buffer
	oldStderr, oldExit := stderr, OsExit
	defer func() {
		stderr, OsExit = oldStderr, oldExit
	}()

	stderr = &buf
	exitCode := -1
	OsExit = func(code int) { exitCode = code }

	CheckErrorPrintAndExit(WithExitCode(errors.New("fatal problem"), 4))

	assert.Equal(t, 4, exitCode)
	assert.Contains(t, buf.String(), "fatal problem")

	exitCode = -1
	CheckErrorPrintAndExit(nil)
	assert.Equal(t, -1, exitCode)
}
