package errors

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// contextPair is one key=value entry attached with WithContext.
type contextPair struct {
	key   string
	value any
}

// ErrorBuilder assembles an error from a sentinel plus cause, hints, context and exit code.
type ErrorBuilder struct {
	err       error
	cause     error
	hints     []string
	context   []contextPair
	exitCode  *int
	sentinels []error
}

// Build starts an error from err. A leaf err (one that wraps nothing) is kept as a
// sentinel, so errors.Is still matches it once the builder has wrapped it.
func Build(err error) *ErrorBuilder {
	b := &ErrorBuilder{err: err}
	if err != nil && errors.UnwrapOnce(err) == nil {
		b.sentinels = []error{err}
	}
	return b
}

// WithCause records what triggered the error. The cause message follows the sentinel
// message and the cause stays reachable through errors.Is and errors.As.
func (b *ErrorBuilder) WithCause(cause error) *ErrorBuilder {
	b.cause = cause
	return b
}

func (b *ErrorBuilder) WithHint(hint string) *ErrorBuilder {
	b.hints = append(b.hints, hint)
	return b
}

func (b *ErrorBuilder) WithHintf(format string, args ...any) *ErrorBuilder {
	return b.WithHint(fmt.Sprintf(format, args...))
}

// WithExplanation attaches a longer detail shown below the message.
func (b *ErrorBuilder) WithExplanation(explanation string) *ErrorBuilder {
	b.err = errors.WithDetail(b.err, explanation)
	return b
}

// WithContext attaches a key=value pair, rendered in verbose output. Pairs keep the
// order they were added in; setting a key again replaces its value.
func (b *ErrorBuilder) WithContext(key string, value any) *ErrorBuilder {
	for i := range b.context {
		if b.context[i].key == key {
			b.context[i].value = value
			return b
		}
	}
	b.context = append(b.context, contextPair{key: key, value: value})
	return b
}

func (b *ErrorBuilder) WithExitCode(code int) *ErrorBuilder {
	b.exitCode = &code
	return b
}

// WithSentinel marks the error so errors.Is also matches sentinel.
func (b *ErrorBuilder) WithSentinel(sentinel error) *ErrorBuilder {
	b.sentinels = append(b.sentinels, sentinel)
	return b
}

// Err returns the assembled error, or nil when the builder started from nil.
func (b *ErrorBuilder) Err() error {
	if b.err == nil {
		return nil
	}

	err := b.err
	if b.cause != nil {
		err = fmt.Errorf("%w: %w", err, b.cause)
	}

	for _, hint := range b.hints {
		err = errors.WithHint(err, hint)
	}

	if len(b.context) > 0 {
		format := make([]string, len(b.context))
		values := make([]any, len(b.context))
		for i, pair := range b.context {
			format[i] = pair.key + "=%s"
			values[i] = errors.Safe(pair.value)
		}
		err = errors.WithSafeDetails(err, strings.Join(format, " "), values...)
	}

	// Marks are applied last so they sit on the outermost layer.
	for _, sentinel := range b.sentinels {
		err = errors.Mark(err, sentinel)
	}

	if b.exitCode != nil {
		err = WithExitCode(err, *b.exitCode)
	}
	return err
}
