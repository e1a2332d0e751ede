package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudposse/weave/pkg/schema"
)

// execute retries every error.
func execute(ctx context.Context, e *Executor, fn Func) error {
	return e.ExecuteWithPredicate(ctx, fn, func(error) bool { return true })
}

func fastConfig(attempts int) schema.RetrySettings {
	return schema.RetrySettings{
		MaxAttempts:     attempts,
		BackoffStrategy: schema.BackoffConstant,
		InitialDelay:    time.Millisecond,
		MaxDelay:        10 * time.Millisecond,
		Multiplier:      2.0,
		MaxElapsedTime:  time.Second,
	}
}

func TestExecutor_Execute_Success(t *testing.T) {
	attempts := 0
	err := execute(context.Background(), New(fastConfig(3)), func() error {
		attempts++
		if attempts < 2 {
			return errors.New("temporary error")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestExecutor_Execute_MaxAttemptsExceeded(t *testing.T) {
	expected := errors.New("persistent error")
	attempts := 0

	err := execute(context.Background(), New(fastConfig(3)), func() error {
		attempts++
		return expected
	})

	assert.Equal(t, 3, attempts)
	assert.ErrorIs(t, err, expected)
	assert.Contains(t, err.Error(), "max attempts (3) exceeded")
}

func TestExecutor_SingleAttemptReturnsError(t *testing.T) {
	expected := errors.New("boom")

	for _, attempts := range []int{0, 1} {
		calls := 0
		err := execute(context.Background(), New(fastConfig(attempts)), func() error {
			calls++
			return expected
		})
		assert.Equal(t, expected, err)
		assert.Equal(t, 1, calls)
	}
}

func TestExecutor_Predicate(t *testing.T) {
	permanent := errors.New("permanent")
	attempts := 0

	err := New(fastConfig(5)).ExecuteWithPredicate(context.Background(), func() error {
		attempts++
		return permanent
	}, func(err error) bool { return !errors.Is(err, permanent) })

	assert.Equal(t, permanent, err)
	assert.Equal(t, 1, attempts)
}

func TestExecutor_Execute_ContextCancelled(t *testing.T) {
	config := fastConfig(5)
	config.InitialDelay = 50 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	err := execute(ctx, New(config), func() error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return errors.New("error")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "context cancelled")
	assert.Equal(t, 2, attempts)
}

func TestExecutor_Execute_MaxElapsedTimeExceeded(t *testing.T) {
	config := fastConfig(10)
	config.MaxElapsedTime = 20 * time.Millisecond
	last := errors.New("slow")

	err := execute(context.Background(), New(config), func() error {
		time.Sleep(15 * time.Millisecond)
		return last
	})

	var elapsed MaxElapsedTimeError
	require.ErrorAs(t, err, &elapsed)
	assert.ErrorIs(t, err, last)
	assert.Contains(t, err.Error(), "retry timeout exceeded")
}

func TestExecutor_CalculateDelay(t *testing.T) {
	tests := []struct {
		name     string
		strategy schema.BackoffStrategy
		expected []time.Duration
	}{
		{"constant", schema.BackoffConstant, []time.Duration{100, 100, 100, 100}},
		{"linear", schema.BackoffLinear, []time.Duration{100, 200, 300, 400}},
		{"exponential", schema.BackoffExponential, []time.Duration{100, 200, 400, 800}},
		{"exponential capped", schema.BackoffExponential, []time.Duration{100, 200, 400, 800, 1000, 1000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(schema.RetrySettings{
				BackoffStrategy: tt.strategy,
				InitialDelay:    100 * time.Millisecond,
				MaxDelay:        time.Second,
				Multiplier:      2.0,
			})
			for i, ms := range tt.expected {
				assert.Equal(t, ms*time.Millisecond, e.calculateDelay(i+1), "attempt %d", i+1)
			}
		})
	}
}

func TestExecutor_CalculateDelay_Jitter(t *testing.T) {
	e := New(schema.RetrySettings{
		BackoffStrategy: schema.BackoffConstant,
		InitialDelay:    100 * time.Millisecond,
		RandomJitter:    true,
	})

	for range 50 {
		delay := e.calculateDelay(1)
		assert.GreaterOrEqual(t, delay, 90*time.Millisecond)
		assert.LessOrEqual(t, delay, 110*time.Millisecond)
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, 1, config.MaxAttempts)
	assert.Equal(t, schema.BackoffExponential, config.BackoffStrategy)
	assert.Equal(t, 1, New(schema.RetrySettings{}).config.MaxAttempts)
}
