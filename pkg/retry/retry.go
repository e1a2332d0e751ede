// Package retry re-runs failed operations with a configurable backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/cloudposse/weave/pkg/schema"
)

// Func represents a function that can be retried.
type Func func() error

// Executor handles the retry logic.
type Executor struct {
	config schema.RetrySettings
	rand   *rand.Rand
}

// New creates a new retry executor with the given config. A config without attempts
// runs the function once.
func New(config schema.RetrySettings) *Executor {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	return &Executor{
		config: config,
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

type MaxElapsedTimeError struct {
	MaxElapsedTime time.Duration
	Last           error
}

func (e MaxElapsedTimeError) Error() string {
	return fmt.Sprintf("retry timeout exceeded after %v: %v", e.MaxElapsedTime, e.Last)
}

func (e MaxElapsedTimeError) Unwrap() error {
	return e.Last
}

// ExecuteWithPredicate retries only errors for which shouldRetry returns true.
func (e *Executor) ExecuteWithPredicate(ctx context.Context, fn Func, shouldRetry func(error) bool) error {
	startTime := time.Now()

	var err error
	for attempt := 1; attempt <= e.config.MaxAttempts; attempt++ {
		if attempt > 1 && e.config.MaxElapsedTime > 0 && time.Since(startTime) > e.config.MaxElapsedTime {
			return MaxElapsedTimeError{MaxElapsedTime: e.config.MaxElapsedTime, Last: err}
		}

		err = fn()
		if err == nil {
			return nil
		}

		if !shouldRetry(err) {
			return err
		}

		if attempt == e.config.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled during retry: %w", errors.Join(ctx.Err(), err))
		case <-time.After(e.calculateDelay(attempt)):
		}
	}

	if e.config.MaxAttempts == 1 {
		return err
	}
	return fmt.Errorf("max attempts (%d) exceeded, last error: %w", e.config.MaxAttempts, err)
}

const jitterFlipChance = 0.5

// calculateDelay calculates the delay for the next retry attempt.
func (e *Executor) calculateDelay(attempt int) time.Duration {
	var delay time.Duration

	switch e.config.BackoffStrategy {
	case schema.BackoffLinear:
		delay = time.Duration(float64(e.config.InitialDelay) * float64(attempt))
	case schema.BackoffExponential:
		multiplier := e.config.Multiplier
		if multiplier <= 0 {
			multiplier = 2
		}
		delay = time.Duration(float64(e.config.InitialDelay) * math.Pow(multiplier, float64(attempt-1)))
	default:
		delay = e.config.InitialDelay
	}

	if e.config.MaxDelay > 0 && delay > e.config.MaxDelay {
		delay = e.config.MaxDelay
	}

	// 10% jitter either way.
	if e.config.RandomJitter {
		jitter := time.Duration(e.rand.Float64() * float64(delay) * 0.1)
		if e.rand.Float64() < jitterFlipChance {
			delay += jitter
		} else {
			delay -= jitter
		}
		if delay < 0 {
			delay = 0
		}
	}

	return delay
}

const (
	defaultInitialDelay   = 500 * time.Millisecond
	defaultMaxDelay       = 5 * time.Second
	defaultMaxElapsedTime = 2 * time.Minute
)

// DefaultConfig returns a single-attempt configuration with exponential backoff.
func DefaultConfig() schema.RetrySettings {
	return schema.RetrySettings{
		MaxAttempts:     1,
		BackoffStrategy: schema.BackoffExponential,
		InitialDelay:    defaultInitialDelay,
		MaxDelay:        defaultMaxDelay,
		RandomJitter:    true,
		Multiplier:      2.0,
		MaxElapsedTime:  defaultMaxElapsedTime,
	}
}
