// Package poller drives long-running generation operations: submit with
// bounded retry on overload, then poll on a fixed interval up to a
// maximum total wait.
package poller

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/scribeworks/vidscribe/internal/config"
	"github.com/scribeworks/vidscribe/internal/domain"
	"github.com/scribeworks/vidscribe/pkg/gemini"
)

// OperationGetter refreshes the state of an operation handle.
type OperationGetter interface {
	GetOperation(ctx context.Context, name, apiKey string) (*gemini.Operation, error)
}

// State is the terminal state of a polled operation.
type State string

const (
	StateSuccess  State = "success"
	StateEmpty    State = "empty"    // finished, no artifacts, no filter reason
	StateFiltered State = "filtered" // all artifacts removed by safety filters
	StateError    State = "error"
	StateTimeout  State = "timeout" // still running after max wait; resubmission may succeed
)

// Outcome is the result of waiting for an operation.
type Outcome struct {
	State         State
	Operation     *gemini.Operation
	FilterReasons []string
	Err           error
}

// SleepFunc waits for the given duration or until ctx is cancelled.
// Injectable so tests do not sleep real wall-clock time.
type SleepFunc func(ctx context.Context, d time.Duration) error

func defaultSleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Poller waits for long-running operations to finish.
type Poller struct {
	ops      OperationGetter
	interval time.Duration
	maxWait  time.Duration
	sleep    SleepFunc
	logger   *slog.Logger
}

// New creates a poller bounded by the generation config.
func New(ops OperationGetter, cfg config.GenerationConfig, logger *slog.Logger) *Poller {
	return &Poller{
		ops:      ops,
		interval: cfg.PollInterval,
		maxWait:  cfg.MaxWait,
		sleep:    defaultSleep,
		logger:   logger,
	}
}

// SetSleep replaces the sleep function. Used by tests.
func (p *Poller) SetSleep(sleep SleepFunc) {
	p.sleep = sleep
}

// Wait polls the operation until it finishes or the wait budget runs out,
// then classifies the terminal state.
func (p *Poller) Wait(ctx context.Context, op *gemini.Operation, apiKey string) Outcome {
	elapsed := time.Duration(0)

	for !op.Done && elapsed < p.maxWait {
		if err := p.sleep(ctx, p.interval); err != nil {
			return Outcome{State: StateError, Operation: op, Err: err}
		}
		elapsed += p.interval

		p.logger.Info("polling generation operation",
			"operation", op.Name, "elapsed", elapsed)

		refreshed, err := p.ops.GetOperation(ctx, op.Name, apiKey)
		if err != nil {
			return Outcome{State: StateError, Operation: op, Err: err}
		}
		op = refreshed
	}

	if !op.Done {
		return Outcome{State: StateTimeout, Operation: op, Err: domain.ErrGenerationTimeout}
	}

	if op.Error != nil {
		return Outcome{State: StateError, Operation: op, Err: op.Error}
	}

	if op.Response == nil {
		return Outcome{State: StateEmpty, Operation: op, Err: domain.ErrGenerationEmpty}
	}

	if len(op.Response.VideoURIs()) == 0 {
		if reasons := op.Response.FilteredReasons(); len(reasons) > 0 {
			return Outcome{
				State:         StateFiltered,
				Operation:     op,
				FilterReasons: reasons,
				Err:           domain.ErrGenerationFiltered,
			}
		}
		return Outcome{State: StateEmpty, Operation: op, Err: domain.ErrGenerationEmpty}
	}

	return Outcome{State: StateSuccess, Operation: op}
}

// SubmitWithRetry runs fn up to maxAttempts times, waiting backoff between
// attempts, but only when the failure is a model overload. Quota
// exhaustion and every other error class abort immediately.
func SubmitWithRetry[T any](
	ctx context.Context,
	maxAttempts int,
	backoff time.Duration,
	sleep SleepFunc,
	fn func() (T, error),
) (T, error) {
	var zero T
	var lastErr error

	if sleep == nil {
		sleep = defaultSleep
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}

		lastErr = err

		if !errors.Is(err, domain.ErrModelOverloaded) {
			return zero, err
		}

		// Don't wait after the last attempt
		if attempt == maxAttempts-1 {
			break
		}

		if err := sleep(ctx, backoff); err != nil {
			return zero, err
		}
	}

	return zero, lastErr
}
