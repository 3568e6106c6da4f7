// internal/engine/executor.go
package engine

import (
	"context"
	"math/rand"
	"time"

	"github.com/d3vnull/restitch/api/schemas"
	"go.uber.org/zap"
)

// Executor wraps the dispatcher in the retry loop: every failure is
// classified, retryable ones back off and go again, terminal ones stop
// immediately. Every caller facing path returns an ActionResult; dispatcher
// errors are folded into the same uniform shape.
type Executor struct {
	dispatcher *Dispatcher
	defaults   schemas.RetryConfig
	logger     *zap.Logger
	rng        *rand.Rand
	// sleep is swappable so tests can record delays instead of waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// SequenceOptions controls ordered sequence execution.
type SequenceOptions struct {
	// StopOnError truncates the sequence at the first failed action; later
	// actions are never dispatched.
	StopOnError bool
}

// NewExecutor creates an executor around a dispatcher. The defaults apply
// whenever a caller passes no explicit retry config.
func NewExecutor(dispatcher *Dispatcher, defaults schemas.RetryConfig, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		dispatcher: dispatcher,
		defaults:   defaults.Normalize(),
		logger:     logger.Named("executor"),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:      sleepCtx,
	}
}

// ExecuteAction runs a single action under the engine defaults. The
// action's retry count hint, when set, overrides the attempt budget.
func (e *Executor) ExecuteAction(ctx context.Context, action schemas.Action) schemas.ActionResult {
	return e.ExecuteWithRetry(ctx, action, e.retryConfigFor(action))
}

// ExecuteWithRetry runs the action for up to cfg.MaxAttempts attempts.
// A success returns immediately with no further dispatch calls. Failures
// are classified by message; non-retryable kinds stop at once even when
// attempts remain. The final failure is returned when the budget runs out.
func (e *Executor) ExecuteWithRetry(ctx context.Context, action schemas.Action, cfg schemas.RetryConfig) schemas.ActionResult {
	cfg = cfg.Normalize()

	var last schemas.ActionResult
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		result, err := e.dispatcher.Execute(ctx, action)
		if err != nil {
			// Contract errors never reach the page, so no duration accrued.
			result = schemas.ActionResult{
				Error:     err.Error(),
				Timestamp: time.Now(),
			}
		}
		if result.Success {
			return result
		}
		last = result

		kind := Classify(result.Error)
		if !Retryable(kind) {
			e.logger.Debug("Failure is terminal, not retrying",
				zap.String("kind", string(kind)),
				zap.String("error", result.Error))
			return result
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		delay := backoffDelay(attempt, cfg, e.rng)
		e.logger.Debug("Retrying action",
			zap.String("action", string(action.Kind)),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", cfg.MaxAttempts),
			zap.Duration("backoff", delay))
		if err := e.sleep(ctx, delay); err != nil {
			// Context ended during backoff; the last failure stands.
			return last
		}
	}

	e.logger.Warn("Retries exhausted",
		zap.String("action", string(action.Kind)),
		zap.Int("attempts", cfg.MaxAttempts),
		zap.String("error", last.Error))
	return last
}

// ExecuteSequence runs actions strictly in order. Later actions may depend
// on DOM state produced by earlier ones, so dispatch is never concurrent.
// With StopOnError the result slice is truncated at the first failure; with
// it off every action runs and all results come back, order preserved.
func (e *Executor) ExecuteSequence(ctx context.Context, actions []schemas.Action, opts SequenceOptions) []schemas.ActionResult {
	results := make([]schemas.ActionResult, 0, len(actions))
	for i, action := range actions {
		result := e.ExecuteWithRetry(ctx, action, e.retryConfigFor(action))
		results = append(results, result)
		if !result.Success && opts.StopOnError {
			e.logger.Warn("Sequence halted on failure",
				zap.Int("index", i),
				zap.Int("total", len(actions)),
				zap.String("error", result.Error))
			break
		}
	}
	return results
}

// retryConfigFor derives the per action budget: the engine defaults, with
// the action's retry count hint taking precedence when present.
func (e *Executor) retryConfigFor(action schemas.Action) schemas.RetryConfig {
	cfg := e.defaults
	if action.Options.Retries > 0 {
		cfg.MaxAttempts = action.Options.Retries
	}
	return cfg
}
