// internal/engine/executor_test.go
package engine

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/d3vnull/restitch/api/schemas"
)

// newTestExecutor builds an executor with a seeded rng and a sleep that
// records delays instead of waiting.
func newTestExecutor(t *testing.T, page *fakePage, cfg schemas.RetryConfig) (*Executor, *[]time.Duration) {
	t.Helper()
	dispatcher := NewDispatcher(page, zaptest.NewLogger(t))
	executor := NewExecutor(dispatcher, cfg, zaptest.NewLogger(t))
	executor.rng = rand.New(rand.NewSource(1))

	var delays []time.Duration
	executor.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	return executor, &delays
}

func clickAction(selector string) schemas.Action {
	return schemas.NewAction(schemas.ActionClick, schemas.SelectorTarget{Selector: selector}, "")
}

func TestExecutor_SuccessDispatchesOnce(t *testing.T) {
	page := newFakePage()
	executor, delays := newTestExecutor(t, page, schemas.DefaultRetryConfig())

	result := executor.ExecuteAction(context.Background(), clickAction("#ok"))

	assert.True(t, result.Success)
	assert.Equal(t, 1, page.calls("Click"))
	assert.Empty(t, *delays)
}

func TestExecutor_RetriesUntilSuccess(t *testing.T) {
	page := newFakePage()
	failures := 2
	page.clickFn = func(selector string) error {
		if failures > 0 {
			failures--
			return errors.New("could not find node for #flaky")
		}
		return nil
	}
	executor, delays := newTestExecutor(t, page,
		schemas.RetryConfig{MaxAttempts: 5, BackoffMs: 100, Strategy: schemas.BackoffLinear})

	result := executor.ExecuteAction(context.Background(), clickAction("#flaky"))

	assert.True(t, result.Success)
	assert.Equal(t, 3, page.calls("Click"))
	// Linear backoff between the failed attempts: 100ms then 200ms.
	require.Len(t, *delays, 2)
	assert.Equal(t, 100*time.Millisecond, (*delays)[0])
	assert.Equal(t, 200*time.Millisecond, (*delays)[1])
}

func TestExecutor_ExhaustsBudgetOnPersistentFailure(t *testing.T) {
	page := newFakePage()
	page.clickFn = func(selector string) error {
		return errors.New("element #gone not found")
	}
	executor, _ := newTestExecutor(t, page,
		schemas.RetryConfig{MaxAttempts: 3, Strategy: schemas.BackoffImmediate})

	result := executor.ExecuteAction(context.Background(), clickAction("#gone"))

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "not found")
	assert.Equal(t, 3, page.calls("Click"))
}

func TestExecutor_NonRetryableStopsImmediately(t *testing.T) {
	page := newFakePage()
	page.clickFn = func(selector string) error {
		return errors.New("'##' is not a valid selector")
	}
	executor, delays := newTestExecutor(t, page,
		schemas.RetryConfig{MaxAttempts: 5, Strategy: schemas.BackoffImmediate})

	result := executor.ExecuteAction(context.Background(), clickAction("##"))

	assert.False(t, result.Success)
	assert.Equal(t, 1, page.calls("Click"), "terminal failures must not retry")
	assert.Empty(t, *delays)
}

// Contract errors from the dispatcher fold into a uniform failed result with
// no page time accrued, and never retry.
func TestExecutor_ContractErrorFoldsIntoResult(t *testing.T) {
	page := newFakePage()
	executor, _ := newTestExecutor(t, page, schemas.DefaultRetryConfig())

	action := schemas.NewAction(schemas.ActionClick,
		schemas.DescriptionTarget{Description: "the login button"}, "")
	result := executor.ExecuteAction(context.Background(), action)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "semantic resolution")
	assert.Zero(t, result.DurationMs)
	assert.Zero(t, page.calls("Click"))
}

func TestExecutor_RetriesHintOverridesDefaults(t *testing.T) {
	page := newFakePage()
	page.clickFn = func(selector string) error {
		return errors.New("not visible yet")
	}
	executor, _ := newTestExecutor(t, page,
		schemas.RetryConfig{MaxAttempts: 3, Strategy: schemas.BackoffImmediate})

	action := clickAction("#slow")
	action.Options.Retries = 5
	result := executor.ExecuteAction(context.Background(), action)

	assert.False(t, result.Success)
	assert.Equal(t, 5, page.calls("Click"))
}

func TestExecutor_ExecuteSequence(t *testing.T) {
	newPlan := func() []schemas.Action {
		return []schemas.Action{
			clickAction("#first"),
			clickAction("#breaks"),
			clickAction("#third"),
		}
	}
	failSecond := func(page *fakePage) {
		page.clickFn = func(selector string) error {
			if selector == "#breaks" {
				return errors.New("'#breaks' is not a valid selector")
			}
			return nil
		}
	}

	t.Run("StopOnErrorTruncates", func(t *testing.T) {
		page := newFakePage()
		failSecond(page)
		executor, _ := newTestExecutor(t, page, schemas.DefaultRetryConfig())

		results := executor.ExecuteSequence(context.Background(), newPlan(), SequenceOptions{StopOnError: true})

		require.Len(t, results, 2)
		assert.True(t, results[0].Success)
		assert.False(t, results[1].Success)
		assert.Equal(t, 2, page.calls("Click"), "third action must never dispatch")
	})

	t.Run("StopOnErrorFirstActionFails", func(t *testing.T) {
		page := newFakePage()
		page.clickFn = func(selector string) error {
			if selector == "#first" {
				return errors.New("'#first' is not a valid selector")
			}
			return nil
		}
		executor, _ := newTestExecutor(t, page, schemas.DefaultRetryConfig())

		results := executor.ExecuteSequence(context.Background(),
			[]schemas.Action{clickAction("#first"), clickAction("#second")},
			SequenceOptions{StopOnError: true})

		require.Len(t, results, 1)
		assert.False(t, results[0].Success)
		assert.Equal(t, 1, page.calls("Click"))
	})

	t.Run("ContinueOnErrorRunsAll", func(t *testing.T) {
		page := newFakePage()
		failSecond(page)
		executor, _ := newTestExecutor(t, page, schemas.DefaultRetryConfig())

		results := executor.ExecuteSequence(context.Background(), newPlan(), SequenceOptions{})

		require.Len(t, results, 3)
		assert.True(t, results[0].Success)
		assert.False(t, results[1].Success)
		assert.True(t, results[2].Success)
	})

	t.Run("EmptyPlan", func(t *testing.T) {
		page := newFakePage()
		executor, _ := newTestExecutor(t, page, schemas.DefaultRetryConfig())

		results := executor.ExecuteSequence(context.Background(), nil, SequenceOptions{StopOnError: true})
		assert.Empty(t, results)
	})
}
