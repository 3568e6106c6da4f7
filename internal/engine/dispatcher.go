// internal/engine/dispatcher.go

// Package engine is the resilient action execution core: a dispatcher that
// routes normalized actions to the page automation collaborator, a retrying
// executor with typed failure classification, and a self-healing resolver
// for selectors that no longer match.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/d3vnull/restitch/api/schemas"
	"go.uber.org/zap"
)

// ErrNeedsResolution signals that an action carries a natural language
// target which cannot be dispatched directly. The caller should run the
// resolver instead of retrying; retrying would loop forever.
var ErrNeedsResolution = errors.New("target requires semantic resolution")

const (
	// probeTimeout bounds the visibility probe used for healing decisions.
	probeTimeout = 100 * time.Millisecond
	// pollInterval is the fixed cadence of WaitForSelector. Each probe has
	// unknown latency, so slight overshoot past the deadline is accepted.
	pollInterval = 100 * time.Millisecond
	// defaultWaitTimeout applies to selector waits with no explicit timeout.
	defaultWaitTimeout = 10 * time.Second
)

// Dispatcher routes actions by kind to the page automation collaborator and
// normalizes every outcome into an ActionResult. Expected runtime failures
// never surface as errors; the error return is reserved for contract
// violations and the ErrNeedsResolution sentinel.
type Dispatcher struct {
	page   schemas.PageAgent
	logger *zap.Logger
}

// NewDispatcher creates a dispatcher bound to one page session.
func NewDispatcher(page schemas.PageAgent, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		page:   page,
		logger: logger.Named("dispatcher"),
	}
}

// Execute performs a single dispatch attempt. Runtime failures are folded
// into the returned result; a non-nil error means the action itself is
// invalid (contract violation) or needs semantic resolution first.
func (d *Dispatcher) Execute(ctx context.Context, action schemas.Action) (schemas.ActionResult, error) {
	if err := action.Validate(); err != nil {
		return schemas.ActionResult{}, err
	}
	if action.RequiresTarget() {
		if _, ok := action.Target.(schemas.DescriptionTarget); ok {
			return schemas.ActionResult{}, fmt.Errorf("%s %q: %w", action.Kind, action.Target.Describe(), ErrNeedsResolution)
		}
	}
	if action.Kind == schemas.ActionEvaluate && strings.TrimSpace(action.Value) == "" {
		return schemas.ActionResult{}, errors.New("evaluate action requires a non-empty script")
	}
	if action.Kind == schemas.ActionNavigate && strings.TrimSpace(action.Value) == "" {
		return schemas.ActionResult{}, errors.New("navigate action requires a non-empty url")
	}

	opCtx := ctx
	if t := action.Options.Timeout(); t > 0 {
		var cancel context.CancelFunc
		opCtx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}

	start := time.Now()
	data, err := d.dispatch(opCtx, action)
	result := schemas.ActionResult{
		Timestamp:  time.Now(),
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		result.Error = err.Error()
		d.logger.Debug("Action dispatch failed",
			zap.String("kind", string(action.Kind)),
			zap.Error(err))
		return result, nil
	}

	result.Success = true
	result.Data = data

	if wait := action.Options.PostActionWait(); wait > 0 {
		if err := sleepCtx(ctx, wait); err != nil {
			// The action itself succeeded; report it as such.
			d.logger.Debug("Post-action wait interrupted", zap.Error(err))
		}
	}
	return result, nil
}

// dispatch routes by kind to the matching page call.
func (d *Dispatcher) dispatch(ctx context.Context, action schemas.Action) (json.RawMessage, error) {
	switch action.Kind {
	case schemas.ActionClick:
		switch t := action.Target.(type) {
		case schemas.SelectorTarget:
			if err := d.maybeScrollIntoView(ctx, action, t.Selector); err != nil {
				return nil, err
			}
			return nil, d.page.Click(ctx, t.Selector)
		case schemas.CoordinateTarget:
			return nil, d.page.ClickAt(ctx, t.X, t.Y)
		}

	case schemas.ActionHover:
		switch t := action.Target.(type) {
		case schemas.SelectorTarget:
			if err := d.maybeScrollIntoView(ctx, action, t.Selector); err != nil {
				return nil, err
			}
			return nil, d.page.Hover(ctx, t.Selector)
		case schemas.CoordinateTarget:
			return nil, d.page.HoverAt(ctx, t.X, t.Y)
		}

	case schemas.ActionType:
		switch t := action.Target.(type) {
		case schemas.SelectorTarget:
			if err := d.maybeScrollIntoView(ctx, action, t.Selector); err != nil {
				return nil, err
			}
			return nil, d.page.Type(ctx, t.Selector, action.Value)
		case schemas.CoordinateTarget:
			// Focus via a click at the coordinates, then type into whatever
			// took focus. This is the retry path after a vision resolution.
			if err := d.page.ClickAt(ctx, t.X, t.Y); err != nil {
				return nil, err
			}
			return nil, d.page.TypeActive(ctx, action.Value)
		}

	case schemas.ActionNavigate:
		return nil, d.page.Navigate(ctx, action.Value)

	case schemas.ActionWait:
		if t, ok := action.Target.(schemas.SelectorTarget); ok {
			timeout := action.Options.Timeout()
			if timeout <= 0 {
				timeout = defaultWaitTimeout
			}
			return nil, d.WaitForSelector(ctx, t.Selector, timeout)
		}
		return nil, sleepCtx(ctx, waitDuration(action))

	case schemas.ActionScroll:
		direction := action.Value
		if direction == "" {
			direction = "down"
		}
		return nil, d.page.Scroll(ctx, direction)

	case schemas.ActionScreenshot:
		shot, err := d.page.Screenshot(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(shot)

	case schemas.ActionEvaluate:
		return d.page.Evaluate(ctx, action.Value)
	}

	// Unreachable for validated actions; kept as a backstop.
	return nil, fmt.Errorf("unsupported action kind: %q", action.Kind)
}

func (d *Dispatcher) maybeScrollIntoView(ctx context.Context, action schemas.Action, selector string) error {
	if !action.Options.ScrollIntoView {
		return nil
	}
	return d.page.ScrollIntoView(ctx, selector)
}

// IsElementVisible issues a short visibility probe. It exists for healing
// decisions only and is never the primary execution path of an action.
func (d *Dispatcher) IsElementVisible(ctx context.Context, selector string) bool {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	visible, err := d.page.IsVisible(probeCtx, selector, probeTimeout)
	if err != nil {
		return false
	}
	return visible
}

// WaitForSelector polls at a fixed cadence until the selector is visible or
// the deadline passes.
func (d *Dispatcher) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if d.IsElementVisible(ctx, selector) {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out after %s waiting for selector %q", timeout, selector)
		}
		if err := sleepCtx(ctx, pollInterval); err != nil {
			return err
		}
	}
}

// waitDuration derives the pause length of a plain wait action: the value
// in milliseconds when parseable, the option timeout otherwise.
func waitDuration(action schemas.Action) time.Duration {
	if ms, err := strconv.Atoi(strings.TrimSpace(action.Value)); err == nil && ms >= 0 {
		return time.Duration(ms) * time.Millisecond
	}
	if t := action.Options.Timeout(); t > 0 {
		return t
	}
	return time.Second
}

// sleepCtx pauses for the duration unless the context ends first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
