package schemas

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// -- Action Schemas --

// ActionKind identifies the type of page interaction to perform.
type ActionKind string

const (
	ActionClick      ActionKind = "click"
	ActionType       ActionKind = "type"
	ActionHover      ActionKind = "hover"
	ActionNavigate   ActionKind = "navigate"
	ActionWait       ActionKind = "wait"
	ActionScroll     ActionKind = "scroll"
	ActionScreenshot ActionKind = "screenshot"
	ActionEvaluate   ActionKind = "evaluate"
)

// Target is the closed set of locator variants an action may carry.
// Exactly three implementations exist: SelectorTarget, CoordinateTarget and
// DescriptionTarget. The interface is sealed so the set cannot grow outside
// this package.
type Target interface {
	isTarget()
	// Describe returns a short human readable form used in logs and errors.
	Describe() string
}

// SelectorTarget locates an element by a CSS selector.
type SelectorTarget struct {
	Selector string `json:"selector"`
}

func (SelectorTarget) isTarget()          {}
func (t SelectorTarget) Describe() string { return t.Selector }

// CoordinateTarget locates a point on the page in viewport pixels.
type CoordinateTarget struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (CoordinateTarget) isTarget() {}
func (t CoordinateTarget) Describe() string {
	return fmt.Sprintf("(%.1f, %.1f)", t.X, t.Y)
}

// DescriptionTarget locates an element by a natural language description.
// It cannot be dispatched directly; the resolver must translate it first.
type DescriptionTarget struct {
	Description string `json:"description"`
}

func (DescriptionTarget) isTarget()          {}
func (t DescriptionTarget) Describe() string { return t.Description }

// ActionOptions carries per action tuning knobs.
type ActionOptions struct {
	TimeoutMs        int  `json:"timeout_ms,omitempty"`
	Retries          int  `json:"retries,omitempty"`
	PostActionWaitMs int  `json:"post_action_wait_ms,omitempty"`
	ScrollIntoView   bool `json:"scroll_into_view,omitempty"`
}

// Timeout returns the configured timeout as a duration, zero when unset.
func (o ActionOptions) Timeout() time.Duration {
	return time.Duration(o.TimeoutMs) * time.Millisecond
}

// PostActionWait returns the post action settle delay, zero when unset.
func (o ActionOptions) PostActionWait() time.Duration {
	return time.Duration(o.PostActionWaitMs) * time.Millisecond
}

// Action is a single requested page interaction.
type Action struct {
	ID      uuid.UUID     `json:"id,omitempty"`
	Kind    ActionKind    `json:"kind"`
	Target  Target        `json:"target,omitempty"`
	Value   string        `json:"value,omitempty"`
	Options ActionOptions `json:"options,omitempty"`
}

// NewAction builds an action with a fresh identifier.
func NewAction(kind ActionKind, target Target, value string) Action {
	return Action{ID: uuid.New(), Kind: kind, Target: target, Value: value}
}

// RequiresTarget reports whether the action kind is meaningless without a
// locator. Click, hover and type always operate on something; navigation,
// waits and screenshots act on the page as a whole.
func (a Action) RequiresTarget() bool {
	switch a.Kind {
	case ActionClick, ActionHover, ActionType:
		return true
	default:
		return false
	}
}

// Validate enforces the target invariant and kind membership.
func (a Action) Validate() error {
	switch a.Kind {
	case ActionClick, ActionType, ActionHover, ActionNavigate,
		ActionWait, ActionScroll, ActionScreenshot, ActionEvaluate:
	default:
		return fmt.Errorf("unsupported action kind: %q", a.Kind)
	}
	if a.RequiresTarget() && a.Target == nil {
		return fmt.Errorf("action %q requires a target", a.Kind)
	}
	return nil
}

// -- JSON envelope --
// Target is an interface, so actions loaded from plan files use a tagged
// envelope: {"kind": "selector"|"coordinates"|"description", ...}.

type targetEnvelope struct {
	Kind        string  `json:"kind"`
	Selector    string  `json:"selector,omitempty"`
	X           float64 `json:"x,omitempty"`
	Y           float64 `json:"y,omitempty"`
	Description string  `json:"description,omitempty"`
}

type actionEnvelope struct {
	ID      string          `json:"id,omitempty"`
	Kind    ActionKind      `json:"kind"`
	Target  *targetEnvelope `json:"target,omitempty"`
	Value   string          `json:"value,omitempty"`
	Options ActionOptions   `json:"options,omitempty"`
}

// MarshalJSON encodes the target variant into the tagged envelope.
func (a Action) MarshalJSON() ([]byte, error) {
	env := actionEnvelope{Kind: a.Kind, Value: a.Value, Options: a.Options}
	if a.ID != uuid.Nil {
		env.ID = a.ID.String()
	}
	switch t := a.Target.(type) {
	case nil:
	case SelectorTarget:
		env.Target = &targetEnvelope{Kind: "selector", Selector: t.Selector}
	case CoordinateTarget:
		env.Target = &targetEnvelope{Kind: "coordinates", X: t.X, Y: t.Y}
	case DescriptionTarget:
		env.Target = &targetEnvelope{Kind: "description", Description: t.Description}
	default:
		return nil, fmt.Errorf("unknown target variant %T", a.Target)
	}
	return json.Marshal(env)
}

// UnmarshalJSON decodes the tagged envelope back into the closed sum.
func (a *Action) UnmarshalJSON(data []byte) error {
	var env actionEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	a.Kind = env.Kind
	a.Value = env.Value
	a.Options = env.Options
	a.ID = uuid.Nil
	if env.ID != "" {
		id, err := uuid.Parse(env.ID)
		if err != nil {
			return fmt.Errorf("invalid action id %q: %w", env.ID, err)
		}
		a.ID = id
	}
	a.Target = nil
	if env.Target == nil {
		return nil
	}
	switch env.Target.Kind {
	case "selector":
		a.Target = SelectorTarget{Selector: env.Target.Selector}
	case "coordinates":
		a.Target = CoordinateTarget{X: env.Target.X, Y: env.Target.Y}
	case "description":
		a.Target = DescriptionTarget{Description: env.Target.Description}
	default:
		return fmt.Errorf("unknown target kind: %q", env.Target.Kind)
	}
	return nil
}

// -- Result Schema --

// ActionResult is the uniform outcome shape every execution path returns.
// Exactly one of Error / Data is meaningful.
type ActionResult struct {
	Success    bool            `json:"success"`
	Error      string          `json:"error,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
	DurationMs int64           `json:"duration_ms"`
}

// FailedResult builds a failure outcome stamped with the current time.
func FailedResult(msg string) ActionResult {
	return ActionResult{Success: false, Error: msg, Timestamp: time.Now()}
}

// SuccessResult builds a success outcome stamped with the current time.
func SuccessResult(data json.RawMessage) ActionResult {
	return ActionResult{Success: true, Data: data, Timestamp: time.Now()}
}
