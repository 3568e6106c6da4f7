// internal/engine/resolver.go
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/d3vnull/restitch/api/schemas"
	"github.com/d3vnull/restitch/internal/geometry"
	"github.com/d3vnull/restitch/internal/locator"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// identityAttributes are the attributes that survive markup churn best;
// the attribute fallback strategy checks them in this order.
var identityAttributes = []string{"data-testid", "aria-label", "name", "role"}

// Scoring weights of the secondary fuzzy scorer.
const (
	scoreTag         = 2
	scoreID          = 5
	scoreSharedClass = 1
	scoreText        = 3
)

// Resolver finds live replacements for selectors that no longer match. Four
// DOM-only strategies run in strict order against a snapshot; when they are
// exhausted (or the target was a description to begin with) the resolver
// escalates to the vision collaborator and synthesizes a coordinate target.
type Resolver struct {
	page       schemas.PageAgent
	dispatcher *Dispatcher
	executor   *Executor
	logger     *zap.Logger

	// healMu serializes healing against the live session: two concurrent
	// resolutions would each capture an independent snapshot and could race
	// the page into inconsistent states.
	healMu sync.Mutex
	// changeGroup collapses concurrent UI-change probes for one selector
	// into a single flight sharing its report.
	changeGroup singleflight.Group

	// Heuristic tunables, not contracts.
	SimilarityThreshold  int
	SuggestionConfidence float64
}

// NewResolver creates a resolver bound to the same session as the executor.
func NewResolver(page schemas.PageAgent, dispatcher *Dispatcher, executor *Executor, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		page:                 page,
		dispatcher:           dispatcher,
		executor:             executor,
		logger:               logger.Named("resolver"),
		SimilarityThreshold:  2,
		SuggestionConfidence: 0.7,
	}
}

// healStrategy is one step of the ordered DOM chain.
type healStrategy struct {
	name string
	fn   func(locator.SelectorHints, []schemas.VisibleElement) *schemas.VisibleElement
}

var healStrategies = []healStrategy{
	{"attribute_fallback", matchByAttributes},
	{"structural", matchByStructure},
	{"text_content", matchByText},
	{"partial_class", matchByPartialClass},
}

// HealSelector runs the strategy chain against the snapshot and returns the
// selector of the first hit. The second return is false when nothing in the
// snapshot can stand in for the broken selector.
func (r *Resolver) HealSelector(selector string, snap *schemas.Snapshot) (string, bool) {
	if snap == nil || len(snap.Elements) == 0 {
		return "", false
	}
	hints := locator.ParseHints(selector)
	if hints.IsEmpty() {
		return "", false
	}
	for _, strategy := range healStrategies {
		if el := strategy.fn(hints, snap.Elements); el != nil {
			r.logger.Info("Selector healed",
				zap.String("broken", selector),
				zap.String("replacement", el.Selector),
				zap.String("strategy", strategy.name))
			return el.Selector, true
		}
	}
	r.logger.Debug("No DOM strategy matched", zap.String("selector", selector))
	return "", false
}

// FindSimilarElement is a looser, independent complement to the strict
// chain: it ranks every snapshot element by a weighted similarity score and
// returns the top scorer, or nil when even the best falls under the
// threshold.
func (r *Resolver) FindSimilarElement(selector string, snap *schemas.Snapshot) *schemas.VisibleElement {
	if snap == nil || len(snap.Elements) == 0 {
		return nil
	}
	hints := locator.ParseHints(selector)
	token := textToken(hints)

	best := -1
	bestScore := 0
	for i, el := range snap.Elements {
		score := 0
		if hints.Tag != "" && strings.EqualFold(el.Tag, hints.Tag) {
			score += scoreTag
		}
		if hints.ID != "" && el.Attributes["id"] == hints.ID {
			score += scoreID
		}
		for _, c := range el.Classes() {
			if hints.HasClass(c) {
				score += scoreSharedClass
			}
		}
		if token != "" && containsFold(el.Text, token) {
			score += scoreText
		}
		if score > bestScore {
			best = i
			bestScore = score
		}
	}
	if best < 0 || bestScore < r.SimilarityThreshold {
		return nil
	}
	el := snap.Elements[best]
	return &el
}

// DetectUIChange reports whether the expected selector still resolves on
// the live page, and when it does not, what the healer suggests instead.
// Concurrent probes for the same selector share a single flight.
func (r *Resolver) DetectUIChange(ctx context.Context, selector string) schemas.UIChangeReport {
	v, _, _ := r.changeGroup.Do(selector, func() (interface{}, error) {
		return r.detectUIChange(ctx, selector), nil
	})
	return v.(schemas.UIChangeReport)
}

func (r *Resolver) detectUIChange(ctx context.Context, selector string) schemas.UIChangeReport {
	if r.dispatcher.IsElementVisible(ctx, selector) {
		return schemas.UIChangeReport{
			Changed:     false,
			Confidence:  1,
			Description: fmt.Sprintf("selector %q still resolves", selector),
		}
	}

	r.healMu.Lock()
	defer r.healMu.Unlock()

	snap, err := r.page.Snapshot(ctx)
	if err != nil {
		return schemas.UIChangeReport{
			Changed:     true,
			Confidence:  0,
			Description: fmt.Sprintf("selector %q disappeared and snapshot capture failed: %v", selector, err),
		}
	}
	if healed, ok := r.HealSelector(selector, snap); ok {
		return schemas.UIChangeReport{
			Changed:           true,
			SuggestedSelector: healed,
			Confidence:        r.SuggestionConfidence,
			Description:       fmt.Sprintf("selector %q no longer matches; %q looks like its replacement", selector, healed),
		}
	}
	return schemas.UIChangeReport{
		Changed:     true,
		Confidence:  0,
		Description: fmt.Sprintf("selector %q no longer matches and no replacement was found", selector),
	}
}

// ResolveAndRetry escalates to the vision collaborator: screenshot, locate
// the described element, synthesize a coordinate target from the center of
// the reported box, and retry the action through the executor. When vision
// cannot find the element either, the failure is terminal.
func (r *Resolver) ResolveAndRetry(ctx context.Context, action schemas.Action, description string, vision schemas.VisionClient) schemas.ActionResult {
	r.healMu.Lock()
	defer r.healMu.Unlock()
	return r.resolveAndRetryLocked(ctx, action, description, vision)
}

func (r *Resolver) resolveAndRetryLocked(ctx context.Context, action schemas.Action, description string, vision schemas.VisionClient) schemas.ActionResult {
	if vision == nil {
		return schemas.FailedResult("healing exhausted: no vision collaborator configured")
	}

	shot, err := r.page.Screenshot(ctx)
	if err != nil {
		return schemas.FailedResult(fmt.Sprintf("healing failed: screenshot capture: %v", err))
	}
	loc, err := vision.LocateElement(ctx, shot, description)
	if err != nil {
		return schemas.FailedResult(fmt.Sprintf("healing failed: vision lookup: %v", err))
	}
	if !loc.Found {
		return schemas.FailedResult(fmt.Sprintf("healing exhausted: vision could not locate %q", description))
	}

	// Vision reports viewport relative percentages; the page wants pixels.
	box := geometry.PercentToPx(loc.Box, float64(shot.Width), float64(shot.Height))
	center := geometry.Center(box)
	r.logger.Info("Vision resolved target",
		zap.String("description", description),
		zap.Float64("x", center.X),
		zap.Float64("y", center.Y),
		zap.Float64("confidence", loc.Confidence))

	healed := action
	healed.Target = schemas.CoordinateTarget{X: center.X, Y: center.Y}
	return r.executor.ExecuteAction(ctx, healed)
}

// RecoverAction is the full escalation chain for a failed action: DOM
// healing first for selector targets, then the vision fallback. Description
// targets go straight to vision.
func (r *Resolver) RecoverAction(ctx context.Context, action schemas.Action, vision schemas.VisionClient) schemas.ActionResult {
	r.healMu.Lock()
	defer r.healMu.Unlock()

	switch t := action.Target.(type) {
	case schemas.SelectorTarget:
		if snap, err := r.page.Snapshot(ctx); err == nil {
			if healed, ok := r.HealSelector(t.Selector, snap); ok {
				retry := action
				retry.Target = schemas.SelectorTarget{Selector: healed}
				if result := r.executor.ExecuteAction(ctx, retry); result.Success {
					return result
				}
			}
		} else {
			r.logger.Warn("Snapshot capture failed, skipping DOM healing", zap.Error(err))
		}
		return r.resolveAndRetryLocked(ctx, action, visionDescription(t.Selector), vision)

	case schemas.DescriptionTarget:
		return r.resolveAndRetryLocked(ctx, action, t.Description, vision)

	default:
		return schemas.FailedResult(fmt.Sprintf("cannot recover action with target %v", action.Target))
	}
}

// -- DOM strategies, in chain order --

// matchByAttributes finds an element whose identifying attribute equals a
// hinted attribute value, or whose data-testid/name equals the hinted id.
func matchByAttributes(hints locator.SelectorHints, elements []schemas.VisibleElement) *schemas.VisibleElement {
	hintedValues := make(map[string]bool, len(hints.Attributes))
	for _, v := range hints.Attributes {
		if v != "" {
			hintedValues[v] = true
		}
	}
	if len(hintedValues) == 0 && hints.ID == "" {
		return nil
	}
	for i, el := range elements {
		for _, attr := range identityAttributes {
			v := el.Attributes[attr]
			if v == "" {
				continue
			}
			if hintedValues[v] {
				return &elements[i]
			}
		}
		if hints.ID != "" &&
			(el.Attributes["data-testid"] == hints.ID || el.Attributes["name"] == hints.ID) {
			return &elements[i]
		}
	}
	return nil
}

// matchByStructure finds an element with the hinted tag carrying at least
// one hinted class.
func matchByStructure(hints locator.SelectorHints, elements []schemas.VisibleElement) *schemas.VisibleElement {
	if hints.Tag == "" || len(hints.Classes) == 0 {
		return nil
	}
	for i, el := range elements {
		if !strings.EqualFold(el.Tag, hints.Tag) {
			continue
		}
		for _, c := range el.Classes() {
			if hints.HasClass(c) {
				return &elements[i]
			}
		}
	}
	return nil
}

// matchByText finds an element whose visible text contains the derived
// token (explicit text hint, or id/class with separators spaced out).
func matchByText(hints locator.SelectorHints, elements []schemas.VisibleElement) *schemas.VisibleElement {
	token := textToken(hints)
	if token == "" {
		return nil
	}
	for i, el := range elements {
		if el.Text != "" && containsFold(el.Text, token) {
			return &elements[i]
		}
	}
	return nil
}

// matchByPartialClass finds an element with the hinted tag and a class that
// is a substring superset of a hinted class, covering renamed utility class
// suffixes and prefixes such as cta-primary -> cta-primary-v2.
func matchByPartialClass(hints locator.SelectorHints, elements []schemas.VisibleElement) *schemas.VisibleElement {
	if len(hints.Classes) == 0 {
		return nil
	}
	for i, el := range elements {
		if hints.Tag != "" && !strings.EqualFold(el.Tag, hints.Tag) {
			continue
		}
		for _, c := range el.Classes() {
			for _, h := range hints.Classes {
				if strings.Contains(c, h) || strings.Contains(h, c) {
					return &elements[i]
				}
			}
		}
	}
	return nil
}

// textToken derives the text matching token from hints: explicit text hint
// first, then the id, then the first class, with -/_ separators turned into
// spaces.
func textToken(hints locator.SelectorHints) string {
	if hints.Text != "" {
		return hints.Text
	}
	source := hints.ID
	if source == "" && len(hints.Classes) > 0 {
		source = hints.Classes[0]
	}
	if source == "" {
		return ""
	}
	spaced := strings.NewReplacer("-", " ", "_", " ").Replace(source)
	return strings.TrimSpace(spaced)
}

// visionDescription turns a broken selector into a phrase the vision model
// can work with.
func visionDescription(selector string) string {
	hints := locator.ParseHints(selector)
	var parts []string
	if hints.Tag != "" {
		parts = append(parts, hints.Tag)
	}
	if token := textToken(hints); token != "" {
		parts = append(parts, token)
	}
	if len(parts) == 0 {
		return selector
	}
	return strings.Join(parts, " ")
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
