package schemas

import (
	"context"
	"encoding/json"
	"time"
)

// -- Collaborator Interfaces --

// PageAgent is the page automation collaborator. It performs interactions
// against the live page and is opaque to the engine: the engine only routes
// normalized actions into it and folds the outcomes into ActionResults.
//
// The agent is an explicit session handle; every method takes a context and
// there is no hidden "current page" singleton.
type PageAgent interface {
	// Navigate loads the URL and waits for the page to settle.
	Navigate(ctx context.Context, url string) error
	// Click clicks the first element matching the CSS selector.
	Click(ctx context.Context, selector string) error
	// ClickAt clicks at viewport pixel coordinates.
	ClickAt(ctx context.Context, x, y float64) error
	// Hover moves the pointer over the first element matching the selector.
	Hover(ctx context.Context, selector string) error
	// HoverAt moves the pointer to viewport pixel coordinates.
	HoverAt(ctx context.Context, x, y float64) error
	// Type focuses the element matching the selector and types the text.
	Type(ctx context.Context, selector, text string) error
	// TypeActive types into whichever element currently holds focus.
	TypeActive(ctx context.Context, text string) error
	// Scroll scrolls the page in the given direction (up, down, top, bottom).
	Scroll(ctx context.Context, direction string) error
	// ScrollIntoView brings the matching element into the viewport.
	ScrollIntoView(ctx context.Context, selector string) error
	// Evaluate runs a script in the page and returns its JSON result.
	Evaluate(ctx context.Context, script string) (json.RawMessage, error)
	// IsVisible reports whether the selector matches a visible element.
	// Implementations must honor the probe timeout; this is a cheap check
	// used for healing decisions, never the primary execution path.
	IsVisible(ctx context.Context, selector string, timeout time.Duration) (bool, error)
	// Snapshot captures the currently visible elements of the page.
	Snapshot(ctx context.Context) (*Snapshot, error)
	// Screenshot captures the current viewport as an image.
	Screenshot(ctx context.Context) (*Screenshot, error)
}

// VisionClient is the vision collaborator consumed when DOM strategies are
// exhausted or a target was described in natural language.
type VisionClient interface {
	// LocateElement finds the described element in the screenshot.
	LocateElement(ctx context.Context, shot *Screenshot, description string) (*VisionLocation, error)
	// DetectElements enumerates interactive looking elements in the screenshot.
	DetectElements(ctx context.Context, shot *Screenshot) ([]DetectedElement, error)
	// Verify answers a yes/no prompt about the screenshot.
	Verify(ctx context.Context, shot *Screenshot, prompt string) (*VisionVerdict, error)
}
