// internal/engine/mocks_test.go
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/d3vnull/restitch/api/schemas"
)

// fakePage is a configurable in-memory PageAgent. Behavior is overridden per
// test through the function fields; unset calls succeed and do nothing. Every
// call is counted so tests can assert dispatch behavior.
type fakePage struct {
	mu     sync.Mutex
	counts map[string]int

	clickFn      func(selector string) error
	clickAtFn    func(x, y float64) error
	typeFn       func(selector, text string) error
	typeActiveFn func(text string) error
	evaluateFn   func(script string) (json.RawMessage, error)
	isVisibleFn  func(selector string) (bool, error)
	snapshotFn   func() (*schemas.Snapshot, error)
	screenshotFn func() (*schemas.Screenshot, error)
}

func newFakePage() *fakePage {
	return &fakePage{counts: map[string]int{}}
}

func (f *fakePage) record(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[method]++
}

func (f *fakePage) calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[method]
}

func (f *fakePage) Navigate(ctx context.Context, url string) error {
	f.record("Navigate")
	return nil
}

func (f *fakePage) Click(ctx context.Context, selector string) error {
	f.record("Click")
	if f.clickFn != nil {
		return f.clickFn(selector)
	}
	return nil
}

func (f *fakePage) ClickAt(ctx context.Context, x, y float64) error {
	f.record("ClickAt")
	if f.clickAtFn != nil {
		return f.clickAtFn(x, y)
	}
	return nil
}

func (f *fakePage) Hover(ctx context.Context, selector string) error {
	f.record("Hover")
	return nil
}

func (f *fakePage) HoverAt(ctx context.Context, x, y float64) error {
	f.record("HoverAt")
	return nil
}

func (f *fakePage) Type(ctx context.Context, selector, text string) error {
	f.record("Type")
	if f.typeFn != nil {
		return f.typeFn(selector, text)
	}
	return nil
}

func (f *fakePage) TypeActive(ctx context.Context, text string) error {
	f.record("TypeActive")
	if f.typeActiveFn != nil {
		return f.typeActiveFn(text)
	}
	return nil
}

func (f *fakePage) Scroll(ctx context.Context, direction string) error {
	f.record("Scroll")
	return nil
}

func (f *fakePage) ScrollIntoView(ctx context.Context, selector string) error {
	f.record("ScrollIntoView")
	return nil
}

func (f *fakePage) Evaluate(ctx context.Context, script string) (json.RawMessage, error) {
	f.record("Evaluate")
	if f.evaluateFn != nil {
		return f.evaluateFn(script)
	}
	return json.RawMessage(`null`), nil
}

func (f *fakePage) IsVisible(ctx context.Context, selector string, timeout time.Duration) (bool, error) {
	f.record("IsVisible")
	if f.isVisibleFn != nil {
		return f.isVisibleFn(selector)
	}
	return true, nil
}

func (f *fakePage) Snapshot(ctx context.Context) (*schemas.Snapshot, error) {
	f.record("Snapshot")
	if f.snapshotFn != nil {
		return f.snapshotFn()
	}
	return &schemas.Snapshot{CapturedAt: time.Now()}, nil
}

func (f *fakePage) Screenshot(ctx context.Context) (*schemas.Screenshot, error) {
	f.record("Screenshot")
	if f.screenshotFn != nil {
		return f.screenshotFn()
	}
	return &schemas.Screenshot{Data: []byte{0x89, 'P', 'N', 'G'}, Format: "png", Width: 1000, Height: 800}, nil
}

var _ schemas.PageAgent = (*fakePage)(nil)

// fakeVision is a scripted VisionClient.
type fakeVision struct {
	mu          sync.Mutex
	locateCalls int

	locateFn func(description string) (*schemas.VisionLocation, error)
}

func (f *fakeVision) LocateElement(ctx context.Context, shot *schemas.Screenshot, description string) (*schemas.VisionLocation, error) {
	f.mu.Lock()
	f.locateCalls++
	f.mu.Unlock()
	if f.locateFn != nil {
		return f.locateFn(description)
	}
	return &schemas.VisionLocation{Found: false}, nil
}

func (f *fakeVision) DetectElements(ctx context.Context, shot *schemas.Screenshot) ([]schemas.DetectedElement, error) {
	return nil, errors.New("not scripted")
}

func (f *fakeVision) Verify(ctx context.Context, shot *schemas.Screenshot, prompt string) (*schemas.VisionVerdict, error) {
	return nil, errors.New("not scripted")
}

var _ schemas.VisionClient = (*fakeVision)(nil)
