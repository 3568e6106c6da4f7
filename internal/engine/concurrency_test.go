// internal/engine/concurrency_test.go
package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"github.com/d3vnull/restitch/api/schemas"
)

// Concurrent probes for the same selector must all come back with the same
// report and leave no goroutines behind.
func TestDetectUIChange_ConcurrentProbesAgree(t *testing.T) {
	defer goleak.VerifyNone(t)

	page := newFakePage()
	page.isVisibleFn = func(selector string) (bool, error) { return false, nil }
	page.snapshotFn = func() (*schemas.Snapshot, error) {
		return snapshotOf(schemas.VisibleElement{
			Tag:        "button",
			Selector:   "#fresh",
			Attributes: map[string]string{"data-testid": "stale"},
		}), nil
	}
	r := newTestResolver(t, page)

	const goroutines = 16
	reports := make([]schemas.UIChangeReport, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reports[i] = r.DetectUIChange(context.Background(), "#stale")
		}(i)
	}
	wg.Wait()

	for i, report := range reports {
		assert.True(t, report.Changed, "report %d", i)
		assert.Equal(t, "#fresh", report.SuggestedSelector, "report %d", i)
	}
}

// Concurrent recoveries serialize on the heal mutex: the snapshot and retry
// of one recovery never interleave with another's.
func TestRecoverAction_SerializesHealing(t *testing.T) {
	defer goleak.VerifyNone(t)

	page := newFakePage()
	var mu sync.Mutex
	inFlight := 0
	maxInFlight := 0
	page.snapshotFn = func() (*schemas.Snapshot, error) {
		mu.Lock()
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()

		snap := snapshotOf(schemas.VisibleElement{
			Tag:        "button",
			Selector:   "#replacement",
			Attributes: map[string]string{"data-testid": "target"},
		})

		mu.Lock()
		inFlight--
		mu.Unlock()
		return snap, nil
	}
	r := newTestResolver(t, page)

	const goroutines = 8
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			action := schemas.NewAction(schemas.ActionClick, schemas.SelectorTarget{Selector: "#target"}, "")
			result := r.RecoverAction(context.Background(), action, nil)
			assert.True(t, result.Success)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInFlight, "heals must never overlap")
	assert.Equal(t, goroutines, page.calls("Snapshot"))
}
