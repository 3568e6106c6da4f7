// internal/browser/snapshot_test.go
package browser

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSnapshot(t *testing.T) {
	raw := json.RawMessage(`[
		{
			"tag": "button",
			"selector": "#checkout",
			"text": "Buy now",
			"box": {"x": 40.5, "y": 80.2, "width": 10, "height": 4},
			"attributes": {"id": "checkout", "class": "cta-primary", "data-testid": "buy"},
			"is_interactive": true
		},
		{
			"tag": "div",
			"selector": "main > div:nth-of-type(2)",
			"box": {"x": 0, "y": 0, "width": 100, "height": 50},
			"attributes": {"role": "dialog"},
			"is_interactive": false
		}
	]`)

	snap, err := parseSnapshot(raw)
	require.NoError(t, err)
	require.Len(t, snap.Elements, 2)
	assert.False(t, snap.CapturedAt.IsZero())

	first := snap.Elements[0]
	assert.Equal(t, "button", first.Tag)
	assert.Equal(t, "#checkout", first.Selector)
	assert.Equal(t, "Buy now", first.Text)
	assert.Equal(t, 40.5, first.Box.X)
	assert.Equal(t, []string{"cta-primary"}, first.Classes())
	assert.True(t, first.IsInteractive)

	second := snap.Elements[1]
	assert.Equal(t, "dialog", second.Attributes["role"])
	assert.False(t, second.IsInteractive)
	assert.Empty(t, second.Classes())
}

func TestParseSnapshot_InvalidPayload(t *testing.T) {
	_, err := parseSnapshot(json.RawMessage(`{"not": "an array"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "snapshot decode failed")
}

// The harvest script is an IIFE evaluated in the page; sanity check the
// structural pieces the Go side depends on.
func TestHarvestScriptShape(t *testing.T) {
	assert.True(t, strings.HasPrefix(harvestScript, "(() => {"))
	assert.True(t, strings.HasSuffix(harvestScript, "})()"))
	assert.Contains(t, harvestScript, "is_interactive")
	assert.Contains(t, harvestScript, "getBoundingClientRect")
	// The element cap must be baked into the script.
	assert.Contains(t, harvestScript, "400")
}
