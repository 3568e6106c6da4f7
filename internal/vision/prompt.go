// internal/vision/prompt.go
package vision

import "fmt"

// All box coordinates exchanged with the model are viewport relative
// percentages (0-100), which keeps replies independent of the screenshot
// resolution.

const systemPrompt = `You are a precise UI vision analyzer. You inspect a screenshot of a web page and answer questions about the elements in it.

Rules:
- All coordinates are percentages of the image dimensions, from 0 to 100. x grows rightward, y grows downward.
- A bounding box is {"x": <left>, "y": <top>, "width": <w>, "height": <h>}.
- Confidence is a number between 0 and 1.
- Respond with JSON only. No markdown fences, no commentary.`

func locatePrompt(description string) string {
	return fmt.Sprintf(`Locate the UI element best matching this description: %q.

Respond with a single JSON object:
{"found": true|false, "box": {"x": 0-100, "y": 0-100, "width": 0-100, "height": 0-100}, "confidence": 0-1}

If no matching element is visible, respond {"found": false, "confidence": 0}.`, description)
}

const detectPrompt = `List every interactive element visible in the screenshot (buttons, links, inputs, selects, toggles).

Respond with a JSON array, one object per element:
[{"type": "button|link|input|select|toggle|other", "box": {"x": 0-100, "y": 0-100, "width": 0-100, "height": 0-100}, "confidence": 0-1, "label": "<visible text or purpose>"}]

Respond with [] if none are visible.`

func verifyPrompt(question string) string {
	return fmt.Sprintf(`Answer this question about the screenshot: %s

Respond with a single JSON object:
{"success": true|false, "reasoning": "<one sentence>", "confidence": 0-1}`, question)
}
