package schemas

import (
	"strings"
	"time"
)

// -- Page Element Schemas --

// BoundingBox describes a rectangle on the page. The same shape is used in
// percentage space (0-100, viewport relative) and in pixel space; the
// geometry package converts between the two.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// VisibleElement is one member of a page snapshot: an element that was
// rendered and visible at capture time.
type VisibleElement struct {
	Tag           string            `json:"tag"`
	Selector      string            `json:"selector"`
	Text          string            `json:"text,omitempty"`
	Box           BoundingBox       `json:"box"`
	Attributes    map[string]string `json:"attributes,omitempty"`
	IsInteractive bool              `json:"is_interactive"`
}

// Classes splits the element's class attribute into its individual names.
func (e VisibleElement) Classes() []string {
	return strings.Fields(e.Attributes["class"])
}

// Snapshot is a point in time capture of the visible elements of a page.
// It is owned by the caller and never outlives a single resolution call.
type Snapshot struct {
	URL        string           `json:"url"`
	CapturedAt time.Time        `json:"captured_at"`
	Elements   []VisibleElement `json:"elements"`
}

// -- Vision Schemas --

// Screenshot is a captured page image handed to the vision collaborator.
type Screenshot struct {
	Data   []byte `json:"data"`
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// DetectedElement is a single element reported by vision based detection.
type DetectedElement struct {
	Type       string      `json:"type"`
	Box        BoundingBox `json:"box"`
	Confidence float64     `json:"confidence"`
	Label      string      `json:"label,omitempty"`
}

// VisionLocation is the outcome of locating one described element.
type VisionLocation struct {
	Found      bool        `json:"found"`
	Box        BoundingBox `json:"box,omitempty"`
	Confidence float64     `json:"confidence"`
}

// VisionVerdict is the outcome of a vision based verification prompt.
type VisionVerdict struct {
	Success    bool    `json:"success"`
	Reasoning  string  `json:"reasoning,omitempty"`
	Confidence float64 `json:"confidence"`
}

// -- Healing Schemas --

// UIChangeReport summarises whether a previously working selector still
// resolves, and if not, what the healer suggests instead.
type UIChangeReport struct {
	Changed           bool    `json:"changed"`
	SuggestedSelector string  `json:"suggested_selector,omitempty"`
	Confidence        float64 `json:"confidence"`
	Description       string  `json:"description"`
}
