// internal/geometry/geometry.go

// Package geometry provides pure bounding box math for the healing engine:
// percentage/pixel conversions, centers, nearest element search and
// proximity clustering. Nothing here touches the page.
package geometry

import "github.com/d3vnull/restitch/api/schemas"

// PercentToPx converts a viewport relative box (0-100 per axis) into pixel
// space for a viewport of the given dimensions.
func PercentToPx(box schemas.BoundingBox, width, height float64) schemas.BoundingBox {
	return schemas.BoundingBox{
		X:      box.X / 100 * width,
		Y:      box.Y / 100 * height,
		Width:  box.Width / 100 * width,
		Height: box.Height / 100 * height,
	}
}

// PxToPercent converts a pixel box back into viewport relative percentages.
// PxToPercent(PercentToPx(b, w, h), w, h) round trips within float tolerance
// for any positive viewport.
func PxToPercent(box schemas.BoundingBox, width, height float64) schemas.BoundingBox {
	if width == 0 || height == 0 {
		return schemas.BoundingBox{}
	}
	return schemas.BoundingBox{
		X:      box.X / width * 100,
		Y:      box.Y / height * 100,
		Width:  box.Width / width * 100,
		Height: box.Height / height * 100,
	}
}

// Center returns the midpoint of the box, in whatever space the box is in.
func Center(box schemas.BoundingBox) Vector2D {
	return Vector2D{X: box.X + box.Width/2, Y: box.Y + box.Height/2}
}

// Nearest returns the index of the element whose center is closest to the
// point, scanning linearly. Ties keep the first candidate. Returns -1 for an
// empty slice.
func Nearest(elements []schemas.VisibleElement, point Vector2D) int {
	best := -1
	bestDist := 0.0
	for i, el := range elements {
		d := Center(el.Box).Dist(point)
		if best == -1 || d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

// GroupByProximity clusters elements in a single pass. Each unassigned
// element seeds a new group and absorbs every other unassigned element
// whose center lies within threshold of the seed's center. Membership is
// seed relative, not transitive: an element near a non-seed member but far
// from the seed stays ungrouped until it seeds its own group.
func GroupByProximity(elements []schemas.VisibleElement, threshold float64) [][]schemas.VisibleElement {
	groups := make([][]schemas.VisibleElement, 0, len(elements))
	assigned := make([]bool, len(elements))

	for i := range elements {
		if assigned[i] {
			continue
		}
		assigned[i] = true
		group := []schemas.VisibleElement{elements[i]}
		seed := Center(elements[i].Box)

		for j := i + 1; j < len(elements); j++ {
			if assigned[j] {
				continue
			}
			if Center(elements[j].Box).Dist(seed) <= threshold {
				assigned[j] = true
				group = append(group, elements[j])
			}
		}
		groups = append(groups, group)
	}
	return groups
}
