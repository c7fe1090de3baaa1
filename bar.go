package framecomp

import (
	"github.com/chewxy/math32"
)

const (
	// DefaultBar is the bar fraction before any input.
	DefaultBar float32 = 0.5
	// DefaultDragMargin is the width in pixels of the strips at the left
	// and right window edges where pointer moves do not move the bar.
	DefaultDragMargin = 10.0
)

// NormalizeBar converts a pointer x coordinate to a bar fraction in
// [0, 1]. A non-positive width yields 0.
func NormalizeBar(x float64, width int) float32 {
	if width <= 0 {
		return 0
	}
	return clampBar(float32(x / float64(width)))
}

func clampBar(f float32) float32 {
	if math32.IsNaN(f) {
		return 0
	}
	return math32.Max(0, math32.Min(1, f))
}

// BarState is the split position driven by pointer input. It belongs to
// the event loop goroutine; the renderer reads it once per frame through
// Snapshot.
type BarState struct {
	// Margin is the inactive strip width in pixels at each window edge.
	Margin float64

	dragging bool
	fraction float32
}

// NewBarState returns a bar at initial with the given drag margin.
func NewBarState(initial float32, margin float64) *BarState {
	return &BarState{Margin: margin, fraction: clampBar(initial)}
}

// SetDragging records the left button state.
func (b *BarState) SetDragging(dragging bool) {
	b.dragging = dragging
}

// Dragging reports whether the left button is held.
func (b *BarState) Dragging() bool {
	return b.dragging
}

// PointerMove moves the bar to x while dragging. Moves with the button
// released, or inside the edge margins, are ignored. It reports whether
// the bar changed.
func (b *BarState) PointerMove(x float64, width int) bool {
	if !b.dragging || width <= 0 {
		return false
	}
	if x < b.Margin || x > float64(width)-b.Margin {
		return false
	}
	f := NormalizeBar(x, width)
	if f == b.fraction {
		return false
	}
	b.fraction = f
	return true
}

// Set moves the bar directly, clamping f to [0, 1].
func (b *BarState) Set(f float32) {
	b.fraction = clampBar(f)
}

// Snapshot returns the current fraction. Call it once per frame and use
// the returned value for the whole recording.
func (b *BarState) Snapshot() float32 {
	return b.fraction
}
