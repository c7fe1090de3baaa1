package framecomp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeBar(t *testing.T) {
	assert.Equal(t, float32(0), NormalizeBar(-50, 1024))
	assert.Equal(t, float32(0.5), NormalizeBar(512, 1024))
	assert.Equal(t, float32(1), NormalizeBar(2048, 1024))
	assert.Equal(t, float32(0), NormalizeBar(100, 0))
	assert.Equal(t, float32(0), NormalizeBar(math.NaN(), 1024))
}

func TestBarStateDragging(t *testing.T) {
	bar := NewBarState(DefaultBar, DefaultDragMargin)
	assert.Equal(t, float32(0.5), bar.Snapshot())

	assert.False(t, bar.PointerMove(256, 1024), "moves without the button are ignored")
	assert.Equal(t, float32(0.5), bar.Snapshot())

	bar.SetDragging(true)
	assert.True(t, bar.Dragging())
	assert.True(t, bar.PointerMove(256, 1024))
	assert.Equal(t, float32(0.25), bar.Snapshot())
	assert.False(t, bar.PointerMove(256, 1024), "same position is not a change")

	bar.SetDragging(false)
	assert.False(t, bar.PointerMove(768, 1024))
	assert.Equal(t, float32(0.25), bar.Snapshot())
}

func TestBarStateMargins(t *testing.T) {
	bar := NewBarState(DefaultBar, DefaultDragMargin)
	bar.SetDragging(true)

	assert.False(t, bar.PointerMove(5, 1000))
	assert.False(t, bar.PointerMove(995, 1000))
	assert.False(t, bar.PointerMove(-50, 1000))
	assert.Equal(t, float32(0.5), bar.Snapshot())

	assert.True(t, bar.PointerMove(10, 1000))
	assert.InDelta(t, 0.01, bar.Snapshot(), 1e-6)
	assert.False(t, bar.PointerMove(400, 0))
}

func TestBarStateSetClamps(t *testing.T) {
	bar := NewBarState(3, 0)
	assert.Equal(t, float32(1), bar.Snapshot())
	bar.Set(-1)
	assert.Equal(t, float32(0), bar.Snapshot())
	bar.Set(0.75)
	assert.Equal(t, float32(0.75), bar.Snapshot())
}
