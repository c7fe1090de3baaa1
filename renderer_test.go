package framecomp

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vk "github.com/goki/vulkan"
)

func TestClampSamples(t *testing.T) {
	upTo8 := vk.SampleCountFlags(vk.SampleCount1Bit | vk.SampleCount2Bit | vk.SampleCount4Bit | vk.SampleCount8Bit)
	assert.Equal(t, vk.SampleCount4Bit, ClampSamples(vk.SampleCount4Bit, upTo8))
	assert.Equal(t, vk.SampleCount8Bit, ClampSamples(vk.SampleCount64Bit, upTo8))

	gaps := vk.SampleCountFlags(vk.SampleCount1Bit | vk.SampleCount4Bit)
	assert.Equal(t, vk.SampleCount4Bit, ClampSamples(vk.SampleCount8Bit, gaps))
	assert.Equal(t, vk.SampleCount1Bit, ClampSamples(vk.SampleCount2Bit, gaps))
	assert.Equal(t, vk.SampleCount1Bit, ClampSamples(vk.SampleCount4Bit, 0))
}

func rendererWithRebuild(rs *RebuildState, recreate func() error) *Renderer {
	r := &Renderer{opts: RendererOptions{Rebuild: rs}, log: slog.New(slog.NewTextHandler(io.Discard, nil))}
	r.recreate = recreate
	return r
}

func TestDrawFrameSkipsTransientRebuildFailure(t *testing.T) {
	for name, failure := range map[string]error{
		"zero extent": errors.Wrap(ErrZeroExtent, "swapchain extent 0x0"),
		"out of date": NewError("vkCreateSwapchainKHR", vk.ErrorOutOfDate),
	} {
		t.Run(name, func(t *testing.T) {
			rs := &RebuildState{}
			rs.MarkResized()
			calls := 0
			r := rendererWithRebuild(rs, func() error {
				calls++
				return failure
			})

			require.NoError(t, r.DrawFrame(time.Now()))
			assert.True(t, rs.NeedsRebuild())
			require.NoError(t, r.DrawFrame(time.Now()))
			assert.Equal(t, 2, calls)
			assert.Equal(t, uint64(0), rs.Generation())
		})
	}
}

func TestDrawFrameReturnsFatalRebuildFailure(t *testing.T) {
	rs := &RebuildState{}
	rs.MarkResized()
	r := rendererWithRebuild(rs, func() error { return errDeviceLost })

	err := r.DrawFrame(time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, errDeviceLost)
	assert.True(t, rs.NeedsRebuild())
}

func TestDrawFrameRebuildsWithoutFrame(t *testing.T) {
	calls := 0
	r := rendererWithRebuild(&RebuildState{}, func() error {
		calls++
		return errors.Wrap(ErrZeroExtent, "swapchain extent 0x0")
	})
	require.NoError(t, r.DrawFrame(time.Now()))
	assert.Equal(t, 1, calls)
}

func TestIsTransientRebuildError(t *testing.T) {
	assert.True(t, IsTransientRebuildError(ErrZeroExtent))
	assert.True(t, IsTransientRebuildError(NewError("vkAcquireNextImageKHR", vk.Suboptimal)))
	assert.False(t, IsTransientRebuildError(invalidf("missing shader dir")))
	assert.False(t, IsTransientRebuildError(errDeviceLost))
	assert.True(t, errors.Is(ErrZeroExtent, ErrConfigInvalid))
}
