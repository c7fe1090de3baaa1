package framecomp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vk "github.com/goki/vulkan"
)

func TestAttachmentSpecsMatchLayout(t *testing.T) {
	params := testParams()
	layout, err := NewRenderPassLayout(params)
	require.NoError(t, err)
	specs := AttachmentSpecs(params)
	require.Len(t, specs, AttachmentCount)

	for i, spec := range specs {
		assert.Equal(t, layout.Attachments[i].Format, spec.Format, "attachment %d", i)
		assert.Equal(t, layout.Attachments[i].Samples, spec.Samples, "attachment %d", i)
		assert.Equal(t, params.Extent, spec.Extent, "attachment %d", i)
	}

	assert.True(t, specs[AttachmentColor].Transient)
	assert.True(t, specs[AttachmentDepth].Transient)
	assert.False(t, specs[AttachmentColorResolve].Transient)

	assert.NotZero(t, specs[AttachmentColorResolve].Usage&vk.ImageUsageSampledBit)
	assert.NotZero(t, specs[AttachmentGrayscale].Usage&vk.ImageUsageSampledBit)
	assert.NotZero(t, specs[AttachmentDepthResolve].Usage&vk.ImageUsageInputAttachmentBit)
	assert.Equal(t, DepthAspect(params.DepthFormat), specs[AttachmentDepthResolve].Aspect)
}
