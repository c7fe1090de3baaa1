package framecomp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vk "github.com/goki/vulkan"
)

func testParams() RenderPassParams {
	return RenderPassParams{
		ColorFormat: vk.FormatB8g8r8a8Unorm,
		DepthFormat: vk.FormatD32SfloatS8Uint,
		Samples:     vk.SampleCount4Bit,
		Extent:      vk.Extent2D{Width: 1820, Height: 1090},
	}
}

func TestRenderPassParamsValidate(t *testing.T) {
	require.NoError(t, testParams().Validate())

	tests := []struct {
		name   string
		modify func(p *RenderPassParams)
	}{
		{"color format", func(p *RenderPassParams) { p.ColorFormat = vk.FormatUndefined }},
		{"depth format", func(p *RenderPassParams) { p.DepthFormat = vk.FormatUndefined }},
		{"zero samples", func(p *RenderPassParams) { p.Samples = 0 }},
		{"odd samples", func(p *RenderPassParams) { p.Samples = 3 }},
		{"too many samples", func(p *RenderPassParams) { p.Samples = 128 }},
		{"zero width", func(p *RenderPassParams) { p.Extent.Width = 0 }},
		{"zero height", func(p *RenderPassParams) { p.Extent.Height = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testParams()
			tt.modify(&p)
			assert.ErrorIs(t, p.Validate(), ErrConfigInvalid)
			_, err := NewRenderPassLayout(p)
			assert.ErrorIs(t, err, ErrConfigInvalid)
		})
	}
}

func TestRenderPassLayoutAttachments(t *testing.T) {
	params := testParams()
	layout, err := NewRenderPassLayout(params)
	require.NoError(t, err)
	require.Len(t, layout.Attachments, AttachmentCount)

	a := layout.Attachments
	assert.Equal(t, params.Samples, a[AttachmentColor].Samples)
	assert.Equal(t, params.Samples, a[AttachmentDepth].Samples)
	for _, i := range []int{AttachmentColorResolve, AttachmentDepthResolve, AttachmentGrayscale} {
		assert.Equal(t, vk.SampleCount1Bit, a[i].Samples, "attachment %d", i)
		assert.Equal(t, vk.AttachmentStoreOpStore, a[i].StoreOp, "attachment %d", i)
	}
	assert.Equal(t, vk.AttachmentLoadOpClear, a[AttachmentColor].LoadOp)
	assert.Equal(t, vk.AttachmentLoadOpClear, a[AttachmentDepth].LoadOp)
	assert.Equal(t, vk.AttachmentStoreOpDontCare, a[AttachmentColor].StoreOp)
	assert.Equal(t, vk.AttachmentStoreOpDontCare, a[AttachmentDepth].StoreOp)

	assert.Equal(t, params.ColorFormat, a[AttachmentColor].Format)
	assert.Equal(t, params.ColorFormat, a[AttachmentColorResolve].Format)
	assert.Equal(t, params.ColorFormat, a[AttachmentGrayscale].Format)
	assert.Equal(t, params.DepthFormat, a[AttachmentDepth].Format)
	assert.Equal(t, params.DepthFormat, a[AttachmentDepthResolve].Format)

	assert.Equal(t, vk.ImageLayoutShaderReadOnlyOptimal, a[AttachmentColorResolve].FinalLayout)
	assert.Equal(t, vk.ImageLayoutShaderReadOnlyOptimal, a[AttachmentGrayscale].FinalLayout)
	assert.Equal(t, vk.ImageLayoutDepthStencilAttachmentOptimal, a[AttachmentDepthResolve].FinalLayout)
	for i := range a {
		assert.Equal(t, vk.ImageLayoutUndefined, a[i].InitialLayout, "attachment %d", i)
	}
}

func TestRenderPassLayoutSubpasses(t *testing.T) {
	layout, err := NewRenderPassLayout(testParams())
	require.NoError(t, err)
	require.Len(t, layout.Subpasses, SubpassCount)

	scene := layout.Subpasses[SubpassScene]
	require.Len(t, scene.PColorAttachments, 1)
	assert.Equal(t, uint32(AttachmentColor), scene.PColorAttachments[0].Attachment)
	require.Len(t, scene.PResolveAttachments, 1)
	assert.Equal(t, uint32(AttachmentColorResolve), scene.PResolveAttachments[0].Attachment)
	require.Len(t, scene.PDepthStencilAttachment, 1)
	assert.Equal(t, uint32(AttachmentDepth), scene.PDepthStencilAttachment[0].Attachment)
	assert.Nil(t, scene.PNext, "the resolve is chained only when the pass is created")

	resolve := layout.DepthResolve
	assert.Equal(t, vk.ResolveModeSampleZeroBit, resolve.DepthResolveMode)
	require.Len(t, resolve.PDepthStencilResolveAttachment, 1)
	assert.Equal(t, uint32(AttachmentDepthResolve), resolve.PDepthStencilResolveAttachment[0].Attachment)

	visualize := layout.Subpasses[SubpassVisualize]
	require.Len(t, visualize.PInputAttachments, 1)
	input := visualize.PInputAttachments[0]
	assert.Equal(t, uint32(AttachmentDepthResolve), input.Attachment)
	assert.Equal(t, vk.ImageLayoutShaderReadOnlyOptimal, input.Layout)
	assert.Equal(t, vk.ImageAspectFlags(vk.ImageAspectDepthBit), input.AspectMask)
	require.Len(t, visualize.PColorAttachments, 1)
	assert.Equal(t, uint32(AttachmentGrayscale), visualize.PColorAttachments[0].Attachment)
	assert.Empty(t, visualize.PDepthStencilAttachment)
}

func TestRenderPassLayoutDependencies(t *testing.T) {
	layout, err := NewRenderPassLayout(testParams())
	require.NoError(t, err)
	require.Len(t, layout.Dependencies, 2)

	external := layout.Dependencies[0]
	assert.Equal(t, uint32(vk.SubpassExternal), external.SrcSubpass)
	assert.Equal(t, uint32(SubpassScene), external.DstSubpass)

	between := layout.Dependencies[1]
	assert.Equal(t, uint32(SubpassScene), between.SrcSubpass)
	assert.Equal(t, uint32(SubpassVisualize), between.DstSubpass)
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageLateFragmentTestsBit|vk.PipelineStageColorAttachmentOutputBit),
		between.SrcStageMask, "depth resolve writes land in the color output stage")
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit), between.DstStageMask)
	assert.Equal(t, vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit|vk.AccessColorAttachmentWriteBit),
		between.SrcAccessMask)
	assert.NotZero(t, between.DstAccessMask&vk.AccessFlags(vk.AccessInputAttachmentReadBit))
	assert.Equal(t, vk.DependencyFlags(vk.DependencyByRegionBit), between.DependencyFlags)
}

func TestRenderPassLayoutCreateInfo(t *testing.T) {
	layout, err := NewRenderPassLayout(testParams())
	require.NoError(t, err)
	info := layout.CreateInfo()
	assert.Equal(t, uint32(AttachmentCount), info.AttachmentCount)
	assert.Equal(t, uint32(SubpassCount), info.SubpassCount)
	assert.Equal(t, uint32(2), info.DependencyCount)
	assert.Len(t, layout.ClearValues(), AttachmentCount)
}

func TestRenderPassLayoutChainedCreateInfo(t *testing.T) {
	layout, err := NewRenderPassLayout(testParams())
	require.NoError(t, err)
	resolve := fakeHandle(0x40)

	info := layout.ChainedCreateInfo(resolve)
	require.Len(t, info.PSubpasses, SubpassCount)
	assert.Equal(t, resolve, info.PSubpasses[SubpassScene].PNext)
	assert.Nil(t, info.PSubpasses[SubpassVisualize].PNext)
	assert.Nil(t, layout.Subpasses[SubpassScene].PNext, "layout is left unchained")
	assert.Equal(t, uint32(SubpassCount), info.SubpassCount)
}

func TestRenderPass2Entry(t *testing.T) {
	assert.Equal(t, "vkCreateRenderPass2", renderPass2Entry(apiVersion12))
	assert.Equal(t, "vkCreateRenderPass2", renderPass2Entry(uint32(vk.MakeVersion(1, 3, 0))))
	assert.Equal(t, "vkCreateRenderPass2KHR", renderPass2Entry(apiVersion11))
}

func TestRenderPassDestroyNil(t *testing.T) {
	var rp *RenderPass
	assert.NotPanics(t, rp.Destroy)
}
