package framecomp

import (
	"unsafe"

	vk "github.com/goki/vulkan"
)

// Attachment slots of the scene render pass, in declaration order.
const (
	AttachmentColor        = 0 // multisampled scene color
	AttachmentDepth        = 1 // multisampled scene depth/stencil
	AttachmentColorResolve = 2 // single-sample color, sampled by the comparator
	AttachmentDepthResolve = 3 // single-sample depth, input of the visualization subpass
	AttachmentGrayscale    = 4 // single-sample grayscale, sampled by the comparator

	AttachmentCount = 5
)

// Subpasses of the scene render pass.
const (
	SubpassScene     = 0
	SubpassVisualize = 1

	SubpassCount = 2
)

// RenderPassParams are the swapchain-dependent inputs of the scene render
// pass. Any change requires a new render pass.
type RenderPassParams struct {
	ColorFormat vk.Format
	DepthFormat vk.Format
	Samples     vk.SampleCountFlagBits
	Extent      vk.Extent2D
}

// Validate checks the parameters without touching the GPU.
func (p RenderPassParams) Validate() error {
	if p.ColorFormat == vk.FormatUndefined {
		return invalidf("render pass: color format undefined")
	}
	if p.DepthFormat == vk.FormatUndefined {
		return invalidf("render pass: depth format undefined")
	}
	if s := uint32(p.Samples); s == 0 || s&(s-1) != 0 || s > uint32(vk.SampleCount64Bit) {
		return invalidf("render pass: sample count %d", s)
	}
	if p.Extent.Width == 0 || p.Extent.Height == 0 {
		return invalidf("render pass: extent %dx%d", p.Extent.Width, p.Extent.Height)
	}
	return nil
}

// RenderPassLayout is the complete description of the two-subpass scene
// render pass. Subpass 0 renders and resolves color and depth; subpass 1
// reads the resolved depth as an input attachment and writes grayscale.
type RenderPassLayout struct {
	Attachments  []vk.AttachmentDescription2
	Subpasses    []vk.SubpassDescription2
	Dependencies []vk.SubpassDependency2

	// DepthResolve extends Subpasses[SubpassScene]. It lives in Go memory,
	// so it is chained into PNext only when the pass is created.
	DepthResolve *vk.SubpassDescriptionDepthStencilResolve
}

// NewRenderPassLayout builds the attachment, subpass and dependency
// description for params.
func NewRenderPassLayout(params RenderPassParams) (*RenderPassLayout, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	attachment := func(format vk.Format, samples vk.SampleCountFlagBits,
		load vk.AttachmentLoadOp, store vk.AttachmentStoreOp, final vk.ImageLayout) vk.AttachmentDescription2 {
		return vk.AttachmentDescription2{
			SType:          vk.StructureTypeAttachmentDescription2,
			Format:         format,
			Samples:        samples,
			LoadOp:         load,
			StoreOp:        store,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    final,
		}
	}
	reference := func(index uint32, layout vk.ImageLayout, aspect vk.ImageAspectFlags) vk.AttachmentReference2 {
		return vk.AttachmentReference2{
			SType:      vk.StructureTypeAttachmentReference2,
			Attachment: index,
			Layout:     layout,
			AspectMask: aspect,
		}
	}

	// The multisampled pair is resolved inside the pass and never stored.
	attachments := []vk.AttachmentDescription2{
		AttachmentColor: attachment(params.ColorFormat, params.Samples,
			vk.AttachmentLoadOpClear, vk.AttachmentStoreOpDontCare, vk.ImageLayoutColorAttachmentOptimal),
		AttachmentDepth: attachment(params.DepthFormat, params.Samples,
			vk.AttachmentLoadOpClear, vk.AttachmentStoreOpDontCare, vk.ImageLayoutDepthStencilAttachmentOptimal),
		AttachmentColorResolve: attachment(params.ColorFormat, vk.SampleCount1Bit,
			vk.AttachmentLoadOpDontCare, vk.AttachmentStoreOpStore, vk.ImageLayoutShaderReadOnlyOptimal),
		AttachmentDepthResolve: attachment(params.DepthFormat, vk.SampleCount1Bit,
			vk.AttachmentLoadOpDontCare, vk.AttachmentStoreOpStore, vk.ImageLayoutDepthStencilAttachmentOptimal),
		AttachmentGrayscale: attachment(params.ColorFormat, vk.SampleCount1Bit,
			vk.AttachmentLoadOpDontCare, vk.AttachmentStoreOpStore, vk.ImageLayoutShaderReadOnlyOptimal),
	}

	sceneColor := []vk.AttachmentReference2{
		reference(AttachmentColor, vk.ImageLayoutColorAttachmentOptimal, 0),
	}
	sceneResolve := []vk.AttachmentReference2{
		reference(AttachmentColorResolve, vk.ImageLayoutColorAttachmentOptimal, 0),
	}
	sceneDepth := reference(AttachmentDepth, vk.ImageLayoutDepthStencilAttachmentOptimal, 0)
	depthResolveTarget := reference(AttachmentDepthResolve, vk.ImageLayoutDepthStencilAttachmentOptimal, 0)

	depthResolve := &vk.SubpassDescriptionDepthStencilResolve{
		SType:                          vk.StructureTypeSubpassDescriptionDepthStencilResolve,
		DepthResolveMode:               vk.ResolveModeSampleZeroBit,
		StencilResolveMode:             vk.ResolveModeNone,
		PDepthStencilResolveAttachment: []vk.AttachmentReference2{depthResolveTarget},
	}

	visualizeInput := []vk.AttachmentReference2{
		reference(AttachmentDepthResolve, vk.ImageLayoutShaderReadOnlyOptimal,
			vk.ImageAspectFlags(vk.ImageAspectDepthBit)),
	}
	visualizeColor := []vk.AttachmentReference2{
		reference(AttachmentGrayscale, vk.ImageLayoutColorAttachmentOptimal, 0),
	}

	subpasses := []vk.SubpassDescription2{
		SubpassScene: {
			SType:                   vk.StructureTypeSubpassDescription2,
			PipelineBindPoint:       vk.PipelineBindPointGraphics,
			ColorAttachmentCount:    uint32(len(sceneColor)),
			PColorAttachments:       sceneColor,
			PResolveAttachments:     sceneResolve,
			PDepthStencilAttachment: []vk.AttachmentReference2{sceneDepth},
		},
		SubpassVisualize: {
			SType:                vk.StructureTypeSubpassDescription2,
			PipelineBindPoint:    vk.PipelineBindPointGraphics,
			InputAttachmentCount: uint32(len(visualizeInput)),
			PInputAttachments:    visualizeInput,
			ColorAttachmentCount: uint32(len(visualizeColor)),
			PColorAttachments:    visualizeColor,
		},
	}

	dependencies := []vk.SubpassDependency2{
		{
			SType:      vk.StructureTypeSubpassDependency2,
			SrcSubpass: vk.SubpassExternal,
			DstSubpass: SubpassScene,
			SrcStageMask: vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit |
				vk.PipelineStageEarlyFragmentTestsBit),
			DstStageMask: vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit |
				vk.PipelineStageEarlyFragmentTestsBit),
			SrcAccessMask: 0,
			DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit |
				vk.AccessDepthStencilAttachmentWriteBit),
		},
		{
			SType:           vk.StructureTypeSubpassDependency2,
			SrcSubpass:      SubpassScene,
			DstSubpass:      SubpassVisualize,
			// Depth resolve writes happen in the color output stage.
			SrcStageMask: vk.PipelineStageFlags(vk.PipelineStageLateFragmentTestsBit |
				vk.PipelineStageColorAttachmentOutputBit),
			DstStageMask: vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
			SrcAccessMask: vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit |
				vk.AccessColorAttachmentWriteBit),
			DstAccessMask:   vk.AccessFlags(vk.AccessShaderReadBit | vk.AccessInputAttachmentReadBit),
			DependencyFlags: vk.DependencyFlags(vk.DependencyByRegionBit),
		},
	}

	return &RenderPassLayout{
		Attachments:  attachments,
		Subpasses:    subpasses,
		Dependencies: dependencies,
		DepthResolve: depthResolve,
	}, nil
}

// CreateInfo returns the create info describing the layout, without the
// depth resolve extension.
func (l *RenderPassLayout) CreateInfo() vk.RenderPassCreateInfo2 {
	return vk.RenderPassCreateInfo2{
		SType:           vk.StructureTypeRenderPassCreateInfo2,
		AttachmentCount: uint32(len(l.Attachments)),
		PAttachments:    l.Attachments,
		SubpassCount:    uint32(len(l.Subpasses)),
		PSubpasses:      l.Subpasses,
		DependencyCount: uint32(len(l.Dependencies)),
		PDependencies:   l.Dependencies,
	}
}

// ChainedCreateInfo returns CreateInfo with resolve, a C copy of
// DepthResolve, set as PNext of the scene subpass. The layout itself is
// not modified.
func (l *RenderPassLayout) ChainedCreateInfo(resolve unsafe.Pointer) vk.RenderPassCreateInfo2 {
	info := l.CreateInfo()
	subpasses := make([]vk.SubpassDescription2, len(l.Subpasses))
	copy(subpasses, l.Subpasses)
	subpasses[SubpassScene].PNext = resolve
	info.PSubpasses = subpasses
	return info
}

// ClearValues returns one clear value per attachment. Only the
// multisampled pair is cleared; the other entries are ignored.
func (l *RenderPassLayout) ClearValues() []vk.ClearValue {
	values := make([]vk.ClearValue, len(l.Attachments))
	values[AttachmentColor] = vk.NewClearValue([]float32{0.02, 0.02, 0.04, 1.0})
	values[AttachmentDepth] = vk.NewClearDepthStencil(1.0, 0)
	return values
}

// RenderPass is the immutable scene render pass. It holds a reference on
// the device and must be destroyed before it, together with every
// framebuffer and comparator built against it.
type RenderPass struct {
	Handle vk.RenderPass
	Layout *RenderPassLayout
	Params RenderPassParams

	dev *Device
}

// CreateRenderPass builds the scene render pass on dev.
func CreateRenderPass(dev *Device, params RenderPassParams) (*RenderPass, error) {
	layout, err := NewRenderPassLayout(params)
	if err != nil {
		return nil, err
	}
	resolve, allocs := layout.DepthResolve.PassRef()
	defer allocs.Free()
	info := layout.ChainedCreateInfo(unsafe.Pointer(resolve))
	handle, err := createRenderPass2(dev, &info)
	if err != nil {
		return nil, err
	}
	return &RenderPass{
		Handle: handle,
		Layout: layout,
		Params: params,
		dev:    dev.Acquire(),
	}, nil
}

// Destroy destroys the render pass and releases the device.
func (rp *RenderPass) Destroy() {
	if rp == nil || rp.dev == nil {
		return
	}
	vk.DestroyRenderPass(rp.dev.Handle, rp.Handle, nil)
	rp.Handle = vk.NullRenderPass
	rp.dev.Release()
	rp.dev = nil
}
