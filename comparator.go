package framecomp

import (
	"unsafe"

	"github.com/pkg/errors"

	vk "github.com/goki/vulkan"
)

// Source is the image a comparator output pixel is taken from.
type Source int

const (
	SourceColor Source = iota
	SourceGrayscale
)

func (s Source) String() string {
	if s == SourceColor {
		return "color"
	}
	return "grayscale"
}

// Input slots of a comparator.
const (
	InputColor     = 0
	InputGrayscale = 1
)

// SelectSource returns the source of output column x in an output width
// pixels wide, sampled at the pixel center. It mirrors the comparator
// fragment shader: columns left of the bar show color, the rest show
// grayscale, with no blending.
func SelectSource(x, width uint32, bar float32) Source {
	if width == 0 {
		return SourceGrayscale
	}
	if (float32(x)+0.5)/float32(width) < clampBar(bar) {
		return SourceColor
	}
	return SourceGrayscale
}

// ComparatorConfig describes one comparator. The device and descriptor
// pool are borrowed and must outlive it.
type ComparatorConfig struct {
	Device         *Device
	DescriptorPool vk.DescriptorPool
	ColorFormat    vk.Format
	Extent         vk.Extent2D
	// Inputs are the color resolve and grayscale views, in that order.
	Inputs [2]vk.ImageView
	// Output is the swapchain image view written by the comparator.
	Output      vk.ImageView
	OutputIndex uint32
	// Viewport restricts drawing; nil covers Extent.
	Viewport *vk.Viewport
	Shaders  ShaderCode
}

// Validate checks the configuration without touching the GPU.
func (c ComparatorConfig) Validate() error {
	switch {
	case c.Device == nil || c.Device.Handle == nil:
		return invalidf("comparator: device not set")
	case c.DescriptorPool == vk.NullDescriptorPool:
		return invalidf("comparator: descriptor pool not set")
	case c.ColorFormat == vk.FormatUndefined:
		return invalidf("comparator: color format undefined")
	case c.Extent.Width == 0 || c.Extent.Height == 0:
		return invalidf("comparator: extent %dx%d", c.Extent.Width, c.Extent.Height)
	case c.Inputs[InputColor] == vk.NullImageView:
		return invalidf("comparator: color input view not set")
	case c.Inputs[InputGrayscale] == vk.NullImageView:
		return invalidf("comparator: grayscale input view not set")
	case c.Output == vk.NullImageView:
		return invalidf("comparator: output view not set")
	}
	if c.Viewport != nil && (c.Viewport.Width <= 0 || c.Viewport.Height == 0) {
		return invalidf("comparator: viewport %gx%g", c.Viewport.Width, c.Viewport.Height)
	}
	if err := c.Shaders.Validate(); err != nil {
		return errors.Wrap(err, "comparator")
	}
	return nil
}

// EffectiveViewport returns the configured viewport or one covering Extent.
func (c ComparatorConfig) EffectiveViewport() vk.Viewport {
	if c.Viewport != nil {
		return *c.Viewport
	}
	return FullViewport(c.Extent)
}

// comparatorPush is the fragment push constant block.
type comparatorPush struct {
	Bar     float32
	OriginX float32
	Width   float32
}

const comparatorPushSize = uint32(unsafe.Sizeof(comparatorPush{}))

// Comparator composites the two scene outputs into one swapchain image.
// Build one per swapchain image; rebuild all of them with the swapchain.
type Comparator struct {
	OutputIndex uint32

	extent   vk.Extent2D
	viewport vk.Viewport
	pool     vk.DescriptorPool

	sampler     vk.Sampler
	setLayout   vk.DescriptorSetLayout
	layout      vk.PipelineLayout
	renderPass  vk.RenderPass
	framebuffer vk.Framebuffer
	pipeline    vk.Pipeline
	set         vk.DescriptorSet

	dev *Device
}

// NewComparator builds every object of a comparator. On failure the
// objects created so far are destroyed.
func NewComparator(cfg ComparatorConfig) (*Comparator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Comparator{
		OutputIndex: cfg.OutputIndex,
		extent:      cfg.Extent,
		viewport:    cfg.EffectiveViewport(),
		pool:        cfg.DescriptorPool,
		dev:         cfg.Device.Acquire(),
	}
	if err := c.init(cfg); err != nil {
		c.Destroy()
		return nil, errors.Wrapf(err, "comparator %d", cfg.OutputIndex)
	}
	return c, nil
}

func (c *Comparator) init(cfg ComparatorConfig) error {
	device := c.dev.Handle

	ret := vk.CreateSampler(device, &vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               vk.FilterNearest,
		MinFilter:               vk.FilterNearest,
		MipmapMode:              vk.SamplerMipmapModeNearest,
		AddressModeU:            vk.SamplerAddressModeClampToEdge,
		AddressModeV:            vk.SamplerAddressModeClampToEdge,
		AddressModeW:            vk.SamplerAddressModeClampToEdge,
		MaxAnisotropy:           1,
		BorderColor:             vk.BorderColorFloatOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
	}, nil, &c.sampler)
	if err := NewError("vkCreateSampler", ret); err != nil {
		return err
	}

	bindings := []vk.DescriptorSetLayoutBinding{
		{
			Binding:         InputColor,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		},
		{
			Binding:         InputGrayscale,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		},
	}
	ret = vk.CreateDescriptorSetLayout(device, &vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}, nil, &c.setLayout)
	if err := NewError("vkCreateDescriptorSetLayout", ret); err != nil {
		return err
	}

	var err error
	c.layout, err = NewPipelineLayout(device, []vk.DescriptorSetLayout{c.setLayout},
		[]vk.PushConstantRange{{
			StageFlags: vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
			Offset:     0,
			Size:       comparatorPushSize,
		}})
	if err != nil {
		return err
	}

	if c.renderPass, err = c.createRenderPass(cfg.ColorFormat); err != nil {
		return err
	}

	ret = vk.CreateFramebuffer(device, &vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      c.renderPass,
		AttachmentCount: 1,
		PAttachments:    []vk.ImageView{cfg.Output},
		Width:           cfg.Extent.Width,
		Height:          cfg.Extent.Height,
		Layers:          1,
	}, nil, &c.framebuffer)
	if err := NewError("vkCreateFramebuffer", ret); err != nil {
		return err
	}

	program, err := NewShaderProgram(device, cfg.Shaders)
	if err != nil {
		return err
	}
	defer program.Destroy()
	c.pipeline, err = NewPipelineBuilder(program).
		Build(device, c.layout, c.renderPass, 0, c.viewport, FullRect(cfg.Extent))
	if err != nil {
		return err
	}

	if c.set, err = allocateDescriptorSet(device, c.pool, c.setLayout); err != nil {
		return err
	}
	c.writeInputs(cfg.Inputs)
	return nil
}

// createRenderPass targets the output view and leaves it ready to present.
// The dependency waits for the scene pass to finish writing the inputs.
func (c *Comparator) createRenderPass(format vk.Format) (vk.RenderPass, error) {
	attachments := []vk.AttachmentDescription{{
		Format:         format,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpDontCare,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutPresentSrc,
	}}
	colorRefs := []vk.AttachmentReference{{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}}
	subpasses := []vk.SubpassDescription{{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: uint32(len(colorRefs)),
		PColorAttachments:    colorRefs,
	}}
	dependencies := []vk.SubpassDependency{{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		SrcAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
		DstStageMask: vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit |
			vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessShaderReadBit | vk.AccessColorAttachmentWriteBit),
	}}
	var rp vk.RenderPass
	ret := vk.CreateRenderPass(c.dev.Handle, &vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    uint32(len(subpasses)),
		PSubpasses:      subpasses,
		DependencyCount: uint32(len(dependencies)),
		PDependencies:   dependencies,
	}, nil, &rp)
	if err := NewError("vkCreateRenderPass", ret); err != nil {
		return vk.NullRenderPass, err
	}
	return rp, nil
}

func (c *Comparator) writeInputs(inputs [2]vk.ImageView) {
	writes := make([]vk.WriteDescriptorSet, len(inputs))
	for i, view := range inputs {
		writes[i] = vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          c.set,
			DstBinding:      uint32(i),
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			PImageInfo: []vk.DescriptorImageInfo{{
				Sampler:     c.sampler,
				ImageView:   view,
				ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
			}},
		}
	}
	vk.UpdateDescriptorSets(c.dev.Handle, uint32(len(writes)), writes, 0, nil)
}

// Record writes the composite pass for swapchain image frameIndex into
// cmd. The caller has already recorded the scene pass; its dependencies
// order the input writes before this pass reads them.
func (c *Comparator) Record(cmd vk.CommandBuffer, frameIndex uint32, bar float32) error {
	if c.dev == nil {
		return errors.New("comparator destroyed")
	}
	if frameIndex != c.OutputIndex {
		return errors.Errorf("comparator for image %d asked to record image %d", c.OutputIndex, frameIndex)
	}
	push := comparatorPush{
		Bar:     clampBar(bar),
		OriginX: c.viewport.X,
		Width:   c.viewport.Width,
	}

	vk.CmdBeginRenderPass(cmd, &vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  c.renderPass,
		Framebuffer: c.framebuffer,
		RenderArea:  FullRect(c.extent),
	}, vk.SubpassContentsInline)
	vk.CmdBindPipeline(cmd, vk.PipelineBindPointGraphics, c.pipeline)
	vk.CmdBindDescriptorSets(cmd, vk.PipelineBindPointGraphics, c.layout, 0, 1,
		[]vk.DescriptorSet{c.set}, 0, nil)
	vk.CmdPushConstants(cmd, c.layout, vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		0, comparatorPushSize, unsafe.Pointer(&push))
	vk.CmdDraw(cmd, 3, 1, 0, 0)
	vk.CmdEndRenderPass(cmd)
	return nil
}

// Destroy releases every object and the device reference. The descriptor
// set goes back to the borrowed pool.
func (c *Comparator) Destroy() {
	if c == nil || c.dev == nil {
		return
	}
	device := c.dev.Handle
	if c.set != vk.NullDescriptorSet {
		vk.FreeDescriptorSets(device, c.pool, 1, &c.set)
	}
	if c.pipeline != vk.NullPipeline {
		vk.DestroyPipeline(device, c.pipeline, nil)
	}
	if c.framebuffer != vk.NullFramebuffer {
		vk.DestroyFramebuffer(device, c.framebuffer, nil)
	}
	if c.renderPass != vk.NullRenderPass {
		vk.DestroyRenderPass(device, c.renderPass, nil)
	}
	if c.layout != vk.NullPipelineLayout {
		vk.DestroyPipelineLayout(device, c.layout, nil)
	}
	if c.setLayout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(device, c.setLayout, nil)
	}
	if c.sampler != vk.NullSampler {
		vk.DestroySampler(device, c.sampler, nil)
	}
	dev := c.dev
	*c = Comparator{OutputIndex: c.OutputIndex}
	dev.Release()
}
