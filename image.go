package framecomp

import (
	"github.com/pkg/errors"

	vk "github.com/goki/vulkan"
)

// AttachmentSpec describes a device-local image used as a render target.
type AttachmentSpec struct {
	Format  vk.Format
	Samples vk.SampleCountFlagBits
	Usage   vk.ImageUsageFlagBits
	Aspect  vk.ImageAspectFlags
	Extent  vk.Extent2D
	// Transient images prefer lazily allocated memory.
	Transient bool
}

// Attachment is an image with its memory and view. For depth formats with
// stencil, DepthView covers only the depth aspect so that descriptors can
// reference it; otherwise it equals View.
type Attachment struct {
	Image     vk.Image
	Memory    vk.DeviceMemory
	View      vk.ImageView
	DepthView vk.ImageView
	Format    vk.Format

	device vk.Device
}

// NewAttachment allocates and binds an image described by spec.
func NewAttachment(dev *Device, spec AttachmentSpec) (*Attachment, error) {
	a := &Attachment{Format: spec.Format, device: dev.Handle}
	if err := a.init(dev, spec); err != nil {
		a.Destroy()
		return nil, err
	}
	return a, nil
}

func (a *Attachment) init(dev *Device, spec AttachmentSpec) error {
	usage := vk.ImageUsageFlags(spec.Usage)
	if spec.Transient {
		usage |= vk.ImageUsageFlags(vk.ImageUsageTransientAttachmentBit)
	}
	ret := vk.CreateImage(a.device, &vk.ImageCreateInfo{
		SType:         vk.StructureTypeImageCreateInfo,
		ImageType:     vk.ImageType2d,
		Format:        spec.Format,
		Extent:        vk.Extent3D{Width: spec.Extent.Width, Height: spec.Extent.Height, Depth: 1},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       spec.Samples,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         usage,
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}, nil, &a.Image)
	if err := NewError("vkCreateImage", ret); err != nil {
		return err
	}

	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(a.device, a.Image, &req)
	req.Deref()

	memType, err := FindRequiredMemoryType(dev.Memory, req.MemoryTypeBits,
		vk.MemoryPropertyDeviceLocalBit|vk.MemoryPropertyLazilyAllocatedBit)
	if err != nil || !spec.Transient {
		memType, err = FindRequiredMemoryType(dev.Memory, req.MemoryTypeBits, vk.MemoryPropertyDeviceLocalBit)
		if err != nil {
			return errors.Wrap(err, "attachment memory")
		}
	}

	ret = vk.AllocateMemory(a.device, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: memType,
	}, nil, &a.Memory)
	if err := NewError("vkAllocateMemory", ret); err != nil {
		return err
	}
	if err := NewError("vkBindImageMemory", vk.BindImageMemory(a.device, a.Image, a.Memory, 0)); err != nil {
		return err
	}

	if a.View, err = createImageView(a.device, a.Image, spec.Format, spec.Aspect); err != nil {
		return err
	}
	a.DepthView = a.View
	depthOnly := vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	if spec.Aspect&depthOnly != 0 && spec.Aspect != depthOnly {
		if a.DepthView, err = createImageView(a.device, a.Image, spec.Format, depthOnly); err != nil {
			return err
		}
	}
	return nil
}

func createImageView(device vk.Device, image vk.Image, format vk.Format, aspect vk.ImageAspectFlags) (vk.ImageView, error) {
	var view vk.ImageView
	ret := vk.CreateImageView(device, &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: aspect,
			LevelCount: 1,
			LayerCount: 1,
		},
	}, nil, &view)
	if err := NewError("vkCreateImageView", ret); err != nil {
		return vk.NullImageView, err
	}
	return view, nil
}

func (a *Attachment) Destroy() {
	if a == nil || a.device == nil {
		return
	}
	if a.DepthView != vk.NullImageView && a.DepthView != a.View {
		vk.DestroyImageView(a.device, a.DepthView, nil)
	}
	if a.View != vk.NullImageView {
		vk.DestroyImageView(a.device, a.View, nil)
	}
	if a.Image != vk.NullImage {
		vk.DestroyImage(a.device, a.Image, nil)
	}
	if a.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(a.device, a.Memory, nil)
	}
	*a = Attachment{}
}

// AttachmentSpecs returns the five render targets of the scene render
// pass, indexed by the Attachment* constants.
func AttachmentSpecs(params RenderPassParams) []AttachmentSpec {
	colorAspect := vk.ImageAspectFlags(vk.ImageAspectColorBit)
	depthAspect := DepthAspect(params.DepthFormat)
	specs := make([]AttachmentSpec, AttachmentCount)
	specs[AttachmentColor] = AttachmentSpec{
		Format: params.ColorFormat, Samples: params.Samples, Aspect: colorAspect,
		Usage: vk.ImageUsageColorAttachmentBit, Transient: true,
	}
	specs[AttachmentDepth] = AttachmentSpec{
		Format: params.DepthFormat, Samples: params.Samples, Aspect: depthAspect,
		Usage: vk.ImageUsageDepthStencilAttachmentBit, Transient: true,
	}
	specs[AttachmentColorResolve] = AttachmentSpec{
		Format: params.ColorFormat, Samples: vk.SampleCount1Bit, Aspect: colorAspect,
		Usage: vk.ImageUsageColorAttachmentBit | vk.ImageUsageSampledBit,
	}
	specs[AttachmentDepthResolve] = AttachmentSpec{
		Format: params.DepthFormat, Samples: vk.SampleCount1Bit, Aspect: depthAspect,
		Usage: vk.ImageUsageDepthStencilAttachmentBit | vk.ImageUsageInputAttachmentBit,
	}
	specs[AttachmentGrayscale] = AttachmentSpec{
		Format: params.ColorFormat, Samples: vk.SampleCount1Bit, Aspect: colorAspect,
		Usage: vk.ImageUsageColorAttachmentBit | vk.ImageUsageSampledBit,
	}
	for i := range specs {
		specs[i].Extent = params.Extent
	}
	return specs
}

// RenderTargets are the offscreen attachments and framebuffer of the scene
// render pass. They are shared by every swapchain image, which limits the
// renderer to one frame in flight.
type RenderTargets struct {
	Attachments []*Attachment
	Framebuffer vk.Framebuffer
	Extent      vk.Extent2D

	dev *Device
}

// NewRenderTargets allocates the attachments for rp and a framebuffer
// binding them.
func NewRenderTargets(dev *Device, rp *RenderPass) (*RenderTargets, error) {
	t := &RenderTargets{Extent: rp.Params.Extent, dev: dev.Acquire()}
	for i, spec := range AttachmentSpecs(rp.Params) {
		a, err := NewAttachment(dev, spec)
		if err != nil {
			t.Destroy()
			return nil, errors.Wrapf(err, "attachment %d", i)
		}
		t.Attachments = append(t.Attachments, a)
	}
	views := make([]vk.ImageView, len(t.Attachments))
	for i, a := range t.Attachments {
		views[i] = a.View
	}
	ret := vk.CreateFramebuffer(dev.Handle, &vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      rp.Handle,
		AttachmentCount: uint32(len(views)),
		PAttachments:    views,
		Width:           t.Extent.Width,
		Height:          t.Extent.Height,
		Layers:          1,
	}, nil, &t.Framebuffer)
	if err := NewError("vkCreateFramebuffer", ret); err != nil {
		t.Destroy()
		return nil, err
	}
	return t, nil
}

// ComparatorInputs returns the views a comparator samples.
func (t *RenderTargets) ComparatorInputs() [2]vk.ImageView {
	return [2]vk.ImageView{
		InputColor:     t.Attachments[AttachmentColorResolve].View,
		InputGrayscale: t.Attachments[AttachmentGrayscale].View,
	}
}

// DepthInput returns the depth-only view of the resolved depth, read by
// the visualization subpass.
func (t *RenderTargets) DepthInput() vk.ImageView {
	return t.Attachments[AttachmentDepthResolve].DepthView
}

func (t *RenderTargets) Destroy() {
	if t == nil || t.dev == nil {
		return
	}
	if t.Framebuffer != vk.NullFramebuffer {
		vk.DestroyFramebuffer(t.dev.Handle, t.Framebuffer, nil)
	}
	for _, a := range t.Attachments {
		a.Destroy()
	}
	t.Attachments = nil
	t.dev.Release()
	t.dev = nil
}
