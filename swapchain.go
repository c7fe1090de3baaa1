package framecomp

import (
	"github.com/pkg/errors"

	vk "github.com/goki/vulkan"
)

// SurfaceSupport is what a surface offers on the selected device.
type SurfaceSupport struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
}

// QuerySurfaceSupport reads the capabilities and formats of surface.
func QuerySurfaceSupport(gpu vk.PhysicalDevice, surface vk.Surface) (SurfaceSupport, error) {
	var s SurfaceSupport
	ret := vk.GetPhysicalDeviceSurfaceCapabilities(gpu, surface, &s.Capabilities)
	if err := NewError("vkGetPhysicalDeviceSurfaceCapabilitiesKHR", ret); err != nil {
		return s, err
	}
	s.Capabilities.Deref()
	s.Capabilities.CurrentExtent.Deref()
	s.Capabilities.MinImageExtent.Deref()
	s.Capabilities.MaxImageExtent.Deref()

	var count uint32
	ret = vk.GetPhysicalDeviceSurfaceFormats(gpu, surface, &count, nil)
	if err := NewError("vkGetPhysicalDeviceSurfaceFormatsKHR", ret); err != nil {
		return s, err
	}
	s.Formats = make([]vk.SurfaceFormat, count)
	ret = vk.GetPhysicalDeviceSurfaceFormats(gpu, surface, &count, s.Formats)
	if err := NewError("vkGetPhysicalDeviceSurfaceFormatsKHR", ret); err != nil {
		return s, err
	}
	for i := range s.Formats {
		s.Formats[i].Deref()
	}
	return s, nil
}

// ChooseSurfaceFormat prefers 8-bit BGRA with sRGB nonlinear color space
// and otherwise takes the first format offered. An undefined format means
// the surface has no preference.
func ChooseSurfaceFormat(formats []vk.SurfaceFormat) (vk.SurfaceFormat, error) {
	if len(formats) == 0 {
		return vk.SurfaceFormat{}, errors.Wrap(ErrNoSupportedFormat, "surface reports no formats")
	}
	if len(formats) == 1 && formats[0].Format == vk.FormatUndefined {
		return vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: formats[0].ColorSpace}, nil
	}
	for _, f := range formats {
		if f.Format == vk.FormatB8g8r8a8Unorm && f.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return f, nil
		}
	}
	return formats[0], nil
}

// ChooseExtent uses the surface extent when it is fixed and otherwise
// clamps the framebuffer size to the surface limits.
func ChooseExtent(caps vk.SurfaceCapabilities, width, height int) vk.Extent2D {
	if caps.CurrentExtent.Width != vk.MaxUint32 {
		return caps.CurrentExtent
	}
	clamp := func(v int, lo, hi uint32) uint32 {
		switch {
		case v < int(lo):
			return lo
		case hi > 0 && v > int(hi):
			return hi
		}
		return uint32(v)
	}
	return vk.Extent2D{
		Width:  clamp(width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: clamp(height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

// ChooseImageCount clamps desired to the surface image count limits. A
// zero maximum means unlimited.
func ChooseImageCount(caps vk.SurfaceCapabilities, desired int) uint32 {
	count := uint32(desired)
	if count < caps.MinImageCount {
		count = caps.MinImageCount
	}
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

// ChooseCompositeAlpha returns the first supported mode, opaque first.
func ChooseCompositeAlpha(caps vk.SurfaceCapabilities) vk.CompositeAlphaFlagBits {
	for _, mode := range []vk.CompositeAlphaFlagBits{
		vk.CompositeAlphaOpaqueBit,
		vk.CompositeAlphaPreMultipliedBit,
		vk.CompositeAlphaPostMultipliedBit,
		vk.CompositeAlphaInheritBit,
	} {
		if caps.SupportedCompositeAlpha&vk.CompositeAlphaFlags(mode) != 0 {
			return mode
		}
	}
	return vk.CompositeAlphaOpaqueBit
}

// Swapchain is the presentable image chain and one view per image.
type Swapchain struct {
	Handle vk.Swapchain
	Format vk.SurfaceFormat
	Extent vk.Extent2D
	Images []vk.Image
	Views  []vk.ImageView

	dev *Device
}

// SwapchainOptions are the inputs of NewSwapchain.
type SwapchainOptions struct {
	Surface vk.Surface
	Support SurfaceSupport
	// Width and Height are the window framebuffer size in pixels.
	Width, Height int
	Images        int
	Old           vk.Swapchain
}

// NewSwapchain creates a FIFO swapchain whose images the comparators
// render into.
func NewSwapchain(dev *Device, opts SwapchainOptions) (*Swapchain, error) {
	caps := opts.Support.Capabilities
	format, err := ChooseSurfaceFormat(opts.Support.Formats)
	if err != nil {
		return nil, err
	}
	extent := ChooseExtent(caps, opts.Width, opts.Height)
	if extent.Width == 0 || extent.Height == 0 {
		return nil, errors.Wrapf(ErrZeroExtent, "swapchain extent %dx%d", extent.Width, extent.Height)
	}

	preTransform := caps.CurrentTransform
	if vk.SurfaceTransformFlagBits(caps.SupportedTransforms)&vk.SurfaceTransformIdentityBit != 0 {
		preTransform = vk.SurfaceTransformIdentityBit
	}

	info := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          opts.Surface,
		MinImageCount:    ChooseImageCount(caps, opts.Images),
		ImageFormat:      format.Format,
		ImageColorSpace:  format.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     preTransform,
		CompositeAlpha:   ChooseCompositeAlpha(caps),
		PresentMode:      vk.PresentModeFifo,
		Clipped:          vk.True,
		OldSwapchain:     opts.Old,
	}
	if dev.Queues.Separate() {
		families := []uint32{dev.Queues.Graphics, dev.Queues.Present}
		info.ImageSharingMode = vk.SharingModeConcurrent
		info.QueueFamilyIndexCount = uint32(len(families))
		info.PQueueFamilyIndices = families
	}

	sc := &Swapchain{Format: format, Extent: extent, dev: dev.Acquire()}
	ret := vk.CreateSwapchain(dev.Handle, &info, nil, &sc.Handle)
	if err := NewError("vkCreateSwapchainKHR", ret); err != nil {
		sc.Destroy()
		return nil, err
	}

	var count uint32
	ret = vk.GetSwapchainImages(dev.Handle, sc.Handle, &count, nil)
	if err := NewError("vkGetSwapchainImagesKHR", ret); err != nil {
		sc.Destroy()
		return nil, err
	}
	sc.Images = make([]vk.Image, count)
	ret = vk.GetSwapchainImages(dev.Handle, sc.Handle, &count, sc.Images)
	if err := NewError("vkGetSwapchainImagesKHR", ret); err != nil {
		sc.Destroy()
		return nil, err
	}
	for _, image := range sc.Images {
		view, err := createImageView(dev.Handle, image, format.Format, vk.ImageAspectFlags(vk.ImageAspectColorBit))
		if err != nil {
			sc.Destroy()
			return nil, err
		}
		sc.Views = append(sc.Views, view)
	}
	return sc, nil
}

// Acquire returns the index of the next image, signaling semaphore when
// it is ready. An out-of-date result is reported through IsOutOfDate.
func (sc *Swapchain) Acquire(semaphore vk.Semaphore) (uint32, error) {
	var index uint32
	ret := vk.AcquireNextImage(sc.dev.Handle, sc.Handle, vk.MaxUint64, semaphore, vk.NullFence, &index)
	return index, NewError("vkAcquireNextImageKHR", ret)
}

// Present queues image index for presentation after wait is signaled.
func (sc *Swapchain) Present(queue vk.Queue, index uint32, wait vk.Semaphore) error {
	ret := vk.QueuePresent(queue, &vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{wait},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{sc.Handle},
		PImageIndices:      []uint32{index},
	})
	return NewError("vkQueuePresentKHR", ret)
}

func (sc *Swapchain) Destroy() {
	if sc == nil || sc.dev == nil {
		return
	}
	for _, view := range sc.Views {
		vk.DestroyImageView(sc.dev.Handle, view, nil)
	}
	if sc.Handle != vk.NullSwapchain {
		vk.DestroySwapchain(sc.dev.Handle, sc.Handle, nil)
	}
	sc.dev.Release()
	*sc = Swapchain{}
}
