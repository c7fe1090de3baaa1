package framecomp

import (
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
)

// DefaultDepthFormats lists depth formats from highest to lowest precision.
var DefaultDepthFormats = []vk.Format{
	vk.FormatD32SfloatS8Uint,
	vk.FormatD32Sfloat,
	vk.FormatD24UnormS8Uint,
}

// FindDepthFormat returns the first candidate usable as an optimally tiled
// depth/stencil attachment on gpu.
func FindDepthFormat(gpu PhysicalDevice, candidates []vk.Format) (vk.Format, error) {
	required := vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit)
	for _, format := range candidates {
		props := gpu.FormatProperties(format)
		if props.OptimalTilingFeatures&required == required {
			return format, nil
		}
	}
	return vk.FormatUndefined, errors.Wrapf(ErrNoSupportedFormat, "depth attachment, %d candidates", len(candidates))
}

// HasStencil reports whether a depth format carries a stencil component.
func HasStencil(format vk.Format) bool {
	switch format {
	case vk.FormatD32SfloatS8Uint, vk.FormatD24UnormS8Uint, vk.FormatD16UnormS8Uint, vk.FormatS8Uint:
		return true
	}
	return false
}

// DepthAspect returns the image aspect mask for a depth format.
func DepthAspect(format vk.Format) vk.ImageAspectFlags {
	aspect := vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	if HasStencil(format) {
		aspect |= vk.ImageAspectFlags(vk.ImageAspectStencilBit)
	}
	return aspect
}
