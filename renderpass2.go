package framecomp

/*
#include <stdint.h>
#include <stddef.h>

// vkCreateRenderPass2 and vkCreateRenderPass2KHR share this signature.
// Handles are passed untyped so no Vulkan header is needed here.
typedef int32_t (*createRenderPass2Func)(void* device, const void* info,
	const void* allocator, uint64_t* renderPass);

static int32_t callCreateRenderPass2(void* fn, void* device, const void* info, uint64_t* renderPass) {
	return ((createRenderPass2Func)fn)(device, info, NULL, renderPass);
}
*/
import "C"

import (
	"unsafe"

	vk "github.com/goki/vulkan"
)

// renderPass2Entry names the entry point for a device: core from 1.2,
// the KHR alias before that.
func renderPass2Entry(apiVersion uint32) string {
	if apiVersion >= apiVersion12 {
		return "vkCreateRenderPass2"
	}
	return "vkCreateRenderPass2KHR"
}

// createRenderPass2 calls vkCreateRenderPass2 through the device proc
// address; the binding only wraps the 1.0 entry point.
func createRenderPass2(dev *Device, info *vk.RenderPassCreateInfo2) (vk.RenderPass, error) {
	name := renderPass2Entry(dev.APIVersion)
	fn := vk.GetDeviceProcAddr(dev.Handle, safeString(name))
	if fn == nil {
		return vk.NullRenderPass, NewError(name, vk.ErrorExtensionNotPresent)
	}
	ref, allocs := info.PassRef()
	defer allocs.Free()

	var raw C.uint64_t
	ret := vk.Result(C.callCreateRenderPass2(unsafe.Pointer(fn), unsafe.Pointer(dev.Handle),
		unsafe.Pointer(ref), &raw))
	if err := NewError(name, ret); err != nil {
		return vk.NullRenderPass, err
	}
	return *(*vk.RenderPass)(unsafe.Pointer(&raw)), nil
}
