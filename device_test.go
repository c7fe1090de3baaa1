package framecomp

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vk "github.com/goki/vulkan"
)

func TestSelectPhysicalDeviceSkipsUnsuitable(t *testing.T) {
	noDepth := goodGPU("no depth")
	noDepth.depth = nil
	noPresent := goodGPU("no present")
	noPresent.present = nil
	good := goodGPU("good")

	sel, err := SelectPhysicalDevice([]PhysicalDevice{noDepth, noPresent, good},
		vk.NullSurface, DefaultDepthFormats, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, "good", sel.Device.Name())
	assert.Equal(t, vk.FormatD32Sfloat, sel.DepthFormat)
	assert.Equal(t, QueueFamilyIndices{}, sel.Queues)
}

func TestSelectPhysicalDeviceNoneSuitable(t *testing.T) {
	bad := goodGPU("bad")
	bad.depth = nil
	_, err := SelectPhysicalDevice([]PhysicalDevice{bad}, vk.NullSurface, DefaultDepthFormats, slog.Default())
	assert.ErrorIs(t, err, ErrDeviceUnsuitable)

	_, err = SelectPhysicalDevice(nil, vk.NullSurface, DefaultDepthFormats, slog.Default())
	assert.ErrorIs(t, err, ErrDeviceUnsuitable)
}

func TestSelectPhysicalDeviceStopsOnQueryError(t *testing.T) {
	broken := goodGPU("broken")
	broken.presentErr = errDeviceLost
	good := goodGPU("good")

	_, err := SelectPhysicalDevice([]PhysicalDevice{broken, good}, vk.NullSurface, DefaultDepthFormats, slog.Default())
	assert.ErrorIs(t, err, errDeviceLost)
	assert.Empty(t, good.queried, "later devices are not evaluated")
}

func TestDeviceDestroyWithDependents(t *testing.T) {
	dev := &Device{}
	a := dev.Acquire()
	dev.Acquire()
	assert.Same(t, dev, a)
	assert.Equal(t, 2, dev.Dependents())

	assert.ErrorIs(t, dev.Destroy(), ErrDeviceInUse)
	dev.Release()
	assert.ErrorIs(t, dev.Destroy(), ErrDeviceInUse)
	dev.Release()
	assert.Equal(t, 0, dev.Dependents())
	// No handle, so Destroy has nothing to release.
	assert.NoError(t, dev.Destroy())
}

func TestDeviceWaitIdleWithoutHandle(t *testing.T) {
	assert.NoError(t, (&Device{}).WaitIdle())
}

func TestSelectPhysicalDeviceSkipsMissingSwapchain(t *testing.T) {
	headless := goodGPU("headless")
	headless.exts = nil
	good := goodGPU("good")

	sel, err := SelectPhysicalDevice([]PhysicalDevice{headless, good}, vk.NullSurface, DefaultDepthFormats, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, "good", sel.Device.Name())
	assert.Equal(t, apiVersion12, sel.APIVersion)
	assert.Equal(t, []string{swapchainExtension}, sel.Extensions)
	assert.Empty(t, headless.queried, "queues are not checked on a device without a swapchain")
}

func TestSelectPhysicalDeviceSkipsOldVersion(t *testing.T) {
	old := goodGPU("1.1 without resolve")
	old.api = apiVersion11
	good := goodGPU("good")

	sel, err := SelectPhysicalDevice([]PhysicalDevice{old, good}, vk.NullSurface, DefaultDepthFormats, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, "good", sel.Device.Name())
}

func TestSelectPhysicalDeviceStopsOnExtensionError(t *testing.T) {
	broken := goodGPU("broken")
	broken.extErr = errDeviceLost
	good := goodGPU("good")

	_, err := SelectPhysicalDevice([]PhysicalDevice{broken, good}, vk.NullSurface, DefaultDepthFormats, slog.Default())
	assert.ErrorIs(t, err, errDeviceLost)
}

func TestCheckDeviceFeatures(t *testing.T) {
	apiVersion10 := uint32(vk.MakeVersion(1, 0, 0))
	full11 := []string{swapchainExtension, createRenderPass2Ext, depthStencilResolveExt}
	for _, tc := range []struct {
		name     string
		version  uint32
		exts     []string
		suitable bool
	}{
		{"1.2 core", apiVersion12, []string{swapchainExtension}, true},
		{"1.3 core", uint32(vk.MakeVersion(1, 3, 0)), []string{swapchainExtension}, true},
		{"1.1 with extensions", apiVersion11, full11, true},
		{"1.1 without resolve", apiVersion11, []string{swapchainExtension, createRenderPass2Ext}, false},
		{"1.0", apiVersion10, full11, false},
		{"no swapchain", apiVersion12, nil, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckDeviceFeatures(tc.version, tc.exts)
			if tc.suitable {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrDeviceUnsuitable)
			}
		})
	}
}
