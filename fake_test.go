package framecomp

import (
	"unsafe"

	"github.com/pkg/errors"

	vk "github.com/goki/vulkan"
)

// fakeGPU answers the selection queries from fixed tables.
type fakeGPU struct {
	name     string
	families []vk.QueueFlags
	present  map[uint32]bool
	depth    map[vk.Format]bool
	// presentErr is returned by every SurfaceSupport query when set.
	presentErr error
	queried    []uint32
	api        uint32
	exts       []string
	extErr     error
}

func (g *fakeGPU) Name() string { return g.name }

func (g *fakeGPU) APIVersion() uint32 { return g.api }

func (g *fakeGPU) Extensions() ([]string, error) { return g.exts, g.extErr }

func (g *fakeGPU) QueueFamilyProperties() []vk.QueueFamilyProperties {
	props := make([]vk.QueueFamilyProperties, len(g.families))
	for i, flags := range g.families {
		props[i] = vk.QueueFamilyProperties{QueueFlags: flags, QueueCount: 1}
	}
	return props
}

func (g *fakeGPU) SurfaceSupport(family uint32, surface vk.Surface) (bool, error) {
	g.queried = append(g.queried, family)
	if g.presentErr != nil {
		return false, g.presentErr
	}
	return g.present[family], nil
}

func (g *fakeGPU) FormatProperties(format vk.Format) vk.FormatProperties {
	if g.depth[format] {
		return vk.FormatProperties{
			OptimalTilingFeatures: vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit),
		}
	}
	return vk.FormatProperties{}
}

// goodGPU is a Vulkan 1.2 device with one family doing everything and
// D32_SFLOAT as its only depth format.
func goodGPU(name string) *fakeGPU {
	return &fakeGPU{
		name:     name,
		api:      apiVersion12,
		exts:     []string{swapchainExtension},
		families: []vk.QueueFlags{vk.QueueFlags(vk.QueueGraphicsBit | vk.QueueTransferBit)},
		present:  map[uint32]bool{0: true},
		depth:    map[vk.Format]bool{vk.FormatD32Sfloat: true},
	}
}

var errDeviceLost = errors.New("device lost")

// fakeHandle makes a non-null handle value that is never dereferenced.
func fakeHandle(n uintptr) unsafe.Pointer {
	return unsafe.Add(unsafe.Pointer(nil), n)
}

func fakeDevice() *Device {
	return &Device{Handle: vk.Device(fakeHandle(0x10))}
}
