package framecomp

import (
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
)

// QueueFamilyIndices are the queue families used for rendering and
// presentation on one physical device. They may be the same family.
type QueueFamilyIndices struct {
	Graphics uint32
	Present  uint32
}

// FindQueueFamilies returns the first family with graphics support and the
// first family that can present to surface, in family index order.
func FindQueueFamilies(gpu PhysicalDevice, surface vk.Surface) (QueueFamilyIndices, error) {
	var (
		indices         QueueFamilyIndices
		hasGraphics     bool
		hasPresent      bool
		graphicsRequire = vk.QueueFlags(vk.QueueGraphicsBit)
	)

	for i, family := range gpu.QueueFamilyProperties() {
		index := uint32(i)
		if !hasGraphics && family.QueueFlags&graphicsRequire == graphicsRequire {
			indices.Graphics = index
			hasGraphics = true
		}
		if !hasPresent {
			supported, err := gpu.SurfaceSupport(index, surface)
			if err != nil {
				return QueueFamilyIndices{}, err
			}
			if supported {
				indices.Present = index
				hasPresent = true
			}
		}
		if hasGraphics && hasPresent {
			return indices, nil
		}
	}

	switch {
	case !hasGraphics && !hasPresent:
		return QueueFamilyIndices{}, errors.Wrap(ErrDeviceUnsuitable, "missing graphics and present queue families")
	case !hasGraphics:
		return QueueFamilyIndices{}, errors.Wrap(ErrDeviceUnsuitable, "missing graphics queue family")
	default:
		return QueueFamilyIndices{}, errors.Wrap(ErrDeviceUnsuitable, "missing present queue family")
	}
}

// Separate is true when presentation uses a different family than graphics.
func (q QueueFamilyIndices) Separate() bool {
	return q.Graphics != q.Present
}

// CreateInfos returns one queue create info per distinct family, each with
// a single queue.
func (q QueueFamilyIndices) CreateInfos() []vk.DeviceQueueCreateInfo {
	families := []uint32{q.Graphics}
	if q.Separate() {
		families = append(families, q.Present)
	}
	infos := make([]vk.DeviceQueueCreateInfo, len(families))
	for i, family := range families {
		infos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}
	return infos
}

// Queues fetches the graphics and present queues from a logical device
// created with CreateInfos.
func (q QueueFamilyIndices) Queues(device vk.Device) (graphics, present vk.Queue) {
	vk.GetDeviceQueue(device, q.Graphics, 0, &graphics)
	if !q.Separate() {
		return graphics, graphics
	}
	vk.GetDeviceQueue(device, q.Present, 0, &present)
	return graphics, present
}
