package framecomp

import (
	"log/slog"
	"sync/atomic"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
)

// PhysicalDevice is the part of a Vulkan physical device the selection
// code queries.
type PhysicalDevice interface {
	Name() string
	// APIVersion is the packed Vulkan version the device supports.
	APIVersion() uint32
	Extensions() ([]string, error)
	QueueFamilyProperties() []vk.QueueFamilyProperties
	SurfaceSupport(family uint32, surface vk.Surface) (bool, error)
	FormatProperties(format vk.Format) vk.FormatProperties
}

type physicalDevice struct {
	gpu        vk.PhysicalDevice
	properties vk.PhysicalDeviceProperties
}

// NewPhysicalDevice wraps a Vulkan physical device handle.
func NewPhysicalDevice(gpu vk.PhysicalDevice) PhysicalDevice {
	p := &physicalDevice{gpu: gpu}
	vk.GetPhysicalDeviceProperties(gpu, &p.properties)
	p.properties.Deref()
	return p
}

func (p *physicalDevice) Name() string {
	return vk.ToString(p.properties.DeviceName[:])
}

func (p *physicalDevice) APIVersion() uint32 {
	return p.properties.ApiVersion
}

func (p *physicalDevice) Extensions() ([]string, error) {
	return DeviceExtensions(p.gpu)
}

func (p *physicalDevice) QueueFamilyProperties() []vk.QueueFamilyProperties {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(p.gpu, &count, nil)
	props := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(p.gpu, &count, props)
	for i := range props {
		props[i].Deref()
	}
	return props
}

func (p *physicalDevice) SurfaceSupport(family uint32, surface vk.Surface) (bool, error) {
	var supported vk.Bool32
	ret := vk.GetPhysicalDeviceSurfaceSupport(p.gpu, family, surface, &supported)
	if err := NewError("vkGetPhysicalDeviceSurfaceSupportKHR", ret); err != nil {
		return false, err
	}
	return supported.B(), nil
}

func (p *physicalDevice) FormatProperties(format vk.Format) vk.FormatProperties {
	var props vk.FormatProperties
	vk.GetPhysicalDeviceFormatProperties(p.gpu, format, &props)
	props.Deref()
	return props
}

// Handle returns the raw handle behind a PhysicalDevice created by
// NewPhysicalDevice, or nil for other implementations.
func Handle(gpu PhysicalDevice) vk.PhysicalDevice {
	if p, ok := gpu.(*physicalDevice); ok {
		return p.gpu
	}
	return nil
}

var (
	apiVersion11 = uint32(vk.MakeVersion(1, 1, 0))
	apiVersion12 = uint32(vk.MakeVersion(1, 2, 0))
)

// Selection is the outcome of evaluating one physical device.
type Selection struct {
	Device      PhysicalDevice
	Queues      QueueFamilyIndices
	DepthFormat vk.Format
	APIVersion  uint32
	// Extensions are the device extensions available on Device.
	Extensions []string
}

// SelectPhysicalDevice returns the first device that can present, create
// the two-subpass render pass with depth resolve, has graphics and
// present queues for surface and supports one of the depth candidates.
// Unsuitable devices are skipped; any other failure stops the search.
func SelectPhysicalDevice(gpus []PhysicalDevice, surface vk.Surface, depthCandidates []vk.Format, log *slog.Logger) (Selection, error) {
	for _, gpu := range gpus {
		sel, err := evaluateDevice(gpu, surface, depthCandidates)
		if err == nil {
			log.Info("selected physical device", "name", gpu.Name(),
				"graphics", sel.Queues.Graphics, "present", sel.Queues.Present,
				"depth_format", sel.DepthFormat)
			return sel, nil
		}
		if !errors.Is(err, ErrDeviceUnsuitable) {
			return Selection{}, err
		}
		log.Warn("skipping physical device", "name", gpu.Name(), "reason", err)
	}
	return Selection{}, errors.Wrap(ErrDeviceUnsuitable, "no physical device with graphics, present and depth support")
}

func evaluateDevice(gpu PhysicalDevice, surface vk.Surface, depthCandidates []vk.Format) (Selection, error) {
	exts, err := gpu.Extensions()
	if err != nil {
		return Selection{}, err
	}
	version := gpu.APIVersion()
	if err := CheckDeviceFeatures(version, exts); err != nil {
		return Selection{}, err
	}
	queues, err := FindQueueFamilies(gpu, surface)
	if err != nil {
		return Selection{}, err
	}
	depth, err := FindDepthFormat(gpu, depthCandidates)
	if err != nil {
		return Selection{}, err
	}
	return Selection{
		Device:      gpu,
		Queues:      queues,
		DepthFormat: depth,
		APIVersion:  version,
		Extensions:  exts,
	}, nil
}

// CheckDeviceFeatures rejects a device that cannot present or cannot
// build render passes with depth resolve. Both are core from Vulkan 1.2
// and available on 1.1 through create_renderpass2 and
// depth_stencil_resolve. Any device offering depth resolve must support
// the sample-zero mode, so that needs no separate query.
func CheckDeviceFeatures(apiVersion uint32, exts []string) error {
	set := NewExtensionSet(nil, []string{swapchainExtension}, exts)
	if ok, missing := set.HasRequired(); !ok {
		return errors.Wrapf(ErrDeviceUnsuitable, "missing device extensions %v", missing)
	}
	if apiVersion >= apiVersion12 {
		return nil
	}
	if apiVersion < apiVersion11 {
		return errors.Wrapf(ErrDeviceUnsuitable, "api version %d.%d below 1.1",
			apiVersion>>22, (apiVersion>>12)&0x3ff)
	}
	set = NewExtensionSet(nil, []string{createRenderPass2Ext, depthStencilResolveExt}, exts)
	if ok, missing := set.HasRequired(); !ok {
		return errors.Wrapf(ErrDeviceUnsuitable, "vulkan 1.1 device missing %v", missing)
	}
	return nil
}

// Device is the logical device shared by the render pass, the comparators
// and the renderer. Dependents call Acquire when they are created and
// Release when destroyed, and the device refuses to be destroyed while
// any are alive.
type Device struct {
	Handle   vk.Device
	Physical vk.PhysicalDevice
	Memory   vk.PhysicalDeviceMemoryProperties
	Queues   QueueFamilyIndices
	// APIVersion selects core or KHR entry points.
	APIVersion uint32

	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue

	refs atomic.Int32
}

// Acquire records a new dependent of the device.
func (d *Device) Acquire() *Device {
	d.refs.Add(1)
	return d
}

// Release drops a dependent acquired with Acquire.
func (d *Device) Release() {
	d.refs.Add(-1)
}

// Dependents returns the number of live dependents.
func (d *Device) Dependents() int {
	return int(d.refs.Load())
}

// WaitIdle blocks until the device has finished all submitted work.
func (d *Device) WaitIdle() error {
	if d.Handle == nil {
		return nil
	}
	return NewError("vkDeviceWaitIdle", vk.DeviceWaitIdle(d.Handle))
}

// Destroy destroys the logical device. It fails with ErrDeviceInUse while
// dependents remain.
func (d *Device) Destroy() error {
	if n := d.Dependents(); n > 0 {
		return errors.Wrapf(ErrDeviceInUse, "%d dependents alive", n)
	}
	if d.Handle == nil {
		return nil
	}
	vk.DeviceWaitIdle(d.Handle)
	vk.DestroyDevice(d.Handle, nil)
	d.Handle = nil
	return nil
}
