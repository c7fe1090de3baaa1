package framecomp

import (
	"log/slog"

	"github.com/pkg/errors"

	vk "github.com/goki/vulkan"
)

const (
	validationLayer         = "VK_LAYER_KHRONOS_validation"
	debugReportExtension    = "VK_EXT_debug_report"
	swapchainExtension      = "VK_KHR_swapchain"
	portabilitySubsetExt    = "VK_KHR_portability_subset"
	createRenderPass2Ext    = "VK_KHR_create_renderpass2"
	depthStencilResolveExt  = "VK_KHR_depth_stencil_resolve"
	engineName              = "framecomp"
	defaultApplicationTitle = "framecomp"
)

// PlatformOptions configure NewPlatform.
type PlatformOptions struct {
	AppName string
	// RequiredInstanceExtensions come from the window system.
	RequiredInstanceExtensions []string
	Validation                 bool
	DepthFormats               []vk.Format
	// Limiter receives validation messages when Validation is set.
	Limiter *MessageLimiter
	// CreateSurface creates the window surface for instance.
	CreateSurface func(instance vk.Instance) (vk.Surface, error)
	Log           *slog.Logger
}

// Platform owns the instance, the debug callback, the surface and the
// logical device. Everything built on the device must be destroyed before
// Platform.Destroy.
type Platform struct {
	Instance  vk.Instance
	Surface   vk.Surface
	Device    *Device
	Selection Selection

	debugCallback vk.DebugReportCallback
	log           *slog.Logger
}

// NewPlatform creates the instance and device. On failure everything
// created so far is destroyed.
func NewPlatform(opts PlatformOptions) (*Platform, error) {
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.AppName == "" {
		opts.AppName = defaultApplicationTitle
	}
	if len(opts.DepthFormats) == 0 {
		opts.DepthFormats = DefaultDepthFormats
	}
	p := &Platform{log: opts.Log}
	if err := p.init(opts); err != nil {
		if derr := p.Destroy(); derr != nil {
			p.log.Error("platform cleanup", "err", derr)
		}
		return nil, err
	}
	return p, nil
}

func (p *Platform) init(opts PlatformOptions) error {
	actualExts, err := InstanceExtensions()
	if err != nil {
		return err
	}
	var wantedExts, wantedLayers []string
	if opts.Validation {
		wantedExts = append(wantedExts, debugReportExtension)
		wantedLayers = append(wantedLayers, validationLayer)
	}
	instanceExts := NewExtensionSet(wantedExts, opts.RequiredInstanceExtensions, actualExts)
	if ok, missing := instanceExts.HasRequired(); !ok {
		return errors.Errorf("missing required instance extensions %v", missing)
	}
	if ok, missing := instanceExts.HasWanted(); !ok {
		p.log.Warn("missing instance extensions", "names", missing)
	}

	actualLayers, err := ValidationLayers()
	if err != nil {
		return err
	}
	layers := NewExtensionSet(wantedLayers, nil, actualLayers)
	if ok, missing := layers.HasWanted(); !ok {
		p.log.Warn("missing validation layers", "names", missing)
	}

	enabledExts := instanceExts.GetExtensions()
	enabledLayers := layers.GetExtensions()
	ret := vk.CreateInstance(&vk.InstanceCreateInfo{
		SType: vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &vk.ApplicationInfo{
			SType:              vk.StructureTypeApplicationInfo,
			ApiVersion:         uint32(vk.MakeVersion(1, 2, 0)),
			ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
			PApplicationName:   safeString(opts.AppName),
			PEngineName:        safeString(engineName),
		},
		EnabledExtensionCount:   uint32(len(enabledExts)),
		PpEnabledExtensionNames: enabledExts,
		EnabledLayerCount:       uint32(len(enabledLayers)),
		PpEnabledLayerNames:     enabledLayers,
	}, nil, &p.Instance)
	if err := NewError("vkCreateInstance", ret); err != nil {
		return err
	}
	if err := vk.InitInstance(p.Instance); err != nil {
		return errors.Wrap(err, "load instance functions")
	}
	p.log.Info("vulkan instance created", "extensions", len(enabledExts), "layers", len(enabledLayers))

	if opts.Validation && opts.Limiter != nil && containsName(enabledExts, debugReportExtension) {
		if p.debugCallback, err = InstallDebugCallback(p.Instance, opts.Limiter); err != nil {
			return err
		}
		p.log.Debug("debug report callback installed")
	}

	if p.Surface, err = opts.CreateSurface(p.Instance); err != nil {
		return errors.Wrap(err, "create surface")
	}

	gpus, err := p.physicalDevices()
	if err != nil {
		return err
	}
	if p.Selection, err = SelectPhysicalDevice(gpus, p.Surface, opts.DepthFormats, p.log); err != nil {
		return err
	}
	return p.createDevice(enabledLayers)
}

func (p *Platform) physicalDevices() ([]PhysicalDevice, error) {
	var count uint32
	ret := vk.EnumeratePhysicalDevices(p.Instance, &count, nil)
	if err := NewError("vkEnumeratePhysicalDevices", ret); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, errors.Wrap(ErrDeviceUnsuitable, "no physical devices")
	}
	handles := make([]vk.PhysicalDevice, count)
	ret = vk.EnumeratePhysicalDevices(p.Instance, &count, handles)
	if err := NewError("vkEnumeratePhysicalDevices", ret); err != nil {
		return nil, err
	}
	gpus := make([]PhysicalDevice, len(handles))
	for i, h := range handles {
		gpus[i] = NewPhysicalDevice(h)
	}
	return gpus, nil
}

func (p *Platform) createDevice(layers []string) error {
	gpu := Handle(p.Selection.Device)
	required := []string{swapchainExtension}
	if p.Selection.APIVersion < apiVersion12 {
		required = append(required, createRenderPass2Ext, depthStencilResolveExt)
	}
	// Selection already checked the required names against Extensions.
	exts := NewExtensionSet([]string{portabilitySubsetExt}, required, p.Selection.Extensions)
	enabled := exts.GetExtensions()

	queueInfos := p.Selection.Queues.CreateInfos()
	var handle vk.Device
	ret := vk.CreateDevice(gpu, &vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(enabled)),
		PpEnabledExtensionNames: enabled,
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     layers,
	}, nil, &handle)
	if err := NewError("vkCreateDevice", ret); err != nil {
		return err
	}

	dev := &Device{
		Handle:     handle,
		Physical:   gpu,
		Queues:     p.Selection.Queues,
		APIVersion: p.Selection.APIVersion,
	}
	vk.GetPhysicalDeviceMemoryProperties(gpu, &dev.Memory)
	dev.Memory.Deref()
	dev.GraphicsQueue, dev.PresentQueue = dev.Queues.Queues(handle)
	p.Device = dev
	p.log.Info("logical device created", "device", p.Selection.Device.Name(), "extensions", len(enabled))
	return nil
}

// Destroy tears down in reverse creation order. It fails without
// destroying anything if objects built on the device are still alive.
func (p *Platform) Destroy() error {
	if p.Device != nil {
		if err := p.Device.Destroy(); err != nil {
			return err
		}
		p.Device = nil
	}
	if p.Surface != vk.NullSurface {
		vk.DestroySurface(p.Instance, p.Surface, nil)
		p.Surface = vk.NullSurface
	}
	if p.debugCallback != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(p.Instance, p.debugCallback, nil)
		p.debugCallback = vk.NullDebugReportCallback
	}
	if p.Instance != nil {
		vk.DestroyInstance(p.Instance, nil)
		p.Instance = nil
	}
	return nil
}

func containsName(list []string, name string) bool {
	name = safeString(name)
	for _, s := range list {
		if safeString(s) == name {
			return true
		}
	}
	return false
}
