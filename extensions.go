package framecomp

import (
	"github.com/pkg/errors"

	vk "github.com/goki/vulkan"
)

// Extensions reports which wanted and required names are available and
// which names should be enabled.
type Extensions interface {
	HasRequired() (bool, []string)
	HasWanted() (bool, []string)
	GetExtensions() []string
}

// ExtensionSet is an Extensions for one kind of name: instance
// extensions, device extensions or layers.
type ExtensionSet struct {
	wanted   []string
	required []string
	actual   []string
}

// NewExtensionSet builds a set from what the caller wants, what it
// requires and what the platform actually offers.
func NewExtensionSet(wanted, required, actual []string) *ExtensionSet {
	return &ExtensionSet{wanted: wanted, required: required, actual: actual}
}

// HasRequired reports whether every required name is available, and the
// missing ones otherwise.
func (e *ExtensionSet) HasRequired() (bool, []string) {
	missing := e.missing(e.required)
	return len(missing) == 0, missing
}

// HasWanted reports whether every wanted name is available, and the
// missing ones otherwise.
func (e *ExtensionSet) HasWanted() (bool, []string) {
	missing := e.missing(e.wanted)
	return len(missing) == 0, missing
}

// GetExtensions returns the NUL terminated names to enable: every required
// name, followed by the available wanted names not already required.
func (e *ExtensionSet) GetExtensions() []string {
	seen := make(map[string]bool, len(e.required)+len(e.wanted))
	implement := make([]string, 0, len(e.required)+len(e.wanted))
	add := func(name string) {
		name = safeString(name)
		if !seen[name] {
			seen[name] = true
			implement = append(implement, name)
		}
	}
	for _, req := range e.required {
		add(req)
	}
	available, _ := checkExisting(e.actual, e.wanted)
	for _, want := range available {
		add(want)
	}
	return implement
}

func (e *ExtensionSet) missing(names []string) []string {
	missing := []string{}
	for _, name := range names {
		has := false
		for _, act := range e.actual {
			if safeString(name) == safeString(act) {
				has = true
				break
			}
		}
		if !has {
			missing = append(missing, name)
		}
	}
	return missing
}

// InstanceExtensions gets a list of instance extensions available on the platform.
func InstanceExtensions() ([]string, error) {
	var count uint32
	ret := vk.EnumerateInstanceExtensionProperties("", &count, nil)
	if err := NewError("vkEnumerateInstanceExtensionProperties", ret); err != nil {
		return nil, err
	}
	list := make([]vk.ExtensionProperties, count)
	ret = vk.EnumerateInstanceExtensionProperties("", &count, list)
	if err := NewError("vkEnumerateInstanceExtensionProperties", ret); err != nil {
		return nil, err
	}
	names := make([]string, 0, count)
	for _, ext := range list {
		ext.Deref()
		names = append(names, vk.ToString(ext.ExtensionName[:]))
	}
	return names, nil
}

// DeviceExtensions gets a list of extensions available on the provided physical device.
func DeviceExtensions(gpu vk.PhysicalDevice) ([]string, error) {
	var count uint32
	ret := vk.EnumerateDeviceExtensionProperties(gpu, "", &count, nil)
	if err := NewError("vkEnumerateDeviceExtensionProperties", ret); err != nil {
		return nil, err
	}
	list := make([]vk.ExtensionProperties, count)
	ret = vk.EnumerateDeviceExtensionProperties(gpu, "", &count, list)
	if err := NewError("vkEnumerateDeviceExtensionProperties", ret); err != nil {
		return nil, err
	}
	names := make([]string, 0, count)
	for _, ext := range list {
		ext.Deref()
		names = append(names, vk.ToString(ext.ExtensionName[:]))
	}
	return names, nil
}

// ValidationLayers gets a list of validation layers available on the platform.
func ValidationLayers() ([]string, error) {
	var count uint32
	ret := vk.EnumerateInstanceLayerProperties(&count, nil)
	if err := NewError("vkEnumerateInstanceLayerProperties", ret); err != nil {
		return nil, err
	}
	list := make([]vk.LayerProperties, count)
	ret = vk.EnumerateInstanceLayerProperties(&count, list)
	if err := NewError("vkEnumerateInstanceLayerProperties", ret); err != nil {
		return nil, err
	}
	names := make([]string, 0, count)
	for _, layer := range list {
		layer.Deref()
		names = append(names, vk.ToString(layer.LayerName[:]))
	}
	return names, nil
}

// FindRequiredMemoryType returns the first memory type allowed by
// typeBits whose property flags contain all of required.
func FindRequiredMemoryType(props vk.PhysicalDeviceMemoryProperties,
	typeBits uint32, required vk.MemoryPropertyFlagBits) (uint32, error) {

	want := vk.MemoryPropertyFlags(required)
	for i := uint32(0); i < props.MemoryTypeCount && i < vk.MaxMemoryTypes; i++ {
		if typeBits&(1<<i) == 0 {
			continue
		}
		props.MemoryTypes[i].Deref()
		if props.MemoryTypes[i].PropertyFlags&want == want {
			return i, nil
		}
	}
	return 0, errors.Wrapf(ErrDeviceUnsuitable, "no memory type for bits %#x with flags %#x", typeBits, uint32(required))
}
