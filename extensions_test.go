package framecomp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vk "github.com/goki/vulkan"
)

func TestExtensionSetRequired(t *testing.T) {
	set := NewExtensionSet(nil,
		[]string{"VK_KHR_surface", "VK_KHR_xcb_surface"},
		[]string{"VK_KHR_surface"})
	ok, missing := set.HasRequired()
	assert.False(t, ok)
	assert.Equal(t, []string{"VK_KHR_xcb_surface"}, missing)

	set = NewExtensionSet(nil, []string{"VK_KHR_surface"}, []string{"VK_KHR_surface", "VK_EXT_debug_report"})
	ok, missing = set.HasRequired()
	assert.True(t, ok)
	assert.Empty(t, missing)
}

func TestExtensionSetGetExtensions(t *testing.T) {
	var _ Extensions = (*ExtensionSet)(nil)

	set := NewExtensionSet(
		[]string{"VK_EXT_debug_report", "VK_KHR_portability_subset", "VK_KHR_surface"},
		[]string{"VK_KHR_surface"},
		[]string{"VK_KHR_surface", "VK_EXT_debug_report"})
	ok, missing := set.HasWanted()
	assert.False(t, ok)
	assert.Equal(t, []string{"VK_KHR_portability_subset"}, missing)

	assert.Equal(t, []string{"VK_KHR_surface\x00", "VK_EXT_debug_report\x00"}, set.GetExtensions())
}

func TestExtensionSetMixedTermination(t *testing.T) {
	// Callers mix terminated and plain names.
	set := NewExtensionSet(
		[]string{"VK_KHR_surface", "VK_EXT_debug_report"},
		[]string{"VK_KHR_surface\x00"},
		[]string{"VK_KHR_surface", "VK_EXT_debug_report\x00"})
	ok, missing := set.HasRequired()
	assert.True(t, ok)
	assert.Empty(t, missing)
	ok, _ = set.HasWanted()
	assert.True(t, ok)

	assert.Equal(t, []string{"VK_KHR_surface\x00", "VK_EXT_debug_report\x00"}, set.GetExtensions())
}

func TestFindRequiredMemoryType(t *testing.T) {
	var props vk.PhysicalDeviceMemoryProperties
	props.MemoryTypeCount = 3
	props.MemoryTypes[0].PropertyFlags = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)
	props.MemoryTypes[1].PropertyFlags = vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	props.MemoryTypes[2].PropertyFlags = vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit |
		vk.MemoryPropertyLazilyAllocatedBit)

	index, err := FindRequiredMemoryType(props, 0b111, vk.MemoryPropertyDeviceLocalBit)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), index)

	index, err = FindRequiredMemoryType(props, 0b101, vk.MemoryPropertyDeviceLocalBit)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), index, "type 1 is excluded by the bits")

	index, err = FindRequiredMemoryType(props, 0b111, vk.MemoryPropertyLazilyAllocatedBit)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), index)

	_, err = FindRequiredMemoryType(props, 0b001, vk.MemoryPropertyDeviceLocalBit)
	assert.ErrorIs(t, err, ErrDeviceUnsuitable)
}
