package framecomp

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeString(t *testing.T) {
	assert.Equal(t, "VK_KHR_surface\x00", safeString("VK_KHR_surface"))
	assert.Equal(t, "VK_KHR_surface\x00", safeString("VK_KHR_surface\x00"))
	assert.Equal(t, "\x00", safeString(""))
}

func TestCheckExisting(t *testing.T) {
	existing, missing := checkExisting(
		[]string{"a", "b\x00", "c"},
		[]string{"b", "d", "a"})
	assert.Equal(t, []string{"b\x00", "a\x00"}, existing)
	assert.Equal(t, 1, missing)
}

func TestSliceUint32(t *testing.T) {
	assert.Nil(t, sliceUint32(nil))

	data := make([]byte, 8)
	binary.LittleEndian.PutUint32(data, spirvMagic)
	binary.LittleEndian.PutUint32(data[4:], 0x00010000)
	words := sliceUint32(data)
	assert.Len(t, words, 2)
	// SPIR-V is little endian and so are the supported targets.
	assert.Equal(t, uint32(spirvMagic), words[0])
}
