package framecomp

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vk "github.com/goki/vulkan"
)

func TestNewError(t *testing.T) {
	assert.NoError(t, NewError("vkCreateSampler", vk.Success))

	err := NewError("vkCreateSampler", vk.ErrorOutOfDeviceMemory)
	require.Error(t, err)
	var re *ResultError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "vkCreateSampler", re.Op)
	assert.Equal(t, vk.ErrorOutOfDeviceMemory, re.Result)
	assert.Contains(t, err.Error(), "vkCreateSampler")
}

func TestIsOutOfDate(t *testing.T) {
	assert.True(t, IsOutOfDate(NewError("vkAcquireNextImageKHR", vk.ErrorOutOfDate)))
	assert.True(t, IsOutOfDate(errors.Wrap(NewError("vkQueuePresentKHR", vk.Suboptimal), "present")))
	assert.False(t, IsOutOfDate(NewError("vkQueueSubmit", vk.ErrorDeviceLost)))
	assert.False(t, IsOutOfDate(errDeviceLost))
	assert.False(t, IsOutOfDate(nil))
}

func TestSuboptimalMessage(t *testing.T) {
	err := NewError("vkQueuePresentKHR", vk.Suboptimal)
	assert.NotPanics(t, func() { _ = err.Error() })
}

func TestErrorClasses(t *testing.T) {
	assert.ErrorIs(t, ErrNoSupportedFormat, ErrDeviceUnsuitable)
	assert.ErrorIs(t, invalidf("extent %dx%d", 0, 0), ErrConfigInvalid)
	assert.NotErrorIs(t, ErrConfigInvalid, ErrDeviceUnsuitable)
}
