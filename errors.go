package framecomp

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
)

var (
	// ErrDeviceUnsuitable rejects a physical device. Callers move on to the
	// next device rather than aborting.
	ErrDeviceUnsuitable = errors.New("device unsuitable")

	// ErrNoSupportedFormat is returned when none of the candidate formats
	// has the required features. It is a device suitability failure.
	ErrNoSupportedFormat = fmt.Errorf("no supported format: %w", ErrDeviceUnsuitable)

	// ErrConfigInvalid is returned before any GPU call when a create
	// configuration is missing fields or has a zero extent.
	ErrConfigInvalid = errors.New("invalid configuration")

	// ErrZeroExtent is returned when the surface is zero sized, as while
	// the window is minimized. It is a configuration failure.
	ErrZeroExtent = fmt.Errorf("zero surface extent: %w", ErrConfigInvalid)

	// ErrDeviceInUse is returned when a device is destroyed while objects
	// built on it are still alive.
	ErrDeviceInUse = errors.New("device still in use")
)

// ResultError reports a Vulkan call that returned a non-success code.
type ResultError struct {
	Op     string
	Result vk.Result
}

func (e *ResultError) Error() string {
	if err := vk.Error(e.Result); err != nil {
		return fmt.Sprintf("vulkan error: %s: %s (%d)", e.Op, err.Error(), e.Result)
	}
	return fmt.Sprintf("vulkan error: %s: result %d", e.Op, e.Result)
}

// NewError wraps ret with a stack when it is not vk.Success.
func NewError(op string, ret vk.Result) error {
	if ret == vk.Success {
		return nil
	}
	return errors.WithStack(&ResultError{Op: op, Result: ret})
}

// IsOutOfDate reports whether err carries a result that requires the
// swapchain to be recreated.
func IsOutOfDate(err error) bool {
	var re *ResultError
	if !errors.As(err, &re) {
		return false
	}
	return re.Result == vk.ErrorOutOfDate || re.Result == vk.Suboptimal
}

func invalidf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrConfigInvalid, format, args...)
}
