package framecomp

import (
	vk "github.com/goki/vulkan"
)

// FrameSync holds the synchronization objects of the single frame in
// flight: a fence the CPU waits on before reusing the offscreen targets,
// and the semaphores ordering acquire, render and present on the GPU.
type FrameSync struct {
	InFlight       vk.Fence
	ImageAvailable vk.Semaphore
	RenderFinished vk.Semaphore

	dev *Device
}

// NewFrameSync creates the objects with the fence already signaled, so
// the first Wait returns immediately.
func NewFrameSync(dev *Device) (*FrameSync, error) {
	s := &FrameSync{dev: dev.Acquire()}
	ret := vk.CreateFence(dev.Handle, &vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
		Flags: vk.FenceCreateFlags(vk.FenceCreateSignaledBit),
	}, nil, &s.InFlight)
	if err := NewError("vkCreateFence", ret); err != nil {
		s.Destroy()
		return nil, err
	}
	for _, sem := range []*vk.Semaphore{&s.ImageAvailable, &s.RenderFinished} {
		ret = vk.CreateSemaphore(dev.Handle, &vk.SemaphoreCreateInfo{
			SType: vk.StructureTypeSemaphoreCreateInfo,
		}, nil, sem)
		if err := NewError("vkCreateSemaphore", ret); err != nil {
			s.Destroy()
			return nil, err
		}
	}
	return s, nil
}

// Wait blocks until the previous frame has finished on the GPU.
func (s *FrameSync) Wait() error {
	fences := []vk.Fence{s.InFlight}
	return NewError("vkWaitForFences", vk.WaitForFences(s.dev.Handle, 1, fences, vk.True, vk.MaxUint64))
}

// Reset unsignals the fence before it is passed to a submit.
func (s *FrameSync) Reset() error {
	return NewError("vkResetFences", vk.ResetFences(s.dev.Handle, 1, []vk.Fence{s.InFlight}))
}

func (s *FrameSync) Destroy() {
	if s == nil || s.dev == nil {
		return
	}
	device := s.dev.Handle
	if s.RenderFinished != vk.NullSemaphore {
		vk.DestroySemaphore(device, s.RenderFinished, nil)
	}
	if s.ImageAvailable != vk.NullSemaphore {
		vk.DestroySemaphore(device, s.ImageAvailable, nil)
	}
	if s.InFlight != vk.NullFence {
		vk.DestroyFence(device, s.InFlight, nil)
	}
	s.dev.Release()
	*s = FrameSync{}
}
