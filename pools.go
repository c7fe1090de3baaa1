package framecomp

import (
	vk "github.com/goki/vulkan"
)

// CommandPool allocates the primary command buffers of the graphics queue.
type CommandPool struct {
	Handle vk.CommandPool
	dev    *Device
}

// NewCommandPool creates a pool on the graphics family whose buffers can
// be reset individually.
func NewCommandPool(dev *Device) (*CommandPool, error) {
	var pool vk.CommandPool
	ret := vk.CreateCommandPool(dev.Handle, &vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: dev.Queues.Graphics,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}, nil, &pool)
	if err := NewError("vkCreateCommandPool", ret); err != nil {
		return nil, err
	}
	return &CommandPool{Handle: pool, dev: dev.Acquire()}, nil
}

// Allocate returns count primary command buffers.
func (c *CommandPool) Allocate(count int) ([]vk.CommandBuffer, error) {
	buffers := make([]vk.CommandBuffer, count)
	ret := vk.AllocateCommandBuffers(c.dev.Handle, &vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        c.Handle,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: uint32(count),
	}, buffers)
	if err := NewError("vkAllocateCommandBuffers", ret); err != nil {
		return nil, err
	}
	return buffers, nil
}

// Free returns buffers to the pool.
func (c *CommandPool) Free(buffers []vk.CommandBuffer) {
	if len(buffers) == 0 {
		return
	}
	vk.FreeCommandBuffers(c.dev.Handle, c.Handle, uint32(len(buffers)), buffers)
}

func (c *CommandPool) Destroy() {
	if c == nil || c.dev == nil {
		return
	}
	vk.DestroyCommandPool(c.dev.Handle, c.Handle, nil)
	c.dev.Release()
	c.dev = nil
}

// DescriptorPool is shared by every comparator; each allocates exactly one
// set from it.
type DescriptorPool struct {
	Handle vk.DescriptorPool
	// Sets is the number of sets the pool was sized for.
	Sets uint32
	dev  *Device
}

// Descriptors used by one comparator set and one visualization set.
const (
	samplersPerComparator = 2
	inputsPerVisualizer   = 1
)

// NewDescriptorPool sizes a pool for comparators comparator sets plus
// one input-attachment set for the visualization subpass. Sets can be
// freed individually.
func NewDescriptorPool(dev *Device, comparators int) (*DescriptorPool, error) {
	sets := uint32(comparators) + 1
	sizes := []vk.DescriptorPoolSize{
		{
			Type:            vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: uint32(comparators) * samplersPerComparator,
		},
		{
			Type:            vk.DescriptorTypeInputAttachment,
			DescriptorCount: inputsPerVisualizer,
		},
	}
	var pool vk.DescriptorPool
	ret := vk.CreateDescriptorPool(dev.Handle, &vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		MaxSets:       sets,
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
	}, nil, &pool)
	if err := NewError("vkCreateDescriptorPool", ret); err != nil {
		return nil, err
	}
	return &DescriptorPool{Handle: pool, Sets: sets, dev: dev.Acquire()}, nil
}

// Allocate returns one set with layout.
func (p *DescriptorPool) Allocate(layout vk.DescriptorSetLayout) (vk.DescriptorSet, error) {
	return allocateDescriptorSet(p.dev.Handle, p.Handle, layout)
}

func allocateDescriptorSet(device vk.Device, pool vk.DescriptorPool, layout vk.DescriptorSetLayout) (vk.DescriptorSet, error) {
	var set vk.DescriptorSet
	ret := vk.AllocateDescriptorSets(device, &vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout},
	}, &set)
	if err := NewError("vkAllocateDescriptorSets", ret); err != nil {
		return vk.NullDescriptorSet, err
	}
	return set, nil
}

func (p *DescriptorPool) Destroy() {
	if p == nil || p.dev == nil {
		return
	}
	vk.DestroyDescriptorPool(p.dev.Handle, p.Handle, nil)
	p.dev.Release()
	p.dev = nil
}
