package framecomp

import (
	"log/slog"
	"time"
	"unsafe"

	"github.com/pkg/errors"

	vk "github.com/goki/vulkan"
)

// RendererOptions configure NewRenderer.
type RendererOptions struct {
	Platform *Platform
	Shaders  ShaderLibrary
	// Samples is the requested scene sample count, lowered to what the
	// device supports.
	Samples         vk.SampleCountFlagBits
	SwapchainImages int
	// FramebufferSize returns the current drawable size in pixels.
	FramebufferSize func() (int, int)
	Bar             *BarState
	Rebuild         *RebuildState
	Scene           *Scene
	Log             *slog.Logger
}

// Renderer draws frames and owns every object that depends on the
// swapchain. On each rebuild request all of them are destroyed and
// created again, after waiting for the device to go idle.
type Renderer struct {
	opts RendererOptions
	dev  *Device
	log  *slog.Logger

	commandPool *CommandPool
	sync        *FrameSync
	// recreate rebuilds the frame resources; RebuildNow runs it under the
	// rebuild state.
	recreate func() error

	frame *frameResources
}

// frameResources is everything rebuilt with the swapchain.
type frameResources struct {
	swapchain   *Swapchain
	renderPass  *RenderPass
	targets     *RenderTargets
	descriptors *DescriptorPool
	comparators []*Comparator
	commands    []vk.CommandBuffer

	sceneLayout     vk.PipelineLayout
	scenePipeline   vk.Pipeline
	visualizeSets   vk.DescriptorSetLayout
	visualizeSet    vk.DescriptorSet
	visualizeLayout vk.PipelineLayout
	visualizePipe   vk.Pipeline
}

// NewRenderer creates the long-lived objects and the first set of
// swapchain-dependent ones.
func NewRenderer(opts RendererOptions) (*Renderer, error) {
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.Bar == nil {
		opts.Bar = NewBarState(DefaultBar, DefaultDragMargin)
	}
	if opts.Rebuild == nil {
		opts.Rebuild = &RebuildState{}
	}
	if opts.Scene == nil {
		opts.Scene = NewScene(time.Now())
	}
	r := &Renderer{opts: opts, dev: opts.Platform.Device, log: opts.Log}
	r.recreate = r.recreateResources

	var err error
	if r.commandPool, err = NewCommandPool(r.dev); err != nil {
		return nil, err
	}
	if r.sync, err = NewFrameSync(r.dev); err != nil {
		r.Destroy()
		return nil, err
	}
	if err := r.build(); err != nil {
		r.Destroy()
		return nil, err
	}
	return r, nil
}

// Samples returns the sample count in use.
func (r *Renderer) Samples() vk.SampleCountFlagBits {
	if r.frame == nil {
		return 0
	}
	return r.frame.renderPass.Params.Samples
}

// Extent returns the current swapchain extent.
func (r *Renderer) Extent() vk.Extent2D {
	if r.frame == nil {
		return vk.Extent2D{}
	}
	return r.frame.swapchain.Extent
}

// ClampSamples returns the largest count not above requested that is set
// in supported. One sample is always allowed.
func ClampSamples(requested vk.SampleCountFlagBits, supported vk.SampleCountFlags) vk.SampleCountFlagBits {
	for s := requested; s > vk.SampleCount1Bit; s >>= 1 {
		if supported&vk.SampleCountFlags(s) != 0 {
			return s
		}
	}
	return vk.SampleCount1Bit
}

func (r *Renderer) supportedSamples() vk.SampleCountFlags {
	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(r.dev.Physical, &props)
	props.Deref()
	props.Limits.Deref()
	return props.Limits.FramebufferColorSampleCounts & props.Limits.FramebufferDepthSampleCounts
}

func (r *Renderer) build() error {
	programs, err := r.opts.Shaders.LoadAll()
	if err != nil {
		return err
	}
	platform := r.opts.Platform
	support, err := QuerySurfaceSupport(r.dev.Physical, platform.Surface)
	if err != nil {
		return err
	}
	width, height := r.opts.FramebufferSize()

	f := &frameResources{}
	r.frame = f
	if f.swapchain, err = NewSwapchain(r.dev, SwapchainOptions{
		Surface: platform.Surface,
		Support: support,
		Width:   width,
		Height:  height,
		Images:  r.opts.SwapchainImages,
	}); err != nil {
		return err
	}

	params := RenderPassParams{
		ColorFormat: f.swapchain.Format.Format,
		DepthFormat: platform.Selection.DepthFormat,
		Samples:     ClampSamples(r.opts.Samples, r.supportedSamples()),
		Extent:      f.swapchain.Extent,
	}
	if params.Samples != r.opts.Samples {
		r.log.Warn("sample count not supported, clamped",
			"requested", int(r.opts.Samples), "using", int(params.Samples))
	}
	if f.renderPass, err = CreateRenderPass(r.dev, params); err != nil {
		return err
	}
	if f.targets, err = NewRenderTargets(r.dev, f.renderPass); err != nil {
		return err
	}
	if f.descriptors, err = NewDescriptorPool(r.dev, len(f.swapchain.Views)); err != nil {
		return err
	}
	if err := r.buildScenePipelines(f, programs, params); err != nil {
		return err
	}

	for i, view := range f.swapchain.Views {
		c, err := NewComparator(ComparatorConfig{
			Device:         r.dev,
			DescriptorPool: f.descriptors.Handle,
			ColorFormat:    params.ColorFormat,
			Extent:         params.Extent,
			Inputs:         f.targets.ComparatorInputs(),
			Output:         view,
			OutputIndex:    uint32(i),
			Shaders:        programs[ProgramComparator],
		})
		if err != nil {
			return err
		}
		f.comparators = append(f.comparators, c)
	}

	if f.commands, err = r.commandPool.Allocate(len(f.swapchain.Views)); err != nil {
		return err
	}
	r.log.Info("frame resources built",
		"width", params.Extent.Width, "height", params.Extent.Height,
		"images", len(f.swapchain.Views), "samples", int(params.Samples),
		"generation", r.opts.Rebuild.Generation())
	return nil
}

func (r *Renderer) buildScenePipelines(f *frameResources, programs map[string]ShaderCode, params RenderPassParams) error {
	device := r.dev.Handle
	viewport := FullViewport(params.Extent)
	scissor := FullRect(params.Extent)

	var err error
	f.sceneLayout, err = NewPipelineLayout(device, nil, []vk.PushConstantRange{{
		StageFlags: vk.ShaderStageFlags(vk.ShaderStageVertexBit),
		Size:       scenePushSize,
	}})
	if err != nil {
		return err
	}
	scene, err := NewShaderProgram(device, programs[ProgramScene])
	if err != nil {
		return errors.Wrap(err, ProgramScene)
	}
	defer scene.Destroy()
	f.scenePipeline, err = NewPipelineBuilder(scene).
		Samples(params.Samples).
		DepthTest().
		Build(device, f.sceneLayout, f.renderPass.Handle, SubpassScene, viewport, scissor)
	if err != nil {
		return err
	}

	bindings := []vk.DescriptorSetLayoutBinding{{
		Binding:         0,
		DescriptorType:  vk.DescriptorTypeInputAttachment,
		DescriptorCount: 1,
		StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
	}}
	ret := vk.CreateDescriptorSetLayout(device, &vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}, nil, &f.visualizeSets)
	if err := NewError("vkCreateDescriptorSetLayout", ret); err != nil {
		return err
	}
	if f.visualizeSet, err = f.descriptors.Allocate(f.visualizeSets); err != nil {
		return err
	}
	vk.UpdateDescriptorSets(device, 1, []vk.WriteDescriptorSet{{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          f.visualizeSet,
		DstBinding:      0,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeInputAttachment,
		PImageInfo: []vk.DescriptorImageInfo{{
			ImageView:   f.targets.DepthInput(),
			ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
		}},
	}}, 0, nil)

	f.visualizeLayout, err = NewPipelineLayout(device, []vk.DescriptorSetLayout{f.visualizeSets},
		[]vk.PushConstantRange{{
			StageFlags: vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
			Size:       visualizePushSize,
		}})
	if err != nil {
		return err
	}
	grayscale, err := NewShaderProgram(device, programs[ProgramGrayscale])
	if err != nil {
		return errors.Wrap(err, ProgramGrayscale)
	}
	defer grayscale.Destroy()
	f.visualizePipe, err = NewPipelineBuilder(grayscale).
		Build(device, f.visualizeLayout, f.renderPass.Handle, SubpassVisualize, viewport, scissor)
	return err
}

// teardown destroys the swapchain-dependent objects in reverse order.
func (r *Renderer) teardown() {
	f := r.frame
	if f == nil {
		return
	}
	device := r.dev.Handle
	if f.commands != nil {
		r.commandPool.Free(f.commands)
	}
	for _, c := range f.comparators {
		c.Destroy()
	}
	if f.visualizePipe != vk.NullPipeline {
		vk.DestroyPipeline(device, f.visualizePipe, nil)
	}
	if f.visualizeLayout != vk.NullPipelineLayout {
		vk.DestroyPipelineLayout(device, f.visualizeLayout, nil)
	}
	if f.visualizeSets != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(device, f.visualizeSets, nil)
	}
	if f.scenePipeline != vk.NullPipeline {
		vk.DestroyPipeline(device, f.scenePipeline, nil)
	}
	if f.sceneLayout != vk.NullPipelineLayout {
		vk.DestroyPipelineLayout(device, f.sceneLayout, nil)
	}
	// Destroying the pool frees the visualization set.
	f.descriptors.Destroy()
	f.targets.Destroy()
	f.renderPass.Destroy()
	f.swapchain.Destroy()
	r.frame = nil
}

// RebuildNow waits for the device, tears down every swapchain-dependent
// object and builds them again. Shader programs are reloaded from disk.
func (r *Renderer) RebuildNow() error {
	return r.opts.Rebuild.Rebuild(r.recreate)
}

func (r *Renderer) recreateResources() error {
	if err := r.dev.WaitIdle(); err != nil {
		return err
	}
	r.teardown()
	if err := r.build(); err != nil {
		r.teardown()
		return errors.Wrap(err, "rebuild")
	}
	return nil
}

// IsTransientRebuildError reports whether a failed rebuild should only
// skip the frame: the surface is zero sized or changed again while the
// swapchain was being created. The request stays pending and the next
// frame retries.
func IsTransientRebuildError(err error) bool {
	return errors.Is(err, ErrZeroExtent) || IsOutOfDate(err)
}

// DrawFrame renders and presents one frame. A pending rebuild runs first.
// An out-of-date swapchain marks a rebuild for the next frame instead of
// failing, and so does a rebuild that fails with a transient error.
func (r *Renderer) DrawFrame(now time.Time) error {
	if r.opts.Rebuild.NeedsRebuild() || r.frame == nil {
		if err := r.RebuildNow(); err != nil {
			if !IsTransientRebuildError(err) {
				return err
			}
			r.log.Debug("rebuild deferred, skipping frame", "err", err)
			return nil
		}
	}
	f := r.frame

	if err := r.sync.Wait(); err != nil {
		return err
	}
	index, err := f.swapchain.Acquire(r.sync.ImageAvailable)
	if err != nil && !isSuboptimal(err) {
		if IsOutOfDate(err) {
			r.opts.Rebuild.MarkResized()
			return nil
		}
		return err
	}
	if err != nil {
		r.opts.Rebuild.MarkResized()
	}
	if err := r.sync.Reset(); err != nil {
		return err
	}

	// One read per frame; input handled while recording waits for the next.
	bar := r.opts.Bar.Snapshot()
	cmd := f.commands[index]
	if err := r.record(cmd, index, bar, now); err != nil {
		return err
	}

	ret := vk.QueueSubmit(r.dev.GraphicsQueue, 1, []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{r.sync.ImageAvailable},
		PWaitDstStageMask: []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cmd},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{r.sync.RenderFinished},
	}}, r.sync.InFlight)
	if err := NewError("vkQueueSubmit", ret); err != nil {
		return err
	}

	err = f.swapchain.Present(r.dev.PresentQueue, index, r.sync.RenderFinished)
	if IsOutOfDate(err) {
		r.opts.Rebuild.MarkResized()
		return nil
	}
	return err
}

func isSuboptimal(err error) bool {
	var re *ResultError
	return errors.As(err, &re) && re.Result == vk.Suboptimal
}

func (r *Renderer) record(cmd vk.CommandBuffer, index uint32, bar float32, now time.Time) error {
	f := r.frame
	extent := f.swapchain.Extent

	ret := vk.ResetCommandBuffer(cmd, 0)
	if err := NewError("vkResetCommandBuffer", ret); err != nil {
		return err
	}
	ret = vk.BeginCommandBuffer(cmd, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	})
	if err := NewError("vkBeginCommandBuffer", ret); err != nil {
		return err
	}

	clear := f.renderPass.Layout.ClearValues()
	vk.CmdBeginRenderPass(cmd, &vk.RenderPassBeginInfo{
		SType:           vk.StructureTypeRenderPassBeginInfo,
		RenderPass:      f.renderPass.Handle,
		Framebuffer:     f.targets.Framebuffer,
		RenderArea:      FullRect(extent),
		ClearValueCount: uint32(len(clear)),
		PClearValues:    clear,
	}, vk.SubpassContentsInline)

	scenePush := r.opts.Scene.Push(now, float32(extent.Width)/float32(extent.Height))
	vk.CmdBindPipeline(cmd, vk.PipelineBindPointGraphics, f.scenePipeline)
	vk.CmdPushConstants(cmd, f.sceneLayout, vk.ShaderStageFlags(vk.ShaderStageVertexBit),
		0, scenePushSize, unsafe.Pointer(&scenePush))
	vk.CmdDraw(cmd, CubeVertexCount, 1, 0, 0)

	vk.CmdNextSubpass(cmd, vk.SubpassContentsInline)
	visualizePush := VisualizePush{Near: NearPlane, Far: FarPlane}
	vk.CmdBindPipeline(cmd, vk.PipelineBindPointGraphics, f.visualizePipe)
	vk.CmdBindDescriptorSets(cmd, vk.PipelineBindPointGraphics, f.visualizeLayout, 0, 1,
		[]vk.DescriptorSet{f.visualizeSet}, 0, nil)
	vk.CmdPushConstants(cmd, f.visualizeLayout, vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		0, visualizePushSize, unsafe.Pointer(&visualizePush))
	vk.CmdDraw(cmd, 3, 1, 0, 0)
	vk.CmdEndRenderPass(cmd)

	if err := f.comparators[index].Record(cmd, index, bar); err != nil {
		return err
	}
	return NewError("vkEndCommandBuffer", vk.EndCommandBuffer(cmd))
}

// Destroy waits for the device and releases everything the renderer
// created. The platform is left to the caller.
func (r *Renderer) Destroy() {
	if r.dev == nil {
		return
	}
	if err := r.dev.WaitIdle(); err != nil {
		r.log.Warn("wait idle before destroy", "err", err)
	}
	r.teardown()
	r.sync.Destroy()
	r.commandPool.Destroy()
	r.dev = nil
}
