package framecomp

import (
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/pkg/errors"

	vk "github.com/goki/vulkan"
)

// InitWindowSystem initializes glfw and loads Vulkan through it. It must
// run on the main thread before any other call in this package.
func InitWindowSystem() error {
	if err := glfw.Init(); err != nil {
		return errors.Wrap(err, "glfw init")
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return errors.New("glfw reports no Vulkan loader")
	}
	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	if err := vk.Init(); err != nil {
		glfw.Terminate()
		return errors.Wrap(err, "vulkan init")
	}
	return nil
}

// TerminateWindowSystem undoes InitWindowSystem.
func TerminateWindowSystem() {
	glfw.Terminate()
}

// Display is the viewer window. Its callbacks feed pointer input to the
// bar and size changes to the rebuild state; they run on the main thread
// inside PollEvents.
type Display struct {
	Window *glfw.Window

	bar     *BarState
	rebuild *RebuildState
}

// NewDisplay opens a resizable window without a client API.
func NewDisplay(cfg WindowConfig, bar *BarState, rebuild *RebuildState) (*Display, error) {
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.Visible, glfw.True)
	window, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create window")
	}
	d := &Display{Window: window, bar: bar, rebuild: rebuild}
	window.SetCursorPosCallback(d.cursorMoved)
	window.SetMouseButtonCallback(d.mouseButton)
	window.SetFramebufferSizeCallback(d.framebufferResized)
	return d, nil
}

func (d *Display) cursorMoved(w *glfw.Window, x, y float64) {
	width, _ := w.GetSize()
	d.bar.PointerMove(x, width)
}

func (d *Display) mouseButton(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
	if button != glfw.MouseButtonLeft {
		return
	}
	d.bar.SetDragging(action == glfw.Press)
	if action == glfw.Press {
		x, _ := w.GetCursorPos()
		width, _ := w.GetSize()
		d.bar.PointerMove(x, width)
	}
}

func (d *Display) framebufferResized(w *glfw.Window, width, height int) {
	d.rebuild.MarkResized()
}

// RequiredInstanceExtensions lists the instance extensions the window
// surface needs.
func (d *Display) RequiredInstanceExtensions() []string {
	return d.Window.GetRequiredInstanceExtensions()
}

// CreateSurface creates the Vulkan surface of the window.
func (d *Display) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	ptr, err := d.Window.CreateWindowSurface(instance, nil)
	if err != nil {
		return vk.NullSurface, errors.Wrap(err, "create window surface")
	}
	return vk.SurfaceFromPointer(ptr), nil
}

// FramebufferSize returns the drawable size in pixels.
func (d *Display) FramebufferSize() (int, int) {
	return d.Window.GetFramebufferSize()
}

// Minimized reports a zero-sized drawable, during which nothing is
// rendered.
func (d *Display) Minimized() bool {
	w, h := d.FramebufferSize()
	return w == 0 || h == 0
}

// PollEvents runs pending window callbacks.
func (d *Display) PollEvents() {
	glfw.PollEvents()
}

// WaitEvents blocks until a window event arrives, then runs callbacks.
func (d *Display) WaitEvents() {
	glfw.WaitEvents()
}

func (d *Display) ShouldClose() bool {
	return d.Window.ShouldClose()
}

func (d *Display) Destroy() {
	if d.Window != nil {
		d.Window.Destroy()
		d.Window = nil
	}
}
