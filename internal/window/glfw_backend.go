package window

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/bryanchriswhite/CamLayer/internal/config"
	"github.com/bryanchriswhite/CamLayer/internal/logger"
)

// GLFWBackend implements Backend on top of GLFW. GLFW requires every
// call to happen on the main OS thread; the render loop owns that
// thread, so no additional locking is done here.
type GLFWBackend struct {
	initialized bool
}

// NewGLFWBackend creates a new GLFW windowing backend.
func NewGLFWBackend() *GLFWBackend {
	return &GLFWBackend{}
}

// Init initializes GLFW.
func (b *GLFWBackend) Init() error {
	if b.initialized {
		return nil
	}
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("failed to initialize GLFW: %w", err)
	}
	b.initialized = true

	logger.WithComponent("glfw-backend").Debug().Msg("GLFW initialized")
	return nil
}

// Terminate shuts GLFW down.
func (b *GLFWBackend) Terminate() {
	if !b.initialized {
		return
	}
	glfw.Terminate()
	b.initialized = false
}

// CreateMain creates the decorated application window.
func (b *GLFWBackend) CreateMain(cfg config.WindowConfig) (Window, error) {
	glfw.DefaultWindowHints()
	// No GL context: the surface is driven by wgpu.
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.Decorated, glfw.True)
	// Alpha in the framebuffer lets background mode show the desktop
	// through the letterbox bars.
	glfw.WindowHint(glfw.TransparentFramebuffer, glfw.True)

	win, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create main window: %w", err)
	}

	logger.WithComponent("glfw-backend").Info().
		Int("width", cfg.Width).
		Int("height", cfg.Height).
		Str("title", cfg.Title).
		Msg("Main window created")
	return &glfwWindow{win: win}, nil
}

// CreateOverlay creates the borderless floating camera window.
func (b *GLFWBackend) CreateOverlay(geom OverlayGeometry) (Window, error) {
	glfw.DefaultWindowHints()
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.False)
	glfw.WindowHint(glfw.Decorated, glfw.False)
	glfw.WindowHint(glfw.Floating, glfw.True)
	glfw.WindowHint(glfw.FocusOnShow, glfw.False)
	// Transparency outside the rounded corners.
	glfw.WindowHint(glfw.TransparentFramebuffer, glfw.True)
	// Created hidden so it can be positioned before first paint.
	glfw.WindowHint(glfw.Visible, glfw.False)

	win, err := glfw.CreateWindow(geom.Width, geom.Height, "camlayer-overlay", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create overlay window: %w", err)
	}
	win.SetPos(geom.X, geom.Y)

	logger.WithComponent("glfw-backend").Debug().
		Int("x", geom.X).
		Int("y", geom.Y).
		Int("width", geom.Width).
		Int("height", geom.Height).
		Msg("Overlay window created")
	return &glfwWindow{win: win}, nil
}

// PollEvents processes pending events without blocking.
func (b *GLFWBackend) PollEvents() {
	glfw.PollEvents()
}

// Name returns the backend name.
func (b *GLFWBackend) Name() string {
	return "glfw"
}

// glfwWindow adapts *glfw.Window to the Window interface.
type glfwWindow struct {
	win *glfw.Window
}

func (w *glfwWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return wgpuglfw.GetSurfaceDescriptor(w.win)
}

func (w *glfwWindow) FramebufferSize() (uint32, uint32) {
	width, height := w.win.GetFramebufferSize()
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return uint32(width), uint32(height)
}

func (w *glfwWindow) Position() (int, int) {
	return w.win.GetPos()
}

func (w *glfwWindow) Size() (int, int) {
	return w.win.GetSize()
}

func (w *glfwWindow) SetGeometry(x, y, width, height int) {
	w.win.SetPos(x, y)
	w.win.SetSize(width, height)
}

func (w *glfwWindow) Show() {
	w.win.Show()
}

func (w *glfwWindow) Hide() {
	w.win.Hide()
}

func (w *glfwWindow) ShouldClose() bool {
	return w.win.ShouldClose()
}

func (w *glfwWindow) Destroy() {
	w.win.Destroy()
}
