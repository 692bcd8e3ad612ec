package window

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/bryanchriswhite/CamLayer/internal/config"
)

// Window is one native window the GPU presents into.
type Window interface {
	// SurfaceDescriptor returns the native handles wgpu needs to create
	// a presentation surface for this window.
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// FramebufferSize returns the drawable size in pixels. This can
	// differ from the window size on scaled displays.
	FramebufferSize() (uint32, uint32)

	// Position returns the window origin in screen coordinates.
	Position() (int, int)

	// Size returns the window size in screen coordinates.
	Size() (int, int)

	// SetGeometry moves and resizes the window.
	SetGeometry(x, y, width, height int)

	// Show makes the window visible.
	Show()

	// Hide makes the window invisible without destroying it.
	Hide()

	// ShouldClose reports whether the user asked the window to close.
	ShouldClose() bool

	// Destroy releases the native window. The window must not be used
	// afterwards.
	Destroy()
}

// Backend defines the interface for windowing backends. All methods must
// be called from the main thread.
type Backend interface {
	// Init initializes the windowing system
	Init() error

	// Terminate shuts the windowing system down. All windows must be
	// destroyed first.
	Terminate()

	// CreateMain creates the decorated, resizable application window.
	// Its framebuffer supports alpha so the compositor can see through
	// it when the camera is not drawn edge to edge.
	CreateMain(cfg config.WindowConfig) (Window, error)

	// CreateOverlay creates the borderless always-on-top camera window
	// at the given screen geometry.
	CreateOverlay(geom OverlayGeometry) (Window, error)

	// PollEvents processes pending windowing events without blocking.
	PollEvents()

	// Name returns the backend name (e.g., "glfw")
	Name() string
}
