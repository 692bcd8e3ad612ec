package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/bryanchriswhite/CamLayer/internal/logger"
)

// SurfaceTarget is a GPU-presentable surface bound to one native window.
// Exactly one target receives the camera render pass at a time; the mode
// controller decides which.
type SurfaceTarget struct {
	surface *wgpu.Surface
	config  wgpu.SurfaceConfiguration
}

// Format returns the configured swapchain format.
func (t *SurfaceTarget) Format() wgpu.TextureFormat {
	return t.config.Format
}

// Size returns the configured surface size.
func (t *SurfaceTarget) Size() (uint32, uint32) {
	return t.config.Width, t.config.Height
}

// SurfaceManager creates, resizes and destroys presentation surfaces.
// All methods run on the render thread.
type SurfaceManager struct {
	ctx *Context
}

// NewSurfaceManager creates a surface manager over the GPU context.
func NewSurfaceManager(ctx *Context) *SurfaceManager {
	return &SurfaceManager{ctx: ctx}
}

// Bind creates and configures a surface for a native window described by
// desc.
func (m *SurfaceManager) Bind(desc *wgpu.SurfaceDescriptor, width, height uint32) (*SurfaceTarget, error) {
	surface := m.ctx.Instance().CreateSurface(desc)
	return m.Adopt(surface, width, height)
}

// Adopt configures an already-created surface (e.g. the one used to pick
// the adapter at startup) into a target.
func (m *SurfaceManager) Adopt(surface *wgpu.Surface, width, height uint32) (*SurfaceTarget, error) {
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("gpu: cannot bind a zero-sized surface (%dx%d)", width, height)
	}

	caps := surface.GetCapabilities(m.ctx.Adapter())
	if len(caps.Formats) == 0 {
		return nil, fmt.Errorf("gpu: surface reports no supported formats")
	}

	t := &SurfaceTarget{
		surface: surface,
		config: wgpu.SurfaceConfiguration{
			Usage:       wgpu.TextureUsageRenderAttachment,
			Format:      caps.Formats[0],
			Width:       width,
			Height:      height,
			PresentMode: wgpu.PresentModeFifo,
			AlphaMode:   pickAlphaMode(caps.AlphaModes),
		},
	}
	t.surface.Configure(m.ctx.Adapter(), m.ctx.Device(), &t.config)

	logger.WithComponent("surface").Debug().
		Uint32("width", width).
		Uint32("height", height).
		Msg("Surface bound")
	return t, nil
}

// pickAlphaMode prefers a transparent compositing mode so windows layered
// above the background camera stay visible, falling back to whatever the
// surface offers first.
func pickAlphaMode(modes []wgpu.CompositeAlphaMode) wgpu.CompositeAlphaMode {
	for _, m := range modes {
		if m == wgpu.CompositeAlphaModePremultiplied {
			return m
		}
	}
	if len(modes) > 0 {
		return modes[0]
	}
	return wgpu.CompositeAlphaModeAuto
}

// Resize reconfigures the target for a new window size. Zero-sized
// requests are ignored outright; reconfiguring a surface to 0x0 faults,
// and a hidden window will be resized again when it reappears.
func (m *SurfaceManager) Resize(t *SurfaceTarget, width, height uint32) {
	if t == nil || width == 0 || height == 0 {
		return
	}
	if t.config.Width == width && t.config.Height == height {
		return
	}
	t.config.Width = width
	t.config.Height = height
	t.surface.Configure(m.ctx.Adapter(), m.ctx.Device(), &t.config)
}

// Unbind releases the surface. The target must not be used afterwards.
func (m *SurfaceManager) Unbind(t *SurfaceTarget) {
	if t == nil || t.surface == nil {
		return
	}
	t.surface.Release()
	t.surface = nil
}

// Acquire obtains the next swapchain texture view. A lost or outdated
// surface is reconfigured and retried once; if that also fails the caller
// should skip this draw and try again next tick. The returned finish
// function releases the view and texture either way, and presents the
// frame only when called with true, so a failed pass never reaches the
// screen.
func (m *SurfaceManager) Acquire(t *SurfaceTarget) (*wgpu.TextureView, func(present bool), error) {
	if t == nil || t.surface == nil {
		return nil, nil, fmt.Errorf("gpu: acquire on unbound target")
	}
	if t.config.Width == 0 || t.config.Height == 0 {
		return nil, nil, fmt.Errorf("gpu: acquire on zero-sized target")
	}

	tex, err := t.surface.GetCurrentTexture()
	if err != nil {
		// Outdated/lost surface: reconfigure and retry once.
		t.surface.Configure(m.ctx.Adapter(), m.ctx.Device(), &t.config)
		tex, err = t.surface.GetCurrentTexture()
		if err != nil {
			return nil, nil, fmt.Errorf("gpu: failed to acquire surface texture: %w", err)
		}
	}

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, nil, fmt.Errorf("gpu: failed to create surface view: %w", err)
	}

	finish := func(present bool) {
		view.Release()
		if present {
			t.surface.Present()
		}
		tex.Release()
	}
	return view, finish, nil
}
