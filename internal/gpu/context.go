package gpu

import (
	_ "embed"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/bryanchriswhite/CamLayer/internal/camera"
	"github.com/bryanchriswhite/CamLayer/internal/logger"
)

//go:embed shader.wgsl
var shaderSource string

// Context owns the GPU device, queue and every format-invariant resource:
// the camera texture, the sampler, the shader pipelines and the quad
// uniform buffer. All methods must be called from the render thread;
// Context is the single writer of GPU state.
type Context struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	shader        *wgpu.ShaderModule
	sampler       *wgpu.Sampler
	textureLayout *wgpu.BindGroupLayout
	uniformLayout *wgpu.BindGroupLayout
	pipelineLay   *wgpu.PipelineLayout

	// One pipeline per swapchain format encountered; windows can prefer
	// different surface formats.
	pipelines map[wgpu.TextureFormat]*wgpu.RenderPipeline

	uniformBuf   *wgpu.Buffer
	uniformGroup *wgpu.BindGroup
	uniform      QuadUniform

	camTexture *wgpu.Texture
	camView    *wgpu.TextureView
	camGroup   *wgpu.BindGroup
	camWidth   int
	camHeight  int
}

// NewContext initializes the GPU stack against an initial presentation
// surface (the adapter must be chosen as compatible with a real surface).
// The created surface is returned so the caller can hand it to the
// surface manager rather than creating it twice.
func NewContext(initial *wgpu.SurfaceDescriptor) (*Context, *wgpu.Surface, error) {
	log := logger.WithComponent("gpu")

	instance := wgpu.CreateInstance(nil)
	surface := instance.CreateSurface(initial)

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: surface,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("gpu: failed to find an adapter: %w", err)
	}

	device, err := adapter.RequestDevice(nil)
	if err != nil {
		return nil, nil, fmt.Errorf("gpu: failed to create device: %w", err)
	}
	queue := device.GetQueue()

	shader, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "camera-quad",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaderSource},
	})
	if err != nil {
		device.Release()
		return nil, nil, fmt.Errorf("gpu: failed to compile shader: %w", err)
	}

	sampler, err := device.CreateSampler(&wgpu.SamplerDescriptor{
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("gpu: failed to create sampler: %w", err)
	}

	textureLayout, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "camera-texture-layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					Multisampled:  false,
					ViewDimension: wgpu.TextureViewDimension2D,
					SampleType:    wgpu.TextureSampleTypeFloat,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Sampler: wgpu.SamplerBindingLayout{
					Type: wgpu.SamplerBindingTypeFiltering,
				},
			},
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("gpu: failed to create texture layout: %w", err)
	}

	uniformLayout, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "quad-uniform-layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type: wgpu.BufferBindingTypeUniform,
				},
			},
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("gpu: failed to create uniform layout: %w", err)
	}

	pipelineLay, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		BindGroupLayouts: []*wgpu.BindGroupLayout{textureLayout, uniformLayout},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("gpu: failed to create pipeline layout: %w", err)
	}

	// Single persistent allocation, updated in place each change.
	uniformBuf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "quad-uniform",
		Size:  QuadUniformSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("gpu: failed to create uniform buffer: %w", err)
	}

	uniformGroup, err := device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "quad-uniform-group",
		Layout: uniformLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: uniformBuf, Size: QuadUniformSize},
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("gpu: failed to create uniform bind group: %w", err)
	}

	c := &Context{
		instance:      instance,
		adapter:       adapter,
		device:        device,
		queue:         queue,
		shader:        shader,
		sampler:       sampler,
		textureLayout: textureLayout,
		uniformLayout: uniformLayout,
		pipelineLay:   pipelineLay,
		pipelines:     make(map[wgpu.TextureFormat]*wgpu.RenderPipeline),
		uniformBuf:    uniformBuf,
		uniformGroup:  uniformGroup,
	}

	log.Info().Msg("GPU context initialized")
	return c, surface, nil
}

// pipelineFor returns the render pipeline targeting the given surface
// format, creating it on first use.
func (c *Context) pipelineFor(format wgpu.TextureFormat) (*wgpu.RenderPipeline, error) {
	if p, ok := c.pipelines[format]; ok {
		return p, nil
	}

	blend := &wgpu.BlendState{
		Color: wgpu.BlendComponent{
			SrcFactor: wgpu.BlendFactorSrcAlpha,
			DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			Operation: wgpu.BlendOperationAdd,
		},
		Alpha: wgpu.BlendComponent{
			SrcFactor: wgpu.BlendFactorOne,
			DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			Operation: wgpu.BlendOperationAdd,
		},
	}

	pipeline, err := c.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "camera-quad-pipeline",
		Layout: c.pipelineLay,
		Vertex: wgpu.VertexState{
			Module:     c.shader,
			EntryPoint: "vs_main",
		},
		Primitive: wgpu.PrimitiveState{
			Topology:         wgpu.PrimitiveTopologyTriangleList,
			StripIndexFormat: wgpu.IndexFormatUndefined,
			FrontFace:        wgpu.FrontFaceCCW,
			CullMode:         wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		Fragment: &wgpu.FragmentState{
			Module:     c.shader,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    format,
				Blend:     blend,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: failed to create pipeline for %v: %w", format, err)
	}

	c.pipelines[format] = pipeline
	return pipeline, nil
}

// UploadFrame copies the decoded RGBA bytes into the camera texture.
// The texture is recreated only when the source resolution changes, not
// per frame.
func (c *Context) UploadFrame(f *camera.DecodedFrame) error {
	if len(f.Data) != f.Width*f.Height*4 {
		return fmt.Errorf("gpu: frame buffer is %d bytes, want %d", len(f.Data), f.Width*f.Height*4)
	}

	if c.camTexture == nil || c.camWidth != f.Width || c.camHeight != f.Height {
		if err := c.recreateCameraTexture(f.Width, f.Height); err != nil {
			return err
		}
	}

	c.queue.WriteTexture(
		c.camTexture.AsImageCopy(),
		f.Data,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(4 * f.Width),
			RowsPerImage: uint32(f.Height),
		},
		&wgpu.Extent3D{
			Width:              uint32(f.Width),
			Height:             uint32(f.Height),
			DepthOrArrayLayers: 1,
		},
	)
	return nil
}

func (c *Context) recreateCameraTexture(width, height int) error {
	c.releaseCameraTexture()

	tex, err := c.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "camera-frame",
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatRGBA8UnormSrgb,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("gpu: failed to create camera texture: %w", err)
	}

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return fmt.Errorf("gpu: failed to create camera texture view: %w", err)
	}

	group, err := c.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "camera-texture-group",
		Layout: c.textureLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: view},
			{Binding: 1, Sampler: c.sampler},
		},
	})
	if err != nil {
		view.Release()
		tex.Release()
		return fmt.Errorf("gpu: failed to create camera bind group: %w", err)
	}

	c.camTexture = tex
	c.camView = view
	c.camGroup = group
	c.camWidth = width
	c.camHeight = height

	logger.WithComponent("gpu").Debug().
		Int("width", width).
		Int("height", height).
		Msg("Camera texture recreated")
	return nil
}

func (c *Context) releaseCameraTexture() {
	if c.camGroup != nil {
		c.camGroup.Release()
		c.camGroup = nil
	}
	if c.camView != nil {
		c.camView.Release()
		c.camView = nil
	}
	if c.camTexture != nil {
		c.camTexture.Release()
		c.camTexture = nil
	}
}

// UpdateUniform writes the quad parameters into the persistent uniform
// buffer.
func (c *Context) UpdateUniform(q QuadUniform) {
	c.uniform = q
	c.queue.WriteBuffer(c.uniformBuf, 0, q.Marshal())
}

// Uniform returns the last uniform written.
func (c *Context) Uniform() QuadUniform {
	return c.uniform
}

// HasFrame reports whether a camera frame has been uploaded yet.
func (c *Context) HasFrame() bool {
	return c.camGroup != nil
}

// CameraSize returns the resolution of the current camera texture.
func (c *Context) CameraSize() (int, int) {
	return c.camWidth, c.camHeight
}

// RenderPass draws the camera quad into the given view. Before the first
// frame arrives it just clears to transparent so layered windows stay
// see-through.
func (c *Context) RenderPass(view *wgpu.TextureView, format wgpu.TextureFormat) error {
	encoder, err := c.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("gpu: failed to create command encoder: %w", err)
	}
	defer encoder.Release()

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 0},
		}},
	})

	if c.camGroup != nil {
		pipeline, err := c.pipelineFor(format)
		if err != nil {
			pass.End()
			return err
		}
		pass.SetPipeline(pipeline)
		pass.SetBindGroup(0, c.camGroup, nil)
		pass.SetBindGroup(1, c.uniformGroup, nil)
		pass.Draw(6, 1, 0, 0)
	}
	pass.End()

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("gpu: failed to finish command encoder: %w", err)
	}
	defer cmd.Release()

	c.queue.Submit(cmd)
	return nil
}

// ClearTarget fills the given view with an opaque clear color, used when
// handing a window's surface back on a mode switch so stale camera pixels
// do not linger.
func (c *Context) ClearTarget(view *wgpu.TextureView) error {
	encoder, err := c.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("gpu: failed to create command encoder: %w", err)
	}
	defer encoder.Release()

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 1},
		}},
	})
	pass.End()

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("gpu: failed to finish command encoder: %w", err)
	}
	defer cmd.Release()

	c.queue.Submit(cmd)
	return nil
}

// Instance exposes the wgpu instance for surface creation.
func (c *Context) Instance() *wgpu.Instance {
	return c.instance
}

// Adapter exposes the adapter for surface capability queries.
func (c *Context) Adapter() *wgpu.Adapter {
	return c.adapter
}

// Device exposes the device for surface configuration.
func (c *Context) Device() *wgpu.Device {
	return c.device
}

// Release frees all GPU resources. The capture worker must already be
// stopped so nothing writes into a destroyed texture.
func (c *Context) Release() {
	c.releaseCameraTexture()
	for _, p := range c.pipelines {
		p.Release()
	}
	c.pipelines = nil
	if c.uniformGroup != nil {
		c.uniformGroup.Release()
	}
	if c.uniformBuf != nil {
		c.uniformBuf.Release()
	}
	if c.pipelineLay != nil {
		c.pipelineLay.Release()
	}
	if c.uniformLayout != nil {
		c.uniformLayout.Release()
	}
	if c.textureLayout != nil {
		c.textureLayout.Release()
	}
	if c.sampler != nil {
		c.sampler.Release()
	}
	if c.shader != nil {
		c.shader.Release()
	}
	if c.device != nil {
		c.device.Release()
	}
	if c.adapter != nil {
		c.adapter.Release()
	}
	if c.instance != nil {
		c.instance.Release()
	}
}
