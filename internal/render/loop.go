package render

import (
	"errors"
	"sync"
	"time"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/rs/zerolog"

	"github.com/bryanchriswhite/CamLayer/internal/camera"
	"github.com/bryanchriswhite/CamLayer/internal/config"
	"github.com/bryanchriswhite/CamLayer/internal/gpu"
	"github.com/bryanchriswhite/CamLayer/internal/logger"
	"github.com/bryanchriswhite/CamLayer/internal/window"
)

// ErrStopped is returned by Dispatch when the loop has already exited.
var ErrStopped = errors.New("render loop stopped")

type op struct {
	fn   func() error
	done chan error
}

// Loop drives presentation on the main thread: it polls window events,
// executes dispatched operations, pulls frames from the mailbox, uploads
// them and draws the active target each tick. It implements both the
// mode controller's Stage (the transitions mutate loop-owned windows and
// surfaces) and its Dispatcher (transitions are marshalled onto this
// thread).
//
// All fields below the channels are confined to the render thread.
type Loop struct {
	backend    window.Backend
	ctx        *gpu.Context
	surfaces   *gpu.SurfaceManager
	mailbox    *camera.Mailbox
	worker     *camera.Worker
	overlayCfg config.OverlayConfig

	ops      chan op
	stop     chan struct{}
	quit     chan struct{}
	stopOnce sync.Once

	mainWin       window.Window
	mainTarget    *gpu.SurfaceTarget
	overlayWin    window.Window
	overlayTarget *gpu.SurfaceTarget
	background    bool
	captureDown   bool

	lastMainX, lastMainY int
	lastMainW, lastMainH int

	frameMu   sync.Mutex
	lastFrame *camera.DecodedFrame
}

// NewLoop creates a render loop over an already-created main window and
// its configured surface target. The overlay is created by the first
// EnterThumbnail call.
func NewLoop(backend window.Backend, ctx *gpu.Context, surfaces *gpu.SurfaceManager,
	mailbox *camera.Mailbox, worker *camera.Worker, overlayCfg config.OverlayConfig,
	mainWin window.Window, mainTarget *gpu.SurfaceTarget) *Loop {

	l := &Loop{
		backend:    backend,
		ctx:        ctx,
		surfaces:   surfaces,
		mailbox:    mailbox,
		worker:     worker,
		overlayCfg: overlayCfg,
		ops:        make(chan op, 8),
		stop:       make(chan struct{}),
		quit:       make(chan struct{}),
		mainWin:    mainWin,
		mainTarget: mainTarget,
	}
	l.lastMainX, l.lastMainY = mainWin.Position()
	l.lastMainW, l.lastMainH = mainWin.Size()
	return l
}

// Dispatch runs fn on the render thread and blocks until it completes.
func (l *Loop) Dispatch(fn func() error) error {
	o := op{fn: fn, done: make(chan error, 1)}
	select {
	case l.ops <- o:
	case <-l.quit:
		return ErrStopped
	}
	select {
	case err := <-o.done:
		return err
	case <-l.quit:
		return ErrStopped
	}
}

// Stop asks the loop to exit after the current tick. Safe to call from
// any goroutine, more than once.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// LatestFrame returns the most recently uploaded frame, or nil before
// the first one. The returned frame is immutable.
func (l *Loop) LatestFrame() *camera.DecodedFrame {
	l.frameMu.Lock()
	defer l.frameMu.Unlock()
	return l.lastFrame
}

// Run executes the loop until Stop is called or the main window closes.
// Must run on the main thread.
func (l *Loop) Run() {
	defer close(l.quit)
	log := logger.WithComponent("render")
	log.Info().Msg("Render loop started")

	for {
		select {
		case <-l.stop:
			log.Info().Msg("Render loop stopping")
			return
		default:
		}
		if l.mainWin.ShouldClose() {
			log.Info().Msg("Main window closed")
			return
		}

		l.backend.PollEvents()
		l.drainOps()
		l.trackWindows()
		l.pumpFrames(log)

		if !l.draw(log) {
			// Nothing presented this tick (surface trouble); with no
			// vsync to pace us, back off briefly.
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// drainOps executes every queued operation without blocking.
func (l *Loop) drainOps() {
	for {
		select {
		case o := <-l.ops:
			o.done <- o.fn()
		default:
			return
		}
	}
}

// trackWindows follows window moves and resizes: the main surface tracks
// its framebuffer, and in thumbnail mode the overlay is pinned to the
// main window's top-right corner.
func (l *Loop) trackWindows() {
	if w, h := l.mainWin.FramebufferSize(); w != 0 && h != 0 {
		if cw, ch := l.mainTarget.Size(); cw != w || ch != h {
			l.surfaces.Resize(l.mainTarget, w, h)
			l.refreshQuad()
		}
	}

	x, y := l.mainWin.Position()
	mw, mh := l.mainWin.Size()
	moved := x != l.lastMainX || y != l.lastMainY || mw != l.lastMainW || mh != l.lastMainH
	l.lastMainX, l.lastMainY = x, y
	l.lastMainW, l.lastMainH = mw, mh

	if l.overlayWin != nil {
		if moved {
			g := l.overlayGeometry()
			l.overlayWin.SetGeometry(g.X, g.Y, g.Width, g.Height)
		}
		if w, h := l.overlayWin.FramebufferSize(); w != 0 && h != 0 {
			if cw, ch := l.overlayTarget.Size(); cw != w || ch != h {
				l.surfaces.Resize(l.overlayTarget, w, h)
				l.refreshQuad()
			}
		}
	}
}

// pumpFrames moves at most one frame from the mailbox onto the GPU and
// notices capture shutdown.
func (l *Loop) pumpFrames(log *zerolog.Logger) {
	if f := l.mailbox.TryTake(); f != nil {
		prevW, prevH := l.ctx.CameraSize()
		if err := l.ctx.UploadFrame(f); err != nil {
			log.Warn().Err(err).Msg("Dropping frame: upload failed")
		} else {
			l.frameMu.Lock()
			l.lastFrame = f
			l.frameMu.Unlock()

			if w, h := l.ctx.CameraSize(); w != prevW || h != prevH {
				l.cameraSizeChanged()
			}
		}
	}

	select {
	case <-l.worker.Done():
		if !l.captureDown {
			l.captureDown = true
			if err := l.worker.Err(); err != nil {
				log.Error().Err(err).Msg("Capture stopped, keeping last frame on screen")
			}
		}
	default:
	}
}

// cameraSizeChanged reshapes the overlay to the new aspect ratio and
// recomputes the quad.
func (l *Loop) cameraSizeChanged() {
	if l.overlayWin != nil {
		g := l.overlayGeometry()
		l.overlayWin.SetGeometry(g.X, g.Y, g.Width, g.Height)
	}
	l.refreshQuad()
}

// draw presents the current tick. In thumbnail mode the main window is
// cleared and the camera goes to the overlay; in background mode the
// camera fills the main window. Reports whether anything was presented.
func (l *Loop) draw(log *zerolog.Logger) bool {
	presented := false
	if l.background {
		presented = l.present(l.mainTarget, true, log)
	} else {
		presented = l.present(l.mainTarget, false, log)
		if l.overlayTarget != nil {
			presented = l.present(l.overlayTarget, true, log) || presented
		}
	}
	return presented
}

func (l *Loop) present(t *gpu.SurfaceTarget, drawCamera bool, log *zerolog.Logger) bool {
	pass := l.ctx.ClearTarget
	if drawCamera {
		format := t.Format()
		pass = func(view *wgpu.TextureView) error {
			return l.ctx.RenderPass(view, format)
		}
	}
	acquire := func() (*wgpu.TextureView, func(bool), error) {
		return l.surfaces.Acquire(t)
	}
	return presentTarget(acquire, pass, log)
}

// presentTarget runs one acquire/draw/present cycle. A failed pass skips
// presentation so an undefined target never reaches the screen; the
// acquired view and texture are released either way.
func presentTarget(acquire func() (*wgpu.TextureView, func(bool), error), pass func(*wgpu.TextureView) error, log *zerolog.Logger) bool {
	view, finish, err := acquire()
	if err != nil {
		log.Debug().Err(err).Msg("Skipping draw, surface not ready")
		return false
	}

	if err := pass(view); err != nil {
		log.Warn().Err(err).Msg("Render pass failed, dropping frame")
		finish(false)
		return false
	}
	finish(true)
	return true
}

// refreshQuad recomputes the quad uniform from the active target and the
// current camera resolution. Idempotent; only writes on change.
func (l *Loop) refreshQuad() {
	camW, camH := l.ctx.CameraSize()

	var q gpu.QuadUniform
	if l.background {
		// Background mode covers the whole window at the window's
		// aspect ratio, square corners.
		w, h := l.mainTarget.Size()
		q = gpu.BackgroundQuad(w, h)
	} else if l.overlayTarget != nil {
		w, h := l.overlayTarget.Size()
		q = gpu.ThumbnailQuad(w, h, camW, camH, l.overlayCfg.CornerRadiusPx)
	} else {
		return
	}

	if q != l.ctx.Uniform() {
		l.ctx.UpdateUniform(q)
	}
}

// overlayGeometry computes where the overlay belongs right now.
func (l *Loop) overlayGeometry() window.OverlayGeometry {
	x, y := l.mainWin.Position()
	w, h := l.mainWin.Size()
	camW, camH := l.ctx.CameraSize()
	return window.ComputeOverlayGeometry(x, y, w, h, camW, camH,
		float64(l.overlayCfg.SizeFraction), l.overlayCfg.MarginPx)
}

// Close releases the loop-owned windows and surface targets. Must run
// on the render thread, after Run has returned and the capture worker
// has been joined.
func (l *Loop) Close() {
	if l.overlayWin != nil {
		l.surfaces.Unbind(l.overlayTarget)
		l.overlayTarget = nil
		l.overlayWin.Destroy()
		l.overlayWin = nil
	}
	l.surfaces.Unbind(l.mainTarget)
	l.mainTarget = nil
}

// EnterBackground tears the overlay down and routes the camera into the
// main window. Runs on the render thread.
func (l *Loop) EnterBackground() error {
	if l.overlayWin != nil {
		l.overlayWin.Hide()
		l.surfaces.Unbind(l.overlayTarget)
		l.overlayTarget = nil
		l.overlayWin.Destroy()
		l.overlayWin = nil
	}
	l.background = true
	l.refreshQuad()
	return nil
}

// EnterThumbnail recreates the overlay window and hands the main window
// surface back to an opaque clear. Runs on the render thread. On failure
// the loop stays in background mode with the main window intact.
func (l *Loop) EnterThumbnail() error {
	if l.overlayWin == nil {
		g := l.overlayGeometry()
		win, err := l.backend.CreateOverlay(g)
		if err != nil {
			return err
		}

		w, h := win.FramebufferSize()
		target, err := l.surfaces.Bind(win.SurfaceDescriptor(), w, h)
		if err != nil {
			win.Destroy()
			return err
		}

		l.overlayWin = win
		l.overlayTarget = target
		win.Show()
	}

	l.background = false

	// Flush stale camera pixels out of the main window.
	if view, finish, err := l.surfaces.Acquire(l.mainTarget); err == nil {
		if err := l.ctx.ClearTarget(view); err != nil {
			logger.WithComponent("render").Warn().Err(err).Msg("Failed to clear main surface")
			finish(false)
		} else {
			finish(true)
		}
	}

	l.refreshQuad()
	return nil
}
