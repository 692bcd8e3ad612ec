package mode

import (
	"fmt"
	"sync"

	"github.com/bryanchriswhite/CamLayer/internal/logger"
)

// Mode is the camera presentation mode.
type Mode int

const (
	// ModeThumbnail shows the camera in a small floating overlay window.
	ModeThumbnail Mode = iota
	// ModeBackground shows the camera filling the main window.
	ModeBackground
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeThumbnail:
		return "thumbnail"
	case ModeBackground:
		return "background"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// IsBackground reports whether the camera fills the main window.
func (m Mode) IsBackground() bool {
	return m == ModeBackground
}

// Stage is the render-thread machinery a mode transition manipulates:
// windows, surfaces and the quad uniform. Implementations must leave the
// previous presentation intact when they return an error.
type Stage interface {
	// EnterBackground tears the overlay window down and presents the
	// camera in the main window.
	EnterBackground() error

	// EnterThumbnail clears the main window, recreates the overlay and
	// presents the camera there.
	EnterThumbnail() error
}

// Dispatcher runs fn on the render thread and blocks until it returns.
// GPU and windowing state is confined to that thread; transitions must
// never touch it from a request handler.
type Dispatcher interface {
	Dispatch(fn func() error) error
}

// Controller owns the current presentation mode and serializes
// transitions. Safe for concurrent use; the stage work itself always
// runs on the render thread via the dispatcher.
type Controller struct {
	stage Stage
	disp  Dispatcher

	mu       sync.Mutex
	current  Mode
	onChange []func(Mode)
}

// NewController creates a controller starting in thumbnail mode.
func NewController(stage Stage, disp Dispatcher) *Controller {
	return &Controller{
		stage:   stage,
		disp:    disp,
		current: ModeThumbnail,
	}
}

// Current returns the active mode without side effects.
func (c *Controller) Current() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// OnChange registers a callback invoked after every successful
// transition. Callbacks run on the caller's goroutine while the
// controller lock is held, so they must not call back into the
// controller.
func (c *Controller) OnChange(fn func(Mode)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = append(c.onChange, fn)
}

// Toggle switches between thumbnail and background mode and returns the
// mode now active. On failure the previous mode stays in effect and is
// returned alongside the error.
func (c *Controller) Toggle() (Mode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	target := ModeBackground
	if c.current == ModeBackground {
		target = ModeThumbnail
	}

	log := logger.WithComponent("mode")
	log.Info().
		Str("from", c.current.String()).
		Str("to", target.String()).
		Msg("Switching camera mode")

	err := c.disp.Dispatch(func() error {
		if target == ModeBackground {
			return c.stage.EnterBackground()
		}
		return c.stage.EnterThumbnail()
	})
	if err != nil {
		log.Error().
			Err(err).
			Str("mode", c.current.String()).
			Msg("Mode transition failed, staying in current mode")
		return c.current, fmt.Errorf("failed to enter %s mode: %w", target, err)
	}

	c.current = target
	for _, fn := range c.onChange {
		fn(target)
	}
	return target, nil
}
