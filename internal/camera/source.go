package camera

import (
	"errors"
	"fmt"

	"github.com/bryanchriswhite/CamLayer/internal/config"
	"github.com/bryanchriswhite/CamLayer/internal/logger"
)

// ErrDeviceClosed is returned by ReadFrame after Stop has been called.
var ErrDeviceClosed = errors.New("camera: device closed")

// Source is a capture backend owning one camera device. A source produces
// a continuous sequence of frames between Start and Stop; a read error is
// terminal (sources do not auto-retry a dead device).
type Source interface {
	// Open claims the device and negotiates the capture format. The device
	// may not honor the preferred format; the negotiated one is reported
	// per frame via CapturedFrame.Format.
	Open() error

	// Start begins streaming.
	Start() error

	// ReadFrame blocks until the next frame is available and returns it.
	// The returned frame owns its buffer.
	ReadFrame() (*CapturedFrame, error)

	// Stop ends streaming and releases the device. Unblocks a pending
	// ReadFrame with ErrDeviceClosed.
	Stop() error

	// Name returns a human-readable backend name.
	Name() string
}

// OpenSource opens a capture source for the configured backend. With
// backend "auto" the V4L2 source is tried first and GStreamer is the
// fallback: prefer the direct device path, fall back to the framework
// one.
func OpenSource(cfg config.CameraConfig) (Source, error) {
	log := logger.WithComponent("camera")

	switch cfg.Backend {
	case "v4l2":
		src := NewV4L2Source(cfg)
		if err := src.Open(); err != nil {
			return nil, err
		}
		return src, nil

	case "gstreamer":
		src := NewGstSource(cfg)
		if err := src.Open(); err != nil {
			return nil, err
		}
		return src, nil

	case "auto", "":
		v4l2 := NewV4L2Source(cfg)
		if err := v4l2.Open(); err == nil {
			log.Info().Str("backend", v4l2.Name()).Str("device", cfg.Device).Msg("Capture source opened")
			return v4l2, nil
		} else {
			log.Warn().Err(err).Msg("V4L2 source not available, trying GStreamer")
		}

		gst := NewGstSource(cfg)
		if err := gst.Open(); err != nil {
			return nil, fmt.Errorf("no capture backend available: %w", err)
		}
		log.Info().Str("backend", gst.Name()).Msg("Capture source opened")
		return gst, nil

	default:
		return nil, fmt.Errorf("camera: unknown backend %q", cfg.Backend)
	}
}
