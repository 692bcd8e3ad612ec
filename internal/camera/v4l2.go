package camera

import (
	"fmt"
	"sync"
	"time"

	"github.com/blackjack/webcam"

	"github.com/bryanchriswhite/CamLayer/internal/config"
	"github.com/bryanchriswhite/CamLayer/internal/logger"
)

// preferredFormats is the negotiation order: RGBA is requested first so no
// CPU conversion is needed, but most webcams only do packed YUV.
var preferredFormats = []webcam.PixelFormat{
	webcam.PixelFormat(PixelFormatRGBA),
	webcam.PixelFormat(PixelFormatYUYV),
	webcam.PixelFormat(PixelFormatUYVY),
}

// V4L2Source captures from a V4L2 device. It owns the device handle
// exclusively from Open until Stop.
type V4L2Source struct {
	device string
	prefW  int
	prefH  int
	fps    int

	mu     sync.Mutex
	cam    *webcam.Webcam
	closed bool

	format PixelFormat
	width  int
	height int
}

// NewV4L2Source creates an unopened V4L2 source for the configured device.
func NewV4L2Source(cfg config.CameraConfig) *V4L2Source {
	return &V4L2Source{
		device: cfg.Device,
		prefW:  cfg.Width,
		prefH:  cfg.Height,
		fps:    cfg.FPS,
	}
}

// Name returns the backend name.
func (s *V4L2Source) Name() string {
	return "v4l2"
}

// Open claims the device and negotiates pixel format and resolution.
func (s *V4L2Source) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := logger.WithComponent("v4l2")

	cam, err := webcam.Open(s.device)
	if err != nil {
		return fmt.Errorf("camera: failed to open %s: %w", s.device, err)
	}

	supported := cam.GetSupportedFormats()
	var chosen webcam.PixelFormat
	for _, want := range preferredFormats {
		if _, ok := supported[want]; ok {
			chosen = want
			break
		}
	}
	if chosen == 0 {
		cam.Close()
		return fmt.Errorf("camera: %s supports none of RGBA/YUYV/UYVY", s.device)
	}

	actual, w, h, err := cam.SetImageFormat(chosen, uint32(s.prefW), uint32(s.prefH))
	if err != nil {
		cam.Close()
		return fmt.Errorf("camera: failed to set format on %s: %w", s.device, err)
	}

	// The driver is free to answer with a different format or size than
	// requested. Route on what it actually reported.
	if actual != chosen {
		log.Warn().
			Str("requested", PixelFormat(chosen).String()).
			Str("actual", PixelFormat(actual).String()).
			Msg("Device did not honor requested pixel format")
	}
	if _, err := PixelFormat(actual).FrameSize(int(w), int(h)); err != nil {
		cam.Close()
		return fmt.Errorf("camera: device chose unusable format: %w", err)
	}

	if s.fps > 0 {
		if err := cam.SetFramerate(float32(s.fps)); err != nil {
			log.Warn().Err(err).Int("fps", s.fps).Msg("Failed to set framerate, using device default")
		}
	}

	s.cam = cam
	s.format = PixelFormat(actual)
	s.width = int(w)
	s.height = int(h)

	log.Info().
		Str("device", s.device).
		Str("format", s.format.String()).
		Int("width", s.width).
		Int("height", s.height).
		Msg("V4L2 device opened")

	return nil
}

// Start begins streaming from the device.
func (s *V4L2Source) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cam == nil {
		return fmt.Errorf("camera: source not open")
	}
	if err := s.cam.StartStreaming(); err != nil {
		return fmt.Errorf("camera: failed to start streaming: %w", err)
	}
	return nil
}

// ReadFrame blocks until the device delivers a frame. The driver's mmap
// buffer is re-enqueued after ReadFrame returns, so the data is copied
// into a buffer the frame owns.
func (s *V4L2Source) ReadFrame() (*CapturedFrame, error) {
	for {
		s.mu.Lock()
		cam, closed := s.cam, s.closed
		s.mu.Unlock()
		if closed || cam == nil {
			return nil, ErrDeviceClosed
		}

		err := cam.WaitForFrame(5)
		switch err.(type) {
		case nil:
		case *webcam.Timeout:
			continue
		default:
			if s.isClosed() {
				return nil, ErrDeviceClosed
			}
			return nil, fmt.Errorf("camera: wait for frame: %w", err)
		}

		data, err := cam.ReadFrame()
		if err != nil {
			if s.isClosed() {
				return nil, ErrDeviceClosed
			}
			return nil, fmt.Errorf("camera: read frame: %w", err)
		}
		if len(data) == 0 {
			continue
		}

		buf := make([]byte, len(data))
		copy(buf, data)

		return &CapturedFrame{
			Width:     s.width,
			Height:    s.height,
			Format:    s.format,
			Data:      buf,
			Timestamp: time.Now(),
		}, nil
	}
}

func (s *V4L2Source) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Stop ends streaming and releases the device handle.
func (s *V4L2Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.cam == nil {
		return nil
	}
	s.closed = true
	s.cam.StopStreaming()
	err := s.cam.Close()
	s.cam = nil
	if err != nil {
		return fmt.Errorf("camera: failed to close device: %w", err)
	}
	return nil
}
