package camera

import (
	"fmt"
	"sync"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/bryanchriswhite/CamLayer/internal/config"
	"github.com/bryanchriswhite/CamLayer/internal/logger"
)

// GstSource captures through a GStreamer pipeline. videoconvert does the
// format normalization in-pipeline, so frames always come out RGBA. Used
// as the fallback when the direct V4L2 path is unavailable.
type GstSource struct {
	device string
	prefW  int
	prefH  int
	fps    int

	mu       sync.Mutex
	pipeline *gst.Pipeline
	appsink  *app.Sink
	closed   bool
}

// NewGstSource creates an unopened GStreamer source.
func NewGstSource(cfg config.CameraConfig) *GstSource {
	return &GstSource{
		device: cfg.Device,
		prefW:  cfg.Width,
		prefH:  cfg.Height,
		fps:    cfg.FPS,
	}
}

// Name returns the backend name.
func (s *GstSource) Name() string {
	return "gstreamer"
}

// Open builds the capture pipeline. The appsink is capped at two buffers
// with drop=true so a slow consumer sheds frames inside GStreamer instead
// of growing a queue.
func (s *GstSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := logger.WithComponent("gstreamer")

	gst.Init(nil)

	caps := "video/x-raw,format=RGBA"
	if s.prefW > 0 && s.prefH > 0 {
		caps = fmt.Sprintf("%s,width=%d,height=%d", caps, s.prefW, s.prefH)
	}
	if s.fps > 0 {
		caps = fmt.Sprintf("%s,framerate=%d/1", caps, s.fps)
	}

	pipelineStr := fmt.Sprintf(
		"v4l2src device=%s do-timestamp=true ! "+
			"videoconvert ! videoscale ! %s ! "+
			"appsink name=sink emit-signals=false max-buffers=2 drop=true",
		s.device, caps,
	)

	log.Debug().Str("pipeline", pipelineStr).Msg("Creating GStreamer pipeline")

	pipeline, err := gst.NewPipelineFromString(pipelineStr)
	if err != nil {
		return fmt.Errorf("camera: failed to create pipeline: %w", err)
	}

	sinkElement, err := pipeline.GetElementByName("sink")
	if err != nil {
		pipeline.Unref()
		return fmt.Errorf("camera: failed to get appsink: %w", err)
	}

	s.pipeline = pipeline
	s.appsink = app.SinkFromElement(sinkElement)
	return nil
}

// Start sets the pipeline to playing.
func (s *GstSource) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pipeline == nil {
		return fmt.Errorf("camera: source not open")
	}
	if err := s.pipeline.SetState(gst.StatePlaying); err != nil {
		return fmt.Errorf("camera: failed to start pipeline: %w", err)
	}
	logger.WithComponent("gstreamer").Info().Str("device", s.device).Msg("GStreamer pipeline started")
	return nil
}

// ReadFrame pulls the next sample from the appsink. Pulling with a short
// timeout in a loop keeps the goroutine responsive to Stop without
// relying on CGO signal callbacks.
func (s *GstSource) ReadFrame() (*CapturedFrame, error) {
	for {
		s.mu.Lock()
		sink, closed := s.appsink, s.closed
		s.mu.Unlock()
		if closed || sink == nil {
			return nil, ErrDeviceClosed
		}

		sample := sink.TryPullSample(100 * time.Millisecond)
		if sample == nil {
			if sink.IsEOS() {
				return nil, fmt.Errorf("camera: pipeline reached end of stream")
			}
			continue
		}

		frame, err := sampleToFrame(sample)
		if err != nil {
			logger.WithComponent("gstreamer").Debug().Err(err).Msg("Dropping unreadable sample")
			continue
		}
		return frame, nil
	}
}

// sampleToFrame copies an RGBA sample out of GStreamer-owned memory.
func sampleToFrame(sample *gst.Sample) (*CapturedFrame, error) {
	buffer := sample.GetBuffer()
	if buffer == nil {
		return nil, fmt.Errorf("camera: sample has no buffer")
	}

	caps := sample.GetCaps()
	if caps == nil {
		return nil, fmt.Errorf("camera: sample has no caps")
	}
	structure := caps.GetStructureAt(0)
	if structure == nil {
		return nil, fmt.Errorf("camera: caps have no structure")
	}

	widthVal, _ := structure.GetValue("width")
	heightVal, _ := structure.GetValue("height")
	w, ok := widthVal.(int)
	if !ok {
		return nil, fmt.Errorf("camera: caps missing width")
	}
	h, ok := heightVal.(int)
	if !ok {
		return nil, fmt.Errorf("camera: caps missing height")
	}

	mapInfo := buffer.Map(gst.MapRead)
	if mapInfo == nil {
		return nil, fmt.Errorf("camera: failed to map buffer")
	}
	defer buffer.Unmap()

	data := mapInfo.Bytes()
	buf := make([]byte, len(data))
	copy(buf, data)

	return &CapturedFrame{
		Width:     w,
		Height:    h,
		Format:    PixelFormatRGBA,
		Data:      buf,
		Timestamp: time.Now(),
	}, nil
}

// Stop tears the pipeline down.
func (s *GstSource) Stop() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	pipeline := s.pipeline
	s.pipeline = nil
	s.appsink = nil
	s.mu.Unlock()

	if pipeline != nil {
		pipeline.SetState(gst.StateNull)
		pipeline.Unref()
	}
	logger.WithComponent("gstreamer").Info().Msg("GStreamer pipeline stopped")
	return nil
}
