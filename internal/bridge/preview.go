package bridge

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"time"

	"golang.org/x/image/draw"

	"github.com/bryanchriswhite/CamLayer/internal/camera"
	"github.com/bryanchriswhite/CamLayer/internal/logger"
)

const (
	// previewMaxWidth caps the streamed resolution; the preview is a
	// monitoring aid, not the presentation path.
	previewMaxWidth = 640

	previewInterval = 66 * time.Millisecond // ~15 FPS
	previewQuality  = 80
)

// FrameSource hands out the most recently presented frame. Implemented
// by the render loop; frames are immutable once returned.
type FrameSource interface {
	LatestFrame() *camera.DecodedFrame
}

// Preview streams downscaled camera frames as Motion JPEG over HTTP.
// Lets users check what the camera sees from a browser tab without
// looking at the overlay itself.
type Preview struct {
	source FrameSource
}

// NewPreview creates an MJPEG preview over the frame source.
func NewPreview(source FrameSource) *Preview {
	return &Preview{source: source}
}

// Handler returns the MJPEG streaming handler.
func (p *Preview) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.WithComponent("preview")

		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Connection", "close")

		log.Info().Str("remote", r.RemoteAddr).Msg("Preview client connected")
		defer log.Info().Str("remote", r.RemoteAddr).Msg("Preview client disconnected")

		ticker := time.NewTicker(previewInterval)
		defer ticker.Stop()

		var lastSent time.Time
		for {
			select {
			case <-r.Context().Done():
				return
			case <-ticker.C:
			}

			frame := p.source.LatestFrame()
			if frame == nil || !frame.Timestamp.After(lastSent) {
				continue
			}
			lastSent = frame.Timestamp

			jpegData, err := encodePreview(frame)
			if err != nil {
				log.Warn().Err(err).Msg("Failed to encode preview frame")
				continue
			}

			if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(jpegData)); err != nil {
				return
			}
			if _, err := w.Write(jpegData); err != nil {
				return
			}
			if _, err := fmt.Fprintf(w, "\r\n"); err != nil {
				return
			}
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}
	}
}

// encodePreview downscales the frame to the preview width and encodes it
// as JPEG.
func encodePreview(f *camera.DecodedFrame) ([]byte, error) {
	img := frameImage(f)
	scaled := scaleRGBA(img, previewMaxWidth)

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, scaled, &jpeg.Options{Quality: previewQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// frameImage wraps the decoded frame bytes as an image without copying.
// The frame must not be mutated afterwards.
func frameImage(f *camera.DecodedFrame) *image.RGBA {
	return &image.RGBA{
		Pix:    f.Data,
		Stride: 4 * f.Width,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
}

// scaleRGBA shrinks src to at most maxWidth, preserving aspect. Frames
// already small enough pass through untouched.
func scaleRGBA(src *image.RGBA, maxWidth int) *image.RGBA {
	b := src.Bounds()
	if b.Dx() <= maxWidth || b.Dx() == 0 {
		return src
	}

	h := b.Dy() * maxWidth / b.Dx()
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}
