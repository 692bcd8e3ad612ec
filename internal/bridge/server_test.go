package bridge

import (
	"encoding/json"
	"errors"
	"image"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bryanchriswhite/CamLayer/internal/camera"
	"github.com/bryanchriswhite/CamLayer/internal/mode"
)

// fakeController flips modes in memory without touching any GPU state.
type fakeController struct {
	current   mode.Mode
	toggleErr error
	onChange  []func(mode.Mode)
}

func (c *fakeController) Toggle() (mode.Mode, error) {
	if c.toggleErr != nil {
		return c.current, c.toggleErr
	}
	if c.current == mode.ModeThumbnail {
		c.current = mode.ModeBackground
	} else {
		c.current = mode.ModeThumbnail
	}
	for _, fn := range c.onChange {
		fn(c.current)
	}
	return c.current, nil
}

func (c *fakeController) Current() mode.Mode {
	return c.current
}

func (c *fakeController) OnChange(fn func(mode.Mode)) {
	c.onChange = append(c.onChange, fn)
}

func decodeMode(t *testing.T, resp *http.Response) modeResponse {
	t.Helper()
	var m modeResponse
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return m
}

func TestToggleFlipsMode(t *testing.T) {
	ctrl := &fakeController{}
	srv := httptest.NewServer(NewServer(ctrl, nil).Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/camera/toggle", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	m := decodeMode(t, resp)
	if !m.Background || m.Mode != "background" {
		t.Errorf("toggle response = %+v, want background", m)
	}
	if ctrl.current != mode.ModeBackground {
		t.Errorf("controller mode = %v, want %v", ctrl.current, mode.ModeBackground)
	}
}

func TestToggleFailureReportsErrorAndKeepsMode(t *testing.T) {
	ctrl := &fakeController{toggleErr: errors.New("surface lost")}
	srv := httptest.NewServer(NewServer(ctrl, nil).Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/camera/toggle", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	if ctrl.current != mode.ModeThumbnail {
		t.Errorf("controller mode = %v, want unchanged %v", ctrl.current, mode.ModeThumbnail)
	}
}

func TestModeQueryIsSideEffectFree(t *testing.T) {
	ctrl := &fakeController{}
	srv := httptest.NewServer(NewServer(ctrl, nil).Handler())
	defer srv.Close()

	for i := 0; i < 3; i++ {
		resp, err := http.Get(srv.URL + "/api/camera/mode")
		if err != nil {
			t.Fatal(err)
		}
		m := decodeMode(t, resp)
		resp.Body.Close()

		if m.Background || m.Mode != "thumbnail" {
			t.Fatalf("query %d = %+v, want thumbnail", i, m)
		}
	}
	if ctrl.current != mode.ModeThumbnail {
		t.Errorf("mode query mutated controller state: %v", ctrl.current)
	}
}

func TestModeQueryOnlyAcceptsGET(t *testing.T) {
	srv := httptest.NewServer(NewServer(&fakeController{}, nil).Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/camera/mode", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := httptest.NewServer(NewServer(&fakeController{}, nil).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "healthy" {
		t.Errorf("health status = %q, want healthy", body["status"])
	}
}

type staticFrameSource struct {
	frame *camera.DecodedFrame
}

func (s *staticFrameSource) LatestFrame() *camera.DecodedFrame {
	return s.frame
}

func TestPreviewStreamsAFrame(t *testing.T) {
	const w, h = 32, 24
	frame := &camera.DecodedFrame{
		Width:     w,
		Height:    h,
		Data:      make([]byte, w*h*4),
		Timestamp: time.Now(),
	}
	for i := 3; i < len(frame.Data); i += 4 {
		frame.Data[i] = 255
	}

	preview := NewPreview(&staticFrameSource{frame: frame})
	srv := httptest.NewServer(NewServer(&fakeController{}, preview).Handler())
	defer srv.Close()

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(srv.URL + "/api/camera/stream")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "multipart/x-mixed-replace; boundary=frame" {
		t.Fatalf("content type = %q", ct)
	}

	// Read enough to cover the first multipart chunk header.
	buf := make([]byte, 64)
	if _, err := resp.Body.Read(buf); err != nil {
		t.Fatalf("failed to read stream: %v", err)
	}
	if got := string(buf[:7]); got != "--frame" {
		t.Errorf("stream starts with %q, want multipart boundary", got)
	}
}

func TestScaleRGBACapsWidth(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 1280, 720))
	dst := scaleRGBA(src, 640)

	if dst.Bounds().Dx() != 640 {
		t.Errorf("scaled width = %d, want 640", dst.Bounds().Dx())
	}
	if dst.Bounds().Dy() != 360 {
		t.Errorf("scaled height = %d, want 360 (aspect preserved)", dst.Bounds().Dy())
	}

	// Frames already below the cap pass through untouched.
	small := image.NewRGBA(image.Rect(0, 0, 320, 240))
	if out := scaleRGBA(small, 640); out != small {
		t.Error("small frame should not be rescaled")
	}
}
