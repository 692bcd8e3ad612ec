package camera

import (
	"errors"
	"testing"
	"time"
)

// scriptedSource replays a fixed list of frames, then returns errAfter
// (or blocks until Stop when errAfter is nil).
type scriptedSource struct {
	frames   []*CapturedFrame
	errAfter error

	i       int
	stopped chan struct{}
}

func newScriptedSource(frames []*CapturedFrame, errAfter error) *scriptedSource {
	return &scriptedSource{frames: frames, errAfter: errAfter, stopped: make(chan struct{})}
}

func (s *scriptedSource) Open() error  { return nil }
func (s *scriptedSource) Start() error { return nil }
func (s *scriptedSource) Name() string { return "scripted" }

func (s *scriptedSource) ReadFrame() (*CapturedFrame, error) {
	if s.i < len(s.frames) {
		f := s.frames[s.i]
		s.i++
		return f, nil
	}
	if s.errAfter != nil {
		return nil, s.errAfter
	}
	<-s.stopped
	return nil, ErrDeviceClosed
}

func (s *scriptedSource) Stop() error {
	select {
	case <-s.stopped:
	default:
		close(s.stopped)
	}
	return nil
}

func validYUYV(tag byte) *CapturedFrame {
	data := yuyvFill(2, 2, 128, 128, 128)
	data[0] = tag
	return &CapturedFrame{Width: 2, Height: 2, Format: PixelFormatYUYV, Data: data, Timestamp: time.Now()}
}

func waitDone(t *testing.T, w *Worker) {
	t.Helper()
	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not finish in time")
	}
}

func TestWorkerPublishesConvertedFrames(t *testing.T) {
	src := newScriptedSource([]*CapturedFrame{validYUYV(1), validYUYV(2)}, errors.New("disconnected"))
	mb := NewMailbox()
	w := NewWorker(src, mb)

	if err := w.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	waitDone(t, w)

	f := mb.TryTake()
	if f == nil {
		t.Fatal("no frame published")
	}
	if got, want := len(f.Data), 2*2*4; got != want {
		t.Errorf("published frame has %d bytes, want %d", got, want)
	}
}

func TestWorkerDeviceErrorIsTerminal(t *testing.T) {
	devErr := errors.New("camera unplugged")
	src := newScriptedSource(nil, devErr)
	w := NewWorker(src, NewMailbox())

	if err := w.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	waitDone(t, w)

	if !errors.Is(w.Err(), devErr) {
		t.Errorf("Err() = %v, want %v", w.Err(), devErr)
	}
}

func TestWorkerDropsMalformedFrameAndContinues(t *testing.T) {
	malformed := &CapturedFrame{Width: 2, Height: 2, Format: PixelFormatYUYV, Data: []byte{1, 2, 3}}
	src := newScriptedSource([]*CapturedFrame{malformed, validYUYV(7)}, errors.New("end"))
	mb := NewMailbox()
	w := NewWorker(src, mb)

	if err := w.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	waitDone(t, w)

	// The malformed frame is dropped locally; the valid one still arrives.
	f := mb.TryTake()
	if f == nil {
		t.Fatal("valid frame after a malformed one was not published")
	}
}

func TestWorkerStopJoins(t *testing.T) {
	src := newScriptedSource(nil, nil) // blocks until Stop
	w := NewWorker(src, NewMailbox())

	if err := w.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() did not join the capture goroutine")
	}

	if w.Err() != nil {
		t.Errorf("Err() = %v after clean Stop, want nil", w.Err())
	}
}
