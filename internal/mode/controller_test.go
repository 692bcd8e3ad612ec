package mode

import (
	"errors"
	"sync"
	"testing"
)

// inlineDispatcher runs the closure immediately on the calling goroutine,
// standing in for the render loop.
type inlineDispatcher struct {
	calls int
}

func (d *inlineDispatcher) Dispatch(fn func() error) error {
	d.calls++
	return fn()
}

// fakeStage records transitions and can be scripted to fail.
type fakeStage struct {
	mu             sync.Mutex
	background     int
	thumbnail      int
	failBackground error
	failThumbnail  error
}

func (s *fakeStage) EnterBackground() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failBackground != nil {
		return s.failBackground
	}
	s.background++
	return nil
}

func (s *fakeStage) EnterThumbnail() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failThumbnail != nil {
		return s.failThumbnail
	}
	s.thumbnail++
	return nil
}

func TestControllerStartsInThumbnail(t *testing.T) {
	c := NewController(&fakeStage{}, &inlineDispatcher{})
	if got := c.Current(); got != ModeThumbnail {
		t.Fatalf("initial mode = %v, want %v", got, ModeThumbnail)
	}
}

func TestToggleRoundTrip(t *testing.T) {
	stage := &fakeStage{}
	disp := &inlineDispatcher{}
	c := NewController(stage, disp)

	m, err := c.Toggle()
	if err != nil {
		t.Fatalf("first toggle: %v", err)
	}
	if m != ModeBackground || c.Current() != ModeBackground {
		t.Fatalf("after first toggle mode = %v, want %v", m, ModeBackground)
	}

	m, err = c.Toggle()
	if err != nil {
		t.Fatalf("second toggle: %v", err)
	}
	if m != ModeThumbnail || c.Current() != ModeThumbnail {
		t.Fatalf("after second toggle mode = %v, want %v", m, ModeThumbnail)
	}

	if stage.background != 1 || stage.thumbnail != 1 {
		t.Errorf("stage calls background=%d thumbnail=%d, want 1 and 1",
			stage.background, stage.thumbnail)
	}
	if disp.calls != 2 {
		t.Errorf("dispatcher calls = %d, want 2 (every transition dispatched)", disp.calls)
	}
}

func TestToggleFailureKeepsCurrentMode(t *testing.T) {
	boom := errors.New("surface lost")
	stage := &fakeStage{failBackground: boom}
	c := NewController(stage, &inlineDispatcher{})

	m, err := c.Toggle()
	if err == nil {
		t.Fatal("expected toggle to fail")
	}
	if !errors.Is(err, boom) {
		t.Errorf("error = %v, want wrapped %v", err, boom)
	}
	if m != ModeThumbnail || c.Current() != ModeThumbnail {
		t.Errorf("mode after failed toggle = %v, want unchanged %v", m, ModeThumbnail)
	}

	// Clearing the fault lets the next toggle succeed.
	stage.mu.Lock()
	stage.failBackground = nil
	stage.mu.Unlock()
	if m, err = c.Toggle(); err != nil || m != ModeBackground {
		t.Errorf("retry toggle = (%v, %v), want (%v, nil)", m, err, ModeBackground)
	}
}

func TestOnChangeFiresOnSuccessOnly(t *testing.T) {
	stage := &fakeStage{failBackground: errors.New("nope")}
	c := NewController(stage, &inlineDispatcher{})

	var seen []Mode
	c.OnChange(func(m Mode) { seen = append(seen, m) })

	if _, err := c.Toggle(); err == nil {
		t.Fatal("expected toggle to fail")
	}
	if len(seen) != 0 {
		t.Fatalf("callback fired on failed transition: %v", seen)
	}

	stage.mu.Lock()
	stage.failBackground = nil
	stage.mu.Unlock()
	if _, err := c.Toggle(); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 1 || seen[0] != ModeBackground {
		t.Fatalf("callback saw %v, want [%v]", seen, ModeBackground)
	}
}

func TestConcurrentTogglesStayConsistent(t *testing.T) {
	stage := &fakeStage{}
	c := NewController(stage, &inlineDispatcher{})

	const n = 100
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if _, err := c.Toggle(); err != nil {
				t.Errorf("toggle: %v", err)
			}
		}()
	}
	wg.Wait()

	// An even number of successful toggles lands back where it started.
	if got := c.Current(); got != ModeThumbnail {
		t.Errorf("after %d toggles mode = %v, want %v", n, got, ModeThumbnail)
	}
	if stage.background != n/2 || stage.thumbnail != n/2 {
		t.Errorf("stage calls background=%d thumbnail=%d, want %d each",
			stage.background, stage.thumbnail, n/2)
	}
}

func TestModeStringAndIsBackground(t *testing.T) {
	if ModeThumbnail.String() != "thumbnail" || ModeBackground.String() != "background" {
		t.Error("unexpected mode names")
	}
	if ModeThumbnail.IsBackground() || !ModeBackground.IsBackground() {
		t.Error("IsBackground mismatch")
	}
}
