package window

import "testing"

func TestOverlayGeometryTopRight(t *testing.T) {
	// Main window at (100, 50), 1000x800; 16:9 camera; 40% width, 20px margin.
	g := ComputeOverlayGeometry(100, 50, 1000, 800, 1280, 720, 0.4, 20)

	if g.Width != 400 {
		t.Errorf("width = %d, want 400 (40%% of 1000)", g.Width)
	}
	if g.Height != 225 {
		t.Errorf("height = %d, want 225 (400 / (1280/720))", g.Height)
	}
	// Right edge inset by the margin: 100 + 1000 - 400 - 20.
	if g.X != 680 {
		t.Errorf("x = %d, want 680", g.X)
	}
	if g.Y != 70 {
		t.Errorf("y = %d, want 70 (main y + margin)", g.Y)
	}
}

func TestOverlayGeometryFollowsCameraAspect(t *testing.T) {
	wide := ComputeOverlayGeometry(0, 0, 1000, 800, 1920, 1080, 0.4, 20)
	tall := ComputeOverlayGeometry(0, 0, 1000, 800, 480, 640, 0.4, 20)

	if wide.Width != tall.Width {
		t.Fatalf("width should not depend on camera aspect: %d vs %d", wide.Width, tall.Width)
	}
	if tall.Height <= wide.Height {
		t.Errorf("taller camera should yield taller overlay: wide=%d tall=%d", wide.Height, tall.Height)
	}
}

func TestOverlayGeometryNeverZeroSized(t *testing.T) {
	cases := []struct {
		name         string
		mainW, mainH int
		camW, camH   int
	}{
		{"tiny main window", 1, 1, 1280, 720},
		{"zero camera size", 1000, 800, 0, 0},
		{"zero main window", 0, 0, 1280, 720},
	}
	for _, tc := range cases {
		g := ComputeOverlayGeometry(0, 0, tc.mainW, tc.mainH, tc.camW, tc.camH, 0.4, 20)
		if g.Width < 1 || g.Height < 1 {
			t.Errorf("%s: geometry %dx%d, want at least 1x1", tc.name, g.Width, g.Height)
		}
	}
}

func TestOverlayGeometryZeroCameraUsesFallbackAspect(t *testing.T) {
	// With no camera dimensions yet, the overlay assumes 16:9 so it has
	// a sensible shape before the first frame arrives.
	g := ComputeOverlayGeometry(0, 0, 1000, 800, 0, 0, 0.4, 20)
	if g.Width != 400 || g.Height != 225 {
		t.Errorf("fallback geometry = %dx%d, want 400x225", g.Width, g.Height)
	}
}
