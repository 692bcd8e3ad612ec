package gpu

import (
	"encoding/binary"
	"math"
	"testing"
)

const epsilon = 1e-6

func floatAt(buf []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))
}

func TestQuadUniformMarshalLayout(t *testing.T) {
	q := QuadUniform{
		Position:     [2]float32{0.25, -0.5},
		Size:         [2]float32{1.5, 2.0},
		CornerRadius: 0.125,
		Aspect:       1.75,
	}

	buf := q.Marshal()
	if len(buf) != QuadUniformSize {
		t.Fatalf("Marshal() returned %d bytes, want %d", len(buf), QuadUniformSize)
	}

	checks := []struct {
		off  int
		want float32
	}{
		{0, 0.25}, {4, -0.5}, {8, 1.5}, {12, 2.0}, {16, 0.125}, {20, 1.75},
	}
	for _, c := range checks {
		if got := floatAt(buf, c.off); got != c.want {
			t.Errorf("float at offset %d = %v, want %v", c.off, got, c.want)
		}
	}

	// The trailing 8 padding bytes must be zero.
	for i := 24; i < 32; i++ {
		if buf[i] != 0 {
			t.Errorf("padding byte %d = %d, want 0", i, buf[i])
		}
	}
}

func TestBackgroundQuadCoversNDC(t *testing.T) {
	q := BackgroundQuad(800, 600)

	if q.Position[0] != 0 || q.Position[1] != 0 {
		t.Errorf("position = %v, want centered (0,0)", q.Position)
	}
	if q.Size[0] != 2 || q.Size[1] != 2 {
		t.Errorf("size = %v, want full NDC coverage (2,2)", q.Size)
	}
	if want := float32(800.0 / 600.0); math.Abs(float64(q.Aspect-want)) > epsilon {
		t.Errorf("aspect = %v, want %v", q.Aspect, want)
	}
	if q.CornerRadius != 0 {
		t.Errorf("corner radius = %v, want 0 for background mode", q.CornerRadius)
	}
}

func TestThumbnailQuadFitsCameraAspect(t *testing.T) {
	// Camera wider than window: fit to width.
	q := ThumbnailQuad(400, 400, 1600, 900, 0)
	if q.Size[0] != 2 {
		t.Errorf("wide camera: size.x = %v, want 2 (fit to width)", q.Size[0])
	}
	if q.Size[1] >= 2 {
		t.Errorf("wide camera: size.y = %v, want < 2", q.Size[1])
	}

	// Camera taller than window: fit to height.
	q = ThumbnailQuad(1000, 500, 480, 640, 0)
	if q.Size[1] != 2 {
		t.Errorf("tall camera: size.y = %v, want 2 (fit to height)", q.Size[1])
	}
	if q.Size[0] >= 2 {
		t.Errorf("tall camera: size.x = %v, want < 2", q.Size[0])
	}

	// Aspect of the quad follows the camera, not the window.
	want := float32(480.0 / 640.0)
	if math.Abs(float64(q.Aspect-want)) > epsilon {
		t.Errorf("aspect = %v, want camera aspect %v", q.Aspect, want)
	}
}

func TestNormalizeRadiusClamp(t *testing.T) {
	if r := NormalizeRadius(0, 400, 300); r != 0 {
		t.Errorf("zero radius normalized to %v, want 0", r)
	}
	// 12px against a 400x300 quad: half-extent 150, so 12/150.
	if r, want := NormalizeRadius(12, 400, 300), float32(12.0/150.0); math.Abs(float64(r-want)) > epsilon {
		t.Errorf("NormalizeRadius(12, 400, 300) = %v, want %v", r, want)
	}
	// An absurdly large pixel radius clamps to the representable maximum.
	if r := NormalizeRadius(10000, 400, 300); r != 0.5 {
		t.Errorf("oversized radius normalized to %v, want clamp at 0.5", r)
	}
}

func TestThumbnailQuadDegenerateInputs(t *testing.T) {
	// Zero-sized window or camera must not produce NaN geometry.
	q := ThumbnailQuad(0, 0, 640, 480, 12)
	if math.IsNaN(float64(q.Aspect)) || math.IsNaN(float64(q.Size[0])) {
		t.Error("degenerate window produced NaN geometry")
	}
	q = ThumbnailQuad(800, 600, 0, 0, 12)
	if math.IsNaN(float64(q.Aspect)) || math.IsNaN(float64(q.Size[0])) {
		t.Error("degenerate camera produced NaN geometry")
	}
}
