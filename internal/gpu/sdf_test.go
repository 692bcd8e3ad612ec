package gpu

import (
	"testing"
)

func TestMaskRadiusZeroAdmitsInterior(t *testing.T) {
	q := QuadUniform{Size: [2]float32{2, 2}, Aspect: 800.0 / 600.0, CornerRadius: 0}

	// With no rounding, every interior point is inside the mask
	// (negative distance) including points arbitrarily close to the
	// corners.
	for _, p := range [][2]float32{
		{0, 0}, {0.99, 0.99}, {-0.99, 0.99}, {0.99, -0.99}, {-0.99, -0.99},
		{0.999, 0}, {0, 0.999},
	} {
		if d := MaskDistance(q, p[0], p[1]); d >= 0 {
			t.Errorf("radius 0: local point %v has distance %v, want < 0 (inside)", p, d)
		}
	}
}

func TestMaskRadiusZeroRejectsExterior(t *testing.T) {
	q := QuadUniform{Size: [2]float32{2, 2}, Aspect: 1, CornerRadius: 0}

	for _, p := range [][2]float32{
		{1.01, 0}, {0, -1.01}, {1.01, 1.01},
	} {
		if d := MaskDistance(q, p[0], p[1]); d <= 0 {
			t.Errorf("radius 0: exterior point %v has distance %v, want > 0", p, d)
		}
	}
}

func TestMaskBoundaryIsZero(t *testing.T) {
	q := QuadUniform{Size: [2]float32{2, 2}, Aspect: 1, CornerRadius: 0}
	if d := MaskDistance(q, 1, 0); d != 0 {
		t.Errorf("edge midpoint distance = %v, want 0", d)
	}
}

func TestMaskRoundedCornerDiscards(t *testing.T) {
	// With rounding enabled the square corner itself falls outside the
	// mask while the edge midpoints stay inside.
	q := QuadUniform{Size: [2]float32{2, 2}, Aspect: 1, CornerRadius: 0.25}

	if d := MaskDistance(q, 0.999, 0.999); d <= 0 {
		t.Errorf("rounded corner: distance = %v at the square corner, want > 0 (discarded)", d)
	}
	if d := MaskDistance(q, 0.9, 0); d >= 0 {
		t.Errorf("rounded corner: edge midpoint distance = %v, want < 0 (kept)", d)
	}
}

func TestRoundedBoxSDFSymmetry(t *testing.T) {
	// The field must be symmetric in both axes.
	for _, p := range [][2]float32{{0.3, 0.7}, {0.9, 0.2}, {1.2, 1.2}} {
		d := RoundedBoxSDF(p[0], p[1], 1, 1, 0.2)
		for _, mirrored := range [][2]float32{{-p[0], p[1]}, {p[0], -p[1]}, {-p[0], -p[1]}} {
			if md := RoundedBoxSDF(mirrored[0], mirrored[1], 1, 1, 0.2); md != d {
				t.Errorf("SDF not symmetric: f(%v)=%v, f(%v)=%v", p, d, mirrored, md)
			}
		}
	}
}
