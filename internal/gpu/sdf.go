package gpu

import "math"

// RoundedBoxSDF is the signed distance from point p to a rounded
// rectangle with half-extents b and corner radius r. Negative inside,
// positive outside, zero on the edge. This is the CPU mirror of the
// fragment shader's mask; the two must stay in sync.
func RoundedBoxSDF(px, py, bx, by, r float32) float32 {
	qx := abs32(px) - bx + r
	qy := abs32(py) - by + r
	outside := float32(math.Hypot(float64(max32(qx, 0)), float64(max32(qy, 0))))
	inside := min32(max32(qx, qy), 0)
	return outside + inside - r
}

// MaskDistance evaluates the quad mask at quad-local coordinates
// (lx, ly) in [-1,1], using the same aspect-corrected space as the
// shader so corners stay circular regardless of quad shape.
func MaskDistance(q QuadUniform, lx, ly float32) float32 {
	bx, by := q.Aspect, float32(1)
	px, py := lx*q.Aspect, ly
	r := q.CornerRadius * 2 * min32(bx, by)
	return RoundedBoxSDF(px, py, bx, by, r)
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
