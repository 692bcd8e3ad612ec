package gpu

import (
	"encoding/binary"
	"math"
)

// QuadUniformSize is the wire size of the uniform buffer in bytes:
// two vec2<f32>, two f32 and 8 bytes of padding to satisfy 16-byte
// uniform alignment.
const QuadUniformSize = 32

// QuadUniform describes the camera quad handed to the shader each frame.
// Matches the WGSL QuadUniform struct layout exactly.
type QuadUniform struct {
	// Position is the quad center in normalized device coordinates [-1,1].
	Position [2]float32 // offset 0
	// Size is the quad extent in NDC units [0,2].
	Size [2]float32 // offset 8
	// CornerRadius is normalized to the quad half-extent, range [0,0.5].
	CornerRadius float32 // offset 16
	// Aspect is the width/height ratio of the quad.
	Aspect float32 // offset 20
	// 8 bytes padding to offset 32.
}

// Marshal serializes the uniform into the 32-byte little-endian layout
// the GPU expects. Padding bytes are zero.
func (q *QuadUniform) Marshal() []byte {
	buf := make([]byte, QuadUniformSize)
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(q.Position[0]))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(q.Position[1]))
	binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(q.Size[0]))
	binary.LittleEndian.PutUint32(buf[12:], math.Float32bits(q.Size[1]))
	binary.LittleEndian.PutUint32(buf[16:], math.Float32bits(q.CornerRadius))
	binary.LittleEndian.PutUint32(buf[20:], math.Float32bits(q.Aspect))
	return buf
}

// BackgroundQuad covers the entire window: full NDC range, square corners.
func BackgroundQuad(winWidth, winHeight uint32) QuadUniform {
	if winHeight == 0 {
		winHeight = 1
	}
	return QuadUniform{
		Position: [2]float32{0, 0},
		Size:     [2]float32{2, 2},
		Aspect:   float32(winWidth) / float32(winHeight),
	}
}

// ThumbnailQuad centers the camera image in the window at the camera's
// aspect ratio: fit to width when the camera is wider than the window,
// fit to height otherwise. The corner radius is given in pixels and
// normalized against the resulting quad.
func ThumbnailQuad(winWidth, winHeight uint32, camWidth, camHeight int, cornerRadiusPx float64) QuadUniform {
	if winWidth == 0 || winHeight == 0 || camWidth <= 0 || camHeight <= 0 {
		return BackgroundQuad(winWidth, winHeight)
	}

	camAspect := float32(camWidth) / float32(camHeight)
	winAspect := float32(winWidth) / float32(winHeight)

	var sizeX, sizeY float32
	if camAspect > winAspect {
		sizeX, sizeY = 2.0, 2.0/camAspect*winAspect
	} else {
		sizeX, sizeY = 2.0*camAspect/winAspect, 2.0
	}

	quadWPx := float64(sizeX) / 2 * float64(winWidth)
	quadHPx := float64(sizeY) / 2 * float64(winHeight)

	return QuadUniform{
		Position:     [2]float32{0, 0},
		Size:         [2]float32{sizeX, sizeY},
		CornerRadius: NormalizeRadius(cornerRadiusPx, quadWPx, quadHPx),
		Aspect:       camAspect,
	}
}

// NormalizeRadius converts a pixel corner radius into the shader's
// half-extent-relative value, clamped to the representable [0, 0.5].
func NormalizeRadius(radiusPx, quadWidthPx, quadHeightPx float64) float32 {
	if radiusPx <= 0 || quadWidthPx <= 0 || quadHeightPx <= 0 {
		return 0
	}
	halfExtent := math.Min(quadWidthPx, quadHeightPx) / 2
	r := radiusPx / halfExtent
	if r > 0.5 {
		r = 0.5
	}
	return float32(r)
}
