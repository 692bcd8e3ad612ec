package camera

import (
	"fmt"
)

// Convert turns a captured frame into an RGBA frame, dispatching on the
// format tag the device actually reported. It is a pure function: same
// input, same output, no retained state.
//
// A malformed frame (buffer length not matching the declared format)
// returns an error so the caller can drop it without stopping the
// pipeline.
//
// YUV conversion runs on the CPU once per frame. Keeping this behind the
// CapturedFrame/DecodedFrame boundary means a shader-side conversion can
// replace it later without touching the channel or mode control.
func Convert(f *CapturedFrame) (*DecodedFrame, error) {
	want, err := f.Format.FrameSize(f.Width, f.Height)
	if err != nil {
		return nil, err
	}
	if len(f.Data) != want {
		return nil, fmt.Errorf("camera: malformed %s frame: got %d bytes, want %d for %dx%d",
			f.Format, len(f.Data), want, f.Width, f.Height)
	}

	// Packed 4:2:2 carries two pixels per chroma group; an odd pixel
	// count would read past the final group.
	if f.Format == PixelFormatYUYV || f.Format == PixelFormatUYVY {
		if (f.Width*f.Height)%2 != 0 {
			return nil, fmt.Errorf("camera: malformed %s frame: odd pixel count %dx%d",
				f.Format, f.Width, f.Height)
		}
	}

	out := &DecodedFrame{
		Width:     f.Width,
		Height:    f.Height,
		Timestamp: f.Timestamp,
	}

	switch f.Format {
	case PixelFormatYUYV:
		out.Data = packedYUVToRGBA(f.Data, f.Width, f.Height, 0, 1, 2, 3)
	case PixelFormatUYVY:
		out.Data = packedYUVToRGBA(f.Data, f.Width, f.Height, 1, 0, 3, 2)
	case PixelFormatRGBA:
		out.Data = make([]byte, want)
		copy(out.Data, f.Data)
	default:
		return nil, fmt.Errorf("camera: unsupported pixel format %s", f.Format)
	}

	return out, nil
}

// packedYUVToRGBA converts packed 4:2:2 YUV to RGBA using BT.601 integer
// math. Each 4-byte group carries two pixels sharing one chroma pair; the
// offsets select where Y0, U, Y1 and V sit within the group, which is the
// only difference between YUYV and UYVY.
func packedYUVToRGBA(src []byte, width, height int, y0Off, uOff, y1Off, vOff int) []byte {
	dst := make([]byte, width*height*4)

	for i := 0; i < width*height; i++ {
		group := (i / 2) * 4
		var y byte
		if i%2 == 0 {
			y = src[group+y0Off]
		} else {
			y = src[group+y1Off]
		}
		u := src[group+uOff]
		v := src[group+vOff]

		c := int32(y) - 16
		d := int32(u) - 128
		e := int32(v) - 128

		r := (298*c + 409*e + 128) >> 8
		g := (298*c - 100*d - 208*e + 128) >> 8
		b := (298*c + 516*d + 128) >> 8

		o := i * 4
		dst[o] = clampByte(r)
		dst[o+1] = clampByte(g)
		dst[o+2] = clampByte(b)
		dst[o+3] = 255
	}

	return dst
}

func clampByte(v int32) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}
