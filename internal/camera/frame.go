package camera

import (
	"fmt"
	"time"
)

// PixelFormat identifies the pixel layout of a captured frame. The values
// are V4L2 fourcc codes so the tag reported by the device can be used
// directly without a translation table.
type PixelFormat uint32

const (
	// PixelFormatYUYV is packed YUV 4:2:2, two luma samples sharing one
	// chroma pair (Y0 U Y1 V). 2 bytes per pixel.
	PixelFormatYUYV PixelFormat = 0x56595559 // 'YUYV'

	// PixelFormatUYVY is packed YUV 4:2:2 with swapped ordering (U Y0 V Y1).
	PixelFormatUYVY PixelFormat = 0x59565955 // 'UYVY'

	// PixelFormatRGBA is 4 bytes per pixel R G B A, no padding.
	PixelFormatRGBA PixelFormat = 0x34324241 // 'AB24'
)

func (f PixelFormat) String() string {
	switch f {
	case PixelFormatYUYV:
		return "YUYV"
	case PixelFormatUYVY:
		return "UYVY"
	case PixelFormatRGBA:
		return "RGBA"
	default:
		return fmt.Sprintf("fourcc(0x%08x)", uint32(f))
	}
}

// FrameSize returns the expected buffer length for a frame of the given
// dimensions in this format, or an error for an unsupported format.
func (f PixelFormat) FrameSize(width, height int) (int, error) {
	switch f {
	case PixelFormatYUYV, PixelFormatUYVY:
		return width * height * 2, nil
	case PixelFormatRGBA:
		return width * height * 4, nil
	default:
		return 0, fmt.Errorf("camera: unsupported pixel format %s", f)
	}
}

// CapturedFrame is a raw frame as delivered by the device. The buffer is
// owned by the frame; sources must copy out of driver-owned memory before
// handing a frame over.
type CapturedFrame struct {
	Width     int
	Height    int
	Format    PixelFormat
	Data      []byte
	Timestamp time.Time
}

// DecodedFrame is an RGBA frame ready for GPU upload.
// Invariant: len(Data) == Width*Height*4, row-major, no padding.
// Data must not be modified after the frame is published to a Mailbox.
type DecodedFrame struct {
	Width     int
	Height    int
	Data      []byte
	Timestamp time.Time
}
