package window

// OverlayGeometry is the screen placement of the camera overlay window.
type OverlayGeometry struct {
	X      int
	Y      int
	Width  int
	Height int
}

// ComputeOverlayGeometry places the overlay in the top-right corner of
// the main window: width is a fraction of the main window width, height
// follows the camera aspect ratio, inset by marginPx on both axes.
// Degenerate inputs collapse to a 1x1 window rather than a zero-sized
// one, which windowing systems reject.
func ComputeOverlayGeometry(mainX, mainY, mainWidth, mainHeight int, camWidth, camHeight int, sizeFraction float64, marginPx int) OverlayGeometry {
	width := int(float64(mainWidth) * sizeFraction)

	camAspect := 16.0 / 9.0
	if camWidth > 0 && camHeight > 0 {
		camAspect = float64(camWidth) / float64(camHeight)
	}
	height := int(float64(width) / camAspect)

	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}

	return OverlayGeometry{
		X:      mainX + mainWidth - width - marginPx,
		Y:      mainY + marginPx,
		Width:  width,
		Height: height,
	}
}
