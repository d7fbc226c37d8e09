package tray

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
)

// Tray icons are generated at startup rather than embedded: a filled
// circle reads fine at 16-22px and keeps the binary asset-free.
var (
	IconActive = renderIcon(color.RGBA{70, 130, 220, 255})
	IconPaused = renderIcon(color.RGBA{128, 128, 128, 255})
)

func renderIcon(c color.RGBA) []byte {
	const size = 64
	img := image.NewRGBA(image.Rect(0, 0, size, size))

	centerX, centerY := size/2, size/2
	radius := 24.0
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx := float64(x - centerX)
			dy := float64(y - centerY)
			if dx*dx+dy*dy <= radius*radius {
				img.Set(x, y, c)
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err) // static input, cannot fail
	}
	return buf.Bytes()
}
