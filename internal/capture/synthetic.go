package capture

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// MovingSquare returns n frames of a white square sliding left to right
// across a black w x h image. Consecutive frames differ enough to keep an
// ActivityGate active. The caller closes the frames.
func MovingSquare(n, w, h int) []*gocv.Mat {
	side := h / 4
	if side < 1 {
		side = 1
	}
	step := 0
	if n > 1 {
		step = (w - side) / (n - 1)
	}

	frames := make([]*gocv.Mat, 0, n)
	for i := 0; i < n; i++ {
		m := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3)
		x := i * step
		y := (h - side) / 2
		gocv.Rectangle(&m, image.Rect(x, y, x+side, y+side), color.RGBA{R: 255, G: 255, B: 255, A: 255}, -1)
		frames = append(frames, &m)
	}
	return frames
}

// CloseAll releases every frame.
func CloseAll(frames []*gocv.Mat) {
	for _, f := range frames {
		f.Close()
	}
}
