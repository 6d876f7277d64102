package landmark

// minEyeExtent guards against collapsed eye contours.
const minEyeExtent = 1e-6

// eyeRatio locates the iris within the eye opening as a fraction of its
// width and height. The outer corner maps to x=0 and the top lid to y=0.
func eyeRatio(f Frame, outer, inner, top, bottom, iris Name) (Point, bool) {
	if !f.Has(outer, inner, top, bottom, iris) {
		return Point{}, false
	}
	o, in, t, b, c := f[outer], f[inner], f[top], f[bottom], f[iris]

	width := in.X - o.X
	height := b.Y - t.Y
	if abs(width) < minEyeExtent || abs(height) < minEyeExtent {
		return Point{}, false
	}

	return Point{
		X: (c.X - o.X) / width,
		Y: (c.Y - t.Y) / height,
	}, true
}

// GazeRatio averages the iris position of both eyes. It returns false when
// either eye is missing or degenerate.
func GazeRatio(f Frame) (Point, bool) {
	left, ok := eyeRatio(f, LeftEyeOuter, LeftEyeInner, LeftEyeTop, LeftEyeBottom, LeftIris)
	if !ok {
		return Point{}, false
	}
	right, ok := eyeRatio(f, RightEyeOuter, RightEyeInner, RightEyeTop, RightEyeBottom, RightIris)
	if !ok {
		return Point{}, false
	}

	// The outer corners sit on opposite sides of the face, so the right eye's
	// horizontal ratio runs the other way.
	return Point{
		X: (left.X + (1 - right.X)) / 2,
		Y: (left.Y + right.Y) / 2,
	}, true
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
