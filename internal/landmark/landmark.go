// Package landmark defines the per-frame landmark sets consumed by the pointer controller.
package landmark

import "math"

// Name identifies an anatomical point within a frame.
type Name string

// Hand landmark names.
const (
	Wrist     Name = "wrist"
	ThumbTip  Name = "thumb_tip"
	IndexTip  Name = "index_tip"
	MiddleTip Name = "middle_tip"
)

// Eye region landmark names used in gaze mode.
const (
	LeftEyeOuter   Name = "left_eye_outer"
	LeftEyeInner   Name = "left_eye_inner"
	LeftEyeTop     Name = "left_eye_top"
	LeftEyeBottom  Name = "left_eye_bottom"
	LeftIris       Name = "left_iris"
	RightEyeOuter  Name = "right_eye_outer"
	RightEyeInner  Name = "right_eye_inner"
	RightEyeTop    Name = "right_eye_top"
	RightEyeBottom Name = "right_eye_bottom"
	RightIris      Name = "right_iris"
)

// HandNames are the landmarks required for hand mode.
var HandNames = []Name{IndexTip, ThumbTip, MiddleTip}

// GazeNames are the landmarks required for gaze mode.
var GazeNames = []Name{
	LeftEyeOuter, LeftEyeInner, LeftEyeTop, LeftEyeBottom, LeftIris,
	RightEyeOuter, RightEyeInner, RightEyeTop, RightEyeBottom, RightIris,
}

// Point is a 2D coordinate. Landmarks use normalized image coordinates in [0,1].
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Frame is the set of landmarks observed in one camera frame.
// An empty or nil frame means tracking was lost.
type Frame map[Name]Point

// Get returns the named landmark and whether it is present.
func (f Frame) Get(n Name) (Point, bool) {
	p, ok := f[n]
	return p, ok
}

// Has reports whether every named landmark is present.
func (f Frame) Has(names ...Name) bool {
	for _, n := range names {
		if _, ok := f[n]; !ok {
			return false
		}
	}
	return true
}

// Empty reports whether the frame carries no landmarks.
func (f Frame) Empty() bool {
	return len(f) == 0
}
