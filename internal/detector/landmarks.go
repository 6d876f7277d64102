// Package detector finds hand and face landmarks in camera frames and turns
// them into the named points the controller consumes.
package detector

import "github.com/ayusman/mudra/internal/landmark"

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbTip     = 4
	IndexMCP     = 5
	IndexTip     = 8
	MiddleMCP    = 9
	MiddleTip    = 12
	NumLandmarks = 21
)

// Face mesh indices with refine_landmarks enabled. "Left" and "right" are
// the subject's, so the right eye appears on the left of an unmirrored image.
const (
	FaceRightEyeOuter  = 33
	FaceRightEyeInner  = 133
	FaceRightEyeTop    = 159
	FaceRightEyeBottom = 145
	FaceLeftEyeOuter   = 263
	FaceLeftEyeInner   = 362
	FaceLeftEyeTop     = 386
	FaceLeftEyeBottom  = 374
	FaceRightIris      = 468
	FaceLeftIris       = 473
	// NumFaceLandmarks is the mesh size including the ten iris points.
	NumFaceLandmarks = 478
)

// Point3D is a normalized image coordinate with relative depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

var handNames = map[landmark.Name]int{
	landmark.Wrist:     Wrist,
	landmark.ThumbTip:  ThumbTip,
	landmark.IndexTip:  IndexTip,
	landmark.MiddleTip: MiddleTip,
}

// Frame returns the named hand points.
func (h HandLandmarks) Frame() landmark.Frame {
	f := make(landmark.Frame, len(handNames))
	for name, idx := range handNames {
		p := h.Points[idx]
		f[name] = landmark.Point{X: p.X, Y: p.Y}
	}
	return f
}

// FaceLandmarks is a face mesh. Points is empty or NumFaceLandmarks long.
type FaceLandmarks struct {
	Points []Point3D `json:"points"`
	Score  float64   `json:"score"`
}

var faceNames = map[landmark.Name]int{
	landmark.LeftEyeOuter:   FaceLeftEyeOuter,
	landmark.LeftEyeInner:   FaceLeftEyeInner,
	landmark.LeftEyeTop:     FaceLeftEyeTop,
	landmark.LeftEyeBottom:  FaceLeftEyeBottom,
	landmark.LeftIris:       FaceLeftIris,
	landmark.RightEyeOuter:  FaceRightEyeOuter,
	landmark.RightEyeInner:  FaceRightEyeInner,
	landmark.RightEyeTop:    FaceRightEyeTop,
	landmark.RightEyeBottom: FaceRightEyeBottom,
	landmark.RightIris:      FaceRightIris,
}

// Frame returns the named eye points. A mesh without iris refinement yields
// an empty frame.
func (f FaceLandmarks) Frame() landmark.Frame {
	if len(f.Points) < NumFaceLandmarks {
		return landmark.Frame{}
	}
	fr := make(landmark.Frame, len(faceNames))
	for name, idx := range faceNames {
		p := f.Points[idx]
		fr[name] = landmark.Point{X: p.X, Y: p.Y}
	}
	return fr
}
