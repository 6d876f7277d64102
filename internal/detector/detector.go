package detector

import (
	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/landmark"
)

// Detector extracts landmarks from a camera frame.
type Detector interface {
	// Detect analyzes a frame. An empty Result means nothing was found.
	Detect(frame *gocv.Mat) (Result, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds detection options.
type Config struct {
	// Hands enables the hand landmarker.
	Hands bool
	// Face enables the face mesh with iris refinement.
	Face bool

	// MaxHands is the maximum number of hands to detect.
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64
}

// DefaultConfig tracks a single hand.
func DefaultConfig() Config {
	return Config{
		Hands:           true,
		MaxHands:        1,
		MinConfidence:   0.7,
		MinTrackingConf: 0.5,
	}
}

// GazeConfig tracks a single face with iris landmarks.
func GazeConfig() Config {
	return Config{
		Face:            true,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
	}
}

// Result holds everything found in one frame.
type Result struct {
	Hands []HandLandmarks `json:"hands"`
	Faces []FaceLandmarks `json:"faces"`
}

// HandFrame converts the most confident hand into a landmark frame. It
// returns an empty frame when no hand was found.
func (r Result) HandFrame() landmark.Frame {
	best := -1
	for i, h := range r.Hands {
		if best < 0 || h.Score > r.Hands[best].Score {
			best = i
		}
	}
	if best < 0 {
		return landmark.Frame{}
	}
	return r.Hands[best].Frame()
}

// GazeFrame converts the first face into a landmark frame. It returns an
// empty frame when no face with iris landmarks was found.
func (r Result) GazeFrame() landmark.Frame {
	for _, f := range r.Faces {
		if fr := f.Frame(); !fr.Empty() {
			return fr
		}
	}
	return landmark.Frame{}
}
