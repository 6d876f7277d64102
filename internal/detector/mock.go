package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector returns preset results. Queued results are consumed one per
// call before falling back to the fixed result.
type MockDetector struct {
	mu     sync.Mutex
	result Result
	queue  []Result
	err    error
	calls  int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetResult sets the result returned once the queue is empty.
func (m *MockDetector) SetResult(r Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.result = r
}

// Queue appends results to be returned in order.
func (m *MockDetector) Queue(rs ...Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, rs...)
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockDetector) Detect(frame *gocv.Mat) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return Result{}, m.err
	}
	if len(m.queue) > 0 {
		r := m.queue[0]
		m.queue = m.queue[1:]
		return r, nil
	}
	return m.result, nil
}

// Calls returns the number of Detect calls.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockDetector) Close() error {
	return nil
}

// PointingHand returns a hand with the index tip at (x, y) and the thumb
// well clear of it.
func PointingHand(x, y float64) HandLandmarks {
	h := HandLandmarks{Handedness: "Right", Score: 0.95}
	h.Points[Wrist] = Point3D{X: x, Y: y + 0.3}
	h.Points[IndexMCP] = Point3D{X: x, Y: y + 0.15}
	h.Points[IndexTip] = Point3D{X: x, Y: y}
	h.Points[MiddleMCP] = Point3D{X: x - 0.03, Y: y + 0.15}
	h.Points[MiddleTip] = Point3D{X: x - 0.04, Y: y + 0.12}
	h.Points[ThumbTip] = Point3D{X: x + 0.12, Y: y + 0.15}
	return h
}

// PinchingHand returns PointingHand with the thumb touching the index tip.
func PinchingHand(x, y float64) HandLandmarks {
	h := PointingHand(x, y)
	h.Points[ThumbTip] = Point3D{X: x + 0.01, Y: y}
	return h
}

// LookingFace returns a face mesh whose gaze ratio is (gx, gy).
func LookingFace(gx, gy float64) FaceLandmarks {
	pts := make([]Point3D, NumFaceLandmarks)
	// Unmirrored image: the subject's right eye is on the left.
	pts[FaceRightEyeOuter] = Point3D{X: 0.30, Y: 0.40}
	pts[FaceRightEyeInner] = Point3D{X: 0.40, Y: 0.40}
	pts[FaceRightEyeTop] = Point3D{X: 0.35, Y: 0.38}
	pts[FaceRightEyeBottom] = Point3D{X: 0.35, Y: 0.42}
	pts[FaceRightIris] = Point3D{X: 0.40 - 0.10*gx, Y: 0.38 + 0.04*gy}
	pts[FaceLeftEyeOuter] = Point3D{X: 0.60, Y: 0.40}
	pts[FaceLeftEyeInner] = Point3D{X: 0.50, Y: 0.40}
	pts[FaceLeftEyeTop] = Point3D{X: 0.55, Y: 0.38}
	pts[FaceLeftEyeBottom] = Point3D{X: 0.55, Y: 0.42}
	pts[FaceLeftIris] = Point3D{X: 0.60 - 0.10*gx, Y: 0.38 + 0.04*gy}
	return FaceLandmarks{Points: pts, Score: 0.9}
}
