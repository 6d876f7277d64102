package detector

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/ayusman/mudra/internal/landmark"
)

const epsilon = 1e-9

func TestHandLandmarks_Frame(t *testing.T) {
	hand := PinchingHand(0.4, 0.5)
	f := hand.Frame()

	if !f.Has(landmark.HandNames...) {
		t.Fatalf("Frame() = %v, missing hand names", f)
	}
	if got := f[landmark.IndexTip]; got != (landmark.Point{X: 0.4, Y: 0.5}) {
		t.Errorf("index tip = %+v, want (0.4, 0.5)", got)
	}
	if d := landmark.Distance(f[landmark.ThumbTip], f[landmark.IndexTip]); d > 0.03 {
		t.Errorf("pinch distance = %f, want < 0.03", d)
	}
}

func TestResult_HandFrame(t *testing.T) {
	t.Run("empty result", func(t *testing.T) {
		if f := (Result{}).HandFrame(); !f.Empty() {
			t.Errorf("HandFrame() = %v, want empty", f)
		}
	})

	t.Run("picks most confident hand", func(t *testing.T) {
		weak := PointingHand(0.1, 0.1)
		weak.Score = 0.6
		strong := PointingHand(0.7, 0.3)
		strong.Score = 0.9

		f := Result{Hands: []HandLandmarks{weak, strong}}.HandFrame()
		if got := f[landmark.IndexTip]; got.X != 0.7 {
			t.Errorf("index tip = %+v, want the stronger hand", got)
		}
	})
}

func TestResult_GazeFrame(t *testing.T) {
	t.Run("mesh without iris", func(t *testing.T) {
		r := Result{Faces: []FaceLandmarks{{Points: make([]Point3D, 468)}}}
		if f := r.GazeFrame(); !f.Empty() {
			t.Errorf("GazeFrame() = %v, want empty", f)
		}
	})

	t.Run("gaze ratio round trip", func(t *testing.T) {
		r := Result{Faces: []FaceLandmarks{LookingFace(0.3, 0.6)}}
		f := r.GazeFrame()
		if !f.Has(landmark.GazeNames...) {
			t.Fatalf("GazeFrame() = %v, missing eye names", f)
		}
		got, ok := landmark.GazeRatio(f)
		if !ok {
			t.Fatal("GazeRatio() unavailable")
		}
		if math.Abs(got.X-0.3) > epsilon || math.Abs(got.Y-0.6) > epsilon {
			t.Errorf("GazeRatio() = %+v, want (0.3, 0.6)", got)
		}
	})
}

func TestParseResponse(t *testing.T) {
	hand := `{"points":[` + strings.TrimSuffix(strings.Repeat(`{"x":0.5,"y":0.5,"z":0},`, NumLandmarks), ",") + `],"handedness":"Left","score":0.8}`

	tests := []struct {
		name      string
		line      string
		wantHands int
		wantFaces int
		wantErr   bool
	}{
		{name: "empty", line: `{"hands":[],"faces":[]}`},
		{name: "one hand", line: `{"hands":[` + hand + `]}`, wantHands: 1},
		{name: "short hand dropped", line: `{"hands":[{"points":[{"x":1,"y":1}]}]}`},
		{name: "face", line: `{"faces":[{"points":[{"x":0.1,"y":0.2}],"score":0.5}]}`, wantFaces: 1},
		{name: "service error", line: `{"error":"model failed"}`, wantErr: true},
		{name: "garbage", line: `not json`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := parseResponse([]byte(tt.line))
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseResponse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(res.Hands) != tt.wantHands || len(res.Faces) != tt.wantFaces {
				t.Errorf("parseResponse() = %d hands, %d faces; want %d, %d",
					len(res.Hands), len(res.Faces), tt.wantHands, tt.wantFaces)
			}
		})
	}
}

func TestWriteFrame(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("jpeg-bytes")
	if err := writeFrame(&buf, payload); err != nil {
		t.Fatalf("writeFrame() error = %v", err)
	}

	out := buf.Bytes()
	if got := binary.BigEndian.Uint32(out[:4]); int(got) != len(payload) {
		t.Errorf("length prefix = %d, want %d", got, len(payload))
	}
	if !bytes.Equal(out[4:], payload) {
		t.Errorf("payload = %q, want %q", out[4:], payload)
	}
}

func TestMediaPipeDetector_Args(t *testing.T) {
	d := &MediaPipeDetector{config: GazeConfig(), script: "svc.py"}
	args := strings.Join(d.args(), " ")
	if !strings.Contains(args, "--face --refine-landmarks") {
		t.Errorf("args = %q, want face mesh with iris refinement", args)
	}
	if strings.Contains(args, "--hands") {
		t.Errorf("args = %q, want no hand landmarker", args)
	}
}

func TestMockDetector(t *testing.T) {
	t.Run("returns empty result by default", func(t *testing.T) {
		res, err := NewMockDetector().Detect(nil)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if len(res.Hands) != 0 || len(res.Faces) != 0 {
			t.Errorf("expected empty result, got %+v", res)
		}
	})

	t.Run("queue before fixed result", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetResult(Result{Hands: []HandLandmarks{PointingHand(0.5, 0.5)}})
		mock.Queue(Result{}, Result{Hands: []HandLandmarks{PinchingHand(0.5, 0.5)}})

		first, _ := mock.Detect(nil)
		second, _ := mock.Detect(nil)
		third, _ := mock.Detect(nil)

		if len(first.Hands) != 0 || len(second.Hands) != 1 || len(third.Hands) != 1 {
			t.Errorf("unexpected sequence: %d, %d, %d hands", len(first.Hands), len(second.Hands), len(third.Hands))
		}
		if mock.Calls() != 3 {
			t.Errorf("Calls() = %d, want 3", mock.Calls())
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()
		want := errors.New("detection failed")
		mock.SetError(want)

		if _, err := mock.Detect(nil); err != want {
			t.Errorf("expected error %v, got %v", want, err)
		}
	})

	t.Run("implements Detector interface", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
		var _ Detector = (*MediaPipeDetector)(nil)
	})
}
