package motion

import (
	"math"
	"testing"
)

func TestRemap(t *testing.T) {
	tests := []struct {
		name   string
		ratio  float64
		dim    int
		scale  float64
		easing Easing
		want   float64
	}{
		{name: "cubic origin", ratio: 0, dim: 1920, scale: 2, easing: EasingCubic, want: 0},
		{name: "cubic half", ratio: 0.5, dim: 1920, scale: 2, easing: EasingCubic, want: 480},
		{name: "cubic clamps high", ratio: 0.9, dim: 1920, scale: 2, easing: EasingCubic, want: 1919},
		{name: "cubic small movement", ratio: 0.1, dim: 1000, scale: 2, easing: EasingCubic, want: 2},
		{name: "linear half", ratio: 0.5, dim: 1080, scale: 1, easing: EasingLinear, want: 540},
		{name: "linear clamps low", ratio: -0.2, dim: 1080, scale: 1, easing: EasingLinear, want: 0},
		{name: "unknown easing is cubic", ratio: 0.5, dim: 1000, scale: 1, easing: "", want: 125},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Remap(tt.ratio, tt.dim, tt.scale, tt.easing)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Remap(%v) = %f, want %f", tt.ratio, got, tt.want)
			}
		})
	}
}

func TestEase_Unclamped(t *testing.T) {
	if got := Ease(0.9, 2, EasingCubic); math.Abs(got-1.458) > 1e-9 {
		t.Errorf("Ease(0.9, cubic) = %f, want 1.458", got)
	}
	if got := Ease(-0.2, 1, EasingLinear); math.Abs(got+0.2) > 1e-9 {
		t.Errorf("Ease(-0.2, linear) = %f, want -0.2", got)
	}
}

func TestRemap_CubicAmplifiesPrecisionNearRest(t *testing.T) {
	screen := 1920
	small := Remap(0.2, screen, 2, EasingCubic) - Remap(0.1, screen, 2, EasingCubic)
	large := Remap(0.6, screen, 2, EasingCubic) - Remap(0.5, screen, 2, EasingCubic)
	if small >= large {
		t.Errorf("equal hand steps should travel less near rest: small=%f large=%f", small, large)
	}
}

func TestClampPosition(t *testing.T) {
	screen := Screen{Width: 800, Height: 600}
	tests := []struct {
		in   Position
		want Position
	}{
		{Position{X: -5, Y: 10}, Position{X: 0, Y: 10}},
		{Position{X: 900, Y: 700}, Position{X: 799, Y: 599}},
		{Position{X: 400, Y: 300}, Position{X: 400, Y: 300}},
	}
	for _, tt := range tests {
		if got := ClampPosition(tt.in, screen); got != tt.want {
			t.Errorf("ClampPosition(%+v) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestParseScreen(t *testing.T) {
	tests := []struct {
		in      string
		want    Screen
		wantErr bool
	}{
		{in: "1920x1080", want: Screen{Width: 1920, Height: 1080}},
		{in: "3840X2160", want: Screen{Width: 3840, Height: 2160}},
		{in: "1366", wantErr: true},
		{in: "0x768", wantErr: true},
		{in: "wide", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseScreen(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseScreen(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseScreen(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}
