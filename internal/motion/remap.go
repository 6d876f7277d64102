package motion

import (
	"fmt"
	"strings"
)

// Easing selects how a normalized ratio is stretched onto the screen.
type Easing string

const (
	// EasingCubic amplifies precision near the tracked origin.
	EasingCubic Easing = "cubic"
	// EasingLinear maps the ratio proportionally.
	EasingLinear Easing = "linear"
)

// Screen is the pixel size of the pointer's display.
type Screen struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ParseScreen reads a size written as WIDTHxHEIGHT, for example 2560x1440.
func ParseScreen(s string) (Screen, error) {
	var sc Screen
	if _, err := fmt.Sscanf(strings.ToLower(s), "%dx%d", &sc.Width, &sc.Height); err != nil {
		return Screen{}, fmt.Errorf("invalid screen size %q: want WIDTHxHEIGHT", s)
	}
	if sc.Width <= 0 || sc.Height <= 0 {
		return Screen{}, fmt.Errorf("invalid screen size %q: dimensions must be positive", s)
	}
	return sc, nil
}

// Ease stretches a normalized ratio by the easing curve and scale. The
// result is a fraction of the screen dimension and is not clamped.
func Ease(ratio, scale float64, easing Easing) float64 {
	switch easing {
	case EasingLinear:
		return ratio * scale
	default:
		return ratio * (ratio * ratio) * scale
	}
}

// Remap converts a normalized ratio on one axis to a screen coordinate,
// clamped to [0, dim-1].
func Remap(ratio float64, dim int, scale float64, easing Easing) float64 {
	return Clamp(Ease(ratio, scale, easing)*float64(dim), 0, float64(dim-1))
}

// RemapTarget applies Remap to both axes.
func RemapTarget(rx, ry float64, screen Screen, scale float64, easing Easing) Target {
	return Target{
		X: Remap(rx, screen.Width, scale, easing),
		Y: Remap(ry, screen.Height, scale, easing),
	}
}

// ClampPosition keeps a position on screen.
func ClampPosition(p Position, screen Screen) Position {
	return Position{
		X: clampInt(p.X, 0, screen.Width-1),
		Y: clampInt(p.Y, 0, screen.Height-1),
	}
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
