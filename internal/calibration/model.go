package calibration

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ayusman/mudra/internal/landmark"
	"github.com/ayusman/mudra/internal/motion"
)

// minRange is the smallest per-axis spread that yields a usable model.
const minRange = 1e-6

// ErrDegenerate is reported by a Model whose spread collapses on an axis.
var ErrDegenerate = errors.New("degenerate calibration")

// Source selects which committed values a model is derived from.
type Source string

const (
	// SourceSamples derives the model from the mean raw landmark sample of
	// each committed point.
	SourceSamples Source = "samples"
	// SourceTargets derives the model from the committed screen targets.
	// The result describes the target layout only and does not depend on
	// what the user did during the dwell.
	SourceTargets Source = "targets"
)

// Model maps raw normalized landmark coordinates onto the calibrated range.
// It is immutable once derived.
type Model struct {
	ScaleX  float64 `json:"scale_x"`
	ScaleY  float64 `json:"scale_y"`
	OffsetX float64 `json:"offset_x"`
	OffsetY float64 `json:"offset_y"`
	Width   int     `json:"width"`
	Height  int     `json:"height"`
	Valid   bool    `json:"valid"`
	Source  Source  `json:"source"`
	// Points is the number of committed points that contributed.
	Points int `json:"points"`
}

// Err returns ErrDegenerate for an invalid model and nil otherwise.
func (m Model) Err() error {
	if m.Valid {
		return nil
	}
	return ErrDegenerate
}

// Normalize maps a raw coordinate into [0,1] on both axes. It reports false
// when the model is invalid.
func (m Model) Normalize(raw landmark.Point) (landmark.Point, bool) {
	p, ok := m.Ratio(raw)
	if !ok {
		return landmark.Point{}, false
	}
	return landmark.Point{X: motion.Clamp(p.X, 0, 1), Y: motion.Clamp(p.Y, 0, 1)}, true
}

// Ratio is Normalize without the clamp: 0 and 1 are the calibrated extremes
// and values outside lie beyond them.
func (m Model) Ratio(raw landmark.Point) (landmark.Point, bool) {
	if !m.Valid {
		return landmark.Point{}, false
	}
	return landmark.Point{
		X: (raw.X - m.OffsetX) / (m.ScaleX * float64(m.Width)),
		Y: (raw.Y - m.OffsetY) / (m.ScaleY * float64(m.Height)),
	}, true
}

func (m Model) String() string {
	if !m.Valid {
		return fmt.Sprintf("calibration(invalid, %s, %d points)", m.Source, m.Points)
	}
	return fmt.Sprintf("calibration(%s scale=%.4f,%.4f offset=%.4f,%.4f)",
		m.Source, m.ScaleX, m.ScaleY, m.OffsetX, m.OffsetY)
}

// Derive computes a model from committed points. Per axis the scale is
// (max-min)/dimension and the offset is min. Fewer than two contributing
// points or a spread below 1e-6 on either axis yields an invalid model with
// zero scale.
func Derive(points []Point, screen motion.Screen, source Source) Model {
	m := Model{Width: screen.Width, Height: screen.Height, Source: source}
	if screen.Width <= 0 || screen.Height <= 0 {
		return m
	}

	var xs, ys []float64
	for _, p := range points {
		switch source {
		case SourceTargets:
			xs = append(xs, float64(p.Target.X))
			ys = append(ys, float64(p.Target.Y))
		default:
			if len(p.Samples) == 0 {
				continue
			}
			sx := make([]float64, len(p.Samples))
			sy := make([]float64, len(p.Samples))
			for i, s := range p.Samples {
				sx[i], sy[i] = s.X, s.Y
			}
			xs = append(xs, stat.Mean(sx, nil))
			ys = append(ys, stat.Mean(sy, nil))
		}
	}

	m.Points = len(xs)
	if len(xs) < 2 {
		return m
	}

	minX, maxX := floats.Min(xs), floats.Max(xs)
	minY, maxY := floats.Min(ys), floats.Max(ys)
	if maxX-minX < minRange || maxY-minY < minRange {
		return m
	}

	m.ScaleX = (maxX - minX) / float64(screen.Width)
	m.ScaleY = (maxY - minY) / float64(screen.Height)
	m.OffsetX = minX
	m.OffsetY = minY
	m.Valid = true
	return m
}
