// Package calibration implements the five-point dwell protocol that maps raw
// landmark coordinates onto the screen.
package calibration

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ayusman/mudra/internal/landmark"
	"github.com/ayusman/mudra/internal/motion"
)

// NumPoints is the size of a calibration set.
const NumPoints = 5

// ErrUndersampled marks a point committed with fewer than half the expected
// samples. It is a warning and never stops the session.
var ErrUndersampled = errors.New("calibration point undersampled")

// State is the session phase.
type State int

const (
	Idle State = iota
	Dwelling
	Finalized
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dwelling:
		return "dwelling"
	case Finalized:
		return "finalized"
	}
	return "unknown"
}

// Config holds session parameters.
type Config struct {
	// Dwell is how long the cursor must stay near a target.
	Dwell time.Duration
	// Proximity is the distance in pixels within which samples count.
	// Zero or less accepts every sample without resetting the dwell.
	Proximity float64
	// ExpectedSamples is the nominal sample count per point.
	ExpectedSamples int
	// Inset is the target distance from the screen edges in pixels.
	Inset int
	// Source selects what the model is derived from.
	Source Source
}

// DefaultConfig returns a 3s dwell, 100px proximity and 30 samples per point.
func DefaultConfig() Config {
	return Config{
		Dwell:           3 * time.Second,
		Proximity:       100,
		ExpectedSamples: 30,
		Inset:           50,
		Source:          SourceSamples,
	}
}

// Point is a screen target and the raw samples collected while dwelling on it.
type Point struct {
	Target  motion.Position  `json:"target"`
	Samples []landmark.Point `json:"-"`
}

// Targets returns the five targets ordered top-left, top-right, center,
// bottom-left, bottom-right.
func Targets(screen motion.Screen, inset int) [NumPoints]motion.Position {
	w, h := screen.Width, screen.Height
	return [NumPoints]motion.Position{
		{X: inset, Y: inset},
		{X: w - inset, Y: inset},
		{X: w / 2, Y: h / 2},
		{X: inset, Y: h - inset},
		{X: w - inset, Y: h - inset},
	}
}

// Result is the outcome of a finalized session.
type Result struct {
	Model    Model
	Points   [NumPoints]Point
	Warnings []error
}

// Session runs one calibration. It is driven by a single control loop and is
// not safe for concurrent use.
type Session struct {
	cfg    Config
	screen motion.Screen

	state      State
	points     [NumPoints]Point
	index      int
	dwellStart time.Time
	warnings   []error
	result     *Result
}

// NewSession creates an idle session for the given screen.
func NewSession(cfg Config, screen motion.Screen) *Session {
	if cfg.Dwell <= 0 {
		cfg.Dwell = DefaultConfig().Dwell
	}
	if cfg.Source == "" {
		cfg.Source = SourceSamples
	}
	return &Session{cfg: cfg, screen: screen}
}

// Start begins dwelling on the first target. Calling Start on a running
// session restarts it.
func (s *Session) Start(now time.Time) {
	targets := Targets(s.screen, s.cfg.Inset)
	for i := range s.points {
		s.points[i] = Point{Target: targets[i]}
	}
	s.index = 0
	s.dwellStart = now
	s.warnings = nil
	s.result = nil
	s.state = Dwelling
}

// Cancel returns the session to Idle and discards everything collected.
func (s *Session) Cancel() {
	s.state = Idle
	s.index = 0
	s.points = [NumPoints]Point{}
	s.warnings = nil
	s.result = nil
}

// Observe feeds one tick. raw is the landmark being calibrated and cursor is
// where it currently puts the pointer. It returns the state after the tick.
func (s *Session) Observe(raw landmark.Point, cursor motion.Position, now time.Time) State {
	if s.state != Dwelling {
		return s.state
	}

	p := &s.points[s.index]
	if s.cfg.Proximity > 0 && distance(cursor, p.Target) > s.cfg.Proximity {
		s.dwellStart = now
		return s.state
	}
	p.Samples = append(p.Samples, raw)

	if now.Sub(s.dwellStart) < s.cfg.Dwell {
		return s.state
	}

	if need := s.cfg.ExpectedSamples / 2; len(p.Samples) < need {
		s.warnings = append(s.warnings, fmt.Errorf("%w: point %d has %d of %d samples",
			ErrUndersampled, s.index, len(p.Samples), s.cfg.ExpectedSamples))
	}

	s.index++
	s.dwellStart = now
	if s.index < NumPoints {
		return s.state
	}

	s.state = Finalized
	s.result = &Result{
		Model:    Derive(s.points[:], s.screen, s.cfg.Source),
		Points:   s.points,
		Warnings: s.warnings,
	}
	return s.state
}

// State returns the current phase.
func (s *Session) State() State { return s.state }

// Index returns the active point index while dwelling.
func (s *Session) Index() int { return s.index }

// Target returns the active target while dwelling.
func (s *Session) Target() (motion.Position, bool) {
	if s.state != Dwelling {
		return motion.Position{}, false
	}
	return s.points[s.index].Target, true
}

// Remaining returns the dwell time left on the active point.
func (s *Session) Remaining(now time.Time) time.Duration {
	if s.state != Dwelling {
		return 0
	}
	left := s.cfg.Dwell - now.Sub(s.dwellStart)
	if left < 0 {
		return 0
	}
	return left
}

// Result returns the finalized result once. Later calls report false.
func (s *Session) Result() (Result, bool) {
	if s.result == nil {
		return Result{}, false
	}
	r := *s.result
	s.result = nil
	return r, true
}

func distance(a, b motion.Position) float64 {
	return math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
}
