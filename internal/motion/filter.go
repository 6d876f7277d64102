// Package motion turns jittery target positions into smooth cursor motion.
package motion

import (
	"math"
	"time"
)

// HistorySize is the number of smoothed positions the filter retains.
const HistorySize = 3

// Filter defaults.
const (
	DefaultSpring  = 0.4
	DefaultDamping = 0.6

	// accelDistance is the displacement, in pixels, at which the
	// acceleration factor reaches 1.0.
	accelDistance = 500.0
	// maxAccel caps the acceleration factor for large jumps.
	maxAccel = 2.0
)

// Position is an integer screen coordinate.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Target is a screen-space position the cursor should move toward.
type Target struct {
	X float64
	Y float64
}

// PositionReader reports where the OS cursor currently is.
type PositionReader interface {
	Position() (x, y int, err error)
}

// Filter is a critically damped spring that pulls the cursor toward its target.
// A Filter is not safe for concurrent use.
type Filter struct {
	spring  float64
	damping float64
	reader  PositionReader

	history [HistorySize]Position
	count   int
	head    int

	// posX/posY hold the unrounded position; history entries are its
	// integer truncation.
	posX, posY float64
	velX, velY float64
	lastUpdate time.Time
}

// NewFilter creates a Filter. The reader seeds the history on the first call
// to Advance; a nil reader seeds from the first target instead.
func NewFilter(spring, damping float64, reader PositionReader) *Filter {
	if spring <= 0 {
		spring = DefaultSpring
	}
	if damping < 0 || damping >= 1 {
		damping = DefaultDamping
	}
	return &Filter{
		spring:  spring,
		damping: damping,
		reader:  reader,
	}
}

// Advance moves the cursor one step toward the target and returns the new
// position. The first call returns the target unchanged.
func (f *Filter) Advance(target Target, now time.Time) Position {
	f.lastUpdate = now

	if f.count == 0 {
		seed := f.seed(target)
		f.posX, f.posY = float64(seed.X), float64(seed.Y)
		f.push(seed)
		return Position{X: int(target.X), Y: int(target.Y)}
	}

	dx := target.X - f.posX
	dy := target.Y - f.posY
	dist := math.Hypot(dx, dy)

	accel := math.Min(dist/accelDistance, maxAccel)

	f.velX = f.velX*f.damping + dx*f.spring*accel
	f.velY = f.velY*f.damping + dy*f.spring*accel

	f.posX += f.velX
	f.posY += f.velY

	next := Position{X: int(f.posX), Y: int(f.posY)}
	f.push(next)
	return next
}

func (f *Filter) seed(target Target) Position {
	if f.reader != nil {
		if x, y, err := f.reader.Position(); err == nil {
			return Position{X: x, Y: y}
		}
	}
	return Position{X: int(target.X), Y: int(target.Y)}
}

// push appends to the ring, evicting the oldest entry when full.
func (f *Filter) push(p Position) {
	idx := (f.head + f.count) % HistorySize
	if f.count == HistorySize {
		f.history[f.head] = p
		f.head = (f.head + 1) % HistorySize
		return
	}
	f.history[idx] = p
	f.count++
}

// Last returns the most recent smoothed position.
func (f *Filter) Last() Position {
	if f.count == 0 {
		return Position{}
	}
	return f.history[(f.head+f.count-1)%HistorySize]
}

// History returns the retained positions, oldest first.
func (f *Filter) History() []Position {
	out := make([]Position, f.count)
	for i := 0; i < f.count; i++ {
		out[i] = f.history[(f.head+i)%HistorySize]
	}
	return out
}

// Velocity returns the current velocity in pixels per tick.
func (f *Filter) Velocity() (float64, float64) {
	return f.velX, f.velY
}

// LastUpdate returns the time of the last Advance call.
func (f *Filter) LastUpdate() time.Time {
	return f.lastUpdate
}

// Reset clears the history and velocity so the next Advance reseeds.
func (f *Filter) Reset() {
	f.count = 0
	f.head = 0
	f.posX, f.posY = 0, 0
	f.velX, f.velY = 0, 0
	f.lastUpdate = time.Time{}
}
