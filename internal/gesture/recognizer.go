// Package gesture recognizes pinch clicks and finger scrolling from hand landmarks.
package gesture

import (
	"math"
	"time"

	"github.com/ayusman/mudra/internal/landmark"
	"github.com/ayusman/mudra/internal/pointer"
)

// Config holds the thresholds used by the Recognizer.
type Config struct {
	// ClickThreshold is the normalized thumb-to-finger distance below which
	// a pinch counts as pressed.
	ClickThreshold float64
	// ClickCooldown is the minimum time between transitions before a new
	// press is accepted. Releases are never delayed.
	ClickCooldown time.Duration
	// ScrollThreshold is the accumulated vertical travel that fires a scroll.
	ScrollThreshold float64
	// ScrollSpeed converts accumulated travel into scroll units.
	ScrollSpeed float64
	// ScrollCooldown is the minimum time between two scroll events.
	ScrollCooldown time.Duration
}

// DefaultConfig returns the reference thresholds.
func DefaultConfig() Config {
	return Config{
		ClickThreshold:  0.03,
		ClickCooldown:   30 * time.Millisecond,
		ScrollThreshold: 0.05,
		ScrollSpeed:     120,
		ScrollCooldown:  100 * time.Millisecond,
	}
}

// pinch is a Released/Pressed state machine for one button.
type pinch struct {
	button         pointer.Button
	finger         landmark.Name
	held           bool
	lastTransition time.Time
}

func (p *pinch) step(thumb, tip landmark.Point, now time.Time, cfg Config) (pointer.Action, bool) {
	dist := landmark.Distance(thumb, tip)

	if dist < cfg.ClickThreshold {
		if !p.held && now.Sub(p.lastTransition) > cfg.ClickCooldown {
			p.held = true
			p.lastTransition = now
			return pointer.Down(p.button), true
		}
		return pointer.Action{}, false
	}

	if p.held {
		p.held = false
		p.lastTransition = now
		return pointer.Up(p.button), true
	}
	return pointer.Action{}, false
}

func (p *pinch) release(now time.Time) (pointer.Action, bool) {
	if !p.held {
		return pointer.Action{}, false
	}
	p.held = false
	p.lastTransition = now
	return pointer.Up(p.button), true
}

// scroller integrates vertical fingertip travel.
type scroller struct {
	prevY    float64
	hasPrev  bool
	sum      float64
	lastFire time.Time
}

func (s *scroller) step(y float64, now time.Time, cfg Config) (pointer.Action, bool) {
	if !s.hasPrev {
		s.prevY = y
		s.hasPrev = true
		return pointer.Action{}, false
	}

	s.sum += y - s.prevY
	s.prevY = y

	if math.Abs(s.sum) <= cfg.ScrollThreshold || now.Sub(s.lastFire) <= cfg.ScrollCooldown {
		return pointer.Action{}, false
	}

	// Finger moving down the image (y grows) scrolls down, which is a
	// negative amount for the injector.
	amount := -int(math.Round(s.sum * cfg.ScrollSpeed))
	s.sum = 0
	s.lastFire = now
	if amount == 0 {
		return pointer.Action{}, false
	}
	return pointer.Scroll(amount), true
}

// Recognizer turns hand landmark frames into button and scroll actions.
// It is owned by a single control loop and is not safe for concurrent use.
type Recognizer struct {
	cfg       Config
	primary   pinch
	secondary pinch
	scroll    scroller
}

// NewRecognizer creates a Recognizer with the given thresholds.
func NewRecognizer(cfg Config) *Recognizer {
	return &Recognizer{
		cfg:       cfg,
		primary:   pinch{button: pointer.ButtonLeft, finger: landmark.IndexTip},
		secondary: pinch{button: pointer.ButtonRight, finger: landmark.MiddleTip},
	}
}

// Process evaluates one frame and returns the resulting actions in the order
// primary, secondary, scroll. A frame missing any hand landmark leaves all
// state untouched and returns nil.
func (r *Recognizer) Process(f landmark.Frame, now time.Time) []pointer.Action {
	if !f.Has(landmark.HandNames...) {
		return nil
	}

	thumb := f[landmark.ThumbTip]
	var actions []pointer.Action

	for _, p := range []*pinch{&r.primary, &r.secondary} {
		if a, ok := p.step(thumb, f[p.finger], now, r.cfg); ok {
			actions = append(actions, a)
		}
	}

	if a, ok := r.scroll.step(f[landmark.IndexTip].Y, now, r.cfg); ok {
		actions = append(actions, a)
	}

	return actions
}

// ReleaseAll emits a button-up for every held button and forgets the last
// fingertip height so that reacquiring the hand does not register as a
// scroll. The scroll accumulator is kept.
func (r *Recognizer) ReleaseAll(now time.Time) []pointer.Action {
	var actions []pointer.Action
	for _, p := range []*pinch{&r.primary, &r.secondary} {
		if a, ok := p.release(now); ok {
			actions = append(actions, a)
		}
	}
	r.scroll.hasPrev = false
	return actions
}

// State is a snapshot of the recognizer.
type State struct {
	PrimaryHeld   bool    `json:"primary_held"`
	SecondaryHeld bool    `json:"secondary_held"`
	ScrollAccum   float64 `json:"scroll_accumulator"`
}

// State returns the current gesture state.
func (r *Recognizer) State() State {
	return State{
		PrimaryHeld:   r.primary.held,
		SecondaryHeld: r.secondary.held,
		ScrollAccum:   r.scroll.sum,
	}
}
