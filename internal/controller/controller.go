// Package controller turns landmark frames into pointer actions. It owns the
// motion filter, the gesture recognizer and any running calibration.
package controller

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/ayusman/mudra/internal/calibration"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/landmark"
	"github.com/ayusman/mudra/internal/motion"
	"github.com/ayusman/mudra/internal/pointer"
)

// ErrTrackingLost is logged when a frame stops carrying the tracked landmark.
var ErrTrackingLost = errors.New("tracking lost")

// Options configures a Controller.
type Options struct {
	Config config.Config
	Screen motion.Screen
	// Reader seeds the motion filter with the real cursor position.
	Reader motion.PositionReader
	// Dispatcher receives the actions of every tick. Nil only returns them.
	Dispatcher *pointer.Dispatcher
	Logger     *log.Logger
	// OnCalibrated is called from Tick when a calibration finalizes.
	OnCalibrated func(calibration.Result)
}

// Controller runs one tick per frame. All methods must be called from the
// same goroutine.
type Controller struct {
	cfg          config.Config
	screen       motion.Screen
	reader       motion.PositionReader
	dispatcher   *pointer.Dispatcher
	logger       *log.Logger
	onCalibrated func(calibration.Result)

	filter     *motion.Filter
	recognizer *gesture.Recognizer
	session    *calibration.Session
	model      calibration.Model
	hasModel   bool

	tracking  bool
	uncalWarn bool
	cursor    motion.Position
	lastTick  time.Time
	ticks     uint64
	lostTicks uint64
}

// New creates a Controller.
func New(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Controller{
		cfg:          opts.Config,
		screen:       opts.Screen,
		reader:       opts.Reader,
		dispatcher:   opts.Dispatcher,
		logger:       logger,
		onCalibrated: opts.OnCalibrated,
		filter:       motion.NewFilter(opts.Config.Spring, opts.Config.Damping, opts.Reader),
		recognizer:   gesture.NewRecognizer(opts.Config.Gesture()),
	}
}

// Tick processes one frame and returns the actions it emitted, move first.
// A frame without the tracked landmark releases every held button.
func (c *Controller) Tick(f landmark.Frame, now time.Time) []pointer.Action {
	c.ticks++
	c.lastTick = now

	raw, ok := c.rawPoint(f)
	if !ok {
		c.lostTicks++
		if c.tracking {
			c.logger.Printf("controller: %v", ErrTrackingLost)
			c.tracking = false
		}
		return c.emit(context.Background(), c.recognizer.ReleaseAll(now))
	}
	if !c.tracking {
		c.logger.Println("controller: tracking acquired")
		c.tracking = true
	}

	if c.session != nil {
		return c.calibrate(raw, now)
	}

	target, ok := c.target(raw)
	if !ok {
		if !c.uncalWarn {
			c.logger.Printf("controller: gaze mapping unavailable: %v", c.modelErr())
			c.uncalWarn = true
		}
		return nil
	}

	cursor := c.advance(target, now)
	actions := []pointer.Action{pointer.Move(cursor.X, cursor.Y)}
	if c.cfg.Mode == config.ModeHand {
		actions = append(actions, c.recognizer.Process(f, now)...)
	}
	return c.emit(context.Background(), actions)
}

// rawPoint extracts the tracked coordinate for the current mode.
func (c *Controller) rawPoint(f landmark.Frame) (landmark.Point, bool) {
	if c.cfg.Mode == config.ModeGaze {
		return landmark.GazeRatio(f)
	}
	p, ok := f.Get(landmark.IndexTip)
	if !ok {
		return landmark.Point{}, false
	}
	if c.cfg.Mirror {
		p.X = 1 - p.X
	}
	return p, true
}

// eased applies the easing curve and movement scale. Calibration samples
// are taken in this space so a model describes where the uncalibrated
// pointer was while the user held each target.
func (c *Controller) eased(raw landmark.Point) landmark.Point {
	return landmark.Point{
		X: motion.Ease(raw.X, c.cfg.MovementScale, c.cfg.Easing),
		Y: motion.Ease(raw.Y, c.cfg.MovementScale, c.cfg.Easing),
	}
}

// uncalibrated is the screen target without a model.
func (c *Controller) uncalibrated(raw landmark.Point) motion.Target {
	return motion.RemapTarget(raw.X, raw.Y, c.screen, c.cfg.MovementScale, c.cfg.Easing)
}

// target maps a raw coordinate to the screen. A valid sample model maps its
// calibrated extremes onto the outer calibration targets, linearly. Gaze
// mode has no usable mapping without one; hand mode falls back to the
// uncalibrated remap.
func (c *Controller) target(raw landmark.Point) (motion.Target, bool) {
	if c.mapped() {
		if r, ok := c.model.Ratio(c.eased(raw)); ok {
			inset := float64(c.cfg.Calibration().Inset)
			w, h := float64(c.screen.Width), float64(c.screen.Height)
			return motion.Target{
				X: motion.Clamp(inset+r.X*(w-2*inset), 0, w-1),
				Y: motion.Clamp(inset+r.Y*(h-2*inset), 0, h-1),
			}, true
		}
	}
	if c.cfg.Mode == config.ModeGaze {
		return motion.Target{}, false
	}
	return c.uncalibrated(raw), true
}

// mapped reports whether a valid sample model is installed.
func (c *Controller) mapped() bool {
	return c.hasModel && c.model.Source == calibration.SourceSamples && c.model.Valid
}

func (c *Controller) modelErr() error {
	if !c.hasModel {
		return errors.New("not calibrated")
	}
	if err := c.model.Err(); err != nil {
		return err
	}
	return errors.New("model derived from targets")
}

func (c *Controller) advance(target motion.Target, now time.Time) motion.Position {
	c.cursor = motion.ClampPosition(c.filter.Advance(target, now), c.screen)
	return c.cursor
}

// calibrationTarget places the cursor while calibrating. Samples never go
// through the previous model, so a new calibration does not depend on an
// old one. Hand mode shows the uncalibrated remap. Gaze mode has no usable
// remap and shows the previous model when there is one.
func (c *Controller) calibrationTarget(raw landmark.Point) motion.Target {
	if c.cfg.Mode == config.ModeGaze {
		if t, ok := c.target(raw); ok {
			return t
		}
	}
	return c.uncalibrated(raw)
}

func (c *Controller) calibrate(raw landmark.Point, now time.Time) []pointer.Action {
	cursor := c.advance(c.calibrationTarget(raw), now)
	actions := c.emit(context.Background(), []pointer.Action{pointer.Move(cursor.X, cursor.Y)})

	if c.session.Observe(c.eased(raw), cursor, now) != calibration.Finalized {
		return actions
	}

	res, _ := c.session.Result()
	c.session = nil
	for _, w := range res.Warnings {
		c.logger.Printf("controller: calibration: %v", w)
	}
	c.logger.Printf("controller: calibration finished: %s", res.Model)
	c.installModel(res.Model)
	if c.onCalibrated != nil {
		c.onCalibrated(res)
	}
	return actions
}

func (c *Controller) installModel(m calibration.Model) {
	c.model = m
	c.hasModel = true
	c.uncalWarn = false
	c.filter.Reset()
}

func (c *Controller) emit(ctx context.Context, actions []pointer.Action) []pointer.Action {
	if len(actions) == 0 {
		return nil
	}
	if c.dispatcher != nil {
		// Failures are logged by the dispatcher.
		_ = c.dispatcher.Dispatch(ctx, actions)
	}
	return actions
}

// StartCalibration begins a new session, releasing any held button first.
// A running session is restarted.
func (c *Controller) StartCalibration(now time.Time) {
	c.emit(context.Background(), c.recognizer.ReleaseAll(now))
	cc := c.cfg.Calibration()
	if c.cfg.Mode == config.ModeGaze && !c.mapped() {
		// The cursor cannot follow the eyes yet, so every sample counts.
		cc.Proximity = 0
	}
	c.session = calibration.NewSession(cc, c.screen)
	c.session.Start(now)
	c.logger.Println("controller: calibration started")
}

// CancelCalibration drops a running session. The previous model stays.
func (c *Controller) CancelCalibration() {
	if c.session == nil {
		return
	}
	c.session.Cancel()
	c.session = nil
	c.logger.Println("controller: calibration cancelled")
}

// Release lets go of every held button, for example when control is paused.
func (c *Controller) Release(now time.Time) []pointer.Action {
	return c.emit(context.Background(), c.recognizer.ReleaseAll(now))
}

// Calibrating reports whether a session is running.
func (c *Controller) Calibrating() bool {
	return c.session != nil
}

// Model returns the installed calibration model.
func (c *Controller) Model() (calibration.Model, bool) {
	return c.model, c.hasModel
}

// SetModel installs a model, for example one restored from storage.
func (c *Controller) SetModel(m calibration.Model) {
	c.installModel(m)
}

// Config returns the active configuration.
func (c *Controller) Config() config.Config {
	return c.cfg
}

// SetConfig replaces the tuning. Held buttons are released and the filter
// starts over with the new spring and damping.
func (c *Controller) SetConfig(cfg config.Config, now time.Time) {
	c.emit(context.Background(), c.recognizer.ReleaseAll(now))
	c.cfg = cfg
	c.filter = motion.NewFilter(cfg.Spring, cfg.Damping, c.reader)
	c.recognizer = gesture.NewRecognizer(cfg.Gesture())
	c.uncalWarn = false
}

// Shutdown releases every held button. It is the last call on a Controller.
func (c *Controller) Shutdown(ctx context.Context) error {
	c.CancelCalibration()
	actions := c.recognizer.ReleaseAll(time.Now())
	if len(actions) == 0 || c.dispatcher == nil {
		return nil
	}
	return c.dispatcher.Dispatch(ctx, actions)
}
