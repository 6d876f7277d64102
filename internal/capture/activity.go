package capture

import (
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Frame differencing constants
const (
	// GaussianBlurSize is the kernel size used before differencing.
	GaussianBlurSize = 21
	// DiffThreshold is the per-pixel intensity change that counts.
	DiffThreshold = 25
)

// ActivityConfig controls the idle/active gate.
type ActivityConfig struct {
	// Threshold is the percentage of changed pixels that marks activity.
	Threshold float64
	// IdleAfter is how long the scene must stay still before going idle.
	IdleAfter time.Duration
	IdleFPS   int
	ActiveFPS int
}

// DefaultActivityConfig returns a 1% threshold, 2s idle timeout and a
// 5/30 FPS split.
func DefaultActivityConfig() ActivityConfig {
	return ActivityConfig{
		Threshold: 1.0,
		IdleAfter: 2 * time.Second,
		IdleFPS:   5,
		ActiveFPS: DefaultFPS,
	}
}

// ActivityGate drops frames while nothing moves in front of the camera and
// lowers the capture rate in the meantime. It starts active.
type ActivityGate struct {
	cfg        ActivityConfig
	prevGray   gocv.Mat
	hasPrev    bool
	active     bool
	lastMotion time.Time
	lastChange float64
	mu         sync.Mutex
}

func NewActivityGate(cfg ActivityConfig) *ActivityGate {
	def := DefaultActivityConfig()
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.IdleAfter <= 0 {
		cfg.IdleAfter = def.IdleAfter
	}
	if cfg.IdleFPS <= 0 {
		cfg.IdleFPS = def.IdleFPS
	}
	if cfg.ActiveFPS <= 0 {
		cfg.ActiveFPS = def.ActiveFPS
	}
	return &ActivityGate{
		cfg:      cfg,
		prevGray: gocv.NewMat(),
		active:   true,
	}
}

// Observe measures the change against the previous frame and returns whether
// the gate is active after this frame and whether that flipped.
func (g *ActivityGate) Observe(frame *gocv.Mat, now time.Time) (active, changed bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	before := g.active
	if g.lastMotion.IsZero() {
		g.lastMotion = now
	}

	if pct, ok := g.diff(frame); ok {
		g.lastChange = pct
		if pct > g.cfg.Threshold {
			g.lastMotion = now
			g.active = true
		} else if now.Sub(g.lastMotion) > g.cfg.IdleAfter {
			g.active = false
		}
	}
	return g.active, g.active != before
}

// diff returns the percentage of changed pixels. The first frame only
// becomes the baseline.
func (g *ActivityGate) diff(frame *gocv.Mat) (float64, bool) {
	if frame == nil || frame.Empty() {
		return 0, false
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: GaussianBlurSize, Y: GaussianBlurSize}, 0, 0, gocv.BorderDefault)

	if !g.hasPrev {
		blurred.CopyTo(&g.prevGray)
		g.hasPrev = true
		return 0, false
	}

	delta := gocv.NewMat()
	defer delta.Close()
	gocv.AbsDiff(blurred, g.prevGray, &delta)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(delta, &mask, DiffThreshold, 255, gocv.ThresholdBinary)

	total := mask.Rows() * mask.Cols()
	blurred.CopyTo(&g.prevGray)
	if total == 0 {
		return 0, false
	}
	return float64(gocv.CountNonZero(mask)) / float64(total) * 100.0, true
}

// Active reports the current gate state.
func (g *ActivityGate) Active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

// FPS returns the capture rate that matches the current state.
func (g *ActivityGate) FPS() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active {
		return g.cfg.ActiveFPS
	}
	return g.cfg.IdleFPS
}

// LastChange returns the changed-pixel percentage of the last comparison.
func (g *ActivityGate) LastChange() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastChange
}

// Close releases the baseline frame.
func (g *ActivityGate) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.prevGray.Empty() {
		g.prevGray.Close()
		g.prevGray = gocv.NewMat()
	}
	g.hasPrev = false
}
