package controller

import (
	"time"

	"github.com/ayusman/mudra/internal/calibration"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/motion"
)

// CalibrationStatus describes a running calibration for an overlay.
type CalibrationStatus struct {
	Point       int             `json:"point"`
	Target      motion.Position `json:"target"`
	RemainingMs int64           `json:"remaining_ms"`
}

// Status is a point-in-time snapshot of the controller.
type Status struct {
	Mode        config.Mode        `json:"mode"`
	Tracking    bool               `json:"tracking"`
	Cursor      motion.Position    `json:"cursor"`
	Gesture     gesture.State      `json:"gesture"`
	Calibration *CalibrationStatus `json:"calibration,omitempty"`
	Model       *calibration.Model `json:"model,omitempty"`
	Ticks       uint64             `json:"ticks"`
	LostTicks   uint64             `json:"lost_ticks"`
	LastTick    time.Time          `json:"last_tick"`
}

// Status returns a snapshot. The returned value shares nothing with the
// controller and may be handed to other goroutines.
func (c *Controller) Status() Status {
	st := Status{
		Mode:      c.cfg.Mode,
		Tracking:  c.tracking,
		Cursor:    c.cursor,
		Gesture:   c.recognizer.State(),
		Ticks:     c.ticks,
		LostTicks: c.lostTicks,
		LastTick:  c.lastTick,
	}
	if c.hasModel {
		m := c.model
		st.Model = &m
	}
	if c.session != nil {
		if target, ok := c.session.Target(); ok {
			st.Calibration = &CalibrationStatus{
				Point:       c.session.Index(),
				Target:      target,
				RemainingMs: c.session.Remaining(c.lastTick).Milliseconds(),
			}
		}
	}
	return st
}
