package app

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/ayusman/mudra/internal/calibration"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/controller"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/landmark"
	"github.com/ayusman/mudra/internal/store"
)

type commandKind int

const (
	cmdRecalibrate commandKind = iota
	cmdCancel
	cmdConfig
	cmdRelease
)

// command is a control request executed on the pipeline goroutine.
type command struct {
	kind commandKind
	cfg  config.Config
}

// runLoop owns the controller and runs one tick per frame. While control is
// paused frames still reach the preview but are not ticked.
func (a *App) runLoop(ctx context.Context, ctrl *controller.Controller, frames *capture.Latest, det detector.Detector) {
	defer a.wg.Done()
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := ctrl.Shutdown(sctx); err != nil {
			log.Printf("Error releasing buttons: %v", err)
		}
		a.publish(ctrl)
	}()

	var lastErr error
	paused := false
	a.publish(ctrl)

	for {
		select {
		case <-ctx.Done():
			return

		case cmd := <-a.commands:
			ctrl, det = a.execute(ctrl, det, cmd)
			a.publish(ctrl)

		case <-frames.Notify():
			frame, ok := frames.Take()
			if !ok {
				continue
			}

			res, err := det.Detect(frame.Mat)
			if err != nil {
				if lastErr == nil || err.Error() != lastErr.Error() {
					log.Printf("Detection failed: %v", err)
				}
				lastErr = err
				res = detector.Result{}
			} else {
				lastErr = nil
			}

			if a.IsEnabled() {
				paused = false
				ctrl.Tick(landmarks(res, ctrl.Config().Mode), frame.At)
			} else if !paused {
				ctrl.Release(frame.At)
				paused = true
			}

			a.preview.Update(frame.Mat)
			frame.Close()
			a.publish(ctrl)
		}
	}
}

func (a *App) execute(ctrl *controller.Controller, det detector.Detector, cmd command) (*controller.Controller, detector.Detector) {
	now := time.Now()
	switch cmd.kind {
	case cmdRecalibrate:
		ctrl.StartCalibration(now)
	case cmdCancel:
		ctrl.CancelCalibration()
	case cmdRelease:
		ctrl.Release(now)
	case cmdConfig:
		if cmd.cfg.Mode == ctrl.Config().Mode {
			ctrl.SetConfig(cmd.cfg, now)
			break
		}
		// A new mode needs a different detector and its own calibration.
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := ctrl.Shutdown(sctx); err != nil {
			log.Printf("Error releasing buttons: %v", err)
		}
		cancel()
		det = a.detectorFor(cmd.cfg.Mode)
		ctrl = a.newController(cmd.cfg)
		log.Printf("Switched to %s mode", cmd.cfg.Mode)
	}
	return ctrl, det
}

// detectorFor returns a detector for mode, replacing one created by the app
// for another mode. Detectors installed with SetDetector are kept.
func (a *App) detectorFor(mode config.Mode) detector.Detector {
	a.detMu.Lock()
	defer a.detMu.Unlock()
	if !a.ownsDet || a.detMode == mode {
		return a.detector
	}
	if err := a.detector.Close(); err != nil {
		log.Printf("Error closing detector: %v", err)
	}
	a.detector = newDetector(mode)
	a.detMode = mode
	return a.detector
}

func (a *App) publish(ctrl *controller.Controller) {
	st := ctrl.Status()
	a.status.Store(&st)
}

// landmarks picks the frame that drives the given mode.
func landmarks(res detector.Result, mode config.Mode) landmark.Frame {
	if mode == config.ModeGaze {
		return res.GazeFrame()
	}
	return res.HandFrame()
}

// saveCalibration returns the hook that stores finished calibrations.
func (a *App) saveCalibration(mode config.Mode) func(calibration.Result) {
	return func(res calibration.Result) {
		for _, w := range res.Warnings {
			log.Printf("Calibration warning: %v", w)
		}
		rec := store.NewCalibration(string(mode), res)
		if a.config.Store != nil {
			if err := a.config.Store.Calibrations().Create(rec); err != nil {
				log.Printf("Failed to save calibration: %v", err)
			}
		}
		a.emit(EventCalibration, rec)
	}
}

// loadTuning applies the tuning saved by the settings page on top of base.
func (a *App) loadTuning(base config.Config) config.Config {
	if a.config.Store == nil {
		return base
	}
	var t config.Tuning
	err := a.config.Store.Settings().GetJSON(store.SettingTuning, &t)
	if errors.Is(err, store.ErrNotFound) {
		return base
	}
	if err != nil {
		log.Printf("Failed to load tuning: %v", err)
		return base
	}
	cfg, err := base.Apply(t)
	if err != nil {
		log.Printf("Ignoring saved tuning: %v", err)
		return base
	}
	return cfg
}
