// Package config holds the tuning parameters of the pointer controller,
// the named presets and the JSON tuning file format.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ayusman/mudra/internal/calibration"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/motion"
)

// Mode selects which landmark drives the cursor.
type Mode string

const (
	// ModeHand tracks the index fingertip and recognizes pinch gestures.
	ModeHand Mode = "hand"
	// ModeGaze tracks the iris position and requires a calibration.
	ModeGaze Mode = "gaze"
)

var (
	// ErrUnknownPreset is returned for a preset name that does not exist.
	ErrUnknownPreset = errors.New("unknown preset")
	// ErrInvalid wraps every validation failure.
	ErrInvalid = errors.New("invalid config")
)

// Config is the full set of controller parameters.
type Config struct {
	Mode          Mode
	Mirror        bool
	Easing        motion.Easing
	MovementScale float64
	Spring        float64
	Damping       float64

	ClickThreshold  float64
	ClickCooldown   time.Duration
	ScrollThreshold float64
	ScrollSpeed     float64
	ScrollCooldown  time.Duration

	DwellTime         time.Duration
	Proximity         float64
	ExpectedSamples   int
	CalibrationSource calibration.Source

	DispatchTimeout time.Duration
}

// DefaultConfig returns the hand preset.
func DefaultConfig() Config {
	return Config{
		Mode:              ModeHand,
		Mirror:            true,
		Easing:            motion.EasingCubic,
		MovementScale:     2.0,
		Spring:            motion.DefaultSpring,
		Damping:           motion.DefaultDamping,
		ClickThreshold:    0.03,
		ClickCooldown:     30 * time.Millisecond,
		ScrollThreshold:   0.05,
		ScrollSpeed:       120,
		ScrollCooldown:    100 * time.Millisecond,
		DwellTime:         3 * time.Second,
		Proximity:         100,
		ExpectedSamples:   30,
		CalibrationSource: calibration.SourceSamples,
		DispatchTimeout:   20 * time.Millisecond,
	}
}

var presets = map[string]func() Config{
	"hand": DefaultConfig,
	"fast": func() Config {
		c := DefaultConfig()
		c.MovementScale = 3.5
		c.ScrollThreshold = 0.008
		c.ScrollSpeed = 200
		c.ScrollCooldown = 50 * time.Millisecond
		return c
	},
	"gaze": func() Config {
		c := DefaultConfig()
		c.Mode = ModeGaze
		c.Mirror = false
		c.Easing = motion.EasingLinear
		c.MovementScale = 1.0
		// Proximity only applies once a previous model places the cursor.
		return c
	},
}

// Preset returns the named preset.
func Preset(name string) (Config, error) {
	fn, ok := presets[name]
	if !ok {
		return Config{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return fn(), nil
}

// PresetNames lists the available presets in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Validate checks that every parameter is in range.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeHand, ModeGaze:
	default:
		return fmt.Errorf("%w: mode must be hand or gaze, got %q", ErrInvalid, c.Mode)
	}
	switch c.Easing {
	case motion.EasingCubic, motion.EasingLinear:
	default:
		return fmt.Errorf("%w: easing must be cubic or linear, got %q", ErrInvalid, c.Easing)
	}
	switch c.CalibrationSource {
	case calibration.SourceSamples, calibration.SourceTargets:
	default:
		return fmt.Errorf("%w: calibration_source must be samples or targets, got %q", ErrInvalid, c.CalibrationSource)
	}
	if c.MovementScale <= 0 {
		return fmt.Errorf("%w: movement_scale must be positive, got %f", ErrInvalid, c.MovementScale)
	}
	if c.Spring <= 0 {
		return fmt.Errorf("%w: spring must be positive, got %f", ErrInvalid, c.Spring)
	}
	if c.Damping < 0 || c.Damping >= 1 {
		return fmt.Errorf("%w: damping must be in [0,1), got %f", ErrInvalid, c.Damping)
	}
	if c.ClickThreshold < 0 || c.ClickThreshold > 1 {
		return fmt.Errorf("%w: click_threshold must be in [0,1], got %f", ErrInvalid, c.ClickThreshold)
	}
	if c.ScrollThreshold <= 0 {
		return fmt.Errorf("%w: scroll_threshold must be positive, got %f", ErrInvalid, c.ScrollThreshold)
	}
	if c.ScrollSpeed <= 0 {
		return fmt.Errorf("%w: scroll_speed must be positive, got %f", ErrInvalid, c.ScrollSpeed)
	}
	if c.ClickCooldown < 0 || c.ScrollCooldown < 0 {
		return fmt.Errorf("%w: cooldowns must be non-negative", ErrInvalid)
	}
	if c.DwellTime <= 0 {
		return fmt.Errorf("%w: dwell_time must be positive, got %s", ErrInvalid, c.DwellTime)
	}
	if c.ExpectedSamples < 0 {
		return fmt.Errorf("%w: expected_samples must be non-negative, got %d", ErrInvalid, c.ExpectedSamples)
	}
	if c.DispatchTimeout <= 0 {
		return fmt.Errorf("%w: dispatch_timeout must be positive, got %s", ErrInvalid, c.DispatchTimeout)
	}
	return nil
}

// Gesture returns the recognizer thresholds.
func (c Config) Gesture() gesture.Config {
	return gesture.Config{
		ClickThreshold:  c.ClickThreshold,
		ClickCooldown:   c.ClickCooldown,
		ScrollThreshold: c.ScrollThreshold,
		ScrollSpeed:     c.ScrollSpeed,
		ScrollCooldown:  c.ScrollCooldown,
	}
}

// Calibration returns the calibration session parameters.
func (c Config) Calibration() calibration.Config {
	cc := calibration.DefaultConfig()
	cc.Dwell = c.DwellTime
	cc.Proximity = c.Proximity
	cc.ExpectedSamples = c.ExpectedSamples
	cc.Source = c.CalibrationSource
	return cc
}

// Tuning is the JSON form of Config. Every field is optional; omitted fields
// keep the value of the config they are applied to.
type Tuning struct {
	Mode          *string  `json:"mode,omitempty"`
	Mirror        *bool    `json:"mirror,omitempty"`
	Easing        *string  `json:"easing,omitempty"`
	MovementScale *float64 `json:"movement_scale,omitempty"`
	Spring        *float64 `json:"spring,omitempty"`
	Damping       *float64 `json:"damping,omitempty"`

	ClickThreshold  *float64 `json:"click_threshold,omitempty"`
	ClickCooldown   *string  `json:"click_cooldown,omitempty"` // duration string like "30ms"
	ScrollThreshold *float64 `json:"scroll_threshold,omitempty"`
	ScrollSpeed     *float64 `json:"scroll_speed,omitempty"`
	ScrollCooldown  *string  `json:"scroll_cooldown,omitempty"`

	DwellTime         *string  `json:"dwell_time,omitempty"`
	Proximity         *float64 `json:"proximity,omitempty"`
	ExpectedSamples   *int     `json:"expected_samples,omitempty"`
	CalibrationSource *string  `json:"calibration_source,omitempty"`

	DispatchTimeout *string `json:"dispatch_timeout,omitempty"`
}

func ptr[T any](v T) *T { return &v }

// Tuning returns c with every field set.
func (c Config) Tuning() Tuning {
	return Tuning{
		Mode:              ptr(string(c.Mode)),
		Mirror:            ptr(c.Mirror),
		Easing:            ptr(string(c.Easing)),
		MovementScale:     ptr(c.MovementScale),
		Spring:            ptr(c.Spring),
		Damping:           ptr(c.Damping),
		ClickThreshold:    ptr(c.ClickThreshold),
		ClickCooldown:     ptr(c.ClickCooldown.String()),
		ScrollThreshold:   ptr(c.ScrollThreshold),
		ScrollSpeed:       ptr(c.ScrollSpeed),
		ScrollCooldown:    ptr(c.ScrollCooldown.String()),
		DwellTime:         ptr(c.DwellTime.String()),
		Proximity:         ptr(c.Proximity),
		ExpectedSamples:   ptr(c.ExpectedSamples),
		CalibrationSource: ptr(string(c.CalibrationSource)),
		DispatchTimeout:   ptr(c.DispatchTimeout.String()),
	}
}

// Apply overlays the fields set in t onto c and validates the result.
func (c Config) Apply(t Tuning) (Config, error) {
	if t.Mode != nil {
		c.Mode = Mode(*t.Mode)
	}
	if t.Mirror != nil {
		c.Mirror = *t.Mirror
	}
	if t.Easing != nil {
		c.Easing = motion.Easing(*t.Easing)
	}
	if t.MovementScale != nil {
		c.MovementScale = *t.MovementScale
	}
	if t.Spring != nil {
		c.Spring = *t.Spring
	}
	if t.Damping != nil {
		c.Damping = *t.Damping
	}
	if t.ClickThreshold != nil {
		c.ClickThreshold = *t.ClickThreshold
	}
	if t.ScrollThreshold != nil {
		c.ScrollThreshold = *t.ScrollThreshold
	}
	if t.ScrollSpeed != nil {
		c.ScrollSpeed = *t.ScrollSpeed
	}
	if t.Proximity != nil {
		c.Proximity = *t.Proximity
	}
	if t.ExpectedSamples != nil {
		c.ExpectedSamples = *t.ExpectedSamples
	}
	if t.CalibrationSource != nil {
		c.CalibrationSource = calibration.Source(*t.CalibrationSource)
	}

	durations := []struct {
		name string
		src  *string
		dst  *time.Duration
	}{
		{"click_cooldown", t.ClickCooldown, &c.ClickCooldown},
		{"scroll_cooldown", t.ScrollCooldown, &c.ScrollCooldown},
		{"dwell_time", t.DwellTime, &c.DwellTime},
		{"dispatch_timeout", t.DispatchTimeout, &c.DispatchTimeout},
	}
	for _, d := range durations {
		if d.src == nil || *d.src == "" {
			continue
		}
		v, err := time.ParseDuration(*d.src)
		if err != nil {
			return Config{}, fmt.Errorf("%w: invalid %s %q: %v", ErrInvalid, d.name, *d.src, err)
		}
		*d.dst = v
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// ParseTuning decodes a JSON tuning document.
func ParseTuning(data []byte) (Tuning, error) {
	var t Tuning
	if err := json.Unmarshal(data, &t); err != nil {
		return Tuning{}, fmt.Errorf("failed to parse tuning JSON: %w", err)
	}
	return t, nil
}

// Load reads a JSON tuning file and applies it on top of base.
func Load(path string, base Config) (Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return Config{}, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return Config{}, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 << 20
	if info.Size() > maxFileSize {
		return Config{}, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	t, err := ParseTuning(data)
	if err != nil {
		return Config{}, err
	}
	return base.Apply(t)
}
