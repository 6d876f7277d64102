package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ayusman/mudra/internal/calibration"
	"github.com/ayusman/mudra/internal/motion"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() error = %v", err)
	}
	if cfg.MovementScale != 2.0 {
		t.Errorf("MovementScale = %f, want 2.0", cfg.MovementScale)
	}
	if cfg.ClickThreshold != 0.03 || cfg.ClickCooldown != 30*time.Millisecond {
		t.Errorf("click = %f/%s, want 0.03/30ms", cfg.ClickThreshold, cfg.ClickCooldown)
	}
	if !cfg.Mirror {
		t.Error("Mirror = false, want true for hand mode")
	}
	if cfg.CalibrationSource != calibration.SourceSamples {
		t.Errorf("CalibrationSource = %q, want samples", cfg.CalibrationSource)
	}
}

func TestPresets(t *testing.T) {
	for _, name := range PresetNames() {
		t.Run(name, func(t *testing.T) {
			cfg, err := Preset(name)
			if err != nil {
				t.Fatalf("Preset(%q) error = %v", name, err)
			}
			if err := cfg.Validate(); err != nil {
				t.Errorf("Preset(%q).Validate() error = %v", name, err)
			}
		})
	}

	fast, _ := Preset("fast")
	if fast.MovementScale != 3.5 || fast.ScrollThreshold != 0.008 || fast.ScrollSpeed != 200 {
		t.Errorf("fast preset = %+v", fast)
	}

	gaze, _ := Preset("gaze")
	if gaze.Mode != ModeGaze || gaze.Easing != motion.EasingLinear || gaze.Mirror {
		t.Errorf("gaze preset = %+v", gaze)
	}
	if gaze.Proximity != DefaultConfig().Proximity {
		t.Errorf("gaze Proximity = %v, want %v", gaze.Proximity, DefaultConfig().Proximity)
	}

	if _, err := Preset("turbo"); !errors.Is(err, ErrUnknownPreset) {
		t.Errorf("Preset(turbo) error = %v, want ErrUnknownPreset", err)
	}
}

func TestPresetNames(t *testing.T) {
	if diff := cmp.Diff([]string{"fast", "gaze", "hand"}, PresetNames()); diff != "" {
		t.Errorf("PresetNames() mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"mode", func(c *Config) { c.Mode = "foot" }},
		{"easing", func(c *Config) { c.Easing = "bounce" }},
		{"source", func(c *Config) { c.CalibrationSource = "guess" }},
		{"scale", func(c *Config) { c.MovementScale = 0 }},
		{"spring", func(c *Config) { c.Spring = -1 }},
		{"damping one", func(c *Config) { c.Damping = 1 }},
		{"click threshold", func(c *Config) { c.ClickThreshold = 2 }},
		{"scroll threshold", func(c *Config) { c.ScrollThreshold = 0 }},
		{"scroll speed", func(c *Config) { c.ScrollSpeed = 0 }},
		{"cooldown", func(c *Config) { c.ClickCooldown = -time.Second }},
		{"dwell", func(c *Config) { c.DwellTime = 0 }},
		{"samples", func(c *Config) { c.ExpectedSamples = -1 }},
		{"dispatch", func(c *Config) { c.DispatchTimeout = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() error = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.json")
	data := `{
  "movement_scale": 2.5,
  "mirror": false,
  "click_cooldown": "50ms",
  "scroll_speed": 90,
  "calibration_source": "targets"
}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("failed to write tuning file: %v", err)
	}

	cfg, err := Load(path, DefaultConfig())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := DefaultConfig()
	want.MovementScale = 2.5
	want.Mirror = false
	want.ClickCooldown = 50 * time.Millisecond
	want.ScrollSpeed = 90
	want.CalibrationSource = calibration.SourceTargets
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(body), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
		return p
	}

	tests := []struct {
		name string
		path string
	}{
		{"wrong extension", write("tuning.yaml", "{}")},
		{"missing file", filepath.Join(dir, "absent.json")},
		{"bad json", write("bad.json", "{")},
		{"bad duration", write("dur.json", `{"scroll_cooldown": "soon"}`)},
		{"out of range", write("range.json", `{"damping": 1.5}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(tt.path, DefaultConfig()); err == nil {
				t.Error("Load() error = nil, want error")
			}
		})
	}
}

func TestTuning_RoundTrip(t *testing.T) {
	cfg, _ := Preset("gaze")

	data, err := json.Marshal(cfg.Tuning())
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	tuning, err := ParseTuning(data)
	if err != nil {
		t.Fatalf("ParseTuning() error = %v", err)
	}
	got, err := DefaultConfig().Apply(tuning)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if diff := cmp.Diff(cfg, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestConfig_Derived(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ScrollSpeed = 150
	cfg.DwellTime = 2 * time.Second

	if got := cfg.Gesture().ScrollSpeed; got != 150 {
		t.Errorf("Gesture().ScrollSpeed = %f, want 150", got)
	}
	cc := cfg.Calibration()
	if cc.Dwell != 2*time.Second || cc.Inset != 50 {
		t.Errorf("Calibration() = %+v", cc)
	}
}
