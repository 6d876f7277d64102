package app

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/motion"
	"github.com/ayusman/mudra/internal/store"
)

func TestNew_InvalidControlFallsBack(t *testing.T) {
	a := New(Config{PluginDir: t.TempDir()})
	defer a.Close()

	if got := a.Config(); got != config.DefaultConfig() {
		t.Errorf("Config() = %+v, want defaults", got)
	}
	if got := a.Status().Mode; got != config.ModeHand {
		t.Errorf("Status().Mode = %q, want hand", got)
	}
	if !a.IsEnabled() {
		t.Error("new app should be enabled")
	}
	if a.Preview() == nil || a.PluginManager() == nil {
		t.Error("Preview() and PluginManager() must not be nil")
	}
}

func TestApp_ControlRequiresRunning(t *testing.T) {
	a := New(Config{PluginDir: t.TempDir()})
	defer a.Close()

	if err := a.Recalibrate(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Recalibrate() error = %v, want ErrNotRunning", err)
	}
	if err := a.CancelCalibration(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("CancelCalibration() error = %v, want ErrNotRunning", err)
	}

	// Pausing a stopped app only flips the flag.
	a.SetEnabled(false)
	if a.IsEnabled() {
		t.Error("IsEnabled() = true after SetEnabled(false)")
	}
	a.SetEnabled(true)
	if !a.IsEnabled() {
		t.Error("IsEnabled() = false after SetEnabled(true)")
	}
}

func TestApp_ApplyTuningWhileStopped(t *testing.T) {
	var events []string
	a := New(Config{
		PluginDir: t.TempDir(),
		OnEvent:   func(typ string, data any) { events = append(events, typ) },
	})
	defer a.Close()

	speed := 240.0
	cfg, err := a.ApplyTuning(config.Tuning{ScrollSpeed: &speed})
	if err != nil {
		t.Fatalf("ApplyTuning() error = %v", err)
	}
	if cfg.ScrollSpeed != speed || a.Config().ScrollSpeed != speed {
		t.Errorf("ScrollSpeed = %v / %v, want %v", cfg.ScrollSpeed, a.Config().ScrollSpeed, speed)
	}
	if len(events) != 1 || events[0] != EventConfig {
		t.Errorf("events = %v, want [%s]", events, EventConfig)
	}

	bad := -1.0
	if _, err := a.ApplyTuning(config.Tuning{ScrollSpeed: &bad}); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("ApplyTuning(bad) error = %v, want ErrInvalid", err)
	}
	if a.Config().ScrollSpeed != speed {
		t.Error("rejected tuning must not change the config")
	}
}

func TestNew_LoadsSavedTuning(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	mode := string(config.ModeGaze)
	if err := s.Settings().SetJSON(store.SettingTuning, config.Tuning{Mode: &mode}); err != nil {
		t.Fatalf("SetJSON() error = %v", err)
	}

	a := New(Config{Store: s, Control: config.DefaultConfig(), PluginDir: t.TempDir()})
	defer a.Close()

	if got := a.Config().Mode; got != config.ModeGaze {
		t.Errorf("Config().Mode = %q, want gaze", got)
	}
}

func TestNew_IgnoresInvalidSavedTuning(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	if err := s.Settings().Set(store.SettingTuning, `{"mode":"feet"}`); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	a := New(Config{Store: s, Control: config.DefaultConfig(), PluginDir: t.TempDir()})
	defer a.Close()

	if got := a.Config(); got != config.DefaultConfig() {
		t.Errorf("Config() = %+v, want defaults", got)
	}
}

func TestLandmarks(t *testing.T) {
	res := detector.Result{
		Hands: []detector.HandLandmarks{detector.PointingHand(0.4, 0.6)},
		Faces: []detector.FaceLandmarks{detector.LookingFace(0.5, 0.5)},
	}

	tests := []struct {
		mode config.Mode
		want int
	}{
		{config.ModeHand, len(res.HandFrame())},
		{config.ModeGaze, len(res.GazeFrame())},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			got := landmarks(res, tt.mode)
			if len(got) != tt.want || got.Empty() {
				t.Errorf("landmarks(%s) has %d names, want %d", tt.mode, len(got), tt.want)
			}
		})
	}

	if got := landmarks(detector.Result{}, config.ModeHand); !got.Empty() {
		t.Errorf("landmarks(empty) = %v, want empty", got)
	}
}

func TestApp_StartWithUnknownPlugin(t *testing.T) {
	a := New(Config{PluginDir: t.TempDir(), PointerPlugin: "missing"})
	defer a.Close()

	if err := a.Start(); err == nil {
		a.Stop()
		t.Fatal("Start() with an unknown pointer plugin should fail")
	}
	if a.Running() {
		t.Error("Running() = true after failed Start")
	}
}

type fixedDisplay struct{ w, h int }

func (d fixedDisplay) ScreenSize() (int, int) { return d.w, d.h }

func TestScreenSize(t *testing.T) {
	tests := []struct {
		name       string
		configured motion.Screen
		display    screenSizer
		want       motion.Screen
	}{
		{
			name:       "configured wins",
			configured: motion.Screen{Width: 1366, Height: 768},
			display:    fixedDisplay{3840, 2160},
			want:       motion.Screen{Width: 1366, Height: 768},
		},
		{
			name:    "display size",
			display: fixedDisplay{3840, 2160},
			want:    motion.Screen{Width: 3840, Height: 2160},
		},
		{
			name:    "headless display",
			display: fixedDisplay{0, 0},
			want:    DefaultScreen,
		},
		{
			name: "no display",
			want: DefaultScreen,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := screenSize(tt.configured, tt.display); got != tt.want {
				t.Errorf("screenSize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNew_KeepsConfiguredScreen(t *testing.T) {
	want := motion.Screen{Width: 2560, Height: 1440}
	a := New(Config{PluginDir: t.TempDir(), Screen: want})
	defer a.Close()

	if a.config.Screen != want {
		t.Errorf("Screen = %+v, want %+v", a.config.Screen, want)
	}
}
