// Package app wires the camera, the landmark detector and the pointer
// controller into a running pipeline.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/controller"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/motion"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/pointer"
	"github.com/ayusman/mudra/internal/store"
)

const (
	// commandBuffer is the depth of the loop's command queue.
	commandBuffer = 8
	// shutdownTimeout bounds the final button release.
	shutdownTimeout = time.Second
)

var (
	// ErrNotRunning is returned by control requests while the pipeline is stopped.
	ErrNotRunning = errors.New("pipeline is not running")
	// ErrBusy is returned when the command queue is full.
	ErrBusy = errors.New("pipeline is busy")
)

// DefaultScreen is used when neither the config nor the display give a size.
var DefaultScreen = motion.Screen{Width: 1920, Height: 1080}

// Config holds configuration options for the application.
type Config struct {
	Store  *store.Store
	Camera capture.Config
	// Control is the initial controller tuning.
	Control config.Config
	// Screen is the display size. Zero asks the display.
	Screen motion.Screen
	// IdleGate drops frames while nothing moves in front of the camera.
	IdleGate bool
	Activity capture.ActivityConfig

	PluginDir string
	// PointerPlugin names a plugin that replaces the built-in injector.
	PointerPlugin string

	// OnEvent receives calibration and config events. It is called from the
	// pipeline goroutine and must not block.
	OnEvent func(typ string, data any)
}

// Event types passed to Config.OnEvent.
const (
	EventCalibration = "calibration"
	EventConfig      = "config"
)

// App is the main application that turns camera frames into pointer actions.
type App struct {
	config    Config
	camera    capture.Camera
	detMu     sync.Mutex
	detector  detector.Detector
	detMode   config.Mode
	ownsDet   bool
	injector  pointer.Injector
	reader    motion.PositionReader
	pluginMgr *plugin.Manager
	process   *plugin.Process
	preview   *capture.Preview

	control  atomic.Pointer[config.Config]
	status   atomic.Pointer[controller.Status]
	enabled  atomic.Bool
	commands chan command

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
	frames *capture.Latest
	gate   *capture.ActivityGate
}

// New creates a new App instance with the given configuration. Invalid
// tuning falls back to the hand preset.
func New(cfg Config) *App {
	if err := cfg.Control.Validate(); err != nil {
		log.Printf("Invalid tuning (%v), using defaults", err)
		cfg.Control = config.DefaultConfig()
	}
	robot := pointer.NewRobot()
	cfg.Screen = screenSize(cfg.Screen, robot)
	a := &App{
		config:    cfg,
		camera:    capture.NewCamera(cfg.Camera),
		injector:  robot,
		reader:    robot,
		pluginMgr: plugin.NewManager(cfg.PluginDir),
		preview:   capture.NewPreview(),
		commands:  make(chan command, commandBuffer),
	}
	control := a.loadTuning(cfg.Control)
	a.control.Store(&control)
	a.detector = newDetector(control.Mode)
	a.detMode = control.Mode
	a.ownsDet = true
	a.enabled.Store(true)

	st := controller.Status{Mode: control.Mode}
	a.status.Store(&st)
	return a
}

// screenSizer reports the display size in pixels.
type screenSizer interface {
	ScreenSize() (int, int)
}

// screenSize keeps a configured size, then asks the display, then falls back
// to DefaultScreen.
func screenSize(configured motion.Screen, display screenSizer) motion.Screen {
	if configured.Width > 0 && configured.Height > 0 {
		return configured
	}
	if display != nil {
		if w, h := display.ScreenSize(); w > 0 && h > 0 {
			return motion.Screen{Width: w, Height: h}
		}
	}
	log.Printf("Screen size unknown, using %dx%d", DefaultScreen.Width, DefaultScreen.Height)
	return DefaultScreen
}

// newDetector tries MediaPipe first and falls back to the mock detector.
func newDetector(mode config.Mode) detector.Detector {
	dcfg := detector.DefaultConfig()
	if mode == config.ModeGaze {
		dcfg = detector.GazeConfig()
	}
	mp, err := detector.NewMediaPipeDetector(dcfg)
	if err != nil {
		log.Printf("MediaPipe not available (%v), using mock detector", err)
		return detector.NewMockDetector()
	}
	log.Printf("Using MediaPipe %s detection", mode)
	return mp
}

// SetCamera replaces the frame source. It must be called before Start.
func (a *App) SetCamera(c capture.Camera) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.camera = c
}

// SetDetector sets the landmark detector. The app no longer swaps
// detectors on mode changes.
func (a *App) SetDetector(d detector.Detector) {
	a.detMu.Lock()
	defer a.detMu.Unlock()
	if a.ownsDet && a.detector != nil {
		a.detector.Close()
	}
	a.detector = d
	a.ownsDet = false
}

// SetInjector replaces the pointer injector and cursor reader. A nil reader
// seeds the filter from the first target.
func (a *App) SetInjector(inj pointer.Injector, reader motion.PositionReader) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.injector = inj
	a.reader = reader
}

// DiscoverPlugins scans the plugin directory and loads available plugins.
func (a *App) DiscoverPlugins() error {
	return a.pluginMgr.Discover()
}

// PluginManager returns the plugin manager.
func (a *App) PluginManager() *plugin.Manager {
	return a.pluginMgr
}

// Preview returns the frame preview used by the MJPEG stream.
func (a *App) Preview() *capture.Preview {
	return a.preview
}

// Start opens the camera and begins the pipeline.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Don't start if already running
	if a.cancel != nil {
		return nil
	}

	if a.config.PointerPlugin != "" && a.process == nil {
		if err := a.startPlugin(); err != nil {
			return err
		}
	}

	if err := a.camera.Open(); err != nil {
		a.stopPlugin()
		return fmt.Errorf("open camera: %w", err)
	}

	frames := capture.NewLatest()
	var gate *capture.ActivityGate
	if a.config.IdleGate {
		gate = capture.NewActivityGate(a.config.Activity)
	}
	a.frames, a.gate = frames, gate

	control := *a.control.Load()
	ctrl := a.newController(control)
	det := a.detectorFor(control.Mode)

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	cam := a.camera
	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		capture.Pump(ctx, cam, frames, gate)
	}()
	go a.runLoop(ctx, ctrl, frames, det)

	log.Println("Pointer pipeline started")
	return nil
}

func (a *App) startPlugin() error {
	if err := a.pluginMgr.Discover(); err != nil {
		return fmt.Errorf("discover plugins: %w", err)
	}
	p, err := a.pluginMgr.Pointer(a.config.PointerPlugin)
	if err != nil {
		return err
	}
	proc, err := plugin.Start(p)
	if err != nil {
		return err
	}
	a.process = proc
	a.injector = proc
	a.reader = nil
	log.Printf("Using pointer plugin %s", proc.Name())
	return nil
}

func (a *App) stopPlugin() {
	if a.process == nil {
		return
	}
	if err := a.process.Close(); err != nil {
		log.Printf("Error closing pointer plugin: %v", err)
	}
	a.process = nil
}

// newController builds a controller for cfg and restores the newest stored
// calibration for its mode.
func (a *App) newController(cfg config.Config) *controller.Controller {
	ctrl := controller.New(controller.Options{
		Config:       cfg,
		Screen:       a.config.Screen,
		Reader:       a.reader,
		Dispatcher:   pointer.NewDispatcher(a.injector, cfg.DispatchTimeout, nil),
		OnCalibrated: a.saveCalibration(cfg.Mode),
	})

	if a.config.Store != nil {
		rec, err := a.config.Store.Calibrations().Latest(string(cfg.Mode))
		switch {
		case err == nil:
			ctrl.SetModel(rec.Model)
			log.Printf("Restored %s calibration %s", cfg.Mode, rec.ID)
		case !errors.Is(err, store.ErrNotFound):
			log.Printf("Failed to load calibration: %v", err)
		}
	}
	return ctrl
}

// Stop halts the pipeline, releases held buttons and frees the devices.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancel == nil {
		return
	}
	a.cancel()
	a.wg.Wait()
	a.cancel = nil

	// Commands queued after the loop exited are dropped.
	for len(a.commands) > 0 {
		<-a.commands
	}

	a.frames.Close()
	if a.gate != nil {
		a.gate.Close()
		a.gate = nil
	}

	if err := a.camera.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}
	a.stopPlugin()

	log.Println("Pointer pipeline stopped")
}

// Close stops the pipeline and releases the detector and preview.
func (a *App) Close() {
	a.Stop()

	a.detMu.Lock()
	defer a.detMu.Unlock()
	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			log.Printf("Error closing detector: %v", err)
		}
	}
	a.preview.Close()
}

// Running reports whether the pipeline is started.
func (a *App) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cancel != nil
}

// SetEnabled pauses or resumes pointer control. Pausing releases any held
// button.
func (a *App) SetEnabled(enabled bool) {
	if a.enabled.Swap(enabled) == enabled || enabled {
		return
	}
	if err := a.send(command{kind: cmdRelease}); err != nil && !errors.Is(err, ErrNotRunning) {
		log.Printf("Pause: %v", err)
	}
}

// IsEnabled returns whether pointer control is active.
func (a *App) IsEnabled() bool {
	return a.enabled.Load()
}

// Status returns the latest controller snapshot.
func (a *App) Status() controller.Status {
	return *a.status.Load()
}

// Config returns the active tuning.
func (a *App) Config() config.Config {
	return *a.control.Load()
}

// Recalibrate asks the pipeline to start a calibration.
func (a *App) Recalibrate() error {
	return a.send(command{kind: cmdRecalibrate})
}

// CancelCalibration asks the pipeline to drop a running calibration.
func (a *App) CancelCalibration() error {
	return a.send(command{kind: cmdCancel})
}

// ApplyTuning validates t against the active tuning and hands the result to
// the pipeline. While stopped the tuning is kept for the next Start.
func (a *App) ApplyTuning(t config.Tuning) (config.Config, error) {
	cfg, err := a.Config().Apply(t)
	if err != nil {
		return config.Config{}, err
	}
	a.control.Store(&cfg)

	if err := a.send(command{kind: cmdConfig, cfg: cfg}); err != nil && !errors.Is(err, ErrNotRunning) {
		return config.Config{}, err
	}
	a.emit(EventConfig, cfg.Tuning())
	return cfg, nil
}

func (a *App) send(cmd command) error {
	if !a.Running() {
		return ErrNotRunning
	}
	select {
	case a.commands <- cmd:
		return nil
	default:
		return ErrBusy
	}
}

func (a *App) emit(typ string, data any) {
	if a.config.OnEvent != nil {
		a.config.OnEvent(typ, data)
	}
}
