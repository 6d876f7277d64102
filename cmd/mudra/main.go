package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/motion"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/tray"
)

func main() {
	var (
		addr          = flag.String("addr", ":8080", "HTTP listen address")
		cameraID      = flag.Int("camera", 0, "camera device index")
		screenSize    = flag.String("screen", "", "display size as WIDTHxHEIGHT (default: detected)")
		preset        = flag.String("preset", "hand", "tuning preset: "+strings.Join(config.PresetNames(), ", "))
		mode          = flag.String("mode", "", "override the preset mode (hand or gaze)")
		configPath    = flag.String("config", "", "JSON tuning file applied on top of the preset")
		dbPath        = flag.String("db", "", "database path (default ~/.mudra/mudra.db)")
		pluginDir     = flag.String("plugins", "", "plugin directory (default ~/.mudra/plugins)")
		pointerPlugin = flag.String("pointer-plugin", "", "plugin that injects pointer events instead of robotgo")
		idleGate      = flag.Bool("idle-gate", true, "skip detection while the scene is still")
		noTray        = flag.Bool("no-tray", false, "run without the system tray")
	)
	flag.Parse()

	fmt.Println("Mudra - Hand and Gaze Pointer Control")

	control, err := loadControl(*preset, *mode, *configPath)
	if err != nil {
		log.Fatalf("Invalid tuning: %v", err)
	}

	var screen motion.Screen
	if *screenSize != "" {
		if screen, err = motion.ParseScreen(*screenSize); err != nil {
			log.Fatalf("Invalid -screen: %v", err)
		}
	}

	dataDir, err := dataDir()
	if err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}
	if *dbPath == "" {
		*dbPath = filepath.Join(dataDir, "mudra.db")
	}
	if *pluginDir == "" {
		*pluginDir = filepath.Join(dataDir, "plugins")
	}

	st, err := store.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	var a *app.App
	events := server.NewEventsHandler(func() any { return a.Status() })

	camCfg := capture.DefaultConfig()
	camCfg.DeviceID = *cameraID
	a = app.New(app.Config{
		Store:         st,
		Camera:        camCfg,
		Screen:        screen,
		Control:       control,
		IdleGate:      *idleGate,
		Activity:      capture.DefaultActivityConfig(),
		PluginDir:     *pluginDir,
		PointerPlugin: *pointerPlugin,
		OnEvent:       events.Publish,
	})
	defer a.Close()

	if err := a.DiscoverPlugins(); err != nil {
		log.Printf("Plugin discovery failed: %v", err)
	}
	for _, p := range a.PluginManager().List() {
		fmt.Printf("Plugin %s %s: %v\n", p.Manifest.Name, p.Manifest.Version, p.Manifest.Capabilities)
	}

	webDir := findWebDir()
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	srv := server.New(server.Config{
		StaticDir:  webDir,
		Store:      st,
		Controller: a,
		Preview:    a.Preview(),
		Events:     events,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go events.Run(ctx)
	go func() {
		fmt.Printf("Starting server on %s\n", *addr)
		if err := srv.ListenAndServe(*addr); err != nil {
			log.Printf("Server failed: %v", err)
			cancel()
		}
	}()

	if err := a.Start(); err != nil {
		log.Fatalf("Failed to start pipeline: %v", err)
	}

	if *noTray {
		<-ctx.Done()
	} else {
		runTray(ctx, cancel, a, *addr)
	}

	log.Println("Shutting down")
	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
	a.Stop()
}

func loadControl(preset, mode, path string) (config.Config, error) {
	cfg, err := config.Preset(preset)
	if err != nil {
		return config.Config{}, err
	}
	if mode != "" {
		cfg.Mode = config.Mode(mode)
		if err := cfg.Validate(); err != nil {
			return config.Config{}, err
		}
	}
	if path != "" {
		return config.Load(path, cfg)
	}
	return cfg, nil
}

// dataDir returns ~/.mudra, creating it if needed.
func dataDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(homeDir, ".mudra")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// runTray blocks in the tray event loop until Quit is picked or ctx is done.
func runTray(ctx context.Context, cancel context.CancelFunc, a *app.App, addr string) {
	t := tray.New()
	t.OnToggle(a.SetEnabled)
	t.OnRecalibrate(func() {
		if err := a.Recalibrate(); err != nil {
			log.Printf("Recalibrate: %v", err)
		}
	})
	t.OnSettings(func() {
		if err := openBrowser(settingsURL(addr)); err != nil {
			log.Printf("Failed to open settings: %v", err)
		}
	})
	t.OnQuit(cancel)

	go func() {
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				t.Quit()
				return
			case <-ticker.C:
				t.SetStatus(a.Status())
			}
		}
	}()

	t.Run()
}

func settingsURL(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.mudra/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".mudra", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
