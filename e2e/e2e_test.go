package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/controller"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/pointer"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
)

type stack struct {
	store    *store.Store
	app      *app.App
	detector *detector.MockDetector
	recorder *pointer.Recorder
	events   *server.EventsHandler
	ts       *httptest.Server
}

// newStack wires store, pipeline, events hub and HTTP server the way the
// binary does, with a synthetic camera, a mock detector and a recorder.
func newStack(t *testing.T) *stack {
	t.Helper()
	tmpDir := t.TempDir()

	s, err := store.New(filepath.Join(tmpDir, "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	frames := capture.MovingSquare(8, 160, 120)
	t.Cleanup(func() { capture.CloseAll(frames) })

	var a *app.App
	events := server.NewEventsHandler(func() any { return a.Status() })
	a = app.New(app.Config{
		Store:     s,
		Control:   config.DefaultConfig(),
		IdleGate:  true,
		PluginDir: filepath.Join(tmpDir, "plugins"),
		OnEvent:   events.Publish,
	})
	t.Cleanup(a.Close)

	a.SetCamera(capture.NewMockCamera(frames, true))
	det := detector.NewMockDetector()
	det.SetResult(detector.Result{Hands: []detector.HandLandmarks{detector.PointingHand(0.5, 0.5)}})
	a.SetDetector(det)
	rec := pointer.NewRecorder(960, 540)
	a.SetInjector(rec, rec)

	srv := server.New(server.Config{
		Store:      s,
		Controller: a,
		Preview:    a.Preview(),
		Events:     events,
	})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go events.Run(ctx)

	return &stack{store: s, app: a, detector: det, recorder: rec, events: events, ts: ts}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func getJSON(t *testing.T, client *http.Client, url string, v any) int {
	t.Helper()
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s error = %v", url, err)
	}
	defer resp.Body.Close()
	if v != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestE2E_CompleteWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	st := newStack(t)
	client := st.ts.Client()

	t.Run("StartPipeline", func(t *testing.T) {
		if err := st.app.Start(); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		waitFor(t, "tracking", func() bool {
			var status controller.Status
			return getJSON(t, client, st.ts.URL+"/api/status", &status) == http.StatusOK && status.Tracking
		})
	})

	t.Run("CursorMoves", func(t *testing.T) {
		waitFor(t, "a move", func() bool {
			for _, a := range st.recorder.Actions() {
				if a.Kind == pointer.KindMove {
					return true
				}
			}
			return false
		})
	})

	t.Run("TuneForQuickCalibration", func(t *testing.T) {
		body := `{"dwell_time": "10ms", "proximity": 0, "expected_samples": 0, "calibration_source": "targets"}`
		req, _ := http.NewRequest(http.MethodPut, st.ts.URL+"/api/config", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("PUT /api/config error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}

		var saved config.Tuning
		if err := st.store.Settings().GetJSON(store.SettingTuning, &saved); err != nil {
			t.Fatalf("tuning not persisted: %v", err)
		}
		if saved.DwellTime == nil || *saved.DwellTime != "10ms" {
			t.Errorf("persisted dwell_time = %v, want 10ms", saved.DwellTime)
		}
	})

	var calibrationID string
	t.Run("Calibrate", func(t *testing.T) {
		resp, err := client.Post(st.ts.URL+"/api/calibration", "application/json", nil)
		if err != nil {
			t.Fatalf("POST /api/calibration error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusAccepted {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusAccepted)
		}

		waitFor(t, "stored calibration", func() bool {
			var list struct {
				Calibrations []store.Calibration `json:"calibrations"`
			}
			getJSON(t, client, st.ts.URL+"/api/calibrations", &list)
			if len(list.Calibrations) == 0 {
				return false
			}
			calibrationID = list.Calibrations[0].ID
			return true
		})
	})

	t.Run("CalibrationDetail", func(t *testing.T) {
		var c store.Calibration
		if code := getJSON(t, client, st.ts.URL+"/api/calibrations/"+calibrationID, &c); code != http.StatusOK {
			t.Fatalf("status = %d, want %d", code, http.StatusOK)
		}
		if c.Mode != string(config.ModeHand) || !c.Model.Valid || len(c.Points) != 5 {
			t.Errorf("calibration = %+v, want a valid hand calibration with 5 points", c)
		}
	})

	t.Run("APIStillWorks", func(t *testing.T) {
		if code := getJSON(t, client, st.ts.URL+"/api/health", nil); code != http.StatusOK {
			t.Errorf("health check failed after pipeline operations: %d", code)
		}
	})

	t.Run("StopReleases", func(t *testing.T) {
		st.app.Stop()
		var status controller.Status
		getJSON(t, client, st.ts.URL+"/api/status", &status)
		if status.Gesture.PrimaryHeld || status.Gesture.SecondaryHeld {
			t.Errorf("buttons held after stop: %+v", status.Gesture)
		}
	})
}

func TestE2E_EventsStream(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	st := newStack(t)
	wsURL := "ws" + strings.TrimPrefix(st.ts.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	waitFor(t, "client registration", func() bool { return st.events.Clients() == 1 })
	if err := st.app.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	seen := map[string]bool{}
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for !seen[server.EventStatus] {
		var ev server.Event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("ReadJSON() error = %v", err)
		}
		seen[ev.Type] = true
	}

	scale := 1.5
	if _, err := st.app.ApplyTuning(config.Tuning{MovementScale: &scale}); err != nil {
		t.Fatalf("ApplyTuning() error = %v", err)
	}
	for !seen[server.EventConfig] {
		var ev server.Event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("ReadJSON() error = %v", err)
		}
		seen[ev.Type] = true
	}
}

func TestE2E_StreamServesPreview(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	st := newStack(t)
	if err := st.app.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, st.ts.URL+"/api/stream", nil)
	resp, err := st.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("GET /api/stream error = %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "multipart/x-mixed-replace") {
		t.Fatalf("Content-Type = %q, want multipart/x-mixed-replace", ct)
	}
	buf := make([]byte, 512)
	n, err := resp.Body.Read(buf)
	if err != nil && n == 0 {
		t.Fatalf("read stream: %v", err)
	}
	if !strings.Contains(string(buf[:n]), "image/jpeg") {
		t.Errorf("first part does not carry a JPEG: %q", buf[:n])
	}
}
