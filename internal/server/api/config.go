package api

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/store"
)

// maxTuningBody bounds a PUT /api/config request.
const maxTuningBody = 1 << 20

// ConfigHandler serves /api/config. PUT applies a partial tuning and, when a
// store is configured, persists the result so it survives a restart.
type ConfigHandler struct {
	ctrl  Controller
	store *store.Store
}

// NewConfigHandler creates a ConfigHandler. The store may be nil.
func NewConfigHandler(c Controller, s *store.Store) *ConfigHandler {
	return &ConfigHandler{ctrl: c, store: s}
}

type configResponse struct {
	Tuning  config.Tuning `json:"tuning"`
	Presets []string      `json:"presets"`
}

func (h *ConfigHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, configResponse{
			Tuning:  h.ctrl.Config().Tuning(),
			Presets: config.PresetNames(),
		})
	case http.MethodPut:
		h.put(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ConfigHandler) put(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxTuningBody))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return
	}

	t, err := config.ParseTuning(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	cfg, err := h.ctrl.ApplyTuning(t)
	if err != nil {
		if errors.Is(err, config.ErrInvalid) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	if h.store != nil {
		if err := h.store.Settings().SetJSON(store.SettingTuning, cfg.Tuning()); err != nil {
			log.Printf("api: persist tuning: %v", err)
		}
	}

	writeJSON(w, http.StatusOK, configResponse{
		Tuning:  cfg.Tuning(),
		Presets: config.PresetNames(),
	})
}
