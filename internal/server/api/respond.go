// Package api provides the HTTP handlers for the pointer controller.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/controller"
)

// Controller is the running pointer controller as seen by the API.
type Controller interface {
	Status() controller.Status
	Config() config.Config
	// Recalibrate starts a new calibration. It replaces one in progress.
	Recalibrate() error
	CancelCalibration() error
	// ApplyTuning overlays t on the current config and returns the result.
	ApplyTuning(t config.Tuning) (config.Config, error)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
