package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayusman/mudra/internal/calibration"
	"github.com/ayusman/mudra/internal/controller"
	"github.com/ayusman/mudra/internal/store"
)

// CalibrationHandler serves /api/calibration. GET reports the running
// session and the active model, POST starts a recalibration and DELETE
// cancels it.
type CalibrationHandler struct {
	ctrl  Controller
	store *store.Store
}

// NewCalibrationHandler creates a CalibrationHandler. The store may be nil.
func NewCalibrationHandler(c Controller, s *store.Store) *CalibrationHandler {
	return &CalibrationHandler{ctrl: c, store: s}
}

type calibrationResponse struct {
	Calibrating bool                          `json:"calibrating"`
	Progress    *controller.CalibrationStatus `json:"progress,omitempty"`
	Model       *calibration.Model            `json:"model,omitempty"`
	Latest      *store.Calibration            `json:"latest,omitempty"`
}

func (h *CalibrationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPost:
		if err := h.ctrl.Recalibrate(); err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeJSON(w, http.StatusAccepted, h.current())
	case http.MethodDelete:
		if err := h.ctrl.CancelCalibration(); err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *CalibrationHandler) current() calibrationResponse {
	st := h.ctrl.Status()
	return calibrationResponse{
		Calibrating: st.Calibration != nil,
		Progress:    st.Calibration,
		Model:       st.Model,
	}
}

func (h *CalibrationHandler) get(w http.ResponseWriter, r *http.Request) {
	resp := h.current()
	if h.store != nil {
		mode := string(h.ctrl.Config().Mode)
		rec, err := h.store.Calibrations().Latest(mode)
		switch {
		case err == nil:
			resp.Latest = rec
		case !errors.Is(err, store.ErrNotFound):
			log.Printf("api: latest calibration: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to load calibration")
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// HistoryHandler serves /api/calibrations and /api/calibrations/{id}.
type HistoryHandler struct {
	store *store.Store
}

func NewHistoryHandler(s *store.Store) *HistoryHandler {
	return &HistoryHandler{store: s}
}

// defaultHistoryLimit caps the list when no limit is given.
const defaultHistoryLimit = 50

type listCalibrationsResponse struct {
	Calibrations []*store.Calibration `json:"calibrations"`
}

func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/calibrations")
	id := strings.TrimPrefix(path, "/")

	if id == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, id)
	case http.MethodDelete:
		h.delete(w, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *HistoryHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	calibrations, err := h.store.Calibrations().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list calibrations")
		return
	}
	if calibrations == nil {
		calibrations = []*store.Calibration{}
	}
	writeJSON(w, http.StatusOK, listCalibrationsResponse{Calibrations: calibrations})
}

func (h *HistoryHandler) get(w http.ResponseWriter, id string) {
	c, err := h.store.Calibrations().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Calibration not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get calibration")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *HistoryHandler) delete(w http.ResponseWriter, id string) {
	if err := h.store.Calibrations().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Calibration not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete calibration")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
