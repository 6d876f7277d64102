package api

import "net/http"

// StatusHandler serves GET /api/status.
type StatusHandler struct {
	ctrl Controller
}

func NewStatusHandler(c Controller) *StatusHandler {
	return &StatusHandler{ctrl: c}
}

func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.ctrl.Status())
}
