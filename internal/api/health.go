package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// HealthHandler reports whether the session store is reachable.
type HealthHandler struct {
	sessions Pinger
}

func NewHealthHandler(sessions Pinger) *HealthHandler {
	return &HealthHandler{sessions: sessions}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "healthy", Session: "ok", Timestamp: time.Now().Unix()}
	status := http.StatusOK
	if err := h.sessions.Ping(ctx); err != nil {
		resp.Status = "unhealthy"
		resp.Session = err.Error()
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
