package handlers

import (
	"context"
	"net/http"
	"time"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	db Pinger
}

// NewHealthHandler reports on db when it is non-nil. The in-memory store
// has nothing to ping.
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

type dbHealth struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type healthResponse struct {
	Status string   `json:"status"`
	DB     dbHealth `json:"db"`
}

// Health godoc
// @Tags System
// @Summary Liveness and database reachability
// @Produce json
// @Success 200 {object} healthResponse
// @Failure 503 {object} healthResponse
// @Router /health [get]
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok", DB: dbHealth{Status: "memory"}})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.PingContext(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "degraded", DB: dbHealth{Status: "down", Error: err.Error()}})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", DB: dbHealth{Status: "ok"}})
}

func (h *HealthHandler) Root(w http.ResponseWriter, _ *http.Request) {
	writeJSONMessage(w, http.StatusOK, "venue permits API")
}
