package api

import (
	"context"
	"net/http"
	"time"

	"github.com/sandevgo/datacom/internal/core"
)

type healthResponse struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Checks    map[string]string `json:"checks"`
	Timestamp string            `json:"timestamp"`
}

// Health reports store reachability and whether the model has been loaded.
// An unloaded model is not a failure: it loads on the first turn.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:    "healthy",
		Service:   core.AppName,
		Version:   core.AppVersion,
		Checks:    map[string]string{},
		Timestamp: h.now().UTC().Format(time.RFC3339),
	}

	status := http.StatusOK

	if err := h.repo.Ping(ctx); err != nil {
		resp.Checks["store"] = "unavailable"
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	} else {
		resp.Checks["store"] = "ok"
	}

	if h.model != nil && h.model.IsReady() {
		resp.Checks["model"] = "ready"
	} else {
		resp.Checks["model"] = "not_loaded"
	}

	h.JSON(w, status, resp)
}
