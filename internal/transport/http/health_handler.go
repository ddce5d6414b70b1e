package http

import (
	"net/http"
	"time"

	"github.com/go-chi/render"
)

// version is stamped at build time via -ldflags.
var version = "dev"

var startTime = time.Now()

// HealthResponse is the liveness payload.
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// Healthz handles GET /api/healthz. The service holds all state in
// memory, so liveness is the only meaningful check.
func Healthz(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, HealthResponse{
		Status:        "ok",
		Version:       version,
		UptimeSeconds: int64(time.Since(startTime).Seconds()),
	})
}
