package http

import (
	"log/slog"
	"net/http"

	"cleanbot/internal/config"
	"cleanbot/internal/websocket"
)

// WSHandler upgrades progress-stream connections onto the hub.
type WSHandler struct {
	hub    *websocket.Hub
	cfg    config.WebSocketConfig
	origin func(*http.Request) bool
	logger *slog.Logger
}

// NewWSHandler creates the handler. allowedOrigins follows the CORS
// configuration; "*" admits every origin.
func NewWSHandler(hub *websocket.Hub, cfg config.WebSocketConfig, allowedOrigins []string, logger *slog.Logger) *WSHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	allowAll := false
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = true
	}
	return &WSHandler{
		hub: hub,
		cfg: cfg,
		origin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowAll || allowed[origin]
		},
		logger: logger.With(slog.String("component", "ws_handler")),
	}
}

// ServeHTTP handles GET /ws.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := websocket.ServeWS(h.hub, h.cfg, h.logger, h.origin, w, r); err != nil {
		// Upgrade failures already wrote a response via the upgrader;
		// a stopped hub just closes the fresh connection.
		h.logger.WarnContext(r.Context(), "websocket connection failed",
			slog.String("error", err.Error()))
	}
}
