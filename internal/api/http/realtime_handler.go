package http

import (
	"net/http"

	"tripmeet-backend/internal/realtime"
)

// RealtimeHandler upgrades authenticated requests onto the change feed.
type RealtimeHandler struct {
	hub *realtime.Hub
}

func NewRealtimeHandler(hub *realtime.Hub) *RealtimeHandler {
	return &RealtimeHandler{hub: hub}
}

func (h *RealtimeHandler) Realtime(w http.ResponseWriter, r *http.Request) {
	h.hub.ServeWs(w, r, actorID(r))
}
