package http

import (
	"net/http"

	"tripmeet-backend/internal/service"
)

type NotificationHandler struct {
	noteSvc service.NotificationService
}

func NewNotificationHandler(noteSvc service.NotificationService) *NotificationHandler {
	return &NotificationHandler{noteSvc: noteSvc}
}

func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		respondError(w, r, "load notifications", err)
		return
	}
	pageSize, err := queryInt(r, "page_size", 20)
	if err != nil {
		respondError(w, r, "load notifications", err)
		return
	}

	notes, total, err := h.noteSvc.GetNotifications(r.Context(), actorID(r), page, pageSize)
	if err != nil {
		respondError(w, r, "load notifications", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"notifications": notes, "total_count": total})
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.noteSvc.UnreadCount(r.Context(), actorID(r))
	if err != nil {
		respondError(w, r, "load notifications", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"unread": n})
}

func (h *NotificationHandler) MarkNotification(w http.ResponseWriter, r *http.Request) {
	n, err := h.noteSvc.MarkAsRead(r.Context(), actorID(r), pathVar(r, "id"))
	if err != nil {
		respondError(w, r, "mark notification as read", err)
		return
	}
	respondJSON(w, http.StatusOK, n)
}

func (h *NotificationHandler) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	if err := h.noteSvc.DeleteNotification(r.Context(), actorID(r), pathVar(r, "id")); err != nil {
		respondError(w, r, "delete notification", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
