package http

import (
	"net/http"

	"tripmeet-backend/internal/domain"
	"tripmeet-backend/internal/service"
)

type ActivityHandler struct {
	activitySvc service.ActivityService
}

func NewActivityHandler(activitySvc service.ActivityService) *ActivityHandler {
	return &ActivityHandler{activitySvc: activitySvc}
}

type respondBody struct {
	Response domain.RSVP `json:"response"`
}

func (h *ActivityHandler) ListActivities(w http.ResponseWriter, r *http.Request) {
	activities, err := h.activitySvc.ListActivities(r.Context(), actorID(r), pathVar(r, "id"))
	if err != nil {
		respondError(w, r, "load activities", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"activities": activities})
}

func (h *ActivityHandler) CreateActivity(w http.ResponseWriter, r *http.Request) {
	var in service.ActivityInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, r, "create activity", err)
		return
	}
	a, err := h.activitySvc.CreateActivity(r.Context(), actorID(r), pathVar(r, "id"), in)
	if err != nil {
		respondError(w, r, "create activity", err)
		return
	}
	respondJSON(w, http.StatusCreated, a)
}

func (h *ActivityHandler) UpdateActivity(w http.ResponseWriter, r *http.Request) {
	var in service.ActivityInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, r, "update activity", err)
		return
	}
	a, err := h.activitySvc.UpdateActivity(r.Context(), actorID(r), pathVar(r, "id"), in)
	if err != nil {
		respondError(w, r, "update activity", err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

func (h *ActivityHandler) DeleteActivity(w http.ResponseWriter, r *http.Request) {
	if err := h.activitySvc.DeleteActivity(r.Context(), actorID(r), pathVar(r, "id")); err != nil {
		respondError(w, r, "delete activity", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ActivityHandler) RespondActivity(w http.ResponseWriter, r *http.Request) {
	var body respondBody
	if err := decodeJSON(w, r, &body); err != nil {
		respondError(w, r, "save response", err)
		return
	}
	resp, err := h.activitySvc.Respond(r.Context(), actorID(r), pathVar(r, "id"), body.Response)
	if err != nil {
		respondError(w, r, "save response", err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *ActivityHandler) ClearResponse(w http.ResponseWriter, r *http.Request) {
	if err := h.activitySvc.ClearResponse(r.Context(), actorID(r), pathVar(r, "id")); err != nil {
		respondError(w, r, "clear response", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
