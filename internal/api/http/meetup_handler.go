package http

import (
	"net/http"

	"tripmeet-backend/internal/domain"
	"tripmeet-backend/internal/service"
)

type MeetupHandler struct {
	meetupSvc service.MeetupService
}

func NewMeetupHandler(meetupSvc service.MeetupService) *MeetupHandler {
	return &MeetupHandler{meetupSvc: meetupSvc}
}

func (h *MeetupHandler) SearchMeetups(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.MeetupFilter{
		Destination: q.Get("destination"),
		From:        q.Get("from"),
		To:          q.Get("to"),
		Visibility:  domain.Visibility(q.Get("visibility")),
	}
	var err error
	if filter.Limit, err = queryInt(r, "limit", 0); err != nil {
		respondError(w, r, "search meetups", err)
		return
	}
	if filter.Offset, err = queryInt(r, "offset", 0); err != nil {
		respondError(w, r, "search meetups", err)
		return
	}

	meetups, err := h.meetupSvc.SearchMeetups(r.Context(), filter)
	if err != nil {
		respondError(w, r, "search meetups", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"meetups": meetups})
}

func (h *MeetupHandler) MyMeetups(w http.ResponseWriter, r *http.Request) {
	meetups, err := h.meetupSvc.ListMyMeetups(r.Context(), actorID(r))
	if err != nil {
		respondError(w, r, "load your meetups", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"meetups": meetups})
}

func (h *MeetupHandler) CreateMeetup(w http.ResponseWriter, r *http.Request) {
	var in service.MeetupInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, r, "create meetup", err)
		return
	}
	m, err := h.meetupSvc.CreateMeetup(r.Context(), actorID(r), in)
	if err != nil {
		respondError(w, r, "create meetup", err)
		return
	}
	respondJSON(w, http.StatusCreated, m)
}

func (h *MeetupHandler) GetMeetup(w http.ResponseWriter, r *http.Request) {
	m, err := h.meetupSvc.GetMeetup(r.Context(), pathVar(r, "id"))
	if err != nil {
		respondError(w, r, "load meetup", err)
		return
	}
	respondJSON(w, http.StatusOK, m)
}

func (h *MeetupHandler) UpdateMeetup(w http.ResponseWriter, r *http.Request) {
	var in service.MeetupInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, r, "update meetup", err)
		return
	}
	m, err := h.meetupSvc.UpdateMeetup(r.Context(), actorID(r), pathVar(r, "id"), in)
	if err != nil {
		respondError(w, r, "update meetup", err)
		return
	}
	respondJSON(w, http.StatusOK, m)
}

func (h *MeetupHandler) DeleteMeetup(w http.ResponseWriter, r *http.Request) {
	if err := h.meetupSvc.DeleteMeetup(r.Context(), actorID(r), pathVar(r, "id")); err != nil {
		respondError(w, r, "delete meetup", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
