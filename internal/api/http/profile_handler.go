package http

import (
	"net/http"

	"tripmeet-backend/internal/service"
)

type ProfileHandler struct {
	profileSvc     service.ProfileService
	maxUploadBytes int64
}

func NewProfileHandler(profileSvc service.ProfileService, maxUploadBytes int64) *ProfileHandler {
	return &ProfileHandler{profileSvc: profileSvc, maxUploadBytes: maxUploadBytes}
}

func (h *ProfileHandler) GetMyProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.profileSvc.GetProfile(r.Context(), actorID(r))
	if err != nil {
		respondError(w, r, "load your profile", err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *ProfileHandler) UpdateMyProfile(w http.ResponseWriter, r *http.Request) {
	var in service.ProfileInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, r, "update your profile", err)
		return
	}
	p, err := h.profileSvc.UpdateProfile(r.Context(), actorID(r), in)
	if err != nil {
		respondError(w, r, "update your profile", err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *ProfileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	upload, _, cleanup, err := readUpload(w, r, h.maxUploadBytes)
	if err != nil {
		respondError(w, r, "upload avatar", err)
		return
	}
	defer cleanup()

	p, err := h.profileSvc.UploadAvatar(r.Context(), actorID(r), upload)
	if err != nil {
		respondError(w, r, "upload avatar", err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.profileSvc.GetProfile(r.Context(), pathVar(r, "id"))
	if err != nil {
		respondError(w, r, "load profile", err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// OnboardingStatus tells the client whether the profile gate is passed.
func (h *ProfileHandler) OnboardingStatus(w http.ResponseWriter, r *http.Request) {
	ok, err := h.profileSvc.IsOnboarded(r.Context(), actorID(r))
	if err != nil {
		respondError(w, r, "load your profile", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"onboarded": ok})
}
