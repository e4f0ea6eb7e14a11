package http

import (
	"net/http"

	"tripmeet-backend/internal/domain"
	"tripmeet-backend/internal/service"
)

type MembershipHandler struct {
	memberSvc service.MembershipService
}

func NewMembershipHandler(memberSvc service.MembershipService) *MembershipHandler {
	return &MembershipHandler{memberSvc: memberSvc}
}

type joinRequestBody struct {
	Message string `json:"message"`
}

func (h *MembershipHandler) JoinMeetup(w http.ResponseWriter, r *http.Request) {
	var body joinRequestBody
	if err := decodeOptionalJSON(w, r, &body); err != nil {
		respondError(w, r, "join meetup", err)
		return
	}
	res, err := h.memberSvc.Join(r.Context(), actorID(r), pathVar(r, "id"), body.Message)
	if err != nil {
		respondError(w, r, "join meetup", err)
		return
	}
	status := http.StatusOK
	if res.Status == domain.MembershipStatusRequestPending {
		status = http.StatusAccepted
	}
	respondJSON(w, status, res)
}

func (h *MembershipHandler) LeaveMeetup(w http.ResponseWriter, r *http.Request) {
	if err := h.memberSvc.Leave(r.Context(), actorID(r), pathVar(r, "id")); err != nil {
		respondError(w, r, "leave meetup", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MembershipHandler) MembershipStatus(w http.ResponseWriter, r *http.Request) {
	res, err := h.memberSvc.Status(r.Context(), actorID(r), pathVar(r, "id"))
	if err != nil {
		respondError(w, r, "load membership", err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (h *MembershipHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.memberSvc.ListMembers(r.Context(), actorID(r), pathVar(r, "id"))
	if err != nil {
		respondError(w, r, "load members", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"members": members})
}

func (h *MembershipHandler) ListJoinRequests(w http.ResponseWriter, r *http.Request) {
	status := domain.JoinRequestStatus(r.URL.Query().Get("status"))
	switch status {
	case "", domain.JoinRequestStatusPending, domain.JoinRequestStatusApproved, domain.JoinRequestStatusRejected:
	default:
		respondError(w, r, "load join requests", domain.NewValidationError("status", "must be one of pending approved rejected"))
		return
	}
	requests, err := h.memberSvc.ListRequests(r.Context(), actorID(r), pathVar(r, "id"), status)
	if err != nil {
		respondError(w, r, "load join requests", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"requests": requests})
}

func (h *MembershipHandler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, true)
}

func (h *MembershipHandler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, false)
}

func (h *MembershipHandler) decide(w http.ResponseWriter, r *http.Request, approve bool) {
	action := "reject request"
	if approve {
		action = "approve request"
	}
	req, err := h.memberSvc.DecideRequest(r.Context(), actorID(r), pathVar(r, "id"), approve)
	if err != nil {
		respondError(w, r, action, err)
		return
	}
	respondJSON(w, http.StatusOK, req)
}
