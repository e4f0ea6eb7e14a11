package domain

import "time"

type JoinRequestStatus string

const (
	JoinRequestStatusPending  JoinRequestStatus = "pending"
	JoinRequestStatusApproved JoinRequestStatus = "approved"
	JoinRequestStatusRejected JoinRequestStatus = "rejected"
)

type JoinRequest struct {
	ID        string            `json:"id"`
	MeetupID  string            `json:"meetup_id"`
	UserID    string            `json:"user_id"`
	Message   string            `json:"message,omitempty"`
	Status    JoinRequestStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	DecidedAt *time.Time        `json:"decided_at,omitempty"`

	// Requester profile, populated on listing
	RequesterName   string `json:"requester_name,omitempty"`
	RequesterAvatar string `json:"requester_avatar,omitempty"`
}

// CanTransition reports whether the request may move to the given status.
// Only pending requests are decided; a rejected request may be resubmitted.
func (r *JoinRequest) CanTransition(to JoinRequestStatus) bool {
	switch r.Status {
	case JoinRequestStatusPending:
		return to == JoinRequestStatusApproved || to == JoinRequestStatusRejected
	case JoinRequestStatusRejected:
		return to == JoinRequestStatusPending
	}
	return false
}
