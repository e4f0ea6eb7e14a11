package domain

import "time"

type Membership struct {
	MeetupID  string    `json:"meetup_id"`
	UserID    string    `json:"user_id"`
	JoinedAt  time.Time `json:"joined_at"`
	Name      string    `json:"name,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
}

type MembershipStatus string

const (
	MembershipStatusNone           MembershipStatus = "none"
	MembershipStatusMember         MembershipStatus = "member"
	MembershipStatusRequestPending MembershipStatus = "request-pending"
	MembershipStatusRejected       MembershipStatus = "rejected"
)

// JoinResult is the outcome of a join attempt.
type JoinResult struct {
	Status    MembershipStatus `json:"status"`
	RequestID string           `json:"request_id,omitempty"`
}
