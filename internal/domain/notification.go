package domain

import "time"

type NotificationKind string

const (
	NotificationKindMessage         NotificationKind = "message"
	NotificationKindActivity        NotificationKind = "activity"
	NotificationKindJoinRequest     NotificationKind = "join_request"
	NotificationKindRequestAccepted NotificationKind = "request_accepted"
)

type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Kind      NotificationKind `json:"kind"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	MeetupID  string           `json:"meetup_id,omitempty"`
	IsRead    bool             `json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}
