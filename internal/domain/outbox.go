package domain

import "time"

// FanoutTask is a pending notification fan-out committed alongside the row
// that triggered it. RecipientIDs is the member snapshot taken at insert time.
type FanoutTask struct {
	ID           int64            `json:"id"`
	Kind         NotificationKind `json:"kind"`
	MeetupID     string           `json:"meetup_id"`
	ActorID      string           `json:"actor_id"`
	SubjectID    string           `json:"subject_id"`
	SubjectTitle string           `json:"subject_title,omitempty"`
	Preview      string           `json:"preview,omitempty"`
	RecipientIDs []string         `json:"recipient_ids"`
	Attempts     int              `json:"attempts"`
	LastError    string           `json:"last_error,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	ProcessedAt  *time.Time       `json:"processed_at,omitempty"`
}
