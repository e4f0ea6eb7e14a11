package domain

import "time"

type Visibility string

const (
	VisibilityOpen   Visibility = "open"
	VisibilityLocked Visibility = "locked"
)

// UnlimitedMembers is the max_members sentinel meaning no capacity limit.
const UnlimitedMembers = 999999

type Meetup struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Destination  string     `json:"destination"`
	StartDate    string     `json:"start_date"` // YYYY-MM-DD
	EndDate      string     `json:"end_date"`   // YYYY-MM-DD
	MeetingPoint string     `json:"meeting_point,omitempty"`
	Description  string     `json:"description,omitempty"`
	Visibility   Visibility `json:"visibility"`
	MaxMembers   int        `json:"max_members"`
	CreatorID    string     `json:"creator_id"`
	IsPaid       bool       `json:"is_paid"`
	AmountCents  *int32     `json:"amount_cents,omitempty"`
	GroupLink    string     `json:"group_link,omitempty"`
	MemberCount  int        `json:"member_count"` // Populated on reads
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsUnlimited reports whether the meetup has no member cap.
func (m *Meetup) IsUnlimited() bool {
	return m.MaxMembers >= UnlimitedMembers
}

// HasCapacity reports whether one more member fits given the current count.
func (m *Meetup) HasCapacity(memberCount int) bool {
	if m.IsUnlimited() {
		return true
	}
	return memberCount < m.MaxMembers
}

func (m *Meetup) IsCreator(userID string) bool {
	return userID != "" && m.CreatorID == userID
}

// MeetupFilter narrows a meetup search. Zero values are ignored.
type MeetupFilter struct {
	Destination string
	From        string // YYYY-MM-DD, meetups ending on or after
	To          string // YYYY-MM-DD, meetups starting on or before
	Visibility  Visibility
	Limit       int
	Offset      int
}
