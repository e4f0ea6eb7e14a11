package domain

import "time"

type RSVP string

const (
	RSVPGoing    RSVP = "going"
	RSVPNotGoing RSVP = "not_going"
	RSVPMaybe    RSVP = "maybe"
)

func (r RSVP) Valid() bool {
	switch r {
	case RSVPGoing, RSVPNotGoing, RSVPMaybe:
		return true
	}
	return false
}

type Activity struct {
	ID          string             `json:"id"`
	MeetupID    string             `json:"meetup_id"`
	CreatorID   string             `json:"creator_id"`
	Title       string             `json:"title"`
	Description string             `json:"description,omitempty"`
	ScheduledAt *time.Time         `json:"scheduled_at,omitempty"`
	Location    string             `json:"location,omitempty"`
	CreatorName string             `json:"creator_name,omitempty"`
	Responses   []ActivityResponse `json:"responses"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

type ActivityResponse struct {
	ID         string    `json:"id"`
	ActivityID string    `json:"activity_id"`
	UserID     string    `json:"user_id"`
	Response   RSVP      `json:"response"`
	UserName   string    `json:"user_name,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Tally counts responses per kind.
func (a *Activity) Tally() map[RSVP]int {
	counts := map[RSVP]int{RSVPGoing: 0, RSVPNotGoing: 0, RSVPMaybe: 0}
	for _, r := range a.Responses {
		counts[r.Response]++
	}
	return counts
}
