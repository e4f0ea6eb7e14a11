package domain

import "time"

type Profile struct {
	ID               string    `json:"id"`
	Email            string    `json:"-"`
	Username         string    `json:"username,omitempty"`
	Name             string    `json:"name,omitempty"`
	AvatarURL        string    `json:"avatar_url,omitempty"`
	Bio              string    `json:"bio,omitempty"`
	DateOfBirth      string    `json:"date_of_birth,omitempty"` // YYYY-MM-DD
	Location         string    `json:"location,omitempty"`
	SocialHandle     string    `json:"social_handle,omitempty"`
	Languages        []string  `json:"languages"`
	VisitedCountries []string  `json:"visited_countries"`
	Interests        []string  `json:"interests"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// IsOnboarded is the single completeness predicate: name and date of birth set.
func (p *Profile) IsOnboarded() bool {
	return p != nil && p.Name != "" && p.DateOfBirth != ""
}

// DisplayName is what other users see as the author or actor.
func (p *Profile) DisplayName() string {
	switch {
	case p == nil:
		return "Someone"
	case p.Name != "":
		return p.Name
	case p.Username != "":
		return p.Username
	}
	return "Someone"
}
