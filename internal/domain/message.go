package domain

import "time"

type MessageType string

const (
	MessageTypeText     MessageType = "text"
	MessageTypeImage    MessageType = "image"
	MessageTypeFile     MessageType = "file"
	MessageTypeLocation MessageType = "location"
)

const (
	MaxMessageLength = 5000
	PreviewLength    = 100
)

type Message struct {
	ID          string      `json:"id"`
	MeetupID    string      `json:"meetup_id,omitempty"` // empty for the community channel
	AuthorID    string      `json:"author_id"`
	Type        MessageType `json:"type"`
	Content     string      `json:"content"`
	FileURL     string      `json:"file_url,omitempty"`
	FileName    string      `json:"file_name,omitempty"`
	FileSize    int64       `json:"file_size,omitempty"`
	ClientToken string      `json:"client_token,omitempty"`
	IsPinned    bool        `json:"is_pinned"`
	PinnedBy    string      `json:"pinned_by,omitempty"`
	PinnedAt    *time.Time  `json:"pinned_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`

	// Author projection
	AuthorName   string `json:"author_name,omitempty"`
	AuthorAvatar string `json:"author_avatar,omitempty"`

	// Provisional is set client-side on optimistic rows awaiting the server echo.
	Provisional bool `json:"-"`
}

// Channel returns the channel the message belongs to.
func (m *Message) Channel() ChannelKey {
	return ChannelKey{MeetupID: m.MeetupID}
}

// Before orders messages by creation time, then id.
func (m *Message) Before(other *Message) bool {
	if m.CreatedAt.Equal(other.CreatedAt) {
		return m.ID < other.ID
	}
	return m.CreatedAt.Before(other.CreatedAt)
}
