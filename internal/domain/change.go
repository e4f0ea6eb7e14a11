package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

type ChangeKind string

const (
	ChangeInsert ChangeKind = "INSERT"
	ChangeUpdate ChangeKind = "UPDATE"
	ChangeDelete ChangeKind = "DELETE"
)

// Tables carried on the change feed.
const (
	TableMeetups           = "meetups"
	TableMessages          = "messages"
	TableActivities        = "activities"
	TableActivityResponses = "activity_responses"
	TableMeetupMembers     = "meetup_members"
	TableNotifications     = "notifications"
)

const (
	TopicCommunity          = "community"
	topicMeetupPrefix       = "meetup:"
	topicNotificationPrefix = "notifications:"
)

// ChangeEvent is one row change delivered on the realtime feed.
// New carries the row for inserts and updates. When Projected is set the row
// already includes the author projection and needs no point read.
type ChangeEvent struct {
	Kind      ChangeKind      `json:"kind"`
	Table     string          `json:"table"`
	Topic     string          `json:"topic"`
	New       json.RawMessage `json:"new,omitempty"`
	OldID     string          `json:"old_id,omitempty"`
	Projected bool            `json:"projected,omitempty"`
}

// RowID extracts the "id" field of the new row, falling back to OldID.
func (e *ChangeEvent) RowID() string {
	if len(e.New) > 0 {
		var row struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(e.New, &row); err == nil && row.ID != "" {
			return row.ID
		}
	}
	return e.OldID
}

// NewChangeEvent marshals row into an event for topic.
func NewChangeEvent(kind ChangeKind, table, topic string, row any, projected bool) (ChangeEvent, error) {
	ev := ChangeEvent{Kind: kind, Table: table, Topic: topic, Projected: projected}
	if row == nil {
		return ev, nil
	}
	data, err := json.Marshal(row)
	if err != nil {
		return ev, fmt.Errorf("failed to marshal %s row: %w", table, err)
	}
	ev.New = data
	return ev, nil
}

// ChannelKey identifies a chat channel: the single community channel when
// MeetupID is empty, otherwise the meetup's channel.
type ChannelKey struct {
	MeetupID string
}

var CommunityChannel = ChannelKey{}

func MeetupChannel(meetupID string) ChannelKey {
	return ChannelKey{MeetupID: meetupID}
}

func (k ChannelKey) IsGlobal() bool {
	return k.MeetupID == ""
}

// Topic is the realtime topic carrying the channel's changes.
func (k ChannelKey) Topic() string {
	if k.IsGlobal() {
		return TopicCommunity
	}
	return topicMeetupPrefix + k.MeetupID
}

func (k ChannelKey) String() string {
	return k.Topic()
}

// ParseTopic splits a realtime topic into its channel or notification owner.
func ParseTopic(topic string) (key ChannelKey, notificationsOf string, err error) {
	switch {
	case topic == TopicCommunity:
		return CommunityChannel, "", nil
	case strings.HasPrefix(topic, topicMeetupPrefix) && len(topic) > len(topicMeetupPrefix):
		return MeetupChannel(strings.TrimPrefix(topic, topicMeetupPrefix)), "", nil
	case strings.HasPrefix(topic, topicNotificationPrefix) && len(topic) > len(topicNotificationPrefix):
		return ChannelKey{}, strings.TrimPrefix(topic, topicNotificationPrefix), nil
	}
	return ChannelKey{}, "", fmt.Errorf("unknown topic %q", topic)
}

// NotificationTopic is the per-recipient topic for notification rows.
func NotificationTopic(userID string) string {
	return topicNotificationPrefix + userID
}
