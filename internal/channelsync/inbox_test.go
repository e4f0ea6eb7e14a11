package channelsync_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripmeet-backend/internal/channelsync"
	"tripmeet-backend/internal/domain"
)

func noteEvent(t *testing.T, kind domain.ChangeKind, n domain.Notification) domain.ChangeEvent {
	t.Helper()
	ev, err := domain.NewChangeEvent(kind, domain.TableNotifications, "", n, true)
	require.NoError(t, err)
	return ev
}

func TestInbox_TracksNotifications(t *testing.T) {
	rows := newFakeRows()
	rows.notes = []domain.Notification{
		{ID: "n2", UserID: "u1", Title: "New message in Lisbon"},
		{ID: "n1", UserID: "u1", Title: "Request accepted", IsRead: true},
	}
	feed := &fakeFeed{}
	m := channelsync.NewManager(rows, feed)

	in, err := m.OpenInbox(context.Background(), "u1")
	require.NoError(t, err)
	defer in.Close()
	require.Eventually(t, in.Loaded, waitFor, tick)
	assert.Equal(t, 1, in.Unread())

	topic := domain.NotificationTopic("u1")
	n3 := domain.Notification{ID: "n3", UserID: "u1", Title: "New activity in Lisbon"}
	feed.emit(topic, noteEvent(t, domain.ChangeInsert, n3))
	feed.emit(topic, noteEvent(t, domain.ChangeInsert, n3))
	require.Eventually(t, func() bool { return len(in.Notifications()) == 3 }, waitFor, tick)
	assert.Equal(t, "n3", in.Notifications()[0].ID)
	assert.Equal(t, 3, in.Total())

	read := n3
	read.IsRead = true
	feed.emit(topic, noteEvent(t, domain.ChangeUpdate, read))
	feed.emit(topic, domain.ChangeEvent{Kind: domain.ChangeDelete, Table: domain.TableNotifications, OldID: "n1"})

	require.Eventually(t, func() bool { return len(in.Notifications()) == 2 }, waitFor, tick)
	assert.Equal(t, 1, in.Unread())
	assert.Equal(t, 2, in.Total())
}

func TestInbox_DoesNotReplaceOpenChannel(t *testing.T) {
	feed := &fakeFeed{}
	m := channelsync.NewManager(newFakeRows(), feed)

	c := openReady(t, m, domain.CommunityChannel)
	in, err := m.OpenInbox(context.Background(), "u1")
	require.NoError(t, err)
	defer in.Close()

	assert.Same(t, c, m.Current())
	assert.Len(t, feed.active(domain.NotificationTopic("u1")), 1)
}
