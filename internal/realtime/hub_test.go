package realtime_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripmeet-backend/internal/domain"
	"tripmeet-backend/internal/realtime"
)

type fakeAuthorizer struct {
	mu      sync.Mutex
	allowed map[string]bool // "user|topic"
}

func (a *fakeAuthorizer) AuthorizeTopic(ctx context.Context, userID, topic string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.allowed[userID+"|"+topic] {
		return nil
	}
	return domain.ErrForbidden
}

func (a *fakeAuthorizer) deny(userID, topic string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.allowed, userID+"|"+topic)
}

func startHub(t *testing.T, auth realtime.Authorizer) (*realtime.Hub, string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := realtime.NewHub(auth, realtime.HubOptions{SendBuffer: 16, PingInterval: time.Minute})
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWs(w, r, r.URL.Query().Get("user"))
	}))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url, user string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url+"?user="+user, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readReply(t *testing.T, conn *websocket.Conn) realtime.Reply {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var r realtime.Reply
	require.NoError(t, json.Unmarshal(data, &r))
	return r
}

func send(t *testing.T, conn *websocket.Conn, action, topic string) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]string{"action": action, "topic": topic, "ref": "r-" + topic}))
}

func messageEvent(t *testing.T, topic, id string) domain.ChangeEvent {
	t.Helper()
	ev, err := domain.NewChangeEvent(domain.ChangeInsert, domain.TableMessages, topic, &domain.Message{ID: id, Content: "hi"}, true)
	require.NoError(t, err)
	return ev
}

func TestHub_SubscribeAndDeliver(t *testing.T) {
	auth := &fakeAuthorizer{allowed: map[string]bool{"u1|meetup:m1": true}}
	hub, url := startHub(t, auth)
	conn := dial(t, url, "u1")

	send(t, conn, "subscribe", "meetup:m1")
	ack := readReply(t, conn)
	assert.Equal(t, "ack", ack.Type)
	assert.Equal(t, "meetup:m1", ack.Topic)
	assert.Equal(t, "r-meetup:m1", ack.Ref)
	assert.Equal(t, 1, hub.Subscribers("meetup:m1"))

	hub.Dispatch(messageEvent(t, "meetup:m2", "other"))
	hub.Dispatch(messageEvent(t, "meetup:m1", "msg-1"))

	got := readReply(t, conn)
	require.Equal(t, "event", got.Type)
	require.NotNil(t, got.Event)
	assert.Equal(t, "msg-1", got.Event.RowID())
	assert.True(t, got.Event.Projected)
}

func TestHub_RefusedSubscription(t *testing.T) {
	auth := &fakeAuthorizer{allowed: map[string]bool{"u2|community": true}}
	hub, url := startHub(t, auth)
	conn := dial(t, url, "u2")

	send(t, conn, "subscribe", "meetup:m1")
	refused := readReply(t, conn)
	assert.Equal(t, "error", refused.Type)
	assert.Equal(t, "meetup:m1", refused.Topic)
	assert.Equal(t, 0, hub.Subscribers("meetup:m1"))

	send(t, conn, "subscribe", "community")
	assert.Equal(t, "ack", readReply(t, conn).Type)

	hub.Dispatch(messageEvent(t, "meetup:m1", "private"))
	hub.Dispatch(messageEvent(t, "community", "public"))
	got := readReply(t, conn)
	require.NotNil(t, got.Event)
	assert.Equal(t, "public", got.Event.RowID())
}

func TestHub_Unsubscribe(t *testing.T) {
	auth := &fakeAuthorizer{allowed: map[string]bool{"u1|community": true, "u1|notifications:u1": true}}
	hub, url := startHub(t, auth)
	conn := dial(t, url, "u1")

	send(t, conn, "subscribe", "community")
	readReply(t, conn)
	send(t, conn, "subscribe", "notifications:u1")
	readReply(t, conn)
	send(t, conn, "unsubscribe", "community")
	assert.Equal(t, "ack", readReply(t, conn).Type)
	assert.Equal(t, 0, hub.Subscribers("community"))

	hub.Dispatch(messageEvent(t, "community", "dropped"))
	hub.Dispatch(domain.ChangeEvent{Kind: domain.ChangeDelete, Table: domain.TableNotifications, Topic: "notifications:u1", OldID: "n1"})
	got := readReply(t, conn)
	require.NotNil(t, got.Event)
	assert.Equal(t, "n1", got.Event.OldID)
}

func TestHub_LeavingMemberLosesMeetupEvents(t *testing.T) {
	auth := &fakeAuthorizer{allowed: map[string]bool{
		"u1|meetup:m1": true, "u2|meetup:m1": true, "u1|community": true,
	}}
	hub, url := startHub(t, auth)
	leaver := dial(t, url, "u1")
	stayer := dial(t, url, "u2")

	send(t, leaver, "subscribe", "meetup:m1")
	require.Equal(t, "ack", readReply(t, leaver).Type)
	send(t, leaver, "subscribe", "community")
	require.Equal(t, "ack", readReply(t, leaver).Type)
	send(t, stayer, "subscribe", "meetup:m1")
	require.Equal(t, "ack", readReply(t, stayer).Type)

	auth.deny("u1", "meetup:m1")
	hub.Dispatch(domain.ChangeEvent{Kind: domain.ChangeDelete, Table: domain.TableMeetupMembers, Topic: "meetup:m1", OldID: "u1"})
	hub.Dispatch(messageEvent(t, "meetup:m1", "after-leave"))
	hub.Dispatch(messageEvent(t, "community", "public"))

	left := readReply(t, leaver)
	require.NotNil(t, left.Event)
	assert.Equal(t, domain.TableMeetupMembers, left.Event.Table)
	revoked := readReply(t, leaver)
	assert.Equal(t, "revoked", revoked.Type)
	assert.Equal(t, "meetup:m1", revoked.Topic)
	next := readReply(t, leaver)
	require.NotNil(t, next.Event)
	assert.Equal(t, "public", next.Event.RowID())

	assert.Equal(t, domain.TableMeetupMembers, readReply(t, stayer).Event.Table)
	got := readReply(t, stayer)
	require.NotNil(t, got.Event)
	assert.Equal(t, "after-leave", got.Event.RowID())
	assert.Equal(t, 1, hub.Subscribers("meetup:m1"))

	send(t, leaver, "subscribe", "meetup:m1")
	assert.Equal(t, "error", readReply(t, leaver).Type)
}

func TestHub_DeletedMeetupDropsEverySubscriber(t *testing.T) {
	auth := &fakeAuthorizer{allowed: map[string]bool{"u1|meetup:m1": true, "u2|meetup:m1": true}}
	hub, url := startHub(t, auth)
	a := dial(t, url, "u1")
	b := dial(t, url, "u2")
	for _, conn := range []*websocket.Conn{a, b} {
		send(t, conn, "subscribe", "meetup:m1")
		require.Equal(t, "ack", readReply(t, conn).Type)
	}

	hub.Dispatch(domain.ChangeEvent{Kind: domain.ChangeDelete, Table: domain.TableMeetups, Topic: "meetup:m1", OldID: "m1"})

	for _, conn := range []*websocket.Conn{a, b} {
		gone := readReply(t, conn)
		require.NotNil(t, gone.Event)
		assert.Equal(t, domain.TableMeetups, gone.Event.Table)
		assert.Equal(t, "revoked", readReply(t, conn).Type)
	}
	assert.Equal(t, 0, hub.Subscribers("meetup:m1"))
}

func TestHub_UnknownAction(t *testing.T) {
	_, url := startHub(t, &fakeAuthorizer{})
	conn := dial(t, url, "u1")

	send(t, conn, "presence", "community")
	got := readReply(t, conn)
	assert.Equal(t, "error", got.Type)
	assert.Equal(t, "unknown action", got.Message)
}

func TestHub_DisconnectCleansUp(t *testing.T) {
	auth := &fakeAuthorizer{allowed: map[string]bool{"u1|community": true}}
	hub, url := startHub(t, auth)
	conn := dial(t, url, "u1")

	send(t, conn, "subscribe", "community")
	readReply(t, conn)
	require.Equal(t, 1, hub.Subscribers("community"))

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Subscribers("community") == 0 }, 2*time.Second, 10*time.Millisecond)
}
