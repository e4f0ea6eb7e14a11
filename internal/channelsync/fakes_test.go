package channelsync_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"tripmeet-backend/internal/channelsync"
	"tripmeet-backend/internal/domain"
)

var t0 = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

func msg(id string, minute int, meetupID string) domain.Message {
	return domain.Message{
		ID:        id,
		MeetupID:  meetupID,
		AuthorID:  "u2",
		Type:      domain.MessageTypeText,
		Content:   "message " + id,
		CreatedAt: t0.Add(time.Duration(minute) * time.Minute),
	}
}

type sentMessage struct {
	Key         domain.ChannelKey
	Content     string
	ClientToken string
}

type fakeRows struct {
	mu         sync.Mutex
	messages   []domain.Message
	byID       map[string]domain.Message
	activities []domain.Activity
	notes      []domain.Notification

	listErr  error
	listGate chan struct{}
	sendErr  error
	sendGate chan struct{}
	sent     []sentMessage

	listCalls     int
	getCalls      int
	activityCalls int
}

func newFakeRows(messages ...domain.Message) *fakeRows {
	r := &fakeRows{byID: make(map[string]domain.Message)}
	r.setMessages(messages...)
	return r
}

func (r *fakeRows) setMessages(messages ...domain.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append([]domain.Message(nil), messages...)
	for _, m := range messages {
		r.byID[m.ID] = m
	}
}

func (r *fakeRows) put(m domain.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[m.ID] = m
}

func (r *fakeRows) setListErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listErr = err
}

func (r *fakeRows) counts() (list, get, activities int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listCalls, r.getCalls, r.activityCalls
}

func (r *fakeRows) sentMessages() []sentMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sentMessage(nil), r.sent...)
}

func (r *fakeRows) ListMessages(ctx context.Context, key domain.ChannelKey) ([]domain.Message, error) {
	r.mu.Lock()
	r.listCalls++
	gate := r.listGate
	r.mu.Unlock()
	if gate != nil {
		<-gate
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []domain.Message
	for _, m := range r.messages {
		if m.MeetupID == key.MeetupID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeRows) GetMessage(ctx context.Context, id string) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getCalls++
	m, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	m.AuthorName = "Ana"
	return &m, nil
}

func (r *fakeRows) ListActivities(ctx context.Context, meetupID string) ([]domain.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activityCalls++
	return append([]domain.Activity(nil), r.activities...), nil
}

func (r *fakeRows) SendMessage(ctx context.Context, key domain.ChannelKey, content, clientToken string) error {
	r.mu.Lock()
	gate := r.sendGate
	r.mu.Unlock()
	if gate != nil {
		<-gate
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sendErr != nil {
		return r.sendErr
	}
	r.sent = append(r.sent, sentMessage{Key: key, Content: content, ClientToken: clientToken})
	return nil
}

func (r *fakeRows) ListNotifications(ctx context.Context, page, pageSize int) ([]domain.Notification, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, 0, r.listErr
	}
	return append([]domain.Notification(nil), r.notes...), len(r.notes), nil
}

type fakeSub struct {
	topic   string
	handler channelsync.Handler
	closed  atomic.Bool
}

func (s *fakeSub) Close() error {
	s.closed.Store(true)
	return nil
}

type fakeFeed struct {
	mu           sync.Mutex
	subs         []*fakeSub
	subscribeErr error
}

func (f *fakeFeed) Subscribe(ctx context.Context, topic string, h channelsync.Handler) (channelsync.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	sub := &fakeSub{topic: topic, handler: h}
	f.subs = append(f.subs, sub)
	return sub, nil
}

func (f *fakeFeed) active(topic string) []*fakeSub {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*fakeSub
	for _, s := range f.subs {
		if s.topic == topic && !s.closed.Load() {
			out = append(out, s)
		}
	}
	return out
}

func (f *fakeFeed) emit(topic string, ev domain.ChangeEvent) {
	ev.Topic = topic
	for _, s := range f.active(topic) {
		s.handler.OnEvent(ev)
	}
}

func (f *fakeFeed) reconnect(topic string) {
	for _, s := range f.active(topic) {
		s.handler.OnReconnect()
	}
}
