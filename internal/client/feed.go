package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"tripmeet-backend/internal/channelsync"
	"tripmeet-backend/internal/domain"
	"tripmeet-backend/internal/logger"
	"tripmeet-backend/internal/realtime"
)

var ErrFeedClosed = errors.New("realtime feed is closed")

// RefusedError is the hub turning down a subscription.
type RefusedError struct {
	Action  string
	Topic   string
	Message string
}

func (e *RefusedError) Error() string {
	return fmt.Sprintf("%s %s refused: %s", e.Action, e.Topic, e.Message)
}

// FeedSettings tunes the connection. Zero values fall back to defaults.
type FeedSettings struct {
	ReconnectMin time.Duration
	ReconnectMax time.Duration
	AckTimeout   time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func DefaultFeedSettings() FeedSettings {
	return FeedSettings{
		ReconnectMin: 500 * time.Millisecond,
		ReconnectMax: 30 * time.Second,
		AckTimeout:   10 * time.Second,
		ReadTimeout:  90 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

func (s *FeedSettings) applyDefaults() {
	d := DefaultFeedSettings()
	if s.ReconnectMin <= 0 {
		s.ReconnectMin = d.ReconnectMin
	}
	if s.ReconnectMax < s.ReconnectMin {
		s.ReconnectMax = d.ReconnectMax
	}
	if s.AckTimeout <= 0 {
		s.AckTimeout = d.AckTimeout
	}
	if s.ReadTimeout <= 0 {
		s.ReadTimeout = d.ReadTimeout
	}
	if s.WriteTimeout <= 0 {
		s.WriteTimeout = d.WriteTimeout
	}
}

// Feed keeps one WebSocket connection to the realtime hub. It reconnects
// with backoff, re-subscribes every open topic and then tells each
// subscriber to refetch.
type Feed struct {
	url      string
	header   http.Header
	settings FeedSettings
	dialer   *websocket.Dialer

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	conn    *websocket.Conn
	gen     uint64
	subs    map[string]map[*feedSub]bool
	pending map[string]chan realtime.Reply

	writeMu sync.Mutex
	refSeq  atomic.Uint64
}

// NewFeed starts connecting to wsURL in the background.
func NewFeed(wsURL, token string, settings FeedSettings) *Feed {
	settings.applyDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	f := &Feed{
		url:      wsURL,
		header:   header,
		settings: settings,
		dialer:   &websocket.Dialer{HandshakeTimeout: 10 * time.Second, Proxy: http.ProxyFromEnvironment},
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		subs:     make(map[string]map[*feedSub]bool),
		pending:  make(map[string]chan realtime.Reply),
	}
	go f.run()
	return f
}

// Connected reports whether the feed currently holds a live connection.
func (f *Feed) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conn != nil
}

// Close stops reconnecting and drops the connection.
func (f *Feed) Close() error {
	f.cancel()
	f.mu.Lock()
	if f.conn != nil {
		f.conn.Close()
	}
	f.mu.Unlock()
	<-f.done
	return nil
}

func (f *Feed) run() {
	defer close(f.done)

	backoff := f.settings.ReconnectMin
	for {
		conn, _, err := f.dialer.DialContext(f.ctx, f.url, f.header)
		if err != nil {
			logger.Info("Realtime connect failed", "url", f.url, "retryIn", backoff, "error", err)
			if !f.sleep(backoff) {
				return
			}
			backoff = min(backoff*2, f.settings.ReconnectMax)
			continue
		}
		backoff = f.settings.ReconnectMin

		gen, topics := f.attach(conn)
		logger.Info("Realtime connected", "url", f.url)

		readDone := make(chan struct{})
		go func() {
			defer close(readDone)
			defer f.detach(conn)
			f.readLoop(conn)
		}()
		f.resubscribe(conn, gen, topics)

		select {
		case <-readDone:
		case <-f.ctx.Done():
			conn.Close()
			<-readDone
		}

		if !f.sleep(backoff) {
			return
		}
	}
}

func (f *Feed) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-f.ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// attach makes conn current and returns the topics registered before it.
// Later subscriptions go out on conn directly.
func (f *Feed) attach(conn *websocket.Conn) (uint64, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conn = conn
	f.gen++
	topics := make([]string, 0, len(f.subs))
	for topic := range f.subs {
		topics = append(topics, topic)
	}
	return f.gen, topics
}

// detach forgets conn and fails every request waiting for an ack on it.
func (f *Feed) detach(conn *websocket.Conn) {
	conn.Close()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn == conn {
		f.conn = nil
	}
	for ref, ch := range f.pending {
		close(ch)
		delete(f.pending, ref)
	}
}

// resubscribe restores every topic on a new connection and asks the
// subscribers that were not confirmed on it to refetch.
func (f *Feed) resubscribe(conn *websocket.Conn, gen uint64, topics []string) {
	for _, topic := range topics {
		if err := f.subscribeRemote(f.ctx, conn, topic); err != nil {
			logger.Warn("Realtime re-subscribe failed", "topic", topic, "error", err)
			continue
		}

		var stale []*feedSub
		f.mu.Lock()
		for sub := range f.subs[topic] {
			if sub.gen != gen {
				sub.gen = gen
				stale = append(stale, sub)
			}
		}
		f.mu.Unlock()

		for _, sub := range stale {
			if sub.handler.OnReconnect != nil {
				sub.handler.OnReconnect()
			}
		}
	}
}

func (f *Feed) readLoop(conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(f.settings.ReadTimeout))
	conn.SetPingHandler(func(data string) error {
		_ = conn.SetReadDeadline(time.Now().Add(f.settings.ReadTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(f.settings.WriteTimeout))
	})

	for {
		var reply realtime.Reply
		if err := conn.ReadJSON(&reply); err != nil {
			if f.ctx.Err() == nil {
				logger.Info("Realtime connection lost", "error", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(f.settings.ReadTimeout))

		switch reply.Type {
		case "event":
			if reply.Event != nil {
				f.dispatch(reply.Topic, *reply.Event)
			}
		default:
			f.mu.Lock()
			ch, ok := f.pending[reply.Ref]
			if ok {
				delete(f.pending, reply.Ref)
			}
			f.mu.Unlock()
			if ok {
				ch <- reply
			} else if reply.Type == "error" {
				logger.Warn("Realtime error", "action", reply.Action, "topic", reply.Topic, "message", reply.Message)
			} else if reply.Type == "revoked" {
				logger.Info("Realtime subscription revoked by server", "topic", reply.Topic)
			}
		}
	}
}

func (f *Feed) dispatch(topic string, ev domain.ChangeEvent) {
	f.mu.Lock()
	handlers := make([]func(domain.ChangeEvent), 0, len(f.subs[topic]))
	for sub := range f.subs[topic] {
		if sub.handler.OnEvent != nil {
			handlers = append(handlers, sub.handler.OnEvent)
		}
	}
	f.mu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
}

// request sends an action on conn and waits for its ack.
func (f *Feed) request(ctx context.Context, conn *websocket.Conn, action, topic string) error {
	ref := strconv.FormatUint(f.refSeq.Add(1), 10)
	ch := make(chan realtime.Reply, 1)
	f.mu.Lock()
	f.pending[ref] = ch
	f.mu.Unlock()

	if err := f.write(conn, map[string]string{"action": action, "topic": topic, "ref": ref}); err != nil {
		f.mu.Lock()
		delete(f.pending, ref)
		f.mu.Unlock()
		return err
	}

	timer := time.NewTimer(f.settings.AckTimeout)
	defer timer.Stop()
	select {
	case reply, ok := <-ch:
		if !ok {
			return errors.New("connection lost before acknowledgement")
		}
		if reply.Type == "error" {
			return &RefusedError{Action: action, Topic: topic, Message: reply.Message}
		}
		return nil
	case <-timer.C:
		f.mu.Lock()
		delete(f.pending, ref)
		f.mu.Unlock()
		return fmt.Errorf("%s %s: no acknowledgement", action, topic)
	case <-ctx.Done():
		f.mu.Lock()
		delete(f.pending, ref)
		f.mu.Unlock()
		return ctx.Err()
	}
}

func (f *Feed) subscribeRemote(ctx context.Context, conn *websocket.Conn, topic string) error {
	return f.request(ctx, conn, "subscribe", topic)
}

func (f *Feed) write(conn *websocket.Conn, v any) error {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(f.settings.WriteTimeout))
	return conn.WriteJSON(v)
}

// Subscribe registers h for topic. While connected, the hub must accept the
// subscription; while offline, it is sent once the connection is back.
func (f *Feed) Subscribe(ctx context.Context, topic string, h channelsync.Handler) (channelsync.Subscription, error) {
	if f.ctx.Err() != nil {
		return nil, ErrFeedClosed
	}
	sub := &feedSub{feed: f, topic: topic, handler: h}

	f.mu.Lock()
	first := len(f.subs[topic]) == 0
	if f.subs[topic] == nil {
		f.subs[topic] = make(map[*feedSub]bool)
	}
	f.subs[topic][sub] = true
	conn, gen := f.conn, f.gen
	if conn != nil && !first {
		sub.gen = gen
	}
	f.mu.Unlock()

	if conn == nil || !first {
		return sub, nil
	}

	err := f.subscribeRemote(ctx, conn, topic)
	var refused *RefusedError
	switch {
	case errors.As(err, &refused):
		f.remove(sub)
		return nil, err
	case err != nil:
		// Transport trouble: the next connection re-subscribes and refetches.
		logger.Info("Realtime subscribe deferred", "topic", topic, "error", err)
		return sub, nil
	}
	f.mu.Lock()
	sub.gen = gen
	f.mu.Unlock()
	return sub, nil
}

// remove drops sub and reports whether it was the topic's last subscriber.
func (f *Feed) remove(sub *feedSub) (last bool, conn *websocket.Conn) {
	f.mu.Lock()
	defer f.mu.Unlock()
	subs := f.subs[sub.topic]
	if !subs[sub] {
		return false, nil
	}
	delete(subs, sub)
	if len(subs) > 0 {
		return false, nil
	}
	delete(f.subs, sub.topic)
	return true, f.conn
}

type feedSub struct {
	feed    *Feed
	topic   string
	handler channelsync.Handler
	gen     uint64 // connection generation the subscription was confirmed on
	once    sync.Once
}

// Close stops delivery to the subscriber. The hub subscription is dropped
// with the topic's last subscriber.
func (s *feedSub) Close() error {
	s.once.Do(func() {
		last, conn := s.feed.remove(s)
		if last && conn != nil {
			if err := s.feed.write(conn, map[string]string{"action": "unsubscribe", "topic": s.topic}); err != nil {
				logger.Debug("Realtime unsubscribe not sent", "topic", s.topic, "error", err)
			}
		}
	})
	return nil
}
