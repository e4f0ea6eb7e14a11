// Package channelsync keeps a client's local view of a channel consistent
// with the server as other users mutate it.
package channelsync

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"tripmeet-backend/internal/domain"
	"tripmeet-backend/internal/logger"
)

// MsgUnableToLoad is passed to the error handler when an initial fetch fails.
const MsgUnableToLoad = "unable to load"

var (
	ErrSendInFlight = errors.New("a message is already being sent")
	ErrClosed       = errors.New("channel is closed")
)

// RowSource is the read/write surface the manager needs from the API.
type RowSource interface {
	ListMessages(ctx context.Context, key domain.ChannelKey) ([]domain.Message, error)
	GetMessage(ctx context.Context, id string) (*domain.Message, error)
	ListActivities(ctx context.Context, meetupID string) ([]domain.Activity, error)
	SendMessage(ctx context.Context, key domain.ChannelKey, content, clientToken string) error
	ListNotifications(ctx context.Context, page, pageSize int) ([]domain.Notification, int, error)
}

// Handler receives a subscription's events. OnReconnect runs after the
// transport re-established the subscription.
type Handler struct {
	OnEvent     func(domain.ChangeEvent)
	OnReconnect func()
}

type Subscription interface {
	Close() error
}

// Feed delivers change events for a topic.
type Feed interface {
	Subscribe(ctx context.Context, topic string, h Handler) (Subscription, error)
}

// ActionError is the user-facing failure of an action. It names the action
// and hides the cause, which stays reachable through errors.Unwrap.
type ActionError struct {
	Action string
	Err    error
}

func (e *ActionError) Error() string {
	return "Unable to " + e.Action
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

type Option func(*Manager)

// WithErrorHandler registers fn for user-visible failure signals.
func WithErrorHandler(fn func(message string)) Option {
	return func(m *Manager) { m.onError = fn }
}

// WithUser sets the author id stamped on provisional messages.
func WithUser(userID string) Option {
	return func(m *Manager) { m.userID = userID }
}

// WithOptimisticSend shows a provisional message as soon as Send is called.
// It is replaced by the confirmed row when the echo carrying the same client
// token arrives. Without it a sent message appears only with its echo.
func WithOptimisticSend() Option {
	return func(m *Manager) { m.optimistic = true }
}

// WithTrustedPayloads applies message rows carried by projected events
// directly. Without it every message insert or update is read back by id.
func WithTrustedPayloads() Option {
	return func(m *Manager) { m.trustPayloads = true }
}

// Manager owns the single open channel of a screen.
type Manager struct {
	rows    RowSource
	feed    Feed
	onError func(string)
	userID  string

	optimistic    bool
	trustPayloads bool

	mu      sync.Mutex
	current *Channel
}

func NewManager(rows RowSource, feed Feed, opts ...Option) *Manager {
	m := &Manager{rows: rows, feed: feed}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OpenChannel closes the currently open channel, if any, and opens key. The
// returned channel loads in the background; watch Updates for progress.
func (m *Manager) OpenChannel(ctx context.Context, key domain.ChannelKey) (*Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		if err := m.current.Close(); err != nil {
			logger.Warn("Failed to close previous channel", "channel", m.current.key.String(), "error", err)
		}
		m.current = nil
	}

	c := newChannel(ctx, m, key)
	sub, err := m.feed.Subscribe(c.ctx, key.Topic(), Handler{OnEvent: c.onEvent, OnReconnect: c.onReconnect})
	if err != nil {
		c.cancel()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", key.Topic(), err)
	}
	c.start(sub, c.load)

	logger.Debug("Channel opened", "channel", key.String())
	m.current = c
	return c, nil
}

// Current returns the open channel, or nil.
func (m *Manager) Current() *Channel {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil || m.current.isClosed() {
		return nil
	}
	return m.current
}

// OpenInbox keeps a live list of userID's notifications. It is independent
// of the open channel.
func (m *Manager) OpenInbox(ctx context.Context, userID string) (*Inbox, error) {
	in := newInbox(ctx, m, userID)
	topic := domain.NotificationTopic(userID)
	sub, err := m.feed.Subscribe(in.ctx, topic, Handler{OnEvent: in.onEvent, OnReconnect: in.onReconnect})
	if err != nil {
		in.cancel()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}
	in.start(sub, in.load)
	return in, nil
}

func (m *Manager) reportError(message string) {
	if m.onError != nil {
		m.onError(message)
	}
}
