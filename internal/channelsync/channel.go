package channelsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"tripmeet-backend/internal/domain"
	"tripmeet-backend/internal/logger"
	"tripmeet-backend/internal/utils"
)

type State int

const (
	StateLoading State = iota
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	}
	return "closed"
}

const provisionalPrefix = "local-"

// Channel is the live view of one chat channel: its messages in creation
// order and, for meetup channels, its activities.
type Channel struct {
	eventLoop
	manager *Manager
	key     domain.ChannelKey

	mu         sync.RWMutex
	state      State
	loadErr    error
	messages   []domain.Message
	activities []domain.Activity

	sending atomic.Bool
}

func newChannel(ctx context.Context, m *Manager, key domain.ChannelKey) *Channel {
	c := &Channel{
		manager: m,
		key:     key,
		state:   StateLoading,
	}
	c.init(ctx)
	return c
}

func (c *Channel) Key() domain.ChannelKey {
	return c.key
}

func (c *Channel) State() State {
	if c.isClosed() {
		return StateClosed
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// LoadError is the cause of the last failed load, cleared by a successful one.
func (c *Channel) LoadError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadErr
}

// Messages returns a copy of the channel's messages, oldest first.
// Provisional messages trail the confirmed ones.
func (c *Channel) Messages() []domain.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.messages)
}

func (c *Channel) Activities() []domain.Activity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.activities)
}

// Reload re-runs the initial fetch.
func (c *Channel) Reload() {
	c.enqueue(c.load)
}

func (c *Channel) onEvent(ev domain.ChangeEvent) {
	c.enqueue(func(ctx context.Context) { c.apply(ctx, ev) })
}

// onReconnect refetches everything to cover events missed while offline.
func (c *Channel) onReconnect() {
	logger.Info("Channel feed reconnected, refetching", "channel", c.key.String())
	c.enqueue(c.load)
}

func (c *Channel) load(ctx context.Context) {
	messages, err := c.manager.rows.ListMessages(ctx, c.key)
	var activities []domain.Activity
	if err == nil && !c.key.IsGlobal() {
		activities, err = c.manager.rows.ListActivities(ctx, c.key.MeetupID)
	}

	c.mu.Lock()
	if c.isClosed() {
		c.mu.Unlock()
		return
	}
	if err != nil {
		c.loadErr = err
		c.mu.Unlock()
		logger.Warn("Channel load failed", "channel", c.key.String(), "error", err)
		c.manager.reportError(MsgUnableToLoad)
		c.notify()
		return
	}

	sortMessages(messages)
	c.messages = withPending(messages, c.messages)
	c.activities = activities
	c.state = StateReady
	c.loadErr = nil
	c.mu.Unlock()
	c.notify()
}

func (c *Channel) apply(ctx context.Context, ev domain.ChangeEvent) {
	if c.State() != StateReady {
		// The next successful load includes this change.
		return
	}
	switch ev.Table {
	case domain.TableMessages:
		c.applyMessage(ctx, ev)
	case domain.TableActivities, domain.TableActivityResponses:
		if !c.key.IsGlobal() {
			c.refetchActivities(ctx)
		}
	}
}

func (c *Channel) applyMessage(ctx context.Context, ev domain.ChangeEvent) {
	if ev.Kind == domain.ChangeDelete {
		id := ev.RowID()
		c.mu.Lock()
		changed := !c.isClosed() && c.removeMessage(id)
		c.mu.Unlock()
		if changed {
			c.notify()
		}
		return
	}

	msg, err := c.resolveMessage(ctx, ev)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logger.Debug("Changed message no longer visible", "channel", c.key.String(), "id", ev.RowID())
		} else {
			logger.Warn("Failed to read changed message", "channel", c.key.String(), "id", ev.RowID(), "error", err)
		}
		return
	}
	if msg.Channel() != c.key {
		return
	}

	c.mu.Lock()
	changed := false
	if !c.isClosed() {
		if ev.Kind == domain.ChangeInsert {
			changed = c.insertMessage(*msg)
		} else {
			changed = c.replaceMessage(*msg)
		}
	}
	c.mu.Unlock()
	if changed {
		c.notify()
	}
}

// resolveMessage reads the changed row with its author fields. A projected
// event row is used as is only when the manager trusts payloads.
func (c *Channel) resolveMessage(ctx context.Context, ev domain.ChangeEvent) (*domain.Message, error) {
	if c.manager.trustPayloads && ev.Projected && len(ev.New) > 0 {
		var msg domain.Message
		if err := json.Unmarshal(ev.New, &msg); err != nil {
			return nil, fmt.Errorf("malformed message row: %w", err)
		}
		return &msg, nil
	}
	id := ev.RowID()
	if id == "" {
		return nil, errors.New("change event carries no row id")
	}
	return c.manager.rows.GetMessage(ctx, id)
}

func (c *Channel) refetchActivities(ctx context.Context) {
	activities, err := c.manager.rows.ListActivities(ctx, c.key.MeetupID)
	if err != nil {
		logger.Warn("Failed to refetch activities", "channel", c.key.String(), "error", err)
		return
	}
	c.mu.Lock()
	if c.isClosed() {
		c.mu.Unlock()
		return
	}
	c.activities = activities
	c.mu.Unlock()
	c.notify()
}

// insertMessage adds msg unless its id is already present, replacing the
// provisional message that carries the same client token. Caller holds c.mu.
func (c *Channel) insertMessage(msg domain.Message) bool {
	if c.indexOf(msg.ID) >= 0 {
		return false
	}
	if msg.ClientToken != "" {
		c.removeMessage(provisionalPrefix + msg.ClientToken)
	}
	pos := len(c.messages)
	for pos > 0 {
		prev := &c.messages[pos-1]
		if !prev.Provisional && !msg.Before(prev) {
			break
		}
		pos--
	}
	c.messages = slices.Insert(c.messages, pos, msg)
	return true
}

// replaceMessage swaps the message in place. Unknown ids are ignored.
func (c *Channel) replaceMessage(msg domain.Message) bool {
	i := c.indexOf(msg.ID)
	if i < 0 {
		return false
	}
	c.messages[i] = msg
	return true
}

func (c *Channel) removeMessage(id string) bool {
	i := c.indexOf(id)
	if i < 0 {
		return false
	}
	c.messages = slices.Delete(c.messages, i, i+1)
	return true
}

func (c *Channel) indexOf(id string) int {
	return slices.IndexFunc(c.messages, func(m domain.Message) bool { return m.ID == id })
}

// Send posts text to the channel. The message shows once its echo arrives on
// the feed; with WithOptimisticSend a provisional message shows immediately
// and the echo replaces it. Only one send may be in flight at a time.
func (c *Channel) Send(ctx context.Context, text string) error {
	if c.isClosed() {
		return ErrClosed
	}
	if !c.sending.CompareAndSwap(false, true) {
		return ErrSendInFlight
	}
	defer c.sending.Store(false)

	content := strings.TrimSpace(text)
	if content == "" {
		return domain.NewValidationError("content", "message cannot be empty")
	}
	if utils.RuneLen(content) > domain.MaxMessageLength {
		return domain.NewValidationError("content", "message cannot exceed %d characters", domain.MaxMessageLength)
	}

	token := uuid.NewString()
	if !c.manager.optimistic {
		if err := c.manager.rows.SendMessage(ctx, c.key, content, token); err != nil {
			return sendError(c.key, err)
		}
		return nil
	}

	provisional := domain.Message{
		ID:          provisionalPrefix + token,
		MeetupID:    c.key.MeetupID,
		AuthorID:    c.manager.userID,
		Type:        domain.MessageTypeText,
		Content:     content,
		ClientToken: token,
		CreatedAt:   time.Now().UTC(),
		Provisional: true,
	}
	c.mu.Lock()
	c.messages = append(c.messages, provisional)
	c.mu.Unlock()
	c.notify()

	if err := c.manager.rows.SendMessage(ctx, c.key, content, token); err != nil {
		c.mu.Lock()
		c.removeMessage(provisional.ID)
		c.mu.Unlock()
		c.notify()
		return sendError(c.key, err)
	}
	return nil
}

// sendError passes validation errors through and hides any other cause.
func sendError(key domain.ChannelKey, err error) error {
	if domain.IsValidation(err) {
		return err
	}
	logger.Warn("Send failed", "channel", key.String(), "error", err)
	return &ActionError{Action: "send message", Err: err}
}

// Sending reports whether a send is in flight.
func (c *Channel) Sending() bool {
	return c.sending.Load()
}

func sortMessages(messages []domain.Message) {
	slices.SortStableFunc(messages, func(a, b domain.Message) int {
		switch {
		case a.Before(&b):
			return -1
		case b.Before(&a):
			return 1
		}
		return 0
	})
}

// withPending appends to fetched the provisional messages of current whose
// send has not been confirmed by fetched.
func withPending(fetched, current []domain.Message) []domain.Message {
	confirmed := make(map[string]bool)
	for i := range fetched {
		if fetched[i].ClientToken != "" {
			confirmed[fetched[i].ClientToken] = true
		}
	}
	for _, m := range current {
		if m.Provisional && !confirmed[m.ClientToken] {
			fetched = append(fetched, m)
		}
	}
	return fetched
}
