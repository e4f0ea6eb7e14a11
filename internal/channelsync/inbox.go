package channelsync

import (
	"context"
	"encoding/json"
	"slices"
	"sync"

	"tripmeet-backend/internal/domain"
	"tripmeet-backend/internal/logger"
)

const inboxPageSize = 50

// Inbox is the live notification list of one user, newest first.
type Inbox struct {
	eventLoop
	manager *Manager
	userID  string

	mu      sync.RWMutex
	loaded  bool
	loadErr error
	items   []domain.Notification
	total   int
}

func newInbox(ctx context.Context, m *Manager, userID string) *Inbox {
	in := &Inbox{manager: m, userID: userID}
	in.init(ctx)
	return in
}

func (in *Inbox) Notifications() []domain.Notification {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return slices.Clone(in.items)
}

// Unread counts the unread notifications held locally.
func (in *Inbox) Unread() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	n := 0
	for i := range in.items {
		if !in.items[i].IsRead {
			n++
		}
	}
	return n
}

func (in *Inbox) Loaded() bool {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.loaded
}

func (in *Inbox) LoadError() error {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.loadErr
}

func (in *Inbox) Reload() {
	in.enqueue(in.load)
}

func (in *Inbox) onEvent(ev domain.ChangeEvent) {
	in.enqueue(func(context.Context) { in.apply(ev) })
}

func (in *Inbox) onReconnect() {
	in.enqueue(in.load)
}

func (in *Inbox) load(ctx context.Context) {
	items, total, err := in.manager.rows.ListNotifications(ctx, 1, inboxPageSize)

	in.mu.Lock()
	if in.isClosed() {
		in.mu.Unlock()
		return
	}
	if err != nil {
		in.loadErr = err
		in.mu.Unlock()
		logger.Warn("Inbox load failed", "userID", in.userID, "error", err)
		in.manager.reportError(MsgUnableToLoad)
		in.notify()
		return
	}
	in.items = items
	in.total = total
	in.loaded = true
	in.loadErr = nil
	in.mu.Unlock()
	in.notify()
}

func (in *Inbox) apply(ev domain.ChangeEvent) {
	if ev.Table != domain.TableNotifications {
		return
	}

	var note domain.Notification
	if ev.Kind != domain.ChangeDelete {
		if len(ev.New) == 0 {
			return
		}
		if err := json.Unmarshal(ev.New, &note); err != nil {
			logger.Warn("Malformed notification row", "userID", in.userID, "error", err)
			return
		}
	}

	in.mu.Lock()
	if in.isClosed() || !in.loaded {
		in.mu.Unlock()
		return
	}
	changed := false
	switch ev.Kind {
	case domain.ChangeInsert:
		if in.indexOf(note.ID) < 0 {
			in.items = slices.Insert(in.items, 0, note)
			in.total++
			changed = true
		}
	case domain.ChangeUpdate:
		if i := in.indexOf(note.ID); i >= 0 {
			in.items[i] = note
			changed = true
		}
	case domain.ChangeDelete:
		if i := in.indexOf(ev.RowID()); i >= 0 {
			in.items = slices.Delete(in.items, i, i+1)
			in.total--
			changed = true
		}
	}
	in.mu.Unlock()
	if changed {
		in.notify()
	}
}

func (in *Inbox) indexOf(id string) int {
	return slices.IndexFunc(in.items, func(n domain.Notification) bool { return n.ID == id })
}

// Total is the server-side notification count, kept current by the feed.
func (in *Inbox) Total() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.total
}
