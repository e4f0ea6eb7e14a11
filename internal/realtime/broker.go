package realtime

import (
	"context"
	"sync"

	"tripmeet-backend/internal/domain"
	"tripmeet-backend/internal/logger"
)

// Broker carries change events from the writers to every API instance.
type Broker interface {
	Publish(ctx context.Context, ev domain.ChangeEvent) error
	// Subscribe delivers every published event to handler until ctx is done.
	Subscribe(ctx context.Context, handler func(domain.ChangeEvent)) error
	Close() error
}

// LocalBroker delivers events in-process. It serves single-instance
// deployments and tests.
type LocalBroker struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]func(domain.ChangeEvent)
}

func NewLocalBroker() *LocalBroker {
	return &LocalBroker{handlers: make(map[int]func(domain.ChangeEvent))}
}

func (b *LocalBroker) Publish(ctx context.Context, ev domain.ChangeEvent) error {
	logger.RealtimeEvent("publish", ev.Topic, ev.Table, string(ev.Kind))
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, h := range b.handlers {
		h(ev)
	}
	return nil
}

func (b *LocalBroker) Subscribe(ctx context.Context, handler func(domain.ChangeEvent)) error {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = handler
	b.mu.Unlock()

	<-ctx.Done()

	b.mu.Lock()
	delete(b.handlers, id)
	b.mu.Unlock()
	return nil
}

// Subscribers reports the number of active handlers.
func (b *LocalBroker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}

func (b *LocalBroker) Close() error {
	b.mu.Lock()
	b.handlers = make(map[int]func(domain.ChangeEvent))
	b.mu.Unlock()
	return nil
}
