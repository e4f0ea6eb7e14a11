package channelsync

import (
	"context"
	"sync"
	"sync/atomic"
)

const opQueueSize = 256

// eventLoop applies operations one at a time on its own goroutine and owns
// the feed subscription of a view.
type eventLoop struct {
	ctx    context.Context
	cancel context.CancelFunc
	ops    chan func(context.Context)

	sub       Subscription
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error

	updates chan struct{}
}

func (l *eventLoop) init(parent context.Context) {
	l.ctx, l.cancel = context.WithCancel(parent)
	l.ops = make(chan func(context.Context), opQueueSize)
	l.updates = make(chan struct{}, 1)
}

// start runs first and then every queued operation until the view closes.
func (l *eventLoop) start(sub Subscription, first func(context.Context)) {
	l.sub = sub
	go func() {
		defer l.Close()
		first(l.ctx)
		for {
			select {
			case <-l.ctx.Done():
				return
			case op := <-l.ops:
				op(l.ctx)
			}
		}
	}()
}

// enqueue hands op to the loop. It blocks while the queue is full and gives
// up once the view is closed.
func (l *eventLoop) enqueue(op func(context.Context)) bool {
	if l.closed.Load() {
		return false
	}
	select {
	case l.ops <- op:
		return true
	case <-l.ctx.Done():
		return false
	}
}

// notify signals a state change. Signals coalesce.
func (l *eventLoop) notify() {
	select {
	case l.updates <- struct{}{}:
	default:
	}
}

// Updates receives a signal after each change to the view's state.
func (l *eventLoop) Updates() <-chan struct{} {
	return l.updates
}

// Done is closed once the view is closed.
func (l *eventLoop) Done() <-chan struct{} {
	return l.ctx.Done()
}

func (l *eventLoop) isClosed() bool {
	return l.closed.Load()
}

// Close releases the subscription and stops the loop. Results of operations
// still in flight are discarded. Close is idempotent.
func (l *eventLoop) Close() error {
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		l.cancel()
		if l.sub != nil {
			l.closeErr = l.sub.Close()
		}
	})
	return l.closeErr
}
