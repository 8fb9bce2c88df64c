package app

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

var ErrLoopStopped = errors.New("event loop stopped")

// EventLoop is the single goroutine that owns all presence state.
// Transport reads, timer callbacks and store continuations reach the
// state only by posting closures here, so nothing in this package locks.
type EventLoop struct {
	events chan func()
	done   chan struct{}
	calls  sync.WaitGroup
}

func NewEventLoop(buffer int) *EventLoop {
	return &EventLoop{
		events: make(chan func(), buffer),
		done:   make(chan struct{}),
	}
}

// Run processes posted closures until ctx is cancelled.
func (l *EventLoop) Run(ctx context.Context) {
	log.Info().Str("module", "app.loop").Msg("event loop started")
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "app.loop").Msg("event loop stopped")
			return
		case fn := <-l.events:
			fn()
		}
	}
}

// Post queues fn for the loop. It reports false once the loop has stopped.
func (l *EventLoop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.events <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Do runs fn on the loop and waits for it to finish.
func (l *EventLoop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrLoopStopped
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrLoopStopped
	}
}

// Go runs call off the loop and posts then(err) back onto it. Between the
// two the state may have changed, so then must re-validate what it acts on.
func (l *EventLoop) Go(ctx context.Context, call func(ctx context.Context) error, then func(err error)) {
	l.calls.Add(1)
	go func() {
		defer l.calls.Done()
		err := call(ctx)
		l.Post(func() { then(err) })
	}()
}

// Wait blocks until every call started with Go has returned.
func (l *EventLoop) Wait() {
	l.calls.Wait()
}
