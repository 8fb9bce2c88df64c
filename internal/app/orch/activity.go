package orch

import (
	"context"
	"sync"
	"time"

	"github.com/dkeye/Soundroom/internal/app"
	"github.com/dkeye/Soundroom/internal/core"
	"github.com/dkeye/Soundroom/internal/domain"
	"github.com/rs/zerolog/log"
)

type activityUpdate struct {
	pid    domain.ParticipantID
	active bool
	then   func(error)
}

// activityQueue writes participant activity flags one at a time, in the
// order the event loop pushed them, so a quick leave and rejoin cannot land
// in the store reversed.
type activityQueue struct {
	loop    *app.EventLoop
	store   core.PresenceStore
	timeout time.Duration

	mu      sync.Mutex
	pending []activityUpdate
	wake    chan struct{}
}

func newActivityQueue(loop *app.EventLoop, store core.PresenceStore, timeout time.Duration) *activityQueue {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &activityQueue{
		loop:    loop,
		store:   store,
		timeout: timeout,
		wake:    make(chan struct{}, 1),
	}
}

func (q *activityQueue) push(pid domain.ParticipantID, active bool, then func(error)) {
	q.mu.Lock()
	q.pending = append(q.pending, activityUpdate{pid: pid, active: active, then: then})
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *activityQueue) pop() (activityUpdate, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return activityUpdate{}, false
	}
	u := q.pending[0]
	q.pending = q.pending[1:]
	return u, true
}

func (q *activityQueue) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.wake:
		}
		for {
			u, ok := q.pop()
			if !ok {
				break
			}
			err := q.apply(ctx, u)
			if err != nil {
				log.Warn().Err(err).Str("module", "orch.activity").Str("participant", string(u.pid)).Bool("active", u.active).Msg("activity update failed")
			}
			if u.then != nil {
				then := u.then
				q.loop.Post(func() { then(err) })
			}
		}
	}
}

func (q *activityQueue) apply(ctx context.Context, u activityUpdate) error {
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()
	return q.store.SetParticipantActive(ctx, u.pid, u.active)
}
