package app

import (
	"time"

	"github.com/dkeye/Soundroom/internal/domain"
)

// RoomRateLimiter is a sliding-window limiter keyed by participant. It is
// owned by the event loop.
type RoomRateLimiter struct {
	history  map[domain.ParticipantID][]time.Time
	limit    int
	interval time.Duration
	now      func() time.Time
}

func NewRoomRateLimiter(limit int, interval time.Duration) *RoomRateLimiter {
	return &RoomRateLimiter{
		history:  make(map[domain.ParticipantID][]time.Time),
		limit:    limit,
		interval: interval,
		now:      time.Now,
	}
}

func (rl *RoomRateLimiter) Allow(pid domain.ParticipantID) bool {
	if rl.limit <= 0 {
		return true
	}
	now := rl.now()
	fresh := rl.fresh(pid, now)
	if len(fresh) >= rl.limit {
		rl.history[pid] = fresh
		return false
	}
	rl.history[pid] = append(fresh, now)
	return true
}

func (rl *RoomRateLimiter) Forget(pid domain.ParticipantID) {
	delete(rl.history, pid)
}

// Sweep drops participants whose attempts have all left the window.
func (rl *RoomRateLimiter) Sweep() {
	now := rl.now()
	for pid := range rl.history {
		if fresh := rl.fresh(pid, now); len(fresh) == 0 {
			delete(rl.history, pid)
		} else {
			rl.history[pid] = fresh
		}
	}
}

func (rl *RoomRateLimiter) fresh(pid domain.ParticipantID, now time.Time) []time.Time {
	windowStart := now.Add(-rl.interval)
	attempts := rl.history[pid]
	fresh := attempts[:0]
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}
	return fresh
}
