package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dkeye/Soundroom/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type evictionFixture struct {
	loop    *EventLoop
	rooms   *RoomManager
	reg     *Registry
	store   *fakeStore
	sched   *EvictionScheduler
	evicted chan domain.RoomID
}

func newEvictionFixture(t *testing.T, grace time.Duration) *evictionFixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	f := &evictionFixture{
		loop:    NewEventLoop(16),
		rooms:   NewRoomManager(),
		store:   newFakeStore(),
		evicted: make(chan domain.RoomID, 8),
	}
	f.reg = NewRegistry(f.rooms)
	f.sched = NewEvictionScheduler(f.loop, f.rooms, f.store, grace, time.Second)
	f.sched.OnEvict = func(id domain.RoomID) { f.evicted <- id }
	go f.loop.Run(ctx)
	return f
}

// on runs fn on the event loop.
func (f *evictionFixture) on(t *testing.T, fn func()) {
	t.Helper()
	require.NoError(t, f.loop.Do(context.Background(), fn))
}

func (f *evictionFixture) phase(t *testing.T, roomID domain.RoomID) (EvictionPhase, bool) {
	var (
		ph EvictionPhase
		ok bool
	)
	f.on(t, func() { ph, ok = f.sched.Phase(roomID) })
	return ph, ok
}

func (f *evictionFixture) waitPhase(t *testing.T, roomID domain.RoomID, want EvictionPhase) {
	t.Helper()
	require.Eventually(t, func() bool {
		ph, ok := f.phase(t, roomID)
		return ok && ph == want
	}, time.Second, 2*time.Millisecond)
}

func TestEviction_DeletesEmptyRoomAfterGrace(t *testing.T) {
	f := newEvictionFixture(t, 30*time.Millisecond)
	f.store.setActive("r1", "p1", false)

	f.on(t, func() { f.sched.ScheduleCheck("r1") })

	select {
	case id := <-f.evicted:
		assert.Equal(t, domain.RoomID("r1"), id)
	case <-time.After(time.Second):
		t.Fatal("room was not evicted")
	}
	require.Eventually(t, func() bool { return f.store.deletes() == 1 }, time.Second, 2*time.Millisecond)

	f.on(t, func() {
		_, ok := f.rooms.Get("r1")
		assert.False(t, ok)
		assert.Equal(t, 1, f.sched.Evicted())
	})
}

func TestEviction_ActiveParticipantPreventsArming(t *testing.T) {
	f := newEvictionFixture(t, 10*time.Millisecond)
	f.store.setActive("r1", "p1", true)

	f.on(t, func() { f.sched.ScheduleCheck("r1") })
	require.Eventually(t, func() bool {
		_, ok := f.phase(t, "r1")
		return !ok
	}, time.Second, 2*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, f.store.deletes())
	f.on(t, func() { assert.Equal(t, 0, f.rooms.Len()) })
}

func TestEviction_LiveConnectionPreventsArming(t *testing.T) {
	f := newEvictionFixture(t, 10*time.Millisecond)
	f.store.setActive("r1", "p1", false)
	f.on(t, func() { f.reg.Register(newMockConn("c1"), "p1", "r1") })

	f.on(t, func() { f.sched.ScheduleCheck("r1") })
	time.Sleep(60 * time.Millisecond)

	assert.Equal(t, 0, f.store.deletes())
	_, pending := f.phase(t, "r1")
	assert.False(t, pending)
}

func TestEviction_JoinDuringGraceCancelsAndLeaveRearms(t *testing.T) {
	grace := 150 * time.Millisecond
	f := newEvictionFixture(t, grace)

	f.on(t, func() { f.sched.ScheduleCheck("r1") })
	f.waitPhase(t, "r1", PhasePending)

	time.Sleep(grace / 3)
	var cancelled bool
	f.on(t, func() { cancelled = f.sched.Cancel("r1") })
	require.True(t, cancelled)

	time.Sleep(2 * grace)
	assert.Equal(t, 0, f.store.deletes(), "cancelled room must not be deleted")

	armedAt := time.Now()
	f.on(t, func() { f.sched.ScheduleCheck("r1") })
	f.waitPhase(t, "r1", PhasePending)

	select {
	case <-f.evicted:
		assert.GreaterOrEqual(t, time.Since(armedAt), grace, "fresh timer runs the full grace period")
	case <-time.After(time.Second):
		t.Fatal("re-armed eviction never fired")
	}
	assert.Equal(t, 1, f.store.deletes())
}

func TestEviction_RepeatedScheduleAndCancelDeletesOnce(t *testing.T) {
	f := newEvictionFixture(t, 20*time.Millisecond)

	for i := 0; i < 25; i++ {
		f.on(t, func() {
			f.sched.ScheduleCheck("r1")
			if i%2 == 0 {
				f.sched.Cancel("r1")
			}
		})
	}
	f.on(t, func() { f.sched.ScheduleCheck("r1") })

	select {
	case <-f.evicted:
	case <-time.After(time.Second):
		t.Fatal("room was not evicted")
	}
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, f.store.deleteAttempts())
}

func TestEviction_CancelDuringRecheckWins(t *testing.T) {
	f := newEvictionFixture(t, 10*time.Millisecond)
	gate := make(chan struct{})
	f.store.mu.Lock()
	f.store.gate = gate
	f.store.holdAfter = 1
	f.store.mu.Unlock()

	f.on(t, func() { f.sched.ScheduleCheck("r1") })
	f.waitPhase(t, "r1", PhaseConfirming)
	var cancelled bool
	f.on(t, func() { cancelled = f.sched.Cancel("r1") })
	assert.True(t, cancelled)
	close(gate)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, f.store.deleteAttempts())
}

func TestEviction_CancelWhileDeletingIsNoop(t *testing.T) {
	f := newEvictionFixture(t, 10*time.Millisecond)
	f.on(t, func() {
		p := f.rooms.GetOrCreate("r1")
		p.Eviction = &Eviction{Phase: PhaseDeleting, token: 99}
	})

	var cancelled bool
	f.on(t, func() {
		cancelled = f.sched.Cancel("r1")
		f.sched.ScheduleCheck("r1")
	})
	assert.False(t, cancelled)
	ph, ok := f.phase(t, "r1")
	require.True(t, ok)
	assert.Equal(t, PhaseDeleting, ph)
	assert.Equal(t, 0, f.store.lists())
}

func TestEviction_DeleteFailureClearsHandleAndRetries(t *testing.T) {
	f := newEvictionFixture(t, 10*time.Millisecond)
	f.store.mu.Lock()
	f.store.deleteErr = errors.New("disk full")
	f.store.mu.Unlock()

	f.on(t, func() { f.sched.ScheduleCheck("r1") })
	require.Eventually(t, func() bool { return f.store.deleteAttempts() == 1 }, time.Second, 2*time.Millisecond)
	require.Eventually(t, func() bool {
		_, ok := f.phase(t, "r1")
		return !ok
	}, time.Second, 2*time.Millisecond)
	assert.Equal(t, 0, f.store.deletes())
	assert.Empty(t, f.evicted)

	f.store.mu.Lock()
	f.store.deleteErr = nil
	f.store.mu.Unlock()
	f.on(t, func() { f.sched.ScheduleCheck("r1") })

	select {
	case <-f.evicted:
	case <-time.After(time.Second):
		t.Fatal("retry did not evict")
	}
	assert.Equal(t, 2, f.store.deleteAttempts())
}

func TestEviction_MissingRoomCountsAsEvicted(t *testing.T) {
	f := newEvictionFixture(t, 10*time.Millisecond)
	f.store.mu.Lock()
	f.store.deleteErr = domain.ErrRoomNotFound
	f.store.mu.Unlock()

	f.on(t, func() { f.sched.ScheduleCheck("gone") })
	select {
	case id := <-f.evicted:
		assert.Equal(t, domain.RoomID("gone"), id)
	case <-time.After(time.Second):
		t.Fatal("missing room was not purged")
	}
}

func TestEviction_ListFailureLeavesNothingPending(t *testing.T) {
	f := newEvictionFixture(t, 10*time.Millisecond)
	f.store.mu.Lock()
	f.store.listErr = errors.New("timeout")
	f.store.mu.Unlock()

	f.on(t, func() { f.sched.ScheduleCheck("r1") })
	require.Eventually(t, func() bool { return f.store.lists() == 1 }, time.Second, 2*time.Millisecond)
	require.Eventually(t, func() bool {
		_, ok := f.phase(t, "r1")
		return !ok
	}, time.Second, 2*time.Millisecond)
	assert.Equal(t, 0, f.store.deleteAttempts())
}

func TestEvictionPhaseString(t *testing.T) {
	assert.Equal(t, "pending", PhasePending.String())
	assert.Equal(t, "deleting", PhaseDeleting.String())
	assert.Equal(t, "unknown", EvictionPhase(42).String())
}
