package app

import (
	"context"
	"errors"
	"time"

	"github.com/dkeye/Soundroom/internal/core"
	"github.com/dkeye/Soundroom/internal/domain"
	"github.com/rs/zerolog/log"
)

type EvictionPhase int

const (
	// PhaseChecking: the participant list is being read before arming.
	PhaseChecking EvictionPhase = iota
	// PhasePending: the grace timer is running.
	PhasePending
	// PhaseConfirming: the timer fired and the list is being read again.
	PhaseConfirming
	// PhaseDeleting: the store delete is in flight and can no longer be cancelled.
	PhaseDeleting
)

func (p EvictionPhase) String() string {
	switch p {
	case PhaseChecking:
		return "checking"
	case PhasePending:
		return "pending"
	case PhaseConfirming:
		return "confirming"
	case PhaseDeleting:
		return "deleting"
	default:
		return "unknown"
	}
}

// Eviction is the handle of the one outstanding eviction of a room.
type Eviction struct {
	Phase EvictionPhase
	token uint64
	timer *time.Timer
}

// EvictionScheduler deletes rooms that stay empty for a grace period.
// Every continuation carries the token of the eviction that started it and
// gives up if the room's handle has since been cancelled or replaced.
type EvictionScheduler struct {
	loop    *EventLoop
	rooms   *RoomManager
	store   core.PresenceStore
	grace   time.Duration
	timeout time.Duration

	seq     uint64
	evicted int

	// OnEvict runs after the store deleted the room and before its
	// presence is purged.
	OnEvict func(roomID domain.RoomID)
}

func NewEvictionScheduler(loop *EventLoop, rooms *RoomManager, store core.PresenceStore, grace, timeout time.Duration) *EvictionScheduler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &EvictionScheduler{
		loop:    loop,
		rooms:   rooms,
		store:   store,
		grace:   grace,
		timeout: timeout,
	}
}

// ScheduleCheck replaces any outstanding eviction of the room with a fresh
// check, arming the grace timer if nobody in the room is active.
func (s *EvictionScheduler) ScheduleCheck(roomID domain.RoomID) {
	p := s.rooms.GetOrCreate(roomID)
	if p.Eviction != nil && p.Eviction.Phase == PhaseDeleting {
		return
	}
	s.stop(p)
	s.seq++
	ev := &Eviction{Phase: PhaseChecking, token: s.seq}
	p.Eviction = ev

	token := ev.token
	var participants []domain.Participant
	s.call(func(ctx context.Context) error {
		var err error
		participants, err = s.store.ListParticipants(ctx, roomID)
		return err
	}, func(err error) {
		s.afterCheck(roomID, token, participants, err)
	})
}

// Cancel drops the room's outstanding eviction. It reports false when there
// was none or when deletion has already started.
func (s *EvictionScheduler) Cancel(roomID domain.RoomID) bool {
	p, ok := s.rooms.Get(roomID)
	if !ok || p.Eviction == nil {
		return false
	}
	if p.Eviction.Phase == PhaseDeleting {
		log.Warn().Str("module", "app.eviction").Str("room", string(roomID)).Msg("eviction already committed")
		return false
	}
	log.Info().Str("module", "app.eviction").Str("room", string(roomID)).Str("phase", p.Eviction.Phase.String()).Msg("eviction cancelled")
	s.clear(p)
	return true
}

// Phase reports the room's eviction phase, if one is outstanding.
func (s *EvictionScheduler) Phase(roomID domain.RoomID) (EvictionPhase, bool) {
	p, ok := s.rooms.Get(roomID)
	if !ok || p.Eviction == nil {
		return 0, false
	}
	return p.Eviction.Phase, true
}

func (s *EvictionScheduler) Evicted() int { return s.evicted }

func (s *EvictionScheduler) afterCheck(roomID domain.RoomID, token uint64, participants []domain.Participant, err error) {
	p, ev, ok := s.current(roomID, token, PhaseChecking)
	if !ok {
		return
	}
	if err != nil {
		log.Warn().Err(err).Str("module", "app.eviction").Str("room", string(roomID)).Msg("eviction check failed")
		s.clear(p)
		return
	}
	if s.occupied(roomID, participants) {
		s.clear(p)
		return
	}
	ev.Phase = PhasePending
	ev.timer = time.AfterFunc(s.grace, func() {
		s.loop.Post(func() { s.fire(roomID, token) })
	})
	log.Info().Str("module", "app.eviction").Str("room", string(roomID)).Dur("grace", s.grace).Msg("eviction armed")
}

func (s *EvictionScheduler) fire(roomID domain.RoomID, token uint64) {
	_, ev, ok := s.current(roomID, token, PhasePending)
	if !ok {
		return
	}
	ev.Phase = PhaseConfirming
	ev.timer = nil

	var participants []domain.Participant
	s.call(func(ctx context.Context) error {
		var err error
		participants, err = s.store.ListParticipants(ctx, roomID)
		return err
	}, func(err error) {
		s.afterConfirm(roomID, token, participants, err)
	})
}

func (s *EvictionScheduler) afterConfirm(roomID domain.RoomID, token uint64, participants []domain.Participant, err error) {
	p, ev, ok := s.current(roomID, token, PhaseConfirming)
	if !ok {
		return
	}
	if err != nil {
		log.Warn().Err(err).Str("module", "app.eviction").Str("room", string(roomID)).Msg("eviction recheck failed")
		s.clear(p)
		return
	}
	if s.occupied(roomID, participants) {
		log.Info().Str("module", "app.eviction").Str("room", string(roomID)).Msg("eviction aborted, room in use")
		s.clear(p)
		return
	}
	ev.Phase = PhaseDeleting
	s.call(func(ctx context.Context) error {
		return s.store.DeleteRoom(ctx, roomID)
	}, func(err error) {
		s.afterDelete(roomID, token, err)
	})
}

func (s *EvictionScheduler) afterDelete(roomID domain.RoomID, token uint64, err error) {
	p, _, ok := s.current(roomID, token, PhaseDeleting)
	if !ok {
		return
	}
	if err != nil && !errors.Is(err, domain.ErrRoomNotFound) {
		log.Error().Err(err).Str("module", "app.eviction").Str("room", string(roomID)).Msg("room delete failed")
		s.clear(p)
		return
	}
	p.Eviction = nil
	s.evicted++
	if s.OnEvict != nil {
		s.OnEvict(roomID)
	}
	s.rooms.Purge(roomID)
	log.Info().Str("module", "app.eviction").Str("room", string(roomID)).Msg("room evicted")
}

// occupied treats a live registered connection as presence even when its
// persisted activity flag has not landed yet.
func (s *EvictionScheduler) occupied(roomID domain.RoomID, participants []domain.Participant) bool {
	return domain.CountActive(participants) > 0 || s.rooms.LiveConnections(roomID) > 0
}

func (s *EvictionScheduler) current(roomID domain.RoomID, token uint64, phase EvictionPhase) (*RoomPresence, *Eviction, bool) {
	p, ok := s.rooms.Get(roomID)
	if !ok || p.Eviction == nil || p.Eviction.token != token || p.Eviction.Phase != phase {
		log.Debug().Str("module", "app.eviction").Str("room", string(roomID)).Uint64("token", token).Msg("stale eviction continuation")
		return nil, nil, false
	}
	return p, p.Eviction, true
}

func (s *EvictionScheduler) stop(p *RoomPresence) {
	if p.Eviction != nil && p.Eviction.timer != nil {
		p.Eviction.timer.Stop()
	}
	p.Eviction = nil
}

func (s *EvictionScheduler) clear(p *RoomPresence) {
	s.stop(p)
	s.rooms.Prune(p.ID)
}

func (s *EvictionScheduler) call(fn func(ctx context.Context) error, then func(err error)) {
	s.loop.Go(context.Background(), func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		return fn(ctx)
	}, then)
}
