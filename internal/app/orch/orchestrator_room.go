package orch

import (
	"time"

	"github.com/dkeye/Soundroom/internal/app"
	"github.com/dkeye/Soundroom/internal/core"
	"github.com/dkeye/Soundroom/internal/domain"
	"github.com/rs/zerolog/log"
)

func (o *Orchestrator) handleJoin(conn core.SignalConnection, env core.Envelope) {
	if env.ParticipantID == "" {
		malformed(conn, env, "participantId")
		return
	}
	if env.RoomID == "" {
		malformed(conn, env, "roomId")
		return
	}

	res := o.Registry.Register(conn, env.ParticipantID, env.RoomID)
	if res.Previous != nil {
		o.afterUnbind(*res.Previous, true)
	}
	if res.Replaced != nil {
		o.afterReplace(*res.Replaced, env.RoomID)
	}

	_ = conn.TrySend(core.Encode(core.JoinConfirmed{
		Type:              core.TypeJoinConfirmed,
		ParticipantID:     env.ParticipantID,
		RoomID:            env.RoomID,
		VoiceParticipants: o.Voice.Members(env.RoomID),
	}))
	if res.Rebound {
		return
	}

	o.Evictions.Cancel(env.RoomID)
	o.activity.push(env.ParticipantID, true, nil)
	log.Info().Str("module", "orch").Str("participant", string(env.ParticipantID)).Str("room", string(env.RoomID)).Msg("joined room")
	o.announceJoin(res.Binding)
}

func (o *Orchestrator) handleLeave(conn core.SignalConnection, env core.Envelope) {
	if _, ok := o.boundAs(conn, env.ParticipantID, env.RoomID); !ok {
		return
	}
	b, _ := o.Registry.Unregister(conn.ID())
	log.Info().Str("module", "orch").Str("participant", string(b.Participant)).Str("room", string(b.Room)).Msg("left room")
	o.afterUnbind(b, true)
}

func (o *Orchestrator) announceJoin(b app.Binding) {
	announce := func() {
		cur, ok := o.Registry.Lookup(b.Conn.ID())
		if !ok || cur.Participant != b.Participant || cur.Room != b.Room {
			return
		}
		o.Broadcaster.Broadcast(b.Room, core.Encode(core.ParticipantEvent{
			Type:          core.TypeParticipantJoined,
			ParticipantID: b.Participant,
			RoomID:        b.Room,
		}), b.Participant)
	}
	if o.opts.JoinAnnounceDelay <= 0 {
		announce()
		return
	}
	time.AfterFunc(o.opts.JoinAnnounceDelay, func() { o.loop.Post(announce) })
}

// afterUnbind finishes the leave sequence of a binding that has already
// been removed from the registry.
func (o *Orchestrator) afterUnbind(b app.Binding, markInactive bool) {
	o.Voice.Leave(b.Room, b.Participant)
	o.Broadcaster.Broadcast(b.Room, core.Encode(core.ParticipantEvent{
		Type:          core.TypeParticipantLeft,
		ParticipantID: b.Participant,
		RoomID:        b.Room,
	}), b.Participant)

	if !markInactive {
		o.Evictions.ScheduleCheck(b.Room)
		return
	}
	room := b.Room
	o.activity.push(b.Participant, false, func(error) {
		o.Evictions.ScheduleCheck(room)
	})
}

// afterReplace cleans up after a duplicate connection of a participant who
// is joining again on a new connection. The participant stays active.
func (o *Orchestrator) afterReplace(old app.Binding, newRoom domain.RoomID) {
	if old.Room == newRoom {
		o.Voice.Leave(old.Room, old.Participant)
		return
	}
	o.afterUnbind(old, false)
}

func (o *Orchestrator) onEvicted(roomID domain.RoomID) {
	for _, b := range o.Registry.PurgeRoom(roomID) {
		b.Conn.Close(core.CloseRoomEvicted, "room closed")
		o.Sounds.Forget(b.Participant)
	}
	o.Sounds.Sweep()
}
