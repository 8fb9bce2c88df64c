package orch

import (
	"github.com/dkeye/Soundroom/internal/core"
	"github.com/rs/zerolog/log"
)

func (o *Orchestrator) handleVoiceJoin(conn core.SignalConnection, env core.Envelope) {
	b, ok := o.boundAs(conn, env.ParticipantID, env.RoomID)
	if !ok {
		return
	}
	o.Evictions.Cancel(b.Room)
	o.Voice.Join(conn, b.Room, b.Participant)
}

func (o *Orchestrator) handleVoiceLeave(conn core.SignalConnection, env core.Envelope) {
	b, ok := o.boundAs(conn, env.ParticipantID, env.RoomID)
	if !ok {
		return
	}
	o.Voice.Leave(b.Room, b.Participant)
}

func (o *Orchestrator) handleMuted(conn core.SignalConnection, env core.Envelope) {
	if env.IsMuted == nil {
		malformed(conn, env, "isMuted")
		return
	}
	b, ok := o.boundAs(conn, env.ParticipantID, env.RoomID)
	if !ok {
		return
	}
	o.Broadcaster.Broadcast(b.Room, core.Encode(core.VoiceMuted{
		Type:          core.TypeVoiceParticipantMuted,
		ParticipantID: b.Participant,
		RoomID:        b.Room,
		IsMuted:       *env.IsMuted,
	}), b.Participant)
}

// handleRelay forwards the raw frame so payload fields survive untouched.
func (o *Orchestrator) handleRelay(conn core.SignalConnection, env core.Envelope, data []byte) {
	if env.From == "" {
		malformed(conn, env, "from")
		return
	}
	if env.To == "" {
		malformed(conn, env, "to")
		return
	}
	b, ok := o.boundAs(conn, env.From, env.RoomID)
	if !ok {
		return
	}
	out := o.Relay.Relay(b.Room, env.From, env.To, core.Frame(data))
	log.Debug().Str("module", "orch").Str("type", env.Type).Str("outcome", out.String()).Msg("relayed")
}
