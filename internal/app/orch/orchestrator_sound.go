package orch

import (
	"time"

	"github.com/dkeye/Soundroom/internal/core"
	"github.com/rs/zerolog/log"
)

func (o *Orchestrator) handlePlaySound(conn core.SignalConnection, env core.Envelope) {
	if env.SoundID == "" {
		malformed(conn, env, "soundId")
		return
	}
	b, ok := o.boundAs(conn, env.ParticipantID, env.RoomID)
	if !ok {
		return
	}
	if !o.Sounds.Allow(b.Participant) {
		log.Info().Str("module", "orch").Str("participant", string(b.Participant)).Msg("sound rate limited")
		_ = conn.TrySend(core.Encode(core.ErrorMessage{Type: core.TypeError, Error: "rate_limited"}))
		return
	}
	o.Broadcaster.Broadcast(b.Room, core.Encode(core.SoundPlayed{
		Type:          core.TypeSoundPlayed,
		SoundID:       env.SoundID,
		ParticipantID: b.Participant,
		Timestamp:     time.Now().UnixMilli(),
	}), "")
}
