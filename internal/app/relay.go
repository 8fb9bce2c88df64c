package app

import (
	"github.com/dkeye/Soundroom/internal/core"
	"github.com/dkeye/Soundroom/internal/domain"
	"github.com/rs/zerolog/log"
)

type RelayOutcome int

const (
	RelayDelivered RelayOutcome = iota
	RelayNoTarget
	RelayTargetClosed
	RelaySendFailed
)

func (o RelayOutcome) String() string {
	switch o {
	case RelayDelivered:
		return "delivered"
	case RelayNoTarget:
		return "no_target"
	case RelayTargetClosed:
		return "target_closed"
	default:
		return "send_failed"
	}
}

// SignalRelay forwards WebRTC negotiation frames to one named participant.
// Undeliverable frames are dropped; peers retry negotiation themselves.
type SignalRelay struct {
	rooms *RoomManager
}

func NewSignalRelay(rooms *RoomManager) *SignalRelay {
	return &SignalRelay{rooms: rooms}
}

// Relay sends frame unchanged to the connection of to in roomID.
func (r *SignalRelay) Relay(roomID domain.RoomID, from, to domain.ParticipantID, frame core.Frame) RelayOutcome {
	out := r.relay(roomID, to, frame)
	log.Debug().Str("module", "app.relay").Str("room", string(roomID)).Str("from", string(from)).Str("to", string(to)).Str("outcome", out.String()).Msg("relay")
	return out
}

func (r *SignalRelay) relay(roomID domain.RoomID, to domain.ParticipantID, frame core.Frame) RelayOutcome {
	p, ok := r.rooms.Get(roomID)
	if !ok {
		return RelayNoTarget
	}
	conn, ok := p.Conns[to]
	if !ok {
		return RelayNoTarget
	}
	if !conn.IsOpen() {
		return RelayTargetClosed
	}
	if err := conn.TrySend(frame); err != nil {
		return RelaySendFailed
	}
	return RelayDelivered
}
