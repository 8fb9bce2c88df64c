package app

import (
	"sort"

	"github.com/dkeye/Soundroom/internal/core"
	"github.com/dkeye/Soundroom/internal/domain"
	"github.com/rs/zerolog/log"
)

// Target is one recipient in a broadcast snapshot.
type Target struct {
	Participant domain.ParticipantID
	Conn        core.SignalConnection
}

type DeadTarget struct {
	Target
	Err error
}

// PublishResult reports delivery stats for one broadcast.
type PublishResult struct {
	Delivered []domain.ParticipantID
	Dead      []DeadTarget
}

// Publish sends frame to every target except exclude. It touches nothing
// but the connections themselves; failures come back in Dead.
func Publish(targets []Target, exclude domain.ParticipantID, frame core.Frame) PublishResult {
	res := PublishResult{}
	for _, t := range targets {
		if exclude != "" && t.Participant == exclude {
			continue
		}
		if !t.Conn.IsOpen() {
			res.Dead = append(res.Dead, DeadTarget{Target: t, Err: core.ErrConnectionClosed})
			continue
		}
		if err := t.Conn.TrySend(frame); err != nil {
			res.Dead = append(res.Dead, DeadTarget{Target: t, Err: err})
			continue
		}
		res.Delivered = append(res.Delivered, t.Participant)
	}
	return res
}

// Broadcaster fans frames out to a room. It is owned by the event loop.
type Broadcaster struct {
	rooms    *RoomManager
	registry *Registry
	policy   Policy

	// OnPrune runs after a dead connection has been unregistered, so the
	// caller can finish the usual leave sequence for it.
	OnPrune func(b Binding)
}

func NewBroadcaster(rooms *RoomManager, registry *Registry, policy Policy) *Broadcaster {
	if policy == nil {
		policy = SimplePolicy{}
	}
	return &Broadcaster{rooms: rooms, registry: registry, policy: policy}
}

// Snapshot returns the room's current targets in a stable order.
func (b *Broadcaster) Snapshot(roomID domain.RoomID) []Target {
	p, ok := b.rooms.Get(roomID)
	if !ok {
		return nil
	}
	out := make([]Target, 0, len(p.Conns))
	for pid, conn := range p.Conns {
		out = append(out, Target{Participant: pid, Conn: conn})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Participant < out[j].Participant })
	return out
}

func (b *Broadcaster) Broadcast(roomID domain.RoomID, frame core.Frame, exclude domain.ParticipantID) PublishResult {
	res := Publish(b.Snapshot(roomID), exclude, frame)
	for _, dead := range res.Dead {
		action := b.policy.OnSendFailure(dead.Target, dead.Err)
		log.Debug().Str("module", "app.broadcast").Str("room", string(roomID)).Str("participant", string(dead.Participant)).Err(dead.Err).Str("action", action.String()).Msg("send failed")
		if action != KickMember {
			continue
		}
		b.prune(dead.Conn)
	}
	log.Debug().Str("module", "app.broadcast").Str("room", string(roomID)).Int("sent_to", len(res.Delivered)).Int("dead", len(res.Dead)).Msg("broadcast result")
	return res
}

func (b *Broadcaster) prune(conn core.SignalConnection) {
	binding, ok := b.registry.Unregister(conn.ID())
	conn.Close(core.CloseGoingAway, "connection not writable")
	if !ok {
		return
	}
	log.Info().Str("module", "app.broadcast").Str("participant", string(binding.Participant)).Str("room", string(binding.Room)).Msg("pruned dead connection")
	if b.OnPrune != nil {
		b.OnPrune(binding)
	}
}
