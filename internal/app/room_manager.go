package app

import (
	"sort"

	"github.com/dkeye/Soundroom/internal/core"
	"github.com/dkeye/Soundroom/internal/domain"
	"github.com/rs/zerolog/log"
)

// RoomPresence is the live state of one room. It is owned by the event loop.
type RoomPresence struct {
	ID       domain.RoomID
	Conns    map[domain.ParticipantID]core.SignalConnection
	Voice    map[domain.ParticipantID]struct{}
	Eviction *Eviction
}

func (p *RoomPresence) empty() bool {
	return len(p.Conns) == 0 && len(p.Voice) == 0 && p.Eviction == nil
}

// RoomManager holds presence for every room that has state. It is not safe
// for concurrent use.
type RoomManager struct {
	rooms map[domain.RoomID]*RoomPresence
}

func NewRoomManager() *RoomManager {
	return &RoomManager{rooms: make(map[domain.RoomID]*RoomPresence)}
}

func (m *RoomManager) Get(id domain.RoomID) (*RoomPresence, bool) {
	p, ok := m.rooms[id]
	return p, ok
}

func (m *RoomManager) GetOrCreate(id domain.RoomID) *RoomPresence {
	if p, ok := m.rooms[id]; ok {
		return p
	}
	p := &RoomPresence{
		ID:    id,
		Conns: make(map[domain.ParticipantID]core.SignalConnection),
		Voice: make(map[domain.ParticipantID]struct{}),
	}
	m.rooms[id] = p
	log.Debug().Str("module", "app.rooms").Str("room", string(id)).Msg("presence created")
	return p
}

// Prune drops the room's state once nothing refers to it any more.
func (m *RoomManager) Prune(id domain.RoomID) {
	if p, ok := m.rooms[id]; ok && p.empty() {
		delete(m.rooms, id)
		log.Debug().Str("module", "app.rooms").Str("room", string(id)).Msg("presence pruned")
	}
}

// Purge drops the room's state regardless of what it holds.
func (m *RoomManager) Purge(id domain.RoomID) {
	delete(m.rooms, id)
	log.Info().Str("module", "app.rooms").Str("room", string(id)).Msg("presence purged")
}

// LiveConnections counts open connections registered under the room.
func (m *RoomManager) LiveConnections(id domain.RoomID) int {
	p, ok := m.rooms[id]
	if !ok {
		return 0
	}
	n := 0
	for _, c := range p.Conns {
		if c.IsOpen() {
			n++
		}
	}
	return n
}

func (m *RoomManager) Len() int { return len(m.rooms) }

func (m *RoomManager) List() []core.RoomInfo {
	out := make([]core.RoomInfo, 0, len(m.rooms))
	for id, p := range m.rooms {
		info := core.RoomInfo{ID: id, Connections: len(p.Conns), VoiceCount: len(p.Voice)}
		if p.Eviction != nil {
			info.EvictionPhase = p.Eviction.Phase.String()
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *RoomManager) Snapshot(id domain.RoomID) core.PresenceSnapshot {
	snap := core.PresenceSnapshot{
		RoomID:       id,
		Participants: []domain.ParticipantID{},
		Voice:        []domain.ParticipantID{},
	}
	p, ok := m.rooms[id]
	if !ok {
		return snap
	}
	for pid := range p.Conns {
		snap.Participants = append(snap.Participants, pid)
	}
	snap.Voice = sortedIDs(p.Voice)
	sort.Slice(snap.Participants, func(i, j int) bool { return snap.Participants[i] < snap.Participants[j] })
	if p.Eviction != nil {
		snap.EvictionPhase = p.Eviction.Phase.String()
	}
	return snap
}

func sortedIDs(set map[domain.ParticipantID]struct{}) []domain.ParticipantID {
	out := make([]domain.ParticipantID, 0, len(set))
	for pid := range set {
		out = append(out, pid)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
