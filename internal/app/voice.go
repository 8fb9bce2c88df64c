package app

import (
	"github.com/dkeye/Soundroom/internal/core"
	"github.com/dkeye/Soundroom/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// VoiceTracker keeps the per-room set of participants in the voice
// sub-channel and publishes the count. It is owned by the event loop.
type VoiceTracker struct {
	rooms       *RoomManager
	broadcaster *Broadcaster
	iceServers  []webrtc.ICEServer
}

func NewVoiceTracker(rooms *RoomManager, broadcaster *Broadcaster, iceServers []webrtc.ICEServer) *VoiceTracker {
	return &VoiceTracker{rooms: rooms, broadcaster: broadcaster, iceServers: iceServers}
}

// Join adds pid to the room's voice set, acknowledges conn and tells the
// room. A repeated join is only acknowledged again.
func (v *VoiceTracker) Join(conn core.SignalConnection, roomID domain.RoomID, pid domain.ParticipantID) bool {
	p := v.rooms.GetOrCreate(roomID)
	_, already := p.Voice[pid]
	if !already {
		p.Voice[pid] = struct{}{}
	}
	count := len(p.Voice)

	_ = conn.TrySend(core.Encode(core.VoiceJoinConfirmed{
		Type:          core.TypeVoiceJoinConfirmed,
		ParticipantID: pid,
		RoomID:        roomID,
		Count:         count,
		Participants:  sortedIDs(p.Voice),
		ICEServers:    v.iceServers,
	}))
	if already {
		return false
	}
	log.Info().Str("module", "app.voice").Str("room", string(roomID)).Str("participant", string(pid)).Int("count", count).Msg("voice join")

	v.broadcaster.Broadcast(roomID, core.Encode(core.ParticipantEvent{
		Type:          core.TypeVoiceParticipantJoined,
		ParticipantID: pid,
		RoomID:        roomID,
	}), pid)
	v.publishCount(roomID)
	return true
}

// Leave removes pid from the room's voice set. It is a no-op if pid is absent.
func (v *VoiceTracker) Leave(roomID domain.RoomID, pid domain.ParticipantID) bool {
	p, ok := v.rooms.Get(roomID)
	if !ok {
		return false
	}
	if _, in := p.Voice[pid]; !in {
		return false
	}
	delete(p.Voice, pid)
	v.rooms.Prune(roomID)
	log.Info().Str("module", "app.voice").Str("room", string(roomID)).Str("participant", string(pid)).Int("count", len(p.Voice)).Msg("voice leave")

	v.broadcaster.Broadcast(roomID, core.Encode(core.ParticipantEvent{
		Type:          core.TypeVoiceParticipantLeft,
		ParticipantID: pid,
		RoomID:        roomID,
	}), pid)
	v.publishCount(roomID)
	return true
}

func (v *VoiceTracker) Contains(roomID domain.RoomID, pid domain.ParticipantID) bool {
	p, ok := v.rooms.Get(roomID)
	if !ok {
		return false
	}
	_, in := p.Voice[pid]
	return in
}

func (v *VoiceTracker) Count(roomID domain.RoomID) int {
	if p, ok := v.rooms.Get(roomID); ok {
		return len(p.Voice)
	}
	return 0
}

func (v *VoiceTracker) Members(roomID domain.RoomID) []domain.ParticipantID {
	if p, ok := v.rooms.Get(roomID); ok {
		return sortedIDs(p.Voice)
	}
	return []domain.ParticipantID{}
}

// the count goes to everyone, the joiner or leaver included
func (v *VoiceTracker) publishCount(roomID domain.RoomID) {
	v.broadcaster.Broadcast(roomID, core.Encode(core.VoiceCountChanged{
		Type:   core.TypeVoiceCountChanged,
		RoomID: roomID,
		Count:  v.Count(roomID),
	}), "")
}
