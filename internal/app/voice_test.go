package app

import (
	"testing"

	"github.com/dkeye/Soundroom/internal/core"
	"github.com/dkeye/Soundroom/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVoiceFixture() (*RoomManager, *Registry, *VoiceTracker) {
	rooms := NewRoomManager()
	reg := NewRegistry(rooms)
	bc := NewBroadcaster(rooms, reg, nil)
	ice := []webrtc.ICEServer{{URLs: []string{"stun:stun.example.org:3478"}}}
	return rooms, reg, NewVoiceTracker(rooms, bc, ice)
}

func TestVoiceTracker_JoinThenLeave(t *testing.T) {
	rooms, reg, voice := newVoiceFixture()
	joiner, peer := newMockConn("j"), newMockConn("p")
	reg.Register(joiner, "pj", "r")
	reg.Register(peer, "pp", "r")

	require.True(t, voice.Join(joiner, "r", "pj"))
	require.True(t, voice.Leave("r", "pj"))

	assert.Equal(t, 0, voice.Count("r"))
	assert.Equal(t, []string{
		core.TypeVoiceJoinConfirmed,
		core.TypeVoiceCountChanged,
		core.TypeVoiceCountChanged,
	}, joiner.types())
	assert.Equal(t, []string{
		core.TypeVoiceParticipantJoined,
		core.TypeVoiceCountChanged,
		core.TypeVoiceParticipantLeft,
		core.TypeVoiceCountChanged,
	}, peer.types())

	counts := framesOfType(t, peer, core.TypeVoiceCountChanged)
	require.Len(t, counts, 2)
	assert.EqualValues(t, 1, counts[0]["count"])
	assert.EqualValues(t, 0, counts[1]["count"])

	p, ok := rooms.Get("r")
	require.True(t, ok)
	assert.Empty(t, p.Voice)
}

func TestVoiceTracker_JoinConfirmCarriesState(t *testing.T) {
	_, reg, voice := newVoiceFixture()
	a, b := newMockConn("a"), newMockConn("b")
	reg.Register(a, "pa", "r")
	reg.Register(b, "pb", "r")
	voice.Join(a, "r", "pa")
	voice.Join(b, "r", "pb")

	confirms := framesOfType(t, b, core.TypeVoiceJoinConfirmed)
	require.Len(t, confirms, 1)
	assert.EqualValues(t, 2, confirms[0]["count"])
	assert.Equal(t, []any{"pa", "pb"}, confirms[0]["participants"])
	assert.NotEmpty(t, confirms[0]["iceServers"])
	assert.Equal(t, []domain.ParticipantID{"pa", "pb"}, voice.Members("r"))
}

func TestVoiceTracker_RepeatJoinOnlyAcks(t *testing.T) {
	_, reg, voice := newVoiceFixture()
	a, b := newMockConn("a"), newMockConn("b")
	reg.Register(a, "pa", "r")
	reg.Register(b, "pb", "r")

	voice.Join(a, "r", "pa")
	assert.False(t, voice.Join(a, "r", "pa"))

	assert.Equal(t, 1, voice.Count("r"))
	assert.Len(t, framesOfType(t, a, core.TypeVoiceJoinConfirmed), 2)
	assert.Len(t, framesOfType(t, b, core.TypeVoiceCountChanged), 1)
}

func TestVoiceTracker_LeaveAbsentIsNoop(t *testing.T) {
	_, reg, voice := newVoiceFixture()
	a := newMockConn("a")
	reg.Register(a, "pa", "r")

	assert.False(t, voice.Leave("r", "pa"))
	assert.False(t, voice.Leave("nowhere", "pa"))
	assert.Empty(t, a.frames())
}

func TestVoiceTracker_EmptySetPruned(t *testing.T) {
	rooms, _, voice := newVoiceFixture()
	conn := newMockConn("a")
	voice.Join(conn, "solo", "pa")
	require.True(t, voice.Contains("solo", "pa"))

	voice.Leave("solo", "pa")
	_, ok := rooms.Get("solo")
	assert.False(t, ok)
	assert.Equal(t, []domain.ParticipantID{}, voice.Members("solo"))
}
