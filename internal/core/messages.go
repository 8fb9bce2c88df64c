package core

import (
	"encoding/json"

	"github.com/dkeye/Soundroom/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// Inbound message kinds.
const (
	TypeJoinRoom              = "join_room"
	TypeLeaveRoom             = "leave_room"
	TypePlaySound             = "play_sound"
	TypeVoiceJoin             = "voice_join"
	TypeVoiceLeave            = "voice_leave"
	TypeVoiceOffer            = "voice_offer"
	TypeVoiceAnswer           = "voice_answer"
	TypeVoiceICECandidate     = "voice_ice_candidate"
	TypeVoiceParticipantMuted = "voice_participant_muted"
	TypePing                  = "ping"
)

// Outbound message kinds. The voice negotiation kinds and
// voice_participant_muted are forwarded under their inbound names.
const (
	TypeJoinConfirmed          = "join_confirmed"
	TypeParticipantJoined      = "participant_joined"
	TypeParticipantLeft        = "participant_left"
	TypeSoundPlayed            = "sound_played"
	TypeVoiceJoinConfirmed     = "voice_join_confirmed"
	TypeVoiceParticipantJoined = "voice_participant_joined"
	TypeVoiceParticipantLeft   = "voice_participant_left"
	TypeVoiceCountChanged      = "voice_participant_count_changed"
	TypePong                   = "pong"
	TypeError                  = "error"
)

// Envelope is the union of every inbound field. Only Type is always set.
type Envelope struct {
	Type          string               `json:"type"`
	ParticipantID domain.ParticipantID `json:"participantId,omitempty"`
	RoomID        domain.RoomID        `json:"roomId,omitempty"`
	SoundID       domain.SoundID       `json:"soundId,omitempty"`
	From          domain.ParticipantID `json:"from,omitempty"`
	To            domain.ParticipantID `json:"to,omitempty"`
	IsMuted       *bool                `json:"isMuted,omitempty"`
}

type JoinConfirmed struct {
	Type              string                 `json:"type"`
	ParticipantID     domain.ParticipantID   `json:"participantId"`
	RoomID            domain.RoomID          `json:"roomId"`
	VoiceParticipants []domain.ParticipantID `json:"voiceParticipants"`
}

// ParticipantEvent covers participant_joined, participant_left and the
// voice joined/left notifications.
type ParticipantEvent struct {
	Type          string               `json:"type"`
	ParticipantID domain.ParticipantID `json:"participantId"`
	RoomID        domain.RoomID        `json:"roomId"`
}

type SoundPlayed struct {
	Type          string               `json:"type"`
	SoundID       domain.SoundID       `json:"soundId"`
	ParticipantID domain.ParticipantID `json:"participantId"`
	Timestamp     int64                `json:"timestamp"`
}

type VoiceJoinConfirmed struct {
	Type          string                 `json:"type"`
	ParticipantID domain.ParticipantID   `json:"participantId"`
	RoomID        domain.RoomID          `json:"roomId"`
	Count         int                    `json:"count"`
	Participants  []domain.ParticipantID `json:"participants"`
	ICEServers    []webrtc.ICEServer     `json:"iceServers,omitempty"`
}

type VoiceCountChanged struct {
	Type   string        `json:"type"`
	RoomID domain.RoomID `json:"roomId"`
	Count  int           `json:"count"`
}

type VoiceMuted struct {
	Type          string               `json:"type"`
	ParticipantID domain.ParticipantID `json:"participantId"`
	RoomID        domain.RoomID        `json:"roomId"`
	IsMuted       bool                 `json:"isMuted"`
}

type ErrorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type Pong struct {
	Type string `json:"type"`
}

// Encode marshals an outbound message. Outbound messages are plain structs,
// so a failure here is a programming error and yields nil.
func Encode(v any) Frame {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "core").Msgf("encode %T", v)
		return nil
	}
	return b
}

// DecodeEnvelope parses the routing fields of an inbound message.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, err
	}
	return env, nil
}
