package core

import "github.com/dkeye/Soundroom/internal/domain"

// RoomInfo is a read-only view of a room's live presence.
type RoomInfo struct {
	ID            domain.RoomID `json:"id"`
	Connections   int           `json:"connections"`
	VoiceCount    int           `json:"voiceCount"`
	EvictionPhase string        `json:"evictionPhase,omitempty"`
}

// PresenceSnapshot lists who is connected and who is in voice.
type PresenceSnapshot struct {
	RoomID        domain.RoomID          `json:"roomId"`
	Participants  []domain.ParticipantID `json:"participants"`
	Voice         []domain.ParticipantID `json:"voice"`
	EvictionPhase string                 `json:"evictionPhase,omitempty"`
}

type Stats struct {
	Rooms       int `json:"rooms"`
	Connections int `json:"connections"`
	Evictions   int `json:"evictions"`
}
