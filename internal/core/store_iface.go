package core

import (
	"context"

	"github.com/dkeye/Soundroom/internal/domain"
)

// PresenceStore is the slice of the persistent store the coordinator needs.
type PresenceStore interface {
	GetRoom(ctx context.Context, id domain.RoomID) (*domain.Room, error)
	ListParticipants(ctx context.Context, roomID domain.RoomID) ([]domain.Participant, error)
	SetParticipantActive(ctx context.Context, id domain.ParticipantID, active bool) error
	// DeleteRoom removes the room together with its participants and sounds.
	DeleteRoom(ctx context.Context, id domain.RoomID) error
}

// RoomStore is the full persistent store used by the HTTP handlers.
type RoomStore interface {
	PresenceStore

	CreateRoom(ctx context.Context, r *domain.Room) error
	GetRoomByCode(ctx context.Context, code string) (*domain.Room, error)
	ListPublicRooms(ctx context.Context) ([]domain.Room, error)

	CreateParticipant(ctx context.Context, p *domain.Participant) error
	GetParticipant(ctx context.Context, id domain.ParticipantID) (*domain.Participant, error)

	CreateSound(ctx context.Context, s *domain.Sound) error
	ListSounds(ctx context.Context, roomID domain.RoomID) ([]domain.Sound, error)

	Close() error
}
