// Package memory keeps rooms, participants and sounds in process memory.
// Everything is lost on restart; use it for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/dkeye/Soundroom/internal/domain"
)

type Store struct {
	mu           sync.RWMutex
	rooms        map[domain.RoomID]domain.Room
	codes        map[string]domain.RoomID
	participants map[domain.ParticipantID]domain.Participant
	sounds       map[domain.RoomID][]domain.Sound
}

func New() *Store {
	return &Store{
		rooms:        make(map[domain.RoomID]domain.Room),
		codes:        make(map[string]domain.RoomID),
		participants: make(map[domain.ParticipantID]domain.Participant),
		sounds:       make(map[domain.RoomID][]domain.Sound),
	}
}

func (s *Store) CreateRoom(_ context.Context, r *domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[r.ID] = *r
	s.codes[r.Code] = r.ID
	return nil
}

func (s *Store) GetRoom(_ context.Context, id domain.RoomID) (*domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[id]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return &r, nil
}

func (s *Store) GetRoomByCode(_ context.Context, code string) (*domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.codes[code]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	r := s.rooms[id]
	return &r, nil
}

func (s *Store) ListPublicRooms(_ context.Context) ([]domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		if r.IsPublic {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// DeleteRoom removes the room and everything that belongs to it.
func (s *Store) DeleteRoom(_ context.Context, id domain.RoomID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return domain.ErrRoomNotFound
	}
	delete(s.rooms, id)
	delete(s.codes, r.Code)
	delete(s.sounds, id)
	for pid, p := range s.participants {
		if p.RoomID == id {
			delete(s.participants, pid)
		}
	}
	return nil
}

func (s *Store) CreateParticipant(_ context.Context, p *domain.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[p.RoomID]; !ok {
		return domain.ErrRoomNotFound
	}
	s.participants[p.ID] = *p
	return nil
}

func (s *Store) GetParticipant(_ context.Context, id domain.ParticipantID) (*domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participants[id]
	if !ok {
		return nil, domain.ErrParticipantNotFound
	}
	return &p, nil
}

func (s *Store) ListParticipants(_ context.Context, roomID domain.RoomID) ([]domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.Participant{}
	for _, p := range s.participants {
		if p.RoomID == roomID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

func (s *Store) SetParticipantActive(_ context.Context, id domain.ParticipantID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[id]
	if !ok {
		return domain.ErrParticipantNotFound
	}
	p.IsActive = active
	s.participants[id] = p
	return nil
}

func (s *Store) CreateSound(_ context.Context, snd *domain.Sound) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[snd.RoomID]; !ok {
		return domain.ErrRoomNotFound
	}
	s.sounds[snd.RoomID] = append(s.sounds[snd.RoomID], *snd)
	return nil
}

func (s *Store) ListSounds(_ context.Context, roomID domain.RoomID) ([]domain.Sound, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Sound{}, s.sounds[roomID]...), nil
}

func (s *Store) Close() error { return nil }
