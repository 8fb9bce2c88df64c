package app

import (
	"context"
	"sync"

	"github.com/dkeye/Soundroom/internal/domain"
)

// fakeStore is a PresenceStore that counts calls and can be told to fail or
// to hold ListParticipants calls past holdAfter until gate is closed.
type fakeStore struct {
	mu           sync.Mutex
	participants map[domain.RoomID][]domain.Participant
	deleted      []domain.RoomID
	deleteCalls  int
	listCalls    int
	deleteErr    error
	listErr      error
	gate         chan struct{}
	holdAfter    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{participants: make(map[domain.RoomID][]domain.Participant)}
}

func (f *fakeStore) setActive(roomID domain.RoomID, pid domain.ParticipantID, active bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ps := f.participants[roomID]
	for i := range ps {
		if ps[i].ID == pid {
			ps[i].IsActive = active
			return
		}
	}
	f.participants[roomID] = append(ps, domain.Participant{ID: pid, RoomID: roomID, IsActive: active})
}

func (f *fakeStore) GetRoom(_ context.Context, id domain.RoomID) (*domain.Room, error) {
	return &domain.Room{ID: id}, nil
}

func (f *fakeStore) ListParticipants(_ context.Context, roomID domain.RoomID) ([]domain.Participant, error) {
	f.mu.Lock()
	f.listCalls++
	gate := f.gate
	if f.listCalls <= f.holdAfter {
		gate = nil
	}
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]domain.Participant(nil), f.participants[roomID]...), nil
}

func (f *fakeStore) SetParticipantActive(_ context.Context, id domain.ParticipantID, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for roomID, ps := range f.participants {
		for i := range ps {
			if ps[i].ID == id {
				f.participants[roomID][i].IsActive = active
				return nil
			}
		}
	}
	return domain.ErrParticipantNotFound
}

func (f *fakeStore) DeleteRoom(_ context.Context, id domain.RoomID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	delete(f.participants, id)
	return nil
}

func (f *fakeStore) deletes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.deleted)
}

func (f *fakeStore) deleteAttempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deleteCalls
}

func (f *fakeStore) lists() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}
